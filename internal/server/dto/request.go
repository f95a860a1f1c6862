// Defines the request bodies accepted by the relay.

package dto

import (
	"bytes"
	"encoding/json"
	"slices"

	"github.com/notionrelay/notionrelay/internal/notion"
)

// CreatePageRequest is the body of POST /create-page.
type CreatePageRequest struct {
	DatabaseID string                `json:"databaseId" jsonschema:"description=Notion database the page is created in"`
	Properties notion.FlatProperties `json:"properties,omitempty" jsonschema:"description=Flat field name to value mapping. Defaults to a placeholder Name and Status when empty"`

	invalid []string
}

// UnmarshalJSON decodes each member on its own so that a falsy properties
// value (null, false, "", [] or {}) selects the default properties instead of
// failing the whole body.
func (r *CreatePageRequest) UnmarshalJSON(data []byte) error {
	f, err := decodeFields(data)
	if err != nil {
		return err
	}
	*r = CreatePageRequest{}
	r.DatabaseID = f.id("databaseId", &r.invalid)
	r.Properties = f.properties("properties", &r.invalid)
	return nil
}

// Validate validates the create page request fields.
func (r *CreatePageRequest) Validate() error {
	if err := requireID("databaseId", r.DatabaseID, r.invalid); err != nil {
		return err
	}
	if slices.Contains(r.invalid, "properties") {
		return InvalidField("properties", "must be an object")
	}
	return nil
}

// UpdatePageRequest is the body of POST /update-page.
type UpdatePageRequest struct {
	PageID     string                `json:"pageId" jsonschema:"description=Notion page to update"`
	Properties notion.FlatProperties `json:"properties" jsonschema:"description=Flat field name to value mapping"`

	invalid []string
}

func (r *UpdatePageRequest) UnmarshalJSON(data []byte) error {
	f, err := decodeFields(data)
	if err != nil {
		return err
	}
	*r = UpdatePageRequest{}
	r.PageID = f.id("pageId", &r.invalid)
	r.Properties = f.properties("properties", &r.invalid)
	return nil
}

// Validate validates the update page request fields.
func (r *UpdatePageRequest) Validate() error {
	if err := requireID("pageId", r.PageID, r.invalid); err != nil {
		return err
	}
	if slices.Contains(r.invalid, "properties") {
		return InvalidField("properties", "must be an object")
	}
	if len(r.Properties) == 0 {
		return MissingField("properties")
	}
	return nil
}

// QueryDatabaseRequest is the body of POST /query-database.
//
// The optional members are forwarded to Notion verbatim.
type QueryDatabaseRequest struct {
	DatabaseID  string          `json:"databaseId" jsonschema:"description=Notion database to query"`
	Filter      json.RawMessage `json:"filter,omitempty" jsonschema:"description=Notion filter object"`
	Sorts       json.RawMessage `json:"sorts,omitempty" jsonschema:"description=Notion sort list"`
	StartCursor json.RawMessage `json:"start_cursor,omitempty" jsonschema:"description=Cursor returned by a previous query"`
	PageSize    json.RawMessage `json:"page_size,omitempty" jsonschema:"description=Maximum number of results"`

	invalid []string
}

func (r *QueryDatabaseRequest) UnmarshalJSON(data []byte) error {
	f, err := decodeFields(data)
	if err != nil {
		return err
	}
	*r = QueryDatabaseRequest{
		Filter:      f["filter"],
		Sorts:       f["sorts"],
		StartCursor: f["start_cursor"],
		PageSize:    f["page_size"],
	}
	r.DatabaseID = f.id("databaseId", &r.invalid)
	return nil
}

// Validate validates the query database request fields.
func (r *QueryDatabaseRequest) Validate() error {
	return requireID("databaseId", r.DatabaseID, r.invalid)
}

// QueryOptions returns the options to forward. filter and sorts are kept
// unless null; start_cursor and page_size are kept only when truthy.
func (r *QueryDatabaseRequest) QueryOptions() *notion.QueryOptions {
	opts := &notion.QueryOptions{}
	if !isNull(r.Filter) {
		opts.Filter = r.Filter
	}
	if !isNull(r.Sorts) {
		opts.Sorts = r.Sorts
	}
	if isTruthy(r.StartCursor) {
		opts.StartCursor = r.StartCursor
	}
	if isTruthy(r.PageSize) {
		opts.PageSize = r.PageSize
	}
	return opts
}

// ReadPageRequest is the body of POST /read-page.
type ReadPageRequest struct {
	PageID string `json:"pageId" jsonschema:"description=Notion page to read"`

	invalid []string
}

func (r *ReadPageRequest) UnmarshalJSON(data []byte) error {
	f, err := decodeFields(data)
	if err != nil {
		return err
	}
	*r = ReadPageRequest{}
	r.PageID = f.id("pageId", &r.invalid)
	return nil
}

// Validate validates the read page request fields.
func (r *ReadPageRequest) Validate() error {
	return requireID("pageId", r.PageID, r.invalid)
}

// HealthRequest is the (empty) request for the health endpoint.
type HealthRequest struct{}

// Validate is a no-op for an empty request.
func (r *HealthRequest) Validate() error {
	return nil
}

// SchemaRequest is the (empty) request for the schema endpoint.
type SchemaRequest struct{}

// Validate is a no-op for an empty request.
func (r *SchemaRequest) Validate() error {
	return nil
}

// fields holds the undecoded members of a request object.
type fields map[string]json.RawMessage

// decodeFields fails only when data is not a JSON object (or null).
func decodeFields(data []byte) (fields, error) {
	var f fields
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	return f, nil
}

// id returns the identifier stored under name. Falsy values read as absent.
// Numbers keep their literal text. Any other type is recorded in invalid.
func (f fields) id(name string, invalid *[]string) string {
	raw := f[name]
	if !isTruthy(raw) {
		return ""
	}
	var v any
	if err := decodeNumbers(raw, &v); err == nil {
		switch t := v.(type) {
		case string:
			return t
		case json.Number:
			return t.String()
		}
	}
	*invalid = append(*invalid, name)
	return ""
}

// properties returns the flat mapping stored under name, nil when falsy.
func (f fields) properties(name string, invalid *[]string) notion.FlatProperties {
	raw := f[name]
	if !isTruthy(raw) {
		return nil
	}
	var p notion.FlatProperties
	if err := decodeNumbers(raw, &p); err != nil {
		*invalid = append(*invalid, name)
		return nil
	}
	return p
}

// decodeNumbers keeps numbers as json.Number so their text survives mapping.
func decodeNumbers(raw json.RawMessage, v any) error {
	d := json.NewDecoder(bytes.NewReader(raw))
	d.UseNumber()
	return d.Decode(v)
}

func requireID(name, value string, invalid []string) error {
	if slices.Contains(invalid, name) {
		return InvalidField(name, "must be a string")
	}
	if value == "" {
		return MissingField(name)
	}
	return nil
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}

// isTruthy reports whether raw is a JSON value other than null, false, 0, ""
// or an empty array or object.
func isTruthy(raw json.RawMessage) bool {
	if isNull(raw) {
		return false
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return false
	}
	switch t := v.(type) {
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		return t != ""
	case []any:
		return len(t) != 0
	case map[string]any:
		return len(t) != 0
	default:
		return v != nil
	}
}
