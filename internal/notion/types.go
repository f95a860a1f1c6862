// Defines the Notion property value types sent to the API.

package notion

import (
	"encoding/json"
	"fmt"
)

// PropertyType identifies which member of PropertyValue is populated.
type PropertyType string

// Property types emitted by MapProperties.
const (
	PropertyTypeTitle       PropertyType = "title"
	PropertyTypeRichText    PropertyType = "rich_text"
	PropertyTypeNumber      PropertyType = "number"
	PropertyTypeSelect      PropertyType = "select"
	PropertyTypeMultiSelect PropertyType = "multi_select"
	PropertyTypeStatus      PropertyType = "status"
)

// FlatProperties is the simplified field name to value mapping accepted from
// callers. Values are whatever encoding/json produced with UseNumber enabled.
type FlatProperties map[string]any

// Properties is the mapped set of Notion property values, keyed by field name.
type Properties map[string]PropertyValue

// PropertyValue is a Notion property value. Only the member matching Type is
// serialized.
type PropertyValue struct {
	Type        PropertyType
	Title       []RichText
	RichText    []RichText
	Number      json.Number
	Select      *SelectValue
	MultiSelect []SelectValue
	Status      *StatusValue
}

// RichText is a single text run.
type RichText struct {
	Text TextContent `json:"text"`
}

// TextContent holds the content of a text run.
type TextContent struct {
	Content string `json:"content"`
}

// SelectValue references a select or multi_select option by name.
type SelectValue struct {
	Name string `json:"name"`
}

// StatusValue references a status option by name.
type StatusValue struct {
	Name string `json:"name"`
}

// MarshalJSON emits the single-key object Notion expects, e.g.
// {"select":{"name":"Blog"}}.
func (p PropertyValue) MarshalJSON() ([]byte, error) {
	switch p.Type {
	case PropertyTypeTitle:
		return json.Marshal(struct {
			Title []RichText `json:"title"`
		}{nonNil(p.Title)})
	case PropertyTypeRichText:
		return json.Marshal(struct {
			RichText []RichText `json:"rich_text"`
		}{nonNil(p.RichText)})
	case PropertyTypeNumber:
		return json.Marshal(struct {
			Number json.Number `json:"number"`
		}{p.Number})
	case PropertyTypeSelect:
		return json.Marshal(struct {
			Select *SelectValue `json:"select"`
		}{p.Select})
	case PropertyTypeMultiSelect:
		return json.Marshal(struct {
			MultiSelect []SelectValue `json:"multi_select"`
		}{nonNil(p.MultiSelect)})
	case PropertyTypeStatus:
		return json.Marshal(struct {
			Status *StatusValue `json:"status"`
		}{p.Status})
	default:
		return nil, fmt.Errorf("unknown property type %q", p.Type)
	}
}

// nonNil makes sure empty lists serialize as [] rather than null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// Parent identifies the database a new page is created in.
type Parent struct {
	DatabaseID string `json:"database_id"`
}

// CreatePageRequest is the body of POST /pages.
type CreatePageRequest struct {
	Parent     Parent     `json:"parent"`
	Properties Properties `json:"properties"`
}

// UpdatePageRequest is the body of PATCH /pages/{id}.
type UpdatePageRequest struct {
	Properties Properties `json:"properties"`
}

// QueryOptions is the body of POST /databases/{id}/query.
//
// Members are forwarded verbatim. A nil member is left out of the payload.
type QueryOptions struct {
	Filter      json.RawMessage `json:"filter,omitempty"`
	Sorts       json.RawMessage `json:"sorts,omitempty"`
	StartCursor json.RawMessage `json:"start_cursor,omitempty"`
	PageSize    json.RawMessage `json:"page_size,omitempty"`
}
