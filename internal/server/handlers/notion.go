// Handles the four relay endpoints.

package handlers

import (
	"context"
	"log/slog"
	"strings"

	"github.com/notionrelay/notionrelay/internal/notion"
	"github.com/notionrelay/notionrelay/internal/server/dto"
)

// NotionHandler translates flat requests into Notion calls and hands the
// upstream response back unchanged.
type NotionHandler struct {
	api         NotionAPI
	strictOrder bool
}

// NewNotionHandler creates a new Notion relay handler.
func NewNotionHandler(api NotionAPI, strictOrder bool) *NotionHandler {
	return &NotionHandler{api: api, strictOrder: strictOrder}
}

// CreatePage creates a page in the requested database.
// Empty properties are replaced with the placeholder set.
func (h *NotionHandler) CreatePage(ctx context.Context, req *dto.CreatePageRequest) (*notion.Response, error) {
	flat := req.Properties
	if len(flat) == 0 {
		flat = notion.DefaultProperties()
	}
	props, err := h.mapProperties(ctx, flat)
	if err != nil {
		return nil, err
	}
	return relay(h.api.CreatePage(ctx, &notion.CreatePageRequest{
		Parent:     notion.Parent{DatabaseID: req.DatabaseID},
		Properties: props,
	}))
}

// UpdatePage updates properties on an existing page.
func (h *NotionHandler) UpdatePage(ctx context.Context, req *dto.UpdatePageRequest) (*notion.Response, error) {
	props, err := h.mapProperties(ctx, req.Properties)
	if err != nil {
		return nil, err
	}
	return relay(h.api.UpdatePage(ctx, req.PageID, &notion.UpdatePageRequest{Properties: props}))
}

// QueryDatabase queries a database with the optional filter, sorts and paging fields.
func (h *NotionHandler) QueryDatabase(ctx context.Context, req *dto.QueryDatabaseRequest) (*notion.Response, error) {
	return relay(h.api.QueryDatabase(ctx, req.DatabaseID, req.QueryOptions()))
}

// ReadPage retrieves a page.
func (h *NotionHandler) ReadPage(ctx context.Context, req *dto.ReadPageRequest) (*notion.Response, error) {
	return relay(h.api.GetPage(ctx, req.PageID))
}

// mapProperties is shared by create and update so both paths map identically.
func (h *NotionHandler) mapProperties(ctx context.Context, flat notion.FlatProperties) (notion.Properties, error) {
	props, dropped := notion.MapPropertiesChecked(flat)
	if len(dropped) == 0 {
		return props, nil
	}
	if h.strictOrder {
		return nil, dto.InvalidField(dropped[0], "not a number")
	}
	slog.WarnContext(ctx, "Dropped properties that are not numbers", "fields", strings.Join(dropped, ","))
	return props, nil
}

// relay converts a transport failure into a 500. Any response that arrived,
// whatever its status, is passed through.
func relay(resp *notion.Response, err error) (*notion.Response, error) {
	if err != nil {
		return nil, dto.InternalWithError("Failed to reach Notion", err)
	}
	return resp, nil
}
