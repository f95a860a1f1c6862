// Serves the JSON Schema of the request bodies.

package handlers

import (
	"context"

	"github.com/invopop/jsonschema"
	"github.com/notionrelay/notionrelay/internal/server/dto"
)

// SchemaHandler serves request schemas computed once at construction.
type SchemaHandler struct {
	schemas dto.SchemaResponse
}

// NewSchemaHandler reflects the request types of every relay route.
func NewSchemaHandler() *SchemaHandler {
	r := jsonschema.Reflector{Anonymous: true, DoNotReference: true}
	return &SchemaHandler{schemas: dto.SchemaResponse{
		"/create-page":    r.Reflect(&dto.CreatePageRequest{}),
		"/update-page":    r.Reflect(&dto.UpdatePageRequest{}),
		"/query-database": r.Reflect(&dto.QueryDatabaseRequest{}),
		"/read-page":      r.Reflect(&dto.ReadPageRequest{}),
	}}
}

// Schema returns the request schemas keyed by route.
func (h *SchemaHandler) Schema(ctx context.Context, req *dto.SchemaRequest) (*dto.SchemaResponse, error) {
	return &h.schemas, nil
}
