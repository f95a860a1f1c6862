// Defines the response bodies produced by the relay itself.

package dto

import "github.com/invopop/jsonschema"

// HealthResponse is a response containing health status.
type HealthResponse struct {
	Status  string `json:"status" jsonschema:"description=Always ok when the process serves requests"`
	Version string `json:"version" jsonschema:"description=Build version"`
}

// SchemaResponse maps each route to the JSON Schema of its request body.
type SchemaResponse map[string]*jsonschema.Schema
