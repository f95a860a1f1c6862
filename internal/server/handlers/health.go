package handlers

import (
	"context"
	"io"
	"net/http"

	"github.com/notionrelay/notionrelay/internal/server/dto"
)

// HomeMessage is the liveness text served at the root.
const HomeMessage = "Notion GPT Backend is running!"

// HealthHandler handles health check requests.
type HealthHandler struct {
	version string
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(version string) *HealthHandler {
	return &HealthHandler{version: version}
}

// Health handles health check requests.
func (h *HealthHandler) Health(ctx context.Context, req *dto.HealthRequest) (*dto.HealthResponse, error) {
	return &dto.HealthResponse{Status: "ok", Version: h.version}, nil
}

// Home writes the plain text liveness message.
func (h *HealthHandler) Home(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, HomeMessage)
}
