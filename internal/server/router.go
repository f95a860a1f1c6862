// Package server implements the HTTP server and routing logic.
package server

import (
	"net/http"

	"github.com/notionrelay/notionrelay/internal/server/handlers"
	"github.com/notionrelay/notionrelay/internal/server/ratelimit"
	"github.com/notionrelay/notionrelay/internal/server/reqctx"
)

// NewRouter creates and configures the HTTP router.
//
// limiter and geo are optional. When limiter is set, every route except the
// liveness endpoints is throttled per client IP.
func NewRouter(svc *handlers.Services, cfg *handlers.Config, limiter *ratelimit.Limiter, geo GeoResolver) http.Handler {
	mux := &http.ServeMux{}
	nh := handlers.NewNotionHandler(svc.Notion, cfg.StrictOrder)
	hh := handlers.NewHealthHandler(cfg.Version)
	sh := handlers.NewSchemaHandler()

	// Relay endpoints
	mux.Handle("POST /create-page", Wrap(nh.CreatePage, cfg))
	mux.Handle("POST /update-page", Wrap(nh.UpdatePage, cfg))
	mux.Handle("POST /query-database", Wrap(nh.QueryDatabase, cfg))
	mux.Handle("POST /read-page", Wrap(nh.ReadPage, cfg))

	// Service endpoints
	mux.HandleFunc("GET /{$}", hh.Home)
	mux.Handle("GET /health", Wrap(hh.Health, cfg))
	mux.Handle("GET /schema", Wrap(sh.Schema, cfg))

	var h http.Handler = mux
	if limiter != nil {
		h = ratelimit.Middleware(limiter, reqctx.GetClientIP, writeRateLimitError, "/", "/health")(h)
	}
	return RequestContext(geo)(AccessLog(h))
}

