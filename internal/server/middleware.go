package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/maruel/ksid"
	"github.com/notionrelay/notionrelay/internal/server/reqctx"
)

// GeoResolver maps a client IP to a country code.
type GeoResolver interface {
	CountryCode(ip string) string
}

// RequestContext tags every request with an ID, the client IP, the
// User-Agent and, when geo is non-nil, the client's country. The ID is
// echoed in the X-Request-ID response header.
func RequestContext(geo GeoResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := reqctx.GetClientIP(r)
			id := ksid.NewID()
			ctx := reqctx.WithRequestID(r.Context(), id)
			ctx = reqctx.WithClientIP(ctx, ip)
			ctx = reqctx.WithUserAgent(ctx, r.Header.Get("User-Agent"))
			if geo != nil {
				ctx = reqctx.WithCountryCode(ctx, geo.CountryCode(ip))
			}
			w.Header().Set("X-Request-ID", id.String())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AccessLog logs one line per request once the response is written.
// It must run inside RequestContext.
func AccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)
		ctx := r.Context()
		level := slog.LevelInfo
		if rec.Status() >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		slog.Log(ctx, level, "http",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.Status(),
			"bytes", rec.size,
			"dur", time.Since(start).Round(time.Millisecond),
			"ip", reqctx.ClientIP(ctx),
			"country", reqctx.CountryCode(ctx),
			"id", reqctx.RequestID(ctx).String(),
		)
	})
}

// statusRecorder captures the status code and body size of a response.
type statusRecorder struct {
	http.ResponseWriter
	status int
	size   int
}

func (s *statusRecorder) WriteHeader(code int) {
	if s.status == 0 {
		s.status = code
	}
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	if s.status == 0 {
		s.status = http.StatusOK
	}
	n, err := s.ResponseWriter.Write(b)
	s.size += n
	return n, err
}

// Status returns the recorded status, 200 if nothing was written.
func (s *statusRecorder) Status() int {
	if s.status == 0 {
		return http.StatusOK
	}
	return s.status
}

// Unwrap returns the underlying ResponseWriter for http.ResponseController.
func (s *statusRecorder) Unwrap() http.ResponseWriter {
	return s.ResponseWriter
}
