package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/notionrelay/notionrelay/internal/server/reqctx"
)

type fixedGeo string

func (g fixedGeo) CountryCode(string) string { return string(g) }

func TestRequestContext(t *testing.T) {
	var gotIP, gotUA, gotCC string
	var gotID bool
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		gotIP = reqctx.ClientIP(ctx)
		gotUA = reqctx.UserAgent(ctx)
		gotCC = reqctx.CountryCode(ctx)
		gotID = !reqctx.RequestID(ctx).IsZero()
	})
	req := httptest.NewRequest(http.MethodPost, "/read-page", http.NoBody)
	req.Header.Set("X-Forwarded-For", "203.0.113.9")
	req.Header.Set("User-Agent", "gpt")
	w := httptest.NewRecorder()
	RequestContext(fixedGeo("FR"))(next).ServeHTTP(w, req)

	if gotIP != "203.0.113.9" || gotUA != "gpt" || gotCC != "FR" || !gotID {
		t.Errorf("ip=%q ua=%q cc=%q id=%v", gotIP, gotUA, gotCC, gotID)
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("X-Request-ID missing")
	}
}

func TestRequestContext_NoGeo(t *testing.T) {
	var cc string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cc = reqctx.CountryCode(r.Context())
	})
	RequestContext(nil)(next).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", http.NoBody))
	if cc != "" {
		t.Errorf("country = %q, want empty", cc)
	}
}

func TestStatusRecorder(t *testing.T) {
	tests := []struct {
		name  string
		write func(w http.ResponseWriter)
		want  int
		size  int
	}{
		{"nothing written", func(w http.ResponseWriter) {}, http.StatusOK, 0},
		{"implicit 200", func(w http.ResponseWriter) { _, _ = w.Write([]byte("abc")) }, http.StatusOK, 3},
		{"explicit 404", func(w http.ResponseWriter) {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte("{}"))
		}, http.StatusNotFound, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &statusRecorder{ResponseWriter: httptest.NewRecorder()}
			tt.write(rec)
			if rec.Status() != tt.want {
				t.Errorf("Status() = %d, want %d", rec.Status(), tt.want)
			}
			if rec.size != tt.size {
				t.Errorf("size = %d, want %d", rec.size, tt.size)
			}
		})
	}
}

func TestAccessLogPassesThrough(t *testing.T) {
	h := AccessLog(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", http.NoBody))
	if w.Code != http.StatusTeapot {
		t.Errorf("status = %d", w.Code)
	}
}
