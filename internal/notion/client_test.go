package notion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

// recordedRequest is what the fake Notion server saw.
type recordedRequest struct {
	Method  string
	Path    string
	Header  http.Header
	Body    string
	RawPath string
}

// requestLog collects requests seen by the fake server.
type requestLog struct {
	mu   sync.Mutex
	reqs []recordedRequest
}

func (l *requestLog) get(t *testing.T, i int) recordedRequest {
	t.Helper()
	l.mu.Lock()
	defer l.mu.Unlock()
	if i >= len(l.reqs) {
		t.Fatalf("expected at least %d requests, got %d", i+1, len(l.reqs))
	}
	return l.reqs[i]
}

func (l *requestLog) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.reqs)
}

func newFakeNotion(t *testing.T, status int, body string) (*httptest.Server, *requestLog) {
	t.Helper()
	log := &requestLog{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		log.mu.Lock()
		defer log.mu.Unlock()
		log.reqs = append(log.reqs, recordedRequest{
			Method:  r.Method,
			Path:    r.URL.Path,
			RawPath: r.URL.EscapedPath(),
			Header:  r.Header.Clone(),
			Body:    string(b),
		})
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv, log
}

func TestClient(t *testing.T) {
	t.Run("CreatePage", func(t *testing.T) {
		srv, reqs := newFakeNotion(t, http.StatusOK, `{"object":"page","id":"new"}`)
		c := NewClient(Config{Token: "secret", BaseURL: srv.URL + "/"})
		resp, err := c.CreatePage(context.Background(), &CreatePageRequest{
			Parent:     Parent{DatabaseID: "db1"},
			Properties: MapProperties(FlatProperties{"Name": "x"}),
		})
		if err != nil {
			t.Fatalf("CreatePage failed: %v", err)
		}
		if resp.StatusCode != http.StatusOK || resp.Kind != BodyStructured {
			t.Errorf("unexpected response %+v", resp)
		}
		if n := reqs.len(); n != 1 {
			t.Fatalf("expected 1 request, got %d", n)
		}
		got := reqs.get(t, 0)
		if got.Method != http.MethodPost || got.Path != "/pages" {
			t.Errorf("request = %s %s", got.Method, got.Path)
		}
		if h := got.Header.Get("Authorization"); h != "Bearer secret" {
			t.Errorf("Authorization = %q", h)
		}
		if h := got.Header.Get("Notion-Version"); h != APIVersion {
			t.Errorf("Notion-Version = %q", h)
		}
		if h := got.Header.Get("Content-Type"); h != "application/json" {
			t.Errorf("Content-Type = %q", h)
		}
		want := `{"parent":{"database_id":"db1"},"properties":{"Name":{"title":[{"text":{"content":"x"}}]}}}`
		if got.Body != want {
			t.Errorf("body = %s\nwant %s", got.Body, want)
		}
	})

	t.Run("UpdatePage", func(t *testing.T) {
		srv, reqs := newFakeNotion(t, http.StatusOK, `{}`)
		c := NewClient(Config{Token: "t", Version: "2025-09-03", BaseURL: srv.URL})
		if _, err := c.UpdatePage(context.Background(), "page-1", &UpdatePageRequest{
			Properties: MapProperties(FlatProperties{"Order": "2"}),
		}); err != nil {
			t.Fatalf("UpdatePage failed: %v", err)
		}
		got := reqs.get(t, 0)
		if got.Method != http.MethodPatch || got.Path != "/pages/page-1" {
			t.Errorf("request = %s %s", got.Method, got.Path)
		}
		if h := got.Header.Get("Notion-Version"); h != "2025-09-03" {
			t.Errorf("Notion-Version = %q", h)
		}
		if want := `{"properties":{"Order":{"number":2}}}`; got.Body != want {
			t.Errorf("body = %s, want %s", got.Body, want)
		}
	})

	t.Run("QueryDatabase empty", func(t *testing.T) {
		srv, reqs := newFakeNotion(t, http.StatusOK, `{"results":[]}`)
		c := NewClient(Config{BaseURL: srv.URL})
		if _, err := c.QueryDatabase(context.Background(), "db1", nil); err != nil {
			t.Fatalf("QueryDatabase failed: %v", err)
		}
		got := reqs.get(t, 0)
		if got.Method != http.MethodPost || got.Path != "/databases/db1/query" {
			t.Errorf("request = %s %s", got.Method, got.Path)
		}
		if got.Body != `{}` {
			t.Errorf("body = %s, want {}", got.Body)
		}
	})

	t.Run("QueryDatabase options", func(t *testing.T) {
		srv, reqs := newFakeNotion(t, http.StatusOK, `{"results":[]}`)
		c := NewClient(Config{BaseURL: srv.URL})
		opts := &QueryOptions{
			Filter:   json.RawMessage(`{"property":"Status","status":{"equals":"Done"}}`),
			PageSize: json.RawMessage(`10`),
		}
		if _, err := c.QueryDatabase(context.Background(), "db1", opts); err != nil {
			t.Fatalf("QueryDatabase failed: %v", err)
		}
		want := `{"filter":{"property":"Status","status":{"equals":"Done"}},"page_size":10}`
		if got := reqs.get(t, 0).Body; got != want {
			t.Errorf("body = %s\nwant %s", got, want)
		}
	})

	t.Run("GetPage", func(t *testing.T) {
		srv, reqs := newFakeNotion(t, http.StatusNotFound, `{"object":"error","status":404,"code":"object_not_found"}`)
		c := NewClient(Config{BaseURL: srv.URL})
		resp, err := c.GetPage(context.Background(), "missing")
		if err != nil {
			t.Fatalf("GetPage failed: %v", err)
		}
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("StatusCode = %d, want 404", resp.StatusCode)
		}
		got := reqs.get(t, 0)
		if got.Method != http.MethodGet || got.Path != "/pages/missing" || got.Body != "" {
			t.Errorf("request = %s %s %q", got.Method, got.Path, got.Body)
		}
	})

	t.Run("path escaping", func(t *testing.T) {
		srv, reqs := newFakeNotion(t, http.StatusOK, `{}`)
		c := NewClient(Config{BaseURL: srv.URL})
		if _, err := c.GetPage(context.Background(), "../databases/x"); err != nil {
			t.Fatalf("GetPage failed: %v", err)
		}
		if got := reqs.get(t, 0).RawPath; got != "/pages/..%2Fdatabases%2Fx" {
			t.Errorf("path = %s", got)
		}
	})

	t.Run("raw body", func(t *testing.T) {
		srv, _ := newFakeNotion(t, http.StatusBadGateway, `upstream down`)
		c := NewClient(Config{BaseURL: srv.URL})
		resp, err := c.GetPage(context.Background(), "p")
		if err != nil {
			t.Fatalf("GetPage failed: %v", err)
		}
		if resp.Kind != BodyRaw || resp.Raw != "upstream down" {
			t.Errorf("unexpected response %+v", resp)
		}
	})

	t.Run("timeout", func(t *testing.T) {
		block := make(chan struct{})
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			<-block
		}))
		defer srv.Close()
		defer close(block)
		c := NewClient(Config{BaseURL: srv.URL, Timeout: 50 * time.Millisecond})
		_, err := c.GetPage(context.Background(), "p")
		if err == nil {
			t.Fatal("expected a timeout error")
		}
	})

	t.Run("canceled", func(t *testing.T) {
		srv, _ := newFakeNotion(t, http.StatusOK, `{}`)
		c := NewClient(Config{BaseURL: srv.URL})
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if _, err := c.GetPage(ctx, "p"); !errors.Is(err, context.Canceled) {
			t.Errorf("err = %v, want context.Canceled", err)
		}
	})
}

func TestNewClientDefaults(t *testing.T) {
	c := NewClient(Config{})
	if c.baseURL != BaseURL {
		t.Errorf("baseURL = %q", c.baseURL)
	}
	if c.version != APIVersion {
		t.Errorf("version = %q", c.version)
	}
	if c.logBodyLimit != DefaultLogBodyLimit {
		t.Errorf("logBodyLimit = %d", c.logBodyLimit)
	}
	if c.httpClient.Timeout != DefaultTimeout {
		t.Errorf("Timeout = %v", c.httpClient.Timeout)
	}
}

// captureLogs routes the default logger to a JSON buffer for the test's duration.
func captureLogs(t *testing.T) *syncBuffer {
	t.Helper()
	buf := &syncBuffer{}
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { slog.SetDefault(prev) })
	return buf
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

// records returns the decoded log records with the given message.
func (b *syncBuffer) records(t *testing.T, msg string) []map[string]any {
	t.Helper()
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []map[string]any
	for line := range strings.SplitSeq(strings.TrimSpace(b.buf.String()), "\n") {
		if line == "" {
			continue
		}
		var rec map[string]any
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			t.Fatalf("bad log line %q: %v", line, err)
		}
		if rec["msg"] == msg {
			out = append(out, rec)
		}
	}
	return out
}

func TestClientResponseLogging(t *testing.T) {
	body := `{"object":"page","title":"` + strings.Repeat("é", 20) + `"}`

	t.Run("body truncated to limit", func(t *testing.T) {
		logs := captureLogs(t)
		srv, _ := newFakeNotion(t, http.StatusOK, body)
		c := NewClient(Config{BaseURL: srv.URL, LogBodyLimit: 27})
		if _, err := c.GetPage(t.Context(), "p1"); err != nil {
			t.Fatal(err)
		}
		recs := logs.records(t, "Notion response")
		if len(recs) != 1 {
			t.Fatalf("got %d response records, want 1", len(recs))
		}
		got, _ := recs[0]["body"].(string)
		if want := truncate(body, 27); got != want {
			t.Errorf("logged body = %q, want %q", got, want)
		}
		// The limit falls inside a two byte rune, which must not be split.
		if len(got) != 26 {
			t.Errorf("logged %d bytes, want 26", len(got))
		}
		if len(got) > 27 || !strings.HasPrefix(body, got) {
			t.Errorf("logged body %q is not a prefix of at most 27 bytes", got)
		}
		if recs[0]["status"] != float64(http.StatusOK) {
			t.Errorf("status = %v", recs[0]["status"])
		}
	})

	t.Run("negative limit logs everything", func(t *testing.T) {
		logs := captureLogs(t)
		srv, _ := newFakeNotion(t, http.StatusOK, body)
		c := NewClient(Config{BaseURL: srv.URL, LogBodyLimit: -1})
		if _, err := c.GetPage(t.Context(), "p1"); err != nil {
			t.Fatal(err)
		}
		recs := logs.records(t, "Notion response")
		if len(recs) != 1 || recs[0]["body"] != body {
			t.Errorf("records = %v", recs)
		}
	})

	t.Run("query body not logged", func(t *testing.T) {
		logs := captureLogs(t)
		srv, _ := newFakeNotion(t, http.StatusOK, `{"object":"list","results":[]}`)
		c := NewClient(Config{BaseURL: srv.URL})
		if _, err := c.QueryDatabase(t.Context(), "db", nil); err != nil {
			t.Fatal(err)
		}
		recs := logs.records(t, "Notion response")
		if len(recs) != 1 {
			t.Fatalf("got %d response records, want 1", len(recs))
		}
		if _, ok := recs[0]["body"]; ok {
			t.Errorf("query response body was logged: %v", recs[0]["body"])
		}
		req := logs.records(t, "Notion request")
		if len(req) != 1 || req[0]["payload"] != "{}" {
			t.Errorf("request records = %v", req)
		}
	})
}
