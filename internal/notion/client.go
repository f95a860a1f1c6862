// Implements the Notion API client.

package notion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	// BaseURL is the Notion API base URL.
	BaseURL = "https://api.notion.com/v1"
	// APIVersion is the pinned Notion API version.
	APIVersion = "2022-06-28"
	// DefaultTimeout bounds every outbound call.
	DefaultTimeout = 30 * time.Second
	// DefaultLogBodyLimit is how many bytes of a response body get logged.
	DefaultLogBodyLimit = 2000
)

// Config holds the settings of a Client. It is read once by NewClient.
type Config struct {
	Token   string
	Version string
	BaseURL string
	Timeout time.Duration
	// LogBodyLimit caps the logged response body. 0 means DefaultLogBodyLimit
	// and a negative value means no limit.
	LogBodyLimit int
	// HTTPClient overrides the default client. Its Timeout is left as is.
	HTTPClient *http.Client
}

// Client is a Notion API client.
//
// It makes exactly one request per call and never retries. Responses are
// returned whatever their status code; errors are only returned when no
// response was received.
type Client struct {
	token        string
	version      string
	baseURL      string
	logBodyLimit int
	httpClient   *http.Client
}

// NewClient creates a new Notion API client.
func NewClient(cfg Config) *Client {
	c := &Client{
		token:        cfg.Token,
		version:      cfg.Version,
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		logBodyLimit: cfg.LogBodyLimit,
		httpClient:   cfg.HTTPClient,
	}
	if c.version == "" {
		c.version = APIVersion
	}
	if c.baseURL == "" {
		c.baseURL = BaseURL
	}
	if c.logBodyLimit == 0 {
		c.logBodyLimit = DefaultLogBodyLimit
	}
	if c.httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		c.httpClient = &http.Client{Timeout: timeout}
	}
	return c
}

// CreatePage creates a page under the database named in req.Parent.
func (c *Client) CreatePage(ctx context.Context, req *CreatePageRequest) (*Response, error) {
	return c.do(ctx, "create-page", http.MethodPost, "/pages", req, true)
}

// UpdatePage applies a partial property update to a page.
func (c *Client) UpdatePage(ctx context.Context, pageID string, req *UpdatePageRequest) (*Response, error) {
	return c.do(ctx, "update-page", http.MethodPatch, "/pages/"+url.PathEscape(pageID), req, true)
}

// QueryDatabase queries a database. A nil opts sends an empty object.
//
// Result sets can be large so the response body is not logged.
func (c *Client) QueryDatabase(ctx context.Context, databaseID string, opts *QueryOptions) (*Response, error) {
	if opts == nil {
		opts = &QueryOptions{}
	}
	return c.do(ctx, "query-database", http.MethodPost, "/databases/"+url.PathEscape(databaseID)+"/query", opts, false)
}

// GetPage retrieves a page by ID.
func (c *Client) GetPage(ctx context.Context, pageID string) (*Response, error) {
	return c.do(ctx, "read-page", http.MethodGet, "/pages/"+url.PathEscape(pageID), nil, true)
}

// do performs a single HTTP request.
func (c *Client) do(ctx context.Context, op, method, path string, body any, logBody bool) (*Response, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		slog.InfoContext(ctx, "Notion request", "op", op, "method", method, "path", path, "payload", string(data))
		bodyReader = bytes.NewReader(data)
	} else {
		slog.InfoContext(ctx, "Notion request", "op", op, "method", method, "path", path)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Notion-Version", c.version)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	attrs := []any{"op", op, "status", resp.StatusCode, "duration", time.Since(start).Round(time.Millisecond)}
	if logBody {
		attrs = append(attrs, "body", truncate(string(respBody), c.logBodyLimit))
	}
	slog.InfoContext(ctx, "Notion response", attrs...)
	return NewResponse(resp.StatusCode, respBody), nil
}
