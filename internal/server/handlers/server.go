// Package handlers implements the relay's HTTP request handlers.
package handlers

import (
	"context"

	"github.com/notionrelay/notionrelay/internal/notion"
)

// NotionAPI is the subset of the Notion client the handlers call.
type NotionAPI interface {
	CreatePage(ctx context.Context, req *notion.CreatePageRequest) (*notion.Response, error)
	UpdatePage(ctx context.Context, pageID string, req *notion.UpdatePageRequest) (*notion.Response, error)
	QueryDatabase(ctx context.Context, databaseID string, opts *notion.QueryOptions) (*notion.Response, error)
	GetPage(ctx context.Context, pageID string) (*notion.Response, error)
}

// Services holds the dependencies shared by the handlers.
type Services struct {
	Notion NotionAPI
}

// Config holds handler configuration.
type Config struct {
	Version             string
	StrictOrder         bool  // reject an unparsable Order instead of dropping it
	MaxRequestBodyBytes int64 // 0 disables the limit
}
