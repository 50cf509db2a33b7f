package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/comigor/bertbot/internal/config"
)

const (
	notionBaseURL    = "https://api.notion.com/v1"
	notionAPIVersion = "2022-06-28"
)

// NotionClient is a thin client for the Notion REST API.
type NotionClient struct {
	cfg     config.NotionConfig
	baseURL string
	client  *http.Client
}

// NewNotionClient creates a new NotionClient.
func NewNotionClient(cfg config.NotionConfig) *NotionClient {
	return &NotionClient{
		cfg:     cfg,
		baseURL: notionBaseURL,
		client:  &http.Client{},
	}
}

// do performs an authenticated request and decodes the JSON response.
func (c *NotionClient) do(ctx context.Context, method, path string, payload any) (map[string]any, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		body = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.cfg.APIKey))
	req.Header.Set("Notion-Version", notionAPIVersion)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var decoded map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("notion API error (%d): %v", resp.StatusCode, decoded["message"])
	}
	return decoded, nil
}

// Search queries the workspace.
func (c *NotionClient) Search(ctx context.Context, query string, pageSize int) (map[string]any, error) {
	return c.do(ctx, http.MethodPost, "/search", map[string]any{
		"query":     query,
		"page_size": pageSize,
	})
}

// GetPage retrieves a page by id.
func (c *NotionClient) GetPage(ctx context.Context, pageID string) (map[string]any, error) {
	return c.do(ctx, http.MethodGet, "/pages/"+pageID, nil)
}

// CreatePage creates a page under the given parent.
func (c *NotionClient) CreatePage(ctx context.Context, parent, properties map[string]any) (map[string]any, error) {
	return c.do(ctx, http.MethodPost, "/pages", map[string]any{
		"parent":     parent,
		"properties": properties,
	})
}

// AppendBlock appends child blocks to a block.
func (c *NotionClient) AppendBlock(ctx context.Context, blockID string, children []any) (map[string]any, error) {
	return c.do(ctx, http.MethodPatch, "/blocks/"+blockID+"/children", map[string]any{
		"children": children,
	})
}

// UpdatePage updates page properties.
func (c *NotionClient) UpdatePage(ctx context.Context, pageID string, properties map[string]any) (map[string]any, error) {
	return c.do(ctx, http.MethodPatch, "/pages/"+pageID, map[string]any{
		"properties": properties,
	})
}

// QueryDatabase queries a database.
func (c *NotionClient) QueryDatabase(ctx context.Context, databaseID string, filter map[string]any, pageSize int) (map[string]any, error) {
	payload := map[string]any{"page_size": pageSize}
	if filter != nil {
		payload["filter"] = filter
	}
	return c.do(ctx, http.MethodPost, "/databases/"+databaseID+"/query", payload)
}
