package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/comigor/bertbot/internal/config"
)

const notionMaxPageSize = 20

// NotionTool exposes the Notion knowledge base to the model. It is
// registered only when an API key is configured.
type NotionTool struct {
	cfg    config.NotionConfig
	client *NotionClient
}

type notionInput struct {
	Action     string         `json:"action"`
	Query      string         `json:"query"`
	PageID     string         `json:"pageId"`
	BlockID    string         `json:"blockId"`
	DatabaseID string         `json:"databaseId"`
	ParentID   string         `json:"parentId"`
	Title      string         `json:"title"`
	Properties map[string]any `json:"properties"`
	Children   []any          `json:"children"`
	Filter     map[string]any `json:"filter"`
	PageSize   int            `json:"pageSize"`
}

// NewNotionTool creates a new NotionTool.
func NewNotionTool(cfg config.NotionConfig) *NotionTool {
	return &NotionTool{cfg: cfg, client: NewNotionClient(cfg)}
}

// Name returns the name of the tool.
func (t *NotionTool) Name() string { return "notion" }

// Description returns the description surfaced to the model.
func (t *NotionTool) Description() string {
	return "Search, read and write Notion pages and databases. Input is JSON with an 'action' of search|getPage|createPage|appendBlock|updatePage|queryDatabase."
}

// Run dispatches the requested Notion action.
func (t *NotionTool) Run(input string) (string, error) {
	var payload notionInput
	if err := json.Unmarshal([]byte(input), &payload); err != nil {
		return "", errors.New("invalid JSON for notion tool")
	}
	if payload.Action == "" {
		return "", errors.New("missing action for notion tool")
	}

	ctx := context.Background()
	pageSize := payload.PageSize
	if pageSize <= 0 {
		pageSize = 10
	}
	if pageSize > notionMaxPageSize {
		pageSize = notionMaxPageSize
	}

	var result map[string]any
	var err error
	switch payload.Action {
	case "search":
		result, err = t.client.Search(ctx, payload.Query, pageSize)
	case "getPage":
		if payload.PageID == "" {
			return "", errors.New("missing pageId")
		}
		result, err = t.client.GetPage(ctx, payload.PageID)
	case "createPage":
		parent := t.buildParent(payload)
		if parent == nil {
			return "", errors.New("missing parent for createPage")
		}
		props := payload.Properties
		if props == nil {
			props = map[string]any{}
		}
		if _, ok := props["title"]; !ok && payload.Title != "" {
			props["title"] = map[string]any{
				"title": []any{map[string]any{"text": map[string]any{"content": payload.Title}}},
			}
		}
		result, err = t.client.CreatePage(ctx, parent, props)
	case "appendBlock":
		blockID := payload.BlockID
		if blockID == "" {
			blockID = payload.PageID
		}
		if blockID == "" {
			return "", errors.New("missing blockId")
		}
		result, err = t.client.AppendBlock(ctx, blockID, payload.Children)
	case "updatePage":
		if payload.PageID == "" {
			return "", errors.New("missing pageId")
		}
		if payload.Properties == nil {
			return "", errors.New("missing properties")
		}
		result, err = t.client.UpdatePage(ctx, payload.PageID, payload.Properties)
	case "queryDatabase":
		databaseID := payload.DatabaseID
		if databaseID == "" {
			databaseID = t.cfg.DatabaseID
		}
		if databaseID == "" {
			return "", errors.New("missing databaseId")
		}
		result, err = t.client.QueryDatabase(ctx, databaseID, payload.Filter, pageSize)
	default:
		return "", fmt.Errorf("unknown notion action: %s", payload.Action)
	}
	if err != nil {
		return "", err
	}

	b, err := json.Marshal(result)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (t *NotionTool) buildParent(payload notionInput) map[string]any {
	if payload.DatabaseID != "" {
		return map[string]any{"database_id": payload.DatabaseID}
	}
	if t.cfg.DatabaseID != "" {
		return map[string]any{"database_id": t.cfg.DatabaseID}
	}
	if payload.ParentID != "" {
		return map[string]any{"page_id": payload.ParentID}
	}
	if t.cfg.DefaultParentID != "" {
		return map[string]any{"page_id": t.cfg.DefaultParentID}
	}
	return nil
}
