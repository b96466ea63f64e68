package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	notionBaseURL    = "https://api.notion.com/v1"
	notionAPIVersion = "2022-06-28"
)

// notionClient talks to the Notion REST API with an integration token.
type notionClient struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewNotionClient creates a NotesClient over the Notion API.
func NewNotionClient(token string) NotesClient {
	return &notionClient{
		baseURL: notionBaseURL,
		token:   token,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *notionClient) post(ctx context.Context, path string, body, out any) error {
	buf, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(buf))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Notion-Version", notionAPIVersion)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("notion request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("notion returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

type notionPage struct {
	ID         string `json:"id"`
	URL        string `json:"url"`
	Properties map[string]struct {
		Title []struct {
			PlainText string `json:"plain_text"`
		} `json:"title"`
	} `json:"properties"`
}

func (p notionPage) title() string {
	for _, prop := range p.Properties {
		if len(prop.Title) > 0 {
			var parts []string
			for _, t := range prop.Title {
				parts = append(parts, t.PlainText)
			}
			return strings.Join(parts, "")
		}
	}
	return ""
}

func (c *notionClient) SearchNotes(ctx context.Context, query string, limit int) ([]NotePage, error) {
	body := map[string]any{
		"query":     query,
		"page_size": limit,
		"filter":    map[string]string{"property": "object", "value": "page"},
	}
	var raw struct {
		Results []notionPage `json:"results"`
	}
	if err := c.post(ctx, "/search", body, &raw); err != nil {
		return nil, err
	}

	pages := make([]NotePage, 0, len(raw.Results))
	for _, r := range raw.Results {
		pages = append(pages, NotePage{ID: r.ID, Title: r.title(), URL: r.URL})
	}
	return pages, nil
}

// richText builds a Notion rich text array for plain content.
func richText(content string) []map[string]any {
	return []map[string]any{
		{"type": "text", "text": map[string]string{"content": content}},
	}
}

func paragraphBlock(content string) map[string]any {
	return map[string]any{
		"object":    "block",
		"type":      "paragraph",
		"paragraph": map[string]any{"rich_text": richText(content)},
	}
}

func headingBlock(content string) map[string]any {
	return map[string]any{
		"object":    "block",
		"type":      "heading_2",
		"heading_2": map[string]any{"rich_text": richText(content)},
	}
}

func todoBlock(content string) map[string]any {
	return map[string]any{
		"object": "block",
		"type":   "to_do",
		"to_do":  map[string]any{"rich_text": richText(content), "checked": false},
	}
}

func (c *notionClient) createPage(ctx context.Context, title string, children []map[string]any) (*NotePage, error) {
	body := map[string]any{
		// Workspace-level page; the integration must be shared with it.
		"parent": map[string]any{"workspace": true},
		"properties": map[string]any{
			"title": map[string]any{"title": richText(title)},
		},
		"children": children,
	}
	var raw notionPage
	if err := c.post(ctx, "/pages", body, &raw); err != nil {
		return nil, err
	}
	return &NotePage{ID: raw.ID, Title: title, URL: raw.URL}, nil
}

func (c *notionClient) CreatePage(ctx context.Context, title, content string) (*NotePage, error) {
	var children []map[string]any
	for _, paragraph := range strings.Split(content, "\n\n") {
		paragraph = strings.TrimSpace(paragraph)
		if paragraph != "" {
			children = append(children, paragraphBlock(paragraph))
		}
	}
	return c.createPage(ctx, title, children)
}

func (c *notionClient) CreateStudyPlan(ctx context.Context, title string, sections []StudyPlanSection) (*NotePage, error) {
	var children []map[string]any
	for _, section := range sections {
		children = append(children, headingBlock(section.Heading))
		for _, item := range section.Items {
			children = append(children, todoBlock(item))
		}
	}
	return c.createPage(ctx, title, children)
}
