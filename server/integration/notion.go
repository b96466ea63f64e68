package integration

import (
	"context"
	"encoding/json"

	"github.com/studyhallhq/studyhall/plugin/agent"
)

// NotePage is one page in the student's notes workspace.
type NotePage struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	URL     string `json:"url,omitempty"`
	Snippet string `json:"snippet,omitempty"`
}

// NotesClient reads and writes the student's notes workspace.
type NotesClient interface {
	SearchNotes(ctx context.Context, query string, limit int) ([]NotePage, error)
	CreatePage(ctx context.Context, title, content string) (*NotePage, error)
	// CreateStudyPlan creates a structured study plan page with one
	// section per entry.
	CreateStudyPlan(ctx context.Context, title string, sections []StudyPlanSection) (*NotePage, error)
}

// StudyPlanSection is one block of a study plan page.
type StudyPlanSection struct {
	Heading string   `json:"heading"`
	Items   []string `json:"items"`
}

// NotesCapabilities exposes the notes workspace as model-callable
// operations.
func NotesCapabilities(client NotesClient) []agent.Capability {
	return []agent.Capability{
		agent.NewCapability(
			"search_notes",
			"Search the student's notes. Use this when the student asks what they wrote about a topic or wants to find an existing page.",
			agent.ObjectParams(map[string]any{
				"query": map[string]any{
					"type":        "string",
					"description": "Search terms.",
				},
				"limit": map[string]any{
					"type":        "integer",
					"description": "Maximum pages to return. Defaults to 5.",
				},
			}, "query"),
			func(ctx context.Context, args json.RawMessage) (string, error) {
				var in struct {
					Query string `json:"query"`
					Limit int    `json:"limit"`
				}
				if err := unmarshalArgs(args, &in); err != nil {
					return "", err
				}
				if in.Limit <= 0 {
					in.Limit = 5
				}
				pages, err := client.SearchNotes(ctx, in.Query, in.Limit)
				if err != nil {
					return "", err
				}
				return marshalResult(pages)
			},
		),
		agent.NewCapability(
			"create_note_page",
			"Create a new page in the student's notes. Use this when the student asks to save something, write a summary down, or start notes for a topic.",
			agent.ObjectParams(map[string]any{
				"title": map[string]any{
					"type":        "string",
					"description": "Page title.",
				},
				"content": map[string]any{
					"type":        "string",
					"description": "Page body as plain text. Paragraphs are separated by blank lines.",
				},
			}, "title", "content"),
			func(ctx context.Context, args json.RawMessage) (string, error) {
				var in struct {
					Title   string `json:"title"`
					Content string `json:"content"`
				}
				if err := unmarshalArgs(args, &in); err != nil {
					return "", err
				}
				page, err := client.CreatePage(ctx, in.Title, in.Content)
				if err != nil {
					return "", err
				}
				return marshalResult(page)
			},
		),
		agent.NewCapability(
			"create_study_plan_page",
			"Create a structured study plan page with sections and checklist items. Use this when the student asks for a study plan or exam prep schedule they can keep.",
			agent.ObjectParams(map[string]any{
				"title": map[string]any{
					"type":        "string",
					"description": "Plan title, e.g. 'Biology Midterm Study Plan'.",
				},
				"sections": map[string]any{
					"type":        "array",
					"description": "Plan sections in order.",
					"items": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"heading": map[string]any{
								"type":        "string",
								"description": "Section heading, e.g. a day or a topic.",
							},
							"items": map[string]any{
								"type":        "array",
								"description": "Checklist items for the section.",
								"items":       map[string]any{"type": "string"},
							},
						},
						"required": []string{"heading", "items"},
					},
				},
			}, "title", "sections"),
			func(ctx context.Context, args json.RawMessage) (string, error) {
				var in struct {
					Title    string             `json:"title"`
					Sections []StudyPlanSection `json:"sections"`
				}
				if err := unmarshalArgs(args, &in); err != nil {
					return "", err
				}
				page, err := client.CreateStudyPlan(ctx, in.Title, in.Sections)
				if err != nil {
					return "", err
				}
				return marshalResult(page)
			},
		),
	}
}
