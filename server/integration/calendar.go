package integration

import (
	"context"
	"encoding/json"

	"github.com/studyhallhq/studyhall/plugin/agent"
)

// CalendarEvent is one event on the student's calendar.
type CalendarEvent struct {
	ID       string `json:"id"`
	Summary  string `json:"summary"`
	Start    string `json:"start"`
	End      string `json:"end"`
	Location string `json:"location,omitempty"`
	Link     string `json:"link,omitempty"`
}

// FreeSlot is an open window between events.
type FreeSlot struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// CalendarClient reads and writes the student's calendar.
type CalendarClient interface {
	// UpcomingEvents lists events within the next daysAhead days.
	UpcomingEvents(ctx context.Context, daysAhead, limit int) ([]CalendarEvent, error)
	// EventsForDate lists events on one day. date is YYYY-MM-DD.
	EventsForDate(ctx context.Context, date string) ([]CalendarEvent, error)
	// CreateEvent adds an event. start and end are RFC 3339.
	CreateEvent(ctx context.Context, summary, start, end, description string) (*CalendarEvent, error)
	// FreeSlots finds open windows of at least minMinutes on one day.
	FreeSlots(ctx context.Context, date string, minMinutes int) ([]FreeSlot, error)
}

// CalendarCapabilities exposes the calendar as model-callable
// operations.
func CalendarCapabilities(client CalendarClient) []agent.Capability {
	return []agent.Capability{
		agent.NewCapability(
			"list_upcoming_events",
			"List the student's upcoming calendar events. Use this when the student asks what is on their schedule or what is coming up.",
			agent.ObjectParams(map[string]any{
				"days_ahead": map[string]any{
					"type":        "integer",
					"description": "How many days ahead to look. Defaults to 7.",
				},
				"limit": map[string]any{
					"type":        "integer",
					"description": "Maximum events to return. Defaults to 10.",
				},
			}),
			func(ctx context.Context, args json.RawMessage) (string, error) {
				var in struct {
					DaysAhead int `json:"days_ahead"`
					Limit     int `json:"limit"`
				}
				if err := unmarshalArgs(args, &in); err != nil {
					return "", err
				}
				if in.DaysAhead <= 0 {
					in.DaysAhead = 7
				}
				if in.Limit <= 0 {
					in.Limit = 10
				}
				events, err := client.UpcomingEvents(ctx, in.DaysAhead, in.Limit)
				if err != nil {
					return "", err
				}
				return marshalResult(events)
			},
		),
		agent.NewCapability(
			"get_events_for_date",
			"Get the student's calendar events on a specific day. Use this when the student asks about their schedule for a particular date.",
			agent.ObjectParams(map[string]any{
				"date": map[string]any{
					"type":        "string",
					"description": "The day to look up, formatted YYYY-MM-DD.",
				},
			}, "date"),
			func(ctx context.Context, args json.RawMessage) (string, error) {
				var in struct {
					Date string `json:"date"`
				}
				if err := unmarshalArgs(args, &in); err != nil {
					return "", err
				}
				events, err := client.EventsForDate(ctx, in.Date)
				if err != nil {
					return "", err
				}
				return marshalResult(events)
			},
		),
		agent.NewCapability(
			"create_calendar_event",
			"Create an event on the student's calendar. Use this when the student asks to schedule study time, block time for an assignment, or add something to their calendar.",
			agent.ObjectParams(map[string]any{
				"summary": map[string]any{
					"type":        "string",
					"description": "Short event title.",
				},
				"start": map[string]any{
					"type":        "string",
					"description": "Event start in RFC 3339, e.g. 2026-09-01T14:00:00-05:00.",
				},
				"end": map[string]any{
					"type":        "string",
					"description": "Event end in RFC 3339.",
				},
				"description": map[string]any{
					"type":        "string",
					"description": "Optional longer description.",
				},
			}, "summary", "start", "end"),
			func(ctx context.Context, args json.RawMessage) (string, error) {
				var in struct {
					Summary     string `json:"summary"`
					Start       string `json:"start"`
					End         string `json:"end"`
					Description string `json:"description"`
				}
				if err := unmarshalArgs(args, &in); err != nil {
					return "", err
				}
				event, err := client.CreateEvent(ctx, in.Summary, in.Start, in.End, in.Description)
				if err != nil {
					return "", err
				}
				return marshalResult(event)
			},
		),
		agent.NewCapability(
			"check_availability",
			"Find free time windows on the student's calendar for a given day. Use this before proposing study sessions so they do not collide with existing events.",
			agent.ObjectParams(map[string]any{
				"date": map[string]any{
					"type":        "string",
					"description": "The day to check, formatted YYYY-MM-DD.",
				},
				"min_minutes": map[string]any{
					"type":        "integer",
					"description": "Smallest useful window in minutes. Defaults to 30.",
				},
			}, "date"),
			func(ctx context.Context, args json.RawMessage) (string, error) {
				var in struct {
					Date       string `json:"date"`
					MinMinutes int    `json:"min_minutes"`
				}
				if err := unmarshalArgs(args, &in); err != nil {
					return "", err
				}
				if in.MinMinutes <= 0 {
					in.MinMinutes = 30
				}
				slots, err := client.FreeSlots(ctx, in.Date, in.MinMinutes)
				if err != nil {
					return "", err
				}
				return marshalResult(slots)
			},
		),
	}
}
