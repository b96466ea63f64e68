package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

const googleCalendarBaseURL = "https://www.googleapis.com/calendar/v3"

// googleCalendarClient talks to the Google Calendar REST API. Token
// refresh is handled by the oauth2 token source, so an expired access
// token is renewed transparently when a refresh token exists.
type googleCalendarClient struct {
	baseURL string
	source  oauth2.TokenSource
	http    *http.Client
}

// NewGoogleCalendarClient creates a CalendarClient over the primary
// calendar of the token's account.
func NewGoogleCalendarClient(source oauth2.TokenSource) CalendarClient {
	return &googleCalendarClient{
		baseURL: googleCalendarBaseURL,
		source:  source,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *googleCalendarClient) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	token, err := c.source.Token()
	if err != nil {
		return fmt.Errorf("calendar token unavailable: %w", err)
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return err
	}
	token.SetAuthHeader(req)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("calendar request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("calendar returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

type googleEvent struct {
	ID      string `json:"id"`
	Summary string `json:"summary"`
	Start   struct {
		DateTime string `json:"dateTime"`
		Date     string `json:"date"`
	} `json:"start"`
	End struct {
		DateTime string `json:"dateTime"`
		Date     string `json:"date"`
	} `json:"end"`
	Location string `json:"location"`
	HTMLLink string `json:"htmlLink"`
}

func (e googleEvent) toEvent() CalendarEvent {
	start := e.Start.DateTime
	if start == "" {
		start = e.Start.Date
	}
	end := e.End.DateTime
	if end == "" {
		end = e.End.Date
	}
	return CalendarEvent{
		ID:       e.ID,
		Summary:  e.Summary,
		Start:    start,
		End:      end,
		Location: e.Location,
		Link:     e.HTMLLink,
	}
}

func (c *googleCalendarClient) listEvents(ctx context.Context, timeMin, timeMax time.Time, limit int) ([]CalendarEvent, error) {
	var raw struct {
		Items []googleEvent `json:"items"`
	}
	query := url.Values{
		"timeMin":      {timeMin.Format(time.RFC3339)},
		"timeMax":      {timeMax.Format(time.RFC3339)},
		"singleEvents": {"true"},
		"orderBy":      {"startTime"},
		"maxResults":   {fmt.Sprintf("%d", limit)},
	}
	if err := c.do(ctx, http.MethodGet, "/calendars/primary/events", query, nil, &raw); err != nil {
		return nil, err
	}

	events := make([]CalendarEvent, 0, len(raw.Items))
	for _, item := range raw.Items {
		events = append(events, item.toEvent())
	}
	return events, nil
}

func (c *googleCalendarClient) UpcomingEvents(ctx context.Context, daysAhead, limit int) ([]CalendarEvent, error) {
	now := time.Now()
	return c.listEvents(ctx, now, now.AddDate(0, 0, daysAhead), limit)
}

func (c *googleCalendarClient) EventsForDate(ctx context.Context, date string) ([]CalendarEvent, error) {
	day, err := time.ParseInLocation("2006-01-02", date, time.Local)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", date)
	}
	return c.listEvents(ctx, day, day.AddDate(0, 0, 1), 50)
}

func (c *googleCalendarClient) CreateEvent(ctx context.Context, summary, start, end, description string) (*CalendarEvent, error) {
	body := map[string]any{
		"summary":     summary,
		"description": description,
		"start":       map[string]string{"dateTime": start},
		"end":         map[string]string{"dateTime": end},
	}
	var raw googleEvent
	if err := c.do(ctx, http.MethodPost, "/calendars/primary/events", nil, body, &raw); err != nil {
		return nil, err
	}
	event := raw.toEvent()
	return &event, nil
}

// dayWindow bounds free-slot search to waking hours.
const (
	dayWindowStartHour = 8
	dayWindowEndHour   = 22
)

func (c *googleCalendarClient) FreeSlots(ctx context.Context, date string, minMinutes int) ([]FreeSlot, error) {
	events, err := c.EventsForDate(ctx, date)
	if err != nil {
		return nil, err
	}

	day, err := time.ParseInLocation("2006-01-02", date, time.Local)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", date)
	}
	windowStart := day.Add(dayWindowStartHour * time.Hour)
	windowEnd := day.Add(dayWindowEndHour * time.Hour)

	type span struct{ start, end time.Time }
	var busy []span
	for _, e := range events {
		start, err1 := time.Parse(time.RFC3339, e.Start)
		end, err2 := time.Parse(time.RFC3339, e.End)
		if err1 != nil || err2 != nil {
			// All-day events block the whole window.
			busy = append(busy, span{windowStart, windowEnd})
			continue
		}
		busy = append(busy, span{start, end})
	}
	sort.Slice(busy, func(i, j int) bool { return busy[i].start.Before(busy[j].start) })

	minDur := time.Duration(minMinutes) * time.Minute
	var slots []FreeSlot
	cursor := windowStart
	for _, b := range busy {
		if b.start.After(cursor) && b.start.Sub(cursor) >= minDur {
			slots = append(slots, FreeSlot{
				Start: cursor.Format(time.RFC3339),
				End:   b.start.Format(time.RFC3339),
			})
		}
		if b.end.After(cursor) {
			cursor = b.end
		}
	}
	if windowEnd.After(cursor) && windowEnd.Sub(cursor) >= minDur {
		slots = append(slots, FreeSlot{
			Start: cursor.Format(time.RFC3339),
			End:   windowEnd.Format(time.RFC3339),
		})
	}
	return slots, nil
}
