package prompt

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/studyhallhq/studyhall/internal/lru"
	"github.com/studyhallhq/studyhall/server/integration"
	"github.com/studyhallhq/studyhall/store"
)

// stubCredentials serves fixed credentials for a set of kinds.
type stubCredentials struct {
	kinds map[string]bool
}

func (s *stubCredentials) GetIntegrationCredential(_ context.Context, userID int32, kind string) (*store.IntegrationCredential, error) {
	if !s.kinds[kind] {
		return nil, nil
	}
	return &store.IntegrationCredential{
		UserID:      userID,
		Kind:        kind,
		AccessToken: "token-" + kind,
	}, nil
}

func resolveSet(t *testing.T, kinds ...integration.Kind) *integration.CapabilitySet {
	t.Helper()
	present := make(map[string]bool, len(kinds))
	for _, k := range kinds {
		present[string(k)] = true
	}
	registry := integration.NewRegistry(
		&stubCredentials{kinds: present},
		&integration.DefaultClientFactory{},
		lru.New[any](8, time.Minute),
	)
	set, err := registry.Resolve(context.Background(), 1)
	require.NoError(t, err)
	return set
}

func kindsOf(segments []Segment) []SegmentKind {
	out := make([]SegmentKind, 0, len(segments))
	for _, s := range segments {
		out = append(out, s.Kind)
	}
	return out
}

func TestComposeNothingConnected(t *testing.T) {
	composer := NewComposer(DefaultTemplates())
	stack := composer.Compose(resolveSet(t))

	require.Equal(t, []SegmentKind{
		SegmentConstraints,
		SegmentFallback,
		SegmentSuggestion,
		SegmentSuggestion,
		SegmentSuggestion,
	}, kindsOf(stack.Segments()))

	// Suggestions cover every missing integration in fixed order.
	segments := stack.Segments()
	require.Equal(t, integration.KindCanvas, segments[2].Integration)
	require.Equal(t, integration.KindCalendar, segments[3].Integration)
	require.Equal(t, integration.KindNotion, segments[4].Integration)
}

func TestComposeEverythingConnected(t *testing.T) {
	composer := NewComposer(DefaultTemplates())
	stack := composer.Compose(resolveSet(t,
		integration.KindCanvas, integration.KindCalendar, integration.KindNotion))

	require.Equal(t, []SegmentKind{
		SegmentConstraints,
		SegmentCapabilities,
	}, kindsOf(stack.Segments()))

	rendered := stack.String()
	require.NotContains(t, rendered, DefaultTemplates().fallback)
	require.Contains(t, rendered, "get_current_courses")
	require.Contains(t, rendered, "list_upcoming_events")
	require.Contains(t, rendered, "search_notes")
}

func TestComposePartiallyConnected(t *testing.T) {
	composer := NewComposer(DefaultTemplates())
	stack := composer.Compose(resolveSet(t, integration.KindCalendar))

	segments := stack.Segments()
	require.Equal(t, []SegmentKind{
		SegmentConstraints,
		SegmentCapabilities,
		SegmentSuggestion,
		SegmentSuggestion,
	}, kindsOf(segments))

	// Suggestions name exactly the missing integrations, in fixed
	// order, regardless of which ones are present.
	require.Equal(t, integration.KindCanvas, segments[2].Integration)
	require.Equal(t, integration.KindNotion, segments[3].Integration)

	rendered := stack.String()
	require.Contains(t, rendered, "Google Calendar")
	require.Contains(t, rendered, "create_calendar_event")
	require.NotContains(t, rendered, "get_current_courses")
}

func TestComposeConstraintsAlwaysFirst(t *testing.T) {
	composer := NewComposer(DefaultTemplates())

	combinations := [][]integration.Kind{
		{},
		{integration.KindCanvas},
		{integration.KindNotion},
		{integration.KindCanvas, integration.KindCalendar},
		{integration.KindCanvas, integration.KindCalendar, integration.KindNotion},
	}
	for _, kinds := range combinations {
		stack := composer.Compose(resolveSet(t, kinds...))
		segments := stack.Segments()
		require.Equal(t, SegmentConstraints, segments[0].Kind)
		require.True(t, strings.HasPrefix(stack.String(), DefaultTemplates().constraints))
	}
}

func TestComposeIsDeterministic(t *testing.T) {
	composer := NewComposer(DefaultTemplates())
	set := resolveSet(t, integration.KindCanvas)

	first := composer.Compose(set).String()
	second := composer.Compose(set).String()
	require.Equal(t, first, second)
}

func TestStackRenderingJoinsSegments(t *testing.T) {
	composer := NewComposer(DefaultTemplates())
	stack := composer.Compose(resolveSet(t))

	rendered := stack.String()
	for _, seg := range stack.Segments() {
		require.Contains(t, rendered, seg.Text)
	}
}
