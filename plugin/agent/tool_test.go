package agent

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegistryPreservesRegistrationOrder(t *testing.T) {
	registry := NewRegistry()
	names := []string{"get_current_courses", "list_upcoming_events", "search_notes"}
	for _, name := range names {
		require.NoError(t, registry.Register(echoCapability(name)))
	}

	require.Equal(t, names, registry.Names())
	require.Equal(t, len(names), registry.Len())

	defs := registry.Definitions()
	require.Len(t, defs, len(names))
	for i, def := range defs {
		require.Equal(t, names[i], def.Name)
	}
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, registry.Register(echoCapability("search_notes")))

	err := registry.Register(echoCapability("search_notes"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "already registered")

	// The original binding still dispatches.
	cap, ok := registry.Lookup("search_notes")
	require.True(t, ok)
	result, err := cap.Invoke(context.Background(), json.RawMessage(`{"q":"biology"}`))
	require.NoError(t, err)
	require.Equal(t, `{"q":"biology"}`, result)
}

func TestRegistryRejectsEmptyName(t *testing.T) {
	registry := NewRegistry()
	require.Error(t, registry.Register(echoCapability("")))
}

func TestObjectParams(t *testing.T) {
	schema := ObjectParams(map[string]any{
		"query": map[string]any{"type": "string"},
	}, "query")

	require.Equal(t, "object", schema["type"])
	require.Equal(t, []string{"query"}, schema["required"])

	// Schemas must serialize; the provider sends them verbatim.
	_, err := json.Marshal(schema)
	require.NoError(t, err)
}
