// Package integration exposes external student services (course
// platform, calendar, notes) as model-callable capabilities. Which
// capabilities a request sees is decided per user: an integration
// contributes its group only when the user has a stored credential for
// it.
package integration

import (
	"context"

	"github.com/studyhallhq/studyhall/plugin/agent"
	"github.com/studyhallhq/studyhall/store"
)

// Kind identifies one supported integration.
type Kind string

const (
	// KindCanvas is the Canvas course platform.
	KindCanvas Kind = "canvas"
	// KindCalendar is Google Calendar.
	KindCalendar Kind = "calendar"
	// KindNotion is the Notion notes workspace.
	KindNotion Kind = "notion"
)

// Kinds returns all supported kinds in their fixed order. Capability
// ordering and prompt suggestion ordering both follow it.
func Kinds() []Kind {
	return []Kind{KindCanvas, KindCalendar, KindNotion}
}

// DisplayName returns the user-facing integration name.
func (k Kind) DisplayName() string {
	switch k {
	case KindCanvas:
		return "Canvas"
	case KindCalendar:
		return "Google Calendar"
	case KindNotion:
		return "Notion"
	default:
		return string(k)
	}
}

// CredentialStore is the read side of credential persistence.
type CredentialStore interface {
	GetIntegrationCredential(ctx context.Context, userID int32, kind string) (*store.IntegrationCredential, error)
}

// CapabilitySet is the request-scoped result of resolution: the
// capabilities backed by the user's connected integrations plus the
// membership needed by the prompt composer.
type CapabilitySet struct {
	registry *agent.Registry
	present  map[Kind]bool
}

func newCapabilitySet() *CapabilitySet {
	return &CapabilitySet{
		registry: agent.NewRegistry(),
		present:  make(map[Kind]bool),
	}
}

// add registers a kind's capability group. Capabilities whose name is
// already taken are skipped so a name always maps to one operation.
func (s *CapabilitySet) add(kind Kind, caps []agent.Capability) {
	s.present[kind] = true
	for _, c := range caps {
		_ = s.registry.Register(c)
	}
}

// Has reports whether the kind contributed capabilities.
func (s *CapabilitySet) Has(kind Kind) bool {
	return s.present[kind]
}

// Empty reports whether no integration contributed anything.
func (s *CapabilitySet) Empty() bool {
	return s.registry.Len() == 0
}

// Connected returns the present kinds in fixed order.
func (s *CapabilitySet) Connected() []Kind {
	var out []Kind
	for _, k := range Kinds() {
		if s.present[k] {
			out = append(out, k)
		}
	}
	return out
}

// Missing returns the absent kinds in fixed order.
func (s *CapabilitySet) Missing() []Kind {
	var out []Kind
	for _, k := range Kinds() {
		if !s.present[k] {
			out = append(out, k)
		}
	}
	return out
}

// Registry returns the dispatch table for the agent loop.
func (s *CapabilitySet) Registry() *agent.Registry {
	return s.registry
}

// Capabilities returns the resolved capabilities in order.
func (s *CapabilitySet) Capabilities() []agent.Capability {
	return s.registry.All()
}
