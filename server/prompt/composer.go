package prompt

import (
	"fmt"
	"strings"

	"github.com/studyhallhq/studyhall/server/integration"
)

// SegmentKind tags the role of one prompt segment.
type SegmentKind string

const (
	// SegmentConstraints is the behavioral constraints layer. Always
	// present and always first.
	SegmentConstraints SegmentKind = "constraints"
	// SegmentCapabilities describes how to use the connected tools.
	SegmentCapabilities SegmentKind = "capabilities"
	// SegmentFallback replaces SegmentCapabilities when nothing is
	// connected.
	SegmentFallback SegmentKind = "fallback"
	// SegmentSuggestion nudges toward connecting one missing
	// integration.
	SegmentSuggestion SegmentKind = "suggestion"
)

// Segment is one layer of the composed prompt.
type Segment struct {
	Kind SegmentKind
	// Integration is set on suggestion segments.
	Integration integration.Kind
	Text        string
}

// Stack is an ordered, immutable prompt composition.
type Stack struct {
	segments []Segment
}

// Segments returns the layers in order.
func (s *Stack) Segments() []Segment {
	out := make([]Segment, len(s.segments))
	copy(out, s.segments)
	return out
}

// String renders the prompt handed to the model.
func (s *Stack) String() string {
	parts := make([]string, 0, len(s.segments))
	for _, seg := range s.segments {
		parts = append(parts, seg.Text)
	}
	return strings.Join(parts, "\n\n")
}

// Composer builds prompt stacks from capability sets. It holds only
// the immutable template set, so one composer serves all requests.
type Composer struct {
	templates Templates
}

// NewComposer creates a composer over the given templates.
func NewComposer(templates Templates) *Composer {
	return &Composer{templates: templates}
}

// Compose builds the prompt stack for one request. The result is a
// pure function of the set's membership: constraints first, then
// either the capability usage layer (when anything is connected) or
// the fallback layer, then one suggestion per missing integration in
// fixed order.
func (c *Composer) Compose(set *integration.CapabilitySet) *Stack {
	stack := &Stack{}
	stack.segments = append(stack.segments, Segment{
		Kind: SegmentConstraints,
		Text: c.templates.constraints,
	})

	if !set.Empty() {
		stack.segments = append(stack.segments, Segment{
			Kind: SegmentCapabilities,
			Text: c.templates.capabilityUsage + "\n\n" + capabilityCatalog(set),
		})
	} else {
		stack.segments = append(stack.segments, Segment{
			Kind: SegmentFallback,
			Text: c.templates.fallback,
		})
	}

	for _, kind := range set.Missing() {
		text, ok := c.templates.suggestions[kind]
		if !ok {
			continue
		}
		stack.segments = append(stack.segments, Segment{
			Kind:        SegmentSuggestion,
			Integration: kind,
			Text:        text,
		})
	}

	return stack
}

// capabilityCatalog enumerates the connected integrations and their
// operations so the model knows what it can reach.
func capabilityCatalog(set *integration.CapabilitySet) string {
	var b strings.Builder
	b.WriteString("Connected services:")
	for _, kind := range set.Connected() {
		b.WriteString(fmt.Sprintf("\n- %s", kind.DisplayName()))
	}
	b.WriteString("\n\nAvailable tools:")
	for _, cap := range set.Capabilities() {
		b.WriteString(fmt.Sprintf("\n- %s: %s", cap.Name(), cap.Description()))
	}
	return b.String()
}
