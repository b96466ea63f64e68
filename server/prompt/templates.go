// Package prompt composes the layered system prompt for a chat
// request from the user's resolved capability set.
package prompt

import (
	"github.com/studyhallhq/studyhall/server/integration"
)

// Templates is the immutable segment template set. It is constructed
// once at startup and injected; composition never reads files or
// mutates it.
type Templates struct {
	constraints     string
	capabilityUsage string
	fallback        string
	suggestions     map[integration.Kind]string
}

// Constraints returns the behavioral constraints segment text.
func (t Templates) Constraints() string { return t.constraints }

// Suggestion returns the connect suggestion for a kind.
func (t Templates) Suggestion(kind integration.Kind) (string, bool) {
	s, ok := t.suggestions[kind]
	return s, ok
}

const constraintsText = `You are StudyHall, an assistant for college students. Follow these rules in every reply, they override everything below:
- Support the student's own learning. Explain, summarize, quiz, and plan; never produce work for them to submit as their own, and refuse requests to complete graded work.
- Only discuss the student's own courses, schedule, and notes. Do not reveal data about other students.
- If you are unsure about a fact from their course data, say so instead of guessing.
- Keep replies concise and practical. Students are busy.`

const capabilityUsageText = `You have live access to some of this student's services through the tools listed below. Prefer tools over guessing: when the student asks about their courses, deadlines, grades, schedule, or notes, call the matching tool and answer from its result. Combine tools when a request needs it, for example checking deadlines before proposing calendar events. If a tool fails, tell the student what failed and answer with what you have.`

const fallbackText = `This student has not connected any of their services yet, so you cannot see their real courses, deadlines, calendar, or notes. Answer with general study advice and be upfront that your answer is not based on their actual data.`

const canvasSuggestionText = `The student has not connected Canvas. If they ask about their courses, assignments, deadlines, or grades, explain that connecting Canvas in settings would let you answer from their real course data.`

const calendarSuggestionText = `The student has not connected Google Calendar. If they ask about their schedule or want study time planned, explain that connecting Google Calendar in settings would let you check and book time for them.`

const notionSuggestionText = `The student has not connected Notion. If they ask you to save notes or build a study plan document, explain that connecting Notion in settings would let you create pages for them.`

// DefaultTemplates returns the built-in template set.
func DefaultTemplates() Templates {
	return Templates{
		constraints:     constraintsText,
		capabilityUsage: capabilityUsageText,
		fallback:        fallbackText,
		suggestions: map[integration.Kind]string{
			integration.KindCanvas:   canvasSuggestionText,
			integration.KindCalendar: calendarSuggestionText,
			integration.KindNotion:   notionSuggestionText,
		},
	}
}
