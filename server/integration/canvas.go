package integration

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/studyhallhq/studyhall/plugin/agent"
)

// Course is one active enrollment on the course platform.
type Course struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	CourseCode string `json:"course_code"`
	Term       string `json:"term,omitempty"`
}

// Assignment is one graded item in a course.
type Assignment struct {
	ID             int64   `json:"id"`
	CourseID       int64   `json:"course_id"`
	Name           string  `json:"name"`
	Description    string  `json:"description,omitempty"`
	DueAt          string  `json:"due_at,omitempty"`
	PointsPossible float64 `json:"points_possible"`
	SubmissionType string  `json:"submission_type,omitempty"`
	Submitted      bool    `json:"submitted"`
}

// Grade is the current score for one course enrollment.
type Grade struct {
	CourseID     int64   `json:"course_id"`
	CourseName   string  `json:"course_name"`
	CurrentScore float64 `json:"current_score"`
	CurrentGrade string  `json:"current_grade,omitempty"`
	FinalScore   float64 `json:"final_score,omitempty"`
}

// Announcement is one course announcement.
type Announcement struct {
	ID       int64  `json:"id"`
	CourseID int64  `json:"course_id"`
	Title    string `json:"title"`
	Message  string `json:"message,omitempty"`
	PostedAt string `json:"posted_at,omitempty"`
}

// CourseClient reads a student's data from the course platform.
type CourseClient interface {
	CurrentCourses(ctx context.Context) ([]Course, error)
	// UpcomingAssignments lists assignments due within daysAhead days.
	// courseID of zero means every active course.
	UpcomingAssignments(ctx context.Context, courseID int64, daysAhead int) ([]Assignment, error)
	AssignmentDetails(ctx context.Context, courseID, assignmentID int64) (*Assignment, error)
	// CourseGrades returns grades for one course, or all courses when
	// courseID is zero.
	CourseGrades(ctx context.Context, courseID int64) ([]Grade, error)
	CourseAnnouncements(ctx context.Context, courseID int64, limit int) ([]Announcement, error)
}

// CourseCapabilities exposes the course platform as model-callable
// operations.
func CourseCapabilities(client CourseClient) []agent.Capability {
	return []agent.Capability{
		agent.NewCapability(
			"get_current_courses",
			"Get the student's active courses. Use this when the student asks what classes they are taking, or when you need course IDs for other lookups.",
			agent.NoParams(),
			func(ctx context.Context, args json.RawMessage) (string, error) {
				courses, err := client.CurrentCourses(ctx)
				if err != nil {
					return "", err
				}
				return marshalResult(courses)
			},
		),
		agent.NewCapability(
			"get_upcoming_assignments",
			"Get assignments due soon. Use this when the student asks what is due, what homework they have, or what deadlines are coming up. Omit course_id to search all courses.",
			agent.ObjectParams(map[string]any{
				"course_id": map[string]any{
					"type":        "integer",
					"description": "Restrict to one course. Omit for all courses.",
				},
				"days_ahead": map[string]any{
					"type":        "integer",
					"description": "How many days ahead to look. Defaults to 7.",
				},
			}),
			func(ctx context.Context, args json.RawMessage) (string, error) {
				var in struct {
					CourseID  int64 `json:"course_id"`
					DaysAhead int   `json:"days_ahead"`
				}
				if err := unmarshalArgs(args, &in); err != nil {
					return "", err
				}
				if in.DaysAhead <= 0 {
					in.DaysAhead = 7
				}
				assignments, err := client.UpcomingAssignments(ctx, in.CourseID, in.DaysAhead)
				if err != nil {
					return "", err
				}
				return marshalResult(assignments)
			},
		),
		agent.NewCapability(
			"get_assignment_details",
			"Get the full description, due date and submission details of one assignment. Use this when the student asks about a specific assignment.",
			agent.ObjectParams(map[string]any{
				"course_id": map[string]any{
					"type":        "integer",
					"description": "The course the assignment belongs to.",
				},
				"assignment_id": map[string]any{
					"type":        "integer",
					"description": "The assignment to look up.",
				},
			}, "course_id", "assignment_id"),
			func(ctx context.Context, args json.RawMessage) (string, error) {
				var in struct {
					CourseID     int64 `json:"course_id"`
					AssignmentID int64 `json:"assignment_id"`
				}
				if err := unmarshalArgs(args, &in); err != nil {
					return "", err
				}
				assignment, err := client.AssignmentDetails(ctx, in.CourseID, in.AssignmentID)
				if err != nil {
					return "", err
				}
				return marshalResult(assignment)
			},
		),
		agent.NewCapability(
			"get_course_grades",
			"Get the student's current grades. Use this when the student asks how they are doing in a class or overall. Omit course_id for all courses.",
			agent.ObjectParams(map[string]any{
				"course_id": map[string]any{
					"type":        "integer",
					"description": "Restrict to one course. Omit for all courses.",
				},
			}),
			func(ctx context.Context, args json.RawMessage) (string, error) {
				var in struct {
					CourseID int64 `json:"course_id"`
				}
				if err := unmarshalArgs(args, &in); err != nil {
					return "", err
				}
				grades, err := client.CourseGrades(ctx, in.CourseID)
				if err != nil {
					return "", err
				}
				return marshalResult(grades)
			},
		),
		agent.NewCapability(
			"get_course_announcements",
			"Get recent announcements for a course. Use this when the student asks what the instructor has posted or announced.",
			agent.ObjectParams(map[string]any{
				"course_id": map[string]any{
					"type":        "integer",
					"description": "The course to read announcements from.",
				},
				"limit": map[string]any{
					"type":        "integer",
					"description": "Maximum announcements to return. Defaults to 5.",
				},
			}, "course_id"),
			func(ctx context.Context, args json.RawMessage) (string, error) {
				var in struct {
					CourseID int64 `json:"course_id"`
					Limit    int   `json:"limit"`
				}
				if err := unmarshalArgs(args, &in); err != nil {
					return "", err
				}
				if in.Limit <= 0 {
					in.Limit = 5
				}
				announcements, err := client.CourseAnnouncements(ctx, in.CourseID, in.Limit)
				if err != nil {
					return "", err
				}
				return marshalResult(announcements)
			},
		),
	}
}

// marshalResult renders a capability result for the model.
func marshalResult(v any) (string, error) {
	buf, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to encode result: %w", err)
	}
	return string(buf), nil
}

// unmarshalArgs decodes model-provided arguments, tolerating an empty
// payload.
func unmarshalArgs(args json.RawMessage, v any) error {
	if len(args) == 0 {
		return nil
	}
	if err := json.Unmarshal(args, v); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}
