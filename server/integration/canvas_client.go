package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// canvasClient talks to the Canvas REST API with a personal access
// token.
type canvasClient struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewCanvasClient creates a CourseClient over the Canvas API.
func NewCanvasClient(baseURL, token string) CourseClient {
	return &canvasClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *canvasClient) get(ctx context.Context, path string, query url.Values, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("canvas request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("canvas returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *canvasClient) CurrentCourses(ctx context.Context) ([]Course, error) {
	var raw []struct {
		ID         int64  `json:"id"`
		Name       string `json:"name"`
		CourseCode string `json:"course_code"`
		Term       struct {
			Name string `json:"name"`
		} `json:"term"`
	}
	query := url.Values{
		"enrollment_state": {"active"},
		"include[]":        {"term"},
		"per_page":         {"50"},
	}
	if err := c.get(ctx, "/api/v1/courses", query, &raw); err != nil {
		return nil, err
	}

	courses := make([]Course, 0, len(raw))
	for _, r := range raw {
		courses = append(courses, Course{
			ID:         r.ID,
			Name:       r.Name,
			CourseCode: r.CourseCode,
			Term:       r.Term.Name,
		})
	}
	return courses, nil
}

type canvasAssignment struct {
	ID             int64    `json:"id"`
	CourseID       int64    `json:"course_id"`
	Name           string   `json:"name"`
	Description    string   `json:"description"`
	DueAt          string   `json:"due_at"`
	PointsPossible float64  `json:"points_possible"`
	SubmissionType []string `json:"submission_types"`
	HasSubmitted   bool     `json:"has_submitted_submissions"`
}

func (a canvasAssignment) toAssignment() Assignment {
	return Assignment{
		ID:             a.ID,
		CourseID:       a.CourseID,
		Name:           a.Name,
		Description:    a.Description,
		DueAt:          a.DueAt,
		PointsPossible: a.PointsPossible,
		SubmissionType: strings.Join(a.SubmissionType, ","),
		Submitted:      a.HasSubmitted,
	}
}

func (c *canvasClient) UpcomingAssignments(ctx context.Context, courseID int64, daysAhead int) ([]Assignment, error) {
	courseIDs := []int64{courseID}
	if courseID == 0 {
		courses, err := c.CurrentCourses(ctx)
		if err != nil {
			return nil, err
		}
		courseIDs = courseIDs[:0]
		for _, course := range courses {
			courseIDs = append(courseIDs, course.ID)
		}
	}

	cutoff := time.Now().AddDate(0, 0, daysAhead)
	var all []Assignment
	for _, id := range courseIDs {
		var raw []canvasAssignment
		query := url.Values{
			"bucket":   {"upcoming"},
			"per_page": {"50"},
		}
		if err := c.get(ctx, fmt.Sprintf("/api/v1/courses/%d/assignments", id), query, &raw); err != nil {
			return nil, err
		}
		for _, a := range raw {
			if a.DueAt != "" {
				due, err := time.Parse(time.RFC3339, a.DueAt)
				if err == nil && due.After(cutoff) {
					continue
				}
			}
			assignment := a.toAssignment()
			if assignment.CourseID == 0 {
				assignment.CourseID = id
			}
			all = append(all, assignment)
		}
	}
	return all, nil
}

func (c *canvasClient) AssignmentDetails(ctx context.Context, courseID, assignmentID int64) (*Assignment, error) {
	var raw canvasAssignment
	path := fmt.Sprintf("/api/v1/courses/%d/assignments/%d", courseID, assignmentID)
	if err := c.get(ctx, path, nil, &raw); err != nil {
		return nil, err
	}
	assignment := raw.toAssignment()
	if assignment.CourseID == 0 {
		assignment.CourseID = courseID
	}
	return &assignment, nil
}

func (c *canvasClient) CourseGrades(ctx context.Context, courseID int64) ([]Grade, error) {
	var raw []struct {
		ID          int64  `json:"id"`
		Name        string `json:"name"`
		Enrollments []struct {
			ComputedCurrentScore float64 `json:"computed_current_score"`
			ComputedCurrentGrade string  `json:"computed_current_grade"`
			ComputedFinalScore   float64 `json:"computed_final_score"`
		} `json:"enrollments"`
	}
	query := url.Values{
		"enrollment_state": {"active"},
		"include[]":        {"total_scores"},
		"per_page":         {"50"},
	}
	if err := c.get(ctx, "/api/v1/courses", query, &raw); err != nil {
		return nil, err
	}

	var grades []Grade
	for _, r := range raw {
		if courseID != 0 && r.ID != courseID {
			continue
		}
		grade := Grade{CourseID: r.ID, CourseName: r.Name}
		if len(r.Enrollments) > 0 {
			grade.CurrentScore = r.Enrollments[0].ComputedCurrentScore
			grade.CurrentGrade = r.Enrollments[0].ComputedCurrentGrade
			grade.FinalScore = r.Enrollments[0].ComputedFinalScore
		}
		grades = append(grades, grade)
	}
	return grades, nil
}

func (c *canvasClient) CourseAnnouncements(ctx context.Context, courseID int64, limit int) ([]Announcement, error) {
	var raw []struct {
		ID       int64  `json:"id"`
		Title    string `json:"title"`
		Message  string `json:"message"`
		PostedAt string `json:"posted_at"`
	}
	query := url.Values{
		"context_codes[]": {fmt.Sprintf("course_%d", courseID)},
		"per_page":        {fmt.Sprintf("%d", limit)},
	}
	if err := c.get(ctx, "/api/v1/announcements", query, &raw); err != nil {
		return nil, err
	}

	announcements := make([]Announcement, 0, len(raw))
	for _, r := range raw {
		announcements = append(announcements, Announcement{
			ID:       r.ID,
			CourseID: courseID,
			Title:    r.Title,
			Message:  r.Message,
			PostedAt: r.PostedAt,
		})
	}
	return announcements, nil
}
