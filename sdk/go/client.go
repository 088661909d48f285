// Package taskpilotsdk is a minimal Taskpilot HTTP API client.
package taskpilotsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		Timeout: 30 * time.Second,
	}
}

// Project represents the API project model.
type Project struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Status      string `json:"status"`
	CreatedAt   string `json:"created_at"`
}

// Task represents the API task model (partial).
type Task struct {
	ID        string  `json:"id"`
	ProjectID string  `json:"project_id"`
	Title     string  `json:"title"`
	Status    string  `json:"status"`
	Priority  string  `json:"priority"`
	DueDate   *string `json:"due_date,omitempty"`
}

// FeedbackAccepted is the submit-feedback acknowledgement.
type FeedbackAccepted struct {
	FeedbackID string `json:"feedback_id"`
	Status     string `json:"status"`
}

// Adjustment is one suggestion produced from a feedback item.
type Adjustment struct {
	ID             string  `json:"id"`
	AdjustmentType string  `json:"adjustment_type"`
	TaskID         *string `json:"task_id,omitempty"`
	Description    string  `json:"description"`
	OriginalValue  *string `json:"original_value,omitempty"`
	NewValue       *string `json:"new_value,omitempty"`
	Reasoning      string  `json:"reasoning,omitempty"`
}

// Feedback is a feedback item with adjustments once completed.
type Feedback struct {
	ID          string       `json:"id"`
	ProjectID   string       `json:"project_id"`
	TaskID      *string      `json:"task_id,omitempty"`
	Status      string       `json:"status"`
	ProcessedAt *string      `json:"processed_at,omitempty"`
	Adjustments []Adjustment `json:"adjustments,omitempty"`
}

// PlanVersion is one immutable plan snapshot.
type PlanVersion struct {
	ID            string         `json:"id"`
	ProjectID     string         `json:"project_id"`
	VersionNumber int            `json:"version_number"`
	Content       map[string]any `json:"content"`
	CreatedAt     string         `json:"created_at"`
}

// DailySummary is one ranked daily task slot.
type DailySummary struct {
	Rank        int      `json:"rank"`
	TaskID      string   `json:"task_id"`
	SummaryText string   `json:"summary_text"`
	Completed   bool     `json:"completed"`
	HoursWorked *float64 `json:"hours_worked,omitempty"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// CreateProject creates a project.
func (c *Client) CreateProject(ctx context.Context, name, description string) (Project, error) {
	body := map[string]any{"name": name, "description": description}
	var resp Project
	err := c.do(ctx, http.MethodPost, "v1/projects", body, &resp)
	return resp, err
}

// CreateTask creates a task in a project.
func (c *Client) CreateTask(ctx context.Context, projectID, title, priority string) (Task, error) {
	body := map[string]any{"title": title, "priority": priority}
	var resp Task
	endpoint := fmt.Sprintf("v1/projects/%s/tasks", url.PathEscape(projectID))
	err := c.do(ctx, http.MethodPost, endpoint, body, &resp)
	return resp, err
}

// SubmitFeedback enqueues feedback for processing and returns the
// pending acknowledgement.
func (c *Client) SubmitFeedback(ctx context.Context, projectID, taskID, userName, text string) (FeedbackAccepted, error) {
	body := map[string]any{
		"project_id":    projectID,
		"user_name":     userName,
		"feedback_text": text,
	}
	if taskID != "" {
		body["task_id"] = taskID
	}
	var resp FeedbackAccepted
	err := c.do(ctx, http.MethodPost, "v1/feedback", body, &resp)
	return resp, err
}

// Feedback fetches one feedback item with its adjustments.
func (c *Client) Feedback(ctx context.Context, id string) (Feedback, error) {
	var resp Feedback
	err := c.do(ctx, http.MethodGet, "v1/feedback/"+url.PathEscape(id), nil, &resp)
	return resp, err
}

// WaitForFeedback polls until the feedback reaches a terminal status.
func (c *Client) WaitForFeedback(ctx context.Context, id string, interval time.Duration) (Feedback, error) {
	if interval <= 0 {
		interval = time.Second
	}
	for {
		fb, err := c.Feedback(ctx, id)
		if err != nil {
			return Feedback{}, err
		}
		if fb.Status == "completed" || fb.Status == "failed" {
			return fb, nil
		}
		select {
		case <-ctx.Done():
			return Feedback{}, ctx.Err()
		case <-time.After(interval):
		}
	}
}

// GeneratePlan generates or fetches the project plan.
func (c *Client) GeneratePlan(ctx context.Context, projectID string, force bool) (PlanVersion, error) {
	endpoint := fmt.Sprintf("v1/projects/%s/plan", url.PathEscape(projectID))
	if force {
		endpoint += "?force=true"
	}
	var resp PlanVersion
	err := c.do(ctx, http.MethodPost, endpoint, nil, &resp)
	return resp, err
}

// DailyPlan returns the user's plan for a day (empty date means today).
func (c *Client) DailyPlan(ctx context.Context, userID, date string) ([]DailySummary, error) {
	endpoint := fmt.Sprintf("v1/users/%s/daily", url.PathEscape(userID))
	if date != "" {
		endpoint += "?date=" + url.QueryEscape(date)
	}
	var resp []DailySummary
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

// CompleteDailyTask marks one planned task complete.
func (c *Client) CompleteDailyTask(ctx context.Context, userID, taskID string, hoursWorked float64) (DailySummary, error) {
	body := map[string]any{"task_id": taskID}
	if hoursWorked > 0 {
		body["hours_worked"] = hoursWorked
	}
	var resp DailySummary
	endpoint := fmt.Sprintf("v1/users/%s/daily/complete", url.PathEscape(userID))
	err := c.do(ctx, http.MethodPost, endpoint, body, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
