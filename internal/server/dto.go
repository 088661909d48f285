package server

import (
	"encoding/json"

	"taskpilot/internal/domain"
	"taskpilot/internal/parse"
)

// Request payloads

type CreateProjectRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
	// GeneratePlan triggers plan generation after creation. The
	// trigger is fire-and-forget; its failure never fails creation.
	GeneratePlan bool `json:"generate_plan,omitempty"`
}

type UpdateProjectRequest struct {
	Status      *string `json:"status,omitempty" enum:"active,on_hold,completed,cancelled"`
	Description *string `json:"description,omitempty"`
}

type CreateTaskRequest struct {
	Title          string   `json:"title"`
	Description    *string  `json:"description,omitempty"`
	Priority       *string  `json:"priority,omitempty" enum:"urgent,high,medium,low"`
	PriorityScale  *int     `json:"priority_scale,omitempty" minimum:"0" maximum:"10"`
	EstimatedHours *float64 `json:"estimated_hours,omitempty"`
	DueDate        *string  `json:"due_date,omitempty"`
	AssigneeID     *string  `json:"assignee_id,omitempty"`
}

type UpdateTaskRequest struct {
	Title          *string  `json:"title,omitempty"`
	Description    *string  `json:"description,omitempty"`
	Status         *string  `json:"status,omitempty" enum:"todo,in_progress,completed,blocked"`
	Priority       *string  `json:"priority,omitempty" enum:"urgent,high,medium,low"`
	EstimatedHours *float64 `json:"estimated_hours,omitempty"`
	DueDate        *string  `json:"due_date,omitempty"`
	AssigneeID     *string  `json:"assignee_id,omitempty"`
}

type SubmitFeedbackRequest struct {
	ProjectID    string  `json:"project_id"`
	TaskID       *string `json:"task_id,omitempty"`
	UserName     string  `json:"user_name,omitempty"`
	FeedbackText string  `json:"feedback_text"`
}

type CompleteDailyTaskRequest struct {
	TaskID      string   `json:"task_id"`
	HoursWorked *float64 `json:"hours_worked,omitempty"`
}

type CaptureInboxRequest struct {
	UserID  string `json:"user_id"`
	Content string `json:"content"`
}

// Response payloads

type FeedbackAcceptedResponse struct {
	FeedbackID string `json:"feedback_id"`
	Status     string `json:"status" enum:"pending"`
}

type AdjustmentResponse struct {
	ID             string  `json:"id"`
	AdjustmentType string  `json:"adjustment_type"`
	TaskID         *string `json:"task_id,omitempty"`
	Description    string  `json:"description"`
	OriginalValue  *string `json:"original_value,omitempty"`
	NewValue       *string `json:"new_value,omitempty"`
	Reasoning      string  `json:"reasoning,omitempty"`
	CreatedAt      string  `json:"created_at" format:"date-time"`
}

type FeedbackResponse struct {
	ID           string               `json:"id"`
	ProjectID    string               `json:"project_id"`
	TaskID       *string              `json:"task_id,omitempty"`
	UserName     string               `json:"user_name,omitempty"`
	FeedbackText string               `json:"feedback_text"`
	Status       string               `json:"status" enum:"pending,processing,completed,failed"`
	CreatedAt    string               `json:"created_at" format:"date-time"`
	ProcessedAt  *string              `json:"processed_at,omitempty" format:"date-time"`
	Adjustments  []AdjustmentResponse `json:"adjustments,omitempty"`
}

type PlanVersionResponse struct {
	ID            string            `json:"id"`
	ProjectID     string            `json:"project_id"`
	VersionNumber int               `json:"version_number"`
	Content       parse.PlanContent `json:"content"`
	CreatedAt     string            `json:"created_at" format:"date-time"`
}

func feedbackResponse(f domain.Feedback, adjustments []domain.Adjustment) FeedbackResponse {
	out := FeedbackResponse{
		ID:           f.ID,
		ProjectID:    f.ProjectID,
		TaskID:       f.TaskID,
		UserName:     f.UserName,
		FeedbackText: f.FeedbackText,
		Status:       f.Status,
		CreatedAt:    f.CreatedAt,
		ProcessedAt:  f.ProcessedAt,
	}
	for _, a := range adjustments {
		out.Adjustments = append(out.Adjustments, AdjustmentResponse{
			ID:             a.ID,
			AdjustmentType: a.AdjustmentType,
			TaskID:         a.TaskID,
			Description:    a.Description,
			OriginalValue:  a.OriginalValue,
			NewValue:       a.NewValue,
			Reasoning:      a.Reasoning,
			CreatedAt:      a.CreatedAt,
		})
	}
	return out
}

func planResponse(pv domain.PlanVersion) PlanVersionResponse {
	var content parse.PlanContent
	json.Unmarshal([]byte(pv.ContentJSON), &content)
	return PlanVersionResponse{
		ID:            pv.ID,
		ProjectID:     pv.ProjectID,
		VersionNumber: pv.VersionNumber,
		Content:       content,
		CreatedAt:     pv.CreatedAt,
	}
}
