package domain

type Project struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Status      string `json:"status" enum:"active,on_hold,completed,cancelled"`
	CreatedAt   string `json:"created_at" format:"date-time"`
	UpdatedAt   string `json:"updated_at" format:"date-time"`
}

type Task struct {
	ID             string   `json:"id"`
	ProjectID      string   `json:"project_id"`
	Title          string   `json:"title"`
	Description    string   `json:"description,omitempty"`
	Status         string   `json:"status" enum:"todo,in_progress,completed,blocked"`
	Priority       string   `json:"priority" enum:"urgent,high,medium,low"`
	EstimatedHours *float64 `json:"estimated_hours,omitempty"`
	DueDate        *string  `json:"due_date,omitempty" format:"date-time"`
	AssigneeID     *string  `json:"assignee_id,omitempty"`
	CreatedAt      string   `json:"created_at" format:"date-time"`
	UpdatedAt      string   `json:"updated_at" format:"date-time"`
	CompletedAt    *string  `json:"completed_at,omitempty" format:"date-time"`
}

type Feedback struct {
	ID           string  `json:"id"`
	ProjectID    string  `json:"project_id"`
	TaskID       *string `json:"task_id,omitempty"`
	UserName     string  `json:"user_name,omitempty"`
	FeedbackText string  `json:"feedback_text"`
	Status       string  `json:"status" enum:"pending,processing,completed,failed"`
	CreatedAt    string  `json:"created_at" format:"date-time"`
	ProcessedAt  *string `json:"processed_at,omitempty" format:"date-time"`
}

type Adjustment struct {
	ID             string  `json:"id"`
	FeedbackID     string  `json:"feedback_id"`
	AdjustmentType string  `json:"adjustment_type" enum:"task_priority,task_description,task_status,new_task,remove_task,task_estimate,general"`
	TaskID         *string `json:"task_id,omitempty"`
	Description    string  `json:"description"`
	OriginalValue  *string `json:"original_value,omitempty"`
	NewValue       *string `json:"new_value,omitempty"`
	Reasoning      string  `json:"reasoning,omitempty"`
	CreatedAt      string  `json:"created_at" format:"date-time"`
}

type PlanVersion struct {
	ID            string `json:"id"`
	ProjectID     string `json:"project_id"`
	VersionNumber int    `json:"version_number"`
	ContentJSON   string `json:"content_json"`
	CreatedAt     string `json:"created_at" format:"date-time"`
}

type DailySummary struct {
	ID          string   `json:"id"`
	UserID      string   `json:"user_id"`
	Date        string   `json:"date"`
	TaskID      string   `json:"task_id"`
	Rank        int      `json:"rank"`
	SummaryText string   `json:"summary_text"`
	Completed   bool     `json:"completed"`
	HoursWorked *float64 `json:"hours_worked,omitempty"`
	CreatedAt   string   `json:"created_at" format:"date-time"`
}

type LLMCallLog struct {
	ID           string  `json:"id"`
	UserID       *string `json:"user_id,omitempty"`
	ModelName    string  `json:"model_name"`
	Prompt       string  `json:"prompt"`
	Response     *string `json:"response,omitempty"`
	TokensUsed   *int    `json:"tokens_used,omitempty"`
	DurationMS   int64   `json:"duration_ms"`
	Status       string  `json:"status" enum:"success,error,timeout"`
	ErrorMessage *string `json:"error_message,omitempty"`
	MetadataJSON *string `json:"metadata_json,omitempty"`
	CreatedAt    string  `json:"created_at" format:"date-time"`
}

type InboxItem struct {
	ID        string  `json:"id"`
	UserID    string  `json:"user_id"`
	Content   string  `json:"content"`
	Status    string  `json:"status" enum:"unprocessed,processed,archived"`
	ProjectID *string `json:"project_id,omitempty"`
	TaskID    *string `json:"task_id,omitempty"`
	CreatedAt string  `json:"created_at" format:"date-time"`
	UpdatedAt string  `json:"updated_at" format:"date-time"`
}

const (
	TaskStatusTodo       = "todo"
	TaskStatusInProgress = "in_progress"
	TaskStatusCompleted  = "completed"
	TaskStatusBlocked    = "blocked"
)

const (
	FeedbackStatusPending    = "pending"
	FeedbackStatusProcessing = "processing"
	FeedbackStatusCompleted  = "completed"
	FeedbackStatusFailed     = "failed"
)

const (
	ProjectStatusActive    = "active"
	ProjectStatusOnHold    = "on_hold"
	ProjectStatusCompleted = "completed"
	ProjectStatusCancelled = "cancelled"
)

const (
	AdjustmentTaskPriority    = "task_priority"
	AdjustmentTaskDescription = "task_description"
	AdjustmentTaskStatus      = "task_status"
	AdjustmentNewTask         = "new_task"
	AdjustmentRemoveTask      = "remove_task"
	AdjustmentTaskEstimate    = "task_estimate"
	AdjustmentGeneral         = "general"
)

const (
	InboxStatusUnprocessed = "unprocessed"
	InboxStatusProcessed   = "processed"
	InboxStatusArchived    = "archived"
)

// Inbox classification actions.
const (
	ActionCreateProject    = "create_project"
	ActionCreateTask       = "create_task"
	ActionAttachToExisting = "attach_to_existing"
	ActionNoAction         = "no_action"
)

const (
	PriorityUrgent = "urgent"
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

// PriorityFromScale maps a 0-10 numeric priority onto the canonical
// categorical scale: 8-10 urgent, 6-7 high, 3-5 medium, 0-2 low.
func PriorityFromScale(n int) string {
	switch {
	case n >= 8:
		return PriorityUrgent
	case n >= 6:
		return PriorityHigh
	case n >= 3:
		return PriorityMedium
	default:
		return PriorityLow
	}
}

// ValidPriority reports whether p is one of the canonical priority levels.
func ValidPriority(p string) bool {
	switch p {
	case PriorityUrgent, PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

// ValidAdjustmentType reports whether t is a known adjustment type.
func ValidAdjustmentType(t string) bool {
	switch t {
	case AdjustmentTaskPriority, AdjustmentTaskDescription, AdjustmentTaskStatus,
		AdjustmentNewTask, AdjustmentRemoveTask, AdjustmentTaskEstimate, AdjustmentGeneral:
		return true
	}
	return false
}
