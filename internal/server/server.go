// Package server exposes the HTTP API.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"taskpilot/internal/domain"
	"taskpilot/internal/inbox"
	"taskpilot/internal/pipeline"
	"taskpilot/internal/planner"
	"taskpilot/internal/repo"
	"taskpilot/internal/schedule"
)

// Deps wires the HTTP surface to the core components.
type Deps struct {
	Repo     repo.Repo
	Pipeline *pipeline.Pipeline
	Planner  *planner.Planner
	Inbox    *inbox.Classifier
	Schedule *schedule.Engine
	Pool     *pipeline.Pool
	Log      *zap.Logger
	Now      func() time.Time
	BasePath string
}

func (d Deps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

type apiErrorBody struct {
	Code    string         `json:"code" example:"not_found"`
	Message string         `json:"message" example:"feedback not found"`
	Details map[string]any `json:"details,omitempty" jsonschema:"type=object,additionalProperties=true"`
}

// apiError models the error envelope.
type apiError struct {
	status int
	Body   apiErrorBody `json:"error"`
}

func (e *apiError) GetStatus() int { return e.status }
func (e *apiError) Error() string  { return e.Body.Message }

// New returns an HTTP handler exposing the Taskpilot API.
func New(d Deps) (http.Handler, error) {
	basePath := d.BasePath
	if basePath == "" {
		basePath = "/v1"
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	huma.DefaultArrayNullable = false
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		return newAPIError(status, "", msg, nil)
	}
	huma.NewErrorWithContext = func(_ huma.Context, status int, msg string, errs ...error) huma.StatusError {
		if status == http.StatusUnprocessableEntity && strings.Contains(strings.ToLower(msg), "validation") {
			status = http.StatusBadRequest
		}
		var details map[string]any
		if len(errs) > 0 {
			details = map[string]any{"errors": errs}
		}
		return newAPIError(status, "", msg, details)
	}

	router := chi.NewRouter()
	hcfg := huma.DefaultConfig("Taskpilot API", "0.1.0")
	hcfg.OpenAPIPath = "/openapi"
	hcfg.DocsPath = ""
	api := humachi.New(router, hcfg)
	group := huma.NewGroup(api, basePath)

	registerHealth(group)
	registerProjects(group, d)
	registerTasks(group, d)
	registerFeedback(group, d)
	registerPlans(group, d)
	registerDaily(group, d)
	registerInbox(group, d)
	registerOpenAPI(router, api, basePath)

	return router, nil
}

func newAPIError(status int, code, message string, details map[string]any) huma.StatusError {
	if code == "" {
		code = defaultCodeForStatus(status)
	}
	return &apiError{
		status: status,
		Body: apiErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}

func handleError(err error) huma.StatusError {
	if err == nil {
		return nil
	}
	if errors.Is(err, repo.ErrNotFound) {
		return newAPIError(http.StatusNotFound, "not_found", err.Error(), nil)
	}
	if errors.Is(err, pipeline.ErrTaskMismatch) {
		return newAPIError(http.StatusBadRequest, "bad_request", err.Error(), nil)
	}
	msg := err.Error()
	lowered := strings.ToLower(msg)
	switch {
	case strings.Contains(lowered, "invalid") || strings.Contains(lowered, "required"):
		return newAPIError(http.StatusBadRequest, "bad_request", msg, nil)
	default:
		return newAPIError(http.StatusInternalServerError, "internal_error", "internal error", map[string]any{"error": msg})
	}
}

func defaultCodeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusUnprocessableEntity:
		return "validation_failed"
	case http.StatusInternalServerError:
		return "internal_error"
	default:
		return strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "_"))
	}
}

func registerHealth(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[string]string `json:"body"`
	}, error) {
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: map[string]string{"status": "ok"}}, nil
	})
}

func registerProjects(api huma.API, d Deps) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-project",
		Method:        http.MethodPost,
		Path:          "/projects",
		Summary:       "Create project",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusInternalServerError},
	}, func(ctx context.Context, input *struct {
		Body CreateProjectRequest `json:"body"`
	}) (*struct {
		Body domain.Project `json:"body"`
	}, error) {
		if strings.TrimSpace(input.Body.Name) == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "name is required", nil)
		}
		ts := d.now().UTC().Format(time.RFC3339)
		p := domain.Project{
			ID:        uuid.New().String(),
			Name:      input.Body.Name,
			Status:    domain.ProjectStatusActive,
			CreatedAt: ts,
			UpdatedAt: ts,
		}
		if input.Body.Description != nil {
			p.Description = *input.Body.Description
		}
		if err := d.Repo.InsertProject(ctx, p); err != nil {
			return nil, handleError(err)
		}
		if input.Body.GeneratePlan {
			projectID := p.ID
			queued := d.Pool.Enqueue(func(ctx context.Context) error {
				if _, err := d.Planner.Generate(ctx, projectID, false); err != nil {
					d.Log.Warn("plan generation after project create failed",
						zap.String("project_id", projectID), zap.Error(err))
				}
				return nil
			})
			if !queued {
				d.Log.Warn("worker queue full, skipping plan trigger", zap.String("project_id", projectID))
			}
		}
		return &struct {
			Body domain.Project `json:"body"`
		}{Body: p}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-projects",
		Method:      http.MethodGet,
		Path:        "/projects",
		Summary:     "List projects",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []domain.Project `json:"body"`
	}, error) {
		items, err := d.Repo.ListProjects(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Project `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-project",
		Method:      http.MethodGet,
		Path:        "/projects/{project_id}",
		Summary:     "Get project",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ProjectID string `path:"project_id"`
	}) (*struct {
		Body domain.Project `json:"body"`
	}, error) {
		p, err := d.Repo.GetProject(ctx, input.ProjectID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Project `json:"body"`
		}{Body: p}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-project",
		Method:      http.MethodPatch,
		Path:        "/projects/{project_id}",
		Summary:     "Update project",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ProjectID string               `path:"project_id"`
		Body      UpdateProjectRequest `json:"body"`
	}) (*struct {
		Body domain.Project `json:"body"`
	}, error) {
		ts := d.now().UTC().Format(time.RFC3339)
		if err := d.Repo.UpdateProject(ctx, input.ProjectID, input.Body.Status, input.Body.Description, ts); err != nil {
			return nil, handleError(err)
		}
		p, err := d.Repo.GetProject(ctx, input.ProjectID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Project `json:"body"`
		}{Body: p}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-project",
		Method:      http.MethodDelete,
		Path:        "/projects/{project_id}",
		Summary:     "Delete project",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ProjectID string `path:"project_id"`
	}) (*struct{}, error) {
		if err := d.Repo.DeleteProject(ctx, input.ProjectID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}

func registerTasks(api huma.API, d Deps) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-task",
		Method:        http.MethodPost,
		Path:          "/projects/{project_id}/tasks",
		Summary:       "Create task",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ProjectID string            `path:"project_id"`
		Body      CreateTaskRequest `json:"body"`
	}) (*struct {
		Body domain.Task `json:"body"`
	}, error) {
		if strings.TrimSpace(input.Body.Title) == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "title is required", nil)
		}
		if _, err := d.Repo.GetProject(ctx, input.ProjectID); err != nil {
			return nil, handleError(err)
		}
		priority := domain.PriorityMedium
		switch {
		case input.Body.Priority != nil:
			if !domain.ValidPriority(*input.Body.Priority) {
				return nil, newAPIError(http.StatusBadRequest, "bad_request", "invalid priority", nil)
			}
			priority = *input.Body.Priority
		case input.Body.PriorityScale != nil:
			priority = domain.PriorityFromScale(*input.Body.PriorityScale)
		}
		ts := d.now().UTC().Format(time.RFC3339)
		t := domain.Task{
			ID:             uuid.New().String(),
			ProjectID:      input.ProjectID,
			Title:          input.Body.Title,
			Status:         domain.TaskStatusTodo,
			Priority:       priority,
			EstimatedHours: input.Body.EstimatedHours,
			DueDate:        input.Body.DueDate,
			AssigneeID:     input.Body.AssigneeID,
			CreatedAt:      ts,
			UpdatedAt:      ts,
		}
		if input.Body.Description != nil {
			t.Description = *input.Body.Description
		}
		if err := d.Repo.InsertTask(ctx, t); err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Task `json:"body"`
		}{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-tasks",
		Method:      http.MethodGet,
		Path:        "/projects/{project_id}/tasks",
		Summary:     "List project tasks",
	}, func(ctx context.Context, input *struct {
		ProjectID string `path:"project_id"`
		Status    string `query:"status"`
	}) (*struct {
		Body []domain.Task `json:"body"`
	}, error) {
		items, err := d.Repo.ListTasks(ctx, repo.TaskFilters{ProjectID: input.ProjectID, Status: input.Status})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Task `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-task",
		Method:      http.MethodGet,
		Path:        "/tasks/{task_id}",
		Summary:     "Get task",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		TaskID string `path:"task_id"`
	}) (*struct {
		Body domain.Task `json:"body"`
	}, error) {
		t, err := d.Repo.GetTask(ctx, input.TaskID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Task `json:"body"`
		}{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-task",
		Method:      http.MethodPatch,
		Path:        "/tasks/{task_id}",
		Summary:     "Update task",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		TaskID string            `path:"task_id"`
		Body   UpdateTaskRequest `json:"body"`
	}) (*struct {
		Body domain.Task `json:"body"`
	}, error) {
		t, err := d.Repo.GetTask(ctx, input.TaskID)
		if err != nil {
			return nil, handleError(err)
		}
		if input.Body.Title != nil {
			t.Title = *input.Body.Title
		}
		if input.Body.Description != nil {
			t.Description = *input.Body.Description
		}
		if input.Body.Status != nil {
			t.Status = *input.Body.Status
			if t.Status == domain.TaskStatusCompleted && t.CompletedAt == nil {
				ts := d.now().UTC().Format(time.RFC3339)
				t.CompletedAt = &ts
			}
		}
		if input.Body.Priority != nil {
			if !domain.ValidPriority(*input.Body.Priority) {
				return nil, newAPIError(http.StatusBadRequest, "bad_request", "invalid priority", nil)
			}
			t.Priority = *input.Body.Priority
		}
		if input.Body.EstimatedHours != nil {
			t.EstimatedHours = input.Body.EstimatedHours
		}
		if input.Body.DueDate != nil {
			t.DueDate = input.Body.DueDate
		}
		if input.Body.AssigneeID != nil {
			t.AssigneeID = input.Body.AssigneeID
		}
		t.UpdatedAt = d.now().UTC().Format(time.RFC3339)
		if err := d.Repo.UpdateTask(ctx, t); err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Task `json:"body"`
		}{Body: t}, nil
	})
}

func registerFeedback(api huma.API, d Deps) {
	huma.Register(api, huma.Operation{
		OperationID:   "submit-feedback",
		Method:        http.MethodPost,
		Path:          "/feedback",
		Summary:       "Submit feedback for processing",
		DefaultStatus: http.StatusAccepted,
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		Body SubmitFeedbackRequest `json:"body"`
	}) (*struct {
		Body FeedbackAcceptedResponse `json:"body"`
	}, error) {
		fb, err := d.Pipeline.Submit(ctx, input.Body.ProjectID, input.Body.TaskID, input.Body.UserName, input.Body.FeedbackText)
		if err != nil {
			return nil, handleError(err)
		}
		feedbackID := fb.ID
		if ok := d.Pool.Enqueue(func(ctx context.Context) error {
			return d.Pipeline.Process(ctx, feedbackID)
		}); !ok {
			// The row stays pending; a later drain or resubmission
			// picks it up.
			d.Log.Warn("worker queue full, feedback left pending", zap.String("feedback_id", feedbackID))
		}
		return &struct {
			Body FeedbackAcceptedResponse `json:"body"`
		}{Body: FeedbackAcceptedResponse{FeedbackID: fb.ID, Status: domain.FeedbackStatusPending}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-feedback",
		Method:      http.MethodGet,
		Path:        "/feedback/{feedback_id}",
		Summary:     "Get feedback with adjustments",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		FeedbackID string `path:"feedback_id"`
	}) (*struct {
		Body FeedbackResponse `json:"body"`
	}, error) {
		fb, err := d.Repo.GetFeedback(ctx, input.FeedbackID)
		if err != nil {
			return nil, handleError(err)
		}
		var adjustments []domain.Adjustment
		if fb.Status == domain.FeedbackStatusCompleted {
			adjustments, err = d.Repo.ListAdjustments(ctx, fb.ID)
			if err != nil {
				return nil, handleError(err)
			}
		}
		return &struct {
			Body FeedbackResponse `json:"body"`
		}{Body: feedbackResponse(fb, adjustments)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-feedback",
		Method:      http.MethodGet,
		Path:        "/feedback",
		Summary:     "List feedback",
	}, func(ctx context.Context, input *struct {
		ProjectID string `query:"project_id"`
		Status    string `query:"status"`
		Limit     int    `query:"limit" minimum:"0"`
	}) (*struct {
		Body []FeedbackResponse `json:"body"`
	}, error) {
		items, err := d.Repo.ListFeedback(ctx, repo.FeedbackFilters{
			ProjectID: input.ProjectID,
			Status:    input.Status,
			Limit:     input.Limit,
		})
		if err != nil {
			return nil, handleError(err)
		}
		out := make([]FeedbackResponse, 0, len(items))
		for _, fb := range items {
			out = append(out, feedbackResponse(fb, nil))
		}
		return &struct {
			Body []FeedbackResponse `json:"body"`
		}{Body: out}, nil
	})
}

func registerPlans(api huma.API, d Deps) {
	huma.Register(api, huma.Operation{
		OperationID: "generate-plan",
		Method:      http.MethodPost,
		Path:        "/projects/{project_id}/plan",
		Summary:     "Generate or fetch the project plan",
		Errors:      []int{http.StatusNotFound, http.StatusInternalServerError},
	}, func(ctx context.Context, input *struct {
		ProjectID string `path:"project_id"`
		Force     bool   `query:"force"`
	}) (*struct {
		Body PlanVersionResponse `json:"body"`
	}, error) {
		pv, err := d.Planner.Generate(ctx, input.ProjectID, input.Force)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body PlanVersionResponse `json:"body"`
		}{Body: planResponse(pv)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-plan",
		Method:      http.MethodGet,
		Path:        "/projects/{project_id}/plan",
		Summary:     "Latest plan version",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ProjectID string `path:"project_id"`
	}) (*struct {
		Body PlanVersionResponse `json:"body"`
	}, error) {
		pv, err := d.Repo.LatestPlanVersion(ctx, input.ProjectID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body PlanVersionResponse `json:"body"`
		}{Body: planResponse(pv)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-plan-versions",
		Method:      http.MethodGet,
		Path:        "/projects/{project_id}/plan/versions",
		Summary:     "List plan versions",
	}, func(ctx context.Context, input *struct {
		ProjectID string `path:"project_id"`
	}) (*struct {
		Body []PlanVersionResponse `json:"body"`
	}, error) {
		items, err := d.Repo.ListPlanVersions(ctx, input.ProjectID)
		if err != nil {
			return nil, handleError(err)
		}
		out := make([]PlanVersionResponse, 0, len(items))
		for _, pv := range items {
			out = append(out, planResponse(pv))
		}
		return &struct {
			Body []PlanVersionResponse `json:"body"`
		}{Body: out}, nil
	})
}

func registerDaily(api huma.API, d Deps) {
	huma.Register(api, huma.Operation{
		OperationID: "get-daily-plan",
		Method:      http.MethodGet,
		Path:        "/users/{user_id}/daily",
		Summary:     "Today's top tasks",
	}, func(ctx context.Context, input *struct {
		UserID string `path:"user_id"`
		Date   string `query:"date" doc:"Calendar day, YYYY-MM-DD; defaults to today"`
	}) (*struct {
		Body []domain.DailySummary `json:"body"`
	}, error) {
		date, err := dailyDate(input.Date, d.now)
		if err != nil {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", err.Error(), nil)
		}
		items, err := d.Schedule.TodayPlan(ctx, input.UserID, date)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.DailySummary `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "regenerate-daily-plan",
		Method:      http.MethodPost,
		Path:        "/users/{user_id}/daily/regenerate",
		Summary:     "Rescore and rebuild today's plan",
	}, func(ctx context.Context, input *struct {
		UserID string `path:"user_id"`
		Date   string `query:"date"`
	}) (*struct {
		Body []domain.DailySummary `json:"body"`
	}, error) {
		date, err := dailyDate(input.Date, d.now)
		if err != nil {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", err.Error(), nil)
		}
		items, err := d.Schedule.Regenerate(ctx, input.UserID, date)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.DailySummary `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "complete-daily-task",
		Method:      http.MethodPost,
		Path:        "/users/{user_id}/daily/complete",
		Summary:     "Mark a planned task complete",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		UserID string                   `path:"user_id"`
		Date   string                   `query:"date"`
		Body   CompleteDailyTaskRequest `json:"body"`
	}) (*struct {
		Body domain.DailySummary `json:"body"`
	}, error) {
		if input.Body.TaskID == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "task_id is required", nil)
		}
		date, err := dailyDate(input.Date, d.now)
		if err != nil {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", err.Error(), nil)
		}
		slot, err := d.Schedule.MarkComplete(ctx, input.UserID, input.Body.TaskID, date, input.Body.HoursWorked)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.DailySummary `json:"body"`
		}{Body: slot}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "daily-plan-summary",
		Method:      http.MethodGet,
		Path:        "/users/{user_id}/daily/summary",
		Summary:     "Aggregate of the day's plan",
	}, func(ctx context.Context, input *struct {
		UserID string `path:"user_id"`
		Date   string `query:"date"`
	}) (*struct {
		Body schedule.PlanSummary `json:"body"`
	}, error) {
		date, err := dailyDate(input.Date, d.now)
		if err != nil {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", err.Error(), nil)
		}
		summary, err := d.Schedule.Summary(ctx, input.UserID, date)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body schedule.PlanSummary `json:"body"`
		}{Body: summary}, nil
	})
}

func registerInbox(api huma.API, d Deps) {
	huma.Register(api, huma.Operation{
		OperationID:   "capture-inbox",
		Method:        http.MethodPost,
		Path:          "/inbox",
		Summary:       "Capture a note for triage",
		DefaultStatus: http.StatusAccepted,
		Errors:        []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Body CaptureInboxRequest `json:"body"`
	}) (*struct {
		Body domain.InboxItem `json:"body"`
	}, error) {
		item, err := d.Inbox.Capture(ctx, input.Body.UserID, input.Body.Content)
		if err != nil {
			return nil, handleError(err)
		}
		itemID := item.ID
		if ok := d.Pool.Enqueue(func(ctx context.Context) error {
			_, err := d.Inbox.Process(ctx, itemID)
			return err
		}); !ok {
			d.Log.Warn("worker queue full, inbox item left unprocessed", zap.String("item_id", itemID))
		}
		return &struct {
			Body domain.InboxItem `json:"body"`
		}{Body: item}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-inbox-item",
		Method:      http.MethodGet,
		Path:        "/inbox/{item_id}",
		Summary:     "Get inbox item",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ItemID string `path:"item_id"`
	}) (*struct {
		Body domain.InboxItem `json:"body"`
	}, error) {
		item, err := d.Repo.GetInboxItem(ctx, input.ItemID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.InboxItem `json:"body"`
		}{Body: item}, nil
	})
}

func dailyDate(raw string, now func() time.Time) (time.Time, error) {
	if raw == "" {
		return now().UTC(), nil
	}
	t, err := time.Parse(schedule.DateFormat, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", raw)
	}
	return t, nil
}

func registerOpenAPI(r chi.Router, api huma.API, basePath string) {
	var spec []byte
	specPath := path.Join(basePath, "openapi.json")
	r.Get(specPath, func(w http.ResponseWriter, r *http.Request) {
		if spec == nil {
			oas := api.OpenAPI()
			ensureDefaultErrorResponses(oas)
			spec, _ = json.Marshal(oas)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(spec)
	})
	r.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		io.WriteString(w, swaggerHTML(basePath))
	})
}

func ensureDefaultErrorResponses(oas *huma.OpenAPI) {
	if oas == nil || oas.Paths == nil {
		return
	}
	for _, item := range oas.Paths {
		for _, op := range []*huma.Operation{
			item.Get, item.Put, item.Post, item.Delete, item.Options, item.Head, item.Patch, item.Trace,
		} {
			if op == nil {
				continue
			}
			if op.Responses == nil {
				op.Responses = map[string]*huma.Response{}
			}
			op.Responses["default"] = &huma.Response{
				Description: "Error",
				Content: map[string]*huma.MediaType{
					"application/json": {
						Schema: &huma.Schema{Ref: "#/components/schemas/ApiError"},
					},
				},
			}
		}
	}
}

func swaggerHTML(basePath string) string {
	specURL := path.Join("/", path.Join(basePath, "openapi.json"))
	return fmt.Sprintf(`<!doctype html>
<html lang="en">
  <head>
    <meta charset="utf-8"/>
    <meta name="viewport" content="width=device-width, initial-scale=1"/>
    <title>Taskpilot API</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css"/>
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
    <script>
      window.onload = () => {
        window.ui = SwaggerUIBundle({url: %q, dom_id: '#swagger-ui'});
      };
    </script>
  </body>
</html>`, specURL)
}
