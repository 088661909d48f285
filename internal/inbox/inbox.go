// Package inbox triages free-text capture into projects and tasks.
package inbox

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"taskpilot/internal/config"
	"taskpilot/internal/domain"
	"taskpilot/internal/ledger"
	"taskpilot/internal/llm"
	"taskpilot/internal/parse"
	"taskpilot/internal/planner"
	"taskpilot/internal/repo"
	"taskpilot/internal/retry"
)

type Classifier struct {
	Repo    repo.Repo
	Client  llm.Client
	Ledger  ledger.Writer
	Config  *config.Config
	Planner *planner.Planner
	Log     *zap.Logger
	Now     func() time.Time

	// Defer runs plan generation off the request path. Left nil, the
	// trigger runs inline.
	Defer func(func(ctx context.Context) error)
}

func (c *Classifier) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

// Capture persists an unprocessed inbox item.
func (c *Classifier) Capture(ctx context.Context, userID, content string) (domain.InboxItem, error) {
	if strings.TrimSpace(content) == "" {
		return domain.InboxItem{}, fmt.Errorf("inbox content is required")
	}
	ts := c.now().UTC().Format(time.RFC3339)
	item := domain.InboxItem{
		ID:        uuid.New().String(),
		UserID:    userID,
		Content:   content,
		Status:    domain.InboxStatusUnprocessed,
		CreatedAt: ts,
		UpdatedAt: ts,
	}
	if err := c.Repo.InsertInboxItem(ctx, item); err != nil {
		return domain.InboxItem{}, err
	}
	return item, nil
}

// Result reports what the classifier did with one item.
type Result struct {
	Action    string  `json:"action"`
	ProjectID *string `json:"project_id,omitempty"`
	TaskID    *string `json:"task_id,omitempty"`
	Reasoning string  `json:"reasoning,omitempty"`
}

// Process classifies a claimed item and materializes the outcome. A
// second concurrent call on the same item no-ops.
func (c *Classifier) Process(ctx context.Context, itemID string) (Result, error) {
	claimed, err := c.Repo.ClaimInboxItem(ctx, itemID)
	if err != nil {
		return Result{}, err
	}
	if !claimed {
		c.Log.Debug("inbox item already processed", zap.String("item_id", itemID))
		return Result{Action: domain.ActionNoAction, Reasoning: "already processed"}, nil
	}
	item, err := c.Repo.GetInboxItem(ctx, itemID)
	if err != nil {
		return Result{}, err
	}
	projects, err := c.Repo.ListProjects(ctx)
	if err != nil {
		return Result{}, err
	}

	classification, err := c.classify(ctx, item, projects)
	if err != nil {
		return Result{}, err
	}
	return c.apply(ctx, item, classification)
}

func (c *Classifier) classify(ctx context.Context, item domain.InboxItem, projects []domain.Project) (parse.Classification, error) {
	prompt := buildClassifyPrompt(item, projects)
	policy := retry.Policy{
		MaxAttempts: c.Config.Retry.MaxAttempts,
		BaseDelay:   time.Duration(c.Config.Retry.BaseDelaySecond) * time.Second,
		MaxDelay:    time.Duration(c.Config.Retry.MaxDelaySecond) * time.Second,
	}
	var out parse.Classification
	err := policy.Do(ctx, func(ctx context.Context, a retry.Attempt) error {
		start := c.now()
		resp, callErr := c.Client.Generate(ctx, llm.Request{
			Prompt:      prompt,
			System:      classifySystem,
			MaxTokens:   c.Config.LLM.MaxTokens,
			Temperature: c.Config.Temperatures.Classifier,
		})
		entry := ledger.Entry{
			UserID:    item.UserID,
			ModelName: c.Client.Model(),
			Prompt:    prompt,
			Duration:  c.now().Sub(start),
			Metadata:  map[string]any{"attempt": a.Number, "inbox_item_id": item.ID, "operation": "classify"},
		}
		if callErr != nil {
			entry.Status = "error"
			if errors.Is(callErr, llm.ErrTimeout) {
				entry.Status = "timeout"
			}
			entry.ErrorMessage = callErr.Error()
		} else {
			entry.Status = "success"
			entry.Response = resp.Content
			entry.TokensUsed = resp.TokensUsed
		}
		if lerr := c.Ledger.Append(ctx, entry); lerr != nil {
			c.Log.Warn("ledger append failed", zap.Error(lerr))
		}
		if callErr != nil {
			return callErr
		}
		parsed, parseErr := parse.Classify(resp.Content)
		if parseErr != nil {
			return parseErr
		}
		out = parsed
		return nil
	})
	return out, err
}

func (c *Classifier) apply(ctx context.Context, item domain.InboxItem, cl parse.Classification) (Result, error) {
	ts := c.now().UTC().Format(time.RFC3339)
	switch cl.Action {
	case domain.ActionCreateProject:
		project := domain.Project{
			ID:          uuid.New().String(),
			Name:        firstNonEmpty(cl.ProjectName, clipLine(item.Content)),
			Description: cl.ProjectDescription,
			Status:      domain.ProjectStatusActive,
			CreatedAt:   ts,
			UpdatedAt:   ts,
		}
		if err := c.Repo.InsertProject(ctx, project); err != nil {
			return Result{}, err
		}
		if err := c.Repo.LinkInboxItem(ctx, item.ID, &project.ID, nil, ts); err != nil {
			return Result{}, err
		}
		c.triggerPlan(ctx, project.ID)
		return Result{Action: cl.Action, ProjectID: &project.ID, Reasoning: cl.Reasoning}, nil

	case domain.ActionCreateTask, domain.ActionAttachToExisting:
		projectID := cl.ProjectID
		if _, err := c.Repo.GetProject(ctx, projectID); err != nil {
			c.Log.Warn("classifier referenced unknown project, keeping item",
				zap.String("item_id", item.ID), zap.String("project_id", projectID))
			return Result{Action: domain.ActionNoAction, Reasoning: "referenced project not found"}, nil
		}
		task := domain.Task{
			ID:        uuid.New().String(),
			ProjectID: projectID,
			Title:     firstNonEmpty(cl.TaskTitle, clipLine(item.Content)),
			Status:    domain.TaskStatusTodo,
			Priority:  domain.PriorityMedium,
			CreatedAt: ts,
			UpdatedAt: ts,
		}
		if cl.TaskDescription != "" {
			task.Description = cl.TaskDescription
		}
		if item.UserID != "" {
			task.AssigneeID = &item.UserID
		}
		if err := c.Repo.InsertTask(ctx, task); err != nil {
			return Result{}, err
		}
		if err := c.Repo.LinkInboxItem(ctx, item.ID, &projectID, &task.ID, ts); err != nil {
			return Result{}, err
		}
		return Result{Action: cl.Action, ProjectID: &projectID, TaskID: &task.ID, Reasoning: cl.Reasoning}, nil

	default:
		if err := c.Repo.LinkInboxItem(ctx, item.ID, nil, nil, ts); err != nil {
			return Result{}, err
		}
		return Result{Action: domain.ActionNoAction, Reasoning: cl.Reasoning}, nil
	}
}

// triggerPlan starts plan generation for a fresh project. Failure never
// propagates to the item that triggered it.
func (c *Classifier) triggerPlan(ctx context.Context, projectID string) {
	if !c.Config.AutoPlan || c.Planner == nil {
		return
	}
	job := func(ctx context.Context) error {
		if _, err := c.Planner.Generate(ctx, projectID, false); err != nil {
			c.Log.Warn("auto plan generation failed",
				zap.String("project_id", projectID), zap.Error(err))
		}
		return nil
	}
	if c.Defer != nil {
		c.Defer(job)
		return
	}
	job(ctx)
}

const classifySystem = `You are an inbox triage assistant. Given a captured note and the list of existing projects, respond with a single JSON object:
{"action": "create_project|create_task|attach_to_existing|no_action", "project_name": "...", "project_description": "...", "task_title": "...", "task_description": "...", "project_id": "id of an existing project when attaching", "reasoning": "..."}
Return only JSON.`

func buildClassifyPrompt(item domain.InboxItem, projects []domain.Project) string {
	var b strings.Builder
	b.WriteString("Existing projects:\n")
	if len(projects) == 0 {
		b.WriteString("(none)\n")
	}
	for _, p := range projects {
		fmt.Fprintf(&b, "- [%s] %s (status: %s)\n", p.ID, p.Name, p.Status)
	}
	fmt.Fprintf(&b, "\nCaptured note:\n%s\n", item.Content)
	return b.String()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return "Untitled"
}

func clipLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if len(s) > 80 {
		s = s[:80]
	}
	return s
}
