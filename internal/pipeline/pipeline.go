// Package pipeline processes feedback items: claim, prompt, model call
// with retries, adjustment persistence, terminal status.
package pipeline

import (
	"context"
	"database/sql"
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
	"taskpilot/internal/repo"
	"taskpilot/internal/retry"
)

// ErrTaskMismatch rejects feedback referencing a task outside the
// stated project, before any model work.
var ErrTaskMismatch = errors.New("task does not belong to project")

type Pipeline struct {
	DB     *sql.DB
	Repo   repo.Repo
	Client llm.Client
	Ledger ledger.Writer
	Config *config.Config
	Log    *zap.Logger
	Now    func() time.Time
}

func (p *Pipeline) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

func (p *Pipeline) policy() retry.Policy {
	return retry.Policy{
		MaxAttempts: p.Config.Retry.MaxAttempts,
		BaseDelay:   time.Duration(p.Config.Retry.BaseDelaySecond) * time.Second,
		MaxDelay:    time.Duration(p.Config.Retry.MaxDelaySecond) * time.Second,
	}
}

// Submit validates and persists a pending feedback row. The caller
// enqueues the processing run separately; Submit never blocks on the
// model.
func (p *Pipeline) Submit(ctx context.Context, projectID string, taskID *string, userName, text string) (domain.Feedback, error) {
	if strings.TrimSpace(text) == "" {
		return domain.Feedback{}, fmt.Errorf("feedback text is required")
	}
	if _, err := p.Repo.GetProject(ctx, projectID); err != nil {
		return domain.Feedback{}, fmt.Errorf("project %s: %w", projectID, err)
	}
	if taskID != nil {
		task, err := p.Repo.GetTask(ctx, *taskID)
		if err != nil {
			return domain.Feedback{}, fmt.Errorf("task %s: %w", *taskID, err)
		}
		if task.ProjectID != projectID {
			return domain.Feedback{}, ErrTaskMismatch
		}
	}
	fb := domain.Feedback{
		ID:           uuid.New().String(),
		ProjectID:    projectID,
		TaskID:       taskID,
		UserName:     userName,
		FeedbackText: text,
		Status:       domain.FeedbackStatusPending,
		CreatedAt:    p.now().UTC().Format(time.RFC3339),
	}
	if err := p.Repo.InsertFeedback(ctx, fb); err != nil {
		return domain.Feedback{}, err
	}
	return fb, nil
}

// Process drives one feedback item to a terminal status. The status
// column is the lock: a conditional update claims pending rows, and a
// losing racer returns without side effects.
func (p *Pipeline) Process(ctx context.Context, feedbackID string) error {
	claimed, err := p.Repo.ClaimFeedback(ctx, feedbackID)
	if err != nil {
		return fmt.Errorf("claim feedback %s: %w", feedbackID, err)
	}
	if !claimed {
		p.Log.Debug("feedback already claimed or terminal", zap.String("feedback_id", feedbackID))
		return nil
	}

	fb, err := p.Repo.GetFeedback(ctx, feedbackID)
	if err != nil {
		return p.fail(ctx, feedbackID, err)
	}
	project, err := p.Repo.GetProject(ctx, fb.ProjectID)
	if err != nil {
		return p.fail(ctx, feedbackID, err)
	}
	tasks, err := p.Repo.ListTasks(ctx, repo.TaskFilters{ProjectID: fb.ProjectID})
	if err != nil {
		return p.fail(ctx, feedbackID, err)
	}

	prompt := buildReplanPrompt(project, tasks, fb)

	var result parse.ReplanResult
	err = p.policy().Do(ctx, func(ctx context.Context, a retry.Attempt) error {
		resp, callErr := p.generate(ctx, llm.Request{
			Prompt:      prompt,
			System:      replanSystem,
			MaxTokens:   p.Config.LLM.MaxTokens,
			Temperature: p.Config.Temperatures.Feedback,
		}, fb.UserName, a.Number, map[string]any{"feedback_id": fb.ID})
		if callErr != nil {
			return callErr
		}
		parsed, parseErr := parse.Adjustments(resp.Content)
		if parseErr != nil {
			return parseErr
		}
		result = parsed
		return nil
	})
	if err != nil {
		p.Log.Warn("feedback processing exhausted retries",
			zap.String("feedback_id", fb.ID), zap.Error(err))
		return p.fail(ctx, feedbackID, err)
	}

	if err := p.complete(ctx, fb, result); err != nil {
		return err
	}
	p.Log.Info("feedback processed",
		zap.String("feedback_id", fb.ID),
		zap.Int("adjustments", len(result.Adjustments)))
	return nil
}

// generate runs one model call and appends a ledger entry regardless of
// outcome.
func (p *Pipeline) generate(ctx context.Context, req llm.Request, userID string, attempt int, meta map[string]any) (llm.Response, error) {
	start := p.now()
	resp, err := p.Client.Generate(ctx, req)
	entry := ledger.Entry{
		UserID:    userID,
		ModelName: p.Client.Model(),
		Prompt:    req.Prompt,
		Duration:  p.now().Sub(start),
		Metadata:  map[string]any{"attempt": attempt},
	}
	for k, v := range meta {
		entry.Metadata[k] = v
	}
	if err != nil {
		entry.Status = "error"
		if errors.Is(err, llm.ErrTimeout) {
			entry.Status = "timeout"
		}
		entry.ErrorMessage = err.Error()
	} else {
		entry.Status = "success"
		entry.Response = resp.Content
		entry.TokensUsed = resp.TokensUsed
	}
	if lerr := p.Ledger.Append(ctx, entry); lerr != nil {
		p.Log.Warn("ledger append failed", zap.Error(lerr))
	}
	return resp, err
}

// complete inserts adjustments and flips status in one transaction, so
// a completed feedback always has its full adjustment set visible.
func (p *Pipeline) complete(ctx context.Context, fb domain.Feedback, result parse.ReplanResult) error {
	tx, err := p.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	ts := p.now().UTC().Format(time.RFC3339)
	for _, item := range result.Adjustments {
		adj := domain.Adjustment{
			ID:             uuid.New().String(),
			FeedbackID:     fb.ID,
			AdjustmentType: item.AdjustmentType,
			TaskID:         item.TaskID,
			Description:    item.Description,
			OriginalValue:  item.OriginalValue,
			NewValue:       item.NewValue,
			Reasoning:      item.Reasoning,
			CreatedAt:      ts,
		}
		if err := p.Repo.InsertAdjustmentTx(ctx, tx, adj); err != nil {
			return fmt.Errorf("insert adjustment: %w", err)
		}
	}
	if err := p.Repo.FinishFeedbackTx(ctx, tx, fb.ID, domain.FeedbackStatusCompleted, ts); err != nil {
		return err
	}
	return tx.Commit()
}

func (p *Pipeline) fail(ctx context.Context, feedbackID string, cause error) error {
	tx, err := p.DB.BeginTx(ctx, nil)
	if err != nil {
		return errors.Join(cause, err)
	}
	defer tx.Rollback()
	ts := p.now().UTC().Format(time.RFC3339)
	if err := p.Repo.FinishFeedbackTx(ctx, tx, feedbackID, domain.FeedbackStatusFailed, ts); err != nil {
		return errors.Join(cause, err)
	}
	if err := tx.Commit(); err != nil {
		return errors.Join(cause, err)
	}
	return fmt.Errorf("feedback %s failed: %w", feedbackID, cause)
}

const replanSystem = `You are a project management assistant. Analyze the user feedback against the project state and respond with a single JSON object:
{"summary": "...", "adjustments": [{"task_id": "... or null", "adjustment_type": "task_priority|task_description|task_status|new_task|remove_task|task_estimate|general", "description": "...", "original_value": "... or null", "new_value": "... or null", "reasoning": "..."}]}
Return only JSON.`

func buildReplanPrompt(project domain.Project, tasks []domain.Task, fb domain.Feedback) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Project: %s (status: %s)\n", project.Name, project.Status)
	if project.Description != "" {
		fmt.Fprintf(&b, "Description: %s\n", project.Description)
	}
	b.WriteString("\nTasks:\n")
	if len(tasks) == 0 {
		b.WriteString("(none)\n")
	}
	for _, t := range tasks {
		fmt.Fprintf(&b, "- [%s] %s (status: %s, priority: %s", t.ID, t.Title, t.Status, t.Priority)
		if t.EstimatedHours != nil {
			fmt.Fprintf(&b, ", estimate: %.1fh", *t.EstimatedHours)
		}
		if t.DueDate != nil {
			fmt.Fprintf(&b, ", due: %s", *t.DueDate)
		}
		b.WriteString(")\n")
	}
	if fb.TaskID != nil {
		fmt.Fprintf(&b, "\nThe feedback concerns task %s, but adjustments may touch any task.\n", *fb.TaskID)
	}
	fmt.Fprintf(&b, "\nFeedback from %s:\n%s\n", orAnonymous(fb.UserName), fb.FeedbackText)
	return b.String()
}

func orAnonymous(name string) string {
	if name == "" {
		return "anonymous"
	}
	return name
}
