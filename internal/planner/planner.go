// Package planner generates versioned project plans.
package planner

import (
	"context"
	"encoding/json"
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

type Planner struct {
	Repo   repo.Repo
	Client llm.Client
	Ledger ledger.Writer
	Config *config.Config
	Log    *zap.Logger
	Now    func() time.Time
}

func (p *Planner) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

// Generate returns the project's plan. With force=false an existing
// latest version is returned as-is, without a model call. Otherwise a
// new version is appended at max+1.
func (p *Planner) Generate(ctx context.Context, projectID string, force bool) (domain.PlanVersion, error) {
	if !force {
		latest, err := p.Repo.LatestPlanVersion(ctx, projectID)
		if err == nil {
			return latest, nil
		}
		if !errors.Is(err, repo.ErrNotFound) {
			return domain.PlanVersion{}, err
		}
	}

	project, err := p.Repo.GetProject(ctx, projectID)
	if err != nil {
		return domain.PlanVersion{}, fmt.Errorf("project %s: %w", projectID, err)
	}
	tasks, err := p.Repo.ListTasks(ctx, repo.TaskFilters{ProjectID: projectID})
	if err != nil {
		return domain.PlanVersion{}, err
	}

	prompt := buildPlanPrompt(project, tasks)
	policy := retry.Policy{
		MaxAttempts: p.Config.Retry.MaxAttempts,
		BaseDelay:   time.Duration(p.Config.Retry.BaseDelaySecond) * time.Second,
		MaxDelay:    time.Duration(p.Config.Retry.MaxDelaySecond) * time.Second,
	}

	var plan parse.PlanContent
	err = policy.Do(ctx, func(ctx context.Context, a retry.Attempt) error {
		start := p.now()
		resp, callErr := p.Client.Generate(ctx, llm.Request{
			Prompt:      prompt,
			System:      planSystem,
			MaxTokens:   p.Config.LLM.MaxTokens,
			Temperature: p.Config.Temperatures.Planning,
		})
		entry := ledger.Entry{
			ModelName: p.Client.Model(),
			Prompt:    prompt,
			Duration:  p.now().Sub(start),
			Metadata:  map[string]any{"attempt": a.Number, "project_id": projectID, "operation": "generate_plan"},
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
		if lerr := p.Ledger.Append(ctx, entry); lerr != nil {
			p.Log.Warn("ledger append failed", zap.Error(lerr))
		}
		if callErr != nil {
			return callErr
		}
		parsed, parseErr := parse.Plan(resp.Content)
		if parseErr != nil {
			return parseErr
		}
		plan = parsed
		return nil
	})
	if err != nil {
		return domain.PlanVersion{}, fmt.Errorf("generate plan for %s: %w", projectID, err)
	}

	content, err := json.Marshal(plan)
	if err != nil {
		return domain.PlanVersion{}, err
	}
	version, err := p.Repo.InsertPlanVersion(ctx, domain.PlanVersion{
		ID:          uuid.New().String(),
		ProjectID:   projectID,
		ContentJSON: string(content),
		CreatedAt:   p.now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return domain.PlanVersion{}, err
	}
	p.Log.Info("plan version created",
		zap.String("project_id", projectID),
		zap.Int("version", version.VersionNumber))
	return version, nil
}

const planSystem = `You are a project planning assistant. Produce a single JSON object:
{"summary": "...", "goals": ["..."], "roadmap_steps": [{"step_number": 1, "title": "...", "description": "...", "estimated_duration": "...", "dependencies": []}], "milestones": [{"title": "...", "target_date": "YYYY-MM-DD", "deliverables": ["..."]}], "risks": ["..."], "next_steps": ["..."]}
Return only JSON.`

func buildPlanPrompt(project domain.Project, tasks []domain.Task) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Create a project plan.\n\nProject: %s (status: %s)\n", project.Name, project.Status)
	if project.Description != "" {
		fmt.Fprintf(&b, "Description: %s\n", project.Description)
	}
	b.WriteString("\nCurrent tasks:\n")
	if len(tasks) == 0 {
		b.WriteString("(none yet)\n")
	}
	for _, t := range tasks {
		fmt.Fprintf(&b, "- %s (status: %s, priority: %s)\n", t.Title, t.Status, t.Priority)
	}
	return b.String()
}
