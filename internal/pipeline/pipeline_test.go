package pipeline_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"taskpilot/internal/config"
	"taskpilot/internal/db"
	"taskpilot/internal/domain"
	"taskpilot/internal/ledger"
	"taskpilot/internal/llm"
	"taskpilot/internal/migrate"
	"taskpilot/internal/pipeline"
	"taskpilot/internal/repo"
)

var now = time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)

type testEnv struct {
	Pipeline *pipeline.Pipeline
	Client   *llm.FakeClient
	Repo     repo.Repo
	Ctx      context.Context
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, migrate.Migrate(conn))

	cfg := config.Default()
	cfg.LLM.Provider = "fake"
	cfg.Retry.BaseDelaySecond = 0
	cfg.Retry.MaxDelaySecond = 0

	client := llm.NewFakeClient(nil)
	r := repo.Repo{DB: conn}
	p := &pipeline.Pipeline{
		DB:     conn,
		Repo:   r,
		Client: client,
		Ledger: ledger.Writer{DB: conn, Now: func() time.Time { return now }},
		Config: cfg,
		Log:    zap.NewNop(),
		Now:    func() time.Time { return now },
	}

	ctx := context.Background()
	ts := now.Format(time.RFC3339)
	require.NoError(t, r.InsertProject(ctx, domain.Project{
		ID: "p-1", Name: "Website", Status: domain.ProjectStatusActive, CreatedAt: ts, UpdatedAt: ts,
	}))
	require.NoError(t, r.InsertTask(ctx, domain.Task{
		ID: "t-1", ProjectID: "p-1", Title: "Build homepage", Status: domain.TaskStatusTodo,
		Priority: domain.PriorityMedium, CreatedAt: ts, UpdatedAt: ts,
	}))
	return testEnv{Pipeline: p, Client: client, Repo: r, Ctx: ctx}
}

func (env testEnv) ledgerRows(t *testing.T) int {
	t.Helper()
	var n int
	require.NoError(t, env.Pipeline.DB.QueryRow(`SELECT COUNT(*) FROM llm_call_logs`).Scan(&n))
	return n
}

func TestSubmitRejectsEmptyText(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.Pipeline.Submit(env.Ctx, "p-1", nil, "amy", "  ")
	assert.Error(t, err)
}

func TestSubmitRejectsUnknownProject(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.Pipeline.Submit(env.Ctx, "nope", nil, "amy", "slow progress")
	assert.ErrorIs(t, err, repo.ErrNotFound)
}

func TestSubmitRejectsForeignTask(t *testing.T) {
	env := newTestEnv(t)
	ts := now.Format(time.RFC3339)
	require.NoError(t, env.Repo.InsertProject(env.Ctx, domain.Project{
		ID: "p-2", Name: "Other", Status: domain.ProjectStatusActive, CreatedAt: ts, UpdatedAt: ts,
	}))
	taskID := "t-1" // belongs to p-1
	_, err := env.Pipeline.Submit(env.Ctx, "p-2", &taskID, "amy", "wrong scope")
	assert.ErrorIs(t, err, pipeline.ErrTaskMismatch)
}

func TestProcessHappyPath(t *testing.T) {
	env := newTestEnv(t)
	env.Client.Queue(`{"summary": "raise priority", "adjustments": [
		{"task_id": "t-1", "adjustment_type": "task_priority", "description": "bump", "original_value": "medium", "new_value": "urgent", "reasoning": "feedback says it is blocking"},
		{"adjustment_type": "new_task", "description": "add QA pass", "reasoning": "quality concerns"}
	]}`)

	fb, err := env.Pipeline.Submit(env.Ctx, "p-1", nil, "amy", "homepage is blocking the launch")
	require.NoError(t, err)
	require.NoError(t, env.Pipeline.Process(env.Ctx, fb.ID))

	got, err := env.Repo.GetFeedback(env.Ctx, fb.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.FeedbackStatusCompleted, got.Status)
	require.NotNil(t, got.ProcessedAt)

	adjustments, err := env.Repo.ListAdjustments(env.Ctx, fb.ID)
	require.NoError(t, err)
	require.Len(t, adjustments, 2)
	assert.Equal(t, domain.AdjustmentTaskPriority, adjustments[0].AdjustmentType)
	require.NotNil(t, adjustments[0].TaskID)
	assert.Equal(t, "t-1", *adjustments[0].TaskID)

	assert.Equal(t, 1, env.ledgerRows(t))
}

func TestProcessMalformedOutputCompletesWithGeneralAdjustment(t *testing.T) {
	env := newTestEnv(t)
	env.Client.Queue("Honestly everything looks fine to me, keep going!")

	fb, err := env.Pipeline.Submit(env.Ctx, "p-1", nil, "amy", "any thoughts?")
	require.NoError(t, err)
	require.NoError(t, env.Pipeline.Process(env.Ctx, fb.ID))

	got, err := env.Repo.GetFeedback(env.Ctx, fb.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.FeedbackStatusCompleted, got.Status)

	adjustments, err := env.Repo.ListAdjustments(env.Ctx, fb.ID)
	require.NoError(t, err)
	require.Len(t, adjustments, 1)
	assert.Equal(t, domain.AdjustmentGeneral, adjustments[0].AdjustmentType)
}

func TestProcessExhaustedRetriesFails(t *testing.T) {
	env := newTestEnv(t)
	for i := 0; i < 3; i++ {
		env.Client.QueueError(fmt.Errorf("%w: connection refused", llm.ErrUnavailable))
	}

	fb, err := env.Pipeline.Submit(env.Ctx, "p-1", nil, "amy", "please replan")
	require.NoError(t, err)
	err = env.Pipeline.Process(env.Ctx, fb.ID)
	require.Error(t, err)

	got, err := env.Repo.GetFeedback(env.Ctx, fb.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.FeedbackStatusFailed, got.Status)
	require.NotNil(t, got.ProcessedAt)

	adjustments, err := env.Repo.ListAdjustments(env.Ctx, fb.ID)
	require.NoError(t, err)
	assert.Empty(t, adjustments)

	assert.Equal(t, 3, env.ledgerRows(t))
	assert.Equal(t, 3, env.Client.Calls())
}

func TestProcessEmptyResponseRetriesThenFails(t *testing.T) {
	env := newTestEnv(t)
	for i := 0; i < 3; i++ {
		env.Client.Queue("")
	}
	fb, err := env.Pipeline.Submit(env.Ctx, "p-1", nil, "amy", "anything?")
	require.NoError(t, err)
	require.Error(t, env.Pipeline.Process(env.Ctx, fb.ID))

	got, err := env.Repo.GetFeedback(env.Ctx, fb.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.FeedbackStatusFailed, got.Status)
}

func TestProcessIsNoOpOnTerminalFeedback(t *testing.T) {
	env := newTestEnv(t)
	env.Client.Queue(`{"summary": "s", "adjustments": [{"adjustment_type": "general", "description": "d", "reasoning": "r"}]}`)

	fb, err := env.Pipeline.Submit(env.Ctx, "p-1", nil, "amy", "first run")
	require.NoError(t, err)
	require.NoError(t, env.Pipeline.Process(env.Ctx, fb.ID))
	calls := env.Client.Calls()

	// Second run must not re-claim or call the model again.
	require.NoError(t, env.Pipeline.Process(env.Ctx, fb.ID))
	assert.Equal(t, calls, env.Client.Calls())

	adjustments, err := env.Repo.ListAdjustments(env.Ctx, fb.ID)
	require.NoError(t, err)
	assert.Len(t, adjustments, 1)
}

func TestConcurrentProcessingClaimsOnce(t *testing.T) {
	env := newTestEnv(t)
	env.Client.Queue(`{"summary": "s", "adjustments": [{"adjustment_type": "general", "description": "d", "reasoning": "r"}]}`)

	fb, err := env.Pipeline.Submit(env.Ctx, "p-1", nil, "amy", "race me")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			env.Pipeline.Process(env.Ctx, fb.ID)
		}()
	}
	wg.Wait()

	got, err := env.Repo.GetFeedback(env.Ctx, fb.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.FeedbackStatusCompleted, got.Status)

	adjustments, err := env.Repo.ListAdjustments(env.Ctx, fb.ID)
	require.NoError(t, err)
	assert.Len(t, adjustments, 1)
	assert.Equal(t, 1, env.Client.Calls())
}

func TestPromptCarriesProjectContext(t *testing.T) {
	env := newTestEnv(t)
	env.Client.Queue(`{"summary": "s", "adjustments": [{"adjustment_type": "general", "description": "d", "reasoning": "r"}]}`)

	taskID := "t-1"
	fb, err := env.Pipeline.Submit(env.Ctx, "p-1", &taskID, "amy", "the homepage copy reads clunky")
	require.NoError(t, err)
	require.NoError(t, env.Pipeline.Process(env.Ctx, fb.ID))

	prompt := env.Client.LastRequest().Prompt
	assert.Contains(t, prompt, "Website")
	assert.Contains(t, prompt, "Build homepage")
	assert.Contains(t, prompt, "the homepage copy reads clunky")
	assert.Contains(t, prompt, "t-1")
}
