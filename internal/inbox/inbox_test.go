package inbox_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"taskpilot/internal/config"
	"taskpilot/internal/db"
	"taskpilot/internal/domain"
	"taskpilot/internal/inbox"
	"taskpilot/internal/ledger"
	"taskpilot/internal/llm"
	"taskpilot/internal/migrate"
	"taskpilot/internal/planner"
	"taskpilot/internal/repo"
)

var now = time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)

type testEnv struct {
	Inbox  *inbox.Classifier
	Client *llm.FakeClient
	Repo   repo.Repo
	Ctx    context.Context
}

func newTestEnv(t *testing.T, autoPlan bool) testEnv {
	t.Helper()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, migrate.Migrate(conn))

	cfg := config.Default()
	cfg.LLM.Provider = "fake"
	cfg.Retry.BaseDelaySecond = 0
	cfg.Retry.MaxDelaySecond = 0
	cfg.AutoPlan = autoPlan

	client := llm.NewFakeClient(nil)
	r := repo.Repo{DB: conn}
	lw := ledger.Writer{DB: conn, Now: func() time.Time { return now }}
	pl := &planner.Planner{
		Repo: r, Client: client, Ledger: lw, Config: cfg,
		Log: zap.NewNop(), Now: func() time.Time { return now },
	}
	c := &inbox.Classifier{
		Repo: r, Client: client, Ledger: lw, Config: cfg, Planner: pl,
		Log: zap.NewNop(), Now: func() time.Time { return now },
	}
	return testEnv{Inbox: c, Client: client, Repo: r, Ctx: context.Background()}
}

func TestCaptureRejectsEmptyContent(t *testing.T) {
	env := newTestEnv(t, false)
	_, err := env.Inbox.Capture(env.Ctx, "u-1", "   ")
	assert.Error(t, err)
}

func TestProcessCreatesProjectAndTriggersPlan(t *testing.T) {
	env := newTestEnv(t, true)
	env.Client.Queue(`{"action": "create_project", "project_name": "Garden redesign", "project_description": "Redo the backyard", "reasoning": "new initiative"}`)
	env.Client.Queue(`{"summary": "plant things", "goals": ["greener yard"], "roadmap_steps": [{"step_number": 1, "title": "clear beds", "description": "d", "estimated_duration": "2 days", "dependencies": []}], "milestones": [], "risks": [], "next_steps": []}`)

	item, err := env.Inbox.Capture(env.Ctx, "u-1", "we should redesign the garden this fall")
	require.NoError(t, err)
	result, err := env.Inbox.Process(env.Ctx, item.ID)
	require.NoError(t, err)

	assert.Equal(t, domain.ActionCreateProject, result.Action)
	require.NotNil(t, result.ProjectID)
	project, err := env.Repo.GetProject(env.Ctx, *result.ProjectID)
	require.NoError(t, err)
	assert.Equal(t, "Garden redesign", project.Name)

	pv, err := env.Repo.LatestPlanVersion(env.Ctx, project.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, pv.VersionNumber)

	linked, err := env.Repo.GetInboxItem(env.Ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.InboxStatusProcessed, linked.Status)
	require.NotNil(t, linked.ProjectID)
	assert.Equal(t, project.ID, *linked.ProjectID)
}

func TestProcessPlanFailureDoesNotFailItem(t *testing.T) {
	env := newTestEnv(t, true)
	env.Client.Queue(`{"action": "create_project", "project_name": "Doomed", "reasoning": "r"}`)
	for i := 0; i < 3; i++ {
		env.Client.QueueError(fmt.Errorf("%w: down", llm.ErrUnavailable))
	}

	item, err := env.Inbox.Capture(env.Ctx, "u-1", "start the doomed project")
	require.NoError(t, err)
	result, err := env.Inbox.Process(env.Ctx, item.ID)
	require.NoError(t, err)
	require.NotNil(t, result.ProjectID)

	// The project exists even though plan generation failed.
	_, err = env.Repo.GetProject(env.Ctx, *result.ProjectID)
	require.NoError(t, err)
	_, err = env.Repo.LatestPlanVersion(env.Ctx, *result.ProjectID)
	assert.ErrorIs(t, err, repo.ErrNotFound)
}

func TestProcessCreatesTaskInExistingProject(t *testing.T) {
	env := newTestEnv(t, false)
	ts := now.Format(time.RFC3339)
	require.NoError(t, env.Repo.InsertProject(env.Ctx, domain.Project{
		ID: "p-1", Name: "Website", Status: domain.ProjectStatusActive, CreatedAt: ts, UpdatedAt: ts,
	}))
	env.Client.Queue(`{"action": "create_task", "project_id": "p-1", "task_title": "Fix login", "task_description": "Users report 500s", "reasoning": "bug"}`)

	item, err := env.Inbox.Capture(env.Ctx, "u-1", "login is broken, users see 500s")
	require.NoError(t, err)
	result, err := env.Inbox.Process(env.Ctx, item.ID)
	require.NoError(t, err)

	assert.Equal(t, domain.ActionCreateTask, result.Action)
	require.NotNil(t, result.TaskID)
	task, err := env.Repo.GetTask(env.Ctx, *result.TaskID)
	require.NoError(t, err)
	assert.Equal(t, "Fix login", task.Title)
	assert.Equal(t, "p-1", task.ProjectID)
	require.NotNil(t, task.AssigneeID)
	assert.Equal(t, "u-1", *task.AssigneeID)
}

func TestProcessUnknownReferencedProjectNoActions(t *testing.T) {
	env := newTestEnv(t, false)
	env.Client.Queue(`{"action": "create_task", "project_id": "ghost", "task_title": "x", "reasoning": "r"}`)

	item, err := env.Inbox.Capture(env.Ctx, "u-1", "do something in a project that does not exist")
	require.NoError(t, err)
	result, err := env.Inbox.Process(env.Ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ActionNoAction, result.Action)
}

func TestProcessNoActionOnProse(t *testing.T) {
	env := newTestEnv(t, false)
	env.Client.Queue("this note does not need anything")

	item, err := env.Inbox.Capture(env.Ctx, "u-1", "random musing")
	require.NoError(t, err)
	result, err := env.Inbox.Process(env.Ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ActionNoAction, result.Action)

	got, err := env.Repo.GetInboxItem(env.Ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.InboxStatusProcessed, got.Status)
}

func TestProcessIsNoOpWhenAlreadyProcessed(t *testing.T) {
	env := newTestEnv(t, false)
	env.Client.Queue("nothing to do")

	item, err := env.Inbox.Capture(env.Ctx, "u-1", "one shot only")
	require.NoError(t, err)
	_, err = env.Inbox.Process(env.Ctx, item.ID)
	require.NoError(t, err)
	calls := env.Client.Calls()

	result, err := env.Inbox.Process(env.Ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ActionNoAction, result.Action)
	assert.Equal(t, calls, env.Client.Calls())
}
