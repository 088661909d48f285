package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"taskpilot/internal/config"
	"taskpilot/internal/db"
	"taskpilot/internal/inbox"
	"taskpilot/internal/ledger"
	"taskpilot/internal/llm"
	"taskpilot/internal/migrate"
	"taskpilot/internal/pipeline"
	"taskpilot/internal/planner"
	"taskpilot/internal/repo"
	"taskpilot/internal/schedule"
)

type testServer struct {
	URL    string
	Client *llm.FakeClient
	close  func()
}

func (s *testServer) Close() { s.close() }

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	workspace := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: workspace})
	require.NoError(t, err)
	require.NoError(t, migrate.Migrate(conn))

	cfg := config.Default()
	cfg.LLM.Provider = "fake"
	cfg.Retry.BaseDelaySecond = 0
	cfg.Retry.MaxDelaySecond = 0

	client := llm.NewFakeClient(nil)
	log := zap.NewNop()
	r := repo.Repo{DB: conn}
	lw := ledger.Writer{DB: conn}
	pl := &planner.Planner{Repo: r, Client: client, Ledger: lw, Config: cfg, Log: log}
	pool := pipeline.NewPool(2, 16, log)
	pool.Start(context.Background())

	handler, err := New(Deps{
		Repo:     r,
		Pipeline: &pipeline.Pipeline{DB: conn, Repo: r, Client: client, Ledger: lw, Config: cfg, Log: log},
		Planner:  pl,
		Inbox:    &inbox.Classifier{Repo: r, Client: client, Ledger: lw, Config: cfg, Planner: pl, Log: log},
		Schedule: &schedule.Engine{DB: conn, Repo: r, Log: log},
		Pool:     pool,
		Log:      log,
		BasePath: "/v1",
	})
	require.NoError(t, err)

	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	require.NoError(t, err)
	srv := &http.Server{Handler: handler}
	go srv.Serve(ln)
	ts := &testServer{
		URL:    "http://" + ln.Addr().String(),
		Client: client,
		close: func() {
			srv.Shutdown(context.Background())
			ln.Close()
			pool.Shutdown()
			conn.Close()
		},
	}
	t.Cleanup(ts.Close)
	return ts
}

func doJSON(t *testing.T, method, url string, body any, out any) int {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if out != nil && len(data) > 0 {
		require.NoError(t, json.Unmarshal(data, out), "body: %s", data)
	}
	return resp.StatusCode
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	var body map[string]string
	code := doJSON(t, http.MethodGet, ts.URL+"/v1/health", nil, &body)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])
}

func TestProjectCRUD(t *testing.T) {
	ts := newTestServer(t)
	var project map[string]any
	code := doJSON(t, http.MethodPost, ts.URL+"/v1/projects", map[string]any{
		"name": "Website", "description": "marketing site",
	}, &project)
	require.Equal(t, http.StatusCreated, code)
	id := project["id"].(string)

	var got map[string]any
	code = doJSON(t, http.MethodGet, ts.URL+"/v1/projects/"+id, nil, &got)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Website", got["name"])
	assert.Equal(t, "active", got["status"])

	code = doJSON(t, http.MethodGet, ts.URL+"/v1/projects/nope", nil, nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestCreateProjectRequiresName(t *testing.T) {
	ts := newTestServer(t)
	code := doJSON(t, http.MethodPost, ts.URL+"/v1/projects", map[string]any{"name": ""}, nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestTaskPriorityScaleMapping(t *testing.T) {
	ts := newTestServer(t)
	var project map[string]any
	doJSON(t, http.MethodPost, ts.URL+"/v1/projects", map[string]any{"name": "P"}, &project)
	id := project["id"].(string)

	var task map[string]any
	code := doJSON(t, http.MethodPost, ts.URL+"/v1/projects/"+id+"/tasks", map[string]any{
		"title": "Numeric priority", "priority_scale": 9,
	}, &task)
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, "urgent", task["priority"])
}

func TestSubmitFeedbackReturnsPendingImmediately(t *testing.T) {
	ts := newTestServer(t)
	ts.Client.Queue(`{"summary": "s", "adjustments": [{"adjustment_type": "general", "description": "d", "reasoning": "r"}]}`)

	var project map[string]any
	doJSON(t, http.MethodPost, ts.URL+"/v1/projects", map[string]any{"name": "P"}, &project)
	id := project["id"].(string)

	var ack map[string]any
	code := doJSON(t, http.MethodPost, ts.URL+"/v1/feedback", map[string]any{
		"project_id": id, "user_name": "amy", "feedback_text": "needs work",
	}, &ack)
	require.Equal(t, http.StatusAccepted, code)
	assert.Equal(t, "pending", ack["status"])
	feedbackID := ack["feedback_id"].(string)

	// Poll until the worker finishes; adjustments appear only then.
	deadline := time.Now().Add(5 * time.Second)
	var fb map[string]any
	for {
		doJSON(t, http.MethodGet, ts.URL+"/v1/feedback/"+feedbackID, nil, &fb)
		if fb["status"] == "completed" || fb["status"] == "failed" || time.Now().After(deadline) {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	require.Equal(t, "completed", fb["status"])
	adjustments := fb["adjustments"].([]any)
	assert.Len(t, adjustments, 1)
}

func TestSubmitFeedbackValidation(t *testing.T) {
	ts := newTestServer(t)
	code := doJSON(t, http.MethodPost, ts.URL+"/v1/feedback", map[string]any{
		"project_id": "ghost", "feedback_text": "hello",
	}, nil)
	assert.Equal(t, http.StatusNotFound, code)

	var project map[string]any
	doJSON(t, http.MethodPost, ts.URL+"/v1/projects", map[string]any{"name": "P"}, &project)
	code = doJSON(t, http.MethodPost, ts.URL+"/v1/feedback", map[string]any{
		"project_id": project["id"], "feedback_text": " ",
	}, nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestPlanEndpointCacheAndForce(t *testing.T) {
	ts := newTestServer(t)
	plan := `{"summary": "v", "goals": ["g"], "roadmap_steps": [], "milestones": [], "risks": [], "next_steps": []}`
	ts.Client.Queue(plan).Queue(plan)

	var project map[string]any
	doJSON(t, http.MethodPost, ts.URL+"/v1/projects", map[string]any{"name": "P"}, &project)
	id := project["id"].(string)

	var v1 map[string]any
	code := doJSON(t, http.MethodPost, ts.URL+"/v1/projects/"+id+"/plan", nil, &v1)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(1), v1["version_number"])

	var cached map[string]any
	doJSON(t, http.MethodPost, ts.URL+"/v1/projects/"+id+"/plan", nil, &cached)
	assert.Equal(t, float64(1), cached["version_number"])
	assert.Equal(t, 1, ts.Client.Calls())

	var v2 map[string]any
	doJSON(t, http.MethodPost, ts.URL+"/v1/projects/"+id+"/plan?force=true", nil, &v2)
	assert.Equal(t, float64(2), v2["version_number"])
}

func TestDailyPlanEndpoint(t *testing.T) {
	ts := newTestServer(t)
	var project map[string]any
	doJSON(t, http.MethodPost, ts.URL+"/v1/projects", map[string]any{"name": "P"}, &project)
	id := project["id"].(string)

	var task map[string]any
	doJSON(t, http.MethodPost, ts.URL+"/v1/projects/"+id+"/tasks", map[string]any{
		"title": "Do it", "priority": "urgent", "assignee_id": "u-1",
	}, &task)

	var slots []map[string]any
	code := doJSON(t, http.MethodGet, ts.URL+"/v1/users/u-1/daily", nil, &slots)
	require.Equal(t, http.StatusOK, code)
	require.Len(t, slots, 1)
	assert.Equal(t, float64(1), slots[0]["rank"])
	assert.Equal(t, task["id"], slots[0]["task_id"])
}
