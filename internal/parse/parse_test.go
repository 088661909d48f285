package parse_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskpilot/internal/domain"
	"taskpilot/internal/parse"
)

func TestExtractJSONFromProse(t *testing.T) {
	raw := `Sure, here is the result you asked for:

{"summary": "ok", "adjustments": []}

Let me know if you need anything else.`
	extracted, ok := parse.ExtractJSON(raw)
	require.True(t, ok)
	assert.JSONEq(t, `{"summary": "ok", "adjustments": []}`, extracted)
}

func TestExtractJSONFromFencedBlock(t *testing.T) {
	raw := "```json\n{\"summary\": \"fenced\", \"adjustments\": []}\n```"
	extracted, ok := parse.ExtractJSON(raw)
	require.True(t, ok)
	assert.Contains(t, extracted, "fenced")
}

func TestExtractJSONNestedBracesInStrings(t *testing.T) {
	raw := `{"summary": "object like {a: {b}} inside", "adjustments": [{"adjustment_type": "general", "description": "use }{ carefully", "reasoning": "r"}]}`
	extracted, ok := parse.ExtractJSON(raw)
	require.True(t, ok)
	assert.Equal(t, raw, extracted)
}

func TestExtractJSONSkipsUnbalancedCandidate(t *testing.T) {
	raw := `broken { not json. valid follows: {"a": 1}`
	extracted, ok := parse.ExtractJSON(raw)
	require.True(t, ok)
	assert.Equal(t, `{"a": 1}`, extracted)
}

func TestAdjustmentsHappyPath(t *testing.T) {
	raw := `{"summary": "reprioritize", "adjustments": [
		{"task_id": "t-1", "adjustment_type": "task_priority", "description": "raise", "original_value": "low", "new_value": "urgent", "reasoning": "deadline moved"}
	]}`
	result, err := parse.Adjustments(raw)
	require.NoError(t, err)
	assert.Equal(t, "reprioritize", result.Summary)
	require.Len(t, result.Adjustments, 1)
	a := result.Adjustments[0]
	assert.Equal(t, domain.AdjustmentTaskPriority, a.AdjustmentType)
	require.NotNil(t, a.TaskID)
	assert.Equal(t, "t-1", *a.TaskID)
	require.NotNil(t, a.NewValue)
	assert.Equal(t, "urgent", *a.NewValue)
}

func TestAdjustmentsProseFallsBackToGeneral(t *testing.T) {
	result, err := parse.Adjustments("I think the project is going fine, no structured changes needed.")
	require.NoError(t, err)
	require.Len(t, result.Adjustments, 1)
	assert.Equal(t, domain.AdjustmentGeneral, result.Adjustments[0].AdjustmentType)
	assert.Contains(t, result.Adjustments[0].Description, "going fine")
}

func TestAdjustmentsMissingListFallsBackToGeneral(t *testing.T) {
	result, err := parse.Adjustments(`{"summary": "nothing actionable"}`)
	require.NoError(t, err)
	require.Len(t, result.Adjustments, 1)
	assert.Equal(t, domain.AdjustmentGeneral, result.Adjustments[0].AdjustmentType)
}

func TestAdjustmentsUnknownTypeCoercedToGeneral(t *testing.T) {
	raw := `{"summary": "s", "adjustments": [{"adjustment_type": "reshuffle_everything", "description": "d", "reasoning": "r"}]}`
	result, err := parse.Adjustments(raw)
	require.NoError(t, err)
	require.Len(t, result.Adjustments, 1)
	assert.Equal(t, domain.AdjustmentGeneral, result.Adjustments[0].AdjustmentType)
}

func TestAdjustmentsEmptyIsMalformed(t *testing.T) {
	_, err := parse.Adjustments("   \n ")
	assert.ErrorIs(t, err, parse.ErrMalformedOutput)
}

func TestPlanHappyPath(t *testing.T) {
	raw := `Here is the plan:
{"summary": "ship v1", "goals": ["launch"], "roadmap_steps": [{"step_number": 1, "title": "build", "description": "d", "estimated_duration": "2 weeks", "dependencies": []}], "milestones": [{"title": "beta", "target_date": "2026-10-01", "deliverables": ["app"]}], "risks": ["scope"], "next_steps": ["kickoff"]}`
	plan, err := parse.Plan(raw)
	require.NoError(t, err)
	assert.Equal(t, "ship v1", plan.Summary)
	require.Len(t, plan.RoadmapSteps, 1)
	assert.Equal(t, 1, plan.RoadmapSteps[0].StepNumber)
	require.Len(t, plan.Milestones, 1)
	assert.Equal(t, "2026-10-01", plan.Milestones[0].TargetDate)
}

func TestPlanDefaultsOptionalFields(t *testing.T) {
	plan, err := parse.Plan(`{"summary": "minimal"}`)
	require.NoError(t, err)
	assert.NotNil(t, plan.Goals)
	assert.NotNil(t, plan.Risks)
	assert.NotNil(t, plan.NextSteps)
	assert.Empty(t, plan.Goals)
}

func TestPlanProseIsMalformed(t *testing.T) {
	_, err := parse.Plan("I could not produce a plan right now.")
	assert.ErrorIs(t, err, parse.ErrMalformedOutput)
}

func TestClassifyHappyPath(t *testing.T) {
	raw := `{"action": "create_task", "project_id": "p-1", "task_title": "Fix login", "reasoning": "bug report"}`
	c, err := parse.Classify(raw)
	require.NoError(t, err)
	assert.Equal(t, domain.ActionCreateTask, c.Action)
	assert.Equal(t, "p-1", c.ProjectID)
}

func TestClassifyUnknownActionFallsBackToNoAction(t *testing.T) {
	c, err := parse.Classify(`{"action": "summon_dragon"}`)
	require.NoError(t, err)
	assert.Equal(t, domain.ActionNoAction, c.Action)
}

func TestClassifyProseFallsBackToNoAction(t *testing.T) {
	c, err := parse.Classify("hmm, not sure what to do with this")
	require.NoError(t, err)
	assert.Equal(t, domain.ActionNoAction, c.Action)
}
