// Package parse turns raw model text into typed results. Models wrap
// JSON in prose and code fences, so extraction is a bracket-balance
// scan over the text rather than a direct unmarshal.
package parse

import (
	"encoding/json"
	"errors"
	"strings"

	"taskpilot/internal/domain"
)

// ErrMalformedOutput is returned only when no reasonable
// interpretation of the text exists, e.g. an empty response.
var ErrMalformedOutput = errors.New("malformed model output")

// ReplanResult is the decoded feedback-analysis payload.
type ReplanResult struct {
	Summary     string           `json:"summary"`
	Adjustments []AdjustmentItem `json:"adjustments"`
}

type AdjustmentItem struct {
	TaskID         *string `json:"task_id"`
	AdjustmentType string  `json:"adjustment_type"`
	Description    string  `json:"description"`
	OriginalValue  *string `json:"original_value"`
	NewValue       *string `json:"new_value"`
	Reasoning      string  `json:"reasoning"`
}

// PlanContent is the stable plan wire format.
type PlanContent struct {
	Summary      string        `json:"summary"`
	Goals        []string      `json:"goals"`
	RoadmapSteps []RoadmapStep `json:"roadmap_steps"`
	Milestones   []Milestone   `json:"milestones"`
	Risks        []string      `json:"risks"`
	NextSteps    []string      `json:"next_steps"`
}

type RoadmapStep struct {
	StepNumber        int    `json:"step_number"`
	Title             string `json:"title"`
	Description       string `json:"description"`
	EstimatedDuration string `json:"estimated_duration"`
	Dependencies      []int  `json:"dependencies"`
}

type Milestone struct {
	Title        string   `json:"title"`
	TargetDate   string   `json:"target_date"`
	Deliverables []string `json:"deliverables"`
}

// Classification is the decoded inbox-triage payload.
type Classification struct {
	Action             string `json:"action"`
	ProjectName        string `json:"project_name"`
	ProjectDescription string `json:"project_description"`
	TaskTitle          string `json:"task_title"`
	TaskDescription    string `json:"task_description"`
	ProjectID          string `json:"project_id"`
	Reasoning          string `json:"reasoning"`
}

// ExtractJSON returns the first syntactically balanced JSON object or
// array found in text. The scan tracks string and escape state so
// braces inside string values do not terminate a candidate early.
func ExtractJSON(text string) (string, bool) {
	for _, c := range candidates(text) {
		if json.Valid([]byte(c)) {
			return c, true
		}
	}
	return "", false
}

func candidates(text string) []string {
	var out []string
	for i := 0; i < len(text); i++ {
		open := text[i]
		if open != '{' && open != '[' {
			continue
		}
		if end, ok := scanBalanced(text, i); ok {
			out = append(out, text[i:end+1])
			i = end
		}
	}
	return out
}

func scanBalanced(text string, start int) (int, bool) {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		ch := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{', '[':
			depth++
		case '}', ']':
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}

// Adjustments decodes a replan result. Unstructured but non-empty text
// degrades to a single general adjustment; only empty text fails.
func Adjustments(raw string) (ReplanResult, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ReplanResult{}, ErrMalformedOutput
	}
	if extracted, ok := ExtractJSON(raw); ok {
		var result ReplanResult
		if err := json.Unmarshal([]byte(extracted), &result); err == nil {
			result = normalizeAdjustments(result, raw)
			return result, nil
		}
	}
	return generalFallback(raw), nil
}

func normalizeAdjustments(r ReplanResult, raw string) ReplanResult {
	if len(r.Adjustments) == 0 {
		return generalFallback(raw)
	}
	kept := r.Adjustments[:0]
	for _, a := range r.Adjustments {
		if !domain.ValidAdjustmentType(a.AdjustmentType) {
			a.AdjustmentType = domain.AdjustmentGeneral
		}
		if a.Description == "" && a.Reasoning == "" {
			continue
		}
		kept = append(kept, a)
	}
	r.Adjustments = kept
	if len(r.Adjustments) == 0 {
		return generalFallback(raw)
	}
	return r
}

func generalFallback(raw string) ReplanResult {
	return ReplanResult{
		Summary: "Model output could not be parsed as structured adjustments.",
		Adjustments: []AdjustmentItem{{
			AdjustmentType: domain.AdjustmentGeneral,
			Description:    clip(raw, 500),
			Reasoning:      "Raw model output preserved as a general note.",
		}},
	}
}

// Plan decodes plan content. The plan shape has no degraded variant,
// so text without a decodable JSON object is malformed.
func Plan(raw string) (PlanContent, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return PlanContent{}, ErrMalformedOutput
	}
	extracted, ok := ExtractJSON(raw)
	if !ok {
		return PlanContent{}, ErrMalformedOutput
	}
	var plan PlanContent
	if err := json.Unmarshal([]byte(extracted), &plan); err != nil {
		return PlanContent{}, ErrMalformedOutput
	}
	if plan.Summary == "" && len(plan.Goals) == 0 && len(plan.RoadmapSteps) == 0 {
		return PlanContent{}, ErrMalformedOutput
	}
	if plan.Goals == nil {
		plan.Goals = []string{}
	}
	if plan.RoadmapSteps == nil {
		plan.RoadmapSteps = []RoadmapStep{}
	}
	if plan.Milestones == nil {
		plan.Milestones = []Milestone{}
	}
	if plan.Risks == nil {
		plan.Risks = []string{}
	}
	if plan.NextSteps == nil {
		plan.NextSteps = []string{}
	}
	return plan, nil
}

// Classify decodes an inbox classification. Anything without a
// recognized action degrades to no_action.
func Classify(raw string) (Classification, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Classification{}, ErrMalformedOutput
	}
	noAction := Classification{
		Action:    domain.ActionNoAction,
		Reasoning: "Model output did not contain a recognized action.",
	}
	extracted, ok := ExtractJSON(raw)
	if !ok {
		return noAction, nil
	}
	var c Classification
	if err := json.Unmarshal([]byte(extracted), &c); err != nil {
		return noAction, nil
	}
	switch c.Action {
	case domain.ActionCreateProject, domain.ActionCreateTask, domain.ActionAttachToExisting, domain.ActionNoAction:
		return c, nil
	default:
		return noAction, nil
	}
}

func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
