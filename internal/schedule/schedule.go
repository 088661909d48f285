// Package schedule implements the daily top-3 scheduler. Scoring and
// selection are pure; the engine wraps them with idempotent
// persistence per (user, date).
package schedule

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"taskpilot/internal/domain"
	"taskpilot/internal/repo"
)

const DateFormat = "2006-01-02"

// MaxSlots is the number of daily summary slots per user per day.
const MaxSlots = 3

// Score rates a task for a given day. Components are additive:
// priority base, in-progress bonus, due-date proximity, age.
func Score(task domain.Task, asOf time.Time) int {
	score := 0
	switch task.Priority {
	case domain.PriorityUrgent:
		score += 40
	case domain.PriorityHigh:
		score += 30
	case domain.PriorityMedium:
		score += 20
	case domain.PriorityLow:
		score += 10
	}
	if task.Status == domain.TaskStatusInProgress {
		score += 15
	}
	if days, ok := daysUntilDue(task, asOf); ok {
		switch {
		case days < 0:
			score += 50
		case days == 0:
			score += 40
		case days <= 3:
			score += 30
		case days <= 7:
			score += 20
		case days <= 14:
			score += 10
		}
	}
	if created, err := parseWhen(task.CreatedAt); err == nil {
		if dayDiff(created, asOf) >= 30 {
			score += 5
		}
	}
	return score
}

// SelectTop orders eligible tasks by score descending, then earliest
// due date, then smallest id, and returns at most MaxSlots of them.
func SelectTop(tasks []domain.Task, asOf time.Time) []domain.Task {
	eligible := make([]domain.Task, 0, len(tasks))
	for _, t := range tasks {
		if t.Status == domain.TaskStatusTodo || t.Status == domain.TaskStatusInProgress {
			eligible = append(eligible, t)
		}
	}
	sort.SliceStable(eligible, func(i, j int) bool {
		si, sj := Score(eligible[i], asOf), Score(eligible[j], asOf)
		if si != sj {
			return si > sj
		}
		di, iok := dueTime(eligible[i])
		dj, jok := dueTime(eligible[j])
		if iok != jok {
			return iok
		}
		if iok && jok && !di.Equal(dj) {
			return di.Before(dj)
		}
		return eligible[i].ID < eligible[j].ID
	})
	if len(eligible) > MaxSlots {
		eligible = eligible[:MaxSlots]
	}
	return eligible
}

type Engine struct {
	DB   *sql.DB
	Repo repo.Repo
	Log  *zap.Logger
	Now  func() time.Time
}

func (e *Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// TodayPlan returns the user's summary slots for the day, generating
// them on first call. Subsequent calls return the stored rows.
func (e *Engine) TodayPlan(ctx context.Context, userID string, date time.Time) ([]domain.DailySummary, error) {
	day := date.Format(DateFormat)
	existing, err := e.Repo.ListDailySummaries(ctx, userID, day)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return existing, nil
	}
	return e.generate(ctx, userID, date)
}

// Regenerate discards the day's slots and rescores.
func (e *Engine) Regenerate(ctx context.Context, userID string, date time.Time) ([]domain.DailySummary, error) {
	day := date.Format(DateFormat)
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()
	if err := e.Repo.DeleteDailySummariesTx(ctx, tx, userID, day); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return e.generate(ctx, userID, date)
}

func (e *Engine) generate(ctx context.Context, userID string, date time.Time) ([]domain.DailySummary, error) {
	day := date.Format(DateFormat)
	candidates, err := e.Repo.ListCandidateTasks(ctx, userID)
	if err != nil {
		return nil, err
	}
	top := SelectTop(candidates, date)

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()
	ts := e.now().UTC().Format(time.RFC3339)
	summaries := make([]domain.DailySummary, 0, len(top))
	for i, task := range top {
		s := domain.DailySummary{
			ID:          uuid.New().String(),
			UserID:      userID,
			Date:        day,
			TaskID:      task.ID,
			Rank:        i + 1,
			SummaryText: SummaryText(task, i+1, date),
			CreatedAt:   ts,
		}
		if err := e.Repo.InsertDailySummaryTx(ctx, tx, s); err != nil {
			// A concurrent generator won the unique(user,date,rank)
			// race; return its rows.
			e.Log.Debug("daily plan already generated", zap.String("user_id", userID), zap.String("date", day))
			tx.Rollback()
			return e.Repo.ListDailySummaries(ctx, userID, day)
		}
		summaries = append(summaries, s)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	e.Log.Info("daily plan generated",
		zap.String("user_id", userID), zap.String("date", day), zap.Int("slots", len(summaries)))
	return summaries, nil
}

// MarkComplete records completion of one slot's task. The slot keeps
// its rank and the remaining slots are not rescored.
func (e *Engine) MarkComplete(ctx context.Context, userID, taskID string, date time.Time, hoursWorked *float64) (domain.DailySummary, error) {
	day := date.Format(DateFormat)
	slot, err := e.Repo.GetDailySummaryByTask(ctx, userID, day, taskID)
	if err != nil {
		return domain.DailySummary{}, fmt.Errorf("summary slot for task %s: %w", taskID, err)
	}
	text := slot.SummaryText
	if !slot.Completed {
		text += " - ✅ COMPLETED"
	}
	ts := e.now().UTC().Format(time.RFC3339)

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.DailySummary{}, err
	}
	defer tx.Rollback()
	if err := e.Repo.CompleteTaskTx(ctx, tx, taskID, ts); err != nil {
		return domain.DailySummary{}, err
	}
	if err := e.Repo.MarkSummaryCompleteTx(ctx, tx, userID, day, taskID, text, hoursWorked); err != nil {
		return domain.DailySummary{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.DailySummary{}, err
	}

	slot.Completed = true
	slot.SummaryText = text
	if hoursWorked != nil {
		slot.HoursWorked = hoursWorked
	}
	return slot, nil
}

// PlanSummary aggregates one day's slots.
type PlanSummary struct {
	Date             string                `json:"date"`
	TotalTasks       int                   `json:"total_tasks"`
	CompletedTasks   int                   `json:"completed_tasks"`
	CompletionRate   float64               `json:"completion_rate"`
	TotalHoursWorked float64               `json:"total_hours_worked"`
	Summaries        []domain.DailySummary `json:"summaries"`
}

func (e *Engine) Summary(ctx context.Context, userID string, date time.Time) (PlanSummary, error) {
	day := date.Format(DateFormat)
	rows, err := e.Repo.ListDailySummaries(ctx, userID, day)
	if err != nil {
		return PlanSummary{}, err
	}
	out := PlanSummary{Date: day, TotalTasks: len(rows), Summaries: rows}
	for _, s := range rows {
		if s.Completed {
			out.CompletedTasks++
		}
		if s.HoursWorked != nil {
			out.TotalHoursWorked += *s.HoursWorked
		}
	}
	if out.TotalTasks > 0 {
		out.CompletionRate = float64(out.CompletedTasks) / float64(out.TotalTasks)
	}
	return out, nil
}

// SummaryText renders one slot line, e.g.
// "#1 🔥 Ship the beta (OVERDUE by 2 days)".
func SummaryText(task domain.Task, rank int, asOf time.Time) string {
	text := fmt.Sprintf("#%d %s %s", rank, priorityEmoji(task.Priority), task.Title)
	if days, ok := daysUntilDue(task, asOf); ok {
		switch {
		case days < 0:
			text += fmt.Sprintf(" (OVERDUE by %d days)", -days)
		case days == 0:
			text += " (DUE TODAY)"
		default:
			text += fmt.Sprintf(" (Due in %d days)", days)
		}
	}
	return text
}

func priorityEmoji(priority string) string {
	switch priority {
	case domain.PriorityUrgent:
		return "🔥"
	case domain.PriorityHigh:
		return "⚡"
	case domain.PriorityMedium:
		return "📌"
	default:
		return "💡"
	}
}

func daysUntilDue(task domain.Task, asOf time.Time) (int, bool) {
	due, ok := dueTime(task)
	if !ok {
		return 0, false
	}
	return dayDiff(asOf, due), true
}

func dueTime(task domain.Task) (time.Time, bool) {
	if task.DueDate == nil {
		return time.Time{}, false
	}
	t, err := parseWhen(*task.DueDate)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// dayDiff counts whole calendar days from a to b.
func dayDiff(a, b time.Time) int {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	at := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	bt := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(bt.Sub(at).Hours() / 24)
}

func parseWhen(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse(DateFormat, s)
}
