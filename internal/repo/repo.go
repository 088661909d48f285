package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"taskpilot/internal/domain"
)

type Repo struct {
	DB *sql.DB
}

var ErrNotFound = errors.New("not found")

const taskColumns = `id,project_id,title,description,status,priority,estimated_hours,due_date,assignee_id,created_at,updated_at,completed_at`

func (r Repo) InsertProject(ctx context.Context, p domain.Project) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO projects(id,name,description,status,created_at,updated_at) VALUES (?,?,?,?,?,?)`,
		p.ID, p.Name, nullable(p.Description), p.Status, p.CreatedAt, p.UpdatedAt)
	return err
}

func (r Repo) GetProject(ctx context.Context, id string) (domain.Project, error) {
	var p domain.Project
	var desc sql.NullString
	err := r.DB.QueryRowContext(ctx, `SELECT id,name,description,status,created_at,updated_at FROM projects WHERE id=?`, id).
		Scan(&p.ID, &p.Name, &desc, &p.Status, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return p, ErrNotFound
	}
	if desc.Valid {
		p.Description = desc.String
	}
	return p, err
}

func (r Repo) ListProjects(ctx context.Context) ([]domain.Project, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,name,description,status,created_at,updated_at FROM projects ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Project
	for rows.Next() {
		var p domain.Project
		var desc sql.NullString
		if err := rows.Scan(&p.ID, &p.Name, &desc, &p.Status, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		if desc.Valid {
			p.Description = desc.String
		}
		res = append(res, p)
	}
	return res, rows.Err()
}

func (r Repo) UpdateProject(ctx context.Context, id string, status *string, description *string, updatedAt string) error {
	var (
		fields []string
		args   []any
	)
	if status != nil {
		fields = append(fields, "status=?")
		args = append(args, *status)
	}
	if description != nil {
		fields = append(fields, "description=?")
		args = append(args, nullable(*description))
	}
	if len(fields) == 0 {
		return nil
	}
	fields = append(fields, "updated_at=?")
	args = append(args, updatedAt, id)
	res, err := r.DB.ExecContext(ctx, fmt.Sprintf(`UPDATE projects SET %s WHERE id=?`, strings.Join(fields, ",")), args...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) DeleteProject(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM projects WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func scanTask(scan func(dest ...any) error) (domain.Task, error) {
	var t domain.Task
	var description, dueDate, assigneeID, completedAt sql.NullString
	var estimate sql.NullFloat64
	err := scan(&t.ID, &t.ProjectID, &t.Title, &description, &t.Status, &t.Priority, &estimate, &dueDate, &assigneeID, &t.CreatedAt, &t.UpdatedAt, &completedAt)
	if err != nil {
		return t, err
	}
	if description.Valid {
		t.Description = description.String
	}
	if estimate.Valid {
		t.EstimatedHours = &estimate.Float64
	}
	if dueDate.Valid {
		t.DueDate = &dueDate.String
	}
	if assigneeID.Valid {
		t.AssigneeID = &assigneeID.String
	}
	if completedAt.Valid {
		t.CompletedAt = &completedAt.String
	}
	return t, nil
}

func (r Repo) InsertTask(ctx context.Context, t domain.Task) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO tasks(`+taskColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		t.ID, t.ProjectID, t.Title, nullable(t.Description), t.Status, t.Priority,
		nullableFloatPtr(t.EstimatedHours), nullableStringPtr(t.DueDate), nullableStringPtr(t.AssigneeID),
		t.CreatedAt, t.UpdatedAt, nullableStringPtr(t.CompletedAt))
	return err
}

func (r Repo) GetTask(ctx context.Context, id string) (domain.Task, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id=?`, id)
	t, err := scanTask(row.Scan)
	if err == sql.ErrNoRows {
		return t, ErrNotFound
	}
	return t, err
}

func (r Repo) UpdateTask(ctx context.Context, t domain.Task) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE tasks SET title=?, description=?, status=?, priority=?, estimated_hours=?, due_date=?, assignee_id=?, updated_at=?, completed_at=? WHERE id=?`,
		t.Title, nullable(t.Description), t.Status, t.Priority,
		nullableFloatPtr(t.EstimatedHours), nullableStringPtr(t.DueDate), nullableStringPtr(t.AssigneeID),
		t.UpdatedAt, nullableStringPtr(t.CompletedAt), t.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) CompleteTaskTx(ctx context.Context, tx *sql.Tx, id, completedAt string) error {
	res, err := tx.ExecContext(ctx, `UPDATE tasks SET status=?, completed_at=?, updated_at=? WHERE id=?`,
		domain.TaskStatusCompleted, completedAt, completedAt, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

type TaskFilters struct {
	ProjectID  string
	Status     string
	AssigneeID string
	Limit      int
}

func (r Repo) ListTasks(ctx context.Context, f TaskFilters) ([]domain.Task, error) {
	var clauses []string
	var args []any
	if f.ProjectID != "" {
		clauses = append(clauses, "project_id=?")
		args = append(args, f.ProjectID)
	}
	if f.Status != "" {
		clauses = append(clauses, "status=?")
		args = append(args, f.Status)
	}
	if f.AssigneeID != "" {
		clauses = append(clauses, "assignee_id=?")
		args = append(args, f.AssigneeID)
	}
	where := ""
	if len(clauses) > 0 {
		where = "WHERE " + strings.Join(clauses, " AND ")
	}
	query := `SELECT ` + taskColumns + ` FROM tasks ` + where + ` ORDER BY created_at ASC, id ASC`
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Task
	for rows.Next() {
		t, err := scanTask(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, t)
	}
	return res, rows.Err()
}

// ListCandidateTasks returns the daily-scheduling candidate pool for a
// user: tasks assigned to them that are todo or in_progress.
func (r Repo) ListCandidateTasks(ctx context.Context, userID string) ([]domain.Task, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE assignee_id=? AND status IN (?,?) ORDER BY id ASC`,
		userID, domain.TaskStatusTodo, domain.TaskStatusInProgress)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Task
	for rows.Next() {
		t, err := scanTask(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, t)
	}
	return res, rows.Err()
}

func (r Repo) InsertFeedback(ctx context.Context, f domain.Feedback) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO feedbacks(id,project_id,task_id,user_name,feedback_text,status,created_at,processed_at) VALUES (?,?,?,?,?,?,?,?)`,
		f.ID, f.ProjectID, nullableStringPtr(f.TaskID), nullable(f.UserName), f.FeedbackText, f.Status, f.CreatedAt, nullableStringPtr(f.ProcessedAt))
	return err
}

func (r Repo) GetFeedback(ctx context.Context, id string) (domain.Feedback, error) {
	var f domain.Feedback
	var taskID, userName, processedAt sql.NullString
	err := r.DB.QueryRowContext(ctx, `SELECT id,project_id,task_id,user_name,feedback_text,status,created_at,processed_at FROM feedbacks WHERE id=?`, id).
		Scan(&f.ID, &f.ProjectID, &taskID, &userName, &f.FeedbackText, &f.Status, &f.CreatedAt, &processedAt)
	if err == sql.ErrNoRows {
		return f, ErrNotFound
	}
	if err != nil {
		return f, err
	}
	if taskID.Valid {
		f.TaskID = &taskID.String
	}
	if userName.Valid {
		f.UserName = userName.String
	}
	if processedAt.Valid {
		f.ProcessedAt = &processedAt.String
	}
	return f, nil
}

type FeedbackFilters struct {
	ProjectID string
	TaskID    string
	Status    string
	Limit     int
}

func (r Repo) ListFeedback(ctx context.Context, fl FeedbackFilters) ([]domain.Feedback, error) {
	var clauses []string
	var args []any
	if fl.ProjectID != "" {
		clauses = append(clauses, "project_id=?")
		args = append(args, fl.ProjectID)
	}
	if fl.TaskID != "" {
		clauses = append(clauses, "task_id=?")
		args = append(args, fl.TaskID)
	}
	if fl.Status != "" {
		clauses = append(clauses, "status=?")
		args = append(args, fl.Status)
	}
	where := ""
	if len(clauses) > 0 {
		where = "WHERE " + strings.Join(clauses, " AND ")
	}
	query := `SELECT id,project_id,task_id,user_name,feedback_text,status,created_at,processed_at FROM feedbacks ` + where + ` ORDER BY created_at DESC, id DESC`
	if fl.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, fl.Limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Feedback
	for rows.Next() {
		var f domain.Feedback
		var taskID, userName, processedAt sql.NullString
		if err := rows.Scan(&f.ID, &f.ProjectID, &taskID, &userName, &f.FeedbackText, &f.Status, &f.CreatedAt, &processedAt); err != nil {
			return nil, err
		}
		if taskID.Valid {
			f.TaskID = &taskID.String
		}
		if userName.Valid {
			f.UserName = userName.String
		}
		if processedAt.Valid {
			f.ProcessedAt = &processedAt.String
		}
		res = append(res, f)
	}
	return res, rows.Err()
}

// ClaimFeedback atomically transitions a feedback row from pending to
// processing. The status column is the lock: a worker that loses the
// race observes zero affected rows and must back off without side
// effects.
func (r Repo) ClaimFeedback(ctx context.Context, id string) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `UPDATE feedbacks SET status=? WHERE id=? AND status=?`,
		domain.FeedbackStatusProcessing, id, domain.FeedbackStatusPending)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r Repo) FinishFeedbackTx(ctx context.Context, tx *sql.Tx, id, status, processedAt string) error {
	res, err := tx.ExecContext(ctx, `UPDATE feedbacks SET status=?, processed_at=? WHERE id=? AND status=?`,
		status, processedAt, id, domain.FeedbackStatusProcessing)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("feedback %s not in processing state", id)
	}
	return nil
}

func (r Repo) InsertAdjustmentTx(ctx context.Context, tx *sql.Tx, a domain.Adjustment) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO adjustments(id,feedback_id,adjustment_type,task_id,description,original_value,new_value,reasoning,created_at) VALUES (?,?,?,?,?,?,?,?,?)`,
		a.ID, a.FeedbackID, a.AdjustmentType, nullableStringPtr(a.TaskID), a.Description,
		nullableStringPtr(a.OriginalValue), nullableStringPtr(a.NewValue), nullable(a.Reasoning), a.CreatedAt)
	return err
}

func (r Repo) ListAdjustments(ctx context.Context, feedbackID string) ([]domain.Adjustment, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,feedback_id,adjustment_type,task_id,description,original_value,new_value,reasoning,created_at FROM adjustments WHERE feedback_id=? ORDER BY created_at ASC, id ASC`, feedbackID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Adjustment
	for rows.Next() {
		var a domain.Adjustment
		var taskID, original, newValue, reasoning sql.NullString
		if err := rows.Scan(&a.ID, &a.FeedbackID, &a.AdjustmentType, &taskID, &a.Description, &original, &newValue, &reasoning, &a.CreatedAt); err != nil {
			return nil, err
		}
		if taskID.Valid {
			a.TaskID = &taskID.String
		}
		if original.Valid {
			a.OriginalValue = &original.String
		}
		if newValue.Valid {
			a.NewValue = &newValue.String
		}
		if reasoning.Valid {
			a.Reasoning = reasoning.String
		}
		res = append(res, a)
	}
	return res, rows.Err()
}

func (r Repo) LatestPlanVersion(ctx context.Context, projectID string) (domain.PlanVersion, error) {
	var pv domain.PlanVersion
	err := r.DB.QueryRowContext(ctx, `SELECT id,project_id,version_number,content_json,created_at FROM plan_versions WHERE project_id=? ORDER BY version_number DESC LIMIT 1`, projectID).
		Scan(&pv.ID, &pv.ProjectID, &pv.VersionNumber, &pv.ContentJSON, &pv.CreatedAt)
	if err == sql.ErrNoRows {
		return pv, ErrNotFound
	}
	return pv, err
}

func (r Repo) ListPlanVersions(ctx context.Context, projectID string) ([]domain.PlanVersion, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,project_id,version_number,content_json,created_at FROM plan_versions WHERE project_id=? ORDER BY version_number ASC`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.PlanVersion
	for rows.Next() {
		var pv domain.PlanVersion
		if err := rows.Scan(&pv.ID, &pv.ProjectID, &pv.VersionNumber, &pv.ContentJSON, &pv.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, pv)
	}
	return res, rows.Err()
}

// InsertPlanVersion assigns version_number = previous max + 1 inside a
// transaction so regeneration never reuses or skips a number.
func (r Repo) InsertPlanVersion(ctx context.Context, pv domain.PlanVersion) (domain.PlanVersion, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return pv, err
	}
	defer tx.Rollback()
	var max int
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(version_number),0) FROM plan_versions WHERE project_id=?`, pv.ProjectID).Scan(&max); err != nil {
		return pv, err
	}
	pv.VersionNumber = max + 1
	if _, err := tx.ExecContext(ctx, `INSERT INTO plan_versions(id,project_id,version_number,content_json,created_at) VALUES (?,?,?,?,?)`,
		pv.ID, pv.ProjectID, pv.VersionNumber, pv.ContentJSON, pv.CreatedAt); err != nil {
		return pv, err
	}
	return pv, tx.Commit()
}

func (r Repo) ListDailySummaries(ctx context.Context, userID, date string) ([]domain.DailySummary, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,user_id,date,task_id,rank,summary_text,completed,hours_worked,created_at FROM daily_summaries WHERE user_id=? AND date=? ORDER BY rank ASC`, userID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.DailySummary
	for rows.Next() {
		var s domain.DailySummary
		var hours sql.NullFloat64
		if err := rows.Scan(&s.ID, &s.UserID, &s.Date, &s.TaskID, &s.Rank, &s.SummaryText, &s.Completed, &hours, &s.CreatedAt); err != nil {
			return nil, err
		}
		if hours.Valid {
			s.HoursWorked = &hours.Float64
		}
		res = append(res, s)
	}
	return res, rows.Err()
}

func (r Repo) InsertDailySummaryTx(ctx context.Context, tx *sql.Tx, s domain.DailySummary) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO daily_summaries(id,user_id,date,task_id,rank,summary_text,completed,hours_worked,created_at) VALUES (?,?,?,?,?,?,?,?,?)`,
		s.ID, s.UserID, s.Date, s.TaskID, s.Rank, s.SummaryText, s.Completed, nullableFloatPtr(s.HoursWorked), s.CreatedAt)
	return err
}

func (r Repo) MarkSummaryCompleteTx(ctx context.Context, tx *sql.Tx, userID, date, taskID, summaryText string, hoursWorked *float64) error {
	_, err := tx.ExecContext(ctx, `UPDATE daily_summaries SET completed=1, hours_worked=COALESCE(?,hours_worked), summary_text=? WHERE user_id=? AND date=? AND task_id=?`,
		nullableFloatPtr(hoursWorked), summaryText, userID, date, taskID)
	return err
}

func (r Repo) GetDailySummaryByTask(ctx context.Context, userID, date, taskID string) (domain.DailySummary, error) {
	var s domain.DailySummary
	var hours sql.NullFloat64
	err := r.DB.QueryRowContext(ctx, `SELECT id,user_id,date,task_id,rank,summary_text,completed,hours_worked,created_at FROM daily_summaries WHERE user_id=? AND date=? AND task_id=?`, userID, date, taskID).
		Scan(&s.ID, &s.UserID, &s.Date, &s.TaskID, &s.Rank, &s.SummaryText, &s.Completed, &hours, &s.CreatedAt)
	if err == sql.ErrNoRows {
		return s, ErrNotFound
	}
	if err != nil {
		return s, err
	}
	if hours.Valid {
		s.HoursWorked = &hours.Float64
	}
	return s, nil
}

func (r Repo) DeleteDailySummariesTx(ctx context.Context, tx *sql.Tx, userID, date string) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM daily_summaries WHERE user_id=? AND date=?`, userID, date)
	return err
}

func (r Repo) InsertInboxItem(ctx context.Context, it domain.InboxItem) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO inbox_items(id,user_id,content,status,project_id,task_id,created_at,updated_at) VALUES (?,?,?,?,?,?,?,?)`,
		it.ID, it.UserID, it.Content, it.Status, nullableStringPtr(it.ProjectID), nullableStringPtr(it.TaskID), it.CreatedAt, it.UpdatedAt)
	return err
}

func (r Repo) GetInboxItem(ctx context.Context, id string) (domain.InboxItem, error) {
	var it domain.InboxItem
	var projectID, taskID sql.NullString
	err := r.DB.QueryRowContext(ctx, `SELECT id,user_id,content,status,project_id,task_id,created_at,updated_at FROM inbox_items WHERE id=?`, id).
		Scan(&it.ID, &it.UserID, &it.Content, &it.Status, &projectID, &taskID, &it.CreatedAt, &it.UpdatedAt)
	if err == sql.ErrNoRows {
		return it, ErrNotFound
	}
	if err != nil {
		return it, err
	}
	if projectID.Valid {
		it.ProjectID = &projectID.String
	}
	if taskID.Valid {
		it.TaskID = &taskID.String
	}
	return it, nil
}

// ClaimInboxItem atomically transitions unprocessed -> processed,
// mirroring the feedback claim so concurrent classifiers cannot both
// act on one item.
func (r Repo) ClaimInboxItem(ctx context.Context, id string) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `UPDATE inbox_items SET status='processed' WHERE id=? AND status='unprocessed'`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r Repo) LinkInboxItem(ctx context.Context, id string, projectID, taskID *string, updatedAt string) error {
	_, err := r.DB.ExecContext(ctx, `UPDATE inbox_items SET project_id=?, task_id=?, updated_at=? WHERE id=?`,
		nullableStringPtr(projectID), nullableStringPtr(taskID), updatedAt, id)
	return err
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func nullableStringPtr(v *string) any {
	if v == nil {
		return nil
	}
	if *v == "" {
		return nil
	}
	return *v
}

func nullableFloatPtr(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}
