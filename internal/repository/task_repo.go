package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"familyquest/internal/database"
	"familyquest/internal/models"
	"familyquest/internal/progression"
)

const taskColumns = `id, child_id, title, description, category, difficulty, points, emoji, photo_required,
	due_on, completed, completed_at, proof_ref, created_by, source, created_at`

// TaskRepository handles database operations for tasks
type TaskRepository struct {
	db database.Querier
}

// NewTaskRepository creates a new task repository
func NewTaskRepository(db database.Querier) *TaskRepository {
	return &TaskRepository{db: db}
}

// WithTx returns a repository bound to tx
func (r *TaskRepository) WithTx(tx *database.Tx) *TaskRepository {
	return &TaskRepository{db: tx}
}

// Create inserts a pending task and sets its ID
func (r *TaskRepository) Create(ctx context.Context, t *models.Task) error {
	query := `
		INSERT INTO tasks (child_id, title, description, category, difficulty, points, emoji, photo_required,
			due_on, completed, completed_at, proof_ref, created_by, source, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	id, err := r.db.ExecReturningID(ctx, query,
		t.ChildID, t.Title, t.Description, t.Category, string(t.Difficulty), t.Points, t.Emoji, t.PhotoRequired,
		nullDate(t.DueOn), t.Completed, nullTime(t.CompletedAt), nullString(t.ProofRef), nullInt64(t.CreatedBy),
		string(t.Source), t.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}
	t.ID = id
	return nil
}

// GetByID retrieves a task by ID, or nil when it does not exist
func (r *TaskRepository) GetByID(ctx context.Context, id int64) (*models.Task, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+taskColumns+" FROM tasks WHERE id = ?", id)
	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return t, nil
}

// ListActive returns the child's pending tasks, newest first. limit <= 0 means no limit.
func (r *TaskRepository) ListActive(ctx context.Context, childID int64, limit int) ([]models.Task, error) {
	query := "SELECT " + taskColumns + " FROM tasks WHERE child_id = ? AND completed = ? ORDER BY created_at DESC, id DESC"
	args := []interface{}{childID, false}
	lim, limArgs := limitClause(limit)
	return r.list(ctx, query+lim, append(args, limArgs...)...)
}

// ListDue returns pending tasks with no due date or a due date on or after today.
func (r *TaskRepository) ListDue(ctx context.Context, childID int64, today time.Time, limit int) ([]models.Task, error) {
	query := "SELECT " + taskColumns + ` FROM tasks
		WHERE child_id = ? AND completed = ? AND (due_on IS NULL OR due_on >= ?)
		ORDER BY created_at DESC, id DESC`
	args := []interface{}{childID, false, progression.FormatDate(today)}
	lim, limArgs := limitClause(limit)
	return r.list(ctx, query+lim, append(args, limArgs...)...)
}

// ListCompleted returns the child's completed tasks, most recent completion first.
func (r *TaskRepository) ListCompleted(ctx context.Context, childID int64, limit int) ([]models.Task, error) {
	query := "SELECT " + taskColumns + " FROM tasks WHERE child_id = ? AND completed = ? ORDER BY completed_at DESC, id DESC"
	args := []interface{}{childID, true}
	lim, limArgs := limitClause(limit)
	return r.list(ctx, query+lim, append(args, limArgs...)...)
}

// ListAll returns every task ordered by ID
func (r *TaskRepository) ListAll(ctx context.Context) ([]models.Task, error) {
	return r.list(ctx, "SELECT "+taskColumns+" FROM tasks ORDER BY id")
}

// MarkCompleted flips a pending task owned by childID to completed. It
// reports false when the task is missing, owned by someone else, or already
// completed. The guard lives in the WHERE clause so concurrent callers cannot
// both succeed.
func (r *TaskRepository) MarkCompleted(ctx context.Context, taskID, childID int64, completedAt time.Time, proofRef string) (bool, error) {
	query := `
		UPDATE tasks SET completed = ?, completed_at = ?, proof_ref = ?
		WHERE id = ? AND child_id = ? AND completed = ?
	`
	result, err := r.db.ExecContext(ctx, query, true, completedAt.UTC(), nullString(proofRef), taskID, childID, false)
	if err != nil {
		return false, fmt.Errorf("failed to complete task: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n == 1, nil
}

// CompletionCounts returns the number of completed tasks per category.
func (r *TaskRepository) CompletionCounts(ctx context.Context, childID int64) (map[string]int, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT category, COUNT(*) FROM tasks WHERE child_id = ? AND completed = ? GROUP BY category",
		childID, true)
	if err != nil {
		return nil, fmt.Errorf("failed to count completed tasks: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var category string
		var n int
		if err := rows.Scan(&category, &n); err != nil {
			return nil, fmt.Errorf("failed to scan completion count: %w", err)
		}
		counts[category] = n
	}
	return counts, rows.Err()
}

// Restore inserts a task keeping its original ID
func (r *TaskRepository) Restore(ctx context.Context, t *models.Task) error {
	query := `
		INSERT INTO tasks (id, child_id, title, description, category, difficulty, points, emoji, photo_required,
			due_on, completed, completed_at, proof_ref, created_by, source, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		t.ID, t.ChildID, t.Title, t.Description, t.Category, string(t.Difficulty), t.Points, t.Emoji, t.PhotoRequired,
		nullDate(t.DueOn), t.Completed, nullTime(t.CompletedAt), nullString(t.ProofRef), nullInt64(t.CreatedBy),
		string(t.Source), t.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to restore task %d: %w", t.ID, err)
	}
	return nil
}

func (r *TaskRepository) list(ctx context.Context, query string, args ...interface{}) ([]models.Task, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []models.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return tasks, nil
}

func scanTask(s rowScanner) (*models.Task, error) {
	var (
		t           models.Task
		difficulty  string
		dueOn       sql.NullString
		completedAt sql.NullTime
		proofRef    sql.NullString
		createdBy   sql.NullInt64
		source      string
		createdAt   time.Time
	)
	err := s.Scan(
		&t.ID, &t.ChildID, &t.Title, &t.Description, &t.Category, &difficulty, &t.Points, &t.Emoji, &t.PhotoRequired,
		&dueOn, &t.Completed, &completedAt, &proofRef, &createdBy, &source, &createdAt,
	)
	if err != nil {
		return nil, err
	}
	t.Difficulty = models.Difficulty(difficulty)
	t.DueOn = datePtr(dueOn)
	t.CompletedAt = timePtr(completedAt)
	t.ProofRef = proofRef.String
	t.CreatedBy = int64Ptr(createdBy)
	t.Source = models.TaskSource(source)
	t.CreatedAt = createdAt.UTC()
	return &t, nil
}
