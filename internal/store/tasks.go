package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/ShayCichocki/euna/pkg/models"
)

// Task CRUD operations

// CreateTask persists a new task.
func (db *DB) CreateTask(t *models.Task) error {
	result, err := marshalJSON(t.Result)
	if err != nil {
		return err
	}

	var completedAt any
	if t.CompletedAt != nil {
		completedAt = formatTime(*t.CompletedAt)
	}

	_, err = db.Exec(`
		INSERT INTO tasks (id, session_id, input, priority, status, result, error, created_at, updated_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, t.ID, t.SessionID, t.Input, string(t.Priority), string(t.Status), result, t.Error,
		formatTime(t.CreatedAt), formatTime(t.UpdatedAt), completedAt)
	if err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

// GetTask retrieves a task by ID. Returns nil without error when missing.
func (db *DB) GetTask(id string) (*models.Task, error) {
	row := db.QueryRow(`
		SELECT id, session_id, input, priority, status, result, error, created_at, updated_at, completed_at
		FROM tasks WHERE id = ?
	`, id)

	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	return t, nil
}

// UpdateTask updates a task's mutable fields.
func (db *DB) UpdateTask(t *models.Task) error {
	result, err := marshalJSON(t.Result)
	if err != nil {
		return err
	}

	var completedAt any
	if t.CompletedAt != nil {
		completedAt = formatTime(*t.CompletedAt)
	}

	_, err = db.Exec(`
		UPDATE tasks SET status = ?, result = ?, error = ?, updated_at = ?, completed_at = ?
		WHERE id = ?
	`, string(t.Status), result, t.Error, formatTime(t.UpdatedAt), completedAt, t.ID)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	return nil
}

// DeleteTask deletes a task by ID.
func (db *DB) DeleteTask(id string) error {
	_, err := db.Exec("DELETE FROM tasks WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return nil
}

// ListTasks lists all tasks, optionally filtered by status.
func (db *DB) ListTasks(status *models.TaskStatus) ([]models.Task, error) {
	var rows *sql.Rows
	var err error

	if status != nil {
		rows, err = db.Query(`
			SELECT id, session_id, input, priority, status, result, error, created_at, updated_at, completed_at
			FROM tasks WHERE status = ? ORDER BY created_at ASC
		`, string(*status))
	} else {
		rows, err = db.Query(`
			SELECT id, session_id, input, priority, status, result, error, created_at, updated_at, completed_at
			FROM tasks ORDER BY created_at ASC
		`)
	}
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	return collectTasks(rows)
}

// RecentTasks returns the most recently created tasks, newest first.
func (db *DB) RecentTasks(limit int) ([]models.Task, error) {
	rows, err := db.Query(`
		SELECT id, session_id, input, priority, status, result, error, created_at, updated_at, completed_at
		FROM tasks ORDER BY created_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent tasks: %w", err)
	}
	defer rows.Close()

	return collectTasks(rows)
}

// PurgeOldTasks deletes terminal tasks older than the specified duration.
// Returns the number of tasks deleted.
func (db *DB) PurgeOldTasks(olderThan time.Duration) (int64, error) {
	cutoff := formatTime(time.Now().Add(-olderThan))

	result, err := db.Exec(`
		DELETE FROM tasks WHERE created_at < ? AND status IN ('completed', 'failed', 'cancelled')
	`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge old tasks: %w", err)
	}

	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("get rows affected: %w", err)
	}

	return count, nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanTask(row scanner) (*models.Task, error) {
	var t models.Task
	var sessionID, result, errMsg, completedAt sql.NullString
	var createdAt, updatedAt string

	err := row.Scan(&t.ID, &sessionID, &t.Input, &t.Priority, &t.Status,
		&result, &errMsg, &createdAt, &updatedAt, &completedAt)
	if err != nil {
		return nil, err
	}

	t.SessionID = sessionID.String
	t.Result = unmarshalMap(result)
	t.Error = errMsg.String
	t.CreatedAt, _ = parseTime(createdAt)
	t.UpdatedAt, _ = parseTime(updatedAt)
	t.CompletedAt = parseNullableTime(completedAt)
	return &t, nil
}

func collectTasks(rows *sql.Rows) ([]models.Task, error) {
	var tasks []models.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}
