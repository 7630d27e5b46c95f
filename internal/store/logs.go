package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/ShayCichocki/euna/pkg/models"
)

// Task log operations. Entries are append-only.

// AppendTaskLog records one log entry for a task.
func (db *DB) AppendTaskLog(taskID string, level models.LogLevel, message string, metadata map[string]any) error {
	meta, err := marshalJSON(metadata)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
		INSERT INTO task_logs (task_id, level, message, metadata, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, taskID, string(level), message, meta, formatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("append task log: %w", err)
	}
	return nil
}

// TaskLogs returns all log entries for a task, oldest first.
func (db *DB) TaskLogs(taskID string) ([]models.TaskLog, error) {
	rows, err := db.Query(`
		SELECT id, task_id, level, message, metadata, created_at
		FROM task_logs WHERE task_id = ? ORDER BY created_at ASC, id ASC
	`, taskID)
	if err != nil {
		return nil, fmt.Errorf("task logs: %w", err)
	}
	defer rows.Close()

	var logs []models.TaskLog
	for rows.Next() {
		var l models.TaskLog
		var metadata sql.NullString
		var createdAt string

		if err := rows.Scan(&l.ID, &l.TaskID, &l.Level, &l.Message, &metadata, &createdAt); err != nil {
			return nil, fmt.Errorf("scan task log: %w", err)
		}

		l.Metadata = unmarshalMap(metadata)
		l.CreatedAt, _ = parseTime(createdAt)
		logs = append(logs, l)
	}
	return logs, rows.Err()
}
