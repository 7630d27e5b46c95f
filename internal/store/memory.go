package store

import (
	"database/sql"
	"fmt"
	"time"
)

// MemoryEntry is one stored piece of cross-task context.
type MemoryEntry struct {
	// ID is the row identifier.
	ID int64 `json:"id"`
	// TaskID is the task the entry relates to, if any.
	TaskID string `json:"task_id,omitempty"`
	// Type categorizes the entry, e.g. "workflow_summary".
	Type string `json:"type"`
	// Content is the stored text.
	Content string `json:"content"`
	// Metadata carries optional structured detail.
	Metadata map[string]any `json:"metadata,omitempty"`
	// CreatedAt is when the entry was stored.
	CreatedAt time.Time `json:"created_at"`
}

// StoreMemory persists one memory entry.
func (db *DB) StoreMemory(taskID, entryType, content string, metadata map[string]any) error {
	meta, err := marshalJSON(metadata)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
		INSERT INTO memory_entries (task_id, type, content, metadata, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, taskID, entryType, content, meta, formatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("store memory: %w", err)
	}
	return nil
}

// RecentMemory returns the most recent memory entries, newest first.
func (db *DB) RecentMemory(limit int) ([]MemoryEntry, error) {
	rows, err := db.Query(`
		SELECT id, task_id, type, content, metadata, created_at
		FROM memory_entries ORDER BY created_at DESC, id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent memory: %w", err)
	}
	defer rows.Close()

	return collectMemory(rows)
}

// TaskMemory returns all memory entries attached to a task, oldest first.
func (db *DB) TaskMemory(taskID string) ([]MemoryEntry, error) {
	rows, err := db.Query(`
		SELECT id, task_id, type, content, metadata, created_at
		FROM memory_entries WHERE task_id = ? ORDER BY created_at ASC, id ASC
	`, taskID)
	if err != nil {
		return nil, fmt.Errorf("task memory: %w", err)
	}
	defer rows.Close()

	return collectMemory(rows)
}

func collectMemory(rows *sql.Rows) ([]MemoryEntry, error) {
	var entries []MemoryEntry
	for rows.Next() {
		var e MemoryEntry
		var taskID, metadata sql.NullString
		var createdAt string

		if err := rows.Scan(&e.ID, &taskID, &e.Type, &e.Content, &metadata, &createdAt); err != nil {
			return nil, fmt.Errorf("scan memory entry: %w", err)
		}

		e.TaskID = taskID.String
		e.Metadata = unmarshalMap(metadata)
		e.CreatedAt, _ = parseTime(createdAt)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
