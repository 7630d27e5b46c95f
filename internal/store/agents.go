package store

import (
	"database/sql"
	"fmt"

	"github.com/ShayCichocki/euna/pkg/models"
)

// Agent CRUD operations

// CreateAgent persists a new agent.
func (db *DB) CreateAgent(a *models.Agent) error {
	capabilities, err := marshalJSON(a.Capabilities)
	if err != nil {
		return err
	}
	preferredTools, err := marshalJSON(a.PreferredTools)
	if err != nil {
		return err
	}

	var completedAt any
	if a.CompletedAt != nil {
		completedAt = formatTime(*a.CompletedAt)
	}

	_, err = db.Exec(`
		INSERT INTO agents (id, task_id, name, type, role, capabilities, priority, prompt_template, preferred_tools, status, created_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, a.ID, a.TaskID, a.Name, string(a.Type), a.Role, capabilities, string(a.Priority),
		a.PromptTemplate, preferredTools, string(a.Status), formatTime(a.CreatedAt), completedAt)
	if err != nil {
		return fmt.Errorf("create agent: %w", err)
	}
	return nil
}

// GetAgent retrieves an agent by ID. Returns nil without error when missing.
func (db *DB) GetAgent(id string) (*models.Agent, error) {
	row := db.QueryRow(`
		SELECT id, task_id, name, type, role, capabilities, priority, prompt_template, preferred_tools, status, created_at, completed_at
		FROM agents WHERE id = ?
	`, id)

	a, err := scanAgent(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get agent: %w", err)
	}
	return a, nil
}

// UpdateAgent updates an agent's mutable fields.
func (db *DB) UpdateAgent(a *models.Agent) error {
	var completedAt any
	if a.CompletedAt != nil {
		completedAt = formatTime(*a.CompletedAt)
	}

	_, err := db.Exec(`
		UPDATE agents SET status = ?, completed_at = ? WHERE id = ?
	`, string(a.Status), completedAt, a.ID)
	if err != nil {
		return fmt.Errorf("update agent: %w", err)
	}
	return nil
}

// TaskAgents lists all agents belonging to a task, in creation order.
func (db *DB) TaskAgents(taskID string) ([]models.Agent, error) {
	rows, err := db.Query(`
		SELECT id, task_id, name, type, role, capabilities, priority, prompt_template, preferred_tools, status, created_at, completed_at
		FROM agents WHERE task_id = ? ORDER BY created_at ASC
	`, taskID)
	if err != nil {
		return nil, fmt.Errorf("task agents: %w", err)
	}
	defer rows.Close()

	return collectAgents(rows)
}

// ListAgents lists all agents, optionally filtered by status.
func (db *DB) ListAgents(status *models.AgentStatus) ([]models.Agent, error) {
	var rows *sql.Rows
	var err error

	if status != nil {
		rows, err = db.Query(`
			SELECT id, task_id, name, type, role, capabilities, priority, prompt_template, preferred_tools, status, created_at, completed_at
			FROM agents WHERE status = ? ORDER BY created_at ASC
		`, string(*status))
	} else {
		rows, err = db.Query(`
			SELECT id, task_id, name, type, role, capabilities, priority, prompt_template, preferred_tools, status, created_at, completed_at
			FROM agents ORDER BY created_at ASC
		`)
	}
	if err != nil {
		return nil, fmt.Errorf("list agents: %w", err)
	}
	defer rows.Close()

	return collectAgents(rows)
}

func scanAgent(row scanner) (*models.Agent, error) {
	var a models.Agent
	var role, capabilities, promptTemplate, preferredTools, completedAt sql.NullString
	var createdAt string

	err := row.Scan(&a.ID, &a.TaskID, &a.Name, &a.Type, &role, &capabilities, &a.Priority,
		&promptTemplate, &preferredTools, &a.Status, &createdAt, &completedAt)
	if err != nil {
		return nil, err
	}

	a.Role = role.String
	a.Capabilities = unmarshalStrings(capabilities)
	a.PromptTemplate = promptTemplate.String
	a.PreferredTools = unmarshalStrings(preferredTools)
	a.CreatedAt, _ = parseTime(createdAt)
	a.CompletedAt = parseNullableTime(completedAt)
	return &a, nil
}

func collectAgents(rows *sql.Rows) ([]models.Agent, error) {
	var agents []models.Agent
	for rows.Next() {
		a, err := scanAgent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan agent: %w", err)
		}
		agents = append(agents, *a)
	}
	return agents, rows.Err()
}
