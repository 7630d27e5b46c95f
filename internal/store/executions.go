package store

import (
	"database/sql"
	"fmt"

	"github.com/ShayCichocki/euna/pkg/models"
)

// AgentExecution CRUD operations

// CreateExecution persists a new agent execution record.
func (db *DB) CreateExecution(e *models.AgentExecution) error {
	input, err := marshalJSON(e.Input)
	if err != nil {
		return err
	}
	output, err := marshalJSON(e.Output)
	if err != nil {
		return err
	}
	toolsUsed, err := marshalJSON(e.ToolsUsed)
	if err != nil {
		return err
	}

	var finishedAt any
	if e.FinishedAt != nil {
		finishedAt = formatTime(*e.FinishedAt)
	}

	_, err = db.Exec(`
		INSERT INTO agent_executions (id, agent_id, action, input, output, tools_used, status, error, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, e.ID, e.AgentID, e.Action, input, output, toolsUsed, string(e.Status), e.Error,
		formatTime(e.StartedAt), finishedAt)
	if err != nil {
		return fmt.Errorf("create execution: %w", err)
	}
	return nil
}

// UpdateExecution updates an execution's outcome fields.
func (db *DB) UpdateExecution(e *models.AgentExecution) error {
	output, err := marshalJSON(e.Output)
	if err != nil {
		return err
	}
	toolsUsed, err := marshalJSON(e.ToolsUsed)
	if err != nil {
		return err
	}

	var finishedAt any
	if e.FinishedAt != nil {
		finishedAt = formatTime(*e.FinishedAt)
	}

	_, err = db.Exec(`
		UPDATE agent_executions SET output = ?, tools_used = ?, status = ?, error = ?, finished_at = ?
		WHERE id = ?
	`, output, toolsUsed, string(e.Status), e.Error, finishedAt, e.ID)
	if err != nil {
		return fmt.Errorf("update execution: %w", err)
	}
	return nil
}

// AgentExecutions lists all executions for an agent, oldest first.
func (db *DB) AgentExecutions(agentID string) ([]models.AgentExecution, error) {
	rows, err := db.Query(`
		SELECT id, agent_id, action, input, output, tools_used, status, error, started_at, finished_at
		FROM agent_executions WHERE agent_id = ? ORDER BY started_at ASC
	`, agentID)
	if err != nil {
		return nil, fmt.Errorf("agent executions: %w", err)
	}
	defer rows.Close()

	var executions []models.AgentExecution
	for rows.Next() {
		var e models.AgentExecution
		var input, output, toolsUsed, errMsg, finishedAt sql.NullString
		var startedAt string

		err := rows.Scan(&e.ID, &e.AgentID, &e.Action, &input, &output, &toolsUsed,
			&e.Status, &errMsg, &startedAt, &finishedAt)
		if err != nil {
			return nil, fmt.Errorf("scan execution: %w", err)
		}

		e.Input = unmarshalMap(input)
		e.Output = unmarshalMap(output)
		e.ToolsUsed = unmarshalStrings(toolsUsed)
		e.Error = errMsg.String
		e.StartedAt, _ = parseTime(startedAt)
		e.FinishedAt = parseNullableTime(finishedAt)
		executions = append(executions, e)
	}
	return executions, rows.Err()
}
