package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/opsloop/opsloop/internal/plan"
)

// PlanSummary is one row of ListPlans.
type PlanSummary struct {
	ID        string
	Goal      string
	Status    plan.Status
	CreatedAt time.Time
}

// SavePlan upserts a plan with all of its tasks and dependencies in one
// transaction. Saves are idempotent: calling again with updated task state
// overwrites the previous snapshot.
func (s *Store) SavePlan(ctx context.Context, p *plan.Plan) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO plans (id, goal, status, created_at, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET
			goal = excluded.goal,
			status = excluded.status,
			updated_at = CURRENT_TIMESTAMP
	`, p.ID, p.Goal, p.Status)
	if err != nil {
		return fmt.Errorf("failed to upsert plan: %w", err)
	}

	for pos, t := range p.Tasks {
		if err := upsertTask(ctx, tx, p.ID, pos, t); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func upsertTask(ctx context.Context, tx *sql.Tx, planID string, pos int, t *plan.Task) error {
	params, err := marshalJSON(t.Params)
	if err != nil {
		return fmt.Errorf("failed to encode params for task %s: %w", t.ID, err)
	}
	result, err := marshalJSON(t.Result)
	if err != nil {
		return fmt.Errorf("failed to encode result for task %s: %w", t.ID, err)
	}
	resources, err := marshalStrings(t.Resources)
	if err != nil {
		return fmt.Errorf("failed to encode resources for task %s: %w", t.ID, err)
	}

	errorStr := ""
	if t.Error != nil {
		errorStr = t.Error.Error()
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO tasks (plan_id, id, position, name, action, params, resources, status, failure_mode, attempts, result, error, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		ON CONFLICT(plan_id, id) DO UPDATE SET
			position = excluded.position,
			name = excluded.name,
			action = excluded.action,
			params = excluded.params,
			resources = excluded.resources,
			status = excluded.status,
			failure_mode = excluded.failure_mode,
			attempts = excluded.attempts,
			result = excluded.result,
			error = excluded.error,
			updated_at = CURRENT_TIMESTAMP
	`, planID, t.ID, pos, t.Name, t.Action, params, resources,
		t.Status, t.FailureMode, t.Attempts, result, errorStr)
	if err != nil {
		return fmt.Errorf("failed to upsert task %s: %w", t.ID, err)
	}

	_, err = tx.ExecContext(ctx, `DELETE FROM task_dependencies WHERE plan_id = ? AND task_id = ?`, planID, t.ID)
	if err != nil {
		return fmt.Errorf("failed to delete old dependencies: %w", err)
	}

	for _, depID := range t.DependsOn {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO task_dependencies (plan_id, task_id, depends_on_id)
			VALUES (?, ?, ?)
		`, planID, t.ID, depID)
		if err != nil {
			return fmt.Errorf("failed to insert dependency %s -> %s: %w", t.ID, depID, err)
		}
	}
	return nil
}

// GetPlan loads a plan with its tasks (in original order) and dependencies.
func (s *Store) GetPlan(ctx context.Context, planID string) (*plan.Plan, error) {
	p := &plan.Plan{ID: planID}

	err := s.db.QueryRowContext(ctx, `
		SELECT goal, status FROM plans WHERE id = ?
	`, planID).Scan(&p.Goal, &p.Status)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("plan not found: %s", planID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query plan: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, action, params, resources, status, failure_mode, attempts, result, error
		FROM tasks
		WHERE plan_id = ?
		ORDER BY position
	`, planID)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		t := &plan.Task{}
		var params, resources, result, errorStr string

		if err := rows.Scan(&t.ID, &t.Name, &t.Action, &params, &resources,
			&t.Status, &t.FailureMode, &t.Attempts, &result, &errorStr); err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}

		if err := unmarshalJSON(params, &t.Params); err != nil {
			return nil, fmt.Errorf("failed to decode params for task %s: %w", t.ID, err)
		}
		if err := unmarshalJSON(result, &t.Result); err != nil {
			return nil, fmt.Errorf("failed to decode result for task %s: %w", t.ID, err)
		}
		if err := unmarshalStrings(resources, &t.Resources); err != nil {
			return nil, fmt.Errorf("failed to decode resources for task %s: %w", t.ID, err)
		}
		if errorStr != "" {
			t.Error = fmt.Errorf("%s", errorStr)
		}

		deps, err := s.taskDependencies(ctx, planID, t.ID)
		if err != nil {
			return nil, err
		}
		t.DependsOn = deps

		p.Tasks = append(p.Tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tasks: %w", err)
	}

	return p, nil
}

// UpdateTaskStatus persists the execution state of one task.
func (s *Store) UpdateTaskStatus(ctx context.Context, planID, taskID string, status plan.Status, attempts int, result map[string]any, taskErr error) error {
	encoded, err := marshalJSON(result)
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}

	errorStr := ""
	if taskErr != nil {
		errorStr = taskErr.Error()
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE tasks
		SET status = ?, attempts = ?, result = ?, error = ?, updated_at = CURRENT_TIMESTAMP
		WHERE plan_id = ? AND id = ?
	`, status, attempts, encoded, errorStr, planID, taskID)
	if err != nil {
		return fmt.Errorf("failed to update task status: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("task not found: %s/%s", planID, taskID)
	}
	return nil
}

// ListPlans returns plan summaries, most recent first.
func (s *Store) ListPlans(ctx context.Context) ([]PlanSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, goal, status, created_at
		FROM plans
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query plans: %w", err)
	}
	defer rows.Close()

	var out []PlanSummary
	for rows.Next() {
		var sum PlanSummary
		if err := rows.Scan(&sum.ID, &sum.Goal, &sum.Status, &sum.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan plan: %w", err)
		}
		out = append(out, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating plans: %w", err)
	}
	return out, nil
}

func (s *Store) taskDependencies(ctx context.Context, planID, taskID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT depends_on_id
		FROM task_dependencies
		WHERE plan_id = ? AND task_id = ?
	`, planID, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to query dependencies for task %s: %w", taskID, err)
	}
	defer rows.Close()

	deps := []string{}
	for rows.Next() {
		var depID string
		if err := rows.Scan(&depID); err != nil {
			return nil, fmt.Errorf("failed to scan dependency: %w", err)
		}
		deps = append(deps, depID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating dependencies: %w", err)
	}
	return deps, nil
}

func marshalJSON(m map[string]any) (string, error) {
	if m == nil {
		return "", nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func unmarshalJSON(data string, out *map[string]any) error {
	if data == "" {
		return nil
	}
	return json.Unmarshal([]byte(data), out)
}

func marshalStrings(list []string) (string, error) {
	if list == nil {
		return "", nil
	}
	data, err := json.Marshal(list)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func unmarshalStrings(data string, out *[]string) error {
	if data == "" {
		return nil
	}
	return json.Unmarshal([]byte(data), out)
}
