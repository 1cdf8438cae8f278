package persistence

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/opsloop/opsloop/internal/audit"
)

// Record appends one audit event. Implements audit.Recorder; wrap the
// store in audit.NewFailsafe so a write failure cannot reach the control
// loop. Events are only ever inserted — there is no update or delete path.
func (s *Store) Record(ctx context.Context, ev audit.Event) error {
	detail, err := marshalJSON(ev.Detail)
	if err != nil {
		return fmt.Errorf("failed to encode event detail: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO audit_events (event_id, plan_id, task_id, kind, detail, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, ev.ID, ev.PlanID, ev.TaskID, string(ev.Kind), detail, ev.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to insert audit event: %w", err)
	}
	return nil
}

// Events returns all events for a plan in recorded order.
func (s *Store) Events(ctx context.Context, planID string) ([]audit.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT event_id, plan_id, task_id, kind, detail, recorded_at
		FROM audit_events
		WHERE plan_id = ?
		ORDER BY seq
	`, planID)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit events: %w", err)
	}
	defer rows.Close()

	var out []audit.Event
	for rows.Next() {
		var ev audit.Event
		var kind, detail string

		if err := rows.Scan(&ev.ID, &ev.PlanID, &ev.TaskID, &kind, &detail, &ev.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan audit event: %w", err)
		}

		ev.Kind = audit.Kind(kind)
		if detail != "" {
			if err := json.Unmarshal([]byte(detail), &ev.Detail); err != nil {
				return nil, fmt.Errorf("failed to decode event detail: %w", err)
			}
		}
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit events: %w", err)
	}
	return out, nil
}
