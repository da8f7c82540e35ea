package db

import (
	"context"
	"fmt"
	"time"

	"horse.fit/backlog/internal/dedupe"
)

// ResolutionEventRecord is the read model for one audit row.
type ResolutionEventRecord struct {
	SessionID    string    `json:"session_id"`
	GroupKey     string    `json:"group_key"`
	ActionType   string    `json:"action_type"`
	Succeeded    bool      `json:"succeeded"`
	ErrorMessage string    `json:"error_message,omitempty"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// InsertResolutionEvent appends one executed action to the audit trail.
func (p *Pool) InsertResolutionEvent(ctx context.Context, event dedupe.ResolutionEvent) error {
	const q = `
INSERT INTO backlog.resolution_events (
	session_id,
	group_key,
	action_type,
	succeeded,
	error_message,
	occurred_at
)
VALUES ($1::uuid, $2, $3, $4, $5, $6)
`

	var errMsg any
	if event.Error != "" {
		errMsg = event.Error
	}

	if _, err := p.Exec(ctx, q,
		event.SessionID.String(),
		event.GroupKey,
		string(event.ActionType),
		event.Succeeded,
		errMsg,
		event.OccurredAt.UTC(),
	); err != nil {
		return fmt.Errorf("insert resolution event: %w", err)
	}
	return nil
}

// ListResolutionEvents returns the most recent audit rows, newest first.
func (p *Pool) ListResolutionEvents(ctx context.Context, limit int) ([]ResolutionEventRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	const q = `
SELECT
	session_id::text,
	group_key,
	action_type,
	succeeded,
	COALESCE(error_message, ''),
	occurred_at
FROM backlog.resolution_events
ORDER BY occurred_at DESC
LIMIT $1
`

	rows, err := p.Query(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("query resolution events: %w", err)
	}
	defer rows.Close()

	records := make([]ResolutionEventRecord, 0, limit)
	for rows.Next() {
		var record ResolutionEventRecord
		if err := rows.Scan(
			&record.SessionID,
			&record.GroupKey,
			&record.ActionType,
			&record.Succeeded,
			&record.ErrorMessage,
			&record.OccurredAt,
		); err != nil {
			return nil, fmt.Errorf("scan resolution event row: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate resolution events: %w", err)
	}
	return records, nil
}
