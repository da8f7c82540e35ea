package db

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// DismissalRecord is the read model for one dismissed duplicate group.
type DismissalRecord struct {
	GroupKey    string    `json:"group_key"`
	MemberIDs   []int64   `json:"member_ids"`
	DismissedAt time.Time `json:"dismissed_at"`
}

// ListDismissedKeys returns the set of group keys excluded from scans.
func (p *Pool) ListDismissedKeys(ctx context.Context) (map[string]bool, error) {
	const q = `
SELECT group_key
FROM backlog.dismissals
`

	rows, err := p.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query dismissed keys: %w", err)
	}
	defer rows.Close()

	keys := make(map[string]bool)
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scan dismissed key: %w", err)
		}
		keys[key] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate dismissed keys: %w", err)
	}
	return keys, nil
}

// ListDismissals returns all dismissals, newest first.
func (p *Pool) ListDismissals(ctx context.Context) ([]DismissalRecord, error) {
	const q = `
SELECT
	group_key,
	member_ids,
	dismissed_at
FROM backlog.dismissals
ORDER BY dismissed_at DESC
`

	rows, err := p.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query dismissals: %w", err)
	}
	defer rows.Close()

	records := make([]DismissalRecord, 0, 32)
	for rows.Next() {
		var (
			record     DismissalRecord
			membersRaw []byte
		)
		if err := rows.Scan(&record.GroupKey, &membersRaw, &record.DismissedAt); err != nil {
			return nil, fmt.Errorf("scan dismissal row: %w", err)
		}
		if len(membersRaw) > 0 {
			if err := json.Unmarshal(membersRaw, &record.MemberIDs); err != nil {
				return nil, fmt.Errorf("decode dismissal members for %q: %w", record.GroupKey, err)
			}
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate dismissals: %w", err)
	}
	return records, nil
}

// UpsertDismissal records a "keep all" decision. Re-dismissing the same group
// refreshes the member list and timestamp.
func (p *Pool) UpsertDismissal(ctx context.Context, groupKey string, memberIDs []int64) error {
	key := strings.TrimSpace(groupKey)
	if key == "" {
		return fmt.Errorf("dismissal group key is required")
	}

	membersJSON, err := json.Marshal(memberIDs)
	if err != nil {
		return fmt.Errorf("encode dismissal members: %w", err)
	}

	const q = `
INSERT INTO backlog.dismissals (group_key, member_ids, dismissed_at)
VALUES ($1, $2::jsonb, now())
ON CONFLICT (group_key)
DO UPDATE SET
	member_ids = EXCLUDED.member_ids,
	dismissed_at = EXCLUDED.dismissed_at
`

	if _, err := p.Exec(ctx, q, key, string(membersJSON)); err != nil {
		return fmt.Errorf("upsert dismissal %q: %w", key, err)
	}
	return nil
}

// DeleteDismissal removes a dismissal so the group resurfaces on rescans.
func (p *Pool) DeleteDismissal(ctx context.Context, groupKey string) (int64, error) {
	key := strings.TrimSpace(groupKey)
	if key == "" {
		return 0, fmt.Errorf("dismissal group key is required")
	}

	const q = `
DELETE FROM backlog.dismissals
WHERE group_key = $1
`

	tag, err := p.Exec(ctx, q, key)
	if err != nil {
		return 0, fmt.Errorf("delete dismissal %q: %w", key, err)
	}
	return tag.RowsAffected(), nil
}
