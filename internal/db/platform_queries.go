package db

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// PlatformAccountRecord is the read model for one connected platform account.
type PlatformAccountRecord struct {
	Platform     string     `json:"platform"`
	AccountID    string     `json:"account_id"`
	DisplayName  string     `json:"display_name,omitempty"`
	LastSyncedAt *time.Time `json:"last_synced_at,omitempty"`
}

// UpsertPlatformAccount connects or refreshes one platform account.
func (p *Pool) UpsertPlatformAccount(ctx context.Context, platform, accountID, displayName string) error {
	normalizedPlatform := strings.ToLower(strings.TrimSpace(platform))
	if normalizedPlatform == "" {
		return fmt.Errorf("platform is required")
	}
	if strings.TrimSpace(accountID) == "" {
		return fmt.Errorf("account id is required")
	}

	const q = `
INSERT INTO backlog.platform_accounts (platform, account_id, display_name)
VALUES ($1, $2, $3)
ON CONFLICT (platform)
DO UPDATE SET
	account_id = EXCLUDED.account_id,
	display_name = EXCLUDED.display_name,
	updated_at = now()
`

	if _, err := p.Exec(ctx, q, normalizedPlatform, strings.TrimSpace(accountID), nullableString(displayName)); err != nil {
		return fmt.Errorf("upsert platform account %q: %w", normalizedPlatform, err)
	}
	return nil
}

// ListPlatformAccounts returns all connected accounts ordered by platform.
func (p *Pool) ListPlatformAccounts(ctx context.Context) ([]PlatformAccountRecord, error) {
	const q = `
SELECT
	platform,
	account_id,
	COALESCE(display_name, ''),
	last_synced_at
FROM backlog.platform_accounts
ORDER BY platform
`

	rows, err := p.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query platform accounts: %w", err)
	}
	defer rows.Close()

	records := make([]PlatformAccountRecord, 0, 4)
	for rows.Next() {
		var record PlatformAccountRecord
		if err := rows.Scan(&record.Platform, &record.AccountID, &record.DisplayName, &record.LastSyncedAt); err != nil {
			return nil, fmt.Errorf("scan platform account row: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate platform accounts: %w", err)
	}
	return records, nil
}

// TouchPlatformSync stamps a successful library sync for one platform.
func (p *Pool) TouchPlatformSync(ctx context.Context, platform string, syncedAt time.Time) error {
	const q = `
UPDATE backlog.platform_accounts
SET
	last_synced_at = $2,
	updated_at = now()
WHERE platform = $1
`

	tag, err := p.Exec(ctx, q, strings.ToLower(strings.TrimSpace(platform)), syncedAt.UTC())
	if err != nil {
		return fmt.Errorf("touch platform sync %q: %w", platform, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNoRows
	}
	return nil
}
