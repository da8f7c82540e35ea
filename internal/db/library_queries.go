package db

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"horse.fit/backlog/internal/dedupe"
)

// deleteChunkSize bounds one DELETE statement; large merge batches are split
// so a single oversized statement cannot take down the whole cleanup.
const deleteChunkSize = 100

// ListLibraryEntries returns the full library ordered by id.
func (p *Pool) ListLibraryEntries(ctx context.Context) ([]dedupe.LibraryEntry, error) {
	const q = `
SELECT
	entry_id,
	COALESCE(canonical_game_id, ''),
	title,
	platform,
	playtime_hours,
	achievements_earned,
	achievements_total,
	completion_percentage,
	last_played_at,
	status,
	priority,
	notes,
	tags
FROM backlog.library_entries
ORDER BY entry_id
`

	rows, err := p.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query library entries: %w", err)
	}
	defer rows.Close()

	entries := make([]dedupe.LibraryEntry, 0, 256)
	for rows.Next() {
		entry, err := scanLibraryEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate library entries: %w", err)
	}
	return entries, nil
}

// GetLibraryEntry returns one entry by id or ErrNoRows.
func (p *Pool) GetLibraryEntry(ctx context.Context, entryID int64) (*dedupe.LibraryEntry, error) {
	const q = `
SELECT
	entry_id,
	COALESCE(canonical_game_id, ''),
	title,
	platform,
	playtime_hours,
	achievements_earned,
	achievements_total,
	completion_percentage,
	last_played_at,
	status,
	priority,
	notes,
	tags
FROM backlog.library_entries
WHERE entry_id = $1
LIMIT 1
`

	entry, err := scanLibraryEntry(p.QueryRow(ctx, q, entryID))
	if err != nil {
		if IsNoRows(err) {
			return nil, ErrNoRows
		}
		return nil, fmt.Errorf("query library entry %d: %w", entryID, err)
	}
	return &entry, nil
}

// UpdateLibraryEntry applies a merged field set to one entry.
func (p *Pool) UpdateLibraryEntry(ctx context.Context, entryID int64, update dedupe.EntryUpdate) error {
	tagsJSON, err := json.Marshal(update.Tags)
	if err != nil {
		return fmt.Errorf("encode tags: %w", err)
	}

	const q = `
UPDATE backlog.library_entries
SET
	playtime_hours = $2,
	achievements_earned = $3,
	achievements_total = $4,
	completion_percentage = $5,
	last_played_at = $6,
	status = $7,
	priority = $8,
	notes = $9,
	tags = $10::jsonb,
	updated_at = now()
WHERE entry_id = $1
`

	tag, err := p.Exec(ctx, q,
		entryID,
		update.PlaytimeHours,
		update.AchievementsEarned,
		update.AchievementsTotal,
		update.CompletionPercentage,
		nullableTime(update.LastPlayedAt),
		string(update.Status),
		string(update.Priority),
		update.Notes,
		string(tagsJSON),
	)
	if err != nil {
		return fmt.Errorf("update library entry %d: %w", entryID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNoRows
	}
	return nil
}

// DeleteLibraryEntries hard-deletes the given entries in chunks. A failed
// chunk is reported but later chunks still run; duplicate cleanup should
// remove as much as it can.
func (p *Pool) DeleteLibraryEntries(ctx context.Context, entryIDs []int64) (int64, error) {
	if len(entryIDs) == 0 {
		return 0, nil
	}

	const q = `
DELETE FROM backlog.library_entries
WHERE entry_id = ANY($1)
`

	var (
		deleted   int64
		failedErr error
	)
	for start := 0; start < len(entryIDs); start += deleteChunkSize {
		end := start + deleteChunkSize
		if end > len(entryIDs) {
			end = len(entryIDs)
		}
		chunk := entryIDs[start:end]

		tag, err := p.Exec(ctx, q, int64Array(chunk))
		if err != nil {
			failedErr = fmt.Errorf("delete library entries chunk [%d:%d]: %w", start, end, err)
			continue
		}
		deleted += tag.RowsAffected()
	}
	return deleted, failedErr
}

// UpsertPlatformEntry inserts or refreshes one entry fetched from a platform
// account, keyed by (platform, platform_item_id). User-owned fields (status,
// priority, notes, tags) are never overwritten by a sync.
func (p *Pool) UpsertPlatformEntry(
	ctx context.Context,
	platform string,
	raw dedupe.RawEntry,
	normalizedTitle string,
) (int64, error) {
	const q = `
INSERT INTO backlog.library_entries (
	title,
	normalized_title,
	platform,
	platform_item_id,
	cover_url,
	playtime_hours,
	achievements_earned,
	achievements_total,
	completion_percentage,
	last_played_at
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT (platform, platform_item_id) WHERE platform_item_id IS NOT NULL
DO UPDATE SET
	title = EXCLUDED.title,
	normalized_title = EXCLUDED.normalized_title,
	cover_url = EXCLUDED.cover_url,
	playtime_hours = EXCLUDED.playtime_hours,
	achievements_earned = EXCLUDED.achievements_earned,
	achievements_total = EXCLUDED.achievements_total,
	completion_percentage = EXCLUDED.completion_percentage,
	last_played_at = EXCLUDED.last_played_at,
	updated_at = now()
RETURNING entry_id
`

	var entryID int64
	if err := p.QueryRow(ctx, q,
		strings.TrimSpace(raw.Title),
		normalizedTitle,
		strings.ToLower(strings.TrimSpace(platform)),
		nullableString(raw.PlatformID),
		nullableString(raw.CoverURL),
		raw.PlaytimeHours,
		raw.AchievementsEarned,
		raw.AchievementsTotal,
		raw.CompletionPercentage,
		nullableTime(raw.LastPlayedAt),
	).Scan(&entryID); err != nil {
		return 0, fmt.Errorf("upsert platform entry %q/%q: %w", platform, raw.PlatformID, err)
	}
	return entryID, nil
}

type libraryRowScanner interface {
	Scan(dest ...any) error
}

func scanLibraryEntry(row libraryRowScanner) (dedupe.LibraryEntry, error) {
	var (
		entry      dedupe.LibraryEntry
		lastPlayed *time.Time
		tagsJSON   []byte
	)
	if err := row.Scan(
		&entry.ID,
		&entry.CanonicalGameID,
		&entry.Title,
		&entry.Platform,
		&entry.PlaytimeHours,
		&entry.AchievementsEarned,
		&entry.AchievementsTotal,
		&entry.CompletionPercentage,
		&lastPlayed,
		&entry.Status,
		&entry.Priority,
		&entry.Notes,
		&tagsJSON,
	); err != nil {
		return dedupe.LibraryEntry{}, err
	}

	entry.LastPlayedAt = lastPlayed
	if len(tagsJSON) > 0 {
		if err := json.Unmarshal(tagsJSON, &entry.Tags); err != nil {
			return dedupe.LibraryEntry{}, fmt.Errorf("decode tags for entry %d: %w", entry.ID, err)
		}
	}
	return entry, nil
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}

func nullableString(s string) any {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return strings.TrimSpace(s)
}

func int64Array(ids []int64) []int64 {
	out := make([]int64, len(ids))
	copy(out, ids)
	return out
}
