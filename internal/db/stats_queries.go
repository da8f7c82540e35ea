package db

import (
	"context"
	"fmt"
)

// StatsPlatformCount stores per-platform library counts.
type StatsPlatformCount struct {
	Platform  string  `json:"platform"`
	Entries   int64   `json:"entries"`
	Completed int64   `json:"completed"`
	Playtime  float64 `json:"playtime_hours"`
}

// StatsTotals stores totals across platforms.
type StatsTotals struct {
	Entries    int64   `json:"entries"`
	Completed  int64   `json:"completed"`
	Playtime   float64 `json:"playtime_hours"`
	Dismissals int64   `json:"dismissals"`
}

// LibraryStats is the read model returned by the stats command.
type LibraryStats struct {
	Platforms []StatsPlatformCount `json:"platforms"`
	Totals    StatsTotals          `json:"totals"`
}

// QueryLibraryStats returns per-platform and total library counts.
func (p *Pool) QueryLibraryStats(ctx context.Context) (*LibraryStats, error) {
	stats := &LibraryStats{
		Platforms: make([]StatsPlatformCount, 0, 8),
	}

	const countsQuery = `
SELECT
	platform,
	COUNT(*)::BIGINT AS entries,
	COUNT(*) FILTER (WHERE status = 'completed')::BIGINT AS completed,
	COALESCE(SUM(playtime_hours), 0) AS playtime_hours
FROM backlog.library_entries
GROUP BY platform
ORDER BY platform
`

	rows, err := p.Query(ctx, countsQuery)
	if err != nil {
		return nil, fmt.Errorf("query stats platform counts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var row StatsPlatformCount
		if err := rows.Scan(&row.Platform, &row.Entries, &row.Completed, &row.Playtime); err != nil {
			return nil, fmt.Errorf("scan stats platform row: %w", err)
		}
		stats.Platforms = append(stats.Platforms, row)
		stats.Totals.Entries += row.Entries
		stats.Totals.Completed += row.Completed
		stats.Totals.Playtime += row.Playtime
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stats platform rows: %w", err)
	}

	const dismissalsQuery = `
SELECT COUNT(*) FROM backlog.dismissals
`

	if err := p.QueryRow(ctx, dismissalsQuery).Scan(&stats.Totals.Dismissals); err != nil {
		return nil, fmt.Errorf("query stats dismissal count: %w", err)
	}

	return stats, nil
}
