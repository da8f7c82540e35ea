package platforms

import (
	"context"
	"fmt"
	"strings"
	"time"

	"horse.fit/backlog/internal/dedupe"
	payloadschema "horse.fit/backlog/schema"
)

// Credentials carries the secret pair one platform client needs. Key is the
// API key or bearer token; Account identifies the user on platforms that
// need it (Steam id, Xbox user hash).
type Credentials struct {
	Key     string
	Account string
}

// Provider fetches the library of one connected platform account.
type Provider interface {
	Name() string
	FetchLibrary(ctx context.Context, creds Credentials) ([]dedupe.RawEntry, error)
}

// EntryFromItem converts one validated payload into the typed boundary DTO.
// Minutes from platform APIs become hours here; everything downstream works
// in hours.
func EntryFromItem(item *payloadschema.PlatformItem) (dedupe.RawEntry, error) {
	if item == nil {
		return dedupe.RawEntry{}, fmt.Errorf("platform item is nil")
	}

	entry := dedupe.RawEntry{
		PlatformID: item.PlatformItemID,
		Title:      strings.TrimSpace(item.Title),
	}
	if item.CoverURL != nil {
		entry.CoverURL = strings.TrimSpace(*item.CoverURL)
	}
	if item.PlaytimeMinutes != nil {
		entry.PlaytimeHours = *item.PlaytimeMinutes / 60
	}
	if item.AchievementsEarned != nil {
		entry.AchievementsEarned = *item.AchievementsEarned
	}
	if item.AchievementsTotal != nil {
		entry.AchievementsTotal = *item.AchievementsTotal
	}
	if item.CompletionPercentage != nil {
		entry.CompletionPercentage = *item.CompletionPercentage
	} else if entry.AchievementsTotal > 0 {
		entry.CompletionPercentage = float64(entry.AchievementsEarned) / float64(entry.AchievementsTotal) * 100
	}
	if item.LastPlayedAt != nil {
		played, err := time.Parse(time.RFC3339, strings.TrimSpace(*item.LastPlayedAt))
		if err != nil {
			return dedupe.RawEntry{}, fmt.Errorf("parse last_played_at for %q: %w", item.PlatformItemID, err)
		}
		playedUTC := played.UTC()
		entry.LastPlayedAt = &playedUTC
	}
	return entry, nil
}
