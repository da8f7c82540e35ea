package dedupe

import (
	"fmt"
	"strings"
	"time"
)

// DeletionScope selects which records a merge deletes. The aggregation rules
// are identical for both scopes; only the delete set differs.
type DeletionScope string

const (
	// DeleteAllOther deletes every non-primary record of the group.
	DeleteAllOther DeletionScope = "all-other"
	// DeleteSelectedOnly deletes only the explicitly selected records,
	// leaving other group members untouched.
	DeleteSelectedOnly DeletionScope = "selected-only"
)

const (
	mergedNotesMaxLen = 2000
	mergedTagsMax     = 10
)

// MergeResult is the outcome of folding a duplicate group: the aggregated
// fields for the surviving primary record and the ids to delete. It exists
// only between the merge and the persistence write.
type MergeResult struct {
	PrimaryID int64
	Update    EntryUpdate
	DeleteIDs []int64
}

// Merge folds records into the record identified by primaryID. Aggregation
// runs across all input records regardless of scope: playtime sums,
// achievement counters and completion take the maximum, the most recent
// last-played timestamp wins, and status/priority resolve by rank. With
// DeleteSelectedOnly, selectedIDs restricts the delete set; the scope
// parameter is first-class rather than three near-identical entry points.
func Merge(records []LibraryEntry, primaryID int64, scope DeletionScope, selectedIDs []int64) (MergeResult, error) {
	if len(records) == 0 {
		return MergeResult{}, fmt.Errorf("merge requires at least one record")
	}

	primaryFound := false
	for _, record := range records {
		if record.ID == primaryID {
			primaryFound = true
			break
		}
	}
	if !primaryFound {
		return MergeResult{}, fmt.Errorf("primary record %d is not part of the merge set", primaryID)
	}

	update := EntryUpdate{
		Status:   StatusUnplayed,
		Priority: PriorityLow,
	}
	for _, record := range records {
		update.PlaytimeHours += record.PlaytimeHours
		if record.AchievementsEarned > update.AchievementsEarned {
			update.AchievementsEarned = record.AchievementsEarned
		}
		if record.AchievementsTotal > update.AchievementsTotal {
			update.AchievementsTotal = record.AchievementsTotal
		}
		if record.CompletionPercentage > update.CompletionPercentage {
			update.CompletionPercentage = record.CompletionPercentage
		}
		update.LastPlayedAt = laterTime(update.LastPlayedAt, record.LastPlayedAt)
		if statusRank[record.Status] > statusRank[update.Status] {
			update.Status = record.Status
		}
		if priorityRank[record.Priority] > priorityRank[update.Priority] {
			update.Priority = record.Priority
		}
	}
	update.Notes = mergeNotes(records)
	update.Tags = mergeTags(records)

	return MergeResult{
		PrimaryID: primaryID,
		Update:    update,
		DeleteIDs: deleteSet(records, primaryID, scope, selectedIDs),
	}, nil
}

func deleteSet(records []LibraryEntry, primaryID int64, scope DeletionScope, selectedIDs []int64) []int64 {
	if scope == DeleteSelectedOnly {
		ids := make([]int64, 0, len(selectedIDs))
		for _, id := range selectedIDs {
			if id != primaryID {
				ids = append(ids, id)
			}
		}
		return ids
	}

	ids := make([]int64, 0, len(records))
	for _, record := range records {
		if record.ID != primaryID {
			ids = append(ids, record.ID)
		}
	}
	return ids
}

// mergeNotes joins each non-empty note prefixed with its platform. When no
// record carries notes the result records which platforms were merged.
func mergeNotes(records []LibraryEntry) string {
	parts := make([]string, 0, len(records))
	for _, record := range records {
		note := strings.TrimSpace(record.Notes)
		if note == "" {
			continue
		}
		parts = append(parts, fmt.Sprintf("[%s] %s", record.Platform, note))
	}

	if len(parts) == 0 {
		platforms := make([]string, 0, len(records))
		for _, record := range records {
			platforms = append(platforms, record.Platform)
		}
		return "Merged from: " + strings.Join(platforms, ", ")
	}

	joined := strings.Join(parts, "\n\n")
	if runes := []rune(joined); len(runes) > mergedNotesMaxLen {
		joined = string(runes[:mergedNotesMaxLen])
	}
	return joined
}

// mergeTags unions tags in order of first appearance, capped at ten.
func mergeTags(records []LibraryEntry) []string {
	seen := make(map[string]struct{})
	tags := make([]string, 0)
	for _, record := range records {
		for _, tag := range record.Tags {
			if _, ok := seen[tag]; ok {
				continue
			}
			seen[tag] = struct{}{}
			tags = append(tags, tag)
			if len(tags) == mergedTagsMax {
				return tags
			}
		}
	}
	return tags
}

func laterTime(current, candidate *time.Time) *time.Time {
	if candidate == nil || candidate.IsZero() {
		return current
	}
	if current == nil || candidate.After(*current) {
		value := candidate.UTC()
		return &value
	}
	return current
}
