package dedupe

import (
	"math"
	"reflect"
	"strings"
	"testing"
	"time"
	"unicode/utf8"
)

func mergeFixture() []LibraryEntry {
	early := time.Date(2025, 11, 2, 20, 0, 0, 0, time.UTC)
	late := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	return []LibraryEntry{
		{
			ID: 1, Title: "Elden Ring", Platform: "steam",
			PlaytimeHours: 80.5, AchievementsEarned: 30, AchievementsTotal: 42,
			CompletionPercentage: 71.4, LastPlayedAt: &late,
			Status: StatusPlaying, Priority: PriorityMedium,
			Notes: "co-op run with Sam", Tags: []string{"rpg", "souls"},
		},
		{
			ID: 2, Title: "ELDEN RING", Platform: "playstation",
			PlaytimeHours: 12.25, AchievementsEarned: 41, AchievementsTotal: 42,
			CompletionPercentage: 97.6, LastPlayedAt: &early,
			Status: StatusCompleted, Priority: PriorityLow,
			Tags: []string{"souls", "backlog"},
		},
		{
			ID: 3, Title: "Elden Ring", Platform: "xbox",
			PlaytimeHours: 3, Status: StatusUnplayed, Priority: PriorityHigh,
		},
	}
}

func TestMerge_AggregatesAcrossAllRecords(t *testing.T) {
	t.Parallel()

	records := mergeFixture()
	result, err := Merge(records, 1, DeleteAllOther, nil)
	if err != nil {
		t.Fatalf("merge failed: %v", err)
	}

	if math.Abs(result.Update.PlaytimeHours-95.75) > 1e-9 {
		t.Fatalf("playtime must sum: got %f", result.Update.PlaytimeHours)
	}
	if result.Update.AchievementsEarned != 41 || result.Update.AchievementsTotal != 42 {
		t.Fatalf("achievements must take the max: got %d/%d", result.Update.AchievementsEarned, result.Update.AchievementsTotal)
	}
	if result.Update.CompletionPercentage != 97.6 {
		t.Fatalf("completion must take the max: got %f", result.Update.CompletionPercentage)
	}
	if result.Update.LastPlayedAt == nil || !result.Update.LastPlayedAt.Equal(time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)) {
		t.Fatalf("last played must be the most recent: got %v", result.Update.LastPlayedAt)
	}
	if result.Update.Status != StatusCompleted {
		t.Fatalf("status must take the highest rank: got %s", result.Update.Status)
	}
	if result.Update.Priority != PriorityHigh {
		t.Fatalf("priority must take the highest rank: got %s", result.Update.Priority)
	}
}

func TestMerge_NotesArePrefixedAndJoined(t *testing.T) {
	t.Parallel()

	records := mergeFixture()
	records[1].Notes = "platinum trophy"
	result, err := Merge(records, 1, DeleteAllOther, nil)
	if err != nil {
		t.Fatalf("merge failed: %v", err)
	}

	want := "[steam] co-op run with Sam\n\n[playstation] platinum trophy"
	if result.Update.Notes != want {
		t.Fatalf("unexpected notes: %q", result.Update.Notes)
	}
}

func TestMerge_NotesFallback(t *testing.T) {
	t.Parallel()

	records := mergeFixture()
	records[0].Notes = ""
	result, err := Merge(records, 2, DeleteAllOther, nil)
	if err != nil {
		t.Fatalf("merge failed: %v", err)
	}
	if result.Update.Notes != "Merged from: steam, playstation, xbox" {
		t.Fatalf("unexpected fallback notes: %q", result.Update.Notes)
	}
}

func TestMerge_NotesTruncated(t *testing.T) {
	t.Parallel()

	records := mergeFixture()
	records[0].Notes = strings.Repeat("a", 3000)
	result, err := Merge(records, 1, DeleteAllOther, nil)
	if err != nil {
		t.Fatalf("merge failed: %v", err)
	}
	if len(result.Update.Notes) != mergedNotesMaxLen {
		t.Fatalf("notes must truncate to %d, got %d", mergedNotesMaxLen, len(result.Update.Notes))
	}
}

func TestMerge_NotesTruncateOnRuneBoundary(t *testing.T) {
	t.Parallel()

	// Multi-byte notes push the joined text past the limit; the cut must
	// land between characters, never inside one.
	records := mergeFixture()
	records[0].Notes = "a" + strings.Repeat("é", 1995)
	records[1].Notes = strings.Repeat("ü", 100)
	result, err := Merge(records, 1, DeleteAllOther, nil)
	if err != nil {
		t.Fatalf("merge failed: %v", err)
	}
	if !utf8.ValidString(result.Update.Notes) {
		t.Fatalf("truncated notes are not valid UTF-8: %q", result.Update.Notes[len(result.Update.Notes)-8:])
	}
	if got := utf8.RuneCountInString(result.Update.Notes); got != mergedNotesMaxLen {
		t.Fatalf("notes must truncate to %d characters, got %d", mergedNotesMaxLen, got)
	}
}

func TestMerge_TagsUnionInFirstAppearanceOrder(t *testing.T) {
	t.Parallel()

	result, err := Merge(mergeFixture(), 1, DeleteAllOther, nil)
	if err != nil {
		t.Fatalf("merge failed: %v", err)
	}
	if !reflect.DeepEqual(result.Update.Tags, []string{"rpg", "souls", "backlog"}) {
		t.Fatalf("unexpected tags: %v", result.Update.Tags)
	}
}

func TestMerge_TagsCappedAtTen(t *testing.T) {
	t.Parallel()

	records := mergeFixture()
	records[0].Tags = []string{"t1", "t2", "t3", "t4", "t5", "t6", "t7"}
	records[1].Tags = []string{"t8", "t9", "t10", "t11", "t12"}
	result, err := Merge(records, 1, DeleteAllOther, nil)
	if err != nil {
		t.Fatalf("merge failed: %v", err)
	}
	if len(result.Update.Tags) != mergedTagsMax {
		t.Fatalf("tags must cap at %d, got %d", mergedTagsMax, len(result.Update.Tags))
	}
}

func TestMerge_DeleteAllOtherScope(t *testing.T) {
	t.Parallel()

	result, err := Merge(mergeFixture(), 2, DeleteAllOther, nil)
	if err != nil {
		t.Fatalf("merge failed: %v", err)
	}
	if !reflect.DeepEqual(result.DeleteIDs, []int64{1, 3}) {
		t.Fatalf("all-other scope must delete every non-primary id: %v", result.DeleteIDs)
	}
}

func TestMerge_SelectedOnlyScope(t *testing.T) {
	t.Parallel()

	// Record 3 is part of the group but not part of this decision; it must
	// survive selected-only deletion.
	result, err := Merge(mergeFixture(), 1, DeleteSelectedOnly, []int64{2})
	if err != nil {
		t.Fatalf("merge failed: %v", err)
	}
	if !reflect.DeepEqual(result.DeleteIDs, []int64{2}) {
		t.Fatalf("selected-only scope must delete only the selected ids: %v", result.DeleteIDs)
	}
}

func TestMerge_PrimaryMustBelong(t *testing.T) {
	t.Parallel()

	if _, err := Merge(mergeFixture(), 99, DeleteAllOther, nil); err == nil {
		t.Fatalf("expected error for primary outside the merge set")
	}
}
