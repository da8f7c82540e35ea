package dedupe

import "testing"

func TestLightNormalizeTitle(t *testing.T) {
	t.Parallel()

	if got := LightNormalizeTitle("The Witcher 3: Wild Hunt — Game of the Year Edition"); got != "the witcher 3 wild hunt" {
		t.Fatalf("unexpected key: %q", got)
	}
	// No abbreviation expansion on this path.
	if got := LightNormalizeTitle("GTA V"); got != "gta v" {
		t.Fatalf("abbreviations must survive: %q", got)
	}
	if got := LightNormalizeTitle("DOOM™ (2016)"); got != "doom" {
		t.Fatalf("trademark/bracket strip: %q", got)
	}
}

func TestMatchAgainstPlatform_FiltersBelowThreshold(t *testing.T) {
	t.Parallel()

	entries := []RawEntry{
		{PlatformID: "app-1", Title: "Hades", PlaytimeHours: 30},
		{PlatformID: "app-2", Title: "Hades II", PlaytimeHours: 4},
		{PlatformID: "app-3", Title: "Bloodborne"},
	}

	matches := MatchAgainstPlatform("Hades", "steam", entries)
	if len(matches) == 0 {
		t.Fatalf("expected at least the exact match")
	}
	for _, match := range matches {
		if match.Confidence < crossMatchMinConfidence {
			t.Fatalf("match %q below threshold: %d", match.PlatformID, match.Confidence)
		}
		if match.PlatformID == "app-3" {
			t.Fatalf("unrelated title must not match")
		}
	}
}

func TestMatchAgainstPlatform_SortsBestFirst(t *testing.T) {
	t.Parallel()

	entries := []RawEntry{
		// Containment covers 15 of 26 normalized characters, landing the
		// expansion above the threshold but below the exact match.
		{PlatformID: "app-1", Title: "Forza Horizon 5: Hot Wheels"},
		{PlatformID: "app-2", Title: "Forza Horizon 5"},
	}

	matches := MatchAgainstPlatform("Forza Horizon 5", "xbox", entries)
	if len(matches) != 2 {
		t.Fatalf("expected both entries to match, got %d", len(matches))
	}
	if matches[0].PlatformID != "app-2" || matches[0].Confidence != 100 {
		t.Fatalf("exact title must rank first: %+v", matches[0])
	}
	if matches[1].PlatformID != "app-1" || matches[1].Confidence >= 100 {
		t.Fatalf("partial match must rank second below 100: %+v", matches[1])
	}
}

func TestMatchAgainstPlatform_CarriesEntryStats(t *testing.T) {
	t.Parallel()

	entries := []RawEntry{{
		PlatformID:           "ps-77",
		Title:                "Bloodborne",
		CoverURL:             "https://img.example/bb.jpg",
		PlaytimeHours:        62.5,
		AchievementsEarned:   34,
		AchievementsTotal:    40,
		CompletionPercentage: 85,
	}}

	matches := MatchAgainstPlatform("Bloodborne", "playstation", entries)
	if len(matches) != 1 {
		t.Fatalf("expected 1 match, got %d", len(matches))
	}
	match := matches[0]
	if match.Platform != "playstation" || match.CoverURL != "https://img.example/bb.jpg" {
		t.Fatalf("platform metadata lost: %+v", match)
	}
	if match.PlaytimeHours != 62.5 || match.AchievementsEarned != 34 || match.AchievementsTotal != 40 {
		t.Fatalf("stats lost: %+v", match)
	}
}

func TestMatchAgainstPlatform_EmptyTarget(t *testing.T) {
	t.Parallel()

	if matches := MatchAgainstPlatform("™", "steam", []RawEntry{{PlatformID: "x", Title: "Hades"}}); matches != nil {
		t.Fatalf("empty normalized target must return nil, got %v", matches)
	}
}
