package dedupe

import "testing"

func TestNormalizeTitle_DropsArticlePunctuationAndEdition(t *testing.T) {
	t.Parallel()

	got := NormalizeTitle("The Witcher 3: Wild Hunt – Game of the Year Edition")
	want := NormalizeTitle("Witcher 3 Wild Hunt")
	if got != want {
		t.Fatalf("unexpected normalization: got %q want %q", got, want)
	}
	if got != "witcher 3 wild hunt" {
		t.Fatalf("unexpected key: %q", got)
	}
}

func TestNormalizeTitle_Idempotent(t *testing.T) {
	t.Parallel()

	titles := []string{
		"The Witcher 3: Wild Hunt – Game of the Year Edition",
		"GTA V",
		"TLOU Part II",
		"Dark Souls™ III (PC)",
		"Final Fantasy VII Remake [PS5] 2020",
		"RE4",
		"Hades",
		"",
	}
	for _, title := range titles {
		once := NormalizeTitle(title)
		twice := NormalizeTitle(once)
		if once != twice {
			t.Fatalf("normalization not idempotent for %q: %q != %q", title, once, twice)
		}
	}
}

func TestNormalizeTitle_ExpandsAbbreviations(t *testing.T) {
	t.Parallel()

	if got := NormalizeTitle("GTA V"); got != "grand theft auto 5" {
		t.Fatalf("gta expansion: got %q", got)
	}
	if got := NormalizeTitle("Grand Theft Auto 5 - Premium Edition"); got != "grand theft auto 5" {
		t.Fatalf("premium edition strip: got %q", got)
	}
	if got := NormalizeTitle("TLOU"); got != "last of us" {
		t.Fatalf("tlou expansion: got %q", got)
	}
	if got := NormalizeTitle("CoD MW"); got != "call of duty modern warfare" {
		t.Fatalf("cod mw expansion: got %q", got)
	}
}

func TestNormalizeTitle_RomanNumerals(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"Final Fantasy VII":    "final fantasy 7",
		"Civilization VI":      "civilization 6",
		"Dragon Quest XI":      "dragon quest 11",
		"Street Fighter IV":    "street fighter 4",
		"Final Fantasy Ⅶ":      "final fantasy 7",
		"Rocky XV":             "rocky 15",
		"Grand Theft Auto III": "grand theft auto 3",
	}
	for input, want := range cases {
		if got := NormalizeTitle(input); got != want {
			t.Fatalf("roman conversion for %q: got %q want %q", input, got, want)
		}
	}
}

func TestNormalizeTitle_StripsPlatformYearAndBrackets(t *testing.T) {
	t.Parallel()

	if got := NormalizeTitle("DOOM (2016) [Steam]"); got != "doom" {
		t.Fatalf("bracket/year strip: got %q", got)
	}
	if got := NormalizeTitle("Horizon Zero Dawn PC"); got != "horizon zero dawn" {
		t.Fatalf("platform token strip: got %q", got)
	}
	if got := NormalizeTitle("Halo: The Master Chief Collection Xbox One"); got != "halo the master chief" {
		t.Fatalf("multi-word platform strip: got %q", got)
	}
}

func TestNormalizeTitle_UnicodeCleanup(t *testing.T) {
	t.Parallel()

	// NBSP, zero-width space, and trademark glyphs all disappear.
	if got := NormalizeTitle("Dark Souls​™ III"); got != "dark souls 3" {
		t.Fatalf("unicode cleanup: got %q", got)
	}
}

func TestSuperNormalizeTitle(t *testing.T) {
	t.Parallel()

	if got := SuperNormalizeTitle("The Witcher 3: Wild Hunt"); got != "witcher wild hunt" {
		t.Fatalf("digit strip: got %q", got)
	}

	// Stripping digits from a short key would leave nothing useful; the
	// plain normalized form is the fallback.
	if got := SuperNormalizeTitle("FF7"); got != NormalizeTitle("FF7") {
		t.Fatalf("short fallback: got %q want %q", got, NormalizeTitle("FF7"))
	}
}
