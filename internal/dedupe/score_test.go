package dedupe

import (
	"math"
	"testing"
)

func TestSimilarity_IdenticalTitles(t *testing.T) {
	t.Parallel()

	if score := Similarity("Hades", "Hades"); score != 1.0 {
		t.Fatalf("expected 1.0 for identical titles, got %f", score)
	}
	if score := Similarity("GTA V", "Grand Theft Auto 5"); score != 1.0 {
		t.Fatalf("expected 1.0 for titles normalizing to the same key, got %f", score)
	}
}

func TestSimilarity_Containment(t *testing.T) {
	t.Parallel()

	// "witcher 3" is contained in "witcher 3 wild hunt".
	score := Similarity("The Witcher 3", "The Witcher 3: Wild Hunt")
	if score < 0.60 {
		t.Fatalf("expected containment to score at least 0.60, got %f", score)
	}
}

func TestSimilarity_WordOverlap(t *testing.T) {
	t.Parallel()

	score := Similarity("Divinity Original Sin Enhanced", "Divinity Original Sin 2")
	if score < 0.60 {
		t.Fatalf("expected word overlap to score at least 0.60, got %f", score)
	}
}

func TestSimilarity_UnrelatedTitles(t *testing.T) {
	t.Parallel()

	score := Similarity("Stardew Valley", "Bloodborne")
	if score >= 0.60 {
		t.Fatalf("expected unrelated titles below the loosest threshold, got %f", score)
	}
}

func TestSimilarity_SuperNormalizedBonus(t *testing.T) {
	t.Parallel()

	// Same game, different numbering styles that survive normalization
	// differently; the digit-stripped forms agree.
	score := Similarity("Hitman 2016", "Hitman 3")
	if score < 0.85 {
		t.Fatalf("expected super-normalized bonus of at least 0.85, got %f", score)
	}
}

func TestConfidence_Clamps(t *testing.T) {
	t.Parallel()

	if got := Confidence(1.25); got != 100 {
		t.Fatalf("expected clamp to 100, got %d", got)
	}
	if got := Confidence(-0.1); got != 0 {
		t.Fatalf("expected clamp to 0, got %d", got)
	}
	if got := Confidence(0.734); got != 73 {
		t.Fatalf("expected rounding to 73, got %d", got)
	}
}

func TestFirstWordScore_GuardsShortWords(t *testing.T) {
	t.Parallel()

	if _, ok := firstWordScore("fc barcelona", "fc porto"); ok {
		t.Fatalf("two-character first word must not trigger the bonus")
	}
	if score, ok := firstWordScore("halo infinite", "halo wars"); !ok || score <= 0.5 {
		t.Fatalf("expected first word bonus above 0.5, got %f ok=%v", score, ok)
	}
}

func TestContainmentScore_CountsRunes(t *testing.T) {
	t.Parallel()

	// 6 of 8 characters covered, not 18 of 20 bytes.
	score, ok := containmentScore("ウィッチャー", "ウィッチャー 3")
	if !ok {
		t.Fatalf("expected containment to trigger")
	}
	if want := 6.0/8.0 + 0.2; math.Abs(score-want) > 1e-9 {
		t.Fatalf("expected %f, got %f", want, score)
	}
}

func TestFirstWordScore_CountsRunes(t *testing.T) {
	t.Parallel()

	// Shared 4-character first word over a 15-character longest title.
	score, ok := firstWordScore("ペルソナ 5", "ペルソナ 3 portable")
	if !ok {
		t.Fatalf("expected shared first word to trigger")
	}
	if want := 0.5 + (4.0/15.0)*0.3; math.Abs(score-want) > 1e-9 {
		t.Fatalf("expected %f, got %f", want, score)
	}
}
