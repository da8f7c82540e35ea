package dedupe

import (
	"math"
	"strings"
	"unicode/utf8"

	edlib "github.com/hbollon/go-edlib"
)

// titleKey carries the two derived forms of one title so a grouping run can
// normalize each entry exactly once.
type titleKey struct {
	normalized string
	super      string
}

func newTitleKey(raw string) titleKey {
	return titleKey{
		normalized: NormalizeTitle(raw),
		super:      SuperNormalizeTitle(raw),
	}
}

// Similarity scores two raw titles. The result is the maximum of several
// independent signals rather than a blend: any one strong signal is enough
// evidence that two titles denote the same game. Bonus signals can push the
// raw value above 1.0; callers clamp via Confidence before display but use
// the raw value for ranking and threshold comparison.
func Similarity(rawA, rawB string) float64 {
	return similarityKeys(newTitleKey(rawA), newTitleKey(rawB))
}

func similarityKeys(a, b titleKey) float64 {
	left := a.normalized
	right := b.normalized
	if left == "" || right == "" {
		return 0
	}
	if left == right {
		return 1.0
	}

	best := levenshteinSimilarity(left, right)

	if score, ok := containmentScore(left, right); ok && score > best {
		best = score
	}
	if score := wordOverlapScore(left, right); score > best {
		best = score
	}
	if score, ok := firstWordScore(left, right); ok && score > best {
		best = score
	}
	if a.super == b.super && len(a.super) > 3 && best < 0.85 {
		best = 0.85
	}

	return best
}

// Confidence converts a raw similarity into the 0..100 integer reported to
// callers, clamping the bonus-inflated values.
func Confidence(score float64) int {
	scaled := int(math.Round(score * 100))
	if scaled < 0 {
		return 0
	}
	if scaled > 100 {
		return 100
	}
	return scaled
}

func levenshteinSimilarity(left, right string) float64 {
	longest := maxInt(utf8.RuneCountInString(left), utf8.RuneCountInString(right))
	if longest == 0 {
		return 0
	}
	distance := edlib.LevenshteinDistance(left, right)
	return 1 - float64(distance)/float64(longest)
}

// containmentScore rewards one title containing the other, scaled by how much
// of the longer title the shorter one covers. Lengths are counted in runes so
// multi-byte titles score the same as ASCII ones.
func containmentScore(left, right string) (float64, bool) {
	shorter, longer := left, right
	if utf8.RuneCountInString(shorter) > utf8.RuneCountInString(longer) {
		shorter, longer = longer, shorter
	}
	if !strings.Contains(longer, shorter) {
		return 0, false
	}
	return float64(utf8.RuneCountInString(shorter))/float64(utf8.RuneCountInString(longer)) + 0.2, true
}

// wordOverlapScore is a Jaccard ratio over words longer than one character,
// boosted when both titles agree on several words.
func wordOverlapScore(left, right string) float64 {
	leftWords := significantWords(left)
	rightWords := significantWords(right)
	if len(leftWords) == 0 || len(rightWords) == 0 {
		return 0
	}

	intersection := 0
	for word := range leftWords {
		if _, ok := rightWords[word]; ok {
			intersection++
		}
	}
	if intersection == 0 {
		return 0
	}

	union := len(leftWords) + len(rightWords) - intersection
	ratio := float64(intersection) / float64(union)
	boost := 1 + 0.1*float64(minInt(len(leftWords), len(rightWords)))
	return ratio * boost
}

// firstWordScore rewards a shared leading franchise word. Words of one or two
// characters are too generic to count.
func firstWordScore(left, right string) (float64, bool) {
	leftFirst, _, _ := strings.Cut(left, " ")
	rightFirst, _, _ := strings.Cut(right, " ")
	if leftFirst != rightFirst || utf8.RuneCountInString(leftFirst) <= 2 {
		return 0, false
	}
	longest := maxInt(utf8.RuneCountInString(left), utf8.RuneCountInString(right))
	return 0.5 + (float64(utf8.RuneCountInString(leftFirst))/float64(longest))*0.3, true
}

func significantWords(title string) map[string]struct{} {
	fields := strings.Fields(title)
	words := make(map[string]struct{}, len(fields))
	for _, field := range fields {
		if len(field) > 1 {
			words[field] = struct{}{}
		}
	}
	return words
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
