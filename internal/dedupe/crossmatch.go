package dedupe

import (
	"sort"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

// RawEntry is one freshly fetched row from a connected platform account,
// already validated and typed at the collaborator boundary.
type RawEntry struct {
	PlatformID           string
	Title                string
	CoverURL             string
	PlaytimeHours        float64
	AchievementsEarned   int
	AchievementsTotal    int
	CompletionPercentage float64
	LastPlayedAt         *time.Time
}

// PlatformMatch reports a platform entry that likely represents the target
// game, carrying the stats used to enrich a library entry.
type PlatformMatch struct {
	Platform             string  `json:"platform"`
	PlatformID           string  `json:"platform_id"`
	CoverURL             string  `json:"cover_url,omitempty"`
	PlaytimeHours        float64 `json:"playtime_hours"`
	AchievementsEarned   int     `json:"achievements_earned"`
	AchievementsTotal    int     `json:"achievements_total"`
	CompletionPercentage float64 `json:"completion_percentage"`
	Confidence           int     `json:"confidence"`
}

const crossMatchMinConfidence = 70

// LightNormalizeTitle applies the reduced rule set used for cross-platform
// matching: casefolding, basic punctuation, bracketed annotations, and
// edition vocabulary. No abbreviation expansion or roman numeral conversion;
// platform rows tend to use full titles already, and the lighter key keeps
// matching cheap for large fetched lists.
func LightNormalizeTitle(raw string) string {
	s := strings.ToLower(norm.NFC.String(raw))
	s = trademarkReplacer.Replace(s)
	s = punctuationRe.ReplaceAllString(s, " ")
	s = quoteRe.ReplaceAllString(s, "")
	s = bracketedRe.ReplaceAllString(s, " ")
	s = editionRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(multiSpaceRe.ReplaceAllString(s, " "))
}

// MatchAgainstPlatform scores a target title against freshly fetched entries
// from one platform and returns matches at or above 70 confidence, best
// first. The heuristic is deliberately lighter than the grouper's ensemble:
// substring containment, then word overlap.
func MatchAgainstPlatform(target, platform string, entries []RawEntry) []PlatformMatch {
	targetKey := LightNormalizeTitle(target)
	if targetKey == "" {
		return nil
	}

	matches := make([]PlatformMatch, 0)
	for _, entry := range entries {
		candidateKey := LightNormalizeTitle(entry.Title)
		if candidateKey == "" {
			continue
		}
		confidence := Confidence(crossMatchScore(targetKey, candidateKey))
		if confidence < crossMatchMinConfidence {
			continue
		}
		matches = append(matches, PlatformMatch{
			Platform:             platform,
			PlatformID:           entry.PlatformID,
			CoverURL:             entry.CoverURL,
			PlaytimeHours:        entry.PlaytimeHours,
			AchievementsEarned:   entry.AchievementsEarned,
			AchievementsTotal:    entry.AchievementsTotal,
			CompletionPercentage: entry.CompletionPercentage,
			Confidence:           confidence,
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Confidence > matches[j].Confidence
	})
	return matches
}

func crossMatchScore(target, candidate string) float64 {
	if target == candidate {
		return 1.0
	}

	best := 0.0
	if score, ok := containmentScore(target, candidate); ok {
		best = score
	}

	targetWords := significantWords(target)
	candidateWords := significantWords(candidate)
	if len(targetWords) > 0 && len(candidateWords) > 0 {
		intersection := 0
		for word := range targetWords {
			if _, ok := candidateWords[word]; ok {
				intersection++
			}
		}
		union := len(targetWords) + len(candidateWords) - intersection
		if union > 0 {
			if ratio := float64(intersection) / float64(union); ratio > best {
				best = ratio
			}
		}
	}
	return best
}
