package dedupe

import (
	"sort"

	"github.com/rs/zerolog"
)

type MatchType string

const (
	MatchExact   MatchType = "exact"
	MatchSimilar MatchType = "similar"
)

// DuplicateGroup is one cluster of library entries believed to represent the
// same game. Groups are produced fresh on every scan and immutable once
// returned; membership is a partition of the scanned snapshot.
type DuplicateGroup struct {
	Key        string
	Members    []LibraryEntry
	MatchType  MatchType
	Confidence int
}

// MemberIDs returns the entry ids of the group in member order.
func (g DuplicateGroup) MemberIDs() []int64 {
	ids := make([]int64, 0, len(g.Members))
	for _, member := range g.Members {
		ids = append(ids, member.ID)
	}
	return ids
}

// Grouper partitions a library snapshot into duplicate groups using three
// sequential passes: shared canonical game id, exact normalized title, and
// greedy fuzzy clustering. Each pass consumes the entries it groups.
type Grouper struct {
	logger zerolog.Logger
}

func NewGrouper(logger zerolog.Logger) *Grouper {
	return &Grouper{logger: logger}
}

// fuzzyThreshold picks the acceptance threshold from the shorter normalized
// title: short keys carry little signal, so they must match almost exactly.
func fuzzyThreshold(shorterLen int) float64 {
	switch {
	case shorterLen < 5:
		return 0.85
	case shorterLen < 10:
		return 0.70
	default:
		return 0.60
	}
}

// Group partitions entries into duplicate groups. Groups whose key appears in
// dismissed (persisted "keep all, don't ask again" decisions keyed by
// normalized title) are filtered out. Output is sorted by key for
// deterministic presentation.
func (g *Grouper) Group(entries []LibraryEntry, dismissed map[string]bool) []DuplicateGroup {
	// Normalized forms are cached per entry for this run only; a new snapshot
	// gets a fresh cache.
	keys := make([]titleKey, len(entries))
	for i, entry := range entries {
		keys[i] = newTitleKey(entry.Title)
	}
	consumed := make([]bool, len(entries))

	groups := g.identityPass(entries, keys, consumed)
	groups = append(groups, g.exactTitlePass(entries, keys, consumed)...)
	groups = append(groups, g.fuzzyPass(entries, keys, consumed)...)

	kept := groups[:0]
	for _, group := range groups {
		if dismissed[group.Key] {
			g.logger.Debug().Str("key", group.Key).Int("members", len(group.Members)).Msg("skipping dismissed duplicate group")
			continue
		}
		kept = append(kept, group)
	}
	groups = kept

	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].Key < groups[j].Key
	})

	g.logger.Info().
		Int("entries", len(entries)).
		Int("groups", len(groups)).
		Msg("duplicate scan complete")
	return groups
}

// identityPass groups entries that share a canonical game id.
func (g *Grouper) identityPass(entries []LibraryEntry, keys []titleKey, consumed []bool) []DuplicateGroup {
	order := make([]string, 0)
	byCanonical := make(map[string][]int)
	for i, entry := range entries {
		if entry.CanonicalGameID == "" {
			continue
		}
		if _, seen := byCanonical[entry.CanonicalGameID]; !seen {
			order = append(order, entry.CanonicalGameID)
		}
		byCanonical[entry.CanonicalGameID] = append(byCanonical[entry.CanonicalGameID], i)
	}

	var groups []DuplicateGroup
	for _, canonicalID := range order {
		indexes := byCanonical[canonicalID]
		if len(indexes) < 2 {
			continue
		}
		members := make([]LibraryEntry, 0, len(indexes))
		for _, i := range indexes {
			members = append(members, entries[i])
			consumed[i] = true
		}
		groups = append(groups, DuplicateGroup{
			Key:        keys[indexes[0]].normalized,
			Members:    members,
			MatchType:  MatchExact,
			Confidence: 100,
		})
		g.logger.Debug().
			Str("canonical_game_id", canonicalID).
			Int("members", len(members)).
			Msg("identity pass grouped entries")
	}
	return groups
}

// exactTitlePass groups remaining entries whose normalized titles are equal.
func (g *Grouper) exactTitlePass(entries []LibraryEntry, keys []titleKey, consumed []bool) []DuplicateGroup {
	order := make([]string, 0)
	byTitle := make(map[string][]int)
	for i := range entries {
		if consumed[i] || keys[i].normalized == "" {
			continue
		}
		if _, seen := byTitle[keys[i].normalized]; !seen {
			order = append(order, keys[i].normalized)
		}
		byTitle[keys[i].normalized] = append(byTitle[keys[i].normalized], i)
	}

	var groups []DuplicateGroup
	for _, key := range order {
		indexes := byTitle[key]
		if len(indexes) < 2 {
			continue
		}
		members := make([]LibraryEntry, 0, len(indexes))
		for _, i := range indexes {
			members = append(members, entries[i])
			consumed[i] = true
		}
		groups = append(groups, DuplicateGroup{
			Key:        key,
			Members:    members,
			MatchType:  MatchExact,
			Confidence: 100,
		})
		g.logger.Debug().
			Str("key", key).
			Int("members", len(members)).
			Msg("exact title pass grouped entries")
	}
	return groups
}

// fuzzyPass clusters the remaining singletons greedily in snapshot order. An
// entry joins the first anchor whose score crosses the dynamic threshold and
// is never reconsidered, even if a later anchor would score higher. This is a
// deliberate fidelity/performance trade-off, not a bug.
func (g *Grouper) fuzzyPass(entries []LibraryEntry, keys []titleKey, consumed []bool) []DuplicateGroup {
	var groups []DuplicateGroup
	for i := range entries {
		if consumed[i] {
			continue
		}
		consumed[i] = true

		members := []LibraryEntry{entries[i]}
		bestScore := 0.0
		for j := i + 1; j < len(entries); j++ {
			if consumed[j] {
				continue
			}
			score := similarityKeys(keys[i], keys[j])
			threshold := fuzzyThreshold(minInt(len(keys[i].normalized), len(keys[j].normalized)))
			if score < threshold {
				continue
			}
			members = append(members, entries[j])
			consumed[j] = true
			if score > bestScore {
				bestScore = score
			}
		}

		if len(members) < 2 {
			continue
		}
		groups = append(groups, DuplicateGroup{
			Key:        keys[i].normalized,
			Members:    members,
			MatchType:  MatchSimilar,
			Confidence: Confidence(bestScore),
		})
		g.logger.Debug().
			Str("key", keys[i].normalized).
			Int("members", len(members)).
			Float64("best_score", bestScore).
			Msg("fuzzy pass grouped entries")
	}
	return groups
}
