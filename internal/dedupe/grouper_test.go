package dedupe

import (
	"reflect"
	"testing"

	"github.com/rs/zerolog"
)

func testGrouper() *Grouper {
	return NewGrouper(zerolog.Nop())
}

func TestGroup_SharedCanonicalID(t *testing.T) {
	t.Parallel()

	entries := []LibraryEntry{
		{ID: 1, CanonicalGameID: "igdb-1020", Title: "GTA V", Platform: "steam"},
		{ID: 2, CanonicalGameID: "igdb-1020", Title: "Grand Theft Auto V", Platform: "playstation"},
		{ID: 3, Title: "Celeste", Platform: "steam"},
	}

	groups := testGrouper().Group(entries, nil)
	if len(groups) != 1 {
		t.Fatalf("expected 1 group, got %d", len(groups))
	}
	if groups[0].MatchType != MatchExact || groups[0].Confidence != 100 {
		t.Fatalf("identity groups must be exact at confidence 100, got %s/%d", groups[0].MatchType, groups[0].Confidence)
	}
	if !reflect.DeepEqual(groups[0].MemberIDs(), []int64{1, 2}) {
		t.Fatalf("unexpected members: %v", groups[0].MemberIDs())
	}
}

func TestGroup_CrossPlatformFuzzyScenario(t *testing.T) {
	t.Parallel()

	entries := []LibraryEntry{
		{ID: 1, Title: "Grand Theft Auto V", Platform: "steam"},
		{ID: 2, Title: "GTA V", Platform: "playstation"},
		{ID: 3, Title: "Grand Theft Auto 5 - Premium Edition", Platform: "xbox"},
	}

	groups := testGrouper().Group(entries, nil)
	if len(groups) != 1 {
		t.Fatalf("expected exactly one group, got %d", len(groups))
	}
	if len(groups[0].Members) != 3 {
		t.Fatalf("expected all three entries grouped, got %d members", len(groups[0].Members))
	}
	if groups[0].Confidence < 70 {
		t.Fatalf("expected confidence >= 70, got %d", groups[0].Confidence)
	}
}

func TestGroup_FuzzyConfidenceRange(t *testing.T) {
	t.Parallel()

	entries := []LibraryEntry{
		{ID: 1, Title: "Assassin's Creed Odyssey", Platform: "steam"},
		{ID: 2, Title: "Assassins Creed Odyssey Gold", Platform: "playstation"},
	}

	groups := testGrouper().Group(entries, nil)
	if len(groups) != 1 {
		t.Fatalf("expected 1 group, got %d", len(groups))
	}
	group := groups[0]
	if group.MatchType != MatchSimilar {
		t.Fatalf("expected similar match, got %s", group.MatchType)
	}
	if group.Confidence < 60 || group.Confidence > 100 {
		t.Fatalf("fuzzy confidence out of range: %d", group.Confidence)
	}
}

func TestGroup_MembershipIsAPartition(t *testing.T) {
	t.Parallel()

	entries := []LibraryEntry{
		{ID: 1, Title: "Dark Souls III", Platform: "steam"},
		{ID: 2, Title: "Dark Souls 3", Platform: "playstation"},
		{ID: 3, Title: "Dark Souls II", Platform: "steam"},
		{ID: 4, Title: "Dark Souls 2: Scholar of the First Sin", Platform: "playstation"},
		{ID: 5, Title: "Sekiro", Platform: "steam"},
	}

	groups := testGrouper().Group(entries, nil)
	seen := make(map[int64]int)
	for _, group := range groups {
		for _, id := range group.MemberIDs() {
			seen[id]++
		}
	}
	for id, count := range seen {
		if count > 1 {
			t.Fatalf("entry %d appears in %d groups", id, count)
		}
	}
}

func TestGroup_Deterministic(t *testing.T) {
	t.Parallel()

	entries := []LibraryEntry{
		{ID: 1, Title: "The Witcher 3: Wild Hunt", Platform: "steam"},
		{ID: 2, Title: "Witcher 3 Wild Hunt GOTY", Platform: "gog"},
		{ID: 3, CanonicalGameID: "igdb-7", Title: "Hades", Platform: "steam"},
		{ID: 4, CanonicalGameID: "igdb-7", Title: "Hades", Platform: "epic"},
		{ID: 5, Title: "Stardew Valley", Platform: "steam"},
	}

	first := testGrouper().Group(entries, nil)
	second := testGrouper().Group(entries, nil)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("grouping is not deterministic:\n%v\n%v", first, second)
	}
	if len(first) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(first))
	}
}

func TestGroup_FiltersDismissedKeys(t *testing.T) {
	t.Parallel()

	entries := []LibraryEntry{
		{ID: 1, Title: "Hades", Platform: "steam"},
		{ID: 2, Title: "Hades", Platform: "epic"},
	}

	dismissed := map[string]bool{NormalizeTitle("Hades"): true}
	groups := testGrouper().Group(entries, dismissed)
	if len(groups) != 0 {
		t.Fatalf("expected dismissed group to be filtered, got %d groups", len(groups))
	}
}

func TestGroup_GreedyFirstMatchConsumes(t *testing.T) {
	t.Parallel()

	// An entry joins the first anchor that crosses the threshold and is not
	// reconsidered by later anchors.
	entries := []LibraryEntry{
		{ID: 1, Title: "Forza Horizon 4", Platform: "steam"},
		{ID: 2, Title: "Forza Horizon 5", Platform: "xbox"},
		{ID: 3, Title: "Forza Horizon", Platform: "xbox"},
	}

	groups := testGrouper().Group(entries, nil)
	total := 0
	for _, group := range groups {
		total += len(group.Members)
	}
	if total != 3 {
		t.Fatalf("expected every entry consumed exactly once, got %d memberships", total)
	}
}

func TestFuzzyThreshold(t *testing.T) {
	t.Parallel()

	if got := fuzzyThreshold(4); got != 0.85 {
		t.Fatalf("short titles: got %f", got)
	}
	if got := fuzzyThreshold(7); got != 0.70 {
		t.Fatalf("medium titles: got %f", got)
	}
	if got := fuzzyThreshold(20); got != 0.60 {
		t.Fatalf("long titles: got %f", got)
	}
}
