package dedupe

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
)

type fakeStore struct {
	entries     []LibraryEntry
	dismissed   map[string][]int64
	updates     map[int64]EntryUpdate
	deleted     []int64
	snapshotErr error
	updateErr   map[int64]error
}

func newFakeStore(entries ...LibraryEntry) *fakeStore {
	return &fakeStore{
		entries:   entries,
		dismissed: make(map[string][]int64),
		updates:   make(map[int64]EntryUpdate),
		updateErr: make(map[int64]error),
	}
}

func (s *fakeStore) Snapshot(context.Context) ([]LibraryEntry, error) {
	if s.snapshotErr != nil {
		return nil, s.snapshotErr
	}
	out := make([]LibraryEntry, len(s.entries))
	copy(out, s.entries)
	return out, nil
}

func (s *fakeStore) UpdateEntry(_ context.Context, id int64, update EntryUpdate) error {
	if err := s.updateErr[id]; err != nil {
		return err
	}
	s.updates[id] = update
	return nil
}

func (s *fakeStore) DeleteEntries(_ context.Context, ids []int64) error {
	s.deleted = append(s.deleted, ids...)
	kept := s.entries[:0]
	for _, entry := range s.entries {
		remove := false
		for _, id := range ids {
			if entry.ID == id {
				remove = true
				break
			}
		}
		if !remove {
			kept = append(kept, entry)
		}
	}
	s.entries = kept
	return nil
}

func (s *fakeStore) DismissedKeys(context.Context) (map[string]bool, error) {
	keys := make(map[string]bool, len(s.dismissed))
	for key := range s.dismissed {
		keys[key] = true
	}
	return keys, nil
}

func (s *fakeStore) UpsertDismissal(_ context.Context, key string, memberIDs []int64) error {
	s.dismissed[key] = memberIDs
	return nil
}

func duplicateFixture() []LibraryEntry {
	return []LibraryEntry{
		{ID: 1, Title: "Hades", Platform: "steam", PlaytimeHours: 10},
		{ID: 2, Title: "Hades", Platform: "epic", PlaytimeHours: 5},
		{ID: 3, Title: "GTA V", Platform: "steam", PlaytimeHours: 100},
		{ID: 4, Title: "Grand Theft Auto V", Platform: "playstation", PlaytimeHours: 20},
		{ID: 5, Title: "Celeste", Platform: "steam"},
	}
}

func newTestWorkflow(store Store) *Workflow {
	return NewWorkflow(store, nil, zerolog.Nop())
}

func TestWorkflow_ScanTransitions(t *testing.T) {
	t.Parallel()

	w := newTestWorkflow(newFakeStore(duplicateFixture()...))
	if w.State() != StateIdle {
		t.Fatalf("new workflow must start idle, got %s", w.State())
	}

	groups, err := w.StartScan(context.Background())
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	if len(groups) != 2 {
		t.Fatalf("expected 2 duplicate groups, got %d", len(groups))
	}
	if w.State() != StateReviewing {
		t.Fatalf("expected reviewing after scan with groups, got %s", w.State())
	}
}

func TestWorkflow_ScanWithoutDuplicatesCompletes(t *testing.T) {
	t.Parallel()

	w := newTestWorkflow(newFakeStore(
		LibraryEntry{ID: 1, Title: "Celeste", Platform: "steam"},
		LibraryEntry{ID: 2, Title: "Bloodborne", Platform: "playstation"},
	))
	groups, err := w.StartScan(context.Background())
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	if len(groups) != 0 || w.State() != StateComplete {
		t.Fatalf("expected empty scan to complete, got %d groups state=%s", len(groups), w.State())
	}
}

func TestWorkflow_ScanFailureIsFatal(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	store.snapshotErr = fmt.Errorf("no authenticated session")
	w := newTestWorkflow(store)

	if _, err := w.StartScan(context.Background()); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}
	if w.State() != StateIdle {
		t.Fatalf("failed scan must retain no state, got %s", w.State())
	}
}

func TestWorkflow_DecideAdvancesToSummary(t *testing.T) {
	t.Parallel()

	w := newTestWorkflow(newFakeStore(duplicateFixture()...))
	groups, err := w.StartScan(context.Background())
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}

	if err := w.Decide(0, PendingAction{Type: ActionKeepOne, KeepID: groups[0].Members[0].ID}); err != nil {
		t.Fatalf("first decision failed: %v", err)
	}
	if w.State() != StateReviewing || w.CurrentIndex() != 1 {
		t.Fatalf("cursor must advance, state=%s cursor=%d", w.State(), w.CurrentIndex())
	}

	if err := w.Decide(1, PendingAction{Type: ActionSkip}); err != nil {
		t.Fatalf("second decision failed: %v", err)
	}
	if w.State() != StateSummary {
		t.Fatalf("expected summary after deciding the last group, got %s", w.State())
	}
}

func TestWorkflow_BackDoesNotAlterActions(t *testing.T) {
	t.Parallel()

	w := newTestWorkflow(newFakeStore(duplicateFixture()...))
	if _, err := w.StartScan(context.Background()); err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	if err := w.Decide(0, PendingAction{Type: ActionKeepAll}); err != nil {
		t.Fatalf("decision failed: %v", err)
	}
	if err := w.Back(); err != nil {
		t.Fatalf("back failed: %v", err)
	}
	if w.CurrentIndex() != 0 {
		t.Fatalf("expected cursor back at 0, got %d", w.CurrentIndex())
	}
	if len(w.Actions()) != 1 {
		t.Fatalf("moving back must not discard actions, got %d", len(w.Actions()))
	}
}

func TestWorkflow_SummaryEditsPreserveOtherDecisions(t *testing.T) {
	t.Parallel()

	w := newTestWorkflow(newFakeStore(duplicateFixture()...))
	groups, err := w.StartScan(context.Background())
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	if err := w.Decide(0, PendingAction{Type: ActionKeepOne, KeepID: groups[0].Members[0].ID}); err != nil {
		t.Fatalf("decision failed: %v", err)
	}
	if err := w.Decide(1, PendingAction{Type: ActionDeleteAll}); err != nil {
		t.Fatalf("decision failed: %v", err)
	}

	// Re-label without touching stored identifiers.
	if err := w.ChangeActionType(1, ActionSkip); err != nil {
		t.Fatalf("change action type failed: %v", err)
	}
	actions := w.Actions()
	if actions[1].Type != ActionSkip || len(actions[1].MemberIDs) == 0 {
		t.Fatalf("re-label must keep identifiers: %+v", actions[1])
	}

	// Re-reviewing group 1 keeps group 0's decision queued.
	if err := w.GoBackToReview(1); err != nil {
		t.Fatalf("go back to review failed: %v", err)
	}
	if w.State() != StateReviewing || w.CurrentIndex() != 1 {
		t.Fatalf("expected reviewing at index 1, got %s/%d", w.State(), w.CurrentIndex())
	}
	if err := w.Decide(1, PendingAction{Type: ActionDeleteAll}); err != nil {
		t.Fatalf("re-decision failed: %v", err)
	}
	if w.State() != StateSummary {
		t.Fatalf("expected summary after re-deciding, got %s", w.State())
	}
	if len(w.Actions()) != 2 {
		t.Fatalf("editing one group must not discard others, got %d actions", len(w.Actions()))
	}

	if err := w.RemoveAction(0); err != nil {
		t.Fatalf("remove action failed: %v", err)
	}
	if len(w.Actions()) != 1 {
		t.Fatalf("expected 1 action after removal, got %d", len(w.Actions()))
	}
}

func TestWorkflow_ExecuteKeepOneMerges(t *testing.T) {
	t.Parallel()

	store := newFakeStore(duplicateFixture()...)
	w := newTestWorkflow(store)
	groups, err := w.StartScan(context.Background())
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}

	// groups are sorted by key: "grand theft auto 5" before "hades".
	if err := w.Decide(0, PendingAction{Type: ActionKeepOne, KeepID: 3}); err != nil {
		t.Fatalf("decision failed: %v", err)
	}
	if err := w.Decide(1, PendingAction{Type: ActionSkip}); err != nil {
		t.Fatalf("decision failed: %v", err)
	}
	_ = groups

	var progress []int
	result, err := w.Execute(context.Background(), func(processed, total int) {
		progress = append(progress, processed)
	})
	if err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	if result.SuccessCount != 1 || result.FailedCount != 0 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if w.State() != StateComplete {
		t.Fatalf("expected complete, got %s", w.State())
	}

	update, ok := store.updates[3]
	if !ok {
		t.Fatalf("primary record was not updated")
	}
	if update.PlaytimeHours != 120 {
		t.Fatalf("expected summed playtime 120, got %f", update.PlaytimeHours)
	}
	if len(store.deleted) != 1 || store.deleted[0] != 4 {
		t.Fatalf("expected only the other group member deleted, got %v", store.deleted)
	}
	if len(progress) != 1 || progress[0] != 1 {
		t.Fatalf("unexpected progress reports: %v", progress)
	}
}

func TestWorkflow_ExecuteCountsStaleTargets(t *testing.T) {
	t.Parallel()

	entries := []LibraryEntry{
		{ID: 1, Title: "Hades", Platform: "steam"},
		{ID: 2, Title: "Hades", Platform: "epic"},
		{ID: 3, Title: "Celeste", Platform: "steam"},
		{ID: 4, Title: "Celeste", Platform: "epic"},
		{ID: 5, Title: "Doom", Platform: "steam"},
		{ID: 6, Title: "DOOM", Platform: "xbox"},
	}
	store := newFakeStore(entries...)
	w := newTestWorkflow(store)
	if _, err := w.StartScan(context.Background()); err != nil {
		t.Fatalf("scan failed: %v", err)
	}

	// Sorted keys: celeste, doom, hades.
	if err := w.Decide(0, PendingAction{Type: ActionKeepOne, KeepID: 3}); err != nil {
		t.Fatalf("decision failed: %v", err)
	}
	if err := w.Decide(1, PendingAction{Type: ActionKeepOne, KeepID: 5}); err != nil {
		t.Fatalf("decision failed: %v", err)
	}
	if err := w.Decide(2, PendingAction{Type: ActionDeleteAll}); err != nil {
		t.Fatalf("decision failed: %v", err)
	}

	// The doom keep target disappears between review and execution.
	if err := store.DeleteEntries(context.Background(), []int64{5}); err != nil {
		t.Fatalf("setup delete failed: %v", err)
	}
	store.deleted = nil

	result, err := w.Execute(context.Background(), nil)
	if err != nil {
		t.Fatalf("execute must not throw for stale targets: %v", err)
	}
	if result.SuccessCount != 2 || result.FailedCount != 1 {
		t.Fatalf("expected 2 successes and 1 failure, got %+v", result)
	}
}

func TestWorkflow_ExecuteHonorsCancellation(t *testing.T) {
	t.Parallel()

	store := newFakeStore(duplicateFixture()...)
	w := newTestWorkflow(store)
	if _, err := w.StartScan(context.Background()); err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	if err := w.Decide(0, PendingAction{Type: ActionDeleteAll}); err != nil {
		t.Fatalf("decision failed: %v", err)
	}
	if err := w.Decide(1, PendingAction{Type: ActionDeleteAll}); err != nil {
		t.Fatalf("decision failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	result, err := w.Execute(ctx, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context error, got %v", err)
	}
	if result.SuccessCount != 0 || result.FailedCount != 0 {
		t.Fatalf("cancelled run must not process actions: %+v", result)
	}
}

func TestWorkflow_KeepAllDismissesGroupOnRescan(t *testing.T) {
	t.Parallel()

	store := newFakeStore(
		LibraryEntry{ID: 1, Title: "Hades", Platform: "steam"},
		LibraryEntry{ID: 2, Title: "Hades", Platform: "epic"},
	)
	w := newTestWorkflow(store)
	if _, err := w.StartScan(context.Background()); err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	if err := w.Decide(0, PendingAction{Type: ActionKeepAll}); err != nil {
		t.Fatalf("decision failed: %v", err)
	}
	if _, err := w.Execute(context.Background(), nil); err != nil {
		t.Fatalf("execute failed: %v", err)
	}

	groups, err := w.ResetAndRescan(context.Background())
	if err != nil {
		t.Fatalf("rescan failed: %v", err)
	}
	if len(groups) != 0 {
		t.Fatalf("dismissed group must not reappear, got %d groups", len(groups))
	}
}

func TestWorkflow_InvalidTransitions(t *testing.T) {
	t.Parallel()

	w := newTestWorkflow(newFakeStore(duplicateFixture()...))
	if err := w.Decide(0, PendingAction{Type: ActionSkip}); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("deciding before a scan must fail, got %v", err)
	}
	if _, err := w.Execute(context.Background(), nil); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("executing before summary must fail, got %v", err)
	}
	if _, err := w.ResetAndRescan(context.Background()); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("restart before completion must fail, got %v", err)
	}
}

func TestWorkflow_DecideValidatesMembership(t *testing.T) {
	t.Parallel()

	w := newTestWorkflow(newFakeStore(duplicateFixture()...))
	if _, err := w.StartScan(context.Background()); err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	if err := w.Decide(0, PendingAction{Type: ActionKeepOne, KeepID: 999}); err == nil {
		t.Fatalf("keep target outside the group must be rejected")
	}
	if err := w.Decide(0, PendingAction{Type: ActionMerge, MergePrimaryID: 3, MergeFromIDs: []int64{3}}); err == nil {
		t.Fatalf("merge primary duplicated as source must be rejected")
	}
}
