package dedupe

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type State string

const (
	StateIdle      State = "idle"
	StateScanning  State = "scanning"
	StateReviewing State = "reviewing"
	StateSummary   State = "summary"
	StateExecuting State = "executing"
	StateComplete  State = "complete"
)

type ActionType string

const (
	ActionKeepOne   ActionType = "keep_one"
	ActionKeepAll   ActionType = "keep_all"
	ActionMerge     ActionType = "merge"
	ActionDeleteAll ActionType = "delete_all"
	ActionSkip      ActionType = "skip"
)

// PendingAction is the decision queued for one reviewed group. Exactly one
// exists per reviewed group; it may be overwritten or removed before
// execution and is never partially applied.
type PendingAction struct {
	GroupIndex     int        `json:"group_index"`
	GroupKey       string     `json:"group_key"`
	Type           ActionType `json:"action_type"`
	KeepID         int64      `json:"keep_id,omitempty"`
	MergePrimaryID int64      `json:"merge_primary_id,omitempty"`
	MergeFromIDs   []int64    `json:"merge_from_ids,omitempty"`
	MemberIDs      []int64    `json:"member_ids"`
}

// Store is the persistence collaborator the workflow reads from and writes
// to. Implementations own record lifetimes; DeleteEntries is expected to
// chunk large id sets against backend request-size limits.
type Store interface {
	Snapshot(ctx context.Context) ([]LibraryEntry, error)
	UpdateEntry(ctx context.Context, id int64, update EntryUpdate) error
	DeleteEntries(ctx context.Context, ids []int64) error
	DismissedKeys(ctx context.Context) (map[string]bool, error)
	UpsertDismissal(ctx context.Context, key string, memberIDs []int64) error
}

// ResolutionEvent is one executed action recorded to the audit sink.
type ResolutionEvent struct {
	SessionID  uuid.UUID
	GroupKey   string
	ActionType ActionType
	Succeeded  bool
	Error      string
	OccurredAt time.Time
}

// EventSink persists resolution audit events. A sink failure never fails the
// action it describes.
type EventSink interface {
	RecordResolution(ctx context.Context, event ResolutionEvent) error
}

// ExecutionResult aggregates the outcome of one execution run. Failures are
// counted, never thrown across the workflow boundary.
type ExecutionResult struct {
	SuccessCount int `json:"success_count"`
	FailedCount  int `json:"failed_count"`
}

// ProgressFunc reports sequential execution progress as (processed, total).
type ProgressFunc func(processed, total int)

// Workflow drives one resolution session: scan, per-group decisions, summary
// edits, and batched execution. State is mutated only by discrete serialized
// caller events; it is deliberately single-threaded and unlocked.
type Workflow struct {
	store   Store
	events  EventSink
	grouper *Grouper
	logger  zerolog.Logger

	sessionID uuid.UUID
	state     State
	groups    []DuplicateGroup
	cursor    int
	actions   map[int]PendingAction
}

func NewWorkflow(store Store, events EventSink, logger zerolog.Logger) *Workflow {
	return &Workflow{
		store:     store,
		events:    events,
		grouper:   NewGrouper(logger),
		logger:    logger,
		sessionID: uuid.New(),
		state:     StateIdle,
		actions:   make(map[int]PendingAction),
	}
}

func (w *Workflow) SessionID() uuid.UUID { return w.sessionID }
func (w *Workflow) State() State         { return w.state }
func (w *Workflow) CurrentIndex() int    { return w.cursor }

// Groups returns the groups of the current session in presentation order.
func (w *Workflow) Groups() []DuplicateGroup {
	return w.groups
}

// StartScan runs the grouper over a fresh library snapshot. A library read
// failure is fatal to the session: no partial state is retained.
func (w *Workflow) StartScan(ctx context.Context) ([]DuplicateGroup, error) {
	if w.state != StateIdle {
		return nil, fmt.Errorf("%w: cannot scan from %s", ErrInvalidState, w.state)
	}
	w.state = StateScanning

	dismissed, err := w.store.DismissedKeys(ctx)
	if err != nil {
		w.state = StateIdle
		return nil, fmt.Errorf("%w: load dismissed keys: %v", ErrNoSession, err)
	}
	entries, err := w.store.Snapshot(ctx)
	if err != nil {
		w.state = StateIdle
		return nil, fmt.Errorf("%w: load library snapshot: %v", ErrNoSession, err)
	}

	w.groups = w.grouper.Group(entries, dismissed)
	w.cursor = 0
	w.actions = make(map[int]PendingAction)

	if len(w.groups) == 0 {
		w.state = StateComplete
	} else {
		w.state = StateReviewing
	}
	w.logger.Info().
		Str("session_id", w.sessionID.String()).
		Int("groups", len(w.groups)).
		Str("state", string(w.state)).
		Msg("scan finished")
	return w.groups, nil
}

// Decide queues the action for a group and advances the cursor. Advancing
// past the last group transitions the session to summary.
func (w *Workflow) Decide(groupIndex int, action PendingAction) error {
	if w.state != StateReviewing {
		return fmt.Errorf("%w: cannot decide from %s", ErrInvalidState, w.state)
	}
	if groupIndex < 0 || groupIndex >= len(w.groups) {
		return fmt.Errorf("group index %d out of range", groupIndex)
	}

	group := w.groups[groupIndex]
	if err := validateAction(group, action); err != nil {
		return err
	}

	action.GroupIndex = groupIndex
	action.GroupKey = group.Key
	action.MemberIDs = group.MemberIDs()
	w.actions[groupIndex] = action

	if groupIndex == w.cursor {
		w.cursor++
	}
	if w.cursor >= len(w.groups) {
		w.state = StateSummary
	}
	return nil
}

// Back moves the review cursor backward without touching queued actions.
func (w *Workflow) Back() error {
	if w.state != StateReviewing {
		return fmt.Errorf("%w: cannot move back from %s", ErrInvalidState, w.state)
	}
	if w.cursor > 0 {
		w.cursor--
	}
	return nil
}

// Actions returns the queued actions ordered by group index.
func (w *Workflow) Actions() []PendingAction {
	indexes := make([]int, 0, len(w.actions))
	for index := range w.actions {
		indexes = append(indexes, index)
	}
	sort.Ints(indexes)

	actions := make([]PendingAction, 0, len(indexes))
	for _, index := range indexes {
		actions = append(actions, w.actions[index])
	}
	return actions
}

// Summary lists queued actions grouped by action type.
func (w *Workflow) Summary() map[ActionType][]PendingAction {
	summary := make(map[ActionType][]PendingAction)
	for _, action := range w.Actions() {
		summary[action.Type] = append(summary[action.Type], action)
	}
	return summary
}

// RemoveAction drops the queued action for a group.
func (w *Workflow) RemoveAction(groupIndex int) error {
	if w.state != StateSummary {
		return fmt.Errorf("%w: cannot remove action from %s", ErrInvalidState, w.state)
	}
	if _, ok := w.actions[groupIndex]; !ok {
		return fmt.Errorf("no queued action for group %d", groupIndex)
	}
	delete(w.actions, groupIndex)
	return nil
}

// ChangeActionType re-labels a queued action without altering its stored
// identifiers, for quick re-classification on the summary screen.
func (w *Workflow) ChangeActionType(groupIndex int, newType ActionType) error {
	if w.state != StateSummary {
		return fmt.Errorf("%w: cannot edit action from %s", ErrInvalidState, w.state)
	}
	action, ok := w.actions[groupIndex]
	if !ok {
		return fmt.Errorf("no queued action for group %d", groupIndex)
	}
	if !validActionType(newType) {
		return fmt.Errorf("unknown action type %q", newType)
	}
	action.Type = newType
	w.actions[groupIndex] = action
	return nil
}

// GoBackToReview re-enters reviewing at the given group. Queued actions for
// other groups are untouched.
func (w *Workflow) GoBackToReview(groupIndex int) error {
	if w.state != StateSummary {
		return fmt.Errorf("%w: cannot re-review from %s", ErrInvalidState, w.state)
	}
	if groupIndex < 0 || groupIndex >= len(w.groups) {
		return fmt.Errorf("group index %d out of range", groupIndex)
	}
	w.cursor = groupIndex
	w.state = StateReviewing
	return nil
}

// Execute processes queued non-skip actions strictly sequentially: later
// actions may reference records an earlier one rewrote or deleted, and
// sequential order keeps progress and failure accounting meaningful. Each
// action's failure is counted independently and never halts the loop.
// Cancellation is honored between queue items.
func (w *Workflow) Execute(ctx context.Context, onProgress ProgressFunc) (ExecutionResult, error) {
	if w.state != StateSummary {
		return ExecutionResult{}, fmt.Errorf("%w: cannot execute from %s", ErrInvalidState, w.state)
	}
	w.state = StateExecuting

	queue := make([]PendingAction, 0, len(w.actions))
	for _, action := range w.Actions() {
		if action.Type != ActionSkip {
			queue = append(queue, action)
		}
	}

	// Re-read the library so actions referencing since-deleted records are
	// detected as stale instead of silently merging garbage.
	lookup := make(map[int64]LibraryEntry)
	if entries, err := w.store.Snapshot(ctx); err == nil {
		for _, entry := range entries {
			lookup[entry.ID] = entry
		}
	} else {
		w.logger.Error().Err(err).Msg("pre-execution snapshot failed; all actions will be treated as stale")
	}

	var result ExecutionResult
	for processed, action := range queue {
		if err := ctx.Err(); err != nil {
			w.state = StateComplete
			return result, err
		}

		err := w.executeAction(ctx, action, lookup)
		if err != nil {
			result.FailedCount++
			w.logger.Warn().
				Err(err).
				Str("session_id", w.sessionID.String()).
				Str("group_key", action.GroupKey).
				Str("action", string(action.Type)).
				Msg("queued action failed")
		} else {
			result.SuccessCount++
		}
		w.recordEvent(ctx, action, err)

		if onProgress != nil {
			onProgress(processed+1, len(queue))
		}
	}

	w.state = StateComplete
	w.logger.Info().
		Str("session_id", w.sessionID.String()).
		Int("succeeded", result.SuccessCount).
		Int("failed", result.FailedCount).
		Msg("execution finished")
	return result, nil
}

// ResetAndRescan restarts a completed session and runs a fresh scan.
func (w *Workflow) ResetAndRescan(ctx context.Context) ([]DuplicateGroup, error) {
	if w.state != StateComplete {
		return nil, fmt.Errorf("%w: cannot restart from %s", ErrInvalidState, w.state)
	}
	w.state = StateIdle
	w.groups = nil
	w.cursor = 0
	w.actions = make(map[int]PendingAction)
	return w.StartScan(ctx)
}

func (w *Workflow) executeAction(ctx context.Context, action PendingAction, lookup map[int64]LibraryEntry) error {
	switch action.Type {
	case ActionKeepOne:
		records := presentRecords(action.MemberIDs, lookup)
		if _, ok := lookup[action.KeepID]; !ok {
			return fmt.Errorf("%w: keep target %d", ErrStaleTarget, action.KeepID)
		}
		merged, err := Merge(records, action.KeepID, DeleteAllOther, nil)
		if err != nil {
			return err
		}
		return w.applyMerge(ctx, merged)

	case ActionMerge:
		involved := append([]int64{action.MergePrimaryID}, action.MergeFromIDs...)
		for _, id := range involved {
			if _, ok := lookup[id]; !ok {
				return fmt.Errorf("%w: merge participant %d", ErrStaleTarget, id)
			}
		}
		merged, err := Merge(presentRecords(involved, lookup), action.MergePrimaryID, DeleteSelectedOnly, action.MergeFromIDs)
		if err != nil {
			return err
		}
		return w.applyMerge(ctx, merged)

	case ActionKeepAll:
		if err := w.store.UpsertDismissal(ctx, action.GroupKey, action.MemberIDs); err != nil {
			return fmt.Errorf("record dismissal for %q: %w", action.GroupKey, err)
		}
		return nil

	case ActionDeleteAll:
		if err := w.store.DeleteEntries(ctx, action.MemberIDs); err != nil {
			return fmt.Errorf("delete group members: %w", err)
		}
		return nil

	default:
		return fmt.Errorf("unknown action type %q", action.Type)
	}
}

func (w *Workflow) applyMerge(ctx context.Context, merged MergeResult) error {
	if err := w.store.UpdateEntry(ctx, merged.PrimaryID, merged.Update); err != nil {
		return fmt.Errorf("update primary %d: %w", merged.PrimaryID, err)
	}
	if len(merged.DeleteIDs) == 0 {
		return nil
	}
	if err := w.store.DeleteEntries(ctx, merged.DeleteIDs); err != nil {
		return fmt.Errorf("delete merged records: %w", err)
	}
	return nil
}

func (w *Workflow) recordEvent(ctx context.Context, action PendingAction, actionErr error) {
	if w.events == nil {
		return
	}
	event := ResolutionEvent{
		SessionID:  w.sessionID,
		GroupKey:   action.GroupKey,
		ActionType: action.Type,
		Succeeded:  actionErr == nil,
		OccurredAt: time.Now().UTC(),
	}
	if actionErr != nil {
		event.Error = actionErr.Error()
	}
	if err := w.events.RecordResolution(ctx, event); err != nil {
		w.logger.Warn().Err(err).Str("group_key", action.GroupKey).Msg("audit event write failed")
	}
}

func presentRecords(ids []int64, lookup map[int64]LibraryEntry) []LibraryEntry {
	records := make([]LibraryEntry, 0, len(ids))
	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if entry, ok := lookup[id]; ok {
			records = append(records, entry)
		}
	}
	return records
}

func validateAction(group DuplicateGroup, action PendingAction) error {
	if !validActionType(action.Type) {
		return fmt.Errorf("unknown action type %q", action.Type)
	}

	members := make(map[int64]struct{}, len(group.Members))
	for _, member := range group.Members {
		members[member.ID] = struct{}{}
	}

	switch action.Type {
	case ActionKeepOne:
		if _, ok := members[action.KeepID]; !ok {
			return fmt.Errorf("keep target %d is not a member of the group", action.KeepID)
		}
	case ActionMerge:
		if _, ok := members[action.MergePrimaryID]; !ok {
			return fmt.Errorf("merge primary %d is not a member of the group", action.MergePrimaryID)
		}
		if len(action.MergeFromIDs) == 0 {
			return fmt.Errorf("merge requires at least one source record")
		}
		for _, id := range action.MergeFromIDs {
			if _, ok := members[id]; !ok {
				return fmt.Errorf("merge source %d is not a member of the group", id)
			}
			if id == action.MergePrimaryID {
				return fmt.Errorf("merge primary %d cannot also be a merge source", id)
			}
		}
	}
	return nil
}

func validActionType(t ActionType) bool {
	switch t {
	case ActionKeepOne, ActionKeepAll, ActionMerge, ActionDeleteAll, ActionSkip:
		return true
	}
	return false
}
