package db

import (
	"context"

	"horse.fit/backlog/internal/dedupe"
)

// LibraryStore adapts the pool to the workflow's persistence contract.
type LibraryStore struct {
	pool *Pool
}

func NewLibraryStore(pool *Pool) *LibraryStore {
	return &LibraryStore{pool: pool}
}

var (
	_ dedupe.Store     = (*LibraryStore)(nil)
	_ dedupe.EventSink = (*LibraryStore)(nil)
)

func (s *LibraryStore) Snapshot(ctx context.Context) ([]dedupe.LibraryEntry, error) {
	return s.pool.ListLibraryEntries(ctx)
}

func (s *LibraryStore) UpdateEntry(ctx context.Context, id int64, update dedupe.EntryUpdate) error {
	return s.pool.UpdateLibraryEntry(ctx, id, update)
}

func (s *LibraryStore) DeleteEntries(ctx context.Context, ids []int64) error {
	_, err := s.pool.DeleteLibraryEntries(ctx, ids)
	return err
}

func (s *LibraryStore) DismissedKeys(ctx context.Context) (map[string]bool, error) {
	return s.pool.ListDismissedKeys(ctx)
}

func (s *LibraryStore) UpsertDismissal(ctx context.Context, key string, memberIDs []int64) error {
	return s.pool.UpsertDismissal(ctx, key, memberIDs)
}

func (s *LibraryStore) RecordResolution(ctx context.Context, event dedupe.ResolutionEvent) error {
	return s.pool.InsertResolutionEvent(ctx, event)
}
