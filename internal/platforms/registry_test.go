package platforms

import (
	"context"
	"fmt"
	"reflect"
	"testing"

	"github.com/rs/zerolog"

	"horse.fit/backlog/internal/dedupe"
)

type stubProvider struct {
	name    string
	entries []dedupe.RawEntry
	err     error
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) FetchLibrary(context.Context, Credentials) ([]dedupe.RawEntry, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.entries, nil
}

func TestRegistry_FetchAllIsolatesFailures(t *testing.T) {
	t.Parallel()

	registry := NewRegistry(zerolog.Nop())
	if err := registry.Register(&stubProvider{
		name:    "steam",
		entries: []dedupe.RawEntry{{PlatformID: "1", Title: "Hades"}},
	}, Credentials{}); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if err := registry.Register(&stubProvider{
		name: "playstation",
		err:  fmt.Errorf("token expired"),
	}, Credentials{}); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	result := registry.FetchAll(context.Background())
	if !reflect.DeepEqual(result.Scanned, []string{"steam"}) {
		t.Fatalf("expected only steam scanned, got %v", result.Scanned)
	}
	if len(result.Libraries["steam"]) != 1 {
		t.Fatalf("steam library lost: %v", result.Libraries)
	}
	if _, failed := result.Failures["playstation"]; !failed {
		t.Fatalf("playstation failure not recorded: %v", result.Failures)
	}
}

func TestRegistry_ProviderLookup(t *testing.T) {
	t.Parallel()

	registry := NewRegistry(zerolog.Nop())
	if err := registry.Register(&stubProvider{name: "xbox"}, Credentials{Key: "k", Account: "x"}); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	provider, creds, err := registry.Provider(" Xbox ")
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if provider.Name() != "xbox" || creds.Key != "k" {
		t.Fatalf("unexpected lookup result: %s/%+v", provider.Name(), creds)
	}

	if _, _, err := registry.Provider("gog"); err == nil {
		t.Fatalf("expected error for unregistered platform")
	}
}

func TestParsePSNDuration(t *testing.T) {
	t.Parallel()

	if minutes, ok := parsePSNDuration("PT2H30M"); !ok || minutes != 150 {
		t.Fatalf("unexpected duration: %f ok=%v", minutes, ok)
	}
	if _, ok := parsePSNDuration("garbage"); ok {
		t.Fatalf("expected parse failure")
	}
	if _, ok := parsePSNDuration(""); ok {
		t.Fatalf("expected parse failure for empty input")
	}
}
