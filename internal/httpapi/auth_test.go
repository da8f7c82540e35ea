package httpapi

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestSessionExpiryUsesConfiguredTTL(t *testing.T) {
	t.Parallel()

	server := NewServer(nil, nil, zerolog.Nop(), Options{SessionTTL: 2 * time.Hour})
	now := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)

	if got := server.sessionExpiry(now); !got.Equal(now.Add(2 * time.Hour)) {
		t.Fatalf("unexpected expiry: %s", got)
	}
}

func TestNewServerSetsDefaults(t *testing.T) {
	t.Parallel()

	server := NewServer(nil, nil, zerolog.Nop(), Options{})

	if server.opts.SessionTTL != 7*24*time.Hour {
		t.Fatalf("unexpected default session TTL: %s", server.opts.SessionTTL)
	}
	if server.opts.SessionCookie != "backlog_session" {
		t.Fatalf("unexpected default cookie name: %q", server.opts.SessionCookie)
	}
	if server.opts.Port != 8090 {
		t.Fatalf("unexpected default port: %d", server.opts.Port)
	}
}

func TestNewServerWiresSharedResolutionSession(t *testing.T) {
	t.Parallel()

	server := NewServer(nil, nil, zerolog.Nop(), Options{})

	// All authenticated users review the same library through one session.
	if server.session == nil {
		t.Fatalf("expected a resolution session")
	}
	if server.session.workflow == nil {
		t.Fatalf("expected the session to carry a workflow")
	}
}
