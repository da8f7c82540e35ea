package platforms

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
)

func TestSteamProvider_FetchLibrary(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/IPlayerService/GetOwnedGames/v0001/":
			if r.URL.Query().Get("key") != "test-key" || r.URL.Query().Get("steamid") != "7656119" {
				http.Error(w, "bad credentials", http.StatusForbidden)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{
				"response": {
					"game_count": 2,
					"games": [
						{"appid": 1145360, "name": "Hades", "playtime_forever": 1830, "rtime_last_played": 1755024600},
						{"appid": 292030, "name": "The Witcher 3: Wild Hunt", "playtime_forever": 7200}
					]
				}
			}`))
		case r.URL.Path == "/ISteamUserStats/GetPlayerAchievements/v0001/":
			if r.URL.Query().Get("appid") != "1145360" {
				http.Error(w, "no stats", http.StatusBadRequest)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{
				"playerstats": {
					"success": true,
					"achievements": [{"achieved": 1}, {"achieved": 1}, {"achieved": 0}]
				}
			}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	provider := NewSteamProviderWithEndpoint(server.URL, zerolog.Nop())
	entries, err := provider.FetchLibrary(context.Background(), Credentials{Key: "test-key", Account: "7656119"})
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}

	byID := make(map[string]int)
	for i, entry := range entries {
		byID[entry.PlatformID] = i
	}

	hades := entries[byID["1145360"]]
	if hades.Title != "Hades" {
		t.Fatalf("unexpected title: %q", hades.Title)
	}
	if hades.PlaytimeHours != 30.5 {
		t.Fatalf("expected minutes converted to hours, got %f", hades.PlaytimeHours)
	}
	if hades.AchievementsEarned != 2 || hades.AchievementsTotal != 3 {
		t.Fatalf("unexpected achievements: %d/%d", hades.AchievementsEarned, hades.AchievementsTotal)
	}
	if hades.LastPlayedAt == nil {
		t.Fatalf("expected last played timestamp")
	}

	witcher := entries[byID["292030"]]
	if witcher.PlaytimeHours != 120 {
		t.Fatalf("unexpected witcher playtime: %f", witcher.PlaytimeHours)
	}
	if witcher.AchievementsTotal != 0 {
		t.Fatalf("failed achievement lookup must not invent data: %d", witcher.AchievementsTotal)
	}
}

func TestSteamProvider_RequiresCredentials(t *testing.T) {
	t.Parallel()

	provider := NewSteamProvider(zerolog.Nop())
	if _, err := provider.FetchLibrary(context.Background(), Credentials{}); err == nil {
		t.Fatalf("expected error without credentials")
	}
}
