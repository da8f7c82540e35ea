package platforms

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"horse.fit/backlog/internal/dedupe"
	payloadschema "horse.fit/backlog/schema"
)

const (
	defaultSteamEndpoint = "https://api.steampowered.com"

	// achievementWorkers bounds concurrent per-game achievement calls so a
	// large library does not hammer the Steam API.
	achievementWorkers = 4
)

// SteamProvider fetches owned games and per-game achievements from the Steam
// Web API. Credentials.Key is the API key, Credentials.Account the 64-bit
// Steam id.
type SteamProvider struct {
	endpoint string
	client   *http.Client
	logger   zerolog.Logger
}

func NewSteamProvider(logger zerolog.Logger) *SteamProvider {
	return NewSteamProviderWithEndpoint(defaultSteamEndpoint, logger)
}

func NewSteamProviderWithEndpoint(endpoint string, logger zerolog.Logger) *SteamProvider {
	trimmed := strings.TrimRight(strings.TrimSpace(endpoint), "/")
	if trimmed == "" {
		trimmed = defaultSteamEndpoint
	}
	return &SteamProvider{
		endpoint: trimmed,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

func (p *SteamProvider) Name() string {
	return "steam"
}

func (p *SteamProvider) FetchLibrary(ctx context.Context, creds Credentials) ([]dedupe.RawEntry, error) {
	if strings.TrimSpace(creds.Key) == "" || strings.TrimSpace(creds.Account) == "" {
		return nil, fmt.Errorf("steam requires STEAM_API_KEY and STEAM_USER_ID")
	}

	games, err := p.fetchOwnedGames(ctx, creds)
	if err != nil {
		return nil, err
	}

	achievements := p.fetchAchievements(ctx, creds, games)

	entries := make([]dedupe.RawEntry, 0, len(games))
	for _, game := range games {
		payload := map[string]any{
			"payload_version":  "v1",
			"platform":         "steam",
			"platform_item_id": strconv.FormatInt(game.AppID, 10),
			"title":            game.Name,
			"playtime_minutes": float64(game.PlaytimeForever),
		}
		if game.ImgIconURL != "" {
			payload["cover_url"] = fmt.Sprintf(
				"https://media.steampowered.com/steamcommunity/public/images/apps/%d/%s.jpg",
				game.AppID, game.ImgIconURL,
			)
		}
		if game.RTimeLastPlayed > 0 {
			payload["last_played_at"] = time.Unix(game.RTimeLastPlayed, 0).UTC().Format(time.RFC3339)
		}
		if counts, ok := achievements[game.AppID]; ok {
			payload["achievements_earned"] = counts.earned
			payload["achievements_total"] = counts.total
		}

		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode steam item %d: %w", game.AppID, err)
		}
		item, err := payloadschema.ValidatePlatformItemPayload(raw)
		if err != nil {
			p.logger.Warn().Err(err).Int64("app_id", game.AppID).Msg("skipping invalid steam item")
			continue
		}
		entry, err := EntryFromItem(item)
		if err != nil {
			p.logger.Warn().Err(err).Int64("app_id", game.AppID).Msg("skipping unconvertible steam item")
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

type steamOwnedGame struct {
	AppID           int64  `json:"appid"`
	Name            string `json:"name"`
	PlaytimeForever int64  `json:"playtime_forever"`
	ImgIconURL      string `json:"img_icon_url"`
	RTimeLastPlayed int64  `json:"rtime_last_played"`
}

type steamOwnedGamesResponse struct {
	Response struct {
		GameCount int              `json:"game_count"`
		Games     []steamOwnedGame `json:"games"`
	} `json:"response"`
}

func (p *SteamProvider) fetchOwnedGames(ctx context.Context, creds Credentials) ([]steamOwnedGame, error) {
	query := url.Values{}
	query.Set("key", creds.Key)
	query.Set("steamid", creds.Account)
	query.Set("include_appinfo", "1")
	query.Set("include_played_free_games", "1")
	query.Set("format", "json")

	endpoint := p.endpoint + "/IPlayerService/GetOwnedGames/v0001/?" + query.Encode()
	body, err := p.get(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("fetch owned games: %w", err)
	}

	var parsed steamOwnedGamesResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decode owned games response: %w", err)
	}
	return parsed.Response.Games, nil
}

type achievementCounts struct {
	earned int
	total  int
}

type steamAchievementsResponse struct {
	PlayerStats struct {
		Success      bool `json:"success"`
		Achievements []struct {
			Achieved int `json:"achieved"`
		} `json:"achievements"`
	} `json:"playerstats"`
}

// fetchAchievements resolves per-game achievement counts with a bounded
// worker pool. Games without achievement data (or failed lookups) are simply
// absent from the result; the library fetch itself never fails on them.
func (p *SteamProvider) fetchAchievements(ctx context.Context, creds Credentials, games []steamOwnedGame) map[int64]achievementCounts {
	type lookupResult struct {
		appID  int64
		counts achievementCounts
		ok     bool
	}

	jobs := make(chan int64)
	results := make(chan lookupResult)

	var wg sync.WaitGroup
	for i := 0; i < achievementWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for appID := range jobs {
				counts, err := p.fetchGameAchievements(ctx, creds, appID)
				if err != nil {
					p.logger.Debug().Err(err).Int64("app_id", appID).Msg("achievement lookup failed")
					results <- lookupResult{appID: appID}
					continue
				}
				results <- lookupResult{appID: appID, counts: counts, ok: true}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, game := range games {
			select {
			case jobs <- game.AppID:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	counts := make(map[int64]achievementCounts, len(games))
	for result := range results {
		if result.ok {
			counts[result.appID] = result.counts
		}
	}
	return counts
}

func (p *SteamProvider) fetchGameAchievements(ctx context.Context, creds Credentials, appID int64) (achievementCounts, error) {
	query := url.Values{}
	query.Set("key", creds.Key)
	query.Set("steamid", creds.Account)
	query.Set("appid", strconv.FormatInt(appID, 10))

	endpoint := p.endpoint + "/ISteamUserStats/GetPlayerAchievements/v0001/?" + query.Encode()
	body, err := p.get(ctx, endpoint)
	if err != nil {
		return achievementCounts{}, err
	}

	var parsed steamAchievementsResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return achievementCounts{}, fmt.Errorf("decode achievements response: %w", err)
	}
	if !parsed.PlayerStats.Success {
		return achievementCounts{}, fmt.Errorf("no achievement data for app %d", appID)
	}

	counts := achievementCounts{total: len(parsed.PlayerStats.Achievements)}
	for _, achievement := range parsed.PlayerStats.Achievements {
		if achievement.Achieved == 1 {
			counts.earned++
		}
	}
	return counts, nil
}

func (p *SteamProvider) get(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("steam api status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return body, nil
}
