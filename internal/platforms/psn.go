package platforms

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"horse.fit/backlog/internal/dedupe"
	payloadschema "horse.fit/backlog/schema"
)

const defaultPSNEndpoint = "https://m.np.playstation.com/api/gamelist/v2"

// PSNProvider fetches played titles from the PlayStation Network game list
// API. Credentials.Key is the access token exchanged from an NPSSO cookie.
type PSNProvider struct {
	endpoint string
	client   *http.Client
	logger   zerolog.Logger
}

func NewPSNProvider(logger zerolog.Logger) *PSNProvider {
	return NewPSNProviderWithEndpoint(defaultPSNEndpoint, logger)
}

func NewPSNProviderWithEndpoint(endpoint string, logger zerolog.Logger) *PSNProvider {
	trimmed := strings.TrimRight(strings.TrimSpace(endpoint), "/")
	if trimmed == "" {
		trimmed = defaultPSNEndpoint
	}
	return &PSNProvider{
		endpoint: trimmed,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

func (p *PSNProvider) Name() string {
	return "playstation"
}

type psnTitle struct {
	TitleID           string `json:"titleId"`
	Name              string `json:"name"`
	ImageURL          string `json:"imageUrl"`
	PlayDuration      string `json:"playDuration"`
	LastPlayedDateTime string `json:"lastPlayedDateTime"`
	EarnedTrophies    int    `json:"earnedTrophies"`
	DefinedTrophies   int    `json:"definedTrophies"`
	Progress          int    `json:"progress"`
}

type psnTitlesResponse struct {
	Titles     []psnTitle `json:"titles"`
	TotalItems int        `json:"totalItemCount"`
}

func (p *PSNProvider) FetchLibrary(ctx context.Context, creds Credentials) ([]dedupe.RawEntry, error) {
	if strings.TrimSpace(creds.Key) == "" {
		return nil, fmt.Errorf("playstation requires PSN_NPSSO_TOKEN")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.endpoint+"/users/me/titles?limit=250", nil)
	if err != nil {
		return nil, fmt.Errorf("build psn request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+creds.Key)
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send psn request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read psn response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("psn api status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed psnTitlesResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decode psn response: %w", err)
	}

	entries := make([]dedupe.RawEntry, 0, len(parsed.Titles))
	for _, title := range parsed.Titles {
		payload := map[string]any{
			"payload_version":  "v1",
			"platform":         "playstation",
			"platform_item_id": title.TitleID,
			"title":            title.Name,
		}
		if title.ImageURL != "" {
			payload["cover_url"] = title.ImageURL
		}
		if minutes, ok := parsePSNDuration(title.PlayDuration); ok {
			payload["playtime_minutes"] = minutes
		}
		if title.LastPlayedDateTime != "" {
			payload["last_played_at"] = title.LastPlayedDateTime
		}
		if title.DefinedTrophies > 0 {
			payload["achievements_earned"] = title.EarnedTrophies
			payload["achievements_total"] = title.DefinedTrophies
		}
		if title.Progress > 0 {
			payload["completion_percentage"] = float64(title.Progress)
		}

		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode psn item %q: %w", title.TitleID, err)
		}
		item, err := payloadschema.ValidatePlatformItemPayload(raw)
		if err != nil {
			p.logger.Warn().Err(err).Str("title_id", title.TitleID).Msg("skipping invalid psn item")
			continue
		}
		entry, err := EntryFromItem(item)
		if err != nil {
			p.logger.Warn().Err(err).Str("title_id", title.TitleID).Msg("skipping unconvertible psn item")
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// parsePSNDuration converts the ISO 8601 durations PSN reports
// (e.g. "PT123H45M") into minutes.
func parsePSNDuration(raw string) (float64, bool) {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "PT") || len(trimmed) <= 2 {
		return 0, false
	}

	duration, err := time.ParseDuration(strings.ToLower(trimmed[2:]))
	if err != nil {
		return 0, false
	}
	return duration.Minutes(), true
}
