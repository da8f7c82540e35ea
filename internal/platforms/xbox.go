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

const defaultXboxEndpoint = "https://xbl.io/api/v2"

// XboxProvider fetches title history through the OpenXBL proxy.
// Credentials.Key is the OpenXBL API key, Credentials.Account the xuid.
type XboxProvider struct {
	endpoint string
	client   *http.Client
	logger   zerolog.Logger
}

func NewXboxProvider(logger zerolog.Logger) *XboxProvider {
	return NewXboxProviderWithEndpoint(defaultXboxEndpoint, logger)
}

func NewXboxProviderWithEndpoint(endpoint string, logger zerolog.Logger) *XboxProvider {
	trimmed := strings.TrimRight(strings.TrimSpace(endpoint), "/")
	if trimmed == "" {
		trimmed = defaultXboxEndpoint
	}
	return &XboxProvider{
		endpoint: trimmed,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

func (p *XboxProvider) Name() string {
	return "xbox"
}

type xboxTitle struct {
	TitleID      string `json:"titleId"`
	Name         string `json:"name"`
	DisplayImage string `json:"displayImage"`
	Achievement  struct {
		CurrentAchievements int     `json:"currentAchievements"`
		TotalAchievements   int     `json:"totalAchievements"`
		ProgressPercentage  float64 `json:"progressPercentage"`
	} `json:"achievement"`
	TitleHistory struct {
		LastTimePlayed string `json:"lastTimePlayed"`
	} `json:"titleHistory"`
}

type xboxTitlesResponse struct {
	Titles []xboxTitle `json:"titles"`
}

func (p *XboxProvider) FetchLibrary(ctx context.Context, creds Credentials) ([]dedupe.RawEntry, error) {
	if strings.TrimSpace(creds.Key) == "" {
		return nil, fmt.Errorf("xbox requires XBOX_API_KEY")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.endpoint+"/player/titleHistory", nil)
	if err != nil {
		return nil, fmt.Errorf("build xbox request: %w", err)
	}
	req.Header.Set("X-Authorization", creds.Key)
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send xbox request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read xbox response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("xbox api status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed xboxTitlesResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decode xbox response: %w", err)
	}

	entries := make([]dedupe.RawEntry, 0, len(parsed.Titles))
	for _, title := range parsed.Titles {
		payload := map[string]any{
			"payload_version":  "v1",
			"platform":         "xbox",
			"platform_item_id": title.TitleID,
			"title":            title.Name,
		}
		if title.DisplayImage != "" {
			payload["cover_url"] = title.DisplayImage
		}
		if title.Achievement.TotalAchievements > 0 {
			payload["achievements_earned"] = title.Achievement.CurrentAchievements
			payload["achievements_total"] = title.Achievement.TotalAchievements
		}
		if title.Achievement.ProgressPercentage > 0 {
			payload["completion_percentage"] = title.Achievement.ProgressPercentage
		}
		if title.TitleHistory.LastTimePlayed != "" {
			payload["last_played_at"] = title.TitleHistory.LastTimePlayed
		}

		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode xbox item %q: %w", title.TitleID, err)
		}
		item, err := payloadschema.ValidatePlatformItemPayload(raw)
		if err != nil {
			p.logger.Warn().Err(err).Str("title_id", title.TitleID).Msg("skipping invalid xbox item")
			continue
		}
		entry, err := EntryFromItem(item)
		if err != nil {
			p.logger.Warn().Err(err).Str("title_id", title.TitleID).Msg("skipping unconvertible xbox item")
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
