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

const defaultEpicEndpoint = "https://library-service.live.use1a.on.epicgames.com/library/api/public"

// EpicProvider fetches owned items from the Epic Games library service.
// Epic exposes no playtime or achievement data on this endpoint, so entries
// carry title and identity only. Credentials.Key is the bearer token.
type EpicProvider struct {
	endpoint string
	client   *http.Client
	logger   zerolog.Logger
}

func NewEpicProvider(logger zerolog.Logger) *EpicProvider {
	return NewEpicProviderWithEndpoint(defaultEpicEndpoint, logger)
}

func NewEpicProviderWithEndpoint(endpoint string, logger zerolog.Logger) *EpicProvider {
	trimmed := strings.TrimRight(strings.TrimSpace(endpoint), "/")
	if trimmed == "" {
		trimmed = defaultEpicEndpoint
	}
	return &EpicProvider{
		endpoint: trimmed,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

func (p *EpicProvider) Name() string {
	return "epic"
}

type epicRecord struct {
	CatalogItemID string `json:"catalogItemId"`
	AppName       string `json:"appName"`
	SandboxName   string `json:"sandboxName"`
}

type epicItemsResponse struct {
	Records []epicRecord `json:"records"`
}

func (p *EpicProvider) FetchLibrary(ctx context.Context, creds Credentials) ([]dedupe.RawEntry, error) {
	if strings.TrimSpace(creds.Key) == "" {
		return nil, fmt.Errorf("epic requires EPIC_ACCESS_TOKEN")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.endpoint+"/items?includeMetadata=true", nil)
	if err != nil {
		return nil, fmt.Errorf("build epic request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+creds.Key)
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send epic request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read epic response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("epic api status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed epicItemsResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decode epic response: %w", err)
	}

	entries := make([]dedupe.RawEntry, 0, len(parsed.Records))
	for _, record := range parsed.Records {
		title := strings.TrimSpace(record.SandboxName)
		if title == "" {
			title = strings.TrimSpace(record.AppName)
		}

		payload := map[string]any{
			"payload_version":  "v1",
			"platform":         "epic",
			"platform_item_id": record.CatalogItemID,
			"title":            title,
		}

		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode epic item %q: %w", record.CatalogItemID, err)
		}
		item, err := payloadschema.ValidatePlatformItemPayload(raw)
		if err != nil {
			p.logger.Warn().Err(err).Str("catalog_item_id", record.CatalogItemID).Msg("skipping invalid epic item")
			continue
		}
		entry, err := EntryFromItem(item)
		if err != nil {
			p.logger.Warn().Err(err).Str("catalog_item_id", record.CatalogItemID).Msg("skipping unconvertible epic item")
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
