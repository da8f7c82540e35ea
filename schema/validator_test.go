package payloadschema

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestValidatePlatformItemPayload_Valid(t *testing.T) {
	payload := json.RawMessage(`{
		"payload_version":"v1",
		"platform":"steam",
		"platform_item_id":"appid-1145360",
		"title":"Hades",
		"cover_url":"https://cdn.example.com/hades.jpg",
		"playtime_minutes":1830,
		"achievements_earned":30,
		"achievements_total":49,
		"completion_percentage":61.2,
		"last_played_at":"2026-08-12T19:30:00Z"
	}`)

	item, err := ValidatePlatformItemPayload(payload)
	if err != nil {
		t.Fatalf("expected payload to be valid, got error: %v", err)
	}

	if item.Platform != "steam" {
		t.Fatalf("expected platform=steam, got %q", item.Platform)
	}
	if item.PayloadVersion != "v1" {
		t.Fatalf("expected payload_version=v1, got %q", item.PayloadVersion)
	}
	if item.PlaytimeMinutes == nil || *item.PlaytimeMinutes != 1830 {
		t.Fatalf("expected playtime_minutes=1830, got %v", item.PlaytimeMinutes)
	}
}

func TestValidatePlatformItemPayload_MissingRequired(t *testing.T) {
	payload := json.RawMessage(`{
		"payload_version":"v1",
		"platform":"xbox",
		"title":"Missing platform item id"
	}`)

	_, err := ValidatePlatformItemPayload(payload)
	if err == nil {
		t.Fatalf("expected validation to fail for missing platform_item_id")
	}
}

func TestValidatePlatformItemPayload_UnknownPlatform(t *testing.T) {
	payload := json.RawMessage(`{
		"payload_version":"v1",
		"platform":"gog",
		"platform_item_id":"gog-1",
		"title":"Cyberpunk 2077"
	}`)

	_, err := ValidatePlatformItemPayload(payload)
	if err == nil {
		t.Fatalf("expected validation to fail for unsupported platform")
	}
}

func TestValidatePlatformItemPayload_WhitespaceTitle(t *testing.T) {
	payload := json.RawMessage(`{
		"payload_version":"v1",
		"platform":"epic",
		"platform_item_id":"epic-9",
		"title":"   "
	}`)

	_, err := ValidatePlatformItemPayload(payload)
	if err == nil {
		t.Fatalf("expected validation to fail for whitespace-only title")
	}
	if !strings.Contains(err.Error(), "title must not be empty") {
		t.Fatalf("expected title semantic error, got: %v", err)
	}
}

func TestValidatePlatformItemPayload_AchievementBounds(t *testing.T) {
	payload := json.RawMessage(`{
		"payload_version":"v1",
		"platform":"playstation",
		"platform_item_id":"ps-3",
		"title":"Bloodborne",
		"achievements_earned":41,
		"achievements_total":40
	}`)

	_, err := ValidatePlatformItemPayload(payload)
	if err == nil {
		t.Fatalf("expected validation to fail when earned exceeds total")
	}
}

func TestValidatePlatformItemPayload_TrailingContent(t *testing.T) {
	payload := json.RawMessage(`{"payload_version":"v1","platform":"steam","platform_item_id":"a","title":"Hades"} {}`)

	_, err := ValidatePlatformItemPayload(payload)
	if err == nil {
		t.Fatalf("expected validation to fail for trailing content")
	}
}
