package payloadschema

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed platform_item.schema.json
var platformItemSchemaJSON string

// PlatformItem is one validated library row fetched from a platform API.
type PlatformItem struct {
	PayloadVersion       string   `json:"payload_version"`
	Platform             string   `json:"platform"`
	PlatformItemID       string   `json:"platform_item_id"`
	Title                string   `json:"title"`
	CoverURL             *string  `json:"cover_url,omitempty"`
	PlaytimeMinutes      *float64 `json:"playtime_minutes,omitempty"`
	AchievementsEarned   *int     `json:"achievements_earned,omitempty"`
	AchievementsTotal    *int     `json:"achievements_total,omitempty"`
	CompletionPercentage *float64 `json:"completion_percentage,omitempty"`
	LastPlayedAt         *string  `json:"last_played_at,omitempty"`
}

var (
	compileOnce       sync.Once
	compiledSchema    *jsonschema.Schema
	compiledSchemaErr error
)

func ValidatePlatformItemPayload(payload json.RawMessage) (*PlatformItem, error) {
	value, err := decodeStrictJSON(payload)
	if err != nil {
		return nil, fmt.Errorf("decode payload JSON: %w", err)
	}

	schema, err := loadSchema()
	if err != nil {
		return nil, fmt.Errorf("load schema: %w", err)
	}

	if err := schema.Validate(value); err != nil {
		return nil, fmt.Errorf("schema validation failed: %w", err)
	}

	normalized, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("normalize payload JSON: %w", err)
	}

	var item PlatformItem
	if err := json.Unmarshal(normalized, &item); err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}

	if err := validateSemantics(&item); err != nil {
		return nil, err
	}

	return &item, nil
}

func loadSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020
		compiler.AssertFormat = true

		if err := compiler.AddResource("platform_item.schema.json", strings.NewReader(platformItemSchemaJSON)); err != nil {
			compiledSchemaErr = fmt.Errorf("add schema resource: %w", err)
			return
		}

		schema, err := compiler.Compile("platform_item.schema.json")
		if err != nil {
			compiledSchemaErr = fmt.Errorf("compile schema: %w", err)
			return
		}

		compiledSchema = schema
	})

	if compiledSchemaErr != nil {
		return nil, compiledSchemaErr
	}
	if compiledSchema == nil {
		return nil, fmt.Errorf("schema not initialized")
	}
	return compiledSchema, nil
}

func decodeStrictJSON(raw []byte) (any, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("payload is empty")
	}

	decoder := json.NewDecoder(bytes.NewReader(trimmed))
	decoder.UseNumber()

	var value any
	if err := decoder.Decode(&value); err != nil {
		return nil, err
	}

	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return nil, fmt.Errorf("payload contains trailing content")
	}

	return value, nil
}

func validateSemantics(item *PlatformItem) error {
	if item == nil {
		return fmt.Errorf("payload is nil")
	}

	if strings.TrimSpace(item.PayloadVersion) != "v1" {
		return fmt.Errorf("payload_version must be v1")
	}
	if strings.TrimSpace(item.Platform) == "" {
		return fmt.Errorf("platform must not be empty")
	}
	if strings.TrimSpace(item.PlatformItemID) == "" {
		return fmt.Errorf("platform_item_id must not be empty")
	}
	if strings.TrimSpace(item.Title) == "" {
		return fmt.Errorf("title must not be empty")
	}

	if item.CoverURL != nil {
		if err := validateURI("cover_url", *item.CoverURL); err != nil {
			return err
		}
	}
	if item.LastPlayedAt != nil {
		if _, err := time.Parse(time.RFC3339, strings.TrimSpace(*item.LastPlayedAt)); err != nil {
			return fmt.Errorf("last_played_at must be RFC3339: %w", err)
		}
	}
	if item.AchievementsEarned != nil && item.AchievementsTotal != nil &&
		*item.AchievementsEarned > *item.AchievementsTotal {
		return fmt.Errorf("achievements_earned (%d) cannot exceed achievements_total (%d)",
			*item.AchievementsEarned, *item.AchievementsTotal)
	}

	return nil
}

func validateURI(fieldName, value string) error {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fmt.Errorf("%s must not be empty", fieldName)
	}
	if _, err := url.ParseRequestURI(trimmed); err != nil {
		return fmt.Errorf("%s is not a valid URI: %w", fieldName, err)
	}
	return nil
}
