package platforms

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"horse.fit/backlog/internal/config"
	"horse.fit/backlog/internal/dedupe"
)

// Registry stores platform providers alongside their configured credentials.
type Registry struct {
	providers   map[string]Provider
	credentials map[string]Credentials
	logger      zerolog.Logger
}

func NewRegistry(logger zerolog.Logger) *Registry {
	return &Registry{
		providers:   make(map[string]Provider),
		credentials: make(map[string]Credentials),
		logger:      logger,
	}
}

// NewRegistryFromConfig registers a provider for every platform the config
// carries credentials for.
func NewRegistryFromConfig(cfg *config.Config, logger zerolog.Logger) *Registry {
	registry := NewRegistry(logger)
	if cfg == nil {
		return registry
	}

	for platform, pair := range cfg.PlatformCredentials() {
		creds := Credentials{Key: pair[0], Account: pair[1]}
		switch platform {
		case "steam":
			_ = registry.Register(NewSteamProvider(logger), creds)
		case "playstation":
			_ = registry.Register(NewPSNProvider(logger), creds)
		case "xbox":
			_ = registry.Register(NewXboxProvider(logger), creds)
		case "epic":
			_ = registry.Register(NewEpicProvider(logger), creds)
		}
	}
	return registry
}

// Register adds one provider with its credentials.
func (r *Registry) Register(provider Provider, creds Credentials) error {
	if r == nil {
		return fmt.Errorf("registry is nil")
	}
	if provider == nil {
		return fmt.Errorf("provider is nil")
	}
	name := strings.ToLower(strings.TrimSpace(provider.Name()))
	if name == "" {
		return fmt.Errorf("provider name is required")
	}
	r.providers[name] = provider
	r.credentials[name] = creds
	return nil
}

// Provider resolves a registered provider by name.
func (r *Registry) Provider(name string) (Provider, Credentials, error) {
	if r == nil || len(r.providers) == 0 {
		return nil, Credentials{}, fmt.Errorf("no platform providers are registered")
	}

	resolved := strings.ToLower(strings.TrimSpace(name))
	provider, ok := r.providers[resolved]
	if !ok {
		return nil, Credentials{}, fmt.Errorf("platform %q is not connected (available: %s)", resolved, strings.Join(r.PlatformNames(), ", "))
	}
	return provider, r.credentials[resolved], nil
}

func (r *Registry) PlatformNames() []string {
	if r == nil {
		return nil
	}
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// FetchResult is the outcome of fetching every connected platform.
type FetchResult struct {
	Libraries map[string][]dedupe.RawEntry
	Scanned   []string
	Failures  map[string]error
}

// FetchAll fetches every connected platform's library. One platform failing
// never aborts the others; failures are collected per platform so callers
// can report which accounts were actually scanned.
func (r *Registry) FetchAll(ctx context.Context) FetchResult {
	result := FetchResult{
		Libraries: make(map[string][]dedupe.RawEntry),
		Failures:  make(map[string]error),
	}

	for _, name := range r.PlatformNames() {
		provider := r.providers[name]
		creds := r.credentials[name]

		entries, err := provider.FetchLibrary(ctx, creds)
		if err != nil {
			r.logger.Warn().Err(err).Str("platform", name).Msg("platform fetch failed")
			result.Failures[name] = err
			continue
		}

		result.Libraries[name] = entries
		result.Scanned = append(result.Scanned, name)
		r.logger.Info().Str("platform", name).Int("entries", len(entries)).Msg("platform library fetched")
	}
	return result
}
