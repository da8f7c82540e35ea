package httpapi

import (
	"strings"

	"github.com/labstack/echo/v4"

	"horse.fit/backlog/internal/dedupe"
	"horse.fit/backlog/internal/globaltime"
)

type matchRequest struct {
	Title string `json:"title"`
}

func (s *Server) handleListPlatforms(c echo.Context) error {
	accounts, err := s.pool.ListPlatformAccounts(c.Request().Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("query platform accounts failed")
		return internalError(c, "Failed to load platforms")
	}

	var configured []string
	if s.registry != nil {
		configured = s.registry.PlatformNames()
	}

	return success(c, map[string]any{
		"configured": configured,
		"accounts":   accounts,
	})
}

func (s *Server) handlePlatformSync(c echo.Context) error {
	if s.registry == nil || len(s.registry.PlatformNames()) == 0 {
		return failConflict(c, "No platforms are configured")
	}

	ctx := c.Request().Context()
	result := s.registry.FetchAll(ctx)

	imported := make(map[string]int, len(result.Libraries))
	for platform, entries := range result.Libraries {
		count := 0
		for _, raw := range entries {
			normalized := dedupe.NormalizeTitle(raw.Title)
			if _, err := s.pool.UpsertPlatformEntry(ctx, platform, raw, normalized); err != nil {
				s.logger.Warn().
					Err(err).
					Str("platform", platform).
					Str("platform_item_id", raw.PlatformID).
					Msg("platform entry upsert failed")
				continue
			}
			count++
		}
		imported[platform] = count

		if err := s.pool.TouchPlatformSync(ctx, platform, globaltime.UTC()); err != nil {
			s.logger.Warn().Err(err).Str("platform", platform).Msg("touch platform sync failed")
		}
	}

	failures := make(map[string]string, len(result.Failures))
	for platform, fetchErr := range result.Failures {
		failures[platform] = fetchErr.Error()
	}

	return success(c, map[string]any{
		"scanned":  result.Scanned,
		"imported": imported,
		"failures": failures,
	})
}

func (s *Server) handlePlatformMatch(c echo.Context) error {
	platform := strings.ToLower(strings.TrimSpace(c.Param("platform")))
	if platform == "" {
		return failValidation(c, map[string]string{"platform": "is required"})
	}

	var req matchRequest
	if err := decodeJSONBody(c, &req); err != nil {
		return failValidation(c, map[string]string{"body": err.Error()})
	}
	if strings.TrimSpace(req.Title) == "" {
		return failValidation(c, map[string]string{"title": "is required"})
	}

	if s.registry == nil {
		return failConflict(c, "No platforms are configured")
	}
	provider, creds, err := s.registry.Provider(platform)
	if err != nil {
		return failNotFound(c, err.Error())
	}

	entries, err := provider.FetchLibrary(c.Request().Context(), creds)
	if err != nil {
		s.logger.Error().Err(err).Str("platform", platform).Msg("platform library fetch failed")
		return internalError(c, "Failed to fetch platform library")
	}

	matches := dedupe.MatchAgainstPlatform(req.Title, provider.Name(), entries)
	return success(c, map[string]any{
		"platform": provider.Name(),
		"title":    req.Title,
		"matches":  matches,
		"total":    len(matches),
	})
}
