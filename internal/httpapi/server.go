package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"horse.fit/backlog/internal/db"
	"horse.fit/backlog/internal/dedupe"
	"horse.fit/backlog/internal/globaltime"
	"horse.fit/backlog/internal/platforms"
)

type Options struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	SessionTTL      time.Duration
	SessionCookie   string
	SessionSecure   bool
	AllowedOrigins  []string
}

// resolutionSession serializes access to the resolution workflow. The
// service operates one shared library, so there is a single session for all
// authenticated users; the workflow itself is single-threaded and concurrent
// requests queue on the session mutex.
type resolutionSession struct {
	mu       sync.Mutex
	workflow *dedupe.Workflow
}

type Server struct {
	pool     *db.Pool
	store    *db.LibraryStore
	registry *platforms.Registry
	logger   zerolog.Logger
	opts     Options

	// In-memory review state; a restart discards it.
	session *resolutionSession
}

func NewServer(pool *db.Pool, registry *platforms.Registry, logger zerolog.Logger, opts Options) *Server {
	host := strings.TrimSpace(opts.Host)
	if host == "" {
		host = "0.0.0.0"
	}
	port := opts.Port
	if port <= 0 {
		port = 8090
	}
	readTimeout := opts.ReadTimeout
	if readTimeout <= 0 {
		readTimeout = 10 * time.Second
	}
	writeTimeout := opts.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = 30 * time.Second
	}
	shutdownTimeout := opts.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	sessionTTL := opts.SessionTTL
	if sessionTTL <= 0 {
		sessionTTL = 7 * 24 * time.Hour
	}
	sessionCookie := strings.TrimSpace(opts.SessionCookie)
	if sessionCookie == "" {
		sessionCookie = "backlog_session"
	}

	var store *db.LibraryStore
	if pool != nil {
		store = db.NewLibraryStore(pool)
	}

	s := &Server{
		pool:     pool,
		store:    store,
		registry: registry,
		logger:   logger,
		opts: Options{
			Host:            host,
			Port:            port,
			ReadTimeout:     readTimeout,
			WriteTimeout:    writeTimeout,
			ShutdownTimeout: shutdownTimeout,
			SessionTTL:      sessionTTL,
			SessionCookie:   sessionCookie,
			SessionSecure:   opts.SessionSecure,
			AllowedOrigins:  opts.AllowedOrigins,
		},
	}
	s.session = &resolutionSession{workflow: s.newWorkflow()}
	return s
}

func (s *Server) Start(ctx context.Context) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("server is not initialized")
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.httpErrorHandler

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())

	allowOrigins := s.opts.AllowedOrigins
	if len(allowOrigins) == 0 {
		allowOrigins = []string{"*"}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     allowOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		AllowCredentials: len(s.opts.AllowedOrigins) > 0,
		MaxAge:           3600,
	}))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			if v.Error != nil {
				s.logger.Error().
					Err(v.Error).
					Str("method", v.Method).
					Str("uri", v.URI).
					Int("status", v.Status).
					Dur("latency", v.Latency).
					Str("remote_ip", v.RemoteIP).
					Str("request_id", v.RequestID).
					Msg("http request failed")
				return nil
			}

			s.logger.Info().
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("remote_ip", v.RemoteIP).
				Str("request_id", v.RequestID).
				Msg("http request")
			return nil
		},
	}))

	api := e.Group("/api/v1")
	api.GET("/health", s.handleHealth)
	api.POST("/auth/login", s.handleLogin)
	api.POST("/auth/logout", s.handleLogout)

	authed := api.Group("", s.requireAuth())
	authed.GET("/auth/me", s.handleMe)
	authed.GET("/settings", s.handleGetMySettings)
	authed.PUT("/settings", s.handlePutMySettings)

	authed.GET("/library/stats", s.handleLibraryStats)
	authed.GET("/library", s.handleLibraryList)

	authed.POST("/duplicates/scan", s.handleScanStart)
	authed.GET("/duplicates/session", s.handleSessionState)
	authed.POST("/duplicates/decisions", s.handleDecide)
	authed.POST("/duplicates/back", s.handleBack)
	authed.GET("/duplicates/summary", s.handleSummary)
	authed.PATCH("/duplicates/actions/:index", s.handleChangeAction)
	authed.DELETE("/duplicates/actions/:index", s.handleRemoveAction)
	authed.POST("/duplicates/actions/:index/review", s.handleReviewAction)
	authed.POST("/duplicates/execute", s.handleExecute)
	authed.POST("/duplicates/rescan", s.handleRescan)

	authed.GET("/dismissals", s.handleListDismissals)
	authed.DELETE("/dismissals/:group_key", s.handleDeleteDismissal)

	authed.GET("/platforms", s.handleListPlatforms)
	authed.POST("/platforms/sync", s.handlePlatformSync)
	authed.POST("/platforms/:platform/match", s.handlePlatformMatch)

	addr := fmt.Sprintf("%s:%d", s.opts.Host, s.opts.Port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      e,
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
		defer cancel()
		if shutdownErr := e.Shutdown(shutdownCtx); shutdownErr != nil {
			s.logger.Error().Err(shutdownErr).Msg("server shutdown failed")
		}
	}()

	s.logger.Info().Str("addr", addr).Msg("backlog api server started")

	if err := e.StartServer(httpServer); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("start server: %w", err)
	}
	s.logger.Info().Msg("backlog api server stopped")
	return nil
}

func (s *Server) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	message := "Internal server error"
	if he, ok := err.(*echo.HTTPError); ok {
		status = he.Code
		switch v := he.Message.(type) {
		case string:
			if strings.TrimSpace(v) != "" {
				message = v
			}
		default:
			if text := strings.TrimSpace(http.StatusText(status)); text != "" {
				message = text
			}
		}
	} else if err != nil {
		message = err.Error()
	}

	if status >= 500 {
		_ = internalError(c, "Internal server error")
		return
	}
	_ = fail(c, status, message, nil)
}

func (s *Server) handleHealth(c echo.Context) error {
	return success(c, map[string]any{
		"service": "backlog",
		"time":    globaltime.UTC(),
	})
}

func (s *Server) handleLibraryStats(c echo.Context) error {
	stats, err := s.pool.QueryLibraryStats(c.Request().Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("query library stats failed")
		return internalError(c, "Failed to load library stats")
	}
	return success(c, stats)
}

func (s *Server) handleLibraryList(c echo.Context) error {
	entries, err := s.pool.ListLibraryEntries(c.Request().Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("query library failed")
		return internalError(c, "Failed to load library")
	}
	return success(c, map[string]any{
		"items": entries,
		"total": len(entries),
	})
}

func (s *Server) newWorkflow() *dedupe.Workflow {
	return dedupe.NewWorkflow(s.store, s.store, s.logger)
}

func parsePositiveInt(raw string, defaultValue, minValue, maxValue int) (int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return defaultValue, nil
	}

	value, err := strconv.Atoi(trimmed)
	if err != nil {
		return 0, fmt.Errorf("must be an integer")
	}
	if value < minValue || value > maxValue {
		return 0, fmt.Errorf("must be between %d and %d", minValue, maxValue)
	}
	return value, nil
}
