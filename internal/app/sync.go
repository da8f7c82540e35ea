package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"horse.fit/backlog/internal/cli"
	"horse.fit/backlog/internal/config"
	"horse.fit/backlog/internal/db"
	"horse.fit/backlog/internal/dedupe"
	"horse.fit/backlog/internal/globaltime"
	"horse.fit/backlog/internal/logging"
	"horse.fit/backlog/internal/platforms"
)

func runSync(args []string) int {
	fs := flag.NewFlagSet("sync", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 5*time.Minute, "Command timeout")
	only := fs.String("platform", "", "Sync only this platform")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "sync does not accept positional arguments")
		return 2
	}

	if envLoader != nil {
		if _, err := envLoader.Load(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	logger, err := logging.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		return 1
	}

	registry := platforms.NewRegistryFromConfig(cfg, logger)
	if len(registry.PlatformNames()) == 0 {
		fmt.Fprintln(os.Stderr, "No platforms configured; set platform credentials in the environment")
		return 2
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		return 1
	}
	defer pool.Close()

	var result platforms.FetchResult
	if *only != "" {
		provider, creds, err := registry.Provider(*only)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 2
		}
		entries, err := provider.FetchLibrary(ctx, creds)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Fetch %s library failed: %v\n", provider.Name(), err)
			return 1
		}
		result = platforms.FetchResult{
			Libraries: map[string][]dedupe.RawEntry{provider.Name(): entries},
			Scanned:   []string{provider.Name()},
		}
	} else {
		result = registry.FetchAll(ctx)
	}

	exitCode := 0
	for platform, fetchErr := range result.Failures {
		fmt.Fprintf(os.Stderr, "%s: fetch failed: %v\n", platform, fetchErr)
		exitCode = 1
	}

	for _, platform := range result.Scanned {
		imported := 0
		for _, raw := range result.Libraries[platform] {
			normalized := dedupe.NormalizeTitle(raw.Title)
			if _, err := pool.UpsertPlatformEntry(ctx, platform, raw, normalized); err != nil {
				logger.Warn().
					Err(err).
					Str("platform", platform).
					Str("platform_item_id", raw.PlatformID).
					Msg("platform entry upsert failed")
				continue
			}
			imported++
		}
		if err := pool.TouchPlatformSync(ctx, platform, globaltime.UTC()); err != nil {
			logger.Warn().Err(err).Str("platform", platform).Msg("touch platform sync failed")
		}
		fmt.Printf("%s: imported %d of %d entries\n", platform, imported, len(result.Libraries[platform]))
	}

	return exitCode
}
