package app

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"horse.fit/backlog/internal/cli"
	"horse.fit/backlog/internal/config"
	"horse.fit/backlog/internal/db"
	"horse.fit/backlog/internal/dedupe"
	"horse.fit/backlog/internal/globaltime"
	"horse.fit/backlog/internal/logging"
	"horse.fit/backlog/internal/platforms"
	payloadschema "horse.fit/backlog/schema"
)

// runImport loads a JSON array of canonical platform item payloads from a
// file and upserts the valid ones. Invalid rows are reported and skipped,
// never imported partially.
func runImport(args []string) int {
	fs := flag.NewFlagSet("import", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 60*time.Second, "Command timeout")
	file := fs.String("file", "", "Path to a JSON array of platform item payloads")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "import does not accept positional arguments")
		return 2
	}
	if strings.TrimSpace(*file) == "" {
		fmt.Fprintln(os.Stderr, "--file is required")
		return 2
	}

	raw, err := os.ReadFile(*file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read %s: %v\n", *file, err)
		return 2
	}

	var payloads []json.RawMessage
	if err := json.Unmarshal(raw, &payloads); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid input: expected a JSON array of payload objects: %v\n", err)
		return 2
	}
	if len(payloads) == 0 {
		fmt.Fprintln(os.Stderr, "Input contains no payloads")
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

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		return 1
	}
	defer pool.Close()

	imported := 0
	skipped := 0
	syncedPlatforms := make(map[string]bool)
	for i, payload := range payloads {
		item, err := payloadschema.ValidatePlatformItemPayload(payload)
		if err != nil {
			fmt.Fprintf(os.Stderr, "payload %d: %v\n", i, err)
			skipped++
			continue
		}

		entry, err := platforms.EntryFromItem(item)
		if err != nil {
			fmt.Fprintf(os.Stderr, "payload %d: %v\n", i, err)
			skipped++
			continue
		}

		normalized := dedupe.NormalizeTitle(entry.Title)
		if _, err := pool.UpsertPlatformEntry(ctx, item.Platform, entry, normalized); err != nil {
			logger.Warn().
				Err(err).
				Str("platform", item.Platform).
				Str("platform_item_id", entry.PlatformID).
				Msg("import upsert failed")
			skipped++
			continue
		}
		imported++
		syncedPlatforms[item.Platform] = true
	}

	for platform := range syncedPlatforms {
		if err := pool.TouchPlatformSync(ctx, platform, globaltime.UTC()); err != nil {
			logger.Warn().Err(err).Str("platform", platform).Msg("touch platform sync failed")
		}
	}

	fmt.Printf("Imported %d payloads (%d skipped)\n", imported, skipped)
	if skipped > 0 {
		return 1
	}
	return 0
}
