package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"horse.fit/backlog/internal/cli"
	"horse.fit/backlog/internal/config"
	"horse.fit/backlog/internal/dedupe"
	"horse.fit/backlog/internal/logging"
	"horse.fit/backlog/internal/platforms"
)

func runMatch(args []string) int {
	fs := flag.NewFlagSet("match", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 60*time.Second, "Command timeout")
	platform := fs.String("platform", "", "Platform library to match against")
	format := fs.String("format", outputFormatTable, "Output format: table or json")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "match requires exactly one title argument")
		return 2
	}
	title := strings.TrimSpace(fs.Arg(0))
	if title == "" {
		fmt.Fprintln(os.Stderr, "title must not be empty")
		return 2
	}
	if strings.TrimSpace(*platform) == "" {
		fmt.Fprintln(os.Stderr, "--platform is required")
		return 2
	}

	outputFormat, err := parseOutputFormat(*format, outputFormatTable)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid format: %v\n", err)
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
	provider, creds, err := registry.Provider(*platform)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	entries, err := provider.FetchLibrary(ctx, creds)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Fetch %s library failed: %v\n", provider.Name(), err)
		return 1
	}

	matches := dedupe.MatchAgainstPlatform(title, provider.Name(), entries)

	if outputFormat == outputFormatJSON {
		if err := printJSON(matches); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
			return 1
		}
		return 0
	}

	if len(matches) == 0 {
		fmt.Printf("No matches for %q on %s\n", title, provider.Name())
		return 0
	}

	rows := make([][]string, 0, len(matches))
	for _, match := range matches {
		rows = append(rows, []string{
			match.PlatformID,
			fmt.Sprintf("%d", match.Confidence),
			fmt.Sprintf("%.1f", match.PlaytimeHours),
			fmt.Sprintf("%d/%d", match.AchievementsEarned, match.AchievementsTotal),
			fmt.Sprintf("%.0f%%", match.CompletionPercentage),
		})
	}

	if err := writeTable([]string{"platform_id", "confidence", "hours", "achievements", "completion"}, rows); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to render match table: %v\n", err)
		return 1
	}
	return 0
}
