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
	"horse.fit/backlog/internal/logging"
)

func runScan(args []string) int {
	fs := flag.NewFlagSet("scan", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 60*time.Second, "Command timeout")
	format := fs.String("format", outputFormatTable, "Output format: table or json")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "scan does not accept positional arguments")
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

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		return 1
	}
	defer pool.Close()

	store := db.NewLibraryStore(pool)
	workflow := dedupe.NewWorkflow(store, store, logger)
	groups, err := workflow.StartScan(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Scan failed: %v\n", err)
		return 1
	}

	if outputFormat == outputFormatJSON {
		type scanGroup struct {
			Index      int                   `json:"index"`
			Key        string                `json:"key"`
			MatchType  dedupe.MatchType      `json:"match_type"`
			Confidence int                   `json:"confidence"`
			Members    []dedupe.LibraryEntry `json:"members"`
		}
		output := make([]scanGroup, 0, len(groups))
		for i, group := range groups {
			output = append(output, scanGroup{
				Index:      i,
				Key:        group.Key,
				MatchType:  group.MatchType,
				Confidence: group.Confidence,
				Members:    group.Members,
			})
		}
		if err := printJSON(output); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
			return 1
		}
		return 0
	}

	if len(groups) == 0 {
		fmt.Println("No duplicate groups found")
		return 0
	}

	rows := make([][]string, 0, len(groups)*2)
	for i, group := range groups {
		for _, member := range group.Members {
			rows = append(rows, []string{
				fmt.Sprintf("%d", i),
				truncateForTable(group.Key, 32),
				string(group.MatchType),
				fmt.Sprintf("%d", group.Confidence),
				fmt.Sprintf("%d", member.ID),
				truncateForTable(member.Title, 48),
				member.Platform,
			})
		}
	}

	if err := writeTable([]string{"group", "key", "match", "confidence", "entry_id", "title", "platform"}, rows); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to render scan table: %v\n", err)
		return 1
	}
	fmt.Printf("\n%d duplicate groups\n", len(groups))
	return 0
}
