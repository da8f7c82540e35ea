package app

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"horse.fit/backlog/internal/cli"
)

func runEvents(args []string) int {
	fs := flag.NewFlagSet("events", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 30*time.Second, "Command timeout")
	format := fs.String("format", outputFormatTable, "Output format: table or json")
	limit := fs.Int("limit", 50, "Maximum number of events to show")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "events does not accept positional arguments")
		return 2
	}
	if *limit < 1 || *limit > 1000 {
		fmt.Fprintln(os.Stderr, "--limit must be between 1 and 1000")
		return 2
	}

	outputFormat, err := parseOutputFormat(*format, outputFormatTable)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid format: %v\n", err)
		return 2
	}

	ctx, cancel, pool, err := connectReadPool(*timeout, envLoader)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer cancel()
	defer pool.Close()

	events, err := pool.ListResolutionEvents(ctx, *limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to query resolution events: %v\n", err)
		return 1
	}

	if outputFormat == outputFormatJSON {
		if err := printJSON(events); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
			return 1
		}
		return 0
	}

	rows := make([][]string, 0, len(events))
	for _, event := range events {
		outcome := "ok"
		if !event.Succeeded {
			outcome = truncateForTable(event.ErrorMessage, 40)
			if outcome == "" {
				outcome = "failed"
			}
		}
		rows = append(rows, []string{
			truncateForTable(event.SessionID, 12),
			truncateForTable(event.GroupKey, 32),
			event.ActionType,
			outcome,
			formatUTCTimestamp(event.OccurredAt),
		})
	}

	if err := writeTable([]string{"session", "group_key", "action", "outcome", "occurred_at"}, rows); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to render events table: %v\n", err)
		return 1
	}
	return 0
}
