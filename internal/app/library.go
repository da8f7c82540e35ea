package app

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"horse.fit/backlog/internal/cli"
	"horse.fit/backlog/internal/dedupe"
)

func runLibrary(args []string) int {
	fs := flag.NewFlagSet("library", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 30*time.Second, "Command timeout")
	format := fs.String("format", outputFormatTable, "Output format: table or json")
	platform := fs.String("platform", "", "Only show entries from this platform")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "library does not accept positional arguments")
		return 2
	}

	outputFormat, err := parseOutputFormat(*format, outputFormatTable)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid format: %v\n", err)
		return 2
	}
	platformFilter := strings.ToLower(strings.TrimSpace(*platform))

	ctx, cancel, pool, err := connectReadPool(*timeout, envLoader)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer cancel()
	defer pool.Close()

	entries, err := pool.ListLibraryEntries(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to query library: %v\n", err)
		return 1
	}

	if platformFilter != "" {
		filtered := make([]dedupe.LibraryEntry, 0, len(entries))
		for _, entry := range entries {
			if entry.Platform == platformFilter {
				filtered = append(filtered, entry)
			}
		}
		entries = filtered
	}

	if outputFormat == outputFormatJSON {
		if err := printJSON(entries); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
			return 1
		}
		return 0
	}

	rows := make([][]string, 0, len(entries))
	for _, entry := range entries {
		rows = append(rows, []string{
			fmt.Sprintf("%d", entry.ID),
			truncateForTable(entry.Title, 48),
			entry.Platform,
			fmt.Sprintf("%.1f", entry.PlaytimeHours),
			entry.Status,
			entry.Priority,
			formatUTCTimestampPtr(entry.LastPlayedAt),
		})
	}

	if err := writeTable([]string{"id", "title", "platform", "hours", "status", "priority", "last_played"}, rows); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to render library table: %v\n", err)
		return 1
	}
	fmt.Printf("\n%d entries\n", len(entries))
	return 0
}
