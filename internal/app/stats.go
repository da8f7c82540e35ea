package app

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"horse.fit/backlog/internal/cli"
)

func runStats(args []string) int {
	fs := flag.NewFlagSet("stats", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 30*time.Second, "Command timeout")
	format := fs.String("format", outputFormatTable, "Output format: table or json")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "stats does not accept positional arguments")
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

	stats, err := pool.QueryLibraryStats(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to query library stats: %v\n", err)
		return 1
	}

	if outputFormat == outputFormatJSON {
		if err := printJSON(stats); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
			return 1
		}
		return 0
	}

	platformRows := make([][]string, 0, len(stats.Platforms)+1)
	for _, row := range stats.Platforms {
		platformRows = append(platformRows, []string{
			row.Platform,
			fmt.Sprintf("%d", row.Entries),
			fmt.Sprintf("%d", row.Completed),
			fmt.Sprintf("%.1f", row.Playtime),
		})
	}
	platformRows = append(platformRows, []string{
		"TOTAL",
		fmt.Sprintf("%d", stats.Totals.Entries),
		fmt.Sprintf("%d", stats.Totals.Completed),
		fmt.Sprintf("%.1f", stats.Totals.Playtime),
	})

	if err := writeTable([]string{"platform", "entries", "completed", "playtime_hours"}, platformRows); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to render platform table: %v\n", err)
		return 1
	}

	fmt.Println()
	if err := writeTable([]string{"metric", "value"}, [][]string{
		{"dismissed_groups", fmt.Sprintf("%d", stats.Totals.Dismissals)},
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to render totals table: %v\n", err)
		return 1
	}

	return 0
}
