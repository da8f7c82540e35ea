package app

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"horse.fit/backlog/internal/cli"
)

func runDismissals(args []string) int {
	fs := flag.NewFlagSet("dismissals", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 30*time.Second, "Command timeout")
	format := fs.String("format", outputFormatTable, "Output format: table or json")
	deleteKey := fs.String("delete", "", "Delete the dismissal with this group key")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "dismissals does not accept positional arguments")
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

	if key := strings.TrimSpace(*deleteKey); key != "" {
		deleted, err := pool.DeleteDismissal(ctx, key)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to delete dismissal: %v\n", err)
			return 1
		}
		if deleted == 0 {
			fmt.Fprintf(os.Stderr, "No dismissal with key %q\n", key)
			return 1
		}
		fmt.Printf("Deleted dismissal %q; the group is eligible again on the next scan\n", key)
		return 0
	}

	dismissals, err := pool.ListDismissals(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to query dismissals: %v\n", err)
		return 1
	}

	if outputFormat == outputFormatJSON {
		if err := printJSON(dismissals); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
			return 1
		}
		return 0
	}

	rows := make([][]string, 0, len(dismissals))
	for _, dismissal := range dismissals {
		rows = append(rows, []string{
			truncateForTable(dismissal.GroupKey, 40),
			fmt.Sprintf("%d", len(dismissal.MemberIDs)),
			formatUTCTimestamp(dismissal.DismissedAt),
		})
	}

	if err := writeTable([]string{"group_key", "members", "dismissed_at"}, rows); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to render dismissals table: %v\n", err)
		return 1
	}
	fmt.Printf("\n%d dismissed groups\n", len(dismissals))
	return 0
}
