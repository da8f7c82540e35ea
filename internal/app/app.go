package app

import (
	"fmt"
	"os"
	"strings"
)

// Run executes the CLI command and returns a process exit code.
func Run(args []string) int {
	if len(args) == 0 {
		printUsage()
		return 2
	}

	switch strings.ToLower(strings.TrimSpace(args[0])) {
	case "help", "--help", "-h":
		printUsage()
		return 0
	case "health":
		return runHealth(args[1:])
	case "sync":
		return runSync(args[1:])
	case "import":
		return runImport(args[1:])
	case "library":
		return runLibrary(args[1:])
	case "stats":
		return runStats(args[1:])
	case "scan":
		return runScan(args[1:])
	case "match":
		return runMatch(args[1:])
	case "dismissals":
		return runDismissals(args[1:])
	case "events":
		return runEvents(args[1:])
	case "serve":
		return runServe(args[1:])
	case "daemon":
		return runDaemon(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", args[0])
		printUsage()
		return 2
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "backlog CLI")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  backlog <command> [flags]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  health      Verify database connectivity")
	fmt.Fprintln(os.Stderr, "  sync        Fetch connected platform libraries into the database")
	fmt.Fprintln(os.Stderr, "  import      Import a JSON snapshot of platform item payloads")
	fmt.Fprintln(os.Stderr, "  library     List library entries")
	fmt.Fprintln(os.Stderr, "  stats       Show per-platform library counts")
	fmt.Fprintln(os.Stderr, "  scan        Preview duplicate groups without resolving them")
	fmt.Fprintln(os.Stderr, "  match       Match a title against one platform's library")
	fmt.Fprintln(os.Stderr, "  dismissals  List or delete dismissed duplicate groups")
	fmt.Fprintln(os.Stderr, "  events      Show recent resolution audit events")
	fmt.Fprintln(os.Stderr, "  serve       Start Echo API server")
	fmt.Fprintln(os.Stderr, "  daemon      Manage the systemd service for serve")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Use \"backlog <command> -h\" for command-specific flags.")
}
