package cmd

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sp1d3rx/atui/pkg/history"
)

// HandlePruneCommand handles the prune subcommand logic
func HandlePruneCommand() {
	// Check for help flag in prune subcommand
	if len(os.Args) > 2 {
		for _, arg := range os.Args[2:] {
			if arg == "-h" || arg == "--help" {
				showPruneHelp()
				os.Exit(0)
			}
		}
	}

	pruneCmd := flag.NewFlagSet("prune", flag.ExitOnError)
	days := pruneCmd.Int("days", 30, "Remove history older than this many days")
	historyFile := pruneCmd.String("history-file", "", "History database path (defaults to ~/.atui/history.db)")
	acceptAll := pruneCmd.Bool("y", false, "Prune without prompting")

	pruneCmd.Usage = showPruneHelp

	if err := pruneCmd.Parse(os.Args[2:]); err != nil {
		fmt.Printf("Error parsing arguments: %v\n", err)
		os.Exit(1)
	}

	if *days < 1 {
		fmt.Println("Error: --days must be at least 1")
		os.Exit(1)
	}

	path := *historyFile
	if path == "" {
		var err error
		path, err = history.DefaultPath()
		if err != nil {
			fmt.Printf("Error resolving history path: %v\n", err)
			os.Exit(1)
		}
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		fmt.Printf("No history database at %s; nothing to prune.\n", path)
		return
	}

	store, err := history.Open(path)
	if err != nil {
		fmt.Printf("Error opening history store: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	cutoff := time.Now().AddDate(0, 0, -*days)
	fmt.Printf("Pruning history older than %d day(s) from %s\n", *days, path)
	fmt.Println("Active port forward records are never pruned.")

	if !*acceptAll {
		fmt.Print("Continue? [y/N]: ")
		reader := bufio.NewReader(os.Stdin)
		resp, _ := reader.ReadString('\n')
		resp = strings.TrimSpace(strings.ToLower(resp))
		if resp != "y" && resp != "yes" {
			fmt.Println("Aborted.")
			return
		}
	}

	pruned, err := store.Prune(cutoff)
	if err != nil {
		fmt.Printf("Error pruning history: %v\n", err)
		os.Exit(1)
	}
	if pruned == 0 {
		fmt.Println("✅ Nothing to prune.")
		return
	}
	fmt.Printf("🧹 Removed %d stale record(s).\n", pruned)
}

// showPruneHelp displays help for the prune command
func showPruneHelp() {
	programName := os.Args[0]
	fmt.Fprintf(os.Stderr, `%s prune - Remove old port forward history

Remove session records and audit events older than a cutoff from the
local history database. Records for forwards that are still active are
always kept.

Usage:
  %s prune [options]

Options:
  --days int            Remove history older than this many days (default 30)
  --history-file string History database path (defaults to ~/.atui/history.db)
  -y                    Prune without prompting for confirmation
  -h, --help            Show this help message

Examples:
  %s prune               Prune records older than 30 days
  %s prune --days 7      Prune records older than a week
  %s prune --days 90 -y  Auto-confirm a 90 day prune
`, programName, programName, programName, programName, programName)
}
