package cmd

import (
	"fmt"
	"os"
)

// HandleHelpCommand displays help information for the application
func HandleHelpCommand() {
	showMainHelp()
}

// showMainHelp displays the main application help
func showMainHelp() {
	programName := os.Args[0]
	fmt.Printf(`atui - AWS EC2 Session Manager TUI

A terminal-based UI application for browsing EC2 instances and managing
SSM port forwarding sessions, with durable local history.

Usage:
  %s [command] [options]

Available Commands:
  prune    Remove old records from the local history database
  help     Show help information

Options:
  --profile string       AWS profile to use (default "default")
  --region string        AWS region to use (default "us-west-1")
  --ports-config string  Port preset YAML file (defaults to ~/.atui/ports.yaml)
  --history-file string  History database path (defaults to ~/.atui/history.db)
  -h, --help             Show help information

Interactive Mode:
  Run without any command to start the interactive TUI where you can:
  - Press Enter on an instance to manage its port forwards
  - Press 'c' to open an interactive SSM console session
  - Press 'p' to start a port forward for the selected instance
  - Press 's'/'x' in the forwards view to start/stop a forward
  - Press 'y' to copy the previewed aws command to the clipboard

Examples:
  %s                            Start interactive TUI
  %s --profile prod --region eu-west-1
  %s prune --days 7             Remove history older than a week
  %s help                       Show this help message

For more information about a specific command, use:
  %s <command> --help
`, programName, programName, programName, programName, programName, programName)
}

// ShowMainHelpAndExit displays help and exits with code 0
func ShowMainHelpAndExit() {
	showMainHelp()
	os.Exit(0)
}
