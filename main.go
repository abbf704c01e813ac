package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sp1d3rx/atui/pkg/aws"
	"github.com/sp1d3rx/atui/pkg/cmd"
	"github.com/sp1d3rx/atui/pkg/history"
	"github.com/sp1d3rx/atui/pkg/logging"
	"github.com/sp1d3rx/atui/pkg/presets"
	"github.com/sp1d3rx/atui/pkg/session"
	"github.com/sp1d3rx/atui/pkg/ui"
)

func main() {
	logging.LogDebug("Logger test: main started")

	// Parse command line arguments
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "prune":
			cmd.HandlePruneCommand()
			return
		case "help", "-h", "--help":
			cmd.HandleHelpCommand()
			return
		}
	}

	profile := flag.String("profile", aws.DefaultProfile, "AWS profile to use")
	region := flag.String("region", aws.DefaultRegion, "AWS region to use")
	portsConfig := flag.String("ports-config", "", "Port preset YAML file (defaults to ~/.atui/ports.yaml)")
	historyFile := flag.String("history-file", "", "History database path (defaults to ~/.atui/history.db)")
	flag.Usage = cmd.ShowMainHelpAndExit
	flag.Parse()

	available := aws.CLIAvailable()
	if !available {
		logging.LogError("aws CLI not found in PATH, running in simulated mode")
	}

	presetCfg := presets.Load(resolvePortsPath(*portsConfig))

	// History failures degrade to memory-only operation, they never block the UI.
	var store session.Store
	var storeHandle *history.Store
	historyNote := ""
	path := *historyFile
	if path == "" {
		var err error
		path, err = history.DefaultPath()
		if err != nil {
			historyNote = fmt.Sprintf("History disabled: %v", err)
		}
	}
	if path != "" {
		opened, err := history.Open(path)
		if err != nil {
			historyNote = fmt.Sprintf("History disabled, continuing without persistence: %v", err)
			logging.LogError("Failed to open history store: %v", err)
		} else {
			store = opened
			storeHandle = opened
			historyNote = fmt.Sprintf("History: %s", path)
		}
	}

	p := *profile
	r := *region
	manager := session.NewManager(session.ManagerConfig{
		Store:      store,
		Supervisor: session.NewSupervisor(),
		Build: func(spec session.ForwardSpec) ([]string, error) {
			target := aws.Target{InstanceID: spec.InstanceID, Profile: p, Region: r}
			return target.PortForwardCommand(spec.RemotePort, spec.LocalPort, spec.RemoteHost)
		},
		Render:    aws.CommandString,
		Available: available,
	})

	params := ui.Params{
		Profile:     *profile,
		Region:      *region,
		Available:   available,
		Manager:     manager,
		Presets:     presetCfg,
		HistoryNote: historyNote,
	}
	if storeHandle != nil {
		params.History = storeHandle
	}
	model := ui.NewModel(params)

	program := tea.NewProgram(model, tea.WithAltScreen())
	_, runErr := program.Run()

	// stop any forwards that outlived the confirm view (e.g. ctrl+c in a form)
	model.Cleanup()
	if storeHandle != nil {
		storeHandle.Close()
	}

	if runErr != nil {
		fmt.Printf("Error: %v\n", runErr)
		os.Exit(1)
	}
}

func resolvePortsPath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(homeDir, ".atui", "ports.yaml")
}
