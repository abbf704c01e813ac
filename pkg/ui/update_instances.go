package ui

import (
	"fmt"
	"os/exec"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/sp1d3rx/atui/pkg/aws"
)

// updateInstances handles keys for the instance table view
func (m *Model) updateInstances(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch msg.String() {
	case ShortcutQuit:
		return m.requestQuit()

	case ShortcutRefresh:
		m.errorMsg = ""
		m.statusMsg = fmt.Sprintf("Loading instances from %s (%s)...", m.region, m.profile)
		m.appendLog(fmt.Sprintf("Refreshing instances for %s (%s).", m.region, m.profile))
		m.loading = true
		return m, m.loadInstancesCmd()

	case "enter":
		instance, ok := m.selectedInstance()
		if !ok {
			m.errorMsg = "Select an EC2 instance first"
			return m, nil
		}
		m.enterDetail(instance)
		return m, nil

	case ShortcutConsole:
		return m.launchConsole()

	case ShortcutForward:
		instance, ok := m.selectedInstance()
		if !ok {
			m.errorMsg = "Select an EC2 instance first"
			return m, nil
		}
		m.enterAddForward(instance, StateInstances)
		return m, nil

	case ShortcutCopy:
		return m.copyCommandPreview()

	default:
		m.instanceTable, cmd = m.instanceTable.Update(msg)
		m.updateCommandPreview()
		return m, cmd
	}
}

// launchConsole runs an interactive SSM shell for the selected instance.
// The TUI suspends for the duration; the session is fire-and-forget and not
// tracked by the forward lifecycle.
func (m *Model) launchConsole() (tea.Model, tea.Cmd) {
	instance, ok := m.selectedInstance()
	if !ok {
		m.errorMsg = "Select an EC2 instance first"
		m.appendLog("Connect requested with no selected instance.")
		return m, nil
	}

	argv, err := m.target(instance).ConsoleCommand()
	if err != nil {
		m.errorMsg = fmt.Sprintf("Cannot build console command: %v", err)
		return m, nil
	}
	m.commandPreview = aws.CommandString(argv)

	if !m.available {
		m.statusMsg = "Simulated SSM session (aws CLI not installed)."
		m.appendLog(fmt.Sprintf("Simulated SSM session for %s.", instance.InstanceID))
		return m, nil
	}

	instanceID := instance.InstanceID
	m.appendLog(fmt.Sprintf("Starting SSM session for %s.", instanceID))
	console := exec.Command(argv[0], argv[1:]...)
	return m, tea.ExecProcess(console, func(err error) tea.Msg {
		return consoleFinishedMsg{instanceID: instanceID, err: err}
	})
}

func (m *Model) copyCommandPreview() (tea.Model, tea.Cmd) {
	if m.commandPreview == "" {
		m.errorMsg = "No command available to copy yet"
		return m, nil
	}
	if err := clipboard.WriteAll(m.commandPreview); err != nil {
		m.errorMsg = fmt.Sprintf("Clipboard copy failed: %v", err)
		return m, nil
	}
	m.statusMsg = "Command copied to clipboard."
	m.appendLog("Copied command to clipboard.")
	return m, nil
}

func (m *Model) target(instance aws.Instance) aws.Target {
	return aws.Target{
		InstanceID: instance.InstanceID,
		Profile:    m.profile,
		Region:     m.region,
	}
}
