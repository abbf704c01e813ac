package ui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
)

// updateQuitConfirm handles the confirm-before-quit view shown when forwards
// are still active.
func (m *Model) updateQuitConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "n":
		m.uiState = StateInstances
		m.quitSessions = nil
		m.statusMsg = ""
		m.appendLog("Quit cancelled; active port forwards are still running.")
		return m, nil

	case "enter", "y":
		m.appendLog(fmt.Sprintf("Stopping %d active port forward(s) before exit.", len(m.quitSessions)))
		// blocks up to the grace period per forward, then the program exits
		entries := m.manager.Shutdown()
		m.drainManagerChanges()
		for _, entry := range entries {
			if !entry.Stopped {
				m.appendLog(fmt.Sprintf("Forward %s did not stop cleanly: %s", entry.Key, entry.Reason))
			}
		}
		return m, tea.Quit
	}
	return m, nil
}
