package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// View renders the current model state
func (m *Model) View() string {
	switch m.uiState {
	case StateInstances:
		return m.viewInstances()
	case StateDetail:
		return m.viewDetail()
	case StateAddForward:
		return m.viewAddForward()
	case StateQuitConfirm:
		return m.viewQuitConfirm()
	}
	return "Unknown state"
}

// viewInstances renders the EC2 instance table view
func (m *Model) viewInstances() string {
	mode := ""
	if !m.available {
		mode = " [simulated]"
	}
	titleText := fmt.Sprintf("EC2 Instances - %s (%s)%s", m.region, m.profile, mode)
	title := lipgloss.NewStyle().Foreground(lipgloss.Color(ColorTitle)).Bold(true).Render(titleText)

	help := "Enter: Forwards | C: Console | P: Port Forward | R: Refresh | Y: Copy Cmd | Q: Quit"
	if m.width < 80 {
		help = "Enter:Forwards | C:Console | P:Forward | R:Refresh | Q:Quit"
	}
	helpStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(ColorHelp))
	helpText := helpStyle.Render(help)

	top := title
	if m.width >= 80 {
		spacing := m.width - lipgloss.Width(title) - lipgloss.Width(helpText)
		if spacing > 0 {
			top = lipgloss.JoinHorizontal(lipgloss.Left, title, strings.Repeat(" ", spacing), helpText)
		}
	}

	tableView := lipgloss.PlaceHorizontal(m.width, lipgloss.Left, m.instanceTable.View())
	if m.loading {
		tableView = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorDim)).Render("Loading instances...")
	}

	sections := []string{top, "", tableView, m.renderCommandBar()}
	if message := m.renderMessage(); message != "" {
		sections = append(sections, message)
	}
	sections = append(sections, m.renderActivityLog())
	if m.width < 80 {
		sections = append(sections, helpText)
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// viewDetail renders the per-instance forwards view
func (m *Model) viewDetail() string {
	titleText := fmt.Sprintf("Port Forwards - %s (%s)", m.detailInstance.DisplayName(), m.detailInstance.InstanceID)
	title := lipgloss.NewStyle().Foreground(lipgloss.Color(ColorTitle)).Bold(true).Render(titleText)

	help := "A: Add | S: Start | X: Stop | Y: Copy Cmd | Esc: Back | Q: Quit"
	helpStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(ColorHelp))
	helpText := helpStyle.Render(help)

	top := title
	if m.width >= 80 {
		spacing := m.width - lipgloss.Width(title) - lipgloss.Width(helpText)
		if spacing > 0 {
			top = lipgloss.JoinHorizontal(lipgloss.Left, title, strings.Repeat(" ", spacing), helpText)
		}
	}

	tableView := lipgloss.PlaceHorizontal(m.width, lipgloss.Left, m.detailTable.View())
	if len(m.detailSessions) == 0 {
		tableView = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorDim)).
			Render("No port forwards yet. Press A to add one.")
	}

	sections := []string{top, "", tableView, m.renderDetailHistory(), m.renderCommandBar()}
	if message := m.renderMessage(); message != "" {
		sections = append(sections, message)
	}
	sections = append(sections, m.renderActivityLog())
	if m.width < 80 {
		sections = append(sections, helpText)
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// viewAddForward renders the add-forward form
func (m *Model) viewAddForward() string {
	titleText := fmt.Sprintf("New Port Forward - %s", m.detailInstance.DisplayName())
	title := lipgloss.NewStyle().Foreground(lipgloss.Color(ColorTitle)).Bold(true).Render(titleText)

	presetLabel := "custom"
	if m.presetIndex >= 0 && m.presetIndex < len(m.presetCfg.Presets) {
		presetLabel = m.presetCfg.Presets[m.presetIndex].Label
	}
	presetLine := lipgloss.NewStyle().Foreground(lipgloss.Color(ColorWarning)).
		Render(fmt.Sprintf("Preset: %s (Ctrl+N/Ctrl+B to cycle)", presetLabel))

	form := lipgloss.JoinVertical(lipgloss.Left,
		"Name:        "+m.nameInput.View(),
		"Remote port: "+m.remoteInput.View(),
		"Local port:  "+m.localInput.View(),
		"Remote host: "+m.hostInput.View(),
	)
	formBox := lipgloss.NewStyle().
		Border(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color(ColorBorder)).
		Padding(0, 1).
		Render(form)

	helpStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(ColorHelp))
	helpText := helpStyle.Render("Tab: Next Field | Enter: Add & Start | Esc: Cancel")

	sections := []string{title, "", presetLine, formBox, helpText}
	if message := m.renderMessage(); message != "" {
		sections = append(sections, message)
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// viewQuitConfirm renders the confirm-before-quit view listing the forwards
// that will be stopped.
func (m *Model) viewQuitConfirm() string {
	title := lipgloss.NewStyle().Foreground(lipgloss.Color(ColorWarning)).Bold(true).
		Render(fmt.Sprintf("%d port forward(s) still active", len(m.quitSessions)))

	lines := make([]string, 0, len(m.quitSessions))
	for _, sess := range m.quitSessions {
		lines = append(lines, fmt.Sprintf("  %s  (%d -> %s:%d)",
			sess.Key(), sess.Spec.LocalPort, sess.Spec.InstanceID, sess.Spec.RemotePort))
	}
	list := strings.Join(lines, "\n")

	prompt := "Quitting stops every active forward and closes its tunnel."
	helpStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(ColorHelp))
	helpText := helpStyle.Render("Y/Enter: Stop All & Quit | N/Esc: Keep Running")

	box := lipgloss.NewStyle().
		Border(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color(ColorWarning)).
		Padding(1, 2).
		Render(lipgloss.JoinVertical(lipgloss.Left, title, "", list, "", prompt, helpText))

	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}

// renderDetailHistory lists persisted transitions for the instance, newest
// first, including runs from before the current process.
func (m *Model) renderDetailHistory() string {
	headerStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(ColorHelp))
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(ColorDim))

	if len(m.detailEvents) == 0 {
		return lipgloss.JoinVertical(lipgloss.Left,
			headerStyle.Render("History"),
			dimStyle.Render("  no recorded transitions"),
		)
	}

	lines := make([]string, 0, len(m.detailEvents)+1)
	lines = append(lines, headerStyle.Render("History"))
	for _, event := range m.detailEvents {
		line := fmt.Sprintf("  %s  %s: %s -> %s",
			event.At.Local().Format("Jan 02 15:04:05"), event.Key.Name, event.From, event.To)
		if event.Reason != "" {
			line += " (" + event.Reason + ")"
		}
		lines = append(lines, dimStyle.Render(line))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func (m *Model) renderCommandBar() string {
	preview := m.commandPreview
	if preview == "" {
		preview = "No command for current selection"
	}
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color(ColorDim)).
		Width(m.width).
		Render("$ " + preview)
}

func (m *Model) renderMessage() string {
	if m.errorMsg != "" {
		errorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(ColorError))
		return errorStyle.Render(fmt.Sprintf("ERROR: %s", m.errorMsg))
	}
	if m.statusMsg != "" {
		statusStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(ColorStatus))
		return statusStyle.Render(m.statusMsg)
	}
	return ""
}

// renderActivityLog shows the tail of the activity log
func (m *Model) renderActivityLog() string {
	count := ActivityLogLines - 1
	start := len(m.activityLog) - count
	start = max(start, 0)

	visible := m.activityLog[start:]
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(ColorDim))
	lines := make([]string, 0, len(visible)+1)
	lines = append(lines, dimStyle.Render(strings.Repeat("-", max(m.width, 10))))
	for _, entry := range visible {
		lines = append(lines, dimStyle.Render(entry))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}
