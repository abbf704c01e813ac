package ui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/dustin/go-humanize"

	"github.com/sp1d3rx/atui/pkg/aws"
	"github.com/sp1d3rx/atui/pkg/logging"
	"github.com/sp1d3rx/atui/pkg/session"
)

func (m *Model) instanceColumns() []table.Column {
	nameWidth := m.width - 19 - 10 - 10 - 15 - 15 - 12 - 10
	nameWidth = max(nameWidth, 14)
	return []table.Column{
		{Title: ColName, Width: nameWidth},
		{Title: ColInstance, Width: 19},
		{Title: ColState, Width: 10},
		{Title: ColType, Width: 10},
		{Title: ColPrivateIP, Width: 15},
		{Title: ColPublicIP, Width: 15},
		{Title: ColZone, Width: 12},
	}
}

func (m *Model) detailColumns() []table.Column {
	reasonWidth := m.width - 16 - 6 - 6 - 8 - 14 - 10
	reasonWidth = max(reasonWidth, 16)
	return []table.Column{
		{Title: ColForward, Width: 16},
		{Title: ColLocal, Width: 6},
		{Title: ColRemote, Width: 6},
		{Title: ColStatus, Width: 8},
		{Title: ColStarted, Width: 14},
		{Title: ColReason, Width: reasonWidth},
	}
}

func (m *Model) resizeTables() {
	instanceHeight := m.height - InstancesViewLines - ActivityLogLines
	instanceHeight = max(instanceHeight, MinTableHeight)
	m.instanceTable.SetHeight(instanceHeight)
	m.instanceTable.SetColumns(m.instanceColumns())

	detailHeight := m.height - DetailViewLines - DetailHistoryLines - ActivityLogLines
	detailHeight = max(detailHeight, MinTableHeight)
	m.detailTable.SetHeight(detailHeight)
	m.detailTable.SetColumns(m.detailColumns())
}

func (m *Model) refreshInstanceTable() {
	rows := make([]table.Row, 0, len(m.instances))
	for _, instance := range m.instances {
		rows = append(rows, table.Row{
			instance.DisplayName(),
			instance.InstanceID,
			instance.State,
			instance.InstanceType,
			orDash(instance.PrivateIP),
			orDash(instance.PublicIP),
			orDash(instance.AvailabilityZone),
		})
	}
	m.instanceTable.SetRows(rows)
	if len(rows) > 0 {
		m.instanceTable.SetCursor(0)
	}
}

func (m *Model) refreshDetailTable() {
	m.detailSessions = m.manager.ListForInstance(m.detailInstance.InstanceID)
	rows := make([]table.Row, 0, len(m.detailSessions))
	for _, sess := range m.detailSessions {
		rows = append(rows, table.Row{
			sess.Spec.Name,
			fmt.Sprintf("%d", sess.Spec.LocalPort),
			fmt.Sprintf("%d", sess.Spec.RemotePort),
			statusText(sess.State),
			relativeTime(sess.StartedAt),
			orDash(sess.Reason),
		})
	}
	m.detailTable.SetRows(rows)
	if cursor := m.detailTable.Cursor(); cursor >= len(rows) {
		m.detailTable.SetCursor(max(len(rows)-1, 0))
	}
}

// refreshDetailHistory pulls the newest persisted transitions for the
// instance, so past runs stay visible after a restart.
func (m *Model) refreshDetailHistory() {
	if m.history == nil {
		m.detailEvents = nil
		return
	}
	events, err := m.history.Events(m.detailInstance.InstanceID, DetailHistoryLines)
	if err != nil {
		logging.LogError("Failed to load history for %s: %v", m.detailInstance.InstanceID, err)
		m.detailEvents = nil
		return
	}
	m.detailEvents = events
}

func (m *Model) selectedInstance() (aws.Instance, bool) {
	cursor := m.instanceTable.Cursor()
	if cursor < 0 || cursor >= len(m.instances) {
		return aws.Instance{}, false
	}
	return m.instances[cursor], true
}

func (m *Model) selectedDetailSession() (session.ForwardSession, bool) {
	cursor := m.detailTable.Cursor()
	if cursor < 0 || cursor >= len(m.detailSessions) {
		return session.ForwardSession{}, false
	}
	return m.detailSessions[cursor], true
}

// updateCommandPreview keeps the command bar in sync with the current
// selection. The preview is the exact string the supervisor would execute.
func (m *Model) updateCommandPreview() {
	switch m.uiState {
	case StateDetail:
		sess, ok := m.selectedDetailSession()
		if !ok {
			m.commandPreview = ""
			return
		}
		if sess.Command != "" {
			m.commandPreview = sess.Command
			return
		}
		argv, err := m.target(aws.Instance{InstanceID: sess.Spec.InstanceID}).
			PortForwardCommand(sess.Spec.RemotePort, sess.Spec.LocalPort, sess.Spec.RemoteHost)
		if err != nil {
			m.commandPreview = ""
			return
		}
		m.commandPreview = aws.CommandString(argv)

	default:
		instance, ok := m.selectedInstance()
		if !ok {
			m.commandPreview = ""
			return
		}
		argv, err := m.target(instance).ConsoleCommand()
		if err != nil {
			m.commandPreview = ""
			return
		}
		m.commandPreview = aws.CommandString(argv)
	}
}

// drainManagerChanges moves manager transition notifications into the
// activity log and refreshes whatever view shows session state.
func (m *Model) drainManagerChanges() {
	changes := m.manager.DrainChanges()
	for _, change := range changes {
		line := fmt.Sprintf("%s: %s -> %s", change.Key, change.From, change.To)
		if change.Reason != "" {
			line += " (" + change.Reason + ")"
		}
		m.appendLog(line)
	}
	if len(changes) > 0 && m.uiState == StateDetail {
		m.refreshDetailTable()
		m.refreshDetailHistory()
	}
	if warning := m.manager.Warning(); warning != "" && warning != m.historyNote {
		m.historyNote = warning
		m.appendLog(warning)
	}
}

func (m *Model) appendLog(message string) {
	timestamp := time.Now().Format("15:04:05")
	m.activityLog = append(m.activityLog, fmt.Sprintf("[%s] %s", timestamp, message))
	if len(m.activityLog) > MaxLogEntries {
		m.activityLog = m.activityLog[len(m.activityLog)-MaxLogEntries:]
	}
}

func statusText(state session.State) string {
	switch state {
	case session.StateActive:
		return StatusActive
	case session.StateErrored:
		return StatusErrored
	default:
		return StatusStopped
	}
}

func relativeTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return humanize.Time(t)
}

func orDash(value string) string {
	if value == "" {
		return "-"
	}
	return value
}
