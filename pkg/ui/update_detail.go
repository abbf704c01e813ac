package ui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sp1d3rx/atui/pkg/aws"
	"github.com/sp1d3rx/atui/pkg/session"
)

// enterDetail switches to the per-instance forwards view
func (m *Model) enterDetail(instance aws.Instance) {
	m.uiState = StateDetail
	m.detailInstance = instance
	m.errorMsg = ""
	m.statusMsg = ""
	m.refreshDetailTable()
	m.refreshDetailHistory()
	m.detailTable.Focus()
	m.instanceTable.Blur()
}

// updateDetail handles keys for the per-instance forwards view
func (m *Model) updateDetail(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch msg.String() {
	case "esc":
		m.uiState = StateInstances
		m.detailTable.Blur()
		m.instanceTable.Focus()
		m.updateCommandPreview()
		return m, nil

	case ShortcutQuit:
		return m.requestQuit()

	case ShortcutAdd:
		m.enterAddForward(m.detailInstance, StateDetail)
		return m, nil

	case ShortcutStart:
		return m.startSelectedForward()

	case ShortcutStop:
		return m.stopSelectedForward()

	case ShortcutCopy:
		return m.copyCommandPreview()

	default:
		m.detailTable, cmd = m.detailTable.Update(msg)
		m.updateCommandPreview()
		return m, cmd
	}
}

func (m *Model) startSelectedForward() (tea.Model, tea.Cmd) {
	m.errorMsg = ""
	m.statusMsg = ""

	sess, ok := m.selectedDetailSession()
	if !ok {
		m.errorMsg = "Select a forward to start"
		return m, nil
	}

	result, err := m.manager.Start(sess.Key())
	m.drainManagerChanges()

	switch result {
	case session.StartAlreadyActive:
		m.statusMsg = fmt.Sprintf("Forward '%s' is already active.", sess.Spec.Name)
	case session.StartStarted:
		m.statusMsg = fmt.Sprintf("Forward '%s' active (%d -> %s:%d).",
			sess.Spec.Name, sess.Spec.LocalPort, sess.Spec.InstanceID, sess.Spec.RemotePort)
	case session.StartFailed:
		m.errorMsg = fmt.Sprintf("Failed to start '%s': %v", sess.Spec.Name, err)
	}

	m.refreshDetailTable()
	m.updateCommandPreview()
	return m, nil
}

func (m *Model) stopSelectedForward() (tea.Model, tea.Cmd) {
	m.errorMsg = ""
	m.statusMsg = ""

	sess, ok := m.selectedDetailSession()
	if !ok {
		m.errorMsg = "Select a forward to stop"
		return m, nil
	}

	status, err := m.manager.Stop(sess.Key())
	m.drainManagerChanges()
	if err != nil {
		m.errorMsg = fmt.Sprintf("Failed to stop '%s': %v", sess.Spec.Name, err)
		m.refreshDetailTable()
		return m, nil
	}

	switch status {
	case session.StopNotActive:
		m.statusMsg = fmt.Sprintf("Forward '%s' is not active.", sess.Spec.Name)
	case session.StopClean:
		m.statusMsg = fmt.Sprintf("Stopped forward '%s'.", sess.Spec.Name)
	case session.StopForced:
		m.statusMsg = fmt.Sprintf("Force-stopped forward '%s'.", sess.Spec.Name)
	}

	m.refreshDetailTable()
	return m, nil
}
