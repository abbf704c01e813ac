package ui

import (
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sp1d3rx/atui/pkg/aws"
	"github.com/sp1d3rx/atui/pkg/presets"
	"github.com/sp1d3rx/atui/pkg/session"
)

const formFieldCount = 4

// enterAddForward opens the add-forward form for an instance. returnState is
// where esc/submit goes back to.
func (m *Model) enterAddForward(instance aws.Instance, returnState UIState) {
	m.uiState = StateAddForward
	m.detailInstance = instance
	m.formReturn = returnState
	m.errorMsg = ""
	m.statusMsg = ""

	m.presetIndex = -1
	m.remoteInput.SetValue(strconv.Itoa(m.presetCfg.DefaultRemotePort))
	m.localInput.SetValue(strconv.Itoa(m.presetCfg.DefaultLocalPort))
	m.nameInput.SetValue(presets.SuggestName(m.presetCfg.DefaultLocalPort, m.presetCfg.DefaultRemotePort))
	m.hostInput.SetValue("")

	m.formFocus = 0
	m.focusFormField()
	m.instanceTable.Blur()
	m.detailTable.Blur()
}

// updateAddForward handles keys for the add-forward form
func (m *Model) updateAddForward(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.leaveForm()
		m.appendLog("Add forward cancelled.")
		return m, nil

	case "tab", "down":
		m.formFocus = (m.formFocus + 1) % formFieldCount
		m.focusFormField()
		return m, nil

	case "shift+tab", "up":
		m.formFocus = (m.formFocus + formFieldCount - 1) % formFieldCount
		m.focusFormField()
		return m, nil

	case "ctrl+n":
		m.cyclePreset(1)
		return m, nil

	case "ctrl+b":
		m.cyclePreset(-1)
		return m, nil

	case "enter":
		return m.submitAddForward()
	}

	var cmd tea.Cmd
	switch m.formFocus {
	case 0:
		m.nameInput, cmd = m.nameInput.Update(msg)
	case 1:
		m.remoteInput, cmd = m.remoteInput.Update(msg)
	case 2:
		m.localInput, cmd = m.localInput.Update(msg)
	case 3:
		m.hostInput, cmd = m.hostInput.Update(msg)
	}
	return m, cmd
}

// cyclePreset rotates through the configured presets, filling the form.
// Cycling past either end lands back on "custom", which leaves the fields
// untouched.
func (m *Model) cyclePreset(step int) {
	count := len(m.presetCfg.Presets)
	if count == 0 {
		return
	}

	m.presetIndex += step
	if m.presetIndex >= count || m.presetIndex < -1 {
		m.presetIndex = -1
	}
	if m.presetIndex == -1 {
		return
	}

	preset := m.presetCfg.Presets[m.presetIndex]
	m.remoteInput.SetValue(strconv.Itoa(preset.RemotePort))
	m.localInput.SetValue(strconv.Itoa(preset.LocalPort))
	m.nameInput.SetValue(nameFromPresetLabel(preset.Label))
}

func (m *Model) submitAddForward() (tea.Model, tea.Cmd) {
	name := strings.TrimSpace(m.nameInput.Value())
	if name == "" {
		m.errorMsg = "Forward name is required"
		return m, nil
	}
	remotePort, okRemote := parsePort(m.remoteInput.Value())
	localPort, okLocal := parsePort(m.localInput.Value())
	if !okRemote || !okLocal {
		m.errorMsg = "Ports must be between 1 and 65535"
		return m, nil
	}

	spec := session.ForwardSpec{
		InstanceID: m.detailInstance.InstanceID,
		Name:       name,
		RemotePort: remotePort,
		LocalPort:  localPort,
		RemoteHost: strings.TrimSpace(m.hostInput.Value()),
	}
	if _, err := m.manager.Add(spec); err != nil {
		m.errorMsg = fmt.Sprintf("Cannot add forward: %v", err)
		return m, nil
	}

	result, err := m.manager.Start(spec.Key())
	m.drainManagerChanges()

	m.leaveForm()
	switch result {
	case session.StartStarted:
		m.statusMsg = fmt.Sprintf("Forward '%s' active (%d -> %s:%d).", name, localPort, spec.InstanceID, remotePort)
	case session.StartAlreadyActive:
		m.statusMsg = fmt.Sprintf("Forward '%s' is already active.", name)
	case session.StartFailed:
		m.errorMsg = fmt.Sprintf("Forward '%s' added but failed to start: %v", name, err)
	}
	m.refreshDetailTable()
	m.updateCommandPreview()
	return m, nil
}

func (m *Model) leaveForm() {
	m.uiState = m.formReturn
	m.nameInput.Blur()
	m.remoteInput.Blur()
	m.localInput.Blur()
	m.hostInput.Blur()
	if m.formReturn == StateDetail {
		m.refreshDetailTable()
		m.detailTable.Focus()
	} else {
		m.instanceTable.Focus()
	}
}

func (m *Model) focusFormField() {
	m.nameInput.Blur()
	m.remoteInput.Blur()
	m.localInput.Blur()
	m.hostInput.Blur()
	switch m.formFocus {
	case 0:
		m.nameInput.Focus()
	case 1:
		m.remoteInput.Focus()
	case 2:
		m.localInput.Focus()
	case 3:
		m.hostInput.Focus()
	}
}

func parsePort(value string) (int, bool) {
	port, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || port < 1 || port > 65535 {
		return 0, false
	}
	return port, true
}

// nameFromPresetLabel strips the port suffix from a preset label, so
// "PostgreSQL (5432)" suggests the name "PostgreSQL".
func nameFromPresetLabel(label string) string {
	name, _, _ := strings.Cut(label, " (")
	name = strings.TrimSpace(name)
	if name == "" {
		return label
	}
	return name
}
