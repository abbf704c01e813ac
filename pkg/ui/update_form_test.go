package ui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sp1d3rx/atui/pkg/aws"
	"github.com/sp1d3rx/atui/pkg/session"
)

func TestSubmitAddForwardWithRemoteHost(t *testing.T) {
	m := newTestModel(t, nil)
	m.enterAddForward(aws.Instance{InstanceID: "i-0abc123", Name: "bastion"}, StateInstances)

	m.nameInput.SetValue("postgres")
	m.remoteInput.SetValue("5432")
	m.localInput.SetValue("15432")
	m.hostInput.SetValue("db.internal")

	_, _ = m.submitAddForward()

	sess, ok := m.manager.Get(session.Key{InstanceID: "i-0abc123", Name: "postgres"})
	require.True(t, ok)
	assert.Equal(t, session.StateActive, sess.State)
	assert.Equal(t, "db.internal", sess.Spec.RemoteHost)
	assert.Contains(t, sess.Command, "AWS-StartPortForwardingSessionToRemoteHost")
	assert.Contains(t, sess.Command, "db.internal")
}

func TestSubmitAddForwardWithoutRemoteHost(t *testing.T) {
	m := newTestModel(t, nil)
	m.enterAddForward(aws.Instance{InstanceID: "i-0abc123", Name: "bastion"}, StateInstances)

	m.nameInput.SetValue("ssh")
	m.remoteInput.SetValue("22")
	m.localInput.SetValue("2222")

	_, _ = m.submitAddForward()

	sess, ok := m.manager.Get(session.Key{InstanceID: "i-0abc123", Name: "ssh"})
	require.True(t, ok)
	assert.Empty(t, sess.Spec.RemoteHost)
	assert.NotContains(t, sess.Command, "ToRemoteHost")
}

func TestFormFocusCyclesThroughAllFields(t *testing.T) {
	m := newTestModel(t, nil)
	m.enterAddForward(aws.Instance{InstanceID: "i-0abc123"}, StateInstances)
	require.Equal(t, 0, m.formFocus)

	tab := tea.KeyMsg{Type: tea.KeyTab}
	for _, want := range []int{1, 2, 3, 0} {
		_, _ = m.updateAddForward(tab)
		assert.Equal(t, want, m.formFocus)
	}
	_, _ = m.updateAddForward(tea.KeyMsg{Type: tea.KeyShiftTab})
	assert.Equal(t, 3, m.formFocus)
	assert.True(t, m.hostInput.Focused())
}

func TestFormResetsRemoteHostBetweenUses(t *testing.T) {
	m := newTestModel(t, nil)
	m.enterAddForward(aws.Instance{InstanceID: "i-0abc123"}, StateInstances)
	m.hostInput.SetValue("db.internal")
	m.leaveForm()

	m.enterAddForward(aws.Instance{InstanceID: "i-0def456"}, StateInstances)
	assert.Empty(t, m.hostInput.Value())
}
