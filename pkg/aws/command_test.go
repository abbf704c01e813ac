package aws

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConsoleCommand(t *testing.T) {
	target := Target{InstanceID: "i-0abc123", Profile: "prod", Region: "eu-west-1"}

	argv, err := target.ConsoleCommand()
	require.NoError(t, err)
	assert.Equal(t, []string{
		"aws", "ssm", "start-session",
		"--target", "i-0abc123",
		"--profile", "prod",
		"--region", "eu-west-1",
	}, argv)
}

func TestConsoleCommandAppliesDefaults(t *testing.T) {
	argv, err := Target{InstanceID: "i-0abc123"}.ConsoleCommand()
	require.NoError(t, err)
	assert.Contains(t, argv, DefaultProfile)
	assert.Contains(t, argv, DefaultRegion)
}

func TestConsoleCommandRejectsEmptyInstance(t *testing.T) {
	_, err := Target{InstanceID: "   "}.ConsoleCommand()
	assert.ErrorIs(t, err, ErrInvalidInstance)
}

func TestPortForwardCommand(t *testing.T) {
	target := Target{InstanceID: "i-0abc123", Profile: "prod", Region: "eu-west-1"}

	argv, err := target.PortForwardCommand(5432, 15432, "")
	require.NoError(t, err)

	joined := strings.Join(argv, " ")
	assert.Contains(t, joined, "i-0abc123")
	assert.Contains(t, joined, "AWS-StartPortForwardingSession")
	assert.NotContains(t, joined, "ToRemoteHost")

	params := argv[len(argv)-1]
	assert.JSONEq(t, `{"portNumber":["5432"],"localPortNumber":["15432"]}`, params)
}

func TestPortForwardCommandToRemoteHost(t *testing.T) {
	target := Target{InstanceID: "i-0abc123"}

	argv, err := target.PortForwardCommand(5432, 15432, "db.internal")
	require.NoError(t, err)

	joined := strings.Join(argv, " ")
	assert.Contains(t, joined, "AWS-StartPortForwardingSessionToRemoteHost")

	params := argv[len(argv)-1]
	assert.JSONEq(t, `{"portNumber":["5432"],"localPortNumber":["15432"],"host":["db.internal"]}`, params)
}

func TestPortForwardCommandIsDeterministic(t *testing.T) {
	target := Target{InstanceID: "i-0abc123"}

	first, err := target.PortForwardCommand(5432, 15432, "db.internal")
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := target.PortForwardCommand(5432, 15432, "db.internal")
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestPortForwardCommandRejectsBadPorts(t *testing.T) {
	target := Target{InstanceID: "i-0abc123"}

	_, err := target.PortForwardCommand(0, 15432, "")
	assert.ErrorIs(t, err, ErrInvalidInstance)
	_, err = target.PortForwardCommand(5432, 70000, "")
	assert.ErrorIs(t, err, ErrInvalidInstance)
}

func TestCommandStringQuoting(t *testing.T) {
	assert.Equal(t, "aws ssm start-session", CommandString([]string{"aws", "ssm", "start-session"}))

	// JSON parameters need quoting to stay copy-paste runnable
	rendered := CommandString([]string{"--parameters", `{"portNumber":["5432"]}`})
	assert.Equal(t, `--parameters '{"portNumber":["5432"]}'`, rendered)

	assert.Equal(t, `'has space' ''`, CommandString([]string{"has space", ""}))
	assert.Equal(t, `'it'"'"'s'`, CommandString([]string{"it's"}))
}
