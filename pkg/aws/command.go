package aws

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

const (
	DefaultProfile = "default"
	DefaultRegion  = "us-west-1"
)

// Sentinel error for command construction with missing/invalid fields
var ErrInvalidInstance = errors.New("invalid instance for command construction")

// Target identifies one instance plus the CLI settings needed to reach it.
// Command construction is pure: the same Target and ports always produce the
// same argv, and the argv is exactly what gets executed.
type Target struct {
	InstanceID string
	Profile    string
	Region     string
}

// ConsoleCommand builds the argv for an interactive SSM shell session.
func (t Target) ConsoleCommand() ([]string, error) {
	return t.baseStartSession()
}

// PortForwardCommand builds the argv for an SSM port-forwarding session.
// remoteHost is optional; when set the forward targets that host reachable
// through the instance instead of the instance itself.
func (t Target) PortForwardCommand(remotePort, localPort int, remoteHost string) ([]string, error) {
	base, err := t.baseStartSession()
	if err != nil {
		return nil, err
	}
	if remotePort < 1 || remotePort > 65535 {
		return nil, fmt.Errorf("%w: remote port %d out of range", ErrInvalidInstance, remotePort)
	}
	if localPort < 1 || localPort > 65535 {
		return nil, fmt.Errorf("%w: local port %d out of range", ErrInvalidInstance, localPort)
	}

	document := "AWS-StartPortForwardingSession"
	params := map[string][]string{
		"portNumber":      {fmt.Sprintf("%d", remotePort)},
		"localPortNumber": {fmt.Sprintf("%d", localPort)},
	}
	if remoteHost != "" {
		document = "AWS-StartPortForwardingSessionToRemoteHost"
		params["host"] = []string{remoteHost}
	}

	// map keys are sorted by encoding/json, so the output is deterministic
	encoded, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("encoding session parameters: %w", err)
	}

	return append(base,
		"--document-name", document,
		"--parameters", string(encoded),
	), nil
}

func (t Target) baseStartSession() ([]string, error) {
	if strings.TrimSpace(t.InstanceID) == "" {
		return nil, fmt.Errorf("%w: empty instance id", ErrInvalidInstance)
	}
	profile := t.Profile
	if profile == "" {
		profile = DefaultProfile
	}
	region := t.Region
	if region == "" {
		region = DefaultRegion
	}
	return []string{
		"aws", "ssm", "start-session",
		"--target", t.InstanceID,
		"--profile", profile,
		"--region", region,
	}, nil
}

// CommandString renders an argv the way a shell user would type it. The UI
// shows this string verbatim and it must stay copy-paste runnable.
func CommandString(argv []string) string {
	quoted := make([]string, 0, len(argv))
	for _, arg := range argv {
		quoted = append(quoted, shellQuote(arg))
	}
	return strings.Join(quoted, " ")
}

func shellQuote(arg string) string {
	if arg == "" {
		return "''"
	}
	if !strings.ContainsAny(arg, " \t\n\"'{}[]$&|;<>*?()") {
		return arg
	}
	return "'" + strings.ReplaceAll(arg, "'", `'"'"'`) + "'"
}
