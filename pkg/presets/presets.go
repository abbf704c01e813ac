package presets

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/sp1d3rx/atui/pkg/logging"
)

// Preset is a named remote/local port pairing offered in the add-forward form.
type Preset struct {
	Key        string `yaml:"key"`
	Label      string `yaml:"label"`
	RemotePort int    `yaml:"remote_port"`
	LocalPort  int    `yaml:"local_port"`
}

// Config holds the port-forward defaults and presets.
type Config struct {
	DefaultRemotePort int      `yaml:"default_remote_port"`
	DefaultLocalPort  int      `yaml:"default_local_port"`
	Presets           []Preset `yaml:"presets"`
}

// DefaultConfig covers the common targets when no preset file exists.
func DefaultConfig() Config {
	return Config{
		DefaultRemotePort: 22,
		DefaultLocalPort:  2222,
		Presets: []Preset{
			{Key: "ssh", Label: "SSH (22)", RemotePort: 22, LocalPort: 2222},
			{Key: "http", Label: "HTTP (80)", RemotePort: 80, LocalPort: 8080},
			{Key: "https", Label: "HTTPS (443)", RemotePort: 443, LocalPort: 8443},
			{Key: "postgres", Label: "PostgreSQL (5432)", RemotePort: 5432, LocalPort: 5432},
			{Key: "mysql", Label: "MySQL (3306)", RemotePort: 3306, LocalPort: 3306},
			{Key: "redis", Label: "Redis (6379)", RemotePort: 6379, LocalPort: 6379},
			{Key: "mongodb", Label: "MongoDB (27017)", RemotePort: 27017, LocalPort: 27017},
			{Key: "rdp", Label: "RDP (3389)", RemotePort: 3389, LocalPort: 3389},
			{Key: "rabbitmq-amqp", Label: "RabbitMQ AMQP (5672)", RemotePort: 5672, LocalPort: 5672},
			{Key: "rabbitmq-admin", Label: "RabbitMQ Admin (15672)", RemotePort: 15672, LocalPort: 15672},
		},
	}
}

// Load reads the preset file at path. Any failure falls back to the built-in
// defaults; presets are a convenience and must never keep the app from
// starting.
func Load(path string) Config {
	defaults := DefaultConfig()
	if path == "" {
		return defaults
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logging.LogError("Failed to read preset file %s: %v", path, err)
		}
		return defaults
	}

	var loaded Config
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		logging.LogError("Failed to parse preset file %s: %v", path, err)
		return defaults
	}

	merged := defaults
	if validPort(loaded.DefaultRemotePort) {
		merged.DefaultRemotePort = loaded.DefaultRemotePort
	}
	if validPort(loaded.DefaultLocalPort) {
		merged.DefaultLocalPort = loaded.DefaultLocalPort
	}

	var presets []Preset
	for _, preset := range loaded.Presets {
		if preset.Key == "" || !validPort(preset.RemotePort) {
			continue
		}
		if preset.Label == "" {
			preset.Label = preset.Key
		}
		if !validPort(preset.LocalPort) {
			preset.LocalPort = preset.RemotePort
		}
		presets = append(presets, preset)
	}
	if len(presets) > 0 {
		merged.Presets = presets
	}

	logging.LogDebug("Loaded %d presets from %s", len(merged.Presets), path)
	return merged
}

// Find returns the preset with the given key.
func (c Config) Find(key string) (Preset, bool) {
	for _, preset := range c.Presets {
		if preset.Key == key {
			return preset, true
		}
	}
	return Preset{}, false
}

// SuggestName derives a forward name from a preset or port pair, e.g.
// "forward-2222-to-22".
func SuggestName(localPort, remotePort int) string {
	return fmt.Sprintf("forward-%d-to-%d", localPort, remotePort)
}

func validPort(port int) bool {
	return port >= 1 && port <= 65535
}
