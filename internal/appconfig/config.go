package appconfig

import (
	"os"
	"path/filepath"

	"pkt.systems/loopgate/schema"
)

// Config is the top-level application configuration.
type Config struct {
	ConfigVersion int        `mapstructure:"config_version" yaml:"config_version"`
	StateDir      string     `mapstructure:"state_dir" yaml:"state_dir"`
	HTTP          HTTPConfig `mapstructure:"http" yaml:"http"`
	UI            UIConfig   `mapstructure:"ui" yaml:"ui"`
}

// CurrentConfigVersion marks the supported config version.
const CurrentConfigVersion = 1

// HTTPConfig configures the UI session HTTP server.
type HTTPConfig struct {
	PreferredPort int `mapstructure:"preferred_port" yaml:"preferred_port"`
	PortProbeSpan int `mapstructure:"port_probe_span" yaml:"port_probe_span"`
	CloseDelayMS  int `mapstructure:"close_delay_ms" yaml:"close_delay_ms"`
}

// UIConfig controls UI session behavior.
type UIConfig struct {
	MaxLogBytes int `mapstructure:"max_log_bytes" yaml:"max_log_bytes"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() (Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Config{}, err
	}
	return Config{
		ConfigVersion: CurrentConfigVersion,
		StateDir:      filepath.Join(home, ".loopgate", "state"),
		HTTP: HTTPConfig{
			PreferredPort: 28473,
			PortProbeSpan: 10,
			CloseDelayMS:  300,
		},
		UI: UIConfig{
			MaxLogBytes: schema.DefaultLogMaxBytes,
		},
	}, nil
}

// DefaultConfigPath returns the standard config path.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".loopgate", "config.yaml"), nil
}
