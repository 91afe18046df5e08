package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultConfigName = "config.yaml"
	defaultConfigDir  = ".config/termpresence"

	// ClientIDPlaceholder is written into generated template configs so the
	// user knows the field still needs their Discord application id.
	ClientIDPlaceholder = "YOUR_DISCORD_CLIENT_ID"
)

// Config holds all application configuration. It is loaded once at startup
// and read-only afterwards.
type Config struct {
	// ClientID is the Discord application client id used for the RPC handshake.
	ClientID string `yaml:"client_id"`

	// AppName is the case-insensitive process/window match hint.
	AppName string `yaml:"app_name"`

	// PollIntervalSeconds is how often the window state is polled.
	PollIntervalSeconds int `yaml:"poll_interval_seconds"`

	// PIDFile is the daemon PID file path.
	PIDFile string `yaml:"pid_file"`

	Privacy Privacy `yaml:"privacy"`
	Assets  Assets  `yaml:"assets"`

	// Texts overrides the built-in presence strings. Only recognized keys
	// are consulted; unknown keys are ignored.
	Texts map[string]string `yaml:"texts"`

	History History `yaml:"history"`
}

// Privacy controls what may appear in the published presence.
type Privacy struct {
	PreferUILabel      bool `yaml:"prefer_ui_label"`
	ExposeIPInPresence bool `yaml:"expose_ip_in_presence"`
	AllowReverseDNS    bool `yaml:"allow_reverse_dns"`
}

// Assets names the Discord art assets used in the presence payload.
type Assets struct {
	LargeImage string `yaml:"large_image"`
	LargeText  string `yaml:"large_text"`
	SmallImage string `yaml:"small_image"`
}

// History configures the optional activity transition log.
type History struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"` // empty means ~/.config/termpresence/history.db
}

// defaultTexts holds the built-in presence strings, keyed by the recognized
// override keys.
var defaultTexts = map[string]string{
	"details_connected": "Connected via Termius",
	"details_hosts":     "Termius Hosts",
	"details_settings":  "Termius Settings",
	"details_snippets":  "Termius Snippets",
	"details_logs":      "Termius Logs",
	"details_idle":      "No active connections",
	"state_sftp":        "Browsing in SFTP",
	"state_browsing":    "Browsing for servers",
	"state_settings":    "Viewing settings",
	"state_snippets":    "Viewing Snippets",
	"state_logs":        "Viewing logs",
	"state_idle":        "Idle in Termius",
	"state_active_ssh":  "Active SSH session",
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		AppName:             "termius",
		PollIntervalSeconds: 5,
		PIDFile:             fmt.Sprintf("/tmp/termpresence-%d.pid", os.Getuid()),
		Privacy: Privacy{
			PreferUILabel:      true,
			ExposeIPInPresence: false,
			AllowReverseDNS:    false,
		},
		Assets: Assets{
			LargeImage: "termius",
			LargeText:  "Termius SSH Client",
			SmallImage: "ssh_icon",
		},
	}
}

// DefaultPath returns the default config file location.
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, defaultConfigDir, defaultConfigName), nil
}

// Load reads the config document at path, falling back to the default
// location when path is empty. A missing file yields the defaults; a present
// but unparsable file is an error. Parsed values are layered over the
// defaults so omitted fields keep their documented values.
func Load(path string) (*Config, error) {
	if path == "" {
		var err error
		path, err = DefaultPath()
		if err != nil {
			return nil, err
		}
	}

	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("malformed config %s: %w", path, err)
	}

	return cfg, nil
}

// Exists reports whether a config document is present at path (or the
// default location when path is empty).
func Exists(path string) bool {
	if path == "" {
		var err error
		path, err = DefaultPath()
		if err != nil {
			return false
		}
	}
	_, err := os.Stat(path)
	return err == nil
}

// WriteTemplate writes a starting config to path, including every recognized
// text key, so the user only has to fill in the client id.
func WriteTemplate(path string) error {
	if path == "" {
		var err error
		path, err = DefaultPath()
		if err != nil {
			return err
		}
	}

	cfg := Default()
	cfg.ClientID = ClientIDPlaceholder
	cfg.Texts = make(map[string]string, len(defaultTexts))
	for k, v := range defaultTexts {
		cfg.Texts[k] = v
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to render config template: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config template: %w", err)
	}
	return nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.PollIntervalSeconds < 1 {
		return fmt.Errorf("poll interval must be a positive number of seconds, got %d", c.PollIntervalSeconds)
	}
	if c.PollIntervalSeconds > 3600 {
		return fmt.Errorf("poll interval cannot exceed 3600 seconds, got %d", c.PollIntervalSeconds)
	}
	if c.AppName == "" {
		return fmt.Errorf("app_name cannot be empty")
	}
	if c.PIDFile == "" {
		return fmt.Errorf("PID file path cannot be empty")
	}
	return nil
}

// HasClientID reports whether a usable Discord client id is configured.
func (c *Config) HasClientID() bool {
	return c.ClientID != "" && c.ClientID != ClientIDPlaceholder
}

// PollInterval returns the poll interval as a duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSeconds) * time.Second
}

// Text returns the presence string for a recognized key, preferring a
// configured override. Unrecognized keys return "".
func (c *Config) Text(key string) string {
	def, recognized := defaultTexts[key]
	if !recognized {
		return ""
	}
	if v, ok := c.Texts[key]; ok && v != "" {
		return v
	}
	return def
}

// String returns a loggable summary of the configuration. The client id is
// omitted on purpose.
func (c *Config) String() string {
	return fmt.Sprintf(`Configuration:
  App Name: %s
  Poll Interval: %v
  PID File: %s
  Privacy:
    Prefer UI Label: %v
    Expose IP: %v
    Allow Reverse DNS: %v
  History:
    Enabled: %v
    Path: %s`,
		c.AppName,
		c.PollInterval(),
		c.PIDFile,
		c.Privacy.PreferUILabel,
		c.Privacy.ExposeIPInPresence,
		c.Privacy.AllowReverseDNS,
		c.History.Enabled,
		c.History.Path,
	)
}
