package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Daemon is the runtime configuration of the background process, read from
// an optional YAML file and overridden by command-line flags.
type Daemon struct {
	// OptionsPath is the JSON file holding the options bag
	OptionsPath string `yaml:"options_path" json:"options_path"`

	// StylesPath is the YAML file holding the stored styles
	StylesPath string `yaml:"styles_path" json:"styles_path"`

	// OptionsPageURL is opened by viewOptionsPage
	OptionsPageURL string `yaml:"options_page_url" json:"options_page_url"`

	Logging LoggingConfig `yaml:"logging" json:"logging"`

	Browser BrowserConfig `yaml:"browser" json:"browser"`

	Transport TransportConfig `yaml:"transport" json:"transport"`

	// ConfigFilePath is the file the configuration was read from, if any
	ConfigFilePath string `yaml:"-" json:"-"`
}

// LoggingConfig controls the session log.
type LoggingConfig struct {
	Dir   string `yaml:"dir" json:"dir"`
	Debug bool   `yaml:"debug" json:"debug"`
}

// BrowserConfig controls the playwright-driven tab source.
type BrowserConfig struct {
	Enabled   bool          `yaml:"enabled" json:"enabled"`
	Headless  bool          `yaml:"headless" json:"headless"`
	StartURLs []string      `yaml:"start_urls" json:"start_urls"`
	Timeout   time.Duration `yaml:"timeout" json:"timeout"`
}

// TransportConfig controls how front-end requests reach the router.
type TransportConfig struct {
	// NativeMessaging reads framed requests from stdin and writes replies to stdout
	NativeMessaging bool `yaml:"native_messaging" json:"native_messaging"`

	// MaxMessageSize bounds a single inbound frame in bytes
	MaxMessageSize int `yaml:"max_message_size" json:"max_message_size"`
}

const (
	defaultOptionsPageURL = "chrome-extension://stylebot/options/index.html"
	defaultBrowserTimeout = 30 * time.Second
	defaultMaxMessageSize = 1 << 20
	maximumMaxMessageSize = 64 << 20
	minimumBrowserTimeout = time.Second
)

// DefaultDaemon returns the configuration used when no file is given.
func DefaultDaemon() *Daemon {
	return &Daemon{
		OptionsPageURL: defaultOptionsPageURL,
		Browser: BrowserConfig{
			Headless: true,
			Timeout:  defaultBrowserTimeout,
		},
		Transport: TransportConfig{
			NativeMessaging: true,
			MaxMessageSize:  defaultMaxMessageSize,
		},
	}
}

// LoadDaemonFile reads a YAML configuration file on top of the defaults.
func LoadDaemonFile(path string) (*Daemon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultDaemon()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	cfg.ConfigFilePath = path

	return cfg, nil
}

// Validate checks the configuration for values the process cannot run with.
func (d *Daemon) Validate() error {
	if d.Transport.MaxMessageSize <= 0 || d.Transport.MaxMessageSize > maximumMaxMessageSize {
		return fmt.Errorf("transport.max_message_size must be between 1 and %d, got %d", maximumMaxMessageSize, d.Transport.MaxMessageSize)
	}
	if d.Browser.Enabled && d.Browser.Timeout < minimumBrowserTimeout {
		return fmt.Errorf("browser.timeout must be at least %v, got %v", minimumBrowserTimeout, d.Browser.Timeout)
	}
	if !d.Browser.Enabled && !d.Transport.NativeMessaging {
		return fmt.Errorf("nothing to do: enable the browser or native messaging transport")
	}
	return nil
}
