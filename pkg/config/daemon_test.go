package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultDaemon(t *testing.T) {
	cfg := DefaultDaemon()

	assert.True(t, cfg.Transport.NativeMessaging)
	assert.Equal(t, defaultMaxMessageSize, cfg.Transport.MaxMessageSize)
	assert.False(t, cfg.Browser.Enabled)
	assert.True(t, cfg.Browser.Headless)
	assert.NoError(t, cfg.Validate())
}

func TestLoadDaemonFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stylebot.yaml")
	contents := `
options_path: /tmp/options.json
styles_path: /tmp/styles.yaml
logging:
  debug: true
browser:
  enabled: true
  headless: false
  timeout: 45s
  start_urls:
    - https://example.com
transport:
  native_messaging: false
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0644))

	cfg, err := LoadDaemonFile(path)
	require.NoError(t, err)

	assert.Equal(t, path, cfg.ConfigFilePath)
	assert.Equal(t, "/tmp/options.json", cfg.OptionsPath)
	assert.Equal(t, "/tmp/styles.yaml", cfg.StylesPath)
	assert.True(t, cfg.Logging.Debug)
	assert.True(t, cfg.Browser.Enabled)
	assert.False(t, cfg.Browser.Headless)
	assert.Equal(t, 45*time.Second, cfg.Browser.Timeout)
	assert.Equal(t, []string{"https://example.com"}, cfg.Browser.StartURLs)
	assert.False(t, cfg.Transport.NativeMessaging)

	// Unset keys keep their defaults
	assert.Equal(t, defaultOptionsPageURL, cfg.OptionsPageURL)
	assert.Equal(t, defaultMaxMessageSize, cfg.Transport.MaxMessageSize)
	assert.NoError(t, cfg.Validate())
}

func TestLoadDaemonFile_Errors(t *testing.T) {
	_, err := LoadDaemonFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("browser: [unterminated"), 0644))
	_, err = LoadDaemonFile(path)
	assert.Error(t, err)
}

func TestDaemonValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Daemon)
		wantErr string
	}{
		{
			name:    "zero message size",
			mutate:  func(d *Daemon) { d.Transport.MaxMessageSize = 0 },
			wantErr: "max_message_size",
		},
		{
			name: "browser timeout too short",
			mutate: func(d *Daemon) {
				d.Browser.Enabled = true
				d.Browser.Timeout = 10 * time.Millisecond
			},
			wantErr: "browser.timeout",
		},
		{
			name:    "no event source",
			mutate:  func(d *Daemon) { d.Transport.NativeMessaging = false },
			wantErr: "nothing to do",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultDaemon()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
