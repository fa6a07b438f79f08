package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Malformed(t *testing.T) {
	reader := strings.NewReader(`{ "provider": {`)
	_, err := LoadConfig(reader)
	if err == nil {
		t.Error("Expected error loading malformed config, got nil")
	}
}

func TestLoadConfigFromFile_Missing(t *testing.T) {
	cfg, err := LoadConfigFromFile(filepath.Join(t.TempDir(), "missing.json"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ConfigFileName)
	content := `{"provider": {"url": "http://localhost:8545", "expected_wallet": "Frame"}, "balance_decimals": 6}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadConfigFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8545", cfg.Provider.URL)
	assert.Equal(t, "Frame", cfg.Provider.ExpectedWallet)
	assert.Equal(t, 6, cfg.BalanceDecimals)
	assert.Equal(t, 3*time.Second, cfg.DetectTimeout())
	assert.Equal(t, 4*time.Second, cfg.PollInterval())
}

func TestLoadConfig_TableDriven(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name        string
		jsonContent string
		expectError bool
		validate    func(*testing.T, Config)
	}{
		{
			name:        "Empty Object Uses Defaults",
			jsonContent: `{}`,
			validate: func(t *testing.T, c Config) {
				assert.Equal(t, DefaultProviderURL, c.Provider.URL)
				assert.Equal(t, 4, c.BalanceDecimals)
				assert.Equal(t, "info", c.LogLevel)
			},
		},
		{
			name:        "Shorthand Provider URL",
			jsonContent: `{"provider_url": "wss://wallet.example"}`,
			validate: func(t *testing.T, c Config) {
				assert.Equal(t, "wss://wallet.example", c.Provider.URL)
			},
		},
		{
			name:        "Nested URL Wins Over Shorthand",
			jsonContent: `{"provider_url": "ws://a", "provider": {"url": "ws://b"}}`,
			validate: func(t *testing.T, c Config) {
				assert.Equal(t, "ws://b", c.Provider.URL)
			},
		},
		{
			name:        "Explicit Zero Decimals",
			jsonContent: `{"balance_decimals": 0, "provider": {"poll_interval_seconds": 10}}`,
			validate: func(t *testing.T, c Config) {
				assert.Equal(t, 0, c.BalanceDecimals)
				assert.Equal(t, 10, c.Provider.PollIntervalSeconds)
			},
		},
		{
			name:        "Invalid Type",
			jsonContent: `{"balance_decimals": "four"}`,
			expectError: true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg, err := LoadConfig(strings.NewReader(tt.jsonContent))
			if tt.expectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			if tt.validate != nil {
				tt.validate(t, cfg)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Default().Validate())

	ipc := Default()
	ipc.Provider.URL = "/tmp/frame.ipc"
	assert.NoError(t, ipc.Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty url", func(c *Config) { c.Provider.URL = " " }},
		{"bad scheme", func(c *Config) { c.Provider.URL = "ftp://wallet" }},
		{"zero timeout", func(c *Config) { c.Provider.DetectTimeoutSeconds = 0 }},
		{"zero poll", func(c *Config) { c.Provider.PollIntervalSeconds = -1 }},
		{"decimals", func(c *Config) { c.BalanceDecimals = 19 }},
	}
	for _, tt := range tests {
		cfg := Default()
		tt.mutate(&cfg)
		assert.Error(t, cfg.Validate(), tt.name)
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("WALLETVIEW_PROVIDER_URL", "http://127.0.0.1:9999")
	t.Setenv("WALLETVIEW_EXPECTED_WALLET", "frame")
	t.Setenv("WALLETVIEW_LOG_LEVEL", "debug")

	cfg := Default()
	ApplyEnv(&cfg)
	assert.Equal(t, "http://127.0.0.1:9999", cfg.Provider.URL)
	assert.Equal(t, "frame", cfg.Provider.ExpectedWallet)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "", cfg.LogFile)
}
