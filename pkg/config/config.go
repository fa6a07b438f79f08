package config

import (
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const ConfigFileName = ".walletview.json"

// DefaultProviderURL is Frame's local provider endpoint.
const DefaultProviderURL = "ws://127.0.0.1:1248"

// ProviderConfig describes the wallet provider endpoint.
type ProviderConfig struct {
	URL                  string `json:"url"`
	ExpectedWallet       string `json:"expected_wallet,omitempty"`
	DetectTimeoutSeconds int    `json:"detect_timeout_seconds"`
	PollIntervalSeconds  int    `json:"poll_interval_seconds"`
}

// Config holds application-wide settings.
type Config struct {
	Provider        ProviderConfig `json:"provider"`
	BalanceDecimals int            `json:"balance_decimals"`
	LogLevel        string         `json:"log_level"`
	LogFile         string         `json:"log_file,omitempty"`
}

func Default() Config {
	return Config{
		Provider: ProviderConfig{
			URL:                  DefaultProviderURL,
			DetectTimeoutSeconds: 3,
			PollIntervalSeconds:  4,
		},
		BalanceDecimals: 4,
		LogLevel:        "info",
	}
}

// DetectTimeout returns the provider probe bound.
func (c Config) DetectTimeout() time.Duration {
	return time.Duration(c.Provider.DetectTimeoutSeconds) * time.Second
}

// PollInterval returns how often polled subscriptions re-read the provider.
func (c Config) PollInterval() time.Duration {
	return time.Duration(c.Provider.PollIntervalSeconds) * time.Second
}

func GetConfigPath(customPath string) (string, error) {
	if customPath != "" {
		return customPath, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ConfigFileName), nil
}

func LoadConfigFromFile(path string) (Config, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return Default(), nil
	}
	if err != nil {
		return Config{}, err
	}
	defer func() { _ = f.Close() }()
	return LoadConfig(f)
}

func LoadConfig(r io.Reader) (Config, error) {
	var raw struct {
		Provider struct {
			URL                  string  `json:"url"`
			ExpectedWallet       *string `json:"expected_wallet"`
			DetectTimeoutSeconds *int    `json:"detect_timeout_seconds"`
			PollIntervalSeconds  *int    `json:"poll_interval_seconds"`
		} `json:"provider"`
		ProviderURL     string  `json:"provider_url"` // shorthand for provider.url
		BalanceDecimals *int    `json:"balance_decimals"`
		LogLevel        *string `json:"log_level"`
		LogFile         *string `json:"log_file"`
	}
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return Config{}, err
	}

	cfg := Default()
	if raw.Provider.URL != "" {
		cfg.Provider.URL = raw.Provider.URL
	} else if raw.ProviderURL != "" {
		cfg.Provider.URL = raw.ProviderURL
	}
	if raw.Provider.ExpectedWallet != nil {
		cfg.Provider.ExpectedWallet = *raw.Provider.ExpectedWallet
	}
	if raw.Provider.DetectTimeoutSeconds != nil {
		cfg.Provider.DetectTimeoutSeconds = *raw.Provider.DetectTimeoutSeconds
	}
	if raw.Provider.PollIntervalSeconds != nil {
		cfg.Provider.PollIntervalSeconds = *raw.Provider.PollIntervalSeconds
	}
	if raw.BalanceDecimals != nil {
		cfg.BalanceDecimals = *raw.BalanceDecimals
	}
	if raw.LogLevel != nil {
		cfg.LogLevel = *raw.LogLevel
	}
	if raw.LogFile != nil {
		cfg.LogFile = *raw.LogFile
	}
	return cfg, nil
}

// ApplyEnv overrides cfg from the process environment, loading a .env file
// from the working directory first when one exists.
func ApplyEnv(cfg *Config) {
	_ = godotenv.Load()

	cfg.Provider.URL = getEnvString("WALLETVIEW_PROVIDER_URL", cfg.Provider.URL)
	cfg.Provider.ExpectedWallet = getEnvString("WALLETVIEW_EXPECTED_WALLET", cfg.Provider.ExpectedWallet)
	cfg.LogLevel = getEnvString("WALLETVIEW_LOG_LEVEL", cfg.LogLevel)
	cfg.LogFile = getEnvString("WALLETVIEW_LOG_FILE", cfg.LogFile)
}

// Validate checks that cfg can be used to reach a provider.
func (c Config) Validate() error {
	u := strings.TrimSpace(c.Provider.URL)
	if u == "" {
		return fmt.Errorf("validation failed: provider url is empty")
	}
	if strings.Contains(u, "://") {
		parsed, err := url.Parse(u)
		if err != nil {
			return fmt.Errorf("validation failed: provider url: %w", err)
		}
		switch parsed.Scheme {
		case "http", "https", "ws", "wss":
		default:
			return fmt.Errorf("validation failed: unsupported provider url scheme %q", parsed.Scheme)
		}
	}
	if c.Provider.DetectTimeoutSeconds <= 0 {
		return fmt.Errorf("validation failed: detect_timeout_seconds must be positive")
	}
	if c.Provider.PollIntervalSeconds <= 0 {
		return fmt.Errorf("validation failed: poll_interval_seconds must be positive")
	}
	if c.BalanceDecimals < 0 || c.BalanceDecimals > 18 {
		return fmt.Errorf("validation failed: balance_decimals must be between 0 and 18")
	}
	return nil
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
