package config

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ShellConfig holds all configuration for the cortex shell.
type ShellConfig struct {
	// Chromium
	CDPAddress    string
	CDPPort       int
	LaunchBrowser bool
	BrowserBinary string
	WindowSize    string
	ProfileDir    string

	// API
	BindAddr         string
	PortCandidates   []string
	PortAutoFallback bool
	RateLimitRPS     float64
	RateLimitBurst   int
	MetricsEnabled   bool

	// Logging
	LogLevel string
	LogFile  string

	// Browsing
	HomeURL      string
	SearchURL    string
	CloseFocus   string
	ResizePollMS int
	BarHeight    int

	// Content blocker
	DataDir         string
	FilterListsPath string
	FilterTTL       time.Duration
	FetchTimeout    time.Duration
	FetchRetries    int
}

// LoadShell reads shell configuration from environment variables and an
// optional .env file.
func LoadShell() (*ShellConfig, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	}

	dataDir := getEnvOrDefault("CORTEX_DATA_DIR", "./data")
	cfg := &ShellConfig{
		CDPAddress:    getEnvOrDefault("CHROMIUM_CDP_ADDRESS", "127.0.0.1"),
		CDPPort:       getEnvIntOrDefault("CHROMIUM_CDP_PORT", 9230),
		LaunchBrowser: getEnvBoolOrDefault("CORTEX_LAUNCH_BROWSER", true),
		BrowserBinary: getEnvOrDefault("CORTEX_BROWSER_BINARY", ""),
		WindowSize:    getEnvOrDefault("CORTEX_WINDOW_SIZE", "1200,800"),
		ProfileDir:    getEnvOrDefault("CORTEX_PROFILE_DIR", filepath.Join(dataDir, "profile")),

		BindAddr:         getEnvOrDefault("CORTEX_BIND_ADDR", "127.0.0.1:8190"),
		PortCandidates:   getEnvListOrDefault("CORTEX_PORT_CANDIDATES", []string{"127.0.0.1:8191", "127.0.0.1:8192", "127.0.0.1:8193"}),
		PortAutoFallback: getEnvBoolOrDefault("CORTEX_PORT_AUTO_FALLBACK", true),
		RateLimitRPS:     getEnvFloatOrDefault("CORTEX_RATE_LIMIT_RPS", 50),
		RateLimitBurst:   getEnvIntOrDefault("CORTEX_RATE_LIMIT_BURST", 100),
		MetricsEnabled:   getEnvBoolOrDefault("CORTEX_METRICS_ENABLED", true),

		LogLevel: strings.ToLower(getEnvOrDefault("CORTEX_LOG_LEVEL", "info")),
		LogFile:  getEnvOrDefault("CORTEX_LOG_FILE", "logs/cortex.log"),

		HomeURL:      getEnvOrDefault("CORTEX_HOME_URL", "https://www.google.com"),
		SearchURL:    getEnvOrDefault("CORTEX_SEARCH_URL", "https://www.google.com/search?q="),
		CloseFocus:   strings.ToLower(getEnvOrDefault("CORTEX_CLOSE_FOCUS", "shift")),
		ResizePollMS: getEnvIntOrDefault("CORTEX_RESIZE_POLL_MS", 500),
		BarHeight:    getEnvIntOrDefault("CORTEX_BAR_HEIGHT", 0),

		DataDir:         dataDir,
		FilterListsPath: getEnvOrDefault("CORTEX_FILTER_LISTS", "./config/filter_lists.yaml"),
		FilterTTL:       getEnvDurationOrDefault("CORTEX_FILTER_TTL", 6*time.Hour),
		FetchTimeout:    getEnvDurationOrDefault("CORTEX_FETCH_TIMEOUT", 30*time.Second),
		FetchRetries:    getEnvIntOrDefault("CORTEX_FETCH_RETRIES", 3),
	}

	if cfg.CDPPort < 1 || cfg.CDPPort > 65535 {
		return nil, fmt.Errorf("CHROMIUM_CDP_PORT out of range: %d", cfg.CDPPort)
	}
	if cfg.FilterTTL < time.Minute {
		cfg.FilterTTL = time.Minute
	}
	if cfg.FetchTimeout < time.Second {
		cfg.FetchTimeout = time.Second
	}
	if cfg.FetchRetries < 0 {
		cfg.FetchRetries = 0
	}
	if cfg.ResizePollMS < 100 {
		cfg.ResizePollMS = 100
	}
	if cfg.BarHeight < 0 {
		cfg.BarHeight = 0
	}
	return cfg, nil
}

// CDPURL returns the CDP HTTP endpoint used by the chromedp remote allocator.
func (c *ShellConfig) CDPURL() string {
	return "http://" + c.CDPAddress + ":" + strconv.Itoa(c.CDPPort)
}
