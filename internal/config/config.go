// Package config loads markertrack configuration from flags, environment variables and .env files.
package config

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config holds the application configuration.
type Config struct {
	App      AppConfig
	Logger   LoggerConfig
	Server   ServerConfig
	Player   PlayerConfig
	Timeline TimelineConfig
	Sources  SourcesConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port         string        // default: 8080
	ReadTimeout  time.Duration // default: 15s
	WriteTimeout time.Duration // default: 15s, event streams extend their own deadline
	IdleTimeout  time.Duration // default: 60s
	CORSOrigins  []string      // default: *
	RateLimit    float64       // requests per second per client, 0 disables
	RateBurst    int
	SSEHeartbeat time.Duration // default: 30s
}

// PlayerConfig holds simulated player configuration.
type PlayerConfig struct {
	// TickInterval is how often a playing session reports a time update.
	TickInterval time.Duration
}

// TimelineConfig holds defaults for new sessions.
type TimelineConfig struct {
	OverlayDisplay     bool    // default true
	OverlayDisplayTime float64 // seconds, default 3
	PrevThreshold      float64 // seconds, default 0.5
	MaxMarkers         int     // per session, default 1000
	MaxSessions        int     // default 100
}

// SourcesConfig controls importing markers from files on the server.
type SourcesConfig struct {
	// BaseDir is the only directory files may be read from. Empty disables file import.
	BaseDir     string
	WatchSettle time.Duration // default: 500ms
}

// LoadConfig loads configuration from the process arguments.
func LoadConfig() (*Config, error) {
	return Load(os.Args[1:])
}

// Load loads configuration with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func Load(args []string) (*Config, error) {
	fs := flag.NewFlagSet("markertrack", flag.ContinueOnError)

	env := fs.String("env", "", "Environment (development, staging, production)")
	logLevel := fs.String("log-level", "", "Log level (debug, info, warn, error)")

	port := fs.String("port", "", "Server port (default: 8080)")
	readTimeout := fs.String("read-timeout", "", "HTTP read timeout (default: 15s)")
	writeTimeout := fs.String("write-timeout", "", "HTTP write timeout (default: 15s)")
	idleTimeout := fs.String("idle-timeout", "", "HTTP idle timeout (default: 60s)")
	corsOrigins := fs.String("cors-origins", "", "Comma separated allowed origins (default: *)")
	rateLimit := fs.String("rate-limit", "", "Requests per second per client, 0 disables (default: 20)")
	rateBurst := fs.String("rate-burst", "", "Rate limit burst (default: 40)")
	heartbeat := fs.String("sse-heartbeat", "", "Event stream heartbeat interval (default: 30s)")

	tick := fs.String("tick-interval", "", "Player time update interval (default: 250ms)")

	overlay := fs.String("overlay", "", "Show the overlay after a marker is reached (default: true)")
	overlayTime := fs.String("overlay-display-time", "", "Seconds the overlay stays visible (default: 3)")
	prevThreshold := fs.String("prev-threshold", "", "Seconds past a marker before prev returns to it (default: 0.5)")
	maxMarkers := fs.String("max-markers", "", "Maximum markers per session (default: 1000)")
	maxSessions := fs.String("max-sessions", "", "Maximum concurrent sessions (default: 100)")

	sourceDir := fs.String("source-dir", "", "Directory marker files may be imported from")
	watchSettle := fs.String("watch-settle", "", "Delay before reloading a changed marker file (default: 500ms)")

	envFile := fs.String("env-file", ".env", "Path to .env file")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	// A missing .env file is fine.
	_ = loadEnvFile(*envFile)

	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", "development"),
		},
		Logger: LoggerConfig{
			Level: getConfigValue(*logLevel, "LOG_LEVEL", "info"),
		},
		Server: ServerConfig{
			Port:        getConfigValue(*port, "SERVER_PORT", "8080"),
			CORSOrigins: splitList(getConfigValue(*corsOrigins, "CORS_ORIGINS", "*")),
			RateBurst:   getIntConfigValue(*rateBurst, "RATE_BURST", 40),
		},
		Timeline: TimelineConfig{
			OverlayDisplay: getBoolConfigValue(*overlay, "OVERLAY_DISPLAY", true),
			MaxMarkers:     getIntConfigValue(*maxMarkers, "MAX_MARKERS", 1000),
			MaxSessions:    getIntConfigValue(*maxSessions, "MAX_SESSIONS", 100),
		},
		Sources: SourcesConfig{
			BaseDir: getConfigValue(*sourceDir, "SOURCE_DIR", ""),
		},
	}

	var err error
	floats := []struct {
		dst            *float64
		flag, key, def string
	}{
		{&cfg.Server.RateLimit, *rateLimit, "RATE_LIMIT", "20"},
		{&cfg.Timeline.OverlayDisplayTime, *overlayTime, "OVERLAY_DISPLAY_TIME", "3"},
		{&cfg.Timeline.PrevThreshold, *prevThreshold, "PREV_THRESHOLD", "0.5"},
	}
	for _, f := range floats {
		if *f.dst, err = getFloatConfigValue(f.flag, f.key, f.def); err != nil {
			return nil, err
		}
	}

	durations := []struct {
		dst            *time.Duration
		flag, key, def string
	}{
		{&cfg.Server.ReadTimeout, *readTimeout, "SERVER_READ_TIMEOUT", "15s"},
		{&cfg.Server.WriteTimeout, *writeTimeout, "SERVER_WRITE_TIMEOUT", "15s"},
		{&cfg.Server.IdleTimeout, *idleTimeout, "SERVER_IDLE_TIMEOUT", "60s"},
		{&cfg.Server.SSEHeartbeat, *heartbeat, "SSE_HEARTBEAT", "30s"},
		{&cfg.Player.TickInterval, *tick, "TICK_INTERVAL", "250ms"},
		{&cfg.Sources.WatchSettle, *watchSettle, "WATCH_SETTLE", "500ms"},
	}
	for _, d := range durations {
		if *d.dst, err = getDurationConfigValue(d.flag, d.key, d.def); err != nil {
			return nil, err
		}
	}

	if cfg.Sources.BaseDir != "" {
		if cfg.Sources.BaseDir, err = expandPath(cfg.Sources.BaseDir); err != nil {
			return nil, fmt.Errorf("invalid source dir: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// Validate checks that all config values are present and valid.
func (c *Config) Validate() error {
	validEnvs := map[string]bool{
		"development": true,
		"staging":     true,
		"production":  true,
	}
	if !validEnvs[c.App.Environment] {
		return fmt.Errorf("invalid environment: %q (must be development, staging, or production)", c.App.Environment)
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[strings.ToLower(c.Logger.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Server.Port == "" {
		return errors.New("server port is required")
	}
	if c.Server.RateLimit < 0 {
		return errors.New("rate limit cannot be negative")
	}
	if c.Server.RateLimit > 0 && c.Server.RateBurst < 1 {
		return errors.New("rate burst must be at least 1 when rate limiting is enabled")
	}
	if c.Player.TickInterval <= 0 {
		return errors.New("tick interval must be positive")
	}
	if c.Timeline.OverlayDisplayTime <= 0 {
		return errors.New("overlay display time must be positive")
	}
	if c.Timeline.PrevThreshold < 0 {
		return errors.New("prev threshold cannot be negative")
	}
	if c.Timeline.MaxMarkers < 1 || c.Timeline.MaxSessions < 1 {
		return errors.New("max markers and max sessions must be at least 1")
	}
	return nil
}

// expandPath expands ~ and makes the path absolute.
func expandPath(path string) (string, error) {
	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	if !filepath.IsAbs(path) {
		abs, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = abs
	}
	return filepath.Clean(path), nil
}

func splitList(s string) []string {
	var out []string
	for part := range strings.SplitSeq(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}
	return defaultValue
}

// getBoolConfigValue accepts "true", "1" and "yes" (case-insensitive) as true.
func getBoolConfigValue(flagValue, envKey string, defaultValue bool) bool {
	s := getConfigValue(flagValue, envKey, "")
	if s == "" {
		return defaultValue
	}
	s = strings.ToLower(s)
	return s == "true" || s == "1" || s == "yes"
}

// getIntConfigValue falls back to the default when the value does not parse.
func getIntConfigValue(flagValue, envKey string, defaultValue int) int {
	s := getConfigValue(flagValue, envKey, "")
	if s == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return defaultValue
	}
	return n
}

func getFloatConfigValue(flagValue, envKey, defaultValue string) (float64, error) {
	s := getConfigValue(flagValue, envKey, defaultValue)
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", envKey, s, err)
	}
	return f, nil
}

func getDurationConfigValue(flagValue, envKey, defaultValue string) (time.Duration, error) {
	s := getConfigValue(flagValue, envKey, defaultValue)
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", envKey, s, err)
	}
	return d, nil
}

// loadEnvFile loads KEY=value lines from a .env file. Lines starting with # are
// comments. Variables already set in the environment win.
func loadEnvFile(path string) error {
	file, err := os.Open(path) //#nosec G304 -- Config file path from user input is expected
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return fmt.Errorf("invalid format at line %d: %s", lineNum, line)
		}
		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), `"'`)

		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("failed to set env var %s: %w", key, err)
			}
		}
	}
	return scanner.Err()
}
