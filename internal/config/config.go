package config

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

const (
	defaultListenAddr = ":8080"
	defaultDBPath     = "pomoflow.db"
	defaultLogFormat  = LogFormatJSON

	envListenAddr     = "POMOFLOW_LISTEN_ADDR"
	envDBPath         = "POMOFLOW_DB_PATH"
	envLogLevel       = "POMOFLOW_LOG_LEVEL"
	envLogFormat      = "POMOFLOW_LOG_FORMAT"
	envAllowedOrigins = "POMOFLOW_ALLOWED_ORIGINS"
	envBell           = "POMOFLOW_BELL"
)

// Log output formats.
const (
	LogFormatJSON = "json"
	LogFormatText = "text"
)

// Config holds application configuration loaded from environment variables.
// The database only holds the phase-completion ledger; timer state is never
// read back from it.
type Config struct {
	ListenAddr     string
	DBPath         string
	LogLevel       slog.Level
	LogFormat      string
	AllowedOrigins []string
	// Bell makes the terminal client ring BEL when a phase completes.
	Bell bool
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	cfg := Config{
		ListenAddr:     defaultListenAddr,
		DBPath:         defaultDBPath,
		LogLevel:       slog.LevelInfo,
		LogFormat:      defaultLogFormat,
		AllowedOrigins: []string{"*"},
		Bell:           true,
	}

	if v := os.Getenv(envListenAddr); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv(envDBPath); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv(envLogLevel); v != "" {
		cfg.LogLevel = parseLogLevel(v)
	}
	if v := os.Getenv(envLogFormat); v != "" {
		cfg.LogFormat = parseLogFormat(v)
	}
	if v := os.Getenv(envAllowedOrigins); v != "" {
		cfg.AllowedOrigins = parseList(v)
	}
	if v := os.Getenv(envBell); v != "" {
		cfg.Bell = parseBool(v, cfg.Bell)
	}

	return cfg
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func parseLogFormat(s string) string {
	if strings.EqualFold(s, LogFormatText) {
		return LogFormatText
	}
	return LogFormatJSON
}

// parseList splits a comma-separated value, dropping blanks.
func parseList(s string) []string {
	var out []string
	for part := range strings.SplitSeq(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

func parseBool(s string, fallback bool) bool {
	switch strings.ToLower(s) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

// NewLogger creates a structured JSON logger writing to w at the configured level.
func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
}

// NewLoggerFromConfig builds the logger described by cfg.
func NewLoggerFromConfig(w io.Writer, cfg Config) *slog.Logger {
	if cfg.LogFormat == LogFormatText {
		return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: cfg.LogLevel}))
	}
	return NewLogger(w, cfg.LogLevel)
}
