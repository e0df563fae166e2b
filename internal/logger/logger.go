package logger

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/lmittmann/tint"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger holds the structured logger instance
type Logger struct {
	*slog.Logger

	fileSink io.Closer
}

// Config holds logger configuration
type Config struct {
	Level   string
	Format  string
	Service string
	Version string

	// Dir, when non-empty, enables a rotating log file under that directory
	// in addition to the console handler.
	Dir        string
	MaxSizeMB  int
	MaxBackups int
}

// New creates a new structured logger with the given configuration.
// Console output goes to stderr: when the MCP transport is stdio, stdout
// belongs to the protocol stream.
func New(cfg Config) (*Logger, error) {
	level := parseLevel(cfg.Level)

	opts := &slog.HandlerOptions{
		Level: level,
	}

	console := io.Writer(os.Stderr)
	out := console
	var fileSink io.Closer

	if cfg.Dir != "" {
		if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
			return nil, err
		}
		rotating := &lumberjack.Logger{
			Filename:   filepath.Join(cfg.Dir, "mongodb-mcp-server.log"),
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
		}
		fileSink = rotating
		out = io.MultiWriter(console, rotating)
	}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = tint.NewHandler(out, &tint.Options{
			Level:      level,
			TimeFormat: time.TimeOnly,
			NoColor:    true,
		})
	}

	logger := slog.New(handler)

	// Add contextual fields
	logger = logger.With(
		slog.String("service", cfg.Service),
		slog.String("version", cfg.Version),
	)

	return &Logger{Logger: logger, fileSink: fileSink}, nil
}

// NewDefault creates a logger with default configuration
func NewDefault() (*Logger, error) {
	return New(Config{
		Level:   "info",
		Format:  "json",
		Service: "mongodb-mcp-server",
		Version: "dev",
	})
}

// Close flushes and closes the rotating file sink, if one was configured.
func (l *Logger) Close() error {
	if l.fileSink != nil {
		return l.fileSink.Close()
	}
	return nil
}

func parseLevel(s string) slog.Level {
	switch s {
	case "DEBUG", "debug":
		return slog.LevelDebug
	case "INFO", "info":
		return slog.LevelInfo
	case "WARN", "warn", "WARNING", "warning":
		return slog.LevelWarn
	case "ERROR", "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
