// Package logging provides centralized zerolog-based logging for the catalog core.
//
// All background workers (scan hashing pool, job queue worker, batch
// processors) and every repository log through this package rather than
// the standard log package, so output stays structured and greppable.
//
//	logging.Init(logging.Config{Level: "info", Format: "console"})
//	logging.Info().Msg("catalog opened")
//	logging.Ctx(ctx).Warn().Str("path", p).Msg("extractor timed out")
package logging

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Config holds logging configuration.
type Config struct {
	// Level is the minimum log level: trace, debug, info, warn, error.
	Level string
	// Format is json or console.
	Format string
	// Caller includes caller file:line in log output.
	Caller bool
	// Output defaults to os.Stderr.
	Output io.Writer
}

// DefaultConfig returns the default logging configuration.
func DefaultConfig() Config {
	return Config{Level: "info", Format: "json", Output: os.Stderr}
}

var (
	log zerolog.Logger
	mu  sync.RWMutex
)

//nolint:gochecknoinits // ensures a usable logger before Init is called
func init() {
	initLogger(DefaultConfig())
}

// Init (re)configures the global logger. Safe to call multiple times; the
// CLI calls it once after config.Load().
func Init(cfg Config) {
	mu.Lock()
	defer mu.Unlock()
	initLogger(cfg)
}

func initLogger(cfg Config) {
	if cfg.Level == "" {
		cfg.Level = "info"
	}
	if cfg.Format == "" {
		cfg.Format = "json"
	}
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}

	zerolog.SetGlobalLevel(parseLevel(cfg.Level))
	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.TimestampFieldName = "time"
	zerolog.MessageFieldName = "message"
	zerolog.ErrorFieldName = "error"

	output := cfg.Output
	if cfg.Format == "console" {
		output = zerolog.ConsoleWriter{Out: cfg.Output, TimeFormat: "15:04:05"}
	}

	l := zerolog.New(output).With().Timestamp().Logger()
	if cfg.Caller {
		l = l.With().Caller().Logger()
	}
	log = l
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "disabled":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

// Logger returns the current global logger.
func Logger() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return log
}

// With starts a child-logger builder from the global logger.
func With() zerolog.Context {
	mu.RLock()
	defer mu.RUnlock()
	return log.With()
}

func Trace() *zerolog.Event { mu.RLock(); defer mu.RUnlock(); return log.Trace() }
func Debug() *zerolog.Event { mu.RLock(); defer mu.RUnlock(); return log.Debug() }
func Info() *zerolog.Event  { mu.RLock(); defer mu.RUnlock(); return log.Info() }
func Warn() *zerolog.Event  { mu.RLock(); defer mu.RUnlock(); return log.Warn() }
func Error() *zerolog.Event { mu.RLock(); defer mu.RUnlock(); return log.Error() }
