// Package ulogger is the logging facade used by every component in this
// module. It mirrors bsv-blockchain-teranode/util/logger.go: a thin
// wrapper around zerolog, configured through gocore's runtime config
// store, exposing the printf-style methods the rest of the codebase
// calls (Debugf/Infof/Warnf/Errorf/Fatalf).
package ulogger

import (
	"os"
	"strings"
	"time"

	"github.com/ordishs/gocore"
	"github.com/rs/zerolog"
)

// Logger is the interface every component depends on. Kept narrow on
// purpose so tests can supply a no-op or buffering implementation without
// dragging in zerolog.
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	Fatalf(format string, args ...interface{})
}

// ZLoggerWrapper adapts zerolog.Logger to the Logger interface.
type ZLoggerWrapper struct {
	zerolog.Logger
	service string
}

// New builds a service-scoped logger. Pretty-printing is read from
// gocore.Config(), the same runtime config store the rest of the module
// reads node tunables from; the log level comes from the optional
// logLevel argument (info when absent or unrecognized).
func New(service string, logLevel ...string) *ZLoggerWrapper {
	if service == "" {
		service = "pocnode"
	}

	var z *ZLoggerWrapper
	if gocore.Config().GetBool("logger_pretty", true) {
		z = prettyLogger(service)
	} else {
		z = &ZLoggerWrapper{
			zerolog.New(os.Stdout).With().Timestamp().Logger(),
			service,
		}
	}

	if len(logLevel) > 0 {
		applyLevel(logLevel[0], z)
	}

	return z
}

func applyLevel(level string, z *ZLoggerWrapper) {
	switch strings.ToUpper(level) {
	case "DEBUG":
		z.Logger = z.Logger.Level(zerolog.DebugLevel)
	case "WARN":
		z.Logger = z.Logger.Level(zerolog.WarnLevel)
	case "ERROR":
		z.Logger = z.Logger.Level(zerolog.ErrorLevel)
	default:
		z.Logger = z.Logger.Level(zerolog.InfoLevel)
	}
}

func prettyLogger(service string) *ZLoggerWrapper {
	output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}

	return &ZLoggerWrapper{
		zerolog.New(output).With().Str("service", service).Timestamp().Logger(),
		service,
	}
}

func (z *ZLoggerWrapper) Debugf(format string, args ...interface{}) { z.Logger.Debug().Msgf(format, args...) }
func (z *ZLoggerWrapper) Infof(format string, args ...interface{})  { z.Logger.Info().Msgf(format, args...) }
func (z *ZLoggerWrapper) Warnf(format string, args ...interface{})  { z.Logger.Warn().Msgf(format, args...) }
func (z *ZLoggerWrapper) Errorf(format string, args ...interface{}) { z.Logger.Error().Msgf(format, args...) }
func (z *ZLoggerWrapper) Fatalf(format string, args ...interface{}) { z.Logger.Fatal().Msgf(format, args...) }

// TestLogger returns a logger quiet enough for unit tests: it still
// satisfies the Logger interface but writes to os.Stderr at warn level so
// test output isn't drowned out by debug noise.
func TestLogger() *ZLoggerWrapper {
	z := &ZLoggerWrapper{
		zerolog.New(os.Stderr).With().Timestamp().Logger(),
		"test",
	}
	z.Logger = z.Logger.Level(zerolog.WarnLevel)
	return z
}
