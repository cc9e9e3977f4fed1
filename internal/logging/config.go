// Package logging configures the process-wide zerolog logger, following
// the teacher's env-override/profile split (internal/logging in
// danmuck-edgectl) but targeting zerolog directly rather than routing
// through a private wrapper package whose source this pack does not
// carry (see DESIGN.md).
package logging

import (
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	EnvLogLevel     = "PEERCLOCK_LOG_LEVEL"
	EnvLogTimestamp = "PEERCLOCK_LOG_TIMESTAMP"
	EnvLogNoColor   = "PEERCLOCK_LOG_NOCOLOR"
)

// Profile selects the logger defaults.
type Profile int

const (
	ProfileRuntime Profile = iota
	ProfileTest
)

var configureOnce sync.Once

// ConfigureRuntime configures the global logger for normal operation.
func ConfigureRuntime() {
	Configure(ProfileRuntime)
}

// ConfigureTests configures the global logger for test runs.
func ConfigureTests() {
	Configure(ProfileTest)
}

// Configure sets the global zerolog logger once per process.
func Configure(profile Profile) {
	configureOnce.Do(func() {
		level, timestamp, noColor := defaults(profile)
		applyEnvOverrides(&level, &timestamp, &noColor)

		writer := zerolog.ConsoleWriter{Out: os.Stdout, NoColor: noColor}
		if timestamp {
			writer.TimeFormat = time.RFC3339
		}
		logger := zerolog.New(writer).Level(level).With().Logger()
		if timestamp {
			logger = logger.With().Timestamp().Logger()
		}
		log.Logger = logger
	})
}

// Component returns a logger tagged with the given subsystem name,
// following the teacher's observability.InitLogger convention of a
// single string field identifying the owning package.
func Component(name string) zerolog.Logger {
	return log.Logger.With().Str("component", name).Logger()
}

func defaults(profile Profile) (level zerolog.Level, timestamp, noColor bool) {
	switch profile {
	case ProfileTest:
		return zerolog.DebugLevel, false, true
	default:
		return zerolog.InfoLevel, true, false
	}
}

func applyEnvOverrides(level *zerolog.Level, timestamp, noColor *bool) {
	if lvl, ok := parseLevel(os.Getenv(EnvLogLevel)); ok {
		*level = lvl
	}
	if v, ok := parseBool(os.Getenv(EnvLogTimestamp)); ok {
		*timestamp = v
	}
	if v, ok := parseBool(os.Getenv(EnvLogNoColor)); ok {
		*noColor = v
	}
}

func parseLevel(raw string) (zerolog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "trace":
		return zerolog.TraceLevel, true
	case "debug":
		return zerolog.DebugLevel, true
	case "info":
		return zerolog.InfoLevel, true
	case "warn", "warning":
		return zerolog.WarnLevel, true
	case "error":
		return zerolog.ErrorLevel, true
	case "disabled", "off", "none":
		return zerolog.Disabled, true
	default:
		return zerolog.InfoLevel, false
	}
}

func parseBool(raw string) (bool, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}
