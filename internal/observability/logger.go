// Package observability exposes the Prometheus metrics and gin
// middleware the admin HTTP surface (internal/adminhttp) scrapes and
// logs through, following danmuck-edgectl's internal/observability
// idiom.
package observability

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// InitLogger wires the global zerolog logger to a console writer
// tagged with app, mirroring the teacher's InitLogger.
func InitLogger(app string) zerolog.Logger {
	output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	logger := zerolog.New(output).With().Timestamp().Str("app", app).Logger()
	log.Logger = logger
	return logger
}
