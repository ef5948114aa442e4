// Package logging configures the process-wide structured logger.
//
// Grounded on manifold's internal/logging/logging.go (JSON formatter,
// LOG_LEVEL env var) restated on zerolog, the logging library manifold's
// go.mod actually requires for new code.
package logging

import (
	"os"

	"github.com/rs/zerolog"
)

// New builds the root logger for the given service name and level string
// ("debug", "info", "warn", "error"). Unparseable levels fall back to info.
func New(serviceName, level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	return zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Logger()
}
