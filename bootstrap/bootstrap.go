// Package bootstrap holds process-wide initialization shared by server
// binaries.
package bootstrap

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// InitLogging configures the global zerolog logger: RFC3339 timestamps,
// stderr output, and the given level ("debug", "info", "warn", ...).
func InitLogging(level string) error {
	zerolog.TimeFieldFormat = time.RFC3339Nano

	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("bootstrap: invalid log level %q: %w", level, err)
	}

	log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger().Level(lvl)

	return nil
}
