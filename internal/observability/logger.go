package observability

import (
	"github.com/danmuck/renderframe/internal/logging"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// InitLogger configures the runtime logger, tags it with service and
// installs it globally.
func InitLogger(service string) zerolog.Logger {
	logging.ConfigureRuntime()
	logger := log.Logger.With().Str("service", service).Logger()
	log.Logger = logger
	return logger
}
