// Package logging configures the global zerolog logger.
package logging

import (
	"io"
	"os"
	"time"

	"campusblogs/app/config"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup sets the global level and output format. Unknown levels fall back
// to info.
func Setup(cfg config.LogConfig) {
	Configure(cfg, os.Stderr)
}

// Configure is Setup with an explicit destination.
func Configure(cfg config.LogConfig, w io.Writer) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339Nano

	if cfg.Format == "console" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}
	log.Logger = zerolog.New(w).With().Timestamp().Str("service", "campusblogs").Logger()
}
