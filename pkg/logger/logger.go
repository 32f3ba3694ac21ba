// Package logger configures the global zerolog logger.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	FormatJSON    = "json"
	FormatConsole = "console"
)

// Setup configures the global logger. format is "json" or "console"; a nil
// w writes to stderr.
func Setup(level, format string, w io.Writer) error {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	if w == nil {
		w = os.Stderr
	}

	var output io.Writer
	switch strings.ToLower(format) {
	case FormatJSON:
		output = w
	case FormatConsole, "pretty", "":
		output = zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly, NoColor: w != os.Stderr && w != os.Stdout}
	default:
		return fmt.Errorf("invalid log format %q (want json or console)", format)
	}

	zerolog.SetGlobalLevel(lvl)
	zerolog.DurationFieldUnit = time.Millisecond
	log.Logger = zerolog.New(output).With().Timestamp().Logger()
	return nil
}
