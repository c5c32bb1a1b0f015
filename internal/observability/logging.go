package observability

import (
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
)

// NewLogger builds the process logger. format is "console" for human
// readable output or "json".
func NewLogger(w io.Writer, level, format string) (*zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}

	out := w
	switch format {
	case "console":
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	case "json":
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}

	logger := zerolog.New(out).Level(lvl).With().Timestamp().Logger()
	return &logger, nil
}
