package observability

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// InitLogger installs the process-wide slog handler. Every record carries a
// service attribute so api and worker output can be told apart when both
// binaries ship logs to the same sink.
func InitLogger(level, format, service string) {
	logger := slog.New(NewHandler(os.Stdout, level, format)).
		With(slog.String("service", service))
	slog.SetDefault(logger)
}

// NewHandler builds the slog handler used by InitLogger. Format is json or
// text; anything else falls back to text. Source locations are only worth
// the noise when someone turned debug on.
func NewHandler(w io.Writer, level, format string) slog.Handler {
	lv := parseLevel(level)

	opts := &slog.HandlerOptions{
		Level:     lv,
		AddSource: lv == slog.LevelDebug,
	}

	if strings.EqualFold(format, "json") {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
