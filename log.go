package shapefile

import (
	"io"
	"log/slog"
)

// defaultLogger is used by Reader and Writer when no WithLogger option is
// given. It discards everything, matching the package's default of never
// logging unless a caller opts in.
var defaultLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// config holds the options shared by Reader and Writer. Option values are
// closures over config, the same shape go-shp's ReaderOption takes over its
// ReaderConfig.
type config struct {
	logger *slog.Logger
}

func newConfig() config {
	return config{logger: defaultLogger}
}

// An Option configures a Reader or a Writer.
type Option func(*config)

// WithLogger sets the *slog.Logger a Reader or Writer reports its progress
// and recoverable warnings to.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}
