package logx

import (
	"context"

	"pkt.systems/pslog"
)

// Ctx returns the logger bound to the provided context.
func Ctx(ctx context.Context) pslog.Logger {
	return pslog.Ctx(ctx)
}

// WithProject annotates the logger with the project directory if present.
func WithProject(ctx context.Context, projectDir string) pslog.Logger {
	log := pslog.Ctx(ctx)
	if projectDir != "" {
		log = log.With("project", projectDir)
	}
	return log
}

// WithComponent annotates the logger with a component name. A nil logger
// falls back to the process default.
func WithComponent(log pslog.Logger, component string) pslog.Logger {
	if log == nil {
		log = pslog.Ctx(context.Background())
	}
	if component != "" {
		log = log.With("component", component)
	}
	return log
}
