package expression

import (
	"log/slog"
)

// LogListener writes every event at debug level and never claims one.
// Register it first to trace the full event stream.
type LogListener struct {
	Logger *slog.Logger
}

// Handle logs ev and returns Continue.
func (l LogListener) Handle(ev Event, scopes *ScopeStack) (Result, error) {
	l.Logger.Debug("expression event",
		"kind", ev.Kind.String(),
		"category", string(ev.Node.Category),
		"symbol", ev.Node.Symbol,
		"pos", ev.Node.Pos,
		"scope", scopes.Top().Set.Name,
		"depth", scopes.Depth(),
	)
	return Continue, nil
}
