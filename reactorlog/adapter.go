// Package reactorlog adapts github.com/joeycumines/logiface onto the
// reactor.Logger interface, so a caller who already has a logiface.Logger
// wired to a real backend (zerolog, or any other Writer/EventFactory pair)
// can hand it to reactor.SetLogger / reactor.WithLogger without writing
// their own shim.
//
// The level mapping follows logiface's own documented recommendation for
// syslog-style severities: reactor's four levels are coarser than
// logiface's eight, so Debug/Info/Warn/Error are mapped onto
// Debug/Informational/Warning/Error and the remaining syslog levels
// (Emergency, Alert, Critical, Notice) are left unused by this adapter.
package reactorlog

import (
	"github.com/joeycumines/logiface"
	reactor "github.com/joeycumines/go-reactor"
)

// Adapter implements reactor.Logger by forwarding to a logiface.Logger.
type Adapter struct {
	log *logiface.Logger[logiface.Event]
}

// New wraps log as a reactor.Logger. log is typically obtained by calling
// Logger() on a concrete, typed logiface.Logger[E] that a caller configured
// with a real backend (e.g. the logiface/zerolog subpackage).
func New(log *logiface.Logger[logiface.Event]) *Adapter {
	return &Adapter{log: log}
}

// IsEnabled reports whether level is at or above the adapted logger's
// configured level.
func (a *Adapter) IsEnabled(level reactor.LogLevel) bool {
	return a.log.Level() >= toLogifaceLevel(level)
}

// Log forwards entry to the underlying logiface.Logger, attaching the
// socket handle (when channel-scoped) and error (when present) as fields.
func (a *Adapter) Log(entry reactor.LogEntry) {
	b := a.builder(entry.Level)
	if entry.FD >= 0 {
		b = b.Int("fd", entry.FD)
	}
	if entry.Err != nil {
		b = b.Err(entry.Err)
	}
	b.Log(entry.Message)
}

func (a *Adapter) builder(level reactor.LogLevel) *logiface.Builder[logiface.Event] {
	switch level {
	case reactor.LevelDebug:
		return a.log.Debug()
	case reactor.LevelWarn:
		return a.log.Warning()
	case reactor.LevelError:
		return a.log.Err()
	default:
		return a.log.Info()
	}
}

func toLogifaceLevel(level reactor.LogLevel) logiface.Level {
	switch level {
	case reactor.LevelDebug:
		return logiface.LevelDebug
	case reactor.LevelWarn:
		return logiface.LevelWarning
	case reactor.LevelError:
		return logiface.LevelError
	default:
		return logiface.LevelInformational
	}
}
