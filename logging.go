package swapengine

import (
	"io"
	"log/slog"

	"github.com/joeycumines/logiface"
	islog "github.com/joeycumines/logiface-slog"
)

// Logger is the engine's diagnostic logger (spec.md §7, "log, and
// continue" on recoverable I/O failure). It is a thin wrapper over
// logiface, built through the logiface-slog adapter so callers configure
// it with an ordinary slog.Handler rather than a logiface-specific one —
// the same indirection eventloop uses to keep logging out of its core
// state machine files.
type Logger struct {
	l *logiface.Logger[*islog.Event]
}

// NewLogger builds a Logger that emits through handler.
func NewLogger(handler slog.Handler) *Logger {
	return &Logger{l: logiface.New[*islog.Event](islog.NewLogger(handler))}
}

// NewDiscardLogger returns a Logger that drops every event. Engines
// created without an explicit WithEngineLogger option use this.
func NewDiscardLogger() *Logger {
	return NewLogger(slog.NewTextHandler(io.Discard, nil))
}

func (lg *Logger) swapped(id uint64) {
	if lg == nil {
		return
	}
	lg.l.Info().Uint64("cown_id", id).Log("swapped cown to disk")
}

func (lg *Logger) swapFailed(id uint64, err error) {
	if lg == nil {
		return
	}
	lg.l.Err().Uint64("cown_id", id).Err(err).Log("swap failed, rolled back to in-memory")
}

func (lg *Logger) fetched(id uint64) {
	if lg == nil {
		return
	}
	lg.l.Debug().Uint64("cown_id", id).Log("fetched cown from disk")
}

func (lg *Logger) fetchFailed(id uint64, err error) {
	if lg == nil {
		return
	}
	lg.l.Err().Uint64("cown_id", id).Err(err).Log("fetch failed, cown left on disk")
}

func (lg *Logger) pressure(usageBytes, limitBytes int64, shedding bool) {
	if lg == nil {
		return
	}
	lg.l.Debug().
		Int64("usage_bytes", usageBytes).
		Int64("limit_bytes", limitBytes).
		Bool("shedding", shedding).
		Log("memory pressure sample")
}

func (lg *Logger) deadCown(id uint64) {
	if lg == nil {
		return
	}
	lg.l.Debug().Uint64("cown_id", id).Log("reclaimed dead cown")
}

func (lg *Logger) started(policy Policy, limitBytes int64) {
	if lg == nil {
		return
	}
	lg.l.Info().Str("policy", policy.String()).Int64("limit_bytes", limitBytes).Log("swap engine started")
}

func (lg *Logger) limitExceedsSystemMemory(limitBytes, totalBytes int64) {
	if lg == nil {
		return
	}
	lg.l.Warning().
		Int64("limit_bytes", limitBytes).
		Int64("total_system_memory_bytes", totalBytes).
		Log("memory_limit_MB exceeds total system memory, monitor will never observe pressure")
}

func (lg *Logger) stopped(avgUsageMB int64) {
	if lg == nil {
		return
	}
	lg.l.Info().Int64("average_usage_mb", avgUsageMB).Log("swap engine stopped")
}
