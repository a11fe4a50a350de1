package log

import (
	"sync/atomic"

	"golang.org/x/exp/slog"
)

// LoggerFilter decides whether a filtered log call is emitted.
type LoggerFilter interface {
	check() bool
}

// EveryN lets one call in N through; the Nth, 2Nth and so on. A zero N
// lets every call through.
type EveryN struct {
	N       uint32
	counter uint32
}

func (e *EveryN) check() bool {
	if e == nil || e.N == 0 {
		return true
	}
	c := atomic.AddUint32(&e.counter, 1)
	return c%e.N == 0
}

// Count is how many calls the filter has seen.
func (e *EveryN) Count() uint32 {
	return atomic.LoadUint32(&e.counter)
}

var _ LoggerFilter = &EveryN{}

type ifCondition bool

func (i ifCondition) check() bool { return bool(i) }

// If is a filter that passes when cond holds.
func If(cond bool) LoggerFilter { return ifCondition(cond) }

// LogBy writes to l when the filter passes. A nil filter always passes.
func LogBy(l Logger, filter LoggerFilter, level slog.Level, msg string, ctx ...interface{}) {
	if filter == nil || filter.check() {
		l.Write(level, msg, ctx...)
	}
}

func WarnIf(condition bool, msg string, ctx ...interface{}) {
	LogBy(Root(), If(condition), slog.LevelWarn, msg, ctx...)
}
