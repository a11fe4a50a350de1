package log

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"golang.org/x/exp/slices"
	"golang.org/x/exp/slog"
)

const (
	timeFormat = "01-02|15:04:05.000"
	msgPad     = 40
)

type discardHandler struct{}

// DiscardHandler returns a no-op handler
func DiscardHandler() slog.Handler {
	return &discardHandler{}
}

func (h *discardHandler) Handle(_ context.Context, r slog.Record) error {
	return nil
}

func (h *discardHandler) Enabled(_ context.Context, level slog.Level) bool {
	return false
}

func (h *discardHandler) WithGroup(name string) slog.Handler {
	return h
}

func (h *discardHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &discardHandler{}
}

var levelColors = map[slog.Level]*color.Color{
	LevelCrit:       color.New(color.FgMagenta),
	slog.LevelError: color.New(color.FgRed),
	slog.LevelWarn:  color.New(color.FgYellow),
	slog.LevelInfo:  color.New(color.FgGreen),
	slog.LevelDebug: color.New(color.FgCyan),
	LevelTrace:      color.New(color.FgBlue),
}

func init() {
	// Whether to color is decided per handler, not by color's tty detection.
	for _, c := range levelColors {
		c.EnableColor()
	}
}

// TerminalHandler formats records for humans:
//
//	INFO [10-16|09:14:02.117] Analyzed methods                 total=12 failed=0
type TerminalHandler struct {
	mu       *sync.Mutex
	wr       io.Writer
	lvl      slog.Level
	useColor bool
	attrs    []slog.Attr

	buf []byte
}

// NewTerminalHandler returns a handler which formats log records at all
// levels for terminal output.
func NewTerminalHandler(wr io.Writer, useColor bool) *TerminalHandler {
	return NewTerminalHandlerWithLevel(wr, LevelTrace, useColor)
}

// NewTerminalHandlerWithLevel returns the same handler as NewTerminalHandler
// but only outputs records which are at least lvl.
func NewTerminalHandlerWithLevel(wr io.Writer, lvl slog.Level, useColor bool) *TerminalHandler {
	return &TerminalHandler{
		mu:       new(sync.Mutex),
		wr:       wr,
		lvl:      lvl,
		useColor: useColor,
	}
}

func (h *TerminalHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	buf := h.format(h.buf[:0], r)
	_, err := h.wr.Write(buf)
	h.buf = buf
	return err
}

func (h *TerminalHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.lvl
}

func (h *TerminalHandler) WithGroup(name string) slog.Handler {
	return h
}

func (h *TerminalHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &TerminalHandler{
		mu:       h.mu,
		wr:       h.wr,
		lvl:      h.lvl,
		useColor: h.useColor,
		attrs:    append(slices.Clone(h.attrs), attrs...),
	}
}

func (h *TerminalHandler) format(b []byte, r slog.Record) []byte {
	lvl := LevelAlignedString(r.Level)
	c, colored := levelColors[r.Level]
	colored = colored && h.useColor
	if colored {
		lvl = c.Sprint(lvl)
	}
	b = append(b, lvl...)
	b = append(b, " ["...)
	b = r.Time.AppendFormat(b, timeFormat)
	b = append(b, "] "...)
	b = append(b, r.Message...)

	if len(h.attrs) == 0 && r.NumAttrs() == 0 {
		return append(b, '\n')
	}
	if pad := msgPad - len(r.Message); pad > 0 {
		b = append(b, strings.Repeat(" ", pad)...)
	}
	write := func(a slog.Attr) bool {
		b = append(b, ' ')
		if colored {
			b = append(b, c.Sprint(a.Key)...)
		} else {
			b = append(b, a.Key...)
		}
		b = append(b, '=')
		b = append(b, formatValue(a.Value)...)
		return true
	}
	for _, a := range h.attrs {
		write(a)
	}
	r.Attrs(write)
	return append(b, '\n')
}

func formatValue(v slog.Value) string {
	v = v.Resolve()
	switch v.Kind() {
	case slog.KindString:
		return quoteIfNeeded(v.String())
	case slog.KindTime:
		return v.Time().Format(time.RFC3339)
	case slog.KindAny:
		switch x := v.Any().(type) {
		case nil:
			return "<nil>"
		case error:
			return quoteIfNeeded(x.Error())
		case fmt.Stringer:
			return quoteIfNeeded(x.String())
		}
		return quoteIfNeeded(fmt.Sprint(v.Any()))
	}
	return v.String()
}

func quoteIfNeeded(s string) string {
	if s == "" || strings.ContainsAny(s, " =\"\t\n") {
		return strconv.Quote(s)
	}
	return s
}

// JSONHandler returns a handler which prints records in JSON format.
func JSONHandler(wr io.Writer) slog.Handler {
	return JSONHandlerWithLevel(wr, LevelTrace)
}

// JSONHandlerWithLevel returns a JSON handler which only outputs records at
// least at lvl.
func JSONHandlerWithLevel(wr io.Writer, lvl slog.Level) slog.Handler {
	return slog.NewJSONHandler(wr, &slog.HandlerOptions{
		ReplaceAttr: builtinReplaceJSON,
		Level:       lvl,
	})
}

func builtinReplaceJSON(_ []string, attr slog.Attr) slog.Attr {
	if attr.Key == slog.LevelKey {
		if l, ok := attr.Value.Any().(slog.Level); ok {
			attr = slog.String(slog.LevelKey, strings.TrimSpace(strings.ToLower(LevelAlignedString(l))))
		}
	}
	return attr
}
