package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"
)

const consoleTimeLayout = "2006-01-02 15:04:05"

// consoleHandler writes one line per record:
//
//	2025-06-01 14:03:22 INFO assembler: section placed section=2 anchor="two words"
//
// The component attribute becomes the message prefix instead of a field.
type consoleHandler struct {
	sink   *lockedWriter
	level  slog.Level
	caller bool
	color  bool

	component string
	// prefix is the dotted path of open groups.
	prefix string
	// bound holds attributes from WithAttrs, already formatted.
	bound []byte
}

type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func newConsoleHandler(w io.Writer, level slog.Level, caller, color bool) *consoleHandler {
	return &consoleHandler{sink: &lockedWriter{w: w}, level: level, caller: caller, color: color}
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *consoleHandler) Handle(_ context.Context, r slog.Record) error {
	component := h.component
	var fields []byte
	r.Attrs(func(a slog.Attr) bool {
		if h.prefix == "" && a.Key == FieldComponent {
			component = a.Value.String()
			return true
		}
		fields = appendField(fields, h.prefix, a)
		return true
	})

	line := make([]byte, 0, 128+len(h.bound)+len(fields))
	if !r.Time.IsZero() {
		line = r.Time.Local().AppendFormat(line, consoleTimeLayout)
		line = append(line, ' ')
	}
	line = h.appendLevel(line, r.Level)
	line = append(line, ' ')
	if component != "" {
		line = append(line, component...)
		line = append(line, ": "...)
	}
	line = append(line, r.Message...)
	line = append(line, h.bound...)
	line = append(line, fields...)
	if h.caller && r.PC != 0 {
		frame, _ := runtime.CallersFrames([]uintptr{r.PC}).Next()
		line = fmt.Appendf(line, " (%s:%d)", filepath.Base(frame.File), frame.Line)
	}
	line = append(line, '\n')

	h.sink.mu.Lock()
	defer h.sink.mu.Unlock()
	_, err := h.sink.w.Write(line)
	return err
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	next := *h
	next.bound = append([]byte(nil), h.bound...)
	for _, a := range attrs {
		if h.prefix == "" && a.Key == FieldComponent {
			next.component = a.Value.String()
			continue
		}
		next.bound = appendField(next.bound, h.prefix, a)
	}
	return &next
}

func (h *consoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	next.prefix = h.prefix + name + "."
	return &next
}

func (h *consoleHandler) appendLevel(line []byte, level slog.Level) []byte {
	label, ansi := "DEBUG", "\033[90m"
	switch {
	case level >= slog.LevelError:
		label, ansi = "ERROR", "\033[31m"
	case level >= slog.LevelWarn:
		label, ansi = "WARN", "\033[33m"
	case level >= slog.LevelInfo:
		label, ansi = "INFO", "\033[32m"
	}
	if !h.color {
		return append(line, label...)
	}
	line = append(line, ansi...)
	line = append(line, label...)
	return append(line, "\033[0m"...)
}

// appendField writes " key=value", expanding groups into dotted keys.
func appendField(buf []byte, prefix string, a slog.Attr) []byte {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return buf
	}
	if a.Value.Kind() == slog.KindGroup {
		inner := prefix
		if a.Key != "" {
			inner = prefix + a.Key + "."
		}
		for _, member := range a.Value.Group() {
			buf = appendField(buf, inner, member)
		}
		return buf
	}
	buf = append(buf, ' ')
	buf = append(buf, prefix...)
	buf = append(buf, a.Key...)
	buf = append(buf, '=')
	return appendValue(buf, a.Value)
}

func appendValue(buf []byte, v slog.Value) []byte {
	var s string
	switch v.Kind() {
	case slog.KindString:
		s = v.String()
	case slog.KindTime:
		s = v.Time().Format(time.RFC3339)
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			s = err.Error()
		} else {
			s = fmt.Sprint(v.Any())
		}
	default:
		s = v.String()
	}
	if s == "" || strings.ContainsFunc(s, func(r rune) bool { return r <= ' ' || r == '"' || r == '=' }) {
		return strconv.AppendQuote(buf, s)
	}
	return append(buf, s...)
}
