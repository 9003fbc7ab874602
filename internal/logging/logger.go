package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mattn/go-isatty"

	"vidpress/internal/config"
)

// LogFileName is the shared log written under paths.log_dir.
const LogFileName = "vidpress.log"

// Options configures New.
type Options struct {
	Level string
	// Format is "console" (default) or "json".
	Format string
	// Outputs lists sinks: "stdout", "stderr" or a file path. Empty means stderr.
	Outputs []string
	// Caller adds file:line to every record. Debug level always does.
	Caller bool
	// Color forces ANSI level colors on or off; nil colors only when every
	// sink is a terminal and NO_COLOR is unset.
	Color *bool
}

// New builds a logger writing to every sink in opts.Outputs.
func New(opts Options) (*slog.Logger, error) {
	level := parseLevel(opts.Level)
	out, terminal, err := openSinks(opts.Outputs)
	if err != nil {
		return nil, err
	}
	caller := opts.Caller || level <= slog.LevelDebug

	switch strings.ToLower(strings.TrimSpace(opts.Format)) {
	case "", "console":
		color := terminal && os.Getenv("NO_COLOR") == ""
		if opts.Color != nil {
			color = *opts.Color
		}
		return slog.New(newConsoleHandler(out, level, caller, color)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{
			Level:       level,
			AddSource:   caller,
			ReplaceAttr: shortJSONKeys,
		})), nil
	default:
		return nil, fmt.Errorf("log format: unsupported value %q", opts.Format)
	}
}

// NewFromConfig logs to stderr and, when a log directory is configured, to
// <log_dir>/vidpress.log. stdout stays free for command output.
func NewFromConfig(cfg *config.Config) (*slog.Logger, error) {
	if cfg == nil {
		return New(Options{})
	}
	outputs := []string{"stderr"}
	if dir := strings.TrimSpace(cfg.Paths.LogDir); dir != "" {
		outputs = append(outputs, filepath.Join(dir, LogFileName))
	}
	return New(Options{
		Level:   cfg.Logging.Level,
		Format:  cfg.Logging.Format,
		Outputs: outputs,
	})
}

// parseLevel is lenient: config validation rejects bad levels before a
// logger is built, and an unknown level here falls back to info.
func parseLevel(raw string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(raw))); err != nil {
		return slog.LevelInfo
	}
	return level
}

// openSinks opens each distinct output and reports whether all of them are
// terminals.
func openSinks(paths []string) (io.Writer, bool, error) {
	if len(paths) == 0 {
		paths = []string{"stderr"}
	}
	seen := make(map[string]bool, len(paths))
	var files []io.Writer
	terminal := true
	for _, p := range paths {
		p = strings.TrimSpace(p)
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true

		f, err := openSink(p)
		if err != nil {
			return nil, false, err
		}
		terminal = terminal && isatty.IsTerminal(f.Fd())
		files = append(files, f)
	}
	switch len(files) {
	case 0:
		return io.Discard, false, nil
	case 1:
		return files[0], terminal, nil
	}
	return io.MultiWriter(files...), terminal, nil
}

func openSink(path string) (*os.File, error) {
	switch path {
	case "stdout":
		return os.Stdout, nil
	case "stderr":
		return os.Stderr, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log directory for %s: %w", path, err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file %s: %w", path, err)
	}
	return f, nil
}

// shortJSONKeys renames the top-level keys to ts/level/msg/source and
// flattens source to file:line.
func shortJSONKeys(groups []string, a slog.Attr) slog.Attr {
	if len(groups) > 0 {
		return a
	}
	switch a.Key {
	case slog.TimeKey:
		return slog.String("ts", a.Value.Time().UTC().Format(time.RFC3339))
	case slog.LevelKey:
		return slog.String(slog.LevelKey, strings.ToLower(a.Value.String()))
	case slog.SourceKey:
		if src, ok := a.Value.Any().(*slog.Source); ok && src != nil {
			return slog.String(slog.SourceKey, fmt.Sprintf("%s:%d", filepath.Base(src.File), src.Line))
		}
	}
	return a
}
