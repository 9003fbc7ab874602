package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"vidpress/internal/deps"
	"vidpress/internal/preflight"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

const (
	statusLabelWidth = 22
	statusIndent     = "  "
)

func (k statusKind) String() string {
	switch k {
	case statusOK:
		return "OK"
	case statusWarn:
		return "WARN"
	case statusError:
		return "ERROR"
	default:
		return "INFO"
	}
}

func (k statusKind) color() string {
	switch k {
	case statusOK:
		return ansiGreen
	case statusWarn:
		return ansiYellow
	case statusError:
		return ansiRed
	default:
		return ansiBlue
	}
}

// statusLine is one "label: [KIND] detail" row of the status report.
type statusLine struct {
	label  string
	kind   statusKind
	detail string
}

func (l statusLine) render(colorize bool) string {
	text := fmt.Sprintf("%s%-*s [%s]", statusIndent, statusLabelWidth, l.label+":", l.kind)
	if l.detail != "" {
		text += " " + l.detail
	}
	if colorize {
		return l.kind.color() + text + ansiReset
	}
	return text
}

func renderStatusLine(label string, kind statusKind, detail string, colorize bool) string {
	return statusLine{label: label, kind: kind, detail: detail}.render(colorize)
}

func resultLine(r preflight.Result) statusLine {
	kind := statusOK
	if !r.Passed {
		kind = statusError
	}
	return statusLine{label: r.Name, kind: kind, detail: r.Detail}
}

// depLine reports a missing optional binary as a warning.
func depLine(s deps.Status, banner string) statusLine {
	if s.Available {
		if banner == "" {
			banner = "Ready"
		}
		return statusLine{label: s.Name, kind: statusOK, detail: banner}
	}
	kind := statusError
	if s.Optional {
		kind = statusWarn
	}
	detail := s.Detail
	if s.Description != "" {
		detail = fmt.Sprintf("%s (%s)", detail, strings.ToLower(s.Description))
	}
	return statusLine{label: s.Name, kind: kind, detail: detail}
}

func renderSectionHeader(title string, colorize bool) []string {
	line := fmt.Sprintf("== %s ==", strings.TrimSpace(title))
	rule := strings.Repeat("-", len(line))
	if colorize {
		line = ansiBlue + line + ansiReset
		rule = ansiBlue + rule + ansiReset
	}
	return []string{line, rule}
}

func shouldColorize(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
