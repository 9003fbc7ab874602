package services

import (
	"errors"
	"strings"
)

// Kinds tag a failure for classification with errors.Is.
var (
	ErrExternalTool  = errors.New("external tool error")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
	ErrTimeout       = errors.New("timeout")
	ErrRateLimited   = errors.New("rate limited")
	ErrTransient     = errors.New("transient failure")
)

// Error is a classified failure of one pipeline step.
type Error struct {
	Kind    error
	Stage   string
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.Error())
	b.WriteString(": ")
	wrote := false
	for _, part := range []string{e.Stage, e.Op, e.Message} {
		if part == "" {
			continue
		}
		if wrote {
			b.WriteString(": ")
		}
		b.WriteString(part)
		wrote = true
	}
	if !wrote {
		b.WriteString("service failure")
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Wrap classifies err under kind, one of the sentinels above. A nil kind
// is treated as ErrTransient.
func Wrap(kind error, stage, operation, message string, err error) error {
	if kind == nil {
		kind = ErrTransient
	}
	return &Error{
		Kind:    kind,
		Stage:   strings.TrimSpace(stage),
		Op:      strings.TrimSpace(operation),
		Message: strings.TrimSpace(message),
		Err:     err,
	}
}

// IsTransient reports whether a retry may clear err.
func IsTransient(err error) bool {
	for _, kind := range []error{ErrTransient, ErrTimeout, ErrRateLimited} {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}
