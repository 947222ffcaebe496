// Package diagnostic collects compiler-reported problems for later
// formatting, independent of how they are eventually surfaced (stderr,
// structured logs, or both).
package diagnostic

import (
	"fmt"
	"strings"
)

// Severity is the level of a single diagnostic message.
type Severity int

const (
	Error Severity = iota
	Warning
	Info
)

func (s Severity) String() string {
	switch s {
	case Error:
		return "error"
	case Warning:
		return "warning"
	case Info:
		return "info"
	default:
		return "unknown"
	}
}

// Diagnostic is a single compiler error, warning, or info message, anchored
// to a source position. This compiler operates on one source file per
// invocation (see spec §3, Compilation unit), so unlike a multi-file project
// tool there is no separate file field to track.
type Diagnostic struct {
	Severity Severity
	Message  string
	Line     int
	Column   int
	Hint     string
}

// Diagnostics accumulates messages produced during one compilation.
type Diagnostics struct {
	items []Diagnostic
}

func New() *Diagnostics {
	return &Diagnostics{items: make([]Diagnostic, 0)}
}

func (d *Diagnostics) Errorf(line, col int, format string, args ...interface{}) {
	d.items = append(d.items, Diagnostic{Severity: Error, Message: fmt.Sprintf(format, args...), Line: line, Column: col})
}

func (d *Diagnostics) Warningf(line, col int, format string, args ...interface{}) {
	d.items = append(d.items, Diagnostic{Severity: Warning, Message: fmt.Sprintf(format, args...), Line: line, Column: col})
}

func (d *Diagnostics) Infof(line, col int, format string, args ...interface{}) {
	d.items = append(d.items, Diagnostic{Severity: Info, Message: fmt.Sprintf(format, args...), Line: line, Column: col})
}

// ErrorWithHint adds an error diagnostic with a one-line suggestion attached.
func (d *Diagnostics) ErrorWithHint(line, col int, msg, hint string) {
	d.items = append(d.items, Diagnostic{Severity: Error, Message: msg, Line: line, Column: col, Hint: hint})
}

func (d *Diagnostics) HasErrors() bool {
	for _, item := range d.items {
		if item.Severity == Error {
			return true
		}
	}
	return false
}

func (d *Diagnostics) Errors() []Diagnostic {
	errors := make([]Diagnostic, 0)
	for _, item := range d.items {
		if item.Severity == Error {
			errors = append(errors, item)
		}
	}
	return errors
}

// All returns every collected diagnostic, in the order reported.
func (d *Diagnostics) All() []Diagnostic {
	return d.items
}

func (d *Diagnostics) Count() int { return len(d.items) }

func (d *Diagnostics) ErrorCount() int {
	count := 0
	for _, item := range d.items {
		if item.Severity == Error {
			count++
		}
	}
	return count
}

// Format renders every diagnostic as one line (plus an optional hint line),
// in the shape:
//
//	error[filename:3:10]: expected identifier, got "}}"
//	  hint: ...
func (d *Diagnostics) Format(filename string) string {
	if len(d.items) == 0 {
		return ""
	}

	var b strings.Builder
	for i, item := range d.items {
		fmt.Fprintf(&b, "%s[%s:%d:%d]: %s", item.Severity, filename, item.Line, item.Column, item.Message)
		if item.Hint != "" {
			fmt.Fprintf(&b, "\n  hint: %s", item.Hint)
		}
		if i < len(d.items)-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

func (d *Diagnostics) Clear() {
	d.items = make([]Diagnostic, 0)
}
