// Package diagnostics collects staged, line-attributed errors and warnings
// from the lexer, parser, compiler and VM.
package diagnostics

import (
	"fmt"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

type Stage string

const (
	StageLex     Stage = "lex"
	StageParse   Stage = "parse"
	StageCompile Stage = "compile"
	StageRuntime Stage = "runtime"
)

type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
)

// Diagnostic is a single reported problem.
type Diagnostic struct {
	Stage    Stage
	Severity Severity
	Line     int
	Message  string
}

func (d Diagnostic) Error() string {
	kind := "error"
	if d.Severity == SeverityWarning {
		kind = "warning"
	}
	if d.Line > 0 {
		return fmt.Sprintf("%s %s at line %d: %s", d.Stage, kind, d.Line, d.Message)
	}
	return fmt.Sprintf("%s %s: %s", d.Stage, kind, d.Message)
}

// List accumulates diagnostics across pipeline stages. A failed production
// records its diagnostic and lets sibling productions continue.
type List struct {
	items []Diagnostic
}

func NewList() *List {
	return &List{}
}

func (l *List) Add(stage Stage, line int, format string, args ...interface{}) {
	l.items = append(l.items, Diagnostic{
		Stage:    stage,
		Severity: SeverityError,
		Line:     line,
		Message:  fmt.Sprintf(format, args...),
	})
}

func (l *List) Warn(stage Stage, line int, format string, args ...interface{}) {
	l.items = append(l.items, Diagnostic{
		Stage:    stage,
		Severity: SeverityWarning,
		Line:     line,
		Message:  fmt.Sprintf(format, args...),
	})
}

func (l *List) Items() []Diagnostic {
	return l.items
}

// HasErrors reports whether any error-severity diagnostic was recorded.
// Warnings alone do not suppress compilation output.
func (l *List) HasErrors() bool {
	for _, d := range l.items {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Err flattens the recorded errors into a single error, or nil.
func (l *List) Err() error {
	var msgs []string
	for _, d := range l.items {
		if d.Severity == SeverityError {
			msgs = append(msgs, d.Error())
		}
	}
	if len(msgs) == 0 {
		return nil
	}
	return fmt.Errorf("%s", strings.Join(msgs, "\n"))
}

// ANSI styling for terminal output.
const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiYellow = "\x1b[33m"
)

// ColorEnabled reports whether the given file is an interactive terminal.
func ColorEnabled(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Render formats a diagnostic for display, optionally colorized.
func Render(d Diagnostic, color bool) string {
	if !color {
		return d.Error()
	}
	if d.Severity == SeverityWarning {
		return ansiYellow + d.Error() + ansiReset
	}
	return ansiRed + d.Error() + ansiReset
}
