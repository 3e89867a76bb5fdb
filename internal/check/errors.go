package check

// errors.go defines the failure taxonomy shared by columns, drivers and policies.
//
// There are four kinds of failure:
//  1. Parse failure: raw text is not in the column type's lexical grammar
//  2. Column-check failure: a parsed value violates a range, sequence, pattern or reference rule
//  3. File-check failure: a line-level or whole-file rule fails
//  4. Directory-check failure: the directory listing does not match expectations
//
// Parse failures never escape a column; they are converted into column-check
// handler calls. The other three are produced by policy handlers, which decide
// whether a failure aborts the run.

import (
	"errors"
	"fmt"
	"strings"
)

// ErrCheckFailed is wrapped by every error a terminating handler returns.
// Use errors.Is(err, ErrCheckFailed) to tell a failed check apart from an
// infrastructure error (I/O, reference store, cancellation).
var ErrCheckFailed = errors.New("check failed")

// Kind identifies which handler a violation was reported through.
type Kind string

const (
	KindColumn    Kind = "column"
	KindLine      Kind = "line"
	KindFile      Kind = "file"
	KindDirectory Kind = "directory"
)

// Code classifies the rule that produced a violation.
type Code string

const (
	CodeParse       Code = "parse"
	CodeReference   Code = "reference"
	CodeRange       Code = "range"
	CodeConsecutive Code = "consecutive"
	CodePattern     Code = "pattern"
	CodeURL         Code = "url"
	CodeDateRange   Code = "date_range"
	CodeLine        Code = "line"
	CodeHeader      Code = "header"
	CodeFile        Code = "file"
	CodeDirectory   Code = "directory"
)

// Violation is a single failed check with enough context to locate it.
type Violation struct {
	Kind    Kind     `json:"kind"`
	Code    Code     `json:"code"`
	Check   string   `json:"check"`
	Path    string   `json:"path"`
	Line    int64    `json:"line,omitempty"`
	Row     []string `json:"row,omitempty"`
	Field   string   `json:"field,omitempty"`
	Message string   `json:"message"`
}

// String formats the violation as a single diagnostic line.
func (v Violation) String() string {
	switch v.Kind {
	case KindColumn:
		return fmt.Sprintf("Check[%s] File[%s] Line[%d] Row[%s] Column[%s] Message[%s]",
			v.Check, v.Path, v.Line, FormatRow(v.Row), v.Field, v.Message)
	case KindLine:
		return fmt.Sprintf("Check[%s] File[%s] Line[%d] Content[%s] Message[%s]",
			v.Check, v.Path, v.Line, FormatRow(v.Row), v.Message)
	case KindDirectory:
		return fmt.Sprintf("Check[%s] Directory[%s] Message[%s]", v.Check, v.Path, v.Message)
	default:
		return fmt.Sprintf("Check[%s] File[%s] Message[%s]", v.Check, v.Path, v.Message)
	}
}

// FormatRow renders a row as "[a, b, c]".
func FormatRow(row []string) string {
	return "[" + strings.Join(row, ", ") + "]"
}

// ParseError reports raw text that cannot become a typed value.
type ParseError struct {
	Text   string // The raw field text
	Reason string // Human-readable reason
	Err    error  // Underlying conversion error, if any
}

func (e *ParseError) Error() string {
	if e.Reason != "" {
		return e.Reason
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("cannot parse %q", e.Text)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ColumnCheckError is returned by a terminating column handler.
type ColumnCheckError struct{ Violation Violation }

func (e *ColumnCheckError) Error() string { return e.Violation.String() }
func (e *ColumnCheckError) Unwrap() error { return ErrCheckFailed }

// FileCheckError is returned by a terminating file handler, for both
// line-level and whole-file failures.
type FileCheckError struct{ Violation Violation }

func (e *FileCheckError) Error() string { return e.Violation.String() }
func (e *FileCheckError) Unwrap() error { return ErrCheckFailed }

// DirectoryCheckError is returned by a terminating directory handler.
type DirectoryCheckError struct{ Violation Violation }

func (e *DirectoryCheckError) Error() string { return e.Violation.String() }
func (e *DirectoryCheckError) Unwrap() error { return ErrCheckFailed }

// ViolationOf extracts the violation carried by a check error.
func ViolationOf(err error) (Violation, bool) {
	var colErr *ColumnCheckError
	if errors.As(err, &colErr) {
		return colErr.Violation, true
	}
	var fileErr *FileCheckError
	if errors.As(err, &fileErr) {
		return fileErr.Violation, true
	}
	var dirErr *DirectoryCheckError
	if errors.As(err, &dirErr) {
		return dirErr.Violation, true
	}
	return Violation{}, false
}
