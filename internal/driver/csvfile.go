// Package driver feeds data files and directories through the check engine.
// CSVFile walks one delimited file row by row and ExpectedCSVFiles compares a
// directory listing with the set of files a dataset declares.
package driver

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/JonMunkholm/datacheck/internal/check"
)

// DefaultSeparator is the field separator used when none is configured.
const DefaultSeparator = '|'

// ContextCheckInterval is how often (in rows) to check for cancellation.
var ContextCheckInterval = 100

// maxLineSize bounds a single line in plain (unquoted) mode.
const maxLineSize = 16 * 1024 * 1024

// FileStats summarizes one pass over a file.
type FileStats struct {
	Rows     int64         `json:"rows"`  // Data rows checked (header and empty lines excluded)
	Lines    int64         `json:"lines"` // Physical lines read
	Bytes    int64         `json:"bytes"`
	Duration time.Duration `json:"duration"`

	// InvalidUTF8 counts byte sequences replaced with U+FFFD.
	InvalidUTF8 int64 `json:"invalid_utf8,omitempty"`
}

// CSVFile checks every row of one delimited file against an ordered list of
// columns. It implements check.FileCheck.
type CSVFile struct {
	name       string
	path       string
	columns    []check.Column
	separator  rune
	quoted     bool
	header     []string
	allowEmpty bool
}

// Option configures a CSVFile.
type Option func(*CSVFile)

// WithSeparator sets the field separator.
func WithSeparator(sep rune) Option {
	return func(f *CSVFile) { f.separator = sep }
}

// Quoted enables RFC 4180 quoting; fields may then contain the separator.
func Quoted() Option {
	return func(f *CSVFile) { f.quoted = true }
}

// WithHeader requires the first line to equal names exactly.
func WithHeader(names ...string) Option {
	return func(f *CSVFile) { f.header = names }
}

// AllowEmpty accepts files without data rows.
func AllowEmpty() Option {
	return func(f *CSVFile) { f.allowEmpty = true }
}

// NewCSVFile creates a file check. path is made absolute when possible.
func NewCSVFile(name, path string, columns []check.Column, opts ...Option) *CSVFile {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	f := &CSVFile{
		name:      name,
		path:      path,
		columns:   columns,
		separator: DefaultSeparator,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *CSVFile) Name() string { return f.name }
func (f *CSVFile) Path() string { return f.path }

// Columns returns the number of fields each row must have.
func (f *CSVFile) Columns() int { return len(f.columns) }

// Run checks the file. A non-nil error is either a check failure returned
// by the policy (errors.Is(err, check.ErrCheckFailed)) or an I/O, reference
// store or cancellation error.
func (f *CSVFile) Run(ctx context.Context, policy check.Policy) (FileStats, error) {
	start := time.Now()
	var stats FileStats

	file, err := os.Open(f.path)
	if err != nil {
		return stats, fmt.Errorf("open %s: %w", f.path, err)
	}
	defer file.Close()

	var size int64
	if info, err := file.Stat(); err == nil {
		size = info.Size()
	}
	r, counter := Wrap(file, size)

	rows := f.rowReader(r)
	fh := policy.FileHandler()

	err = f.walk(ctx, rows, policy, fh, &stats)
	stats.Bytes = counter.BytesRead()
	stats.Duration = time.Since(start)
	if err != nil {
		return stats, err
	}

	if stats.InvalidUTF8 = counter.InvalidUTF8(); stats.InvalidUTF8 > 0 {
		msg := fmt.Sprintf("File contains %d invalid UTF-8 sequences", stats.InvalidUTF8)
		if err := fh.HandleFile(f, msg); err != nil {
			return stats, err
		}
	}

	if stats.Rows == 0 && !f.allowEmpty {
		if err := fh.HandleFile(f, "File contains no data rows"); err != nil {
			return stats, err
		}
	}
	return stats, nil
}

func (f *CSVFile) walk(ctx context.Context, rows rowReader, policy check.Policy, fh check.FileHandler, stats *FileStats) error {
	headerPending := len(f.header) > 0

	for {
		row, line, err := rows.next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				stats.Lines = int64(perr.Line)
				if herr := fh.HandleLine(f, check.CodeLine, fmt.Sprintf("Malformed row: %v", perr.Err), int64(perr.Line), nil); herr != nil {
					return herr
				}
				continue
			}
			return fmt.Errorf("read %s: %w", f.path, err)
		}
		stats.Lines = line

		if stats.Lines%int64(ContextCheckInterval) == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}

		if headerPending {
			headerPending = false
			if !slices.Equal(row, f.header) {
				msg := fmt.Sprintf("Unexpected header, expected %s", check.FormatRow(f.header))
				if err := fh.HandleLine(f, check.CodeHeader, msg, line, row); err != nil {
					return err
				}
			}
			continue
		}

		stats.Rows++

		if len(row) != len(f.columns) {
			msg := fmt.Sprintf("Expected %d columns, found %d", len(f.columns), len(row))
			if err := fh.HandleLine(f, check.CodeLine, msg, line, row); err != nil {
				return err
			}
			continue
		}

		h := policy.ColumnHandler(f, line, row)
		for i, col := range f.columns {
			if err := col.Check(ctx, h, row[i]); err != nil {
				return err
			}
		}
	}
}

// rowReader yields one row per call with its 1-based line number, and
// io.EOF at the end.
type rowReader interface {
	next() ([]string, int64, error)
}

func (f *CSVFile) rowReader(r io.Reader) rowReader {
	if f.quoted {
		cr := csv.NewReader(r)
		cr.Comma = f.separator
		cr.LazyQuotes = true
		cr.FieldsPerRecord = -1
		return &quotedRows{r: cr}
	}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return &plainRows{sc: sc, sep: string(f.separator)}
}

// plainRows splits each line on the separator with no quoting rules. Only
// lines with no text at all are skipped; a line of separators or spaces is
// a row like any other.
type plainRows struct {
	sc   *bufio.Scanner
	sep  string
	line int64
}

func (p *plainRows) next() ([]string, int64, error) {
	for p.sc.Scan() {
		p.line++
		text := strings.TrimSuffix(p.sc.Text(), "\r")
		if len(text) == 0 {
			continue
		}
		return strings.Split(text, p.sep), p.line, nil
	}
	if err := p.sc.Err(); err != nil {
		return nil, p.line, err
	}
	return nil, p.line, io.EOF
}

type quotedRows struct {
	r *csv.Reader
}

func (q *quotedRows) next() ([]string, int64, error) {
	row, err := q.r.Read()
	if err != nil {
		return nil, 0, err
	}
	line, _ := q.r.FieldPos(0)
	return row, int64(line), nil
}
