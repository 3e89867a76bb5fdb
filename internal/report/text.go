// Package report renders run reports for people and machines: an aligned
// terminal summary, indented JSON and an HTML page for the web service.
package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"github.com/JonMunkholm/datacheck/internal/runner"
)

// maxNameWidth caps the file column of the summary table.
const maxNameWidth = 40

// TextOptions tune the terminal rendering.
type TextOptions struct {
	Color bool // Colorize status words
	Limit int  // Violations to print; 0 prints every kept violation
}

// Text writes a human-readable report: a header, one aligned line per file,
// the kept violations and per-code totals.
func Text(w io.Writer, rep *runner.Report, opts TextOptions) error {
	p := &printer{w: w, color: opts.Color}

	p.printf("Run %s  dataset %s  policy %s\n", rep.ID, rep.Dataset, rep.Policy)
	p.printf("Directory %s\n", rep.Directory)
	p.printf("Status %s in %s\n", p.status(rep.Status), rep.Duration().Round(time.Millisecond))

	if len(rep.Files) > 0 {
		p.printf("\n")
		width := 0
		for _, f := range rep.Files {
			width = max(width, runewidth.StringWidth(truncate(f.Name, maxNameWidth)))
		}
		for _, f := range rep.Files {
			name := runewidth.FillRight(truncate(f.Name, maxNameWidth), width)
			mark := p.ok("ok")
			if f.Violations > 0 {
				mark = p.bad(fmt.Sprintf("%d violation(s)", f.Violations))
			}
			p.printf("  %s  %8d rows  %10d bytes  %s\n", name, f.Stats.Rows, f.Stats.Bytes, mark)
		}
	}

	if rep.Error != "" {
		p.printf("\n%s %s\n", p.bad("error:"), rep.Error)
	}

	if len(rep.Violations) > 0 {
		p.printf("\nViolations:\n")
		shown := rep.Violations
		if opts.Limit > 0 && len(shown) > opts.Limit {
			shown = shown[:opts.Limit]
		}
		for _, v := range shown {
			p.printf("  %s\n", v.String())
		}
		if hidden := rep.Total - len(shown); hidden > 0 {
			p.printf("  ... %d more not shown\n", hidden)
		}
	}

	if len(rep.Counts) > 1 {
		p.printf("\nBy rule:\n")
		width := 0
		for _, c := range rep.Counts {
			width = max(width, len(c.Code))
		}
		for _, c := range rep.Counts {
			p.printf("  %-*s  %d\n", width, c.Code, c.Count)
		}
	}

	return p.err
}

func truncate(value string, width int) string {
	if runewidth.StringWidth(value) <= width {
		return value
	}
	return runewidth.Truncate(value, width-3, "...")
}

// printer remembers the first write error so callers check once.
type printer struct {
	w     io.Writer
	color bool
	err   error
}

func (p *printer) printf(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}

func (p *printer) paint(attr color.Attribute, s string) string {
	if !p.color {
		return s
	}
	c := color.New(attr, color.Bold)
	c.EnableColor()
	return c.Sprint(s)
}

func (p *printer) ok(s string) string  { return p.paint(color.FgGreen, s) }
func (p *printer) bad(s string) string { return p.paint(color.FgRed, s) }

func (p *printer) status(s runner.Status) string {
	switch s {
	case runner.StatusPassed:
		return p.ok(strings.ToUpper(string(s)))
	case runner.StatusFailed:
		return p.bad(strings.ToUpper(string(s)))
	default:
		return p.paint(color.FgYellow, strings.ToUpper(string(s)))
	}
}
