package report

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/datacheck/internal/runner"
)

const pageStyle = `body{font-family:system-ui,sans-serif;margin:2rem;color:#1f2937}
table{border-collapse:collapse;margin:1rem 0}td,th{padding:.3rem .8rem;border-bottom:1px solid #e5e7eb;text-align:left}
.passed{color:#15803d}.failed{color:#b91c1c}.error{color:#b45309}code{font-size:.85rem}`

// Page renders a full HTML page for one report.
func Page(rep *runner.Report) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		h.open("Run " + rep.ID.String())

		h.raw("<h1>Run <code>")
		h.text(rep.ID.String())
		h.raw("</code></h1>\n<p>Dataset <strong>")
		h.text(rep.Dataset)
		h.raw("</strong> &middot; policy ")
		h.text(string(rep.Policy))
		h.raw(" &middot; <span class=\"")
		h.text(string(rep.Status))
		h.raw("\">")
		h.text(string(rep.Status))
		h.raw("</span></p>\n<p>Directory <code>")
		h.text(rep.Directory)
		h.raw("</code></p>\n")

		if rep.Error != "" {
			h.raw("<p class=\"error\">")
			h.text(rep.Error)
			h.raw("</p>\n")
		}

		h.raw("<table><tr><th>File</th><th>Rows</th><th>Bytes</th><th>Violations</th></tr>\n")
		for _, f := range rep.Files {
			h.raw("<tr><td>")
			h.text(f.Name)
			h.raw("</td><td>")
			h.text(strconv.FormatInt(f.Stats.Rows, 10))
			h.raw("</td><td>")
			h.text(strconv.FormatInt(f.Stats.Bytes, 10))
			h.raw("</td><td>")
			h.text(strconv.Itoa(f.Violations))
			h.raw("</td></tr>\n")
		}
		h.raw("</table>\n")

		if len(rep.Violations) > 0 {
			h.raw(fmt.Sprintf("<h2>Violations (%d)</h2>\n<table><tr><th>Check</th><th>Line</th><th>Column</th><th>Message</th></tr>\n", rep.Total))
			for _, v := range rep.Violations {
				h.raw("<tr><td>")
				h.text(v.Check)
				h.raw("</td><td>")
				if v.Line > 0 {
					h.text(strconv.FormatInt(v.Line, 10))
				}
				h.raw("</td><td>")
				h.text(v.Field)
				h.raw("</td><td>")
				h.text(v.Message)
				h.raw("</td></tr>\n")
			}
			h.raw("</table>\n")
			if rep.Truncated {
				h.raw(fmt.Sprintf("<p>%d more violations were counted but not kept.</p>\n", rep.Total-len(rep.Violations)))
			}
		}

		h.close()
		return h.err
	})
}

// RunList renders a page listing recent runs.
func RunList(runs []runner.Summary) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		h.open("Recent runs")
		h.raw("<h1>Recent runs</h1>\n")
		if len(runs) == 0 {
			h.raw("<p>No runs yet.</p>\n")
			h.close()
			return h.err
		}

		h.raw("<table><tr><th>Run</th><th>Dataset</th><th>Status</th><th>Rows</th><th>Violations</th><th>Started</th></tr>\n")
		for _, s := range runs {
			h.raw("<tr><td><a href=\"/runs/")
			h.text(s.ID.String())
			h.raw("\"><code>")
			h.text(s.ID.String()[:8])
			h.raw("</code></a></td><td>")
			h.text(s.Dataset)
			h.raw("</td><td class=\"")
			h.text(string(s.Status))
			h.raw("\">")
			h.text(string(s.Status))
			h.raw("</td><td>")
			h.text(strconv.FormatInt(s.Rows, 10))
			h.raw("</td><td>")
			h.text(strconv.Itoa(s.Total))
			h.raw("</td><td>")
			h.text(s.StartedAt.Format("2006-01-02 15:04:05"))
			h.raw("</td></tr>\n")
		}
		h.raw("</table>\n")
		h.close()
		return h.err
	})
}

type htmlWriter struct {
	w   io.Writer
	err error
}

func (h *htmlWriter) raw(s string) {
	if h.err == nil {
		_, h.err = io.WriteString(h.w, s)
	}
}

func (h *htmlWriter) text(s string) { h.raw(templ.EscapeString(s)) }

func (h *htmlWriter) open(title string) {
	h.raw("<!DOCTYPE html>\n<html lang=\"en\"><head><meta charset=\"utf-8\"><title>")
	h.text(title)
	h.raw("</title><style>" + pageStyle + "</style></head><body>\n")
}

func (h *htmlWriter) close() { h.raw("</body></html>\n") }
