package check

import (
	"sort"
	"sync"
)

// CollectPolicy records every handled failure and lets processing continue.
// It is safe for concurrent use.
//
// When a limit is set, only the first limit violations are kept; later ones
// are still counted so the final total stays accurate.
type CollectPolicy struct {
	limit int

	mu         sync.Mutex
	violations []Violation
	total      int
	byCode     map[Code]int
}

// Collect returns a policy that keeps up to limit violations (0 = unlimited).
func Collect(limit int) *CollectPolicy {
	if limit < 0 {
		limit = 0
	}
	return &CollectPolicy{
		limit:  limit,
		byCode: make(map[Code]int),
	}
}

func (p *CollectPolicy) ColumnHandler(fc FileCheck, line int64, row []string) ColumnHandler {
	return collectColumnHandler{p: p, fc: fc, line: line, row: row}
}

func (p *CollectPolicy) FileHandler() FileHandler { return collectFileHandler{p: p} }

func (p *CollectPolicy) DirectoryHandler() DirectoryHandler { return collectDirectoryHandler{p: p} }

func (p *CollectPolicy) add(v Violation) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.total++
	p.byCode[v.Code]++
	if p.limit == 0 || len(p.violations) < p.limit {
		// Drivers may reuse row slices.
		if v.Row != nil {
			v.Row = append([]string(nil), v.Row...)
		}
		p.violations = append(p.violations, v)
	}
}

// Violations returns the kept violations in the order they were reported.
func (p *CollectPolicy) Violations() []Violation {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Violation(nil), p.violations...)
}

// Total returns the number of violations reported, including dropped ones.
func (p *CollectPolicy) Total() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.total
}

// Truncated reports whether some violations were counted but not kept.
func (p *CollectPolicy) Truncated() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.total > len(p.violations)
}

// CodeCount is the number of violations reported for one code.
type CodeCount struct {
	Code  Code `json:"code"`
	Count int  `json:"count"`
}

// Counts returns per-code totals sorted by code.
func (p *CollectPolicy) Counts() []CodeCount {
	p.mu.Lock()
	defer p.mu.Unlock()

	counts := make([]CodeCount, 0, len(p.byCode))
	for code, n := range p.byCode {
		counts = append(counts, CodeCount{Code: code, Count: n})
	}
	sort.Slice(counts, func(i, j int) bool { return counts[i].Code < counts[j].Code })
	return counts
}

type collectColumnHandler struct {
	p    *CollectPolicy
	fc   FileCheck
	line int64
	row  []string
}

func (h collectColumnHandler) HandleColumn(code Code, field, message string) error {
	h.p.add(columnViolation(h.fc, h.line, h.row, code, field, message))
	return nil
}

type collectFileHandler struct{ p *CollectPolicy }

func (h collectFileHandler) HandleLine(fc FileCheck, code Code, message string, line int64, row []string) error {
	h.p.add(lineViolation(fc, code, message, line, row))
	return nil
}

func (h collectFileHandler) HandleFile(fc FileCheck, message string) error {
	h.p.add(fileViolation(fc, message))
	return nil
}

type collectDirectoryHandler struct{ p *CollectPolicy }

func (h collectDirectoryHandler) HandleDirectory(dc DirectoryCheck, dir, message string) error {
	h.p.add(directoryViolation(dc, dir, message))
	return nil
}
