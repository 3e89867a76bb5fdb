package report

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/datacheck/internal/check"
	"github.com/JonMunkholm/datacheck/internal/driver"
	"github.com/JonMunkholm/datacheck/internal/runner"
)

func sampleReport() *runner.Report {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return &runner.Report{
		ID:         uuid.MustParse("8a7c5f0e-7b0e-4c55-9a53-4e1f0a1e2b3c"),
		Dataset:    "snb-social",
		Directory:  "/data/sf1",
		Policy:     runner.PolicyCollect,
		Status:     runner.StatusFailed,
		StartedAt:  start,
		FinishedAt: start.Add(1500 * time.Millisecond),
		Files: []runner.FileResult{
			{Name: "person", Stats: driver.FileStats{Rows: 10, Bytes: 200}},
			{Name: "person_knows_person", Stats: driver.FileStats{Rows: 4, Bytes: 40}, Violations: 2},
		},
		Violations: []check.Violation{
			{Kind: check.KindColumn, Code: check.CodeReference, Check: "person_knows_person", Path: "/data/sf1/knows.csv",
				Line: 3, Row: []string{"1", "<b>9</b>"}, Field: "<b>9</b>", Message: "Value <b>9</b> not found in ColumnRef[person.id]"},
		},
		Total:     2,
		Truncated: true,
		Counts: []check.CodeCount{
			{Code: check.CodeParse, Count: 1},
			{Code: check.CodeReference, Count: 1},
		},
	}
}

func TestText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Text(&buf, sampleReport(), TextOptions{}))

	out := buf.String()
	assert.Contains(t, out, "dataset snb-social  policy collect")
	assert.Contains(t, out, "Status FAILED in 1.5s")
	assert.Contains(t, out, "2 violation(s)")
	assert.Contains(t, out, "Check[person_knows_person] File[/data/sf1/knows.csv] Line[3]")
	assert.Contains(t, out, "... 1 more not shown")
	assert.Contains(t, out, "By rule:")

	// File names are padded to a common width.
	var personLine, knowsLine string
	for _, line := range strings.Split(out, "\n") {
		switch {
		case strings.HasPrefix(line, "  person_knows_person"):
			knowsLine = line
		case strings.HasPrefix(line, "  person "):
			personLine = line
		}
	}
	require.NotEmpty(t, personLine)
	require.NotEmpty(t, knowsLine)
	assert.Equal(t, strings.Index(knowsLine, "rows"), strings.Index(personLine, "rows"))
}

func TestText_Limit(t *testing.T) {
	rep := sampleReport()
	rep.Violations = append(rep.Violations, rep.Violations[0])
	var buf bytes.Buffer
	require.NoError(t, Text(&buf, rep, TextOptions{Limit: 1}))
	assert.Equal(t, 1, strings.Count(buf.String(), "Check[person_knows_person]"))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcd...", truncate("abcdefghijk", 7))
}

func TestJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, JSON(&buf, sampleReport()))

	var decoded runner.Report
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, runner.StatusFailed, decoded.Status)
	assert.Equal(t, 2, decoded.Total)
	assert.Contains(t, buf.String(), `"total_violations": 2`)
}

func TestPage_EscapesContent(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Page(sampleReport()).Render(context.Background(), &buf))

	out := buf.String()
	assert.Contains(t, out, "<!DOCTYPE html>")
	assert.Contains(t, out, "&lt;b&gt;9&lt;/b&gt;")
	assert.NotContains(t, out, "<b>9</b>")
	assert.Contains(t, out, "1 more violations were counted")
}

func TestRunList(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RunList(nil).Render(context.Background(), &buf))
	assert.Contains(t, buf.String(), "No runs yet.")

	buf.Reset()
	rep := sampleReport()
	require.NoError(t, RunList([]runner.Summary{rep.Summarize()}).Render(context.Background(), &buf))
	assert.Contains(t, buf.String(), `href="/runs/`+rep.ID.String()+`"`)
	assert.Contains(t, buf.String(), "snb-social")
}
