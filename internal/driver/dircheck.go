package driver

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/JonMunkholm/datacheck/internal/check"
)

// ExpectedCSVFiles requires a directory to hold exactly the expected *.csv
// files. It implements check.DirectoryCheck.
type ExpectedCSVFiles struct {
	name     string
	expected []string
}

// NewExpectedCSVFiles creates a directory check. Relative expected paths are
// resolved against the directory at run time.
func NewExpectedCSVFiles(name string, expected ...string) *ExpectedCSVFiles {
	return &ExpectedCSVFiles{name: name, expected: expected}
}

func (d *ExpectedCSVFiles) Name() string { return d.name }

// Run lists dir and reports a mismatch through the policy's directory handler.
func (d *ExpectedCSVFiles) Run(ctx context.Context, policy check.Policy, dir string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", dir, err)
	}

	found, err := ListCSVFiles(abs)
	if err != nil {
		return err
	}

	expected := make([]string, 0, len(d.expected))
	for _, p := range d.expected {
		if !filepath.IsAbs(p) {
			p = filepath.Join(abs, p)
		}
		expected = append(expected, filepath.Clean(p))
	}

	diff := DiffFiles(expected, found)
	if diff.Matches() {
		return nil
	}
	return policy.DirectoryHandler().HandleDirectory(d, abs, diff.String())
}

// ListCSVFiles returns the absolute paths of the regular *.csv files directly
// inside dir, sorted.
func ListCSVFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read directory %s: %w", dir, err)
	}

	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".csv") {
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

// FileDiff is the comparison of an expected and a found file set. Each
// slice is sorted.
type FileDiff struct {
	ExpectedAndFound []string
	FoundNotExpected []string
	ExpectedNotFound []string
}

// DiffFiles compares two path sets. Duplicates are ignored.
func DiffFiles(expected, found []string) FileDiff {
	exp := toSet(expected)
	fnd := toSet(found)

	var diff FileDiff
	for p := range fnd {
		if _, ok := exp[p]; ok {
			diff.ExpectedAndFound = append(diff.ExpectedAndFound, p)
		} else {
			diff.FoundNotExpected = append(diff.FoundNotExpected, p)
		}
	}
	for p := range exp {
		if _, ok := fnd[p]; !ok {
			diff.ExpectedNotFound = append(diff.ExpectedNotFound, p)
		}
	}

	sort.Strings(diff.ExpectedAndFound)
	sort.Strings(diff.FoundNotExpected)
	sort.Strings(diff.ExpectedNotFound)
	return diff
}

// Matches reports whether both sets were equal.
func (d FileDiff) Matches() bool {
	return len(d.FoundNotExpected) == 0 && len(d.ExpectedNotFound) == 0
}

func (d FileDiff) String() string {
	return fmt.Sprintf("CSV files expected and found: %s\nCSV files found but not expected: %s\nCSV files expected but not found: %s",
		check.FormatRow(d.ExpectedAndFound), check.FormatRow(d.FoundNotExpected), check.FormatRow(d.ExpectedNotFound))
}

func toSet(paths []string) map[string]struct{} {
	set := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		set[p] = struct{}{}
	}
	return set
}
