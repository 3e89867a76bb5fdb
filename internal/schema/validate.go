package schema

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"fortio.org/safecast"

	"github.com/JonMunkholm/datacheck/internal/check"
)

// Validate checks the whole document and returns an error describing every
// problem found, not only the first.
func (d Dataset) Validate() error {
	var errs []string

	if strings.TrimSpace(d.Name) == "" {
		errs = append(errs, "name is required")
	}
	if d.Separator != "" && utf8.RuneCountInString(d.Separator) != 1 {
		errs = append(errs, fmt.Sprintf("separator (%q) must be a single character", d.Separator))
	}
	if len(d.Files) == 0 {
		errs = append(errs, "at least one file is required")
	}

	saved := make(map[string]bool)
	for _, f := range d.Files {
		for _, c := range f.Columns {
			if c.Save != "" {
				saved[c.Save] = true
			}
		}
	}

	names := make(map[string]bool)
	paths := make(map[string]bool)
	for i, f := range d.Files {
		where := fmt.Sprintf("files[%d]", i)
		if f.Name != "" {
			where = fmt.Sprintf("file %q", f.Name)
		}

		if f.Name == "" {
			errs = append(errs, where+": name is required")
		} else if names[f.Name] {
			errs = append(errs, where+": duplicate file name")
		}
		names[f.Name] = true

		if f.Path == "" {
			errs = append(errs, where+": path is required")
		} else if paths[f.Path] {
			errs = append(errs, fmt.Sprintf("%s: path %q is used by another file", where, f.Path))
		}
		paths[f.Path] = true

		if len(f.Columns) == 0 {
			errs = append(errs, where+": at least one column is required")
		}

		for j, c := range f.Columns {
			col := fmt.Sprintf("%s column[%d]", where, j)
			if c.Name != "" {
				col = fmt.Sprintf("%s column %q", where, c.Name)
			}
			errs = append(errs, validateColumn(col, c)...)
			if c.Check != "" && !saved[c.Check] {
				errs = append(errs, fmt.Sprintf("%s: check reference %q is never saved", col, c.Check))
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

func validateColumn(col string, c Column) []string {
	var errs []string
	invalid := func(option string) {
		errs = append(errs, fmt.Sprintf("%s: %s is not valid for type %s", col, option, c.Type))
	}

	if c.Name == "" {
		errs = append(errs, col+": name is required")
	}

	numeric := c.Type == TypeInt || c.Type == TypeLong
	textual := c.Type == TypeString || c.Type == TypeEnum

	switch c.Type {
	case TypeInt, TypeLong, TypeString, TypeEnum, TypeDate, TypeEmail, TypeURL:
	case "":
		errs = append(errs, col+": type is required")
		return errs
	default:
		errs = append(errs, fmt.Sprintf("%s: unknown type %q", col, c.Type))
		return errs
	}

	if !numeric {
		if c.Min != nil {
			invalid("min")
		}
		if c.Max != nil {
			invalid("max")
		}
		if c.Consecutive != nil {
			invalid("consecutive")
		}
	}
	if c.Min != nil && c.Max != nil && *c.Min > *c.Max {
		errs = append(errs, fmt.Sprintf("%s: min (%d) must be <= max (%d)", col, *c.Min, *c.Max))
	}
	if c.Type == TypeInt {
		if c.Min != nil {
			if _, err := safecast.Conv[int32](*c.Min); err != nil {
				errs = append(errs, fmt.Sprintf("%s: min (%d) does not fit a 32-bit int", col, *c.Min))
			}
		}
		if c.Max != nil {
			if _, err := safecast.Conv[int32](*c.Max); err != nil {
				errs = append(errs, fmt.Sprintf("%s: max (%d) does not fit a 32-bit int", col, *c.Max))
			}
		}
		if s := c.Consecutive; s != nil {
			if _, err := safecast.Conv[int32](s.First); err != nil {
				errs = append(errs, fmt.Sprintf("%s: consecutive.first (%d) does not fit a 32-bit int", col, s.First))
			}
			if _, err := safecast.Conv[int32](s.Step); err != nil {
				errs = append(errs, fmt.Sprintf("%s: consecutive.step (%d) does not fit a 32-bit int", col, s.Step))
			}
		}
	}

	if c.Type != TypeString && c.Pattern != "" {
		invalid("pattern")
	}
	if c.Pattern != "" {
		if _, err := check.CompilePattern(c.Pattern); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", col, err))
		}
	}
	if c.Type == TypeEnum && len(c.Values) == 0 {
		errs = append(errs, col+": enum requires values")
	}
	if c.Type != TypeEnum && len(c.Values) > 0 {
		invalid("values")
	}
	if c.Accents != nil && !textual && c.Type != TypeURL {
		invalid("accents")
	}

	if c.Type == TypeDate {
		errs = append(errs, validateDate(col, c)...)
	} else {
		if c.Format != "" {
			invalid("format")
		}
		if c.Earliest != "" {
			invalid("earliest")
		}
		if c.Latest != "" {
			invalid("latest")
		}
	}

	if c.Type != TypeURL {
		if len(c.Schemes) > 0 {
			invalid("schemes")
		}
		if c.AllSchemes != nil {
			invalid("all_schemes")
		}
	}

	return errs
}

func validateDate(col string, c Column) []string {
	var errs []string

	if c.Format == "" {
		return append(errs, col+": date requires format")
	}
	layout, err := check.ConvertDatePattern(c.Format)
	if err != nil {
		return append(errs, fmt.Sprintf("%s: %v", col, err))
	}

	var earliest, latest time.Time
	if c.Earliest != "" {
		if earliest, err = time.ParseInLocation(layout, c.Earliest, time.UTC); err != nil {
			errs = append(errs, fmt.Sprintf("%s: earliest (%q) does not match format %s", col, c.Earliest, c.Format))
		}
	}
	if c.Latest != "" {
		if latest, err = time.ParseInLocation(layout, c.Latest, time.UTC); err != nil {
			errs = append(errs, fmt.Sprintf("%s: latest (%q) does not match format %s", col, c.Latest, c.Format))
		}
	}
	if !earliest.IsZero() && !latest.IsZero() && earliest.After(latest) {
		errs = append(errs, fmt.Sprintf("%s: earliest must not be after latest", col))
	}
	return errs
}

// Warnings reports problems that do not stop a run but usually indicate a
// mistake: a file that checks a reference before any file saves it will see
// every lookup fail.
func (d Dataset) Warnings() []string {
	var warnings []string
	saved := make(map[string]bool)

	for _, f := range d.Files {
		// References saved by this file are recorded row by row, before the
		// check of later columns on the same row.
		local := make(map[string]bool)
		for _, c := range f.Columns {
			if c.Check != "" && !saved[c.Check] && !local[c.Check] {
				warnings = append(warnings, fmt.Sprintf("file %q column %q checks reference %q before any earlier file saves it", f.Name, c.Name, c.Check))
			}
			if c.Save != "" {
				local[c.Save] = true
			}
		}
		for name := range local {
			saved[name] = true
		}
	}
	return warnings
}
