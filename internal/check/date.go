package check

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// DateColumn parses values with a fixed layout. Parse success is the main
// rule; an inclusive range may be added with WithMin/WithMax.
type DateColumn struct {
	refs[time.Time]

	layout  string
	pattern string
	loc     *time.Location

	min, max       time.Time
	hasMin, hasMax bool
}

// Date returns a column parsing values in a yyyy-MM-dd style pattern.
// It panics on pattern letters it does not support; use ConvertDatePattern
// to validate untrusted patterns first.
func Date(pattern string) *DateColumn {
	layout, err := ConvertDatePattern(pattern)
	if err != nil {
		panic(err)
	}
	c := DateLayout(layout)
	c.pattern = pattern
	return c
}

// DateLayout returns a column parsing values with a Go reference layout.
func DateLayout(layout string) *DateColumn {
	return &DateColumn{
		refs:    newRefs[time.Time](),
		layout:  layout,
		pattern: layout,
		loc:     time.UTC,
	}
}

// In sets the location used for values without an explicit zone.
func (c *DateColumn) In(loc *time.Location) *DateColumn {
	if loc != nil {
		c.loc = loc
	}
	return c
}

// WithMin enables the earliest allowed value (inclusive).
func (c *DateColumn) WithMin(t time.Time) *DateColumn {
	c.min, c.hasMin = t, true
	return c
}

// WithMax enables the latest allowed value (inclusive).
func (c *DateColumn) WithMax(t time.Time) *DateColumn {
	c.max, c.hasMax = t, true
	return c
}

func (c *DateColumn) SaveRefTo(ref ColumnRef[time.Time]) *DateColumn {
	c.setSave(ref)
	return c
}

func (c *DateColumn) CheckRefIn(ref ColumnRef[time.Time]) *DateColumn {
	c.setCheck(ref)
	return c
}

// Layout returns the Go layout the column parses with.
func (c *DateColumn) Layout() string { return c.layout }

func (c *DateColumn) Parse(raw string) (time.Time, error) {
	t, err := time.ParseInLocation(c.layout, raw, c.loc)
	if err != nil {
		return time.Time{}, &ParseError{
			Text:   raw,
			Reason: fmt.Sprintf("%s has invalid date format", raw),
			Err:    err,
		}
	}
	return t, nil
}

func (c *DateColumn) Check(ctx context.Context, h ColumnHandler, raw string) error {
	return c.run(ctx, h, raw, c.Parse, c.validate)
}

func (c *DateColumn) validate(_ context.Context, h ColumnHandler, raw string, v time.Time) error {
	if (c.hasMin && v.Before(c.min)) || (c.hasMax && v.After(c.max)) {
		msg := fmt.Sprintf("%s outside of range (%s,%s)", raw, c.dateBound(c.min, c.hasMin), c.dateBound(c.max, c.hasMax))
		return h.HandleColumn(CodeDateRange, raw, msg)
	}
	return nil
}

func (c *DateColumn) dateBound(t time.Time, set bool) string {
	if !set {
		return "none"
	}
	return t.In(c.loc).Format(c.layout)
}

// datePatternTokens maps runs of a pattern letter to Go layout elements.
// Keys are letter + run length; a run without an exact entry falls back to
// the longest shorter entry for the same letter. Years are handled apart:
// two letters mean a two-digit year, any other run a full year.
var datePatternTokens = map[string]string{
	"M1": "1", "M2": "01", "M3": "Jan", "M4": "January",
	"d1": "2", "d2": "02",
	"E1": "Mon", "E4": "Monday",
	"H1": "15", "H2": "15",
	"h1": "3", "h2": "03",
	"m1": "4", "m2": "04",
	"s1": "5", "s2": "05",
	"a1": "PM",
	"Z1": "-0700", "Z5": "-07:00",
	"X1": "-07", "X2": "-0700", "X3": "-07:00",
	"z1": "MST",
}

// ConvertDatePattern turns a yyyy-MM-dd'T'HH:mm:ss.SSSZ style pattern into
// a Go reference layout. Text in single quotes is literal and '' is a quote.
func ConvertDatePattern(pattern string) (string, error) {
	var b strings.Builder
	rs := []rune(pattern)

	for i := 0; i < len(rs); {
		r := rs[i]

		if r == '\'' {
			if i+1 < len(rs) && rs[i+1] == '\'' {
				b.WriteRune('\'')
				i += 2
				continue
			}
			end := i + 1
			for end < len(rs) && rs[end] != '\'' {
				end++
			}
			if end >= len(rs) {
				return "", fmt.Errorf("date pattern %q: unterminated quote", pattern)
			}
			literal := string(rs[i+1 : end])
			if err := checkLiteral(pattern, literal); err != nil {
				return "", err
			}
			b.WriteString(literal)
			i = end + 1
			continue
		}

		if !isASCIILetter(r) {
			if err := checkLiteral(pattern, string(r)); err != nil {
				return "", err
			}
			b.WriteRune(r)
			i++
			continue
		}

		n := 1
		for i+n < len(rs) && rs[i+n] == r {
			n++
		}

		switch r {
		case 'y':
			if n == 2 {
				b.WriteString("06")
			} else {
				b.WriteString("2006")
			}
			i += n
			continue
		case 'S':
			// Go only reads fractional seconds right after a '.' or ','.
			if prev := b.String(); prev == "" || (prev[len(prev)-1] != '.' && prev[len(prev)-1] != ',') {
				return "", fmt.Errorf("date pattern %q: fractional seconds must follow '.' or ','", pattern)
			}
			b.WriteString(strings.Repeat("0", n))
			i += n
			continue
		}

		elem, ok := lookupDateToken(r, n)
		if !ok {
			return "", fmt.Errorf("date pattern %q: unsupported letter %q", pattern, r)
		}
		b.WriteString(elem)
		i += n
	}

	return b.String(), nil
}

func lookupDateToken(r rune, n int) (string, bool) {
	for k := n; k >= 1; k-- {
		if elem, ok := datePatternTokens[fmt.Sprintf("%c%d", r, k)]; ok {
			return elem, true
		}
	}
	return "", false
}

// layoutWords are the alphabetic Go layout elements; digits are rejected
// separately since every digit starts some layout element.
var layoutWords = []string{"Jan", "Mon", "MST", "PM", "pm"}

// checkLiteral rejects literal text that Go would read as a layout element.
func checkLiteral(pattern, literal string) error {
	if strings.ContainsAny(literal, "0123456789") {
		return fmt.Errorf("date pattern %q: literal %q contains digits", pattern, literal)
	}
	for _, w := range layoutWords {
		if strings.Contains(literal, w) {
			return fmt.Errorf("date pattern %q: literal %q contains layout element %q", pattern, literal, w)
		}
	}
	return nil
}

func isASCIILetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}
