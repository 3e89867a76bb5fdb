package check

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// EmailPattern is the pattern Email columns match against.
const EmailPattern = `^\w+([\.\-]\w+)*@\w+([\.\-]\w+)*\.\w{2,4}$`

// StringColumn passes raw text through unchanged and optionally requires it
// to fully match a regular expression.
type StringColumn struct {
	refs[string]

	pattern     *regexp.Regexp
	expr        string
	label       string
	keepAccents bool
}

// String returns an unconstrained text column.
func String() *StringColumn {
	return &StringColumn{refs: newRefs[string](), label: "string", keepAccents: true}
}

// FiniteSet returns a text column that accepts exactly the given literals.
func FiniteSet(values ...string) *StringColumn {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = regexp.QuoteMeta(v)
	}
	return String().WithRegex(strings.Join(quoted, "|"))
}

// Email returns a text column that requires local@domain.tld shaped values.
func Email() *StringColumn {
	c := String().WithRegex(EmailPattern)
	c.label = "email address"
	return c
}

// WithRegex requires the whole value to match expr. It panics if expr does
// not compile; use CompilePattern to validate untrusted expressions first.
func (c *StringColumn) WithRegex(expr string) *StringColumn {
	re, err := CompilePattern(expr)
	if err != nil {
		panic(err)
	}
	c.pattern = re
	c.expr = expr
	return c
}

// WithAccents controls accent sensitivity. With keep=false, combining
// diacritical marks are stripped before matching.
func (c *StringColumn) WithAccents(keep bool) *StringColumn {
	c.keepAccents = keep
	return c
}

func (c *StringColumn) SaveRefTo(ref ColumnRef[string]) *StringColumn {
	c.setSave(ref)
	return c
}

func (c *StringColumn) CheckRefIn(ref ColumnRef[string]) *StringColumn {
	c.setCheck(ref)
	return c
}

// Pattern returns the configured expression, or "" when unconstrained.
func (c *StringColumn) Pattern() string { return c.expr }

// Parse never fails for text.
func (c *StringColumn) Parse(raw string) (string, error) { return raw, nil }

func (c *StringColumn) Check(ctx context.Context, h ColumnHandler, raw string) error {
	return c.run(ctx, h, raw, c.Parse, c.validate)
}

func (c *StringColumn) validate(_ context.Context, h ColumnHandler, raw string, v string) error {
	if c.pattern == nil {
		return nil
	}
	if !c.keepAccents {
		v = stripDiacritics(v)
	}
	if c.pattern.MatchString(v) {
		return nil
	}
	msg := fmt.Sprintf("Invalid %s pattern, expected: %s", c.label, c.expr)
	if v != raw {
		msg = fmt.Sprintf("Invalid %s pattern for [%s], expected: %s", c.label, v, c.expr)
	}
	return h.HandleColumn(CodePattern, raw, msg)
}

// CompilePattern compiles expr so that it must match the entire input.
func CompilePattern(expr string) (*regexp.Regexp, error) {
	re, err := regexp.Compile(`^(?:` + expr + `)$`)
	if err != nil {
		return nil, fmt.Errorf("compile pattern %q: %w", expr, err)
	}
	return re, nil
}
