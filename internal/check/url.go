package check

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"unicode"
)

// DefaultSchemes are the schemes a URL column lists unless configured otherwise.
var DefaultSchemes = []string{"http", "https"}

var (
	urlPathPattern  = regexp.MustCompile(`^(/[-\w:@&?=+,.!/~*'%$_;()]*)?$`)
	hostLabel       = regexp.MustCompile(`^[A-Za-z0-9]([A-Za-z0-9-]{0,61}[A-Za-z0-9])?$`)
	topLevelPattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9-]*$`)
	schemePattern   = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9+.-]*$`)
)

// URLColumn validates absolute URLs.
type URLColumn struct {
	refs[string]

	schemes     []string
	allSchemes  bool
	keepAccents bool
}

// URL returns a column accepting http and https URLs, with every other
// syntactically valid scheme allowed too. Call WithSchemes to restrict it.
func URL() *URLColumn {
	return &URLColumn{
		refs:        newRefs[string](),
		schemes:     slices.Clone(DefaultSchemes),
		allSchemes:  true,
		keepAccents: true,
	}
}

// WithSchemes limits the column to the given schemes (case-insensitive).
func (c *URLColumn) WithSchemes(schemes ...string) *URLColumn {
	c.schemes = c.schemes[:0]
	for _, s := range schemes {
		c.schemes = append(c.schemes, strings.ToLower(s))
	}
	c.allSchemes = false
	return c
}

// AllowAllSchemes toggles acceptance of schemes outside the list.
func (c *URLColumn) AllowAllSchemes(all bool) *URLColumn {
	c.allSchemes = all
	return c
}

// WithAccents controls accent sensitivity. With keep=false, nonspacing marks
// are stripped and dash variants folded to '-' before validation.
func (c *URLColumn) WithAccents(keep bool) *URLColumn {
	c.keepAccents = keep
	return c
}

func (c *URLColumn) SaveRefTo(ref ColumnRef[string]) *URLColumn {
	c.setSave(ref)
	return c
}

func (c *URLColumn) CheckRefIn(ref ColumnRef[string]) *URLColumn {
	c.setCheck(ref)
	return c
}

// Schemes returns the configured scheme list.
func (c *URLColumn) Schemes() []string { return slices.Clone(c.schemes) }

func (c *URLColumn) Parse(raw string) (string, error) { return raw, nil }

func (c *URLColumn) Check(ctx context.Context, h ColumnHandler, raw string) error {
	return c.run(ctx, h, raw, c.Parse, c.validate)
}

func (c *URLColumn) validate(_ context.Context, h ColumnHandler, raw string, v string) error {
	if !c.keepAccents {
		v = stripMarksForURL(v)
	}
	if err := c.Valid(v); err != nil {
		return h.HandleColumn(CodeURL, raw, fmt.Sprintf("Invalid URL: %s", v))
	}
	return nil
}

// Valid reports why s is not an acceptable URL, or nil.
func (c *URLColumn) Valid(s string) error {
	if s == "" {
		return fmt.Errorf("empty url")
	}
	for _, r := range s {
		if r > unicode.MaxASCII || unicode.IsSpace(r) || unicode.IsControl(r) {
			return fmt.Errorf("url contains %q", r)
		}
	}

	u, err := url.Parse(s)
	if err != nil {
		return err
	}
	if u.Scheme == "" || !schemePattern.MatchString(u.Scheme) {
		return fmt.Errorf("missing or malformed scheme")
	}
	if !c.allSchemes && !slices.Contains(c.schemes, strings.ToLower(u.Scheme)) {
		return fmt.Errorf("scheme %q not allowed", u.Scheme)
	}
	if u.Opaque != "" {
		return fmt.Errorf("opaque urls are not accepted")
	}

	if err := validHost(u.Hostname()); err != nil {
		return err
	}
	if port := u.Port(); port != "" {
		n, err := strconv.Atoi(port)
		if err != nil || n > 65535 {
			return fmt.Errorf("invalid port %q", port)
		}
	} else if strings.HasSuffix(u.Host, ":") {
		return fmt.Errorf("empty port")
	}

	path := u.EscapedPath()
	if !urlPathPattern.MatchString(path) || strings.Contains(path, "//") || strings.Contains(path, "/..") {
		return fmt.Errorf("invalid path %q", path)
	}
	return nil
}

func validHost(host string) error {
	if host == "" {
		return fmt.Errorf("missing host")
	}
	if net.ParseIP(host) != nil || strings.EqualFold(host, "localhost") {
		return nil
	}

	labels := strings.Split(strings.TrimSuffix(host, "."), ".")
	if len(labels) < 2 {
		return fmt.Errorf("host %q has no domain", host)
	}
	for _, l := range labels {
		if !hostLabel.MatchString(l) {
			return fmt.Errorf("invalid host label %q", l)
		}
	}
	if !topLevelPattern.MatchString(labels[len(labels)-1]) {
		return fmt.Errorf("invalid top-level domain in %q", host)
	}
	return nil
}
