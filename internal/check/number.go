package check

import (
	"context"
	"fmt"
	"strconv"
)

// Integer is the set of value types a NumberColumn can produce.
type Integer interface {
	~int32 | ~int64
}

// NumberColumn validates base-10 integers with optional inclusive bounds and
// an optional arithmetic-sequence rule.
type NumberColumn[N Integer] struct {
	refs[N]
	bitSize int

	min, max       N
	hasMin, hasMax bool

	consecutive bool
	next        N
	step        N
}

// Int returns a column of 32-bit integers.
func Int() *NumberColumn[int32] {
	return &NumberColumn[int32]{refs: newRefs[int32](), bitSize: 32}
}

// Long returns a column of 64-bit integers.
func Long() *NumberColumn[int64] {
	return &NumberColumn[int64]{refs: newRefs[int64](), bitSize: 64}
}

// WithMin enables the lower bound (inclusive).
func (c *NumberColumn[N]) WithMin(min N) *NumberColumn[N] {
	c.min, c.hasMin = min, true
	return c
}

// WithMax enables the upper bound (inclusive).
func (c *NumberColumn[N]) WithMax(max N) *NumberColumn[N] {
	c.max, c.hasMax = max, true
	return c
}

// WithConsecutive requires values first, first+step, first+2*step, ... in
// row order. The expected value advances after every parsed row, pass or fail.
func (c *NumberColumn[N]) WithConsecutive(first, step N) *NumberColumn[N] {
	c.consecutive = true
	c.next = first
	c.step = step
	return c
}

// SaveRefTo records every parsed value into ref.
func (c *NumberColumn[N]) SaveRefTo(ref ColumnRef[N]) *NumberColumn[N] {
	c.setSave(ref)
	return c
}

// CheckRefIn requires every parsed value to be present in ref.
func (c *NumberColumn[N]) CheckRefIn(ref ColumnRef[N]) *NumberColumn[N] {
	c.setCheck(ref)
	return c
}

// Next returns the value the consecutive rule expects on the next row.
func (c *NumberColumn[N]) Next() N { return c.next }

// Parse converts raw text to the column's integer type.
func (c *NumberColumn[N]) Parse(raw string) (N, error) {
	n, err := strconv.ParseInt(raw, 10, c.bitSize)
	if err != nil {
		return 0, &ParseError{Text: raw, Reason: numError(err), Err: err}
	}
	return N(n), nil
}

func (c *NumberColumn[N]) Check(ctx context.Context, h ColumnHandler, raw string) error {
	return c.run(ctx, h, raw, c.Parse, c.validate)
}

func (c *NumberColumn[N]) validate(_ context.Context, h ColumnHandler, raw string, v N) error {
	if (c.hasMin && v < c.min) || (c.hasMax && v > c.max) {
		msg := fmt.Sprintf("%d outside of range (%s,%s)", v, bound(c.min, c.hasMin), bound(c.max, c.hasMax))
		if err := h.HandleColumn(CodeRange, raw, msg); err != nil {
			return err
		}
	}

	if c.consecutive {
		expected := c.next
		c.next += c.step
		if v != expected {
			msg := fmt.Sprintf("Values should be consecutive, expected %d found %d", expected, v)
			if err := h.HandleColumn(CodeConsecutive, raw, msg); err != nil {
				return err
			}
		}
	}
	return nil
}

func bound[N Integer](v N, set bool) string {
	if !set {
		return "none"
	}
	return strconv.FormatInt(int64(v), 10)
}

func numError(err error) string {
	if ne, ok := err.(*strconv.NumError); ok {
		switch ne.Err {
		case strconv.ErrRange:
			return "value out of range for type"
		case strconv.ErrSyntax:
			return "invalid number format"
		}
	}
	return err.Error()
}
