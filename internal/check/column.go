// Package check is the column-validation engine: typed columns that parse and
// validate raw field text, named references that express referential
// integrity across columns and files, and the failure policies that decide
// whether a violation stops a run.
//
// Columns never return violations directly. Every failure is routed through
// the ColumnHandler passed to Check, and Check returns whatever the handler
// returns. A column instance keeps a running sequence counter when configured
// with WithConsecutive, so it must only be fed one ordered row stream.
//
// Usage:
//
//	store := check.NewMemoryStore()
//	personID := check.NewRef[int64](store, "person.id")
//
//	id := check.Long().WithMin(0).SaveRefTo(personID)
//	knows := check.Long().CheckRefIn(personID)
//
//	policy := check.Terminate()
//	h := policy.ColumnHandler(fileCheck, line, row)
//	if err := id.Check(ctx, h, row[0]); err != nil {
//	    return err
//	}
package check

import (
	"context"
	"fmt"
)

// Column validates the raw text of one schema field.
type Column interface {
	Check(ctx context.Context, h ColumnHandler, raw string) error
}

// refs carries the reference wiring shared by every column type.
type refs[T any] struct {
	save  ColumnRef[T]
	check ColumnRef[T]
	// checkRefs is only set by CheckRefIn; unconfigured columns skip the
	// membership test entirely.
	checkRefs bool
}

func newRefs[T any]() refs[T] {
	return refs[T]{
		save:  Nothing[T]("save"),
		check: Nothing[T]("check"),
	}
}

func (r *refs[T]) setSave(ref ColumnRef[T]) {
	if ref == nil {
		ref = Nothing[T]("save")
	}
	r.save = ref
}

func (r *refs[T]) setCheck(ref ColumnRef[T]) {
	if ref == nil {
		r.check = Nothing[T]("check")
		r.checkRefs = false
		return
	}
	r.check = ref
	r.checkRefs = true
}

// run is the shared field pipeline: parse, record, membership, validate.
func (r *refs[T]) run(
	ctx context.Context,
	h ColumnHandler,
	raw string,
	parse func(string) (T, error),
	validate func(ctx context.Context, h ColumnHandler, raw string, v T) error,
) error {
	v, err := parse(raw)
	if err != nil {
		return h.HandleColumn(CodeParse, raw, fmt.Sprintf("Failed to parse [%s] - %v", raw, err))
	}

	if err := r.save.Record(ctx, v); err != nil {
		return fmt.Errorf("record value in ref %s: %w", r.save.Name(), err)
	}

	if r.checkRefs {
		found, err := r.check.Contains(ctx, v)
		if err != nil {
			return fmt.Errorf("look up value in ref %s: %w", r.check.Name(), err)
		}
		if !found {
			msg := fmt.Sprintf("Value %s not found in ColumnRef[%s]", formatValue(v), r.check.Name())
			if err := h.HandleColumn(CodeReference, raw, msg); err != nil {
				return err
			}
		}
	}

	if validate == nil {
		return nil
	}
	return validate(ctx, h, raw, v)
}

func formatValue[T any](v T) string {
	return keyOf(v)
}
