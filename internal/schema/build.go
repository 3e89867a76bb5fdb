package schema

import (
	"fmt"
	"path/filepath"
	"time"

	"fortio.org/safecast"

	"github.com/JonMunkholm/datacheck/internal/check"
	"github.com/JonMunkholm/datacheck/internal/driver"
)

// Plan is a dataset bound to a directory and a reference store, ready to run.
// Columns keep sequence state, so a Plan must be built once per run.
type Plan struct {
	Dataset   Dataset
	Dir       string
	Directory *driver.ExpectedCSVFiles // nil unless StrictDirectory
	Files     []*driver.CSVFile
}

// Build validates the dataset and turns it into driver checks rooted at dir.
// Every reference is created in store.
func Build(d Dataset, dir string, store check.Store) (*Plan, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", dir, err)
	}

	plan := &Plan{Dataset: d, Dir: abs}
	expected := make([]string, 0, len(d.Files))

	for _, f := range d.Files {
		columns := make([]check.Column, 0, len(f.Columns))
		for _, c := range f.Columns {
			col, err := buildColumn(c, store)
			if err != nil {
				return nil, fmt.Errorf("file %q column %q: %w", f.Name, c.Name, err)
			}
			columns = append(columns, col)
		}

		opts := []driver.Option{driver.WithSeparator(d.SeparatorRune())}
		if d.Quoted {
			opts = append(opts, driver.Quoted())
		}
		if d.Header {
			opts = append(opts, driver.WithHeader(f.ColumnNames()...))
		}
		if f.AllowEmpty {
			opts = append(opts, driver.AllowEmpty())
		}

		path := f.Path
		if !filepath.IsAbs(path) {
			path = filepath.Join(abs, path)
		}
		plan.Files = append(plan.Files, driver.NewCSVFile(f.Name, path, columns, opts...))
		expected = append(expected, path)
	}

	if d.StrictDirectory {
		plan.Directory = driver.NewExpectedCSVFiles(d.Name, expected...)
	}
	return plan, nil
}

func buildColumn(c Column, store check.Store) (check.Column, error) {
	switch c.Type {
	case TypeInt:
		return buildInt(c, store)
	case TypeLong:
		return buildLong(c, store), nil
	case TypeString:
		col := check.String()
		if c.Pattern != "" {
			col.WithRegex(c.Pattern)
		}
		return wireText(col, c, store), nil
	case TypeEnum:
		return wireText(check.FiniteSet(c.Values...), c, store), nil
	case TypeEmail:
		return wireText(check.Email(), c, store), nil
	case TypeDate:
		return buildDate(c, store)
	case TypeURL:
		col := check.URL()
		if len(c.Schemes) > 0 {
			col.WithSchemes(c.Schemes...)
		}
		if c.AllSchemes != nil {
			col.AllowAllSchemes(*c.AllSchemes)
		}
		if c.Accents != nil {
			col.WithAccents(*c.Accents)
		}
		if c.Save != "" {
			col.SaveRefTo(check.NewRef[string](store, c.Save))
		}
		if c.Check != "" {
			col.CheckRefIn(check.NewRef[string](store, c.Check))
		}
		return col, nil
	default:
		return nil, fmt.Errorf("unknown type %q", c.Type)
	}
}

func buildInt(c Column, store check.Store) (check.Column, error) {
	conv := func(v int64) (int32, error) { return safecast.Conv[int32](v) }

	col := check.Int()
	if c.Min != nil {
		v, err := conv(*c.Min)
		if err != nil {
			return nil, fmt.Errorf("min: %w", err)
		}
		col.WithMin(v)
	}
	if c.Max != nil {
		v, err := conv(*c.Max)
		if err != nil {
			return nil, fmt.Errorf("max: %w", err)
		}
		col.WithMax(v)
	}
	if s := c.Consecutive; s != nil {
		first, err := conv(s.First)
		if err != nil {
			return nil, fmt.Errorf("consecutive.first: %w", err)
		}
		step, err := conv(s.Step)
		if err != nil {
			return nil, fmt.Errorf("consecutive.step: %w", err)
		}
		col.WithConsecutive(first, step)
	}
	if c.Save != "" {
		col.SaveRefTo(check.NewRef[int32](store, c.Save))
	}
	if c.Check != "" {
		col.CheckRefIn(check.NewRef[int32](store, c.Check))
	}
	return col, nil
}

func buildLong(c Column, store check.Store) check.Column {
	col := check.Long()
	if c.Min != nil {
		col.WithMin(*c.Min)
	}
	if c.Max != nil {
		col.WithMax(*c.Max)
	}
	if s := c.Consecutive; s != nil {
		col.WithConsecutive(s.First, s.Step)
	}
	if c.Save != "" {
		col.SaveRefTo(check.NewRef[int64](store, c.Save))
	}
	if c.Check != "" {
		col.CheckRefIn(check.NewRef[int64](store, c.Check))
	}
	return col
}

func buildDate(c Column, store check.Store) (check.Column, error) {
	layout, err := check.ConvertDatePattern(c.Format)
	if err != nil {
		return nil, err
	}

	col := check.Date(c.Format)
	if c.Earliest != "" {
		t, err := time.ParseInLocation(layout, c.Earliest, time.UTC)
		if err != nil {
			return nil, fmt.Errorf("earliest: %w", err)
		}
		col.WithMin(t)
	}
	if c.Latest != "" {
		t, err := time.ParseInLocation(layout, c.Latest, time.UTC)
		if err != nil {
			return nil, fmt.Errorf("latest: %w", err)
		}
		col.WithMax(t)
	}
	if c.Save != "" {
		col.SaveRefTo(check.NewRef[time.Time](store, c.Save))
	}
	if c.Check != "" {
		col.CheckRefIn(check.NewRef[time.Time](store, c.Check))
	}
	return col, nil
}

func wireText(col *check.StringColumn, c Column, store check.Store) check.Column {
	if c.Accents != nil {
		col.WithAccents(*c.Accents)
	}
	if c.Save != "" {
		col.SaveRefTo(check.NewRef[string](store, c.Save))
	}
	if c.Check != "" {
		col.CheckRefIn(check.NewRef[string](store, c.Check))
	}
	return col
}
