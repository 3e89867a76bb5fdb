package schema

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/datacheck/internal/check"
)

const yamlDoc = `
name: shop
separator: ","
header: true
files:
  - name: customer
    path: customer.csv
    columns:
      - name: id
        type: int
        min: 1
        consecutive: {first: 1, step: 1}
        save: customer.id
      - name: email
        type: email
  - name: order
    path: order.csv
    columns:
      - name: id
        type: long
      - name: customer
        type: long
        check: customer.id
      - name: status
        type: enum
        values: [open, shipped]
      - name: placed
        type: date
        format: yyyy-MM-dd
`

const tomlDoc = `
name = "shop"
separator = ","

[[files]]
name = "customer"
path = "customer.csv"

  [[files.columns]]
  name = "id"
  type = "int"
  save = "customer.id"

  [[files.columns]]
  name = "site"
  type = "url"
  schemes = ["https"]
`

const jsonDoc = `{
  "name": "shop",
  "files": [
    {"name": "customer", "path": "customer.csv", "columns": [
      {"name": "id", "type": "long", "max": 100},
      {"name": "name", "type": "string", "pattern": "[A-Z][a-z]+", "accents": false}
    ]}
  ]
}`

func TestParse_Formats(t *testing.T) {
	tests := []struct {
		name   string
		data   string
		format Format
		files  int
	}{
		{"yaml", yamlDoc, FormatYAML, 2},
		{"toml", tomlDoc, FormatTOML, 1},
		{"json", jsonDoc, FormatJSON, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ds, err := Parse([]byte(tt.data), tt.format)
			require.NoError(t, err)
			assert.Equal(t, "shop", ds.Name)
			assert.Len(t, ds.Files, tt.files)
			assert.NoError(t, ds.Validate())
		})
	}
}

func TestParse_DetailsSurvive(t *testing.T) {
	ds, err := Parse([]byte(yamlDoc), FormatYAML)
	require.NoError(t, err)

	id := ds.Files[0].Columns[0]
	require.NotNil(t, id.Min)
	assert.Equal(t, int64(1), *id.Min)
	require.NotNil(t, id.Consecutive)
	assert.Equal(t, Sequence{First: 1, Step: 1}, *id.Consecutive)
	assert.Equal(t, ',', ds.SeparatorRune())

	js, err := Parse([]byte(jsonDoc), FormatJSON)
	require.NoError(t, err)
	require.NotNil(t, js.Files[0].Columns[1].Accents)
	assert.False(t, *js.Files[0].Columns[1].Accents)
	assert.Equal(t, '|', js.SeparatorRune())
}

func TestParse_UnknownKeys(t *testing.T) {
	_, err := Parse([]byte("name: x\nbogus: 1\n"), FormatYAML)
	assert.Error(t, err)

	_, err = Parse([]byte("name = \"x\"\nbogus = 1\n"), FormatTOML)
	assert.ErrorContains(t, err, "bogus")

	_, err = Parse([]byte(`{"name":"x","bogus":1}`), FormatJSON)
	assert.Error(t, err)

	_, err = Parse([]byte(`{}`), Format("xml"))
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestFormatOf(t *testing.T) {
	for path, want := range map[string]Format{
		"a.yaml": FormatYAML, "a.YML": FormatYAML, "b.toml": FormatTOML, "c.json": FormatJSON,
	} {
		got, err := FormatOf(path)
		require.NoError(t, err)
		assert.Equal(t, want, got, path)
	}

	_, err := FormatOf("schema.txt")
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestValidate_CollectsEveryProblem(t *testing.T) {
	min, max := int64(5), int64(1)
	big := int64(1) << 40
	ds := Dataset{
		Separator: "||",
		Files: []File{{
			Name: "f",
			Path: "f.csv",
			Columns: []Column{
				{Name: "a", Type: "decimal"},
				{Name: "b", Type: TypeLong, Min: &min, Max: &max},
				{Name: "c", Type: TypeString, Pattern: "("},
				{Name: "d", Type: TypeEnum},
				{Name: "e", Type: TypeDate},
				{Name: "f", Type: TypeString, Check: "nowhere"},
				{Name: "g", Type: TypeDate, Format: "yyyy", Min: &min},
				{Name: "h", Type: TypeInt, Max: &big},
				{Name: "i", Type: TypeLong, Schemes: []string{"http"}},
			},
		}},
	}

	err := ds.Validate()
	require.Error(t, err)

	msg := err.Error()
	for _, want := range []string{
		"name is required",
		"separator",
		`unknown type "decimal"`,
		"min (5) must be <= max (1)",
		"compile pattern",
		"enum requires values",
		"date requires format",
		`check reference "nowhere" is never saved`,
		"min is not valid for type date",
		"does not fit a 32-bit int",
		"schemes is not valid for type long",
	} {
		assert.Contains(t, msg, want)
	}
}

func TestValidate_DuplicateFiles(t *testing.T) {
	col := []Column{{Name: "x", Type: TypeString}}
	ds := Dataset{Name: "d", Files: []File{
		{Name: "a", Path: "a.csv", Columns: col},
		{Name: "a", Path: "a.csv", Columns: col},
	}}
	err := ds.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate file name")
	assert.Contains(t, err.Error(), "is used by another file")
}

func TestWarnings_CheckBeforeSave(t *testing.T) {
	ds := Dataset{Name: "d", Files: []File{
		{Name: "knows", Path: "k.csv", Columns: []Column{{Name: "p", Type: TypeLong, Check: "person.id"}}},
		{Name: "person", Path: "p.csv", Columns: []Column{{Name: "id", Type: TypeLong, Save: "person.id"}}},
		{Name: "email", Path: "e.csv", Columns: []Column{{Name: "p", Type: TypeLong, Check: "person.id"}}},
	}}

	require.NoError(t, ds.Validate())
	w := ds.Warnings()
	require.Len(t, w, 1)
	assert.Contains(t, w[0], `file "knows"`)
}

func TestBuiltinRegistry(t *testing.T) {
	assert.Contains(t, Names(), "snb-social")

	ds, ok := Get("snb-social")
	require.True(t, ok)
	assert.True(t, ds.StrictDirectory)
	assert.Empty(t, ds.Warnings())

	_, ok = Get("missing")
	assert.False(t, ok)
}

func TestRegister_Duplicate(t *testing.T) {
	ds := Dataset{Name: "dup-test", Files: []File{{Name: "a", Path: "a.csv", Columns: []Column{{Name: "x", Type: TypeString}}}}}
	Register(ds)
	t.Cleanup(func() { unregister("dup-test") })

	assert.Panics(t, func() { Register(ds) })
	assert.Panics(t, func() { Register(Dataset{Name: "broken"}) })
}

func TestRegisterFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shop.toml")
	require.NoError(t, os.WriteFile(path, []byte(tomlDoc), 0o644))

	ds, err := RegisterFile(path)
	require.NoError(t, err)
	t.Cleanup(func() { unregister(ds.Name) })

	got, ok := Get("shop")
	require.True(t, ok)
	assert.Equal(t, "customer", got.Files[0].Name)

	_, err = RegisterFile(path)
	assert.ErrorContains(t, err, "already registered")

	_, err = RegisterFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestResolve(t *testing.T) {
	ds, err := Resolve("snb-social")
	require.NoError(t, err)
	assert.Equal(t, "snb-social", ds.Name)

	dir := t.TempDir()
	path := filepath.Join(dir, "shop.json")
	require.NoError(t, os.WriteFile(path, []byte(jsonDoc), 0o644))

	ds, err = Resolve(path)
	require.NoError(t, err)
	assert.Equal(t, "shop", ds.Name)

	_, err = Resolve("not-a-dataset")
	assert.Error(t, err)
}

func TestBuild_RunsAgainstFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "customer.csv"),
		[]byte("id,email\n1,a@example.com\n2,b@example.com\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "order.csv"),
		[]byte("id,customer,status,placed\n10,1,open,2024-01-02\n11,3,lost,2024-13-01\n"), 0o644))

	ds, err := Parse([]byte(yamlDoc), FormatYAML)
	require.NoError(t, err)

	plan, err := Build(ds, dir, check.NewMemoryStore())
	require.NoError(t, err)
	require.Len(t, plan.Files, 2)
	assert.Nil(t, plan.Directory)
	assert.Equal(t, filepath.Join(dir, "order.csv"), plan.Files[1].Path())

	p := check.Collect(0)
	for _, f := range plan.Files {
		_, err := f.Run(context.Background(), p)
		require.NoError(t, err)
	}

	codes := make([]check.Code, 0)
	for _, v := range p.Violations() {
		codes = append(codes, v.Code)
	}
	assert.Equal(t, []check.Code{check.CodeReference, check.CodePattern, check.CodeParse}, codes)
}

func TestBuild_StrictDirectory(t *testing.T) {
	ds := Dataset{Name: "d", StrictDirectory: true, Files: []File{
		{Name: "a", Path: "a.csv", Columns: []Column{{Name: "x", Type: TypeString}}},
	}}

	dir := t.TempDir()
	plan, err := Build(ds, dir, check.NewMemoryStore())
	require.NoError(t, err)
	require.NotNil(t, plan.Directory)

	err = plan.Directory.Run(context.Background(), check.Terminate(), dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected but not found: ["+filepath.Join(dir, "a.csv")+"]")
}

func TestBuild_InvalidDataset(t *testing.T) {
	_, err := Build(Dataset{}, t.TempDir(), check.NewMemoryStore())
	assert.Error(t, err)
}
