// Package schema describes datasets: which files a directory holds, the
// columns of each file and the rules every column must satisfy. A Dataset is
// decoded from YAML, TOML or JSON, validated as a whole and then built into a
// Plan of driver checks wired to a reference store.
package schema

// ColumnType is the value domain of a column.
type ColumnType string

const (
	TypeInt    ColumnType = "int"
	TypeLong   ColumnType = "long"
	TypeString ColumnType = "string"
	TypeEnum   ColumnType = "enum"
	TypeDate   ColumnType = "date"
	TypeEmail  ColumnType = "email"
	TypeURL    ColumnType = "url"
)

// ColumnTypes lists every supported type in documentation order.
var ColumnTypes = []ColumnType{TypeInt, TypeLong, TypeString, TypeEnum, TypeDate, TypeEmail, TypeURL}

// Dataset is the root of a schema document.
type Dataset struct {
	Name        string `yaml:"name" toml:"name" json:"name"`
	Description string `yaml:"description,omitempty" toml:"description" json:"description,omitempty"`

	// Separator is a single character; "|" when empty.
	Separator       string `yaml:"separator,omitempty" toml:"separator" json:"separator,omitempty"`
	// Quoted enables RFC 4180 quoting.
	Quoted          bool   `yaml:"quoted,omitempty" toml:"quoted" json:"quoted,omitempty"`
	// Header requires the first line of each file to list the column names.
	Header          bool   `yaml:"header,omitempty" toml:"header" json:"header,omitempty"`
	// StrictDirectory requires the directory to hold exactly the declared files.
	StrictDirectory bool   `yaml:"strict_directory,omitempty" toml:"strict_directory" json:"strict_directory,omitempty"`

	Files []File `yaml:"files" toml:"files" json:"files"`
}

// File is one delimited file of the dataset. Path is relative to the dataset
// directory. Files are checked in order, so a file that saves a reference
// must come before files that check it.
type File struct {
	Name       string   `yaml:"name" toml:"name" json:"name"`
	Path       string   `yaml:"path" toml:"path" json:"path"`
	AllowEmpty bool     `yaml:"allow_empty,omitempty" toml:"allow_empty" json:"allow_empty,omitempty"`
	Columns    []Column `yaml:"columns" toml:"columns" json:"columns"`
}

// Column declares one field. Which options apply depends on Type.
type Column struct {
	Name string     `yaml:"name" toml:"name" json:"name"`
	Type ColumnType `yaml:"type" toml:"type" json:"type"`

	// int, long
	Min         *int64    `yaml:"min,omitempty" toml:"min" json:"min,omitempty"`
	Max         *int64    `yaml:"max,omitempty" toml:"max" json:"max,omitempty"`
	Consecutive *Sequence `yaml:"consecutive,omitempty" toml:"consecutive" json:"consecutive,omitempty"`

	// string, enum
	Pattern string   `yaml:"pattern,omitempty" toml:"pattern" json:"pattern,omitempty"`
	Values  []string `yaml:"values,omitempty" toml:"values" json:"values,omitempty"`

	// string, enum, url; accent sensitive unless set to false
	Accents *bool `yaml:"accents,omitempty" toml:"accents" json:"accents,omitempty"`

	// date; Format is yyyy-MM-dd style, bounds are written in Format
	Format   string `yaml:"format,omitempty" toml:"format" json:"format,omitempty"`
	Earliest string `yaml:"earliest,omitempty" toml:"earliest" json:"earliest,omitempty"`
	Latest   string `yaml:"latest,omitempty" toml:"latest" json:"latest,omitempty"`

	// url
	Schemes    []string `yaml:"schemes,omitempty" toml:"schemes" json:"schemes,omitempty"`
	AllSchemes *bool    `yaml:"all_schemes,omitempty" toml:"all_schemes" json:"all_schemes,omitempty"`

	// Reference wiring, any type
	Save  string `yaml:"save,omitempty" toml:"save" json:"save,omitempty"`
	Check string `yaml:"check,omitempty" toml:"check" json:"check,omitempty"`
}

// Sequence is an arithmetic progression first, first+step, ...
type Sequence struct {
	First int64 `yaml:"first" toml:"first" json:"first"`
	Step  int64 `yaml:"step" toml:"step" json:"step"`
}

// ColumnNames returns the names of the file's columns in order.
func (f File) ColumnNames() []string {
	names := make([]string, len(f.Columns))
	for i, c := range f.Columns {
		names[i] = c.Name
	}
	return names
}

// SeparatorRune returns the configured separator, defaulting to '|'.
func (d Dataset) SeparatorRune() rune {
	for _, r := range d.Separator {
		return r
	}
	return '|'
}
