package schema

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

// Format is the encoding of a schema document.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
	FormatJSON Format = "json"
)

// ErrUnknownFormat is returned for file extensions Load does not recognize.
var ErrUnknownFormat = errors.New("unknown schema format")

// FormatOf picks the format from a file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%s: %w", path, ErrUnknownFormat)
	}
}

// Load reads, decodes and validates a schema document.
func Load(path string) (Dataset, error) {
	format, err := FormatOf(path)
	if err != nil {
		return Dataset{}, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Dataset{}, fmt.Errorf("read schema: %w", err)
	}

	ds, err := Parse(data, format)
	if err != nil {
		return Dataset{}, fmt.Errorf("%s: %w", path, err)
	}
	if err := ds.Validate(); err != nil {
		return Dataset{}, fmt.Errorf("%s: %w", path, err)
	}
	return ds, nil
}

// Parse decodes a schema document. Unknown keys are rejected in every
// format. The result is not validated.
func Parse(data []byte, format Format) (Dataset, error) {
	var ds Dataset

	switch format {
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&ds); err != nil {
			return Dataset{}, fmt.Errorf("failed to parse YAML: %w", err)
		}

	case FormatTOML:
		meta, err := toml.Decode(string(data), &ds)
		if err != nil {
			return Dataset{}, fmt.Errorf("failed to parse TOML: %w", err)
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, len(undecoded))
			for i, k := range undecoded {
				keys[i] = k.String()
			}
			return Dataset{}, fmt.Errorf("failed to parse TOML: unknown keys %s", strings.Join(keys, ", "))
		}

	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&ds); err != nil {
			return Dataset{}, fmt.Errorf("failed to parse JSON: %w", err)
		}

	default:
		return Dataset{}, fmt.Errorf("%q: %w", format, ErrUnknownFormat)
	}

	return ds, nil
}
