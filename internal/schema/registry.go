package schema

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"sync"
)

var (
	registry   = make(map[string]Dataset)
	registryMu sync.RWMutex
)

//go:embed datasets/*.yaml
var builtin embed.FS

func init() {
	entries, err := fs.ReadDir(builtin, "datasets")
	if err != nil {
		panic(fmt.Sprintf("read built-in datasets: %v", err))
	}
	for _, e := range entries {
		data, err := builtin.ReadFile(path.Join("datasets", e.Name()))
		if err != nil {
			panic(fmt.Sprintf("read built-in dataset %s: %v", e.Name(), err))
		}
		ds, err := Parse(data, FormatYAML)
		if err != nil {
			panic(fmt.Sprintf("built-in dataset %s: %v", e.Name(), err))
		}
		Register(ds)
	}
}

// Register adds a dataset to the registry.
// Panics if the dataset is invalid or a dataset with the same name is
// already registered.
func Register(ds Dataset) {
	if err := ds.Validate(); err != nil {
		panic(fmt.Sprintf("dataset %s: %v", ds.Name, err))
	}

	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[ds.Name]; exists {
		panic(fmt.Sprintf("dataset already registered: %s", ds.Name))
	}
	registry[ds.Name] = ds
}

// RegisterFile loads a schema document and registers it. Unlike Register it
// reports problems as errors, since the file comes from the user.
func RegisterFile(path string) (Dataset, error) {
	ds, err := Load(path)
	if err != nil {
		return Dataset{}, err
	}

	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[ds.Name]; exists {
		return Dataset{}, fmt.Errorf("%s: dataset already registered: %s", path, ds.Name)
	}
	registry[ds.Name] = ds
	return ds, nil
}

// Get returns a dataset by name.
// Returns false if not found.
func Get(name string) (Dataset, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	ds, ok := registry[name]
	return ds, ok
}

// All returns all registered datasets sorted by name.
func All() []Dataset {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]Dataset, 0, len(registry))
	for _, ds := range registry {
		result = append(result, ds)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

// Names returns the names of all registered datasets, sorted.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve returns the registered dataset called nameOrPath, or loads the
// schema file at that path.
func Resolve(nameOrPath string) (Dataset, error) {
	if ds, ok := Get(nameOrPath); ok {
		return ds, nil
	}
	if _, err := FormatOf(nameOrPath); err != nil {
		return Dataset{}, fmt.Errorf("unknown dataset %q", nameOrPath)
	}
	return Load(nameOrPath)
}

// unregister removes a dataset. Used by tests.
func unregister(name string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(registry, name)
}
