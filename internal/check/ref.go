package check

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"
)

// Store is a table of named, append-only sets of value keys. It is shared
// by every column wired to the same reference name for the whole run.
type Store interface {
	Add(ctx context.Context, name, key string) error
	Has(ctx context.Context, name, key string) (bool, error)
	Len(ctx context.Context, name string) (int64, error)
}

// ColumnRef is a named reference that columns record values into or test
// membership against.
type ColumnRef[T any] interface {
	Name() string
	Record(ctx context.Context, v T) error
	Contains(ctx context.Context, v T) (bool, error)
}

// Ref is a ColumnRef backed by a Store. Values are keyed by their canonical
// string form, so an Int column and a Long column can share one reference.
type Ref[T any] struct {
	name  string
	store Store
}

// NewRef returns the reference called name inside store. Calling NewRef twice
// with the same store and name yields views of the same set.
func NewRef[T any](store Store, name string) *Ref[T] {
	return &Ref[T]{name: name, store: store}
}

func (r *Ref[T]) Name() string { return r.name }

// Record adds v to the set.
func (r *Ref[T]) Record(ctx context.Context, v T) error {
	return r.store.Add(ctx, r.name, keyOf(v))
}

// Contains reports whether v was recorded earlier in the run.
func (r *Ref[T]) Contains(ctx context.Context, v T) (bool, error) {
	return r.store.Has(ctx, r.name, keyOf(v))
}

// nothingRef is the default reference of an unconfigured column. It records
// nothing and, if ever asked, reports every value as present.
type nothingRef[T any] struct{ name string }

// Nothing returns a reference that discards records and contains everything.
func Nothing[T any](name string) ColumnRef[T] { return nothingRef[T]{name: name} }

func (n nothingRef[T]) Name() string { return n.name }

func (n nothingRef[T]) Record(context.Context, T) error { return nil }

func (n nothingRef[T]) Contains(context.Context, T) (bool, error) { return true, nil }

func keyOf[T any](v T) string {
	switch x := any(v).(type) {
	case string:
		return x
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case int64:
		return strconv.FormatInt(x, 10)
	case time.Time:
		return x.UTC().Format(time.RFC3339Nano)
	default:
		return fmt.Sprint(x)
	}
}

// MemoryStore keeps every reference set in process memory.
type MemoryStore struct {
	mu   sync.RWMutex
	sets map[string]map[string]struct{}
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sets: make(map[string]map[string]struct{})}
}

func (s *MemoryStore) Add(_ context.Context, name, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	set, ok := s.sets[name]
	if !ok {
		set = make(map[string]struct{})
		s.sets[name] = set
	}
	set[key] = struct{}{}
	return nil
}

func (s *MemoryStore) Has(_ context.Context, name, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.sets[name][key]
	return ok, nil
}

func (s *MemoryStore) Len(_ context.Context, name string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.sets[name])), nil
}

// Names returns the reference names that hold at least one value, sorted.
func (s *MemoryStore) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.sets))
	for name := range s.sets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
