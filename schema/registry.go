package schema

import (
	"fmt"
	"sort"
	"sync"
)

// Registry maps table names to defined tables. It is an explicit value
// owned by whichever component performs schema binding; its lifecycle is
// controlled by that owner through Register, Unregister, and Clear.
type Registry struct {
	mu     sync.RWMutex
	tables map[string]*Table
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{tables: make(map[string]*Table)}
}

// Register inserts a table under its name. Registering a second table
// with the same name is an error; Unregister the old one first.
func (r *Registry) Register(t *Table) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tables[t.name]; exists {
		return fmt.Errorf("schema: table %q already registered", t.name)
	}
	r.tables[t.name] = t
	return nil
}

// Get returns the table registered under name.
func (r *Registry) Get(name string) (*Table, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tables[name]
	return t, ok
}

// Unregister removes a table by name and reports whether it was present.
func (r *Registry) Unregister(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.tables[name]
	delete(r.tables, name)
	return ok
}

// Clear removes every registered table.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tables = make(map[string]*Table)
}

// Len returns the number of registered tables.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tables)
}

// Names returns the registered table names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tables))
	for name := range r.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
