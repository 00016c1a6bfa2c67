// Package registry holds the named virtual tables and the factories that
// build them.
package registry

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/txn2/mcp-vnstock/pkg/tables"
	"github.com/txn2/mcp-vnstock/pkg/vnstock"
)

// ErrUnknownFamily is returned when no factory is registered for a family.
var ErrUnknownFamily = errors.New("unknown table family")

// Factory builds a table of one family.
type Factory func(name string, r vnstock.Resource, deps tables.Deps) (tables.Table, error)

// TableConfig describes one table to create.
type TableConfig struct {
	Name     string `yaml:"name"`
	Family   string `yaml:"family"`
	Resource string `yaml:"resource"`
}

// Registry manages table registration.
type Registry struct {
	mu sync.RWMutex

	// Registered tables by name
	tables map[string]tables.Table

	// Factory functions by family
	factories map[tables.Family]Factory

	deps tables.Deps
}

// NewRegistry creates a registry whose factories receive deps.
func NewRegistry(deps tables.Deps) *Registry {
	return &Registry{
		tables:    make(map[string]tables.Table),
		factories: make(map[tables.Family]Factory),
		deps:      deps,
	}
}

// RegisterFactory registers a table factory for a family.
func (r *Registry) RegisterFactory(family tables.Family, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[family] = factory
}

// Register adds a table to the registry.
func (r *Registry) Register(t tables.Table) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tables[t.Name()]; exists {
		return fmt.Errorf("table %s already registered", t.Name())
	}
	r.tables[t.Name()] = t
	return nil
}

// CreateAndRegister creates a table from config and registers it.
func (r *Registry) CreateAndRegister(cfg TableConfig) error {
	r.mu.RLock()
	factory, ok := r.factories[tables.Family(cfg.Family)]
	r.mu.RUnlock()

	if !ok {
		return fmt.Errorf("table %s: %w: %q", cfg.Name, ErrUnknownFamily, cfg.Family)
	}

	res, err := vnstock.ParseResource(cfg.Resource)
	if err != nil {
		return fmt.Errorf("table %s: %w", cfg.Name, err)
	}

	t, err := factory(cfg.Name, res, r.deps)
	if err != nil {
		return fmt.Errorf("creating table %s/%s: %w", cfg.Family, cfg.Name, err)
	}

	return r.Register(t)
}

// Get retrieves a table by name.
func (r *Registry) Get(name string) (tables.Table, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tables[name]
	return t, ok
}

// GetByFamily retrieves all tables of a family, ordered by name.
func (r *Registry) GetByFamily(family tables.Family) []tables.Table {
	var result []tables.Table
	for _, t := range r.All() {
		if t.Family() == family {
			result = append(result, t)
		}
	}
	return result
}

// All returns all registered tables ordered by name.
func (r *Registry) All() []tables.Table {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]tables.Table, 0, len(r.tables))
	for _, t := range r.tables {
		result = append(result, t)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name() < result[j].Name() })
	return result
}

// Names returns all table names in order.
func (r *Registry) Names() []string {
	all := r.All()
	names := make([]string, len(all))
	for i, t := range all {
		names[i] = t.Name()
	}
	return names
}
