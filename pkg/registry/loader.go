package registry

import (
	"fmt"
	"sort"
)

// LoaderConfig holds configuration for loading tables.
type LoaderConfig struct {
	// DisableBuiltins skips the default table set.
	DisableBuiltins bool `yaml:"disable_builtins"`

	// Extra declares additional tables by name.
	Extra map[string]ExtraTable `yaml:"extra"`
}

// ExtraTable binds a table name to a family and resource.
type ExtraTable struct {
	Family   string `yaml:"family"`
	Resource string `yaml:"resource"`
}

// Loader loads tables from configuration.
type Loader struct {
	registry *Registry
}

// NewLoader creates a new table loader.
func NewLoader(registry *Registry) *Loader {
	return &Loader{registry: registry}
}

// Load registers the builtin tables followed by the configured extras.
func (l *Loader) Load(cfg LoaderConfig) error {
	if !cfg.DisableBuiltins {
		for _, tc := range Builtins() {
			if err := l.registry.CreateAndRegister(tc); err != nil {
				return fmt.Errorf("loading builtin table %s: %w", tc.Name, err)
			}
		}
	}

	names := make([]string, 0, len(cfg.Extra))
	for name := range cfg.Extra {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		extra := cfg.Extra[name]
		tc := TableConfig{Name: name, Family: extra.Family, Resource: extra.Resource}
		if err := l.registry.CreateAndRegister(tc); err != nil {
			return fmt.Errorf("loading table %s: %w", name, err)
		}
	}

	return nil
}
