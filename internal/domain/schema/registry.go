package schema

import (
	"fmt"
	"os"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

// Registry holds schemas by name. It is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	schemas map[string]*Schema
}

// NewRegistry returns a registry preloaded with the built-in schemas.
func NewRegistry() *Registry {
	r := &Registry{schemas: make(map[string]*Schema)}
	for _, s := range []*Schema{Evaluation(), Critique(), TestCase()} {
		r.schemas[s.Name] = s
	}
	return r
}

// Register adds s, replacing any schema with the same name.
func (r *Registry) Register(s *Schema) error {
	if s == nil {
		return fmt.Errorf("%w: nil schema", ErrInvalidSchema)
	}
	if err := s.Check(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.schemas[s.Name] = s
	return nil
}

// Get returns the schema registered under name.
func (r *Registry) Get(name string) (*Schema, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.schemas[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSchema, name)
	}
	return s, nil
}

// Names returns the registered schema names in lexical order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.schemas))
	for n := range r.schemas {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// file is the layout of a schema definition file.
type file struct {
	Schemas []*Schema `yaml:"schemas"`
}

// LoadYAML registers every schema declared in data. Nothing is registered
// when any schema is invalid.
func (r *Registry) LoadYAML(data []byte) error {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("%w: decode: %v", ErrInvalidSchema, err)
	}
	for _, s := range f.Schemas {
		if s == nil {
			return fmt.Errorf("%w: empty schema entry", ErrInvalidSchema)
		}
		if err := s.Check(); err != nil {
			return err
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range f.Schemas {
		r.schemas[s.Name] = s
	}
	return nil
}

// LoadFile reads a schema definition file and registers its schemas.
func (r *Registry) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read schema file: %w", err)
	}
	return r.LoadYAML(data)
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
