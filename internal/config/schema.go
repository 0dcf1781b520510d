package config

import (
	"fmt"

	"github.com/okian/reviewdesk/internal/domain/schema"
)

// ResolveSchema returns the configured schema from the built-ins plus any
// definitions in SchemasFile.
func (c *Config) ResolveSchema() (*schema.Schema, error) {
	reg := schema.NewRegistry()
	if c.SchemasFile != "" {
		if err := reg.LoadFile(c.SchemasFile); err != nil {
			return nil, fmt.Errorf("%w: schemas_file: %w", ErrInvalidConfig, err)
		}
	}
	s, err := reg.Get(c.Schema)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return s, nil
}
