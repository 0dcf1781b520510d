// Package schema declares record schemas and validates candidates against them.
package schema

import (
	"fmt"
	"strings"
)

// FieldType is the declared type of a schema field.
type FieldType string

const (
	TypeString FieldType = "string"
	TypeText   FieldType = "text"
	TypeEmail  FieldType = "email"
	TypeEnum   FieldType = "enum"
	TypeInt    FieldType = "integer"
	TypeList   FieldType = "list"
)

// Field declares one field of a record.
type Field struct {
	Name     string    `yaml:"name"`
	Label    string    `yaml:"label"`
	Type     FieldType `yaml:"type"`
	Required bool      `yaml:"required"`
	Enum     []string  `yaml:"enum,omitempty"`
	Min      *int64    `yaml:"min,omitempty"`
	Max      *int64    `yaml:"max,omitempty"`
	Aliases  []string  `yaml:"aliases,omitempty"`
	// Key marks fields shown in compact summaries.
	Key bool `yaml:"key"`
}

// DisplayLabel returns Label, falling back to Name.
func (f Field) DisplayLabel() string {
	if f.Label != "" {
		return f.Label
	}
	return f.Name
}

// SourceField names the export column holding the submission's source file.
// It is reserved and cannot be declared by a schema.
const (
	SourceField = "source_file"
	SourceLabel = "Source File"
)

// Schema declares the fields of one record variant. A Schema must not be
// modified once it has been registered.
type Schema struct {
	Name     string  `yaml:"name"`
	Title    string  `yaml:"title,omitempty"`
	Envelope string  `yaml:"envelope"`
	Header   string  `yaml:"header_field"`
	LongText string  `yaml:"long_text_field,omitempty"`
	Rank     string  `yaml:"rank_field,omitempty"`
	Fields   []Field `yaml:"fields"`
}

// Field looks up a field by name.
func (s *Schema) Field(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// resolve looks up a field by name or alias.
func (s *Schema) resolve(key string) (Field, bool) {
	if f, ok := s.Field(key); ok {
		return f, true
	}
	for _, f := range s.Fields {
		for _, a := range f.Aliases {
			if a == key {
				return f, true
			}
		}
	}
	return Field{}, false
}

// FieldNames returns the declared field order.
func (s *Schema) FieldNames() []string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return names
}

// KeyFields returns the names of fields marked as key, in declared order.
func (s *Schema) KeyFields() []string {
	var names []string
	for _, f := range s.Fields {
		if f.Key {
			names = append(names, f.Name)
		}
	}
	return names
}

// Label returns the display label of a field, or the name itself when the
// field is not declared.
func (s *Schema) Label(name string) string {
	if f, ok := s.Field(name); ok {
		return f.DisplayLabel()
	}
	if name == SourceField {
		return SourceLabel
	}
	return name
}

// Column reports whether name can be used as an export column: a declared
// field or SourceField.
func (s *Schema) Column(name string) bool {
	if name == SourceField {
		return true
	}
	_, ok := s.Field(name)
	return ok
}

// Check reports whether the schema is well formed.
func (s *Schema) Check() error {
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidSchema)
	}
	if len(s.Fields) == 0 {
		return fmt.Errorf("%w: %s has no fields", ErrInvalidSchema, s.Name)
	}
	seen := make(map[string]struct{}, len(s.Fields))
	for _, f := range s.Fields {
		if f.Name == "" {
			return fmt.Errorf("%w: %s has a field without a name", ErrInvalidSchema, s.Name)
		}
		keys := append([]string{f.Name}, f.Aliases...)
		for _, k := range keys {
			if k == SourceField {
				return fmt.Errorf("%w: %s declares reserved name %q", ErrInvalidSchema, s.Name, k)
			}
			if _, dup := seen[k]; dup {
				return fmt.Errorf("%w: %s declares %q twice", ErrInvalidSchema, s.Name, k)
			}
			seen[k] = struct{}{}
		}
		switch f.Type {
		case TypeString, TypeText, TypeEmail, TypeList:
		case TypeEnum:
			if len(f.Enum) == 0 {
				return fmt.Errorf("%w: %s.%s is an enum without values", ErrInvalidSchema, s.Name, f.Name)
			}
		case TypeInt:
			if f.Min != nil && f.Max != nil && *f.Min > *f.Max {
				return fmt.Errorf("%w: %s.%s has min above max", ErrInvalidSchema, s.Name, f.Name)
			}
		default:
			return fmt.Errorf("%w: %s.%s has unknown type %q", ErrInvalidSchema, s.Name, f.Name, f.Type)
		}
	}
	for _, ref := range []string{s.Header, s.LongText, s.Rank} {
		if ref == "" {
			continue
		}
		if _, ok := s.Field(ref); !ok {
			return fmt.Errorf("%w: %s references undeclared field %q", ErrInvalidSchema, s.Name, ref)
		}
	}
	if s.Header == "" {
		return fmt.Errorf("%w: %s has no header field", ErrInvalidSchema, s.Name)
	}
	return nil
}
