package types

import (
	"encoding/json"
	"fmt"
)

// SchemaType represents JSON Schema types.
type SchemaType string

const (
	SchemaTypeString  SchemaType = "string"
	SchemaTypeNumber  SchemaType = "number"
	SchemaTypeInteger SchemaType = "integer"
	SchemaTypeBoolean SchemaType = "boolean"
	SchemaTypeObject  SchemaType = "object"
	SchemaTypeArray   SchemaType = "array"
)

// JSONSchema declares the parameters a capability accepts. Capability
// registration validates the schema shape; the planner and dispatcher
// validate bound parameters against it.
type JSONSchema struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`

	Type SchemaType `json:"type,omitempty"`

	// Object properties
	Properties map[string]*JSONSchema `json:"properties,omitempty"`
	Required   []string               `json:"required,omitempty"`

	// Array items
	Items *JSONSchema `json:"items,omitempty"`

	// Enum restricts string values.
	Enum []any `json:"enum,omitempty"`

	// Default value used when the parameter is absent.
	Default any `json:"default,omitempty"`
}

// NewObjectSchema creates a new object schema.
func NewObjectSchema() *JSONSchema {
	return &JSONSchema{
		Type:       SchemaTypeObject,
		Properties: make(map[string]*JSONSchema),
	}
}

// NewStringSchema creates a new string schema.
func NewStringSchema() *JSONSchema {
	return &JSONSchema{Type: SchemaTypeString}
}

// NewNumberSchema creates a new number schema.
func NewNumberSchema() *JSONSchema {
	return &JSONSchema{Type: SchemaTypeNumber}
}

// NewIntegerSchema creates a new integer schema.
func NewIntegerSchema() *JSONSchema {
	return &JSONSchema{Type: SchemaTypeInteger}
}

// NewEnumSchema creates a string schema restricted to the given values.
func NewEnumSchema(values ...any) *JSONSchema {
	return &JSONSchema{Type: SchemaTypeString, Enum: values}
}

// AddProperty adds a property to an object schema.
func (s *JSONSchema) AddProperty(name string, prop *JSONSchema) *JSONSchema {
	if s.Properties == nil {
		s.Properties = make(map[string]*JSONSchema)
	}
	s.Properties[name] = prop
	return s
}

// AddRequired adds required field names.
func (s *JSONSchema) AddRequired(names ...string) *JSONSchema {
	s.Required = append(s.Required, names...)
	return s
}

// WithDescription sets the description.
func (s *JSONSchema) WithDescription(desc string) *JSONSchema {
	s.Description = desc
	return s
}

// IsRequired reports whether the named property is required.
func (s *JSONSchema) IsRequired(name string) bool {
	for _, r := range s.Required {
		if r == name {
			return true
		}
	}
	return false
}

// ValidateShape checks that the schema is usable as a capability parameter
// declaration: object-typed with every required name declared.
func (s *JSONSchema) ValidateShape() error {
	if s == nil {
		return NewError(ErrInvalidSchema, "schema is nil")
	}
	if s.Type != SchemaTypeObject {
		return Errorf(ErrInvalidSchema, "parameter schema must be an object, got %q", s.Type)
	}
	for _, name := range s.Required {
		if _, ok := s.Properties[name]; !ok {
			return Errorf(ErrInvalidSchema, "required property %q not declared", name)
		}
	}
	return nil
}

// ValidateParams checks bound parameter values against the schema.
// Missing required parameters and type mismatches are reported with the
// offending name; unknown parameters are allowed and passed through.
func (s *JSONSchema) ValidateParams(params map[string]any) error {
	for _, name := range s.Required {
		v, ok := params[name]
		if !ok || v == nil {
			return Errorf(ErrMissingParameter, "required parameter %q is missing", name)
		}
		if str, isStr := v.(string); isStr && str == "" {
			return Errorf(ErrMissingParameter, "required parameter %q is empty", name)
		}
	}
	for name, v := range params {
		prop, ok := s.Properties[name]
		if !ok || v == nil {
			continue
		}
		if err := prop.validateValue(name, v); err != nil {
			return err
		}
	}
	return nil
}

func (s *JSONSchema) validateValue(name string, v any) error {
	switch s.Type {
	case SchemaTypeString:
		str, ok := v.(string)
		if !ok {
			return Errorf(ErrInvalidParameter, "parameter %q must be a string", name)
		}
		if len(s.Enum) > 0 {
			for _, e := range s.Enum {
				if e == str {
					return nil
				}
			}
			return Errorf(ErrInvalidParameter, "parameter %q must be one of %v", name, s.Enum)
		}
	case SchemaTypeNumber:
		switch v.(type) {
		case float64, float32, int, int64:
		default:
			return Errorf(ErrInvalidParameter, "parameter %q must be a number", name)
		}
	case SchemaTypeInteger:
		switch v.(type) {
		case int, int64, int32:
		default:
			return Errorf(ErrInvalidParameter, "parameter %q must be an integer", name)
		}
	case SchemaTypeBoolean:
		if _, ok := v.(bool); !ok {
			return Errorf(ErrInvalidParameter, "parameter %q must be a boolean", name)
		}
	}
	return nil
}

// ToJSON serializes the schema to JSON.
func (s *JSONSchema) ToJSON() ([]byte, error) {
	return json.Marshal(s)
}

// SchemaFromJSON deserializes a schema from JSON.
func SchemaFromJSON(data []byte) (*JSONSchema, error) {
	var schema JSONSchema
	if err := json.Unmarshal(data, &schema); err != nil {
		return nil, fmt.Errorf("failed to unmarshal JSON schema: %w", err)
	}
	return &schema, nil
}
