// Package signature declares the input/output contract of an inference call
// and turns it into a prompt and back into validated values.
package signature

import (
	"fmt"
	"sort"
)

// FieldType is the declared type of a signature field.
type FieldType string

const (
	String FieldType = "string"
	Float  FieldType = "float"
	Bool   FieldType = "bool"
	Object FieldType = "object"
)

// Field describes one named input or output.
type Field struct {
	Name        string
	Description string
	Type        FieldType
	Required    bool
	// NonEmpty rejects "" for required string outputs.
	NonEmpty bool
	Min      *float64
	Max      *float64
}

// Signature pairs an instruction with its input and output fields.
type Signature struct {
	Name        string
	Instruction string
	Inputs      []Field
	Outputs     []Field
}

// Values maps field names to values. Parsed outputs hold string, float64,
// bool, map[string]any or nil.
type Values map[string]any

// Bound is a convenience for building Min/Max.
func Bound(v float64) *float64 {
	return &v
}

// SchemaViolation is returned when a model reply does not satisfy the
// signature's declared outputs.
type SchemaViolation struct {
	Signature string
	Field     string
	Reason    string
}

func (e *SchemaViolation) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("schema violation in %s: %s", e.Signature, e.Reason)
	}
	return fmt.Sprintf("schema violation in %s.%s: %s", e.Signature, e.Field, e.Reason)
}

// CheckInputs verifies every required input is present.
func (s Signature) CheckInputs(inputs Values) error {
	for _, f := range s.Inputs {
		if !f.Required {
			continue
		}
		if v, ok := inputs[f.Name]; !ok || v == nil {
			return fmt.Errorf("missing required input %s.%s", s.Name, f.Name)
		}
	}
	var unknown []string
	for name := range inputs {
		if !s.hasInput(name) {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return fmt.Errorf("unknown inputs for %s: %v", s.Name, unknown)
	}
	return nil
}

func (s Signature) hasInput(name string) bool {
	for _, f := range s.Inputs {
		if f.Name == name {
			return true
		}
	}
	return false
}

// String returns a string value or "" if absent.
func (v Values) String(name string) string {
	s, _ := v[name].(string)
	return s
}

// OptString returns a pointer to a string value, or nil if absent.
func (v Values) OptString(name string) *string {
	s, ok := v[name].(string)
	if !ok {
		return nil
	}
	return &s
}

// Float returns a float value or 0 if absent.
func (v Values) Float(name string) float64 {
	f, _ := v[name].(float64)
	return f
}

// Bool returns a bool value or false if absent.
func (v Values) Bool(name string) bool {
	b, _ := v[name].(bool)
	return b
}
