package signature

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Parse decodes a model reply and validates it against the declared outputs.
// The reply must contain one JSON object, optionally inside a ``` fence or
// surrounded by prose. Absent optional outputs are set to nil.
func (s Signature) Parse(raw string) (Values, error) {
	obj, err := extractObject(raw)
	if err != nil {
		return nil, &SchemaViolation{Signature: s.Name, Reason: err.Error()}
	}

	out := make(Values, len(s.Outputs))
	for _, f := range s.Outputs {
		v, ok := obj[f.Name]
		if !ok || v == nil {
			if f.Required {
				return nil, &SchemaViolation{Signature: s.Name, Field: f.Name, Reason: "missing required field"}
			}
			out[f.Name] = nil
			continue
		}

		typed, err := coerce(f, v)
		if err != nil {
			return nil, &SchemaViolation{Signature: s.Name, Field: f.Name, Reason: err.Error()}
		}
		out[f.Name] = typed
	}
	return out, nil
}

func extractObject(raw string) (map[string]any, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return nil, fmt.Errorf("empty response")
	}

	// The first brace that opens a complete object wins; prose around it,
	// braces included, is ignored.
	var lastErr error
	for i := 0; i < len(text); i++ {
		if text[i] != '{' {
			continue
		}
		var obj map[string]any
		err := json.NewDecoder(strings.NewReader(text[i:])).Decode(&obj)
		if err == nil {
			return obj, nil
		}
		if lastErr == nil {
			lastErr = err
		}
	}
	if lastErr == nil {
		return nil, fmt.Errorf("response contains no JSON object")
	}
	return nil, fmt.Errorf("response is not valid JSON: %v", lastErr)
}

func coerce(f Field, v any) (any, error) {
	switch f.Type {
	case String:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("expected string, got %T", v)
		}
		if f.NonEmpty && strings.TrimSpace(s) == "" {
			return nil, fmt.Errorf("must not be empty")
		}
		return s, nil

	case Float:
		var n float64
		switch val := v.(type) {
		case float64:
			n = val
		case string:
			parsed, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
			if err != nil {
				return nil, fmt.Errorf("expected number, got %q", val)
			}
			n = parsed
		default:
			return nil, fmt.Errorf("expected number, got %T", v)
		}
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return nil, fmt.Errorf("value is not finite")
		}
		if f.Min != nil && n < *f.Min {
			return nil, fmt.Errorf("value %g below minimum %g", n, *f.Min)
		}
		if f.Max != nil && n > *f.Max {
			return nil, fmt.Errorf("value %g above maximum %g", n, *f.Max)
		}
		return n, nil

	case Bool:
		switch val := v.(type) {
		case bool:
			return val, nil
		case string:
			b, err := strconv.ParseBool(strings.TrimSpace(val))
			if err != nil {
				return nil, fmt.Errorf("expected bool, got %q", val)
			}
			return b, nil
		default:
			return nil, fmt.Errorf("expected bool, got %T", v)
		}

	case Object:
		m, ok := v.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("expected object, got %T", v)
		}
		return m, nil
	}
	return nil, fmt.Errorf("unsupported field type %q", f.Type)
}
