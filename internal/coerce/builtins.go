package coerce

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	language "github.com/quivergraph/quiver/internal/language"
)

// IsBuiltinScalar reports whether name is one of the five spec scalars.
func IsBuiltinScalar(name string) bool {
	switch name {
	case "Int", "Float", "String", "Boolean", "ID":
		return true
	}
	return false
}

func serializeBuiltin(name string, value any) (any, error) {
	// Serialization and deserialization of the built-in scalars accept the
	// same value shapes; only the direction of travel differs.
	return deserializeBuiltin(name, value)
}

func deserializeBuiltin(name string, value any) (any, error) {
	switch name {
	case "Int":
		return toInt(value)
	case "Float":
		return toFloat(value)
	case "String":
		return toString(value)
	case "Boolean":
		return toBoolean(value)
	case "ID":
		return toID(value)
	}
	return nil, &Error{Type: name, Reason: "unknown built-in scalar"}
}

func parseBuiltinLiteral(name string, v *language.Value) (any, error) {
	switch name {
	case "Int":
		if v.Kind != language.IntValue {
			return nil, &Error{Type: name, Reason: fmt.Sprintf("expected integer literal, got %s", v.Raw)}
		}
		n, err := strconv.ParseInt(v.Raw, 10, 64)
		if err != nil || n < math.MinInt32 || n > math.MaxInt32 {
			return nil, &Error{Type: name, Reason: fmt.Sprintf("%s is outside the 32-bit integer range", v.Raw)}
		}
		return int(n), nil
	case "Float":
		if v.Kind != language.IntValue && v.Kind != language.FloatValue {
			return nil, &Error{Type: name, Reason: fmt.Sprintf("expected numeric literal, got %s", v.Raw)}
		}
		f, err := strconv.ParseFloat(v.Raw, 64)
		if err != nil {
			return nil, &Error{Type: name, Reason: err.Error()}
		}
		return f, nil
	case "String":
		if v.Kind != language.StringValue && v.Kind != language.BlockValue {
			return nil, &Error{Type: name, Reason: fmt.Sprintf("expected string literal, got %s", v.Raw)}
		}
		return v.Raw, nil
	case "Boolean":
		if v.Kind != language.BooleanValue {
			return nil, &Error{Type: name, Reason: fmt.Sprintf("expected boolean literal, got %s", v.Raw)}
		}
		return v.Raw == "true", nil
	case "ID":
		// IDs accept both string and integer literals; integers of any
		// magnitude normalize to their decimal string form.
		if v.Kind != language.StringValue && v.Kind != language.IntValue {
			return nil, &Error{Type: name, Reason: fmt.Sprintf("expected string or integer literal, got %s", v.Raw)}
		}
		return v.Raw, nil
	}
	return nil, &Error{Type: name, Reason: "unknown built-in scalar"}
}

func toInt(value any) (any, error) {
	switch v := value.(type) {
	case int:
		if v < math.MinInt32 || v > math.MaxInt32 {
			return nil, intRangeError(v)
		}
		return v, nil
	case int32:
		return int(v), nil
	case int64:
		if v < math.MinInt32 || v > math.MaxInt32 {
			return nil, intRangeError(v)
		}
		return int(v), nil
	case float64:
		if v != math.Trunc(v) || v < math.MinInt32 || v > math.MaxInt32 {
			return nil, intRangeError(v)
		}
		return int(v), nil
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return nil, &Error{Type: "Int", Reason: fmt.Sprintf("%s is not an integer", v)}
		}
		return toInt(n)
	}
	return nil, &Error{Type: "Int", Reason: fmt.Sprintf("expected integer, got %T", value)}
}

func intRangeError(v any) error {
	return &Error{Type: "Int", Reason: fmt.Sprintf("%v is outside the 32-bit integer range", v)}
}

func toFloat(value any) (any, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return nil, &Error{Type: "Float", Reason: err.Error()}
		}
		return f, nil
	}
	return nil, &Error{Type: "Float", Reason: fmt.Sprintf("expected number, got %T", value)}
}

func toString(value any) (any, error) {
	if s, ok := value.(string); ok {
		return s, nil
	}
	return nil, &Error{Type: "String", Reason: fmt.Sprintf("expected string, got %T", value)}
}

func toBoolean(value any) (any, error) {
	if b, ok := value.(bool); ok {
		return b, nil
	}
	return nil, &Error{Type: "Boolean", Reason: fmt.Sprintf("expected boolean, got %T", value)}
}

func toID(value any) (any, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case int:
		return strconv.Itoa(v), nil
	case int32:
		return strconv.FormatInt(int64(v), 10), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case float64:
		if v != math.Trunc(v) {
			return nil, &Error{Type: "ID", Reason: fmt.Sprintf("%v is not an integer id", v)}
		}
		return strconv.FormatInt(int64(v), 10), nil
	case json.Number:
		return v.String(), nil
	}
	return nil, &Error{Type: "ID", Reason: fmt.Sprintf("expected string or integer, got %T", value)}
}
