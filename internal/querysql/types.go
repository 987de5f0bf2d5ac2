package querysql

import (
	"encoding/json"
	"reflect"
	"time"
)

// Spanner type names used in type hints.
const (
	TypeBool      = "bool"
	TypeInt64     = "int64"
	TypeFloat64   = "float64"
	TypeString    = "string"
	TypeBytes     = "bytes"
	TypeTimestamp = "timestamp"
	TypeArray     = "array"
)

var (
	timeType  = reflect.TypeOf(time.Time{})
	bytesType = reflect.TypeOf([]byte(nil))
)

// TypeHint is the Spanner type of a bound parameter.
//
// Scalars encode as their type name ("int64"); arrays encode as
// {"type":"array","child":<element hint>}.
type TypeHint struct {
	Type  string
	Child *TypeHint
}

// String returns the GoogleSQL spelling, e.g. ARRAY<int64>.
func (h TypeHint) String() string {
	if h.Type == TypeArray && h.Child != nil {
		return "ARRAY<" + h.Child.String() + ">"
	}
	return h.Type
}

// MarshalJSON implements json.Marshaler.
func (h TypeHint) MarshalJSON() ([]byte, error) {
	if h.Type != TypeArray {
		return json.Marshal(h.Type)
	}
	obj := struct {
		Type  string    `json:"type"`
		Child *TypeHint `json:"child,omitempty"`
	}{Type: h.Type, Child: h.Child}
	return json.Marshal(obj)
}

// UnmarshalJSON implements json.Unmarshaler.
func (h *TypeHint) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		*h = TypeHint{Type: name}
		return nil
	}
	var obj struct {
		Type  string    `json:"type"`
		Child *TypeHint `json:"child"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	*h = TypeHint{Type: obj.Type, Child: obj.Child}
	return nil
}

// InferTypeHint derives the Spanner type of a Go value.
// It reports false for nil values and types with no Spanner counterpart.
func InferTypeHint(v any) (TypeHint, bool) {
	if v == nil {
		return TypeHint{}, false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return hintForType(rv.Type().Elem())
		}
		return InferTypeHint(rv.Elem().Interface())
	}

	// []any carries no static element type; use the first non-nil element.
	if rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() == reflect.Interface {
		for i := 0; i < rv.Len(); i++ {
			elem := rv.Index(i).Interface()
			if elem == nil {
				continue
			}
			child, ok := InferTypeHint(elem)
			if !ok {
				return TypeHint{}, false
			}
			return TypeHint{Type: TypeArray, Child: &child}, true
		}
		return TypeHint{}, false
	}
	return hintForType(rv.Type())
}

func hintForType(t reflect.Type) (TypeHint, bool) {
	switch {
	case t == timeType:
		return TypeHint{Type: TypeTimestamp}, true
	case t == bytesType || (t.Kind() == reflect.Slice && t.Elem().Kind() == reflect.Uint8):
		return TypeHint{Type: TypeBytes}, true
	}

	switch t.Kind() {
	case reflect.Bool:
		return TypeHint{Type: TypeBool}, true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return TypeHint{Type: TypeInt64}, true
	case reflect.Float32, reflect.Float64:
		return TypeHint{Type: TypeFloat64}, true
	case reflect.String:
		return TypeHint{Type: TypeString}, true
	case reflect.Pointer:
		return hintForType(t.Elem())
	case reflect.Slice, reflect.Array:
		if t.Elem().Kind() == reflect.Interface {
			return TypeHint{}, false
		}
		child, ok := hintForType(t.Elem())
		if !ok {
			return TypeHint{}, false
		}
		return TypeHint{Type: TypeArray, Child: &child}, true
	}
	return TypeHint{}, false
}

// TypesFor infers hints for every bound parameter. Parameters whose type
// cannot be inferred are omitted.
func TypesFor(m ParameterManager) map[string]TypeHint {
	out := make(map[string]TypeHint, m.Len())
	for _, name := range m.order {
		if h, ok := InferTypeHint(m.values[name]); ok {
			out[name] = h
		}
	}
	return out
}
