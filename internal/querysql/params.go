package querysql

import (
	"fmt"
	"maps"
	"reflect"
	"slices"
	"strings"
)

// ParamPrefix is the prefix of every generated placeholder name.
const ParamPrefix = "param"

// ParameterManager deduplicates bound values and assigns them sequential
// placeholder names param1, param2, ...
//
// A ParameterManager is an immutable value: AddParameter returns a new
// manager and never modifies its input, so a manager may be shared freely.
// The zero value is an empty manager.
type ParameterManager struct {
	values  map[string]any
	order   []string
	counter int
}

// NewParameterManager returns an empty manager.
func NewParameterManager() ParameterManager {
	return ParameterManager{}
}

// AddParameter binds v and returns the resulting manager together with the
// placeholder reference ("@paramN") to emit in SQL.
//
// If an equal value is already bound, its placeholder is reused and m is
// returned unchanged. Equality follows these rules, scanning existing
// entries in insertion order:
//   - nil equals nil
//   - slices and arrays are equal when element-wise deep-equal in order
//   - maps, pointers, funcs and chans are equal only when identical
//   - other comparable values are equal under == (same dynamic type)
func AddParameter(m ParameterManager, v any) (ParameterManager, string) {
	for _, name := range m.order {
		if sameValue(m.values[name], v) {
			return m, "@" + name
		}
	}

	next := m.counter + 1
	name := fmt.Sprintf("%s%d", ParamPrefix, next)

	values := make(map[string]any, len(m.values)+1)
	maps.Copy(values, m.values)
	values[name] = v

	order := make([]string, len(m.order), len(m.order)+1)
	copy(order, m.order)
	order = append(order, name)

	return ParameterManager{values: values, order: order, counter: next}, "@" + name
}

// Add is a method form of AddParameter.
func (m ParameterManager) Add(v any) (ParameterManager, string) {
	return AddParameter(m, v)
}

// Counter returns the number of distinct values bound so far.
func (m ParameterManager) Counter() int {
	return m.counter
}

// Len returns the number of bound parameters.
func (m ParameterManager) Len() int {
	return len(m.order)
}

// Lookup returns the value bound to name. A leading "@" is ignored.
func (m ParameterManager) Lookup(name string) (any, bool) {
	v, ok := m.values[strings.TrimPrefix(name, "@")]
	return v, ok
}

// Names returns placeholder names (without "@") in binding order.
func (m ParameterManager) Names() []string {
	return slices.Clone(m.order)
}

// Parameters returns a copy of the name to value map.
func (m ParameterManager) Parameters() map[string]any {
	out := make(map[string]any, len(m.values))
	maps.Copy(out, m.values)
	return out
}

// sameValue implements the dedup rule of AddParameter.
func sameValue(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	if va.Type() != vb.Type() {
		return false
	}

	switch va.Kind() {
	case reflect.Slice, reflect.Array:
		return reflect.DeepEqual(a, b)
	case reflect.Map, reflect.Pointer, reflect.Func, reflect.Chan, reflect.UnsafePointer:
		return va.Pointer() == vb.Pointer()
	}

	if !va.Comparable() || !vb.Comparable() {
		return false
	}
	return a == b
}
