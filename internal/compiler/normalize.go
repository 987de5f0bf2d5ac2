package compiler

import (
	"encoding/json"
	"math/big"
)

// normalizeValue maps decoder-specific scalars onto the Go types the
// renderer binds: integers become int64, other numbers float64. Lists and
// string-keyed maps are normalized recursively.
//
// YAML yields int and float64, JSON (with UseNumber) yields json.Number,
// and large YAML integers may arrive as *big.Int or uint64.
func normalizeValue(v any) any {
	switch val := v.(type) {
	case int:
		return int64(val)
	case int32:
		return int64(val)
	case uint64:
		if val <= 1<<63-1 {
			return int64(val)
		}
		return float64(val)
	case *big.Int:
		if val.IsInt64() {
			return val.Int64()
		}
		f, _ := new(big.Float).SetInt(val).Float64()
		return f
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return i
		}
		f, err := val.Float64()
		if err != nil {
			return val.String()
		}
		return f
	case []any:
		return normalizeSlice(val)
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, e := range val {
			out[k] = normalizeValue(e)
		}
		return out
	default:
		return v
	}
}

func normalizeSlice(vals []any) []any {
	if vals == nil {
		return nil
	}
	out := make([]any, len(vals))
	for i, v := range vals {
		out[i] = normalizeValue(v)
	}
	return out
}
