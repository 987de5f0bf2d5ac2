package store

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/roach88/spanq/internal/ir"
	"github.com/roach88/spanq/internal/querysql"
)

// marshalParameters converts a parameter map to canonical JSON TEXT.
// A nil map is stored as "{}".
func marshalParameters(params map[string]any) (string, error) {
	if params == nil {
		params = map[string]any{}
	}
	data, err := ir.MarshalCanonical(params)
	if err != nil {
		return "", fmt.Errorf("marshal parameters: %w", err)
	}
	return string(data), nil
}

func marshalTypes(types map[string]querysql.TypeHint) (string, error) {
	if len(types) == 0 {
		return "{}", nil
	}
	data, err := ir.MarshalCanonical(types)
	if err != nil {
		return "", fmt.Errorf("marshal types: %w", err)
	}
	return string(data), nil
}

// unmarshalParameters parses stored parameters. Integers come back as
// int64 and other numbers as float64; bytes and timestamps come back in
// their JSON string form.
func unmarshalParameters(data string) (map[string]any, error) {
	out := map[string]any{}
	if data == "" || data == "{}" {
		return out, nil
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(data)))
	dec.UseNumber()
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("unmarshal parameters: %w", err)
	}
	for k, v := range out {
		out[k] = fromJSONNumber(v)
	}
	return out, nil
}

func fromJSONNumber(v any) any {
	switch val := v.(type) {
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return i
		}
		f, _ := val.Float64()
		return f
	case []any:
		for i := range val {
			val[i] = fromJSONNumber(val[i])
		}
		return val
	case map[string]any:
		for k := range val {
			val[k] = fromJSONNumber(val[k])
		}
		return val
	default:
		return v
	}
}

// unmarshalTypes parses stored type hints. "{}" yields nil, matching a
// Result built without hints.
func unmarshalTypes(data string) (map[string]querysql.TypeHint, error) {
	if data == "" || data == "{}" {
		return nil, nil
	}
	var out map[string]querysql.TypeHint
	if err := json.Unmarshal([]byte(data), &out); err != nil {
		return nil, fmt.Errorf("unmarshal types: %w", err)
	}
	return out, nil
}
