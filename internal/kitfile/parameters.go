package kitfile

import (
	"fmt"
	"math"
	"strconv"
	"time"
)

// jsonCompatible rewrites a value decoded from YAML into the JSON-compatible
// subset: maps keyed by strings, slices, strings, bools, numbers and null.
// Timestamps become RFC 3339 strings. Maps with non-string keys such as
// `1: foo` and the non-finite numbers .nan and .inf are rejected.
func jsonCompatible(v any, path string) (any, error) {
	switch val := v.(type) {
	case nil, string, bool, int, int64, uint64:
		return val, nil
	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return nil, fmt.Errorf("%s: %v is not a JSON number", path, val)
		}
		return val, nil
	case time.Time:
		return val.UTC().Format(time.RFC3339Nano), nil
	case []any:
		out := make([]any, len(val))
		for i, elem := range val {
			conv, err := jsonCompatible(elem, path+"["+strconv.Itoa(i)+"]")
			if err != nil {
				return nil, err
			}
			out[i] = conv
		}
		return out, nil
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			conv, err := jsonCompatible(elem, joinField(path, k))
			if err != nil {
				return nil, err
			}
			out[k] = conv
		}
		return out, nil
	case map[any]any:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			key, ok := k.(string)
			if !ok {
				return nil, fmt.Errorf("%s: map key %v (%T) is not a string", path, k, k)
			}
			conv, err := jsonCompatible(elem, joinField(path, key))
			if err != nil {
				return nil, err
			}
			out[key] = conv
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%s: unsupported value of type %T", path, v)
	}
}

func joinField(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}
