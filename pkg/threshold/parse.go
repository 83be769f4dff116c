package threshold

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ParseLayer converts decoded configuration (YAML, JSON, env) into a Layer.
//
// Numbers and numeric strings are taken as is. nil, false and the strings
// "off", "disabled", "none" and "unset" select Disabled. Unknown names and
// negative values are rejected.
func ParseLayer(raw map[string]any) (Layer, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	layer := make(Layer, len(raw))
	for _, k := range keys {
		n := Name(strings.ToLower(strings.TrimSpace(k)))
		if !n.Valid() {
			return nil, &ConfigError{Name: n, Reason: fmt.Sprintf("unknown threshold (known: %s)", joinNames())}
		}
		v, err := ParseValue(raw[k])
		if err != nil {
			return nil, &ConfigError{Name: n, Reason: err.Error()}
		}
		if err := validate(n, v); err != nil {
			return nil, err
		}
		layer[n] = v
	}
	return layer, nil
}

// ParseValue converts one decoded value into a threshold number.
func ParseValue(v any) (float64, error) {
	switch val := v.(type) {
	case nil:
		return Disabled, nil
	case float64:
		return val, nil
	case float32:
		return float64(val), nil
	case int:
		return float64(val), nil
	case int64:
		return float64(val), nil
	case int32:
		return float64(val), nil
	case uint:
		return float64(val), nil
	case uint64:
		return float64(val), nil
	case uint32:
		return float64(val), nil
	case json.Number:
		return val.Float64()
	case bool:
		if !val {
			return Disabled, nil
		}
		return 0, fmt.Errorf("true is not a threshold value")
	case string:
		s := strings.ToLower(strings.TrimSpace(val))
		switch s {
		case "off", "disabled", "none", "unset", "false":
			return Disabled, nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("%q is not a number", val)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("unsupported value type %T", v)
	}
}

func joinNames() string {
	parts := make([]string, len(names))
	for i, n := range names {
		parts[i] = string(n)
	}
	return strings.Join(parts, ", ")
}
