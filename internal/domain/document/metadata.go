package document

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strconv"
)

// MaxMetadataKeys bounds the number of metadata entries per document.
const MaxMetadataKeys = 64

// Metadata maps keys to a scalar (string, float64, bool) or a []string.
type Metadata map[string]any

// NormalizeMetadata converts decoded JSON values into the canonical Metadata shapes.
// Integers become float64, []any of strings become []string. Anything else is rejected.
func NormalizeMetadata(raw map[string]any) (Metadata, error) {
	if len(raw) == 0 {
		return Metadata{}, nil
	}
	if len(raw) > MaxMetadataKeys {
		return nil, fmt.Errorf("too many metadata keys (max %d)", MaxMetadataKeys)
	}

	out := make(Metadata, len(raw))
	for k, v := range raw {
		if k == "" {
			return nil, fmt.Errorf("metadata key is required")
		}
		nv, err := normalizeValue(v)
		if err != nil {
			return nil, fmt.Errorf("metadata %q: %w", k, err)
		}
		out[k] = nv
	}
	return out, nil
}

func normalizeValue(v any) (any, error) {
	switch t := v.(type) {
	case string, bool:
		return t, nil
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return nil, fmt.Errorf("number must be finite")
		}
		return t, nil
	case float32:
		return float64(t), nil
	case int:
		return float64(t), nil
	case int64:
		return float64(t), nil
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return nil, fmt.Errorf("invalid number %q", t)
		}
		return f, nil
	case []string:
		return slices.Clone(t), nil
	case []any:
		list := make([]string, 0, len(t))
		for i, item := range t {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("list element %d must be a string, got %T", i, item)
			}
			list = append(list, s)
		}
		return list, nil
	default:
		return nil, fmt.Errorf("unsupported value type %T", v)
	}
}

// Clone returns a deep copy.
func (m Metadata) Clone() Metadata {
	if m == nil {
		return nil
	}
	c := make(Metadata, len(m))
	for k, v := range m {
		if list, ok := v.([]string); ok {
			c[k] = slices.Clone(list)
			continue
		}
		c[k] = v
	}
	return c
}

// Values returns the string forms of the value at key: one element for a scalar,
// every element for a list, nil when absent.
func (m Metadata) Values(key string) []string {
	v, ok := m[key]
	if !ok {
		return nil
	}
	switch t := v.(type) {
	case string:
		return []string{t}
	case bool:
		return []string{strconv.FormatBool(t)}
	case float64:
		return []string{strconv.FormatFloat(t, 'f', -1, 64)}
	case []string:
		return t
	default:
		return nil
	}
}

// String returns the value at key rendered for prompts: lists are joined with ", ".
func (m Metadata) String(key string) string {
	vals := m.Values(key)
	switch len(vals) {
	case 0:
		return ""
	case 1:
		return vals[0]
	}
	out := vals[0]
	for _, v := range vals[1:] {
		out += ", " + v
	}
	return out
}
