package relations

import "strconv"

// DefaultDestroyKey is the reserved payload key that flags a record for
// deletion instead of an upsert.
const DefaultDestroyKey = "_destroy"

// DestroyPolicy decides whether a payload is flagged for deletion.
type DestroyPolicy struct {
	Key string
}

func NewDestroyPolicy(key string) DestroyPolicy {
	if key == "" {
		key = DefaultDestroyKey
	}
	return DestroyPolicy{Key: key}
}

// ShouldDestroy is true iff the payload carries the destroy key with a
// strictly truthy value. An absent key is false.
func (p DestroyPolicy) ShouldDestroy(payload map[string]any) bool {
	v, ok := payload[p.Key]
	if !ok {
		return false
	}
	return truthy(v)
}

// truthy coerces the common representations a destroy flag arrives in. JSON
// decoding yields bool or float64; form-style payloads yield strings like "1".
func truthy(v any) bool {
	switch val := v.(type) {
	case bool:
		return val
	case string:
		b, err := strconv.ParseBool(val)
		return err == nil && b
	case int:
		return val == 1
	case int64:
		return val == 1
	case float64:
		return val == 1
	default:
		return false
	}
}
