package relations

import "github.com/Ramsey-B/fern/pkg/models"

// NestedAttributeSet is the ordered set of nested payloads captured from a
// root record's raw attribute input. It is built once per save, consumed
// during that save, and discarded.
type NestedAttributeSet struct {
	keys     []string
	payloads map[string]any
}

// CaptureNested drains the declared nested keys out of the raw attribute map
// and guards them on the root, so the mass-assignment path never sees them.
// Order follows the declaration order of the nested keys.
func CaptureNested(root *models.Record, attrs map[string]any, declared []string) *NestedAttributeSet {
	set := &NestedAttributeSet{
		payloads: map[string]any{},
	}
	for _, key := range declared {
		root.Guard(key)
		payload, ok := attrs[key]
		if !ok {
			continue
		}
		delete(attrs, key)
		set.keys = append(set.keys, key)
		set.payloads[key] = payload
	}
	return set
}

func (s *NestedAttributeSet) Keys() []string {
	return s.keys
}

func (s *NestedAttributeSet) Payload(key string) any {
	return s.payloads[key]
}

func (s *NestedAttributeSet) Len() int {
	return len(s.keys)
}

// singularPayload normalizes a raw nested payload into the single-mapping
// shape required by singular relations.
func singularPayload(raw any) (map[string]any, bool) {
	m, ok := raw.(map[string]any)
	return m, ok
}

// pluralPayload normalizes a raw nested payload into the ordered-sequence
// shape required by plural and many-to-many relations. JSON decoding yields
// []any; callers building payloads in code tend to pass []map[string]any.
func pluralPayload(raw any) ([]map[string]any, bool) {
	switch seq := raw.(type) {
	case []map[string]any:
		return seq, true
	case []any:
		out := make([]map[string]any, 0, len(seq))
		for _, item := range seq {
			m, ok := item.(map[string]any)
			if !ok {
				return nil, false
			}
			out = append(out, m)
		}
		return out, true
	default:
		return nil, false
	}
}
