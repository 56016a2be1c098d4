package relations

// Kind is the cardinality of a relation.
type Kind int

const (
	KindUnknown Kind = iota
	KindBelongsTo
	KindHasOne
	KindHasMany
	KindBelongsToMany
)

func (k Kind) String() string {
	switch k {
	case KindBelongsTo:
		return "belongs_to"
	case KindHasOne:
		return "has_one"
	case KindHasMany:
		return "has_many"
	case KindBelongsToMany:
		return "belongs_to_many"
	default:
		return "unknown"
	}
}

// Singular reports whether the kind persists at most one related record.
func (k Kind) Singular() bool {
	return k == KindBelongsTo || k == KindHasOne
}

// Descriptor is the metadata resolved from a relation handle.
type Descriptor struct {
	Kind          Kind
	TargetKeyName string
	// PivotAccessor is the payload field carrying pivot data. Only set for
	// belongs_to_many.
	PivotAccessor string
}
