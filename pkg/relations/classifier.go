package relations

// Classify inspects a relation handle's capability surface and reports its
// cardinality kind plus descriptor. Pure inspection, no side effects.
//
// Ownership direction drives the split between the singular kinds: a handle
// that can Associate owns its foreign key on the root side (belongs_to);
// a singular handle without Associate keeps the key on the related side
// (has_one).
func Classify(key string, rel Relation) (Descriptor, error) {
	switch r := rel.(type) {
	case BelongsToManyRelation:
		return Descriptor{
			Kind:          KindBelongsToMany,
			TargetKeyName: r.TargetKeyName(),
			PivotAccessor: r.PivotAccessor(),
		}, nil
	case BelongsToRelation:
		return Descriptor{
			Kind:          KindBelongsTo,
			TargetKeyName: r.TargetKeyName(),
		}, nil
	case HasManyRelation:
		return Descriptor{
			Kind:          KindHasMany,
			TargetKeyName: r.TargetKeyName(),
		}, nil
	case SingularRelation:
		return Descriptor{
			Kind:          KindHasOne,
			TargetKeyName: r.TargetKeyName(),
		}, nil
	default:
		return Descriptor{}, NewRelationErrorf(ErrUnsupportedRelation, key, "relation type %T is not supported", rel)
	}
}
