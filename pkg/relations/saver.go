package relations

import (
	"context"

	"github.com/Gobusters/ectologger"
	"github.com/go-playground/validator/v10"

	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Accessor resolves the relation handle for one nested key on a root record.
type Accessor func(root *models.Record) Relation

// Definition registers one nested-attribute key with its relation accessor.
// Accessors are registered at configuration time so unknown-accessor failures
// surface before any I/O.
type Definition struct {
	Key      string   `validate:"required"`
	Accessor Accessor `validate:"required"`
}

type Option func(*Saver)

// WithDestroyKey overrides the reserved destroy-flag payload key.
func WithDestroyKey(key string) Option {
	return func(s *Saver) {
		s.destroy = NewDestroyPolicy(key)
	}
}

// Saver persists a root record together with its nested relation payloads in
// a single transaction.
type Saver struct {
	tx        Transactor
	roots     RootStore
	accessors map[string]Accessor
	destroy   DestroyPolicy
	logger    ectologger.Logger

	singular *SingularReconciler
	plural   *PluralReconciler
	many     *ManyToManyReconciler
}

func NewSaver(tx Transactor, roots RootStore, logger ectologger.Logger, defs []Definition, opts ...Option) (*Saver, error) {
	s := &Saver{
		tx:        tx,
		roots:     roots,
		accessors: make(map[string]Accessor, len(defs)),
		destroy:   NewDestroyPolicy(DefaultDestroyKey),
		logger:    logger,
	}

	for _, def := range defs {
		if err := validate.Struct(def); err != nil {
			return nil, NewRelationErrorf(ErrUnknownAccessor, def.Key, "invalid relation definition: %v", err)
		}
		if _, ok := s.accessors[def.Key]; ok {
			return nil, NewRelationErrorf(ErrUnknownAccessor, def.Key, "duplicate relation definition for key '%s'", def.Key)
		}
		s.accessors[def.Key] = def.Accessor
	}

	for _, opt := range opts {
		opt(s)
	}

	s.singular = NewSingularReconciler(s.destroy, logger)
	s.plural = NewPluralReconciler(s.destroy, logger)
	s.many = NewManyToManyReconciler(s.destroy, logger)

	return s, nil
}

// step is one planned reconciliation: a nested key resolved, classified and
// shape-checked before the transaction opens.
type step struct {
	key      string
	rel      Relation
	desc     Descriptor
	single   map[string]any
	sequence []map[string]any
}

// Save persists the root record and reconciles every declared nested key
// found in attrs, all inside one transaction. Configuration errors (unknown
// accessor, unsupported relation kind, payload shape mismatch) are surfaced
// before the transaction opens; any failure after that rolls the whole save
// back. The caller sees a single error or nil for the entire nested save.
func (s *Saver) Save(ctx context.Context, root *models.Record, nestedKeys []string, attrs map[string]any) error {
	ctx, span := tracing.StartSpan(ctx, "relations.Saver.Save")
	defer span.End()

	log := s.logger.WithContext(ctx)

	nested := CaptureNested(root, attrs, nestedKeys)

	plan, err := s.plan(root, nested)
	if err != nil {
		return err
	}

	root.Fill(attrs)

	ctx, txn, err := s.tx.Begin(ctx)
	if err != nil {
		log.WithError(err).Error("Failed to begin nested save transaction")
		return err
	}

	if err := s.roots.Save(ctx, root); err != nil {
		log.WithError(err).Error("Failed to save root record")
		txn.Rollback(ctx)
		return err
	}

	for _, st := range plan {
		if err := s.dispatch(ctx, root, st); err != nil {
			log.WithError(err).WithFields(map[string]any{"relation": st.key}).Error("Nested relation reconcile failed, rolling back")
			txn.Rollback(ctx)
			return err
		}
	}

	if err := txn.Commit(ctx); err != nil {
		log.WithError(err).Error("Failed to commit nested save transaction")
		return err
	}
	return nil
}

// plan resolves, classifies and shape-checks every nested key. It performs no
// I/O, so a misconfigured save fails before the transaction opens.
func (s *Saver) plan(root *models.Record, nested *NestedAttributeSet) ([]step, error) {
	plan := make([]step, 0, nested.Len())
	for _, key := range nested.Keys() {
		accessor, ok := s.accessors[key]
		if !ok {
			return nil, NewRelationErrorf(ErrUnknownAccessor, key, "no relation accessor registered for nested key '%s'", key)
		}
		rel := accessor(root)
		if rel == nil {
			return nil, NewRelationErrorf(ErrUnknownAccessor, key, "relation accessor for nested key '%s' returned nil", key)
		}

		desc, err := Classify(key, rel)
		if err != nil {
			return nil, err
		}

		st := step{key: key, rel: rel, desc: desc}
		raw := nested.Payload(key)
		if desc.Kind.Singular() {
			payload, ok := singularPayload(raw)
			if !ok {
				return nil, NewRelationErrorf(ErrInvalidPayload, key, "%s relation requires a single attribute mapping, got %T", desc.Kind, raw)
			}
			st.single = payload
		} else {
			sequence, ok := pluralPayload(raw)
			if !ok {
				return nil, NewRelationErrorf(ErrInvalidPayload, key, "%s relation requires a sequence of attribute mappings, got %T", desc.Kind, raw)
			}
			st.sequence = sequence
		}
		plan = append(plan, st)
	}
	return plan, nil
}

func (s *Saver) dispatch(ctx context.Context, root *models.Record, st step) error {
	switch st.desc.Kind {
	case KindBelongsTo, KindHasOne:
		rootDirty, err := s.singular.Reconcile(ctx, root, st.key, st.rel.(SingularRelation), st.single)
		if err != nil {
			return err
		}
		if rootDirty {
			// the reconciler wrote the owning foreign key onto the root;
			// persist it so the association is committed with everything else
			if err := s.roots.Save(ctx, root); err != nil {
				return WrapPersistence(st.key, "root re-save", err)
			}
		}
		return nil
	case KindHasMany:
		return s.plural.Reconcile(ctx, root, st.key, st.rel.(HasManyRelation), st.sequence)
	case KindBelongsToMany:
		return s.many.Reconcile(ctx, root, st.key, st.rel.(BelongsToManyRelation), st.sequence)
	default:
		return NewRelationErrorf(ErrUnsupportedRelation, st.key, "relation kind %s is not supported", st.desc.Kind)
	}
}
