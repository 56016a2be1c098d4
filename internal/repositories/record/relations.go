package record

import (
	"context"

	"github.com/Ramsey-B/fern/internal/repositories/pivot"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/relations"
)

// Accessor builders for the four relation kinds. Each returns a
// relations.Accessor suitable for registering with a Saver definition; the
// returned handles advertise their kind purely through the capability
// interfaces they implement.

// BelongsTo declares that the root holds foreignKey pointing at a target
// record.
func BelongsTo(target *Repository, foreignKey string) relations.Accessor {
	return func(root *models.Record) relations.Relation {
		return &belongsTo{target: target, root: root, foreignKey: foreignKey}
	}
}

// HasOne declares that at most one target record holds foreignKey pointing
// back at the root.
func HasOne(target *Repository, foreignKey string) relations.Accessor {
	return func(root *models.Record) relations.Relation {
		return &hasOne{target: target, root: root, foreignKey: foreignKey}
	}
}

// HasMany declares that a collection of target records holds foreignKey
// pointing back at the root.
func HasMany(target *Repository, foreignKey string) relations.Accessor {
	return func(root *models.Record) relations.Relation {
		return &hasMany{target: target, root: root, foreignKey: foreignKey}
	}
}

// BelongsToMany declares a many-to-many relation through the given pivot
// repository. pivotAccessor is the payload field carrying pivot data;
// targetNested lists nested-attribute keys declared on the target type, which
// must never be written as columns during the upsert.
func BelongsToMany(target *Repository, piv *pivot.Repository, pivotAccessor string, targetNested ...string) relations.Accessor {
	return func(root *models.Record) relations.Relation {
		return &belongsToMany{
			target:        target,
			pivot:         piv,
			root:          root,
			pivotAccessor: pivotAccessor,
			targetNested:  targetNested,
		}
	}
}

type belongsTo struct {
	target     *Repository
	root       *models.Record
	foreignKey string
}

func (r *belongsTo) TargetKeyName() string {
	return r.target.KeyName()
}

// Target is unscoped: the owning foreign key lives on the root, not on the
// created record.
func (r *belongsTo) Target() relations.Store {
	return r.target
}

func (r *belongsTo) Current(ctx context.Context) (*models.Record, error) {
	fk := r.root.Get(r.foreignKey)
	if fk == nil || fk == "" {
		return nil, nil
	}
	return r.target.FindByKey(ctx, fk)
}

func (r *belongsTo) Associate(child *models.Record) {
	r.root.Set(r.foreignKey, child.Key)
}

type hasOne struct {
	target     *Repository
	root       *models.Record
	foreignKey string
}

func (r *hasOne) TargetKeyName() string {
	return r.target.KeyName()
}

func (r *hasOne) Target() relations.Store {
	return &scopedStore{repo: r.target, foreignKey: r.foreignKey, root: r.root}
}

func (r *hasOne) Current(ctx context.Context) (*models.Record, error) {
	if !r.root.Persisted {
		return nil, nil
	}
	return r.target.FindOneBy(ctx, map[string]any{r.foreignKey: r.root.Key})
}

type hasMany struct {
	target     *Repository
	root       *models.Record
	foreignKey string
}

func (r *hasMany) TargetKeyName() string {
	return r.target.KeyName()
}

func (r *hasMany) Target() relations.Store {
	return &scopedStore{repo: r.target, foreignKey: r.foreignKey, root: r.root}
}

func (r *hasMany) Current(ctx context.Context) ([]*models.Record, error) {
	if !r.root.Persisted {
		return nil, nil
	}
	return r.target.FindAllBy(ctx, map[string]any{r.foreignKey: r.root.Key})
}

type belongsToMany struct {
	target        *Repository
	pivot         *pivot.Repository
	root          *models.Record
	pivotAccessor string
	targetNested  []string
}

func (r *belongsToMany) TargetKeyName() string {
	return r.target.KeyName()
}

func (r *belongsToMany) Target() relations.Store {
	return r.target
}

func (r *belongsToMany) PivotAccessor() string {
	return r.pivotAccessor
}

func (r *belongsToMany) TargetNestedKeys() []string {
	return r.targetNested
}

func (r *belongsToMany) Sync(ctx context.Context, set map[any]map[string]any) error {
	return r.pivot.Sync(ctx, r.root.Key, set)
}

// scopedStore wraps a repository so creates and upserts through a has_one or
// has_many relation always carry the owning foreign key back to the root.
type scopedStore struct {
	repo       *Repository
	root       *models.Record
	foreignKey string
}

func (s *scopedStore) scope(attrs map[string]any) map[string]any {
	scoped := make(map[string]any, len(attrs)+1)
	for k, v := range attrs {
		scoped[k] = v
	}
	scoped[s.foreignKey] = s.root.Key
	return scoped
}

func (s *scopedStore) Create(ctx context.Context, attrs map[string]any) (*models.Record, error) {
	return s.repo.Create(ctx, s.scope(attrs))
}

func (s *scopedStore) Update(ctx context.Context, rec *models.Record, attrs map[string]any) error {
	return s.repo.Update(ctx, rec, attrs)
}

func (s *scopedStore) Delete(ctx context.Context, rec *models.Record) error {
	return s.repo.Delete(ctx, rec)
}

func (s *scopedStore) FindByKeyOrFail(ctx context.Context, key any) (*models.Record, error) {
	return s.repo.FindByKeyOrFail(ctx, key)
}

func (s *scopedStore) UpdateOrCreate(ctx context.Context, match map[string]any, attrs map[string]any) (*models.Record, error) {
	return s.repo.UpdateOrCreate(ctx, s.scope(match), s.scope(attrs))
}
