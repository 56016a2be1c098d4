package relations

import (
	"context"

	"github.com/Ramsey-B/fern/pkg/models"
)

// Store is the persistence surface a reconciler needs for one relation's
// target records. Relation implementations scope it: stores returned by
// has_one/has_many handles set the owning foreign key on Create and
// UpdateOrCreate so reconcilers never deal with foreign keys directly.
type Store interface {
	Create(ctx context.Context, attrs map[string]any) (*models.Record, error)
	Update(ctx context.Context, rec *models.Record, attrs map[string]any) error
	Delete(ctx context.Context, rec *models.Record) error
	FindByKeyOrFail(ctx context.Context, key any) (*models.Record, error)
	UpdateOrCreate(ctx context.Context, match map[string]any, attrs map[string]any) (*models.Record, error)
}

// RootStore persists the root record. Save creates the record when it is not
// yet persisted and updates it otherwise.
type RootStore interface {
	Save(ctx context.Context, rec *models.Record) error
}

// Txn is one open transaction. Exactly one of Commit or Rollback is called on
// every exit path of a nested save.
type Txn interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Transactor begins transactions. The returned context carries the open
// transaction so stores invoked during the save run inside it.
type Transactor interface {
	Begin(ctx context.Context) (context.Context, Txn, error)
}

// Relation is a handle on one declared relation of a root record.
// Implementations advertise their cardinality through the capability
// interfaces below; classification never inspects names.
type Relation interface {
	// TargetKeyName is the primary key attribute name of the related record.
	TargetKeyName() string
	// Target is the store for the related records, scoped to this relation.
	Target() Store
}

// SingularRelation relates the root to at most one record.
type SingularRelation interface {
	Relation
	// Current returns the currently related record, or nil when none exists.
	Current(ctx context.Context) (*models.Record, error)
}

// BelongsToRelation is a singular relation whose foreign key lives on the
// root record. Associate writes the related record's key onto the root; the
// root must be persisted again afterwards for the association to stick.
type BelongsToRelation interface {
	SingularRelation
	Associate(child *models.Record)
}

// HasManyRelation relates the root to a collection of records, each carrying
// a foreign key back to the root.
type HasManyRelation interface {
	Relation
	// Current returns the records currently in the collection.
	Current(ctx context.Context) ([]*models.Record, error)
}

// BelongsToManyRelation relates the root to a collection of records through a
// pivot table.
type BelongsToManyRelation interface {
	Relation
	// PivotAccessor is the payload field under which pivot data travels.
	PivotAccessor() string
	// TargetNestedKeys lists the nested-attribute keys declared on the target
	// record type. These are relation payloads, not columns, and must never
	// be written during the upsert.
	TargetNestedKeys() []string
	// Sync reconciles the pivot table against the full set of target keys.
	// Keys absent from the set are detached; keys present are attached or
	// updated with their pivot attributes (nil means no pivot data).
	Sync(ctx context.Context, set map[any]map[string]any) error
}
