package relations

import (
	"context"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/pkg/models"
)

// SingularReconciler is the persistence strategy for belongs_to and has_one
// relations: at most one related record.
type SingularReconciler struct {
	destroy DestroyPolicy
	logger  ectologger.Logger
}

func NewSingularReconciler(destroy DestroyPolicy, logger ectologger.Logger) *SingularReconciler {
	return &SingularReconciler{
		destroy: destroy,
		logger:  logger,
	}
}

// Reconcile applies the payload to the relation. The returned rootDirty flag
// reports that the reconciler wrote a foreign key onto the root record (the
// belongs_to creation path) and the caller must persist the root again.
func (r *SingularReconciler) Reconcile(ctx context.Context, root *models.Record, key string, rel SingularRelation, payload map[string]any) (rootDirty bool, err error) {
	log := r.logger.WithContext(ctx).WithFields(map[string]any{"relation": key})

	var current *models.Record
	if root.Persisted {
		current, err = rel.Current(ctx)
		if err != nil {
			log.WithError(err).Error("Failed to load current related record")
			return false, WrapPersistence(key, "current", err)
		}
	}

	if current != nil {
		if r.destroy.ShouldDestroy(payload) {
			if err := rel.Target().Delete(ctx, current); err != nil {
				log.WithError(err).Error("Failed to delete related record")
				return false, WrapPersistence(key, "delete", err)
			}
			log.WithFields(map[string]any{"key": current.Key}).Debug("Deleted related record")
			return false, nil
		}

		if err := rel.Target().Update(ctx, current, writeAttrs(payload, r.destroy.Key, rel.TargetKeyName())); err != nil {
			log.WithError(err).Error("Failed to update related record")
			return false, WrapPersistence(key, "update", err)
		}
		return false, nil
	}

	// Creation path. A destroy flag with nothing to destroy is a no-op rather
	// than a create of a record the caller asked to remove.
	if r.destroy.ShouldDestroy(payload) {
		return false, nil
	}

	created, err := rel.Target().Create(ctx, writeAttrs(payload, r.destroy.Key))
	if err != nil {
		log.WithError(err).Error("Failed to create related record")
		return false, WrapPersistence(key, "create", err)
	}

	// belongs_to keeps the owning foreign key on the root record, so the new
	// record must be associated back and the root persisted a second time.
	if bt, ok := rel.(BelongsToRelation); ok {
		bt.Associate(created)
		rootDirty = true
	}

	log.WithFields(map[string]any{"key": created.Key}).Debug("Created related record")
	return rootDirty, nil
}

// writeAttrs copies a payload, dropping the given non-column keys.
func writeAttrs(payload map[string]any, drop ...string) map[string]any {
	attrs := make(map[string]any, len(payload))
	for k, v := range payload {
		attrs[k] = v
	}
	for _, k := range drop {
		delete(attrs, k)
	}
	return attrs
}
