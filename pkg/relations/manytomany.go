package relations

import (
	"context"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/pkg/models"
)

// ManyToManyReconciler is the persistence strategy for belongs_to_many
// relations: upsert the target records, then hand the full key set (with any
// pivot data) to the relation's Sync for authoritative pivot reconciliation.
type ManyToManyReconciler struct {
	destroy DestroyPolicy
	logger  ectologger.Logger
}

func NewManyToManyReconciler(destroy DestroyPolicy, logger ectologger.Logger) *ManyToManyReconciler {
	return &ManyToManyReconciler{
		destroy: destroy,
		logger:  logger,
	}
}

func (r *ManyToManyReconciler) Reconcile(ctx context.Context, root *models.Record, key string, rel BelongsToManyRelation, payloads []map[string]any) error {
	log := r.logger.WithContext(ctx).WithFields(map[string]any{"relation": key})

	keyName := rel.TargetKeyName()
	pivotAccessor := rel.PivotAccessor()

	set := make(map[any]map[string]any, len(payloads))
	for _, payload := range payloads {
		keyVal, hasKey := payload[keyName]

		// A destroy-flagged payload removes the target record itself, not
		// just the pivot row, and never joins the association set.
		if root.Persisted && hasKey && r.destroy.ShouldDestroy(payload) {
			rec, err := rel.Target().FindByKeyOrFail(ctx, keyVal)
			if err != nil {
				log.WithError(err).WithFields(map[string]any{"key": keyVal}).Error("Record flagged for destroy does not exist")
				return WrapNotFound(key, keyVal, err)
			}
			if err := rel.Target().Delete(ctx, rec); err != nil {
				log.WithError(err).WithFields(map[string]any{"key": keyVal}).Error("Failed to delete related record")
				return WrapPersistence(key, "delete", err)
			}
			continue
		}

		// Nested keys declared on the target type and the pivot accessor are
		// relation payloads, not columns.
		drop := append([]string{r.destroy.Key, pivotAccessor}, rel.TargetNestedKeys()...)

		var match map[string]any
		if hasKey {
			drop = append(drop, keyName)
			match = map[string]any{keyName: keyVal}
		}
		attrs := writeAttrs(payload, drop...)
		if !hasKey {
			// Natural-key upsert: match on the full (column) payload.
			match = attrs
		}

		rec, err := rel.Target().UpdateOrCreate(ctx, match, attrs)
		if err != nil {
			log.WithError(err).Error("Failed to upsert related record")
			return WrapPersistence(key, "upsert", err)
		}

		if pivot, ok := payload[pivotAccessor].(map[string]any); ok && len(pivot) > 0 {
			set[rec.Key] = pivot
		} else {
			set[rec.Key] = nil
		}
	}

	if err := rel.Sync(ctx, set); err != nil {
		log.WithError(err).Error("Failed to sync pivot associations")
		return WrapPersistence(key, "sync", err)
	}

	log.WithFields(map[string]any{"count": len(set)}).Debug("Synced pivot associations")
	return nil
}
