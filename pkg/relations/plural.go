package relations

import (
	"context"
	"fmt"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/pkg/models"
)

// PluralReconciler is the persistence strategy for has_many relations: a
// collection of related records diffed by key.
type PluralReconciler struct {
	destroy DestroyPolicy
	logger  ectologger.Logger
}

func NewPluralReconciler(destroy DestroyPolicy, logger ectologger.Logger) *PluralReconciler {
	return &PluralReconciler{
		destroy: destroy,
		logger:  logger,
	}
}

// Reconcile prunes the current collection against the incoming key set, then
// applies each payload. Pruning must run first so stale rows are gone before
// new rows with potentially reused natural keys are created.
func (r *PluralReconciler) Reconcile(ctx context.Context, root *models.Record, key string, rel HasManyRelation, payloads []map[string]any) error {
	log := r.logger.WithContext(ctx).WithFields(map[string]any{"relation": key})

	keyName := rel.TargetKeyName()

	if err := r.prune(ctx, key, rel, payloads); err != nil {
		return err
	}

	for _, payload := range payloads {
		keyVal, hasKey := payload[keyName]

		if root.Persisted && hasKey {
			rec, err := rel.Target().FindByKeyOrFail(ctx, keyVal)
			if err != nil {
				log.WithError(err).WithFields(map[string]any{"key": keyVal}).Error("Related record referenced by payload does not exist")
				return WrapNotFound(key, keyVal, err)
			}

			if r.destroy.ShouldDestroy(payload) {
				if err := rel.Target().Delete(ctx, rec); err != nil {
					log.WithError(err).WithFields(map[string]any{"key": keyVal}).Error("Failed to delete related record")
					return WrapPersistence(key, "delete", err)
				}
				continue
			}

			if err := rel.Target().Update(ctx, rec, writeAttrs(payload, r.destroy.Key, keyName)); err != nil {
				log.WithError(err).WithFields(map[string]any{"key": keyVal}).Error("Failed to update related record")
				return WrapPersistence(key, "update", err)
			}
			continue
		}

		if r.destroy.ShouldDestroy(payload) {
			continue
		}

		if _, err := rel.Target().Create(ctx, writeAttrs(payload, r.destroy.Key)); err != nil {
			log.WithError(err).Error("Failed to create related record")
			return WrapPersistence(key, "create", err)
		}
	}

	return nil
}

// prune deletes records currently in the collection whose key is absent from
// the incoming payload sequence. An incoming sequence with no key-bearing
// payloads at all means a full replace: every current record is deleted.
func (r *PluralReconciler) prune(ctx context.Context, key string, rel HasManyRelation, payloads []map[string]any) error {
	log := r.logger.WithContext(ctx).WithFields(map[string]any{"relation": key})

	keyName := rel.TargetKeyName()
	keep := map[string]struct{}{}
	for _, payload := range payloads {
		if v, ok := payload[keyName]; ok {
			keep[keyString(v)] = struct{}{}
		}
	}

	current, err := rel.Current(ctx)
	if err != nil {
		log.WithError(err).Error("Failed to load current collection")
		return WrapPersistence(key, "current", err)
	}

	pruned := 0
	for _, rec := range current {
		if _, ok := keep[keyString(rec.Key)]; ok {
			continue
		}
		if err := rel.Target().Delete(ctx, rec); err != nil {
			log.WithError(err).WithFields(map[string]any{"key": rec.Key}).Error("Failed to prune related record")
			return WrapPersistence(key, "prune", err)
		}
		pruned++
	}

	if pruned > 0 {
		log.WithFields(map[string]any{"count": pruned}).Debug("Pruned related records")
	}
	return nil
}

// keyString normalizes key values for comparison. JSON decoding turns numeric
// keys into float64 while storage hands back int64, so raw equality is not
// enough.
func keyString(v any) string {
	switch val := v.(type) {
	case float64:
		if val == float64(int64(val)) {
			return fmt.Sprintf("%d", int64(val))
		}
		return fmt.Sprintf("%v", val)
	default:
		return fmt.Sprintf("%v", val)
	}
}
