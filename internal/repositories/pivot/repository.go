package pivot

import (
	"context"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// Repository manages one join table for a many-to-many relation. Rows carry
// (root key, target key) plus an optional jsonb bag of pivot attributes.
type Repository struct {
	db           database.DB
	logger       ectologger.Logger
	table        string
	rootColumn   string
	targetColumn string
}

// NewRepository creates a pivot repository for the given join table
func NewRepository(db database.DB, logger ectologger.Logger, table, rootColumn, targetColumn string) *Repository {
	return &Repository{
		db:           db,
		logger:       logger,
		table:        table,
		rootColumn:   rootColumn,
		targetColumn: targetColumn,
	}
}

// Now returns the current time in UTC
func Now() time.Time {
	return time.Now().UTC()
}

// Sync reconciles the join table for one root against the full target set in
// a single pass: rows whose target key is absent from the set are detached,
// rows present are attached or updated with their pivot attributes.
func (r *Repository) Sync(ctx context.Context, rootKey any, set map[any]map[string]any) error {
	ctx, span := tracing.StartSpan(ctx, "pivot.Repository.Sync")
	defer span.End()

	log := r.logger.WithContext(ctx).WithFields(map[string]any{"table": r.table, "root": rootKey})

	if err := r.detach(ctx, rootKey, set); err != nil {
		return err
	}

	now := Now()
	q := database.QuerierFromContext(ctx, r.db)
	for targetKey, attrs := range set {
		ib := database.NewInsertBuilder()
		ib.InsertInto(r.table)
		ib.Cols(r.rootColumn, r.targetColumn, "attrs", "created_at", "updated_at")
		ib.Values(rootKey, targetKey, database.JSONB[map[string]any]{Data: attrs}, now, now)
		ub := ib.OnConflict(r.rootColumn, r.targetColumn)
		ub.Set(
			ub.Assign("attrs", database.Excluded("attrs")),
			ub.Assign("updated_at", database.Excluded("updated_at")),
		)

		query, args := ib.Build()
		if _, err := q.ExecContext(ctx, query, args...); err != nil {
			log.WithError(err).WithFields(map[string]any{"target": targetKey}).Error("Failed to attach pivot row")
			return httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to sync %s associations", r.table)
		}
	}

	log.WithFields(map[string]any{"count": len(set)}).Debug("Synced pivot rows")
	return nil
}

func (r *Repository) detach(ctx context.Context, rootKey any, set map[any]map[string]any) error {
	db := database.NewDeleteBuilder()
	db.DeleteFrom(r.table)
	where := []string{db.Equal(r.rootColumn, rootKey)}
	if len(set) > 0 {
		keys := make([]any, 0, len(set))
		for targetKey := range set {
			keys = append(keys, targetKey)
		}
		where = append(where, db.NotIn(r.targetColumn, keys...))
	}
	db.Where(where...)

	query, args := db.Build()
	q := database.QuerierFromContext(ctx, r.db)
	if _, err := q.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"table": r.table, "root": rootKey}).Error("Failed to detach pivot rows")
		return httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to sync %s associations", r.table)
	}
	return nil
}
