package record

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

const keyColumn = "id"

// Repository persists records for one table. Tables managed by this
// repository share the (id, attrs jsonb, created_at, updated_at) shape; the
// attribute bag carries the record's columns, including any foreign keys.
//
// Every statement runs on the transaction carried by the context when one is
// open, so a nested save stays atomic end to end.
type Repository struct {
	db     database.DB
	logger ectologger.Logger
	table  string
}

// NewRepository creates a record repository for the given table
func NewRepository(db database.DB, logger ectologger.Logger, table string) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
		table:  table,
	}
}

// KeyName returns the primary key attribute name.
func (r *Repository) KeyName() string {
	return keyColumn
}

// Create inserts a new record. A key present in attrs is honored, otherwise
// one is generated.
func (r *Repository) Create(ctx context.Context, attrs map[string]any) (*models.Record, error) {
	ctx, span := tracing.StartSpan(ctx, "record.Repository.Create")
	defer span.End()

	id, _ := attrs[keyColumn].(string)
	if id == "" {
		id = uuid.New().String()
	}

	columns := make(map[string]any, len(attrs))
	for k, v := range attrs {
		if k == keyColumn {
			continue
		}
		columns[k] = v
	}

	now := Now()
	ib := database.NewInsertBuilder()
	ib.InsertInto(r.table)
	ib.Cols(keyColumn, "attrs", "created_at", "updated_at")
	ib.Values(id, database.JSONB[map[string]any]{Data: columns}, now, now)

	query, args := ib.Build()
	q := database.QuerierFromContext(ctx, r.db)
	if _, err := q.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"table": r.table, "id": id}).Error("Failed to create record")
		return nil, httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to create %s record", r.table)
	}

	return &models.Record{
		KeyName:   keyColumn,
		Key:       id,
		Attrs:     columns,
		Persisted: true,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Update merges the given attributes into an existing record.
func (r *Repository) Update(ctx context.Context, rec *models.Record, attrs map[string]any) error {
	ctx, span := tracing.StartSpan(ctx, "record.Repository.Update")
	defer span.End()

	patch, err := json.Marshal(attrs)
	if err != nil {
		return httperror.NewHTTPErrorf(http.StatusBadRequest, "invalid attributes for %s record: %v", r.table, err)
	}

	now := Now()
	ub := database.NewUpdateBuilder()
	ub.Update(r.table)
	ub.Set(
		fmt.Sprintf("attrs = attrs || %s::jsonb", ub.Var(string(patch))),
		ub.Assign("updated_at", now),
	)
	ub.Where(ub.Equal(keyColumn, rec.Key))

	query, args := ub.Build()
	q := database.QuerierFromContext(ctx, r.db)
	result, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"table": r.table, "id": rec.Key}).Error("Failed to update record")
		return httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to update %s record", r.table)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return httperror.NewHTTPErrorf(http.StatusNotFound, "%s record %v not found", r.table, rec.Key)
	}

	for k, v := range attrs {
		rec.Set(k, v)
	}
	rec.UpdatedAt = now
	return nil
}

// Delete removes a record.
func (r *Repository) Delete(ctx context.Context, rec *models.Record) error {
	ctx, span := tracing.StartSpan(ctx, "record.Repository.Delete")
	defer span.End()

	db := database.NewDeleteBuilder()
	db.DeleteFrom(r.table)
	db.Where(db.Equal(keyColumn, rec.Key))

	query, args := db.Build()
	q := database.QuerierFromContext(ctx, r.db)
	result, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"table": r.table, "id": rec.Key}).Error("Failed to delete record")
		return httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to delete %s record", r.table)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return httperror.NewHTTPErrorf(http.StatusNotFound, "%s record %v not found", r.table, rec.Key)
	}

	rec.Persisted = false
	return nil
}

// FindByKey retrieves a record by key, returning nil when it does not exist.
func (r *Repository) FindByKey(ctx context.Context, key any) (*models.Record, error) {
	ctx, span := tracing.StartSpan(ctx, "record.Repository.FindByKey")
	defer span.End()

	sb := recordStruct.SelectFrom(r.table)
	sb.Where(sb.Equal(keyColumn, key))

	query, args := sb.Build()
	q := database.QuerierFromContext(ctx, r.db)
	var row Row
	if err := q.GetContext(ctx, &row, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"table": r.table, "id": key}).Error("Failed to get record")
		return nil, httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to get %s record", r.table)
	}

	return toRecord(keyColumn, &row), nil
}

// FindByKeyOrFail retrieves a record by key, failing loudly when it does not
// exist.
func (r *Repository) FindByKeyOrFail(ctx context.Context, key any) (*models.Record, error) {
	rec, err := r.FindByKey(ctx, key)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, httperror.NewHTTPErrorf(http.StatusNotFound, "%s record %v not found", r.table, key)
	}
	return rec, nil
}

// FindOneBy retrieves the first record whose attributes contain the given
// match, or nil when none does.
func (r *Repository) FindOneBy(ctx context.Context, match map[string]any) (*models.Record, error) {
	records, err := r.findBy(ctx, match, 1)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return records[0], nil
}

// FindAllBy retrieves every record whose attributes contain the given match.
func (r *Repository) FindAllBy(ctx context.Context, match map[string]any) ([]*models.Record, error) {
	return r.findBy(ctx, match, 0)
}

func (r *Repository) findBy(ctx context.Context, match map[string]any, limit int) ([]*models.Record, error) {
	ctx, span := tracing.StartSpan(ctx, "record.Repository.findBy")
	defer span.End()

	sb := recordStruct.SelectFrom(r.table)
	contains := make(map[string]any, len(match))
	for k, v := range match {
		if k == keyColumn {
			sb.Where(sb.Equal(keyColumn, v))
			continue
		}
		contains[k] = v
	}
	if len(contains) > 0 {
		b, err := json.Marshal(contains)
		if err != nil {
			return nil, httperror.NewHTTPErrorf(http.StatusBadRequest, "invalid match attributes for %s record: %v", r.table, err)
		}
		sb.Where(fmt.Sprintf("attrs @> %s::jsonb", sb.Var(string(b))))
	}
	sb.OrderBy("created_at")
	if limit > 0 {
		sb.Limit(limit)
	}

	query, args := sb.Build()
	q := database.QuerierFromContext(ctx, r.db)
	var rows []Row
	if err := q.SelectContext(ctx, &rows, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"table": r.table, "match": match}).Error("Failed to find records")
		return nil, httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to find %s records", r.table)
	}

	return toRecords(keyColumn, rows), nil
}

// UpdateOrCreate finds a record by the match attributes and updates it, or
// creates one when no record matches.
func (r *Repository) UpdateOrCreate(ctx context.Context, match map[string]any, attrs map[string]any) (*models.Record, error) {
	ctx, span := tracing.StartSpan(ctx, "record.Repository.UpdateOrCreate")
	defer span.End()

	existing, err := r.FindOneBy(ctx, match)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if err := r.Update(ctx, existing, attrs); err != nil {
			return nil, err
		}
		return existing, nil
	}

	merged := make(map[string]any, len(match)+len(attrs))
	for k, v := range match {
		merged[k] = v
	}
	for k, v := range attrs {
		merged[k] = v
	}
	return r.Create(ctx, merged)
}

// Save persists a root record: an insert when the record is new, otherwise a
// full attribute write.
func (r *Repository) Save(ctx context.Context, rec *models.Record) error {
	ctx, span := tracing.StartSpan(ctx, "record.Repository.Save")
	defer span.End()

	if !rec.Persisted {
		id, _ := rec.Key.(string)
		if id == "" {
			id = uuid.New().String()
		}

		now := Now()
		ib := database.NewInsertBuilder()
		ib.InsertInto(r.table)
		ib.Cols(keyColumn, "attrs", "created_at", "updated_at")
		ib.Values(id, database.JSONB[map[string]any]{Data: rec.Attrs}, now, now)

		query, args := ib.Build()
		q := database.QuerierFromContext(ctx, r.db)
		if _, err := q.ExecContext(ctx, query, args...); err != nil {
			r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"table": r.table, "id": id}).Error("Failed to insert root record")
			return httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to save %s record", r.table)
		}

		rec.Key = id
		rec.Persisted = true
		rec.CreatedAt = now
		rec.UpdatedAt = now
		return nil
	}

	now := Now()
	ub := database.NewUpdateBuilder()
	ub.Update(r.table)
	ub.Set(
		ub.Assign("attrs", database.JSONB[map[string]any]{Data: rec.Attrs}),
		ub.Assign("updated_at", now),
	)
	ub.Where(ub.Equal(keyColumn, rec.Key))

	query, args := ub.Build()
	q := database.QuerierFromContext(ctx, r.db)
	result, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"table": r.table, "id": rec.Key}).Error("Failed to update root record")
		return httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to save %s record", r.table)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return httperror.NewHTTPErrorf(http.StatusNotFound, "%s record %v not found", r.table, rec.Key)
	}

	rec.UpdatedAt = now
	return nil
}
