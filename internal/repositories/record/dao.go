package record

import (
	"database/sql"
	"time"

	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/models"
)

// Row is the database row backing a record: a key column plus a jsonb
// attribute bag. Every table managed by this repository shares this shape.
type Row struct {
	ID        sql.NullString                 `db:"id"`
	Attrs     database.JSONB[map[string]any] `db:"attrs"`
	CreatedAt sql.NullTime                   `db:"created_at"`
	UpdatedAt sql.NullTime                   `db:"updated_at"`
}

var recordStruct = database.NewStruct(new(Row))

func toRecord(keyName string, row *Row) *models.Record {
	attrs := row.Attrs.GetValue()
	if attrs == nil {
		attrs = map[string]any{}
	}
	rec := &models.Record{
		KeyName:   keyName,
		Key:       row.ID.String,
		Attrs:     attrs,
		Persisted: true,
		CreatedAt: row.CreatedAt.Time,
		UpdatedAt: row.UpdatedAt.Time,
	}
	return rec
}

func toRecords(keyName string, rows []Row) []*models.Record {
	records := make([]*models.Record, len(rows))
	for i, row := range rows {
		records[i] = toRecord(keyName, &row)
	}
	return records
}

// Now returns the current time in UTC
func Now() time.Time {
	return time.Now().UTC()
}
