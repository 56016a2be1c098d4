package record

import (
	"context"

	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/relations"
)

// Transactor adapts the database handle to the nested save engine's
// transaction contract. The returned context carries the open transaction, so
// every repository call made during the save runs inside it.
type Transactor struct {
	db database.DB
}

func NewTransactor(db database.DB) *Transactor {
	return &Transactor{db: db}
}

func (t *Transactor) Begin(ctx context.Context) (context.Context, relations.Txn, error) {
	ctx, tx, err := t.db.GetTx(ctx, nil)
	if err != nil {
		return ctx, nil, err
	}
	return ctx, tx, nil
}
