package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// SequenceQuerier adapts the transaction manager for document numbering.
// Numbers allocated inside a transaction roll back with it, keeping the
// sequence gapless when a create fails.
type SequenceQuerier struct {
	txManager *TxManager
}

func NewSequenceQuerier(txManager *TxManager) *SequenceQuerier {
	return &SequenceQuerier{txManager: txManager}
}

func (q *SequenceQuerier) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return q.txManager.GetQuerier(ctx).QueryRow(ctx, sql, args...)
}
