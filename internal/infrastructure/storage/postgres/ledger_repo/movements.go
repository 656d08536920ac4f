// Package ledger_repo provides the PostgreSQL movement log repository.
package ledger_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"obrador/internal/core/id"
	"obrador/internal/domain/ledger"
	"obrador/internal/infrastructure/storage/postgres"
)

const movementsTable = "stock_movements"

var movementColumns = []string{
	"id", "warehouse_id", "product_key", "lot", "kind",
	"quantity", "weight_kg", "unit", "reason",
	"transfer_ref", "order_ref", "created_by", "created_at",
}

// MovementRepo implements ledger.Repository.
type MovementRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
}

// NewMovementRepo creates a new movement repository.
func NewMovementRepo(txManager *postgres.TxManager) *MovementRepo {
	return &MovementRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// AppendMovements batch inserts movements.
// Inside a transaction the COPY protocol is used; transfer confirmation and
// return registration always run transactional, so this is the common path.
func (r *MovementRepo) AppendMovements(ctx context.Context, movements []ledger.Movement) error {
	if len(movements) == 0 {
		return nil
	}

	if tx := r.txManager.GetTx(ctx); tx != nil {
		inserter := postgres.NewBatchInserter(r.txManager)
		rows := make([][]any, 0, len(movements))
		for i := range movements {
			rows = append(rows, movementValues(&movements[i]))
		}
		if _, err := inserter.CopyFromSlice(ctx, movementsTable, movementColumns, rows); err != nil {
			return fmt.Errorf("copy movements: %w", err)
		}
		return nil
	}

	q := r.builder.Insert(movementsTable).Columns(movementColumns...)
	for i := range movements {
		q = q.Values(movementValues(&movements[i])...)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert movements: %w", err)
	}

	return nil
}

func movementValues(m *ledger.Movement) []any {
	return []any{
		m.ID, m.WarehouseID, m.ProductKey, m.Lot, m.Kind,
		m.Quantity.Int64Scaled(), m.WeightKg, m.Unit, m.Reason,
		m.TransferRef, m.OrderRef, m.CreatedBy, m.CreatedAt,
	}
}

// ListByWarehouse returns movements for a warehouse in append order.
// UUIDv7 ids are time-ordered, so ordering by id preserves append order.
func (r *MovementRepo) ListByWarehouse(ctx context.Context, warehouseID string, filter ledger.MovementFilter) ([]ledger.Movement, error) {
	q := r.builder.Select(movementColumns...).
		From(movementsTable).
		Where(squirrel.Eq{"warehouse_id": warehouseID})

	if filter.ProductKey != "" {
		q = q.Where(squirrel.Eq{"product_key": filter.ProductKey})
	}
	if filter.Kind != nil {
		q = q.Where(squirrel.Eq{"kind": *filter.Kind})
	}
	if filter.FromDate != nil {
		q = q.Where(squirrel.GtOrEq{"created_at": *filter.FromDate})
	}
	if filter.ToDate != nil {
		q = q.Where(squirrel.LtOrEq{"created_at": *filter.ToDate})
	}

	q = q.OrderBy("id")

	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	return r.selectMovements(ctx, q)
}

// ListByKey returns movements for a (warehouse, product[, lot]) key.
func (r *MovementRepo) ListByKey(ctx context.Context, warehouseID, productKey string, lot *string) ([]ledger.Movement, error) {
	q := r.builder.Select(movementColumns...).
		From(movementsTable).
		Where(squirrel.Eq{
			"warehouse_id": warehouseID,
			"product_key":  productKey,
		})

	if lot != nil {
		q = q.Where(squirrel.Eq{"lot": *lot})
	}

	return r.selectMovements(ctx, q.OrderBy("id"))
}

// ListByTransfer returns the movements emitted by a transfer confirmation.
func (r *MovementRepo) ListByTransfer(ctx context.Context, transferID id.ID) ([]ledger.Movement, error) {
	q := r.builder.Select(movementColumns...).
		From(movementsTable).
		Where(squirrel.Eq{"transfer_ref": transferID}).
		OrderBy("id")

	return r.selectMovements(ctx, q)
}

// ListByOrder returns the return movements emitted for an order.
func (r *MovementRepo) ListByOrder(ctx context.Context, orderID id.ID) ([]ledger.Movement, error) {
	q := r.builder.Select(movementColumns...).
		From(movementsTable).
		Where(squirrel.Eq{"order_ref": orderID}).
		OrderBy("id")

	return r.selectMovements(ctx, q)
}

func (r *MovementRepo) selectMovements(ctx context.Context, q squirrel.SelectBuilder) ([]ledger.Movement, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var movements []ledger.Movement
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &movements, sql, args...); err != nil {
		return nil, fmt.Errorf("select movements: %w", err)
	}

	return movements, nil
}

var _ ledger.Repository = (*MovementRepo)(nil)
