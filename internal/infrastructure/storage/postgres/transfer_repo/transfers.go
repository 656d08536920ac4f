// Package transfer_repo provides the PostgreSQL transfer repository.
package transfer_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"obrador/internal/core/apperror"
	"obrador/internal/core/id"
	"obrador/internal/domain/transfer"
	"obrador/internal/infrastructure/storage/postgres"
)

const (
	transfersTable     = "transfers"
	transferLinesTable = "transfer_lines"
)

// TransferRepo implements transfer.Repository.
type TransferRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
}

// NewTransferRepo creates a new transfer repository.
func NewTransferRepo(txManager *postgres.TxManager) *TransferRepo {
	return &TransferRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Create persists a transfer with its lines.
func (r *TransferRepo) Create(ctx context.Context, t *transfer.Transfer) error {
	q := r.builder.Insert(transfersTable).
		Columns(
			"id", "number", "version",
			"origin_warehouse_id", "dest_warehouse_id", "state", "observations",
			"received_at", "received_by", "cancelled_at",
			"created_at", "updated_at", "created_by", "updated_by",
		).
		Values(
			t.ID, t.Number, t.Version,
			t.OriginWarehouseID, t.DestWarehouseID, t.State, t.Observations,
			t.ReceivedAt, t.ReceivedBy, t.CancelledAt,
			t.CreatedAt, t.UpdatedAt, t.CreatedBy, t.UpdatedBy,
		)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert transfer: %w", err)
	}

	return r.insertLines(ctx, t)
}

func (r *TransferRepo) insertLines(ctx context.Context, t *transfer.Transfer) error {
	if len(t.Lines) == 0 {
		return nil
	}

	q := r.builder.Insert(transferLinesTable).
		Columns("transfer_id", "line_no", "product_key", "quantity", "weight_kg", "lot", "comment")
	for _, line := range t.Lines {
		q = q.Values(t.ID, line.LineNo, line.ProductKey, line.Quantity.Int64Scaled(), line.WeightKg, line.Lot, line.Comment)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build lines insert: %w", err)
	}

	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert transfer lines: %w", err)
	}

	return nil
}

// GetByID retrieves a transfer with its lines.
func (r *TransferRepo) GetByID(ctx context.Context, transferID id.ID) (*transfer.Transfer, error) {
	return r.get(ctx, transferID, false)
}

// GetByIDForUpdate retrieves a transfer with a row lock.
// Confirmation serializes on this lock.
func (r *TransferRepo) GetByIDForUpdate(ctx context.Context, transferID id.ID) (*transfer.Transfer, error) {
	if r.txManager.GetTx(ctx) == nil {
		return nil, fmt.Errorf("GetByIDForUpdate requires transaction context")
	}
	return r.get(ctx, transferID, true)
}

func (r *TransferRepo) get(ctx context.Context, transferID id.ID, forUpdate bool) (*transfer.Transfer, error) {
	q := r.builder.Select(
		"id", "number", "version",
		"origin_warehouse_id", "dest_warehouse_id", "state", "observations",
		"received_at", "received_by", "cancelled_at",
		"created_at", "updated_at", "created_by", "updated_by",
	).From(transfersTable).
		Where(squirrel.Eq{"id": transferID})

	if forUpdate {
		q = q.Suffix("FOR UPDATE")
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var t transfer.Transfer
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &t, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("transfer", transferID)
		}
		return nil, fmt.Errorf("get transfer: %w", err)
	}

	lines, err := r.getLines(ctx, transferID)
	if err != nil {
		return nil, err
	}
	t.Lines = lines

	return &t, nil
}

func (r *TransferRepo) getLines(ctx context.Context, transferID id.ID) ([]transfer.Line, error) {
	q := r.builder.Select("line_no", "product_key", "quantity", "weight_kg", "lot", "comment").
		From(transferLinesTable).
		Where(squirrel.Eq{"transfer_id": transferID}).
		OrderBy("line_no")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build lines query: %w", err)
	}

	var lines []transfer.Line
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &lines, sql, args...); err != nil {
		return nil, fmt.Errorf("select transfer lines: %w", err)
	}

	return lines, nil
}

// UpdateState persists a state change with an optimistic version check.
func (r *TransferRepo) UpdateState(ctx context.Context, t *transfer.Transfer) error {
	q := r.builder.Update(transfersTable).
		Set("state", t.State).
		Set("version", t.Version).
		Set("received_at", t.ReceivedAt).
		Set("received_by", t.ReceivedBy).
		Set("cancelled_at", t.CancelledAt).
		Set("updated_at", t.UpdatedAt).
		Set("updated_by", t.UpdatedBy).
		Where(squirrel.Eq{"id": t.ID}).
		Where(squirrel.Lt{"version": t.Version})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	tag, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update transfer: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return apperror.NewConcurrencyConflict("transfer", t.ID)
	}

	return nil
}

// List retrieves transfers matching the filter, newest first.
// WarehouseID matches either side of the transfer.
func (r *TransferRepo) List(ctx context.Context, filter transfer.ListFilter) ([]*transfer.Transfer, error) {
	q := r.builder.Select(
		"id", "number", "version",
		"origin_warehouse_id", "dest_warehouse_id", "state", "observations",
		"received_at", "received_by", "cancelled_at",
		"created_at", "updated_at", "created_by", "updated_by",
	).From(transfersTable)

	if filter.WarehouseID != "" {
		q = q.Where(squirrel.Or{
			squirrel.Eq{"origin_warehouse_id": filter.WarehouseID},
			squirrel.Eq{"dest_warehouse_id": filter.WarehouseID},
		})
	}
	if len(filter.States) > 0 {
		q = q.Where(squirrel.Eq{"state": filter.States})
	}
	if filter.FromDate != nil {
		q = q.Where(squirrel.GtOrEq{"created_at": *filter.FromDate})
	}
	if filter.ToDate != nil {
		q = q.Where(squirrel.LtOrEq{"created_at": *filter.ToDate})
	}

	q = q.OrderBy("created_at DESC")

	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var transfers []*transfer.Transfer
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &transfers, sql, args...); err != nil {
		return nil, fmt.Errorf("select transfers: %w", err)
	}

	for _, t := range transfers {
		lines, err := r.getLines(ctx, t.ID)
		if err != nil {
			return nil, err
		}
		t.Lines = lines
	}

	return transfers, nil
}

var _ transfer.Repository = (*TransferRepo)(nil)
