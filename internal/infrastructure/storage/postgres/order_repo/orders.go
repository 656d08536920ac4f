// Package order_repo provides the PostgreSQL order repository.
package order_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"obrador/internal/core/apperror"
	"obrador/internal/core/id"
	"obrador/internal/domain/order"
	"obrador/internal/infrastructure/storage/postgres"
)

const (
	ordersTable      = "orders"
	orderLinesTable  = "order_lines"
	historyTable     = "order_history"
	returnsTable     = "order_returns"
	returnLinesTable = "order_return_lines"
)

// OrderRepo implements order.Repository.
type OrderRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
}

// NewOrderRepo creates a new order repository.
func NewOrderRepo(txManager *postgres.TxManager) *OrderRepo {
	return &OrderRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

var orderColumns = []string{
	"id", "number", "version",
	"warehouse_id", "customer_name", "state", "package_count",
	"delivery_date", "observations",
	"created_at", "updated_at", "created_by", "updated_by",
}

func orderValues(o *order.Order) []any {
	return []any{
		o.ID, o.Number, o.Version,
		o.WarehouseID, o.CustomerName, o.State, o.PackageCount,
		o.DeliveryDate, o.Observations,
		o.CreatedAt, o.UpdatedAt, o.CreatedBy, o.UpdatedBy,
	}
}

// Create persists an order with lines and initial history.
func (r *OrderRepo) Create(ctx context.Context, o *order.Order) error {
	q := r.builder.Insert(ordersTable).Columns(orderColumns...).Values(orderValues(o)...)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	if err := r.replaceLines(ctx, o); err != nil {
		return err
	}
	return r.appendHistory(ctx, o.ID, o.History, 0)
}

// GetByID retrieves an order with all its table parts.
func (r *OrderRepo) GetByID(ctx context.Context, orderID id.ID) (*order.Order, error) {
	return r.get(ctx, orderID, false)
}

// GetByIDForUpdate retrieves an order with a row lock.
func (r *OrderRepo) GetByIDForUpdate(ctx context.Context, orderID id.ID) (*order.Order, error) {
	if r.txManager.GetTx(ctx) == nil {
		return nil, fmt.Errorf("GetByIDForUpdate requires transaction context")
	}
	return r.get(ctx, orderID, true)
}

func (r *OrderRepo) get(ctx context.Context, orderID id.ID, forUpdate bool) (*order.Order, error) {
	q := r.builder.Select(orderColumns...).
		From(ordersTable).
		Where(squirrel.Eq{"id": orderID})

	if forUpdate {
		q = q.Suffix("FOR UPDATE")
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var o order.Order
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &o, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("order", orderID)
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	if err := r.loadParts(ctx, &o); err != nil {
		return nil, err
	}

	return &o, nil
}

func (r *OrderRepo) loadParts(ctx context.Context, o *order.Order) error {
	querier := r.txManager.GetQuerier(ctx)

	linesSQL, linesArgs, err := r.builder.
		Select("line_no", "is_comment", "comment", "product", "quantity", "format", "weight_kg", "lot", "prepared", "quantity_sent").
		From(orderLinesTable).
		Where(squirrel.Eq{"order_id": o.ID}).
		OrderBy("line_no").
		ToSql()
	if err != nil {
		return fmt.Errorf("build lines query: %w", err)
	}
	if err := pgxscan.Select(ctx, querier, &o.Lines, linesSQL, linesArgs...); err != nil {
		return fmt.Errorf("select order lines: %w", err)
	}

	historySQL, historyArgs, err := r.builder.
		Select("kind", "value", "actor", "at").
		From(historyTable).
		Where(squirrel.Eq{"order_id": o.ID}).
		OrderBy("seq").
		ToSql()
	if err != nil {
		return fmt.Errorf("build history query: %w", err)
	}
	if err := pgxscan.Select(ctx, querier, &o.History, historySQL, historyArgs...); err != nil {
		return fmt.Errorf("select order history: %w", err)
	}

	returnsSQL, returnsArgs, err := r.builder.
		Select("id", "order_id", "kind", "reason", "actor", "created_at").
		From(returnsTable).
		Where(squirrel.Eq{"order_id": o.ID}).
		OrderBy("created_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build returns query: %w", err)
	}
	if err := pgxscan.Select(ctx, querier, &o.Returns, returnsSQL, returnsArgs...); err != nil {
		return fmt.Errorf("select order returns: %w", err)
	}

	for i := range o.Returns {
		rlSQL, rlArgs, err := r.builder.
			Select("line_no", "product", "quantity", "weight_kg", "lot", "reason", "fit_for_resale").
			From(returnLinesTable).
			Where(squirrel.Eq{"return_id": o.Returns[i].ID}).
			OrderBy("line_no").
			ToSql()
		if err != nil {
			return fmt.Errorf("build return lines query: %w", err)
		}
		if err := pgxscan.Select(ctx, querier, &o.Returns[i].Lines, rlSQL, rlArgs...); err != nil {
			return fmt.Errorf("select return lines: %w", err)
		}
	}

	return nil
}

// Update persists the document row with an optimistic version check,
// replaces the lines and appends new history and return records.
func (r *OrderRepo) Update(ctx context.Context, o *order.Order) error {
	q := r.builder.Update(ordersTable).
		Set("version", o.Version).
		Set("state", o.State).
		Set("package_count", o.PackageCount).
		Set("delivery_date", o.DeliveryDate).
		Set("observations", o.Observations).
		Set("updated_at", o.UpdatedAt).
		Set("updated_by", o.UpdatedBy).
		Where(squirrel.Eq{"id": o.ID}).
		Where(squirrel.Lt{"version": o.Version})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	tag, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewConcurrencyConflict("order", o.ID)
	}

	if err := r.replaceLines(ctx, o); err != nil {
		return err
	}

	storedHistory, err := r.countHistory(ctx, o.ID)
	if err != nil {
		return err
	}
	if err := r.appendHistory(ctx, o.ID, o.History, storedHistory); err != nil {
		return err
	}

	return r.syncReturns(ctx, o)
}

func (r *OrderRepo) replaceLines(ctx context.Context, o *order.Order) error {
	querier := r.txManager.GetQuerier(ctx)

	delSQL, delArgs, err := r.builder.Delete(orderLinesTable).
		Where(squirrel.Eq{"order_id": o.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build lines delete: %w", err)
	}
	if _, err := querier.Exec(ctx, delSQL, delArgs...); err != nil {
		return fmt.Errorf("delete order lines: %w", err)
	}

	if len(o.Lines) == 0 {
		return nil
	}

	q := r.builder.Insert(orderLinesTable).
		Columns("order_id", "line_no", "is_comment", "comment", "product", "quantity", "format", "weight_kg", "lot", "prepared", "quantity_sent")
	for _, l := range o.Lines {
		var sent *int64
		if l.QuantitySent != nil {
			v := l.QuantitySent.Int64Scaled()
			sent = &v
		}
		q = q.Values(o.ID, l.LineNo, l.IsComment, l.Comment, l.Product, l.Quantity.Int64Scaled(), l.Format, l.WeightKg, l.Lot, l.Prepared, sent)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build lines insert: %w", err)
	}
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert order lines: %w", err)
	}

	return nil
}

func (r *OrderRepo) countHistory(ctx context.Context, orderID id.ID) (int, error) {
	sql, args, err := r.builder.Select("COUNT(*)").
		From(historyTable).
		Where(squirrel.Eq{"order_id": orderID}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build history count: %w", err)
	}

	var count int
	if err := r.txManager.GetQuerier(ctx).QueryRow(ctx, sql, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count history: %w", err)
	}
	return count, nil
}

// appendHistory inserts entries past the stored prefix. History is
// append-only; existing rows are never rewritten.
func (r *OrderRepo) appendHistory(ctx context.Context, orderID id.ID, entries []order.HistoryEntry, from int) error {
	if from >= len(entries) {
		return nil
	}

	q := r.builder.Insert(historyTable).Columns("order_id", "seq", "kind", "value", "actor", "at")
	for i := from; i < len(entries); i++ {
		q = q.Values(orderID, i+1, entries[i].Kind, entries[i].Value, entries[i].Actor, entries[i].At)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build history insert: %w", err)
	}
	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert history: %w", err)
	}

	return nil
}

// syncReturns inserts return records not yet stored.
func (r *OrderRepo) syncReturns(ctx context.Context, o *order.Order) error {
	querier := r.txManager.GetQuerier(ctx)

	for i := range o.Returns {
		rec := &o.Returns[i]

		var exists bool
		checkSQL, checkArgs, err := r.builder.Select("COUNT(*) > 0").
			From(returnsTable).
			Where(squirrel.Eq{"id": rec.ID}).
			ToSql()
		if err != nil {
			return fmt.Errorf("build return check: %w", err)
		}
		if err := querier.QueryRow(ctx, checkSQL, checkArgs...).Scan(&exists); err != nil {
			return fmt.Errorf("check return: %w", err)
		}
		if exists {
			continue
		}

		insSQL, insArgs, err := r.builder.Insert(returnsTable).
			Columns("id", "order_id", "kind", "reason", "actor", "created_at").
			Values(rec.ID, rec.OrderID, rec.Kind, rec.Reason, rec.Actor, rec.CreatedAt).
			ToSql()
		if err != nil {
			return fmt.Errorf("build return insert: %w", err)
		}
		if _, err := querier.Exec(ctx, insSQL, insArgs...); err != nil {
			return fmt.Errorf("insert return: %w", err)
		}

		if len(rec.Lines) == 0 {
			continue
		}
		q := r.builder.Insert(returnLinesTable).
			Columns("return_id", "line_no", "product", "quantity", "weight_kg", "lot", "reason", "fit_for_resale")
		for _, l := range rec.Lines {
			q = q.Values(rec.ID, l.LineNo, l.Product, l.Quantity.Int64Scaled(), l.WeightKg, l.Lot, l.Reason, l.FitForResale)
		}
		linesSQL, linesArgs, err := q.ToSql()
		if err != nil {
			return fmt.Errorf("build return lines insert: %w", err)
		}
		if _, err := querier.Exec(ctx, linesSQL, linesArgs...); err != nil {
			return fmt.Errorf("insert return lines: %w", err)
		}
	}

	return nil
}

// List retrieves orders matching the filter, newest first.
func (r *OrderRepo) List(ctx context.Context, filter order.ListFilter) ([]*order.Order, error) {
	q := r.builder.Select(orderColumns...).From(ordersTable)

	if filter.WarehouseID != "" {
		q = q.Where(squirrel.Eq{"warehouse_id": filter.WarehouseID})
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

	var orders []*order.Order
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &orders, sql, args...); err != nil {
		return nil, fmt.Errorf("select orders: %w", err)
	}

	for _, o := range orders {
		if err := r.loadParts(ctx, o); err != nil {
			return nil, err
		}
	}

	return orders, nil
}

var _ order.Repository = (*OrderRepo)(nil)
