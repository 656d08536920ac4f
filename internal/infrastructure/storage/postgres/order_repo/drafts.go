package order_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"obrador/internal/core/apperror"
	"obrador/internal/domain/order"
	"obrador/internal/infrastructure/storage/postgres"
)

const draftsTable = "order_drafts"

// DraftRepo implements order.DraftRepository over an upsert table keyed by
// (actor, key).
type DraftRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
}

// NewDraftRepo creates a new draft repository.
func NewDraftRepo(txManager *postgres.TxManager) *DraftRepo {
	return &DraftRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Save upserts the draft.
func (r *DraftRepo) Save(ctx context.Context, d *order.Draft) error {
	sql := `
		INSERT INTO order_drafts (actor, key, payload, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (actor, key) DO UPDATE SET
			payload = EXCLUDED.payload,
			updated_at = EXCLUDED.updated_at
	`

	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, d.Actor, d.Key, []byte(d.Payload), d.UpdatedAt); err != nil {
		return fmt.Errorf("save draft: %w", err)
	}
	return nil
}

// Get returns the actor's draft for the key.
func (r *DraftRepo) Get(ctx context.Context, actor, key string) (*order.Draft, error) {
	q := r.builder.Select("actor", "key", "payload", "updated_at").
		From(draftsTable).
		Where(squirrel.Eq{"actor": actor, "key": key})

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var d order.Draft
	if err := pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), &d, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("draft", key)
		}
		return nil, fmt.Errorf("get draft: %w", err)
	}

	return &d, nil
}

// Delete removes the draft; deleting a missing draft is not an error.
func (r *DraftRepo) Delete(ctx context.Context, actor, key string) error {
	q := r.builder.Delete(draftsTable).
		Where(squirrel.Eq{"actor": actor, "key": key})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}

	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("delete draft: %w", err)
	}
	return nil
}

var _ order.DraftRepository = (*DraftRepo)(nil)
