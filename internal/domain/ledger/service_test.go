package ledger_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"obrador/internal/core/apperror"
	"obrador/internal/core/types"
	"obrador/internal/domain/ledger"
	"obrador/internal/domain/ledger/ledgertest"
)

func TestStoreAppend(t *testing.T) {
	repo := ledgertest.NewRepo()
	store := ledger.NewStore(repo)

	movements := []ledger.Movement{
		ledger.NewMovement("wh-factory", "queso-fresco", ledger.KindEntry, types.NewQuantityFromFloat64(10)),
		ledger.NewMovement("wh-factory", "queso-curado", ledger.KindEntry, types.NewQuantityFromFloat64(4)),
	}

	require.NoError(t, store.Append(context.Background(), movements))
	assert.Len(t, repo.All(), 2)
}

func TestStoreAppendEmptyBatch(t *testing.T) {
	repo := ledgertest.NewRepo()
	store := ledger.NewStore(repo)

	require.NoError(t, store.Append(context.Background(), nil))
	assert.Empty(t, repo.All())
}

func TestStoreAppendRejectsInvalidMovement(t *testing.T) {
	repo := ledgertest.NewRepo()
	store := ledger.NewStore(repo)

	bad := ledger.NewMovement("wh-factory", "queso-fresco", ledger.KindEntry, 0)
	good := ledger.NewMovement("wh-factory", "queso-fresco", ledger.KindEntry, types.NewQuantityFromFloat64(1))

	err := store.Append(context.Background(), []ledger.Movement{good, bad})
	require.Error(t, err)
	assert.True(t, apperror.IsValidation(err))

	// the whole batch is rejected, including the valid movement
	assert.Empty(t, repo.All())
}

func TestStoreAppendPropagatesRepoError(t *testing.T) {
	repo := ledgertest.NewRepo()
	repo.FailNext = errors.New("connection reset")
	store := ledger.NewStore(repo)

	m := ledger.NewMovement("wh-factory", "queso-fresco", ledger.KindEntry, types.NewQuantityFromFloat64(1))
	err := store.Append(context.Background(), []ledger.Movement{m})
	require.Error(t, err)
	assert.ErrorContains(t, err, "connection reset")
}

func TestStoreAppendConcurrentSameWarehouse(t *testing.T) {
	repo := ledgertest.NewRepo()
	store := ledger.NewStore(repo)

	const writers = 16
	const perWriter = 25

	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWriter; j++ {
				m := ledger.NewMovement("wh-factory", "queso-fresco", ledger.KindEntry, types.NewQuantityFromFloat64(1))
				_ = store.Append(context.Background(), []ledger.Movement{m})
			}
		}()
	}
	wg.Wait()

	assert.Len(t, repo.All(), writers*perWriter)

	agg := ledger.NewAggregator(repo)
	b, err := agg.Balance(context.Background(), "wh-factory", "queso-fresco", nil)
	require.NoError(t, err)
	assert.Equal(t, types.NewQuantityFromFloat64(writers*perWriter), b.Quantity)
}

func TestStoreListByWarehouseRequiresID(t *testing.T) {
	store := ledger.NewStore(ledgertest.NewRepo())

	_, err := store.ListByWarehouse(context.Background(), "", ledger.MovementFilter{})
	require.Error(t, err)
}
