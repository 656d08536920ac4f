package ledger

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"

	"obrador/pkg/logger"
)

// appendStripes bounds the number of per-warehouse locks.
const appendStripes = 64

// Store is the only writer into the movement log (MovementStore).
// TransferCoordinator and ReturnProcessor go through it; nothing else
// may change balances.
type Store struct {
	repo Repository

	// stripes serialize appends per warehouse so two concurrent writers
	// touching the same warehouse cannot interleave their batches.
	stripes [appendStripes]sync.Mutex
}

// NewStore creates a new movement store.
func NewStore(repo Repository) *Store {
	return &Store{repo: repo}
}

// Append validates and persists a batch of movements.
// All movements in one call must target the same warehouse pair at most
// (transfer legs); locks are taken in stripe order to avoid deadlock.
func (s *Store) Append(ctx context.Context, movements []Movement) error {
	if len(movements) == 0 {
		return nil
	}

	for i := range movements {
		if err := movements[i].Validate(); err != nil {
			return err
		}
	}

	locks := s.warehouseLocks(movements)
	for _, mu := range locks {
		mu.Lock()
	}
	defer func() {
		for i := len(locks) - 1; i >= 0; i-- {
			locks[i].Unlock()
		}
	}()

	if err := s.repo.AppendMovements(ctx, movements); err != nil {
		return fmt.Errorf("append movements: %w", err)
	}

	logger.Info(ctx, "movements appended",
		"count", len(movements),
		"warehouse", movements[0].WarehouseID,
		"kind", movements[0].Kind,
	)

	return nil
}

// warehouseLocks returns the distinct stripe locks for the batch, ordered by
// stripe index so concurrent appends always acquire in the same order.
func (s *Store) warehouseLocks(movements []Movement) []*sync.Mutex {
	seen := make(map[int]struct{}, 2)
	idx := make([]int, 0, 2)
	for i := range movements {
		h := fnv.New32a()
		_, _ = h.Write([]byte(movements[i].WarehouseID))
		n := int(h.Sum32() % appendStripes)
		if _, ok := seen[n]; !ok {
			seen[n] = struct{}{}
			idx = append(idx, n)
		}
	}
	// insertion sort; at most a handful of stripes per batch
	for i := 1; i < len(idx); i++ {
		for j := i; j > 0 && idx[j] < idx[j-1]; j-- {
			idx[j], idx[j-1] = idx[j-1], idx[j]
		}
	}
	locks := make([]*sync.Mutex, len(idx))
	for i, n := range idx {
		locks[i] = &s.stripes[n]
	}
	return locks
}

// ListByWarehouse returns the movement journal for a warehouse in append order.
func (s *Store) ListByWarehouse(ctx context.Context, warehouseID string, filter MovementFilter) ([]Movement, error) {
	if warehouseID == "" {
		return nil, fmt.Errorf("warehouse id is required")
	}
	return s.repo.ListByWarehouse(ctx, warehouseID, filter)
}
