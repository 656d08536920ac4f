package numerator

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Mock is an in-memory Generator for tests.
type Mock struct {
	mu      sync.Mutex
	counter map[string]int64
}

// NewMock creates a mock numerator.
func NewMock() *Mock {
	return &Mock{counter: make(map[string]int64)}
}

// NextNumber implements Generator without a database.
func (m *Mock) NextNumber(_ context.Context, cfg Config, now time.Time) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := cfg.Prefix
	if cfg.IncludeYear {
		key = fmt.Sprintf("%s_%d", cfg.Prefix, now.Year())
	}
	m.counter[key]++

	pad := cfg.PadWidth
	if pad <= 0 {
		pad = 5
	}

	if cfg.IncludeYear {
		return fmt.Sprintf("%s-%d-%0*d", cfg.Prefix, now.Year(), pad, m.counter[key]), nil
	}
	return fmt.Sprintf("%s-%0*d", cfg.Prefix, pad, m.counter[key]), nil
}

var _ Generator = (*Mock)(nil)
