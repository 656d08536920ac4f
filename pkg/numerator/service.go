// Package numerator provides document auto-numbering (transfer and order numbers).
package numerator

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// Generator produces the next document number for a prefix.
type Generator interface {
	// NextNumber returns the next number for the configuration, e.g. "TR-2026-00042".
	NextNumber(ctx context.Context, cfg Config, now time.Time) (string, error)
}

// Config holds numbering configuration.
type Config struct {
	// Prefix added to all numbers (e.g., "TR", "ORD")
	Prefix string

	// IncludeYear adds the year segment to the number
	IncludeYear bool

	// PadWidth is the zero-padded width of the sequence part
	PadWidth int
}

// DefaultConfig returns the standard numbering scheme: PREFIX-YYYY-NNNNN.
func DefaultConfig(prefix string) Config {
	return Config{
		Prefix:      prefix,
		IncludeYear: true,
		PadWidth:    5,
	}
}

// Querier is the minimal database surface the numerator needs.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Service implements Generator over a sys_sequences table.
// Numbers are sequential without gaps: every call does an upsert with
// RETURNING, so the database enforces ordering.
type Service struct {
	querier Querier
}

// New creates a numerator service.
func New(querier Querier) *Service {
	return &Service{querier: querier}
}

// NextNumber returns the next number for the configuration.
func (s *Service) NextNumber(ctx context.Context, cfg Config, now time.Time) (string, error) {
	key := cfg.Prefix
	if cfg.IncludeYear {
		key = fmt.Sprintf("%s_%d", cfg.Prefix, now.Year())
	}

	var value int64
	err := s.querier.QueryRow(ctx, `
		INSERT INTO sys_sequences (key, current_val)
		VALUES ($1, 1)
		ON CONFLICT (key) DO UPDATE SET current_val = sys_sequences.current_val + 1
		RETURNING current_val
	`, key).Scan(&value)
	if err != nil {
		return "", fmt.Errorf("next sequence value for %s: %w", key, err)
	}

	pad := cfg.PadWidth
	if pad <= 0 {
		pad = 5
	}

	if cfg.IncludeYear {
		return fmt.Sprintf("%s-%d-%0*d", cfg.Prefix, now.Year(), pad, value), nil
	}
	return fmt.Sprintf("%s-%0*d", cfg.Prefix, pad, value), nil
}

var _ Generator = (*Service)(nil)
