// Package audit defines the change-log contract used by document services.
package audit

import (
	"context"

	"obrador/internal/core/id"
)

// Recorder persists an audit trail of document changes (line replacements,
// confirmations, returns). Recording is best-effort: services log failures
// but never fail the business operation over a missing audit row.
type Recorder interface {
	RecordChange(ctx context.Context, entry Entry) error
}

// Entry is one audit record.
type Entry struct {
	EntityType string // "Order", "Transfer"
	EntityID   id.ID
	Action     string // "update_lines", "confirm", "return_partial", ...
	Actor      string
	Payload    any // serialized by the store
}

// Nop returns a Recorder that drops entries. Used in tests.
func Nop() Recorder { return nopRecorder{} }

type nopRecorder struct{}

func (nopRecorder) RecordChange(context.Context, Entry) error { return nil }
