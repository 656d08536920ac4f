package order

import (
	"encoding/json"
	"time"

	"obrador/internal/core/apperror"
)

// Draft is a per-actor working copy of unsent order edits. Shops keep their
// in-progress changes server-side so a crashed or switched device resumes
// where it left off; submitting the real edit discards the draft.
//
// Key is the draft slot: an order id for edits of an existing order, or a
// client-chosen key (e.g. "new") for an order not yet created.
type Draft struct {
	Actor     string          `db:"actor" json:"actor"`
	Key       string          `db:"key" json:"key"`
	Payload   json.RawMessage `db:"payload" json:"payload"`
	UpdatedAt time.Time       `db:"updated_at" json:"updatedAt"`
}

// Validate checks draft invariants.
func (d *Draft) Validate() error {
	if d.Actor == "" {
		return apperror.NewValidation("actor is required").
			WithDetail("field", "actor")
	}
	if d.Key == "" {
		return apperror.NewValidation("draft key is required").
			WithDetail("field", "key")
	}
	if len(d.Payload) == 0 || !json.Valid(d.Payload) {
		return apperror.NewValidation("draft payload must be valid JSON").
			WithDetail("field", "payload")
	}
	return nil
}
