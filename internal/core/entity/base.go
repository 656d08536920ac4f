// Package entity provides base types shared by the warehouse documents.
package entity

import (
	"time"

	"obrador/internal/core/id"
)

// Document is the base type for business documents (Transfer, Order).
// It carries identity, optimistic-lock version and audit fields.
type Document struct {
	// ID is the primary key (UUIDv7)
	ID id.ID `db:"id" json:"id"`

	// Number is the document number (auto-generated, unique within type+year)
	Number string `db:"number" json:"number"`

	// Version for optimistic locking (incremented on each update)
	Version int `db:"version" json:"version"`

	// Audit fields
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
	CreatedBy string    `db:"created_by" json:"createdBy,omitempty"`
	UpdatedBy string    `db:"updated_by" json:"updatedBy,omitempty"`
}

// NewDocument creates a new Document with generated ID and timestamps.
func NewDocument() Document {
	now := time.Now().UTC()
	return Document{
		ID:        id.New(),
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Touch updates UpdatedAt and increments version (for optimistic locking).
func (d *Document) Touch() {
	d.UpdatedAt = time.Now().UTC()
	d.Version++
}

// SetVersion updates the version number (used by repositories after sync).
func (d *Document) SetVersion(v int) {
	d.Version = v
}
