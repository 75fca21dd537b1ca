// Package storage persists complaint records and per-reporter conversation state.
package storage

import (
	"complaintbot/backend/internal/models"
	"context"
	"time"
)

// RecordStore is the durable collection of complaint records.
// Implementations must be safe for concurrent use.
type RecordStore interface {
	// Append assigns the record a new id, strictly greater than every id handed out
	// before, and persists it.
	Append(ctx context.Context, rec *models.ComplaintRecord) error
	// ReadAll returns every record in insertion order.
	ReadAll(ctx context.Context) ([]models.ComplaintRecord, error)
	Get(ctx context.Context, id int64) (*models.ComplaintRecord, error)
	// UpdateStatus moves a New record to a terminal status and returns the updated record.
	// It returns errs.ErrRecordNotFound for unknown ids and errs.ErrStatusFinal (with the
	// current record) when the record was already resolved or rejected.
	UpdateStatus(ctx context.Context, id int64, status models.Status) (*models.ComplaintRecord, error)
	// FilterByStatus returns matching records, most recently appended first.
	// limit <= 0 returns all of them.
	FilterByStatus(ctx context.Context, status models.Status, limit int) ([]models.ComplaintRecord, error)
	Close() error
}

// SessionStore maps reporter ids to their conversation state.
type SessionStore interface {
	// Load returns nil, nil when the reporter has no conversation.
	Load(ctx context.Context, reporterID int64) (*models.Conversation, error)
	Save(ctx context.Context, conv *models.Conversation) error
	Clear(ctx context.Context, reporterID int64) error
	// Sweep clears conversations idle for longer than idle and reports how many were removed.
	Sweep(ctx context.Context, idle time.Duration, now time.Time) (int, error)
}

// nextID derives a record id from the clock while keeping ids strictly increasing.
func nextID(now time.Time, last int64) int64 {
	id := now.Unix()
	if id <= last {
		id = last + 1
	}
	return id
}
