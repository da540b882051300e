// Package records persists confirmed maintenance diagnoses.
//
// A Record is written once, when a technician confirms a diagnosis or asks
// for a refined one, and is read back by the historical retriever for later
// conversations about the same equipment.
package records

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Record is one solved maintenance case.
type Record struct {
	ID        string    `json:"id" bson:"_id"`
	Equipment string    `json:"equipment" bson:"equipment"`
	Problem   string    `json:"problem" bson:"problem"`
	Solution  string    `json:"solution" bson:"solution"`
	Timestamp time.Time `json:"timestamp" bson:"timestamp"`
}

// Store abstracts persistence of maintenance records.
// Implementations must be safe for concurrent use.
type Store interface {
	// Insert assigns ID and Timestamp and stores the record.
	Insert(ctx context.Context, rec Record) (Record, error)
	// FindRecent returns at most limit records whose equipment equals the
	// given value exactly, newest first.
	FindRecent(ctx context.Context, equipment string, limit int) ([]Record, error)
	// ListSince returns records created at or after since, oldest first.
	ListSince(ctx context.Context, since time.Time) ([]Record, error)
	Close(ctx context.Context) error
}

var ErrInvalidRecord = errors.New("record requires equipment, problem and solution")

// stamp fills the store-assigned fields.
func stamp(rec Record, now time.Time) (Record, error) {
	if rec.Equipment == "" || rec.Problem == "" || rec.Solution == "" {
		return Record{}, ErrInvalidRecord
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	rec.Timestamp = now.UTC()
	return rec, nil
}
