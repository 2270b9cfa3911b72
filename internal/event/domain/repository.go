package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// ListFilter is the storage-level shape of a query. Equals keys that name a
// record column (id, page_id) filter on the column; every other key matches
// a payload field.
type ListFilter struct {
	Schema string
	Equals map[string]any
	Limit  int
	From   *time.Time
	To     *time.Time
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, event *Event) error
	// FindByID returns the record regardless of its deleted flag, or nil
	// when the identifier is unknown.
	FindByID(ctx context.Context, db *gorm.DB, id string) (*Event, error)
	// Update writes the record only when the stored version still equals
	// expectedVersion, and reports the number of rows written.
	Update(ctx context.Context, db *gorm.DB, event *Event, expectedVersion int64) (int64, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]*Event, error)
	Counts(ctx context.Context, db *gorm.DB) (Stats, error)
	CountBySchema(ctx context.Context, db *gorm.DB, schema string) (int64, error)
	// All returns every record, soft-deleted included, for backup export.
	All(ctx context.Context, db *gorm.DB) ([]*Event, error)
	// ReplaceAll swaps the whole collection, used by backup restore.
	ReplaceAll(ctx context.Context, db *gorm.DB, events []*Event) error
}
