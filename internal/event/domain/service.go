package domain

import (
	"context"
	"errors"
	"time"
)

// SchemaAll matches every schema when querying.
const SchemaAll = "all"

type CommitRequest struct {
	Schema  string
	Payload map[string]any
	PageID  string
	ID      string
}

type CommitResponse struct {
	ID     string
	Action Action
}

type QueryRequest struct {
	// Schema narrows results to one record type; empty or "all" means no
	// schema filter.
	Schema string
	// Filters are ANDed equality filters. A "deleted" filter is ignored:
	// soft-deleted records are always excluded.
	Filters map[string]any
	Limit   int
	From    *time.Time
	To      *time.Time
}

type DeleteRequest struct {
	ID string
}

type UpdateStatusRequest struct {
	ID     string
	Status string
}

type Service interface {
	Commit(context.Context, CommitRequest) (CommitResponse, error)
	Query(context.Context, QueryRequest) ([]Event, error)
	Recent(ctx context.Context, limit int) ([]Event, error)
	Delete(context.Context, DeleteRequest) (string, error)
	UpdateStatus(context.Context, UpdateStatusRequest) error
	Stats(context.Context) (Stats, error)
	CountBySchema(ctx context.Context, schema string) (int64, error)
}

var (
	ErrInvalidSchema    = errors.New("invalid_schema")
	ErrEmptyPayload     = errors.New("empty_payload")
	ErrMissingID        = errors.New("missing_id")
	ErrInvalidStatus    = errors.New("invalid_status")
	ErrNotFound         = errors.New("not_found")
	ErrConflict         = errors.New("conflict")
	ErrStoreUnavailable = errors.New("store_unavailable")
)
