package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/printpixel/core/internal/clock"
	"github.com/printpixel/core/internal/config"
	"github.com/printpixel/core/internal/event/domain"
	"github.com/printpixel/core/internal/notify"
	pkgdb "github.com/printpixel/core/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const defaultQueryLimit = 1000

type Params struct {
	fx.In

	DB     *gorm.DB
	Log    *zap.Logger
	GenID  *snowflake.Node
	Clock  clock.Clock
	Repo   domain.Repository
	Broker *notify.Broker
	Events *config.EventsConfigHolder
}

type Service struct {
	db     *gorm.DB
	log    *zap.Logger
	genID  *snowflake.Node
	clock  clock.Clock
	repo   domain.Repository
	broker *notify.Broker
	events *config.EventsConfigHolder
}

func New(p Params) domain.Service {
	return &Service{
		db:     p.DB,
		log:    p.Log.Named("event.service"),
		genID:  p.GenID,
		clock:  p.Clock,
		repo:   p.Repo,
		broker: p.Broker,
		events: p.Events,
	}
}

// Commit resolves one submission to exactly one stored record. Identifier
// presence and existence are the sole signal distinguishing create from
// update: a supplied id that exists updates in place, a supplied id that
// does not exist creates with that id, and a missing id creates with a
// generated one. The identifier travels at the record's top level only.
func (s *Service) Commit(ctx context.Context, req domain.CommitRequest) (domain.CommitResponse, error) {
	schema := strings.TrimSpace(req.Schema)
	if schema == "" {
		return domain.CommitResponse{}, domain.ErrInvalidSchema
	}

	payload := copyPayload(req.Payload)
	// The id must never ride inside the payload; earlier revisions that let
	// it nest there created duplicate records on every edit.
	delete(payload, "id")
	if len(payload) == 0 {
		return domain.CommitResponse{}, domain.ErrEmptyPayload
	}

	pageID := strings.TrimSpace(req.PageID)
	if pageID != "" {
		pageID = slug.Make(pageID)
	}

	id := strings.TrimSpace(req.ID)
	now := s.clock.Now()
	cfg := s.events.Get()

	var resp domain.CommitResponse
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if id == "" {
			resp = domain.CommitResponse{ID: s.genID.Generate().String(), Action: domain.ActionCreated}
			return s.create(ctx, tx, resp.ID, schema, payload, pageID, now)
		}

		existing, err := s.repo.FindByID(ctx, tx, id)
		if err != nil {
			return storeErr(err)
		}
		if existing == nil {
			// Absence here is the create-with-id path, not an error.
			resp = domain.CommitResponse{ID: id, Action: domain.ActionCreatedWithID}
			return s.create(ctx, tx, id, schema, payload, pageID, now)
		}

		merged := mergePayload(existing.Payload, payload, cfg)
		existing.Payload = merged
		if cfg.AllowSchemaChange {
			existing.Schema = schema
		}
		if pageID != "" {
			existing.PageID = pageID
		}
		existing.UpdatedAt = now

		rows, err := s.repo.Update(ctx, tx, existing, existing.Version)
		if err != nil {
			return storeErr(err)
		}
		if rows == 0 {
			return domain.ErrConflict
		}
		resp = domain.CommitResponse{ID: id, Action: domain.ActionUpdated}
		return nil
	})
	if err != nil {
		return domain.CommitResponse{}, err
	}

	s.broker.Publish(notify.Change{
		Schema: schema,
		ID:     resp.ID,
		Action: string(resp.Action),
		At:     now,
	})
	s.log.Info("commit resolved",
		zap.String("schema", schema),
		zap.String("id", resp.ID),
		zap.String("action", string(resp.Action)),
	)
	return resp, nil
}

func (s *Service) create(ctx context.Context, tx *gorm.DB, id, schema string, payload map[string]any, pageID string, now time.Time) error {
	event := &domain.Event{
		ID:        id,
		Schema:    schema,
		Payload:   datatypes.JSONMap(payload),
		PageID:    pageID,
		CreatedAt: now,
		UpdatedAt: now,
		Version:   1,
	}
	if err := s.repo.Insert(ctx, tx, event); err != nil {
		if pkgdb.IsDuplicateKeyErr(err) {
			// A concurrent commit won the create race.
			return domain.ErrConflict
		}
		return storeErr(err)
	}
	return nil
}

// Query returns the current non-deleted view, newest first.
func (s *Service) Query(ctx context.Context, req domain.QueryRequest) ([]domain.Event, error) {
	schema := strings.TrimSpace(req.Schema)
	if schema == domain.SchemaAll {
		schema = ""
	}

	filter := domain.ListFilter{
		Schema: schema,
		Limit:  req.Limit,
		From:   req.From,
		To:     req.To,
	}
	if filter.Limit <= 0 {
		filter.Limit = defaultQueryLimit
	}
	if len(req.Filters) > 0 {
		filter.Equals = make(map[string]any, len(req.Filters))
		for field, value := range req.Filters {
			// Deleted records are invisible no matter what the caller asks.
			if strings.EqualFold(field, "deleted") {
				continue
			}
			if strings.EqualFold(field, "schema") {
				if filter.Schema == "" {
					if v, ok := value.(string); ok && v != domain.SchemaAll {
						filter.Schema = strings.TrimSpace(v)
					}
				}
				continue
			}
			filter.Equals[field] = value
		}
	}

	rows, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return nil, storeErr(err)
	}

	events := make([]domain.Event, 0, len(rows))
	for _, row := range rows {
		if row == nil {
			continue
		}
		events = append(events, *row)
	}

	// A record without a creation timestamp falls back to its write
	// timestamp, then to right now, so the ordering can never fail.
	now := s.clock.Now()
	sort.SliceStable(events, func(i, j int) bool {
		return orderKey(events[i], now).After(orderKey(events[j], now))
	})
	return events, nil
}

func (s *Service) Recent(ctx context.Context, limit int) ([]domain.Event, error) {
	if limit <= 0 {
		limit = 10
	}
	return s.Query(ctx, domain.QueryRequest{Limit: limit})
}

// Delete marks the record deleted; it stays in the store but disappears
// from every query.
func (s *Service) Delete(ctx context.Context, req domain.DeleteRequest) (string, error) {
	id := strings.TrimSpace(req.ID)
	if id == "" {
		return "", domain.ErrMissingID
	}

	now := s.clock.Now()
	var schema string
	alreadyDeleted := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.repo.FindByID(ctx, tx, id)
		if err != nil {
			return storeErr(err)
		}
		if existing == nil {
			return domain.ErrNotFound
		}
		schema = existing.Schema
		if existing.Deleted {
			alreadyDeleted = true
			return nil
		}

		existing.Deleted = true
		existing.UpdatedAt = now
		rows, err := s.repo.Update(ctx, tx, existing, existing.Version)
		if err != nil {
			return storeErr(err)
		}
		if rows == 0 {
			return domain.ErrConflict
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	// Nothing changed, so subscribers hear nothing.
	if !alreadyDeleted {
		s.broker.Publish(notify.Change{Schema: schema, ID: id, Action: "deleted", At: now})
	}
	return id, nil
}

// UpdateStatus sets the status field of an existing record. Unlike commit,
// an unknown identifier here is an error.
func (s *Service) UpdateStatus(ctx context.Context, req domain.UpdateStatusRequest) error {
	id := strings.TrimSpace(req.ID)
	if id == "" {
		return domain.ErrMissingID
	}
	status := strings.TrimSpace(req.Status)
	if status == "" {
		return domain.ErrInvalidStatus
	}

	now := s.clock.Now()
	var schema string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.repo.FindByID(ctx, tx, id)
		if err != nil {
			return storeErr(err)
		}
		if existing == nil || existing.Deleted {
			return domain.ErrNotFound
		}
		schema = existing.Schema

		payload := copyPayload(existing.Payload)
		payload["status"] = status
		existing.Payload = datatypes.JSONMap(payload)
		existing.UpdatedAt = now

		rows, err := s.repo.Update(ctx, tx, existing, existing.Version)
		if err != nil {
			return storeErr(err)
		}
		if rows == 0 {
			return domain.ErrConflict
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.broker.Publish(notify.Change{Schema: schema, ID: id, Action: "status_updated", At: now})
	return nil
}

func (s *Service) Stats(ctx context.Context) (domain.Stats, error) {
	stats, err := s.repo.Counts(ctx, s.db)
	if err != nil {
		return domain.Stats{}, storeErr(err)
	}
	return stats, nil
}

func (s *Service) CountBySchema(ctx context.Context, schema string) (int64, error) {
	schema = strings.TrimSpace(schema)
	if schema == "" {
		return 0, domain.ErrInvalidSchema
	}
	count, err := s.repo.CountBySchema(ctx, s.db, schema)
	if err != nil {
		return 0, storeErr(err)
	}
	return count, nil
}

// mergePayload lays the incoming fields over the existing ones. Fields the
// submission does not mention keep their stored value, and a protected
// field with a non-empty stored value is never clobbered by a merge; status
// changes go through UpdateStatus instead.
func mergePayload(existing datatypes.JSONMap, incoming map[string]any, cfg config.EventsConfig) datatypes.JSONMap {
	merged := copyPayload(existing)
	for field, value := range incoming {
		if cfg.IsProtected(field) && hasValue(merged[field]) {
			continue
		}
		merged[field] = value
	}
	delete(merged, "id")
	return datatypes.JSONMap(merged)
}

func hasValue(v any) bool {
	switch value := v.(type) {
	case nil:
		return false
	case string:
		return strings.TrimSpace(value) != ""
	default:
		return true
	}
}

func copyPayload(payload map[string]any) map[string]any {
	out := make(map[string]any, len(payload))
	for field, value := range payload {
		out[field] = value
	}
	return out
}

// orderKey is the effective ordering timestamp: creation time, then the
// write timestamp for imported records that never carried one, then the
// processing time so a record with no timestamps at all still sorts.
func orderKey(event domain.Event, now time.Time) time.Time {
	if !event.CreatedAt.IsZero() {
		return event.CreatedAt
	}
	if !event.UpdatedAt.IsZero() {
		return event.UpdatedAt
	}
	return now
}

func storeErr(err error) error {
	return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
}
