package repository

import (
	"context"
	"errors"

	"github.com/printpixel/core/internal/event/domain"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type repo struct{}

// effectiveTimeDesc orders by creation time, falling back to the write
// timestamp for records stored without one (imports, restored backups), so
// a Limit cannot evict a record the service-level sort would rank first.
// The zero go time lands below the literal on all three dialects.
const effectiveTimeDesc = "CASE WHEN created_at > '0001-01-01 00:00:01' THEN created_at ELSE updated_at END DESC, id DESC"

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, event *domain.Event) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO events (id, schema_name, payload, page_id, created_at, updated_at, deleted, version)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		event.ID,
		event.Schema,
		event.Payload,
		event.PageID,
		event.CreatedAt,
		event.UpdatedAt,
		event.Deleted,
		event.Version,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id string) (*domain.Event, error) {
	var event domain.Event
	err := db.WithContext(ctx).
		Where("id = ?", id).
		Take(&event).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &event, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, event *domain.Event, expectedVersion int64) (int64, error) {
	result := db.WithContext(ctx).
		Model(&domain.Event{}).
		Where("id = ? AND version = ?", event.ID, expectedVersion).
		Updates(map[string]any{
			"schema_name": event.Schema,
			"payload":     event.Payload,
			"page_id":     event.PageID,
			"updated_at":  event.UpdatedAt,
			"deleted":     event.Deleted,
			"version":     expectedVersion + 1,
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]*domain.Event, error) {
	stmt := db.WithContext(ctx).
		Model(&domain.Event{}).
		Where("deleted = ?", false)
	if filter.Schema != "" {
		stmt = stmt.Where("schema_name = ?", filter.Schema)
	}
	if filter.From != nil {
		stmt = stmt.Where("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		stmt = stmt.Where("created_at <= ?", *filter.To)
	}
	for field, value := range filter.Equals {
		switch field {
		case "id":
			stmt = stmt.Where("id = ?", value)
		case "page_id":
			stmt = stmt.Where("page_id = ?", value)
		default:
			stmt = stmt.Where(datatypes.JSONQuery("payload").Equals(value, field))
		}
	}
	if filter.Limit > 0 {
		stmt = stmt.Limit(filter.Limit)
	}

	var events []*domain.Event
	err := stmt.
		Order(effectiveTimeDesc).
		Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}

func (r *repo) Counts(ctx context.Context, db *gorm.DB) (domain.Stats, error) {
	stats := domain.Stats{BySchema: map[string]int64{}}

	type schemaCount struct {
		Schema string `gorm:"column:schema_name"`
		Count  int64  `gorm:"column:count"`
	}
	var rows []schemaCount
	err := db.WithContext(ctx).
		Model(&domain.Event{}).
		Select("schema_name, count(*) as count").
		Where("deleted = ?", false).
		Group("schema_name").
		Scan(&rows).Error
	if err != nil {
		return domain.Stats{}, err
	}
	for _, row := range rows {
		stats.BySchema[row.Schema] = row.Count
		stats.Total += row.Count
	}

	err = db.WithContext(ctx).
		Model(&domain.Event{}).
		Where("deleted = ?", true).
		Count(&stats.Deleted).Error
	if err != nil {
		return domain.Stats{}, err
	}
	// Total covers every stored record; the soft-deleted ones are only
	// missing from the per-schema breakdown.
	stats.Total += stats.Deleted
	return stats, nil
}

func (r *repo) CountBySchema(ctx context.Context, db *gorm.DB, schema string) (int64, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&domain.Event{}).
		Where("schema_name = ? AND deleted = ?", schema, false).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *repo) All(ctx context.Context, db *gorm.DB) ([]*domain.Event, error) {
	var events []*domain.Event
	err := db.WithContext(ctx).
		Model(&domain.Event{}).
		Order("created_at asc, id asc").
		Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}

func (r *repo) ReplaceAll(ctx context.Context, db *gorm.DB, events []*domain.Event) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(`DELETE FROM events`).Error; err != nil {
			return err
		}
		if len(events) == 0 {
			return nil
		}
		return tx.CreateInBatches(events, 200).Error
	})
}
