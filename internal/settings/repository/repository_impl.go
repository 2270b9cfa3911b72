package repository

import (
	"context"
	"errors"

	"github.com/printpixel/core/internal/settings/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) All(ctx context.Context, db *gorm.DB) ([]domain.Setting, error) {
	var settings []domain.Setting
	err := db.WithContext(ctx).
		Order("setting_key asc").
		Find(&settings).Error
	if err != nil {
		return nil, err
	}
	return settings, nil
}

func (r *repo) Get(ctx context.Context, db *gorm.DB, key string) (*domain.Setting, error) {
	var setting domain.Setting
	err := db.WithContext(ctx).
		Where("setting_key = ?", key).
		Take(&setting).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &setting, nil
}

func (r *repo) Upsert(ctx context.Context, db *gorm.DB, setting *domain.Setting) error {
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "setting_key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(setting).Error
}

func (r *repo) ReplaceAll(ctx context.Context, db *gorm.DB, settings []domain.Setting) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(`DELETE FROM settings`).Error; err != nil {
			return err
		}
		if len(settings) == 0 {
			return nil
		}
		return tx.CreateInBatches(settings, 200).Error
	})
}
