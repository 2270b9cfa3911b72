package domain

import (
	"context"
	"errors"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Setting is one named configuration value kept in the store, e.g. theme
// colors or the menu layout.
type Setting struct {
	Key       string         `gorm:"primaryKey;column:setting_key;size:128" json:"key"`
	Value     datatypes.JSON `gorm:"not null" json:"value"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
}

func (Setting) TableName() string {
	return "settings"
}

type Repository interface {
	All(ctx context.Context, db *gorm.DB) ([]Setting, error)
	Get(ctx context.Context, db *gorm.DB, key string) (*Setting, error)
	Upsert(ctx context.Context, db *gorm.DB, setting *Setting) error
	ReplaceAll(ctx context.Context, db *gorm.DB, settings []Setting) error
}

type Service interface {
	// All returns every setting as a key to decoded-value mapping.
	All(ctx context.Context) (map[string]any, error)
	Get(ctx context.Context, key string) (any, error)
	Save(ctx context.Context, key string, value any) error
}

var (
	ErrInvalidKey       = errors.New("invalid_key")
	ErrNotFound         = errors.New("setting_not_found")
	ErrStoreUnavailable = errors.New("store_unavailable")
)
