package domain

import (
	"time"

	"gorm.io/datatypes"
)

// Event is the unit of persisted business data: one order, expense, sale or
// budget record. The identifier always lives at the top level and is never
// duplicated inside the payload.
type Event struct {
	ID        string            `gorm:"primaryKey;size:64" json:"id"`
	Schema    string            `gorm:"column:schema_name;size:64;not null;index" json:"schema"`
	Payload   datatypes.JSONMap `gorm:"not null" json:"payload"`
	PageID    string            `gorm:"column:page_id;size:128" json:"page_id,omitempty"`
	CreatedAt time.Time         `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time         `gorm:"not null" json:"updated_at"`
	Deleted   bool              `gorm:"not null;default:false;index" json:"deleted"`
	Version   int64             `gorm:"not null;default:1" json:"-"`
}

func (Event) TableName() string {
	return "events"
}

// Action reports how a commit was resolved.
type Action string

const (
	ActionCreated       Action = "created"
	ActionUpdated       Action = "updated"
	ActionCreatedWithID Action = "created_with_id"
)

// Stats is the aggregate view served on /api/database/stats.
type Stats struct {
	Total    int64            `json:"total"`
	Deleted  int64            `json:"deleted"`
	BySchema map[string]int64 `json:"by_schema"`
}
