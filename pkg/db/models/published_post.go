package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/erandesamadhan2003/autopost-backend/pkg/enums"
	"github.com/erandesamadhan2003/autopost-backend/pkg/types"
)

// PublishedPost is the durable record of a successful platform publish.
type PublishedPost struct {
	ID              uuid.UUID      `gorm:"column:id;type:uuid;primaryKey"`
	UserID          uuid.UUID      `gorm:"column:user_id;type:uuid;not null;index"`
	SocialAccountID uuid.UUID      `gorm:"column:social_account_id;type:uuid;not null"`
	DraftID         uuid.UUID      `gorm:"column:draft_id;type:uuid;not null"`
	Platform        enums.Platform `gorm:"column:platform;not null"`
	PlatformPostID  string         `gorm:"column:platform_post_id;not null;uniqueIndex"`

	Caption   string                      `gorm:"column:caption;not null;default:''"`
	Hashtags  datatypes.JSONSlice[string] `gorm:"column:hashtags;not null"`
	MediaURLs datatypes.JSONSlice[string] `gorm:"column:media_urls;not null"`
	PostType  enums.PostType              `gorm:"column:post_type;not null"`

	Metrics           datatypes.JSONType[types.PostMetrics]      `gorm:"column:metrics;not null"`
	MetricsHistory    datatypes.JSONSlice[types.MetricsSnapshot] `gorm:"column:metrics_history;not null"`
	LastMetricsUpdate *time.Time                                 `gorm:"column:last_metrics_update"`

	PublishedAt time.Time      `gorm:"column:published_at;not null;index"`
	CreatedAt   time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time      `gorm:"column:updated_at;autoUpdateTime"`
	DeletedAt   gorm.DeletedAt `gorm:"column:deleted_at;index"`
}

func (PublishedPost) TableName() string { return "published_posts" }

func (p *PublishedPost) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.Hashtags == nil {
		p.Hashtags = datatypes.JSONSlice[string]{}
	}
	if p.MediaURLs == nil {
		p.MediaURLs = datatypes.JSONSlice[string]{}
	}
	if p.MetricsHistory == nil {
		p.MetricsHistory = datatypes.JSONSlice[types.MetricsSnapshot]{}
	}
	return nil
}
