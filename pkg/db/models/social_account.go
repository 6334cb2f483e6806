package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/erandesamadhan2003/autopost-backend/pkg/enums"
)

// SocialAccount holds a user's connected platform credentials.
type SocialAccount struct {
	ID             uuid.UUID      `gorm:"column:id;type:uuid;primaryKey"`
	UserID         uuid.UUID      `gorm:"column:user_id;type:uuid;not null;index"`
	Platform       enums.Platform `gorm:"column:platform;not null"`
	PlatformUserID string         `gorm:"column:platform_user_id;not null"`
	Username       string         `gorm:"column:username;not null;default:''"`
	AccessToken    string         `gorm:"column:access_token;not null;default:''"`
	RefreshToken   string         `gorm:"column:refresh_token;not null;default:''"`
	TokenExpiresAt *time.Time     `gorm:"column:token_expires_at"`
	IsActive       bool           `gorm:"column:is_active;not null;default:true"`
	CreatedAt      time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}

func (SocialAccount) TableName() string { return "social_accounts" }

func (a *SocialAccount) BeforeCreate(*gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// IsTokenExpired is false when no expiry is recorded.
func (a *SocialAccount) IsTokenExpired(now time.Time) bool {
	if a.TokenExpiresAt == nil {
		return false
	}
	return !now.Before(*a.TokenExpiresAt)
}

// HasUsableCredential reports whether the account can publish at now.
func (a *SocialAccount) HasUsableCredential(now time.Time) bool {
	if a == nil || !a.IsActive {
		return false
	}
	if strings.TrimSpace(a.AccessToken) == "" {
		return false
	}
	return !a.IsTokenExpired(now)
}
