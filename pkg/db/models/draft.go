package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/erandesamadhan2003/autopost-backend/pkg/enums"
	"github.com/erandesamadhan2003/autopost-backend/pkg/types"
)

// GeneratorState mirrors one pipeline slot onto the draft.
type GeneratorState struct {
	Status      enums.JobStatus `json:"status"`
	Error       string          `json:"error,omitempty"`
	CompletedAt *time.Time      `json:"completedAt,omitempty"`
}

// GeneratorStates is keyed by generator type.
type GeneratorStates map[enums.GeneratorType]GeneratorState

// PendingGeneratorStates returns a map with every generator pending.
func PendingGeneratorStates() GeneratorStates {
	states := make(GeneratorStates, len(enums.GeneratorTypes))
	for _, g := range enums.GeneratorTypes {
		states[g] = GeneratorState{Status: enums.JobStatusPending}
	}
	return states
}

// Draft is one piece of content moving through generation and publishing.
type Draft struct {
	ID              uuid.UUID      `gorm:"column:id;type:uuid;primaryKey"`
	UserID          uuid.UUID      `gorm:"column:user_id;type:uuid;not null;index"`
	SocialAccountID *uuid.UUID     `gorm:"column:social_account_id;type:uuid"`
	Platform        enums.Platform `gorm:"column:platform;not null"`

	Platforms      datatypes.JSONSlice[string]         `gorm:"column:platforms;not null"`
	Description    string                              `gorm:"column:description;not null;default:''"`
	BrandTone      string                              `gorm:"column:brand_tone;not null;default:''"`
	UploadedImages datatypes.JSONSlice[types.ImageRef] `gorm:"column:uploaded_images;not null"`
	Hashtags       datatypes.JSONSlice[string]         `gorm:"column:hashtags;not null"`

	Captions         datatypes.JSONSlice[types.Caption]         `gorm:"column:captions;not null"`
	ProcessedImages  datatypes.JSONSlice[types.ProcessedImage]  `gorm:"column:processed_images;not null"`
	GeneratedVideo   datatypes.JSONType[*types.GeneratedVideo]  `gorm:"column:generated_video;not null"`
	MusicSuggestions datatypes.JSONSlice[types.MusicSuggestion] `gorm:"column:music_suggestions;not null"`
	GeneratorStatus  datatypes.JSONType[GeneratorStates]        `gorm:"column:generator_status;not null"`

	SelectedCaption string                                     `gorm:"column:selected_caption;not null;default:''"`
	SelectedImages  datatypes.JSONSlice[string]                `gorm:"column:selected_images;not null"`
	SelectedVideo   string                                     `gorm:"column:selected_video;not null;default:''"`
	SelectedMusic   datatypes.JSONType[*types.MusicSuggestion] `gorm:"column:selected_music;not null"`

	Status         enums.DraftStatus `gorm:"column:status;not null;index"`
	ScheduledAt    *time.Time        `gorm:"column:scheduled_at;index"`
	PublishedAt    *time.Time        `gorm:"column:published_at"`
	PublishError   string            `gorm:"column:publish_error;not null;default:''"`
	PlatformPostID string            `gorm:"column:platform_post_id;not null;default:''"`
	IsDeleted      bool              `gorm:"column:is_deleted;not null;default:false"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Draft) TableName() string { return "drafts" }

// BeforeCreate assigns identifiers and fills empty JSON columns.
func (d *Draft) BeforeCreate(*gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	if d.Status == "" {
		d.Status = enums.DraftStatusDraft
	}
	if d.Platforms == nil {
		d.Platforms = datatypes.JSONSlice[string]{}
	}
	if d.UploadedImages == nil {
		d.UploadedImages = datatypes.JSONSlice[types.ImageRef]{}
	}
	if d.Hashtags == nil {
		d.Hashtags = datatypes.JSONSlice[string]{}
	}
	if d.Captions == nil {
		d.Captions = datatypes.JSONSlice[types.Caption]{}
	}
	if d.ProcessedImages == nil {
		d.ProcessedImages = datatypes.JSONSlice[types.ProcessedImage]{}
	}
	if d.MusicSuggestions == nil {
		d.MusicSuggestions = datatypes.JSONSlice[types.MusicSuggestion]{}
	}
	if d.SelectedImages == nil {
		d.SelectedImages = datatypes.JSONSlice[string]{}
	}
	if d.GeneratorStatus.Data() == nil {
		d.GeneratorStatus = datatypes.NewJSONType(PendingGeneratorStates())
	}
	return nil
}

// Video returns the generated video, if any.
func (d *Draft) Video() *types.GeneratedVideo {
	video := d.GeneratedVideo.Data()
	if video == nil || video.URL == "" {
		return nil
	}
	return video
}

// ProcessedImageURLs lists the publishable url of every processed image.
func (d *Draft) ProcessedImageURLs() []string {
	urls := make([]string, 0, len(d.ProcessedImages))
	for _, img := range d.ProcessedImages {
		if img.URL != "" {
			urls = append(urls, img.URL)
		}
	}
	return urls
}
