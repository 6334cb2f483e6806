package controllers

import (
	"time"

	"github.com/google/uuid"

	"github.com/erandesamadhan2003/autopost-backend/pkg/db/models"
	"github.com/erandesamadhan2003/autopost-backend/pkg/enums"
	"github.com/erandesamadhan2003/autopost-backend/pkg/types"
)

type generatorStateResponse struct {
	Status      enums.JobStatus `json:"status"`
	Error       string          `json:"error,omitempty"`
	CompletedAt *time.Time      `json:"completedAt,omitempty"`
}

type selectionResponse struct {
	Caption string                 `json:"caption"`
	Images  []string               `json:"images"`
	Video   string                 `json:"video,omitempty"`
	Music   *types.MusicSuggestion `json:"music,omitempty"`
}

type draftResponse struct {
	ID               uuid.UUID                                      `json:"id"`
	UserID           uuid.UUID                                      `json:"userId"`
	SocialAccountID  *uuid.UUID                                     `json:"socialAccountId,omitempty"`
	Platform         enums.Platform                                 `json:"platform"`
	Platforms        []string                                       `json:"platforms"`
	Description      string                                         `json:"description"`
	BrandTone        string                                         `json:"brandTone,omitempty"`
	UploadedImages   []types.ImageRef                               `json:"uploadedImages"`
	Hashtags         []string                                       `json:"hashtags"`
	Captions         []types.Caption                                `json:"captions"`
	ProcessedImages  []types.ProcessedImage                         `json:"processedImages"`
	GeneratedVideo   *types.GeneratedVideo                          `json:"generatedVideo,omitempty"`
	MusicSuggestions []types.MusicSuggestion                        `json:"musicSuggestions"`
	GeneratorStatus  map[enums.GeneratorType]generatorStateResponse `json:"generatorStatus"`
	Selected         selectionResponse                              `json:"selected"`
	Status           enums.DraftStatus                              `json:"status"`
	ScheduledAt      *time.Time                                     `json:"scheduledAt,omitempty"`
	PublishedAt      *time.Time                                     `json:"publishedAt,omitempty"`
	PublishError     string                                         `json:"publishError,omitempty"`
	PlatformPostID   string                                         `json:"platformPostId,omitempty"`
	CreatedAt        time.Time                                      `json:"createdAt"`
	UpdatedAt        time.Time                                      `json:"updatedAt"`
}

func draftResponseFromModel(d *models.Draft) draftResponse {
	states := map[enums.GeneratorType]generatorStateResponse{}
	for generator, state := range d.GeneratorStatus.Data() {
		states[generator] = generatorStateResponse{
			Status:      state.Status,
			Error:       state.Error,
			CompletedAt: state.CompletedAt,
		}
	}
	return draftResponse{
		ID:               d.ID,
		UserID:           d.UserID,
		SocialAccountID:  d.SocialAccountID,
		Platform:         d.Platform,
		Platforms:        orEmpty([]string(d.Platforms)),
		Description:      d.Description,
		BrandTone:        d.BrandTone,
		UploadedImages:   orEmpty([]types.ImageRef(d.UploadedImages)),
		Hashtags:         orEmpty([]string(d.Hashtags)),
		Captions:         orEmpty([]types.Caption(d.Captions)),
		ProcessedImages:  orEmpty([]types.ProcessedImage(d.ProcessedImages)),
		GeneratedVideo:   d.Video(),
		MusicSuggestions: orEmpty([]types.MusicSuggestion(d.MusicSuggestions)),
		GeneratorStatus:  states,
		Selected: selectionResponse{
			Caption: d.SelectedCaption,
			Images:  orEmpty([]string(d.SelectedImages)),
			Video:   d.SelectedVideo,
			Music:   d.SelectedMusic.Data(),
		},
		Status:         d.Status,
		ScheduledAt:    d.ScheduledAt,
		PublishedAt:    d.PublishedAt,
		PublishError:   d.PublishError,
		PlatformPostID: d.PlatformPostID,
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
	}
}

type slotResponse struct {
	Status      enums.JobStatus `json:"status"`
	Error       string          `json:"error,omitempty"`
	RetryCount  int             `json:"retryCount"`
	MaxRetries  int             `json:"maxRetries"`
	StartedAt   *time.Time      `json:"startedAt,omitempty"`
	CompletedAt *time.Time      `json:"completedAt,omitempty"`
}

type jobResponse struct {
	ID          uuid.UUID                            `json:"id"`
	DraftID     uuid.UUID                            `json:"draftId"`
	Status      enums.JobStatus                      `json:"status"`
	Error       string                               `json:"error,omitempty"`
	Generators  map[enums.GeneratorType]slotResponse `json:"generators"`
	CreatedAt   time.Time                            `json:"createdAt"`
	UpdatedAt   time.Time                            `json:"updatedAt"`
	CompletedAt *time.Time                           `json:"completedAt,omitempty"`
}

func jobResponseFromModel(j *models.PipelineJob) jobResponse {
	slots := make(map[enums.GeneratorType]slotResponse, len(j.Slots))
	for _, slot := range j.Slots {
		slots[slot.GeneratorType] = slotResponse{
			Status:      slot.Status,
			Error:       slot.Error,
			RetryCount:  slot.RetryCount,
			MaxRetries:  slot.MaxRetries,
			StartedAt:   slot.StartedAt,
			CompletedAt: slot.CompletedAt,
		}
	}
	return jobResponse{
		ID:          j.ID,
		DraftID:     j.DraftID,
		Status:      j.Status,
		Error:       j.Error,
		Generators:  slots,
		CreatedAt:   j.CreatedAt,
		UpdatedAt:   j.UpdatedAt,
		CompletedAt: j.CompletedAt,
	}
}

func orEmpty[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
