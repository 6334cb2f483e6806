package generation

import (
	"github.com/google/uuid"

	"github.com/erandesamadhan2003/autopost-backend/pkg/types"
)

// Preferences carries the owner's voice settings to the caption generator.
type Preferences struct {
	Tone string `json:"tone,omitempty"`
}

type CaptionRequest struct {
	DraftID     uuid.UUID        `json:"draftId"`
	Description string           `json:"description"`
	Platforms   []string         `json:"platforms"`
	Images      []types.ImageRef `json:"images,omitempty"`
	Preferences *Preferences     `json:"preferences,omitempty"`
}

type CaptionResult struct {
	Captions []types.Caption `json:"captions"`
	Hashtags []string        `json:"hashtags,omitempty"`
}

type ImageRequest struct {
	DraftID     uuid.UUID        `json:"draftId"`
	Images      []types.ImageRef `json:"images"`
	Description string           `json:"description,omitempty"`
}

type ImageResult struct {
	Images []types.ProcessedImage `json:"images"`
}

type VideoRequest struct {
	DraftID     uuid.UUID        `json:"draftId"`
	Images      []types.ImageRef `json:"images"`
	Description string           `json:"description,omitempty"`
}

type VideoResult struct {
	Video *types.GeneratedVideo `json:"video"`
}

type MusicRequest struct {
	DraftID     uuid.UUID `json:"draftId"`
	Description string    `json:"description"`
	Mood        string    `json:"mood,omitempty"`
}

type MusicResult struct {
	Suggestions []types.MusicSuggestion `json:"suggestions"`
}
