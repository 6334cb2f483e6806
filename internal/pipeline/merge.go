package pipeline

import (
	"strings"

	"gorm.io/datatypes"

	"github.com/erandesamadhan2003/autopost-backend/internal/generation"
	"github.com/erandesamadhan2003/autopost-backend/pkg/db/models"
	"github.com/erandesamadhan2003/autopost-backend/pkg/enums"
	"github.com/erandesamadhan2003/autopost-backend/pkg/types"
)

// outputs holds what each generator produced. A nil field means the generator
// did not succeed. Each field has a single writer.
type outputs struct {
	captions *generation.CaptionResult
	images   *generation.ImageResult
	video    *generation.VideoResult
	music    *generation.MusicResult
}

func (o *outputs) succeeded(generator enums.GeneratorType) bool {
	switch generator {
	case enums.GeneratorCaption:
		return o.captions != nil
	case enums.GeneratorImage:
		return o.images != nil
	case enums.GeneratorVideo:
		return o.video != nil
	case enums.GeneratorMusic:
		return o.music != nil
	}
	return false
}

// mergeOutputs writes successful outputs onto the draft and clears the fields
// of generators that failed.
func mergeOutputs(draft *models.Draft, out *outputs) {
	if out.captions != nil {
		draft.Captions = datatypes.JSONSlice[types.Caption](nonNil(out.captions.Captions))
		tags := append([]string{}, out.captions.Hashtags...)
		for _, caption := range out.captions.Captions {
			tags = append(tags, caption.Hashtags...)
		}
		draft.Hashtags = datatypes.JSONSlice[string](mergeHashtags(draft.Hashtags, tags))
		if strings.TrimSpace(draft.SelectedCaption) == "" && len(out.captions.Captions) > 0 {
			draft.SelectedCaption = out.captions.Captions[0].Text
		}
	} else {
		draft.Captions = datatypes.JSONSlice[types.Caption]{}
	}

	if out.images != nil {
		draft.ProcessedImages = datatypes.JSONSlice[types.ProcessedImage](nonNil(out.images.Images))
	} else {
		draft.ProcessedImages = datatypes.JSONSlice[types.ProcessedImage]{}
	}

	if out.video != nil {
		draft.GeneratedVideo = datatypes.NewJSONType(out.video.Video)
	} else {
		draft.GeneratedVideo = datatypes.NewJSONType[*types.GeneratedVideo](nil)
	}

	if out.music != nil {
		draft.MusicSuggestions = datatypes.JSONSlice[types.MusicSuggestion](nonNil(out.music.Suggestions))
	} else {
		draft.MusicSuggestions = datatypes.JSONSlice[types.MusicSuggestion]{}
	}
}

// generatorStates mirrors settled slots onto the draft's status map.
func generatorStates(job *models.PipelineJob) models.GeneratorStates {
	states := models.PendingGeneratorStates()
	for _, slot := range job.Slots {
		state := models.GeneratorState{Status: slot.Status, Error: slot.Error}
		if slot.CompletedAt != nil {
			completedAt := slot.CompletedAt.UTC()
			state.CompletedAt = &completedAt
		}
		states[slot.GeneratorType] = state
	}
	return states
}

// processingStates marks every generator processing at dispatch time.
func processingStates() models.GeneratorStates {
	states := make(models.GeneratorStates, len(enums.GeneratorTypes))
	for _, generator := range enums.GeneratorTypes {
		states[generator] = models.GeneratorState{Status: enums.JobStatusProcessing}
	}
	return states
}

// mergeHashtags appends new tags to existing ones, keeping first occurrence
// order and dropping duplicates.
func mergeHashtags(existing, incoming []string) []string {
	seen := make(map[string]struct{}, len(existing)+len(incoming))
	merged := make([]string, 0, len(existing)+len(incoming))
	for _, list := range [][]string{existing, incoming} {
		for _, tag := range list {
			tag = strings.TrimSpace(tag)
			if tag == "" {
				continue
			}
			if _, ok := seen[tag]; ok {
				continue
			}
			seen[tag] = struct{}{}
			merged = append(merged, tag)
		}
	}
	return merged
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
