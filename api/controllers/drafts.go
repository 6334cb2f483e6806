package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/erandesamadhan2003/autopost-backend/api/middleware"
	"github.com/erandesamadhan2003/autopost-backend/api/responses"
	"github.com/erandesamadhan2003/autopost-backend/api/validators"
	"github.com/erandesamadhan2003/autopost-backend/internal/drafts"
	pkgerrors "github.com/erandesamadhan2003/autopost-backend/pkg/errors"
	"github.com/erandesamadhan2003/autopost-backend/pkg/logger"
	"github.com/erandesamadhan2003/autopost-backend/pkg/types"
)

const maxDescriptionLength = 5000

type imageRefRequest struct {
	URL      string `json:"url" validate:"required,url"`
	PublicID string `json:"publicId"`
	Format   string `json:"format"`
	Width    int    `json:"width" validate:"min=0"`
	Height   int    `json:"height" validate:"min=0"`
}

type draftCreateRequest struct {
	Platforms       []string          `json:"platforms" validate:"required,min=1,dive,platform"`
	Description     string            `json:"description" validate:"max=5000"`
	BrandTone       string            `json:"brandTone" validate:"max=100"`
	SocialAccountID string            `json:"socialAccountId"`
	Images          []imageRefRequest `json:"images" validate:"max=10,dive"`
	Hashtags        []string          `json:"hashtags" validate:"max=30,dive,max=100"`
}

func (r draftCreateRequest) toInput(userID uuid.UUID) (drafts.CreateInput, error) {
	accountID, err := validators.ParseOptionalUUID(r.SocialAccountID, "socialAccountId")
	if err != nil {
		return drafts.CreateInput{}, err
	}
	images := make([]types.ImageRef, 0, len(r.Images))
	for _, img := range r.Images {
		images = append(images, types.ImageRef{
			URL:      img.URL,
			PublicID: img.PublicID,
			Format:   img.Format,
			Width:    img.Width,
			Height:   img.Height,
		})
	}
	return drafts.CreateInput{
		UserID:          userID,
		SocialAccountID: accountID,
		Platforms:       r.Platforms,
		Description:     validators.SanitizeString(r.Description, maxDescriptionLength),
		BrandTone:       validators.SanitizeString(r.BrandTone, 100),
		Images:          images,
		Hashtags:        r.Hashtags,
	}, nil
}

// DraftCreate stores a new draft from raw user content.
func DraftCreate(svc drafts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUser(w, r, logg)
		if !ok {
			return
		}

		var payload draftCreateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := payload.toInput(userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		draft, err := svc.Create(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, draftResponseFromModel(draft))
	}
}

// DraftGet returns one of the caller's drafts.
func DraftGet(svc drafts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, draftID, ok := requireUserAndDraft(w, r, logg)
		if !ok {
			return
		}
		draft, err := svc.Get(r.Context(), userID, draftID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, draftResponseFromModel(draft))
	}
}

// DraftGenerate submits a draft to the generation pipeline and returns the
// job handle without waiting for the run.
func DraftGenerate(svc drafts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, draftID, ok := requireUserAndDraft(w, r, logg)
		if !ok {
			return
		}
		job, err := svc.Generate(r.Context(), userID, draftID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if logg != nil {
			ctx := logg.WithJobID(logg.WithDraftID(r.Context(), draftID.String()), job.ID.String())
			logg.Info(ctx, "pipeline.submitted")
		}
		responses.WriteSuccessStatus(w, http.StatusAccepted, jobResponseFromModel(job))
	}
}

// PipelineJobGet returns a pipeline job for one of the caller's drafts.
func PipelineJobGet(svc drafts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUser(w, r, logg)
		if !ok {
			return
		}
		jobID, err := validators.ParseUUIDParam(r, "jobId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		job, err := svc.GetJob(r.Context(), userID, jobID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, jobResponseFromModel(job))
	}
}

type musicSelectionRequest struct {
	Title  string `json:"title" validate:"required"`
	Artist string `json:"artist"`
}

type draftSelectionRequest struct {
	Caption string                 `json:"caption" validate:"max=5000"`
	Images  []string               `json:"images" validate:"max=10,dive,required"`
	Video   string                 `json:"video"`
	Music   *musicSelectionRequest `json:"music"`
}

func (r draftSelectionRequest) toSelection() drafts.Selection {
	selection := drafts.Selection{
		Caption: r.Caption,
		Images:  r.Images,
		Video:   r.Video,
	}
	if r.Music != nil {
		selection.Music = &types.MusicSuggestion{Title: r.Music.Title, Artist: r.Music.Artist}
	}
	return selection
}

// DraftSelect records the outputs chosen for publishing.
func DraftSelect(svc drafts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, draftID, ok := requireUserAndDraft(w, r, logg)
		if !ok {
			return
		}
		var payload draftSelectionRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		draft, err := svc.Select(r.Context(), userID, draftID, payload.toSelection())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, draftResponseFromModel(draft))
	}
}

type draftScheduleRequest struct {
	ScheduledAt     time.Time `json:"scheduledAt" validate:"required"`
	SocialAccountID string    `json:"socialAccountId"`
}

// DraftSchedule moves a ready draft into the publish queue.
func DraftSchedule(svc drafts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, draftID, ok := requireUserAndDraft(w, r, logg)
		if !ok {
			return
		}
		var payload draftScheduleRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		accountID, err := validators.ParseOptionalUUID(payload.SocialAccountID, "socialAccountId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		draft, err := svc.Schedule(r.Context(), userID, draftID, drafts.ScheduleInput{
			ScheduledAt:     payload.ScheduledAt,
			SocialAccountID: accountID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, draftResponseFromModel(draft))
	}
}

// DraftDelete soft-deletes a draft.
func DraftDelete(svc drafts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, draftID, ok := requireUserAndDraft(w, r, logg)
		if !ok {
			return
		}
		if err := svc.Delete(r.Context(), userID, draftID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"id": draftID, "deleted": true})
	}
}

func requireUser(w http.ResponseWriter, r *http.Request, logg *logger.Logger) (uuid.UUID, bool) {
	userID := middleware.UserIDFromContext(r.Context())
	if userID == uuid.Nil {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing"))
		return uuid.Nil, false
	}
	return userID, true
}

func requireUserAndDraft(w http.ResponseWriter, r *http.Request, logg *logger.Logger) (uuid.UUID, uuid.UUID, bool) {
	userID, ok := requireUser(w, r, logg)
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}
	draftID, err := validators.ParseUUIDParam(r, "draftId")
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return uuid.Nil, uuid.Nil, false
	}
	return userID, draftID, true
}
