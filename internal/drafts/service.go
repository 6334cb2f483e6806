package drafts

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/erandesamadhan2003/autopost-backend/pkg/db/models"
	"github.com/erandesamadhan2003/autopost-backend/pkg/enums"
	pkgerrors "github.com/erandesamadhan2003/autopost-backend/pkg/errors"
	"github.com/erandesamadhan2003/autopost-backend/pkg/types"
)

// Submitter starts and reports pipeline runs.
type Submitter interface {
	Submit(ctx context.Context, draftID uuid.UUID) (*models.PipelineJob, error)
	Job(ctx context.Context, jobID uuid.UUID) (*models.PipelineJob, error)
}

// AccountLookup loads a connected account.
type AccountLookup interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.SocialAccount, error)
}

// Service defines the user-facing draft operations.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.Draft, error)
	Get(ctx context.Context, userID, draftID uuid.UUID) (*models.Draft, error)
	Generate(ctx context.Context, userID, draftID uuid.UUID) (*models.PipelineJob, error)
	GetJob(ctx context.Context, userID, jobID uuid.UUID) (*models.PipelineJob, error)
	Select(ctx context.Context, userID, draftID uuid.UUID, selection Selection) (*models.Draft, error)
	Schedule(ctx context.Context, userID, draftID uuid.UUID, input ScheduleInput) (*models.Draft, error)
	Delete(ctx context.Context, userID, draftID uuid.UUID) error
}

// CreateInput carries the raw user content for a new draft.
type CreateInput struct {
	UserID          uuid.UUID
	SocialAccountID *uuid.UUID
	Platforms       []string
	Description     string
	BrandTone       string
	Images          []types.ImageRef
	Hashtags        []string
}

// Selection is the set of outputs chosen for publishing.
type Selection struct {
	Caption string
	Images  []string
	Video   string
	Music   *types.MusicSuggestion
}

func (s Selection) columns() map[string]any {
	images := s.Images
	if images == nil {
		images = []string{}
	}
	return map[string]any{
		"selected_caption": s.Caption,
		"selected_images":  datatypes.JSONSlice[string](images),
		"selected_video":   s.Video,
		"selected_music":   datatypes.NewJSONType(s.Music),
		"updated_at":       time.Now().UTC(),
	}
}

// ScheduleInput sets when a ready draft goes out and through which account.
type ScheduleInput struct {
	ScheduledAt     time.Time
	SocialAccountID *uuid.UUID
}

type service struct {
	repo      Repository
	submitter Submitter
	accounts  AccountLookup
}

// NewService wires draft dependencies.
func NewService(repo Repository, submitter Submitter, accounts AccountLookup) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "drafts repository required")
	}
	if submitter == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "pipeline submitter required")
	}
	if accounts == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "accounts lookup required")
	}
	return &service{repo: repo, submitter: submitter, accounts: accounts}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.Draft, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	platforms, err := parsePlatforms(input.Platforms)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.Description) == "" && len(input.Images) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "description or images required")
	}
	for i, img := range input.Images {
		if strings.TrimSpace(img.URL) == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("image %d is missing a url", i))
		}
	}
	if input.SocialAccountID != nil {
		if err := s.checkAccount(ctx, input.UserID, *input.SocialAccountID); err != nil {
			return nil, err
		}
	}

	names := make([]string, 0, len(platforms))
	for _, p := range platforms {
		names = append(names, p.String())
	}
	draft := &models.Draft{
		UserID:          input.UserID,
		SocialAccountID: input.SocialAccountID,
		Platform:        platforms[0],
		Platforms:       datatypes.JSONSlice[string](names),
		Description:     strings.TrimSpace(input.Description),
		BrandTone:       strings.TrimSpace(input.BrandTone),
		UploadedImages:  datatypes.JSONSlice[types.ImageRef](input.Images),
		Hashtags:        datatypes.JSONSlice[string](normalizeHashtags(input.Hashtags)),
		Status:          enums.DraftStatusDraft,
	}
	if err := s.repo.Create(ctx, draft); err != nil {
		return nil, err
	}
	return draft, nil
}

func (s *service) Get(ctx context.Context, userID, draftID uuid.UUID) (*models.Draft, error) {
	draft, err := s.repo.FindByID(ctx, draftID)
	if err != nil {
		return nil, err
	}
	if draft.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "draft not found")
	}
	return draft, nil
}

func (s *service) Generate(ctx context.Context, userID, draftID uuid.UUID) (*models.PipelineJob, error) {
	if _, err := s.Get(ctx, userID, draftID); err != nil {
		return nil, err
	}
	return s.submitter.Submit(ctx, draftID)
}

func (s *service) GetJob(ctx context.Context, userID, jobID uuid.UUID) (*models.PipelineJob, error) {
	job, err := s.submitter.Job(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if _, err := s.Get(ctx, userID, job.DraftID); err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "pipeline job not found")
		}
		return nil, err
	}
	return job, nil
}

func (s *service) Select(ctx context.Context, userID, draftID uuid.UUID, selection Selection) (*models.Draft, error) {
	draft, err := s.Get(ctx, userID, draftID)
	if err != nil {
		return nil, err
	}
	if draft.Status != enums.DraftStatusReady {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("outputs can only be selected on a ready draft, draft is %s", draft.Status))
	}
	if err := validateSelection(draft, selection); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateSelection(ctx, draftID, selection); err != nil {
		return nil, err
	}
	return s.repo.FindByID(ctx, draftID)
}

func (s *service) Schedule(ctx context.Context, userID, draftID uuid.UUID, input ScheduleInput) (*models.Draft, error) {
	if input.ScheduledAt.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "scheduled time required")
	}
	draft, err := s.Get(ctx, userID, draftID)
	if err != nil {
		return nil, err
	}
	accountID := draft.SocialAccountID
	if input.SocialAccountID != nil {
		accountID = input.SocialAccountID
	}
	if accountID == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "social account required to schedule")
	}
	if err := s.checkAccount(ctx, userID, *accountID); err != nil {
		return nil, err
	}

	err = s.repo.UpdateStatus(ctx, draftID,
		[]enums.DraftStatus{enums.DraftStatusReady},
		enums.DraftStatusScheduled,
		map[string]any{
			"scheduled_at":      input.ScheduledAt.UTC(),
			"social_account_id": *accountID,
			"publish_error":     "",
		},
	)
	if err != nil {
		return nil, err
	}
	return s.repo.FindByID(ctx, draftID)
}

func (s *service) Delete(ctx context.Context, userID, draftID uuid.UUID) error {
	draft, err := s.Get(ctx, userID, draftID)
	if err != nil {
		return err
	}
	if draft.Status == enums.DraftStatusProcessing {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "draft is still processing")
	}
	return s.repo.SoftDelete(ctx, draftID)
}

func (s *service) checkAccount(ctx context.Context, userID, accountID uuid.UUID) error {
	account, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			return pkgerrors.New(pkgerrors.CodeValidation, "social account not found")
		}
		return err
	}
	if account.UserID != userID {
		return pkgerrors.New(pkgerrors.CodeValidation, "social account not found")
	}
	return nil
}

func parsePlatforms(values []string) ([]enums.Platform, error) {
	if len(values) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one platform required")
	}
	seen := map[enums.Platform]struct{}{}
	out := make([]enums.Platform, 0, len(values))
	for _, value := range values {
		platform, err := enums.ParsePlatform(value)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid platform")
		}
		if _, ok := seen[platform]; ok {
			continue
		}
		seen[platform] = struct{}{}
		out = append(out, platform)
	}
	return out, nil
}

func normalizeHashtags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := map[string]struct{}{}
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if !strings.HasPrefix(tag, "#") {
			tag = "#" + tag
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}

// validateSelection checks that every chosen output exists on the draft.
func validateSelection(draft *models.Draft, selection Selection) error {
	if selection.Caption != "" && strings.TrimSpace(selection.Caption) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "caption must not be blank")
	}

	known := map[string]struct{}{}
	for _, img := range draft.ProcessedImages {
		known[img.URL] = struct{}{}
	}
	for _, img := range draft.UploadedImages {
		known[img.URL] = struct{}{}
	}
	for _, url := range selection.Images {
		if _, ok := known[url]; !ok {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("image %s is not part of this draft", url))
		}
	}

	if selection.Video != "" {
		video := draft.Video()
		if video == nil || video.URL != selection.Video {
			return pkgerrors.New(pkgerrors.CodeValidation, "video is not part of this draft")
		}
	}

	if selection.Music != nil {
		found := false
		for _, track := range draft.MusicSuggestions {
			if track.Title == selection.Music.Title && track.Artist == selection.Music.Artist {
				found = true
				break
			}
		}
		if !found {
			return pkgerrors.New(pkgerrors.CodeValidation, "music is not one of the suggestions")
		}
	}
	return nil
}
