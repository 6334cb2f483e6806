package cron

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/datatypes"

	"github.com/erandesamadhan2003/autopost-backend/internal/accounts"
	"github.com/erandesamadhan2003/autopost-backend/internal/publishing"
	"github.com/erandesamadhan2003/autopost-backend/pkg/db/models"
	"github.com/erandesamadhan2003/autopost-backend/pkg/enums"
	pkgerrors "github.com/erandesamadhan2003/autopost-backend/pkg/errors"
	"github.com/erandesamadhan2003/autopost-backend/pkg/logger"
	"github.com/erandesamadhan2003/autopost-backend/pkg/metrics"
)

const (
	scheduledPublishJobName = "scheduled-publish"
	defaultPublishBatchSize = 100
	noMediaMessage          = "draft has no media to publish"
	accountMismatchMessage  = "social account platform does not match draft platform"
)

type dueDrafts interface {
	ListDue(ctx context.Context, now time.Time, limit int) ([]models.Draft, error)
	MarkPublished(ctx context.Context, id uuid.UUID, platformPostID string, publishedAt time.Time) error
	MarkPublishFailed(ctx context.Context, id uuid.UUID, message string) error
}

type credentialResolver interface {
	Resolve(ctx context.Context, accountID *uuid.UUID) (*models.SocialAccount, error)
}

type postRecorder interface {
	Create(ctx context.Context, post *models.PublishedPost) error
}

type publisherLookup interface {
	Get(platform enums.Platform) (publishing.Publisher, error)
}

type ScheduledPublishJobParams struct {
	Logger     *logger.Logger
	Drafts     dueDrafts
	Accounts   credentialResolver
	Posts      postRecorder
	Publishers publisherLookup
	Metrics    *metrics.PipelineMetrics
	BatchSize  int
}

func NewScheduledPublishJob(params ScheduledPublishJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Drafts == nil {
		return nil, fmt.Errorf("drafts repository required")
	}
	if params.Accounts == nil {
		return nil, fmt.Errorf("account resolver required")
	}
	if params.Posts == nil {
		return nil, fmt.Errorf("published posts repository required")
	}
	if params.Publishers == nil {
		return nil, fmt.Errorf("publisher registry required")
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultPublishBatchSize
	}
	return &scheduledPublishJob{
		logg:       params.Logger,
		drafts:     params.Drafts,
		accounts:   params.Accounts,
		posts:      params.Posts,
		publishers: params.Publishers,
		metrics:    params.Metrics,
		batch:      batch,
		now:        time.Now,
	}, nil
}

type scheduledPublishJob struct {
	logg       *logger.Logger
	drafts     dueDrafts
	accounts   credentialResolver
	posts      postRecorder
	publishers publisherLookup
	metrics    *metrics.PipelineMetrics
	batch      int
	now        func() time.Time
}

func (j *scheduledPublishJob) Name() string { return scheduledPublishJobName }

// Run publishes due drafts one at a time. A draft that fails to publish is
// marked failed and the batch moves on; only storage errors are returned.
func (j *scheduledPublishJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	due, err := j.drafts.ListDue(ctx, now, j.batch)
	if err != nil {
		return fmt.Errorf("scheduled publish: %w", err)
	}

	var errs error
	published, failed := 0, 0
	for i := range due {
		if ctx.Err() != nil {
			errs = multierr.Append(errs, ctx.Err())
			break
		}
		ok, err := j.publishDraft(ctx, &due[i])
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("draft %s: %w", due[i].ID, err))
		}
		if ok {
			published++
		} else {
			failed++
		}
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"due":       len(due),
		"published": published,
		"failed":    failed,
	})
	j.logg.Info(logCtx, "scheduled publish complete")
	return errs
}

// publishDraft reports whether the draft was published. The error is set
// only when the outcome could not be recorded.
func (j *scheduledPublishJob) publishDraft(ctx context.Context, draft *models.Draft) (bool, error) {
	ctx = j.logg.WithFields(ctx, map[string]any{"draft_id": draft.ID.String(), "platform": draft.Platform.String()})

	account, err := j.accounts.Resolve(ctx, draft.SocialAccountID)
	if err != nil {
		if !pkgerrors.IsCode(err, pkgerrors.CodeCredentials) {
			return false, err
		}
		return false, j.fail(ctx, draft, accounts.CredentialUnavailableMessage)
	}
	if account.Platform != "" && account.Platform != draft.Platform {
		return false, j.fail(ctx, draft, accountMismatchMessage)
	}

	publisher, err := j.publishers.Get(draft.Platform)
	if err != nil {
		return false, j.fail(ctx, draft, pkgerrors.MessageOf(err))
	}

	caption := buildCaption(draft)
	content, err := planContent(draft)
	if err != nil {
		return false, j.fail(ctx, draft, pkgerrors.MessageOf(err))
	}

	var platformPostID string
	switch content.postType {
	case enums.PostTypeVideo:
		platformPostID, err = publisher.PublishReel(ctx, account, content.mediaURLs[0], caption)
	case enums.PostTypeCarousel:
		platformPostID, err = publisher.PublishCarousel(ctx, account, content.mediaURLs, caption)
	default:
		platformPostID, err = publisher.PublishImage(ctx, account, content.mediaURLs[0], caption)
	}
	if err != nil {
		return false, j.fail(ctx, draft, pkgerrors.MessageOf(err))
	}

	publishedAt := j.now().UTC()
	post := &models.PublishedPost{
		UserID:          draft.UserID,
		SocialAccountID: account.ID,
		DraftID:         draft.ID,
		Platform:        draft.Platform,
		PlatformPostID:  platformPostID,
		Caption:         caption,
		Hashtags:        datatypes.JSONSlice[string](append([]string{}, draft.Hashtags...)),
		MediaURLs:       datatypes.JSONSlice[string](content.mediaURLs),
		PostType:        content.postType,
		PublishedAt:     publishedAt,
	}
	if err := j.posts.Create(ctx, post); err != nil {
		return false, j.fail(ctx, draft, pkgerrors.MessageOf(err))
	}
	if err := j.drafts.MarkPublished(ctx, draft.ID, platformPostID, publishedAt); err != nil {
		return false, err
	}

	j.metrics.IncPublish(draft.Platform.String(), metrics.OutcomeSuccess)
	j.logg.Info(j.logg.WithField(ctx, "platform_post_id", platformPostID), "draft published")
	return true, nil
}

func (j *scheduledPublishJob) fail(ctx context.Context, draft *models.Draft, message string) error {
	j.metrics.IncPublish(draft.Platform.String(), metrics.OutcomeFailure)
	j.logg.Warn(ctx, fmt.Sprintf("publish failed: %s", message))
	if err := j.drafts.MarkPublishFailed(ctx, draft.ID, message); err != nil {
		return err
	}
	return nil
}

// publishContent is what goes out and through which path.
type publishContent struct {
	postType  enums.PostType
	mediaURLs []string
}

// planContent picks the publish path: a generated video goes out as a reel,
// more than one image as a carousel, otherwise a single image. Chosen media
// take precedence over the full generated set.
func planContent(draft *models.Draft) (publishContent, error) {
	if video := draft.Video(); video != nil {
		url := video.URL
		if draft.SelectedVideo != "" {
			url = draft.SelectedVideo
		}
		return publishContent{postType: enums.PostTypeVideo, mediaURLs: []string{url}}, nil
	}

	images := []string(draft.SelectedImages)
	if len(images) == 0 {
		images = draft.ProcessedImageURLs()
	}
	if len(images) == 0 {
		for _, img := range draft.UploadedImages {
			if img.URL != "" {
				images = []string{img.URL}
				break
			}
		}
	}
	switch {
	case len(images) > 1:
		return publishContent{postType: enums.PostTypeCarousel, mediaURLs: images}, nil
	case len(images) == 1:
		return publishContent{postType: enums.PostTypeImage, mediaURLs: images}, nil
	}
	return publishContent{}, pkgerrors.New(pkgerrors.CodeValidation, noMediaMessage)
}

// buildCaption joins the chosen caption (or the first generated one) with the
// draft's hashtags.
func buildCaption(draft *models.Draft) string {
	caption := strings.TrimSpace(draft.SelectedCaption)
	if caption == "" && len(draft.Captions) > 0 {
		caption = strings.TrimSpace(draft.Captions[0].Text)
	}
	tags := strings.Join(draft.Hashtags, " ")
	switch {
	case tags == "":
		return caption
	case caption == "":
		return tags
	}
	return caption + "\n\n" + tags
}
