package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/erandesamadhan2003/autopost-backend/pkg/db/models"
	pkgerrors "github.com/erandesamadhan2003/autopost-backend/pkg/errors"
	"github.com/erandesamadhan2003/autopost-backend/pkg/logger"
	"github.com/erandesamadhan2003/autopost-backend/pkg/metrics"
	"github.com/erandesamadhan2003/autopost-backend/pkg/types"
)

const (
	metricsRefreshJobName = "metrics-refresh"
	defaultMetricsWindow  = 7 * 24 * time.Hour
)

type recentPosts interface {
	ListPublishedSince(ctx context.Context, since time.Time) ([]models.PublishedPost, error)
	UpdateMetrics(ctx context.Context, id uuid.UUID, fetched types.PostMetrics, at time.Time) (*models.PublishedPost, error)
}

type accountBatch interface {
	FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.SocialAccount, error)
}

type MetricsRefreshJobParams struct {
	Logger     *logger.Logger
	Posts      recentPosts
	Accounts   accountBatch
	Publishers publisherLookup
	Metrics    *metrics.PipelineMetrics
	Window     time.Duration
}

func NewMetricsRefreshJob(params MetricsRefreshJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Posts == nil {
		return nil, fmt.Errorf("published posts repository required")
	}
	if params.Accounts == nil {
		return nil, fmt.Errorf("accounts repository required")
	}
	if params.Publishers == nil {
		return nil, fmt.Errorf("publisher registry required")
	}
	window := params.Window
	if window <= 0 {
		window = defaultMetricsWindow
	}
	return &metricsRefreshJob{
		logg:       params.Logger,
		posts:      params.Posts,
		accounts:   params.Accounts,
		publishers: params.Publishers,
		metrics:    params.Metrics,
		window:     window,
		now:        time.Now,
	}, nil
}

type metricsRefreshJob struct {
	logg       *logger.Logger
	posts      recentPosts
	accounts   accountBatch
	publishers publisherLookup
	metrics    *metrics.PipelineMetrics
	window     time.Duration
	now        func() time.Time
}

func (j *metricsRefreshJob) Name() string { return metricsRefreshJobName }

// Run refreshes every post published inside the window. A post whose fetch
// fails keeps its previous metrics; the batch continues.
func (j *metricsRefreshJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	since := now.Add(-j.window)
	posts, err := j.posts.ListPublishedSince(ctx, since)
	if err != nil {
		return fmt.Errorf("metrics refresh: %w", err)
	}
	if len(posts) == 0 {
		j.logg.Info(j.logg.WithField(ctx, "since", since), "no posts to refresh")
		return nil
	}

	ids := make([]uuid.UUID, 0, len(posts))
	seen := map[uuid.UUID]struct{}{}
	for _, post := range posts {
		if _, ok := seen[post.SocialAccountID]; ok {
			continue
		}
		seen[post.SocialAccountID] = struct{}{}
		ids = append(ids, post.SocialAccountID)
	}
	accountsByID, err := j.accounts.FindByIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("metrics refresh: %w", err)
	}

	var errs error
	updated, skipped, failed := 0, 0, 0
	for i := range posts {
		if ctx.Err() != nil {
			errs = multierr.Append(errs, ctx.Err())
			break
		}
		post := &posts[i]
		postCtx := j.logg.WithFields(ctx, map[string]any{
			"post_id":          post.ID.String(),
			"platform":         post.Platform.String(),
			"platform_post_id": post.PlatformPostID,
		})

		account, ok := accountsByID[post.SocialAccountID]
		if !ok || !account.HasUsableCredential(now) {
			skipped++
			j.metrics.IncMetricsRefresh(post.Platform.String(), metrics.OutcomeSkipped)
			j.logg.Warn(postCtx, "skipping metrics refresh: social account not found or token expired")
			continue
		}

		if err := j.refresh(postCtx, post, &account, now); err != nil {
			failed++
			j.metrics.IncMetricsRefresh(post.Platform.String(), metrics.OutcomeFailure)
			j.logg.Warn(postCtx, fmt.Sprintf("metrics refresh failed: %s", pkgerrors.MessageOf(err)))
			continue
		}
		updated++
		j.metrics.IncMetricsRefresh(post.Platform.String(), metrics.OutcomeSuccess)
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"window_hours": j.window.Hours(),
		"posts":        len(posts),
		"updated":      updated,
		"skipped":      skipped,
		"failed":       failed,
	})
	j.logg.Info(logCtx, "metrics refresh complete")
	return errs
}

func (j *metricsRefreshJob) refresh(ctx context.Context, post *models.PublishedPost, account *models.SocialAccount, now time.Time) error {
	publisher, err := j.publishers.Get(post.Platform)
	if err != nil {
		return err
	}
	fetched, err := publisher.FetchMetrics(ctx, account, post.PlatformPostID)
	if err != nil {
		return err
	}
	_, err = j.posts.UpdateMetrics(ctx, post.ID, fetched, now)
	return err
}
