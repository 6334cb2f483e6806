package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/erandesamadhan2003/autopost-backend/internal/accounts"
	"github.com/erandesamadhan2003/autopost-backend/internal/publishing"
	"github.com/erandesamadhan2003/autopost-backend/pkg/db/models"
	"github.com/erandesamadhan2003/autopost-backend/pkg/enums"
	pkgerrors "github.com/erandesamadhan2003/autopost-backend/pkg/errors"
	"github.com/erandesamadhan2003/autopost-backend/pkg/types"
)

type fakeDueDrafts struct {
	due       []models.Draft
	listedAt  time.Time
	listErr   error
	published map[uuid.UUID]string
	failed    map[uuid.UUID]string
}

func newFakeDueDrafts(due ...models.Draft) *fakeDueDrafts {
	return &fakeDueDrafts{due: due, published: map[uuid.UUID]string{}, failed: map[uuid.UUID]string{}}
}

func (f *fakeDueDrafts) ListDue(_ context.Context, now time.Time, _ int) ([]models.Draft, error) {
	f.listedAt = now
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []models.Draft
	for _, d := range f.due {
		if d.Status == enums.DraftStatusScheduled && d.ScheduledAt != nil && !d.ScheduledAt.After(now) {
			out = append(out, d)
		}
	}
	return out, nil
}

func (f *fakeDueDrafts) MarkPublished(_ context.Context, id uuid.UUID, platformPostID string, _ time.Time) error {
	f.published[id] = platformPostID
	return nil
}

func (f *fakeDueDrafts) MarkPublishFailed(_ context.Context, id uuid.UUID, message string) error {
	f.failed[id] = message
	return nil
}

type fakeResolver struct {
	accounts map[uuid.UUID]*models.SocialAccount
	err      error
}

func (f *fakeResolver) Resolve(_ context.Context, id *uuid.UUID) (*models.SocialAccount, error) {
	if f.err != nil {
		return nil, f.err
	}
	if id == nil {
		return nil, accounts.ErrCredentialUnavailable()
	}
	account, ok := f.accounts[*id]
	if !ok || account.AccessToken == "" {
		return nil, accounts.ErrCredentialUnavailable()
	}
	return account, nil
}

type fakePostStore struct {
	created []*models.PublishedPost
	err     error
}

func (f *fakePostStore) Create(_ context.Context, post *models.PublishedPost) error {
	if f.err != nil {
		return f.err
	}
	f.created = append(f.created, post)
	return nil
}

type publishCall struct {
	kind    enums.PostType
	urls    []string
	caption string
}

// fakePublisher records publish calls and fails for listed media urls.
type fakePublisher struct {
	platform   enums.Platform
	calls      []publishCall
	failURLs   map[string]error
	metrics    map[string]types.PostMetrics
	metricErrs map[string]error
	nextID     int
}

func newFakePublisher(platform enums.Platform) *fakePublisher {
	return &fakePublisher{
		platform:   platform,
		failURLs:   map[string]error{},
		metrics:    map[string]types.PostMetrics{},
		metricErrs: map[string]error{},
	}
}

func (f *fakePublisher) Platform() enums.Platform { return f.platform }

func (f *fakePublisher) record(kind enums.PostType, urls []string, caption string) (string, error) {
	f.calls = append(f.calls, publishCall{kind: kind, urls: urls, caption: caption})
	for _, u := range urls {
		if err := f.failURLs[u]; err != nil {
			return "", err
		}
	}
	f.nextID++
	return fmt.Sprintf("%s-post-%d", f.platform, f.nextID), nil
}

func (f *fakePublisher) PublishImage(_ context.Context, _ *models.SocialAccount, imageURL, caption string) (string, error) {
	return f.record(enums.PostTypeImage, []string{imageURL}, caption)
}

func (f *fakePublisher) PublishCarousel(_ context.Context, _ *models.SocialAccount, imageURLs []string, caption string) (string, error) {
	return f.record(enums.PostTypeCarousel, imageURLs, caption)
}

func (f *fakePublisher) PublishReel(_ context.Context, _ *models.SocialAccount, videoURL, caption string) (string, error) {
	return f.record(enums.PostTypeVideo, []string{videoURL}, caption)
}

func (f *fakePublisher) FetchMetrics(_ context.Context, _ *models.SocialAccount, platformPostID string) (types.PostMetrics, error) {
	if err := f.metricErrs[platformPostID]; err != nil {
		return types.PostMetrics{}, err
	}
	m, ok := f.metrics[platformPostID]
	if !ok {
		return types.PostMetrics{}, errors.New("unknown post")
	}
	return m, nil
}

type fakePublishers map[enums.Platform]publishing.Publisher

func (f fakePublishers) Get(platform enums.Platform) (publishing.Publisher, error) {
	p, ok := f[platform]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "publishing to "+platform.String()+" is not supported")
	}
	return p, nil
}
