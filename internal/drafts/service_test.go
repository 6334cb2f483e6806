package drafts

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/erandesamadhan2003/autopost-backend/pkg/db/models"
	"github.com/erandesamadhan2003/autopost-backend/pkg/enums"
	pkgerrors "github.com/erandesamadhan2003/autopost-backend/pkg/errors"
	"github.com/erandesamadhan2003/autopost-backend/pkg/types"
)

type stubSubmitter struct {
	submitted []uuid.UUID
	jobs      map[uuid.UUID]*models.PipelineJob
	err       error
}

func (s *stubSubmitter) Submit(_ context.Context, draftID uuid.UUID) (*models.PipelineJob, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.submitted = append(s.submitted, draftID)
	job := &models.PipelineJob{ID: uuid.New(), DraftID: draftID, Status: enums.JobStatusPending}
	if s.jobs == nil {
		s.jobs = map[uuid.UUID]*models.PipelineJob{}
	}
	s.jobs[job.ID] = job
	return job, nil
}

func (s *stubSubmitter) Job(_ context.Context, jobID uuid.UUID) (*models.PipelineJob, error) {
	job, ok := s.jobs[jobID]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "pipeline job not found")
	}
	return job, nil
}

type stubAccounts map[uuid.UUID]*models.SocialAccount

func (s stubAccounts) FindByID(_ context.Context, id uuid.UUID) (*models.SocialAccount, error) {
	account, ok := s[id]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "social account not found")
	}
	return account, nil
}

type serviceFixture struct {
	svc       Service
	repo      Repository
	submitter *stubSubmitter
	accounts  stubAccounts
	userID    uuid.UUID
	accountID uuid.UUID
}

func newServiceFixture(t *testing.T) serviceFixture {
	t.Helper()
	repo := NewRepository(newTestDB(t))
	userID := uuid.New()
	accountID := uuid.New()
	accounts := stubAccounts{accountID: {ID: accountID, UserID: userID, Platform: enums.PlatformInstagram}}
	submitter := &stubSubmitter{}
	svc, err := NewService(repo, submitter, accounts)
	require.NoError(t, err)
	return serviceFixture{svc: svc, repo: repo, submitter: submitter, accounts: accounts, userID: userID, accountID: accountID}
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	_, err := NewService(nil, &stubSubmitter{}, stubAccounts{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
	_, err = NewService(NewRepository(nil), nil, stubAccounts{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
	_, err = NewService(NewRepository(nil), &stubSubmitter{}, nil)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
}

func TestServiceCreate(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)

	t.Run("valid", func(t *testing.T) {
		draft, err := f.svc.Create(ctx, CreateInput{
			UserID:      f.userID,
			Platforms:   []string{"Instagram", "linkedin", "instagram"},
			Description: "  launch day  ",
			Images:      []types.ImageRef{{URL: "https://cdn/a.jpg"}},
			Hashtags:    []string{"launch", "#launch", " "},
		})
		require.NoError(t, err)
		assert.Equal(t, enums.PlatformInstagram, draft.Platform)
		assert.Equal(t, []string{"instagram", "linkedin"}, []string(draft.Platforms))
		assert.Equal(t, "launch day", draft.Description)
		assert.Equal(t, []string{"#launch"}, []string(draft.Hashtags))
		assert.Equal(t, enums.DraftStatusDraft, draft.Status)
	})

	cases := map[string]CreateInput{
		"no platforms":      {UserID: f.userID, Description: "x"},
		"unknown platform":  {UserID: f.userID, Platforms: []string{"myspace"}, Description: "x"},
		"no content":        {UserID: f.userID, Platforms: []string{"instagram"}},
		"image without url": {UserID: f.userID, Platforms: []string{"instagram"}, Images: []types.ImageRef{{}}},
		"missing user":      {Platforms: []string{"instagram"}, Description: "x"},
		"foreign account": {
			UserID: f.userID, Platforms: []string{"instagram"}, Description: "x",
			SocialAccountID: func() *uuid.UUID { id := uuid.New(); return &id }(),
		},
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.svc.Create(ctx, input)
			require.Error(t, err)
			assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
		})
	}
}

func TestServiceOwnership(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)
	draft, err := f.svc.Create(ctx, CreateInput{UserID: f.userID, Platforms: []string{"instagram"}, Description: "x"})
	require.NoError(t, err)

	stranger := uuid.New()
	_, err = f.svc.Get(ctx, stranger, draft.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
	_, err = f.svc.Generate(ctx, stranger, draft.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
	assert.Empty(t, f.submitter.submitted)

	job, err := f.svc.Generate(ctx, f.userID, draft.ID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{draft.ID}, f.submitter.submitted)

	got, err := f.svc.GetJob(ctx, f.userID, job.ID)
	require.NoError(t, err)
	assert.Equal(t, job.ID, got.ID)

	_, err = f.svc.GetJob(ctx, stranger, job.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func readyDraft(t *testing.T, f serviceFixture) *models.Draft {
	t.Helper()
	return seedDraft(t, f.repo, func(d *models.Draft) {
		d.UserID = f.userID
		d.Status = enums.DraftStatusReady
		d.UploadedImages = datatypes.JSONSlice[types.ImageRef]{{URL: "https://cdn/raw.jpg"}}
		d.ProcessedImages = datatypes.JSONSlice[types.ProcessedImage]{{URL: "https://cdn/p1.jpg"}}
		d.GeneratedVideo = datatypes.NewJSONType(&types.GeneratedVideo{URL: "https://cdn/v.mp4"})
		d.MusicSuggestions = datatypes.JSONSlice[types.MusicSuggestion]{{Title: "Waves", Artist: "Tide"}}
	})
}

func TestServiceSelect(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)
	draft := readyDraft(t, f)

	got, err := f.svc.Select(ctx, f.userID, draft.ID, Selection{
		Caption: "edited caption",
		Images:  []string{"https://cdn/p1.jpg", "https://cdn/raw.jpg"},
		Video:   "https://cdn/v.mp4",
		Music:   &types.MusicSuggestion{Title: "Waves", Artist: "Tide"},
	})
	require.NoError(t, err)
	assert.Equal(t, "edited caption", got.SelectedCaption)
	assert.Equal(t, "https://cdn/v.mp4", got.SelectedVideo)

	invalid := map[string]Selection{
		"blank caption": {Caption: "   "},
		"unknown image": {Images: []string{"https://elsewhere/x.jpg"}},
		"unknown video": {Video: "https://cdn/other.mp4"},
		"unknown music": {Music: &types.MusicSuggestion{Title: "Other"}},
	}
	for name, selection := range invalid {
		t.Run(name, func(t *testing.T) {
			_, err := f.svc.Select(ctx, f.userID, draft.ID, selection)
			assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
		})
	}

	pending := seedDraft(t, f.repo, func(d *models.Draft) { d.UserID = f.userID })
	_, err = f.svc.Select(ctx, f.userID, pending.ID, Selection{Caption: "x"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
}

func TestServiceSchedule(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)
	when := time.Date(2026, 4, 1, 9, 30, 0, 0, time.FixedZone("IST", 5*3600+1800))

	t.Run("requires account", func(t *testing.T) {
		draft := readyDraft(t, f)
		_, err := f.svc.Schedule(ctx, f.userID, draft.ID, ScheduleInput{ScheduledAt: when})
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	})

	t.Run("requires time", func(t *testing.T) {
		draft := readyDraft(t, f)
		_, err := f.svc.Schedule(ctx, f.userID, draft.ID, ScheduleInput{SocialAccountID: &f.accountID})
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	})

	t.Run("ready draft", func(t *testing.T) {
		draft := readyDraft(t, f)
		got, err := f.svc.Schedule(ctx, f.userID, draft.ID, ScheduleInput{ScheduledAt: when, SocialAccountID: &f.accountID})
		require.NoError(t, err)
		assert.Equal(t, enums.DraftStatusScheduled, got.Status)
		require.NotNil(t, got.ScheduledAt)
		assert.True(t, when.Equal(*got.ScheduledAt))
		require.NotNil(t, got.SocialAccountID)
		assert.Equal(t, f.accountID, *got.SocialAccountID)

		_, err = f.svc.Schedule(ctx, f.userID, draft.ID, ScheduleInput{ScheduledAt: when, SocialAccountID: &f.accountID})
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
	})

	t.Run("not ready", func(t *testing.T) {
		draft := seedDraft(t, f.repo, func(d *models.Draft) { d.UserID = f.userID })
		_, err := f.svc.Schedule(ctx, f.userID, draft.ID, ScheduleInput{ScheduledAt: when, SocialAccountID: &f.accountID})
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
	})
}

func TestServiceDelete(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)

	processing := seedDraft(t, f.repo, func(d *models.Draft) {
		d.UserID = f.userID
		d.Status = enums.DraftStatusProcessing
	})
	err := f.svc.Delete(ctx, f.userID, processing.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))

	draft := readyDraft(t, f)
	require.NoError(t, f.svc.Delete(ctx, f.userID, draft.ID))
	_, err = f.svc.Get(ctx, f.userID, draft.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}
