package drafts

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/erandesamadhan2003/autopost-backend/pkg/db/models"
	"github.com/erandesamadhan2003/autopost-backend/pkg/enums"
	pkgerrors "github.com/erandesamadhan2003/autopost-backend/pkg/errors"
	"github.com/erandesamadhan2003/autopost-backend/pkg/types"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file:"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, conn.AutoMigrate(&models.Draft{}))
	return conn
}

func seedDraft(t *testing.T, repo Repository, mutate func(*models.Draft)) *models.Draft {
	t.Helper()
	draft := &models.Draft{
		UserID:      uuid.New(),
		Platform:    enums.PlatformInstagram,
		Platforms:   datatypes.JSONSlice[string]{"instagram"},
		Description: "sunset over the bay",
	}
	if mutate != nil {
		mutate(draft)
	}
	require.NoError(t, repo.Create(context.Background(), draft))
	return draft
}

func TestRepositoryCreateDefaults(t *testing.T) {
	repo := NewRepository(newTestDB(t))
	draft := seedDraft(t, repo, nil)

	got, err := repo.FindByID(context.Background(), draft.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.DraftStatusDraft, got.Status)
	assert.Empty(t, got.Captions)
	assert.Nil(t, got.Video())
	states := got.GeneratorStatus.Data()
	require.Len(t, states, len(enums.GeneratorTypes))
	for _, gen := range enums.GeneratorTypes {
		assert.Equal(t, enums.JobStatusPending, states[gen].Status)
	}
}

func TestRepositoryUpdateStatus(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(newTestDB(t))
	draft := seedDraft(t, repo, nil)

	require.NoError(t, repo.UpdateStatus(ctx, draft.ID,
		[]enums.DraftStatus{enums.DraftStatusDraft}, enums.DraftStatusProcessing, nil))

	err := repo.UpdateStatus(ctx, draft.ID,
		[]enums.DraftStatus{enums.DraftStatusDraft}, enums.DraftStatusProcessing, nil)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))

	err = repo.UpdateStatus(ctx, draft.ID,
		[]enums.DraftStatus{enums.DraftStatusProcessing}, enums.DraftStatusPublished, nil)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))

	err = repo.UpdateStatus(ctx, uuid.New(),
		[]enums.DraftStatus{enums.DraftStatusDraft}, enums.DraftStatusProcessing, nil)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestRepositorySaveGenerated(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(newTestDB(t))
	draft := seedDraft(t, repo, func(d *models.Draft) { d.Status = enums.DraftStatusProcessing })

	draft.Captions = datatypes.JSONSlice[types.Caption]{{Text: "Golden hour"}}
	draft.Hashtags = datatypes.JSONSlice[string]{"#sunset"}
	draft.SelectedCaption = "Golden hour"
	draft.GeneratedVideo = datatypes.NewJSONType(&types.GeneratedVideo{URL: "https://cdn/v.mp4"})
	require.NoError(t, repo.SaveGenerated(ctx, draft))

	got, err := repo.FindByID(ctx, draft.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.DraftStatusReady, got.Status)
	assert.Equal(t, "Golden hour", got.SelectedCaption)
	require.NotNil(t, got.Video())
	assert.Equal(t, "https://cdn/v.mp4", got.Video().URL)

	err = repo.SaveGenerated(ctx, draft)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
}

func TestRepositoryUpdateSelection(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(newTestDB(t))
	draft := seedDraft(t, repo, nil)

	err := repo.UpdateSelection(ctx, draft.ID, Selection{Caption: "x"})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))

	ready := seedDraft(t, repo, func(d *models.Draft) { d.Status = enums.DraftStatusReady })
	music := &types.MusicSuggestion{Title: "Waves", Artist: "Tide"}
	require.NoError(t, repo.UpdateSelection(ctx, ready.ID, Selection{
		Caption: "chosen",
		Images:  []string{"https://cdn/a.jpg"},
		Music:   music,
	}))

	got, err := repo.FindByID(ctx, ready.ID)
	require.NoError(t, err)
	assert.Equal(t, "chosen", got.SelectedCaption)
	assert.Equal(t, []string{"https://cdn/a.jpg"}, []string(got.SelectedImages))
	require.NotNil(t, got.SelectedMusic.Data())
	assert.Equal(t, "Waves", got.SelectedMusic.Data().Title)
}

func TestRepositoryListDue(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(newTestDB(t))
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	at := func(d time.Duration) *time.Time {
		v := now.Add(d)
		return &v
	}

	late := seedDraft(t, repo, func(d *models.Draft) {
		d.Status = enums.DraftStatusScheduled
		d.ScheduledAt = at(-time.Minute)
	})
	early := seedDraft(t, repo, func(d *models.Draft) {
		d.Status = enums.DraftStatusScheduled
		d.ScheduledAt = at(-time.Hour)
	})
	seedDraft(t, repo, func(d *models.Draft) {
		d.Status = enums.DraftStatusScheduled
		d.ScheduledAt = at(time.Hour)
	})
	seedDraft(t, repo, func(d *models.Draft) {
		d.Status = enums.DraftStatusReady
		d.ScheduledAt = at(-time.Hour)
	})
	deleted := seedDraft(t, repo, func(d *models.Draft) {
		d.Status = enums.DraftStatusScheduled
		d.ScheduledAt = at(-2 * time.Hour)
	})
	require.NoError(t, repo.SoftDelete(ctx, deleted.ID))

	due, err := repo.ListDue(ctx, now, 0)
	require.NoError(t, err)
	require.Len(t, due, 2)
	assert.Equal(t, early.ID, due[0].ID)
	assert.Equal(t, late.ID, due[1].ID)

	limited, err := repo.ListDue(ctx, now, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, early.ID, limited[0].ID)
}

func TestRepositoryPublishOutcomes(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(newTestDB(t))
	publishedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	ok := seedDraft(t, repo, func(d *models.Draft) { d.Status = enums.DraftStatusScheduled })
	require.NoError(t, repo.MarkPublished(ctx, ok.ID, "ig-123", publishedAt))
	got, err := repo.FindByID(ctx, ok.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.DraftStatusPublished, got.Status)
	assert.Equal(t, "ig-123", got.PlatformPostID)
	require.NotNil(t, got.PublishedAt)
	assert.True(t, publishedAt.Equal(*got.PublishedAt))

	bad := seedDraft(t, repo, func(d *models.Draft) { d.Status = enums.DraftStatusScheduled })
	require.NoError(t, repo.MarkPublishFailed(ctx, bad.ID, "Social account not found or token expired"))
	got, err = repo.FindByID(ctx, bad.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.DraftStatusFailed, got.Status)
	assert.Equal(t, "Social account not found or token expired", got.PublishError)

	err = repo.MarkPublished(ctx, bad.ID, "ig-999", publishedAt)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
}

func TestRepositorySoftDelete(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(newTestDB(t))
	draft := seedDraft(t, repo, nil)

	require.NoError(t, repo.SoftDelete(ctx, draft.ID))
	_, err := repo.FindByID(ctx, draft.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
	assert.True(t, pkgerrors.IsCode(repo.SoftDelete(ctx, draft.ID), pkgerrors.CodeNotFound))
}
