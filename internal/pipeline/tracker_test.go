package pipeline

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erandesamadhan2003/autopost-backend/pkg/enums"
	pkgerrors "github.com/erandesamadhan2003/autopost-backend/pkg/errors"
)

func TestTrackerCreateJob(t *testing.T) {
	ctx := context.Background()
	tracker := NewTracker(newTestDB(t), 0)
	draftID := uuid.New()

	job, err := tracker.CreateJob(ctx, draftID)
	require.NoError(t, err)
	assert.Equal(t, enums.JobStatusPending, job.Status)

	loaded, err := tracker.GetJob(ctx, job.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Slots, len(enums.GeneratorTypes))
	for _, slot := range loaded.Slots {
		assert.Equal(t, enums.JobStatusPending, slot.Status)
		assert.Equal(t, DefaultMaxRetries, slot.MaxRetries)
		assert.Zero(t, slot.RetryCount)
	}

	active, err := tracker.ActiveJobForDraft(ctx, draftID)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, job.ID, active.ID)

	_, err = tracker.CreateJob(ctx, uuid.Nil)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = tracker.GetJob(ctx, uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestTrackerSlotTransitions(t *testing.T) {
	ctx := context.Background()
	tracker := NewTracker(newTestDB(t), 3)
	job, err := tracker.CreateJob(ctx, uuid.New())
	require.NoError(t, err)

	require.NoError(t, tracker.MarkProcessing(ctx, job.ID, enums.GeneratorCaption))
	require.NoError(t, tracker.MarkProcessing(ctx, job.ID, enums.GeneratorCaption))
	require.NoError(t, tracker.MarkCompleted(ctx, job.ID, enums.GeneratorCaption))

	err = tracker.MarkProcessing(ctx, job.ID, enums.GeneratorCaption)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
	err = tracker.MarkFailed(ctx, job.ID, enums.GeneratorCaption, "late failure")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))

	require.NoError(t, tracker.MarkFailed(ctx, job.ID, enums.GeneratorImage, "timeout"))
	err = tracker.MarkCompleted(ctx, job.ID, enums.GeneratorImage)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))

	_, err = tracker.IncrementRetry(ctx, job.ID, enums.GeneratorVideo)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))

	loaded, err := tracker.GetJob(ctx, job.ID)
	require.NoError(t, err)
	caption, ok := loaded.Slot(enums.GeneratorCaption)
	require.True(t, ok)
	assert.Equal(t, enums.JobStatusCompleted, caption.Status)
	assert.NotNil(t, caption.CompletedAt)
	image, ok := loaded.Slot(enums.GeneratorImage)
	require.True(t, ok)
	assert.Equal(t, "timeout", image.Error)
}

func TestTrackerRetryBound(t *testing.T) {
	ctx := context.Background()
	tracker := NewTracker(newTestDB(t), 3)
	job, err := tracker.CreateJob(ctx, uuid.New())
	require.NoError(t, err)

	expected := []enums.JobStatus{enums.JobStatusPending, enums.JobStatusPending, enums.JobStatusFailed}
	for i, want := range expected {
		require.NoError(t, tracker.MarkProcessing(ctx, job.ID, enums.GeneratorVideo))
		require.NoError(t, tracker.MarkFailed(ctx, job.ID, enums.GeneratorVideo, "upstream 502"))
		slot, err := tracker.IncrementRetry(ctx, job.ID, enums.GeneratorVideo)
		require.NoError(t, err)
		assert.Equal(t, i+1, slot.RetryCount)
		assert.Equal(t, want, slot.Status)
	}

	slot, err := tracker.IncrementRetry(ctx, job.ID, enums.GeneratorVideo)
	require.NoError(t, err)
	assert.Equal(t, 3, slot.RetryCount)
	assert.Equal(t, enums.JobStatusFailed, slot.Status)
	assert.True(t, slot.Exhausted())
	assert.LessOrEqual(t, slot.RetryCount, slot.MaxRetries)
}

func TestTrackerCompleteJobRequiresSettledSlots(t *testing.T) {
	ctx := context.Background()
	tracker := NewTracker(newTestDB(t), 3)
	job, err := tracker.CreateJob(ctx, uuid.New())
	require.NoError(t, err)
	require.NoError(t, tracker.MarkJobProcessing(ctx, job.ID))

	require.NoError(t, tracker.MarkCompleted(ctx, job.ID, enums.GeneratorCaption))
	require.NoError(t, tracker.MarkFailed(ctx, job.ID, enums.GeneratorImage, "timeout"))
	require.NoError(t, tracker.MarkCompleted(ctx, job.ID, enums.GeneratorVideo))

	err = tracker.CompleteJob(ctx, job.ID)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))

	require.NoError(t, tracker.MarkCompleted(ctx, job.ID, enums.GeneratorMusic))
	require.NoError(t, tracker.CompleteJob(ctx, job.ID))

	loaded, err := tracker.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.JobStatusCompleted, loaded.Status)
	assert.NotNil(t, loaded.CompletedAt)

	err = tracker.FailJob(ctx, job.ID, "too late")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))

	active, err := tracker.ActiveJobForDraft(ctx, job.DraftID)
	require.NoError(t, err)
	assert.Nil(t, active)
}
