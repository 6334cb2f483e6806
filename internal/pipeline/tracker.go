package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/erandesamadhan2003/autopost-backend/pkg/db/models"
	"github.com/erandesamadhan2003/autopost-backend/pkg/enums"
	pkgerrors "github.com/erandesamadhan2003/autopost-backend/pkg/errors"
)

// DefaultMaxRetries bounds attempts per generator slot when none is configured.
const DefaultMaxRetries = 3

// Tracker owns the PipelineJob record and its per-generator slots.
type Tracker interface {
	WithTx(tx *gorm.DB) Tracker
	CreateJob(ctx context.Context, draftID uuid.UUID) (*models.PipelineJob, error)
	GetJob(ctx context.Context, jobID uuid.UUID) (*models.PipelineJob, error)
	ActiveJobForDraft(ctx context.Context, draftID uuid.UUID) (*models.PipelineJob, error)
	MarkJobProcessing(ctx context.Context, jobID uuid.UUID) error
	MarkProcessing(ctx context.Context, jobID uuid.UUID, generator enums.GeneratorType) error
	MarkCompleted(ctx context.Context, jobID uuid.UUID, generator enums.GeneratorType) error
	MarkFailed(ctx context.Context, jobID uuid.UUID, generator enums.GeneratorType, errText string) error
	IncrementRetry(ctx context.Context, jobID uuid.UUID, generator enums.GeneratorType) (*models.PipelineJobSlot, error)
	CompleteJob(ctx context.Context, jobID uuid.UUID) error
	FailJob(ctx context.Context, jobID uuid.UUID, errText string) error
}

type trackerImpl struct {
	db         *gorm.DB
	maxRetries int
	now        func() time.Time
}

// NewTracker returns a gorm-backed job tracker.
func NewTracker(db *gorm.DB, maxRetries int) Tracker {
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	return &trackerImpl{db: db, maxRetries: maxRetries, now: time.Now}
}

func (t *trackerImpl) WithTx(tx *gorm.DB) Tracker {
	if tx == nil {
		return t
	}
	return &trackerImpl{db: tx, maxRetries: t.maxRetries, now: t.now}
}

func (t *trackerImpl) CreateJob(ctx context.Context, draftID uuid.UUID) (*models.PipelineJob, error) {
	if draftID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "draft id is required")
	}
	job := &models.PipelineJob{
		DraftID: draftID,
		Status:  enums.JobStatusPending,
	}
	err := t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(job).Error; err != nil {
			return err
		}
		slots := make([]models.PipelineJobSlot, 0, len(enums.GeneratorTypes))
		for _, generator := range enums.GeneratorTypes {
			slots = append(slots, models.PipelineJobSlot{
				JobID:         job.ID,
				GeneratorType: generator,
				Status:        enums.JobStatusPending,
				MaxRetries:    t.maxRetries,
			})
		}
		if err := tx.Create(&slots).Error; err != nil {
			return err
		}
		job.Slots = slots
		return nil
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create pipeline job")
	}
	return job, nil
}

func (t *trackerImpl) GetJob(ctx context.Context, jobID uuid.UUID) (*models.PipelineJob, error) {
	var job models.PipelineJob
	err := t.db.WithContext(ctx).
		Preload("Slots", func(db *gorm.DB) *gorm.DB { return db.Order("generator_type ASC") }).
		First(&job, "id = ?", jobID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "pipeline job not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load pipeline job")
	}
	return &job, nil
}

// ActiveJobForDraft returns the newest non-terminal job for the draft, or nil.
func (t *trackerImpl) ActiveJobForDraft(ctx context.Context, draftID uuid.UUID) (*models.PipelineJob, error) {
	var jobs []models.PipelineJob
	err := t.db.WithContext(ctx).
		Where("draft_id = ? AND status IN ?", draftID, []enums.JobStatus{enums.JobStatusPending, enums.JobStatusProcessing}).
		Order("created_at DESC").
		Limit(1).
		Find(&jobs).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find active pipeline job")
	}
	if len(jobs) == 0 {
		return nil, nil
	}
	return &jobs[0], nil
}

func (t *trackerImpl) MarkJobProcessing(ctx context.Context, jobID uuid.UUID) error {
	res := t.db.WithContext(ctx).
		Model(&models.PipelineJob{}).
		Where("id = ? AND status IN ?", jobID, []enums.JobStatus{enums.JobStatusPending, enums.JobStatusProcessing}).
		Updates(map[string]any{"status": enums.JobStatusProcessing, "updated_at": t.now().UTC()})
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "mark pipeline job processing")
	}
	if res.RowsAffected == 0 {
		return t.jobConflict(ctx, jobID, enums.JobStatusProcessing)
	}
	return nil
}

// MarkProcessing moves a pending slot to processing. Repeating it is a no-op.
func (t *trackerImpl) MarkProcessing(ctx context.Context, jobID uuid.UUID, generator enums.GeneratorType) error {
	now := t.now().UTC()
	return t.updateSlot(ctx, jobID, generator,
		[]enums.JobStatus{enums.JobStatusPending, enums.JobStatusProcessing},
		map[string]any{"status": enums.JobStatusProcessing, "started_at": now, "updated_at": now},
		enums.JobStatusProcessing,
	)
}

// MarkCompleted settles a slot as successful. A failed slot never completes.
func (t *trackerImpl) MarkCompleted(ctx context.Context, jobID uuid.UUID, generator enums.GeneratorType) error {
	now := t.now().UTC()
	return t.updateSlot(ctx, jobID, generator,
		[]enums.JobStatus{enums.JobStatusPending, enums.JobStatusProcessing, enums.JobStatusCompleted},
		map[string]any{"status": enums.JobStatusCompleted, "error": "", "completed_at": now, "updated_at": now},
		enums.JobStatusCompleted,
	)
}

// MarkFailed settles a slot as failed with the given error text.
func (t *trackerImpl) MarkFailed(ctx context.Context, jobID uuid.UUID, generator enums.GeneratorType, errText string) error {
	now := t.now().UTC()
	return t.updateSlot(ctx, jobID, generator,
		[]enums.JobStatus{enums.JobStatusPending, enums.JobStatusProcessing, enums.JobStatusFailed},
		map[string]any{"status": enums.JobStatusFailed, "error": errText, "completed_at": now, "updated_at": now},
		enums.JobStatusFailed,
	)
}

// IncrementRetry bumps the retry count of a failed slot. Below the bound the
// slot returns to pending; at the bound it stays failed for good. An exhausted
// slot is returned unchanged.
func (t *trackerImpl) IncrementRetry(ctx context.Context, jobID uuid.UUID, generator enums.GeneratorType) (*models.PipelineJobSlot, error) {
	res := t.db.WithContext(ctx).
		Model(&models.PipelineJobSlot{}).
		Where("job_id = ? AND generator_type = ? AND status = ? AND retry_count < max_retries",
			jobID, generator, enums.JobStatusFailed).
		Updates(map[string]any{
			"retry_count": gorm.Expr("retry_count + 1"),
			"status": gorm.Expr("CASE WHEN retry_count + 1 < max_retries THEN ? ELSE ? END",
				enums.JobStatusPending, enums.JobStatusFailed),
			"updated_at": t.now().UTC(),
		})
	if res.Error != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "increment slot retry")
	}
	slot, err := t.loadSlot(ctx, jobID, generator)
	if err != nil {
		return nil, err
	}
	if res.RowsAffected == 0 && slot.Status != enums.JobStatusFailed {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("%s slot is %s, only failed slots can be retried", generator, slot.Status))
	}
	return slot, nil
}

// CompleteJob marks the job completed once every slot has settled.
func (t *trackerImpl) CompleteJob(ctx context.Context, jobID uuid.UUID) error {
	return t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var slots []models.PipelineJobSlot
		if err := tx.Where("job_id = ?", jobID).Find(&slots).Error; err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load pipeline slots")
		}
		if len(slots) != len(enums.GeneratorTypes) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("pipeline job has %d of %d slots", len(slots), len(enums.GeneratorTypes)))
		}
		for _, slot := range slots {
			if !slot.Status.IsSettled() {
				return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("%s slot has not settled (%s)", slot.GeneratorType, slot.Status))
			}
		}
		now := t.now().UTC()
		res := tx.Model(&models.PipelineJob{}).
			Where("id = ? AND status IN ?", jobID, []enums.JobStatus{enums.JobStatusPending, enums.JobStatusProcessing}).
			Updates(map[string]any{"status": enums.JobStatusCompleted, "completed_at": now, "updated_at": now})
		if res.Error != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "complete pipeline job")
		}
		if res.RowsAffected == 0 {
			return t.WithTx(tx).(*trackerImpl).jobConflict(ctx, jobID, enums.JobStatusCompleted)
		}
		return nil
	})
}

// FailJob marks a non-terminal job failed.
func (t *trackerImpl) FailJob(ctx context.Context, jobID uuid.UUID, errText string) error {
	now := t.now().UTC()
	res := t.db.WithContext(ctx).
		Model(&models.PipelineJob{}).
		Where("id = ? AND status IN ?", jobID, []enums.JobStatus{enums.JobStatusPending, enums.JobStatusProcessing}).
		Updates(map[string]any{"status": enums.JobStatusFailed, "error": errText, "completed_at": now, "updated_at": now})
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "fail pipeline job")
	}
	if res.RowsAffected == 0 {
		return t.jobConflict(ctx, jobID, enums.JobStatusFailed)
	}
	return nil
}

func (t *trackerImpl) updateSlot(ctx context.Context, jobID uuid.UUID, generator enums.GeneratorType, from []enums.JobStatus, updates map[string]any, to enums.JobStatus) error {
	res := t.db.WithContext(ctx).
		Model(&models.PipelineJobSlot{}).
		Where("job_id = ? AND generator_type = ? AND status IN ?", jobID, generator, from).
		Updates(updates)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, fmt.Sprintf("mark %s slot %s", generator, to))
	}
	if res.RowsAffected > 0 {
		return nil
	}
	slot, err := t.loadSlot(ctx, jobID, generator)
	if err != nil {
		return err
	}
	return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("%s slot cannot move from %s to %s", generator, slot.Status, to))
}

func (t *trackerImpl) loadSlot(ctx context.Context, jobID uuid.UUID, generator enums.GeneratorType) (*models.PipelineJobSlot, error) {
	var slot models.PipelineJobSlot
	err := t.db.WithContext(ctx).
		Where("job_id = ? AND generator_type = ?", jobID, generator).
		First(&slot).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("%s slot not found", generator))
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load pipeline slot")
	}
	return &slot, nil
}

func (t *trackerImpl) jobConflict(ctx context.Context, jobID uuid.UUID, to enums.JobStatus) error {
	var job models.PipelineJob
	err := t.db.WithContext(ctx).Select("id", "status").First(&job, "id = ?", jobID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "pipeline job not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load pipeline job")
	}
	return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("pipeline job cannot move from %s to %s", job.Status, to))
}
