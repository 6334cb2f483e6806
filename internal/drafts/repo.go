package drafts

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

// Repository exposes persistence helpers for drafts. Every status change is a
// compare-and-set on the expected current status.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, draft *models.Draft) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Draft, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from []enums.DraftStatus, to enums.DraftStatus, fields map[string]any) error
	SaveGenerated(ctx context.Context, draft *models.Draft) error
	UpdateSelection(ctx context.Context, id uuid.UUID, selection Selection) error
	ListDue(ctx context.Context, now time.Time, limit int) ([]models.Draft, error)
	MarkPublished(ctx context.Context, id uuid.UUID, platformPostID string, publishedAt time.Time) error
	MarkPublishFailed(ctx context.Context, id uuid.UUID, message string) error
	SoftDelete(ctx context.Context, id uuid.UUID) error
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a drafts repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) Create(ctx context.Context, draft *models.Draft) error {
	if err := r.db.WithContext(ctx).Create(draft).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create draft")
	}
	return nil
}

// FindByID loads a draft that has not been soft deleted.
func (r *repositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*models.Draft, error) {
	var draft models.Draft
	err := r.db.WithContext(ctx).
		Where("id = ? AND is_deleted = ?", id, false).
		First(&draft).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "draft not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load draft")
	}
	return &draft, nil
}

// UpdateStatus moves a draft to `to` when its current status is one of `from`.
// Only lifecycle steps and resubmission into processing are accepted.
func (r *repositoryImpl) UpdateStatus(ctx context.Context, id uuid.UUID, from []enums.DraftStatus, to enums.DraftStatus, fields map[string]any) error {
	if len(from) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "expected status is required")
	}
	for _, status := range from {
		if !allowed(status, to) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("draft cannot move from %s to %s", status, to))
		}
	}

	updates := map[string]any{}
	for k, v := range fields {
		updates[k] = v
	}
	updates["status"] = to
	updates["updated_at"] = time.Now().UTC()

	res := r.db.WithContext(ctx).
		Model(&models.Draft{}).
		Where("id = ? AND is_deleted = ? AND status IN ?", id, false, from).
		Updates(updates)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "update draft status")
	}
	if res.RowsAffected == 0 {
		return r.conflict(ctx, id, to)
	}
	return nil
}

// SaveGenerated writes merged generator outputs and moves processing to ready.
func (r *repositoryImpl) SaveGenerated(ctx context.Context, draft *models.Draft) error {
	if draft == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "draft is required")
	}
	return r.UpdateStatus(ctx, draft.ID,
		[]enums.DraftStatus{enums.DraftStatusProcessing},
		enums.DraftStatusReady,
		map[string]any{
			"captions":          draft.Captions,
			"hashtags":          draft.Hashtags,
			"selected_caption":  draft.SelectedCaption,
			"processed_images":  draft.ProcessedImages,
			"generated_video":   draft.GeneratedVideo,
			"music_suggestions": draft.MusicSuggestions,
			"generator_status":  draft.GeneratorStatus,
		},
	)
}

// UpdateSelection records the outputs chosen for publishing on a ready draft.
func (r *repositoryImpl) UpdateSelection(ctx context.Context, id uuid.UUID, selection Selection) error {
	res := r.db.WithContext(ctx).
		Model(&models.Draft{}).
		Where("id = ? AND is_deleted = ? AND status = ?", id, false, enums.DraftStatusReady).
		Updates(selection.columns())
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "update draft selection")
	}
	if res.RowsAffected == 0 {
		current, err := r.FindByID(ctx, id)
		if err != nil {
			return err
		}
		return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("outputs can only be selected on a ready draft, draft is %s", current.Status))
	}
	return nil
}

// ListDue returns scheduled drafts whose time has come, oldest first.
func (r *repositoryImpl) ListDue(ctx context.Context, now time.Time, limit int) ([]models.Draft, error) {
	query := r.db.WithContext(ctx).
		Where("status = ? AND scheduled_at IS NOT NULL AND scheduled_at <= ? AND is_deleted = ?",
			enums.DraftStatusScheduled, now.UTC(), false).
		Order("scheduled_at ASC, id ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var drafts []models.Draft
	if err := query.Find(&drafts).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list due drafts")
	}
	return drafts, nil
}

func (r *repositoryImpl) MarkPublished(ctx context.Context, id uuid.UUID, platformPostID string, publishedAt time.Time) error {
	return r.UpdateStatus(ctx, id,
		[]enums.DraftStatus{enums.DraftStatusScheduled},
		enums.DraftStatusPublished,
		map[string]any{
			"published_at":     publishedAt.UTC(),
			"platform_post_id": platformPostID,
			"publish_error":    "",
		},
	)
}

func (r *repositoryImpl) MarkPublishFailed(ctx context.Context, id uuid.UUID, message string) error {
	return r.UpdateStatus(ctx, id,
		[]enums.DraftStatus{enums.DraftStatusScheduled},
		enums.DraftStatusFailed,
		map[string]any{"publish_error": message},
	)
}

func (r *repositoryImpl) SoftDelete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Model(&models.Draft{}).
		Where("id = ? AND is_deleted = ?", id, false).
		Updates(map[string]any{"is_deleted": true, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "delete draft")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "draft not found")
	}
	return nil
}

func (r *repositoryImpl) conflict(ctx context.Context, id uuid.UUID, to enums.DraftStatus) error {
	current, err := r.FindByID(ctx, id)
	if err != nil {
		return err
	}
	return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("draft is %s, cannot move to %s", current.Status, to))
}

func allowed(from, to enums.DraftStatus) bool {
	if from.CanTransitionTo(to) {
		return true
	}
	return to == enums.DraftStatusProcessing && from.CanResubmit()
}
