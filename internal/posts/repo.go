package posts

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/erandesamadhan2003/autopost-backend/pkg/db"
	"github.com/erandesamadhan2003/autopost-backend/pkg/db/models"
	pkgerrors "github.com/erandesamadhan2003/autopost-backend/pkg/errors"
	"github.com/erandesamadhan2003/autopost-backend/pkg/types"
)

// Repository persists published post snapshots and their engagement history.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, post *models.PublishedPost) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.PublishedPost, error)
	ListPublishedSince(ctx context.Context, since time.Time) ([]models.PublishedPost, error)
	UpdateMetrics(ctx context.Context, id uuid.UUID, fetched types.PostMetrics, at time.Time) (*models.PublishedPost, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a published posts repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) Create(ctx context.Context, post *models.PublishedPost) error {
	if post == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "published post is required")
	}
	if post.PlatformPostID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "platform post id is required")
	}
	if err := r.db.WithContext(ctx).Create(post).Error; err != nil {
		if db.IsUniqueViolation(err, "") {
			return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "platform post already recorded")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create published post")
	}
	return nil
}

func (r *repositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*models.PublishedPost, error) {
	var post models.PublishedPost
	if err := r.db.WithContext(ctx).First(&post, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "published post not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load published post")
	}
	return &post, nil
}

// ListPublishedSince returns posts published at or after since, newest first.
func (r *repositoryImpl) ListPublishedSince(ctx context.Context, since time.Time) ([]models.PublishedPost, error) {
	var posts []models.PublishedPost
	err := r.db.WithContext(ctx).
		Where("published_at >= ?", since.UTC()).
		Order("published_at DESC, id ASC").
		Find(&posts).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list published posts")
	}
	return posts, nil
}

// UpdateMetrics replaces the current snapshot with the fetched counters,
// recomputes the engagement rate and appends a history entry.
func (r *repositoryImpl) UpdateMetrics(ctx context.Context, id uuid.UUID, fetched types.PostMetrics, at time.Time) (*models.PublishedPost, error) {
	var updated *models.PublishedPost
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		post, err := r.WithTx(tx).FindByID(ctx, id)
		if err != nil {
			return err
		}

		previous := post.Metrics.Data()
		current := snapshotMetrics(fetched)
		history := append(post.MetricsHistory, types.MetricsSnapshot{
			Timestamp: at.UTC(),
			Previous:  previous,
			Current:   current,
		})

		stamp := at.UTC()
		res := tx.Model(&models.PublishedPost{}).
			Where("id = ?", id).
			Updates(map[string]any{
				"metrics":             datatypes.NewJSONType(current),
				"metrics_history":     history,
				"last_metrics_update": stamp,
				"updated_at":          stamp,
			})
		if res.Error != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "update post metrics")
		}

		post.Metrics = datatypes.NewJSONType(current)
		post.MetricsHistory = history
		post.LastMetricsUpdate = &stamp
		updated = post
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func snapshotMetrics(fetched types.PostMetrics) types.PostMetrics {
	current := fetched
	current.EngagementRate = types.EngagementRateOf(current)
	return current
}
