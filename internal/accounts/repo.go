package accounts

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/erandesamadhan2003/autopost-backend/pkg/db/models"
	"github.com/erandesamadhan2003/autopost-backend/pkg/enums"
	pkgerrors "github.com/erandesamadhan2003/autopost-backend/pkg/errors"
)

// Repository exposes persistence helpers for connected social accounts.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, account *models.SocialAccount) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.SocialAccount, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.SocialAccount, error)
	FindActiveForUser(ctx context.Context, userID uuid.UUID, platform enums.Platform) (*models.SocialAccount, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns an accounts repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) Create(ctx context.Context, account *models.SocialAccount) error {
	if err := r.db.WithContext(ctx).Create(account).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create social account")
	}
	return nil
}

func (r *repositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*models.SocialAccount, error) {
	var account models.SocialAccount
	if err := r.db.WithContext(ctx).First(&account, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "social account not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load social account")
	}
	return &account, nil
}

// FindByIDs loads many accounts at once; missing ids are absent from the map.
func (r *repositoryImpl) FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.SocialAccount, error) {
	out := make(map[uuid.UUID]models.SocialAccount, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []models.SocialAccount
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load social accounts")
	}
	for _, row := range rows {
		out[row.ID] = row
	}
	return out, nil
}

// FindActiveForUser returns the most recently connected active account.
func (r *repositoryImpl) FindActiveForUser(ctx context.Context, userID uuid.UUID, platform enums.Platform) (*models.SocialAccount, error) {
	var rows []models.SocialAccount
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND platform = ? AND is_active = ?", userID, platform, true).
		Order("created_at DESC").
		Limit(1).
		Find(&rows).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load social account")
	}
	if len(rows) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "social account not found")
	}
	return &rows[0], nil
}
