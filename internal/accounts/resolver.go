package accounts

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/erandesamadhan2003/autopost-backend/pkg/db/models"
	pkgerrors "github.com/erandesamadhan2003/autopost-backend/pkg/errors"
)

// CredentialUnavailableMessage is recorded on drafts whose account cannot publish.
const CredentialUnavailableMessage = "Social account not found or token expired"

// ErrCredentialUnavailable is returned when an account is missing, inactive,
// tokenless or expired.
func ErrCredentialUnavailable() error {
	return pkgerrors.New(pkgerrors.CodeCredentials, CredentialUnavailableMessage)
}

// Resolver looks up an account and checks that it can publish right now.
type Resolver struct {
	repo Repository
	now  func() time.Time
}

// NewResolver builds a credential resolver.
func NewResolver(repo Repository) (*Resolver, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "accounts repository required")
	}
	return &Resolver{repo: repo, now: time.Now}, nil
}

// Resolve returns the account or a CREDENTIALS_UNAVAILABLE error. Storage
// failures are returned as they are.
func (r *Resolver) Resolve(ctx context.Context, accountID *uuid.UUID) (*models.SocialAccount, error) {
	if accountID == nil || *accountID == uuid.Nil {
		return nil, ErrCredentialUnavailable()
	}
	account, err := r.repo.FindByID(ctx, *accountID)
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			return nil, ErrCredentialUnavailable()
		}
		return nil, err
	}
	if !account.HasUsableCredential(r.now()) {
		return nil, ErrCredentialUnavailable()
	}
	return account, nil
}
