package publishing

import (
	"context"
	"fmt"
	"sort"

	"github.com/erandesamadhan2003/autopost-backend/pkg/db/models"
	"github.com/erandesamadhan2003/autopost-backend/pkg/enums"
	pkgerrors "github.com/erandesamadhan2003/autopost-backend/pkg/errors"
	"github.com/erandesamadhan2003/autopost-backend/pkg/types"
)

// Publisher is the capability set every platform integration provides. Each
// publish call returns the platform's post id.
type Publisher interface {
	Platform() enums.Platform
	PublishImage(ctx context.Context, account *models.SocialAccount, imageURL, caption string) (string, error)
	PublishCarousel(ctx context.Context, account *models.SocialAccount, imageURLs []string, caption string) (string, error)
	PublishReel(ctx context.Context, account *models.SocialAccount, videoURL, caption string) (string, error)
	FetchMetrics(ctx context.Context, account *models.SocialAccount, platformPostID string) (types.PostMetrics, error)
}

// Registry resolves publishers by platform.
type Registry struct {
	publishers map[enums.Platform]Publisher
}

// NewRegistry indexes publishers by the platform they report.
func NewRegistry(publishers ...Publisher) (*Registry, error) {
	reg := &Registry{publishers: make(map[enums.Platform]Publisher, len(publishers))}
	for _, p := range publishers {
		if p == nil {
			continue
		}
		platform := p.Platform()
		if _, exists := reg.publishers[platform]; exists {
			return nil, fmt.Errorf("publisher for %s already registered", platform)
		}
		reg.publishers[platform] = p
	}
	return reg, nil
}

// Get returns the publisher for platform.
func (r *Registry) Get(platform enums.Platform) (Publisher, error) {
	if r != nil {
		if p, ok := r.publishers[platform]; ok {
			return p, nil
		}
	}
	return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("publishing to %s is not supported", platform))
}

// Platforms lists registered platforms in name order.
func (r *Registry) Platforms() []enums.Platform {
	if r == nil {
		return nil
	}
	out := make([]enums.Platform, 0, len(r.publishers))
	for platform := range r.publishers {
		out = append(out, platform)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func requireToken(account *models.SocialAccount) (string, error) {
	if account == nil || account.AccessToken == "" {
		return "", pkgerrors.New(pkgerrors.CodeCredentials, "social account has no access token")
	}
	return account.AccessToken, nil
}
