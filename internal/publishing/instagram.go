package publishing

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/erandesamadhan2003/autopost-backend/pkg/clock"
	"github.com/erandesamadhan2003/autopost-backend/pkg/config"
	"github.com/erandesamadhan2003/autopost-backend/pkg/db/models"
	"github.com/erandesamadhan2003/autopost-backend/pkg/enums"
	pkgerrors "github.com/erandesamadhan2003/autopost-backend/pkg/errors"
	"github.com/erandesamadhan2003/autopost-backend/pkg/types"
)

const (
	defaultInstagramBaseURL = "https://graph.instagram.com/v18.0"
	instagramMediaFields    = "like_count,comments_count,media_type,timestamp"
	instagramInsightMetrics = "impressions,reach,engagement,saved,video_views"
)

// Instagram publishes through the Graph API container flow: create a media
// container, then publish it.
type Instagram struct {
	httpClient      *http.Client
	baseURL         string
	reelProcessWait time.Duration
	wait            func(ctx context.Context, d time.Duration) error
}

// InstagramOption configures optional Instagram client behavior.
type InstagramOption func(*Instagram)

// WithInstagramHTTPClient overrides the default HTTP client.
func WithInstagramHTTPClient(client *http.Client) InstagramOption {
	return func(i *Instagram) {
		if client != nil {
			i.httpClient = client
		}
	}
}

// NewInstagram builds the Instagram publisher from configuration.
func NewInstagram(cfg config.PublishingConfig, opts ...InstagramOption) *Instagram {
	baseURL := strings.TrimSpace(cfg.InstagramBaseURL)
	if baseURL == "" {
		baseURL = defaultInstagramBaseURL
	}
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	client := &Instagram{
		httpClient:      &http.Client{Timeout: timeout},
		baseURL:         baseURL,
		reelProcessWait: cfg.ReelProcessWait,
		wait:            clock.Sleep,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client
}

func (i *Instagram) Platform() enums.Platform { return enums.PlatformInstagram }

type instagramID struct {
	ID string `json:"id"`
}

func (i *Instagram) PublishImage(ctx context.Context, account *models.SocialAccount, imageURL, caption string) (string, error) {
	token, err := requireToken(account)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(imageURL) == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "image url is required")
	}
	containerID, err := i.createContainer(ctx, account, map[string]any{
		"image_url":    imageURL,
		"caption":      caption,
		"access_token": token,
	})
	if err != nil {
		return "", err
	}
	return i.publishContainer(ctx, account, containerID)
}

func (i *Instagram) PublishCarousel(ctx context.Context, account *models.SocialAccount, imageURLs []string, caption string) (string, error) {
	token, err := requireToken(account)
	if err != nil {
		return "", err
	}
	if len(imageURLs) < 2 {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "carousel needs at least two images")
	}
	children := make([]string, 0, len(imageURLs))
	for _, imageURL := range imageURLs {
		childID, err := i.createContainer(ctx, account, map[string]any{
			"image_url":        imageURL,
			"is_carousel_item": true,
			"access_token":     token,
		})
		if err != nil {
			return "", err
		}
		children = append(children, childID)
	}
	containerID, err := i.createContainer(ctx, account, map[string]any{
		"media_type":   "CAROUSEL",
		"children":     children,
		"caption":      caption,
		"access_token": token,
	})
	if err != nil {
		return "", err
	}
	return i.publishContainer(ctx, account, containerID)
}

// PublishReel waits reelProcessWait between creating the container and
// publishing it so the platform can ingest the video.
func (i *Instagram) PublishReel(ctx context.Context, account *models.SocialAccount, videoURL, caption string) (string, error) {
	token, err := requireToken(account)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(videoURL) == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "video url is required")
	}
	containerID, err := i.createContainer(ctx, account, map[string]any{
		"media_type":    "REELS",
		"video_url":     videoURL,
		"caption":       caption,
		"share_to_feed": true,
		"access_token":  token,
	})
	if err != nil {
		return "", err
	}
	if err := i.wait(ctx, i.reelProcessWait); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeTimeout, err, "waiting for reel processing")
	}
	return i.publishContainer(ctx, account, containerID)
}

func (i *Instagram) FetchMetrics(ctx context.Context, account *models.SocialAccount, platformPostID string) (types.PostMetrics, error) {
	token, err := requireToken(account)
	if err != nil {
		return types.PostMetrics{}, err
	}
	if platformPostID == "" {
		return types.PostMetrics{}, pkgerrors.New(pkgerrors.CodeValidation, "platform post id is required")
	}

	media := struct {
		LikeCount     int64 `json:"like_count"`
		CommentsCount int64 `json:"comments_count"`
	}{}
	q := url.Values{"fields": {instagramMediaFields}, "access_token": {token}}
	if err := do(ctx, i.httpClient, apiCall{
		method: http.MethodGet,
		url:    joinURL(i.baseURL, url.PathEscape(platformPostID)) + "?" + q.Encode(),
		action: "instagram media lookup",
	}, &media); err != nil {
		return types.PostMetrics{}, err
	}

	insights := struct {
		Data []struct {
			Name   string `json:"name"`
			Values []struct {
				Value int64 `json:"value"`
			} `json:"values"`
		} `json:"data"`
	}{}
	q = url.Values{"metric": {instagramInsightMetrics}, "access_token": {token}}
	if err := do(ctx, i.httpClient, apiCall{
		method: http.MethodGet,
		url:    joinURL(i.baseURL, url.PathEscape(platformPostID), "insights") + "?" + q.Encode(),
		action: "instagram insights lookup",
	}, &insights); err != nil {
		return types.PostMetrics{}, err
	}

	metrics := types.PostMetrics{Likes: media.LikeCount, Comments: media.CommentsCount}
	for _, insight := range insights.Data {
		if len(insight.Values) == 0 {
			continue
		}
		value := insight.Values[0].Value
		switch insight.Name {
		case "impressions":
			metrics.Impressions = value
		case "reach":
			metrics.Reach = value
		case "saved", "saves":
			metrics.Saves = value
		case "video_views", "plays":
			metrics.Views = value
		}
	}
	metrics.EngagementRate = types.EngagementRateOf(metrics)
	return metrics, nil
}

func (i *Instagram) createContainer(ctx context.Context, account *models.SocialAccount, body map[string]any) (string, error) {
	var out instagramID
	if err := do(ctx, i.httpClient, apiCall{
		method: http.MethodPost,
		url:    joinURL(i.baseURL, instagramUser(account), "media"),
		body:   body,
		action: "instagram media container",
	}, &out); err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", pkgerrors.New(pkgerrors.CodeUpstream, "instagram media container returned no id")
	}
	return out.ID, nil
}

func (i *Instagram) publishContainer(ctx context.Context, account *models.SocialAccount, containerID string) (string, error) {
	var out instagramID
	if err := do(ctx, i.httpClient, apiCall{
		method: http.MethodPost,
		url:    joinURL(i.baseURL, instagramUser(account), "media_publish"),
		body:   map[string]any{"creation_id": containerID, "access_token": account.AccessToken},
		action: "instagram media publish",
	}, &out); err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", pkgerrors.New(pkgerrors.CodeUpstream, fmt.Sprintf("instagram publish of container %s returned no id", containerID))
	}
	return out.ID, nil
}

func instagramUser(account *models.SocialAccount) string {
	if account != nil && account.PlatformUserID != "" {
		return url.PathEscape(account.PlatformUserID)
	}
	return "me"
}
