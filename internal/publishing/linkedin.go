package publishing

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/erandesamadhan2003/autopost-backend/pkg/config"
	"github.com/erandesamadhan2003/autopost-backend/pkg/db/models"
	"github.com/erandesamadhan2003/autopost-backend/pkg/enums"
	pkgerrors "github.com/erandesamadhan2003/autopost-backend/pkg/errors"
	"github.com/erandesamadhan2003/autopost-backend/pkg/types"
)

const (
	defaultLinkedInBaseURL = "https://api.linkedin.com/v2"
	linkedInPersonURN      = "urn:li:person:"
	restliProtocolVersion  = "2.0.0"
)

// LinkedIn posts UGC shares. It has no separate carousel or reel flow; those
// paths post one share carrying every media url.
type LinkedIn struct {
	httpClient *http.Client
	baseURL    string
}

// LinkedInOption configures optional LinkedIn client behavior.
type LinkedInOption func(*LinkedIn)

// WithLinkedInHTTPClient overrides the default HTTP client.
func WithLinkedInHTTPClient(client *http.Client) LinkedInOption {
	return func(l *LinkedIn) {
		if client != nil {
			l.httpClient = client
		}
	}
}

// NewLinkedIn builds the LinkedIn publisher from configuration.
func NewLinkedIn(cfg config.PublishingConfig, opts ...LinkedInOption) *LinkedIn {
	baseURL := strings.TrimSpace(cfg.LinkedInBaseURL)
	if baseURL == "" {
		baseURL = defaultLinkedInBaseURL
	}
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	client := &LinkedIn{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client
}

func (l *LinkedIn) Platform() enums.Platform { return enums.PlatformLinkedIn }

func (l *LinkedIn) PublishImage(ctx context.Context, account *models.SocialAccount, imageURL, caption string) (string, error) {
	media := []string{}
	if strings.TrimSpace(imageURL) != "" {
		media = append(media, imageURL)
	}
	return l.share(ctx, account, caption, "IMAGE", media)
}

func (l *LinkedIn) PublishCarousel(ctx context.Context, account *models.SocialAccount, imageURLs []string, caption string) (string, error) {
	return l.share(ctx, account, caption, "IMAGE", imageURLs)
}

func (l *LinkedIn) PublishReel(ctx context.Context, account *models.SocialAccount, videoURL, caption string) (string, error) {
	if strings.TrimSpace(videoURL) == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "video url is required")
	}
	return l.share(ctx, account, caption, "VIDEO", []string{videoURL})
}

func (l *LinkedIn) FetchMetrics(ctx context.Context, account *models.SocialAccount, platformPostID string) (types.PostMetrics, error) {
	token, err := requireToken(account)
	if err != nil {
		return types.PostMetrics{}, err
	}
	if platformPostID == "" {
		return types.PostMetrics{}, pkgerrors.New(pkgerrors.CodeValidation, "platform post id is required")
	}

	var out struct {
		LikesSummary struct {
			TotalLikes int64 `json:"totalLikes"`
		} `json:"likesSummary"`
		CommentsSummary struct {
			TotalComments int64 `json:"totalFirstLevelComments"`
			Aggregated    int64 `json:"aggregatedTotalComments"`
		} `json:"commentsSummary"`
		SharesSummary struct {
			TotalShares int64 `json:"totalShares"`
		} `json:"sharesSummary"`
	}
	err = do(ctx, l.httpClient, apiCall{
		method:  http.MethodGet,
		url:     joinURL(l.baseURL, "socialActions", url.PathEscape(platformPostID)),
		headers: l.headers(token),
		action:  "linkedin social actions lookup",
	}, &out)
	if err != nil {
		return types.PostMetrics{}, err
	}

	comments := out.CommentsSummary.Aggregated
	if comments == 0 {
		comments = out.CommentsSummary.TotalComments
	}
	metrics := types.PostMetrics{
		Likes:    out.LikesSummary.TotalLikes,
		Comments: comments,
		Shares:   out.SharesSummary.TotalShares,
	}
	metrics.EngagementRate = types.EngagementRateOf(metrics)
	return metrics, nil
}

type ugcMedia struct {
	Status string `json:"status"`
	Media  string `json:"media"`
}

func (l *LinkedIn) share(ctx context.Context, account *models.SocialAccount, text, category string, mediaURLs []string) (string, error) {
	token, err := requireToken(account)
	if err != nil {
		return "", err
	}
	author := authorURN(account.PlatformUserID)
	if author == "" {
		return "", pkgerrors.New(pkgerrors.CodeCredentials, "linkedin account has no member id")
	}

	content := map[string]any{
		"shareCommentary":    map[string]string{"text": text},
		"shareMediaCategory": "NONE",
	}
	if len(mediaURLs) > 0 {
		media := make([]ugcMedia, 0, len(mediaURLs))
		for _, u := range mediaURLs {
			media = append(media, ugcMedia{Status: "READY", Media: u})
		}
		content["shareMediaCategory"] = category
		content["media"] = media
	}
	body := map[string]any{
		"author":          author,
		"lifecycleState":  "PUBLISHED",
		"specificContent": map[string]any{"com.linkedin.ugc.ShareContent": content},
		"visibility":      map[string]string{"com.linkedin.ugc.MemberNetworkVisibility": "PUBLIC"},
	}

	var out struct {
		ID string `json:"id"`
	}
	if err := do(ctx, l.httpClient, apiCall{
		method:  http.MethodPost,
		url:     joinURL(l.baseURL, "ugcPosts"),
		headers: l.headers(token),
		body:    body,
		action:  "linkedin share",
	}, &out); err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", pkgerrors.New(pkgerrors.CodeUpstream, "linkedin share returned no id")
	}
	return out.ID, nil
}

func (l *LinkedIn) headers(token string) map[string]string {
	return map[string]string{
		"Authorization":             "Bearer " + token,
		"X-Restli-Protocol-Version": restliProtocolVersion,
	}
}

func authorURN(platformUserID string) string {
	id := strings.TrimSpace(platformUserID)
	if id == "" || strings.HasPrefix(id, "urn:li:") {
		return id
	}
	return linkedInPersonURN + id
}
