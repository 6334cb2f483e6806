package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/erandesamadhan2003/autopost-backend/pkg/config"
	"github.com/erandesamadhan2003/autopost-backend/pkg/enums"
	pkgerrors "github.com/erandesamadhan2003/autopost-backend/pkg/errors"
)

const (
	captionPath = "/generate-captions"
	imagePath   = "/process-images"
	videoPath   = "/generate-video"
	musicPath   = "/suggest-music"

	responseBodyReadLimit int64 = 1024
)

// endpoint is one external generator with its own deadline.
type endpoint struct {
	generator enums.GeneratorType
	url       string
	timeout   time.Duration
}

// Client calls the four external content generators.
type Client struct {
	httpClient *http.Client
	caption    endpoint
	image      endpoint
	video      endpoint
	music      endpoint
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client. Per-call deadlines still
// come from the generator timeouts.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient builds a generator client from configuration.
func NewClient(cfg config.GenerationConfig, opts ...Option) (*Client, error) {
	client := &Client{
		httpClient: &http.Client{},
		caption:    endpoint{generator: enums.GeneratorCaption, url: joinURL(cfg.CaptionURL, captionPath), timeout: cfg.CaptionTimeout},
		image:      endpoint{generator: enums.GeneratorImage, url: joinURL(cfg.ImageURL, imagePath), timeout: cfg.ImageTimeout},
		video:      endpoint{generator: enums.GeneratorVideo, url: joinURL(cfg.VideoURL, videoPath), timeout: cfg.VideoTimeout},
		music:      endpoint{generator: enums.GeneratorMusic, url: joinURL(cfg.MusicURL, musicPath), timeout: cfg.MusicTimeout},
	}
	for _, ep := range []endpoint{client.caption, client.image, client.video, client.music} {
		if ep.url == "" {
			return nil, fmt.Errorf("%s generator url is required", ep.generator)
		}
		if ep.timeout <= 0 {
			return nil, fmt.Errorf("%s generator timeout must be positive", ep.generator)
		}
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

// GenerateCaptions calls the caption generator.
func (c *Client) GenerateCaptions(ctx context.Context, req CaptionRequest) (*CaptionResult, error) {
	var out CaptionResult
	if err := c.invoke(ctx, c.caption, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ProcessImages calls the image generator.
func (c *Client) ProcessImages(ctx context.Context, req ImageRequest) (*ImageResult, error) {
	var out ImageResult
	if err := c.invoke(ctx, c.image, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GenerateVideo calls the video generator. A response without a video url is
// treated as an upstream failure.
func (c *Client) GenerateVideo(ctx context.Context, req VideoRequest) (*VideoResult, error) {
	var out VideoResult
	if err := c.invoke(ctx, c.video, req, &out); err != nil {
		return nil, err
	}
	if out.Video == nil || strings.TrimSpace(out.Video.URL) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUpstream, "video generator returned no video")
	}
	return &out, nil
}

// SuggestMusic calls the music generator.
func (c *Client) SuggestMusic(ctx context.Context, req MusicRequest) (*MusicResult, error) {
	var out MusicResult
	if err := c.invoke(ctx, c.music, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) invoke(ctx context.Context, ep endpoint, payload any, out any) error {
	if c == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "generation client not configured")
	}

	callCtx, cancel := context.WithTimeout(ctx, ep.timeout)
	defer cancel()

	body, err := json.Marshal(payload)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, fmt.Sprintf("marshal %s request", ep.generator))
	}

	httpReq, err := http.NewRequestWithContext(callCtx, http.MethodPost, ep.url, bytes.NewReader(body))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, fmt.Sprintf("build %s request", ep.generator))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return classify(callCtx, ep, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		return pkgerrors.Wrap(
			pkgerrors.CodeUpstream,
			fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))),
			fmt.Sprintf("%s generator request failed", ep.generator),
		)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return classify(callCtx, ep, err)
	}
	return nil
}

// classify maps transport failures onto the generator error contract.
func classify(ctx context.Context, ep endpoint, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return pkgerrors.Wrap(
			pkgerrors.CodeTimeout,
			err,
			fmt.Sprintf("%s generator timed out after %s", ep.generator, ep.timeout),
		)
	}
	return pkgerrors.Wrap(pkgerrors.CodeUpstream, err, fmt.Sprintf("%s generator call failed", ep.generator))
}

func joinURL(base, path string) string {
	trimmed := strings.TrimRight(strings.TrimSpace(base), "/")
	if trimmed == "" {
		return ""
	}
	return trimmed + path
}
