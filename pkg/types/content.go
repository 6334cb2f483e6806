package types

import "time"

// ImageRef points at an uploaded source image held in object storage.
type ImageRef struct {
	URL      string `json:"url"`
	PublicID string `json:"publicId,omitempty"`
	Format   string `json:"format,omitempty"`
	Width    int    `json:"width,omitempty"`
	Height   int    `json:"height,omitempty"`
}

// Caption is one generated caption candidate.
type Caption struct {
	Platform string   `json:"platform,omitempty"`
	Text     string   `json:"text"`
	Tone     string   `json:"tone,omitempty"`
	Score    float64  `json:"score,omitempty"`
	Hashtags []string `json:"hashtags,omitempty"`
}

// ImageVariant is one rendition of a processed image.
type ImageVariant struct {
	Variant string `json:"variant"`
	Name    string `json:"name,omitempty"`
	URL     string `json:"url"`
	Width   int    `json:"width,omitempty"`
	Height  int    `json:"height,omitempty"`
}

// ProcessedImage groups the variants produced for one input image. URL is the
// rendition used for publishing.
type ProcessedImage struct {
	SourceURL string         `json:"sourceUrl,omitempty"`
	Platform  string         `json:"platform,omitempty"`
	URL       string         `json:"url"`
	Width     int            `json:"width,omitempty"`
	Height    int            `json:"height,omitempty"`
	Variants  []ImageVariant `json:"variants,omitempty"`
}

// GeneratedVideo references a synthesized video.
type GeneratedVideo struct {
	URL         string     `json:"url"`
	Format      string     `json:"format,omitempty"`
	Size        string     `json:"size,omitempty"`
	SourceImage string     `json:"sourceImage,omitempty"`
	GeneratedAt *time.Time `json:"generatedAt,omitempty"`
}

// MusicSuggestion is one suggested soundtrack.
type MusicSuggestion struct {
	Title       string `json:"title"`
	Artist      string `json:"artist,omitempty"`
	Album       string `json:"album,omitempty"`
	Mood        string `json:"mood,omitempty"`
	Genre       string `json:"genre,omitempty"`
	PreviewURL  string `json:"previewUrl,omitempty"`
	Artwork     string `json:"artwork,omitempty"`
	TrackTimeMS int64  `json:"trackTime,omitempty"`
}

// PostMetrics holds the engagement counters of a published post.
type PostMetrics struct {
	Likes          int64   `json:"likes"`
	Comments       int64   `json:"comments"`
	Shares         int64   `json:"shares"`
	Saves          int64   `json:"saves"`
	Views          int64   `json:"views"`
	Reach          int64   `json:"reach"`
	Impressions    int64   `json:"impressions"`
	EngagementRate float64 `json:"engagementRate"`
}

// EngagementRateOf returns (likes+comments+shares)/views as a percentage
// rounded to two decimals, or 0 when there are no views.
func EngagementRateOf(m PostMetrics) float64 {
	if m.Views <= 0 {
		return 0
	}
	rate := float64(m.Likes+m.Comments+m.Shares) / float64(m.Views) * 100
	return float64(int64(rate*100+0.5)) / 100
}

// MetricsSnapshot is an append-only history entry.
type MetricsSnapshot struct {
	Timestamp time.Time   `json:"timestamp"`
	Previous  PostMetrics `json:"previous"`
	Current   PostMetrics `json:"current"`
}
