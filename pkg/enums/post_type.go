package enums

// PostType is the content shape recorded on a published post.
type PostType string

const (
	PostTypeImage    PostType = "image"
	PostTypeVideo    PostType = "video"
	PostTypeCarousel PostType = "carousel"
	PostTypeReel     PostType = "reel"
)

func (p PostType) String() string {
	return string(p)
}

func (p PostType) IsValid() bool {
	switch p {
	case PostTypeImage, PostTypeVideo, PostTypeCarousel, PostTypeReel:
		return true
	}
	return false
}
