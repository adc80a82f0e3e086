package post

import (
	"errors"
	"time"

	"github.com/tracking-moments/core/internal/modules/storage/upload"
)

// PostDateLayout is the accepted wire format for post_date form fields.
const PostDateLayout = "2006-01-02"

type CreatePostDTO struct {
	Title       string
	Description string
	PostDate    *time.Time
	Image       *upload.ImageRef
}

// UpdatePostDTO carries only the fields present in the request; nil
// means "leave unchanged". The image is replaced only when a new one
// was uploaded.
type UpdatePostDTO struct {
	Title       *string
	Description *string
	PostDate    *time.Time
	Image       *upload.ImageRef
}

func (d *UpdatePostDTO) isEmpty() bool {
	return d.Title == nil && d.Description == nil && d.PostDate == nil && d.Image == nil
}

var (
	// ErrNotFound covers absent and hard-deleted posts, plus restore of a
	// post that is not currently archived.
	ErrNotFound = errors.New("post not found")
	// ErrForbidden means the post exists but belongs to another user.
	ErrForbidden = errors.New("post belongs to another user")
)
