package tourhub

import "time"

// DownloadRecord is a downloadable tour asset registered with the server.
type DownloadRecord struct {
	// ID is the server-generated identifier of the record.
	ID string `json:"id"`
	// ImageURL is the preview image shown for the record.
	ImageURL string `json:"imageUrl"`
	// DownloadURL is the location of the payload, possibly a cloud share link.
	DownloadURL string `json:"downloadUrl"`
	// Title is an optional human-readable title.
	Title string `json:"title,omitempty"`
	// Description is an optional free-form description.
	Description string `json:"description,omitempty"`
	// CreatedAt is when the record was added.
	CreatedAt time.Time `json:"createdAt"`
}

// NewDownload is the input for registering a download record.
type NewDownload struct {
	ImageURL    string `json:"imageUrl" validate:"required,url"`
	DownloadURL string `json:"downloadUrl" validate:"required,url"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
}

// Like records that a user liked a post.
type Like struct {
	ID        string    `json:"id"`
	PostID    string    `json:"postId"`
	UserID    string    `json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
}

// Comment is a single comment on a post.
type Comment struct {
	ID        string    `json:"id"`
	PostID    string    `json:"postId"`
	UserID    string    `json:"userId"`
	Username  string    `json:"username"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

// Interactions is the derived social view of a post for one user.
type Interactions struct {
	LikeCount    int       `json:"likeCount"`
	CommentCount int       `json:"commentCount"`
	IsLiked      bool      `json:"isLiked"`
	Comments     []Comment `json:"comments"`
}

// LikeResult is returned by the like and unlike operations.
type LikeResult struct {
	Success   bool `json:"success"`
	LikeCount int  `json:"likeCount"`
	IsLiked   bool `json:"isLiked"`
}

// CommentResult is returned when a comment is added.
type CommentResult struct {
	Success      bool    `json:"success"`
	Comment      Comment `json:"comment"`
	CommentCount int     `json:"commentCount"`
}

// PostRef identifies the post an operation targets.
type PostRef struct {
	PostID string `json:"postId" validate:"required"`
}

// NewComment is the input for adding a comment.
type NewComment struct {
	PostID string `json:"postId" validate:"required"`
	Text   string `json:"text" validate:"required,min=1"`
}

// RecordRef identifies a download record.
type RecordRef struct {
	ID string `json:"id" validate:"required"`
}

// SuccessResult is the bare acknowledgement of a mutation.
type SuccessResult struct {
	Success bool `json:"success"`
}

// AnonymousUserID and AnonymousUsername identify the caller when no actor is known.
const (
	AnonymousUserID   = "anonymous"
	AnonymousUsername = "Anonymous User"
)
