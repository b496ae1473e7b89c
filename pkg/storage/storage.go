package storage

import (
	"context"
	"time"

	tourhub "github.com/perpetuallyhorni/tourhub/internal"
)

// DownloadStorer defines the record store for downloadable assets.
// Implementations serialize writes; reads never mutate.
type DownloadStorer interface {
	// All returns every record in insertion order.
	All(ctx context.Context) ([]tourhub.DownloadRecord, error)
	// Get returns a single record, or tourhub.ErrNotFound.
	Get(ctx context.Context, id string) (tourhub.DownloadRecord, error)
	// Add creates a record with a fresh id and creation time.
	Add(ctx context.Context, in tourhub.NewDownload) (tourhub.DownloadRecord, error)
	// Remove deletes a record, returning tourhub.ErrNotFound if it does not exist.
	Remove(ctx context.Context, id string) error
	// Seed inserts fully-formed records, replacing any with the same id.
	Seed(ctx context.Context, records ...tourhub.DownloadRecord) error
}

// SocialStorer defines the like and comment store.
type SocialStorer interface {
	// AddLike records a like. Liking twice returns the existing like.
	AddLike(ctx context.Context, postID, userID string) (tourhub.Like, error)
	// RemoveLike deletes a like and reports whether one existed.
	RemoveLike(ctx context.Context, postID, userID string) (bool, error)
	// LikeCount counts the likes on a post.
	LikeCount(ctx context.Context, postID string) (int, error)
	// IsLiked reports whether a user liked a post.
	IsLiked(ctx context.Context, postID, userID string) (bool, error)
	// AddComment appends a comment to a post.
	AddComment(ctx context.Context, postID, userID, username, text string) (tourhub.Comment, error)
	// Comments returns a post's comments, newest first.
	Comments(ctx context.Context, postID string) ([]tourhub.Comment, error)
}

// Storer bundles both stores behind a single backend.
type Storer interface {
	DownloadStorer
	SocialStorer
	// Close releases the backend.
	Close() error
}

// Interactions assembles the derived social view of a post for a user.
func Interactions(ctx context.Context, s SocialStorer, postID, userID string) (tourhub.Interactions, error) {
	count, err := s.LikeCount(ctx, postID)
	if err != nil {
		return tourhub.Interactions{}, err
	}
	liked, err := s.IsLiked(ctx, postID, userID)
	if err != nil {
		return tourhub.Interactions{}, err
	}
	comments, err := s.Comments(ctx, postID)
	if err != nil {
		return tourhub.Interactions{}, err
	}
	if comments == nil {
		comments = []tourhub.Comment{}
	}
	return tourhub.Interactions{
		LikeCount:    count,
		CommentCount: len(comments),
		IsLiked:      liked,
		Comments:     comments,
	}, nil
}

// DemoRecords returns the records a fresh server is seeded with.
func DemoRecords(now time.Time) []tourhub.DownloadRecord {
	return []tourhub.DownloadRecord{
		{
			ID:          "demo1",
			ImageURL:    "https://images.unsplash.com/photo-1582719508461-905c673771fd?w=800",
			DownloadURL: "https://www.w3.org/WAI/ER/tests/xhtml/testfiles/resources/pdf/dummy.pdf",
			Title:       "Demo PDF File",
			Description: "A sample PDF file for testing downloads",
			CreatedAt:   now,
		},
		{
			ID:          "demo2",
			ImageURL:    "https://images.unsplash.com/photo-1618221195710-dd6b41faaea6?w=800",
			DownloadURL: "https://file-examples.com/storage/feb09a8b8ca567b36948c53/2017/10/file_example_JPG_1MB.jpg",
			Title:       "Sample Image",
			Description: "A sample image for testing cloud downloads",
			CreatedAt:   now,
		},
	}
}
