package client

import (
	"context"
	"sync"

	tourhub "github.com/perpetuallyhorni/tourhub/internal"
	"github.com/perpetuallyhorni/tourhub/pkg/rpc"
	"go.uber.org/zap"
)

// GetInteractions fetches the social view of a post.
func (c *Client) GetInteractions(ctx context.Context, postID string) (tourhub.Interactions, error) {
	return rpc.Call[tourhub.Interactions](ctx, c.rpc, "social.getInteractions", tourhub.PostRef{PostID: postID})
}

// Like likes a post.
func (c *Client) Like(ctx context.Context, postID string) (tourhub.LikeResult, error) {
	return rpc.Mutate[tourhub.LikeResult](ctx, c.rpc, "social.likePost", tourhub.PostRef{PostID: postID})
}

// Unlike removes the caller's like from a post.
func (c *Client) Unlike(ctx context.Context, postID string) (tourhub.LikeResult, error) {
	return rpc.Mutate[tourhub.LikeResult](ctx, c.rpc, "social.unlikePost", tourhub.PostRef{PostID: postID})
}

// AddComment comments on a post.
func (c *Client) AddComment(ctx context.Context, postID, text string) (tourhub.CommentResult, error) {
	return rpc.Mutate[tourhub.CommentResult](ctx, c.rpc, "social.addComment", tourhub.NewComment{PostID: postID, Text: text})
}

// Interactions tracks a post's social state with optimistic like toggling.
// Snapshot may be read at any time; toggles run one at a time.
type Interactions struct {
	c      *Client
	postID string

	op sync.Mutex // serializes mutations

	mu        sync.Mutex
	confirmed tourhub.Interactions
	current   tourhub.Interactions
}

// Interactions loads the social state of a post.
func (c *Client) Interactions(ctx context.Context, postID string) (*Interactions, error) {
	p := &Interactions{c: c, postID: postID}
	if err := p.Refresh(ctx); err != nil {
		return nil, err
	}
	return p, nil
}

// Snapshot returns the state as currently displayed, speculative changes included.
func (p *Interactions) Snapshot() tourhub.Interactions {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// Refresh replaces local state with the server's.
func (p *Interactions) Refresh(ctx context.Context) error {
	in, err := p.c.GetInteractions(ctx, p.postID)
	if err != nil {
		return err
	}
	p.mu.Lock()
	p.confirmed, p.current = in, in
	p.mu.Unlock()
	return nil
}

// ToggleLike flips the caller's like. The change is applied locally before the
// server confirms it and rolled back if the call fails.
func (p *Interactions) ToggleLike(ctx context.Context) (tourhub.Interactions, error) {
	p.op.Lock()
	defer p.op.Unlock()

	p.mu.Lock()
	liking := !p.current.IsLiked
	p.current.IsLiked = liking
	if liking {
		p.current.LikeCount++
	} else if p.current.LikeCount > 0 {
		p.current.LikeCount--
	}
	p.mu.Unlock()

	var res tourhub.LikeResult
	var err error
	if liking {
		res, err = p.c.Like(ctx, p.postID)
	} else {
		res, err = p.c.Unlike(ctx, p.postID)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if err != nil {
		p.c.logger.Warn("like toggle failed, rolling back", zap.String("post", p.postID), zap.Error(err))
		p.current = p.confirmed
		return p.current, err
	}
	p.current.LikeCount = res.LikeCount
	p.current.IsLiked = res.IsLiked
	p.confirmed = p.current
	return p.current, nil
}

// Comment adds a comment and prepends it to the local list.
func (p *Interactions) Comment(ctx context.Context, text string) (tourhub.Interactions, error) {
	p.op.Lock()
	defer p.op.Unlock()

	res, err := p.c.AddComment(ctx, p.postID, text)
	if err != nil {
		return p.Snapshot(), err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current.Comments = append([]tourhub.Comment{res.Comment}, p.current.Comments...)
	p.current.CommentCount = res.CommentCount
	p.confirmed = p.current
	return p.current, nil
}
