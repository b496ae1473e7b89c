package api

import (
	"context"

	tourhub "github.com/perpetuallyhorni/tourhub/internal"
	"github.com/perpetuallyhorni/tourhub/pkg/rpc"
	"github.com/perpetuallyhorni/tourhub/pkg/storage"
)

func (r *Router) getInteractions(ctx context.Context, in tourhub.PostRef) (tourhub.Interactions, error) {
	return storage.Interactions(ctx, r.store, in.PostID, rpc.Actor(ctx))
}

func (r *Router) likePost(ctx context.Context, in tourhub.PostRef) (tourhub.LikeResult, error) {
	actor := rpc.Actor(ctx)
	if _, err := r.store.AddLike(ctx, in.PostID, actor); err != nil {
		return tourhub.LikeResult{}, err
	}
	count, err := r.store.LikeCount(ctx, in.PostID)
	if err != nil {
		return tourhub.LikeResult{}, err
	}
	return tourhub.LikeResult{Success: true, LikeCount: count, IsLiked: true}, nil
}

// unlikePost reports success only when a like was actually removed.
func (r *Router) unlikePost(ctx context.Context, in tourhub.PostRef) (tourhub.LikeResult, error) {
	removed, err := r.store.RemoveLike(ctx, in.PostID, rpc.Actor(ctx))
	if err != nil {
		return tourhub.LikeResult{}, err
	}
	count, err := r.store.LikeCount(ctx, in.PostID)
	if err != nil {
		return tourhub.LikeResult{}, err
	}
	return tourhub.LikeResult{Success: removed, LikeCount: count, IsLiked: false}, nil
}

func (r *Router) addComment(ctx context.Context, in tourhub.NewComment) (tourhub.CommentResult, error) {
	actor := rpc.Actor(ctx)
	username := actor
	if actor == tourhub.AnonymousUserID {
		username = tourhub.AnonymousUsername
	}
	c, err := r.store.AddComment(ctx, in.PostID, actor, username, in.Text)
	if err != nil {
		return tourhub.CommentResult{}, err
	}
	comments, err := r.store.Comments(ctx, in.PostID)
	if err != nil {
		return tourhub.CommentResult{}, err
	}
	return tourhub.CommentResult{Success: true, Comment: c, CommentCount: len(comments)}, nil
}
