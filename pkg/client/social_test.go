package client

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	tourhub "github.com/perpetuallyhorni/tourhub/internal"
	"github.com/perpetuallyhorni/tourhub/pkg/config"
	"github.com/perpetuallyhorni/tourhub/pkg/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestToggleLikeAgainstServer(t *testing.T) {
	e := newEnv(t, nil)
	ctx := context.Background()

	p, err := e.client.Interactions(ctx, "post-1")
	require.NoError(t, err)
	assert.Equal(t, 0, p.Snapshot().LikeCount)

	in, err := p.ToggleLike(ctx)
	require.NoError(t, err)
	assert.True(t, in.IsLiked)
	assert.Equal(t, 1, in.LikeCount)

	in, err = p.ToggleLike(ctx)
	require.NoError(t, err)
	assert.False(t, in.IsLiked)
	assert.Equal(t, 0, in.LikeCount)

	in, err = p.Comment(ctx, "lovely view")
	require.NoError(t, err)
	require.Len(t, in.Comments, 1)
	assert.Equal(t, "lovely view", in.Comments[0].Text)
	assert.Equal(t, 1, in.CommentCount)
}

// flakyServer serves interactions and fails likePost once its gate is released.
func flakyServer(t *testing.T, likeCount int, gate chan struct{}) *Client {
	t.Helper()
	gin.SetMode(gin.TestMode)
	srv := rpc.NewServer(nil)
	srv.Register(
		rpc.Query("social.getInteractions", func(ctx context.Context, in tourhub.PostRef) (tourhub.Interactions, error) {
			return tourhub.Interactions{LikeCount: likeCount, Comments: []tourhub.Comment{}}, nil
		}),
		rpc.Mutation("social.likePost", func(ctx context.Context, in tourhub.PostRef) (tourhub.LikeResult, error) {
			<-gate
			return tourhub.LikeResult{}, errors.New("store unavailable")
		}),
	)
	ts := httptest.NewServer(rpc.NewEngine(srv, nil, rpc.EngineOptions{}))
	t.Cleanup(ts.Close)

	cfg := config.Default().Client
	cfg.ScratchDir = t.TempDir()
	c, err := New(&cfg, rpc.NewClient(ts.URL+rpc.DefaultPath, nil), &fakeOpener{}, zap.NewNop())
	require.NoError(t, err)
	return c
}

func TestToggleLikeRollsBack(t *testing.T) {
	gate := make(chan struct{})
	c := flakyServer(t, 4, gate)
	ctx := context.Background()

	p, err := c.Interactions(ctx, "post-1")
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := p.ToggleLike(ctx)
		done <- err
	}()

	assert.Eventually(t, func() bool { return p.Snapshot().IsLiked }, time.Second, 5*time.Millisecond,
		"speculative like is visible while the call is in flight")
	assert.Equal(t, 5, p.Snapshot().LikeCount)

	close(gate)
	err = <-done
	require.Error(t, err)
	var rpcErr *rpc.Error
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, rpc.CodeInternal, rpcErr.Code)

	snap := p.Snapshot()
	assert.False(t, snap.IsLiked)
	assert.Equal(t, 4, snap.LikeCount)
}

func TestCommandCenterWrappers(t *testing.T) {
	e := newEnv(t, nil)
	ctx := context.Background()

	notes, err := e.client.Notifications(ctx)
	require.NoError(t, err)
	assert.Len(t, notes, 4)

	slots, err := e.client.Availability(ctx)
	require.NoError(t, err)
	assert.Len(t, slots, tourhub.SlotDays*len(tourhub.SlotTimes))

	_, err = e.client.UpdateProfile(ctx, tourhub.ProfileInput{Name: "A", Email: "bad"})
	assert.ErrorIs(t, err, tourhub.ErrValidation)

	g, err := e.client.Hi(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, "world", g.Hello)
}
