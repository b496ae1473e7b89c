// Package storagetest holds behaviour tests shared by every storage backend.
package storagetest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	tourhub "github.com/perpetuallyhorni/tourhub/internal"
	"github.com/perpetuallyhorni/tourhub/internal/testutil"
	"github.com/perpetuallyhorni/tourhub/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory opens a fresh, empty backend using the given clock and id generator.
type Factory func(t *testing.T, clock tourhub.Clock, ids tourhub.IDGenerator) storage.Storer

// Run exercises a backend against the storage contract.
func Run(t *testing.T, open Factory) {
	tests := []struct {
		name string
		fn   func(t *testing.T, s storage.Storer, clock *testutil.StubClock)
	}{
		{"AddThenAll", testAddThenAll},
		{"RemoveMissing", testRemoveMissing},
		{"RemoveExisting", testRemoveExisting},
		{"SeedReplaces", testSeedReplaces},
		{"LikeIdempotent", testLikeIdempotent},
		{"UnlikeWithoutLike", testUnlikeWithoutLike},
		{"CommentsNewestFirst", testCommentsNewestFirst},
		{"CommentsSameInstant", testCommentsSameInstant},
		{"Interactions", testInteractions},
		{"ConcurrentLikes", testConcurrentLikes},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock := testutil.FixedClock()
			s := open(t, clock, testutil.NewStubIDGenerator())
			t.Cleanup(func() { _ = s.Close() })
			tt.fn(t, s, clock)
		})
	}
}

func testAddThenAll(t *testing.T, s storage.Storer, clock *testutil.StubClock) {
	ctx := context.Background()
	in := tourhub.NewDownload{
		ImageURL:    "https://img.example.com/a.jpg",
		DownloadURL: "https://files.example.com/tour.zip",
		Title:       "Tour",
	}
	rec, err := s.Add(ctx, in)
	require.NoError(t, err)
	assert.NotEmpty(t, rec.ID)
	assert.True(t, rec.CreatedAt.Equal(clock.Now()))

	second, err := s.Add(ctx, in)
	require.NoError(t, err)
	assert.NotEqual(t, rec.ID, second.ID)

	all, err := s.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, rec.ID, all[0].ID)
	assert.Equal(t, in.DownloadURL, all[0].DownloadURL)
	assert.Equal(t, in.Title, all[0].Title)
	assert.Empty(t, all[0].Description)

	got, err := s.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.ImageURL, got.ImageURL)
}

func testRemoveMissing(t *testing.T, s storage.Storer, _ *testutil.StubClock) {
	ctx := context.Background()
	_, err := s.Add(ctx, tourhub.NewDownload{ImageURL: "https://a/i", DownloadURL: "https://a/d"})
	require.NoError(t, err)

	err = s.Remove(ctx, "missing")
	assert.ErrorIs(t, err, tourhub.ErrNotFound)

	all, err := s.All(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	_, err = s.Get(ctx, "missing")
	assert.ErrorIs(t, err, tourhub.ErrNotFound)
}

func testRemoveExisting(t *testing.T, s storage.Storer, _ *testutil.StubClock) {
	ctx := context.Background()
	rec, err := s.Add(ctx, tourhub.NewDownload{ImageURL: "https://a/i", DownloadURL: "https://a/d"})
	require.NoError(t, err)
	require.NoError(t, s.Remove(ctx, rec.ID))

	all, err := s.All(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
	assert.ErrorIs(t, s.Remove(ctx, rec.ID), tourhub.ErrNotFound)
}

func testSeedReplaces(t *testing.T, s storage.Storer, clock *testutil.StubClock) {
	ctx := context.Background()
	demo := storage.DemoRecords(clock.Now())
	require.NoError(t, s.Seed(ctx, demo...))
	require.NoError(t, s.Seed(ctx, demo...))

	all, err := s.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, len(demo))
	assert.Equal(t, "demo1", all[0].ID)
	assert.Equal(t, "demo2", all[1].ID)
}

func testLikeIdempotent(t *testing.T, s storage.Storer, _ *testutil.StubClock) {
	ctx := context.Background()
	first, err := s.AddLike(ctx, "p1", "u1")
	require.NoError(t, err)
	second, err := s.AddLike(ctx, "p1", "u1")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	n, err := s.LikeCount(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	liked, err := s.IsLiked(ctx, "p1", "u1")
	require.NoError(t, err)
	assert.True(t, liked)
}

func testUnlikeWithoutLike(t *testing.T, s storage.Storer, _ *testutil.StubClock) {
	ctx := context.Background()
	removed, err := s.RemoveLike(ctx, "p1", "u1")
	require.NoError(t, err)
	assert.False(t, removed)

	_, err = s.AddLike(ctx, "p1", "u1")
	require.NoError(t, err)
	removed, err = s.RemoveLike(ctx, "p1", "u1")
	require.NoError(t, err)
	assert.True(t, removed)

	liked, err := s.IsLiked(ctx, "p1", "u1")
	require.NoError(t, err)
	assert.False(t, liked)
}

func testCommentsNewestFirst(t *testing.T, s storage.Storer, clock *testutil.StubClock) {
	ctx := context.Background()
	for i := 1; i <= 3; i++ {
		_, err := s.AddComment(ctx, "p1", "u1", "User", fmt.Sprintf("comment %d", i))
		require.NoError(t, err)
		clock.Advance(time.Minute)
	}
	_, err := s.AddComment(ctx, "other", "u1", "User", "elsewhere")
	require.NoError(t, err)

	comments, err := s.Comments(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, comments, 3)
	assert.Equal(t, "comment 3", comments[0].Text)
	assert.Equal(t, "comment 1", comments[2].Text)
}

func testCommentsSameInstant(t *testing.T, s storage.Storer, _ *testutil.StubClock) {
	ctx := context.Background()
	for _, text := range []string{"a", "b", "c"} {
		_, err := s.AddComment(ctx, "p1", "u1", "User", text)
		require.NoError(t, err)
	}
	comments, err := s.Comments(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, comments, 3)
	assert.Equal(t, []string{"c", "b", "a"}, []string{comments[0].Text, comments[1].Text, comments[2].Text})
}

func testInteractions(t *testing.T, s storage.Storer, _ *testutil.StubClock) {
	ctx := context.Background()
	_, err := s.AddLike(ctx, "p1", "u1")
	require.NoError(t, err)
	_, err = s.AddLike(ctx, "p1", "u2")
	require.NoError(t, err)
	_, err = s.AddComment(ctx, "p1", "u2", "Two", "nice")
	require.NoError(t, err)

	got, err := storage.Interactions(ctx, s, "p1", "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, got.LikeCount)
	assert.Equal(t, 1, got.CommentCount)
	assert.True(t, got.IsLiked)
	require.Len(t, got.Comments, 1)
	assert.Equal(t, "Two", got.Comments[0].Username)

	empty, err := storage.Interactions(ctx, s, "nobody", "u1")
	require.NoError(t, err)
	assert.NotNil(t, empty.Comments)
	assert.Zero(t, empty.LikeCount)
}

func testConcurrentLikes(t *testing.T, s storage.Storer, _ *testutil.StubClock) {
	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.AddLike(ctx, "p1", fmt.Sprintf("u%d", i%5))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	n, err := s.LikeCount(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 5, n)
}
