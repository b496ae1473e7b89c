package sqlite

import (
	"context"
	"testing"

	tourhub "github.com/perpetuallyhorni/tourhub/internal"
	"github.com/perpetuallyhorni/tourhub/pkg/storage"
	"github.com/perpetuallyhorni/tourhub/pkg/storage/storagetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDB(t *testing.T) {
	storagetest.Run(t, func(t *testing.T, clock tourhub.Clock, ids tourhub.IDGenerator) storage.Storer {
		db, err := New(clock, ids)
		require.NoError(t, err)
		return db
	})
}

func TestDatabasesAreIsolated(t *testing.T) {
	ctx := context.Background()
	a, err := New(nil, nil)
	require.NoError(t, err)
	defer func() { _ = a.Close() }()
	b, err := New(nil, nil)
	require.NoError(t, err)
	defer func() { _ = b.Close() }()

	_, err = a.Add(ctx, tourhub.NewDownload{ImageURL: "https://a/i", DownloadURL: "https://a/d"})
	require.NoError(t, err)

	all, err := b.All(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}
