package api

import (
	"context"
	"fmt"

	tourhub "github.com/perpetuallyhorni/tourhub/internal"
	"github.com/perpetuallyhorni/tourhub/pkg/storage"
	"github.com/perpetuallyhorni/tourhub/pkg/storage/memory"
	"github.com/perpetuallyhorni/tourhub/pkg/storage/sqlite"
)

// Store backends selectable by name.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
)

// OpenStore opens the named backend, seeding it with the demo records when seed is set.
func OpenStore(ctx context.Context, backend string, seed bool, clock tourhub.Clock, ids tourhub.IDGenerator) (storage.Storer, error) {
	var store storage.Storer
	switch backend {
	case "", BackendMemory:
		store = memory.New(clock, ids)
	case BackendSQLite:
		db, err := sqlite.New(clock, ids)
		if err != nil {
			return nil, err
		}
		store = db
	default:
		return nil, fmt.Errorf("unknown store backend %q", backend)
	}

	if seed {
		if clock == nil {
			clock = tourhub.RealClock{}
		}
		if err := store.Seed(ctx, storage.DemoRecords(clock.Now())...); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("failed to seed store: %w", err)
		}
	}
	return store, nil
}
