// Package client drives the tourhub RPC facade and turns download records
// into locally viewable content.
package client

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"slices"
	"sync"

	tourhub "github.com/perpetuallyhorni/tourhub/internal"
	"github.com/perpetuallyhorni/tourhub/pkg/config"
	"github.com/perpetuallyhorni/tourhub/pkg/network"
	"github.com/perpetuallyhorni/tourhub/pkg/ratelimiter"
	"github.com/perpetuallyhorni/tourhub/pkg/rpc"
	"go.uber.org/zap"
)

// Client is the main entry point for working with a tourhub server.
type Client struct {
	cfg     *config.ClientConfig
	rpc     *rpc.Client
	opener  Opener
	logger  *zap.Logger
	clock   tourhub.Clock
	limiter *ratelimiter.RateLimiter
	dlOpt   *tourhub.DownloadOpt

	mu      sync.Mutex
	records []tourhub.DownloadRecord
	states  map[string]*LocalState
	viewers map[string]*Viewer
}

// New creates a new Client. A nil opener selects SystemOpener.
func New(cfg *config.ClientConfig, rpcClient *rpc.Client, opener Opener, logger *zap.Logger) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if rpcClient == nil {
		return nil, fmt.Errorf("rpc client cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	if opener == nil {
		opener = SystemOpener{}
	}

	hc, err := network.NewHTTPClient(cfg.BindAddress)
	if err != nil {
		return nil, fmt.Errorf("failed to set up transfer client: %w", err)
	}

	return &Client{
		cfg:     cfg,
		rpc:     rpcClient,
		opener:  opener,
		logger:  logger,
		clock:   tourhub.RealClock{},
		limiter: ratelimiter.New(config.Duration(cfg.DownloadInterval, 0)),
		dlOpt: (&tourhub.DownloadOpt{
			Client:         tourhub.NewDownloadClient(hc),
			Timeout:        config.Duration(cfg.TransferTimeout, tourhub.DefaultTimeout),
			TimeoutOnError: config.Duration(cfg.RetryDelay, tourhub.DefaultTimeoutOnError),
			Retries:        cfg.Retries,
		}).Defaults(),
		states:  make(map[string]*LocalState),
		viewers: make(map[string]*Viewer),
	}, nil
}

// ProgressCallback defines the function signature for progress reporting.
type ProgressCallback func(current, total int, message string)

// noOpProgress is a default empty progress callback.
func noOpProgress(current, total int, message string) {}

// Close stops any running viewers.
func (c *Client) Close() error {
	c.mu.Lock()
	viewers := c.viewers
	c.viewers = make(map[string]*Viewer)
	c.mu.Unlock()

	var errs []error
	for _, v := range viewers {
		errs = append(errs, v.Close())
	}
	return errors.Join(errs...)
}

// Refresh fetches the server's records and reconciles local state by id.
// State for records that disappeared is dropped; content already on disk
// for records without state is adopted.
func (c *Client) Refresh(ctx context.Context) ([]Item, error) {
	records, err := rpc.Call[[]tourhub.DownloadRecord](ctx, c.rpc, "downloads.getAll", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list downloads: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.records = records
	live := make(map[string]bool, len(records))
	for _, rec := range records {
		live[rec.ID] = true
		if _, ok := c.states[rec.ID]; !ok {
			st := c.adoptLocal(rec)
			c.states[rec.ID] = &st
		}
	}
	for id := range c.states {
		if !live[id] {
			delete(c.states, id)
		}
	}
	return c.itemsLocked(), nil
}

// Items returns the records seen by the last Refresh with their local state.
func (c *Client) Items() []Item {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.itemsLocked()
}

func (c *Client) itemsLocked() []Item {
	items := make([]Item, 0, len(c.records))
	for _, rec := range c.records {
		item := Item{DownloadRecord: rec}
		if st, ok := c.states[rec.ID]; ok {
			item.LocalState = *st
		}
		items = append(items, item)
	}
	return items
}

// Item returns a single record and its state.
func (c *Client) Item(id string) (Item, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := slices.IndexFunc(c.records, func(r tourhub.DownloadRecord) bool { return r.ID == id })
	if i < 0 {
		return Item{}, false
	}
	item := Item{DownloadRecord: c.records[i]}
	if st, ok := c.states[id]; ok {
		item.LocalState = *st
	}
	return item, true
}

// Lookup returns the record with the given id, refreshing once if it is unknown.
func (c *Client) Lookup(ctx context.Context, id string) (Item, error) {
	if item, ok := c.Item(id); ok {
		return item, nil
	}
	if _, err := c.Refresh(ctx); err != nil {
		return Item{}, err
	}
	if item, ok := c.Item(id); ok {
		return item, nil
	}
	return Item{}, fmt.Errorf("download %q: %w", id, tourhub.ErrNotFound)
}

// AddURL registers a new download record on the server.
func (c *Client) AddURL(ctx context.Context, in tourhub.NewDownload) (tourhub.DownloadRecord, error) {
	rec, err := rpc.Mutate[tourhub.DownloadRecord](ctx, c.rpc, "downloads.addUrl", in)
	if err != nil {
		return tourhub.DownloadRecord{}, err
	}
	c.mu.Lock()
	c.records = append(c.records, rec)
	c.states[rec.ID] = &LocalState{}
	c.mu.Unlock()
	c.logger.Info("registered download", zap.String("id", rec.ID))
	return rec, nil
}

// RemoveURL deletes a record on the server, removing its local content first.
func (c *Client) RemoveURL(ctx context.Context, id string) error {
	c.Delete(id)
	if _, err := rpc.Mutate[tourhub.SuccessResult](ctx, c.rpc, "downloads.removeUrl", tourhub.RecordRef{ID: id}); err != nil {
		return err
	}
	c.mu.Lock()
	c.records = slices.DeleteFunc(c.records, func(r tourhub.DownloadRecord) bool { return r.ID == id })
	delete(c.states, id)
	c.mu.Unlock()
	c.logger.Info("removed download", zap.String("id", id))
	return nil
}

// State returns the local state of a record.
func (c *Client) State(id string) LocalState {
	c.mu.Lock()
	defer c.mu.Unlock()
	if st, ok := c.states[id]; ok {
		return *st
	}
	return LocalState{}
}

// update applies fn to a record's state under the lock.
func (c *Client) update(id string, fn func(st *LocalState)) LocalState {
	c.mu.Lock()
	defer c.mu.Unlock()
	st, ok := c.states[id]
	if !ok {
		st = &LocalState{}
		c.states[id] = st
	}
	fn(st)
	return *st
}

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9_-]`)

// scratchName turns a record id into a string safe to use in file names.
func scratchName(id string) string {
	return unsafeNameChars.ReplaceAllString(id, "_")
}

// DownloadsDir is where fetched payloads are written.
func (c *Client) DownloadsDir() string {
	return filepath.Join(c.cfg.ScratchDir, "downloads")
}

// UnzippedDir is where a record's archive is extracted.
func (c *Client) UnzippedDir(id string) string {
	return filepath.Join(c.cfg.ScratchDir, "unzipped_"+scratchName(id))
}
