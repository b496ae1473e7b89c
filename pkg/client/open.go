package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	tourhub "github.com/perpetuallyhorni/tourhub/internal"
	"github.com/pkg/browser"
	"go.uber.org/zap"
)

// Opener hands content to the platform.
type Opener interface {
	// OpenURL opens a web address in the default browser.
	OpenURL(u string) error
	// OpenFile opens a local file with its default application.
	OpenFile(path string) error
}

// SystemOpener opens content with the operating system's handlers.
type SystemOpener struct{}

func (SystemOpener) OpenURL(u string) error     { return browser.OpenURL(u) }
func (SystemOpener) OpenFile(path string) error { return browser.OpenFile(path) }

// Viewer serves a single directory read-only on the loopback interface.
type Viewer struct {
	// URL is the address of the entry point.
	URL string
	// Dir is the directory being served.
	Dir string

	entry string
	srv   *http.Server
	done  chan struct{}
}

// NewViewer starts serving dir on 127.0.0.1 and points URL at entry, a file inside dir.
func NewViewer(dir, entry string, logger *zap.Logger) (*Viewer, error) {
	rel, err := filepath.Rel(dir, entry)
	if err != nil || !filepath.IsLocal(rel) {
		return nil, fmt.Errorf("entry point %s is outside %s", entry, dir)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.StaticFS("/", gin.Dir(dir, false))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("failed to start viewer: %w", err)
	}
	v := &Viewer{
		URL:   "http://" + ln.Addr().String() + "/" + (&url.URL{Path: filepath.ToSlash(rel)}).EscapedPath(),
		Dir:   dir,
		entry: entry,
		srv:   &http.Server{Handler: r, ReadHeaderTimeout: 10 * time.Second},
		done:  make(chan struct{}),
	}
	go func() {
		defer close(v.done)
		if err := v.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("viewer stopped", zap.String("dir", dir), zap.Error(err))
		}
	}()
	logger.Info("viewer started", zap.String("url", v.URL), zap.String("dir", dir))
	return v, nil
}

// Done is closed once the viewer has stopped.
func (v *Viewer) Done() <-chan struct{} {
	return v.done
}

func (v *Viewer) stopped() bool {
	select {
	case <-v.done:
		return true
	default:
		return false
	}
}

// Close stops the viewer.
func (v *Viewer) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return v.srv.Shutdown(ctx)
}

// Open presents a record's content. Extracted archives with an entry point
// are served by a Viewer, which is returned; other content goes to the
// system opener and the returned Viewer is nil.
func (c *Client) Open(ctx context.Context, id string) (*Viewer, error) {
	item, err := c.Lookup(ctx, id)
	if err != nil {
		return nil, err
	}
	st := item.LocalState
	if !st.IsDownloaded {
		return nil, tourhub.NewDownloadError(tourhub.ErrNotDownloaded, id, "", nil)
	}
	logger := c.logger.With(zap.String("id", id))

	if st.Hosted {
		return nil, c.opener.OpenURL(tourhub.NormalizeURL(item.DownloadURL))
	}

	if st.IndexHTMLPath != "" && exists(st.IndexHTMLPath) {
		v, err := c.viewer(id, st.IndexHTMLPath, logger)
		if err != nil {
			return nil, err
		}
		if err := c.opener.OpenURL(v.URL); err != nil {
			logger.Warn("could not open viewer in browser", zap.String("url", v.URL), zap.Error(err))
		}
		return v, nil
	}

	if st.LocalPath != "" && exists(st.LocalPath) {
		return nil, c.opener.OpenFile(st.LocalPath)
	}
	return nil, tourhub.NewDownloadError(tourhub.ErrFileNotFound, id, tourhub.MsgRedownload, nil)
}

// viewer returns the running viewer for id when it still serves entry, and
// otherwise starts a new one in its place.
func (c *Client) viewer(id, entry string, logger *zap.Logger) (*Viewer, error) {
	c.mu.Lock()
	old := c.viewers[id]
	if old != nil && old.entry == entry && !old.stopped() {
		c.mu.Unlock()
		return old, nil
	}
	v, err := NewViewer(filepath.Dir(entry), entry, logger)
	if err == nil {
		c.viewers[id] = v
	}
	c.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if old != nil {
		if err := old.Close(); err != nil {
			logger.Warn("failed to stop viewer", zap.Error(err))
		}
	}
	return v, nil
}

// stopViewer closes the viewer of id, if one is running.
func (c *Client) stopViewer(id string, logger *zap.Logger) {
	c.mu.Lock()
	v := c.viewers[id]
	delete(c.viewers, id)
	c.mu.Unlock()
	if v != nil {
		if err := v.Close(); err != nil {
			logger.Warn("failed to stop viewer", zap.Error(err))
		}
	}
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
