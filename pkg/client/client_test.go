package client

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	tourhub "github.com/perpetuallyhorni/tourhub/internal"
	"github.com/perpetuallyhorni/tourhub/internal/testutil"
	"github.com/perpetuallyhorni/tourhub/pkg/api"
	"github.com/perpetuallyhorni/tourhub/pkg/config"
	"github.com/perpetuallyhorni/tourhub/pkg/rpc"
	"github.com/perpetuallyhorni/tourhub/pkg/storage/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeOpener struct {
	mu    sync.Mutex
	urls  []string
	files []string
	err   error
}

func (o *fakeOpener) OpenURL(u string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.urls = append(o.urls, u)
	return o.err
}

func (o *fakeOpener) OpenFile(path string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.files = append(o.files, path)
	return o.err
}

type env struct {
	client *Client
	opener *fakeOpener
	cfg    *config.ClientConfig
	files  *httptest.Server
	rpcURL string
}

func zipBytes(t *testing.T, entries map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range entries {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = io.WriteString(w, content)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

// newEnv starts a tourhub server and a file host serving payloads by path.
func newEnv(t *testing.T, payloads map[string][]byte) *env {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := memory.New(testutil.FixedClock(), testutil.NewStubIDGenerator())
	router := api.NewRouter(store, api.Options{Clock: testutil.FixedClock()})
	apiSrv := httptest.NewServer(router.Handler(rpc.EngineOptions{}))
	t.Cleanup(apiSrv.Close)

	files := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := payloads[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(body)
	}))
	t.Cleanup(files.Close)

	cfg := config.Default().Client
	cfg.ScratchDir = t.TempDir()
	cfg.MinFreeBytes = 0
	cfg.TransferTimeout = "5s"
	cfg.RetryDelay = "10ms"

	e := &env{opener: &fakeOpener{}, cfg: &cfg, files: files, rpcURL: apiSrv.URL + rpc.DefaultPath}
	e.client = e.newClient(t)
	return e
}

func (e *env) newClient(t *testing.T) *Client {
	t.Helper()
	c, err := New(e.cfg, rpc.NewClient(e.rpcURL, nil), e.opener, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func (e *env) add(t *testing.T, path string) tourhub.DownloadRecord {
	t.Helper()
	rec, err := e.client.AddURL(context.Background(), tourhub.NewDownload{
		ImageURL:    "https://img.example.com/preview.jpg",
		DownloadURL: e.files.URL + path,
	})
	require.NoError(t, err)
	return rec
}

func scratchFiles(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestNewRequiresDependencies(t *testing.T) {
	cfg := config.Default().Client
	_, err := New(nil, rpc.NewClient("http://x", nil), nil, zap.NewNop())
	assert.Error(t, err)
	_, err = New(&cfg, nil, nil, zap.NewNop())
	assert.Error(t, err)
	_, err = New(&cfg, rpc.NewClient("http://x", nil), nil, nil)
	assert.Error(t, err)
}

func TestDownloadArchiveAndView(t *testing.T) {
	archive := zipBytes(t, map[string]string{
		"tour/index.html":     "<html><body>welcome to the tour</body></html>",
		"tour/assets/pano.js": strings.Repeat("x", 500),
	})
	e := newEnv(t, map[string][]byte{"/tour.ZIP": archive})
	rec := e.add(t, "/tour.ZIP")

	var checkpoints []int
	st, err := e.client.Download(context.Background(), rec, func(current, total int, _ string) {
		assert.Equal(t, 100, total)
		checkpoints = append(checkpoints, current)
	})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 5, 10, 70, 80, 85, 95, 100}, checkpoints)

	assert.Equal(t, StatusDownloaded, st.Status)
	assert.True(t, st.IsDownloaded)
	assert.True(t, st.IsZip)
	assert.FileExists(t, st.LocalPath)
	assert.True(t, strings.HasPrefix(filepath.Base(st.LocalPath), "download_id-1_"))
	assert.True(t, strings.HasSuffix(st.LocalPath, ".zip"))
	assert.Equal(t, filepath.Join(e.client.UnzippedDir(rec.ID), "tour", "index.html"), st.IndexHTMLPath)
	assert.Equal(t, filepath.Dir(st.IndexHTMLPath), st.UnzippedPath)

	viewer, err := e.client.Open(context.Background(), rec.ID)
	require.NoError(t, err)
	require.NotNil(t, viewer)
	assert.Equal(t, []string{viewer.URL}, e.opener.urls)

	resp, err := http.Get(viewer.URL)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Contains(t, string(body), "welcome to the tour")

	again, err := e.client.Open(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Same(t, viewer, again, "a running viewer is reused")
}

func TestDownloadLoginPageIsRejected(t *testing.T) {
	page := []byte("<!DOCTYPE html><html>login</html>")
	require.Less(t, len(page), 100)
	e := newEnv(t, map[string][]byte{"/share": page})
	rec := e.add(t, "/share")

	st, err := e.client.Download(context.Background(), rec, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, tourhub.ErrContentInvalid)
	assert.Contains(t, err.Error(), "publicly accessible")
	assert.False(t, st.IsDownloaded)
	assert.Equal(t, StatusFailed, st.Status)
	assert.Equal(t, err.Error(), st.LastError)
	assert.Empty(t, scratchFiles(t, e.client.DownloadsDir()), "invalid payloads are deleted")
}

func TestDownloadTinyNonHTML(t *testing.T) {
	e := newEnv(t, map[string][]byte{"/tiny": []byte("short")})
	rec := e.add(t, "/tiny")
	_, err := e.client.Download(context.Background(), rec, nil)
	assert.ErrorIs(t, err, tourhub.ErrContentInvalid)
	assert.Equal(t, tourhub.MsgNotAFile, err.Error())
}

func TestDownloadThenDelete(t *testing.T) {
	e := newEnv(t, map[string][]byte{"/doc.pdf": bytes.Repeat([]byte("%PDF"), 64)})
	rec := e.add(t, "/doc.pdf")

	st, err := e.client.Download(context.Background(), rec, nil)
	require.NoError(t, err)
	require.True(t, st.IsDownloaded)
	assert.False(t, st.IsZip)
	assert.True(t, strings.HasSuffix(st.LocalPath, ".file"))
	assert.Empty(t, st.IndexHTMLPath)

	viewer, err := e.client.Open(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Nil(t, viewer)
	assert.Equal(t, []string{st.LocalPath}, e.opener.files)

	cleared := e.client.Delete(rec.ID)
	assert.NoFileExists(t, st.LocalPath)
	assert.Equal(t, LocalState{}, cleared)
	assert.Equal(t, LocalState{}, e.client.State(rec.ID))
}

func TestDownloadTransportErrors(t *testing.T) {
	e := newEnv(t, nil)
	rec := e.add(t, "/missing.zip")

	st, err := e.client.Download(context.Background(), rec, nil)
	assert.ErrorIs(t, err, tourhub.ErrTransport)
	assert.Equal(t, tourhub.MsgMissing, err.Error())
	assert.Equal(t, StatusFailed, st.Status)

	// A failed record can be retried.
	_, err = e.client.Download(context.Background(), rec, nil)
	assert.ErrorIs(t, err, tourhub.ErrTransport)
}

func TestDownloadCorruptArchiveKeepsRawFile(t *testing.T) {
	e := newEnv(t, map[string][]byte{"/broken.zip": bytes.Repeat([]byte("not a zip "), 30)})
	rec := e.add(t, "/broken.zip")

	st, err := e.client.Download(context.Background(), rec, nil)
	assert.ErrorIs(t, err, tourhub.ErrExtraction)
	assert.True(t, st.IsDownloaded)
	assert.Equal(t, StatusDownloaded, st.Status)
	assert.FileExists(t, st.LocalPath)
	assert.Empty(t, st.IndexHTMLPath)

	_, err = e.client.Open(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{st.LocalPath}, e.opener.files)
}

func TestDownloadHostedHandsOff(t *testing.T) {
	e := newEnv(t, nil)
	e.cfg.Hosted = true
	rec, err := e.client.AddURL(context.Background(), tourhub.NewDownload{
		ImageURL:    "https://img.example.com/p.jpg",
		DownloadURL: "https://www.dropbox.com/s/abc/tour.zip?dl=0",
	})
	require.NoError(t, err)

	st, err := e.client.Download(context.Background(), rec, nil)
	require.NoError(t, err)
	assert.True(t, st.IsDownloaded)
	assert.True(t, st.Hosted)
	assert.True(t, st.IsZip)
	assert.Empty(t, st.LocalPath)
	assert.Equal(t, []string{"https://dl.dropboxusercontent.com/s/abc/tour.zip?raw=1"}, e.opener.urls)
}

func TestDownloadUnwritableScratchHandsOff(t *testing.T) {
	e := newEnv(t, map[string][]byte{"/doc.pdf": bytes.Repeat([]byte("a"), 200)})
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("file, not dir"), 0600))
	e.cfg.ScratchDir = filepath.Join(blocker, "scratch")
	rec := e.add(t, "/doc.pdf")

	st, err := e.client.Download(context.Background(), rec, nil)
	require.NoError(t, err)
	assert.True(t, st.Hosted)
	assert.Len(t, e.opener.urls, 1)
}

func TestDownloadDiskSpace(t *testing.T) {
	e := newEnv(t, map[string][]byte{"/doc.pdf": bytes.Repeat([]byte("a"), 200)})
	e.cfg.MinFreeBytes = math.MaxUint64
	rec := e.add(t, "/doc.pdf")

	_, err := e.client.Download(context.Background(), rec, nil)
	assert.ErrorIs(t, err, tourhub.ErrDiskSpace)
}

func TestDownloadInProgress(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	e := newEnv(t, nil)
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		<-release
		_, _ = w.Write(bytes.Repeat([]byte("a"), 200))
	}))
	defer slow.Close()

	rec, err := e.client.AddURL(context.Background(), tourhub.NewDownload{
		ImageURL:    "https://img.example.com/p.jpg",
		DownloadURL: slow.URL + "/slow.bin",
	})
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := e.client.Download(context.Background(), rec, nil)
		done <- err
	}()
	<-started
	assert.True(t, e.client.State(rec.ID).Status.Busy())

	_, err = e.client.Download(context.Background(), rec, nil)
	assert.ErrorIs(t, err, tourhub.ErrInProgress)

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, StatusDownloaded, e.client.State(rec.ID).Status)
}

func TestDownloadCancelled(t *testing.T) {
	e := newEnv(t, nil)
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer slow.Close()
	rec, err := e.client.AddURL(context.Background(), tourhub.NewDownload{
		ImageURL:    "https://img.example.com/p.jpg",
		DownloadURL: slow.URL + "/never",
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	st, err := e.client.Download(ctx, rec, nil)
	assert.ErrorIs(t, err, tourhub.ErrTransport)
	assert.Equal(t, StatusFailed, st.Status)
}

func TestOpenErrors(t *testing.T) {
	e := newEnv(t, map[string][]byte{"/doc.pdf": bytes.Repeat([]byte("a"), 200)})
	rec := e.add(t, "/doc.pdf")

	_, err := e.client.Open(context.Background(), rec.ID)
	assert.ErrorIs(t, err, tourhub.ErrNotDownloaded)

	st, err := e.client.Download(context.Background(), rec, nil)
	require.NoError(t, err)
	require.NoError(t, os.Remove(st.LocalPath))

	_, err = e.client.Open(context.Background(), rec.ID)
	assert.ErrorIs(t, err, tourhub.ErrFileNotFound)
	assert.Equal(t, tourhub.MsgRedownload, err.Error())

	_, err = e.client.Open(context.Background(), "nope")
	assert.ErrorIs(t, err, tourhub.ErrNotFound)
}

func TestRefreshAdoptsExistingContent(t *testing.T) {
	archive := zipBytes(t, map[string]string{"index.html": "<html>tour</html>" + strings.Repeat(" ", 100)})
	e := newEnv(t, map[string][]byte{"/t.zip": archive})
	rec := e.add(t, "/t.zip")
	first, err := e.client.Download(context.Background(), rec, nil)
	require.NoError(t, err)

	fresh := e.newClient(t)
	items, err := fresh.Refresh(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.True(t, items[0].IsDownloaded)
	assert.Equal(t, first.LocalPath, items[0].LocalPath)
	assert.Equal(t, first.IndexHTMLPath, items[0].IndexHTMLPath)
}

func TestRefreshDropsVanishedRecords(t *testing.T) {
	e := newEnv(t, nil)
	rec := e.add(t, "/x")

	other := e.newClient(t)
	_, err := other.Refresh(context.Background())
	require.NoError(t, err)
	require.NoError(t, other.RemoveURL(context.Background(), rec.ID))

	items, err := e.client.Refresh(context.Background())
	require.NoError(t, err)
	assert.Empty(t, items)
	_, ok := e.client.Item(rec.ID)
	assert.False(t, ok)
}

func TestRemoveURLMissing(t *testing.T) {
	e := newEnv(t, nil)
	err := e.client.RemoveURL(context.Background(), "ghost")
	assert.ErrorIs(t, err, tourhub.ErrNotFound)
}

func TestScratchName(t *testing.T) {
	assert.Equal(t, "demo1", scratchName("demo1"))
	assert.Equal(t, "___etc_passwd", scratchName("../etc/passwd"))
}

func TestRedownloadThenDeleteLeavesNothing(t *testing.T) {
	e := newEnv(t, map[string][]byte{"/doc.pdf": bytes.Repeat([]byte("%PDF"), 64)})
	clock := testutil.NewStubClock(time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC))
	e.client.clock = clock
	rec := e.add(t, "/doc.pdf")

	first, err := e.client.Download(context.Background(), rec, nil)
	require.NoError(t, err)
	clock.Advance(time.Second)
	second, err := e.client.Download(context.Background(), rec, nil)
	require.NoError(t, err)
	require.NotEqual(t, first.LocalPath, second.LocalPath)
	assert.NoFileExists(t, first.LocalPath)
	assert.Equal(t, []string{filepath.Base(second.LocalPath)}, scratchFiles(t, e.client.DownloadsDir()))

	// Left behind by an interrupted run.
	stray := filepath.Join(e.client.DownloadsDir(), "download_id-1_1.file")
	require.NoError(t, os.WriteFile(stray, bytes.Repeat([]byte("a"), 200), 0600))

	e.client.Delete(rec.ID)
	assert.Empty(t, scratchFiles(t, e.client.DownloadsDir()))

	items, err := e.newClient(t).Refresh(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.False(t, items[0].IsDownloaded)
	assert.Empty(t, items[0].LocalPath)
}

func TestRedownloadRestartsViewer(t *testing.T) {
	pad := strings.Repeat(" ", 100)
	var mu sync.Mutex
	archive := zipBytes(t, map[string]string{"a/index.html": "<html>first tour</html>" + pad})
	host := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		body := archive
		mu.Unlock()
		_, _ = w.Write(body)
	}))
	defer host.Close()

	e := newEnv(t, nil)
	rec, err := e.client.AddURL(context.Background(), tourhub.NewDownload{
		ImageURL:    "https://img.example.com/p.jpg",
		DownloadURL: host.URL + "/tour.zip",
	})
	require.NoError(t, err)

	_, err = e.client.Download(context.Background(), rec, nil)
	require.NoError(t, err)
	first, err := e.client.Open(context.Background(), rec.ID)
	require.NoError(t, err)
	require.NotNil(t, first)

	next := zipBytes(t, map[string]string{"b/index.html": "<html>second tour</html>" + pad})
	mu.Lock()
	archive = next
	mu.Unlock()
	_, err = e.client.Download(context.Background(), rec, nil)
	require.NoError(t, err)

	select {
	case <-first.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("viewer of replaced content still running")
	}

	second, err := e.client.Open(context.Background(), rec.ID)
	require.NoError(t, err)
	require.NotNil(t, second)
	assert.NotSame(t, first, second)
	assert.Equal(t, filepath.Join(e.client.UnzippedDir(rec.ID), "b"), second.Dir)

	resp, err := http.Get(second.URL)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "second tour")
}

func TestOpenReplacesStoppedViewer(t *testing.T) {
	archive := zipBytes(t, map[string]string{"index.html": "<html>tour</html>" + strings.Repeat(" ", 100)})
	e := newEnv(t, map[string][]byte{"/t.zip": archive})
	rec := e.add(t, "/t.zip")
	_, err := e.client.Download(context.Background(), rec, nil)
	require.NoError(t, err)

	first, err := e.client.Open(context.Background(), rec.ID)
	require.NoError(t, err)
	require.NoError(t, first.Close())
	<-first.Done()

	second, err := e.client.Open(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.NotSame(t, first, second)
}

func TestConcurrentOpenSharesViewer(t *testing.T) {
	archive := zipBytes(t, map[string]string{"index.html": "<html>tour</html>" + strings.Repeat(" ", 100)})
	e := newEnv(t, map[string][]byte{"/t.zip": archive})
	rec := e.add(t, "/t.zip")
	_, err := e.client.Download(context.Background(), rec, nil)
	require.NoError(t, err)

	viewers := make([]*Viewer, 8)
	var wg sync.WaitGroup
	for i := range viewers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := e.client.Open(context.Background(), rec.ID)
			assert.NoError(t, err)
			viewers[i] = v
		}(i)
	}
	wg.Wait()

	for _, v := range viewers[1:] {
		assert.Same(t, viewers[0], v)
	}
	e.client.mu.Lock()
	assert.Len(t, e.client.viewers, 1)
	e.client.mu.Unlock()
}

func TestCancelledExtractionLeavesNothingToAdopt(t *testing.T) {
	archive := zipBytes(t, map[string]string{"index.html": "<html>tour</html>" + strings.Repeat(" ", 100)})
	e := newEnv(t, map[string][]byte{"/t.zip": archive})
	rec := e.add(t, "/t.zip")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	st, err := e.client.Download(ctx, rec, func(current, _ int, _ string) {
		if current == progressExtracting {
			cancel()
		}
	})
	assert.ErrorIs(t, err, tourhub.ErrTransport)
	assert.Equal(t, StatusFailed, st.Status)
	assert.Empty(t, scratchFiles(t, e.client.DownloadsDir()))
	assert.NoDirExists(t, e.client.UnzippedDir(rec.ID))

	items, err := e.newClient(t).Refresh(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.False(t, items[0].IsDownloaded)
}
