package cmd

import (
	"archive/zip"
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	tourhub "github.com/perpetuallyhorni/tourhub/internal"
	"github.com/perpetuallyhorni/tourhub/internal/testutil"
	"github.com/perpetuallyhorni/tourhub/pkg/api"
	"github.com/perpetuallyhorni/tourhub/pkg/client"
	"github.com/perpetuallyhorni/tourhub/pkg/rpc"
	"github.com/perpetuallyhorni/tourhub/pkg/storage/memory"
	"github.com/perpetuallyhorni/tourhub/tools/tourhub/internal/cli"
	cliconfig "github.com/perpetuallyhorni/tourhub/tools/tourhub/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setup points the package globals at a fresh server and returns the
// console buffer and the file host.
func setup(t *testing.T, payloads map[string][]byte) (*bytes.Buffer, *httptest.Server) {
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

	cfg = cliconfig.Default()
	cfg.Client.ServerURL = apiSrv.URL
	cfg.Client.ScratchDir = t.TempDir()
	cfg.Client.MinFreeBytes = 0
	cfg.Client.TransferTimeout = "5s"
	cfg.Actor = "user-1"

	var err error
	appClient, err = newAppClient(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = appClient.Close() })

	var buf bytes.Buffer
	console = cli.NewWriter(&buf, false)
	return &buf, files
}

// run executes a command's RunE with its output captured. Flags left over
// from earlier runs are reset first.
func run(t *testing.T, c *cobra.Command, args ...string) (string, error) {
	t.Helper()
	c.Flags().VisitAll(func(f *pflag.Flag) {
		require.NoError(t, f.Value.Set(f.DefValue))
		f.Changed = false
	})
	var out bytes.Buffer
	c.SetOut(&out)
	c.SetContext(context.Background())
	require.NoError(t, c.ParseFlags(args))
	err := c.RunE(c, c.Flags().Args())
	return out.String(), err
}

func tourZip(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range map[string]string{
		"tour/index.html":      "<html><body>tour</body></html>",
		"tour/assets/pano.jpg": "jpeg",
	} {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = io.WriteString(w, content)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestAddListDownloadTree(t *testing.T) {
	buf, files := setup(t, map[string][]byte{"/tour.zip": tourZip(t)})

	_, err := run(t, addCmd, files.URL+"/tour.zip", "--image", "https://img.example.com/a.jpg", "--title", "Loft")
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Added id-1 (Loft)")

	out, err := run(t, listCmd)
	require.NoError(t, err)
	assert.Contains(t, out, "id-1")
	assert.Contains(t, out, "not downloaded")

	_, err = run(t, downloadCmd, "id-1")
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "tour ready at")

	out, err = run(t, treeCmd, "id-1")
	require.NoError(t, err)
	assert.Contains(t, out, "* index.html")
	assert.Contains(t, out, "pano.jpg")

	_, err = run(t, deleteCmd, "id-1")
	require.NoError(t, err)
	item, ok := appClient.Item("id-1")
	require.True(t, ok)
	assert.False(t, item.IsDownloaded)
}

func TestAddRejectsInvalidInput(t *testing.T) {
	buf, _ := setup(t, nil)

	_, err := run(t, addCmd, "not a url", "--image", "")
	assert.Error(t, err)
	assert.Contains(t, buf.String(), "downloadUrl must be a valid URL")
	assert.Contains(t, buf.String(), "imageUrl is required")
}

func TestAddFromFile(t *testing.T) {
	buf, files := setup(t, nil)
	path := filepath.Join(t.TempDir(), "links.txt")
	require.NoError(t, os.WriteFile(path, []byte(
		"# tours\n"+files.URL+"/a.zip https://img.example.com/a.jpg Sea view\n\n"+
			files.URL+"/b.pdf https://img.example.com/b.jpg\n"), 0600))

	_, err := run(t, addCmd, "--from-file", path)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Added id-1 (Sea view)")
	assert.Contains(t, buf.String(), "Added id-2")
}

func TestDownloadAllReportsFailures(t *testing.T) {
	buf, files := setup(t, nil)
	_, err := appClient.AddURL(context.Background(), tourhub.NewDownload{
		DownloadURL: files.URL + "/missing.zip",
		ImageURL:    "https://img.example.com/a.jpg",
	})
	require.NoError(t, err)

	_, err = run(t, downloadCmd, "--all")
	assert.Error(t, err)
	assert.Contains(t, buf.String(), "Failed to download id-1")
}

func TestDownloadUnknownID(t *testing.T) {
	setup(t, nil)
	_, err := run(t, downloadCmd, "nope")
	assert.ErrorIs(t, err, tourhub.ErrNotFound)
}

func TestRemove(t *testing.T) {
	buf, files := setup(t, nil)
	_, err := appClient.AddURL(context.Background(), tourhub.NewDownload{
		DownloadURL: files.URL + "/a.zip",
		ImageURL:    "https://img.example.com/a.jpg",
	})
	require.NoError(t, err)

	_, err = run(t, removeCmd, "id-1", "id-9")
	assert.Error(t, err)
	assert.Contains(t, buf.String(), "Removed id-1")
	assert.Contains(t, buf.String(), "Could not remove id-9")
}

func TestSocialCommands(t *testing.T) {
	buf, _ := setup(t, nil)

	_, err := run(t, likeCmd, "post-1")
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "You like post-1 (1 likes)")

	_, err = run(t, commentCmd, "post-1", "great", "view")
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Comment added as user-1 (1 comments)")

	out, err := run(t, interactionsCmd, "post-1")
	require.NoError(t, err)
	assert.Contains(t, out, "1 likes, including yours, 1 comments")
	assert.Contains(t, out, "great view")

	_, err = run(t, likeCmd, "post-1", "--toggle")
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "You do not like post-1 (0 likes)")

	_, err = run(t, unlikeCmd, "post-1")
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "You had not liked post-1")
}

func TestCenterCommands(t *testing.T) {
	buf, _ := setup(t, nil)

	out, err := run(t, notificationsCmd)
	require.NoError(t, err)
	assert.Contains(t, out, "New Property Available")

	out, err = run(t, slotsCmd, "--all")
	require.NoError(t, err)
	assert.Equal(t, tourhub.SlotDays*len(tourhub.SlotTimes), strings.Count(out, "\n"))

	_, err = run(t, profileCmd, "--name", "A", "--email", "nope")
	assert.Error(t, err)
	assert.Contains(t, buf.String(), "email must be a valid email address")
}

func TestParseSlotID(t *testing.T) {
	in, err := parseSlotID("2024-01-16-09:00 AM")
	require.NoError(t, err)
	assert.Equal(t, tourhub.BookMeetingInput{SlotID: "2024-01-16-09:00 AM", Date: "2024-01-16", Time: "09:00 AM"}, in)

	for _, bad := range []string{"", "2024-01-16", "2024-01-16 09:00"} {
		_, err := parseSlotID(bad)
		assert.Error(t, err, bad)
	}
}

func TestReadLinks(t *testing.T) {
	links, err := readLinks(strings.NewReader(`
# comment
https://a.example.com/t.zip https://img.example.com/a.jpg Harbour loft
  https://b.example.com/t.zip   https://img.example.com/b.jpg
`))
	require.NoError(t, err)
	require.Len(t, links, 2)
	assert.Equal(t, "Harbour loft", links[0].Title)
	assert.Equal(t, "https://b.example.com/t.zip", links[1].DownloadURL)
	assert.Empty(t, links[1].Title)

	_, err = readLinks(strings.NewReader("https://a.example.com/t.zip\n"))
	assert.ErrorContains(t, err, "line 1")
}

func TestSelectTargets(t *testing.T) {
	items := []client.Item{
		{DownloadRecord: tourhub.DownloadRecord{ID: "a"}},
		{DownloadRecord: tourhub.DownloadRecord{ID: "b"}, LocalState: client.LocalState{IsDownloaded: true, Status: client.StatusDownloaded}},
		{DownloadRecord: tourhub.DownloadRecord{ID: "c"}, LocalState: client.LocalState{Status: client.StatusDownloading}},
	}

	all, err := selectTargets(items, nil, true)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "a", all[0].ID)

	picked, err := selectTargets(items, []string{"b"}, false)
	require.NoError(t, err)
	assert.Equal(t, "b", picked[0].ID)

	_, err = selectTargets(items, []string{"z"}, false)
	assert.ErrorIs(t, err, tourhub.ErrNotFound)
}

func TestRenderTree(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "tour", "assets"), 0750))
	entry := filepath.Join(root, "tour", "index.html")
	require.NoError(t, os.WriteFile(entry, []byte("<html></html>"), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(root, "tour", "assets", "a.jpg"), []byte("x"), 0600))

	out, err := renderTree(root, entry)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, root))
	assert.Contains(t, out, "tour/")
	assert.Contains(t, out, "assets/")
	assert.Contains(t, out, "* index.html")
	assert.Contains(t, out, "a.jpg")
}

func TestInCommand(t *testing.T) {
	assert.True(t, inCommand(editConfigCmd, lightweightCommands))
	assert.False(t, inCommand(listCmd, lightweightCommands))
	assert.True(t, inCommand(serveCmd, serverlessCommands))
}
