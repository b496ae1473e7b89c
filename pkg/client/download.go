package client

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	tourhub "github.com/perpetuallyhorni/tourhub/internal"
	tfs "github.com/perpetuallyhorni/tourhub/internal/fs"
	"go.uber.org/zap"
)

// Download runs the pipeline for rec: normalize, fetch, validate and, for
// archives, extract. It returns the resulting state. An archive that cannot be
// parsed leaves the record downloaded without an entry point and returns an
// ErrExtraction error alongside that state.
func (c *Client) Download(ctx context.Context, rec tourhub.DownloadRecord, progressCb ProgressCallback) (LocalState, error) {
	if progressCb == nil {
		progressCb = noOpProgress
	}
	logger := c.logger.With(zap.String("id", rec.ID))

	if err := c.begin(rec.ID); err != nil {
		return c.State(rec.ID), err
	}
	report := func(pct int, msg string) {
		c.update(rec.ID, func(st *LocalState) { st.Progress = pct })
		progressCb(pct, progressComplete, msg)
	}
	report(progressStarted, "Starting download")

	src := tourhub.NormalizeURL(rec.DownloadURL)
	isZip := tourhub.IsArchiveURL(src)
	logger.Info("starting download", zap.String("url", src), zap.Bool("zip", isZip))

	dlDir := c.DownloadsDir()
	if c.cfg.Hosted {
		return c.handOff(rec.ID, src, isZip, progressCb, logger)
	}
	if err := tfs.EnsureWritable(dlDir); err != nil {
		logger.Warn("scratch directory unavailable, handing off to opener", zap.String("dir", dlDir), zap.Error(err))
		return c.handOff(rec.ID, src, isZip, progressCb, logger)
	}
	report(progressScratch, "Scratch directory ready")

	if avail, err := tfs.Available(dlDir); err == nil {
		if avail < c.cfg.MinFreeBytes {
			return c.fail(rec.ID, tourhub.NewDownloadError(tourhub.ErrDiskSpace, rec.ID,
				fmt.Sprintf("Only %d bytes free in %s.", avail, dlDir), nil), logger)
		}
	} else if !errors.Is(err, tfs.ErrUnsupportedOS) {
		logger.Debug("could not check free space", zap.Error(err))
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return c.fail(rec.ID, tourhub.ClassifyTransport(rec.ID, err), logger)
	}

	ext := "file"
	if isZip {
		ext = "zip"
	}
	filename := filepath.Join(dlDir, fmt.Sprintf("download_%s_%d.%s", scratchName(rec.ID), c.clock.Now().UnixMilli(), ext))

	report(progressTransfer, "Downloading")
	n, err := c.dlOpt.Fetch(ctx, src, filename)
	if err != nil {
		_ = os.Remove(filename)
		return c.fail(rec.ID, tourhub.ClassifyTransport(rec.ID, err), logger)
	}
	logger.Debug("transfer complete", zap.String("file", filename), zap.Int64("bytes", n))
	report(progressTransferred, "Download complete, validating")

	minBytes := c.cfg.MinPayloadBytes
	if minBytes <= 0 {
		minBytes = tourhub.DefaultMinPayloadBytes
	}
	if err := tourhub.ValidatePayload(rec.ID, filename, minBytes); err != nil {
		_ = os.Remove(filename)
		return c.fail(rec.ID, err, logger)
	}
	report(progressValidated, "File validated")
	// Payloads from earlier downloads of the record would be adopted again.
	c.removePayloads(rec.ID, filename, logger)

	final := LocalState{
		Status:       StatusDownloaded,
		Progress:     progressComplete,
		IsDownloaded: true,
		LocalPath:    filename,
		IsZip:        isZip,
	}

	var extractErr error
	if isZip {
		c.update(rec.ID, func(st *LocalState) { st.Status = StatusExtracting })
		report(progressExtracting, "Extracting archive")
		c.stopViewer(rec.ID, logger)

		res, err := tourhub.Extract(ctx, filename, c.UnzippedDir(rec.ID), logger)
		switch {
		case err == nil:
			final.UnzippedPath = res.EntryDir()
			final.IndexHTMLPath = res.EntryPoint
			if res.Skipped > 0 {
				logger.Warn("archive extracted with skipped entries", zap.Int("skipped", res.Skipped))
			}
			report(progressExtracted, fmt.Sprintf("Extracted %d files", res.Extracted))
		case ctx.Err() != nil:
			_ = os.Remove(filename)
			_ = os.RemoveAll(c.UnzippedDir(rec.ID))
			return c.fail(rec.ID, tourhub.ClassifyTransport(rec.ID, ctx.Err()), logger)
		default:
			// The raw archive stays usable through the generic opener.
			extractErr = tourhub.NewDownloadError(tourhub.ErrExtraction, rec.ID, "", err)
			final.LastError = extractErr.Error()
			logger.Error("failed to extract archive", zap.Error(err))
		}
	}

	st := c.update(rec.ID, func(st *LocalState) { *st = final })
	progressCb(progressComplete, progressComplete, "Download complete")
	logger.Info("download complete", zap.String("file", filename), zap.String("entry_point", final.IndexHTMLPath))
	return st, extractErr
}

// begin moves a record into the Downloading state.
func (c *Client) begin(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	st, ok := c.states[id]
	if !ok {
		st = &LocalState{}
		c.states[id] = st
	}
	if st.Status.Busy() {
		return tourhub.NewDownloadError(tourhub.ErrInProgress, id, "", nil)
	}
	*st = LocalState{Status: StatusDownloading}
	return nil
}

// fail records err as the outcome of a download.
func (c *Client) fail(id string, err error, logger *zap.Logger) (LocalState, error) {
	logger.Error("download failed", zap.Error(err))
	st := c.update(id, func(st *LocalState) {
		*st = LocalState{Status: StatusFailed, LastError: err.Error()}
	})
	return st, err
}

// handOff gives the URL to the system opener and marks the record downloaded
// without local content.
func (c *Client) handOff(id, src string, isZip bool, progressCb ProgressCallback, logger *zap.Logger) (LocalState, error) {
	if err := c.opener.OpenURL(src); err != nil {
		return c.fail(id, tourhub.NewDownloadError(tourhub.ErrTransport, id, "Could not open the link in the system browser.", err), logger)
	}
	st := c.update(id, func(st *LocalState) {
		*st = LocalState{
			Status:       StatusDownloaded,
			Progress:     progressComplete,
			IsDownloaded: true,
			IsZip:        isZip,
			Hosted:       true,
		}
	})
	progressCb(progressComplete, progressComplete, "Opened in browser")
	logger.Info("handed download to opener", zap.String("url", src))
	return st, nil
}

// Delete removes a record's local content and resets its state. Removal is
// best-effort: failures are logged and the state is reset regardless.
func (c *Client) Delete(id string) LocalState {
	c.mu.Lock()
	var localPath string
	if st := c.states[id]; st != nil {
		localPath = st.LocalPath
	}
	c.mu.Unlock()

	logger := c.logger.With(zap.String("id", id))
	c.stopViewer(id, logger)
	if localPath != "" {
		removeFile(localPath, logger)
	}
	c.removePayloads(id, "", logger)
	if err := os.RemoveAll(c.UnzippedDir(id)); err != nil {
		logger.Warn("failed to delete extracted files", zap.Error(err))
	}
	logger.Info("deleted local content")

	return c.update(id, func(st *LocalState) { *st = LocalState{} })
}

// adoptLocal rebuilds the state of a record from content already in the
// scratch directory, so downloads survive between runs. Must be called with mu held.
func (c *Client) adoptLocal(rec tourhub.DownloadRecord) LocalState {
	matches := c.payloads(rec.ID)
	if len(matches) == 0 {
		return LocalState{}
	}
	// Millisecond stamps sort lexically within the same width; newest last.
	sort.Strings(matches)
	latest := matches[len(matches)-1]

	st := LocalState{
		Status:       StatusDownloaded,
		Progress:     progressComplete,
		IsDownloaded: true,
		LocalPath:    latest,
		IsZip:        strings.HasSuffix(latest, ".zip"),
	}
	if st.IsZip {
		dir := c.UnzippedDir(rec.ID)
		if entry := findEntryPoint(dir); entry != "" {
			st.IndexHTMLPath = entry
			st.UnzippedPath = filepath.Dir(entry)
		} else if info, err := os.Stat(dir); err == nil && info.IsDir() {
			st.UnzippedPath = dir
		}
	}
	c.logger.Debug("adopted local content", zap.String("id", rec.ID), zap.String("file", latest))
	return st
}

// payloads lists the payload files of id in the downloads directory.
func (c *Client) payloads(id string) []string {
	name := scratchName(id)
	matches, _ := filepath.Glob(filepath.Join(c.DownloadsDir(), "download_"+name+"_*"))
	// Keep only exact id matches: "a" must not adopt "a_b"'s files.
	return filterPayloads(matches, name)
}

// removePayloads deletes every payload of id except keep.
func (c *Client) removePayloads(id, keep string, logger *zap.Logger) {
	for _, p := range c.payloads(id) {
		if p != keep {
			removeFile(p, logger)
		}
	}
}

func removeFile(path string, logger *zap.Logger) {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Warn("failed to delete file", zap.String("file", path), zap.Error(err))
	}
}

func filterPayloads(paths []string, name string) []string {
	prefix := "download_" + name + "_"
	out := paths[:0]
	for _, p := range paths {
		base := filepath.Base(p)
		rest := strings.TrimPrefix(base, prefix)
		stamp, ext, ok := strings.Cut(rest, ".")
		if !ok || stamp == "" || strings.Trim(stamp, "0123456789") != "" {
			continue
		}
		if ext == "zip" || ext == "file" {
			out = append(out, p)
		}
	}
	return out
}

// findEntryPoint walks dir in lexical order; the last index page found wins.
func findEntryPoint(dir string) string {
	var entry string
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() && tourhub.IsEntryPoint(d.Name()) {
			entry = path
		}
		return nil
	})
	return entry
}
