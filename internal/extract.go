package tourhub

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// ExtractResult summarizes an archive extraction.
type ExtractResult struct {
	Dir        string // Scratch directory the archive was unpacked into.
	EntryPoint string // Absolute path of the index page, or "" if none was found.
	Extracted  int    // Entries written.
	Skipped    int    // Entries that failed and were skipped.
}

// EntryDir is the directory to serve for a result: the entry point's folder when known.
func (r ExtractResult) EntryDir() string {
	if r.EntryPoint != "" {
		return filepath.Dir(r.EntryPoint)
	}
	return r.Dir
}

// Extract unpacks the ZIP archive at archivePath into dir.
// Any existing dir is removed first. Failures on single entries are logged and
// skipped; only an unreadable archive fails the whole extraction.
func Extract(ctx context.Context, archivePath, dir string, logger *zap.Logger) (ExtractResult, error) {
	res := ExtractResult{Dir: dir}

	b, err := os.ReadFile(archivePath) // #nosec G304
	if err != nil {
		return res, fmt.Errorf("%w: failed to read archive: %w", ErrExtraction, err)
	}
	zr, err := zip.NewReader(bytes.NewReader(b), int64(len(b)))
	if err != nil {
		return res, fmt.Errorf("%w: failed to parse archive: %w", ErrExtraction, err)
	}

	if err := os.RemoveAll(dir); err != nil {
		return res, fmt.Errorf("%w: failed to clear %s: %w", ErrExtraction, dir, err)
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return res, fmt.Errorf("%w: failed to create %s: %w", ErrExtraction, dir, err)
	}

	for _, f := range zr.File {
		if err := ctx.Err(); err != nil {
			return res, fmt.Errorf("%w: %w", ErrExtraction, err)
		}
		if f.FileInfo().IsDir() {
			continue
		}
		target, err := writeEntry(f, dir)
		if err != nil {
			res.Skipped++
			logger.Warn("skipping archive entry", zap.String("entry", f.Name), zap.Error(err))
			continue
		}
		res.Extracted++
		if IsEntryPoint(f.Name) {
			res.EntryPoint = target
			logger.Debug("found entry point", zap.String("path", target))
		}
	}

	logger.Info("archive extracted",
		zap.String("dir", dir),
		zap.Int("extracted", res.Extracted),
		zap.Int("skipped", res.Skipped),
		zap.String("entry_point", res.EntryPoint),
	)
	return res, nil
}

// writeEntry writes a single archive entry below dir and returns its path.
func writeEntry(f *zip.File, dir string) (string, error) {
	name := filepath.FromSlash(strings.ReplaceAll(f.Name, `\`, "/"))
	if !filepath.IsLocal(name) {
		return "", fmt.Errorf("entry path %q escapes the extraction directory", f.Name)
	}
	target := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(target), 0750); err != nil {
		return "", err
	}

	rc, err := f.Open()
	if err != nil {
		return "", err
	}
	defer func() { _ = rc.Close() }()

	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0640) // #nosec G304
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(out, rc); err != nil { // #nosec G110
		_ = out.Close()
		return "", err
	}
	return target, out.Close()
}
