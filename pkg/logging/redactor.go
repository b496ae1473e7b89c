package logging

import (
	"io"
	"regexp"
	"strings"
)

var (
	// driveIDRegex matches Google Drive file ids in share and direct links.
	driveIDRegex = regexp.MustCompile(`(/d/|[?&]id=)[A-Za-z0-9_-]{10,}`)
	// dropboxKeyRegex matches the share key segment of Dropbox links.
	dropboxKeyRegex = regexp.MustCompile(`(/s/|/scl/fi/)[A-Za-z0-9_-]+`)
	// dropboxParamRegex matches the rlkey parameter of newer Dropbox links.
	dropboxParamRegex = regexp.MustCompile(`([?&]rlkey=)[A-Za-z0-9_-]+`)
)

type replacement struct {
	re   *regexp.Regexp
	repl string
}

// RedactingWriter is an io.Writer that redacts share links and local paths
// before writing to an underlying writer.
type RedactingWriter struct {
	underlying   io.Writer
	replacements []replacement
}

// NewRedactingWriter creates a writer that masks cloud share identifiers and
// any occurrence of scratchDir.
func NewRedactingWriter(w io.Writer, scratchDir string) *RedactingWriter {
	replacements := []replacement{
		{driveIDRegex, "${1}[DRIVE_ID]"},
		{dropboxKeyRegex, "${1}[DROPBOX_KEY]"},
		{dropboxParamRegex, "${1}[DROPBOX_KEY]"},
	}
	if scratchDir != "" {
		// Match either separator so Windows paths logged with slashes are caught.
		sanitized := strings.ReplaceAll(regexp.QuoteMeta(scratchDir), `\\`, `[/\\]`)
		replacements = append([]replacement{{regexp.MustCompile(sanitized), "[SCRATCH_DIR]"}}, replacements...)
	}
	return &RedactingWriter{underlying: w, replacements: replacements}
}

// Write redacts p and writes it to the underlying writer.
func (rw *RedactingWriter) Write(p []byte) (int, error) {
	message := string(p)
	for _, r := range rw.replacements {
		message = r.re.ReplaceAllString(message, r.repl)
	}
	if _, err := rw.underlying.Write([]byte(message)); err != nil {
		return 0, err
	}
	// Report the original length; callers only care that p was consumed.
	return len(p), nil
}

// Sync flushes the underlying writer when it supports it.
func (rw *RedactingWriter) Sync() error {
	if s, ok := rw.underlying.(interface{ Sync() error }); ok {
		return s.Sync()
	}
	return nil
}
