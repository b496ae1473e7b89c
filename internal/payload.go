package tourhub

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"strings"
)

// DefaultMinPayloadBytes is the size below which a payload is inspected for an error page.
const DefaultMinPayloadBytes = 100

// notPublicMarkers identify an HTML page returned in place of the requested file.
var notPublicMarkers = []string{"google drive", "<!doctype", "<html"}

// ValidatePayload checks that a fetched file is present, non-empty and not an error page.
// Payloads smaller than minBytes are read and sniffed for HTML.
func ValidatePayload(id, filename string, minBytes int64) error {
	info, err := os.Stat(filename)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return NewDownloadError(ErrContentInvalid, id, MsgEmpty, nil)
		}
		return NewDownloadError(ErrContentInvalid, id, MsgEmpty, err)
	}
	if info.Size() == 0 {
		return NewDownloadError(ErrContentInvalid, id, MsgEmpty, nil)
	}
	if info.Size() >= minBytes {
		return nil
	}

	f, err := os.Open(filename) // #nosec G304
	if err != nil {
		return NewDownloadError(ErrContentInvalid, id, MsgNotAFile, err)
	}
	defer func() { _ = f.Close() }()
	head, err := io.ReadAll(io.LimitReader(f, minBytes))
	if err != nil {
		return NewDownloadError(ErrContentInvalid, id, MsgNotAFile, err)
	}

	content := strings.ToLower(string(head))
	for _, marker := range notPublicMarkers {
		if strings.Contains(content, marker) {
			return NewDownloadError(ErrContentInvalid, id, MsgNotPublic, nil)
		}
	}
	return NewDownloadError(ErrContentInvalid, id, MsgNotAFile, nil)
}
