package tourhub

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
)

var (
	// ErrValidation is returned when an input fails its declared schema.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrTransport is returned when fetching a payload fails.
	ErrTransport = errors.New("transport error")
	// ErrContentInvalid is returned when a fetched payload is empty or not the expected file.
	ErrContentInvalid = errors.New("invalid content")
	// ErrExtraction is returned when an archive cannot be parsed.
	ErrExtraction = errors.New("extraction failed")
	// ErrDiskSpace is returned when there is not enough room for a download.
	ErrDiskSpace = errors.New("insufficient disk space")
	// ErrInProgress is returned when a download is already running for a record.
	ErrInProgress = errors.New("download already in progress")
	// ErrNotDownloaded is returned when viewing a record with no local content.
	ErrNotDownloaded = errors.New("not downloaded")
	// ErrFileNotFound is returned when local content has disappeared from disk.
	ErrFileNotFound = errors.New("local file not found")
)

// User-facing guidance for transport and content failures.
const (
	MsgUnauthorized = "Authentication required. The file may be private or the link has expired."
	MsgForbidden    = "Access denied. Make sure the file is publicly accessible."
	MsgMissing      = "File not found. Please check the URL."
	MsgNetwork      = "Network error. Please check your internet connection and try again."
	MsgEmpty        = "Downloaded file is empty or does not exist."
	MsgNotPublic    = "The file is not publicly accessible. Open the sharing settings of the file, " +
		"choose \"Anyone with the link\" and make sure link sharing allows viewing, then try again."
	MsgNotAFile   = "The link did not return a valid file. Please check the URL."
	MsgTimeout    = "Download timed out. Please try again."
	MsgRedownload = "File not found. Please re-download."
)

// DownloadError describes a failed step of the download pipeline.
type DownloadError struct {
	Kind error  // One of the sentinel errors above.
	ID   string // Record the failure belongs to.
	Msg  string // Human-readable guidance.
	Err  error  // Underlying cause, if any.
}

func (e *DownloadError) Error() string {
	if e.Err != nil && e.Msg == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	if e.Msg != "" {
		return e.Msg
	}
	return e.Kind.Error()
}

// Is reports whether target is the kind of this error.
func (e *DownloadError) Is(target error) bool {
	return target == e.Kind
}

func (e *DownloadError) Unwrap() error {
	return e.Err
}

// NewDownloadError creates a DownloadError of the given kind.
func NewDownloadError(kind error, id, msg string, err error) *DownloadError {
	return &DownloadError{Kind: kind, ID: id, Msg: msg, Err: err}
}

// HTTPStatusError is returned when a transfer receives a non-success status code.
type HTTPStatusError struct {
	StatusCode int
	URL        string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("unexpected status %d fetching %s", e.StatusCode, e.URL)
}

// ClassifyTransport maps a transfer failure to a transport DownloadError with guidance.
func ClassifyTransport(id string, err error) *DownloadError {
	var de *DownloadError
	if errors.As(err, &de) {
		return de
	}
	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		switch statusErr.StatusCode {
		case 401:
			return NewDownloadError(ErrTransport, id, MsgUnauthorized, err)
		case 403:
			return NewDownloadError(ErrTransport, id, MsgForbidden, err)
		case 404:
			return NewDownloadError(ErrTransport, id, MsgMissing, err)
		}
		return NewDownloadError(ErrTransport, id, fmt.Sprintf("Download failed with status %d.", statusErr.StatusCode), err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return NewDownloadError(ErrTransport, id, MsgTimeout, err)
	}
	if errors.Is(err, context.Canceled) {
		return NewDownloadError(ErrTransport, id, "", err)
	}
	var netErr net.Error
	var urlErr *url.Error
	if errors.As(err, &netErr) || errors.As(err, &urlErr) {
		return NewDownloadError(ErrTransport, id, MsgNetwork, err)
	}
	return NewDownloadError(ErrTransport, id, "", err)
}
