package client

import (
	tourhub "github.com/perpetuallyhorni/tourhub/internal"
)

// Status is the position of a record in the download state machine.
type Status int

const (
	StatusNotDownloaded Status = iota
	StatusDownloading
	StatusExtracting
	StatusDownloaded
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusDownloading:
		return "downloading"
	case StatusExtracting:
		return "extracting"
	case StatusDownloaded:
		return "downloaded"
	case StatusFailed:
		return "failed"
	default:
		return "not downloaded"
	}
}

// Busy reports whether a download is running.
func (s Status) Busy() bool {
	return s == StatusDownloading || s == StatusExtracting
}

// LocalState is what the client knows about a record's local content.
type LocalState struct {
	Status   Status
	Progress int // Percent, 0-100.

	IsDownloaded  bool
	LocalPath     string // Fetched payload, "" when handed to the opener.
	IsZip         bool
	UnzippedPath  string // Directory holding the entry point, or the scratch dir.
	IndexHTMLPath string
	Hosted        bool // Content was handed to the system opener instead of fetched.
	LastError     string
}

// Item is a server record paired with its local state.
type Item struct {
	tourhub.DownloadRecord
	LocalState
}

// Progress checkpoints reported while a download runs.
const (
	progressStarted     = 0
	progressScratch     = 5
	progressTransfer    = 10
	progressTransferred = 70
	progressValidated   = 80
	progressExtracting  = 85
	progressExtracted   = 95
	progressComplete    = 100
)
