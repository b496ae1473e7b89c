package tourhub

import (
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strings"
)

var (
	// driveFileRegex captures the file id from a Google Drive share link.
	driveFileRegex = regexp.MustCompile(`/d/([^/?#&]+)`)
	// dropboxDlParam matches the dl=0 and dl=1 query markers of a Dropbox share link.
	dropboxDlParam = regexp.MustCompile(`^dl=[01]$`)
)

// DriveDirectURL is the direct-download form of a Google Drive file.
const DriveDirectURL = "https://drive.usercontent.google.com/download?id=%s&confirm=t"

// NormalizeURL rewrites cloud-share links into direct-download links.
// Google Drive and Dropbox links are rewritten; any other URL is returned unchanged.
func NormalizeURL(raw string) string {
	switch {
	case strings.Contains(raw, "drive.google.com"):
		if id := DriveFileID(raw); id != "" {
			return fmt.Sprintf(DriveDirectURL, id)
		}
		return raw
	case strings.Contains(raw, "dropbox.com"):
		return dropboxDirect(raw)
	default:
		return raw
	}
}

// ThumbnailURL rewrites a preview image URL so it can be loaded directly.
func ThumbnailURL(raw string) string {
	if strings.Contains(raw, "dropbox.com") {
		return dropboxDirect(raw)
	}
	return raw
}

// DriveFileID extracts the file id from a Google Drive link, or "" if there is none.
func DriveFileID(raw string) string {
	if m := driveFileRegex.FindStringSubmatch(raw); m != nil {
		return m[1]
	}
	if u, err := url.Parse(raw); err == nil {
		return u.Query().Get("id")
	}
	return ""
}

// dropboxDirect swaps the Dropbox host for the content host and forces a raw download.
func dropboxDirect(raw string) string {
	out := strings.Replace(raw, "www.dropbox.com", "dl.dropboxusercontent.com", 1)

	base, query, _ := strings.Cut(out, "?")
	var fragment string
	query, fragment, _ = strings.Cut(query, "#")

	var kept []string
	for _, param := range strings.Split(query, "&") {
		if param == "" || dropboxDlParam.MatchString(param) || strings.HasPrefix(param, "raw=") {
			continue
		}
		kept = append(kept, param)
	}
	kept = append(kept, "raw=1")

	out = base + "?" + strings.Join(kept, "&")
	if fragment != "" {
		out += "#" + fragment
	}
	return out
}

// IsArchiveURL reports whether a (normalized) URL points at a ZIP archive.
// Only the path is considered, so query strings do not affect the result.
func IsArchiveURL(raw string) bool {
	p := raw
	if u, err := url.Parse(raw); err == nil && u.Path != "" {
		p = u.Path
	} else {
		p, _, _ = strings.Cut(p, "?")
	}
	return strings.HasSuffix(strings.ToLower(p), ".zip")
}

// IsEntryPoint reports whether an archive entry is a viewable tour entry point.
func IsEntryPoint(name string) bool {
	lower := strings.ToLower(path.Clean(strings.ReplaceAll(name, `\`, "/")))
	return strings.HasSuffix(lower, "index.html") || strings.HasSuffix(lower, "index.htm")
}
