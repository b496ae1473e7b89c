package tourhub

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/cavaliergopher/grab/v3"
)

// DownloadOpt holds the options for fetching a payload.
type DownloadOpt struct {
	Client         *grab.Client  // Client used for transfers.
	Timeout        time.Duration // Deadline for the whole transfer, retries included.
	TimeoutOnError time.Duration // Pause between retries.
	Retries        int           // Extra attempts after the first failure.
}

var (
	// DefaultDownloadClient is the transfer client used when none is configured.
	DefaultDownloadClient = NewDownloadClient(&http.Client{
		Transport: &http.Transport{Proxy: http.ProxyFromEnvironment},
	})

	DefaultTimeout        = 5 * time.Minute // Default transfer deadline.
	DefaultTimeoutOnError = 2 * time.Second // Default pause between retries.
)

// UserAgent is sent with every transfer.
const UserAgent = "tourhub/1.0 (+https://github.com/perpetuallyhorni/tourhub)"

// NewDownloadClient wraps an HTTP client in a grab client.
func NewDownloadClient(hc *http.Client) *grab.Client {
	return &grab.Client{HTTPClient: hc, UserAgent: UserAgent}
}

// Defaults fills in unset options.
func (opt *DownloadOpt) Defaults() *DownloadOpt {
	ret := opt
	if ret == nil {
		ret = &DownloadOpt{}
	}
	if ret.Client == nil {
		ret.Client = DefaultDownloadClient
	}
	if ret.Timeout == 0 {
		ret.Timeout = DefaultTimeout
	}
	if ret.TimeoutOnError == 0 {
		ret.TimeoutOnError = DefaultTimeoutOnError
	}
	if ret.Retries < 0 {
		ret.Retries = 0
	}
	return ret
}

// Fetch transfers url into filename and returns the number of bytes written.
// Non-2xx responses are reported as *HTTPStatusError.
func (opt *DownloadOpt) Fetch(ctx context.Context, url, filename string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, opt.Timeout)
	defer cancel()
	return opt.fetchRetrying(ctx, url, filename, 0, nil)
}

// fetchRetrying attempts the transfer, retrying up to opt.Retries times.
func (opt *DownloadOpt) fetchRetrying(ctx context.Context, url, filename string, try int, lastErr error) (int64, error) {
	if try > opt.Retries {
		if opt.Retries == 0 {
			return 0, lastErr
		}
		return 0, fmt.Errorf("failed after %d retries: %w", opt.Retries, lastErr)
	}
	if try > 0 {
		select {
		case <-ctx.Done():
			return 0, errors.Join(ctx.Err(), lastErr)
		case <-time.After(opt.TimeoutOnError):
		}
		// A partial file from the failed attempt would be resumed; start clean.
		_ = os.Remove(filename)
	}

	req, err := grab.NewRequest(filename, url)
	if err != nil {
		return 0, err
	}
	req = req.WithContext(ctx)
	req.NoResume = true

	resp := opt.Client.Do(req)
	if err := resp.Err(); err != nil {
		var code grab.StatusCodeError
		if errors.As(err, &code) {
			err = &HTTPStatusError{StatusCode: int(code), URL: url}
			// Client errors will not change on retry.
			if code >= 400 && code < 500 {
				return 0, err
			}
		}
		if ctx.Err() != nil {
			return 0, err
		}
		return opt.fetchRetrying(ctx, url, filename, try+1, err)
	}
	return resp.BytesComplete(), nil
}
