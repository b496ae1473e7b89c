// Package network builds the HTTP transports used for payload transfers.
package network

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"
)

// NewHTTPTransport creates a transport for transfers. A non-empty bindAddresses
// (comma-separated IPs or interface names) pins outgoing connections to those
// local addresses, rotating between them per connection.
func NewHTTPTransport(bindAddresses string) (*http.Transport, error) {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	if strings.TrimSpace(bindAddresses) == "" {
		dialer := &net.Dialer{Timeout: 30 * time.Second, KeepAlive: 30 * time.Second}
		transport.DialContext = dialer.DialContext
		return transport, nil
	}

	rotator, err := NewRotator(bindAddresses)
	if err != nil {
		return nil, err
	}
	transport.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
		dialer := &net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
			LocalAddr: rotator.Next(),
		}
		return dialer.DialContext(ctx, network, addr)
	}
	return transport, nil
}

// NewHTTPClient wraps NewHTTPTransport in a client.
func NewHTTPClient(bindAddresses string) (*http.Client, error) {
	transport, err := NewHTTPTransport(bindAddresses)
	if err != nil {
		return nil, err
	}
	return &http.Client{Transport: transport}, nil
}
