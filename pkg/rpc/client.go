package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// Client calls procedures on a remote Server.
type Client struct {
	baseURL string
	http    *http.Client
	actor   string
}

// NewClient creates a Client for the endpoint at baseURL (for example
// "http://127.0.0.1:8081/api/trpc"). A nil hc uses http.DefaultClient.
func NewClient(baseURL string, hc *http.Client) *Client {
	if hc == nil {
		hc = http.DefaultClient
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: hc}
}

// WithActor returns a copy of the client that identifies as userID.
func (c *Client) WithActor(userID string) *Client {
	cp := *c
	cp.actor = userID
	return &cp
}

// Call calls a query procedure and decodes its output.
func Call[O any](ctx context.Context, c *Client, name string, in any) (O, error) {
	var out O
	err := c.Do(ctx, KindQuery, name, in, &out)
	return out, err
}

// Mutate calls a mutation procedure and decodes its output.
func Mutate[O any](ctx context.Context, c *Client, name string, in any) (O, error) {
	var out O
	err := c.Do(ctx, KindMutation, name, in, &out)
	return out, err
}

// Do calls a procedure. A nil in sends no input; a nil out discards the output.
func (c *Client) Do(ctx context.Context, kind Kind, name string, in, out any) error {
	var payload []byte
	if in != nil {
		var err error
		if payload, err = json.Marshal(in); err != nil {
			return fmt.Errorf("failed to encode input for %s: %w", name, err)
		}
	}

	endpoint := c.baseURL + "/" + name
	var req *http.Request
	var err error
	if kind == KindQuery {
		if payload != nil {
			endpoint += "?input=" + url.QueryEscape(string(payload))
		}
		req, err = http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	} else {
		req, err = http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
		if err == nil {
			req.Header.Set("Content-Type", "application/json")
		}
	}
	if err != nil {
		return fmt.Errorf("failed to build request for %s: %w", name, err)
	}
	if c.actor != "" {
		req.Header.Set(ActorHeader, c.actor)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call %s: %w", name, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response from %s: %w", name, err)
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil || (env.Result == nil && env.Error == nil) {
		if resp.StatusCode >= 400 {
			return &Error{Code: codeForStatus(resp.StatusCode), Message: strings.TrimSpace(string(body)), Path: name}
		}
		return fmt.Errorf("unexpected response from %s: %s", name, truncate(body, 200))
	}
	if env.Error != nil {
		return &Error{
			Code:        env.Error.Data.Code,
			Message:     env.Error.Message,
			Path:        name,
			FieldErrors: env.Error.Data.FieldErrors,
		}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(env.Result.Data, out); err != nil {
		return fmt.Errorf("failed to decode output of %s: %w", name, err)
	}
	return nil
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}
