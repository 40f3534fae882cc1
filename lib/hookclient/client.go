// Copyright 2026 The Hookscope Authors
// SPDX-License-Identifier: Apache-2.0

// Package hookclient is the Go client for the hookscope server's
// HTTP API. Hook scripts and the hookscope-send CLI use it to submit
// events; tooling uses it to query them.
package hookclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hookscope/hookscope/lib/netutil"
	"github.com/hookscope/hookscope/lib/schema/hook"
)

// DefaultTimeout bounds each request when the caller does not supply
// its own http.Client. Hook scripts run synchronously inside agent
// sessions, so a hung server must not hang the session.
const DefaultTimeout = 10 * time.Second

// Client talks to a hookscope server over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Config configures a Client.
type Config struct {
	// BaseURL is the server's base URL, e.g. "http://127.0.0.1:4000".
	// Required. A trailing slash is tolerated.
	BaseURL string

	// HTTPClient overrides the default client (DefaultTimeout).
	// Optional.
	HTTPClient *http.Client
}

// New creates a Client for the given server.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("hookclient: BaseURL is required")
	}
	parsed, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("hookclient: invalid base URL %q: %w", cfg.BaseURL, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("hookclient: base URL %q must be http or https", cfg.BaseURL)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: httpClient,
	}, nil
}

// PostEvent submits one event and returns the stored record with its
// server-assigned id and creation time.
func (c *Client) PostEvent(ctx context.Context, event hook.IngestRequest) (hook.Event, error) {
	body, err := json.Marshal(event)
	if err != nil {
		return hook.Event{}, fmt.Errorf("hookclient: encoding event: %w", err)
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/events", bytes.NewReader(body))
	if err != nil {
		return hook.Event{}, fmt.Errorf("hookclient: building request: %w", err)
	}
	request.Header.Set("Content-Type", "application/json")

	var stored hook.Event
	if err := c.do(request, &stored); err != nil {
		return hook.Event{}, err
	}
	return stored, nil
}

// Recent returns the most recent events in chronological order. A
// limit of zero uses the server default.
func (c *Client) Recent(ctx context.Context, limit int) ([]hook.Event, error) {
	endpoint := c.baseURL + "/events/recent"
	if limit > 0 {
		endpoint += "?limit=" + strconv.Itoa(limit)
	}
	var events []hook.Event
	if err := c.get(ctx, endpoint, &events); err != nil {
		return nil, err
	}
	return events, nil
}

// EventsForSession returns every event for one session in
// chronological order.
func (c *Client) EventsForSession(ctx context.Context, sessionID string) ([]hook.Event, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("hookclient: session id is required")
	}
	var events []hook.Event
	endpoint := c.baseURL + "/events/session/" + url.PathEscape(sessionID)
	if err := c.get(ctx, endpoint, &events); err != nil {
		return nil, err
	}
	return events, nil
}

// FilterOptions returns the distinct source apps and event types the
// server has seen.
func (c *Client) FilterOptions(ctx context.Context) (hook.FilterOptions, error) {
	var options hook.FilterOptions
	if err := c.get(ctx, c.baseURL+"/events/filters", &options); err != nil {
		return hook.FilterOptions{}, err
	}
	return options, nil
}

// Status returns the server's operational status.
func (c *Client) Status(ctx context.Context) (hook.Status, error) {
	var status hook.Status
	if err := c.get(ctx, c.baseURL+"/status", &status); err != nil {
		return hook.Status{}, err
	}
	return status, nil
}

func (c *Client) get(ctx context.Context, endpoint string, v any) error {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("hookclient: building request: %w", err)
	}
	return c.do(request, v)
}

// do executes the request and decodes a 200 response into v. Error
// responses carry a JSON {"error": ...} body; its text is folded into
// the returned error.
func (c *Client) do(request *http.Request, v any) error {
	response, err := c.httpClient.Do(request)
	if err != nil {
		return fmt.Errorf("hookclient: %s %s: %w", request.Method, request.URL.Path, err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		var apiErr struct {
			Error string `json:"error"`
		}
		body := netutil.ErrorBody(response.Body)
		if json.Unmarshal([]byte(body), &apiErr) == nil && apiErr.Error != "" {
			body = apiErr.Error
		}
		return fmt.Errorf("hookclient: %s %s: status %d: %s",
			request.Method, request.URL.Path, response.StatusCode, body)
	}

	if err := netutil.DecodeResponse(response.Body, v); err != nil {
		return fmt.Errorf("hookclient: %s %s: decoding response: %w",
			request.Method, request.URL.Path, err)
	}
	return nil
}
