// Package client is the Go client for the custodian daemon's HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mrz1836/custodian/internal/api"
	"github.com/mrz1836/custodian/internal/output"
	custerr "github.com/mrz1836/custodian/pkg/errors"
)

// DefaultTimeout applies when Config.Timeout is zero.
const DefaultTimeout = 30 * time.Second

// maxResponseSize caps response bodies read from the daemon.
const maxResponseSize = 1 << 20

// Config is the complete client configuration. There is no partial or
// builder form; New validates all of it.
type Config struct {
	// Endpoint is the daemon address, with or without an http:// scheme.
	Endpoint string

	// Token is the daemon API token.
	Token string

	// Timeout bounds each request. Zero selects DefaultTimeout.
	Timeout time.Duration
}

// Client talks to one daemon.
type Client struct {
	endpoint string
	token    string
	http     *http.Client
}

// New validates cfg and returns a client.
func New(cfg Config) (*Client, error) {
	endpoint, err := normalizeEndpoint(cfg.Endpoint)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, custerr.WithDetails(custerr.ErrInvalidClientConfig, map[string]string{"token": "empty"})
	}
	if cfg.Timeout < 0 {
		return nil, custerr.WithDetails(custerr.ErrInvalidClientConfig, map[string]string{"timeout": cfg.Timeout.String()})
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	return &Client{
		endpoint: endpoint,
		token:    strings.TrimSpace(cfg.Token),
		http:     &http.Client{Timeout: timeout},
	}, nil
}

func normalizeEndpoint(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", custerr.WithDetails(custerr.ErrInvalidClientConfig, map[string]string{"endpoint": "empty"})
	}
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return "", custerr.WithDetails(custerr.ErrInvalidClientConfig, map[string]string{"endpoint": raw})
	}
	return strings.TrimRight(u.String(), "/"), nil
}

// Endpoint returns the normalized daemon URL.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// transportError reports a failure to reach the daemon or read its answer.
func transportError(path string, err error) error {
	return &custerr.CustodianError{
		Code:     custerr.ErrTransport.Code,
		Kind:     custerr.KindTransport,
		Message:  fmt.Sprintf("%s: %s", custerr.ErrTransport.Message, path),
		Cause:    err,
		ExitCode: custerr.ExitTransport,
	}
}

// decodeError rebuilds the daemon's structured error from an error body.
func decodeError(path string, status int, body []byte) error {
	var envelope output.ErrorOutput
	if err := json.Unmarshal(body, &envelope); err != nil || envelope.Error.Kind == "" {
		return transportError(path, fmt.Errorf("unexpected status %d", status))
	}
	d := envelope.Error
	e := custerr.FromWire(d.Kind, d.Code, d.Message)
	e.Details = d.Details
	e.Suggestion = d.Suggestion
	return e
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return custerr.Wrap(err, "encoding request")
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint+path, body)
	if err != nil {
		return transportError(path, err)
	}
	req.Header.Set(api.HeaderAPIToken, c.token)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return transportError(path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return transportError(path, err)
	}
	if resp.StatusCode != http.StatusOK {
		return decodeError(path, resp.StatusCode, data)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return transportError(path, fmt.Errorf("decoding response: %w", err))
	}
	return nil
}
