// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Driftboard Contributors

package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/samber/oops"
)

// Client sends mail through the Postmark HTTP API.
type Client struct {
	token      string
	from       string
	baseURL    string
	httpClient *http.Client
}

// ClientOption configures optional Client behavior.
type ClientOption func(*Client)

// WithHTTPClient replaces the HTTP client, mainly for tests.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(cl *Client) { cl.httpClient = c }
}

// NewClient creates a mail API client.
func NewClient(token, from, baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		token:      token,
		from:       from,
		baseURL:    baseURL,
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type outboundEmail struct {
	From     string `json:"From"`
	To       string `json:"To"`
	Subject  string `json:"Subject"`
	HTMLBody string `json:"HtmlBody"`
}

// Send posts one HTML mail to the API.
func (c *Client) Send(ctx context.Context, to, subject, htmlBody string) error {
	if c.token == "" {
		return oops.Code("MAIL_NOT_CONFIGURED").Errorf("mail API token is not set")
	}

	payload, err := json.Marshal(outboundEmail{
		From:     c.from,
		To:       to,
		Subject:  subject,
		HTMLBody: htmlBody,
	})
	if err != nil {
		return oops.Code("MAIL_ENCODE_FAILED").Wrap(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/email", bytes.NewReader(payload))
	if err != nil {
		return oops.Code("MAIL_REQUEST_FAILED").Wrap(err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Postmark-Server-Token", c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return oops.Code("MAIL_SEND_FAILED").With("to", to).Wrap(err)
	}
	defer resp.Body.Close() //nolint:errcheck // read-only body

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096)) //nolint:errcheck // best-effort diagnostics
		return oops.Code("MAIL_SEND_FAILED").
			With("to", to).
			With("status", resp.StatusCode).
			With("body", string(body)).
			Errorf("mail API returned %d", resp.StatusCode)
	}
	return nil
}
