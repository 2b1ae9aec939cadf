// Copyright (c) 2026 The Buxxx23 order authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package graph talks to the Microsoft Graph REST API: OneDrive uploads,
// sendMail and a mailbox lookup used as a start-up preflight.
package graph

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

// DefaultBaseURL is the Graph v1.0 root.
const DefaultBaseURL = "https://graph.microsoft.com/v1.0"

// maxErrorBody bounds how much of an error response is kept for display.
const maxErrorBody = 64 << 10

// Client issues Graph requests with a caller-supplied bearer token.
type Client struct {
	httpClient   *http.Client
	graphBaseURL string
}

// NewClient creates a Graph client. An empty base URL selects DefaultBaseURL.
func NewClient(httpClient *http.Client, graphBaseURL string) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if graphBaseURL == "" {
		graphBaseURL = DefaultBaseURL
	}
	return &Client{
		httpClient:   httpClient,
		graphBaseURL: strings.TrimRight(graphBaseURL, "/"),
	}
}

// response is a fully read Graph response.
type response struct {
	StatusCode int
	Body       []byte
}

func (r *response) ok() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// do sends a request and reads the whole response body.
func (c *Client) do(ctx context.Context, method, rawURL, token, contentType string, body []byte) (*response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, redactPath(rawURL), err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	return &response{StatusCode: resp.StatusCode, Body: data}, nil
}

// userPath returns the /users/{upn} prefix for a mailbox.
func (c *Client) userPath(upn string) string {
	return fmt.Sprintf("%s/users/%s", c.graphBaseURL, url.PathEscape(strings.TrimSpace(upn)))
}

// redactPath drops the query string so tokens in links never reach logs.
func redactPath(rawURL string) string {
	if i := strings.IndexByte(rawURL, '?'); i >= 0 {
		return rawURL[:i]
	}
	return rawURL
}

// errorResponse is the Graph error envelope.
type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// parseError extracts the Graph error code and message, if the body has them.
func parseError(body []byte) (code, message string) {
	var er errorResponse
	if err := json.Unmarshal(body, &er); err != nil {
		return "", ""
	}
	return er.Error.Code, er.Error.Message
}
