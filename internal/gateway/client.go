// Package gateway is the typed client for the cashier server. Every
// mutating call returns the server's full cart snapshot; callers replace
// their local state from it instead of predicting the outcome.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
)

const (
	headerCSRF          = "X-CSRFToken"
	headerCorrelationID = "X-Correlation-Id"
	headerRequestedWith = "X-Requested-With"

	// maxBody bounds how much of a response we are willing to read.
	maxBody = 1 << 20
)

type Client struct {
	base       *url.URL
	http       *http.Client
	tokens     TokenSource
	registerID string
	logger     *log.Logger
}

func New(baseURL string, httpClient *http.Client, tokens TokenSource, registerID string, logger *log.Logger) *Client {
	u, err := url.Parse(baseURL)
	if err != nil {
		// Fail fast: config error
		panic(fmt.Sprintf("invalid cashier base url %q: %v", baseURL, err))
	}
	return &Client{
		base:       u,
		http:       httpClient,
		tokens:     tokens,
		registerID: registerID,
		logger:     logger,
	}
}

// doJSON performs one round trip and decodes the JSON response into out.
// Non-JSON or unparseable bodies become *MalformedResponseError; {error}
// payloads and non-2xx statuses become *RejectionError; transport failures
// are wrapped and returned as-is. out may be nil when the caller only cares
// about success.
func (c *Client) doJSON(ctx context.Context, method, path, rawQuery string, body, out any) error {
	rel := &url.URL{Path: path, RawQuery: rawQuery}
	u := c.base.ResolveReference(rel)

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return err
	}
	req.Header.Set(headerCorrelationID, uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if method != http.MethodGet {
		// Token is read fresh per request; the server rotates it.
		req.Header.Set(headerCSRF, c.tokens.Token())
		req.Header.Set(headerRequestedWith, "XMLHttpRequest")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("call cashier server: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return fmt.Errorf("read cashier response: %w", err)
	}

	ct := resp.Header.Get("Content-Type")
	if !strings.Contains(ct, "application/json") {
		c.logger.Printf("non-json response from %s: status=%d", path, resp.StatusCode)
		return &MalformedResponseError{Status: resp.StatusCode, Snippet: snippet(raw)}
	}

	var env struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return &MalformedResponseError{Status: resp.StatusCode, Snippet: snippet(raw)}
	}
	if env.Error != "" || resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &RejectionError{Status: resp.StatusCode, Message: env.Error}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &MalformedResponseError{Status: resp.StatusCode, Snippet: snippet(raw)}
	}
	return nil
}
