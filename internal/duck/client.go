// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package duck

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
)

// =============================================================================
// Wire constants
// =============================================================================

const (
	// DefaultBaseURL is the production duckchat backend.
	DefaultBaseURL = "https://duckduckgo.com"

	// DefaultUserAgent mimics a plain curl invocation; the backend rejects
	// unfamiliar agents.
	DefaultUserAgent = "curl/7.81.0"

	// DefaultTimeout bounds the token priming request. Chat streams are
	// bounded by the caller's context instead, since a reply can
	// legitimately take longer than any fixed request timeout.
	DefaultTimeout = 30 * time.Second

	statusPath = "/duckchat/v1/status"
	chatPath   = "/duckchat/v1/chat"

	// tokenHeader carries the continuation token in both directions.
	tokenHeader = "x-vqd-4"
	// tokenAcceptHeader asks the status endpoint to issue a token.
	tokenAcceptHeader = "x-vqd-accept"

	frameDelimiter = "\n\n"
)

// =============================================================================
// Shared HTTP clients
// =============================================================================

// Shared transports with connection pooling. Neither client carries a fixed
// timeout: the priming request is bounded by a per-request context deadline
// (EnsureToken), and a http.Client.Timeout on the streaming client would
// cover the entire body read and kill long replies mid-stream.
var (
	statusHTTPClient = &http.Client{
		Transport: newPooledTransport(),
	}

	streamHTTPClient = &http.Client{
		Transport: newPooledTransport(),
	}
)

func newPooledTransport() *http.Transport {
	return &http.Transport{
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 5,
		IdleConnTimeout:     90 * time.Second,
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
	}
}

// =============================================================================
// Client
// =============================================================================

// Client talks to the duckchat backend. The zero-value-adjacent NewClient
// gives production defaults; options override them for tests and config.
type Client struct {
	baseURL   string
	userAgent string
	timeout   time.Duration
	verbose   bool
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at a different backend.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithTimeout overrides the token priming timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithVerbose enables request/response logging to the standard logger.
func WithVerbose(v bool) Option {
	return func(c *Client) {
		c.verbose = v
	}
}

// NewClient builds a client with production defaults.
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL:   DefaultBaseURL,
		userAgent: DefaultUserAgent,
		timeout:   DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// EnsureToken returns a continuation token usable for the next chat request.
// A non-empty token is returned unchanged without any network traffic; an
// empty one triggers a priming request against the status endpoint.
func (c *Client) EnsureToken(ctx context.Context, token string) (string, error) {
	if token != "" {
		return token, nil
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+statusPath, nil)
	if err != nil {
		return "", &TransportError{Op: "status", Err: err}
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set(tokenAcceptHeader, "1")

	c.logRequest(req)

	resp, err := statusHTTPClient.Do(req)
	if err != nil {
		return "", &TransportError{Op: "status", Err: err}
	}
	defer resp.Body.Close()
	// Drain so the connection returns to the pool.
	io.Copy(io.Discard, resp.Body)

	c.logResponse("status", resp)

	fresh := resp.Header.Get(tokenHeader)
	if fresh == "" {
		return "", &TokenAcquisitionError{
			Op:     "status",
			Reason: fmt.Sprintf("response missing %s header (HTTP %d)", tokenHeader, resp.StatusCode),
		}
	}
	return fresh, nil
}

// FragmentFunc receives reply fragments as they arrive, before the turn is
// known to have completed. Callers must treat flushed text as provisional.
type FragmentFunc func(fragment string)

// TurnResult is the outcome of a successfully completed stream.
type TurnResult struct {
	// Reply is the concatenation of every text fragment, in order.
	Reply string
	// NextToken is the rotated continuation token for the following turn.
	NextToken string
	// Terminal reports whether the stream ended with the end-of-stream
	// sentinel rather than plain EOF.
	Terminal bool
	// Diagnostic is any text the backend appended to the sentinel.
	Diagnostic string
}

// Stream sends the conversation to the chat endpoint and consumes the
// response stream, invoking onFragment for each piece of reply text. It
// returns once the stream ends. The state's continuation token must already
// be populated; Stream never persists anything.
func (c *Client) Stream(ctx context.Context, state *ConversationState, onFragment FragmentFunc) (*TurnResult, error) {
	body, err := json.Marshal(chatRequest{Model: state.Model, Messages: state.Messages})
	if err != nil {
		return nil, fmt.Errorf("failed to encode chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+chatPath, bytes.NewReader(body))
	if err != nil {
		return nil, &TransportError{Op: "chat", Err: err}
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set(tokenHeader, state.ContinuationToken)

	c.logRequest(req)

	resp, err := streamHTTPClient.Do(req)
	if err != nil {
		return nil, &TransportError{Op: "chat", Err: err}
	}
	defer resp.Body.Close()

	c.logResponse("chat", resp)

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, &TransportError{
			Op:  "chat",
			Err: fmt.Errorf("unexpected status %s", resp.Status),
		}
	}

	result, err := c.consumeStream(resp.Body, onFragment)
	if err != nil {
		return nil, err
	}

	// The stream is complete when it produced text or ended with the
	// sentinel. A completed turn without a rotated token cannot be
	// continued, so treat that as a token failure rather than success.
	if result.Reply == "" && !result.Terminal {
		return nil, ErrEmptyStream
	}

	result.NextToken = resp.Header.Get(tokenHeader)
	if result.NextToken == "" {
		return nil, &TokenAcquisitionError{
			Op:     "chat",
			Reason: fmt.Sprintf("completed response missing %s header", tokenHeader),
		}
	}
	return result, nil
}

// consumeStream reads the body chunk by chunk, reassembles frames, and
// decodes them until the terminal sentinel or EOF.
func (c *Client) consumeStream(body io.Reader, onFragment FragmentFunc) (*TurnResult, error) {
	splitter, err := NewFrameSplitter([]byte(frameDelimiter))
	if err != nil {
		return nil, err
	}

	var reply strings.Builder
	result := &TurnResult{}

	chunk := make([]byte, 4096)
	for {
		n, readErr := body.Read(chunk)
		if n > 0 {
			for _, frame := range splitter.Push(chunk[:n]) {
				ev, decErr := DecodeFrame(frame)
				if decErr != nil {
					return nil, decErr
				}
				switch ev.Kind {
				case EventTextFragment:
					reply.WriteString(ev.Fragment)
					if onFragment != nil {
						onFragment(ev.Fragment)
					}
				case EventTerminal:
					result.Terminal = true
					result.Diagnostic = ev.Diagnostic
					result.Reply = reply.String()
					return result, nil
				}
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return nil, &TransportError{Op: "chat", Err: readErr}
		}
	}

	result.Reply = reply.String()
	return result, nil
}

// =============================================================================
// Logging
// =============================================================================

func (c *Client) logRequest(req *http.Request) {
	if !c.verbose {
		return
	}
	log.Printf("request: %s %s", req.Method, req.URL)
}

func (c *Client) logResponse(op string, resp *http.Response) {
	if !c.verbose {
		return
	}
	log.Printf("response: %s %s (%s present: %t)", op, resp.Status, tokenHeader, resp.Header.Get(tokenHeader) != "")
}
