package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	// defaultBaseURL is the Anthropic API endpoint.
	defaultBaseURL = "https://api.anthropic.com"

	// messagesPath is the Messages API path.
	messagesPath = "/v1/messages"

	// apiVersion is the anthropic-version header value the client pins.
	apiVersion = "2023-06-01"

	// WebSearchToolType is the server tool type for web search.
	WebSearchToolType = "web_search_20250305"

	// WebSearchToolName is the required name for the web search tool.
	WebSearchToolName = "web_search"
)

// ErrRateLimited is returned (wrapped) when the service signals a rate
// limit and the retry ceiling is exhausted.
var ErrRateLimited = errors.New("rate limited by completion service")

// ErrMissingAPIKey is returned when the client is constructed without a key.
var ErrMissingAPIKey = errors.New("missing API key")

// Message is one conversation turn. Content is either a string (plain user
// text) or []ContentBlock when echoing an assistant turn back.
type Message struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

// Tool describes a server tool made available to the model.
type Tool struct {
	Type string `json:"type"`
	Name string `json:"name,omitempty"`
}

// ContentBlock is one block of a response message. Only the fields the
// enrichment stages inspect are decoded; the rest of the block is kept
// verbatim in Raw so assistant turns can be echoed back losslessly in the
// tool-use loop.
type ContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`

	Raw json.RawMessage `json:"-"`
}

// UnmarshalJSON keeps the raw block alongside the decoded fields.
func (b *ContentBlock) UnmarshalJSON(data []byte) error {
	type alias ContentBlock
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*b = ContentBlock(a)
	b.Raw = append(json.RawMessage(nil), data...)
	return nil
}

// MarshalJSON re-emits the original block when available.
func (b ContentBlock) MarshalJSON() ([]byte, error) {
	if len(b.Raw) > 0 {
		return b.Raw, nil
	}
	type alias ContentBlock
	return json.Marshal(alias(b))
}

// Response is a Messages API response.
type Response struct {
	ID         string         `json:"id"`
	Role       string         `json:"role"`
	Content    []ContentBlock `json:"content"`
	StopReason string         `json:"stop_reason"`
}

// Text joins all text blocks of the response.
func (r *Response) Text() string {
	parts := make([]string, 0, len(r.Content))
	for _, block := range r.Content {
		if block.Text != "" {
			parts = append(parts, block.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// HasToolUse reports whether the response contains tool-use blocks.
// Server tools report type "server_tool_use".
func (r *Response) HasToolUse() bool {
	return r.countToolUses() > 0
}

// countToolUses counts tool-use blocks in the response.
func (r *Response) countToolUses() int {
	n := 0
	for _, block := range r.Content {
		if block.Type == "tool_use" || block.Type == "server_tool_use" {
			n++
		}
	}
	return n
}

// Request is a Messages API request.
type Request struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	Messages  []Message `json:"messages"`
	Tools     []Tool    `json:"tools,omitempty"`
}

// apiError is the error envelope the API returns on non-2xx responses.
type apiError struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Client calls the Messages API with throttling and rate-limit backoff.
// All calls go through a single rate limiter, so the minimum inter-request
// interval holds across stages sharing one client.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	apiKey      string
	maxRetries  int
	backoffBase time.Duration
	limiter     *rate.Limiter
	logger      *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithBaseURL overrides the API endpoint. Used by tests.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithThrottle sets the minimum interval between requests.
// A zero interval disables throttling.
func WithThrottle(interval time.Duration) Option {
	return func(c *Client) {
		if interval > 0 {
			c.limiter = rate.NewLimiter(rate.Every(interval), 1)
		} else {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
		}
	}
}

// WithRetry sets the rate-limit retry ceiling and the base backoff delay.
// The delay doubles after each rate-limited attempt.
func WithRetry(maxRetries int, backoffBase time.Duration) Option {
	return func(c *Client) {
		if maxRetries > 0 {
			c.maxRetries = maxRetries
		}
		if backoffBase >= 0 {
			c.backoffBase = backoffBase
		}
	}
}

// NewClient creates a Messages API client.
func NewClient(apiKey string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, ErrMissingAPIKey
	}

	c := &Client{
		httpClient:  &http.Client{Timeout: 5 * time.Minute},
		baseURL:     defaultBaseURL,
		apiKey:      apiKey,
		maxRetries:  3,
		backoffBase: 10 * time.Second,
		limiter:     rate.NewLimiter(rate.Every(time.Second), 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c, nil
}

// CreateMessage sends one Messages API request. The request is throttled,
// and rate-limit responses are retried with exponential backoff up to the
// configured ceiling, after which the error propagates wrapped around
// ErrRateLimited.
func (c *Client) CreateMessage(ctx context.Context, req Request) (*Response, error) {
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		resp, err := c.send(ctx, req)
		if err == nil {
			return resp, nil
		}
		if !errors.Is(err, ErrRateLimited) {
			return nil, err
		}
		if attempt == c.maxRetries-1 {
			return nil, err
		}

		delay := c.backoffBase * (1 << attempt)
		c.logger.Warn("rate limited, backing off",
			"attempt", attempt+1,
			"delay", delay,
		)
		if err := sleepCtx(ctx, delay); err != nil {
			return nil, err
		}
	}
	return nil, ErrRateLimited
}

// send performs a single HTTP round trip.
func (c *Client) send(ctx context.Context, req Request) (*Response, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+messagesPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", apiVersion)

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer httpResp.Body.Close() //nolint:errcheck // Response body

	respBody, err := io.ReadAll(io.LimitReader(httpResp.Body, 10<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if httpResp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("%w: %s", ErrRateLimited, apiErrorMessage(respBody))
	}
	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return nil, fmt.Errorf("completion service returned %d: %s",
			httpResp.StatusCode, apiErrorMessage(respBody))
	}

	var resp Response
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &resp, nil
}

// CompleteWithSearch runs a prompt with the web-search tool enabled,
// following the tool-use loop until the model answers in text or the tool
// budget runs out, at which point a final answer is forced without tools.
func (c *Client) CompleteWithSearch(ctx context.Context, model, prompt string, maxTokens, maxToolUses int) (*Response, error) {
	tools := []Tool{{Type: WebSearchToolType, Name: WebSearchToolName}}
	messages := []Message{{Role: "user", Content: prompt}}

	toolUses := 0
	for {
		resp, err := c.CreateMessage(ctx, Request{
			Model:     model,
			MaxTokens: maxTokens,
			Messages:  messages,
			Tools:     tools,
		})
		if err != nil {
			return nil, err
		}

		if !resp.HasToolUse() {
			return resp, nil
		}

		toolUses += resp.countToolUses()
		messages = append(messages, Message{Role: "assistant", Content: resp.Content})

		if toolUses >= maxToolUses {
			messages = append(messages, Message{
				Role:    "user",
				Content: "Please provide your final answer based on the information gathered.",
			})
			return c.CreateMessage(ctx, Request{
				Model:     model,
				MaxTokens: maxTokens,
				Messages:  messages,
			})
		}
	}
}

// apiErrorMessage extracts the error message from an API error body,
// falling back to the raw body when it does not decode.
func apiErrorMessage(body []byte) string {
	var ae apiError
	if err := json.Unmarshal(body, &ae); err == nil && ae.Error.Message != "" {
		return ae.Error.Message
	}
	trimmed := strings.TrimSpace(string(body))
	if len(trimmed) > 200 {
		trimmed = trimmed[:200]
	}
	return trimmed
}

// sleepCtx sleeps for d or until the context is cancelled.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
