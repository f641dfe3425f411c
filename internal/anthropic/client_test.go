package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

// textResponse builds a minimal Messages API response body with one text block.
func textResponse(text string) string {
	return `{"id":"msg_1","role":"assistant","stop_reason":"end_turn",` +
		`"content":[{"type":"text","text":"` + text + `"}]}`
}

// newTestClient creates a client pointed at a test server with fast retries.
func newTestClient(t *testing.T, url string) *Client {
	t.Helper()

	c, err := NewClient("sk-ant-test",
		WithBaseURL(url),
		WithThrottle(0),
		WithRetry(3, time.Millisecond),
	)
	if err != nil {
		t.Fatalf("NewClient() error: %v", err)
	}
	return c
}

// TestNewClient tests constructor validation.
func TestNewClient(t *testing.T) {
	t.Parallel()

	t.Run("rejects empty key", func(t *testing.T) {
		t.Parallel()

		if _, err := NewClient("  "); !errors.Is(err, ErrMissingAPIKey) {
			t.Errorf("expected ErrMissingAPIKey, got %v", err)
		}
	})
}

// TestCreateMessage tests the request/response round trip.
func TestCreateMessage(t *testing.T) {
	t.Parallel()

	t.Run("sends headers and decodes text", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/v1/messages" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			if r.Header.Get("x-api-key") != "sk-ant-test" {
				t.Errorf("missing api key header")
			}
			if r.Header.Get("anthropic-version") == "" {
				t.Errorf("missing anthropic-version header")
			}

			var req Request
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Errorf("failed to decode request: %v", err)
			}
			if len(req.Tools) != 1 || req.Tools[0].Type != WebSearchToolType {
				t.Errorf("tools = %+v", req.Tools)
			}

			_, _ = w.Write([]byte(textResponse("hello")))
		}))
		defer srv.Close()

		c := newTestClient(t, srv.URL)
		resp, err := c.CreateMessage(context.Background(), Request{
			Model:     "test-model",
			MaxTokens: 100,
			Messages:  []Message{{Role: "user", Content: "hi"}},
			Tools:     []Tool{{Type: WebSearchToolType, Name: WebSearchToolName}},
		})
		if err != nil {
			t.Fatalf("CreateMessage() error: %v", err)
		}
		if got := resp.Text(); got != "hello" {
			t.Errorf("Text() = %q, want hello", got)
		}
	})

	t.Run("retries on 429 then succeeds", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			if calls.Add(1) < 3 {
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = w.Write([]byte(`{"error":{"type":"rate_limit_error","message":"slow down"}}`))
				return
			}
			_, _ = w.Write([]byte(textResponse("ok")))
		}))
		defer srv.Close()

		c := newTestClient(t, srv.URL)
		resp, err := c.CreateMessage(context.Background(), Request{Model: "m", MaxTokens: 10})
		if err != nil {
			t.Fatalf("CreateMessage() error: %v", err)
		}
		if resp.Text() != "ok" {
			t.Errorf("Text() = %q", resp.Text())
		}
		if calls.Load() != 3 {
			t.Errorf("expected 3 calls, got %d", calls.Load())
		}
	})

	t.Run("propagates after retry ceiling", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer srv.Close()

		c := newTestClient(t, srv.URL)
		_, err := c.CreateMessage(context.Background(), Request{Model: "m", MaxTokens: 10})
		if !errors.Is(err, ErrRateLimited) {
			t.Fatalf("expected ErrRateLimited, got %v", err)
		}
		if calls.Load() != 3 {
			t.Errorf("expected 3 attempts, got %d", calls.Load())
		}
	})

	t.Run("non-429 errors are not retried", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":{"type":"invalid_request_error","message":"bad"}}`))
		}))
		defer srv.Close()

		c := newTestClient(t, srv.URL)
		_, err := c.CreateMessage(context.Background(), Request{Model: "m", MaxTokens: 10})
		if err == nil || errors.Is(err, ErrRateLimited) {
			t.Fatalf("expected non-rate-limit error, got %v", err)
		}
		if calls.Load() != 1 {
			t.Errorf("expected 1 attempt, got %d", calls.Load())
		}
	})
}

// TestCompleteWithSearch tests the tool-use loop.
func TestCompleteWithSearch(t *testing.T) {
	t.Parallel()

	t.Run("returns directly without tool use", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(textResponse("answer")))
		}))
		defer srv.Close()

		c := newTestClient(t, srv.URL)
		resp, err := c.CompleteWithSearch(context.Background(), "m", "prompt", 100, 3)
		if err != nil {
			t.Fatalf("CompleteWithSearch() error: %v", err)
		}
		if resp.Text() != "answer" {
			t.Errorf("Text() = %q", resp.Text())
		}
	})

	t.Run("forces final answer after tool budget", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			n := calls.Add(1)

			var req Request
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Errorf("failed to decode request: %v", err)
			}

			if n <= 2 {
				// Two rounds of searching.
				_, _ = w.Write([]byte(`{"id":"msg","role":"assistant","stop_reason":"tool_use",` +
					`"content":[{"type":"server_tool_use","id":"tu_1","name":"web_search",` +
					`"input":{"query":"realtor email"}}]}`))
				return
			}

			// Third call must carry no tools and the forcing user turn.
			if len(req.Tools) != 0 {
				t.Errorf("final call should not carry tools, got %+v", req.Tools)
			}
			last := req.Messages[len(req.Messages)-1]
			if last.Role != "user" {
				t.Errorf("final turn role = %s, want user", last.Role)
			}
			_, _ = w.Write([]byte(textResponse("forced answer")))
		}))
		defer srv.Close()

		c := newTestClient(t, srv.URL)
		resp, err := c.CompleteWithSearch(context.Background(), "m", "prompt", 100, 2)
		if err != nil {
			t.Fatalf("CompleteWithSearch() error: %v", err)
		}
		if resp.Text() != "forced answer" {
			t.Errorf("Text() = %q", resp.Text())
		}
		if calls.Load() != 3 {
			t.Errorf("expected 3 calls, got %d", calls.Load())
		}
	})
}

// TestResponseText tests text block joining.
func TestResponseText(t *testing.T) {
	t.Parallel()

	var resp Response
	body := `{"content":[{"type":"text","text":"a"},{"type":"server_tool_use","id":"x"},{"type":"text","text":"b"}]}`
	if err := json.Unmarshal([]byte(body), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if got := resp.Text(); got != "a\nb" {
		t.Errorf("Text() = %q, want a\\nb", got)
	}
	if !resp.HasToolUse() {
		t.Error("HasToolUse() = false")
	}
}
