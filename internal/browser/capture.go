package browser

import (
	"strings"
	"sync"

	"github.com/chromedp/cdproto/network"
)

// CapturedResponse identifies one intercepted network response whose body
// is ready to fetch.
type CapturedResponse struct {
	// RequestID is the CDP request id used to fetch the body.
	RequestID network.RequestID

	// URL is the response URL, kept for diagnostics.
	URL string
}

// Capture tracks background responses matching an endpoint substring.
// It is fed CDP events from the session's event listener and drained by
// the collection loop between scrolls, replacing the ambient counters the
// capture logic would otherwise need.
//
// A response becomes ready only after its loadingFinished event: fetching
// a body earlier races the browser's own bookkeeping and returns partial
// or missing data.
type Capture struct {
	mu sync.Mutex

	// match is the URL substring identifying interesting responses.
	match string

	// pending maps in-flight interesting requests to their URL.
	pending map[network.RequestID]string

	// ready holds responses whose bodies can be fetched.
	ready []CapturedResponse

	// seen counts all interesting responses observed, ready or not.
	seen int
}

// NewCapture creates a Capture matching responses whose URL contains match.
func NewCapture(match string) *Capture {
	return &Capture{
		match:   match,
		pending: make(map[network.RequestID]string),
	}
}

// Observe consumes one CDP event. It is safe for concurrent use; chromedp
// delivers events on its own goroutine.
func (c *Capture) Observe(ev any) {
	switch e := ev.(type) {
	case *network.EventResponseReceived:
		if e.Response == nil || !strings.Contains(e.Response.URL, c.match) {
			return
		}
		c.mu.Lock()
		c.pending[e.RequestID] = e.Response.URL
		c.seen++
		c.mu.Unlock()

	case *network.EventLoadingFinished:
		c.mu.Lock()
		if url, ok := c.pending[e.RequestID]; ok {
			delete(c.pending, e.RequestID)
			c.ready = append(c.ready, CapturedResponse{RequestID: e.RequestID, URL: url})
		}
		c.mu.Unlock()

	case *network.EventLoadingFailed:
		c.mu.Lock()
		delete(c.pending, e.RequestID)
		c.mu.Unlock()
	}
}

// TakeReady drains and returns the responses ready for body fetching,
// in arrival order.
func (c *Capture) TakeReady() []CapturedResponse {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.ready
	c.ready = nil
	return out
}

// Seen returns the total number of interesting responses observed.
func (c *Capture) Seen() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seen
}
