package browser

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

// userAgent is a realistic desktop Chrome user agent. The directory site
// serves automation-flagged browsers an empty shell, so the session avoids
// advertising itself.
const userAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) " +
	"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

// nextPageSelectors are tried in order when triggering pagination.
// Absence of any of them is not an error; most letters paginate purely
// through scroll-triggered fetches.
var nextPageSelectors = []string{
	`a[aria-label*="next"]`,
	`button[aria-label*="next"]`,
	`.pagination a:last-child`,
}

// ErrNoNextPage is returned by ClickNext when no pagination control exists.
var ErrNoNextPage = errors.New("no next-page control found")

// clickTimeout bounds each pagination click attempt. Click polls the page
// until a matching node appears, so without a deadline a letter with no
// pagination control would block forever.
const clickTimeout = 2 * time.Second

// Session is one exclusively-owned browser session. It is acquired at the
// start of a letter iteration and must be closed on every exit path.
type Session struct {
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
	click       func(ctx context.Context, sel string) error
}

// NewSession launches a Chrome session with network monitoring enabled.
// The CHROME_PATH environment variable overrides the browser binary.
func NewSession(parent context.Context, headless bool) (*Session, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-notifications", true),
		chromedp.Flag("disable-popup-blocking", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.UserAgent(userAgent),
		chromedp.WindowSize(1920, 1080),
	)

	if path := os.Getenv("CHROME_PATH"); path != "" {
		opts = append(opts, chromedp.ExecPath(path))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(parent, opts...)
	ctx, cancel := chromedp.NewContext(allocCtx)

	s := &Session{ctx: ctx, cancel: cancel, allocCancel: allocCancel}
	s.click = s.chromedpClick

	// Starting the network domain also forces the browser process to start,
	// surfacing launch failures here instead of on first navigation.
	if err := chromedp.Run(ctx, network.Enable()); err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to start browser session: %w", err)
	}

	return s, nil
}

// Listen feeds CDP network events into the capture. Must be called before
// navigation or early responses are missed.
func (s *Session) Listen(capture *Capture) {
	chromedp.ListenTarget(s.ctx, capture.Observe)
}

// Navigate loads the given URL and waits for the document body.
func (s *Session) Navigate(url string) error {
	if err := chromedp.Run(s.ctx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	); err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	return nil
}

// ScrollToBottom scrolls the window to the document end, triggering the
// site's lazy result loading.
func (s *Session) ScrollToBottom() error {
	if err := chromedp.Run(s.ctx,
		chromedp.Evaluate(`window.scrollTo(0, document.body.scrollHeight);`, nil),
	); err != nil {
		return fmt.Errorf("failed to scroll: %w", err)
	}
	return nil
}

// ClickNext attempts the known pagination controls in order. Each attempt
// runs under clickTimeout. Returns ErrNoNextPage when none can be clicked.
func (s *Session) ClickNext() error {
	for _, sel := range nextPageSelectors {
		ctx, cancel := context.WithTimeout(s.ctx, clickTimeout)
		err := s.click(ctx, sel)
		cancel()
		if err == nil {
			return nil
		}
	}
	return ErrNoNextPage
}

func (s *Session) chromedpClick(ctx context.Context, sel string) error {
	return chromedp.Run(ctx, chromedp.Click(sel, chromedp.ByQuery, chromedp.NodeVisible))
}

// ResponseBody fetches the body of an intercepted response by request id.
func (s *Session) ResponseBody(id network.RequestID) ([]byte, error) {
	var body []byte
	err := chromedp.Run(s.ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		body, err = network.GetResponseBody(id).Do(ctx)
		return err
	}))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch response body: %w", err)
	}
	return body, nil
}

// Close quits the browser and releases the allocator. Safe to call more
// than once.
func (s *Session) Close() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	if s.allocCancel != nil {
		s.allocCancel()
		s.allocCancel = nil
	}
}
