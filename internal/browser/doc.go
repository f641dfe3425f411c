// Package browser wraps chromedp with the narrow surface the collector
// needs: navigate, scroll, click, observe background network responses,
// and fetch intercepted response bodies by request id. The session owns
// the Chrome process and releases it on Close regardless of how the
// collection loop ends.
package browser
