package collector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/chromedp/cdproto/network"

	"github.com/croneb/leadscan/internal/browser"
	"github.com/croneb/leadscan/internal/config"
	"github.com/croneb/leadscan/internal/csvio"
	"github.com/croneb/leadscan/internal/model"
)

// page is the browser surface the scroll loop needs. *browser.Session
// satisfies it; tests substitute a fake.
type page interface {
	ScrollToBottom() error
	ResponseBody(id network.RequestID) ([]byte, error)
}

// captureLog is the capture surface the scroll loop drains.
type captureLog interface {
	TakeReady() []browser.CapturedResponse
}

// LetterResult summarizes one letter iteration.
type LetterResult struct {
	// Letter is the starting letter scraped.
	Letter string `json:"letter"`

	// Records is the number of unique records the letter contributed.
	Records int `json:"records"`

	// Captures is the number of result responses intercepted.
	Captures int `json:"captures"`

	// Err holds the letter's failure, if any. A failed letter contributes
	// nothing but does not abort the run.
	Err string `json:"error,omitempty"`
}

// Result is the outcome of a collection run.
type Result struct {
	// Started and Finished bound the run.
	Started  time.Time `json:"started"`
	Finished time.Time `json:"finished"`

	// Letters holds per-letter outcomes in iteration order.
	Letters []LetterResult `json:"letters"`

	// Records is the deduplicated accumulated record list.
	Records []model.Record `json:"-"`

	// OutputPath is the CSV file the records were written to.
	OutputPath string `json:"output"`
}

// TotalCaptures sums intercepted responses across letters.
func (r *Result) TotalCaptures() int {
	n := 0
	for _, l := range r.Letters {
		n += l.Captures
	}
	return n
}

// Collector scrapes the directory one starting letter at a time.
// One browser session is owned per letter and closed on all exit paths;
// nothing is shared between letter iterations except the accumulated
// record list.
type Collector struct {
	cfg    *config.Config
	logger *slog.Logger

	// sleep is replaceable in tests to skip the settle pauses.
	sleep func(ctx context.Context, d time.Duration) error

	// newSession is replaceable in tests to avoid launching Chrome.
	newSession func(ctx context.Context, headless bool) (*browser.Session, error)
}

// Option configures a Collector.
type Option func(*Collector)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Collector) { c.logger = logger }
}

// New creates a Collector for the given configuration.
func New(cfg *config.Config, opts ...Option) *Collector {
	c := &Collector{
		cfg:        cfg,
		sleep:      sleepCtx,
		newSession: browser.NewSession,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// Run scrapes every configured letter and writes the deduplicated records
// to the collector output CSV. A letter's failure is contained: it is
// recorded in the result and the run continues. The output file is written
// on every path, so even a run that collected nothing leaves a well-formed
// header-only CSV behind. Callers must not depend on non-emptiness.
func (c *Collector) Run(ctx context.Context) (*Result, error) {
	result := &Result{
		Started:    time.Now(),
		OutputPath: c.cfg.CollectorOutput,
	}

	sink, err := newPayloadSink(c.cfg.CaptureDir)
	if err != nil {
		result.Finished = time.Now()
		if werr := c.writeOutput(result); werr != nil {
			c.logger.Error("failed to write output after setup failure", "error", werr)
		}
		return result, err
	}

	for _, r := range c.cfg.Letters {
		letter := string(r)

		if err := ctx.Err(); err != nil {
			c.logger.Warn("collection cancelled", "letter", letter)
			break
		}

		c.logger.Info("scraping letter", "letter", letter)

		records, captures, err := c.scrapeLetter(ctx, letter, sink)
		lr := LetterResult{Letter: letter, Captures: captures}
		if err != nil {
			lr.Err = err.Error()
			c.logger.Warn("letter failed", "letter", letter, "error", err)
		}

		before := len(result.Records)
		result.Records = model.Dedup(append(result.Records, records...))
		lr.Records = len(result.Records) - before
		result.Letters = append(result.Letters, lr)

		c.logger.Info("letter done",
			"letter", letter,
			"new_records", lr.Records,
			"total_records", len(result.Records),
		)
	}

	result.Finished = time.Now()

	if len(result.Records) == 0 {
		c.logger.Warn("no records extracted; check raw payloads",
			"capture_dir", c.cfg.CaptureDir,
		)
	}

	if err := c.writeOutput(result); err != nil {
		return result, err
	}
	return result, nil
}

// writeOutput writes the accumulated records with the base header.
func (c *Collector) writeOutput(result *Result) error {
	if err := csvio.WriteRecords(result.OutputPath, model.BaseColumns, result.Records); err != nil {
		return fmt.Errorf("failed to write collector output: %w", err)
	}
	return nil
}

// scrapeLetter runs one letter iteration in a fresh browser session.
// The session is closed before returning, success or not.
func (c *Collector) scrapeLetter(ctx context.Context, letter string, sink *payloadSink) ([]model.Record, int, error) {
	session, err := c.newSession(ctx, c.cfg.Headless)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to acquire browser session: %w", err)
	}
	defer session.Close()

	capture := browser.NewCapture(c.cfg.EndpointMatch)
	session.Listen(capture)

	url := fmt.Sprintf(c.cfg.SearchURLPattern, letter)
	c.logger.Debug("navigating", "url", url)
	if err := session.Navigate(url); err != nil {
		return nil, capture.Seen(), err
	}
	if err := c.sleep(ctx, c.cfg.SettlePause); err != nil {
		return nil, capture.Seen(), err
	}

	var all []model.Record
	for {
		records, err := c.collectPass(ctx, session, capture, sink)
		all = append(all, records...)
		if err != nil {
			return model.Dedup(all), capture.Seen(), err
		}
		if len(records) == 0 {
			break
		}

		// Secondary pagination trigger between scroll passes. Most letters
		// load everything through scrolling; a missing control is normal.
		if err := session.ClickNext(); err != nil {
			if !errors.Is(err, browser.ErrNoNextPage) {
				c.logger.Debug("next-page click failed", "error", err)
			}
		} else if err := c.sleep(ctx, c.cfg.SettlePause); err != nil {
			return model.Dedup(all), capture.Seen(), err
		}
	}

	return model.Dedup(all), capture.Seen(), nil
}

// collectPass scrolls until the scroll ceiling or until StaleScrolls
// consecutive scrolls produce no new records, draining captured responses
// after each scroll. Failures on individual responses are logged and
// skipped; they never abort the pass.
func (c *Collector) collectPass(ctx context.Context, p page, capture captureLog, sink *payloadSink) ([]model.Record, error) {
	var records []model.Record
	stale := 0

	for attempt := 0; attempt < c.cfg.MaxScrolls; attempt++ {
		if err := ctx.Err(); err != nil {
			return records, err
		}

		if err := p.ScrollToBottom(); err != nil {
			c.logger.Warn("scroll failed", "error", err)
		}
		if err := c.sleep(ctx, c.cfg.ScrollPause); err != nil {
			return records, err
		}

		added := 0
		for _, resp := range capture.TakeReady() {
			recs, err := c.processResponse(p, resp, sink)
			if err != nil {
				c.logger.Warn("failed to process captured response",
					"url", resp.URL,
					"error", err,
				)
				continue
			}
			records = append(records, recs...)
			added += len(recs)
		}

		if added > 0 {
			stale = 0
			c.logger.Debug("scroll produced records",
				"attempt", attempt+1,
				"new", added,
				"total", len(records),
			)
			continue
		}

		stale++
		if stale >= c.cfg.StaleScrolls {
			c.logger.Debug("no new records, stopping pass", "stale_scrolls", stale)
			break
		}
	}

	return records, nil
}

// processResponse fetches, persists, and extracts one captured response.
// Persistence failures are logged but do not discard the extraction.
func (c *Collector) processResponse(p page, resp browser.CapturedResponse, sink *payloadSink) ([]model.Record, error) {
	body, err := p.ResponseBody(resp.RequestID)
	if err != nil {
		return nil, err
	}

	if path, err := sink.save(body); err != nil {
		c.logger.Warn("failed to persist raw payload", "error", err)
	} else {
		c.logger.Debug("saved raw payload", "path", path)
	}

	return ExtractRecords(body), nil
}

// sleepCtx sleeps for d or until the context is cancelled.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
