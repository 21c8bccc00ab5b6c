// Package fotocasa drives a browser through Fotocasa search and listing pages.
//
// Every page visit follows the same lifecycle:
//
//	START → LOADED → BLOCKED (abort the whole run)
//	               → READY → POPUP_DISMISSED → SCROLLED → EXTRACTED/COUNTED
//
// There are no retries. A block page ends the run; any other page failure
// drops only the current item.
package fotocasa

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fotocasa-scraper/browser"
	"fotocasa-scraper/config"
	"fotocasa-scraper/utils"
)

// ErrBlocked is returned when the site serves its automated-traffic page.
var ErrBlocked = errors.New("fotocasa: page blocked")

// documentHeightJS returns the full scrollable height of the page.
const documentHeightJS = `Math.max(document.body.scrollHeight, document.body.offsetHeight, document.documentElement.clientHeight, document.documentElement.scrollHeight, document.documentElement.offsetHeight)`

const defaultScrollStep = 500

// Options holds everything the scraper needs from configuration.
type Options struct {
	Schema            config.PageSchema
	Pacing            config.Pacing
	WaitTimeout       time.Duration
	SeedScrollStep    int
	ExtractScrollStep int
	MaxItemsPerURL    int
}

// OptionsFromConfig extracts scraper options from the application config.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Schema:            cfg.Schema,
		Pacing:            cfg.Pacing,
		WaitTimeout:       cfg.WaitTimeout,
		SeedScrollStep:    cfg.SeedScrollStep,
		ExtractScrollStep: cfg.ExtractScrollStep,
		MaxItemsPerURL:    cfg.MaxItemsPerURL,
	}
}

// Scraper runs the seeding, extraction and counting stages. It is not safe
// for concurrent use; stages process one URL at a time.
type Scraper struct {
	opts     Options
	launcher browser.Launcher
	pacer    *utils.Pacer
	logger   *utils.Logger
	now      func() time.Time
}

// New creates a ready-to-use Fotocasa Scraper.
func New(opts Options, launcher browser.Launcher, pacer *utils.Pacer, logger *utils.Logger) *Scraper {
	if opts.WaitTimeout <= 0 {
		opts.WaitTimeout = 10 * time.Second
	}
	return &Scraper{
		opts:     opts,
		launcher: launcher,
		pacer:    pacer,
		logger:   logger,
		now:      time.Now,
	}
}

// loadPage navigates to url and brings the page to POPUP_DISMISSED.
// It returns ErrBlocked when the block marker is present.
func (s *Scraper) loadPage(ctx context.Context, d browser.Driver, url string) error {
	if err := d.Navigate(ctx, url); err != nil {
		return err
	}
	if err := s.pacer.Pause(ctx, s.opts.Pacing.AfterNavigate); err != nil {
		return err
	}

	blocked, err := d.Exists(ctx, s.opts.Schema.BlockMarker)
	if err != nil {
		return err
	}
	if blocked {
		return ErrBlocked
	}

	if err := d.WaitFor(ctx, s.opts.Schema.AppRoot, s.opts.WaitTimeout); err != nil {
		return fmt.Errorf("page not ready: %w", err)
	}

	s.dismissConsent(ctx, d)
	return nil
}

// dismissConsent clicks the cookie banner if it shows up. Failure is ignored.
func (s *Scraper) dismissConsent(ctx context.Context, d browser.Driver) {
	if err := d.ClickWhenReady(ctx, s.opts.Schema.ConsentButton, s.opts.WaitTimeout); err != nil {
		s.logger.Warn("[fotocasa] Could not dismiss consent popup: %v", err)
	}
}

// scrollToBottom scrolls the full document height in fixed steps, pausing
// after each step so lazy content can load.
func (s *Scraper) scrollToBottom(ctx context.Context, d browser.Driver, step int, pause utils.Range) error {
	if step <= 0 {
		step = defaultScrollStep
	}

	var height int
	if err := d.Evaluate(ctx, documentHeightJS, &height); err != nil {
		return fmt.Errorf("read page height: %w", err)
	}

	for y := 0; y < height; y += step {
		if err := d.Evaluate(ctx, fmt.Sprintf("window.scrollTo(0, %d);", y), nil); err != nil {
			return fmt.Errorf("scroll to %d: %w", y, err)
		}
		if err := s.pacer.Pause(ctx, pause); err != nil {
			return err
		}
	}
	s.logger.Debug("[fotocasa] Scrolled %dpx in %dpx steps", height, step)
	return nil
}

// readCount reads the advertised number of results. A missing or unreadable
// heading counts as zero.
func (s *Scraper) readCount(ctx context.Context, d browser.Driver) int {
	for _, sel := range []string{s.opts.Schema.CounterHeading, s.opts.Schema.CounterHeadingFallback} {
		if sel == "" {
			continue
		}
		text, err := d.Text(ctx, sel)
		if err != nil {
			continue
		}
		return ParseCount(text)
	}
	return 0
}
