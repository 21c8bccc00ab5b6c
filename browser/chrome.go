package browser

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/chromedp"

	"fotocasa-scraper/utils"
)

// ChromeOptions configures the Chrome sessions a ChromeLauncher opens.
type ChromeOptions struct {
	ChromeBin   string
	Headless    bool
	Width       int
	Height      int
	UserAgents  []string
	PageTimeout time.Duration
}

// ChromeLauncher opens incognito Chrome sessions through chromedp, each with a
// user agent picked at random from the rotation list.
type ChromeLauncher struct {
	opts   ChromeOptions
	pacer  *utils.Pacer
	logger *utils.Logger
}

// NewChromeLauncher creates a launcher. The pacer supplies the user-agent choice.
func NewChromeLauncher(opts ChromeOptions, pacer *utils.Pacer, logger *utils.Logger) *ChromeLauncher {
	if opts.PageTimeout <= 0 {
		opts.PageTimeout = 5 * time.Minute
	}
	return &ChromeLauncher{opts: opts, pacer: pacer, logger: logger}
}

// Launch starts a browser process and opens a tab.
func (l *ChromeLauncher) Launch(ctx context.Context) (Driver, error) {
	chromeBin := l.opts.ChromeBin
	if chromeBin == "" {
		chromeBin = findChromeBinary()
	}
	userAgent := l.pacer.PickString(l.opts.UserAgents)
	l.logger.Debug("[browser] Launching %s (headless=%t) as %q", chromeBin, l.opts.Headless, userAgent)

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", l.opts.Headless),
		chromedp.Flag("incognito", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("enable-automation", false),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if l.opts.Width > 0 && l.opts.Height > 0 {
		opts = append(opts, chromedp.WindowSize(l.opts.Width, l.opts.Height))
	}
	if userAgent != "" {
		opts = append(opts, chromedp.UserAgent(userAgent))
	}
	if chromeBin != "" {
		opts = append(opts, chromedp.ExecPath(chromeBin))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)

	// Suppress chromedp log noise
	tabCtx, cancelTab := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))

	c := &Chrome{
		ctx:         tabCtx,
		pageTimeout: l.opts.PageTimeout,
		release: func() {
			cancelTab()
			cancelAlloc()
		},
	}

	// The first Run starts the browser process on tabCtx itself; a timeout on
	// that context would kill the browser once Run returns.
	start := func() error { return chromedp.Run(tabCtx) }
	if err := startWithin(ctx, l.opts.PageTimeout, start, func() { _ = c.Close() }); err != nil {
		return nil, fmt.Errorf("browser: launch chrome: %w", err)
	}
	return c, nil
}

// startWithin runs start and waits at most timeout for it. On failure,
// expiry or cancellation of ctx it calls abort, which must make start return.
func startWithin(ctx context.Context, timeout time.Duration, start func() error, abort func()) error {
	done := make(chan error, 1)
	go func() { done <- start() }()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case err := <-done:
		if err != nil {
			abort()
		}
		return err
	case <-timer.C:
		abort()
		<-done
		return fmt.Errorf("browser did not start within %v", timeout)
	case <-ctx.Done():
		abort()
		<-done
		return ctx.Err()
	}
}

// Chrome is a Driver backed by one chromedp tab.
type Chrome struct {
	ctx         context.Context
	pageTimeout time.Duration

	closeOnce sync.Once
	release   func()
}

func (c *Chrome) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithTimeout(c.ctx, timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	return chromedp.Run(runCtx, actions...)
}

func (c *Chrome) Navigate(ctx context.Context, url string) error {
	if err := c.run(ctx, c.pageTimeout, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("browser: navigate %s: %w", url, err)
	}
	return nil
}

func (c *Chrome) WaitFor(ctx context.Context, selector string, timeout time.Duration) error {
	if err := c.run(ctx, timeout, chromedp.WaitReady(selector, chromedp.BySearch)); err != nil {
		return fmt.Errorf("browser: wait for %s: %w", selector, err)
	}
	return nil
}

func (c *Chrome) ClickWhenReady(ctx context.Context, selector string, timeout time.Duration) error {
	err := c.run(ctx, timeout,
		chromedp.WaitVisible(selector, chromedp.BySearch),
		chromedp.WaitEnabled(selector, chromedp.BySearch),
		chromedp.Click(selector, chromedp.BySearch, chromedp.NodeVisible),
	)
	if err != nil {
		return fmt.Errorf("browser: click %s: %w", selector, err)
	}
	return nil
}

func (c *Chrome) Exists(ctx context.Context, selector string) (bool, error) {
	var nodes []*cdp.Node
	if err := c.run(ctx, c.pageTimeout, chromedp.Nodes(selector, &nodes, chromedp.BySearch, chromedp.AtLeast(0))); err != nil {
		return false, fmt.Errorf("browser: query %s: %w", selector, err)
	}
	return len(nodes) > 0, nil
}

func (c *Chrome) Text(ctx context.Context, selector string) (string, error) {
	ok, err := c.Exists(ctx, selector)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrNotFound
	}
	var text string
	if err := c.run(ctx, c.pageTimeout, chromedp.Text(selector, &text, chromedp.BySearch, chromedp.AtLeast(0))); err != nil {
		return "", fmt.Errorf("browser: text %s: %w", selector, err)
	}
	return strings.TrimSpace(text), nil
}

// Attribute reads the DOM property first, so href and src come back absolute,
// and falls back to the raw attribute.
func (c *Chrome) Attribute(ctx context.Context, selector, name string) (string, error) {
	ok, err := c.Exists(ctx, selector)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrNotFound
	}

	var prop string
	if err := c.run(ctx, c.pageTimeout, chromedp.JavascriptAttribute(selector, name, &prop, chromedp.BySearch, chromedp.AtLeast(0))); err == nil && prop != "" {
		return prop, nil
	}

	var val string
	var found bool
	if err := c.run(ctx, c.pageTimeout, chromedp.AttributeValue(selector, name, &val, &found, chromedp.BySearch, chromedp.AtLeast(0))); err != nil {
		return "", fmt.Errorf("browser: attribute %s@%s: %w", selector, name, err)
	}
	if !found {
		return "", ErrNotFound
	}
	return val, nil
}

func (c *Chrome) Evaluate(ctx context.Context, script string, res any) error {
	if err := c.run(ctx, c.pageTimeout, chromedp.Evaluate(script, res)); err != nil {
		return fmt.Errorf("browser: evaluate: %w", err)
	}
	return nil
}

func (c *Chrome) Click(ctx context.Context, selector string) error {
	if err := c.run(ctx, c.pageTimeout, chromedp.Click(selector, chromedp.BySearch, chromedp.NodeVisible)); err != nil {
		return fmt.Errorf("browser: click %s: %w", selector, err)
	}
	return nil
}

// Close shuts the tab and the browser process. Safe to call more than once.
func (c *Chrome) Close() error {
	c.closeOnce.Do(c.release)
	return nil
}

// findChromeBinary locates Chrome/Chromium binary.
func findChromeBinary() string {
	if bin := os.Getenv("CHROME_BIN"); bin != "" {
		return bin
	}

	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	paths := []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/google-chrome",
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
		"/opt/google/chrome/google-chrome",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}
