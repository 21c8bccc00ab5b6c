// Package browser is the boundary between the scraping pipeline and the
// browser-automation engine. Selectors are XPath expressions.
package browser

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a selector matches no element.
var ErrNotFound = errors.New("browser: element not found")

// Driver is one browser session. Implementations must make Close idempotent.
type Driver interface {
	Navigate(ctx context.Context, url string) error
	// WaitFor blocks until selector is present or timeout elapses.
	WaitFor(ctx context.Context, selector string, timeout time.Duration) error
	// ClickWhenReady waits until selector is visible and enabled, then clicks it.
	ClickWhenReady(ctx context.Context, selector string, timeout time.Duration) error
	// Exists checks for selector without waiting.
	Exists(ctx context.Context, selector string) (bool, error)
	Text(ctx context.Context, selector string) (string, error)
	Attribute(ctx context.Context, selector, name string) (string, error)
	Evaluate(ctx context.Context, script string, res any) error
	Click(ctx context.Context, selector string) error
	Close() error
}

// Launcher opens browser sessions.
type Launcher interface {
	Launch(ctx context.Context) (Driver, error)
}
