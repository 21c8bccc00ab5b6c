package fotocasa

import (
	"context"
	"errors"
	"io"
	"time"

	"fotocasa-scraper/browser"
	"fotocasa-scraper/config"
	"fotocasa-scraper/models"
	"fotocasa-scraper/utils"
)

// fakePage is what the fake browser shows for one URL.
type fakePage struct {
	blocked  bool
	notReady bool
	height   int
	texts    map[string]string
	attrs    map[string]string // keyed by selector + "@" + attribute
}

type fakeDriver struct {
	pages     map[string]*fakePage
	current   *fakePage
	navigated []string
	closes    int
}

func (d *fakeDriver) Navigate(_ context.Context, url string) error {
	d.navigated = append(d.navigated, url)
	p, ok := d.pages[url]
	if !ok {
		return errors.New("navigation failed")
	}
	d.current = p
	return nil
}

func (d *fakeDriver) WaitFor(_ context.Context, selector string, _ time.Duration) error {
	if d.current.notReady {
		return context.DeadlineExceeded
	}
	return nil
}

func (d *fakeDriver) ClickWhenReady(context.Context, string, time.Duration) error {
	return browser.ErrNotFound
}

func (d *fakeDriver) Exists(_ context.Context, selector string) (bool, error) {
	return d.current.blocked && selector == config.DefaultSchema().BlockMarker, nil
}

func (d *fakeDriver) Text(_ context.Context, selector string) (string, error) {
	if v, ok := d.current.texts[selector]; ok {
		return v, nil
	}
	return "", browser.ErrNotFound
}

func (d *fakeDriver) Attribute(_ context.Context, selector, name string) (string, error) {
	if v, ok := d.current.attrs[selector+"@"+name]; ok {
		return v, nil
	}
	return "", browser.ErrNotFound
}

func (d *fakeDriver) Evaluate(_ context.Context, _ string, res any) error {
	if h, ok := res.(*int); ok {
		*h = d.current.height
	}
	return nil
}

func (d *fakeDriver) Click(context.Context, string) error { return nil }

func (d *fakeDriver) Close() error {
	d.closes++
	return nil
}

type fakeLauncher struct {
	driver   *fakeDriver
	launches int
	err      error
}

func (l *fakeLauncher) Launch(context.Context) (browser.Driver, error) {
	if l.err != nil {
		return nil, l.err
	}
	l.launches++
	return l.driver, nil
}

// recordSink collects records written by the extractor.
type recordSink struct {
	records []*models.ListingRecord
}

func (s *recordSink) Write(r *models.ListingRecord) error {
	s.records = append(s.records, r)
	return nil
}

func (s *recordSink) Close() error { return nil }

// keySource serves a fixed link list to the extractor.
type keySource struct {
	keys []models.LinkKey
	err  error
}

func (s keySource) ReadUnique() ([]models.LinkKey, error) { return s.keys, s.err }

// linkSink collects links appended by the seeder.
type linkSink struct {
	batches [][]models.ListingLink
}

func (s *linkSink) Append(links []models.ListingLink) error {
	s.batches = append(s.batches, links)
	return nil
}

func newTestScraper(pages map[string]*fakePage) (*Scraper, *fakeLauncher) {
	launcher := &fakeLauncher{driver: &fakeDriver{pages: pages}}
	pacer := utils.NewPacerWith(1, func(ctx context.Context, _ time.Duration) error { return ctx.Err() })
	opts := Options{
		Schema:            config.DefaultSchema(),
		WaitTimeout:       time.Second,
		SeedScrollStep:    700,
		ExtractScrollStep: 500,
	}
	s := New(opts, launcher, pacer, utils.NewLoggerTo(io.Discard))
	s.now = func() time.Time { return time.Date(2024, 3, 7, 10, 0, 0, 0, time.UTC) }
	return s, launcher
}
