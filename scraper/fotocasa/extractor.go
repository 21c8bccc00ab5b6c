package fotocasa

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"fotocasa-scraper/browser"
	"fotocasa-scraper/models"
	"fotocasa-scraper/storage"
)

// field describes one scraped column: where it lives on the page and which
// record field receives it. An empty attr reads the element text.
type field struct {
	name     string
	selector string
	attr     string
	set      func(r *models.ListingRecord, v string)
}

func (s *Scraper) listingFields() []field {
	ls := s.opts.Schema.Listing
	return []field{
		{"promoter", ls.Promoter, "", func(r *models.ListingRecord, v string) { r.Promoter = v }},
		{"energy_certificate", ls.EnergyCertificate, "", func(r *models.ListingRecord, v string) { r.EnergyCertificate = v }},
		{"bedrooms", ls.Bedrooms, "", func(r *models.ListingRecord, v string) { r.Bedrooms = v }},
		{"area", ls.Area, "", func(r *models.ListingRecord, v string) { r.Area = v }},
		{"floor", ls.Floor, "", func(r *models.ListingRecord, v string) { r.Floor = v }},
		{"image", ls.Image, ls.ImageAttr, func(r *models.ListingRecord, v string) { r.ImageURL = v }},
		{"type", ls.Type, "", func(r *models.ListingRecord, v string) { r.Type = v }},
		{"price", ls.Price, "", func(r *models.ListingRecord, v string) { r.Price = v }},
	}
}

// Extract visits every deduplicated link from src in one browser session and
// appends a record per listing to w as soon as it is scraped. Per-listing
// failures are logged to the error log and the listing is dropped. A block
// page stops the batch and returns ErrBlocked; the session is released
// exactly once on every path.
func (s *Scraper) Extract(ctx context.Context, src storage.LinkSource, w storage.RecordWriter) (models.ExtractResult, error) {
	links, err := src.ReadUnique()
	if err != nil {
		return models.ExtractResult{}, fmt.Errorf("extractor: %w", err)
	}

	res := models.ExtractResult{Links: len(links)}
	s.logger.Info("[extractor] Found %d listings", len(links))
	if len(links) == 0 {
		return res, nil
	}

	d, err := s.launcher.Launch(ctx)
	if err != nil {
		return res, fmt.Errorf("extractor: %w", err)
	}
	defer d.Close()

	for i, link := range links {
		s.logger.Info("[extractor] (%d/%d) %s", i+1, len(links), link.URL)

		rec, err := s.extractListing(ctx, d, link)
		switch {
		case errors.Is(err, ErrBlocked):
			res.Blocked = true
			s.logger.Error("[extractor] Page blocked at %s, stopping batch", link.URL)
			return res, err
		case ctx.Err() != nil:
			return res, ctx.Err()
		case err != nil:
			res.Dropped++
			s.logger.Error("[extractor] Error in %s: %v", link.URL, err)
		default:
			if err := w.Write(rec); err != nil {
				return res, fmt.Errorf("extractor: %w", err)
			}
			res.Written++
		}

		if i < len(links)-1 {
			if err := s.pacer.Pause(ctx, s.opts.Pacing.BetweenListing); err != nil {
				return res, err
			}
		}
	}

	s.logger.Info("[extractor] Done — %d written, %d dropped", res.Written, res.Dropped)
	return res, nil
}

func (s *Scraper) extractListing(ctx context.Context, d browser.Driver, link models.LinkKey) (*models.ListingRecord, error) {
	if err := s.loadPage(ctx, d, link.URL); err != nil {
		return nil, err
	}
	if err := s.scrollToBottom(ctx, d, s.opts.ExtractScrollStep, s.opts.Pacing.ExtractScroll); err != nil {
		return nil, err
	}
	return s.readRecord(ctx, d, link)
}

// readRecord builds the record from the loaded page. Only a bad reference fails
// the record; every page field degrades to Unavailable on its own.
func (s *Scraper) readRecord(ctx context.Context, d browser.Driver, link models.LinkKey) (*models.ListingRecord, error) {
	reference, err := DeriveReference(link.URL)
	if err != nil {
		return nil, err
	}

	rec := &models.ListingRecord{
		Date:        s.now().Format(models.ListingDateLayout),
		Reference:   reference,
		CommonAreas: models.Unavailable,
		PostalCode:  link.PostalCode,
		Address:     models.Unavailable,
		Features:    models.Unavailable,
		UpdatedAt:   models.Unavailable,
		URL:         link.URL,
	}
	for _, f := range s.listingFields() {
		f.set(rec, s.extract(ctx, d, f))
	}
	return rec, nil
}

// extract reads one field, returning Unavailable on any failure.
func (s *Scraper) extract(ctx context.Context, d browser.Driver, f field) string {
	if f.selector == "" {
		return models.Unavailable
	}

	var v string
	var err error
	if f.attr != "" {
		v, err = d.Attribute(ctx, f.selector, f.attr)
	} else {
		v, err = d.Text(ctx, f.selector)
	}
	if err != nil {
		s.logger.Debug("[extractor] %s unavailable: %v", f.name, err)
		return models.Unavailable
	}
	if v = strings.TrimSpace(v); v == "" {
		return models.Unavailable
	}
	return v
}
