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

// Seed visits every start URL with a fresh browser session, enumerates the
// listings advertised on the results page and appends their links to store.
// A block page stops the run and returns ErrBlocked; links already appended
// for earlier start URLs are kept.
func (s *Scraper) Seed(ctx context.Context, startURLs []string, store storage.LinkAppender) (models.SeedResult, error) {
	res := models.SeedResult{StartURLs: len(startURLs)}
	s.logger.Info("[seeder] Starting — %d start URLs", len(startURLs))

	for i, start := range startURLs {
		last := i == len(startURLs)-1
		s.logger.Info("[seeder] (%d/%d) %s", i+1, len(startURLs), start)

		postalCode, err := PostalCodeFromStartURL(start)
		if err != nil {
			s.logger.Error("[seeder] Skipping %s: %v", start, err)
			continue
		}

		d, err := s.launcher.Launch(ctx)
		if err != nil {
			return res, fmt.Errorf("seeder: %w", err)
		}
		links, count, err := s.seedPage(ctx, d, start, postalCode)
		_ = d.Close()

		switch {
		case errors.Is(err, ErrBlocked):
			s.logger.Error("[seeder] Page blocked at %s, stopping run", start)
			return res, err
		case ctx.Err() != nil:
			return res, ctx.Err()
		case err != nil:
			s.logger.Error("[seeder] Error in %s: %v", start, err)
			if !last {
				if err := s.pacer.Pause(ctx, s.opts.Pacing.BetweenStarts); err != nil {
					return res, err
				}
			}
			continue
		}

		if count == 0 {
			s.logger.Info("[seeder] No listings found for %s", start)
			res.SkippedEmpty++
			if !last {
				if err := s.pacer.Pause(ctx, s.opts.Pacing.EmptyResult); err != nil {
					return res, err
				}
			}
			continue
		}

		if err := store.Append(links); err != nil {
			return res, fmt.Errorf("seeder: %w", err)
		}
		res.LinksWritten += len(links)
		s.logger.Info("[seeder] Saved %d/%d links for postal code %s", len(links), count, postalCode)

		if !last {
			if err := s.pacer.Pause(ctx, s.opts.Pacing.BetweenStarts); err != nil {
				return res, err
			}
		}
	}

	s.logger.Info("[seeder] Done — %d links written, %d empty start URLs", res.LinksWritten, res.SkippedEmpty)
	return res, nil
}

// seedPage runs one results page through the lifecycle and returns the links
// found together with the advertised count.
func (s *Scraper) seedPage(ctx context.Context, d browser.Driver, start, postalCode string) ([]models.ListingLink, int, error) {
	if err := s.loadPage(ctx, d, start); err != nil {
		return nil, 0, err
	}

	count := s.readCount(ctx, d)
	s.logger.Debug("[seeder] Advertised count for %s: %d", start, count)
	if count == 0 {
		return nil, 0, nil
	}

	if err := s.scrollToBottom(ctx, d, s.opts.SeedScrollStep, s.opts.Pacing.SeedScroll); err != nil {
		return nil, count, err
	}

	limit := count
	if s.opts.MaxItemsPerURL > 0 && limit > s.opts.MaxItemsPerURL {
		limit = s.opts.MaxItemsPerURL
	}

	date := s.now().Format(models.LinkDateLayout)
	links := make([]models.ListingLink, 0, limit)
	for i := 1; i <= limit; i++ {
		href, err := d.Attribute(ctx, s.opts.Schema.ItemLink(i), s.opts.Schema.ResultLinkAttr)
		if ctx.Err() != nil {
			return nil, count, ctx.Err()
		}
		href = strings.TrimSpace(href)
		if err != nil || href == "" {
			s.logger.Warn("[seeder] Could not read link %d of %d: %v", i, limit, err)
			continue
		}
		links = append(links, models.ListingLink{Date: date, PostalCode: postalCode, URL: href})

		if i < limit {
			if err := s.pacer.Pause(ctx, s.opts.Pacing.BetweenItems); err != nil {
				return nil, count, err
			}
		}
	}
	return links, count, nil
}
