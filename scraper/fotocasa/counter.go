package fotocasa

import (
	"context"
	"errors"
	"fmt"

	"fotocasa-scraper/browser"
	"fotocasa-scraper/models"
)

// Count sums the advertised result counts of the start URLs without
// harvesting links. On ErrBlocked the partial report is returned with the error.
func (s *Scraper) Count(ctx context.Context, startURLs []string) (models.CountReport, error) {
	var report models.CountReport

	for i, start := range startURLs {
		s.logger.Info("[counter] (%d/%d) %s", i+1, len(startURLs), start)

		d, err := s.launcher.Launch(ctx)
		if err != nil {
			return report, fmt.Errorf("counter: %w", err)
		}
		n, err := s.countPage(ctx, d, start)
		_ = d.Close()

		switch {
		case errors.Is(err, ErrBlocked):
			s.logger.Error("[counter] Page blocked at %s, stopping run", start)
			return report, err
		case ctx.Err() != nil:
			return report, ctx.Err()
		case err != nil:
			s.logger.Error("[counter] Error in %s: %v", start, err)
			continue
		}

		report.PerURL = append(report.PerURL, models.URLCount{URL: start, Count: n})
		report.Total += n
		s.logger.Info("[counter] %d listings (running total %d)", n, report.Total)

		if i < len(startURLs)-1 {
			if err := s.pacer.Pause(ctx, s.opts.Pacing.BetweenCounts); err != nil {
				return report, err
			}
		}
	}

	return report, nil
}

func (s *Scraper) countPage(ctx context.Context, d browser.Driver, start string) (int, error) {
	if err := s.loadPage(ctx, d, start); err != nil {
		return 0, err
	}
	if err := s.scrollToBottom(ctx, d, s.opts.SeedScrollStep, s.opts.Pacing.SeedScroll); err != nil {
		return 0, err
	}
	return s.readCount(ctx, d), nil
}
