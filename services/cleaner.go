package services

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"fotocasa-scraper/models"
	"fotocasa-scraper/utils"
)

var (
	// numberRegexp captures Spanish-formatted numbers: "350.000", "85,5", "1.250,75".
	numberRegexp = regexp.MustCompile(`\d{1,3}(?:\.\d{3})+(?:,\d+)?|\d+(?:,\d+)?`)
	// intRegexp captures the first integer, e.g. bedrooms in "3 habs."
	intRegexp = regexp.MustCompile(`\d+`)
)

// Cleaner transforms scraped ListingRecords into numeric Listings.
type Cleaner struct {
	logger *utils.Logger
}

// NewCleaner creates a Cleaner with the given logger.
func NewCleaner(logger *utils.Logger) *Cleaner {
	return &Cleaner{logger: logger}
}

// Clean converts records, dropping rows without a URL and repeated URLs.
func (c *Cleaner) Clean(records []*models.ListingRecord, runID string) []*models.Listing {
	seen := make(map[string]struct{})
	result := make([]*models.Listing, 0, len(records))

	for _, r := range records {
		url := strings.TrimSpace(r.URL)
		if url == "" || url == models.Unavailable {
			c.logger.Warn("[cleaner] Dropping record with empty URL: %s", r.Reference)
			continue
		}

		if _, dup := seen[url]; dup {
			c.logger.Debug("[cleaner] Duplicate URL skipped: %s", url)
			continue
		}
		seen[url] = struct{}{}

		listing := &models.Listing{
			RunID:      runID,
			Reference:  text(r.Reference),
			Promoter:   text(r.Promoter),
			PostalCode: text(r.PostalCode),
			Type:       text(r.Type),
			Price:      parseNumber(r.Price),
			AreaM2:     parseNumber(r.Area),
			Bedrooms:   parseInt(r.Bedrooms),
			Floor:      text(r.Floor),
			URL:        url,
			ImageURL:   text(r.ImageURL),
			ScrapedOn:  parseDate(r.Date),
			CreatedAt:  time.Now(),
		}

		result = append(result, listing)
	}

	c.logger.Info("[cleaner] Cleaned %d → %d listings (dropped %d)",
		len(records), len(result), len(records)-len(result))
	return result
}

// parseNumber reads the first Spanish-formatted number in raw.
// Examples:
//
//	"350.000 €"   → 350000
//	"85,5 m²"     → 85.5
//	"A consultar" → 0
func parseNumber(raw string) float64 {
	if raw == models.Unavailable {
		return 0
	}
	match := numberRegexp.FindString(raw)
	if match == "" {
		return 0
	}
	match = strings.ReplaceAll(match, ".", "")
	match = strings.ReplaceAll(match, ",", ".")
	v, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0
	}
	return v
}

func parseInt(raw string) int {
	if raw == models.Unavailable {
		return 0
	}
	n, err := strconv.Atoi(intRegexp.FindString(raw))
	if err != nil {
		return 0
	}
	return n
}

func parseDate(raw string) time.Time {
	t, err := time.Parse(models.ListingDateLayout, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}
	}
	return t
}

// text maps the sentinel to "" and collapses whitespace.
func text(s string) string {
	if s == models.Unavailable {
		return ""
	}
	return normaliseText(s)
}

// normaliseText strips leading/trailing whitespace and collapses internal whitespace.
func normaliseText(s string) string {
	s = strings.TrimSpace(s)
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return unicode.IsSpace(r)
	})
	return strings.Join(fields, " ")
}
