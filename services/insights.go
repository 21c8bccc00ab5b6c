package services

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"fotocasa-scraper/models"
	"fotocasa-scraper/utils"
)

type InsightService struct {
	logger *utils.Logger
}

func NewInsightService(logger *utils.Logger) *InsightService {
	return &InsightService{logger: logger}
}

func (s *InsightService) Generate(listings []*models.Listing) *models.InsightReport {
	report := &models.InsightReport{
		ListingsByPostalCode: make(map[string]int),
		ListingsByType:       make(map[string]int),
	}

	if len(listings) == 0 {
		return report
	}

	report.TotalListings = len(listings)

	var priceListings []*models.Listing
	var perM2Total float64
	var perM2Count int

	for _, l := range listings {
		if l.Price > 0 {
			priceListings = append(priceListings, l)
		}
		if ppm := l.PricePerM2(); ppm > 0 {
			perM2Total += ppm
			perM2Count++
		}
		if l.PostalCode != "" {
			report.ListingsByPostalCode[l.PostalCode]++
		}
		if l.Type != "" {
			report.ListingsByType[l.Type]++
		}
	}

	// Price stats (only listings with price > 0)
	report.PricedListings = len(priceListings)
	if len(priceListings) > 0 {
		report.MinPrice = priceListings[0].Price
		report.MaxPrice = priceListings[0].Price
		report.MostExpensive = priceListings[0]
		var total float64
		for _, l := range priceListings {
			total += l.Price
			if l.Price < report.MinPrice {
				report.MinPrice = l.Price
			}
			if l.Price > report.MaxPrice {
				report.MaxPrice = l.Price
				report.MostExpensive = l
			}
		}
		report.AveragePrice = round2(total / float64(len(priceListings)))
		report.MinPrice = round2(report.MinPrice)
		report.MaxPrice = round2(report.MaxPrice)
	}
	if perM2Count > 0 {
		report.AveragePricePerM2 = round2(perM2Total / float64(perM2Count))
	}

	s.logger.Debug("[insights] %d listings, %d priced", report.TotalListings, report.PricedListings)
	return report
}

// Print renders the report to stdout.
func (s *InsightService) Print(r *models.InsightReport) {
	s.Fprint(os.Stdout, r)
}

func (s *InsightService) Fprint(w io.Writer, r *models.InsightReport) {
	sep := strings.Repeat("═", 54)
	thin := strings.Repeat("─", 54)

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n", sep)
	fmt.Fprintf(w, "\033[1;35m  📊 FOTOCASA LISTINGS REPORT\033[0m\n")
	fmt.Fprintf(w, "\033[1;35m%s\033[0m\n\n", sep)

	// Overview
	fmt.Fprintf(w, "\033[1;33m  Overview\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	fmt.Fprintf(w, "  Total listings : \033[1m%d\033[0m\n", r.TotalListings)
	fmt.Fprintf(w, "  With a price   : \033[1m%d\033[0m\n", r.PricedListings)
	fmt.Fprintln(w)

	// Price Stats
	fmt.Fprintf(w, "\033[1;33m  Price Statistics\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	if r.AveragePrice > 0 {
		fmt.Fprintf(w, "  Average price : \033[1;32m%.2f €\033[0m\n", r.AveragePrice)
		fmt.Fprintf(w, "  Minimum price : \033[1;32m%.2f €\033[0m\n", r.MinPrice)
		fmt.Fprintf(w, "  Maximum price : \033[1;32m%.2f €\033[0m\n", r.MaxPrice)
	} else {
		fmt.Fprintf(w, "  No price data available\n")
	}
	if r.AveragePricePerM2 > 0 {
		fmt.Fprintf(w, "  Average €/m²  : \033[1;32m%.2f\033[0m\n", r.AveragePricePerM2)
	}
	fmt.Fprintln(w)

	// Most Expensive
	if r.MostExpensive != nil {
		fmt.Fprintf(w, "\033[1;33m  Most Expensive Listing\033[0m\n")
		fmt.Fprintf(w, "  %s\n", thin)
		fmt.Fprintf(w, "  %s\n", truncate(r.MostExpensive.URL, 50))
		fmt.Fprintf(w, "  Postal code : %s\n", r.MostExpensive.PostalCode)
		fmt.Fprintf(w, "  Price       : \033[1;31m%.2f €\033[0m\n", r.MostExpensive.Price)
		fmt.Fprintln(w)
	}

	printCounts(w, "Listings by Postal Code", r.ListingsByPostalCode, "No postal code data", thin)
	printCounts(w, "Listings by Type", r.ListingsByType, "No type data", thin)

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n\n", sep)
}

func printCounts(w io.Writer, title string, counts map[string]int, empty, thin string) {
	fmt.Fprintf(w, "\033[1;33m  %s\033[0m\n", title)
	fmt.Fprintf(w, "  %s\n", thin)
	if len(counts) == 0 {
		fmt.Fprintf(w, "  %s\n", empty)
		fmt.Fprintln(w)
		return
	}

	type keyCount struct {
		key   string
		count int
	}
	var rows []keyCount
	for k, n := range counts {
		rows = append(rows, keyCount{k, n})
	}
	// count descending, key ascending on ties
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].count != rows[j].count {
			return rows[i].count > rows[j].count
		}
		return rows[i].key < rows[j].key
	})
	for _, kc := range rows {
		bar := strings.Repeat("█", min(kc.count, 40))
		fmt.Fprintf(w, "  %-20s %s (%d)\n", truncate(kc.key, 18), bar, kc.count)
	}
	fmt.Fprintln(w)
}

func round2(f float64) float64 {
	return float64(int(f*100+0.5)) / 100
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
