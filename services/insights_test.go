package services

import (
	"bytes"
	"strings"
	"testing"

	"fotocasa-scraper/models"
)

func TestInsightsEmpty(t *testing.T) {
	svc := NewInsightService(newTestLogger())
	r := svc.Generate(nil)
	if r.TotalListings != 0 || r.MostExpensive != nil {
		t.Errorf("empty report: got %+v", r)
	}
}

func TestInsightsStats(t *testing.T) {
	svc := NewInsightService(newTestLogger())

	listings := []*models.Listing{
		{URL: "https://x/a", PostalCode: "28001", Type: "Piso", Price: 300000, AreaM2: 100},
		{URL: "https://x/b", PostalCode: "28001", Type: "Ático", Price: 500000, AreaM2: 125},
		{URL: "https://x/c", PostalCode: "28002", Type: "Piso", Price: 0, AreaM2: 80},
	}

	r := svc.Generate(listings)

	if r.TotalListings != 3 || r.PricedListings != 2 {
		t.Errorf("counts: got total=%d priced=%d", r.TotalListings, r.PricedListings)
	}
	if r.AveragePrice != 400000 || r.MinPrice != 300000 || r.MaxPrice != 500000 {
		t.Errorf("price stats: got avg=%.2f min=%.2f max=%.2f", r.AveragePrice, r.MinPrice, r.MaxPrice)
	}
	if r.AveragePricePerM2 != 3500 {
		t.Errorf("avg €/m²: got %.2f, want 3500", r.AveragePricePerM2)
	}
	if r.MostExpensive == nil || r.MostExpensive.URL != "https://x/b" {
		t.Errorf("most expensive: got %+v", r.MostExpensive)
	}
	if r.ListingsByPostalCode["28001"] != 2 || r.ListingsByPostalCode["28002"] != 1 {
		t.Errorf("by postal code: got %v", r.ListingsByPostalCode)
	}
	if r.ListingsByType["Piso"] != 2 {
		t.Errorf("by type: got %v", r.ListingsByType)
	}
}

func TestInsightsMostExpensiveIsFirstPricedListing(t *testing.T) {
	svc := NewInsightService(newTestLogger())

	r := svc.Generate([]*models.Listing{
		{URL: "https://x/free", Price: 0},
		{URL: "https://x/only", Price: 120000},
	})
	if r.MostExpensive == nil || r.MostExpensive.URL != "https://x/only" {
		t.Errorf("most expensive: got %+v", r.MostExpensive)
	}
}

func TestInsightsFprint(t *testing.T) {
	svc := NewInsightService(newTestLogger())
	r := svc.Generate([]*models.Listing{
		{URL: "https://x/a", PostalCode: "28001", Type: "Piso", Price: 300000, AreaM2: 100},
	})

	var buf bytes.Buffer
	svc.Fprint(&buf, r)
	out := buf.String()
	for _, want := range []string{"FOTOCASA LISTINGS REPORT", "300000.00 €", "28001", "Piso"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}
}
