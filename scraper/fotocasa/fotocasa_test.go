package fotocasa

import (
	"context"
	"errors"
	"testing"
	"time"

	"fotocasa-scraper/config"
	"fotocasa-scraper/models"
	"fotocasa-scraper/utils"
)

const (
	zip1 = "https://www.fotocasa.es/es/comprar/viviendas/madrid/l?zipCode=28001"
	zip2 = "https://www.fotocasa.es/es/comprar/viviendas/madrid/l?zipCode=28002"
	zip3 = "https://www.fotocasa.es/es/comprar/viviendas/madrid/l?zipCode=28003"
)

func resultsPage(count string, hrefs map[int]string) *fakePage {
	schema := config.DefaultSchema()
	p := &fakePage{
		height: 2000,
		texts:  map[string]string{schema.CounterHeading: count},
		attrs:  map[string]string{},
	}
	for n, href := range hrefs {
		p.attrs[schema.ItemLink(n)+"@href"] = href
	}
	return p
}

func listingPage() *fakePage {
	ls := config.DefaultSchema().Listing
	return &fakePage{
		height: 1500,
		texts: map[string]string{
			ls.Promoter:          "Inmobiliaria Sol",
			ls.EnergyCertificate: "E",
			ls.Bedrooms:          "3 habs.",
			ls.Area:              "90 m²",
			ls.Floor:             "2ª planta",
			ls.Type:              "Piso",
			ls.Price:             "350.000 €",
		},
		attrs: map[string]string{ls.Image + "@src": "https://static.fotocasa.es/img/1.jpg"},
	}
}

func TestSeedAppendsLinksPerStartURL(t *testing.T) {
	s, launcher := newTestScraper(map[string]*fakePage{
		zip1: resultsPage("3 viviendas", map[int]string{1: "https://x/a?1", 3: "https://x/c?3"}),
		zip2: resultsPage("0 viviendas", nil),
	})
	sink := &linkSink{}

	res, err := s.Seed(context.Background(), []string{zip1, "https://x/l?sortType=price", zip2}, sink)
	if err != nil {
		t.Fatalf("Seed: %v", err)
	}

	if res.StartURLs != 3 || res.LinksWritten != 2 || res.SkippedEmpty != 1 {
		t.Errorf("result: got %+v", res)
	}
	if len(sink.batches) != 1 {
		t.Fatalf("batches: got %d, want 1", len(sink.batches))
	}
	want := []models.ListingLink{
		{Date: "2024-03-07", PostalCode: "28001", URL: "https://x/a?1"},
		{Date: "2024-03-07", PostalCode: "28001", URL: "https://x/c?3"},
	}
	for i, l := range sink.batches[0] {
		if l != want[i] {
			t.Errorf("link %d: got %+v, want %+v", i, l, want[i])
		}
	}
	if launcher.launches != 2 {
		t.Errorf("launches: got %d, want 2 (start URL without zipCode is skipped)", launcher.launches)
	}
	if launcher.driver.closes != launcher.launches {
		t.Errorf("closes: got %d, want %d", launcher.driver.closes, launcher.launches)
	}
}

func TestSeedRespectsMaxItems(t *testing.T) {
	s, _ := newTestScraper(map[string]*fakePage{
		zip1: resultsPage("3 viviendas", map[int]string{1: "https://x/a?1", 2: "https://x/b?2", 3: "https://x/c?3"}),
	})
	s.opts.MaxItemsPerURL = 2
	sink := &linkSink{}

	res, err := s.Seed(context.Background(), []string{zip1}, sink)
	if err != nil {
		t.Fatalf("Seed: %v", err)
	}
	if res.LinksWritten != 2 {
		t.Errorf("links written: got %d, want 2", res.LinksWritten)
	}
}

func TestSeedStopsWhenBlocked(t *testing.T) {
	s, launcher := newTestScraper(map[string]*fakePage{
		zip1: {blocked: true},
		zip2: resultsPage("1 vivienda", map[int]string{1: "https://x/a?1"}),
	})
	sink := &linkSink{}

	_, err := s.Seed(context.Background(), []string{zip1, zip2}, sink)
	if !errors.Is(err, ErrBlocked) {
		t.Fatalf("err: got %v, want ErrBlocked", err)
	}
	if len(sink.batches) != 0 {
		t.Errorf("nothing should be appended after a block, got %d batches", len(sink.batches))
	}
	if len(launcher.driver.navigated) != 1 {
		t.Errorf("navigated: got %v, want only the blocked URL", launcher.driver.navigated)
	}
	if launcher.driver.closes != 1 {
		t.Errorf("closes: got %d, want 1", launcher.driver.closes)
	}
}

func TestSeedPausesAfterFailedStartURL(t *testing.T) {
	s, _ := newTestScraper(map[string]*fakePage{
		zip1: {notReady: true},
		zip2: resultsPage("0 viviendas", nil),
	})
	var slept []time.Duration
	s.pacer = utils.NewPacerWith(1, func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	})
	s.opts.Pacing.BetweenStarts = utils.Range{Min: time.Minute, Max: time.Minute}

	res, err := s.Seed(context.Background(), []string{zip1, zip2}, &linkSink{})
	if err != nil {
		t.Fatalf("Seed: %v", err)
	}
	if res.SkippedEmpty != 1 {
		t.Errorf("second start URL should still be visited, got %+v", res)
	}

	betweenStarts := 0
	for _, d := range slept {
		if d == time.Minute {
			betweenStarts++
		}
	}
	if betweenStarts != 1 {
		t.Errorf("between-start pauses: got %d, want 1 after the failed URL (slept %v)", betweenStarts, slept)
	}
}

func TestExtractLinkSourceError(t *testing.T) {
	s, launcher := newTestScraper(nil)
	_, err := s.Extract(context.Background(), keySource{err: errors.New("disk gone")}, &recordSink{})
	if err == nil {
		t.Fatal("expected error from link source")
	}
	if launcher.launches != 0 {
		t.Errorf("launches: got %d, want 0", launcher.launches)
	}
}

func TestExtractWritesRecordsAndDropsFailures(t *testing.T) {
	full := "https://www.fotocasa.es/es/comprar/vivienda/madrid/ref123?from=list"
	bare := "https://www.fotocasa.es/es/comprar/vivienda/madrid/ref456?from=list"
	noRef := "https://www.fotocasa.es/es/comprar/vivienda/madrid/ref789"
	broken := "https://www.fotocasa.es/es/comprar/vivienda/madrid/ref000?from=list"

	s, launcher := newTestScraper(map[string]*fakePage{
		full:   listingPage(),
		bare:   {height: 800},
		noRef:  listingPage(),
		broken: {notReady: true},
	})
	sink := &recordSink{}
	links := []models.LinkKey{
		{PostalCode: "28001", URL: full},
		{PostalCode: "28001", URL: bare},
		{PostalCode: "28002", URL: noRef},
		{PostalCode: "28002", URL: broken},
	}

	res, err := s.Extract(context.Background(), keySource{keys: links}, sink)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if res.Links != 4 || res.Written != 2 || res.Dropped != 2 || res.Blocked {
		t.Errorf("result: got %+v", res)
	}
	if launcher.launches != 1 || launcher.driver.closes != 1 {
		t.Errorf("session: launches=%d closes=%d, want 1/1", launcher.launches, launcher.driver.closes)
	}
	if len(sink.records) != 2 {
		t.Fatalf("records: got %d, want 2", len(sink.records))
	}

	got := sink.records[0]
	if got.Reference != "ref123" || got.Price != "350.000 €" || got.Bedrooms != "3 habs." {
		t.Errorf("full record: got %+v", got)
	}
	if got.Date != "07-03-2024" || got.PostalCode != "28001" || got.URL != full {
		t.Errorf("full record metadata: got %+v", got)
	}
	if got.ImageURL != "https://static.fotocasa.es/img/1.jpg" {
		t.Errorf("image: got %q", got.ImageURL)
	}
	if got.CommonAreas != models.Unavailable || got.Address != models.Unavailable {
		t.Errorf("unscraped columns should be %q, got %+v", models.Unavailable, got)
	}

	empty := sink.records[1]
	for name, v := range map[string]string{
		"promoter": empty.Promoter,
		"price":    empty.Price,
		"image":    empty.ImageURL,
		"type":     empty.Type,
		"floor":    empty.Floor,
	} {
		if v != models.Unavailable {
			t.Errorf("%s: got %q, want %q", name, v, models.Unavailable)
		}
	}
	if empty.Reference != "ref456" {
		t.Errorf("reference: got %q", empty.Reference)
	}
}

func TestExtractStopsWhenBlocked(t *testing.T) {
	a := "https://x/v/a?1"
	b := "https://x/v/b?1"
	c := "https://x/v/c?1"
	s, launcher := newTestScraper(map[string]*fakePage{
		a: listingPage(),
		b: {blocked: true},
		c: listingPage(),
	})
	sink := &recordSink{}

	res, err := s.Extract(context.Background(), keySource{keys: []models.LinkKey{{URL: a}, {URL: b}, {URL: c}}}, sink)
	if !errors.Is(err, ErrBlocked) {
		t.Fatalf("err: got %v, want ErrBlocked", err)
	}
	if !res.Blocked || res.Written != 1 {
		t.Errorf("result: got %+v", res)
	}
	if len(sink.records) != 1 {
		t.Errorf("records: got %d, want 1", len(sink.records))
	}
	for _, u := range launcher.driver.navigated {
		if u == c {
			t.Error("listing after the block was visited")
		}
	}
	if launcher.driver.closes != 1 {
		t.Errorf("closes: got %d, want exactly 1", launcher.driver.closes)
	}
}

func TestExtractNoLinksSkipsBrowser(t *testing.T) {
	s, launcher := newTestScraper(nil)
	res, err := s.Extract(context.Background(), keySource{}, &recordSink{})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if res.Written != 0 || launcher.launches != 0 {
		t.Errorf("got %+v with %d launches", res, launcher.launches)
	}
}

func TestCountSumsHeadings(t *testing.T) {
	schema := config.DefaultSchema()
	fallback := &fakePage{
		height: 1000,
		texts:  map[string]string{schema.CounterHeadingFallback: "1.234 viviendas"},
	}
	s, launcher := newTestScraper(map[string]*fakePage{
		zip1: resultsPage("24 viviendas", nil),
		zip2: fallback,
		zip3: {height: 1000},
	})

	report, err := s.Count(context.Background(), []string{zip1, zip2, zip3})
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if report.Total != 1258 {
		t.Errorf("total: got %d, want 1258", report.Total)
	}
	if len(report.PerURL) != 3 || report.PerURL[2].Count != 0 {
		t.Errorf("per URL: got %+v", report.PerURL)
	}
	if launcher.launches != 3 || launcher.driver.closes != 3 {
		t.Errorf("sessions: launches=%d closes=%d", launcher.launches, launcher.driver.closes)
	}
}

func TestCountReturnsPartialTotalWhenBlocked(t *testing.T) {
	s, _ := newTestScraper(map[string]*fakePage{
		zip1: resultsPage("10 viviendas", nil),
		zip2: {blocked: true},
		zip3: resultsPage("5 viviendas", nil),
	})

	report, err := s.Count(context.Background(), []string{zip1, zip2, zip3})
	if !errors.Is(err, ErrBlocked) {
		t.Fatalf("err: got %v, want ErrBlocked", err)
	}
	if report.Total != 10 {
		t.Errorf("partial total: got %d, want 10", report.Total)
	}
}

func TestLaunchFailureIsFatal(t *testing.T) {
	s, launcher := newTestScraper(nil)
	launcher.err = errors.New("no chrome")

	if _, err := s.Count(context.Background(), []string{zip1}); err == nil {
		t.Error("expected launch error")
	}
}
