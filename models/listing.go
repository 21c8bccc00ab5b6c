package models

import "time"

// Unavailable is written in place of any field that could not be scraped.
const Unavailable = "No disponible"

// Date layouts used by the two CSV stores.
const (
	LinkDateLayout    = "2006-01-02"
	ListingDateLayout = "02-01-2006"
)

// ListingLink is one row of the links store: a listing URL discovered on a
// search page for a postal code.
type ListingLink struct {
	Date       string
	PostalCode string
	URL        string
}

// Key returns the pair the extractor deduplicates on.
func (l ListingLink) Key() LinkKey {
	return LinkKey{PostalCode: l.PostalCode, URL: l.URL}
}

// LinkKey identifies a listing to visit. Each key is processed at most once per run.
type LinkKey struct {
	PostalCode string
	URL        string
}

// ListingRecord is the flat row written to anuncios.csv. Every field holds either
// scraped text or Unavailable.
type ListingRecord struct {
	Date              string
	Reference         string
	Promoter          string
	CommonAreas       string
	EnergyCertificate string
	PostalCode        string
	Address           string
	Bedrooms          string
	Area              string
	Floor             string
	Features          string
	UpdatedAt         string
	URL               string
	ImageURL          string
	Type              string
	Price             string
}

// ListingHeader is the header row of anuncios.csv, in column order.
var ListingHeader = []string{
	"Fecha", "Referencia", "Promotora", "Zonas comunes", "Certificado energético", "Código postal",
	"Dirección", "Dormitorios", "Área", "Planta", "Características", "Fecha de actualización",
	"URL", "Imagen", "Tipo", "Precio",
}

// Row returns the record as CSV columns matching ListingHeader.
func (r *ListingRecord) Row() []string {
	return []string{
		r.Date, r.Reference, r.Promoter, r.CommonAreas, r.EnergyCertificate, r.PostalCode,
		r.Address, r.Bedrooms, r.Area, r.Floor, r.Features, r.UpdatedAt,
		r.URL, r.ImageURL, r.Type, r.Price,
	}
}

// RecordFromRow is the inverse of Row. Short rows are padded with Unavailable.
func RecordFromRow(row []string) *ListingRecord {
	col := func(i int) string {
		if i < len(row) {
			return row[i]
		}
		return Unavailable
	}
	return &ListingRecord{
		Date:              col(0),
		Reference:         col(1),
		Promoter:          col(2),
		CommonAreas:       col(3),
		EnergyCertificate: col(4),
		PostalCode:        col(5),
		Address:           col(6),
		Bedrooms:          col(7),
		Area:              col(8),
		Floor:             col(9),
		Features:          col(10),
		UpdatedAt:         col(11),
		URL:               col(12),
		ImageURL:          col(13),
		Type:              col(14),
		Price:             col(15),
	}
}

// Listing is the cleaned, numeric view of a ListingRecord used by the SQL
// mirror and the report.
type Listing struct {
	ID         int64
	RunID      string
	Reference  string
	Promoter   string
	PostalCode string
	Type       string
	Price      float64
	AreaM2     float64
	Bedrooms   int
	Floor      string
	URL        string
	ImageURL   string
	ScrapedOn  time.Time
	CreatedAt  time.Time
}

// PricePerM2 returns 0 when either side is missing.
func (l *Listing) PricePerM2() float64 {
	if l.Price <= 0 || l.AreaM2 <= 0 {
		return 0
	}
	return l.Price / l.AreaM2
}

// InsightReport holds the computed analytics over the cleaned dataset.
type InsightReport struct {
	TotalListings        int
	PricedListings       int
	AveragePrice         float64
	MinPrice             float64
	MaxPrice             float64
	AveragePricePerM2    float64
	MostExpensive        *Listing
	ListingsByPostalCode map[string]int
	ListingsByType       map[string]int
}
