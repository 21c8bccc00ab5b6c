package storage

import "fotocasa-scraper/models"

// ListingWriter is the interface any cleaned-listing backend must satisfy.
type ListingWriter interface {
	Write(listings []*models.Listing) error
	Close() error
}

// RecordWriter persists raw listing records as they are extracted.
type RecordWriter interface {
	Write(r *models.ListingRecord) error
	Close() error
}

// LinkAppender persists discovered listing links.
type LinkAppender interface {
	Append(links []models.ListingLink) error
}

// LinkSource supplies the deduplicated links to extract.
type LinkSource interface {
	ReadUnique() ([]models.LinkKey, error)
}

var (
	_ ListingWriter = (*PostgresWriter)(nil)
	_ RecordWriter  = (*ListingCSVWriter)(nil)
	_ LinkAppender  = (*LinkStore)(nil)
	_ LinkSource    = (*LinkStore)(nil)
)
