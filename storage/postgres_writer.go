package storage

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"fotocasa-scraper/models"
	"fotocasa-scraper/utils"
)

// listingColumns is the number of bound parameters per inserted row.
const listingColumns = 12

// PostgresWriter mirrors cleaned listings into PostgreSQL. The CSV files stay
// the source of truth; rows are only ever inserted.
type PostgresWriter struct {
	db *sql.DB
}

// NewPostgresWriter opens a connection to PostgreSQL, pinging with the given
// retry policy, runs schema migrations, and returns a ready-to-use writer.
func NewPostgresWriter(dsn string, retry *utils.RetryConfig) (*PostgresWriter, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	if err := retry.Do("postgres-ping", db.Ping); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: %w", err)
	}

	pw := &PostgresWriter{db: db}
	if err := pw.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}

	return pw, nil
}

func (pw *PostgresWriter) migrate() error {
	_, err := pw.db.Exec(`
		CREATE TABLE IF NOT EXISTS listings (
			id          SERIAL PRIMARY KEY,
			run_id      UUID          NOT NULL,
			reference   TEXT          NOT NULL DEFAULT '',
			promoter    TEXT          NOT NULL DEFAULT '',
			postal_code VARCHAR(10)   NOT NULL DEFAULT '',
			type        TEXT          NOT NULL DEFAULT '',
			price       NUMERIC(12,2) NOT NULL DEFAULT 0,
			area_m2     NUMERIC(10,2) NOT NULL DEFAULT 0,
			bedrooms    INTEGER       NOT NULL DEFAULT 0,
			floor       TEXT          NOT NULL DEFAULT '',
			url         TEXT          UNIQUE NOT NULL,
			image_url   TEXT          NOT NULL DEFAULT '',
			scraped_on  DATE          NOT NULL,
			created_at  TIMESTAMPTZ   NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_listings_price       ON listings(price);
		CREATE INDEX IF NOT EXISTS idx_listings_postal_code ON listings(postal_code);
		CREATE INDEX IF NOT EXISTS idx_listings_run_id      ON listings(run_id);
	`)
	return err
}

// Write batch-inserts cleaned listings. URLs already stored are left untouched.
func (pw *PostgresWriter) Write(listings []*models.Listing) error {
	if len(listings) == 0 {
		return nil
	}

	const batchSize = 50
	for i := 0; i < len(listings); i += batchSize {
		end := i + batchSize
		if end > len(listings) {
			end = len(listings)
		}
		if err := pw.insertBatch(listings[i:end]); err != nil {
			return err
		}
	}
	return nil
}

func (pw *PostgresWriter) insertBatch(batch []*models.Listing) error {
	valueStrings := make([]string, 0, len(batch))
	valueArgs := make([]interface{}, 0, len(batch)*listingColumns)

	for idx, l := range batch {
		base := idx * listingColumns
		placeholders := make([]string, listingColumns)
		for c := range placeholders {
			placeholders[c] = fmt.Sprintf("$%d", base+c+1)
		}
		valueStrings = append(valueStrings, "("+strings.Join(placeholders, ",")+")")

		scrapedOn := l.ScrapedOn
		if scrapedOn.IsZero() {
			scrapedOn = time.Now()
		}
		valueArgs = append(valueArgs,
			l.RunID, l.Reference, l.Promoter, l.PostalCode, l.Type,
			l.Price, l.AreaM2, l.Bedrooms, l.Floor, l.URL, l.ImageURL, scrapedOn)
	}

	query := fmt.Sprintf(`
		INSERT INTO listings (run_id, reference, promoter, postal_code, type,
			price, area_m2, bedrooms, floor, url, image_url, scraped_on)
		VALUES %s
		ON CONFLICT (url) DO NOTHING
	`, strings.Join(valueStrings, ","))

	if _, err := pw.db.Exec(query, valueArgs...); err != nil {
		return fmt.Errorf("postgres: insert batch: %w", err)
	}
	return nil
}

func (pw *PostgresWriter) Close() error {
	return pw.db.Close()
}

// FetchAll retrieves all stored listings, used by the report command.
func (pw *PostgresWriter) FetchAll() ([]*models.Listing, error) {
	rows, err := pw.db.Query(`
		SELECT id, run_id, reference, promoter, postal_code, type, price, area_m2,
			bedrooms, floor, url, image_url, scraped_on, created_at
		FROM listings
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("postgres: fetch all: %w", err)
	}
	defer rows.Close()

	var listings []*models.Listing
	for rows.Next() {
		l := &models.Listing{}
		if err := rows.Scan(
			&l.ID, &l.RunID, &l.Reference, &l.Promoter, &l.PostalCode, &l.Type,
			&l.Price, &l.AreaM2, &l.Bedrooms, &l.Floor, &l.URL, &l.ImageURL,
			&l.ScrapedOn, &l.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan row: %w", err)
		}
		listings = append(listings, l)
	}
	return listings, rows.Err()
}
