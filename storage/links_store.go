package storage

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"fotocasa-scraper/models"
	"fotocasa-scraper/utils"
)

// LinkStore is the headerless, append-only links_anuncios.csv file with
// columns date, postal_code, url.
type LinkStore struct {
	mu   sync.Mutex
	path string
}

// NewLinkStore returns a store backed by path. The file is created on first append.
func NewLinkStore(path string) *LinkStore {
	return &LinkStore{path: path}
}

// Path returns the backing file.
func (s *LinkStore) Path() string {
	return s.path
}

// Append writes links to the end of the file.
func (s *LinkStore) Append(links []models.ListingLink) error {
	if len(links) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("links: create dir: %w", err)
	}
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("links: open %q: %w", s.path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	for _, l := range links {
		if err := w.Write([]string{l.Date, l.PostalCode, l.URL}); err != nil {
			return fmt.Errorf("links: write row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("links: flush: %w", err)
	}
	return f.Close()
}

// ReadAll returns every well-formed row in file order. Rows with fewer than
// three columns are skipped.
func (s *LinkStore) ReadAll() ([]models.ListingLink, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := readRows(s.path)
	if err != nil {
		return nil, fmt.Errorf("links: %w", err)
	}
	links := make([]models.ListingLink, 0, len(rows))
	for _, row := range rows {
		if len(row) < 3 {
			continue
		}
		links = append(links, models.ListingLink{
			Date:       strings.TrimSpace(row[0]),
			PostalCode: strings.TrimSpace(row[1]),
			URL:        strings.TrimSpace(row[2]),
		})
	}
	return links, nil
}

// ReadUnique returns the (postal_code, url) pairs with duplicates removed,
// keeping first-seen order.
func (s *LinkStore) ReadUnique() ([]models.LinkKey, error) {
	links, err := s.ReadAll()
	if err != nil {
		return nil, err
	}
	set := utils.NewKeySet[models.LinkKey]()
	for _, l := range links {
		if l.URL == "" {
			continue
		}
		set.Add(l.Key())
	}
	return set.Keys(), nil
}

// ReadURLs returns the url column, duplicates included.
func (s *LinkStore) ReadURLs() ([]string, error) {
	links, err := s.ReadAll()
	if err != nil {
		return nil, err
	}
	urls := make([]string, 0, len(links))
	for _, l := range links {
		if l.URL != "" {
			urls = append(urls, l.URL)
		}
	}
	return urls, nil
}

// ReadStartURLs reads the first column of a headerless CSV, skipping blanks.
func ReadStartURLs(path string) ([]string, error) {
	rows, err := readRows(path)
	if err != nil {
		return nil, fmt.Errorf("start urls: %w", err)
	}
	var urls []string
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		if u := strings.TrimSpace(row[0]); u != "" {
			urls = append(urls, u)
		}
	}
	return urls, nil
}

func readRows(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open %q: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	var rows [][]string
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %q: %w", path, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}
