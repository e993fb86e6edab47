// Package stocklist holds the static ticker reference list and serves
// symbol search over it.
package stocklist

import (
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
)

// MaxResults caps the number of search matches returned.
const MaxResults = 10

// MinQueryLength is the shortest query that produces matches.
const MinQueryLength = 2

// Listing is a static reference record for one tradable symbol.
type Listing struct {
	Name   string `json:"name"`
	Tag    string `json:"tag"`
	Market string `json:"market"`
}

// Match is the search result shape served to the frontend.
type Match struct {
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
}

// Service loads the listing file and answers search queries.
type Service struct {
	mu       sync.RWMutex
	listings []Listing
	path     string
}

// NewService creates a service reading listings from the CSV file at path.
// A missing or unreadable file leaves the service with an empty list.
func NewService(path string) *Service {
	s := &Service{path: path}
	if err := s.Reload(); err != nil {
		log.Printf("Warning: could not load stock listing from %s: %v", path, err)
	}
	return s
}

// Reload re-reads the listing file, replacing the in-memory list on success.
func (s *Service) Reload() error {
	f, err := os.Open(s.path)
	if err != nil {
		return err
	}
	defer f.Close()

	listings, err := parseListings(f)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.listings = listings
	s.mu.Unlock()

	log.Printf("Loaded %d stock listings from %s", len(listings), s.path)
	return nil
}

// parseListings reads CSV rows with columns name,tag,market (header required).
func parseListings(r io.Reader) ([]Listing, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	col := map[string]int{}
	for i, name := range header {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}
	nameIdx, ok1 := col["name"]
	tagIdx, ok2 := col["tag"]
	if !ok1 || !ok2 {
		return nil, fmt.Errorf("listing file must contain 'name' and 'tag' columns")
	}
	marketIdx, hasMarket := col["market"]

	var listings []Listing
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read record: %w", err)
		}
		if nameIdx >= len(record) || tagIdx >= len(record) {
			continue
		}
		l := Listing{
			Name: strings.TrimSpace(record[nameIdx]),
			Tag:  strings.TrimSpace(record[tagIdx]),
		}
		if hasMarket && marketIdx < len(record) {
			l.Market = strings.TrimSpace(record[marketIdx])
		}
		listings = append(listings, l)
	}
	return listings, nil
}

// Count returns the number of loaded listings.
func (s *Service) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.listings)
}

// Search returns up to MaxResults listings whose tag or name contains the
// query, case-insensitively, in source order. Queries shorter than
// MinQueryLength match nothing. The query is not trimmed: surrounding
// whitespace counts toward the length and the match.
func (s *Service) Search(query string) []Match {
	q := strings.ToLower(query)
	if len(q) < MinQueryLength {
		return []Match{}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]Match, 0, MaxResults)
	for _, l := range s.listings {
		if strings.Contains(strings.ToLower(l.Tag), q) || strings.Contains(strings.ToLower(l.Name), q) {
			results = append(results, Match{Symbol: l.Tag, Name: l.Name})
			if len(results) == MaxResults {
				break
			}
		}
	}
	return results
}
