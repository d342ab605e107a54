package dataprocessing

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/shopspring/decimal"

	"pricefill/internal/config"
	"pricefill/pkg/contracts/domain"
)

// Summary aggregates the outcome of one enrichment run.
// Matched counts rows that received a price; Resolved also counts rows identified without one.
type Summary struct {
	Rows          int                        `json:"rows"`
	Resolved      int                        `json:"resolved"`
	Matched       int                        `json:"matched"`
	Unmatched     int                        `json:"unmatched"`
	Copies        int                        `json:"copies"`
	TotalValue    decimal.Decimal            `json:"total_value"`
	ByPrintType   map[domain.PrintType]int   `json:"by_print_type"`
	ByMatchSource map[domain.MatchSource]int `json:"by_match_source"`
}

// NewSummary creates an empty summary
func NewSummary() *Summary {
	return &Summary{
		TotalValue:    decimal.Zero,
		ByPrintType:   make(map[domain.PrintType]int),
		ByMatchSource: make(map[domain.MatchSource]int),
	}
}

// Add records one row holding copies copies of a card
func (s *Summary) Add(e domain.Enrichment, copies int) {
	s.Rows++
	s.Copies += copies
	s.ByMatchSource[e.MatchedBy]++
	if e.Resolved {
		s.Resolved++
		s.ByPrintType[e.PrintType]++
	}

	if e.Price == "" {
		s.Unmatched++
		return
	}
	s.Matched++
	if price, err := decimal.NewFromString(e.Price); err == nil {
		s.TotalValue = s.TotalValue.Add(price.Mul(decimal.NewFromInt(int64(copies))))
	}
}

// MatchRate is the share of rows that received a price, between 0 and 1
func (s *Summary) MatchRate() float64 {
	if s == nil || s.Rows == 0 {
		return 0
	}
	return float64(s.Matched) / float64(s.Rows)
}

// WriteJSON writes the summary as indented JSON, creating the parent directory
func (s *Summary) WriteJSON(path string) error {
	if err := config.EnsureParentDir(path); err != nil {
		return err
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode summary: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}
	return nil
}
