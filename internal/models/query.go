package models

import (
	"fmt"
	"strings"
)

const (
	// DefaultNumResults is used when a search request does not set num_results.
	DefaultNumResults = 5
	// MaxNumResults bounds the work of a single search request.
	MaxNumResults = 20
)

// SearchQuery represents a semantic search request.
type SearchQuery struct {
	Query       string   `json:"query"`
	NumResults  int      `json:"num_results,omitempty"`
	Collections []string `json:"collections,omitempty"` // empty means all loaded collections
}

// Validate ensures the search query has valid fields and sets defaults.
// Returns an error if the query is empty; otherwise clamps NumResults to [1, MaxNumResults].
func (q *SearchQuery) Validate() error {
	q.Query = strings.TrimSpace(q.Query)
	if q.Query == "" {
		return fmt.Errorf("%w: query cannot be empty", ErrInvalidQuery)
	}
	if q.NumResults == 0 {
		q.NumResults = DefaultNumResults
	}
	if q.NumResults < 1 {
		q.NumResults = 1
	}
	if q.NumResults > MaxNumResults {
		q.NumResults = MaxNumResults
	}
	return nil
}

// Wants reports whether the collection name passes the query's collection filter.
func (q *SearchQuery) Wants(name string) bool {
	if len(q.Collections) == 0 {
		return true
	}
	for _, c := range q.Collections {
		if c == name {
			return true
		}
	}
	return false
}
