// Package keyword provides literal text search over the verse corpus.
package keyword

import (
	"context"

	"github.com/hyperjump/kashf/internal/models"
)

// Searchable verse fields.
const (
	FieldEnglish = "english"
	FieldArabic  = "arabic"
)

// DefaultLimit bounds text searches when no limit is given.
const DefaultLimit = 100

// VerseIndex defines literal verse text search operations.
type VerseIndex interface {
	// IndexVerses adds or replaces verses, keyed by reference.
	IndexVerses(ctx context.Context, verses []*models.Verse) error
	// Search finds verses whose field contains query or one of its spelling variants.
	Search(ctx context.Context, query, field string, limit int) ([]*VerseHit, error)
	// DocCount returns the total number of verses in the index.
	DocCount() (uint64, error)
	Close() error
}

// VerseHit is a single text search hit.
type VerseHit struct {
	Ref   string
	Score float64
}
