// Package storage defines the persistence interface for the verse corpus.
package storage

import (
	"context"

	"github.com/hyperjump/kashf/internal/models"
)

// DefaultRootLimit bounds root searches when no limit is given.
const DefaultRootLimit = 100

// VerseStore holds verses for range and root lookups.
type VerseStore interface {
	// ReplaceVerses swaps the stored corpus for verses.
	ReplaceVerses(ctx context.Context, verses []*models.Verse) error
	GetVerse(ctx context.Context, chapter, verse int) (*models.Verse, error)
	// VerseRange returns verses start..end of chapter in order.
	VerseRange(ctx context.Context, chapter, start, end int) ([]*models.Verse, error)
	// SearchRoots returns verses annotated with any of roots, in reference order.
	SearchRoots(ctx context.Context, roots []string, limit int) ([]*models.Verse, error)

	CountVerses(ctx context.Context) (int64, error)
	Close() error
}
