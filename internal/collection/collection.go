// Package collection loads searchable collections: a FAISS flat index plus a JSON
// metadata file, fetched from a remote release or local paths.
package collection

import (
	"fmt"

	"github.com/hyperjump/kashf/internal/config"
	"github.com/hyperjump/kashf/internal/models"
	"github.com/hyperjump/kashf/internal/vector"
)

// Collection is a loaded index with one metadata record per vector. It is not
// modified after construction.
type Collection struct {
	Config  config.CollectionConfig
	Index   vector.VectorIndex
	Records []models.MetadataRecord
}

// New builds a collection, padding records with placeholders up to the index size and
// dropping records beyond it. The second result is the number of records adjusted.
func New(cfg config.CollectionConfig, idx vector.VectorIndex, records []models.MetadataRecord) (*Collection, int) {
	size := idx.Size()
	adjusted := 0
	if len(records) > size {
		adjusted = len(records) - size
		records = records[:size]
	}
	for i := len(records); i < size; i++ {
		records = append(records, Placeholder(cfg, i))
		adjusted++
	}
	return &Collection{Config: cfg, Index: idx, Records: records}, adjusted
}

// Name returns the collection name.
func (c *Collection) Name() string {
	return c.Config.Name
}

// Size returns the number of vectors, which equals the number of records.
func (c *Collection) Size() int {
	return len(c.Records)
}

// Record returns the record at position i, or nil when out of range.
func (c *Collection) Record(i int) models.MetadataRecord {
	if i < 0 || i >= len(c.Records) {
		return nil
	}
	return c.Records[i]
}

// Corpus returns the Content of every record in order.
func (c *Collection) Corpus() []string {
	out := make([]string, len(c.Records))
	for i, r := range c.Records {
		out[i] = r.Content()
	}
	return out
}

// Placeholder returns the record standing in for missing metadata at position i.
func Placeholder(cfg config.CollectionConfig, i int) models.MetadataRecord {
	content := fmt.Sprintf("Vector %d from %s", i, cfg.Name)
	title := fmt.Sprintf("%s Item %d", cfg.Name, i)
	switch cfg.Kind {
	case config.KindVerse:
		return &models.Verse{Text: content}
	case config.KindArticle:
		return &models.Article{Title: title, Body: content, Source: cfg.Source}
	case config.KindFootnote:
		return &models.FootnoteOrSubtitle{Type: models.TypeFootnote, Text: content}
	default:
		return &models.MediaTranscriptItem{Text: content, Title: title}
	}
}
