package keyword

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	blevequery "github.com/blevesearch/bleve/v2/search/query"
	"github.com/hyperjump/kashf/internal/models"
	"github.com/hyperjump/kashf/internal/normalize"
)

const (
	docType         = "verse"
	fieldArabicNorm = "arabic_norm"
	minRequestSize  = 50
)

// verseDoc is the indexed form of a verse. arabic_norm holds the folded script text
// that normalized queries are matched against.
type verseDoc struct {
	Ref        string `json:"ref"`
	English    string `json:"english"`
	Arabic     string `json:"arabic"`
	ArabicNorm string `json:"arabic_norm"`
}

func (verseDoc) BleveType() string { return docType }

// BleveIndex implements VerseIndex using Bleve.
type BleveIndex struct {
	index bleve.Index
}

// NewBleveIndex creates or opens a Bleve index at path. An empty path keeps the
// index in memory. If you change the index mapping in code, remove the index
// directory to force a full re-index.
func NewBleveIndex(path string) (*BleveIndex, error) {
	im := bleve.NewIndexMapping()

	docMapping := bleve.NewDocumentMapping()
	textFieldMapping := bleve.NewTextFieldMapping()
	// standard analyzer: lowercase + tokenize, no stemming, so phrases match literally
	textFieldMapping.Analyzer = standard.Name
	docMapping.AddFieldMappingsAt(FieldEnglish, textFieldMapping)
	docMapping.AddFieldMappingsAt(FieldArabic, textFieldMapping)
	docMapping.AddFieldMappingsAt(fieldArabicNorm, textFieldMapping)
	docMapping.AddFieldMappingsAt("ref", bleve.NewKeywordFieldMapping())
	im.AddDocumentMapping(docType, docMapping)
	im.DefaultType = docType
	im.DefaultMapping = docMapping

	if path == "" {
		index, err := bleve.NewMemOnly(im)
		if err != nil {
			return nil, fmt.Errorf("failed to create Bleve index: %w", err)
		}
		return &BleveIndex{index: index}, nil
	}

	if _, err := os.Stat(path); err == nil {
		index, openErr := bleve.Open(path)
		if openErr != nil {
			return nil, fmt.Errorf("failed to open Bleve index: %w", openErr)
		}
		return &BleveIndex{index: index}, nil
	}

	index, err := bleve.New(path, im)
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index: %w", err)
	}
	return &BleveIndex{index: index}, nil
}

// IndexVerses indexes verses in one batch.
func (b *BleveIndex) IndexVerses(ctx context.Context, verses []*models.Verse) error {
	batch := b.index.NewBatch()
	for _, v := range verses {
		if v == nil || v.Ref == "" {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		doc := verseDoc{
			Ref:        v.Ref,
			English:    v.English,
			Arabic:     v.Arabic,
			ArabicNorm: normalize.NormalizeArabic(v.Arabic),
		}
		if err := batch.Index(v.Ref, doc); err != nil {
			return fmt.Errorf("failed to index verse %s: %w", v.Ref, err)
		}
	}
	if err := b.index.Batch(batch); err != nil {
		return fmt.Errorf("Bleve batch failed: %w", err)
	}
	return nil
}

// Search runs a disjunction of phrase queries, one per spelling variant of query.
// Arabic hits are kept only when the verse text fuzzily matches the query.
func (b *BleveIndex) Search(ctx context.Context, query, field string, limit int) ([]*VerseHit, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	arabic := field == FieldArabic
	q := normalize.Normalize(query)

	target := FieldEnglish
	if arabic {
		target = fieldArabicNorm
	}
	phrases := variantPhrases(q, arabic)
	if len(phrases) == 0 {
		return nil, nil
	}
	queries := make([]blevequery.Query, 0, len(phrases))
	for _, p := range phrases {
		mq := bleve.NewMatchPhraseQuery(p)
		mq.SetField(target)
		queries = append(queries, mq)
	}

	reqSize := limit
	if arabic {
		// leave room for hits the fuzzy confirmation drops
		reqSize = max(limit*2, minRequestSize)
	}
	req := bleve.NewSearchRequest(bleve.NewDisjunctionQuery(queries...))
	req.Size = reqSize
	if arabic {
		req.Fields = []string{FieldArabic}
	}
	results, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("Bleve search failed: %w", err)
	}

	out := make([]*VerseHit, 0, min(limit, len(results.Hits)))
	for _, hit := range results.Hits {
		if arabic {
			text, _ := hit.Fields[FieldArabic].(string)
			if !normalize.FuzzyMatch(text, q.TextForEmbedding) {
				continue
			}
		}
		out = append(out, &VerseHit{Ref: hit.ID, Score: hit.Score})
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// variantPhrases returns the distinct phrases to search for. English searches use
// the raw query and its Latin variants; Arabic searches use folded script variants.
func variantPhrases(q normalize.CanonicalQuery, arabic bool) []string {
	seen := map[string]bool{}
	var out []string
	add := func(s string) {
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			return
		}
		seen[s] = true
		out = append(out, s)
	}
	if arabic {
		add(normalize.NormalizeArabic(q.TextForEmbedding))
		for _, v := range q.TextVariants {
			if normalize.IsArabic(v) {
				add(normalize.NormalizeArabic(v))
			}
		}
		return out
	}
	add(q.Raw)
	for _, v := range q.TextVariants {
		if !normalize.IsArabic(v) {
			add(v)
		}
	}
	return out
}

// Close closes the Bleve index.
func (b *BleveIndex) Close() error {
	return b.index.Close()
}

// DocCount returns the total number of documents in the index.
func (b *BleveIndex) DocCount() (uint64, error) {
	return b.index.DocCount()
}
