package search

import (
	"regexp"
	"strings"

	"github.com/hyperjump/kashf/internal/config"
	"github.com/hyperjump/kashf/internal/models"
	"github.com/hyperjump/kashf/internal/unified"
	"github.com/hyperjump/kashf/pkg/utils"
)

const (
	mediaContentRunes = 200
	mediaTitleRunes   = 100
	articleBodyRunes  = 500
)

var youtubeLink = regexp.MustCompile(`https?://(www\.)?(youtube\.com/watch\?v=|youtu\.be/)\S+`)

// format turns a hit into a result according to its record variant.
func (e *Engine) format(cfg config.CollectionConfig, h unified.Hit) *models.SearchResult {
	r := &models.SearchResult{
		Collection:      h.Entry.Collection,
		SimilarityScore: h.Score,
		Source:          cfg.Source,
	}
	switch rec := h.Entry.Record.(type) {
	case *models.Verse:
		r.VerseRef = rec.Ref
		r.Title = "[" + rec.Ref + "] Verse"
		r.Content = rec.Content()
	case *models.FootnoteOrSubtitle:
		label := "Footnote"
		if rec.Type == models.TypeSubtitle {
			label = "Subtitle"
		}
		r.VerseRef = rec.VerseRef
		r.Title = "[" + rec.VerseRef + "] " + label
		r.Content = rec.Text
		r.Source = cfg.Source + " - " + label
	case *models.Article:
		r.Title = rec.Title
		r.Content = utils.Truncate(rec.Body, articleBodyRunes)
		r.SourceURL = rec.SourceURL
		if rec.Source != "" {
			r.Source = rec.Source
		}
	case *models.MediaTranscriptItem:
		e.formatMedia(r, rec)
	default:
		return nil
	}
	return r
}

// formatMedia attributes a transcript chunk to its source video. The title falls back
// to the start of the content when the record only has a generated one.
func (e *Engine) formatMedia(r *models.SearchResult, rec *models.MediaTranscriptItem) {
	content := rec.Text
	r.Content = utils.Truncate(content, mediaContentRunes)

	if a, ok := e.attribution.Resolve(content); ok {
		r.Title = a.Title
		r.YoutubeLink = a.Link
		r.ExactMatch = a.IsExactMatch
	}
	if r.Title == "" {
		r.Title = rec.Title
		if r.Title == "" || strings.Contains(r.Title, "Item") {
			r.Title = utils.Truncate(strings.TrimSpace(content), mediaTitleRunes)
		}
	}
	if r.YoutubeLink == "" {
		r.YoutubeLink = rec.Link
	}
	if r.YoutubeLink == "" {
		r.YoutubeLink = youtubeLink.FindString(content)
	}
	if r.YoutubeLink == "" {
		if link, ok := e.attribution.MatchTitle(content); ok {
			r.YoutubeLink = link
		}
	}
}
