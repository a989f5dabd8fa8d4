package collection

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/hyperjump/kashf/internal/config"
	"github.com/hyperjump/kashf/internal/models"
)

const youtubeWatchURL = "https://www.youtube.com/watch?v="

// ParseMetadata decodes a metadata file into records of the collection's kind.
// Accepted shapes: {"texts": [...], "metadata": [...]}, {"metadata": [...]}, an array
// of objects, and an array of strings.
func ParseMetadata(data []byte, cfg config.CollectionConfig) ([]models.MetadataRecord, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("empty metadata")
	}
	var texts []string
	var items []json.RawMessage
	switch data[0] {
	case '{':
		var doc struct {
			Texts    []string          `json:"texts"`
			Metadata []json.RawMessage `json:"metadata"`
		}
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parse metadata object: %w", err)
		}
		if doc.Texts == nil && doc.Metadata == nil {
			return nil, fmt.Errorf("metadata object has neither texts nor metadata")
		}
		texts, items = doc.Texts, doc.Metadata
	case '[':
		if err := json.Unmarshal(data, &items); err != nil {
			return nil, fmt.Errorf("parse metadata array: %w", err)
		}
	default:
		return nil, fmt.Errorf("unexpected metadata shape starting with %q", data[0])
	}

	n := len(items)
	if len(texts) > n {
		n = len(texts)
	}
	records := make([]models.MetadataRecord, 0, n)
	for i := 0; i < n; i++ {
		var text string
		if i < len(texts) {
			text = texts[i]
		}
		var fields map[string]any
		if i < len(items) {
			var v any
			if err := json.Unmarshal(items[i], &v); err != nil {
				return nil, fmt.Errorf("parse metadata entry %d: %w", i, err)
			}
			switch t := v.(type) {
			case map[string]any:
				fields = t
			case string:
				if text == "" {
					text = t
				}
			}
		}
		records = append(records, buildRecord(cfg, i, text, fields))
	}
	return records, nil
}

func buildRecord(cfg config.CollectionConfig, i int, text string, fields map[string]any) models.MetadataRecord {
	if fields == nil {
		fields = map[string]any{}
	}
	switch cfg.Kind {
	case config.KindVerse:
		v := models.VerseFromMap(fields)
		if v.Text == "" {
			if c := str(fields, "content"); c != "" {
				v.Text = c
			} else if v.English == "" && v.Arabic == "" {
				v.Text = text
			}
		}
		delete(v.Extra, "content")
		return v
	case config.KindArticle:
		a := &models.Article{
			Title:     str(fields, "title"),
			Body:      first(text, str(fields, "content"), str(fields, "text"), str(fields, "body")),
			SourceURL: first(str(fields, "url"), str(fields, "source_url"), str(fields, "link")),
			Source:    first(str(fields, "source"), cfg.Source),
		}
		if a.Title == "" {
			a.Title = fmt.Sprintf("Article %d", i+1)
		}
		return a
	case config.KindFootnote:
		f := &models.FootnoteOrSubtitle{
			Type:         first(str(fields, "type"), models.TypeFootnote),
			VerseRef:     first(str(fields, "sura_verse"), str(fields, "verse_ref")),
			Text:         first(str(fields, "content"), text),
			EnglishVerse: str(fields, "english_verse"),
		}
		return f
	default:
		m := &models.MediaTranscriptItem{
			Text:  first(text, str(fields, "content"), str(fields, "text")),
			Title: str(fields, "title"),
			Link:  first(str(fields, "youtube_link"), str(fields, "link"), str(fields, "url")),
		}
		if m.Link == "" {
			if id := str(fields, "youtube_id"); id != "" {
				m.Link = youtubeWatchURL + id
			}
		}
		if m.Title == "" {
			m.Title = fmt.Sprintf("%s - Item %d", cfg.Name, i+1)
		}
		return m
	}
}

func str(fields map[string]any, key string) string {
	s, _ := models.StringValue(fields[key])
	return s
}

func first(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
