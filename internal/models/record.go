// Package models defines the metadata record variants, queries, and responses shared
// across kashf packages.
package models

// RecordKind tags the variant of a MetadataRecord.
type RecordKind string

const (
	KindVerse    RecordKind = "verse"
	KindMedia    RecordKind = "media"
	KindArticle  RecordKind = "article"
	KindFootnote RecordKind = "footnote"
)

// MetadataRecord is one entry of a collection's metadata array. The set of
// implementations is closed: Verse, MediaTranscriptItem, Article, FootnoteOrSubtitle.
type MetadataRecord interface {
	Kind() RecordKind
	// Content is the text used for literal substring matching.
	Content() string
	isRecord()
}

// MediaTranscriptItem is a slice of a media transcript.
type MediaTranscriptItem struct {
	Text  string `json:"content"`
	Title string `json:"title,omitempty"`
	Link  string `json:"link,omitempty"`
}

func (m *MediaTranscriptItem) Kind() RecordKind { return KindMedia }
func (m *MediaTranscriptItem) Content() string  { return m.Text }
func (m *MediaTranscriptItem) isRecord()        {}

// Article is an article or newsletter body.
type Article struct {
	Title     string `json:"title"`
	Body      string `json:"content"`
	SourceURL string `json:"url,omitempty"`
	Source    string `json:"source,omitempty"`
}

func (a *Article) Kind() RecordKind { return KindArticle }
func (a *Article) Content() string  { return a.Body }
func (a *Article) isRecord()        {}

// Footnote types.
const (
	TypeFootnote = "footnote"
	TypeSubtitle = "subtitle"
)

// FootnoteOrSubtitle is a footnote or section heading attached to a verse.
type FootnoteOrSubtitle struct {
	Type         string `json:"type"`
	VerseRef     string `json:"sura_verse"`
	Text         string `json:"content"`
	EnglishVerse string `json:"english_verse,omitempty"`
}

func (f *FootnoteOrSubtitle) Kind() RecordKind { return KindFootnote }
func (f *FootnoteOrSubtitle) Content() string  { return f.Text }
func (f *FootnoteOrSubtitle) isRecord()        {}
