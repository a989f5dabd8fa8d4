package models

// SearchResult is a single formatted search hit.
type SearchResult struct {
	Collection      string  `json:"collection"`
	Title           string  `json:"title"`
	Content         string  `json:"content"`
	SimilarityScore float64 `json:"similarity_score"`
	Source          string  `json:"source,omitempty"`
	SourceURL       string  `json:"source_url,omitempty"`
	YoutubeLink     string  `json:"youtube_link,omitempty"`
	VerseRef        string  `json:"verse_ref,omitempty"`
	// ExactMatch is set for media hits whose source video was attributed exactly.
	ExactMatch bool `json:"exact_match,omitempty"`
}

// SearchResponse is the response for a search request.
type SearchResponse struct {
	Results      []*SearchResult `json:"results"`
	Query        string          `json:"query"`
	TotalResults int             `json:"total_results"`
	QueryTime    int64           `json:"query_time_ms"`
}

// VerseRangeResponse is the response for a verse range lookup.
type VerseRangeResponse struct {
	Verses         []*Verse `json:"verses"`
	TotalVerses    int      `json:"total_verses"`
	RangeRequested string   `json:"range_requested"`
}

// SubtitleRangeResponse is the response for a subtitle range lookup.
type SubtitleRangeResponse struct {
	VerseRef      string `json:"verse_ref"`
	SubtitleRange string `json:"subtitle_range,omitempty"`
	SubtitleText  string `json:"subtitle_text,omitempty"`
	Message       string `json:"message"`
}

// RootSearchInfo describes how a root search was interpreted.
type RootSearchInfo struct {
	Query         string   `json:"query"`
	SearchType    string   `json:"search_type"`
	RootsSearched []string `json:"roots_searched"`
}

// RootSearchResponse is the response for a verse root search.
type RootSearchResponse struct {
	Verses     []*Verse       `json:"verses"`
	TotalFound int            `json:"total_found"`
	SearchInfo RootSearchInfo `json:"search_info"`
}

// AttributionResponse is the response for a fragment attribution request.
type AttributionResponse struct {
	Found        bool   `json:"found"`
	Title        string `json:"title,omitempty"`
	Link         string `json:"link,omitempty"`
	IsExactMatch bool   `json:"is_exact_match"`
	FoundIndex   int    `json:"found_index,omitempty"`
	MappedIndex  int    `json:"mapped_index,omitempty"`
	Message      string `json:"message,omitempty"`
}

// TextSearchResponse is the response for a literal verse text search.
type TextSearchResponse struct {
	Verses     []*Verse `json:"verses"`
	TotalFound int      `json:"total_found"`
	Query      string   `json:"query"`
	Field      string   `json:"field"`
}
