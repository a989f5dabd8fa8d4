// Package attribution recovers which source video a media transcript fragment came
// from, using a sparse position-to-video mapping.
package attribution

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Source is a source video.
type Source struct {
	Title string
	Link  string
}

// Mapping is a sparse map from corpus position to source, with keys kept sorted for
// nearest-preceding lookups. It is read-only after construction.
type Mapping struct {
	keys    []int
	sources map[int]Source
}

// NewMapping builds a mapping from m. m is copied.
func NewMapping(m map[int]Source) *Mapping {
	mp := &Mapping{sources: make(map[int]Source, len(m)), keys: make([]int, 0, len(m))}
	for k, v := range m {
		mp.sources[k] = v
		mp.keys = append(mp.keys, k)
	}
	sort.Ints(mp.keys)
	return mp
}

// Len returns the number of mapped positions.
func (m *Mapping) Len() int {
	return len(m.keys)
}

// Exact returns the source mapped at position i.
func (m *Mapping) Exact(i int) (Source, bool) {
	s, ok := m.sources[i]
	return s, ok
}

// Preceding returns the largest mapped key <= i and its source.
func (m *Mapping) Preceding(i int) (int, Source, bool) {
	// first key > i
	n := sort.Search(len(m.keys), func(j int) bool { return m.keys[j] > i })
	if n == 0 {
		return 0, Source{}, false
	}
	k := m.keys[n-1]
	return k, m.sources[k], true
}

// mappingEntry is one item of the search results file.
type mappingEntry struct {
	TextIndex   *int   `json:"text_index"`
	VideoTitle  string `json:"video_title"`
	VideoLink   string `json:"video_link"`
	SearchTitle string `json:"search_title"`
}

// ParseMappingFile decodes the video search results file. Entries with a text_index
// feed the position mapping; every titled entry feeds the title matcher.
func ParseMappingFile(data []byte) (*Mapping, *TitleMatcher, error) {
	var entries []mappingEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, nil, fmt.Errorf("parse mapping file: %w", err)
	}
	positions := make(map[int]Source)
	titles := NewTitleMatcher()
	for _, e := range entries {
		if e.VideoLink == "" {
			continue
		}
		if e.SearchTitle != "" {
			titles.Add(e.SearchTitle, e.VideoLink)
		}
		if e.VideoTitle != "" {
			titles.Add(e.VideoTitle, e.VideoLink)
		}
		if e.TextIndex != nil && *e.TextIndex >= 0 {
			title := e.VideoTitle
			if title == "" {
				title = e.SearchTitle
			}
			positions[*e.TextIndex] = Source{Title: title, Link: e.VideoLink}
		}
	}
	return NewMapping(positions), titles, nil
}
