package attribution

import (
	"regexp"
	"strings"
	"sync"
)

const titleScoreFloor = 0.3

var (
	lineTimestamp = regexp.MustCompile(`\(\d+:\d+\)`)
	salientWords  = map[string]bool{
		"god": true, "quran": true, "submission": true, "islam": true,
		"prophet": true, "abraham": true, "moses": true, "jesus": true,
	}
)

// TitleMatcher guesses a source video from the title line of a transcript chunk. It
// is used when positional attribution is unavailable and never reports an exact match.
type TitleMatcher struct {
	mu    sync.RWMutex
	order []string
	links map[string]string
	words map[string][]string
}

// NewTitleMatcher returns an empty matcher.
func NewTitleMatcher() *TitleMatcher {
	return &TitleMatcher{links: make(map[string]string), words: make(map[string][]string)}
}

// Add registers a title. Titles are matched case-insensitively; re-adding a title
// updates its link but keeps its position.
func (m *TitleMatcher) Add(title, link string) {
	key := strings.ToLower(strings.TrimSpace(title))
	if key == "" {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.links[key]; !ok {
		m.order = append(m.order, key)
		m.words[key] = strings.Fields(key)
	}
	m.links[key] = link
}

// Len returns the number of registered titles.
func (m *TitleMatcher) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.order)
}

// Match returns the link of the title best matching content.
func (m *TitleMatcher) Match(content string) (string, bool) {
	title := ExtractTitle(content)
	if title == "" {
		return "", false
	}
	key := strings.ToLower(title)

	m.mu.RLock()
	defer m.mu.RUnlock()
	if link, ok := m.links[key]; ok {
		return link, true
	}

	titleWords := strings.Fields(key)
	set := make(map[string]bool, len(titleWords))
	for _, w := range titleWords {
		set[w] = true
	}

	var best string
	highest := 0.0
	for _, candidate := range m.order {
		words := m.words[candidate]
		overlap := 0
		salient := false
		seen := make(map[string]bool, len(words))
		for _, w := range words {
			if seen[w] || !set[w] {
				continue
			}
			seen[w] = true
			overlap++
			if salientWords[w] {
				salient = true
			}
		}
		if overlap == 0 {
			continue
		}
		score := float64(overlap) / float64(max(len(titleWords), len(words)))
		if salient {
			score += 0.2
		}
		if score > highest && score > titleScoreFloor {
			highest = score
			best = candidate
		}
	}
	if best == "" {
		return "", false
	}
	return m.links[best], true
}

// ExtractTitle returns the first line among the first three that carries no
// timestamp, with commas removed and whitespace collapsed.
func ExtractTitle(content string) string {
	lines := strings.SplitN(strings.TrimSpace(content), "\n", 4)
	if len(lines) > 3 {
		lines = lines[:3]
	}
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || lineTimestamp.MatchString(line) {
			continue
		}
		return collapse(strings.ReplaceAll(line, ",", ""))
	}
	return ""
}
