package attribution

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
)

const (
	probeRunes          = 100
	windowWords         = 5
	shortWindowWords    = 4
	defaultGapThreshold = 10
)

var timestampPattern = regexp.MustCompile(`\((\d+):(\d{2})(?::(\d{2}))?\)`)

// Attribution is a resolved source for a fragment.
type Attribution struct {
	Title        string
	Link         string
	IsExactMatch bool
	FoundIndex   int
	MappedIndex  int
}

// Resolver attributes fragments of a media corpus to source videos.
type Resolver struct {
	corpus       []string
	mapping      *Mapping
	gapThreshold int
	logger       *zap.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger sets the logger used for low-confidence attributions.
func WithLogger(l *zap.Logger) Option {
	return func(r *Resolver) { r.logger = l }
}

// WithGapThreshold sets the distance from the mapped key above which an approximate
// attribution is logged as low confidence.
func WithGapThreshold(n int) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.gapThreshold = n
		}
	}
}

// NewResolver creates a resolver over corpus, the ordered contents of one media
// collection. The corpus is whitespace-collapsed once here.
func NewResolver(corpus []string, mapping *Mapping, opts ...Option) *Resolver {
	r := &Resolver{
		corpus:       make([]string, len(corpus)),
		mapping:      mapping,
		gapThreshold: defaultGapThreshold,
		logger:       zap.NewNop(),
	}
	for i, c := range corpus {
		r.corpus[i] = collapse(c)
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// CorpusSize returns the number of corpus entries.
func (r *Resolver) CorpusSize() int {
	return len(r.corpus)
}

// Resolve attributes fragment. The second result is false when the fragment is not
// found in the corpus or no mapped key precedes it.
func (r *Resolver) Resolve(fragment string) (Attribution, bool) {
	text := collapse(fragment)
	if text == "" || r.mapping == nil {
		return Attribution{}, false
	}
	found, offset, ok := r.locate(text)
	if !ok {
		return Attribution{}, false
	}

	if src, ok := r.mapping.Exact(found); ok {
		a := Attribution{Title: src.Title, Link: src.Link, IsExactMatch: true, FoundIndex: found, MappedIndex: found}
		if secs, ok := r.timestamp(text, found, offset); ok {
			a.Link = withTimestamp(a.Link, secs)
		}
		return a, true
	}

	key, src, ok := r.mapping.Preceding(found)
	if !ok {
		return Attribution{}, false
	}
	if gap := found - key; gap > r.gapThreshold {
		r.logger.Warn("low confidence attribution",
			zap.Int("found_index", found),
			zap.Int("mapped_index", key),
			zap.Int("gap", gap),
			zap.String("title", src.Title))
	}
	return Attribution{Title: src.Title, Link: src.Link, FoundIndex: found, MappedIndex: key}, true
}

// locate returns the corpus position containing the fragment and the byte offset of
// the matched probe within that entry.
func (r *Resolver) locate(text string) (int, int, bool) {
	head, tail := firstRunes(text, probeRunes), lastRunes(text, probeRunes)
	for i, entry := range r.corpus {
		if off := strings.Index(entry, head); off >= 0 {
			return i, off, true
		}
		if off := strings.Index(entry, tail); off >= 0 {
			return i, off, true
		}
	}
	for _, probe := range windowProbes(text) {
		if i, off, ok := r.find(probe); ok {
			return i, off, true
		}
	}
	if m := timestampPattern.FindString(text); m != "" {
		return r.find(m)
	}
	return 0, 0, false
}

func (r *Resolver) find(probe string) (int, int, bool) {
	for i, entry := range r.corpus {
		if off := strings.Index(entry, probe); off >= 0 {
			return i, off, true
		}
	}
	return 0, 0, false
}

// timestamp returns the playback offset for an exact match: the fragment's first
// timestamp, or else the last timestamp in the corpus entry before the match.
func (r *Resolver) timestamp(text string, found, offset int) (int, bool) {
	if m := timestampPattern.FindStringSubmatch(text); m != nil {
		return seconds(m), true
	}
	all := timestampPattern.FindAllStringSubmatchIndex(r.corpus[found], -1)
	var last []int
	for _, loc := range all {
		if loc[0] > offset {
			break
		}
		last = loc
	}
	if last == nil {
		return 0, false
	}
	entry := r.corpus[found]
	m := make([]string, len(last)/2)
	for j := range m {
		if last[2*j] >= 0 {
			m[j] = entry[last[2*j]:last[2*j+1]]
		}
	}
	return seconds(m), true
}

// seconds converts a timestamp submatch (M:SS or H:MM:SS) to total seconds.
func seconds(m []string) int {
	a, _ := strconv.Atoi(m[1])
	b, _ := strconv.Atoi(m[2])
	if len(m) > 3 && m[3] != "" {
		c, _ := strconv.Atoi(m[3])
		return a*3600 + b*60 + c
	}
	return a*60 + b
}

// parseTimestamp returns the seconds of the first timestamp token in s.
func parseTimestamp(s string) (int, bool) {
	m := timestampPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	return seconds(m), true
}

func withTimestamp(link string, secs int) string {
	if link == "" {
		return link
	}
	sep := "?"
	if strings.Contains(link, "?") {
		sep = "&"
	}
	return link + sep + "t=" + strconv.Itoa(secs)
}

// windowProbes returns the first, middle, and last overlapping word windows.
func windowProbes(text string) []string {
	words := strings.Fields(text)
	size := windowWords
	if len(words) < windowWords {
		size = shortWindowWords
	}
	if len(words) < size {
		return nil
	}
	n := len(words) - size + 1
	window := func(i int) string { return strings.Join(words[i:i+size], " ") }
	var probes []string
	seen := map[int]bool{}
	for _, i := range []int{0, n / 2, n - 1} {
		if !seen[i] {
			seen[i] = true
			probes = append(probes, window(i))
		}
	}
	return probes
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func firstRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

func lastRunes(s string, n int) string {
	count := utf8.RuneCountInString(s)
	if count <= n {
		return s
	}
	skip := count - n
	i := 0
	for pos := range s {
		if i == skip {
			return s[pos:]
		}
		i++
	}
	return s
}
