package verses

import "sync"

type subtitleRange struct {
	rng      Range
	subtitle string
}

// Subtitles maps each verse to the range governed by its section heading. Ranges are
// computed on first use and never change afterwards.
type Subtitles struct {
	corpus *Corpus

	once   sync.Once
	ranges []subtitleRange
	byRef  map[Ref]int
}

func newSubtitles(c *Corpus) *Subtitles {
	return &Subtitles{corpus: c}
}

// RangeFor returns the range containing ref, formatted "C:V" or "C:V1-V2".
func (s *Subtitles) RangeFor(ref Ref) (string, bool) {
	s.once.Do(s.build)
	i, ok := s.byRef[ref]
	if !ok {
		return "", false
	}
	return s.ranges[i].rng.String(), true
}

// SubtitleFor returns the heading of the range containing ref. Leading ranges before
// a chapter's first heading have none.
func (s *Subtitles) SubtitleFor(ref Ref) (string, bool) {
	s.once.Do(s.build)
	i, ok := s.byRef[ref]
	if !ok || s.ranges[i].subtitle == "" {
		return "", false
	}
	return s.ranges[i].subtitle, true
}

// chapterRanges returns every computed range of chapter in order.
func (s *Subtitles) chapterRanges(chapter int) []Range {
	s.once.Do(s.build)
	var out []Range
	for _, r := range s.ranges {
		if r.rng.Chapter == chapter {
			out = append(out, r.rng)
		}
	}
	return out
}

func (s *Subtitles) build() {
	s.byRef = make(map[Ref]int)
	refs := s.corpus.refs
	for lo := 0; lo < len(refs); {
		hi := lo
		for hi < len(refs) && refs[hi].Chapter == refs[lo].Chapter {
			hi++
		}
		s.buildChapter(lo, hi)
		lo = hi
	}
}

// buildChapter computes ranges over refs[lo:hi], which share one chapter.
func (s *Subtitles) buildChapter(lo, hi int) {
	refs := s.corpus.refs
	chapter := refs[lo].Chapter

	var verses []int
	var starts []int
	headings := map[int]string{}
	for i := lo; i < hi; i++ {
		v := refs[i].Verse
		if v == 0 {
			continue
		}
		verses = append(verses, v)
		if sub := s.corpus.verses[i].Subtitle; sub != "" {
			starts = append(starts, v)
			headings[v] = sub
		}
	}
	if len(verses) == 0 {
		return
	}
	first, last := verses[0], verses[len(verses)-1]

	add := func(start, end int, subtitle string) {
		idx := len(s.ranges)
		s.ranges = append(s.ranges, subtitleRange{rng: Range{Chapter: chapter, Start: start, End: end}, subtitle: subtitle})
		for _, v := range verses {
			if v >= start && v <= end {
				s.byRef[Ref{Chapter: chapter, Verse: v}] = idx
			}
		}
	}

	if len(starts) == 0 {
		add(first, last, "")
		return
	}
	if starts[0] > first {
		add(first, starts[0]-1, "")
	}
	for i, start := range starts {
		end := last
		if i+1 < len(starts) {
			end = starts[i+1] - 1
		}
		add(start, end, headings[start])
	}
}
