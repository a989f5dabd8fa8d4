// Package verses holds verse references, the verse corpus, and the subtitle ranges
// derived from it.
package verses

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/hyperjump/kashf/internal/models"
)

// RangeFormat describes accepted range syntax in error messages.
const RangeFormat = "C:V or C:V1-V2 (e.g. 2:255 or 2:1-5)"

// Ref is a chapter:verse reference.
type Ref struct {
	Chapter int
	Verse   int
}

func (r Ref) String() string {
	return fmt.Sprintf("%d:%d", r.Chapter, r.Verse)
}

// Less orders refs by chapter then verse.
func (r Ref) Less(o Ref) bool {
	if r.Chapter != o.Chapter {
		return r.Chapter < o.Chapter
	}
	return r.Verse < o.Verse
}

// ParseRef parses "C:V".
func ParseRef(s string) (Ref, error) {
	chapter, verse, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return Ref{}, fmt.Errorf("%w: %q, expected %s", models.ErrMalformedRange, s, RangeFormat)
	}
	c, err := strconv.Atoi(strings.TrimSpace(chapter))
	if err != nil || c < 1 {
		return Ref{}, fmt.Errorf("%w: bad chapter in %q", models.ErrMalformedRange, s)
	}
	v, err := strconv.Atoi(strings.TrimSpace(verse))
	if err != nil || v < 0 {
		return Ref{}, fmt.Errorf("%w: bad verse in %q", models.ErrMalformedRange, s)
	}
	return Ref{Chapter: c, Verse: v}, nil
}

// Range is an inclusive verse range within one chapter.
type Range struct {
	Chapter int
	Start   int
	End     int
}

// ParseRange parses "C:V", "C:V1-V2" or "C:V1-C:V2". Ranges that span chapters or
// run backwards are rejected.
func ParseRange(s string) (Range, error) {
	s = strings.TrimSpace(s)
	from, to, hasEnd := strings.Cut(s, "-")
	start, err := ParseRef(from)
	if err != nil {
		return Range{}, err
	}
	r := Range{Chapter: start.Chapter, Start: start.Verse, End: start.Verse}
	if !hasEnd {
		return r, nil
	}
	to = strings.TrimSpace(to)
	if strings.Contains(to, ":") {
		end, err := ParseRef(to)
		if err != nil {
			return Range{}, err
		}
		if end.Chapter != start.Chapter {
			return Range{}, fmt.Errorf("%w: %q spans chapters", models.ErrMalformedRange, s)
		}
		r.End = end.Verse
	} else {
		v, err := strconv.Atoi(to)
		if err != nil {
			return Range{}, fmt.Errorf("%w: bad end verse in %q, expected %s", models.ErrMalformedRange, s, RangeFormat)
		}
		r.End = v
	}
	if r.End < r.Start {
		return Range{}, fmt.Errorf("%w: %q ends before it starts", models.ErrMalformedRange, s)
	}
	return r, nil
}

// Contains reports whether ref falls inside the range.
func (r Range) Contains(ref Ref) bool {
	return ref.Chapter == r.Chapter && ref.Verse >= r.Start && ref.Verse <= r.End
}

// String formats the range as "C:V" or "C:V1-V2".
func (r Range) String() string {
	if r.Start == r.End {
		return fmt.Sprintf("%d:%d", r.Chapter, r.Start)
	}
	return fmt.Sprintf("%d:%d-%d", r.Chapter, r.Start, r.End)
}
