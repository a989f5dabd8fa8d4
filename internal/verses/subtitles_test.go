package verses

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/hyperjump/kashf/internal/config"
	"github.com/hyperjump/kashf/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chapter builds verses 1..n of chapter c with subtitles at the given verses.
func chapter(c, n int, subtitles map[int]string) []*models.Verse {
	out := make([]*models.Verse, 0, n)
	for v := 1; v <= n; v++ {
		out = append(out, &models.Verse{
			Ref:      fmt.Sprintf("%d:%d", c, v),
			English:  fmt.Sprintf("verse %d of %d", v, c),
			Subtitle: subtitles[v],
		})
	}
	return out
}

func testCorpus() *Corpus {
	var all []*models.Verse
	all = append(all, &models.Verse{Ref: "2:0", English: "basmala"})
	all = append(all, chapter(2, 10, map[int]string{3: "The Believers", 6: "The Hypocrites", 10: "Last"})...)
	all = append(all, chapter(1, 7, nil)...)
	all = append(all, chapter(3, 4, map[int]string{1: "Opening"})...)
	return NewCorpus(all)
}

func TestSubtitles_RangeFor(t *testing.T) {
	s := testCorpus().Subtitles()
	tests := []struct {
		ref  Ref
		want string
	}{
		{Ref{2, 1}, "2:1-2"},
		{Ref{2, 2}, "2:1-2"},
		{Ref{2, 3}, "2:3-5"},
		{Ref{2, 5}, "2:3-5"},
		{Ref{2, 6}, "2:6-9"},
		{Ref{2, 10}, "2:10"},
		{Ref{1, 4}, "1:1-7"},
		{Ref{3, 4}, "3:1-4"},
	}
	for _, tt := range tests {
		got, ok := s.RangeFor(tt.ref)
		require.True(t, ok, tt.ref.String())
		assert.Equal(t, tt.want, got, tt.ref.String())
	}
	_, ok := s.RangeFor(Ref{2, 0})
	assert.False(t, ok, "verse 0 is not part of any range")
	_, ok = s.RangeFor(Ref{9, 1})
	assert.False(t, ok)
}

func TestSubtitles_SubtitleFor(t *testing.T) {
	s := testCorpus().Subtitles()
	sub, ok := s.SubtitleFor(Ref{2, 4})
	require.True(t, ok)
	assert.Equal(t, "The Believers", sub)

	_, ok = s.SubtitleFor(Ref{2, 1})
	assert.False(t, ok, "leading range has no subtitle")
	_, ok = s.SubtitleFor(Ref{1, 1})
	assert.False(t, ok)
}

func TestSubtitles_Partition(t *testing.T) {
	c := testCorpus()
	s := c.Subtitles()
	for _, ch := range []int{1, 2, 3} {
		ranges := s.chapterRanges(ch)
		require.NotEmpty(t, ranges)
		next := 1
		for _, r := range ranges {
			assert.Equal(t, next, r.Start, "chapter %d has a gap or overlap", ch)
			assert.GreaterOrEqual(t, r.End, r.Start)
			next = r.End + 1
		}
		last := 0
		for _, v := range c.All() {
			ref, _ := ParseRef(v.Ref)
			if ref.Chapter == ch && ref.Verse > last {
				last = ref.Verse
			}
		}
		assert.Equal(t, last+1, next, "chapter %d ranges must end at the last verse", ch)

		for v := 1; v <= last; v++ {
			covering := 0
			for _, r := range ranges {
				if r.Contains(Ref{ch, v}) {
					covering++
				}
			}
			assert.Equal(t, 1, covering, "%d:%d", ch, v)
		}
	}
}

func TestSubtitles_ConcurrentFirstUse(t *testing.T) {
	s := testCorpus().Subtitles()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, ok := s.RangeFor(Ref{2, 7})
			assert.True(t, ok)
			assert.Equal(t, "2:6-9", got)
		}()
	}
	wg.Wait()
}

func TestCorpus_RangeAndGet(t *testing.T) {
	c := testCorpus()
	assert.Equal(t, 22, c.Len())
	assert.Equal(t, "1:1", c.All()[0].Ref)

	got := c.Range(Range{2, 2, 4})
	require.Len(t, got, 3)
	assert.Equal(t, "2:2", got[0].Ref)
	assert.Equal(t, "2:4", got[2].Ref)

	assert.Empty(t, c.Range(Range{4, 1, 3}))

	v, ok := c.Get(Ref{3, 1})
	require.True(t, ok)
	assert.Equal(t, "Opening", v.Subtitle)
}

func TestParseCorpus_Shapes(t *testing.T) {
	list, err := ParseCorpus([]byte(`[{"sura_verse":"1:1","arabic":"بسم","roots":["س م و"]}]`))
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "س م و", list[0].Roots)

	list, err = ParseCorpus([]byte(`{"1:2": {"english": "Praise be to GOD"}}`))
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "1:2", list[0].Ref)

	_, err = ParseCorpus([]byte(`"nope"`))
	assert.Error(t, err)
}

func TestLoad_LocalFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "verses.json")
	require.NoError(t, os.WriteFile(path, []byte(`[
		{"sura_verse":"1:1","english":"In the name of GOD","subtitle":"The Key"},
		{"sura_verse":"1:2","english":"Praise be to GOD"}
	]`), 0600))

	c, err := Load(context.Background(), config.VersesConfig{LocalPaths: []string{path}}, false, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, c.Len())
	got, ok := c.Subtitles().RangeFor(Ref{1, 2})
	require.True(t, ok)
	assert.Equal(t, "1:1-2", got)
}
