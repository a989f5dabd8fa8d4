package verses

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/hyperjump/kashf/internal/collection"
	"github.com/hyperjump/kashf/internal/config"
	"github.com/hyperjump/kashf/internal/models"
	"go.uber.org/zap"
)

const corpusCacheFile = "verses_final.json"

// Corpus is the verse list in reference order. It is read-only once built.
type Corpus struct {
	verses []*models.Verse
	refs   []Ref
	byRef  map[Ref]int

	subtitles *Subtitles
}

// NewCorpus indexes verses by reference. Verses with unparseable references are
// dropped; later duplicates replace earlier ones.
func NewCorpus(verses []*models.Verse) *Corpus {
	type keyed struct {
		ref Ref
		v   *models.Verse
	}
	seen := make(map[Ref]int, len(verses))
	var items []keyed
	for _, v := range verses {
		if v == nil {
			continue
		}
		ref, err := ParseRef(v.Ref)
		if err != nil {
			continue
		}
		if i, dup := seen[ref]; dup {
			items[i].v = v
			continue
		}
		seen[ref] = len(items)
		items = append(items, keyed{ref: ref, v: v})
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].ref.Less(items[j].ref) })

	c := &Corpus{
		verses: make([]*models.Verse, len(items)),
		refs:   make([]Ref, len(items)),
		byRef:  make(map[Ref]int, len(items)),
	}
	for i, it := range items {
		c.verses[i] = it.v
		c.refs[i] = it.ref
		c.byRef[it.ref] = i
	}
	c.subtitles = newSubtitles(c)
	return c
}

// Len returns the number of verses.
func (c *Corpus) Len() int {
	return len(c.verses)
}

// All returns the verses in reference order.
func (c *Corpus) All() []*models.Verse {
	return c.verses
}

// Get returns the verse at ref.
func (c *Corpus) Get(ref Ref) (*models.Verse, bool) {
	i, ok := c.byRef[ref]
	if !ok {
		return nil, false
	}
	return c.verses[i], true
}

// Range returns the verses inside r in order.
func (c *Corpus) Range(r Range) []*models.Verse {
	lo := sort.Search(len(c.refs), func(i int) bool { return !c.refs[i].Less(Ref{r.Chapter, r.Start}) })
	var out []*models.Verse
	for i := lo; i < len(c.refs) && r.Contains(c.refs[i]); i++ {
		out = append(out, c.verses[i])
	}
	return out
}

// Subtitles returns the subtitle range resolver for this corpus.
func (c *Corpus) Subtitles() *Subtitles {
	return c.subtitles
}

// ParseCorpus decodes verses from either a JSON array of verse objects or an object
// keyed by reference.
func ParseCorpus(data []byte) ([]*models.Verse, error) {
	var list []*models.Verse
	if err := json.Unmarshal(data, &list); err == nil {
		return list, nil
	}
	var keyed map[string]*models.Verse
	if err := json.Unmarshal(data, &keyed); err != nil {
		return nil, fmt.Errorf("failed to parse verses: %w", err)
	}
	list = make([]*models.Verse, 0, len(keyed))
	for ref, v := range keyed {
		if v == nil {
			continue
		}
		if v.Ref == "" {
			v.Ref = ref
		}
		list = append(list, v)
	}
	return list, nil
}

// Load resolves the verse corpus from the configured URL or local paths.
func Load(ctx context.Context, cfg config.VersesConfig, useCloud bool, dl *collection.Downloader, logger *zap.Logger) (*Corpus, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	path, source, err := collection.ResolveFile(ctx, dl, useCloud, cfg.URL, corpusCacheFile, cfg.LocalPaths, logger)
	if err != nil {
		return nil, fmt.Errorf("verse corpus: %w", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read verses: %w", err)
	}
	list, err := ParseCorpus(data)
	if err != nil {
		return nil, err
	}
	c := NewCorpus(list)
	logger.Info("verse corpus loaded", zap.String("source", source), zap.Int("verses", c.Len()))
	return c, nil
}
