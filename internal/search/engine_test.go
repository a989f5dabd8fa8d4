package search

import (
	"context"
	"errors"
	"testing"

	"github.com/hyperjump/kashf/internal/attribution"
	"github.com/hyperjump/kashf/internal/collection"
	"github.com/hyperjump/kashf/internal/config"
	"github.com/hyperjump/kashf/internal/embedding"
	"github.com/hyperjump/kashf/internal/models"
	"github.com/hyperjump/kashf/internal/unified"
	"github.com/hyperjump/kashf/internal/vector"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDims = 16

type mockSource struct {
	emb embedding.Embedder
}

func (m mockSource) For(string) (embedding.Embedder, error) { return m.emb, nil }

type failingEmbedder struct {
	*embedding.MockEmbedder
}

func (failingEmbedder) Embed(context.Context, string) ([]float32, error) {
	return nil, errors.New("connection refused")
}

// newCollection embeds texts[i] as the vector of records[i].
func newCollection(t *testing.T, cfg config.CollectionConfig, texts []string, records []models.MetadataRecord) *collection.Collection {
	t.Helper()
	emb := embedding.NewMockEmbedder(testDims)
	vecs, err := emb.EmbedBatch(context.Background(), texts)
	require.NoError(t, err)
	idx, err := vector.NewFlatIndex(testDims)
	require.NoError(t, err)
	require.NoError(t, idx.Add(context.Background(), vecs))
	c, _ := collection.New(cfg, idx, records)
	return c
}

func verseCollection(t *testing.T) *collection.Collection {
	return newCollection(t,
		config.CollectionConfig{Name: "FinalTestament", Kind: config.KindVerse, Source: "Final Testament"},
		[]string{"بسم الله", "Praise be to GOD, Lord of the universe", "GOD: there is no other god besides Him"},
		[]models.MetadataRecord{
			&models.Verse{Ref: "1:1", Arabic: "بِسْمِ اللَّهِ الرَّحْمَٰنِ الرَّحِيمِ", English: "In the name of GOD, Most Gracious, Most Merciful."},
			&models.Verse{Ref: "1:2", English: "Praise be to GOD, Lord of the universe."},
			&models.Verse{Ref: "2:255", English: "GOD: there is no other god besides Him."},
		})
}

func articleCollection(t *testing.T) *collection.Collection {
	long := make([]rune, 600)
	for i := range long {
		long[i] = 'ب'
	}
	return newCollection(t,
		config.CollectionConfig{Name: "QuranTalkArticles", Kind: config.KindArticle, Source: "QuranTalk"},
		[]string{"miracle of nineteen", "the messenger of the covenant"},
		[]models.MetadataRecord{
			&models.Article{Title: "Nineteen", Body: string(long), SourceURL: "https://example.com/19"},
			&models.Article{Title: "Covenant", Body: "short body", Source: "Rashad Khalifa Newsletters"},
		})
}

func newEngine(t *testing.T, colls []*collection.Collection, opts ...Option) *Engine {
	t.Helper()
	idx, err := unified.Build(context.Background(), colls, string(vector.IndexTypeFlat), nil)
	require.NoError(t, err)
	e, err := NewEngine(idx, mockSource{emb: embedding.NewMockEmbedder(testDims)}, append([]Option{WithPoolSize(2)}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(e.Release)
	return e
}

func TestEngine_Bismillah(t *testing.T) {
	e := newEngine(t, []*collection.Collection{verseCollection(t)})
	resp, err := e.Search(context.Background(), &models.SearchQuery{Query: "bismillah", NumResults: 3})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Results)

	top := resp.Results[0]
	assert.Equal(t, "1:1", top.VerseRef)
	assert.Equal(t, "[1:1] Verse", top.Title)
	assert.Equal(t, "Final Testament", top.Source)
	assert.InDelta(t, 1.0, top.SimilarityScore, 1e-6)
	assert.Contains(t, top.Content, "In the name of GOD")
	assert.Contains(t, top.Content, "بِسْمِ")
}

func TestEngine_ResultBoundAndOrdering(t *testing.T) {
	e := newEngine(t, []*collection.Collection{verseCollection(t), articleCollection(t)})
	for _, n := range []int{1, 2, 4, 50} {
		resp, err := e.Search(context.Background(), &models.SearchQuery{Query: "miracle of nineteen", NumResults: n})
		require.NoError(t, err)
		assert.LessOrEqual(t, len(resp.Results), min(n, models.MaxNumResults))
		assert.Equal(t, len(resp.Results), resp.TotalResults)
		for i, r := range resp.Results {
			assert.Greater(t, r.SimilarityScore, 0.0)
			assert.LessOrEqual(t, r.SimilarityScore, 1.0)
			if i > 0 {
				assert.GreaterOrEqual(t, resp.Results[i-1].SimilarityScore, r.SimilarityScore)
			}
		}
	}
}

func TestEngine_DefaultNumResults(t *testing.T) {
	e := newEngine(t, []*collection.Collection{verseCollection(t), articleCollection(t)})
	resp, err := e.Search(context.Background(), &models.SearchQuery{Query: "god"})
	require.NoError(t, err)
	assert.Len(t, resp.Results, models.DefaultNumResults)
}

func TestEngine_CollectionFilter(t *testing.T) {
	e := newEngine(t, []*collection.Collection{verseCollection(t), articleCollection(t)})

	resp, err := e.Search(context.Background(), &models.SearchQuery{
		Query: "miracle of nineteen", NumResults: 10, Collections: []string{"QuranTalkArticles"},
	})
	require.NoError(t, err)
	require.Len(t, resp.Results, 2)
	for _, r := range resp.Results {
		assert.Equal(t, "QuranTalkArticles", r.Collection)
	}
	assert.Equal(t, "Nineteen", resp.Results[0].Title)
	assert.Equal(t, "https://example.com/19", resp.Results[0].SourceURL)
	assert.Equal(t, "QuranTalk", resp.Results[0].Source)
	assert.Equal(t, 503, len([]rune(resp.Results[0].Content)), "body truncated to 500 runes plus ellipsis")
	assert.Equal(t, "Rashad Khalifa Newsletters", resp.Results[1].Source)

	resp, err = e.Search(context.Background(), &models.SearchQuery{Query: "x", Collections: []string{"Missing"}})
	require.NoError(t, err)
	assert.Empty(t, resp.Results)
	assert.NotNil(t, resp.Results)
}

func TestEngine_EmptyCollectionContributesNothing(t *testing.T) {
	idx, err := vector.NewFlatIndex(testDims)
	require.NoError(t, err)
	empty, _ := collection.New(config.CollectionConfig{Name: "Empty", Kind: config.KindMedia}, idx, nil)
	e := newEngine(t, []*collection.Collection{empty, verseCollection(t)})
	resp, err := e.Search(context.Background(), &models.SearchQuery{Query: "god", NumResults: 20})
	require.NoError(t, err)
	assert.Len(t, resp.Results, 3)
}

func TestEngine_EmbeddingFailure(t *testing.T) {
	idx, err := unified.Build(context.Background(), []*collection.Collection{verseCollection(t)}, string(vector.IndexTypeFlat), nil)
	require.NoError(t, err)
	e, err := NewEngine(idx, mockSource{emb: failingEmbedder{embedding.NewMockEmbedder(testDims)}})
	require.NoError(t, err)
	defer e.Release()

	_, err = e.Search(context.Background(), &models.SearchQuery{Query: "god"})
	assert.True(t, errors.Is(err, models.ErrEmbeddingService), "got %v", err)
}

func TestEngine_InvalidQuery(t *testing.T) {
	e := newEngine(t, []*collection.Collection{verseCollection(t)})
	_, err := e.Search(context.Background(), &models.SearchQuery{Query: "   "})
	assert.True(t, errors.Is(err, models.ErrInvalidQuery))
}

func TestEngine_ScriptNativeCollection(t *testing.T) {
	// script queries against script-native collections embed the first two variants
	arabic := newCollection(t,
		config.CollectionConfig{Name: "ArabicVerses", Kind: config.KindVerse, ScriptNative: true, Source: "Final Testament"},
		[]string{"نص اخر", "قل هو الله احد"},
		[]models.MetadataRecord{
			&models.Verse{Ref: "2:1", Text: "نص اخر"},
			&models.Verse{Ref: "112:1", Text: "قُلْ هُوَ اللَّهُ أَحَدٌ"},
		})
	e := newEngine(t, []*collection.Collection{arabic})
	resp, err := e.Search(context.Background(), &models.SearchQuery{Query: "قل هو الله احد", NumResults: 1})
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "ArabicVerses", resp.Results[0].Collection)
}

func TestNewEngine_RequiresDependencies(t *testing.T) {
	_, err := NewEngine(nil, mockSource{})
	assert.Error(t, err)
	idx, err := unified.Build(context.Background(), nil, string(vector.IndexTypeFlat), nil)
	require.NoError(t, err)
	_, err = NewEngine(idx, nil)
	assert.Error(t, err)
}

func TestEngine_MediaAttribution(t *testing.T) {
	texts := []string{"(0:05) Hello world", "filler talk about other things"}
	media := newCollection(t,
		config.CollectionConfig{Name: "RashadAllMedia", Kind: config.KindMedia, Source: "Rashad Khalifa Media"},
		texts,
		[]models.MetadataRecord{
			&models.MediaTranscriptItem{Text: texts[0], Title: "RashadAllMedia - Item 1"},
			&models.MediaTranscriptItem{Text: texts[1], Title: "RashadAllMedia - Item 2"},
		})
	resolver := attribution.NewResolver(texts, attribution.NewMapping(map[int]attribution.Source{
		0: {Title: "Video A", Link: "https://youtu.be/a"},
	}))
	e := newEngine(t, []*collection.Collection{media}, WithAttribution(attribution.NewService(resolver, nil)))

	resp, err := e.Search(context.Background(), &models.SearchQuery{Query: "(0:05) Hello world", NumResults: 1})
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	r := resp.Results[0]
	assert.Equal(t, "Video A", r.Title)
	assert.Equal(t, "https://youtu.be/a?t=5", r.YoutubeLink)
	assert.True(t, r.ExactMatch)
	assert.Equal(t, "Rashad Khalifa Media", r.Source)
}
