package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hyperjump/kashf/internal/attribution"
	"github.com/hyperjump/kashf/internal/collection"
	"github.com/hyperjump/kashf/internal/config"
	"github.com/hyperjump/kashf/internal/embedding"
	"github.com/hyperjump/kashf/internal/keyword"
	"github.com/hyperjump/kashf/internal/models"
	"github.com/hyperjump/kashf/internal/search"
	"github.com/hyperjump/kashf/internal/storage"
	"github.com/hyperjump/kashf/internal/unified"
	"github.com/hyperjump/kashf/internal/vector"
	"github.com/hyperjump/kashf/internal/verses"
	"go.uber.org/zap"
)

const testDims = 8

type staticSource struct {
	emb embedding.Embedder
}

func (s staticSource) For(string) (embedding.Embedder, error) { return s.emb, nil }

type downEmbedder struct {
	*embedding.MockEmbedder
}

func (downEmbedder) Embed(context.Context, string) ([]float32, error) {
	return nil, errors.New("connection refused")
}

type configured bool

func (c configured) Configured() bool { return bool(c) }

func testVerses() []*models.Verse {
	return []*models.Verse{
		{Ref: "1:1", English: "In the name of GOD, Most Gracious, Most Merciful.", Arabic: "بسم الله الرحمن الرحيم", Roots: "smw, Alh, rHm", Subtitle: "The Key"},
		{Ref: "1:2", English: "Praise be to GOD, Lord of the universe.", Arabic: "الحمد لله رب العالمين", Roots: "Hmd, rbb, Elm"},
		{Ref: "2:1", English: "A.L.M.", Arabic: "الم"},
		{Ref: "2:2", English: "This scripture is infallible.", Arabic: "ذلك الكتاب لا ريب فيه", Roots: "ktb, ryb", Subtitle: "The Righteous"},
		{Ref: "2:3", English: "Who believe in the unseen.", Arabic: "الذين يؤمنون بالغيب", Roots: "Amn, gyb"},
		{Ref: "2:4", English: "And they believe in what was revealed to you.", Arabic: "والذين يؤمنون بما انزل اليك", Roots: "Amn, nzl", Subtitle: "The Disbelievers"},
		{Ref: "2:5", English: "These are guided by their Lord.", Arabic: "اولئك على هدى من ربهم", Roots: "hdy, rbb"},
	}
}

func testCollection(t *testing.T) *collection.Collection {
	t.Helper()
	emb := embedding.NewMockEmbedder(testDims)
	texts := []string{"بسم الله", "Praise be to GOD, Lord of the universe"}
	vecs, err := emb.EmbedBatch(context.Background(), texts)
	if err != nil {
		t.Fatal(err)
	}
	idx, err := vector.NewFlatIndex(testDims)
	if err != nil {
		t.Fatal(err)
	}
	if err := idx.Add(context.Background(), vecs); err != nil {
		t.Fatal(err)
	}
	all := testVerses()
	c, _ := collection.New(
		config.CollectionConfig{Name: "FinalTestament", Kind: config.KindVerse, Source: "Final Testament"},
		idx, []models.MetadataRecord{all[0], all[1]})
	return c
}

type fixture struct {
	srv    *Server
	engine *search.Engine
}

func newFixture(t *testing.T, emb embedding.Embedder) *fixture {
	t.Helper()
	ctx := context.Background()
	coll := testCollection(t)
	idx, err := unified.Build(ctx, []*collection.Collection{coll}, string(vector.IndexTypeFlat), nil)
	if err != nil {
		t.Fatal(err)
	}

	resolver := attribution.NewResolver(
		[]string{"(0:05) Hello world", "and the second video begins here"},
		attribution.NewMapping(map[int]attribution.Source{
			0: {Title: "Video A", Link: "https://youtu.be/aaaa"},
			1: {Title: "Video B", Link: "https://youtu.be/bbbb"},
		}))
	engine, err := search.NewEngine(idx, staticSource{emb: emb},
		search.WithPoolSize(2), search.WithAttribution(attribution.NewService(resolver, attribution.NewTitleMatcher())))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(engine.Release)

	all := testVerses()
	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	if err := store.ReplaceVerses(ctx, all); err != nil {
		t.Fatal(err)
	}
	text, err := keyword.NewBleveIndex("")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { text.Close() })
	if err := text.IndexVerses(ctx, all); err != nil {
		t.Fatal(err)
	}

	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	cfg.Storage.CacheDir = t.TempDir()
	cfg.Embedding.APIKey = "sk-test-secret-9876"

	srv := NewServer(Deps{
		Engine:      engine,
		Collections: collection.NewStaticStore(coll),
		Verses:      store,
		Text:        text,
		Corpus:      verses.NewCorpus(all),
		Embeddings:  configured(true),
	}, cfg, "test", zap.NewNop())
	return &fixture{srv: srv, engine: engine}
}

func (f *fixture) do(t *testing.T, method, target string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	r := httptest.NewRequest(method, target, &buf)
	w := httptest.NewRecorder()
	f.srv.Routes().ServeHTTP(w, r)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(out); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
}

func TestHandleRoot(t *testing.T) {
	f := newFixture(t, embedding.NewMockEmbedder(testDims))
	w := f.do(t, http.MethodGet, "/", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}
	var out struct {
		Name         string            `json:"name"`
		Version      string            `json:"version"`
		Collections  []string          `json:"collections"`
		TotalVectors int               `json:"total_vectors"`
		Endpoints    map[string]string `json:"endpoints"`
	}
	decode(t, w, &out)
	if out.Version != "test" || out.TotalVectors != 2 {
		t.Errorf("unexpected info: %+v", out)
	}
	if len(out.Collections) != 1 || out.Collections[0] != "FinalTestament" {
		t.Errorf("collections: got %v", out.Collections)
	}
	if out.Endpoints["search"] != "/api/v1/search" {
		t.Errorf("endpoints: got %v", out.Endpoints)
	}
}

func TestHandleHealth(t *testing.T) {
	f := newFixture(t, embedding.NewMockEmbedder(testDims))
	w := f.do(t, http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}
	var out struct {
		Status              string `json:"status"`
		CollectionsLoaded   int    `json:"collections_loaded"`
		EmbeddingConfigured bool   `json:"embedding_configured"`
	}
	decode(t, w, &out)
	if out.Status != "healthy" || out.CollectionsLoaded != 1 || !out.EmbeddingConfigured {
		t.Errorf("unexpected health: %+v", out)
	}
}

func TestRequestIDHeader(t *testing.T) {
	f := newFixture(t, embedding.NewMockEmbedder(testDims))
	w := f.do(t, http.MethodGet, "/health", nil)
	if w.Header().Get(requestIDHeader) == "" {
		t.Error("expected generated request id")
	}

	r := httptest.NewRequest(http.MethodGet, "/health", nil)
	r.Header.Set(requestIDHeader, "abc-123")
	w = httptest.NewRecorder()
	f.srv.Routes().ServeHTTP(w, r)
	if got := w.Header().Get(requestIDHeader); got != "abc-123" {
		t.Errorf("request id: got %q, want caller's", got)
	}
}

func TestHandleSearch(t *testing.T) {
	f := newFixture(t, embedding.NewMockEmbedder(testDims))
	w := f.do(t, http.MethodPost, "/api/v1/search", models.SearchQuery{Query: "bismillah", NumResults: 1})
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, body: %s", w.Code, w.Body.String())
	}
	var out models.SearchResponse
	decode(t, w, &out)
	if out.TotalResults != 1 || len(out.Results) != 1 {
		t.Fatalf("results: got %+v", out)
	}
	if out.Results[0].VerseRef != "1:1" || out.Results[0].Title != "[1:1] Verse" {
		t.Errorf("top result: got %+v", out.Results[0])
	}
}

func TestHandleSearch_Errors(t *testing.T) {
	f := newFixture(t, embedding.NewMockEmbedder(testDims))
	if w := f.do(t, http.MethodPost, "/api/v1/search", "{not json"); w.Code != http.StatusBadRequest {
		t.Errorf("bad body: got %d", w.Code)
	}
	if w := f.do(t, http.MethodPost, "/api/v1/search", models.SearchQuery{Query: "   "}); w.Code != http.StatusBadRequest {
		t.Errorf("empty query: got %d", w.Code)
	}

	down := newFixture(t, downEmbedder{embedding.NewMockEmbedder(testDims)})
	w := down.do(t, http.MethodPost, "/api/v1/search", models.SearchQuery{Query: "mercy"})
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("embedding failure: got %d, want 503", w.Code)
	}
}

func TestHandleVerseRange(t *testing.T) {
	f := newFixture(t, embedding.NewMockEmbedder(testDims))
	w := f.do(t, http.MethodGet, "/api/v1/verses?range=2:2-4", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, body: %s", w.Code, w.Body.String())
	}
	var out struct {
		Verses         []map[string]string `json:"verses"`
		TotalVerses    int                 `json:"total_verses"`
		RangeRequested string              `json:"range_requested"`
	}
	decode(t, w, &out)
	if out.TotalVerses != 3 || out.RangeRequested != "2:2-4" {
		t.Fatalf("unexpected range response: %+v", out)
	}
	for i, want := range []string{"2:2", "2:3", "2:4"} {
		if got := out.Verses[i]["sura_verse"]; got != want {
			t.Errorf("verse %d: got %q, want %q", i, got, want)
		}
	}
}

func TestHandleVerseRange_Malformed(t *testing.T) {
	f := newFixture(t, embedding.NewMockEmbedder(testDims))
	for _, target := range []string{
		"/api/v1/verses",
		"/api/v1/verses?range=abc",
		"/api/v1/verses?range=2:5-3:1",
		"/api/v1/verses?range=2:5-2",
	} {
		w := f.do(t, http.MethodGet, target, nil)
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: got %d, want 400", target, w.Code)
			continue
		}
		if !strings.Contains(w.Body.String(), "C:V1-V2") {
			t.Errorf("%s: error should name the expected format: %s", target, w.Body.String())
		}
	}
}

func TestHandleSubtitleRange(t *testing.T) {
	f := newFixture(t, embedding.NewMockEmbedder(testDims))
	cases := []struct {
		ref       string
		wantRange string
		wantText  string
	}{
		{"2:3", "2:2-3", "The Righteous"},
		{"2:5", "2:4-5", "The Disbelievers"},
		{"2:1", "2:1", ""},
		{"9:9", "9:9", ""},
	}
	for _, tc := range cases {
		w := f.do(t, http.MethodGet, "/api/v1/subtitle-range?verse_ref="+tc.ref, nil)
		if w.Code != http.StatusOK {
			t.Fatalf("%s: status %d", tc.ref, w.Code)
		}
		var out models.SubtitleRangeResponse
		decode(t, w, &out)
		if out.SubtitleRange != tc.wantRange || out.SubtitleText != tc.wantText {
			t.Errorf("%s: got range %q text %q, want %q %q", tc.ref, out.SubtitleRange, out.SubtitleText, tc.wantRange, tc.wantText)
		}
		if out.Message == "" {
			t.Errorf("%s: expected a message", tc.ref)
		}
	}

	if w := f.do(t, http.MethodGet, "/api/v1/subtitle-range?verse_ref=two", nil); w.Code != http.StatusBadRequest {
		t.Errorf("malformed ref: got %d", w.Code)
	}
}

func TestHandleRootSearch(t *testing.T) {
	f := newFixture(t, embedding.NewMockEmbedder(testDims))
	w := f.do(t, http.MethodGet, "/api/v1/verses/roots?q=rt:Amn+OR+rt:rbb", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, body: %s", w.Code, w.Body.String())
	}
	var out struct {
		Verses     []map[string]string   `json:"verses"`
		TotalFound int                   `json:"total_found"`
		SearchInfo models.RootSearchInfo `json:"search_info"`
	}
	decode(t, w, &out)
	if out.TotalFound != 4 {
		t.Errorf("total_found: got %d, want 4", out.TotalFound)
	}
	if out.SearchInfo.SearchType != "root" || len(out.SearchInfo.RootsSearched) != 2 {
		t.Errorf("search_info: got %+v", out.SearchInfo)
	}
	if len(out.Verses) > 0 && out.Verses[0]["sura_verse"] != "1:2" {
		t.Errorf("expected reference order, first is %q", out.Verses[0]["sura_verse"])
	}

	w = f.do(t, http.MethodGet, "/api/v1/verses/roots?q=rt:Amn&limit=1", nil)
	decode(t, w, &out)
	if out.TotalFound != 1 {
		t.Errorf("limit: got %d", out.TotalFound)
	}

	if w := f.do(t, http.MethodGet, "/api/v1/verses/roots?q=", nil); w.Code != http.StatusBadRequest {
		t.Errorf("empty q: got %d", w.Code)
	}
	if w := f.do(t, http.MethodGet, "/api/v1/verses/roots?q=rt:Amn&limit=x", nil); w.Code != http.StatusBadRequest {
		t.Errorf("bad limit: got %d", w.Code)
	}
}

func TestHandleTextSearch(t *testing.T) {
	f := newFixture(t, embedding.NewMockEmbedder(testDims))
	w := f.do(t, http.MethodGet, "/api/v1/verses/text?q=scripture", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, body: %s", w.Code, w.Body.String())
	}
	var out struct {
		Verses     []map[string]string `json:"verses"`
		TotalFound int                 `json:"total_found"`
		Field      string              `json:"field"`
	}
	decode(t, w, &out)
	if out.TotalFound != 1 || out.Verses[0]["sura_verse"] != "2:2" || out.Field != keyword.FieldEnglish {
		t.Errorf("unexpected text search: %+v", out)
	}

	if w := f.do(t, http.MethodGet, "/api/v1/verses/text?q=x&field=roots", nil); w.Code != http.StatusBadRequest {
		t.Errorf("bad field: got %d", w.Code)
	}
	if w := f.do(t, http.MethodGet, "/api/v1/verses/text", nil); w.Code != http.StatusBadRequest {
		t.Errorf("missing q: got %d", w.Code)
	}
}

func TestHandleAttribution(t *testing.T) {
	f := newFixture(t, embedding.NewMockEmbedder(testDims))
	w := f.do(t, http.MethodPost, "/api/v1/attribution", map[string]string{"fragment": "Hello world"})
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, body: %s", w.Code, w.Body.String())
	}
	var out models.AttributionResponse
	decode(t, w, &out)
	if !out.Found || !out.IsExactMatch || out.Title != "Video A" || out.Link != "https://youtu.be/aaaa?t=5" {
		t.Errorf("unexpected attribution: %+v", out)
	}

	w = f.do(t, http.MethodPost, "/api/v1/attribution", map[string]string{"fragment": "nothing like this exists anywhere"})
	out = models.AttributionResponse{}
	decode(t, w, &out)
	if out.Found || out.Message == "" {
		t.Errorf("expected not-found message, got %+v", out)
	}

	if w := f.do(t, http.MethodPost, "/api/v1/attribution", map[string]string{}); w.Code != http.StatusBadRequest {
		t.Errorf("empty fragment: got %d", w.Code)
	}
}

func TestHandleAttribution_Unavailable(t *testing.T) {
	srv := NewServer(Deps{}, nil, "test", nil)
	r := httptest.NewRequest(http.MethodPost, "/api/v1/attribution", strings.NewReader(`{"fragment":"x"}`))
	w := httptest.NewRecorder()
	srv.handleAttribution(w, r)
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status: got %d, want 503", w.Code)
	}
}

func TestHandleStatus(t *testing.T) {
	f := newFixture(t, embedding.NewMockEmbedder(testDims))
	if err := os.WriteFile(filepath.Join(f.srv.config.Storage.CacheDir, "FinalTestament.json"), []byte("[]"), 0600); err != nil {
		t.Fatal(err)
	}
	w := f.do(t, http.MethodGet, "/api/v1/status", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, body: %s", w.Code, w.Body.String())
	}
	var out struct {
		Collections    []collection.Status    `json:"collections"`
		Verses         int64                  `json:"verses"`
		TextIndexDocs  uint64                 `json:"text_index_docs"`
		DiskUsageBytes *int64                 `json:"disk_usage_bytes"`
		Config         map[string]interface{} `json:"config"`
	}
	decode(t, w, &out)
	if len(out.Collections) != 1 || !out.Collections[0].Loaded || out.Collections[0].Size != 2 {
		t.Errorf("collections: got %+v", out.Collections)
	}
	if out.Verses != 7 || out.TextIndexDocs != 7 {
		t.Errorf("counts: verses %d, docs %d", out.Verses, out.TextIndexDocs)
	}
	if out.DiskUsageBytes == nil || *out.DiskUsageBytes < 2 {
		t.Errorf("disk_usage_bytes: got %v", out.DiskUsageBytes)
	}
	if out.Config["index_type"] != "flat" {
		t.Errorf("config: got %v", out.Config)
	}
}

func TestHandleDebug(t *testing.T) {
	t.Setenv("USE_CLOUD_VECTORS", "")
	f := newFixture(t, embedding.NewMockEmbedder(testDims))
	w := f.do(t, http.MethodGet, "/api/v1/debug", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}
	body := w.Body.String()
	if strings.Contains(body, "sk-test-secret-9876") {
		t.Error("api key leaked in debug output")
	}
	var out struct {
		Environment map[string]string `json:"environment"`
		Cache       struct {
			Exists bool                `json:"exists"`
			Files  []storage.FileEntry `json:"files"`
		} `json:"cache"`
	}
	decode(t, w, &out)
	if out.Environment["OPENAI_API_KEY"] != "****9876" {
		t.Errorf("masked key: got %q", out.Environment["OPENAI_API_KEY"])
	}
	if out.Environment["USE_CLOUD_VECTORS"] != "not set" {
		t.Errorf("USE_CLOUD_VECTORS: got %q", out.Environment["USE_CLOUD_VECTORS"])
	}
	if !out.Cache.Exists || out.Cache.Files == nil {
		t.Errorf("cache: got %+v", out.Cache)
	}
}

func TestParseLimit(t *testing.T) {
	if n, err := parseLimit("", 7); err != nil || n != 7 {
		t.Errorf("default: got %d, %v", n, err)
	}
	if n, _ := parseLimit("5000", 7); n != maxListLimit {
		t.Errorf("clamp: got %d", n)
	}
	for _, bad := range []string{"0", "-3", "ten"} {
		if _, err := parseLimit(bad, 7); err == nil {
			t.Errorf("parseLimit(%q) should fail", bad)
		}
	}
}
