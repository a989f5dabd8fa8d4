package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/hyperjump/kashf/internal/keyword"
	"github.com/hyperjump/kashf/internal/models"
	"github.com/hyperjump/kashf/internal/storage"
	"github.com/hyperjump/kashf/internal/verses"
	"github.com/hyperjump/kashf/pkg/utils"
	"go.uber.org/zap"
)

const (
	// maxListLimit bounds root and text searches.
	maxListLimit = 1000
	debugURLLen  = 100
)

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"name":          "Kashf Search API",
		"version":       s.version,
		"collections":   s.loadedCollections(),
		"total_vectors": s.totalVectors(),
		"endpoints": map[string]string{
			"search":         "/api/v1/search",
			"verses":         "/api/v1/verses",
			"roots":          "/api/v1/verses/roots",
			"text":           "/api/v1/verses/text",
			"subtitle_range": "/api/v1/subtitle-range",
			"attribution":    "/api/v1/attribution",
			"status":         "/api/v1/status",
			"health":         "/health",
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":               "healthy",
		"collections_loaded":   len(s.loadedCollections()),
		"total_vectors":        s.totalVectors(),
		"embedding_configured": s.deps.Embeddings != nil && s.deps.Embeddings.Configured(),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	resp := map[string]interface{}{
		"total_vectors": s.totalVectors(),
	}
	if s.deps.Collections != nil {
		resp["collections"] = s.deps.Collections.Status()
	}
	if s.deps.Verses != nil {
		n, err := s.deps.Verses.CountVerses(ctx)
		if err != nil {
			s.logger.Error("status: count verses failed", zap.Error(err))
			s.respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		resp["verses"] = n
	}
	if s.deps.Text != nil {
		if n, err := s.deps.Text.DocCount(); err == nil {
			resp["text_index_docs"] = n
		}
	}

	if s.config != nil {
		resp["config"] = map[string]interface{}{
			"use_cloud":          s.config.UseCloudOrDefault(),
			"index_type":         s.config.Search.IndexType,
			"embedding_provider": s.config.Embedding.Provider,
			"embedding_model":    s.config.Embedding.Model,
			"default_limit":      s.config.Search.DefaultLimit,
			"max_limit":          s.config.Search.MaxLimit,
			"cache_dir":          s.config.Storage.CacheDir,
			"database_path":      s.config.Storage.DatabasePath,
		}
		diskBytes, err := storage.DiskUsageBytes(s.config.Storage.CacheDir)
		if err == nil {
			resp["disk_usage_bytes"] = diskBytes
		}
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDebug(w http.ResponseWriter, r *http.Request) {
	wd, _ := os.Getwd()
	resp := map[string]interface{}{
		"system": map[string]string{
			"platform":          runtime.GOOS,
			"go_version":        runtime.Version(),
			"working_directory": wd,
		},
	}

	env := map[string]string{
		"USE_CLOUD_VECTORS": envOrNotSet("USE_CLOUD_VECTORS"),
		"OPENAI_API_KEY":    "not set",
	}
	if s.config != nil && s.config.Embedding.APIKey != "" {
		env["OPENAI_API_KEY"] = utils.MaskSecret(s.config.Embedding.APIKey)
	}
	resp["environment"] = env

	if s.deps.Collections != nil {
		urls := make(map[string]map[string]string)
		for _, name := range s.deps.Collections.Configured() {
			indexURL, metadataURL := s.deps.Collections.Sources(name)
			urls[name] = map[string]string{
				"faiss": utils.Truncate(indexURL, debugURLLen),
				"json":  utils.Truncate(metadataURL, debugURLLen),
			}
		}
		resp["vector_urls"] = urls
		resp["collections"] = s.deps.Collections.Status()
	}

	if s.config != nil {
		dir := s.config.Storage.CacheDir
		cache := map[string]interface{}{"directory": dir, "exists": false}
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			cache["exists"] = true
		}
		files, err := storage.ListDir(dir)
		if err != nil {
			cache["error"] = err.Error()
		} else {
			if files == nil {
				files = []storage.FileEntry{}
			}
			cache["files"] = files
		}
		resp["cache"] = cache
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var query models.SearchQuery
	if err := json.NewDecoder(r.Body).Decode(&query); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if s.deps.Engine == nil {
		s.respondError(w, http.StatusServiceUnavailable, "search unavailable")
		return
	}
	s.logger.Debug("search request",
		zap.String("request_id", middleware.GetReqID(r.Context())),
		zap.String("query", query.Query),
		zap.Int("num_results", query.NumResults),
		zap.Strings("collections", query.Collections))
	response, err := s.deps.Engine.Search(r.Context(), &query)
	if err != nil {
		s.logger.Error("search failed", zap.Error(err))
		s.respondFailure(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, response)
}

func (s *Server) handleVerseRange(w http.ResponseWriter, r *http.Request) {
	raw := strings.TrimSpace(r.URL.Query().Get("range"))
	if raw == "" {
		s.respondError(w, http.StatusBadRequest, "range is required; expected "+verses.RangeFormat)
		return
	}
	rng, err := verses.ParseRange(raw)
	if err != nil {
		s.respondFailure(w, err)
		return
	}

	var found []*models.Verse
	switch {
	case s.deps.Verses != nil:
		found, err = s.deps.Verses.VerseRange(r.Context(), rng.Chapter, rng.Start, rng.End)
		if err != nil {
			s.logger.Error("verse range failed", zap.String("range", raw), zap.Error(err))
			s.respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
	case s.deps.Corpus != nil:
		found = s.deps.Corpus.Range(rng)
	default:
		s.respondError(w, http.StatusServiceUnavailable, "verse corpus unavailable")
		return
	}
	if found == nil {
		found = []*models.Verse{}
	}
	s.respondJSON(w, http.StatusOK, &models.VerseRangeResponse{
		Verses:         found,
		TotalVerses:    len(found),
		RangeRequested: raw,
	})
}

func (s *Server) handleSubtitleRange(w http.ResponseWriter, r *http.Request) {
	raw := strings.TrimSpace(r.URL.Query().Get("verse_ref"))
	ref, err := verses.ParseRef(raw)
	if err != nil {
		s.respondFailure(w, err)
		return
	}
	if s.deps.Corpus == nil {
		s.respondError(w, http.StatusServiceUnavailable, "verse corpus unavailable")
		return
	}
	subs := s.deps.Corpus.Subtitles()
	resp := &models.SubtitleRangeResponse{VerseRef: ref.String()}
	if rng, ok := subs.RangeFor(ref); ok {
		resp.SubtitleRange = rng
		resp.SubtitleText, _ = subs.SubtitleFor(ref)
		resp.Message = "subtitle range found"
	} else {
		resp.SubtitleRange = ref.String()
		resp.Message = "no subtitle range found; returning the verse itself"
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRootSearch(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	roots := verses.ParseRootQuery(q)
	if len(roots) == 0 {
		s.respondError(w, http.StatusBadRequest, "q must name at least one root, e.g. rt:ktb OR rt:qwl")
		return
	}
	limit, err := parseLimit(r.URL.Query().Get("limit"), storage.DefaultRootLimit)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if s.deps.Verses == nil {
		s.respondError(w, http.StatusServiceUnavailable, "verse store unavailable")
		return
	}
	found, err := s.deps.Verses.SearchRoots(r.Context(), roots, limit)
	if err != nil {
		s.logger.Error("root search failed", zap.Strings("roots", roots), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if found == nil {
		found = []*models.Verse{}
	}
	s.respondJSON(w, http.StatusOK, &models.RootSearchResponse{
		Verses:     found,
		TotalFound: len(found),
		SearchInfo: models.RootSearchInfo{Query: q, SearchType: "root", RootsSearched: roots},
	})
}

func (s *Server) handleTextSearch(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	q := strings.TrimSpace(params.Get("q"))
	if q == "" {
		s.respondError(w, http.StatusBadRequest, "q is required")
		return
	}
	field := params.Get("field")
	if field == "" {
		field = keyword.FieldEnglish
	}
	if field != keyword.FieldEnglish && field != keyword.FieldArabic {
		s.respondError(w, http.StatusBadRequest, fmt.Sprintf("field must be %q or %q", keyword.FieldEnglish, keyword.FieldArabic))
		return
	}
	limit, err := parseLimit(params.Get("limit"), keyword.DefaultLimit)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if s.deps.Text == nil {
		s.respondError(w, http.StatusServiceUnavailable, "text index unavailable")
		return
	}

	hits, err := s.deps.Text.Search(r.Context(), q, field, limit)
	if err != nil {
		s.logger.Error("text search failed", zap.String("query", q), zap.Error(err))
		s.respondFailure(w, err)
		return
	}
	found := make([]*models.Verse, 0, len(hits))
	for _, hit := range hits {
		if v := s.lookupVerse(r, hit.Ref); v != nil {
			found = append(found, v)
		}
	}
	s.respondJSON(w, http.StatusOK, &models.TextSearchResponse{
		Verses:     found,
		TotalFound: len(found),
		Query:      q,
		Field:      field,
	})
}

type attributionRequest struct {
	Fragment string `json:"fragment"`
}

func (s *Server) handleAttribution(w http.ResponseWriter, r *http.Request) {
	var req attributionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Fragment) == "" {
		s.respondError(w, http.StatusBadRequest, "fragment is required")
		return
	}
	if s.deps.Engine == nil || !s.deps.Engine.Attribution().Ready() {
		s.respondError(w, http.StatusServiceUnavailable, "attribution unavailable")
		return
	}
	a, ok := s.deps.Engine.Attribution().Resolve(req.Fragment)
	if !ok {
		s.respondJSON(w, http.StatusOK, &models.AttributionResponse{
			Message: "no source found for fragment",
		})
		return
	}
	s.respondJSON(w, http.StatusOK, &models.AttributionResponse{
		Found:        true,
		Title:        a.Title,
		Link:         a.Link,
		IsExactMatch: a.IsExactMatch,
		FoundIndex:   a.FoundIndex,
		MappedIndex:  a.MappedIndex,
	})
}

func (s *Server) lookupVerse(r *http.Request, raw string) *models.Verse {
	ref, err := verses.ParseRef(raw)
	if err != nil {
		return nil
	}
	if s.deps.Corpus != nil {
		if v, ok := s.deps.Corpus.Get(ref); ok {
			return v
		}
	}
	if s.deps.Verses != nil {
		if v, err := s.deps.Verses.GetVerse(r.Context(), ref.Chapter, ref.Verse); err == nil {
			return v
		}
	}
	return nil
}

func (s *Server) loadedCollections() []string {
	names := []string{}
	if s.deps.Engine == nil {
		return names
	}
	for _, c := range s.deps.Engine.Index().Collections() {
		names = append(names, c.Name())
	}
	return names
}

func (s *Server) totalVectors() int {
	if s.deps.Engine == nil {
		return 0
	}
	return s.deps.Engine.Index().Size()
}

func parseLimit(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, errors.New("limit must be a positive integer")
	}
	if n > maxListLimit {
		n = maxListLimit
	}
	return n, nil
}

func envOrNotSet(key string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return "not set"
}

// respondFailure maps domain errors to HTTP statuses.
func (s *Server) respondFailure(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrMalformedRange):
		msg := err.Error()
		if !strings.Contains(msg, verses.RangeFormat) {
			msg += "; expected " + verses.RangeFormat
		}
		s.respondError(w, http.StatusBadRequest, msg)
	case errors.Is(err, models.ErrInvalidQuery):
		s.respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, models.ErrEmbeddingService):
		s.respondError(w, http.StatusServiceUnavailable, err.Error())
	default:
		s.respondError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
