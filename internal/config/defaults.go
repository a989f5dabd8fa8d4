package config

import (
	"runtime"
	"time"
)

// ReleaseBase is the default location of the published collection artifacts.
const ReleaseBase = "https://github.com/safmy/QuranCompare/releases/download/v1.0-vectors"

// Collection kinds.
const (
	KindVerse    = "verse"
	KindMedia    = "media"
	KindArticle  = "article"
	KindFootnote = "footnote"
)

const (
	defaultModel       = "text-embedding-ada-002"
	arabicVersesModel  = "text-embedding-3-small"
	defaultAttribution = "RashadAllMedia"
)

// DefaultCollections returns the built-in collection set.
func DefaultCollections() []CollectionConfig {
	return []CollectionConfig{
		{
			Name:               "RashadAllMedia",
			Kind:               KindMedia,
			IndexURL:           ReleaseBase + "/RashadAllMedia.faiss",
			MetadataURL:        ReleaseBase + "/RashadAllMedia.json",
			LocalIndexPaths:    []string{"./data/RashadAllMedia.faiss"},
			LocalMetadataPaths: []string{"./data/RashadAllMedia.json"},
			Source:             "Rashad Khalifa Media",
		},
		{
			Name:               "FinalTestament",
			Kind:               KindVerse,
			IndexURL:           ReleaseBase + "/FinalTestament.faiss",
			MetadataURL:        ReleaseBase + "/FinalTestament.json",
			LocalIndexPaths:    []string{"./FinalTestament.faiss"},
			LocalMetadataPaths: []string{"./FinalTestament.json"},
			Source:             "Final Testament",
		},
		{
			Name:               "QuranTalkArticles",
			Kind:               KindArticle,
			IndexURL:           ReleaseBase + "/qurantalk_articles_1744655632.faiss",
			MetadataURL:        ReleaseBase + "/qurantalk_articles_1744655632.json",
			LocalIndexPaths:    []string{"./qurantalk_articles_1744655632.faiss"},
			LocalMetadataPaths: []string{"./qurantalk_articles_1744655632.json"},
			Source:             "QuranTalk",
		},
		{
			Name:               "Newsletters",
			Kind:               KindArticle,
			IndexURL:           ReleaseBase + "/newsletters_comprehensive.faiss",
			MetadataURL:        ReleaseBase + "/newsletters_comprehensive.json",
			LocalIndexPaths:    []string{"./api/newsletter_data/newsletters_comprehensive.faiss"},
			LocalMetadataPaths: []string{"./api/newsletter_data/newsletters_comprehensive.json"},
			Source:             "Rashad Khalifa Newsletters",
		},
		{
			Name:               "ArabicVerses",
			Kind:               KindVerse,
			IndexURL:           ReleaseBase + "/arabic_verses.faiss",
			MetadataURL:        ReleaseBase + "/arabic_verses.json",
			CacheName:          "arabic_verses",
			LocalIndexPaths:    []string{"./arabic_embeddings/arabic_verses.faiss", "./vector_cache/arabic_verses.faiss"},
			LocalMetadataPaths: []string{"./arabic_embeddings/arabic_verses.json", "./vector_cache/arabic_verses.json"},
			ScriptNative:       true,
			EmbeddingModel:     arabicVersesModel,
			Source:             "Final Testament",
		},
		{
			Name:               "FootnotesSubtitles",
			Kind:               KindFootnote,
			IndexURL:           ReleaseBase + "/footnotes_subtitles.faiss",
			MetadataURL:        ReleaseBase + "/footnotes_subtitles.json",
			CacheName:          "footnotes_subtitles",
			LocalIndexPaths:    []string{"./footnotes_embeddings/footnotes_subtitles.faiss"},
			LocalMetadataPaths: []string{"./footnotes_embeddings/footnotes_subtitles.json"},
			Source:             "Final Testament",
		},
	}
}

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8001
	}
	if cfg.Storage.CacheDir == "" {
		cfg.Storage.CacheDir = "/usr/local/var/kashf/vector_cache"
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/kashf/data/verses.db"
	}
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = "openai"
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = defaultModel
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 1536
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 1000
	}
	if cfg.Embedding.RequestsPerSecond == 0 {
		cfg.Embedding.RequestsPerSecond = 5
	}
	if cfg.Embedding.Burst == 0 {
		cfg.Embedding.Burst = 10
	}
	if cfg.Search.DefaultLimit == 0 {
		cfg.Search.DefaultLimit = 5
	}
	if cfg.Search.MaxLimit == 0 {
		cfg.Search.MaxLimit = 20
	}
	if cfg.Search.IndexType == "" {
		cfg.Search.IndexType = "flat"
	}
	if cfg.Search.PoolSize == 0 {
		cfg.Search.PoolSize = runtime.NumCPU()
	}
	if cfg.Download.MaxRetries == 0 {
		cfg.Download.MaxRetries = 3
	}
	if cfg.Download.InitialDelay == 0 {
		cfg.Download.InitialDelay = time.Second
	}
	if cfg.Download.MaxDelay == 0 {
		cfg.Download.MaxDelay = 16 * time.Second
	}
	if cfg.Download.Timeout == 0 {
		cfg.Download.Timeout = 10 * time.Minute
	}
	if cfg.Attribution.Collection == "" {
		cfg.Attribution.Collection = defaultAttribution
	}
	if cfg.Attribution.MappingURL == "" {
		cfg.Attribution.MappingURL = ReleaseBase + "/youtube_search_results_updated.json"
	}
	if cfg.Attribution.MappingPaths == nil {
		cfg.Attribution.MappingPaths = []string{"./youtube_search_results_updated.json"}
	}
	if cfg.Attribution.GapWarnThreshold == 0 {
		cfg.Attribution.GapWarnThreshold = 10
	}
	if cfg.Verses.URL == "" {
		cfg.Verses.URL = ReleaseBase + "/verses_final.json"
	}
	if cfg.Verses.LocalPaths == nil {
		cfg.Verses.LocalPaths = []string{"./verses_final.json", "./public/verses_final.json"}
	}
	if len(cfg.Collections) == 0 {
		cfg.Collections = DefaultCollections()
	}
	for i := range cfg.Collections {
		c := &cfg.Collections[i]
		if c.CacheName == "" {
			c.CacheName = c.Name
		}
		if c.EmbeddingModel == "" {
			c.EmbeddingModel = cfg.Embedding.Model
		}
		if c.Kind == "" {
			c.Kind = KindArticle
		}
	}
}
