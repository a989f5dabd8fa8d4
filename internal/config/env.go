package config

import (
	"strconv"
	"strings"
)

// envPrefixes maps collection names to the prefix of their URL override variables
// (<PREFIX>_FAISS_URL, <PREFIX>_JSON_URL).
var envPrefixes = []struct {
	collection string
	prefix     string
}{
	{"RashadAllMedia", "RASHAD"},
	{"FinalTestament", "FINAL_TESTAMENT"},
	{"QuranTalkArticles", "QURANTALK"},
	{"Newsletters", "NEWSLETTERS"},
	{"ArabicVerses", "ARABIC_VERSES"},
	{"FootnotesSubtitles", "FOOTNOTES"},
}

// ApplyEnv overrides cfg from environment variables read through getenv.
func ApplyEnv(cfg *Config, getenv func(string) string) {
	for _, e := range envPrefixes {
		c := cfg.Collection(e.collection)
		if c == nil {
			continue
		}
		if v := getenv(e.prefix + "_FAISS_URL"); v != "" {
			c.IndexURL = v
		}
		if v := getenv(e.prefix + "_JSON_URL"); v != "" {
			c.MetadataURL = v
		}
	}
	if v := getenv("VERSES_JSON_URL"); v != "" {
		cfg.Verses.URL = v
	}
	if v := getenv("YOUTUBE_MAPPING_URL"); v != "" {
		cfg.Attribution.MappingURL = v
	}
	if v := getenv("USE_CLOUD_VECTORS"); v != "" {
		useCloud := parseBool(v)
		cfg.UseCloud = &useCloud
	}
	if v := getenv("OPENAI_API_KEY"); v != "" && cfg.Embedding.APIKey == "" {
		cfg.Embedding.APIKey = v
	}
	if v := getenv("KASHF_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil && port > 0 {
			cfg.Server.Port = port
		}
	}
}

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "false", "0", "no", "off":
		return false
	}
	return true
}
