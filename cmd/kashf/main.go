// Package main is the Kashf CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/hyperjump/kashf/internal/attribution"
	"github.com/hyperjump/kashf/internal/cli"
	"github.com/hyperjump/kashf/internal/collection"
	"github.com/hyperjump/kashf/internal/config"
	"github.com/hyperjump/kashf/internal/embedding"
	"github.com/hyperjump/kashf/internal/keyword"
	"github.com/hyperjump/kashf/internal/models"
	"github.com/hyperjump/kashf/internal/search"
	"github.com/hyperjump/kashf/internal/server"
	"github.com/hyperjump/kashf/internal/storage"
	"github.com/hyperjump/kashf/internal/unified"
	"github.com/hyperjump/kashf/internal/verses"
	"github.com/hyperjump/kashf/pkg/utils"
	"go.uber.org/zap"
)

var version = "dev"

const (
	defaultConfigPath = "/usr/local/etc/kashf/config.yaml"
	defaultServerURL  = "http://localhost:8001"
)

// loadConfig loads config from path. When path is the default, it first looks for
// config.yaml in the current directory (for development). When neither exists the
// built-in defaults and environment are used, and the returned path is empty.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
		if _, statErr := os.Stat(path); errors.Is(statErr, os.ErrNotExist) {
			return config.Default(), "", nil
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "search":
		runSearch()
	case "verses":
		runVerses()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("kashf version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
		zap.Bool("use_cloud", cfg.UseCloudOrDefault()),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	components, err := initializeComponents(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	srv := server.NewServer(server.Deps{
		Engine:      components.Engine,
		Collections: components.Collections,
		Verses:      components.VerseStore,
		Text:        components.TextIndex,
		Corpus:      components.Corpus,
		Embeddings:  components.Embeddings,
	}, cfg, version, logger)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(shutdownCtx)
}

// printSearchUsage prints search subcommand usage.
func printSearchUsage(fs *flag.FlagSet) {
	fmt.Fprintf(fs.Output(), "Usage: kashf search [flags] <query>\n\n")
	fmt.Fprintf(fs.Output(), "Query is all remaining arguments joined by spaces. Multi-word queries work with or without quotes.\n\n")
	fs.PrintDefaults()
	fmt.Fprintf(fs.Output(), `
Transliterated queries such as "bismillah" or "qul huwa allahu ahad" are matched
against the Arabic collections as well as the translations.

Examples:
  kashf search bismillah
  kashf search --limit 10 "the miracle of nineteen"
  kashf search --collections FinalTestament,ArabicVerses mercy
  kashf search --server "" --output json covenant      # no server running
`)
}

// buildSearchQuery joins all positional args with spaces so multi-word queries
// work the same with or without shell quoting.
func buildSearchQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// searchConfigPathFromArgs returns the value of -config/--config from args if present, else defaultPath.
func searchConfigPathFromArgs(args []string, defaultPath string) string {
	for i, a := range args {
		if (a == "-config" || a == "--config") && i+1 < len(args) {
			return args[i+1]
		}
	}
	return defaultPath
}

// searchArgsReorder moves any flags (and their values) that appear after the query
// to the front of the slice so that flag.Parse() sees them. Go's flag package
// stops at the first non-flag argument.
func searchArgsReorder(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

// parseCollections splits a comma-separated collection filter.
func parseCollections(s string) []string {
	var out []string
	for _, c := range strings.Split(s, ",") {
		if c = strings.TrimSpace(c); c != "" {
			out = append(out, c)
		}
	}
	return out
}

func runSearch() {
	searchArgs := searchArgsReorder(os.Args[2:])

	fs := flag.NewFlagSet("search", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (direct mode)")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = search directly without a running server)")
	limit := fs.Int("limit", models.DefaultNumResults, "number of results")
	collections := fs.String("collections", "", "comma-separated collection names (default: all)")
	outputFormat := fs.String("output", "text", "output format: text, compact, or json")
	fs.Usage = func() { printSearchUsage(fs) }
	_ = fs.Parse(searchArgs)

	queryStr := buildSearchQuery(fs.Args())
	if queryStr == "" {
		printSearchUsage(fs)
		os.Exit(1)
	}
	format, err := cli.ParseFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	searchQuery := &models.SearchQuery{
		Query:       queryStr,
		NumResults:  *limit,
		Collections: parseCollections(*collections),
	}

	var response *models.SearchResponse
	if *serverURL != "" {
		response, err = searchViaHTTP(*serverURL, searchQuery)
	} else {
		response, err = searchDirect(searchConfigPathFromArgs(searchArgs, *configPath), searchQuery)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteSearchResults(os.Stdout, response, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func searchDirect(configPath string, query *models.SearchQuery) (*models.SearchResponse, error) {
	cfg, _, err := loadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger, err := utils.NewCLILogger(cfg.Debug)
	if err != nil {
		return nil, err
	}
	defer logger.Sync()

	ctx := context.Background()
	components, err := initializeComponents(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	defer components.Close()
	return components.Engine.Search(ctx, query)
}

func searchViaHTTP(serverURL string, query *models.SearchQuery) (*models.SearchResponse, error) {
	body, err := json.Marshal(query)
	if err != nil {
		return nil, err
	}
	resp, err := http.Post(serverURL+"/api/v1/search", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var response models.SearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &response, nil
}

func runVerses() {
	args := searchArgsReorder(os.Args[2:])
	fs := flag.NewFlagSet("verses", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (direct mode)")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = read the verse corpus directly)")
	outputFormat := fs.String("output", "text", "output format: text, compact, or json")
	_ = fs.Parse(args)

	if fs.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "Usage: kashf verses [flags] <range>\n  range: %s\n", verses.RangeFormat)
		os.Exit(1)
	}
	raw := fs.Arg(0)
	format, err := cli.ParseFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	rng, err := verses.ParseRange(raw)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	var response *models.VerseRangeResponse
	if *serverURL != "" {
		response, err = versesViaHTTP(*serverURL, raw)
	} else {
		response, err = versesDirect(*configPath, raw, rng)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Verse lookup failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteVerses(os.Stdout, response, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func versesDirect(configPath, raw string, rng verses.Range) (*models.VerseRangeResponse, error) {
	cfg, _, err := loadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger, err := utils.NewCLILogger(cfg.Debug)
	if err != nil {
		return nil, err
	}
	defer logger.Sync()

	dl := collection.NewDownloader(cfg.Storage.CacheDir, cfg.Download, logger)
	corpus, err := verses.Load(context.Background(), cfg.Verses, cfg.UseCloudOrDefault(), dl, logger)
	if err != nil {
		return nil, err
	}
	found := corpus.Range(rng)
	return &models.VerseRangeResponse{Verses: found, TotalVerses: len(found), RangeRequested: raw}, nil
}

func versesViaHTTP(serverURL, raw string) (*models.VerseRangeResponse, error) {
	resp, err := http.Get(serverURL + "/api/v1/verses?range=" + url.QueryEscape(raw))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var response models.VerseRangeResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &response, nil
}

// statusResponse is the shape of GET /api/v1/status response.
type statusResponse struct {
	Collections    []collection.Status `json:"collections"`
	TotalVectors   int                 `json:"total_vectors"`
	Verses         int64               `json:"verses"`
	DiskUsageBytes *int64              `json:"disk_usage_bytes,omitempty"`
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (direct mode)")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = load collections directly)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	var status *statusResponse
	var err error
	if *serverURL != "" {
		status, err = statusViaHTTP(*serverURL)
	} else {
		status, err = statusDirect(*configPath)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
		os.Exit(1)
	}

	switch *outputFormat {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(status); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
	case "text":
		writeStatusText(os.Stdout, status)
	default:
		fmt.Fprintf(os.Stderr, "Unknown output format %q; use text or json\n", *outputFormat)
		os.Exit(1)
	}
}

func writeStatusText(w io.Writer, status *statusResponse) {
	fmt.Fprintf(w, "total_vectors:      %d   # vectors in the combined index\n", status.TotalVectors)
	fmt.Fprintf(w, "verses:             %d   # verses in the verse store\n", status.Verses)
	if status.DiskUsageBytes != nil {
		fmt.Fprintf(w, "disk_usage_bytes:   %d   # download cache on disk\n", *status.DiskUsageBytes)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "# collections")
	for _, c := range status.Collections {
		state := "loaded"
		if !c.Loaded {
			state = "unavailable"
		}
		fmt.Fprintf(w, "%-20s %-9s %-12s %6d", c.Name, c.Kind, state, c.Size)
		if c.IndexSource != "" {
			fmt.Fprintf(w, "  %s", c.IndexSource)
		}
		if c.Error != "" {
			fmt.Fprintf(w, "  (%s)", c.Error)
		}
		fmt.Fprintln(w)
	}
}

func statusDirect(configPath string) (*statusResponse, error) {
	cfg, _, err := loadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger, err := utils.NewCLILogger(cfg.Debug)
	if err != nil {
		return nil, err
	}
	defer logger.Sync()

	ctx := context.Background()
	components, err := initializeComponents(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	defer components.Close()

	count, err := components.VerseStore.CountVerses(ctx)
	if err != nil {
		return nil, fmt.Errorf("count verses failed: %w", err)
	}
	status := &statusResponse{
		Collections:  components.Collections.Status(),
		TotalVectors: components.Engine.Index().Size(),
		Verses:       count,
	}
	if diskBytes, err := storage.DiskUsageBytes(cfg.Storage.CacheDir); err == nil {
		status.DiskUsageBytes = &diskBytes
	}
	return status, nil
}

func statusViaHTTP(serverURL string) (*statusResponse, error) {
	resp, err := http.Get(serverURL + "/api/v1/status")
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var s statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &s, nil
}

// Components holds initialized application components.
type Components struct {
	Collections *collection.Store
	Embeddings  *embedding.Registry
	Engine      *search.Engine
	Corpus      *verses.Corpus
	VerseStore  storage.VerseStore
	TextIndex   keyword.VerseIndex
}

// Close releases all resources held by components.
func (c *Components) Close() {
	if c.Engine != nil {
		c.Engine.Release()
	}
	if c.TextIndex != nil {
		_ = c.TextIndex.Close()
	}
	if c.VerseStore != nil {
		_ = c.VerseStore.Close()
	}
	if c.Embeddings != nil {
		_ = c.Embeddings.Close()
	}
}

// initializeComponents loads the collections and verse corpus and wires the search
// engine. Missing collections, a missing attribution mapping and a missing verse
// corpus are logged and tolerated; the server then runs with what it has.
func initializeComponents(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Components, error) {
	c := &Components{}
	useCloud := cfg.UseCloudOrDefault()
	dl := collection.NewDownloader(cfg.Storage.CacheDir, cfg.Download, logger)

	c.Collections = collection.NewStore(cfg, dl, logger)
	loaded := c.Collections.LoadAll(ctx)
	if len(loaded) == 0 {
		logger.Warn("no collections loaded; semantic search will return no results")
	}
	index, err := unified.Build(ctx, loaded, cfg.Search.IndexType, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to build combined index: %w", err)
	}

	c.Embeddings, err = embedding.NewRegistry(cfg.Embedding, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embeddings: %w", err)
	}
	if !c.Embeddings.Configured() {
		logger.Warn("embedding service not configured; set OPENAI_API_KEY or embedding.provider: mock")
	}

	var mediaCorpus []string
	if media, ok := c.Collections.Get(cfg.Attribution.Collection); ok {
		mediaCorpus = media.Corpus()
	}
	attr, err := attribution.Load(ctx, cfg.Attribution, useCloud, dl, mediaCorpus, logger)
	if err != nil {
		logger.Warn("attribution unavailable", zap.Error(err))
	}

	verseStore, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize verse store: %w", err)
	}
	c.VerseStore = verseStore
	textIndex, err := keyword.NewBleveIndex(cfg.Storage.KeywordIndexPath)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize text index: %w", err)
	}
	c.TextIndex = textIndex
	c.Corpus, err = verses.Load(ctx, cfg.Verses, useCloud, dl, logger)
	if err != nil {
		logger.Warn("verse corpus unavailable", zap.Error(err))
	} else {
		if err := c.VerseStore.ReplaceVerses(ctx, c.Corpus.All()); err != nil {
			c.Close()
			return nil, fmt.Errorf("failed to store verses: %w", err)
		}
		if err := c.TextIndex.IndexVerses(ctx, c.Corpus.All()); err != nil {
			c.Close()
			return nil, fmt.Errorf("failed to index verses: %w", err)
		}
	}

	c.Engine, err = search.NewEngine(index, c.Embeddings,
		search.WithPoolSize(cfg.Search.PoolSize),
		search.WithLogger(logger),
		search.WithAttribution(attr))
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize search engine: %w", err)
	}
	return c, nil
}

func printUsage() {
	fmt.Println(`kashf - Semantic search over scripture, commentary and media transcripts

Usage:
  kashf server [flags]            Start the HTTP server
  kashf search [flags] <query>    Search all collections
  kashf verses [flags] <range>    Look up verses, e.g. 2:255 or 2:1-5
  kashf status [flags]            Show collection and store status
  kashf version                   Show version
  kashf help                      Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/kashf/config.yaml)
  --debug            Enable debug logging

Search Flags:
  --config string       Config file path (direct mode)
  --server string       Server URL (default: http://localhost:8001). Use --server "" to search without a server.
  --limit int           Number of results (default: 5, max: 20)
  --collections string  Comma-separated collection filter
  --output string       Output format: text, compact, or json (default: text)

Verses Flags:
  --config string    Config file path (direct mode)
  --server string    Server URL (default: http://localhost:8001). Use --server "" to read the corpus directly.
  --output string    Output format: text, compact, or json (default: text)

Status Flags:
  --config string    Config file path (direct mode)
  --server string    Server URL (default: http://localhost:8001). Use --server "" for direct mode.
  --output string    Output format: text or json (default: text)

Environment:
  OPENAI_API_KEY, USE_CLOUD_VECTORS, KASHF_PORT, VERSES_JSON_URL, YOUTUBE_MAPPING_URL,
  <COLLECTION>_FAISS_URL and <COLLECTION>_JSON_URL override the config file.

Examples:
  kashf server
  kashf search bismillah
  kashf search --output json "the messenger of the covenant"
  kashf verses 2:255
  kashf verses --output compact 18:9-26
  kashf status`)
}
