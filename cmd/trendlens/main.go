// Package main is the Trendlens CLI entry point.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/hyperjump/trendlens/internal/cli"
	"github.com/hyperjump/trendlens/internal/config"
	"github.com/hyperjump/trendlens/internal/embedding"
	"github.com/hyperjump/trendlens/internal/ingest"
	"github.com/hyperjump/trendlens/internal/models"
	"github.com/hyperjump/trendlens/internal/openalex"
	"github.com/hyperjump/trendlens/internal/search"
	"github.com/hyperjump/trendlens/internal/server"
	"github.com/hyperjump/trendlens/internal/vector"
	"github.com/hyperjump/trendlens/pkg/utils"
)

var version = "dev"

const (
	defaultConfigPath = "/usr/local/etc/trendlens/config.yaml"
	defaultServerURL  = "http://localhost:8000"
)

// loadConfig loads config from path. When path is the default, config.yaml in
// the current directory wins if present, and a missing default file yields
// pure defaults resolved against the current directory. Returns the config and
// the path that was actually loaded ("" when built from defaults).
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		cwd, cwdErr := os.Getwd()
		if cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
		if _, statErr := os.Stat(path); errors.Is(statErr, os.ErrNotExist) && cwdErr == nil {
			return config.Default(cwd), "", nil
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "ingest":
		runIngest()
	case "fetch":
		runFetch()
	case "search":
		runSearch()
	case "collections":
		runCollections()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("trendlens version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

// setup loads config and builds the logger shared by every subcommand.
func setup(configPath string, debug bool) (*config.Config, *zap.Logger, string) {
	cfg, resolved, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	cfg.Debug = cfg.Debug || debug
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	return cfg, logger, resolved
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, logger, resolved := setup(*configPath, *debug)
	defer logger.Sync()
	logger.Info("config loaded",
		zap.String("config_path", resolved),
		zap.Bool("debug", cfg.Debug),
		zap.String("vector_type", cfg.Vector.Type),
		zap.String("collection", cfg.Vector.Collection))

	ctx, stop := signalContext()
	defer stop()

	components, err := initializeComponents(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize components", zap.Error(err))
		os.Exit(1)
	}
	defer components.Close()

	if err := components.Search.CheckReady(ctx); err != nil {
		logger.Error("Not ready to serve queries; run `trendlens ingest` with the same embedding settings", zap.Error(err))
		components.Close()
		os.Exit(1)
	}

	srv := server.NewServer(components.Search, &cfg.Server, logger)
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed", zap.Error(err))
			components.Close()
			os.Exit(1)
		}
	case <-ctx.Done():
	}

	logger.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(shutdownCtx)
}

func runIngest() {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	patents := fs.String("patents", "", "patent table (.csv or .xlsx); default from config")
	papers := fs.String("papers", "", "paper table (.csv or .xlsx); default from config")
	limit := fs.Int("limit", -1, "max rows read per source (0 = no limit); default from config")
	collection := fs.String("collection", "", "collection to rebuild; default from config")
	watch := fs.Bool("watch", false, "rebuild whenever a source file changes")
	_ = fs.Parse(os.Args[2:])

	cfg, logger, _ := setup(*configPath, *debug)
	defer logger.Sync()
	applyIngestFlags(cfg, *patents, *papers, *limit, *collection)

	ctx, stop := signalContext()
	defer stop()

	index, err := vector.NewIndex(ctx, cfg.Vector)
	if err != nil {
		logger.Error("Failed to open vector index", zap.Error(err))
		os.Exit(1)
	}
	defer index.Close()
	embedder, err := embedding.New(cfg.Embedding, logger)
	if err != nil {
		logger.Error("Failed to create embedder", zap.Error(err))
		index.Close()
		os.Exit(1)
	}
	defer embedder.Close()

	ing := ingest.NewIngester(index, embedder, cfg.Vector.Collection,
		ingest.WithLogger(logger),
		ingest.WithBatchSize(cfg.Ingest.BatchSize),
		ingest.WithWorkers(cfg.Ingest.Workers),
		ingest.WithRowLimit(cfg.Ingest.RowLimit),
	)
	rebuild := func(ctx context.Context) error {
		report, err := ing.Rebuild(ctx, cfg.Ingest.PatentsPath, cfg.Ingest.PapersPath)
		if err != nil {
			return err
		}
		fmt.Printf("Ingested %d documents (%d patents, %d papers) into %q in %s\n",
			report.Documents, report.Patents, report.Papers, report.Collection, report.Duration.Round(time.Millisecond))
		return nil
	}

	if err := rebuild(ctx); err != nil {
		logger.Error("Ingestion failed", zap.Error(err))
		if !*watch {
			index.Close()
			os.Exit(1)
		}
	}
	if !*watch {
		return
	}

	watcher, err := ingest.NewSourceWatcher(
		[]string{cfg.Ingest.PatentsPath, cfg.Ingest.PapersPath},
		func(ctx context.Context) {
			if err := rebuild(ctx); err != nil {
				logger.Error("Re-ingestion failed", zap.Error(err))
			}
		},
		ingest.WithWatchLogger(logger),
	)
	if err != nil {
		logger.Error("Failed to watch sources", zap.Error(err))
		return
	}
	logger.Info("Watching sources for changes",
		zap.String("patents", cfg.Ingest.PatentsPath),
		zap.String("papers", cfg.Ingest.PapersPath))
	if err := watcher.Run(ctx); err != nil {
		logger.Error("Watcher stopped", zap.Error(err))
	}
}

// applyIngestFlags overrides config with non-default ingest flag values.
func applyIngestFlags(cfg *config.Config, patents, papers string, limit int, collection string) {
	if patents != "" {
		cfg.Ingest.PatentsPath = patents
	}
	if papers != "" {
		cfg.Ingest.PapersPath = papers
	}
	if limit >= 0 {
		cfg.Ingest.RowLimit = limit
	}
	if collection != "" {
		cfg.Vector.Collection = collection
	}
}

func runFetch() {
	fs := flag.NewFlagSet("fetch", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	out := fs.String("out", "", "output CSV path; default from config")
	limit := fs.Int("limit", 0, "number of papers to fetch; default from config")
	mailto := fs.String("mailto", "", "contact address for the OpenAlex polite pool")
	_ = fs.Parse(os.Args[2:])

	cfg, logger, _ := setup(*configPath, false)
	defer logger.Sync()
	if *out != "" {
		cfg.OpenAlex.OutputPath = *out
	}
	if *limit > 0 {
		cfg.OpenAlex.Limit = *limit
	}
	if *mailto != "" {
		cfg.OpenAlex.Mailto = *mailto
	}

	ctx, stop := signalContext()
	defer stop()

	client := openalex.NewClient(
		openalex.WithBaseURL(cfg.OpenAlex.BaseURL),
		openalex.WithMailto(cfg.OpenAlex.Mailto),
		openalex.WithPerPage(cfg.OpenAlex.PerPage),
		openalex.WithRateLimit(cfg.OpenAlex.RateLimit),
		openalex.WithLogger(logger),
	)
	papers, fetchErr := client.FetchWorks(ctx, cfg.OpenAlex.Limit)
	if fetchErr != nil {
		logger.Warn("Fetch stopped early", zap.Int("fetched", len(papers)), zap.Error(fetchErr))
	}
	if len(papers) == 0 && fetchErr != nil {
		os.Exit(1)
	}
	if err := openalex.WriteCSV(cfg.OpenAlex.OutputPath, papers); err != nil {
		logger.Error("Failed to write papers", zap.Error(err))
		os.Exit(1)
	}
	fmt.Printf("Saved %d papers to %s\n", len(papers), cfg.OpenAlex.OutputPath)
}

// printSearchUsage prints search subcommand usage.
func printSearchUsage(fs *flag.FlagSet) {
	fmt.Fprintf(fs.Output(), "Usage: trendlens search [flags] <query>\n\n")
	fmt.Fprintf(fs.Output(), "Query is all remaining arguments joined by spaces. Multi-word queries work with or without quotes.\n\n")
	fs.PrintDefaults()
	fmt.Fprintf(fs.Output(), `
Filters combine with AND. Results are grouped by sub-topic with per-year velocity.

Examples:
  trendlens search solid state batteries
  trendlens search --type paper --min-citations 10 "protein folding"
  trendlens search --from 2018-01-01 --to 2022-12-31 --field biology crispr
  trendlens search --server "" --output json graphene   # query the index directly
`)
}

// buildSearchQuery joins all positional args with spaces so multi-word queries
// work the same with or without shell quoting.
func buildSearchQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// searchArgsReorder moves flags (and their values) ahead of the query words
// so that flag.Parse sees them; the flag package stops at the first non-flag
// argument. Query words keep their relative order. fs decides which flags
// take a separate value argument; unknown flags are assumed not to.
func searchArgsReorder(fs *flag.FlagSet, args []string) []string {
	flags := make([]string, 0, len(args))
	var words []string
	for i := 0; i < len(args); i++ {
		a := args[i]
		if a == "--" {
			words = append(words, args[i+1:]...)
			break
		}
		if len(a) < 2 || a[0] != '-' {
			words = append(words, a)
			continue
		}
		flags = append(flags, a)
		name := strings.TrimLeft(a, "-")
		if strings.Contains(name, "=") {
			continue
		}
		if takesValue(fs, name) && i+1 < len(args) {
			i++
			flags = append(flags, args[i])
		}
	}
	return append(flags, words...)
}

func takesValue(fs *flag.FlagSet, name string) bool {
	f := fs.Lookup(name)
	if f == nil {
		return false
	}
	if b, ok := f.Value.(interface{ IsBoolFlag() bool }); ok && b.IsBoolFlag() {
		return false
	}
	return true
}

// buildSearchRequest assembles a request from the search flags. from and to
// must be given together.
func buildSearchRequest(text, docType, from, to string, minCitations int, field string) (*models.SearchRequest, error) {
	req := &models.SearchRequest{
		Text:            text,
		DocType:         docType,
		CitationMin:     minCitations,
		FieldOfResearch: field,
	}
	switch {
	case from != "" && to != "":
		req.DateRange = []string{from, to}
	case from != "" || to != "":
		return nil, fmt.Errorf("--from and --to must be used together")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return req, nil
}

func runSearch() {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (direct mode)")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = query the index directly)")
	docType := fs.String("type", "", "document type: patent, paper or both")
	from := fs.String("from", "", "earliest publication date (YYYY-MM-DD)")
	to := fs.String("to", "", "latest publication date (YYYY-MM-DD)")
	minCitations := fs.Int("min-citations", 0, "minimum citation count")
	field := fs.String("field", "", "field of research substring")
	outputFormat := fs.String("output", "text", "output format: text or json")
	fs.Usage = func() { printSearchUsage(fs) }
	_ = fs.Parse(searchArgsReorder(fs, os.Args[2:]))

	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	req, err := buildSearchRequest(buildSearchQuery(fs.Args()), *docType, *from, *to, *minCitations, *field)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n\n", err)
		printSearchUsage(fs)
		os.Exit(1)
	}

	ctx, stop := signalContext()
	defer stop()

	var response *models.SearchResponse
	if *serverURL != "" {
		response, err = newAPIClient(*serverURL).Search(ctx, req)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
			os.Exit(1)
		}
	} else {
		cfg, logger, _ := setup(*configPath, false)
		defer logger.Sync()
		components, err := initializeComponents(ctx, cfg, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
			os.Exit(1)
		}
		defer components.Close()
		response = components.Search.Search(ctx, req)
	}
	if err := cli.WriteSearchResults(os.Stdout, response, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runCollections() {
	fs := flag.NewFlagSet("collections", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (direct mode)")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = query the index directly)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	ctx := context.Background()

	var names []string
	if *serverURL != "" {
		names, err = newAPIClient(*serverURL).ListCollections(ctx)
	} else {
		cfg, logger, _ := setup(*configPath, false)
		defer logger.Sync()
		var index vector.Index
		index, err = vector.NewIndex(ctx, cfg.Vector)
		if err == nil {
			defer index.Close()
			names, err = index.ListCollections(ctx)
		}
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "List collections failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteCollections(os.Stdout, names, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (direct mode)")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = query the index directly)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	ctx := context.Background()

	var stats *search.Stats
	if *serverURL != "" {
		stats, err = newAPIClient(*serverURL).Status(ctx)
	} else {
		cfg, logger, _ := setup(*configPath, false)
		defer logger.Sync()
		var index vector.Index
		index, err = vector.NewIndex(ctx, cfg.Vector)
		if err == nil {
			defer index.Close()
			stats, err = search.NewService(index, nil, nil, cfg.Search, cfg.Vector.Collection, logger).Stats(ctx)
		}
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
		os.Exit(1)
	}
	if err := writeStatus(os.Stdout, stats, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

// Components holds initialized services.
type Components struct {
	Index    vector.Index
	Embedder embedding.Embedder
	Search   *search.Service
}

// Close releases the index and embedder. It is safe to call more than once.
func (c *Components) Close() {
	if c.Embedder != nil {
		_ = c.Embedder.Close()
		c.Embedder = nil
	}
	if c.Index != nil {
		_ = c.Index.Close()
		c.Index = nil
	}
}

func initializeComponents(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Components, error) {
	index, err := vector.NewIndex(ctx, cfg.Vector)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize vector index: %w", err)
	}
	embedder, err := embedding.New(cfg.Embedding, logger)
	if err != nil {
		_ = index.Close()
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}
	logger.Info("vector index initialized",
		zap.String("type", index.Type()),
		zap.String("collection", cfg.Vector.Collection))

	svc := search.NewService(index, embedder, nil, cfg.Search, cfg.Vector.Collection, logger)
	return &Components{
		Index:    index,
		Embedder: embedder,
		Search:   svc,
	}, nil
}

func printUsage() {
	fmt.Println(`trendlens - Semantic search and trend analysis over patents and papers

Usage:
  trendlens server [flags]           Start the HTTP server
  trendlens ingest [flags]           Rebuild the vector collection from source tables
  trendlens fetch [flags]            Download papers from OpenAlex into a CSV table
  trendlens search [flags] <query>   Search documents and show sub-topic trends
  trendlens collections [flags]      List vector collections
  trendlens status [flags]           Show collection status
  trendlens version                  Show version
  trendlens help                     Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/trendlens/config.yaml)
  --debug            Enable debug logging

Ingest Flags:
  --patents string     Patent table (.csv or .xlsx)
  --papers string      Paper table (.csv or .xlsx)
  --limit int          Max rows per source (0 = no limit)
  --collection string  Collection to rebuild
  --watch              Re-ingest when a source file changes

Fetch Flags:
  --out string       Output CSV path
  --limit int        Number of papers to fetch
  --mailto string    Contact address for the OpenAlex polite pool

Search Flags:
  --server string        Server URL (default: http://localhost:8000). Use --server "" to query the index directly.
  --type string          patent, paper or both
  --from, --to string    Publication date range (YYYY-MM-DD)
  --min-citations int    Minimum citation count
  --field string         Field of research substring
  --output string        Output format: text or json

Environment (.env is loaded when present):
  TRENDLENS_POSTGRES_URL      PostgreSQL DSN for the postgres vector backend
  TRENDLENS_OPENALEX_MAILTO   Contact address for OpenAlex
  TRENDLENS_OLLAMA_URL        Ollama base URL for the ollama embedder

Examples:
  trendlens fetch --limit 2000
  trendlens ingest --patents data/raw/patents.csv --papers data/raw/papers.csv
  trendlens server
  trendlens search --type paper --min-citations 10 "protein folding"
  trendlens collections --output json`)
}
