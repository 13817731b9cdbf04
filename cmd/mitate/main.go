// Command mitate runs the fashion catalog retrieval service and its
// companion CLI tools.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/mitate/internal/answercache"
	"github.com/hyperjump/mitate/internal/catalog"
	"github.com/hyperjump/mitate/internal/config"
	"github.com/hyperjump/mitate/internal/encoding"
	"github.com/hyperjump/mitate/internal/fusion"
	"github.com/hyperjump/mitate/internal/generation"
	"github.com/hyperjump/mitate/internal/models"
	"github.com/hyperjump/mitate/internal/orchestrator"
	"github.com/hyperjump/mitate/internal/personalization"
	"github.com/hyperjump/mitate/internal/preferences"
	"github.com/hyperjump/mitate/internal/retrieval"
	"github.com/hyperjump/mitate/internal/server"
	"github.com/hyperjump/mitate/internal/session"
	"github.com/hyperjump/mitate/internal/watcher"
	"github.com/hyperjump/mitate/pkg/utils"
)

const version = "0.1.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "server":
		cmdServer(os.Args[2:])
	case "search":
		cmdSearch(os.Args[2:])
	case "recommend":
		cmdRecommend(os.Args[2:])
	case "status":
		cmdStatus(os.Args[2:])
	case "version":
		fmt.Println("mitate " + version)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`mitate - multimodal fashion catalog search

Usage:
  mitate server    [-config path]                       run the HTTP server
  mitate search    [-config path] -query text [flags]   run one search from the CLI
  mitate recommend [-config path] -user id [flags]      print recommendations for a user
  mitate status    [-config path]                       show catalog and index state
  mitate version                                        print the version`)
}

// defaultConfigPath prefers config.yaml in the working directory, falling
// back to the per-user location.
func defaultConfigPath() string {
	if _, err := os.Stat("config.yaml"); err == nil {
		return "config.yaml"
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(home, ".mitate", "config.yaml")
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		path = defaultConfigPath()
	}
	return config.Load(path)
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}

// runtime holds the assembled pipeline shared by the server and one-shot
// commands.
type runtime struct {
	cfg          *config.Config
	logger       *zap.Logger
	loader       *catalog.Loader
	data         *catalog.Data
	prefs        preferences.Store
	cache        *answercache.Cache
	sessions     *session.Store
	encoder      *encoding.QueryEncoder
	orchestrator *orchestrator.Orchestrator
	recommender  *personalization.Recommender
}

func buildRuntime(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*runtime, error) {
	loader := catalog.NewLoader(cfg.Storage, cfg.Encoding.Dimensions, logger)
	data, err := loader.Load(ctx)
	if err != nil {
		return nil, err
	}

	prefs, err := preferences.NewSQLiteStore(data.Store.DB())
	if err != nil {
		data.Store.Close()
		return nil, err
	}

	apiKey := cfg.Encoding.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("MITATE_API_KEY")
	}
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}

	textEnc := encoding.NewOpenAIEncoder(encoding.OpenAIEncoderConfig{
		BaseURL:    cfg.Encoding.BaseURL,
		APIKey:     apiKey,
		Model:      cfg.Encoding.TextModel,
		Dimensions: cfg.Encoding.Dimensions,
		Timeout:    time.Duration(cfg.Encoding.TimeoutSeconds) * time.Second,
	})

	var imageEnc encoding.ImageEncoder
	if cfg.Encoding.ImageModelPath != "" {
		onnx, err := encoding.NewONNXImageEncoder(cfg.Encoding.ImageModelPath, cfg.Encoding.ImageDimensions)
		if err != nil {
			logger.Warn("image encoder unavailable, image queries disabled",
				zap.String("model", cfg.Encoding.ImageModelPath), zap.Error(err))
		} else {
			imageEnc = onnx
		}
	}

	queryEnc, err := encoding.NewQueryEncoder(textEnc, imageEnc, cfg.Encoding.Dimensions, cfg.Encoding.MemoSize)
	if err != nil {
		data.Store.Close()
		return nil, err
	}

	retriever := retrieval.New(queryEnc, data.TextIndex, data.ImageIndex, data.Catalog, retrieval.Config{
		FetchMultiplier: cfg.Search.FetchMultiplier,
		MinScore:        cfg.Search.MinScore,
	}, logger)

	cache := answercache.New()
	sessions := session.NewStore(cfg.Session.MaxSessions,
		time.Duration(cfg.Session.TTLMinutes)*time.Minute, cfg.Session.MaxTurns)
	booster := personalization.NewBooster(cfg.Personalization)

	generator := generation.NewOpenAIGenerator(generation.OpenAIGeneratorConfig{
		BaseURL:     cfg.Encoding.BaseURL,
		APIKey:      apiKey,
		Model:       cfg.Generation.Model,
		MaxTokens:   cfg.Generation.MaxTokens,
		Temperature: cfg.Generation.Temperature,
		Timeout:     time.Duration(cfg.Generation.TimeoutSeconds) * time.Second,
	})

	orch := orchestrator.New(orchestrator.Params{
		Retriever:        retriever,
		Fusion:           fusion.NewEngine(),
		Booster:          booster,
		Prefs:            prefs,
		Cache:            cache,
		Generator:        generator,
		Sessions:         sessions,
		PersonalizeFetch: cfg.Search.FetchMultiplier,
		Logger:           logger,
	})

	recommender := personalization.NewRecommender(cfg.Personalization,
		data.Catalog, data.TextIndex, queryEnc, prefs, logger)

	return &runtime{
		cfg:          cfg,
		logger:       logger,
		loader:       loader,
		data:         data,
		prefs:        prefs,
		cache:        cache,
		sessions:     sessions,
		encoder:      queryEnc,
		orchestrator: orch,
		recommender:  recommender,
	}, nil
}

func (rt *runtime) Close() {
	rt.data.Store.Close()
}

func cmdServer(args []string) {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	fs.Parse(args)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fatal("%v", err)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fatal("%v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := buildRuntime(ctx, cfg, logger)
	if err != nil {
		fatal("%v", err)
	}
	defer rt.Close()

	// Index files replaced by a reindex run trigger a full reload so the
	// catalog snapshot stays in step with the new vectors.
	w, err := watcher.New(
		[]string{cfg.Storage.TextIndexPath, cfg.Storage.ImageIndexPath},
		2*time.Second,
		func() {
			if err := rt.loader.Reload(ctx, rt.data); err != nil {
				logger.Error("catalog reload failed", zap.Error(err))
			}
		},
		logger,
	)
	if err != nil {
		logger.Warn("index watcher disabled", zap.Error(err))
	} else {
		defer w.Close()
	}

	srv := server.New(cfg, server.Deps{
		Orchestrator: rt.orchestrator,
		Recommender:  rt.recommender,
		Catalog:      rt.data.Catalog,
		Prefs:        rt.prefs,
		Cache:        rt.cache,
		Sessions:     rt.sessions,
		TextIndex:    rt.data.TextIndex,
		ImageIndex:   rt.data.ImageIndex,
	}, logger)

	if err := srv.Start(ctx); err != nil {
		fatal("server: %v", err)
	}
}

func cmdSearch(args []string) {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	query := fs.String("query", "", "text query")
	imagePath := fs.String("image", "", "path to a query image")
	k := fs.Int("k", 10, "number of results")
	alpha := fs.Float64("alpha", -1, "text weight for multimodal fusion (0..1)")
	user := fs.String("user", "", "user id for personalization")
	personalize := fs.Bool("personalize", false, "apply preference boosts")
	answer := fs.Bool("answer", false, "generate a natural-language answer")
	asJSON := fs.Bool("json", false, "print the raw JSON response")
	fs.Parse(args)

	if *query == "" && *imagePath == "" {
		fatal("either -query or -image is required")
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fatal("%v", err)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fatal("%v", err)
	}
	defer logger.Sync()

	ctx := context.Background()
	rt, err := buildRuntime(ctx, cfg, logger)
	if err != nil {
		fatal("%v", err)
	}
	defer rt.Close()

	q := &models.SearchQuery{
		Text:        *query,
		Limit:       *k,
		UserID:      *user,
		Personalize: *personalize,
		Answer:      *answer,
	}
	if *alpha >= 0 {
		q.Alpha = alpha
	}
	if *imagePath != "" {
		image, err := os.ReadFile(*imagePath)
		if err != nil {
			fatal("read image: %v", err)
		}
		q.Image = image
	}

	resp, err := rt.orchestrator.HandleQuery(ctx, q)
	if err != nil {
		fatal("search: %v", err)
	}

	if *asJSON {
		printJSON(resp)
		return
	}
	fmt.Printf("Found %d results in %dms\n\n", resp.Total, resp.QueryTime)
	for i, r := range resp.Results {
		name := r.ID
		if r.Product != nil {
			name = r.Product.Name
		}
		fmt.Printf("%2d. %-40s  score=%.3f", i+1, utils.Truncate(name, 40), r.PersonalizedScore)
		if r.IsFavorite {
			fmt.Print("  [favorite]")
		}
		fmt.Println()
	}
	if resp.Answer != "" {
		fmt.Printf("\n%s\n", resp.Answer)
	}
}

func cmdRecommend(args []string) {
	fs := flag.NewFlagSet("recommend", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	user := fs.String("user", "", "user id")
	k := fs.Int("k", 10, "number of recommendations")
	asJSON := fs.Bool("json", false, "print the raw JSON response")
	fs.Parse(args)

	if *user == "" {
		fatal("-user is required")
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fatal("%v", err)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fatal("%v", err)
	}
	defer logger.Sync()

	ctx := context.Background()
	rt, err := buildRuntime(ctx, cfg, logger)
	if err != nil {
		fatal("%v", err)
	}
	defer rt.Close()

	recs, err := rt.recommender.Recommend(ctx, *user, *k)
	if err != nil {
		fatal("recommend: %v", err)
	}

	if *asJSON {
		printJSON(recs)
		return
	}
	if len(recs.Combined) == 0 {
		fmt.Println("No recommendations yet: add favorites, preferences, or run some searches first.")
		return
	}
	fmt.Printf("Recommendations for %s:\n\n", *user)
	for i, r := range recs.Combined {
		fmt.Printf("%2d. %-40s  score=%.3f\n", i+1, utils.Truncate(r.Product.Name, 40), r.Score)
	}
}

func cmdStatus(args []string) {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	fs.Parse(args)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fatal("%v", err)
	}
	logger := zap.NewNop()

	loader := catalog.NewLoader(cfg.Storage, cfg.Encoding.Dimensions, logger)
	data, err := loader.Load(context.Background())
	if err != nil {
		fatal("%v", err)
	}
	defer data.Store.Close()

	fmt.Printf("Products:      %d\n", data.Catalog.Len())
	fmt.Printf("Text vectors:  %d (%s)\n", data.TextIndex.Size(), cfg.Storage.TextIndexPath)
	if data.ImageIndex != nil {
		fmt.Printf("Image vectors: %d (%s)\n", data.ImageIndex.Size(), cfg.Storage.ImageIndexPath)
	} else {
		fmt.Println("Image vectors: none (image search disabled)")
	}
	fmt.Printf("Dimensions:    %d\n", cfg.Encoding.Dimensions)
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fatal("encode: %v", err)
	}
}
