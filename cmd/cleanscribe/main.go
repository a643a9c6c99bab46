package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/voxkit/cleanscribe/internal/cache"
	"github.com/voxkit/cleanscribe/internal/config"
	"github.com/voxkit/cleanscribe/internal/grammar"
	"github.com/voxkit/cleanscribe/internal/history"
	"github.com/voxkit/cleanscribe/internal/itn"
	"github.com/voxkit/cleanscribe/internal/langid"
	"github.com/voxkit/cleanscribe/internal/logger"
	"github.com/voxkit/cleanscribe/internal/numwords"
	"github.com/voxkit/cleanscribe/internal/pipeline"
	"github.com/voxkit/cleanscribe/internal/punct"
	"github.com/voxkit/cleanscribe/internal/replace"
	"github.com/voxkit/cleanscribe/internal/server"
	"go.uber.org/zap"
)

var (
	version = "0.1.0"
	commit  = "dev"
	date    = "unknown"
)

func main() {
	// Parse command line flags
	var (
		configPath  = flag.String("config", "", "Path to configuration file")
		showVersion = flag.Bool("version", false, "Show version information")
		healthCheck = flag.Bool("health-check", false, "Perform health check and exit")
	)
	flag.Parse()

	// Show version and exit
	if *showVersion {
		fmt.Printf("CleanScribe %s (commit: %s, built: %s)\n", version, commit, date)
		os.Exit(0)
	}

	// Perform health check and exit
	if *healthCheck {
		performHealthCheck()
		return
	}

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	loggerConfig := logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	}

	if cfg.Logging.File.Enabled {
		loggerConfig.File = &logger.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		}
	}

	log, err := logger.New(loggerConfig)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting CleanScribe",
		zap.String("version", version),
		zap.String("commit", commit),
		zap.String("build_date", date),
		zap.Int("port", cfg.Server.Port),
	)

	// User replacement store with mtime-based hot reload
	store := replace.NewStore(
		cfg.Pipeline.UserReplacementsPath,
		cfg.Pipeline.Languages,
		log.WithComponent("replace").Logger,
	)

	// Assemble the correction pipeline
	pipelineCfg := pipeline.Config{
		DefaultLanguage: cfg.Pipeline.DefaultLanguage,
		Numerals:        numwords.English{},
		Store:           store,
	}

	if cfg.Pipeline.DetectLanguage {
		pipelineCfg.Detector = langid.New(cfg.Pipeline.DefaultLanguage)
	}

	if cfg.ITN.URL != "" {
		pipelineCfg.ITN = itn.NewClient(cfg.ITN.URL, cfg.ITN.Timeout, log.WithComponent("itn").Logger)
	}

	if model := punct.NewModel(punct.Config{
		ModelPath: cfg.Punct.ModelPath,
		VocabPath: cfg.Punct.VocabPath,
		MaxTokens: cfg.Punct.MaxTokens,
	}, log.WithComponent("punct").Logger); model != nil {
		pipelineCfg.Punct = model
		defer model.Close()
	}

	if cfg.Grammar.URL != "" {
		checkers := make(map[string]pipeline.GrammarChecker)
		for _, lang := range cfg.Pipeline.Languages {
			checker, err := grammar.NewChecker(cfg.Grammar.URL, lang, cfg.Grammar.Timeout, log.WithComponent("grammar").Logger)
			if err != nil {
				log.Warn("Grammar checking unavailable for language",
					zap.String("language", lang),
					zap.Error(err),
				)
				continue
			}
			checkers[lang] = checker
		}
		pipelineCfg.Grammar = checkers
	}

	pipe := pipeline.New(pipelineCfg, log.WithComponent("pipeline"))

	deps := server.Deps{
		Pipeline: pipe,
		Store:    store,
	}

	// Optional result cache; startup survives an unreachable Redis
	if cfg.Cache.Enabled {
		resultCache, err := cache.New(cfg.Cache, log.WithComponent("cache").Logger)
		if err != nil {
			log.Warn("Result cache disabled", zap.Error(err))
		} else {
			deps.Cache = resultCache
			defer resultCache.Close()
		}
	}

	// Optional run history; startup survives an unreachable database
	if cfg.History.Enabled {
		historyStore, err := history.NewStore(cfg.History, log.WithComponent("history").Logger)
		if err != nil {
			log.Warn("Run history disabled", zap.Error(err))
		} else {
			deps.History = historyStore
			defer historyStore.Close()
		}
	}

	// Create HTTP server
	srv, err := server.New(cfg, deps, log)
	if err != nil {
		log.Fatal("Failed to create server", zap.Error(err))
	}

	// Config file changes require a restart to take effect; watch so
	// operators get told rather than silently running stale settings.
	if err := config.Watch(cfg, func(newCfg *config.Config) {
		log.Info("Configuration file changed; restart to apply new settings")
	}); err != nil {
		log.Warn("Config watch unavailable", zap.Error(err))
	}

	// Start server in goroutine
	serverErrors := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening", zap.Int("port", cfg.Server.Port))
		serverErrors <- srv.Start()
	}()

	// Setup graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	// Wait for shutdown signal or server error
	select {
	case err := <-serverErrors:
		log.Error("Server error", zap.Error(err))
	case sig := <-shutdown:
		log.Info("Shutdown signal received", zap.String("signal", sig.String()))

		// Give outstanding requests 30 seconds to complete
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Stop(ctx); err != nil {
			log.Error("Failed to shutdown server gracefully", zap.Error(err))
			os.Exit(1)
		}

		log.Info("Server shutdown complete")
	}
}

// performHealthCheck performs a health check against the running server
func performHealthCheck() {
	client := &http.Client{
		Timeout: 5 * time.Second,
	}

	resp, err := client.Get("http://localhost:8787/health")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Health check failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		fmt.Fprintf(os.Stderr, "Health check failed: HTTP %d\n", resp.StatusCode)
		os.Exit(1)
	}

	fmt.Println("Health check passed")
	os.Exit(0)
}
