package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/dhollis/twinrag/internal/embedder"
	"github.com/dhollis/twinrag/internal/fusion"
	"github.com/dhollis/twinrag/internal/logging"
	"github.com/dhollis/twinrag/internal/mcp"
	"github.com/dhollis/twinrag/internal/pipeline"
	"github.com/dhollis/twinrag/internal/retriever"
	"github.com/dhollis/twinrag/internal/session"
	"github.com/dhollis/twinrag/internal/store"
	"github.com/dhollis/twinrag/internal/vectorindex"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	// Handle version flag
	if len(os.Args) > 1 && os.Args[1] == "--version" {
		fmt.Printf("twinrag MCP Server\n")
		fmt.Printf("Version: %s\n", version)
		fmt.Printf("Build Time: %s\n", buildTime)
		fmt.Printf("Build Mode: %s\n", store.BuildMode)
		fmt.Printf("SQLite Driver: %s\n", store.DriverName)
		os.Exit(0)
	}

	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	logger, err := logging.New(os.Getenv("TWINRAG_LOG_LEVEL"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("twinrag MCP server starting",
		zap.String("version", version),
		zap.String("build_mode", store.BuildMode),
		zap.String("sqlite_driver", store.DriverName))

	st, err := openStore(logger)
	if err != nil {
		logger.Fatal("failed to open fragment store", zap.Error(err))
	}

	emb, err := embedder.NewFromEnv()
	if err != nil {
		logger.Fatal("failed to initialize embedder", zap.Error(err))
	}
	logger.Info("embedder ready",
		zap.String("provider", emb.Provider()),
		zap.Int("dimension", emb.Dimension()))

	idx, err := buildIndex(st, logger)
	if err != nil {
		logger.Fatal("failed to initialize vector index", zap.Error(err))
	}

	fuser, err := fusion.New(fusionConfigFromEnv())
	if err != nil {
		// Malformed weights are a deployment mistake; refuse to start.
		logger.Fatal("invalid fusion configuration", zap.Error(err))
	}

	ret, err := retriever.New(retrieverConfigFromEnv(), emb, idx, st)
	if err != nil {
		logger.Fatal("invalid retriever configuration", zap.Error(err))
	}

	recorder := session.NewRecorder(st, logger, envInt("TWINRAG_SESSION_BUFFER", 0))
	pipe := pipeline.New(ret, fuser, recorder, logger)

	server := mcp.NewServer(mcp.Deps{
		Pipeline: pipe,
		Store:    st,
		Index:    idx,
		Embedder: emb,
		Recorder: recorder,
		Logger:   logger,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		logger.Info("MCP server ready, listening on stdio")
		errChan <- server.Serve(ctx)
	}()

	select {
	case sig := <-sigChan:
		logger.Info("shutting down", zap.String("signal", sig.String()))
		cancel()
		drainCtx, drainCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer drainCancel()
		_ = recorder.Close(drainCtx)
	case err := <-errChan:
		if err != nil {
			logger.Fatal("server error", zap.Error(err))
		}
	}

	logger.Info("server stopped")
}

// openStore resolves the database path and opens the SQLite store.
func openStore(logger *zap.Logger) (*store.SQLiteStore, error) {
	dbPath := os.Getenv("TWINRAG_DB_PATH")
	if dbPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		dir := filepath.Join(home, ".twinrag")
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
		dbPath = filepath.Join(dir, "twinrag.db")
	}
	logger.Info("opening fragment store", zap.String("path", dbPath))
	return store.NewSQLiteStore(dbPath)
}

// buildIndex returns the hosted REST index when configured, otherwise the
// SQLite-backed local index.
func buildIndex(st store.Store, logger *zap.Logger) (vectorindex.Index, error) {
	url := os.Getenv("TWINRAG_VECTOR_URL")
	token := os.Getenv("TWINRAG_VECTOR_TOKEN")
	if url != "" {
		logger.Info("using hosted vector index", zap.String("url", url))
		return vectorindex.NewRESTIndex(url, token)
	}
	logger.Info("using local vector index")
	return vectorindex.NewLocalIndex(st), nil
}

// fusionConfigFromEnv reads the fusion weights, keeping defaults for any
// that are unset. Validation happens in fusion.New.
func fusionConfigFromEnv() fusion.Config {
	cfg := fusion.DefaultConfig()
	cfg.VectorWeight = envFloat("TWINRAG_VECTOR_WEIGHT", cfg.VectorWeight)
	cfg.KeywordWeight = envFloat("TWINRAG_KEYWORD_WEIGHT", cfg.KeywordWeight)
	cfg.PriorWeight = envFloat("TWINRAG_PRIOR_WEIGHT", cfg.PriorWeight)
	cfg.ImportanceWeight = envFloat("TWINRAG_IMPORTANCE_WEIGHT", cfg.ImportanceWeight)
	return cfg
}

// retrieverConfigFromEnv reads the retrieval bounds, keeping defaults for
// any that are unset. Validation happens in retriever.New.
func retrieverConfigFromEnv() retriever.Config {
	cfg := retriever.DefaultConfig()
	if v := envInt("TWINRAG_OVERFETCH_FACTOR", 0); v > 0 {
		cfg.OverfetchFactor = v
	}
	if v := envInt("TWINRAG_EMBED_TIMEOUT_MS", 0); v > 0 {
		cfg.EmbedTimeout = time.Duration(v) * time.Millisecond
	}
	if v := envInt("TWINRAG_VECTOR_TIMEOUT_MS", 0); v > 0 {
		cfg.VectorTimeout = time.Duration(v) * time.Millisecond
	}
	if v := envInt("TWINRAG_RELATIONAL_TIMEOUT_MS", 0); v > 0 {
		cfg.RelationalTimeout = time.Duration(v) * time.Millisecond
	}
	return cfg
}

func envFloat(key string, def float64) float64 {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid %s=%q: %v\n", key, raw, err)
		os.Exit(1)
	}
	return v
}

func envInt(key string, def int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid %s=%q: %v\n", key, raw, err)
		os.Exit(1)
	}
	return v
}
