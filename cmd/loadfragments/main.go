// Command loadfragments ingests profile fragments from a JSON file into
// the fragment store and the vector index. Run it whenever the profile
// content changes; the MCP server itself never writes fragments.
//
//	loadfragments -input profile.json [-batch 50] [-dry-run]
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/dhollis/twinrag/internal/embedder"
	"github.com/dhollis/twinrag/internal/logging"
	"github.com/dhollis/twinrag/internal/store"
	"github.com/dhollis/twinrag/internal/vectorindex"
	"github.com/dhollis/twinrag/pkg/types"
)

// fragmentDoc is the on-disk shape of one fragment.
type fragmentDoc struct {
	ID              string   `json:"id"`
	Kind            string   `json:"kind"`
	Title           string   `json:"title"`
	Body            string   `json:"body"`
	Tags            []string `json:"tags"`
	Importance      string   `json:"importance"`
	RelevanceWeight float64  `json:"relevance_weight"`
	DateRange       string   `json:"date_range"`
}

type ingestStats struct {
	FragmentsUpserted int
	VectorsEmbedded   int
	Skipped           int
}

func main() {
	inputPath := flag.String("input", "", "path to the fragments JSON file")
	batchSize := flag.Int("batch", 50, "embedding batch size")
	dryRun := flag.Bool("dry-run", false, "validate input without writing")
	flag.Parse()

	_ = godotenv.Load()

	logger, err := logging.New(os.Getenv("TWINRAG_LOG_LEVEL"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if *inputPath == "" {
		logger.Fatal("missing -input flag")
	}
	if *batchSize < 1 || *batchSize > embedder.MaxBatchSize {
		logger.Fatal("batch size out of range",
			zap.Int("batch", *batchSize),
			zap.Int("max", embedder.MaxBatchSize))
	}

	docs, err := loadDocs(*inputPath)
	if err != nil {
		logger.Fatal("failed to load input", zap.Error(err))
	}

	fragments := make([]*types.Fragment, 0, len(docs))
	skipped := 0
	for _, doc := range docs {
		frag := &types.Fragment{
			ID:              doc.ID,
			Kind:            types.Kind(doc.Kind),
			Title:           doc.Title,
			Body:            doc.Body,
			Tags:            doc.Tags,
			Importance:      types.Importance(doc.Importance),
			RelevanceWeight: doc.RelevanceWeight,
			DateRange:       doc.DateRange,
		}
		if err := frag.Validate(); err != nil {
			logger.Warn("skipping invalid fragment",
				zap.String("id", doc.ID),
				zap.Error(err))
			skipped++
			continue
		}
		fragments = append(fragments, frag)
	}

	logger.Info("input parsed",
		zap.Int("fragments", len(fragments)),
		zap.Int("skipped", skipped))
	if *dryRun {
		logger.Info("dry run, nothing written")
		return
	}

	dbPath := os.Getenv("TWINRAG_DB_PATH")
	if dbPath == "" {
		logger.Fatal("TWINRAG_DB_PATH is required")
	}
	st, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		logger.Fatal("failed to open fragment store", zap.Error(err))
	}
	defer func() { _ = st.Close() }()

	emb, err := embedder.NewFromEnv()
	if err != nil {
		logger.Fatal("failed to initialize embedder", zap.Error(err))
	}
	defer func() { _ = emb.Close() }()

	var idx vectorindex.Index = vectorindex.NewLocalIndex(st)
	if url := os.Getenv("TWINRAG_VECTOR_URL"); url != "" {
		idx, err = vectorindex.NewRESTIndex(url, os.Getenv("TWINRAG_VECTOR_TOKEN"))
		if err != nil {
			logger.Fatal("failed to initialize vector index", zap.Error(err))
		}
	}

	start := time.Now()
	stats, err := ingest(context.Background(), st, emb, idx, fragments, *batchSize, logger)
	stats.Skipped += skipped
	if err != nil {
		logger.Fatal("ingestion failed", zap.Error(err))
	}

	logger.Info("ingestion complete",
		zap.Int("fragments_upserted", stats.FragmentsUpserted),
		zap.Int("vectors_embedded", stats.VectorsEmbedded),
		zap.Int("skipped", stats.Skipped),
		zap.Duration("took", time.Since(start)))
}

func loadDocs(path string) ([]fragmentDoc, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var docs []fragmentDoc
	if err := json.Unmarshal(data, &docs); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return docs, nil
}

// ingest writes fragments to the store, then embeds title+body in batches
// and upserts the vectors with their filterable metadata.
func ingest(ctx context.Context, st store.Store, emb embedder.Embedder, idx vectorindex.Index, fragments []*types.Fragment, batchSize int, logger *zap.Logger) (ingestStats, error) {
	var stats ingestStats

	for _, frag := range fragments {
		if err := st.UpsertFragment(ctx, frag); err != nil {
			return stats, fmt.Errorf("upsert fragment %s: %w", frag.ID, err)
		}
		stats.FragmentsUpserted++
	}

	for offset := 0; offset < len(fragments); offset += batchSize {
		end := offset + batchSize
		if end > len(fragments) {
			end = len(fragments)
		}
		batch := fragments[offset:end]

		texts := make([]string, len(batch))
		for i, frag := range batch {
			texts[i] = frag.Title + "\n" + frag.Body
		}

		vectors, err := emb.EmbedBatch(ctx, texts)
		if err != nil {
			return stats, fmt.Errorf("embed batch at offset %d: %w", offset, err)
		}

		for i, frag := range batch {
			meta := vectorindex.Metadata{
				Kind:       frag.Kind,
				Tags:       frag.Tags,
				Importance: frag.Importance,
			}
			if err := idx.Upsert(ctx, frag.ID, vectors[i], meta); err != nil {
				return stats, fmt.Errorf("upsert vector %s: %w", frag.ID, err)
			}
			stats.VectorsEmbedded++
		}
		logger.Info("batch embedded",
			zap.Int("offset", offset),
			zap.Int("size", len(batch)))
	}

	return stats, nil
}
