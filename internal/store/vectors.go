package store

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"sort"

	"github.com/dhollis/twinrag/pkg/types"
)

// UpsertVector stores (or replaces) the embedding for a fragment in the
// local vectors table. The fragment row must already exist.
func (s *SQLiteStore) UpsertVector(ctx context.Context, fragmentID string, vector []float32) error {
	if fragmentID == "" {
		return fmt.Errorf("fragment ID is required")
	}
	if len(vector) == 0 {
		return fmt.Errorf("vector is empty")
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO vectors (fragment_id, vector, dimension)
		VALUES (?, ?, ?)
		ON CONFLICT(fragment_id) DO UPDATE SET
			vector = excluded.vector,
			dimension = excluded.dimension
	`, fragmentID, serializeVector(vector), len(vector))
	if err != nil {
		return fmt.Errorf("failed to upsert vector for %s: %w", fragmentID, err)
	}
	return nil
}

// SearchVectors scans the local vectors table and ranks fragments by
// cosine similarity to the query vector, computed in Go. Rows with a
// mismatched dimension are skipped. A kind filter is applied through
// the fragments join so the index and the store cannot disagree.
func (s *SQLiteStore) SearchVectors(ctx context.Context, query []float32, kind types.Kind, limit int, minScore float64) ([]VectorMatch, error) {
	if len(query) == 0 || limit <= 0 {
		return nil, nil
	}

	sqlQuery := `
		SELECT v.fragment_id, v.vector
		FROM vectors v
		INNER JOIN fragments f ON f.id = v.fragment_id
	`
	var args []any
	if kind != "" {
		sqlQuery += " WHERE f.kind = ?"
		args = append(args, string(kind))
	}

	rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query vectors: %w", err)
	}
	defer func() { _ = rows.Close() }()

	matches, err := scoreVectorRows(rows, query, minScore)
	if err != nil {
		return nil, err
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].FragmentID < matches[j].FragmentID
	})

	if limit > len(matches) {
		limit = len(matches)
	}
	return matches[:limit], nil
}

func scoreVectorRows(rows *sql.Rows, query []float32, minScore float64) ([]VectorMatch, error) {
	var matches []VectorMatch
	for rows.Next() {
		var fragmentID string
		var blob []byte
		if err := rows.Scan(&fragmentID, &blob); err != nil {
			return nil, fmt.Errorf("failed to scan vector row: %w", err)
		}

		vector := deserializeVector(blob)
		if len(vector) != len(query) {
			continue // Dimension mismatch, skip
		}

		score := cosineSimilarity(query, vector)
		if score < minScore {
			continue
		}
		matches = append(matches, VectorMatch{FragmentID: fragmentID, Score: score})
	}
	return matches, rows.Err()
}

// CountVectors returns the number of stored embeddings.
func (s *SQLiteStore) CountVectors(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM vectors").Scan(&count)
	return count, err
}

// serializeVector converts a float32 slice to a byte blob (little-endian).
func serializeVector(vector []float32) []byte {
	blob := make([]byte, len(vector)*4)
	for i, v := range vector {
		binary.LittleEndian.PutUint32(blob[i*4:], math.Float32bits(v))
	}
	return blob
}

// deserializeVector converts a byte blob back to a float32 slice.
func deserializeVector(blob []byte) []float32 {
	vector := make([]float32, len(blob)/4)
	for i := range vector {
		bits := binary.LittleEndian.Uint32(blob[i*4:])
		vector[i] = math.Float32frombits(bits)
	}
	return vector
}

// cosineSimilarity computes the cosine similarity between two vectors.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i] * b[i])
		normA += float64(a[i] * a[i])
		normB += float64(b[i] * b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}
