package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dhollis/twinrag/pkg/types"
)

// SQLiteStore implements the Store interface using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// openDatabase opens a SQLite database with appropriate settings.
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// SQLite benefits from a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// NewSQLiteStore opens (or creates) a fragment database at dbPath and
// applies pending migrations. Use ":memory:" for tests.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// UpsertFragment inserts or updates a fragment. The kind of an existing
// fragment is immutable; attempting to change it is an error because
// re-classification requires a new fragment ID.
func (s *SQLiteStore) UpsertFragment(ctx context.Context, f *types.Fragment) error {
	if err := f.Validate(); err != nil {
		return fmt.Errorf("invalid fragment: %w", err)
	}

	var existingKind string
	err := s.db.QueryRowContext(ctx, "SELECT kind FROM fragments WHERE id = ?", f.ID).Scan(&existingKind)
	switch {
	case err == sql.ErrNoRows:
		// New fragment
	case err != nil:
		return fmt.Errorf("failed to check fragment %s: %w", f.ID, err)
	case existingKind != string(f.Kind):
		return fmt.Errorf("fragment %s kind is immutable (%s -> %s)", f.ID, existingKind, f.Kind)
	}

	tags, err := json.Marshal(f.Tags)
	if err != nil {
		return fmt.Errorf("failed to marshal tags: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO fragments (id, kind, title, body, tags, importance, relevance_weight, date_range, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			body = excluded.body,
			tags = excluded.tags,
			importance = excluded.importance,
			relevance_weight = excluded.relevance_weight,
			date_range = excluded.date_range,
			updated_at = CURRENT_TIMESTAMP
	`, f.ID, string(f.Kind), f.Title, f.Body, string(tags), string(f.Importance), f.RelevanceWeight, f.DateRange)
	if err != nil {
		return fmt.Errorf("failed to upsert fragment %s: %w", f.ID, err)
	}
	return nil
}

const fragmentColumns = "id, kind, title, body, tags, importance, relevance_weight, date_range, created_at, updated_at"

func scanFragment(row interface{ Scan(...any) error }) (*types.Fragment, error) {
	var f types.Fragment
	var kind, importance, tags string
	var createdAt, updatedAt sql.NullTime
	if err := row.Scan(&f.ID, &kind, &f.Title, &f.Body, &tags, &importance, &f.RelevanceWeight, &f.DateRange, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	f.Kind = types.Kind(kind)
	f.Importance = types.Importance(importance)
	if err := json.Unmarshal([]byte(tags), &f.Tags); err != nil {
		return nil, fmt.Errorf("corrupt tags for fragment %s: %w", f.ID, err)
	}
	if createdAt.Valid {
		f.CreatedAt = createdAt.Time
	}
	if updatedAt.Valid {
		f.UpdatedAt = updatedAt.Time
	}
	return &f, nil
}

// GetFragment retrieves one fragment by ID.
func (s *SQLiteStore) GetFragment(ctx context.Context, id string) (*types.Fragment, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+fragmentColumns+" FROM fragments WHERE id = ?", id)
	f, err := scanFragment(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("fragment %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get fragment %s: %w", id, err)
	}
	return f, nil
}

// GetByIDs retrieves the fragments for the given IDs. IDs with no
// matching row are silently absent from the result; the caller decides
// whether that is a stale-index drop or an error.
func (s *SQLiteStore) GetByIDs(ctx context.Context, ids []string) ([]*types.Fragment, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+fragmentColumns+" FROM fragments WHERE id IN ("+placeholders+")", args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query fragments: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var fragments []*types.Fragment
	for rows.Next() {
		f, err := scanFragment(rows)
		if err != nil {
			return nil, err
		}
		fragments = append(fragments, f)
	}
	return fragments, rows.Err()
}

// SearchByKeywords finds fragments whose tags, title, or body match the
// given keywords, optionally restricted to one kind. Results are ordered
// by distinct keyword hits, then by the author-assigned relevance weight,
// then by ID for determinism. The scan-and-score pass runs in Go; the
// corpus is one person's profile, so the prefiltered row set is small.
func (s *SQLiteStore) SearchByKeywords(ctx context.Context, keywords []string, kind types.Kind, limit int) ([]*types.Fragment, error) {
	if len(keywords) == 0 || limit <= 0 {
		return nil, nil
	}

	var sb strings.Builder
	sb.WriteString("SELECT " + fragmentColumns + " FROM fragments WHERE ")
	var args []any
	if kind != "" {
		sb.WriteString("kind = ? AND ")
		args = append(args, string(kind))
	}
	sb.WriteString("(")
	for i, kw := range keywords {
		if i > 0 {
			sb.WriteString(" OR ")
		}
		sb.WriteString("(lower(title) LIKE ? OR lower(body) LIKE ? OR lower(tags) LIKE ?)")
		pattern := "%" + strings.ToLower(kw) + "%"
		args = append(args, pattern, pattern, pattern)
	}
	sb.WriteString(")")

	rows, err := s.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("keyword search failed: %w", err)
	}
	defer func() { _ = rows.Close() }()

	type scored struct {
		fragment *types.Fragment
		hits     int
	}
	var candidates []scored
	for rows.Next() {
		f, err := scanFragment(rows)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, scored{fragment: f, hits: keywordHits(f, keywords)})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].hits != candidates[j].hits {
			return candidates[i].hits > candidates[j].hits
		}
		if candidates[i].fragment.RelevanceWeight != candidates[j].fragment.RelevanceWeight {
			return candidates[i].fragment.RelevanceWeight > candidates[j].fragment.RelevanceWeight
		}
		return candidates[i].fragment.ID < candidates[j].fragment.ID
	})

	if limit > len(candidates) {
		limit = len(candidates)
	}
	result := make([]*types.Fragment, 0, limit)
	for _, c := range candidates[:limit] {
		result = append(result, c.fragment)
	}
	return result, nil
}

// keywordHits counts how many distinct keywords appear in the fragment's
// tags, title, or body (case-insensitive substring match, the same rule
// the original corpus was authored against).
func keywordHits(f *types.Fragment, keywords []string) int {
	title := strings.ToLower(f.Title)
	body := strings.ToLower(f.Body)
	tags := make([]string, len(f.Tags))
	for i, t := range f.Tags {
		tags[i] = strings.ToLower(t)
	}

	hits := 0
	for _, kw := range keywords {
		kw = strings.ToLower(kw)
		matched := strings.Contains(title, kw) || strings.Contains(body, kw)
		if !matched {
			for _, t := range tags {
				if strings.Contains(t, kw) {
					matched = true
					break
				}
			}
		}
		if matched {
			hits++
		}
	}
	return hits
}

// DeleteFragment removes a fragment and, via cascade, its local vector.
func (s *SQLiteStore) DeleteFragment(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM fragments WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete fragment %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("fragment %s: %w", id, ErrNotFound)
	}
	return nil
}

// CountFragments returns the total number of stored fragments.
func (s *SQLiteStore) CountFragments(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM fragments").Scan(&count)
	return count, err
}

// AppendSessionRecord appends one retrieval session summary.
func (s *SQLiteStore) AppendSessionRecord(ctx context.Context, rec *types.SessionRecord) error {
	keywords, err := json.Marshal(rec.Keywords)
	if err != nil {
		return fmt.Errorf("failed to marshal keywords: %w", err)
	}
	resultIDs, err := json.Marshal(rec.ResultIDs)
	if err != nil {
		return fmt.Errorf("failed to marshal result IDs: %w", err)
	}

	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO session_records (id, query_text, kind_filter, keywords, result_ids,
			embed_ms, vector_search_ms, hydrate_ms, fuse_ms, total_ms, degraded, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.ID, rec.QueryText, string(rec.KindFilter), string(keywords), string(resultIDs),
		rec.Timings.EmbedMS, rec.Timings.VectorSearchMS, rec.Timings.HydrateMS,
		rec.Timings.FuseMS, rec.Timings.TotalMS, boolToInt(rec.Degraded), createdAt)
	if err != nil {
		return fmt.Errorf("failed to append session record: %w", err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
