package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dhollis/twinrag/pkg/types"
)

func setupTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	require.NotNil(t, s)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testFragment(id string, kind types.Kind) *types.Fragment {
	return &types.Fragment{
		ID:              id,
		Kind:            kind,
		Title:           "Platform Engineer at Acme",
		Body:            "Led Kafka HA resilience improvements and automated token rotation.",
		Tags:            []string{"Kafka", "Automation"},
		Importance:      types.ImportanceHigh,
		RelevanceWeight: 0.8,
		DateRange:       "2021 - 2023",
	}
}

func TestUpsertAndGetFragment(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	f := testFragment("exp-1", types.KindExperience)
	require.NoError(t, s.UpsertFragment(ctx, f))

	got, err := s.GetFragment(ctx, "exp-1")
	require.NoError(t, err)
	assert.Equal(t, f.ID, got.ID)
	assert.Equal(t, f.Kind, got.Kind)
	assert.Equal(t, f.Tags, got.Tags)
	assert.Equal(t, f.RelevanceWeight, got.RelevanceWeight)
	assert.False(t, got.CreatedAt.IsZero())

	// Update in place
	f.Title = "Staff Platform Engineer at Acme"
	require.NoError(t, s.UpsertFragment(ctx, f))
	got, err = s.GetFragment(ctx, "exp-1")
	require.NoError(t, err)
	assert.Equal(t, "Staff Platform Engineer at Acme", got.Title)
}

func TestUpsertFragmentKindImmutable(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	f := testFragment("exp-1", types.KindExperience)
	require.NoError(t, s.UpsertFragment(ctx, f))

	f.Kind = types.KindProject
	err := s.UpsertFragment(ctx, f)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "immutable")
}

func TestUpsertFragmentInvalid(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(*types.Fragment)
	}{
		{"missing id", func(f *types.Fragment) { f.ID = "" }},
		{"bad kind", func(f *types.Fragment) { f.Kind = "resume" }},
		{"bad importance", func(f *types.Fragment) { f.Importance = "urgent" }},
		{"weight out of range", func(f *types.Fragment) { f.RelevanceWeight = 1.5 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := testFragment("x-1", types.KindExperience)
			tt.mutate(f)
			assert.Error(t, s.UpsertFragment(ctx, f))
		})
	}
}

func TestGetFragmentNotFound(t *testing.T) {
	s := setupTestStore(t)
	_, err := s.GetFragment(context.Background(), "nope")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetByIDs(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertFragment(ctx, testFragment("a", types.KindExperience)))
	require.NoError(t, s.UpsertFragment(ctx, testFragment("b", types.KindProject)))

	// Missing IDs are silently absent, not errors
	got, err := s.GetByIDs(ctx, []string{"a", "b", "stale-entry"})
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = s.GetByIDs(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSearchByKeywords(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	kafka := testFragment("exp-kafka", types.KindExperience)
	require.NoError(t, s.UpsertFragment(ctx, kafka))

	edu := testFragment("edu-1", types.KindEducation)
	edu.Title = "BSc Computer Science"
	edu.Body = "University studies in distributed systems."
	edu.Tags = []string{"education"}
	require.NoError(t, s.UpsertFragment(ctx, edu))

	lowPrio := testFragment("exp-other", types.KindExperience)
	lowPrio.Body = "General platform work, some Kafka exposure."
	lowPrio.Tags = []string{"platform"}
	lowPrio.RelevanceWeight = 0.3
	require.NoError(t, s.UpsertFragment(ctx, lowPrio))

	got, err := s.SearchByKeywords(ctx, []string{"kafka"}, "", 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	// Equal hit counts fall back to relevance weight
	assert.Equal(t, "exp-kafka", got[0].ID)

	// Kind filter restricts the match set
	got, err = s.SearchByKeywords(ctx, []string{"kafka"}, types.KindEducation, 10)
	require.NoError(t, err)
	assert.Empty(t, got)

	// Multiple keywords rank by distinct hits
	got, err = s.SearchByKeywords(ctx, []string{"kafka", "automation"}, types.KindExperience, 10)
	require.NoError(t, err)
	require.NotEmpty(t, got)
	assert.Equal(t, "exp-kafka", got[0].ID)

	// Empty keyword set returns nothing
	got, err = s.SearchByKeywords(ctx, nil, "", 10)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestDeleteFragment(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertFragment(ctx, testFragment("a", types.KindExperience)))
	require.NoError(t, s.DeleteFragment(ctx, "a"))

	_, err := s.GetFragment(ctx, "a")
	assert.ErrorIs(t, err, ErrNotFound)

	err = s.DeleteFragment(ctx, "a")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCountFragments(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	n, err := s.CountFragments(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	require.NoError(t, s.UpsertFragment(ctx, testFragment("a", types.KindExperience)))
	require.NoError(t, s.UpsertFragment(ctx, testFragment("b", types.KindSkill)))

	n, err = s.CountFragments(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestAppendSessionRecord(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	rec := &types.SessionRecord{
		ID:         "rec-1",
		QueryText:  "kafka incident response",
		KindFilter: types.KindExperience,
		Keywords:   []string{"kafka", "incident", "response"},
		ResultIDs:  []string{"exp-kafka"},
		Timings:    types.Timings{EmbedMS: 12, VectorSearchMS: 30, HydrateMS: 3, FuseMS: 1, TotalMS: 48},
		Degraded:   false,
	}
	require.NoError(t, s.AppendSessionRecord(ctx, rec))

	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM session_records WHERE id = ?", "rec-1").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestMigrationRollback(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, RollbackMigration(ctx, s.db))

	var name string
	err := s.db.QueryRowContext(ctx, "SELECT name FROM sqlite_master WHERE type='table' AND name='fragments'").Scan(&name)
	assert.Error(t, err)

	// The version ledger survives the rollback, emptied of the rolled-back
	// version, so migrations can be re-applied.
	var versions int
	require.NoError(t, s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_version").Scan(&versions))
	assert.Equal(t, 0, versions)

	require.NoError(t, ApplyMigrations(ctx, s.db))
	require.NoError(t, s.db.QueryRowContext(ctx, "SELECT name FROM sqlite_master WHERE type='table' AND name='fragments'").Scan(&name))
	assert.Equal(t, "fragments", name)
}
