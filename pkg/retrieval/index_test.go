package retrieval

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/setu-labs/sahayak/pkg/models"
)

var indexTime = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

func activeScheme(id string, version int, embedding []float32) models.Scheme {
	return models.Scheme{
		ID:        id,
		Name:      "Scheme " + id,
		Category:  "pension",
		Embedding: embedding,
		Deadline:  models.DeadlineWindow{IsOngoing: true},
		IsActive:  true,
		Version:   version,
		UpdatedAt: indexTime,
	}
}

func TestIndexUpsert(t *testing.T) {
	t.Run("stale versions are ignored", func(t *testing.T) {
		x := NewIndex()
		x.Upsert(activeScheme("s1", 3, nil))
		x.Upsert(activeScheme("s1", 2, nil))

		got, ok := x.Get("s1")
		require.True(t, ok)
		assert.Equal(t, 3, got.Version)
	})

	t.Run("newer versions replace", func(t *testing.T) {
		x := NewIndex()
		x.Upsert(activeScheme("s1", 1, nil))
		s := activeScheme("s1", 2, nil)
		s.Name = "renamed"
		x.Upsert(s)

		got, _ := x.Get("s1")
		assert.Equal(t, "renamed", got.Name)
		assert.Equal(t, 1, x.Len())
	})

	t.Run("remove drops the scheme", func(t *testing.T) {
		x := NewIndex()
		x.Upsert(activeScheme("s1", 1, nil))
		x.Remove("s1")
		_, ok := x.Get("s1")
		assert.False(t, ok)
	})
}

func TestIndexSearch(t *testing.T) {
	ctx := context.Background()
	filter := Filter{Now: indexTime}

	t.Run("orders by cosine similarity", func(t *testing.T) {
		x := NewIndex()
		x.Upsert(activeScheme("aligned", 1, []float32{1, 0}))
		x.Upsert(activeScheme("orthogonal", 1, []float32{0, 1}))
		x.Upsert(activeScheme("diagonal", 1, []float32{1, 1}))

		hits, err := x.Search(ctx, []float32{1, 0}, 10, filter)
		require.NoError(t, err)
		require.Len(t, hits, 3)
		assert.Equal(t, "aligned", hits[0].SchemeID)
		assert.Equal(t, "diagonal", hits[1].SchemeID)
		assert.Equal(t, "orthogonal", hits[2].SchemeID)
	})

	t.Run("truncates to topK", func(t *testing.T) {
		x := NewIndex()
		x.Upsert(activeScheme("a", 1, []float32{1, 0}))
		x.Upsert(activeScheme("b", 1, []float32{1, 0}))
		x.Upsert(activeScheme("c", 1, []float32{1, 0}))

		hits, err := x.Search(ctx, []float32{1, 0}, 2, filter)
		require.NoError(t, err)
		assert.Len(t, hits, 2)
	})

	t.Run("inactive schemes never surface", func(t *testing.T) {
		x := NewIndex()
		inactive := activeScheme("gone", 1, []float32{1, 0})
		inactive.IsActive = false
		x.Upsert(inactive)
		x.Upsert(activeScheme("live", 1, []float32{1, 0}))

		hits, err := x.Search(ctx, []float32{1, 0}, 10, filter)
		require.NoError(t, err)
		require.Len(t, hits, 1)
		assert.Equal(t, "live", hits[0].SchemeID)
	})

	t.Run("closed application windows are excluded", func(t *testing.T) {
		x := NewIndex()
		closed := activeScheme("closed", 1, []float32{1, 0})
		past := indexTime.Add(-24 * time.Hour)
		closed.Deadline = models.DeadlineWindow{ClosesAt: &past}
		x.Upsert(closed)

		hits, err := x.Search(ctx, []float32{1, 0}, 10, filter)
		require.NoError(t, err)
		assert.Empty(t, hits)
	})

	t.Run("similarity ties break toward the newer scheme", func(t *testing.T) {
		x := NewIndex()
		old := activeScheme("old", 1, []float32{1, 0})
		old.UpdatedAt = indexTime.Add(-time.Hour)
		x.Upsert(old)
		x.Upsert(activeScheme("new", 1, []float32{1, 0}))

		hits, err := x.Search(ctx, []float32{1, 0}, 10, filter)
		require.NoError(t, err)
		require.Len(t, hits, 2)
		assert.Equal(t, "new", hits[0].SchemeID)
	})

	t.Run("category filter narrows results", func(t *testing.T) {
		x := NewIndex()
		x.Upsert(activeScheme("pension-1", 1, []float32{1, 0}))
		housing := activeScheme("housing-1", 1, []float32{1, 0})
		housing.Category = "housing"
		x.Upsert(housing)

		hits, err := x.Search(ctx, []float32{1, 0}, 10, Filter{Category: "housing", Now: indexTime})
		require.NoError(t, err)
		require.Len(t, hits, 1)
		assert.Equal(t, "housing-1", hits[0].SchemeID)
	})
}

func TestIndexListActive(t *testing.T) {
	x := NewIndex()
	older := activeScheme("older", 1, nil)
	older.UpdatedAt = indexTime.Add(-time.Hour)
	x.Upsert(older)
	x.Upsert(activeScheme("newer", 1, nil))
	inactive := activeScheme("inactive", 1, nil)
	inactive.IsActive = false
	x.Upsert(inactive)

	got := x.ListActive(Filter{Now: indexTime})
	require.Len(t, got, 2)
	assert.Equal(t, "newer", got[0].ID)
	assert.Equal(t, "older", got[1].ID)
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, cosineSimilarity([]float32{1, 2}, []float32{2, 4}), 1e-9)
	assert.InDelta(t, 0.0, cosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.Equal(t, 0.0, cosineSimilarity(nil, []float32{1}))
	assert.Equal(t, 0.0, cosineSimilarity([]float32{1}, []float32{1, 2}))
	assert.Equal(t, 0.0, cosineSimilarity([]float32{0, 0}, []float32{1, 1}))
}
