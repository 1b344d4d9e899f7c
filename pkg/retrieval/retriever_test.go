package retrieval

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/setu-labs/sahayak/pkg/faults"
)

type stubEmbedder struct {
	vector []float32
	err    error
}

func (s *stubEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.vector, nil
}

type failingSearcher struct{}

func (failingSearcher) Search(ctx context.Context, vector []float32, topK int, filter Filter) ([]Hit, error) {
	return nil, errors.New("backend down")
}

func TestRetrieve(t *testing.T) {
	ctx := context.Background()
	filter := Filter{Now: indexTime}

	newRetriever := func(embedder Embedder, searcher VectorSearcher, snapshot *Index) *Retriever {
		return New(embedder, searcher, snapshot, DefaultConfig(), zap.NewNop())
	}

	t.Run("negative topK is rejected", func(t *testing.T) {
		r := newRetriever(&stubEmbedder{}, NewIndex(), NewIndex())
		_, err := r.Retrieve(ctx, "pension", filter, -1)
		assert.Error(t, err)
	})

	t.Run("empty query degrades to filter-only scan", func(t *testing.T) {
		snapshot := NewIndex()
		snapshot.Upsert(activeScheme("s1", 1, nil))
		snapshot.Upsert(activeScheme("s2", 1, nil))
		r := newRetriever(&stubEmbedder{err: errors.New("must not be called")}, snapshot, snapshot)

		candidates, err := r.Retrieve(ctx, "   ", filter, 0)
		require.NoError(t, err)
		assert.Len(t, candidates, 2)
		for _, c := range candidates {
			assert.Zero(t, c.Similarity)
		}
	})

	t.Run("hits resolve to full schemes with similarity", func(t *testing.T) {
		snapshot := NewIndex()
		snapshot.Upsert(activeScheme("s1", 1, []float32{1, 0}))
		snapshot.Upsert(activeScheme("s2", 1, []float32{0, 1}))
		r := newRetriever(&stubEmbedder{vector: []float32{1, 0}}, snapshot, snapshot)

		candidates, err := r.Retrieve(ctx, "old age pension", filter, 10)
		require.NoError(t, err)
		require.Len(t, candidates, 2)
		assert.Equal(t, "s1", candidates[0].Scheme.ID)
		assert.InDelta(t, 1.0, candidates[0].Similarity, 1e-9)
	})

	t.Run("embedding failure reports retrieval unavailable", func(t *testing.T) {
		r := newRetriever(&stubEmbedder{err: errors.New("boom")}, NewIndex(), NewIndex())
		_, err := r.Retrieve(ctx, "pension", filter, 10)
		assert.ErrorIs(t, err, faults.ErrRetrievalUnavailable)
	})

	t.Run("search failure reports retrieval unavailable", func(t *testing.T) {
		r := newRetriever(&stubEmbedder{vector: []float32{1}}, failingSearcher{}, NewIndex())
		_, err := r.Retrieve(ctx, "pension", filter, 10)
		assert.ErrorIs(t, err, faults.ErrRetrievalUnavailable)
	})

	t.Run("scheme deactivated between search and resolve is dropped", func(t *testing.T) {
		searchIndex := NewIndex()
		searchIndex.Upsert(activeScheme("s1", 1, []float32{1, 0}))

		snapshot := NewIndex()
		deactivated := activeScheme("s1", 2, []float32{1, 0})
		deactivated.IsActive = false
		snapshot.Upsert(deactivated)

		r := newRetriever(&stubEmbedder{vector: []float32{1, 0}}, searchIndex, snapshot)
		candidates, err := r.Retrieve(ctx, "pension", filter, 10)
		require.NoError(t, err)
		assert.Empty(t, candidates)
	})
}

func TestSnapshotScan(t *testing.T) {
	snapshot := NewIndex()
	snapshot.Upsert(activeScheme("s1", 1, nil))
	snapshot.Upsert(activeScheme("s2", 1, nil))
	snapshot.Upsert(activeScheme("s3", 1, nil))
	r := New(&stubEmbedder{}, snapshot, snapshot, DefaultConfig(), zap.NewNop())

	candidates := r.SnapshotScan(Filter{Now: indexTime}, 2)
	assert.Len(t, candidates, 2)
}
