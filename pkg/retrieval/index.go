package retrieval

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/setu-labs/sahayak/pkg/models"
)

// Index is an in-process catalog snapshot with cosine similarity search. It
// serves two roles: the default VectorSearcher implementation and the locally
// cached snapshot the orchestrator falls back to when the retrieval backend
// is unavailable. Safe for concurrent use; schemes are copied on read.
type Index struct {
	mu      sync.RWMutex
	schemes map[string]models.Scheme
}

// NewIndex creates an empty index.
func NewIndex() *Index {
	return &Index{schemes: make(map[string]models.Scheme)}
}

// Upsert inserts or replaces a scheme. Stale versions are ignored so
// out-of-order change notifications cannot roll the snapshot backward.
func (x *Index) Upsert(s models.Scheme) {
	x.mu.Lock()
	defer x.mu.Unlock()
	if existing, ok := x.schemes[s.ID]; ok && existing.Version > s.Version {
		return
	}
	x.schemes[s.ID] = s
}

// Remove drops a scheme from the snapshot.
func (x *Index) Remove(schemeID string) {
	x.mu.Lock()
	defer x.mu.Unlock()
	delete(x.schemes, schemeID)
}

// Get returns a scheme copy by ID.
func (x *Index) Get(schemeID string) (models.Scheme, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	s, ok := x.schemes[schemeID]
	return s, ok
}

// Len returns the number of schemes in the snapshot.
func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.schemes)
}

// Search implements VectorSearcher over the snapshot. Inactive schemes are
// excluded before scoring, not after.
func (x *Index) Search(ctx context.Context, vector []float32, topK int, filter Filter) ([]Hit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	x.mu.RLock()
	hits := make([]Hit, 0, len(x.schemes))
	updated := make(map[string]int64, len(x.schemes))
	for id, s := range x.schemes {
		if !filter.Matches(&s) || len(s.Embedding) == 0 {
			continue
		}
		hits = append(hits, Hit{SchemeID: id, Score: cosineSimilarity(vector, s.Embedding)})
		updated[id] = s.UpdatedAt.UnixNano()
	}
	x.mu.RUnlock()

	// Ties in similarity break toward the newer scheme.
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		if updated[hits[i].SchemeID] != updated[hits[j].SchemeID] {
			return updated[hits[i].SchemeID] > updated[hits[j].SchemeID]
		}
		return hits[i].SchemeID < hits[j].SchemeID
	})

	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

// ListActive enumerates schemes passing the filter, newest first. This is the
// filter-only degradation path used when no query text is present or the
// vector backend is down.
func (x *Index) ListActive(filter Filter) []models.Scheme {
	x.mu.RLock()
	out := make([]models.Scheme, 0, len(x.schemes))
	for _, s := range x.schemes {
		if filter.Matches(&s) {
			out = append(out, s)
		}
	}
	x.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
