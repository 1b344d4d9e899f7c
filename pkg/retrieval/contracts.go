// Package retrieval produces bounded candidate sets of schemes for a query
// via similarity search over scheme embeddings, narrowed by structural
// filters. The vector backend and the embedder are abstract contracts, not
// specific products.
package retrieval

import (
	"context"
	"time"

	"github.com/setu-labs/sahayak/pkg/models"
)

// Embedder turns query text into a vector. Implementations must be safe for
// concurrent use.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Hit is one similarity-search result.
type Hit struct {
	SchemeID string
	Score    float64
}

// VectorSearcher is the similarity-search capability contract.
type VectorSearcher interface {
	Search(ctx context.Context, vector []float32, topK int, filter Filter) ([]Hit, error)
}

// Filter narrows retrieval structurally before topK truncation.
type Filter struct {
	Category string
	// Now is the evaluation instant used for deadline checks. Zero means
	// time.Now at the call site; tests pin it for reproducibility.
	Now time.Time
}

func (f Filter) at() time.Time {
	if f.Now.IsZero() {
		return time.Now().UTC()
	}
	return f.Now
}

// Matches reports whether a scheme passes the structural filter. Inactive
// schemes never pass, even if they are still present in a vector index.
func (f Filter) Matches(s *models.Scheme) bool {
	if !s.IsActive {
		return false
	}
	if !s.AcceptingApplications(f.at()) {
		return false
	}
	if f.Category != "" && f.Category != s.Category {
		return false
	}
	return true
}

// Candidate pairs a scheme with its retrieval similarity. Filter-only scans
// carry zero similarity.
type Candidate struct {
	Scheme     models.Scheme
	Similarity float64
}
