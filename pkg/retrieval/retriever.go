package retrieval

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/setu-labs/sahayak/pkg/faults"
	"github.com/setu-labs/sahayak/pkg/tracing"
)

// Config tunes retrieval.
type Config struct {
	DefaultTopK int           // candidate set bound when the caller passes 0 (default 10)
	Timeout     time.Duration // sub-second budget for embed + search
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		DefaultTopK: 10,
		Timeout:     800 * time.Millisecond,
	}
}

// Retriever produces bounded candidate sets. The snapshot index resolves hit
// IDs to full schemes and carries the filter-only degradation path.
type Retriever struct {
	embedder Embedder
	searcher VectorSearcher
	snapshot *Index
	cfg      Config
	logger   *zap.Logger
}

// New creates a retriever.
func New(embedder Embedder, searcher VectorSearcher, snapshot *Index, cfg Config, logger *zap.Logger) *Retriever {
	return &Retriever{
		embedder: embedder,
		searcher: searcher,
		snapshot: snapshot,
		cfg:      cfg,
		logger:   logger.With(zap.String("component", "retriever")),
	}
}

// Retrieve returns up to topK candidates for the query. With empty query text
// it degrades to filter-only enumeration over active schemes. A failure of
// the embedding or search backend is reported as faults.ErrRetrievalUnavailable
// so the caller can fall back to the snapshot scan.
func (r *Retriever) Retrieve(ctx context.Context, queryText string, filter Filter, topK int) ([]Candidate, error) {
	ctx, span := tracing.StartSpan(ctx, "retrieval.Retriever.Retrieve")
	defer span.End()

	if topK < 0 {
		return nil, fmt.Errorf("topK must be non-negative, got %d", topK)
	}
	if topK == 0 {
		topK = r.cfg.DefaultTopK
	}

	if strings.TrimSpace(queryText) == "" {
		return r.SnapshotScan(filter, topK), nil
	}

	callCtx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	vector, err := r.embedder.EmbedQuery(callCtx, queryText)
	if err != nil {
		r.logger.Warn("query embedding failed", zap.Error(err))
		return nil, fmt.Errorf("%w: embed: %v", faults.ErrRetrievalUnavailable, err)
	}

	hits, err := r.searcher.Search(callCtx, vector, topK, filter)
	if err != nil {
		r.logger.Warn("similarity search failed", zap.Error(err))
		return nil, fmt.Errorf("%w: search: %v", faults.ErrRetrievalUnavailable, err)
	}

	candidates := make([]Candidate, 0, len(hits))
	for _, hit := range hits {
		scheme, ok := r.snapshot.Get(hit.SchemeID)
		if !ok {
			continue
		}
		// Re-check at resolve time: a scheme deactivated mid-query must not
		// appear even though its embedding is still indexed.
		if !filter.Matches(&scheme) {
			continue
		}
		candidates = append(candidates, Candidate{Scheme: scheme, Similarity: hit.Score})
	}

	return candidates, nil
}

// SnapshotScan enumerates the cached catalog snapshot, filter-only.
func (r *Retriever) SnapshotScan(filter Filter, topK int) []Candidate {
	schemes := r.snapshot.ListActive(filter)
	if topK > 0 && len(schemes) > topK {
		schemes = schemes[:topK]
	}
	candidates := make([]Candidate, 0, len(schemes))
	for _, s := range schemes {
		candidates = append(candidates, Candidate{Scheme: s})
	}
	return candidates
}
