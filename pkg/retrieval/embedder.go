package retrieval

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
	"go.uber.org/zap"
)

// OpenAIEmbedder implements Embedder on an OpenAI-compatible embeddings API.
type OpenAIEmbedder struct {
	embedder embeddings.Embedder
	logger   *zap.Logger
}

// EmbedderConfig configures the embedding client.
type EmbedderConfig struct {
	BaseURL string
	Token   string
	Model   string
}

// NewOpenAIEmbedder creates the embedder adapter.
func NewOpenAIEmbedder(cfg EmbedderConfig, logger *zap.Logger) (*OpenAIEmbedder, error) {
	client, err := openai.New(
		openai.WithBaseURL(cfg.BaseURL),
		openai.WithToken(cfg.Token),
		openai.WithEmbeddingModel(cfg.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding client: %w", err)
	}

	embedder, err := embeddings.NewEmbedder(client, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}

	return &OpenAIEmbedder{
		embedder: embedder,
		logger:   logger.With(zap.String("component", "embedder")),
	}, nil
}

// EmbedQuery generates an embedding for a single query string.
func (e *OpenAIEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.embedder.EmbedDocuments(ctx, []string{text})
	if err != nil {
		e.logger.Error("failed to embed query", zap.Error(err))
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("embedder returned no vectors")
	}
	return vectors[0], nil
}
