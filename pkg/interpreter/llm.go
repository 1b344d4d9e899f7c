package interpreter

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"go.uber.org/zap"

	"github.com/setu-labs/sahayak/pkg/models"
)

// Provider is the language-understanding capability behind the interpreter.
// Implementations must be safe for concurrent use.
type Provider interface {
	InterpretCriteria(ctx context.Context, text string) (*Interpretation, error)
}

// Interpretation is a confidence-tagged translation of a free-text clause.
type Interpretation struct {
	Predicates []models.EligibilityPredicate `json:"predicates"`
	Confidence float64                       `json:"confidence"`
}

// LLMProvider implements Provider on an OpenAI-compatible chat API.
type LLMProvider struct {
	client llms.Model
	logger *zap.Logger
}

// LLMConfig configures the chat client.
type LLMConfig struct {
	BaseURL string
	Token   string
	Model   string
}

// NewLLMProvider creates a provider backed by an OpenAI-compatible endpoint.
func NewLLMProvider(cfg LLMConfig, logger *zap.Logger) (*LLMProvider, error) {
	client, err := openai.New(
		openai.WithBaseURL(cfg.BaseURL),
		openai.WithToken(cfg.Token),
		openai.WithModel(cfg.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create llm client: %w", err)
	}
	return &LLMProvider{
		client: client,
		logger: logger.With(zap.String("component", "llm-provider")),
	}, nil
}

// rawPredicate matches the JSON shape the model is prompted to emit.
type rawPredicate struct {
	Type       string   `json:"type"`
	Min        *float64 `json:"min,omitempty"`
	Max        *float64 `json:"max,omitempty"`
	Values     []string `json:"values,omitempty"`
	BoolValue  *bool    `json:"bool_value,omitempty"`
	Confidence float64  `json:"confidence"`
}

type rawInterpretation struct {
	Predicates []rawPredicate `json:"predicates"`
	Confidence float64        `json:"confidence"`
}

// InterpretCriteria asks the model to lower the clause into predicates.
// Malformed JSON is retried up to three times before giving up.
func (p *LLMProvider) InterpretCriteria(ctx context.Context, text string) (*Interpretation, error) {
	content := []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextPart(systemPrompt)},
		},
		{
			Role:  llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextPart(text)},
		},
	}

	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		response, err := p.client.GenerateContent(ctx, content, llms.WithTemperature(0.0), llms.WithJSONMode())
		if err != nil {
			return nil, err
		}
		if len(response.Choices) == 0 {
			lastErr = fmt.Errorf("empty response from model")
			continue
		}

		var raw rawInterpretation
		payload := strings.TrimSpace(response.Choices[0].Content)
		if err := json.Unmarshal([]byte(payload), &raw); err != nil {
			p.logger.Warn("malformed interpretation JSON",
				zap.Int("attempt", attempt+1), zap.Error(err))
			lastErr = err
			continue
		}

		return normalize(raw), nil
	}

	return nil, fmt.Errorf("interpretation failed after retries: %w", lastErr)
}

// normalize converts the model's raw output into engine predicates, dropping
// anything it emitted that does not map to a known predicate type.
func normalize(raw rawInterpretation) *Interpretation {
	result := &Interpretation{Confidence: clamp01(raw.Confidence)}

	for _, rp := range raw.Predicates {
		pt, ok := predicateType(rp.Type)
		if !ok {
			continue
		}
		values := make([]string, 0, len(rp.Values))
		for _, v := range rp.Values {
			values = append(values, strings.ToLower(strings.TrimSpace(v)))
		}
		result.Predicates = append(result.Predicates, models.EligibilityPredicate{
			Type:       pt,
			MinNumber:  rp.Min,
			MaxNumber:  rp.Max,
			Values:     values,
			BoolValue:  rp.BoolValue,
			Provenance: models.ProvenanceInterpreted,
			Confidence: clamp01(rp.Confidence),
		})
	}

	return result
}

func predicateType(s string) (models.PredicateType, bool) {
	switch models.PredicateType(strings.ToLower(strings.TrimSpace(s))) {
	case models.PredicateAge:
		return models.PredicateAge, true
	case models.PredicateIncome:
		return models.PredicateIncome, true
	case models.PredicateGender:
		return models.PredicateGender, true
	case models.PredicateLocation:
		return models.PredicateLocation, true
	case models.PredicateCaste:
		return models.PredicateCaste, true
	case models.PredicateDisability:
		return models.PredicateDisability, true
	case models.PredicateOccupation:
		return models.PredicateOccupation, true
	case models.PredicateEducation:
		return models.PredicateEducation, true
	default:
		return "", false
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
