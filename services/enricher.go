package services

import (
	"context"

	"github.com/pkoukk/tiktoken-go"
	"go.uber.org/zap"

	"newsflow/config"
	"newsflow/models"
)

// TextIntelligence is the boundary to the external classification and
// embedding service. Three independent calls, consumed as black boxes.
type TextIntelligence interface {
	ExtractKeywords(ctx context.Context, text string) ([]string, error)
	ClassifyCategory(ctx context.Context, text string) (string, error)
	Embed(ctx context.Context, text string) ([]float32, error)
}

// TokenCodec encodes text into tokens and back. Used to enforce the token
// budget before any provider call.
type TokenCodec interface {
	Encode(text string) []int
	Decode(tokens []int) string
}

// NewTiktokenCodec returns the cl100k_base codec used by the reference
// deployment.
func NewTiktokenCodec() (TokenCodec, error) {
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil, err
	}
	return &tiktokenCodec{enc: enc}, nil
}

type tiktokenCodec struct {
	enc *tiktoken.Tiktoken
}

func (c *tiktokenCodec) Encode(text string) []int {
	return c.enc.Encode(text, nil, nil)
}

func (c *tiktokenCodec) Decode(tokens []int) string {
	return c.enc.Decode(tokens)
}

// Enricher turns raw article text into structured metadata: category label,
// keyword list and embedding vector.
type Enricher struct {
	provider TextIntelligence
	codec    TokenCodec
	budget   int
	allowed  map[string]struct{}
	logger   *zap.Logger
}

// NewEnricher wires the enricher with its provider and token codec.
func NewEnricher(cfg *config.Config, provider TextIntelligence, codec TokenCodec, logger *zap.Logger) *Enricher {
	allowed := make(map[string]struct{}, len(models.AllowedCategories))
	for _, c := range models.AllowedCategories {
		allowed[c] = struct{}{}
	}
	return &Enricher{
		provider: provider,
		codec:    codec,
		budget:   cfg.TokenBudget,
		allowed:  allowed,
		logger:   logger,
	}
}

// Truncate cuts text down to the token budget. Truncation is deterministic:
// the same input always yields the same truncated text, so retries of the
// same message hit the provider with identical input.
func (e *Enricher) Truncate(text string) string {
	if text == "" {
		return ""
	}
	tokens := e.codec.Encode(text)
	if len(tokens) <= e.budget {
		return text
	}
	return e.codec.Decode(tokens[:e.budget])
}

// Enrich derives category, keywords and embedding for the given raw text.
// Any provider failure returns an EnrichmentError and no partial payload.
func (e *Enricher) Enrich(ctx context.Context, rawText string) (models.EnrichedPayload, error) {
	text := e.Truncate(rawText)

	keywords, err := e.provider.ExtractKeywords(ctx, text)
	if err != nil {
		return models.EnrichedPayload{}, &EnrichmentError{Stage: "keywords", Err: err}
	}
	if len(keywords) != 5 {
		// Known provider looseness: surface the raw count instead of
		// fabricating or dropping keywords.
		keywordCountDeviations.Inc()
		e.logger.Warn("provider returned unexpected keyword count", zap.Int("count", len(keywords)))
	}

	label, err := e.provider.ClassifyCategory(ctx, text)
	if err != nil {
		return models.EnrichedPayload{}, &EnrichmentError{Stage: "category", Err: err}
	}
	category := label
	if _, ok := e.allowed[label]; !ok {
		e.logger.Warn("classifier output outside allowed set", zap.String("label", label))
		category = models.CategoryUnclassified
	}

	embedding, err := e.provider.Embed(ctx, text)
	if err != nil {
		return models.EnrichedPayload{}, &EnrichmentError{Stage: "embedding", Err: err}
	}

	return models.EnrichedPayload{
		Category:  category,
		Keywords:  keywords,
		Embedding: embedding,
	}, nil
}
