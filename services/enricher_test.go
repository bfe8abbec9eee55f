package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"newsflow/config"
	"newsflow/models"
)

// wordCodec treats every whitespace-separated word as one token.
type wordCodec struct{}

func (wordCodec) Encode(text string) []int {
	words := strings.Fields(text)
	tokens := make([]int, len(words))
	for i := range words {
		tokens[i] = i
	}
	return tokens
}

func (wordCodec) Decode(tokens []int) string {
	return strings.Join(strings.Fields(testCorpus)[:len(tokens)], " ")
}

// testCorpus backs the decode side of wordCodec.
var testCorpus string

type fakeProvider struct {
	keywords    []string
	keywordsErr error
	category    string
	categoryErr error
	embedding   []float32
	embedErr    error

	seenTexts []string
}

func (f *fakeProvider) ExtractKeywords(_ context.Context, text string) ([]string, error) {
	f.seenTexts = append(f.seenTexts, text)
	return f.keywords, f.keywordsErr
}

func (f *fakeProvider) ClassifyCategory(_ context.Context, text string) (string, error) {
	f.seenTexts = append(f.seenTexts, text)
	return f.category, f.categoryErr
}

func (f *fakeProvider) Embed(_ context.Context, text string) ([]float32, error) {
	f.seenTexts = append(f.seenTexts, text)
	return f.embedding, f.embedErr
}

func newTestEnricher(t *testing.T, provider *fakeProvider, budget int) *Enricher {
	t.Helper()
	cfg := &config.Config{TokenBudget: budget, EmbeddingDimension: 3}
	return NewEnricher(cfg, provider, wordCodec{}, zap.NewNop())
}

func healthyProvider() *fakeProvider {
	return &fakeProvider{
		keywords:  []string{"economy", "market", "rates", "stocks", "consumers"},
		category:  "economy",
		embedding: []float32{0.1, 0.2, 0.3},
	}
}

func TestTruncateDeterministic(t *testing.T) {
	testCorpus = strings.Repeat("word ", 50)
	e := newTestEnricher(t, healthyProvider(), 10)

	first := e.Truncate(testCorpus)
	second := e.Truncate(testCorpus)

	assert.Equal(t, first, second)
	assert.Len(t, strings.Fields(first), 10)
}

func TestTruncateUnderBudgetUnchanged(t *testing.T) {
	testCorpus = "short text only"
	e := newTestEnricher(t, healthyProvider(), 10)

	assert.Equal(t, testCorpus, e.Truncate(testCorpus))
	assert.Equal(t, "", e.Truncate(""))
}

func TestEnrichPassesSameTruncatedTextToAllCalls(t *testing.T) {
	testCorpus = strings.Repeat("news ", 30)
	provider := healthyProvider()
	e := newTestEnricher(t, provider, 5)

	_, err := e.Enrich(context.Background(), testCorpus)
	require.NoError(t, err)

	require.Len(t, provider.seenTexts, 3)
	truncated := e.Truncate(testCorpus)
	for _, seen := range provider.seenTexts {
		assert.Equal(t, truncated, seen)
	}
}

func TestEnrichCategoryFallback(t *testing.T) {
	testCorpus = "some article"
	provider := healthyProvider()
	provider.category = "definitely-not-a-category"
	e := newTestEnricher(t, provider, 100)

	payload, err := e.Enrich(context.Background(), testCorpus)
	require.NoError(t, err)
	assert.Equal(t, models.CategoryUnclassified, payload.Category)
}

func TestEnrichAllowedCategoryKept(t *testing.T) {
	testCorpus = "some article"
	provider := healthyProvider()
	provider.category = "sports"
	e := newTestEnricher(t, provider, 100)

	payload, err := e.Enrich(context.Background(), testCorpus)
	require.NoError(t, err)
	assert.Equal(t, "sports", payload.Category)
}

func TestEnrichPreservesRawKeywordCount(t *testing.T) {
	testCorpus = "some article"
	provider := healthyProvider()
	provider.keywords = []string{"one", "two", "three"}
	e := newTestEnricher(t, provider, 100)

	payload, err := e.Enrich(context.Background(), testCorpus)
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "two", "three"}, payload.Keywords)
}

func TestEnrichProviderFailures(t *testing.T) {
	testCorpus = "some article"
	boom := errors.New("provider down")

	cases := []struct {
		name  string
		setup func(*fakeProvider)
		stage string
	}{
		{"keywords", func(p *fakeProvider) { p.keywordsErr = boom }, "keywords"},
		{"category", func(p *fakeProvider) { p.categoryErr = boom }, "category"},
		{"embedding", func(p *fakeProvider) { p.embedErr = boom }, "embedding"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			provider := healthyProvider()
			tc.setup(provider)
			e := newTestEnricher(t, provider, 100)

			payload, err := e.Enrich(context.Background(), testCorpus)
			require.Error(t, err)

			var enrichErr *EnrichmentError
			require.ErrorAs(t, err, &enrichErr)
			assert.Equal(t, tc.stage, enrichErr.Stage)
			assert.ErrorIs(t, err, boom)
			// No partial enrichment ever leaves the enricher.
			assert.Empty(t, payload.Keywords)
			assert.Empty(t, payload.Category)
			assert.Empty(t, payload.Embedding)
		})
	}
}
