package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"newsflow/config"
	"newsflow/models"
)

type fakeInteractionStore struct {
	liked      []uint
	viewed     []uint
	embeddings map[uint][]float32
	catalog    []models.CatalogEntry

	likedErr error

	gotExclude []uint
}

func (f *fakeInteractionStore) LikedArticleIDs(_ context.Context, _ uint) ([]uint, error) {
	return f.liked, f.likedErr
}

func (f *fakeInteractionStore) ViewedArticleIDs(_ context.Context, _ uint) ([]uint, error) {
	return f.viewed, nil
}

func (f *fakeInteractionStore) EmbeddingsByID(_ context.Context, ids []uint) (map[uint][]float32, error) {
	out := make(map[uint][]float32, len(ids))
	for _, id := range ids {
		if vec, ok := f.embeddings[id]; ok {
			out[id] = vec
		}
	}
	return out, nil
}

func (f *fakeInteractionStore) CatalogEmbeddings(_ context.Context, exclude []uint) ([]models.CatalogEntry, error) {
	f.gotExclude = exclude
	skip := make(map[uint]struct{}, len(exclude))
	for _, id := range exclude {
		skip[id] = struct{}{}
	}
	var out []models.CatalogEntry
	for _, entry := range f.catalog {
		if _, ok := skip[entry.ID]; ok {
			continue
		}
		out = append(out, entry)
	}
	return out, nil
}

func newTestRecommender(store *fakeInteractionStore) *Recommender {
	cfg := &config.Config{LikeWeight: 3, ViewWeight: 1}
	return NewRecommender(cfg, store, zap.NewNop())
}

func TestRecommendWeightedCentroidOrdering(t *testing.T) {
	store := &fakeInteractionStore{
		liked:  []uint{1, 2},
		viewed: []uint{3},
		embeddings: map[uint][]float32{
			1: {1, 0, 0},
			2: {0, 1, 0},
			3: {0, 0, 1},
		},
		// Profile direction is (3, 3, 1): likes weigh three times a view.
		catalog: []models.CatalogEntry{
			{ID: 12, Embedding: []float32{0, 0, 1}},
			{ID: 10, Embedding: []float32{3, 3, 1}},
			{ID: 11, Embedding: []float32{1, 1, 0}},
		},
	}

	ids, err := newTestRecommender(store).Recommend(context.Background(), 7, 0)
	require.NoError(t, err)
	assert.Equal(t, []uint{10, 11, 12}, ids)
}

func TestRecommendExcludesInteractedArticles(t *testing.T) {
	store := &fakeInteractionStore{
		liked:  []uint{1},
		viewed: []uint{2},
		embeddings: map[uint][]float32{
			1: {1, 0},
			2: {0, 1},
		},
		catalog: []models.CatalogEntry{
			{ID: 1, Embedding: []float32{1, 0}},
			{ID: 2, Embedding: []float32{0, 1}},
			{ID: 5, Embedding: []float32{1, 1}},
		},
	}

	ids, err := newTestRecommender(store).Recommend(context.Background(), 7, 0)
	require.NoError(t, err)

	assert.Equal(t, []uint{5}, ids)
	assert.ElementsMatch(t, []uint{1, 2}, store.gotExclude)
}

func TestRecommendInsufficientHistory(t *testing.T) {
	t.Run("no interactions", func(t *testing.T) {
		store := &fakeInteractionStore{embeddings: map[uint][]float32{}}
		_, err := newTestRecommender(store).Recommend(context.Background(), 7, 0)
		assert.ErrorIs(t, err, ErrInsufficientHistory)
	})

	t.Run("interactions without stored embeddings", func(t *testing.T) {
		store := &fakeInteractionStore{
			liked:      []uint{1, 2},
			viewed:     []uint{3},
			embeddings: map[uint][]float32{},
		}
		_, err := newTestRecommender(store).Recommend(context.Background(), 7, 0)
		assert.ErrorIs(t, err, ErrInsufficientHistory)
	})
}

func TestRecommendSkipsHistoryWithoutEmbedding(t *testing.T) {
	store := &fakeInteractionStore{
		liked: []uint{1, 2},
		embeddings: map[uint][]float32{
			// Article 2 has no vector and must not drag the profile to zero.
			1: {1, 0, 0},
		},
		catalog: []models.CatalogEntry{
			{ID: 20, Embedding: []float32{1, 0, 0}},
			{ID: 21, Embedding: []float32{0, 1, 0}},
		},
	}

	ids, err := newTestRecommender(store).Recommend(context.Background(), 7, 0)
	require.NoError(t, err)
	assert.Equal(t, []uint{20, 21}, ids)
}

func TestRecommendTieBreaksOnAscendingID(t *testing.T) {
	store := &fakeInteractionStore{
		liked:      []uint{1},
		embeddings: map[uint][]float32{1: {1, 1}},
		catalog: []models.CatalogEntry{
			{ID: 31, Embedding: []float32{2, 2}},
			{ID: 30, Embedding: []float32{2, 2}},
		},
	}

	ids, err := newTestRecommender(store).Recommend(context.Background(), 7, 0)
	require.NoError(t, err)
	assert.Equal(t, []uint{30, 31}, ids)
}

func TestRecommendAppliesLimit(t *testing.T) {
	store := &fakeInteractionStore{
		liked:      []uint{1},
		embeddings: map[uint][]float32{1: {1, 0}},
		catalog: []models.CatalogEntry{
			{ID: 40, Embedding: []float32{1, 0}},
			{ID: 41, Embedding: []float32{0.9, 0.1}},
			{ID: 42, Embedding: []float32{0, 1}},
		},
	}

	ids, err := newTestRecommender(store).Recommend(context.Background(), 7, 2)
	require.NoError(t, err)
	assert.Equal(t, []uint{40, 41}, ids)
}

func TestRecommendSkipsMismatchedCatalogDimensions(t *testing.T) {
	store := &fakeInteractionStore{
		liked:      []uint{1},
		embeddings: map[uint][]float32{1: {1, 0, 0}},
		catalog: []models.CatalogEntry{
			{ID: 50, Embedding: []float32{1, 0}},
			{ID: 51, Embedding: []float32{1, 0, 0}},
		},
	}

	ids, err := newTestRecommender(store).Recommend(context.Background(), 7, 0)
	require.NoError(t, err)
	assert.Equal(t, []uint{51}, ids)
}

func TestRecommendStoreErrorPropagates(t *testing.T) {
	store := &fakeInteractionStore{likedErr: errors.New("db down")}
	_, err := newTestRecommender(store).Recommend(context.Background(), 7, 0)
	assert.Error(t, err)
}
