package services

import (
	"context"
	"math"
	"sort"

	"go.uber.org/zap"

	"newsflow/config"
	"newsflow/models"
)

// InteractionStore is the read side the scorer needs: interaction history
// and persisted embeddings. The scorer never writes.
type InteractionStore interface {
	LikedArticleIDs(ctx context.Context, userID uint) ([]uint, error)
	ViewedArticleIDs(ctx context.Context, userID uint) ([]uint, error)
	EmbeddingsByID(ctx context.Context, ids []uint) (map[uint][]float32, error)
	CatalogEmbeddings(ctx context.Context, exclude []uint) ([]models.CatalogEntry, error)
}

// Recommender ranks unseen articles for a user by vector distance from a
// weighted centroid of the user's interacted-article embeddings.
type Recommender struct {
	store      InteractionStore
	likeWeight float64
	viewWeight float64
	logger     *zap.Logger
}

// NewRecommender wires the scorer with its weights from config.
func NewRecommender(cfg *config.Config, store InteractionStore, logger *zap.Logger) *Recommender {
	return &Recommender{
		store:      store,
		likeWeight: cfg.LikeWeight,
		viewWeight: cfg.ViewWeight,
		logger:     logger,
	}
}

// Recommend returns article ids ranked by ascending cosine distance from the
// user's profile vector. Liked and viewed articles are never returned. The
// full ranked order is computed per call; limit <= 0 means no cap.
// A user with no liked or viewed article that has an embedding gets
// ErrInsufficientHistory, never a division by zero.
func (r *Recommender) Recommend(ctx context.Context, userID uint, limit int) ([]uint, error) {
	liked, err := r.store.LikedArticleIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	viewed, err := r.store.ViewedArticleIDs(ctx, userID)
	if err != nil {
		return nil, err
	}

	exclude := unionIDs(liked, viewed)
	embeddings, err := r.store.EmbeddingsByID(ctx, exclude)
	if err != nil {
		return nil, err
	}

	profile, totalWeight := r.profileVector(liked, viewed, embeddings)
	if totalWeight == 0 {
		return nil, ErrInsufficientHistory
	}
	for i := range profile {
		profile[i] /= totalWeight
	}

	catalog, err := r.store.CatalogEmbeddings(ctx, exclude)
	if err != nil {
		return nil, err
	}

	type scored struct {
		id       uint
		distance float64
	}
	ranked := make([]scored, 0, len(catalog))
	for _, entry := range catalog {
		if len(entry.Embedding) != len(profile) {
			r.logger.Warn("embedding dimension mismatch, article skipped",
				zap.Uint("article_id", entry.ID), zap.Int("dimension", len(entry.Embedding)))
			continue
		}
		ranked = append(ranked, scored{
			id:       entry.ID,
			distance: 1 - cosineSimilarity(profile, entry.Embedding),
		})
	}

	// Closer = more relevant; ties break on id for a stable order.
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].distance != ranked[j].distance {
			return ranked[i].distance < ranked[j].distance
		}
		return ranked[i].id < ranked[j].id
	})

	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	ids := make([]uint, len(ranked))
	for i, s := range ranked {
		ids[i] = s.id
	}
	return ids, nil
}

// profileVector accumulates the weighted sum of interacted embeddings.
// Articles without a stored embedding are skipped, not treated as zero
// vectors: only contributing weights enter the divisor.
func (r *Recommender) profileVector(liked, viewed []uint, embeddings map[uint][]float32) ([]float64, float64) {
	var profile []float64
	var totalWeight float64

	add := func(ids []uint, weight float64) {
		for _, id := range ids {
			vec, ok := embeddings[id]
			if !ok {
				continue
			}
			if profile == nil {
				profile = make([]float64, len(vec))
			}
			if len(vec) != len(profile) {
				r.logger.Warn("embedding dimension mismatch in history, article skipped",
					zap.Uint("article_id", id), zap.Int("dimension", len(vec)))
				continue
			}
			for i, v := range vec {
				profile[i] += weight * float64(v)
			}
			totalWeight += weight
		}
	}
	add(liked, r.likeWeight)
	add(viewed, r.viewWeight)

	return profile, totalWeight
}

func unionIDs(a, b []uint) []uint {
	seen := make(map[uint]struct{}, len(a)+len(b))
	out := make([]uint, 0, len(a)+len(b))
	for _, ids := range [][]uint{a, b} {
		for _, id := range ids {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}

func cosineSimilarity(a []float64, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		bv := float64(b[i])
		dot += a[i] * bv
		normA += a[i] * a[i]
		normB += bv * bv
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
