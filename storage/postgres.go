package storage

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"newsflow/models"
)

// ArticleRepository is the gorm-backed primary store. It owns the
// idempotency decision: the unique index on url is the concurrency boundary,
// not application locking.
type ArticleRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewArticleRepository creates the repository.
func NewArticleRepository(db *gorm.DB, logger *zap.Logger) *ArticleRepository {
	return &ArticleRepository{db: db, logger: logger}
}

// InsertIgnoreDuplicate inserts the article with "do nothing on conflict"
// semantics on the url column. Concurrent writers racing on the same URL
// both attempt the insert; exactly one observes created=true.
func (r *ArticleRepository) InsertIgnoreDuplicate(ctx context.Context, article *models.Article) (bool, error) {
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "url"}},
		DoNothing: true,
	}).Create(article)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// ListWithoutEmbedding returns articles for the read API, optionally
// filtered by category. The embedding column is never serialized.
func (r *ArticleRepository) ListWithoutEmbedding(ctx context.Context, category string) ([]models.Article, error) {
	query := r.db.WithContext(ctx).Omit("embedding")
	if category != "" {
		query = query.Where("category = ?", category)
	}
	var articles []models.Article
	if err := query.Order("write_date desc").Find(&articles).Error; err != nil {
		return nil, err
	}
	return articles, nil
}

// ToggleLike flips the like relation for (user, article). A repeated like
// cancels it, keeping at most one active like per pair.
func (r *ArticleRepository) ToggleLike(ctx context.Context, userID, articleID uint) (liked bool, err error) {
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.Like
		findErr := tx.Where("user_id = ? AND article_id = ?", userID, articleID).First(&existing).Error
		switch {
		case findErr == nil:
			liked = false
			return tx.Delete(&existing).Error
		case errors.Is(findErr, gorm.ErrRecordNotFound):
			liked = true
			return tx.Create(&models.Like{UserID: userID, ArticleID: articleID}).Error
		default:
			return findErr
		}
	})
	return liked, err
}

// RecordView appends one view event and bumps the article's monotonic views
// counter.
func (r *ArticleRepository) RecordView(ctx context.Context, userID, articleID uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&models.ArticleView{UserID: userID, ArticleID: articleID}).Error; err != nil {
			return err
		}
		return tx.Model(&models.Article{}).
			Where("id = ?", articleID).
			UpdateColumn("views", gorm.Expr("views + 1")).Error
	})
}

// LikedArticleIDs returns the ids of all articles the user currently likes.
func (r *ArticleRepository) LikedArticleIDs(ctx context.Context, userID uint) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Model(&models.Like{}).
		Where("user_id = ?", userID).
		Order("article_id").
		Pluck("article_id", &ids).Error
	return ids, err
}

// ViewedArticleIDs returns the distinct ids of articles the user has viewed.
func (r *ArticleRepository) ViewedArticleIDs(ctx context.Context, userID uint) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Model(&models.ArticleView{}).
		Where("user_id = ?", userID).
		Distinct("article_id").
		Order("article_id").
		Pluck("article_id", &ids).Error
	return ids, err
}

// EmbeddingsByID loads the embeddings for the given article ids. Articles
// without a stored embedding are simply absent from the result.
func (r *ArticleRepository) EmbeddingsByID(ctx context.Context, ids []uint) (map[uint][]float32, error) {
	if len(ids) == 0 {
		return map[uint][]float32{}, nil
	}
	var articles []models.Article
	err := r.db.WithContext(ctx).
		Select("id", "embedding").
		Where("id IN ?", ids).
		Find(&articles).Error
	if err != nil {
		return nil, err
	}
	out := make(map[uint][]float32, len(articles))
	for _, a := range articles {
		vec := a.Embedding.Slice()
		if len(vec) == 0 {
			continue
		}
		out[a.ID] = vec
	}
	return out, nil
}

// CatalogEmbeddings streams id+embedding for every article not in the
// exclusion set.
func (r *ArticleRepository) CatalogEmbeddings(ctx context.Context, exclude []uint) ([]models.CatalogEntry, error) {
	query := r.db.WithContext(ctx).Model(&models.Article{}).Select("id", "embedding")
	if len(exclude) > 0 {
		query = query.Where("id NOT IN ?", exclude)
	}
	var articles []models.Article
	if err := query.Order("id").Find(&articles).Error; err != nil {
		return nil, err
	}
	entries := make([]models.CatalogEntry, 0, len(articles))
	for _, a := range articles {
		vec := a.Embedding.Slice()
		if len(vec) == 0 {
			continue
		}
		entries = append(entries, models.CatalogEntry{ID: a.ID, Embedding: vec})
	}
	return entries, nil
}
