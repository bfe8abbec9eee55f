package models

import "time"

// Like is a user's active like on an article. Toggle semantics: at most one
// row per (user, article); a repeated like deletes the row.
type Like struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`

	UserID    uint `json:"user_id" gorm:"uniqueIndex:idx_like_user_article;not null"`
	ArticleID uint `json:"article_id" gorm:"uniqueIndex:idx_like_user_article;not null"`
}

// TableName gives the likes table an explicit name.
func (Like) TableName() string {
	return "news_like"
}

// ArticleView records one read of an article by a user. Views accumulate,
// one row per read.
type ArticleView struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`

	UserID    uint `json:"user_id" gorm:"index;not null"`
	ArticleID uint `json:"article_id" gorm:"index;not null"`
}

// TableName gives the views table an explicit name.
func (ArticleView) TableName() string {
	return "news_article_view"
}
