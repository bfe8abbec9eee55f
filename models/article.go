package models

import (
	"time"

	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
)

// EmbeddingDimension is the pipeline-wide embedding contract. Every stored
// vector and every scorer input must have this dimensionality.
const EmbeddingDimension = 1536

// CategoryUnclassified is the sentinel for classifier output outside the
// allowed set.
const CategoryUnclassified = "unclassified"

// AllowedCategories is the closed set of category labels the classifier may
// assign. Anything else maps to CategoryUnclassified.
var AllowedCategories = []string{
	"politics",
	"economy",
	"society",
	"international",
	"culture",
	"sports",
	"it_science",
	"health",
	"education",
	"lifestyle",
	"industry",
	"entertainment",
	"incidents",
	"regional",
	"travel_leisure",
	"women_welfare",
	"hobby",
}

// Article is an enriched news article. The URL is the natural key; once
// enriched the row is immutable except for the views counter.
type Article struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Title     string    `json:"title"`
	Writer    string    `json:"writer"`
	WriteDate time.Time `json:"write_date" gorm:"index"`
	Category  string    `json:"category" gorm:"index"`
	Content   string    `json:"content" gorm:"type:text"`
	URL       string    `json:"url" gorm:"uniqueIndex;not null"`

	Keywords  datatypes.JSONSlice[string] `json:"keywords"`
	Embedding pgvector.Vector             `json:"-" gorm:"type:vector(1536)"`

	Views int `json:"views" gorm:"default:0"`
}

// TableName keeps the table name of the original deployment.
func (Article) TableName() string {
	return "news_article"
}

// InboundArticle is the raw message consumed from the news topic. Category,
// keywords and embedding are pipeline-derived, never inbound.
type InboundArticle struct {
	Title     string    `json:"title"`
	Writer    string    `json:"writer"`
	WriteDate time.Time `json:"write_date"`
	Content   string    `json:"content"`
	URL       string    `json:"url"`
}

// EnrichedPayload is the enricher's output. It has no lifecycle of its own;
// it is folded into Article creation by the sink writer.
type EnrichedPayload struct {
	Category  string
	Keywords  []string
	Embedding []float32
}

// ArchiveRecord is the per-day archive snapshot of an enriched article.
// The embedding is stripped for size control.
type ArchiveRecord struct {
	Title     string    `json:"title"`
	Writer    string    `json:"writer"`
	WriteDate time.Time `json:"write_date"`
	Category  string    `json:"category"`
	Content   string    `json:"content"`
	URL       string    `json:"url"`
	Keywords  []string  `json:"keywords"`
}

// CatalogEntry pairs an article id with its stored embedding, for ranking.
type CatalogEntry struct {
	ID        uint
	Embedding []float32
}

// SearchDocument is the search-index projection of an article, keyed by the
// primary store's generated id. The embedding is excluded.
type SearchDocument struct {
	ID        uint      `json:"id"`
	Title     string    `json:"title"`
	Writer    string    `json:"writer"`
	Category  string    `json:"category"`
	WriteDate time.Time `json:"write_date"`
	Content   string    `json:"content"`
	URL       string    `json:"url"`
	Keywords  []string  `json:"keywords"`
}
