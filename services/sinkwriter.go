package services

import (
	"context"
	"time"

	"github.com/pgvector/pgvector-go"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"newsflow/models"
)

// ArticleStore is the primary store boundary. The insert must be a no-op on
// URL conflict and report whether a row was actually created.
type ArticleStore interface {
	InsertIgnoreDuplicate(ctx context.Context, article *models.Article) (created bool, err error)
}

// SearchIndexer is the document-oriented search index boundary.
type SearchIndexer interface {
	Index(ctx context.Context, doc models.SearchDocument) error
}

// ArchiveAppender appends one record to the given day's archive and returns
// the path of the day file.
type ArchiveAppender interface {
	Append(day string, rec models.ArchiveRecord) (string, error)
}

// ColdCopier copies a day's archive file to durable bulk storage. The copy
// overwrites, so re-copying the same day is idempotent.
type ColdCopier interface {
	CopyDayArchive(ctx context.Context, day string, path string) error
}

// WriteOutcome reports whether the primary store created a new row.
type WriteOutcome struct {
	Created   bool
	ArticleID uint
}

// SinkWriter performs the idempotent primary-store upsert and fans the
// enriched record out to the secondary sinks. The primary store's conflict
// outcome is the single arbiter of "is this a new article": on created=false
// no sink is touched, so redelivery can never duplicate index entries or
// archive rows.
type SinkWriter struct {
	articles ArticleStore
	search   SearchIndexer
	archive  ArchiveAppender
	cold     ColdCopier
	logger   *zap.Logger

	now func() time.Time
}

// NewSinkWriter wires the sink writer with its collaborators.
func NewSinkWriter(articles ArticleStore, search SearchIndexer, archive ArchiveAppender, cold ColdCopier, logger *zap.Logger) *SinkWriter {
	return &SinkWriter{
		articles: articles,
		search:   search,
		archive:  archive,
		cold:     cold,
		logger:   logger,
		now:      time.Now,
	}
}

// Write persists the enriched article. Only a primary-store failure is
// returned; every secondary sink is best-effort. A lost search-index entry
// can be rebuilt from the primary store, a lost primary row cannot.
func (w *SinkWriter) Write(ctx context.Context, in models.InboundArticle, payload models.EnrichedPayload) (WriteOutcome, error) {
	article := &models.Article{
		Title:     in.Title,
		Writer:    in.Writer,
		WriteDate: in.WriteDate,
		Category:  payload.Category,
		Content:   in.Content,
		URL:       in.URL,
		Keywords:  datatypes.NewJSONSlice(payload.Keywords),
		Embedding: pgvector.NewVector(payload.Embedding),
	}

	created, err := w.articles.InsertIgnoreDuplicate(ctx, article)
	if err != nil {
		w.logger.Error("primary store insert failed", zap.String("url", in.URL), zap.Error(err))
		return WriteOutcome{}, err
	}
	if !created {
		duplicatesSkipped.Inc()
		w.logger.Debug("article already present, fan-out skipped", zap.String("url", in.URL))
		return WriteOutcome{Created: false}, nil
	}
	articlesIngested.Inc()

	log := w.logger.With(zap.Uint("article_id", article.ID), zap.String("url", in.URL))

	if err := w.search.Index(ctx, models.SearchDocument{
		ID:        article.ID,
		Title:     in.Title,
		Writer:    in.Writer,
		Category:  payload.Category,
		WriteDate: in.WriteDate,
		Content:   in.Content,
		URL:       in.URL,
		Keywords:  payload.Keywords,
	}); err != nil {
		sinkFailures.WithLabelValues("search").Inc()
		log.Error("search index write failed", zap.Error(err))
	}

	day := w.now().Format("2006-01-02")
	path, err := w.archive.Append(day, models.ArchiveRecord{
		Title:     in.Title,
		Writer:    in.Writer,
		WriteDate: in.WriteDate,
		Category:  payload.Category,
		Content:   in.Content,
		URL:       in.URL,
		Keywords:  payload.Keywords,
	})
	if err != nil {
		sinkFailures.WithLabelValues("archive").Inc()
		log.Error("daily archive append failed", zap.String("day", day), zap.Error(err))
	} else if err := w.cold.CopyDayArchive(ctx, day, path); err != nil {
		// Cold storage mirrors the day file, so it only runs once the
		// local append has succeeded.
		sinkFailures.WithLabelValues("cold").Inc()
		log.Error("cold storage copy failed", zap.String("day", day), zap.Error(err))
	}

	log.Info("article ingested", zap.String("category", payload.Category))
	return WriteOutcome{Created: true, ArticleID: article.ID}, nil
}
