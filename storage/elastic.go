package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"

	elasticsearch "github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/goccy/go-json"

	"newsflow/config"
	"newsflow/models"
)

// SearchIndex writes article documents into Elasticsearch. It is a
// best-effort projection of the primary store: a lost entry is recoverable
// by reindexing, so callers log failures instead of propagating them.
type SearchIndex struct {
	client *elasticsearch.Client
	index  string
}

// NewSearchIndex creates the index client.
func NewSearchIndex(cfg *config.Config) (*SearchIndex, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{cfg.ElasticURL},
	})
	if err != nil {
		return nil, fmt.Errorf("create elasticsearch client: %w", err)
	}
	return &SearchIndex{client: client, index: cfg.ElasticIndex}, nil
}

// Index writes one document keyed by the primary store's article id.
// Indexing the same id twice replaces the document.
func (s *SearchIndex) Index(ctx context.Context, doc models.SearchDocument) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal search document: %w", err)
	}

	req := esapi.IndexRequest{
		Index:      s.index,
		DocumentID: strconv.FormatUint(uint64(doc.ID), 10),
		Body:       bytes.NewReader(body),
	}
	res, err := req.Do(ctx, s.client)
	if err != nil {
		return fmt.Errorf("index document %d: %w", doc.ID, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		msg, _ := io.ReadAll(res.Body)
		return fmt.Errorf("index document %d: %s: %s", doc.ID, res.Status(), msg)
	}
	return nil
}
