package pipeline

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"newsflow/models"
	"newsflow/services"
)

// Enricher produces structured metadata for raw article text.
type Enricher interface {
	Enrich(ctx context.Context, rawText string) (models.EnrichedPayload, error)
}

// Writer persists an enriched article and fans it out to the sinks.
type Writer interface {
	Write(ctx context.Context, in models.InboundArticle, payload models.EnrichedPayload) (services.WriteOutcome, error)
}

// Consumer processes one inbound news message: decode, enrich, write.
// Returning an error nacks the message so the broker redelivers it; the
// consumer itself never retries. Redelivery is safe end-to-end because the
// primary-store upsert gates all fan-out.
type Consumer struct {
	enricher Enricher
	writer   Writer
	logger   *zap.Logger
}

// NewConsumer wires the consumer.
func NewConsumer(enricher Enricher, writer Writer, logger *zap.Logger) *Consumer {
	return &Consumer{enricher: enricher, writer: writer, logger: logger}
}

// Handle is the router handler for the news topic.
func (c *Consumer) Handle(msg *message.Message) error {
	var in models.InboundArticle
	if err := json.Unmarshal(msg.Payload, &in); err != nil {
		// Undecodable payloads can never succeed; redelivering them
		// forever would stall the consumer. Drop with an error log.
		c.logger.Error("malformed inbound message dropped",
			zap.String("message_uuid", msg.UUID), zap.Error(err))
		return nil
	}
	if in.URL == "" {
		c.logger.Error("inbound message without url dropped", zap.String("message_uuid", msg.UUID))
		return nil
	}

	payload, err := c.enricher.Enrich(msg.Context(), in.Content)
	if err != nil {
		// No partial write: the message stays unacked and the transport
		// redelivers it.
		c.logger.Warn("enrichment failed, message will be redelivered",
			zap.String("url", in.URL), zap.Error(err))
		return err
	}

	outcome, err := c.writer.Write(msg.Context(), in, payload)
	if err != nil {
		// Primary-store failure is the only ingestion failure that
		// propagates.
		return err
	}
	if !outcome.Created {
		c.logger.Debug("redelivered article, primary store unchanged", zap.String("url", in.URL))
	}
	return nil
}

// NewRouter builds the watermill router with the ingest handler attached.
func NewRouter(consumer *Consumer, subscriber message.Subscriber, topic string, wmLogger watermill.LoggerAdapter) (*message.Router, error) {
	router, err := message.NewRouter(message.RouterConfig{}, wmLogger)
	if err != nil {
		return nil, err
	}
	router.AddMiddleware(middleware.Recoverer)
	router.AddNoPublisherHandler("news-ingest", topic, subscriber, consumer.Handle)
	return router, nil
}
