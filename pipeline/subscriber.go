package pipeline

import (
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	natsgo "github.com/nats-io/nats.go"

	"newsflow/config"
)

// NewNATSSubscriber creates a durable JetStream subscriber for the news
// topic. Messages are acked only after the handler returns nil, so a crash
// mid-pipeline leads to redelivery instead of loss.
func NewNATSSubscriber(cfg *config.Config, wmLogger watermill.LoggerAdapter) (message.Subscriber, error) {
	natsOpts := []natsgo.Option{
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(-1),
		natsgo.ReconnectWait(2 * time.Second),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			wmLogger.Info("NATS reconnected", watermill.LogFields{"url": nc.ConnectedUrl()})
		}),
	}
	subOpts := []natsgo.SubOpt{
		natsgo.AckWait(cfg.AckWait()),
		natsgo.BindStream(cfg.NewsStream),
	}

	sub, err := wmNats.NewSubscriber(wmNats.SubscriberConfig{
		URL:              cfg.NATSURL,
		QueueGroupPrefix: cfg.ConsumerGroup,
		AckWaitTimeout:   cfg.AckWait(),
		NatsOptions:      natsOpts,
		Unmarshaler:      &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			AutoProvision:    false,
			AckAsync:         false,
			SubscribeOptions: subOpts,
			DurablePrefix:    cfg.ConsumerGroup,
		},
	}, wmLogger)
	if err != nil {
		return nil, fmt.Errorf("create news subscriber: %w", err)
	}
	return sub, nil
}
