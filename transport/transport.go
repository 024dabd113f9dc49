// Package transport provides a publish/subscribe bus that can carry
// encoded effects and events as bytes, for moving them across a
// process boundary to a performer running elsewhere. The daemon does
// not use it: "serve" performs each workflow's effects directly in
// that workflow's own goroutine through adapter.Registry.
package transport

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-nats/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	stan "github.com/nats-io/stan.go"

	"github.com/remindctl/remind/config"
)

// Bus moves opaque byte payloads between publishers and subscribers
// on named topics.
type Bus interface {
	Publish(topic string, payload []byte) error
	Subscribe(ctx context.Context, topic string, handler func(payload []byte)) error
	Close() error
}

// New builds a Bus from daemon config. Driver "memory" (default) is
// an in-process Watermill gochannel bus; "nats" uses NATS Streaming.
func New(cfg *config.TransportConfig) (Bus, error) {
	if cfg == nil || cfg.Driver == "" || cfg.Driver == "memory" {
		return newInMemBus(), nil
	}
	switch cfg.Driver {
	case "nats":
		if cfg.URL == "" {
			return nil, fmt.Errorf("nats transport driver requires url")
		}
		return newNATSBus("remind", "remind-client", cfg.URL)
	default:
		return nil, fmt.Errorf("unsupported transport driver: %s", cfg.Driver)
	}
}

type watermillBus struct {
	publisher  message.Publisher
	subscriber message.Subscriber
}

func newInMemBus() *watermillBus {
	logger := watermill.NewStdLogger(false, false)
	ps := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 256}, logger)
	return &watermillBus{publisher: ps, subscriber: ps}
}

func newNATSBus(clusterID, clientID, url string) (*watermillBus, error) {
	logger := watermill.NewStdLogger(false, false)

	pub, err := nats.NewStreamingPublisher(nats.StreamingPublisherConfig{
		ClusterID:   clusterID,
		ClientID:    clientID,
		StanOptions: []stan.Option{stan.NatsURL(url)},
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create nats publisher: %w", err)
	}

	sub, err := nats.NewStreamingSubscriber(nats.StreamingSubscriberConfig{
		ClusterID:      clusterID,
		ClientID:       clientID + "-sub",
		StanOptions:    []stan.Option{stan.NatsURL(url)},
		CloseTimeout:   30 * time.Second,
		AckWaitTimeout: 30 * time.Second,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create nats subscriber: %w", err)
	}

	return &watermillBus{publisher: pub, subscriber: sub}, nil
}

func (b *watermillBus) Publish(topic string, payload []byte) error {
	msg := message.NewMessage(watermill.NewUUID(), payload)
	return b.publisher.Publish(topic, msg)
}

func (b *watermillBus) Subscribe(ctx context.Context, topic string, handler func(payload []byte)) error {
	ch, err := b.subscriber.Subscribe(ctx, topic)
	if err != nil {
		return err
	}
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				handler(msg.Payload)
				msg.Ack()
			}
		}
	}()
	return nil
}

func (b *watermillBus) Close() error {
	if err := b.publisher.Close(); err != nil {
		return err
	}
	return b.subscriber.Close()
}
