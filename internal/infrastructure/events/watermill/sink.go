package watermillsink

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/arkade-os/kittyd/internal/core/domain"
	log "github.com/sirupsen/logrus"
)

const (
	eventTypeMetadataKey = "event_type"
	eventsBuffer         = 100
)

// EventSink publishes ledger events on a watermill topic. Consumers attach
// with Subscribe.
type EventSink struct {
	pubsub *gochannel.GoChannel
	topic  string
}

func NewEventSink(topic string) *EventSink {
	if topic == "" {
		topic = domain.LedgerTopic
	}
	pubsub := gochannel.NewGoChannel(
		gochannel.Config{
			OutputChannelBuffer: eventsBuffer,
			// Keeps the delivery order equal to the publishing order.
			BlockPublishUntilSubscriberAck: true,
		},
		watermill.NewStdLoggerWithOut(log.StandardLogger().Writer(), false, false),
	)
	return &EventSink{pubsub, topic}
}

func (s *EventSink) Publish(_ context.Context, events ...domain.Event) error {
	messages := make([]*message.Message, 0, len(events))
	for _, event := range events {
		payload, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("failed to serialize %s event: %w", event.GetType(), err)
		}
		msg := message.NewMessage(watermill.NewUUID(), payload)
		msg.Metadata.Set(eventTypeMetadataKey, event.GetType().String())
		messages = append(messages, msg)
	}
	return s.pubsub.Publish(s.topic, messages...)
}

// Subscribe returns the events published from now on. The channel is closed
// when ctx is done or the sink is closed.
func (s *EventSink) Subscribe(ctx context.Context) (<-chan domain.Event, error) {
	messages, err := s.pubsub.Subscribe(ctx, s.topic)
	if err != nil {
		return nil, err
	}

	events := make(chan domain.Event, eventsBuffer)
	go func() {
		defer close(events)
		for msg := range messages {
			event, err := deserializeEvent(msg)
			msg.Ack()
			if err != nil {
				log.WithError(err).Warnf("failed to deserialize event: %s", string(msg.Payload))
				continue
			}
			select {
			case events <- event:
			case <-ctx.Done():
				return
			}
		}
	}()
	return events, nil
}

func (s *EventSink) Close() {
	//nolint:errcheck
	s.pubsub.Close()
}

func deserializeEvent(msg *message.Message) (domain.Event, error) {
	var event domain.Event
	switch eventType := msg.Metadata.Get(eventTypeMetadataKey); eventType {
	case domain.EventTypeAssetCreated.String():
		var e domain.AssetCreated
		if err := json.Unmarshal(msg.Payload, &e); err != nil {
			return nil, err
		}
		event = e
	case domain.EventTypePriceSet.String():
		var e domain.PriceSet
		if err := json.Unmarshal(msg.Payload, &e); err != nil {
			return nil, err
		}
		event = e
	case domain.EventTypeAssetTransferred.String():
		var e domain.AssetTransferred
		if err := json.Unmarshal(msg.Payload, &e); err != nil {
			return nil, err
		}
		event = e
	case domain.EventTypeAssetBought.String():
		var e domain.AssetBought
		if err := json.Unmarshal(msg.Payload, &e); err != nil {
			return nil, err
		}
		event = e
	default:
		return nil, fmt.Errorf("unknown event type %q", eventType)
	}
	return event, nil
}
