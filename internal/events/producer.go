// Package events publishes complaint lifecycle events to a Kafka topic.
package events

import (
	"complaintbot/backend/internal/models"
	"context"
	"encoding/json"
	"log"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
)

// Publisher is the event sink used by the notification dispatcher.
type Publisher interface {
	Publish(ctx context.Context, event models.FeedEvent) error
	Close() error
}

// Producer writes events to Kafka. With no brokers or no topic it is a no-op.
type Producer struct {
	writer *kafka.Writer
	topic  string
}

func NewProducer(brokers []string, topic string) *Producer {
	if len(brokers) == 0 || topic == "" {
		return &Producer{}
	}
	return &Producer{
		topic: topic,
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			BatchTimeout:           10 * time.Millisecond,
			AllowAutoTopicCreation: true,
		},
	}
}

// Enabled reports whether the producer has a writer.
func (p *Producer) Enabled() bool { return p.writer != nil }

// Publish sends the event keyed by complaint id, so all events of one complaint
// land on the same partition in order.
func (p *Producer) Publish(ctx context.Context, event models.FeedEvent) error {
	if p.writer == nil {
		return nil
	}
	msg, err := Message(event)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, msg)
}

func (p *Producer) Close() error {
	if p.writer == nil {
		return nil
	}
	return p.writer.Close()
}

// Message encodes an event as {"event": ..., "status": ..., "at": ..., <record fields>}.
func Message(event models.FeedEvent) (kafka.Message, error) {
	payload := map[string]any{}
	if event.Complaint != nil {
		raw, err := json.Marshal(event.Complaint)
		if err != nil {
			return kafka.Message{}, err
		}
		if err := json.Unmarshal(raw, &payload); err != nil {
			return kafka.Message{}, err
		}
	}
	payload["event"] = string(event.Type)
	payload["at"] = event.At.UTC().Format(time.RFC3339)
	if event.Status != "" {
		payload["status"] = string(event.Status)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		log.Printf("ERROR: kafka: marshal %s event: %v", event.Type, err)
		return kafka.Message{}, err
	}
	msg := kafka.Message{Value: body, Time: event.At}
	if event.Complaint != nil {
		msg.Key = []byte(strconv.FormatInt(event.Complaint.ID, 10))
	}
	return msg, nil
}
