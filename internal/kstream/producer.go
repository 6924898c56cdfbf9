package kstream

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"campaign-engine/internal/logger"
	"campaign-engine/internal/model"
)

// kafkaWriter constructs a Kafka producer using segmentio/kafka-go library.
// kafka.Writer provides async message publishing with automatic batching and retries.
// Async writes never return delivery errors, so they are logged from Completion.
func kafkaWriter(broker, topic string) *kafka.Writer {
	log := logger.Get("kstream")
	return &kafka.Writer{
		Addr:         kafka.TCP(broker),   // segmentio/kafka-go: TCP address for Kafka broker
		Topic:        topic,               // Target Kafka topic name
		Balancer:     &kafka.LeastBytes{}, // segmentio/kafka-go: Partition selection strategy
		RequiredAcks: kafka.RequireOne,    // segmentio/kafka-go: Wait for leader ack only
		Async:        true,                // segmentio/kafka-go: Non-blocking writes
		BatchBytes:   10485760,            // segmentio/kafka-go: Max batch size (10MB)
		Completion:   deliveryLogger(log, topic),
	}
}

// Producer publishes CampaignsGenerated events to the generated topic.
type Producer struct {
	w *kafka.Writer
}

func NewProducer(broker, topic string) *Producer {
	return &Producer{w: kafkaWriter(broker, topic)}
}

// PublishCampaignsGenerated keys messages by request ID so retries of the same
// request land on one partition.
func (p *Producer) PublishCampaignsGenerated(ctx context.Context, evt model.CampaignsGenerated) error {
	msg, err := generatedMessage(evt)
	if err != nil {
		return err
	}
	// segmentio/kafka-go: WriteMessages publishes message to Kafka broker asynchronously.
	return p.w.WriteMessages(ctx, msg)
}

func (p *Producer) Close() error {
	return p.w.Close()
}

// deliveryLogger reports failed async deliveries.
func deliveryLogger(log *logrus.Entry, topic string) func([]kafka.Message, error) {
	return func(msgs []kafka.Message, err error) {
		if err == nil {
			return
		}
		keys := make([]string, 0, len(msgs))
		for _, m := range msgs {
			keys = append(keys, string(m.Key))
		}
		log.WithError(err).WithFields(logrus.Fields{
			"topic":    topic,
			"messages": len(msgs),
			"keys":     keys,
		}).Error("Campaign producer: delivery failed")
	}
}

func generatedMessage(evt model.CampaignsGenerated) (kafka.Message, error) {
	data, err := json.Marshal(evt)
	if err != nil {
		return kafka.Message{}, err
	}
	// segmentio/kafka-go: Key is used for partitioning (same key, same partition).
	return kafka.Message{
		Key:   []byte(evt.RequestID),
		Value: data,
		Time:  time.Now(),
	}, nil
}
