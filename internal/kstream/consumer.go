package kstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"campaign-engine/internal/logger"
	"campaign-engine/internal/model"
	"campaign-engine/internal/validation"
)

// KafkaReader creates a Kafka consumer using segmentio/kafka-go library.
// kafka.Reader provides consumer group functionality with automatic offset management.
func KafkaReader(broker, topic, groupID string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:        []string{broker}, // segmentio/kafka-go: Kafka broker addresses
		Topic:          topic,            // segmentio/kafka-go: Topic to consume from
		GroupID:        groupID,          // segmentio/kafka-go: Consumer group ID (enables load balancing)
		MinBytes:       1,                // segmentio/kafka-go: requests are small, do not wait to fill a batch
		MaxBytes:       10485760,         // segmentio/kafka-go: Max bytes per fetch (10MB)
		CommitInterval: time.Second,      // segmentio/kafka-go: Auto-commit interval for offsets
	})
}

// Runner executes one orchestration request. *orchestrator.Controller satisfies it.
type Runner interface {
	Run(ctx context.Context, req *model.OrchestrationRequest) *model.OrchestrationResult
}

// MessageReader is the subset of *kafka.Reader the consumer needs.
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
}

// DecodeRequest parses and validates a request message. The message key is
// used as request ID when the body carries none.
func DecodeRequest(msg kafka.Message) (*model.OrchestrationRequest, error) {
	var req model.OrchestrationRequest
	if err := json.Unmarshal(msg.Value, &req); err != nil {
		return nil, fmt.Errorf("unmarshal request: %w", err)
	}
	if problems := validation.Struct(&req); len(problems) > 0 {
		return nil, fmt.Errorf("invalid request: %v", problems)
	}
	if req.RequestID == "" && len(msg.Key) > 0 {
		req.RequestID = string(msg.Key)
	}
	return &req, nil
}

// Deduper claims request IDs. *cache.RequestLog satisfies it.
type Deduper interface {
	FirstSeen(ctx context.Context, requestID string) bool
}

// ConsumeRequests reads orchestration requests until ctx is cancelled. Each
// request is run to completion; the runner publishes the result. A nil dedup
// runs every message.
func ConsumeRequests(ctx context.Context, reader MessageReader, runner Runner, dedup Deduper) error {
	log := logger.Get("kstream")
	log.Info("Campaign consumer: consuming requests")

	for {
		// segmentio/kafka-go: ReadMessage blocks until a message is available from Kafka topic.
		// Automatically handles consumer group coordination and offset commits.
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return nil
			}
			return err
		}

		req, err := DecodeRequest(msg)
		if err != nil {
			log.WithError(err).WithField("offset", msg.Offset).Warn("Campaign consumer: skipping message")
			continue
		}

		if dedup != nil && !dedup.FirstSeen(ctx, req.RequestID) {
			log.WithField("request_id", req.RequestID).Info("Campaign consumer: duplicate request skipped")
			continue
		}

		res := runner.Run(ctx, req)
		log.WithField("request_id", req.RequestID).
			WithField("campaigns", res.OrchestrationSummary.CampaignCount).
			Info("Campaign consumer: request processed")
	}
}
