package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/IBM/sarama"

	"github.com/Eliezelg/villasaas-sub004/internal/app/dto"
)

type MessageHandler interface {
	Handle(ctx context.Context, msg *sarama.ConsumerMessage) error
}

type Consumer struct {
	group   sarama.ConsumerGroup
	handler MessageHandler
	logger  *slog.Logger
}

func NewConsumer(brokers []string, groupID string, handler MessageHandler, logger *slog.Logger) (*Consumer, error) {
	cfg := sarama.NewConfig()
	cfg.Version = sarama.V2_5_0_0
	cfg.Consumer.Offsets.Initial = sarama.OffsetOldest
	g, err := sarama.NewConsumerGroup(brokers, groupID, cfg)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Consumer{group: g, handler: handler, logger: logger}, nil
}

// Run consumes until ctx ends, rejoining the group after each rebalance.
func (c *Consumer) Run(ctx context.Context, topics []string) error {
	for {
		if err := c.group.Consume(ctx, topics, consumerGroupHandler{handler: c.handler, logger: c.logger}); err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

func (c *Consumer) Close() error {
	return c.group.Close()
}

type consumerGroupHandler struct {
	handler MessageHandler
	logger  *slog.Logger
}

func (h consumerGroupHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h consumerGroupHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

// ConsumeClaim stops at the first message the handler rejects. Returning ends
// the group session, so Run rejoins and the partition resumes from the last
// marked offset with the failed message.
func (h consumerGroupHandler) ConsumeClaim(sess sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for message := range claim.Messages() {
		if err := h.handler.Handle(sess.Context(), message); err != nil {
			h.logger.WarnContext(sess.Context(), "event handling failed",
				"topic", message.Topic,
				"partition", message.Partition,
				"offset", message.Offset,
				"error", err,
			)
			return fmt.Errorf("kafka: %s/%d@%d: %w", message.Topic, message.Partition, message.Offset, err)
		}
		sess.MarkMessage(message, "")
	}
	return nil
}

// EventHandler receives decoded CloudEvents.
type EventHandler interface {
	Handle(ctx context.Context, ev dto.IntegrationEvent) error
}

// CloudEventDecoder turns the structured CloudEvents written by the outbox
// worker back into integration events.
type CloudEventDecoder struct {
	Next EventHandler
}

func (d CloudEventDecoder) Handle(ctx context.Context, msg *sarama.ConsumerMessage) error {
	ev, err := DecodeCloudEvent(msg.Value)
	if err != nil {
		return err
	}
	return d.Next.Handle(ctx, ev)
}

func DecodeCloudEvent(payload []byte) (dto.IntegrationEvent, error) {
	var envelope struct {
		ID       string          `json:"id"`
		Type     string          `json:"type"`
		TenantID string          `json:"tenantid"`
		Data     json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return dto.IntegrationEvent{}, err
	}
	return dto.IntegrationEvent{ID: envelope.ID, Type: envelope.Type, TenantID: envelope.TenantID, Data: envelope.Data}, nil
}
