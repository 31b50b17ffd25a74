package listener

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/fekuna/omnipos-inventory-service/internal/inventory"
	"github.com/fekuna/omnipos-inventory-service/internal/inventory/dto"
	"github.com/fekuna/omnipos-inventory-service/internal/model"
	"github.com/fekuna/omnipos-inventory-service/internal/pkg/logger"
)

const EventIngredientUsed = "IngredientUsed"

// MessageReader is satisfied by *kafka.Reader.
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

type Config struct {
	Brokers []string
	Topic   string
	GroupID string
}

func NewKafkaReader(cfg Config) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		Topic:    cfg.Topic,
		GroupID:  cfg.GroupID,
		MinBytes: 1,
		MaxBytes: 1 << 20,
	})
}

type UsageListener struct {
	reader     MessageReader
	uc         inventory.UseCase
	logger     logger.ZapLogger
	retryDelay time.Duration
}

func NewUsageListener(reader MessageReader, uc inventory.UseCase, logger logger.ZapLogger) *UsageListener {
	return &UsageListener{
		reader:     reader,
		uc:         uc,
		logger:     logger,
		retryDelay: time.Second,
	}
}

// Start blocks until ctx is cancelled.
func (l *UsageListener) Start(ctx context.Context) {
	l.logger.Info("Starting usage Kafka listener")
	for {
		select {
		case <-ctx.Done():
			l.logger.Info("Stopping usage Kafka listener")
			return
		default:
			msg, err := l.reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				l.logger.Error("Failed to read kafka message", zap.Error(err))
				select {
				case <-ctx.Done():
					return
				case <-time.After(l.retryDelay):
				}
				continue
			}
			l.processMessage(ctx, msg.Value)
		}
	}
}

type UsageEvent struct {
	EventID   string       `json:"event_id"`
	EventType string       `json:"event_type"`
	Payload   UsagePayload `json:"payload"`
	Timestamp time.Time    `json:"timestamp"`
}

type UsagePayload struct {
	ItemID string `json:"item_id"`
	Amount int    `json:"amount"`
	Note   string `json:"note"`
}

func (l *UsageListener) processMessage(ctx context.Context, value []byte) {
	var event UsageEvent
	if err := json.Unmarshal(value, &event); err != nil {
		l.logger.Error("Failed to unmarshal event", zap.Error(err))
		return
	}

	if event.EventType != EventIngredientUsed {
		return
	}

	note := event.Payload.Note
	if note == "" {
		note = "Kitchen usage " + event.EventID
	}

	// The event id is the transaction reference, so a redelivered event is
	// rejected by the store instead of deducting stock twice.
	_, _, err := l.uc.ApplyTransaction(ctx, dto.StockChange{
		ItemID:    event.Payload.ItemID,
		Type:      model.TransactionUsage,
		Amount:    event.Payload.Amount,
		Note:      note,
		Reference: event.EventID,
	})
	if errors.Is(err, model.ErrDuplicateChange) {
		l.logger.Info("Usage event already applied", zap.String("event_id", event.EventID))
		return
	}
	if err != nil {
		l.logger.Error("Failed to record usage event",
			zap.String("event_id", event.EventID),
			zap.String("item_id", event.Payload.ItemID),
			zap.Int("amount", event.Payload.Amount),
			zap.Error(err),
		)
	}
}
