package poller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/fjod/food-orders/internal/domain"
)

const DefaultGroupID = "cart-cleaner"

type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// CartClearer empties the ledger of a session unless it changed after
// placedAt. Clearing an absent cart is not an error.
type CartClearer interface {
	ClearCartPlacedBefore(ctx context.Context, sessionID string, placedAt time.Time) (bool, error)
}

func NewKafkaReader(topic, groupID string, brokers ...string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MaxBytes: 10e6,
	})
}

// Poller consumes order events and clears the cart each placed order was
// built from. Checkout clears the cart inline as well; this covers the case
// where that best-effort clear failed.
type Poller struct {
	reader  MessageReader
	carts   CartClearer
	backoff time.Duration
	logger  zerolog.Logger
}

func NewPoller(reader MessageReader, carts CartClearer, logger zerolog.Logger) *Poller {
	return &Poller{
		reader:  reader,
		carts:   carts,
		backoff: time.Second,
		logger:  logger.With().Str("component", "order_consumer").Logger(),
	}
}

func (p *Poller) Run(ctx context.Context) {
	for ctx.Err() == nil {
		msg, err := p.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			p.logger.Error().Err(err).Msg("failed to read message")
			select {
			case <-time.After(p.backoff):
			case <-ctx.Done():
				return
			}
			continue
		}

		if err := p.handleMessage(ctx, msg); err != nil {
			p.logger.Error().Err(err).
				Str("key", string(msg.Key)).
				Int64("offset", msg.Offset).
				Msg("failed to handle message")
		}
	}
}

func (p *Poller) Close() error {
	return p.reader.Close()
}

func (p *Poller) handleMessage(ctx context.Context, msg kafka.Message) error {
	if eventType(msg) != domain.EventOrderPlaced {
		return nil
	}

	var event domain.OrderPlacedEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return fmt.Errorf("unmarshal order placed event: %w", err)
	}
	if event.SessionID == "" {
		return nil
	}

	cleared, err := p.carts.ClearCartPlacedBefore(ctx, event.SessionID, event.PlacedAt)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("clear cart %s: %w", event.SessionID, err)
	}

	if cleared {
		p.logger.Info().
			Str("order_id", event.OrderID).
			Str("session_id", event.SessionID).
			Msg("cart cleared after order placement")
	}
	return nil
}

func eventType(msg kafka.Message) string {
	for _, h := range msg.Headers {
		if h.Key == "event_type" {
			return string(h.Value)
		}
	}
	return ""
}
