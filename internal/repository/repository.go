package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/fjod/food-orders/internal/domain"
)

var (
	ErrOrderNotFound           = fmt.Errorf("order %w", domain.ErrNotFound)
	ErrDuplicateIdempotencyKey = errors.New("order for this idempotency key already exists")
	ErrDuplicateOrderNumber    = errors.New("order number already taken")
	// ErrStatusConflict means the status changed between read and write.
	ErrStatusConflict = errors.New("order status changed concurrently")
)

// CartRepository is the durable store behind the cart ledger.
type CartRepository interface {
	GetCart(ctx context.Context, sessionID string) (*domain.Cart, error)
	SaveCart(ctx context.Context, cart *domain.Cart) error
	DeleteCart(ctx context.Context, sessionID string) error
}

type OrderFilter struct {
	CustomerID string
	Status     domain.OrderStatus
	Limit      int
	Offset     int
}

type OrderRepository interface {
	// CreateOrder stores the order and its outbox event atomically.
	CreateOrder(ctx context.Context, order *domain.Order, event OutboxEvent) error
	GetOrderByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	GetOrderByIdempotencyKey(ctx context.Context, customerID, key string) (*domain.Order, error)
	// ListOrders returns one page, newest first, plus the total number of matches.
	ListOrders(ctx context.Context, filter OrderFilter) ([]*domain.Order, int, error)
	// UpdateStatus persists order.Status only if the stored status is still from.
	UpdateStatus(ctx context.Context, order *domain.Order, from domain.OrderStatus, event OutboxEvent) error
	CountByStatus(ctx context.Context) (map[domain.OrderStatus]int, error)
}

type OutboxRepository interface {
	GetUnprocessedEvents(ctx context.Context, limit int) ([]*OutboxEvent, error)
	MarkEventAsProcessed(ctx context.Context, id int64) error
}

type OutboxEvent struct {
	ID          int64
	AggregateID uuid.UUID
	EventType   string
	Payload     []byte
	CreatedAt   time.Time
}

func NewOutboxEvent(aggregateID uuid.UUID, eventType string, payload any) (OutboxEvent, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return OutboxEvent{}, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return OutboxEvent{
		AggregateID: aggregateID,
		EventType:   eventType,
		Payload:     data,
	}, nil
}
