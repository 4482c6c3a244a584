package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/fjod/food-orders/internal/domain"
	"github.com/fjod/food-orders/internal/repository"
)

const maxOrderNumberAttempts = 3

// CartLedger is the part of the cart service checkout depends on.
type CartLedger interface {
	LoadCart(ctx context.Context, sessionID string) (*domain.Cart, error)
	ClearCart(ctx context.Context, sessionID string) error
}

type CheckoutService struct {
	carts   CartLedger
	orders  repository.OrderRepository
	pricing domain.PricingConfig
	now     func() time.Time
	logger  zerolog.Logger
}

func NewCheckoutService(
	carts CartLedger,
	orders repository.OrderRepository,
	pricing domain.PricingConfig,
	logger zerolog.Logger,
) *CheckoutService {
	return &CheckoutService{
		carts:   carts,
		orders:  orders,
		pricing: pricing,
		now:     func() time.Time { return time.Now().UTC() },
		logger:  logger.With().Str("component", "checkout_service").Logger(),
	}
}

// PlaceOrder turns the session's cart into a pending order. Nothing is
// written and the cart is left as is when any precondition fails.
func (s *CheckoutService) PlaceOrder(
	ctx context.Context,
	identity *domain.Identity,
	sessionID string,
	in domain.PlaceOrderInput,
) (*domain.Order, error) {
	if !identity.IsAuthenticated() {
		return nil, domain.ErrAuthenticationRequired
	}

	if in.IdempotencyKey != "" {
		existing, err := s.orders.GetOrderByIdempotencyKey(ctx, identity.Subject, in.IdempotencyKey)
		if err == nil {
			s.logger.Info().
				Str("idempotency_key", in.IdempotencyKey).
				Str("order_id", existing.ID.String()).
				Msg("duplicate checkout request, returning existing order")
			return existing, nil
		}
		if !errors.Is(err, repository.ErrOrderNotFound) {
			return nil, fmt.Errorf("failed to check idempotency: %w", err)
		}
	}

	cart, err := s.carts.LoadCart(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	order, err := s.createOrder(ctx, identity.Subject, sessionID, cart, in)
	if errors.Is(err, repository.ErrDuplicateIdempotencyKey) {
		// a concurrent request with the same key won the insert
		return s.orders.GetOrderByIdempotencyKey(ctx, identity.Subject, in.IdempotencyKey)
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("order_id", order.ID.String()).
		Str("order_number", order.OrderNumber).
		Str("customer_id", order.CustomerID).
		Str("total", order.Pricing.Total.StringFixed(2)).
		Msg("order placed")

	// The order is committed; a failed clear is retried by the order.placed consumer.
	if err := s.carts.ClearCart(ctx, sessionID); err != nil {
		s.logger.Warn().Err(err).Str("session_id", sessionID).Msg("failed to clear cart after checkout")
	}

	return order, nil
}

func (s *CheckoutService) createOrder(
	ctx context.Context,
	customerID, sessionID string,
	cart *domain.Cart,
	in domain.PlaceOrderInput,
) (*domain.Order, error) {
	var lastErr error
	for attempt := 0; attempt < maxOrderNumberAttempts; attempt++ {
		order, err := domain.NewOrder(customerID, cart, in, s.pricing, s.now())
		if err != nil {
			return nil, err
		}

		event, err := repository.NewOutboxEvent(order.ID, domain.EventOrderPlaced, domain.NewOrderPlacedEvent(order, sessionID))
		if err != nil {
			return nil, err
		}

		lastErr = s.orders.CreateOrder(ctx, order, event)
		if lastErr == nil {
			return order, nil
		}
		if !errors.Is(lastErr, repository.ErrDuplicateOrderNumber) {
			return nil, lastErr
		}
		s.logger.Warn().Str("order_number", order.OrderNumber).Msg("order number collision, regenerating")
	}
	return nil, lastErr
}
