package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/fjod/food-orders/internal/domain"
	"github.com/fjod/food-orders/internal/repository"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100

	maxStatusAttempts = 3
)

type PageRequest struct {
	Page  int
	Limit int
}

func (p PageRequest) normalize() PageRequest {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = DefaultPageSize
	}
	if p.Limit > MaxPageSize {
		p.Limit = MaxPageSize
	}
	return p
}

type OrderPage struct {
	Orders     []*domain.Order
	Page       int
	Limit      int
	TotalPages int
	Total      int
}

type OrderService struct {
	orders repository.OrderRepository
	policy domain.TransitionPolicy
	now    func() time.Time
	logger zerolog.Logger
}

func NewOrderService(orders repository.OrderRepository, policy domain.TransitionPolicy, logger zerolog.Logger) *OrderService {
	return &OrderService{
		orders: orders,
		policy: policy,
		now:    func() time.Time { return time.Now().UTC() },
		logger: logger.With().Str("component", "order_service").Logger(),
	}
}

// GetOrder returns the order to its owner or an admin. Anyone else sees
// ErrNotFound so order ids cannot be probed.
func (s *OrderService) GetOrder(ctx context.Context, identity *domain.Identity, id uuid.UUID) (*domain.Order, error) {
	if !identity.IsAuthenticated() {
		return nil, domain.ErrAuthenticationRequired
	}
	order, err := s.orders.GetOrderByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !identity.IsAdmin() && !order.BelongsTo(identity.Subject) {
		return nil, repository.ErrOrderNotFound
	}
	return order, nil
}

func (s *OrderService) ListCustomerOrders(ctx context.Context, identity *domain.Identity, page PageRequest) (*OrderPage, error) {
	if !identity.IsAuthenticated() {
		return nil, domain.ErrAuthenticationRequired
	}
	return s.list(ctx, repository.OrderFilter{CustomerID: identity.Subject}, page)
}

// ListAllOrders is the admin pull interface, optionally narrowed to one status.
func (s *OrderService) ListAllOrders(ctx context.Context, identity *domain.Identity, page PageRequest, status string) (*OrderPage, error) {
	if err := requireAdmin(identity); err != nil {
		return nil, err
	}
	filter := repository.OrderFilter{}
	if status != "" {
		parsed, err := domain.ParseOrderStatus(status)
		if err != nil {
			return nil, domain.NewValidationError("status", err.Error())
		}
		filter.Status = parsed
	}
	return s.list(ctx, filter, page)
}

// UpdateStatus applies an admin transition. The write is conditional on the
// status the guard was evaluated against; when another writer got there first
// the order is re-read and the guard evaluated again.
func (s *OrderService) UpdateStatus(ctx context.Context, identity *domain.Identity, id uuid.UUID, target string) (*domain.Order, error) {
	if err := requireAdmin(identity); err != nil {
		return nil, err
	}
	to := domain.OrderStatus(target)

	for attempt := 1; attempt <= maxStatusAttempts; attempt++ {
		order, err := s.orders.GetOrderByID(ctx, id)
		if err != nil {
			return nil, err
		}

		from := order.Status
		if err := order.ApplyTransition(to, s.policy, s.now()); err != nil {
			return nil, err
		}

		event, err := repository.NewOutboxEvent(order.ID, domain.EventOrderStatusChanged,
			domain.NewOrderStatusChangedEvent(order, from, identity.Subject))
		if err != nil {
			return nil, err
		}

		err = s.orders.UpdateStatus(ctx, order, from, event)
		if err == nil {
			s.logger.Info().
				Str("order_id", order.ID.String()).
				Stringer("from", from).
				Stringer("to", order.Status).
				Str("admin", identity.Subject).
				Msg("order status updated")
			return order, nil
		}
		if !errors.Is(err, repository.ErrStatusConflict) {
			return nil, err
		}
		s.logger.Debug().Str("order_id", id.String()).Int("attempt", attempt).Msg("status changed concurrently, retrying")
	}

	return nil, fmt.Errorf("update status of order %s: %w", id, repository.ErrStatusConflict)
}

func (s *OrderService) StatusCounts(ctx context.Context, identity *domain.Identity) (map[domain.OrderStatus]int, error) {
	if err := requireAdmin(identity); err != nil {
		return nil, err
	}
	return s.orders.CountByStatus(ctx)
}

func (s *OrderService) list(ctx context.Context, filter repository.OrderFilter, page PageRequest) (*OrderPage, error) {
	page = page.normalize()
	filter.Limit = page.Limit
	filter.Offset = (page.Page - 1) * page.Limit

	orders, total, err := s.orders.ListOrders(ctx, filter)
	if err != nil {
		return nil, err
	}

	return &OrderPage{
		Orders:     orders,
		Page:       page.Page,
		Limit:      page.Limit,
		TotalPages: (total + page.Limit - 1) / page.Limit,
		Total:      total,
	}, nil
}

func requireAdmin(identity *domain.Identity) error {
	if !identity.IsAuthenticated() {
		return domain.ErrAuthenticationRequired
	}
	if !identity.IsAdmin() {
		return domain.ErrPermissionDenied
	}
	return nil
}
