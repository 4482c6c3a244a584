package service

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fjod/food-orders/internal/cache"
	"github.com/fjod/food-orders/internal/catalog"
	"github.com/fjod/food-orders/internal/domain"
	"github.com/fjod/food-orders/internal/repository"
)

type mockCartRepository struct {
	m         sync.RWMutex
	carts     map[string]*domain.Cart
	err       error
	saveErr   error
	deleteErr error
	getCalls  int
	saveCalls int

	// when set, GetCart signals entered and then waits for gate
	gate    chan struct{}
	entered chan struct{}
}

func newMockCartRepository() *mockCartRepository {
	return &mockCartRepository{carts: map[string]*domain.Cart{}}
}

func (m *mockCartRepository) GetCart(ctx context.Context, sessionID string) (*domain.Cart, error) {
	if m.gate != nil {
		select {
		case m.entered <- struct{}{}:
		default:
		}
		<-m.gate
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}
	m.m.Lock()
	defer m.m.Unlock()
	m.getCalls++
	if m.err != nil {
		return nil, m.err
	}
	cart, ok := m.carts[sessionID]
	if !ok {
		return nil, repository.ErrCartNotFound
	}
	// hand out a copy, like a real store would
	c := *cart
	c.Items = cart.Snapshot()
	return &c, nil
}

func (m *mockCartRepository) SaveCart(_ context.Context, cart *domain.Cart) error {
	m.m.Lock()
	defer m.m.Unlock()
	m.saveCalls++
	if m.saveErr != nil {
		return m.saveErr
	}
	c := *cart
	c.Items = cart.Snapshot()
	m.carts[cart.SessionID] = &c
	return nil
}

func (m *mockCartRepository) DeleteCart(_ context.Context, sessionID string) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.deleteErr != nil {
		return m.deleteErr
	}
	if _, ok := m.carts[sessionID]; !ok {
		return repository.ErrCartNotFound
	}
	delete(m.carts, sessionID)
	return nil
}

func (m *mockCartRepository) stored(sessionID string) *domain.Cart {
	m.m.RLock()
	defer m.m.RUnlock()
	return m.carts[sessionID]
}

type mockCache struct {
	m       sync.RWMutex
	cart    *domain.Cart
	version int64
	err     error
	deletes int

	// beforeSet runs once, outside the lock, ahead of the next Set
	beforeSet func()
	sets      chan struct{}
}

func (m *mockCache) Get(context.Context, string) (*domain.Cart, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	if m.err != nil {
		return nil, m.err
	}
	if m.cart == nil {
		return nil, cache.ErrCacheMiss
	}
	return m.cart, nil
}

func (m *mockCache) Version(context.Context, string) (int64, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	return m.version, m.err
}

func (m *mockCache) Set(_ context.Context, _ string, cart *domain.Cart, version int64) error {
	m.m.Lock()
	hook := m.beforeSet
	m.beforeSet = nil
	m.m.Unlock()
	if hook != nil {
		hook()
	}

	m.m.Lock()
	defer m.m.Unlock()
	defer func() {
		if m.sets != nil {
			select {
			case m.sets <- struct{}{}:
			default:
			}
		}
	}()
	if m.err != nil {
		return m.err
	}
	if version != m.version {
		return cache.ErrStaleFill
	}
	m.cart = cart
	return nil
}

func (m *mockCache) Delete(context.Context, string) error {
	m.m.Lock()
	defer m.m.Unlock()
	m.cart = nil
	m.version++
	m.deletes++
	return m.err
}

func (m *mockCache) getCart() *domain.Cart {
	m.m.RLock()
	defer m.m.RUnlock()
	return m.cart
}

type mockCatalog struct {
	products map[string]domain.Product
}

func newMockCatalog() *mockCatalog {
	return &mockCatalog{products: map[string]domain.Product{
		"a": {ID: "a", Name: "Burger", Price: decimal.RequireFromString("5.00")},
		"b": {ID: "b", Name: "Lemonade", Price: decimal.RequireFromString("3.50")},
	}}
}

func (m *mockCatalog) Product(_ context.Context, productID string) (domain.Product, error) {
	p, ok := m.products[productID]
	if !ok {
		return domain.Product{}, catalog.ErrItemNotFound
	}
	return p, nil
}

// mockOrderRepository keeps orders in memory and honours the conditional
// status write. conflicts makes the next N UpdateStatus calls lose the race.
type mockOrderRepository struct {
	m            sync.Mutex
	orders       map[uuid.UUID]domain.Order
	events       []repository.OutboxEvent
	createErr    error
	getErr       error
	conflicts    int
	updateCalls  int
	lastFilter   repository.OrderFilter
	beforeUpdate func()
}

func newMockOrderRepository() *mockOrderRepository {
	return &mockOrderRepository{orders: map[uuid.UUID]domain.Order{}}
}

func (m *mockOrderRepository) CreateOrder(_ context.Context, order *domain.Order, event repository.OutboxEvent) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.createErr != nil {
		err := m.createErr
		m.createErr = nil
		return err
	}
	for _, o := range m.orders {
		if order.IdempotencyKey != "" && o.CustomerID == order.CustomerID && o.IdempotencyKey == order.IdempotencyKey {
			return repository.ErrDuplicateIdempotencyKey
		}
	}
	m.orders[order.ID] = *order
	m.events = append(m.events, event)
	return nil
}

func (m *mockOrderRepository) GetOrderByID(_ context.Context, id uuid.UUID) (*domain.Order, error) {
	m.m.Lock()
	defer m.m.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	o, ok := m.orders[id]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	return &o, nil
}

func (m *mockOrderRepository) GetOrderByIdempotencyKey(_ context.Context, customerID, key string) (*domain.Order, error) {
	m.m.Lock()
	defer m.m.Unlock()
	for _, o := range m.orders {
		if o.CustomerID == customerID && o.IdempotencyKey == key {
			return &o, nil
		}
	}
	return nil, repository.ErrOrderNotFound
}

func (m *mockOrderRepository) ListOrders(_ context.Context, filter repository.OrderFilter) ([]*domain.Order, int, error) {
	m.m.Lock()
	defer m.m.Unlock()
	m.lastFilter = filter
	var matched []*domain.Order
	for _, o := range m.orders {
		if filter.CustomerID != "" && o.CustomerID != filter.CustomerID {
			continue
		}
		if filter.Status != "" && o.Status != filter.Status {
			continue
		}
		matched = append(matched, &o)
	}
	total := len(matched)
	if filter.Offset >= total {
		return []*domain.Order{}, total, nil
	}
	end := filter.Offset + filter.Limit
	if end > total {
		end = total
	}
	return matched[filter.Offset:end], total, nil
}

func (m *mockOrderRepository) UpdateStatus(_ context.Context, order *domain.Order, from domain.OrderStatus, event repository.OutboxEvent) error {
	if m.beforeUpdate != nil {
		m.beforeUpdate()
	}
	m.m.Lock()
	defer m.m.Unlock()
	m.updateCalls++
	if m.conflicts > 0 {
		m.conflicts--
		return repository.ErrStatusConflict
	}
	stored, ok := m.orders[order.ID]
	if !ok || stored.Status != from {
		return repository.ErrStatusConflict
	}
	stored.Status = order.Status
	stored.UpdatedAt = order.UpdatedAt
	if stored.ActualDeliveryTime == nil {
		stored.ActualDeliveryTime = order.ActualDeliveryTime
	}
	m.orders[order.ID] = stored
	m.events = append(m.events, event)
	return nil
}

func (m *mockOrderRepository) CountByStatus(context.Context) (map[domain.OrderStatus]int, error) {
	m.m.Lock()
	defer m.m.Unlock()
	counts := map[domain.OrderStatus]int{}
	for _, o := range m.orders {
		counts[o.Status]++
	}
	return counts, nil
}

func (m *mockOrderRepository) setStatus(id uuid.UUID, status domain.OrderStatus) {
	m.m.Lock()
	defer m.m.Unlock()
	o := m.orders[id]
	o.Status = status
	m.orders[id] = o
}
