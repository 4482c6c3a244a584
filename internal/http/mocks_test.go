package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/mock"

	"github.com/fjod/food-orders/internal/catalog"
	"github.com/fjod/food-orders/internal/domain"
	"github.com/fjod/food-orders/internal/service"
)

type MockCartService struct {
	mock.Mock
}

func (m *MockCartService) GetCart(ctx context.Context, sessionID string) (*domain.Cart, error) {
	args := m.Called(ctx, sessionID)
	cart, _ := args.Get(0).(*domain.Cart)
	return cart, args.Error(1)
}

func (m *MockCartService) AddItem(ctx context.Context, sessionID, productID string, quantity int) (*domain.Cart, error) {
	args := m.Called(ctx, sessionID, productID, quantity)
	cart, _ := args.Get(0).(*domain.Cart)
	return cart, args.Error(1)
}

func (m *MockCartService) SetQuantity(ctx context.Context, sessionID, productID string, quantity int) (*domain.Cart, error) {
	args := m.Called(ctx, sessionID, productID, quantity)
	cart, _ := args.Get(0).(*domain.Cart)
	return cart, args.Error(1)
}

func (m *MockCartService) RemoveItem(ctx context.Context, sessionID, productID string) (*domain.Cart, error) {
	args := m.Called(ctx, sessionID, productID)
	cart, _ := args.Get(0).(*domain.Cart)
	return cart, args.Error(1)
}

func (m *MockCartService) ClearCart(ctx context.Context, sessionID string) error {
	return m.Called(ctx, sessionID).Error(0)
}

func (m *MockCartService) MergeCart(ctx context.Context, from, into string) (*domain.Cart, error) {
	args := m.Called(ctx, from, into)
	cart, _ := args.Get(0).(*domain.Cart)
	return cart, args.Error(1)
}

func (m *MockCartService) Pricing(cart *domain.Cart) domain.PriceBreakdown {
	return domain.CalculatePricing(cart.Items, domain.DefaultPricingConfig())
}

type MockCheckoutService struct {
	mock.Mock
}

func (m *MockCheckoutService) PlaceOrder(ctx context.Context, identity *domain.Identity, sessionID string, in domain.PlaceOrderInput) (*domain.Order, error) {
	args := m.Called(ctx, identity, sessionID, in)
	order, _ := args.Get(0).(*domain.Order)
	return order, args.Error(1)
}

type MockOrderService struct {
	mock.Mock
}

func (m *MockOrderService) GetOrder(ctx context.Context, identity *domain.Identity, id uuid.UUID) (*domain.Order, error) {
	args := m.Called(ctx, identity, id)
	order, _ := args.Get(0).(*domain.Order)
	return order, args.Error(1)
}

func (m *MockOrderService) ListCustomerOrders(ctx context.Context, identity *domain.Identity, page service.PageRequest) (*service.OrderPage, error) {
	args := m.Called(ctx, identity, page)
	result, _ := args.Get(0).(*service.OrderPage)
	return result, args.Error(1)
}

func (m *MockOrderService) ListAllOrders(ctx context.Context, identity *domain.Identity, page service.PageRequest, status string) (*service.OrderPage, error) {
	args := m.Called(ctx, identity, page, status)
	result, _ := args.Get(0).(*service.OrderPage)
	return result, args.Error(1)
}

func (m *MockOrderService) UpdateStatus(ctx context.Context, identity *domain.Identity, id uuid.UUID, target string) (*domain.Order, error) {
	args := m.Called(ctx, identity, id, target)
	order, _ := args.Get(0).(*domain.Order)
	return order, args.Error(1)
}

func (m *MockOrderService) StatusCounts(ctx context.Context, identity *domain.Identity) (map[domain.OrderStatus]int, error) {
	args := m.Called(ctx, identity)
	counts, _ := args.Get(0).(map[domain.OrderStatus]int)
	return counts, args.Error(1)
}

type MockCatalog struct {
	mock.Mock
}

func (m *MockCatalog) ListCategories(ctx context.Context) ([]*catalog.Category, error) {
	args := m.Called(ctx)
	categories, _ := args.Get(0).([]*catalog.Category)
	return categories, args.Error(1)
}

func (m *MockCatalog) ListItemsByCategory(ctx context.Context, categoryName string) ([]*catalog.FoodItem, error) {
	args := m.Called(ctx, categoryName)
	items, _ := args.Get(0).([]*catalog.FoodItem)
	return items, args.Error(1)
}

func (m *MockCatalog) GetItem(ctx context.Context, id int64) (*catalog.FoodItem, error) {
	args := m.Called(ctx, id)
	item, _ := args.Get(0).(*catalog.FoodItem)
	return item, args.Error(1)
}

type MockQR struct {
	mock.Mock
}

func (m *MockQR) Generate(orderNumber string) ([]byte, error) {
	args := m.Called(orderNumber)
	data, _ := args.Get(0).([]byte)
	return data, args.Error(1)
}

// staticVerifier accepts "customer-token" and "admin-token".
type staticVerifier struct{}

var (
	customerIdentity = &domain.Identity{Subject: "cust-1", Role: domain.RoleCustomer}
	adminIdentity    = &domain.Identity{Subject: "ops-1", Role: domain.RoleAdmin}

	customerSession = "customer:cust-1"
	guestSession    = "guest:sess-1"
)

func (staticVerifier) Verify(token string) (*domain.Identity, error) {
	switch token {
	case "customer-token":
		return customerIdentity, nil
	case "admin-token":
		return adminIdentity, nil
	}
	return nil, errors.New("bad token")
}

type testServer struct {
	cart     *MockCartService
	checkout *MockCheckoutService
	orders   *MockOrderService
	catalog  *MockCatalog
	qr       *MockQR
	handler  http.Handler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	s := &testServer{
		cart:     new(MockCartService),
		checkout: new(MockCheckoutService),
		orders:   new(MockOrderService),
		catalog:  new(MockCatalog),
		qr:       new(MockQR),
	}
	s.handler = NewRouter(RouterConfig{
		Cart:           NewCartHandler(s.cart, 5*time.Second),
		Orders:         NewOrdersHandler(s.checkout, s.orders, s.qr, 5*time.Second),
		Catalog:        NewCatalogHandler(s.catalog, 5*time.Second),
		Verifier:       staticVerifier{},
		Logger:         zerolog.Nop(),
		AllowedOrigins: []string{"*"},
	})
	t.Cleanup(func() {
		s.cart.AssertExpectations(t)
		s.checkout.AssertExpectations(t)
		s.orders.AssertExpectations(t)
		s.catalog.AssertExpectations(t)
		s.qr.AssertExpectations(t)
	})
	return s
}

func (s *testServer) do(method, path, body, token string, headers ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, req)
	return w
}
