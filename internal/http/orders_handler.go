package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fjod/food-orders/internal/domain"
	"github.com/fjod/food-orders/internal/repository"
	"github.com/fjod/food-orders/internal/service"
)

type CheckoutService interface {
	PlaceOrder(ctx context.Context, identity *domain.Identity, sessionID string, in domain.PlaceOrderInput) (*domain.Order, error)
}

type OrderService interface {
	GetOrder(ctx context.Context, identity *domain.Identity, id uuid.UUID) (*domain.Order, error)
	ListCustomerOrders(ctx context.Context, identity *domain.Identity, page service.PageRequest) (*service.OrderPage, error)
	ListAllOrders(ctx context.Context, identity *domain.Identity, page service.PageRequest, status string) (*service.OrderPage, error)
	UpdateStatus(ctx context.Context, identity *domain.Identity, id uuid.UUID, target string) (*domain.Order, error)
	StatusCounts(ctx context.Context, identity *domain.Identity) (map[domain.OrderStatus]int, error)
}

type QRGenerator interface {
	Generate(orderNumber string) ([]byte, error)
}

type OrdersHandler struct {
	checkout CheckoutService
	orders   OrderService
	qr       QRGenerator
	timeout  time.Duration
}

func NewOrdersHandler(checkout CheckoutService, orders OrderService, qr QRGenerator, timeout time.Duration) *OrdersHandler {
	return &OrdersHandler{
		checkout: checkout,
		orders:   orders,
		qr:       qr,
		timeout:  timeout,
	}
}

func (h *OrdersHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req CheckoutRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	in := domain.PlaceOrderInput{
		DeliveryAddress: req.DeliveryAddress,
		Contact:         req.ContactInfo,
		PaymentMethod:   domain.PaymentMethod(strings.ToLower(strings.TrimSpace(req.PaymentMethod))),
		Notes:           req.Notes,
		IdempotencyKey:  req.IdempotencyKey,
	}
	if key := r.Header.Get("Idempotency-Key"); key != "" {
		in.IdempotencyKey = key
	}
	if req.ExpectedTotal != nil {
		expected, err := decimal.NewFromString(*req.ExpectedTotal)
		if err != nil {
			handleServiceError(w, r, domain.NewValidationError("pricing", "expected_total is not a number"))
			return
		}
		in.ExpectedTotal = &expected
	}

	order, err := h.checkout.PlaceOrder(ctx, identityFromContext(r.Context()), sessionID(r), in)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusCreated, toOrderDTO(order))
}

func (h *OrdersHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	page, err := parsePage(r)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	result, err := h.orders.ListCustomerOrders(ctx, identityFromContext(r.Context()), page)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, toOrderPageDTO(result))
}

func (h *OrdersHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	order, err := h.loadOrder(ctx, r)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, toOrderDTO(order))
}

func (h *OrdersHandler) OrderQR(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	order, err := h.loadOrder(ctx, r)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	png, err := h.qr.Generate(order.OrderNumber)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "private, max-age=3600")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

func (h *OrdersHandler) AdminListOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	page, err := parsePage(r)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	result, err := h.orders.ListAllOrders(ctx, identityFromContext(r.Context()), page, r.URL.Query().Get("status"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, toOrderPageDTO(result))
}

func (h *OrdersHandler) AdminUpdateStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	id, err := orderIDParam(r)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	var req UpdateStatusRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Status) == "" {
		handleServiceError(w, r, domain.NewValidationError("status", "status is required"))
		return
	}

	order, err := h.orders.UpdateStatus(ctx, identityFromContext(r.Context()), id, strings.TrimSpace(req.Status))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, toOrderDTO(order))
}

func (h *OrdersHandler) AdminStats(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	counts, err := h.orders.StatusCounts(ctx, identityFromContext(r.Context()))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	out := make(map[string]int, len(counts))
	total := 0
	for status, n := range counts {
		out[string(status)] = n
		total += n
	}
	respondJSON(w, r, http.StatusOK, map[string]any{"counts": out, "total": total})
}

func (h *OrdersHandler) loadOrder(ctx context.Context, r *http.Request) (*domain.Order, error) {
	id, err := orderIDParam(r)
	if err != nil {
		return nil, err
	}
	return h.orders.GetOrder(ctx, identityFromContext(r.Context()), id)
}

// orderIDParam treats a malformed id like an unknown one.
func orderIDParam(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "order_id"))
	if err != nil {
		return uuid.Nil, repository.ErrOrderNotFound
	}
	return id, nil
}

func parsePage(r *http.Request) (service.PageRequest, error) {
	var page service.PageRequest
	q := r.URL.Query()
	for _, p := range []struct {
		name string
		dst  *int
	}{{"page", &page.Page}, {"limit", &page.Limit}} {
		raw := q.Get(p.name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return page, domain.NewValidationError(p.name, p.name+" must be a positive integer")
		}
		*p.dst = n
	}
	return page, nil
}
