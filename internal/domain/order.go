package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PaymentMethod string

const (
	PaymentMethodCash PaymentMethod = "cash"
	PaymentMethodCard PaymentMethod = "card"
)

func (m PaymentMethod) IsValid() bool {
	return m == PaymentMethodCash || m == PaymentMethodCard
}

type Address struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	ZipCode string `json:"zip_code"`
}

type ContactInfo struct {
	Phone string `json:"phone"`
	Email string `json:"email,omitempty"`
}

// OrderItem is the frozen copy of a cart line taken when the order is placed.
type OrderItem struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
}

func (i OrderItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Order content is immutable once placed; only Status, UpdatedAt and
// ActualDeliveryTime change afterwards, through ApplyTransition.
type Order struct {
	ID                 uuid.UUID
	OrderNumber        string
	CustomerID         string
	Items              []OrderItem
	Pricing            PriceBreakdown
	DeliveryAddress    Address
	Contact            ContactInfo
	PaymentMethod      PaymentMethod
	Status             OrderStatus
	Notes              string
	IdempotencyKey     string
	CreatedAt          time.Time
	UpdatedAt          time.Time
	ActualDeliveryTime *time.Time
}

// PlaceOrderInput is everything checkout needs besides the cart itself.
type PlaceOrderInput struct {
	DeliveryAddress Address
	Contact         ContactInfo
	PaymentMethod   PaymentMethod
	Notes           string
	IdempotencyKey  string
	// ExpectedTotal is the total the customer was shown; nil skips the check.
	ExpectedTotal *decimal.Decimal
}

// Validate reports the first missing or invalid field.
func (in PlaceOrderInput) Validate() error {
	switch {
	case strings.TrimSpace(in.DeliveryAddress.Street) == "":
		return NewValidationError("delivery_address.street", "street is required")
	case strings.TrimSpace(in.DeliveryAddress.City) == "":
		return NewValidationError("delivery_address.city", "city is required")
	case strings.TrimSpace(in.DeliveryAddress.ZipCode) == "":
		return NewValidationError("delivery_address.zip_code", "zip code is required")
	case strings.TrimSpace(in.Contact.Phone) == "":
		return NewValidationError("contact_info.phone", "phone is required")
	case !in.PaymentMethod.IsValid():
		return NewValidationError("payment_method", fmt.Sprintf("payment method must be %q or %q", PaymentMethodCash, PaymentMethodCard))
	}
	return nil
}

// NewOrder builds a pending order from a non-empty cart. The cart is not modified.
func NewOrder(customerID string, cart *Cart, in PlaceOrderInput, pricing PricingConfig, now time.Time) (*Order, error) {
	if cart == nil || cart.IsEmpty() {
		return nil, NewValidationError("items", "cart is empty, nothing to checkout")
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}

	lines := cart.Snapshot()
	breakdown := CalculatePricing(lines, pricing)
	if in.ExpectedTotal != nil && !in.ExpectedTotal.Round(2).Equal(breakdown.Total.Round(2)) {
		return nil, NewValidationError("pricing", fmt.Sprintf("cart total changed to %s, please review your order", breakdown.Total.StringFixed(2)))
	}

	items := make([]OrderItem, len(lines))
	for i, line := range lines {
		items[i] = OrderItem{
			ProductID: line.ProductID,
			Name:      line.Name,
			UnitPrice: line.UnitPrice,
			Quantity:  line.Quantity,
		}
	}

	id := uuid.New()
	return &Order{
		ID:              id,
		OrderNumber:     NewOrderNumber(id, now),
		CustomerID:      customerID,
		Items:           items,
		Pricing:         breakdown,
		DeliveryAddress: trimAddress(in.DeliveryAddress),
		Contact: ContactInfo{
			Phone: strings.TrimSpace(in.Contact.Phone),
			Email: strings.TrimSpace(in.Contact.Email),
		},
		PaymentMethod:  in.PaymentMethod,
		Status:         OrderStatusPending,
		Notes:          strings.TrimSpace(in.Notes),
		IdempotencyKey: in.IdempotencyKey,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// NewOrderNumber derives the customer-facing number, e.g. ORD-20261019-7F3A9C2B.
func NewOrderNumber(id uuid.UUID, now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(id.String(), "-", "")[:8])
	return fmt.Sprintf("ORD-%s-%s", now.UTC().Format("20060102"), suffix)
}

// ApplyTransition moves the order to status to, stamping ActualDeliveryTime on delivery.
// On error the order is unchanged.
func (o *Order) ApplyTransition(to OrderStatus, policy TransitionPolicy, now time.Time) error {
	if err := CheckTransition(o.Status, to, policy); err != nil {
		return err
	}
	o.Status = to
	o.UpdatedAt = now
	if to == OrderStatusDelivered && o.ActualDeliveryTime == nil {
		delivered := now
		o.ActualDeliveryTime = &delivered
	}
	return nil
}

func (o *Order) BelongsTo(customerID string) bool {
	return o.CustomerID == customerID
}

func trimAddress(a Address) Address {
	return Address{
		Street:  strings.TrimSpace(a.Street),
		City:    strings.TrimSpace(a.City),
		ZipCode: strings.TrimSpace(a.ZipCode),
	}
}
