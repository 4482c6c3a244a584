package http

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/fjod/food-orders/internal/catalog"
	"github.com/fjod/food-orders/internal/domain"
	"github.com/fjod/food-orders/internal/service"
)

type AddItemRequestDTO struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type UpdateQuantityRequestDTO struct {
	Quantity *int `json:"quantity"`
}

type CheckoutRequestDTO struct {
	DeliveryAddress domain.Address     `json:"delivery_address"`
	ContactInfo     domain.ContactInfo `json:"contact_info"`
	PaymentMethod   string             `json:"payment_method"`
	Notes           string             `json:"notes,omitempty"`
	IdempotencyKey  string             `json:"idempotency_key,omitempty"`
	ExpectedTotal   *string            `json:"expected_total,omitempty"`
}

type UpdateStatusRequestDTO struct {
	Status string `json:"status"`
}

type PricingDTO struct {
	Subtotal    string `json:"subtotal"`
	DeliveryFee string `json:"delivery_fee"`
	Tax         string `json:"tax"`
	Total       string `json:"total"`
}

type LineItemDTO struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	UnitPrice string `json:"unit_price"`
	Quantity  int    `json:"quantity"`
	LineTotal string `json:"line_total"`
}

type CartDTO struct {
	SessionID string        `json:"session_id"`
	Items     []LineItemDTO `json:"items"`
	ItemCount int           `json:"item_count"`
	Pricing   PricingDTO    `json:"pricing"`
}

type OrderDTO struct {
	ID                 string             `json:"id"`
	OrderNumber        string             `json:"order_number"`
	CustomerID         string             `json:"customer_id"`
	Status             string             `json:"status"`
	Items              []LineItemDTO      `json:"items"`
	Pricing            PricingDTO         `json:"pricing"`
	DeliveryAddress    domain.Address     `json:"delivery_address"`
	ContactInfo        domain.ContactInfo `json:"contact_info"`
	PaymentMethod      string             `json:"payment_method"`
	Notes              string             `json:"notes,omitempty"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
	ActualDeliveryTime *time.Time         `json:"actual_delivery_time"`
}

type OrderPageDTO struct {
	Orders     []OrderDTO `json:"orders"`
	Page       int        `json:"page"`
	Limit      int        `json:"limit"`
	TotalPages int        `json:"total_pages"`
	Total      int        `json:"total"`
}

type FoodItemDTO struct {
	ID          int64  `json:"id"`
	Category    string `json:"category"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       string `json:"price"`
	ImageURL    string `json:"image_url,omitempty"`
	Available   bool   `json:"available"`
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func toPricingDTO(p domain.PriceBreakdown) PricingDTO {
	return PricingDTO{
		Subtotal:    money(p.Subtotal),
		DeliveryFee: money(p.DeliveryFee),
		Tax:         money(p.Tax),
		Total:       money(p.Total),
	}
}

func toCartDTO(cart *domain.Cart, pricing domain.PriceBreakdown) CartDTO {
	dto := CartDTO{
		SessionID: cart.SessionID,
		Items:     make([]LineItemDTO, 0, len(cart.Items)),
		Pricing:   toPricingDTO(pricing),
	}
	for _, item := range cart.Items {
		dto.Items = append(dto.Items, LineItemDTO{
			ProductID: item.ProductID,
			Name:      item.Name,
			UnitPrice: money(item.UnitPrice),
			Quantity:  item.Quantity,
			LineTotal: money(item.LineTotal()),
		})
		dto.ItemCount += item.Quantity
	}
	return dto
}

func toOrderDTO(o *domain.Order) OrderDTO {
	dto := OrderDTO{
		ID:                 o.ID.String(),
		OrderNumber:        o.OrderNumber,
		CustomerID:         o.CustomerID,
		Status:             string(o.Status),
		Items:              make([]LineItemDTO, 0, len(o.Items)),
		Pricing:            toPricingDTO(o.Pricing),
		DeliveryAddress:    o.DeliveryAddress,
		ContactInfo:        o.Contact,
		PaymentMethod:      string(o.PaymentMethod),
		Notes:              o.Notes,
		CreatedAt:          o.CreatedAt,
		UpdatedAt:          o.UpdatedAt,
		ActualDeliveryTime: o.ActualDeliveryTime,
	}
	for _, item := range o.Items {
		dto.Items = append(dto.Items, LineItemDTO{
			ProductID: item.ProductID,
			Name:      item.Name,
			UnitPrice: money(item.UnitPrice),
			Quantity:  item.Quantity,
			LineTotal: money(item.LineTotal()),
		})
	}
	return dto
}

func toOrderPageDTO(page *service.OrderPage) OrderPageDTO {
	dto := OrderPageDTO{
		Orders:     make([]OrderDTO, 0, len(page.Orders)),
		Page:       page.Page,
		Limit:      page.Limit,
		TotalPages: page.TotalPages,
		Total:      page.Total,
	}
	for _, o := range page.Orders {
		dto.Orders = append(dto.Orders, toOrderDTO(o))
	}
	return dto
}

func toFoodItemDTO(item *catalog.FoodItem) FoodItemDTO {
	return FoodItemDTO{
		ID:          item.ID,
		Category:    item.CategoryName,
		Name:        item.Name,
		Description: item.Description,
		Price:       money(item.Price),
		ImageURL:    item.ImageURL,
		Available:   item.Available,
	}
}
