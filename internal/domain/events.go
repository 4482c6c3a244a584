package domain

import "time"

const (
	EventOrderPlaced        = "order.placed"
	EventOrderStatusChanged = "order.status_changed"
)

// OrderPlacedEvent is published once the order is committed. SessionID lets
// the cart consumer clear the ledger the order was built from.
type OrderPlacedEvent struct {
	OrderID       string    `json:"order_id"`
	OrderNumber   string    `json:"order_number"`
	CustomerID    string    `json:"customer_id"`
	SessionID     string    `json:"session_id"`
	ItemCount     int       `json:"item_count"`
	Total         string    `json:"total"`
	PaymentMethod string    `json:"payment_method"`
	PlacedAt      time.Time `json:"placed_at"`
}

type OrderStatusChangedEvent struct {
	OrderID            string     `json:"order_id"`
	OrderNumber        string     `json:"order_number"`
	CustomerID         string     `json:"customer_id"`
	From               string     `json:"from"`
	To                 string     `json:"to"`
	ChangedBy          string     `json:"changed_by"`
	ChangedAt          time.Time  `json:"changed_at"`
	ActualDeliveryTime *time.Time `json:"actual_delivery_time,omitempty"`
}

func NewOrderPlacedEvent(o *Order, sessionID string) OrderPlacedEvent {
	count := 0
	for _, item := range o.Items {
		count += item.Quantity
	}
	return OrderPlacedEvent{
		OrderID:       o.ID.String(),
		OrderNumber:   o.OrderNumber,
		CustomerID:    o.CustomerID,
		SessionID:     sessionID,
		ItemCount:     count,
		Total:         o.Pricing.Total.StringFixed(2),
		PaymentMethod: string(o.PaymentMethod),
		PlacedAt:      o.CreatedAt,
	}
}

func NewOrderStatusChangedEvent(o *Order, from OrderStatus, changedBy string) OrderStatusChangedEvent {
	return OrderStatusChangedEvent{
		OrderID:            o.ID.String(),
		OrderNumber:        o.OrderNumber,
		CustomerID:         o.CustomerID,
		From:               string(from),
		To:                 string(o.Status),
		ChangedBy:          changedBy,
		ChangedAt:          o.UpdatedAt,
		ActualDeliveryTime: o.ActualDeliveryTime,
	}
}
