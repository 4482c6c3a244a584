package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is the catalog view a cart needs: identity, display name and current price.
type Product struct {
	ID    string
	Name  string
	Price decimal.Decimal
}

type CartItem struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	AddedAt   time.Time       `json:"added_at"`
}

func (i CartItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Cart is the ledger of one browsing session. Items are unique by ProductID,
// kept in insertion order, and always have Quantity >= 1.
type Cart struct {
	SessionID string     `json:"session_id"`
	Items     []CartItem `json:"items"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func NewCart(sessionID string) *Cart {
	now := time.Now()
	return &Cart{
		SessionID: sessionID,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// AddItem accumulates quantity onto an existing line or appends a new one.
// Quantities below one are ignored. Reports whether the ledger changed.
func (c *Cart) AddItem(product Product, quantity int) bool {
	if quantity < 1 {
		return false
	}
	now := time.Now()
	if i := c.indexOf(product.ID); i >= 0 {
		c.Items[i].Quantity += quantity
		c.UpdatedAt = now
		return true
	}
	c.Items = append(c.Items, CartItem{
		ProductID: product.ID,
		Name:      product.Name,
		UnitPrice: product.Price,
		Quantity:  quantity,
		AddedAt:   now,
	})
	c.UpdatedAt = now
	return true
}

func (c *Cart) RemoveItem(productID string) bool {
	i := c.indexOf(productID)
	if i < 0 {
		return false
	}
	c.Items = append(c.Items[:i], c.Items[i+1:]...)
	c.UpdatedAt = time.Now()
	return true
}

// SetQuantity overwrites the quantity of a line; zero or less removes it.
func (c *Cart) SetQuantity(productID string, quantity int) bool {
	if quantity <= 0 {
		return c.RemoveItem(productID)
	}
	i := c.indexOf(productID)
	if i < 0 || c.Items[i].Quantity == quantity {
		return false
	}
	c.Items[i].Quantity = quantity
	c.UpdatedAt = time.Now()
	return true
}

func (c *Cart) Clear() bool {
	if len(c.Items) == 0 {
		return false
	}
	c.Items = nil
	c.UpdatedAt = time.Now()
	return true
}

func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

func (c *Cart) Item(productID string) (CartItem, bool) {
	if i := c.indexOf(productID); i >= 0 {
		return c.Items[i], true
	}
	return CartItem{}, false
}

// Snapshot returns a copy of the line items that later mutations cannot reach.
func (c *Cart) Snapshot() []CartItem {
	items := make([]CartItem, len(c.Items))
	copy(items, c.Items)
	return items
}

func (c *Cart) indexOf(productID string) int {
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			return i
		}
	}
	return -1
}
