package catalog

import (
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/fjod/food-orders/internal/domain"
)

var (
	ErrItemNotFound     = fmt.Errorf("food item %w", domain.ErrNotFound)
	ErrCategoryNotFound = fmt.Errorf("category %w", domain.ErrNotFound)
)

type Category struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type FoodItem struct {
	ID           int64           `json:"id"`
	CategoryID   int64           `json:"category_id"`
	CategoryName string          `json:"category"`
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	Price        decimal.Decimal `json:"price"`
	ImageURL     string          `json:"image_url"`
	Available    bool            `json:"available"`
}

// Product is the view of the item a cart line snapshots.
func (f *FoodItem) Product() domain.Product {
	return domain.Product{
		ID:    strconv.FormatInt(f.ID, 10),
		Name:  f.Name,
		Price: f.Price,
	}
}
