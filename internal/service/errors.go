package service

import "github.com/fjod/food-orders/internal/domain"

var errSessionRequired = domain.NewValidationError("session_id", "a cart session is required")
