package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/fjod/food-orders/internal/cache"
	"github.com/fjod/food-orders/internal/domain"
	"github.com/fjod/food-orders/internal/repository"
)

// ProductCatalog resolves the product a cart line should snapshot.
type ProductCatalog interface {
	Product(ctx context.Context, productID string) (domain.Product, error)
}

const sharedLoadTimeout = 5 * time.Second

type CartService struct {
	repo    repository.CartRepository
	cache   cache.CartCache
	catalog ProductCatalog
	pricing domain.PricingConfig
	sfg     singleflight.Group // Prevents cache stampede
	logger  zerolog.Logger
}

func NewCartService(
	repo repository.CartRepository,
	cartCache cache.CartCache,
	catalog ProductCatalog,
	pricing domain.PricingConfig,
	logger zerolog.Logger,
) *CartService {
	return &CartService{
		repo:    repo,
		cache:   cartCache,
		catalog: catalog,
		pricing: pricing,
		logger:  logger.With().Str("component", "cart_service").Logger(),
	}
}

// GetCart is the read path: cache first, then the durable store. A session
// without a stored ledger gets an empty one.
func (s *CartService) GetCart(ctx context.Context, sessionID string) (*domain.Cart, error) {
	if sessionID == "" {
		return nil, errSessionRequired
	}

	ch := s.sfg.DoChan(sessionID, func() (interface{}, error) {
		// shared by every coalesced caller, so it must outlive the first one
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sharedLoadTimeout)
		defer cancel()
		return s.readThrough(loadCtx, sessionID)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*domain.Cart), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *CartService) readThrough(ctx context.Context, sessionID string) (*domain.Cart, error) {
	cart, err := s.cache.Get(ctx, sessionID)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		s.logger.Warn().Err(err).Str("session_id", sessionID).Msg("cache get failed")
	}

	// read before the load; a mutation after this point makes the fill stale
	version, verr := s.cache.Version(ctx, sessionID)

	cart, err = s.LoadCart(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if verr != nil {
		s.logger.Warn().Err(verr).Str("session_id", sessionID).Msg("cache version failed, skipping fill")
		return cart, nil
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		err := s.cache.Set(ctx, sessionID, cart, version)
		switch {
		case errors.Is(err, cache.ErrStaleFill):
			s.logger.Debug().Str("session_id", sessionID).Msg("cache fill superseded")
		case err != nil:
			s.logger.Warn().Err(err).Str("session_id", sessionID).Msg("cache set failed")
		}
	}()

	return cart, nil
}

// LoadCart reads the authoritative ledger, bypassing the cache.
func (s *CartService) LoadCart(ctx context.Context, sessionID string) (*domain.Cart, error) {
	if sessionID == "" {
		return nil, errSessionRequired
	}
	cart, err := s.repo.GetCart(ctx, sessionID)
	if errors.Is(err, repository.ErrCartNotFound) {
		return domain.NewCart(sessionID), nil
	}
	if err != nil {
		return nil, err
	}
	return cart, nil
}

// AddItem snapshots the catalog price and accumulates quantity. Quantities
// below one leave the ledger untouched.
func (s *CartService) AddItem(ctx context.Context, sessionID, productID string, quantity int) (*domain.Cart, error) {
	if quantity < 1 {
		return s.LoadCart(ctx, sessionID)
	}
	product, err := s.catalog.Product(ctx, productID)
	if err != nil {
		return nil, err
	}
	return s.mutate(ctx, sessionID, func(c *domain.Cart) bool {
		return c.AddItem(product, quantity)
	})
}

func (s *CartService) SetQuantity(ctx context.Context, sessionID, productID string, quantity int) (*domain.Cart, error) {
	return s.mutate(ctx, sessionID, func(c *domain.Cart) bool {
		return c.SetQuantity(productID, quantity)
	})
}

func (s *CartService) RemoveItem(ctx context.Context, sessionID, productID string) (*domain.Cart, error) {
	return s.mutate(ctx, sessionID, func(c *domain.Cart) bool {
		return c.RemoveItem(productID)
	})
}

// ClearCart drops the stored ledger. Clearing an absent cart is not an error.
func (s *CartService) ClearCart(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return errSessionRequired
	}
	if err := s.repo.DeleteCart(ctx, sessionID); err != nil && !errors.Is(err, repository.ErrCartNotFound) {
		s.logger.Error().Err(err).Str("session_id", sessionID).Msg("repo delete cart failed")
		return err
	}

	s.invalidateCache(sessionID)
	return nil
}

// ClearCartPlacedBefore clears the ledger only if it has not been touched
// since placedAt, so a cart the customer kept filling after checkout survives.
// Reports whether anything was cleared.
func (s *CartService) ClearCartPlacedBefore(ctx context.Context, sessionID string, placedAt time.Time) (bool, error) {
	cart, err := s.LoadCart(ctx, sessionID)
	if err != nil {
		return false, err
	}
	if cart.IsEmpty() || cart.UpdatedAt.After(placedAt) {
		return false, nil
	}
	if err := s.ClearCart(ctx, sessionID); err != nil {
		return false, err
	}
	return true, nil
}

// MergeCart folds the ledger of session from into session into and drops
// the source. Lines keep the price they were added at.
func (s *CartService) MergeCart(ctx context.Context, from, into string) (*domain.Cart, error) {
	if from == "" || into == "" {
		return nil, errSessionRequired
	}
	source, err := s.LoadCart(ctx, from)
	if err != nil {
		return nil, err
	}
	if from == into || source.IsEmpty() {
		return s.LoadCart(ctx, into)
	}

	cart, err := s.mutate(ctx, into, func(c *domain.Cart) bool {
		for _, item := range source.Items {
			c.AddItem(domain.Product{ID: item.ProductID, Name: item.Name, Price: item.UnitPrice}, item.Quantity)
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	if err := s.ClearCart(ctx, from); err != nil {
		return nil, err
	}
	return cart, nil
}

func (s *CartService) Pricing(cart *domain.Cart) domain.PriceBreakdown {
	return domain.CalculatePricing(cart.Items, s.pricing)
}

// mutate runs load, change, persist. The ledger is saved in full and the
// cached copy dropped only when the change did something.
func (s *CartService) mutate(ctx context.Context, sessionID string, change func(*domain.Cart) bool) (*domain.Cart, error) {
	cart, err := s.LoadCart(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !change(cart) {
		return cart, nil
	}

	if err := s.repo.SaveCart(ctx, cart); err != nil {
		s.logger.Error().Err(err).Str("session_id", sessionID).Msg("repo save cart failed")
		return nil, err
	}

	s.invalidateCache(sessionID)
	return cart, nil
}

func (s *CartService) invalidateCache(sessionID string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.cache.Delete(ctx, sessionID); err != nil {
		s.logger.Warn().Err(err).Str("session_id", sessionID).Msg("cache invalidate failed")
	}
}
