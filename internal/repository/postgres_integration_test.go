package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/fjod/food-orders/internal/domain"
)

func setupTestDB(t *testing.T) *PostgresRepository {
	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)

	host, err := pgContainer.Host(ctx)
	require.NoError(t, err)
	port, err := pgContainer.MappedPort(ctx, "5432")
	require.NoError(t, err)

	db, err := ConnectPostgres(ctx, Credentials{
		Host:     host,
		Port:     port.Int(),
		User:     "testuser",
		Password: "testpass",
		DBName:   "testdb",
	})
	require.NoError(t, err)

	repo := NewPostgresRepository(db)
	require.NoError(t, repo.RunMigrations("./migrations"))

	t.Cleanup(func() {
		_ = repo.Close()
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})
	return repo
}

func placedEvent(t *testing.T, o *domain.Order) OutboxEvent {
	ev, err := NewOutboxEvent(o.ID, domain.EventOrderPlaced, domain.NewOrderPlacedEvent(o, "session-1"))
	require.NoError(t, err)
	return ev
}

func TestPostgres_CreateAndGetOrder(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()
	order := newTestOrder(t)

	require.NoError(t, repo.CreateOrder(ctx, order, placedEvent(t, order)))

	fetched, err := repo.GetOrderByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.OrderNumber, fetched.OrderNumber)
	assert.Equal(t, "13.50", fetched.Pricing.Subtotal.StringFixed(2))
	assert.Equal(t, "1.35", fetched.Pricing.Tax.StringFixed(2))
	assert.Equal(t, "17.84", fetched.Pricing.Total.StringFixed(2))
	assert.Len(t, fetched.Items, 2)

	byKey, err := repo.GetOrderByIdempotencyKey(ctx, "customer-1", "key-1")
	require.NoError(t, err)
	assert.Equal(t, order.ID, byKey.ID)

	events, err := repo.GetUnprocessedEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, domain.EventOrderPlaced, events[0].EventType)

	require.NoError(t, repo.MarkEventAsProcessed(ctx, events[0].ID))
	events, err = repo.GetUnprocessedEvents(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestPostgres_DuplicateIdempotencyKey(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	first := newTestOrder(t)
	require.NoError(t, repo.CreateOrder(ctx, first, placedEvent(t, first)))

	second := newTestOrder(t)
	err := repo.CreateOrder(ctx, second, placedEvent(t, second))
	assert.ErrorIs(t, err, ErrDuplicateIdempotencyKey)

	events, err := repo.GetUnprocessedEvents(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, events, 1, "rolled back order must not leave an outbox event")
}

func TestPostgres_ConcurrentTerminalUpdates(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()
	order := newTestOrder(t)
	require.NoError(t, repo.CreateOrder(ctx, order, placedEvent(t, order)))

	targets := []domain.OrderStatus{domain.OrderStatusDelivered, domain.OrderStatusCancelled}
	errs := make([]error, len(targets))
	var wg sync.WaitGroup
	for i, target := range targets {
		wg.Add(1)
		go func(i int, target domain.OrderStatus) {
			defer wg.Done()
			o, err := repo.GetOrderByID(ctx, order.ID)
			if err != nil {
				errs[i] = err
				return
			}
			from := o.Status
			if err := o.ApplyTransition(target, domain.TransitionPolicyPermissive, time.Now()); err != nil {
				errs[i] = err
				return
			}
			errs[i] = repo.UpdateStatus(ctx, o, from, OutboxEvent{AggregateID: o.ID, EventType: domain.EventOrderStatusChanged, Payload: []byte("{}")})
		}(i, target)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		}
	}
	assert.Equal(t, 1, succeeded, "exactly one terminal transition may win: %v", errs)

	final, err := repo.GetOrderByID(ctx, order.ID)
	require.NoError(t, err)
	assert.True(t, final.Status.IsTerminal())
}

func TestPostgres_ListAndCount(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		o := newTestOrder(t)
		o.IdempotencyKey = ""
		require.NoError(t, repo.CreateOrder(ctx, o, placedEvent(t, o)))
	}

	page, total, err := repo.ListOrders(ctx, OrderFilter{CustomerID: "customer-1", Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Len(t, page, 2)

	page, total, err = repo.ListOrders(ctx, OrderFilter{CustomerID: "someone-else", Limit: 2})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, page)

	counts, err := repo.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, counts[domain.OrderStatusPending])
}
