package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/fjod/food-orders/internal/domain"
)

const idempotencyConstraint = "orders_customer_idempotency_key_idx"

const orderColumns = `id, order_number, customer_id, items, subtotal, delivery_fee, tax, total,
	street, city, zip_code, phone, email, payment_method, status, notes, idempotency_key,
	created_at, updated_at, actual_delivery_time`

type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) RunMigrations(migrationsDir string) error {
	driver, err := postgres.WithInstance(r.db, &postgres.Config{
		MigrationsTable: "orders_schema_migrations",
	})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", migrationsDir),
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", err)
	}
	return nil
}

func (r *PostgresRepository) CreateOrder(ctx context.Context, order *domain.Order, event OutboxEvent) error {
	itemsJSON, err := json.Marshal(order.Items)
	if err != nil {
		return fmt.Errorf("failed to marshal order items: %w", err)
	}

	return r.withTx(ctx, func(tx *sql.Tx) error {
		query := `INSERT INTO orders (` + orderColumns + `)
		          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)`

		_, err := tx.ExecContext(ctx, query,
			order.ID,
			order.OrderNumber,
			order.CustomerID,
			itemsJSON,
			order.Pricing.Subtotal,
			order.Pricing.DeliveryFee,
			order.Pricing.Tax,
			order.Pricing.Total,
			order.DeliveryAddress.Street,
			order.DeliveryAddress.City,
			order.DeliveryAddress.ZipCode,
			order.Contact.Phone,
			nullString(order.Contact.Email),
			order.PaymentMethod,
			order.Status,
			nullString(order.Notes),
			nullString(order.IdempotencyKey),
			order.CreatedAt,
			order.UpdatedAt,
			order.ActualDeliveryTime,
		)
		if err != nil {
			var pqErr *pq.Error
			if errors.As(err, &pqErr) && pqErr.Code == "23505" {
				if pqErr.Constraint == idempotencyConstraint {
					return ErrDuplicateIdempotencyKey
				}
				return ErrDuplicateOrderNumber
			}
			return fmt.Errorf("insert order: %w", err)
		}

		return insertOutboxEvent(ctx, tx, event)
	})
}

func (r *PostgresRepository) GetOrderByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	order, err := scanOrder(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query order by id: %w", err)
	}
	return order, nil
}

func (r *PostgresRepository) GetOrderByIdempotencyKey(ctx context.Context, customerID, key string) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE customer_id = $1 AND idempotency_key = $2`

	order, err := scanOrder(r.db.QueryRowContext(ctx, query, customerID, key))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query order by idempotency key: %w", err)
	}
	return order, nil
}

func (r *PostgresRepository) ListOrders(ctx context.Context, filter OrderFilter) ([]*domain.Order, int, error) {
	where := `($1 = '' OR customer_id = $1) AND ($2 = '' OR status = $2)`

	var total int
	countQuery := `SELECT COUNT(*) FROM orders WHERE ` + where
	if err := r.db.QueryRowContext(ctx, countQuery, filter.CustomerID, string(filter.Status)).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}
	if total == 0 {
		return []*domain.Order{}, 0, nil
	}

	query := `SELECT ` + orderColumns + ` FROM orders WHERE ` + where + `
	          ORDER BY created_at DESC, id LIMIT $3 OFFSET $4`

	rows, err := r.db.QueryContext(ctx, query, filter.CustomerID, string(filter.Status), filter.Limit, filter.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	orders := []*domain.Order{}
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan order row: %w", err)
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("row iteration error: %w", err)
	}

	return orders, total, nil
}

func (r *PostgresRepository) UpdateStatus(ctx context.Context, order *domain.Order, from domain.OrderStatus, event OutboxEvent) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		query := `UPDATE orders
		          SET status = $3, updated_at = $4, actual_delivery_time = COALESCE(actual_delivery_time, $5)
		          WHERE id = $1 AND status = $2`

		res, err := tx.ExecContext(ctx, query, order.ID, from, order.Status, order.UpdatedAt, order.ActualDeliveryTime)
		if err != nil {
			return fmt.Errorf("update order status: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("update order status: %w", err)
		}
		if affected == 0 {
			return ErrStatusConflict
		}

		return insertOutboxEvent(ctx, tx, event)
	})
}

func (r *PostgresRepository) CountByStatus(ctx context.Context) (map[domain.OrderStatus]int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM orders GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count orders by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.OrderStatus]int)
	for _, s := range domain.AllOrderStatuses() {
		counts[s] = 0
	}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		counts[domain.OrderStatus(status)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return counts, nil
}

func (r *PostgresRepository) GetUnprocessedEvents(ctx context.Context, limit int) ([]*OutboxEvent, error) {
	query := `SELECT id, aggregate_id, event_type, payload, created_at
	          FROM order_outbox WHERE processed_at IS NULL ORDER BY id LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query outbox: %w", err)
	}
	defer rows.Close()

	var events []*OutboxEvent
	for rows.Next() {
		var ev OutboxEvent
		if err := rows.Scan(&ev.ID, &ev.AggregateID, &ev.EventType, &ev.Payload, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan outbox row: %w", err)
		}
		events = append(events, &ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return events, nil
}

func (r *PostgresRepository) MarkEventAsProcessed(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `UPDATE order_outbox SET processed_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("mark outbox event %d processed: %w", id, err)
	}
	return nil
}

func (r *PostgresRepository) Close() error {
	return r.db.Close()
}

func (r *PostgresRepository) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func insertOutboxEvent(ctx context.Context, tx *sql.Tx, event OutboxEvent) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO order_outbox (aggregate_id, event_type, payload) VALUES ($1, $2, $3)`,
		event.AggregateID, event.EventType, event.Payload)
	if err != nil {
		return fmt.Errorf("insert outbox event: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanOrder(row scanner) (*domain.Order, error) {
	var (
		order          domain.Order
		itemsJSON      []byte
		email          sql.NullString
		notes          sql.NullString
		idempotencyKey sql.NullString
		deliveredAt    sql.NullTime
	)
	err := row.Scan(
		&order.ID,
		&order.OrderNumber,
		&order.CustomerID,
		&itemsJSON,
		&order.Pricing.Subtotal,
		&order.Pricing.DeliveryFee,
		&order.Pricing.Tax,
		&order.Pricing.Total,
		&order.DeliveryAddress.Street,
		&order.DeliveryAddress.City,
		&order.DeliveryAddress.ZipCode,
		&order.Contact.Phone,
		&email,
		&order.PaymentMethod,
		&order.Status,
		&notes,
		&idempotencyKey,
		&order.CreatedAt,
		&order.UpdatedAt,
		&deliveredAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(itemsJSON, &order.Items); err != nil {
		return nil, fmt.Errorf("unmarshal order items: %w", err)
	}
	order.Contact.Email = email.String
	order.Notes = notes.String
	order.IdempotencyKey = idempotencyKey.String
	if deliveredAt.Valid {
		t := deliveredAt.Time
		order.ActualDeliveryTime = &t
	}
	return &order, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
