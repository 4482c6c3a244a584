package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "modernc.org/sqlite"

	"github.com/fjod/food-orders/internal/domain"
)

const itemColumns = `f.id, f.category_id, c.name, f.name, f.description, f.price, f.image_url, f.available`

// Repository is the read-only menu store.
type Repository struct {
	db *sql.DB
}

func NewRepository(dbPath string) (*Repository, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Repository{db: db}, nil
}

func (r *Repository) RunMigrations(migrationsPath string) error {
	driver, err := sqlite.WithInstance(r.db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", migrationsPath),
		"sqlite",
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

func (r *Repository) ListCategories(ctx context.Context) ([]*Category, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, description FROM categories ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer rows.Close()

	categories := []*Category{}
	for rows.Next() {
		c := &Category{}
		if err := rows.Scan(&c.ID, &c.Name, &c.Description); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return categories, nil
}

// ListItemsByCategory returns every item of the named category, available or not.
func (r *Repository) ListItemsByCategory(ctx context.Context, categoryName string) ([]*FoodItem, error) {
	var categoryID int64
	err := r.db.QueryRowContext(ctx, `SELECT id FROM categories WHERE name = ?`, categoryName).Scan(&categoryID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCategoryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query category: %w", err)
	}

	query := `SELECT ` + itemColumns + `
		FROM food_items f JOIN categories c ON c.id = f.category_id
		WHERE f.category_id = ?
		ORDER BY f.id`

	rows, err := r.db.QueryContext(ctx, query, categoryID)
	if err != nil {
		return nil, fmt.Errorf("failed to query food items: %w", err)
	}
	defer rows.Close()

	items := []*FoodItem{}
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return items, nil
}

func (r *Repository) GetItem(ctx context.Context, id int64) (*FoodItem, error) {
	query := `SELECT ` + itemColumns + `
		FROM food_items f JOIN categories c ON c.id = f.category_id
		WHERE f.id = ?`

	item, err := scanItem(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrItemNotFound
	}
	if err != nil {
		return nil, err
	}
	return item, nil
}

// Product resolves a cart product id. Items that are off the menu cannot be ordered.
func (r *Repository) Product(ctx context.Context, productID string) (domain.Product, error) {
	id, err := strconv.ParseInt(productID, 10, 64)
	if err != nil {
		return domain.Product{}, domain.NewValidationError("product_id", fmt.Sprintf("invalid product id %q", productID))
	}
	item, err := r.GetItem(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}
	if !item.Available {
		return domain.Product{}, domain.NewValidationError("product_id", fmt.Sprintf("%s is not available right now", item.Name))
	}
	return item.Product(), nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (*FoodItem, error) {
	item := &FoodItem{}
	err := row.Scan(
		&item.ID,
		&item.CategoryID,
		&item.CategoryName,
		&item.Name,
		&item.Description,
		&item.Price,
		&item.ImageURL,
		&item.Available,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan food item: %w", err)
	}
	return item, nil
}
