package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dixis/marketplace/internal/database"
	"github.com/dixis/marketplace/internal/models"
)

type CreateProductRequest struct {
	ProducerID int64
	SKU        string
	Name       string
	Unit       string
	PriceCents int64
	Stock      int
}

func CreateProduct(ctx context.Context, db *sql.DB, req CreateProductRequest) (*models.Product, error) {
	product := &models.Product{}

	query := `
		INSERT INTO products (producer_id, sku, name, unit, price_cents, stock_quantity, created_at, updated_at, version)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW(), 1)
		RETURNING id, producer_id, sku, name, unit, price_cents, stock_quantity, created_at, updated_at, version`

	err := db.QueryRowContext(ctx, query,
		req.ProducerID, req.SKU, req.Name, req.Unit, req.PriceCents, req.Stock).Scan(
		&product.ID,
		&product.ProducerID,
		&product.SKU,
		&product.Name,
		&product.Unit,
		&product.PriceCents,
		&product.StockQuantity,
		&product.CreatedAt,
		&product.UpdatedAt,
		&product.Version,
	)
	if err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}

	return product, nil
}

func GetProduct(ctx context.Context, db *sql.DB, id int64) (*models.Product, error) {
	product := &models.Product{}

	query := `
		SELECT p.id, p.producer_id, pr.name, p.sku, p.name, p.unit, p.price_cents, p.stock_quantity,
		       p.created_at, p.updated_at, p.version
		FROM products p
		JOIN producers pr ON pr.id = p.producer_id
		WHERE p.id = $1`

	err := db.QueryRowContext(ctx, query, id).Scan(
		&product.ID,
		&product.ProducerID,
		&product.ProducerName,
		&product.SKU,
		&product.Name,
		&product.Unit,
		&product.PriceCents,
		&product.StockQuantity,
		&product.CreatedAt,
		&product.UpdatedAt,
		&product.Version,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrProductNotFound
		}
		return nil, fmt.Errorf("get product: %w", err)
	}

	return product, nil
}

// UpdateStockOptimistic replaces a product's stock count guarded by the
// version column, for producer back-office edits racing with checkout.
func UpdateStockOptimistic(ctx context.Context, db *sql.DB, productID int64, newStock int, version int) error {
	result, err := db.ExecContext(ctx,
		`UPDATE products
		 SET stock_quantity = $1, version = version + 1, updated_at = NOW()
		 WHERE id = $2 AND version = $3`,
		newStock, productID, version)
	if err != nil {
		return fmt.Errorf("update stock: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return database.ErrOptimisticLockFailed
	}

	return nil
}

func ListProducts(ctx context.Context, db *sql.DB, page, pageSize int) (*OffsetPage, error) {
	var total int64
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products`).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("count products: %w", err)
	}

	offset := (page - 1) * pageSize
	query := `
		SELECT p.id, p.producer_id, pr.name, p.sku, p.name, p.unit, p.price_cents, p.stock_quantity,
		       p.created_at, p.updated_at, p.version
		FROM products p
		JOIN producers pr ON pr.id = p.producer_id
		ORDER BY p.created_at DESC
		LIMIT $1 OFFSET $2`

	rows, err := db.QueryContext(ctx, query, pageSize, offset)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var products []models.Product
	for rows.Next() {
		var product models.Product
		err := rows.Scan(
			&product.ID,
			&product.ProducerID,
			&product.ProducerName,
			&product.SKU,
			&product.Name,
			&product.Unit,
			&product.PriceCents,
			&product.StockQuantity,
			&product.CreatedAt,
			&product.UpdatedAt,
			&product.Version,
		)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, product)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	totalPages := int(total) / pageSize
	if int(total)%pageSize > 0 {
		totalPages++
	}

	return &OffsetPage{
		Items:      products,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}, nil
}
