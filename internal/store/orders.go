package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dixis/marketplace/internal/checkout"
	"github.com/dixis/marketplace/internal/database"
	"github.com/dixis/marketplace/internal/models"
	"github.com/dixis/marketplace/internal/shipping"
)

// Greek VAT applied to the goods subtotal.
var vatRate = decimal.New(24, -2)

// Placer adapts the order store to the checkout machine's OrderPlacer.
type Placer struct {
	DB *sql.DB
}

func (p *Placer) PlaceOrder(ctx context.Context, req checkout.PlaceOrderRequest) (*models.Order, error) {
	return CreateOrder(ctx, p.DB, CreateOrderRequest{
		UserID:        req.UserID,
		Items:         req.Items,
		Address:       req.Address,
		Quote:         req.Quote,
		PaymentMethod: req.PaymentMethod,
		Notes:         req.Notes,
	})
}

type CreateOrderRequest struct {
	UserID        *int64
	Items         []models.CartItem
	Address       models.Address
	Quote         *shipping.Quote
	PaymentMethod string
	Notes         string
}

func generateOrderNumber() string {
	return fmt.Sprintf("DX-%d", time.Now().UnixNano())
}

// vatCents computes the VAT charge on a subtotal with half-up rounding.
func vatCents(subtotalCents int64) int64 {
	return decimal.NewFromInt(subtotalCents).Mul(vatRate).Round(0).IntPart()
}

// methodLabel summarizes the quote for the order's display line.
func methodLabel(quote *shipping.Quote) string {
	if quote.State == shipping.StateSingle {
		return quote.Lines[0].Carrier
	}
	return fmt.Sprintf("%s (%d αποστολές)", quote.Lines[0].Carrier, len(quote.Lines))
}

// CreateOrder persists a checkout submission: it re-validates stock and
// prices against the catalog under locks, prices the order (goods + quoted
// shipping + VAT), decrements stock and writes the order with its items and
// per-producer shipping lines, all in one serializable transaction.
func CreateOrder(ctx context.Context, db *sql.DB, req CreateOrderRequest) (*models.Order, error) {
	if len(req.Items) == 0 {
		return nil, checkout.ErrEmptyCart
	}
	if !req.Quote.Usable() {
		return nil, checkout.ErrQuoteRequired
	}

	var order *models.Order

	err := database.WithRetry(ctx, db, database.TxOptions{
		IsolationLevel: sql.LevelSerializable,
		MaxRetries:     3,
	}, func(tx *sql.Tx) error {
		var subtotalCents int64
		prices := make(map[int64]int64)

		for _, item := range req.Items {
			var priceCents int64
			var stockQuantity int

			// Catalog price is authoritative over whatever the cart
			// carried; the cart copy is display-only.
			err := tx.QueryRowContext(ctx,
				`SELECT price_cents, stock_quantity
				 FROM products
				 WHERE id = $1
				 FOR UPDATE NOWAIT`,
				item.ProductID).Scan(&priceCents, &stockQuantity)
			if err != nil {
				if err == sql.ErrNoRows {
					return database.ErrProductNotFound
				}
				return fmt.Errorf("lock product %d: %w", item.ProductID, err)
			}

			if stockQuantity < item.Quantity {
				return database.ErrInsufficientStock
			}

			prices[item.ProductID] = priceCents
			subtotalCents += priceCents * int64(item.Quantity)
		}

		shippingCents := req.Quote.TotalCents
		taxCents := vatCents(subtotalCents)
		totalCents := subtotalCents + shippingCents + taxCents

		var userID sql.NullInt64
		if req.UserID != nil {
			userID = sql.NullInt64{Int64: *req.UserID, Valid: true}
		}

		var orderID int64
		err := tx.QueryRowContext(ctx,
			`INSERT INTO orders (user_id, order_number, status,
			     subtotal_cents, shipping_cents, tax_cents, total_cents,
			     payment_method, ship_full_name, ship_phone, ship_email,
			     ship_address_line, ship_city, ship_postal_code,
			     shipping_method_label, notes, created_at, updated_at, version)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, NOW(), NOW(), 1)
			 RETURNING id`,
			userID, generateOrderNumber(), models.OrderStatusPending,
			subtotalCents, shippingCents, taxCents, totalCents,
			req.PaymentMethod, req.Address.FullName, req.Address.Phone, req.Address.Email,
			req.Address.AddressLine, req.Address.City, req.Address.PostalCode,
			methodLabel(req.Quote), req.Notes).Scan(&orderID)
		if err != nil {
			return fmt.Errorf("create order: %w", err)
		}

		for _, item := range req.Items {
			unitPrice := prices[item.ProductID]
			lineSubtotal := unitPrice * int64(item.Quantity)

			_, err = tx.ExecContext(ctx,
				`INSERT INTO order_items (order_id, product_id, producer_id, title, quantity, unit_price_cents, subtotal_cents, created_at)
				 VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())`,
				orderID, item.ProductID, item.ProducerID, item.Title, item.Quantity, unitPrice, lineSubtotal)
			if err != nil {
				return fmt.Errorf("create order item: %w", err)
			}

			result, err := tx.ExecContext(ctx,
				`UPDATE products
				 SET stock_quantity = stock_quantity - $1,
				     updated_at = NOW()
				 WHERE id = $2
				   AND stock_quantity >= $1`,
				item.Quantity, item.ProductID)
			if err != nil {
				return fmt.Errorf("update stock: %w", err)
			}

			rowsAffected, err := result.RowsAffected()
			if err != nil {
				return fmt.Errorf("get rows affected: %w", err)
			}
			if rowsAffected == 0 {
				return database.ErrInsufficientStock
			}
		}

		for _, line := range req.Quote.Lines {
			_, err = tx.ExecContext(ctx,
				`INSERT INTO order_shipping_lines (order_id, producer_id, carrier, cost_cents, eta_days, label)
				 VALUES ($1, $2, $3, $4, $5, $6)`,
				orderID, line.ProducerID, line.Carrier, line.CostCents, line.EtaDays, line.Label)
			if err != nil {
				return fmt.Errorf("create shipping line: %w", err)
			}
		}

		var fetchErr error
		order, fetchErr = getOrderTx(ctx, tx, orderID)
		return fetchErr
	})

	if err != nil {
		return nil, err
	}

	return order, nil
}

const orderColumns = `
	id, user_id, order_number, status,
	subtotal_cents, shipping_cents, tax_cents, total_cents,
	payment_method, ship_full_name, ship_phone, ship_email,
	ship_address_line, ship_city, ship_postal_code,
	shipping_method_label, notes, created_at, updated_at, version`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*models.Order, error) {
	order := &models.Order{}
	var userID sql.NullInt64
	var status string

	err := row.Scan(
		&order.ID,
		&userID,
		&order.OrderNumber,
		&status,
		&order.SubtotalCents,
		&order.ShippingCents,
		&order.TaxCents,
		&order.TotalCents,
		&order.PaymentMethod,
		&order.ShippingAddress.FullName,
		&order.ShippingAddress.Phone,
		&order.ShippingAddress.Email,
		&order.ShippingAddress.AddressLine,
		&order.ShippingAddress.City,
		&order.ShippingAddress.PostalCode,
		&order.ShippingMethodLabel,
		&order.Notes,
		&order.CreatedAt,
		&order.UpdatedAt,
		&order.Version,
	)
	if err != nil {
		return nil, err
	}

	if userID.Valid {
		order.UserID = &userID.Int64
	}
	order.Status, err = models.ParseStatus(status)
	if err != nil {
		return nil, fmt.Errorf("scan order %d: %w", order.ID, err)
	}
	return order, nil
}

func GetOrder(ctx context.Context, db *sql.DB, id int64) (*models.Order, error) {
	order, err := scanOrder(db.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	if err := hydrateOrder(ctx, db, order); err != nil {
		return nil, err
	}
	return order, nil
}

func getOrderTx(ctx context.Context, tx *sql.Tx, id int64) (*models.Order, error) {
	order, err := scanOrder(tx.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("fetch created order: %w", err)
	}
	if err := hydrateOrder(ctx, tx, order); err != nil {
		return nil, err
	}
	return order, nil
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func hydrateOrder(ctx context.Context, q querier, order *models.Order) error {
	rows, err := q.QueryContext(ctx,
		`SELECT id, order_id, product_id, producer_id, title, quantity, unit_price_cents, subtotal_cents, created_at
		 FROM order_items
		 WHERE order_id = $1
		 ORDER BY id`, order.ID)
	if err != nil {
		return fmt.Errorf("get order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item models.OrderItem
		err := rows.Scan(
			&item.ID,
			&item.OrderID,
			&item.ProductID,
			&item.ProducerID,
			&item.Title,
			&item.Quantity,
			&item.UnitPriceCents,
			&item.SubtotalCents,
			&item.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("scan order item: %w", err)
		}
		order.Items = append(order.Items, item)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("rows error: %w", err)
	}

	lineRows, err := q.QueryContext(ctx,
		`SELECT id, order_id, producer_id, carrier, cost_cents, eta_days, label
		 FROM order_shipping_lines
		 WHERE order_id = $1
		 ORDER BY id`, order.ID)
	if err != nil {
		return fmt.Errorf("get shipping lines: %w", err)
	}
	defer lineRows.Close()

	for lineRows.Next() {
		var line models.OrderShippingLine
		err := lineRows.Scan(
			&line.ID,
			&line.OrderID,
			&line.ProducerID,
			&line.Carrier,
			&line.CostCents,
			&line.EtaDays,
			&line.Label,
		)
		if err != nil {
			return fmt.Errorf("scan shipping line: %w", err)
		}
		order.ShippingLines = append(order.ShippingLines, line)
	}
	return lineRows.Err()
}

// UpdateOrderStatus advances an order along the transition table. A step
// outside the table fails with ErrInvalidTransition; the table here is the
// enforcement point, not the UI's advisory copy.
func UpdateOrderStatus(ctx context.Context, db *sql.DB, id int64, next models.OrderStatus) (*models.Order, error) {
	if !next.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", database.ErrInvalidTransition, next)
	}

	var order *models.Order

	err := database.WithTransaction(ctx, db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		var rawStatus string
		err := tx.QueryRowContext(ctx,
			`SELECT status FROM orders WHERE id = $1 FOR UPDATE`, id).Scan(&rawStatus)
		if err != nil {
			if err == sql.ErrNoRows {
				return database.ErrOrderNotFound
			}
			return fmt.Errorf("lock order: %w", err)
		}

		current, err := models.ParseStatus(rawStatus)
		if err != nil {
			return err
		}

		if !models.CanTransition(current, next) {
			return fmt.Errorf("%w: %s -> %s", database.ErrInvalidTransition, current, next)
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE orders
			 SET status = $1, version = version + 1, updated_at = NOW()
			 WHERE id = $2`,
			next, id)
		if err != nil {
			return fmt.Errorf("update order status: %w", err)
		}

		order, err = getOrderTx(ctx, tx, id)
		return err
	})

	if err != nil {
		return nil, err
	}
	return order, nil
}

// ListOrdersCursor pages a user's orders newest-first with keyset
// pagination.
func ListOrdersCursor(ctx context.Context, db *sql.DB, userID int64, cursor string, limit int) (*CursorPage, error) {
	cursorData, err := DecodeCursor(cursor)
	if err != nil {
		return nil, fmt.Errorf("decode cursor: %w", err)
	}

	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE user_id = $1
		  AND (created_at, id) < ($2, $3)
		ORDER BY created_at DESC, id DESC
		LIMIT $4`

	rows, err := db.QueryContext(ctx, query, userID, cursorData.CreatedAt, cursorData.ID, limit+1)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var orders []models.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, *order)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	hasMore := len(orders) > limit
	if hasMore {
		orders = orders[:limit]
	}

	var nextCursor string
	if hasMore && len(orders) > 0 {
		lastOrder := orders[len(orders)-1]
		nextCursor = EncodeCursor(OrderCursor{
			CreatedAt: lastOrder.CreatedAt,
			ID:        lastOrder.ID,
		})
	}

	return &CursorPage{
		Items:      orders,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}, nil
}
