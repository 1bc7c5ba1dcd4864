package models

import (
	"time"
)

// All monetary values are integer euro cents. Percentages (VAT) are applied
// with decimal arithmetic at computation sites, never with floats.

type Producer struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Region    string    `json:"region,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Version   int       `json:"version"`
}

type Product struct {
	ID            int64     `json:"id"`
	ProducerID    int64     `json:"producer_id"`
	ProducerName  string    `json:"producer_name,omitempty"`
	SKU           string    `json:"sku"`
	Name          string    `json:"name"`
	Unit          string    `json:"unit,omitempty"`
	PriceCents    int64     `json:"price_cents"`
	StockQuantity int       `json:"stock_quantity"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	Version       int       `json:"version"`
}

type User struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Version   int       `json:"version"`
}

// CartItem is one line of a session cart. Quantity is always >= 1 for a
// stored item; a quantity update to zero or below deletes the line.
type CartItem struct {
	ProductID      int64  `json:"product_id"`
	Title          string `json:"title"`
	UnitPriceCents int64  `json:"unit_price_cents"`
	Quantity       int    `json:"quantity"`
	ProducerID     int64  `json:"producer_id"`
	ProducerName   string `json:"producer_name"`
}

// SubtotalCents is the line subtotal.
func (i CartItem) SubtotalCents() int64 {
	return i.UnitPriceCents * int64(i.Quantity)
}

// Address is the shipping destination collected at checkout. Validation tags
// follow the Greek market rules: 5-digit postal code, Greek phone format.
type Address struct {
	FullName    string `json:"full_name" binding:"required,min=2,max=100"`
	Phone       string `json:"phone" binding:"required,gr_phone"`
	Email       string `json:"email,omitempty" binding:"omitempty,email"`
	AddressLine string `json:"address_line" binding:"required,min=5,max=200"`
	City        string `json:"city" binding:"required,min=2,max=50"`
	PostalCode  string `json:"postal_code" binding:"required,gr_postal"`
}

type Order struct {
	ID                  int64               `json:"id"`
	UserID              *int64              `json:"user_id,omitempty"`
	OrderNumber         string              `json:"order_number"`
	Status              OrderStatus         `json:"status"`
	SubtotalCents       int64               `json:"subtotal_cents"`
	ShippingCents       int64               `json:"shipping_cents"`
	TaxCents            int64               `json:"tax_cents"`
	TotalCents          int64               `json:"total_cents"`
	PaymentMethod       string              `json:"payment_method"`
	ShippingAddress     Address             `json:"shipping_address"`
	ShippingMethodLabel string              `json:"shipping_method_label"`
	Notes               string              `json:"notes,omitempty"`
	CreatedAt           time.Time           `json:"created_at"`
	UpdatedAt           time.Time           `json:"updated_at"`
	Version             int                 `json:"version"`
	Items               []OrderItem         `json:"items,omitempty"`
	ShippingLines       []OrderShippingLine `json:"shipping_lines,omitempty"`
}

type OrderItem struct {
	ID             int64     `json:"id"`
	OrderID        int64     `json:"order_id"`
	ProductID      int64     `json:"product_id"`
	ProducerID     int64     `json:"producer_id"`
	Title          string    `json:"title"`
	Quantity       int       `json:"quantity"`
	UnitPriceCents int64     `json:"unit_price_cents"`
	SubtotalCents  int64     `json:"subtotal_cents"`
	CreatedAt      time.Time `json:"created_at"`
}

// OrderShippingLine records the per-producer shipping charge that was quoted
// at checkout, so multi-producer totals stay auditable after the fact.
type OrderShippingLine struct {
	ID         int64  `json:"id"`
	OrderID    int64  `json:"order_id"`
	ProducerID int64  `json:"producer_id"`
	Carrier    string `json:"carrier"`
	CostCents  int64  `json:"cost_cents"`
	EtaDays    int    `json:"eta_days"`
	Label      string `json:"label"`
}

// Payment methods. Cash on delivery is the only method handled here; card
// payments are delegated to the external provider.
const (
	PaymentMethodCOD = "cod"
)
