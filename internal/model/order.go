package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

// Intended lifecycle: Processing -> Shipped -> Delivered, or Cancelled.
// Transitions are not enforced.
const (
	StatusProcessing OrderStatus = "Processing"
	StatusShipped    OrderStatus = "Shipped"
	StatusDelivered  OrderStatus = "Delivered"
	StatusCancelled  OrderStatus = "Cancelled"
)

// Order is the ledger header. TotalAmount is frozen at checkout.
type Order struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	CustomerName    string          `gorm:"type:varchar(100)" json:"customer_name"`
	CustomerEmail   string          `gorm:"type:varchar(120)" json:"customer_email"`
	ShippingAddress string          `gorm:"type:varchar(255)" json:"shipping_address"`
	City            string          `gorm:"type:varchar(100)" json:"city"`
	ZipCode         string          `gorm:"type:varchar(20)" json:"zip_code"`
	TotalAmount     decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"total_amount"`
	Status          OrderStatus     `gorm:"type:varchar(20);default:'Processing';index" json:"status"`
	CreatedAt       time.Time       `gorm:"index" json:"created_at"`
	Items           []OrderItem     `gorm:"constraint:OnDelete:CASCADE" json:"items"`
}

func (Order) TableName() string {
	return "orders"
}

// OrderItem is a ledger line. PriceAtPurchase never changes after checkout,
// and ProductID may point at a product that has since been edited or deleted.
type OrderItem struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	OrderID         uint            `gorm:"index;not null" json:"order_id"`
	ProductID       string          `gorm:"type:varchar(24);not null;index" json:"product_id"`
	Quantity        int             `gorm:"not null;check:chk_order_items_quantity_positive,quantity > 0" json:"quantity"`
	PriceAtPurchase decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price_at_purchase"`
}

func (OrderItem) TableName() string {
	return "order_items"
}
