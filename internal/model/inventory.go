package model

import "time"

// Inventory holds the authoritative stock count of one catalog product.
// ProductID is a logical reference to Product.ID (hex form), not a foreign key.
type Inventory struct {
	ProductID   string    `gorm:"type:varchar(24);primaryKey" json:"product_id"`
	Stock       int       `gorm:"not null;default:0;check:chk_inventory_stock_non_negative,stock >= 0" json:"stock"`
	LastUpdated time.Time `json:"last_updated"`
}

func (Inventory) TableName() string {
	return "inventory"
}
