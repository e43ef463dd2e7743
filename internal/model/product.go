package model

import (
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	DefaultProductImage       = "https://placehold.co/600x400"
	DefaultProductDescription = "Added via Admin"
)

// Specs is the open-ended attribute bag of a product. Values are scalars or
// arrays of scalars; no key is guaranteed to exist.
type Specs map[string]interface{}

// Product is the catalog document stored in the Mongo "products" collection.
type Product struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name        string             `bson:"name" json:"name"`
	Price       decimal.Decimal    `bson:"price" json:"price"`
	Category    string             `bson:"category" json:"category"`
	Image       string             `bson:"image" json:"image"`
	Description string             `bson:"description" json:"description"`
	Specs       Specs              `bson:"specs" json:"specs"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
}

// ProductView is a catalog document joined with its inventory count.
type ProductView struct {
	Product
	Stock int `json:"stock"`
}

// CategoryCount is one row of the catalog category breakdown.
type CategoryCount struct {
	Category string `bson:"_id" json:"category"`
	Count    int64  `bson:"count" json:"count"`
}
