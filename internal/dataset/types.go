package dataset

import (
	"time"

	"github.com/shopspring/decimal"
)

type Order struct {
	OrderID           string    `json:"order_id"`
	CustomerID        string    `json:"customer_id"`
	Status            string    `json:"order_status"`
	PurchaseTimestamp time.Time `json:"order_purchase_timestamp"`
}

// OrderItem is one line of an order. An order's monetary value is the sum
// of its items' prices; freight is tracked separately.
type OrderItem struct {
	OrderID      string          `json:"order_id"`
	ItemSeq      int             `json:"order_item_id"`
	ProductID    string          `json:"product_id"`
	SellerID     string          `json:"seller_id"`
	Price        decimal.Decimal `json:"price"`
	FreightValue decimal.Decimal `json:"freight_value"`
}

type Product struct {
	ProductID string `json:"product_id"`
	Category  string `json:"product_category_name"`
}

type Customer struct {
	CustomerID       string `json:"customer_id"`
	CustomerUniqueID string `json:"customer_unique_id"`
	ZipCodePrefix    string `json:"customer_zip_code_prefix"`
	City             string `json:"customer_city"`
	State            string `json:"customer_state"`
}

type Seller struct {
	SellerID      string `json:"seller_id"`
	ZipCodePrefix string `json:"seller_zip_code_prefix"`
	City          string `json:"seller_city"`
	State         string `json:"seller_state"`
}

type Geolocation struct {
	ZipCodePrefix string  `json:"geolocation_zip_code_prefix"`
	Lat           float64 `json:"geolocation_lat"`
	Lng           float64 `json:"geolocation_lng"`
	City          string  `json:"geolocation_city"`
	State         string  `json:"geolocation_state"`
}

type Review struct {
	ReviewID string `json:"review_id"`
	OrderID  string `json:"order_id"`
	Score    int    `json:"review_score"`
}

// Tables is one snapshot of every table the dashboard reads.
type Tables struct {
	Orders      []Order
	OrderItems  []OrderItem
	Products    []Product
	Customers   []Customer
	Sellers     []Seller
	Geolocation []Geolocation
	Reviews     []Review
}
