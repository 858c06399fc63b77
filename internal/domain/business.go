package domain

import (
	"strings"
	"time"
)

// Order mirrors a row of the UserOrders table.
type Order struct {
	OrderID        int    `json:"OrderID" yaml:"order_id" firestore:"order_id"`
	UserID         UserID `json:"UserID" yaml:"user_id" firestore:"user_id"`
	ProductID      int    `json:"ProductID" yaml:"product_id" firestore:"product_id"`
	ProductName    string `json:"ProductName" yaml:"product_name" firestore:"product_name"`
	Quantity       int    `json:"Quantity" yaml:"quantity" firestore:"quantity"`
	UserAddress    string `json:"UserAddress" yaml:"user_address" firestore:"user_address"`
	OrderPlaceDate string `json:"OrderPlaceDate" yaml:"order_place_date" firestore:"order_place_date"` // DD-MM-YYYY
	DeliveryDate   string `json:"DeliveryDate" yaml:"delivery_date" firestore:"delivery_date"`         // DD-MM-YYYY
}

type Product struct {
	ProductID   int     `json:"ProductID" yaml:"product_id" firestore:"product_id"`
	ProductName string  `json:"ProductName" yaml:"product_name" firestore:"product_name"`
	Category    string  `json:"Category" yaml:"category" firestore:"category"`
	SubCategory string  `json:"SubCategory" yaml:"sub_category" firestore:"sub_category"`
	PriceUSD    float64 `json:"PriceUSD" yaml:"price_usd" firestore:"price_usd"`
	Description string  `json:"Description" yaml:"description" firestore:"description"`
}

// Matches reports whether query appears, case-insensitively, in the name,
// category or description of the product.
func (p Product) Matches(query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	return strings.Contains(strings.ToLower(p.ProductName), q) ||
		strings.Contains(strings.ToLower(p.Category), q) ||
		strings.Contains(strings.ToLower(p.Description), q)
}

type Transaction struct {
	TransactionID       int     `json:"TransactionID" yaml:"transaction_id" firestore:"transaction_id"`
	UserID              UserID  `json:"UserID" yaml:"user_id" firestore:"user_id"`
	PaymentMethod       string  `json:"PaymentMethod" yaml:"payment_method" firestore:"payment_method"`
	AmountUSD           float64 `json:"AmountUSD" yaml:"amount_usd" firestore:"amount_usd"`
	TransactionDateTime string  `json:"TransactionDateTime" yaml:"transaction_date_time" firestore:"transaction_date_time"` // DD-MM-YYYY HH:MM:SS
}

// Feedback is one entry of the feedback log. Rating is between 1 and 5.
type Feedback struct {
	UserID      UserID    `json:"UserID" yaml:"user_id" firestore:"user_id"`
	Rating      int       `json:"Rating" yaml:"rating" firestore:"rating"`
	Description string    `json:"Description" yaml:"description" firestore:"description"`
	CreatedAt   time.Time `json:"CreatedAt" yaml:"created_at" firestore:"created_at"`
}

// HandoffRequest records that a user asked to talk to a human.
type HandoffRequest struct {
	Name        string    `json:"name" firestore:"name"`
	RequestedAt time.Time `json:"requested_at" firestore:"requested_at"`
}

// Ack is the success acknowledgment returned by command operations.
type Ack struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

const (
	MinRating = 1
	MaxRating = 5
)
