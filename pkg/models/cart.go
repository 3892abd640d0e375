package models

import (
	"time"
)

// CartItem stages an intended purchase. Product name and price are
// snapshotted at add time.
type CartItem struct {
	ClientID    string    `json:"client_id"`
	ProductID   string    `json:"product_id"`
	ProductName string    `json:"product_name"`
	UnitPrice   float64   `json:"unit_price"`
	Quantity    int       `json:"quantity"`
	AddedAt     time.Time `json:"added_at"`
}
