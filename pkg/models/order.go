package models

import (
	"time"
)

const (
	OrderStatusPending   = "pending"
	OrderStatusAccepted  = "accepted"
	OrderStatusRejected  = "rejected"
	OrderStatusCancelled = "cancelled"
)

// Order snapshots client and product fields at placement time. TotalAmount
// is fixed when the order is created and never recomputed, even if the
// product price changes afterwards.
type Order struct {
	ID            string     `json:"id"`
	ClientID      string     `json:"client_id"`
	ClientName    string     `json:"client_name"`
	ClientEmail   string     `json:"client_email"`
	ClientPhone   string     `json:"client_phone"`
	ClientAddress string     `json:"client_address"`
	ProductID     string     `json:"product_id"`
	ProductName   string     `json:"product_name"`
	UnitPrice     float64    `json:"unit_price"`
	Quantity      int        `json:"quantity"`
	TotalAmount   float64    `json:"total_amount"`
	Status        string     `json:"status"`
	OrderedAt     time.Time  `json:"ordered_at"`
	DispatchedAt  *time.Time `json:"dispatched_at,omitempty"`
	DispatchedBy  string     `json:"dispatched_by,omitempty"`
	Received      bool       `json:"received"`
}

// StatusChange describes a guarded lifecycle transition. The store applies
// it only when the order is still in the expected prior status.
type StatusChange struct {
	To               string
	DispatchedBy     string
	DispatchedByName string
	DispatchedAt     *time.Time
}

type OrderResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Order   *Order `json:"order,omitempty"`
}
