package model

import "time"

// OrderStatusTrustPaid marks an order accepted on trust, with no payment verification.
const OrderStatusTrustPaid = "TRUST_PAID"

type Order struct {
	ID        string    `json:"order_id"`
	UserID    string    `json:"user_id"`
	Amount    float64   `json:"amount"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}
