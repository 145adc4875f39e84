// Package queue defines message payloads exchanged over the message broker.
package queue

// BookingConfirmedEvent is published when an order is paid (or created
// free of charge and auto-confirmed).  It carries enough information
// for downstream consumers to notify the customer or feed analytics
// without querying the primary database.
type BookingConfirmedEvent struct {
	OrderID      string   `json:"order_id"`
	UserID       uint64   `json:"user_id"`
	BookingDate  string   `json:"booking_date"`
	TableNumbers []string `json:"tables"`
	TotalFee     string   `json:"total_fee"`
	RefNbr       string   `json:"ref_nbr,omitempty"`
	ConfirmedAt  string   `json:"confirmed_at"`
}
