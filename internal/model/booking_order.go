package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order statuses.  pending moves to paid only through slip
// verification, to expired only through the stale-order sweep, and to
// cancelled only by staff.  paid, expired and cancelled are terminal.
const (
	OrderStatusPending   = "pending"
	OrderStatusPaid      = "paid"
	OrderStatusExpired   = "expired"
	OrderStatusCancelled = "cancelled"
)

// BookingOrder is the payment envelope for one or more bookings created
// together.  TotalFee is the sum of the zone fees of all tables in the
// order; when it is zero the order is born paid and has no expiry.
//
// Fields:
//  ID          – UUID primary key.
//  UserID      – user who created the order.
//  BookingDate – date the contained bookings are for.
//  TotalFee    – sum of per-table deposits.
//  Status      – pending, paid, expired, cancelled.
//  RefNbr      – normalized slip reference once the order is paid.
//  ExpiresAt   – payment deadline; set only while a fee is outstanding.
//  PaidAt      – when the order was paid (immediately for free orders).
//  CreatedAt   – creation timestamp.
//  UpdatedAt   – last update timestamp.
type BookingOrder struct {
	ID          string          // booking_orders.id (char(36) UUID)
	UserID      uint64          // booking_orders.user_id
	BookingDate time.Time       // booking_orders.booking_date
	TotalFee    decimal.Decimal // booking_orders.total_fee
	Status      string          // booking_orders.status
	RefNbr      *string         // booking_orders.ref_nbr (nullable)
	ExpiresAt   *time.Time      // booking_orders.expires_at (nullable)
	PaidAt      *time.Time      // booking_orders.paid_at (nullable)
	CreatedAt   time.Time       // booking_orders.created_at
	UpdatedAt   time.Time       // booking_orders.updated_at
}

// PaymentRef is a consumed slip reference.  A row in payment_refs means
// the reference has been bound to an order; once used_at is stamped the
// reference is permanently spent and can never pay for anything else.
//
// Fields:
//  RefNbr  – normalized slip reference, primary key.
//  OrderID – order the reference was bound to (nullable for transfers).
//  UsedAt  – when the reference was consumed.
type PaymentRef struct {
	RefNbr  string     // payment_refs.ref_nbr
	OrderID *string    // payment_refs.order_id (nullable)
	UsedAt  *time.Time // payment_refs.used_at (nullable until consumed)
}
