package model

import "time"

// Booking statuses.  A table/date slot is available when no booking row
// exists for it or the only rows are cancelled.  At most one
// non-cancelled booking may exist per (table_id, booking_date); the
// repository enforces this under row locks.
const (
	BookingStatusPendingPayment = "pending_payment"
	BookingStatusAwaitingReview = "awaiting_confirmation"
	BookingStatusConfirmed      = "confirmed"
	BookingStatusCancelled      = "cancelled"
)

// ActiveBookingStatuses are the statuses that hold a table/date slot.
var ActiveBookingStatuses = []string{
	BookingStatusPendingPayment,
	BookingStatusAwaitingReview,
	BookingStatusConfirmed,
}

// Booking is one reservation attempt for a table on a calendar date.
// Bookings created together share one order via OrderID.  A cancelled
// row for the same (table, date) is reused by UPDATE rather than
// duplicated, so the ledger does not grow without bound per slot.
//
// Fields:
//  ID           – primary key identifier.
//  UserID       – user who holds the reservation.
//  TableID      – table being reserved.
//  BookingDate  – date-only granularity; one booking per table per date.
//  Status       – pending_payment, awaiting_confirmation, confirmed, cancelled.
//  OrderID      – payment order the booking belongs to (nullable historically).
//  SlipImageURL – stored payment slip image path, once verified.
//  CreatedAt    – creation timestamp.
//  UpdatedAt    – last update timestamp.
type Booking struct {
	ID           uint64    // bookings.id
	UserID       uint64    // bookings.user_id
	TableID      uint64    // bookings.table_id
	BookingDate  time.Time // bookings.booking_date (date component only)
	Status       string    // bookings.status
	OrderID      *string   // bookings.order_id (nullable)
	SlipImageURL *string   // bookings.slip_image_url (nullable)
	CreatedAt    time.Time // bookings.created_at
	UpdatedAt    time.Time // bookings.updated_at
}
