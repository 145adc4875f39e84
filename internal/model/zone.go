package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Zone groups tables that share a location inside the restaurant and a
// deposit policy.  BookingFee is the per-table deposit charged when a
// table in this zone is reserved; when nil the process-wide default
// booking fee from settings applies.
//
// Fields:
//  ID          – primary key identifier.
//  Name        – human-facing zone name (e.g. "Riverside").
//  Description – optional free-text description.
//  BookingFee  – per-table deposit, nullable.
//  CreatedAt   – creation timestamp.
//  UpdatedAt   – last update timestamp.
type Zone struct {
	ID          uint64           // zones.id
	Name        string           // zones.name
	Description *string          // zones.description (nullable)
	BookingFee  *decimal.Decimal // zones.booking_fee (nullable)
	CreatedAt   time.Time        // zones.created_at
	UpdatedAt   time.Time        // zones.updated_at
}

// Table is a bookable seat group inside a zone.  A table is booked per
// calendar date; its availability for a date is derived from the
// bookings ledger, never stored on the row itself.
//
// Fields:
//  ID          – primary key identifier.
//  TableNumber – human-facing table number, unique within the restaurant.
//  Capacity    – number of guests the table seats.
//  ZoneID      – owning zone.
//  CreatedAt   – creation timestamp.
//  UpdatedAt   – last update timestamp.
type Table struct {
	ID          uint64    // tables.id
	TableNumber string    // tables.table_number
	Capacity    uint32    // tables.capacity
	ZoneID      uint64    // tables.zone_id
	CreatedAt   time.Time // tables.created_at
	UpdatedAt   time.Time // tables.updated_at
}
