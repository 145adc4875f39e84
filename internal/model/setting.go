package model

import "github.com/shopspring/decimal"

// Setting names recognised by the settings reader.  Unknown or missing
// names default to zero values.
const (
	SettingBookingEnabled     = "booking_enabled"
	SettingMaxBookingsPerUser = "max_bookings_per_user"
	SettingDefaultBookingFee  = "default_booking_fee"
	SettingTransferFee        = "transfer_fee"
)

// BookingSettings holds the process-wide booking knobs read fresh per
// request from the settings table.
//
// Fields:
//  BookingEnabled     – master switch for the create-order endpoint.
//  MaxBookingsPerUser – per-user active-booking cap per date; 0 = unlimited.
//  DefaultBookingFee  – deposit used when a zone has no fee of its own.
//  TransferFee        – fee charged when a booking changes hands.
type BookingSettings struct {
	BookingEnabled     bool
	MaxBookingsPerUser int
	DefaultBookingFee  decimal.Decimal
	TransferFee        decimal.Decimal
}
