package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Sentinel and typed errors returned by the booking service.  Handlers
// translate them into HTTP statuses: 400 for bad input and rejected
// slips, 403 for ownership mismatches, 404 for missing rows, 409 for
// quota and capacity conflicts, 503 when booking is switched off.
var (
	ErrBookingDisabled   = errors.New("booking is currently disabled")
	ErrOrderNotFound     = errors.New("order not found")
	ErrBookingNotFound   = errors.New("booking not found")
	ErrNotOwner          = errors.New("resource belongs to another user")
	ErrBookingNotActive  = errors.New("booking is not active")
	ErrRecipientNotFound = errors.New("recipient not found")
	ErrSelfTransfer      = errors.New("cannot transfer a booking to yourself")
	ErrTransferFeeUnpaid = errors.New("transfer fee slip reference required")
	ErrNoTablesRequested = errors.New("at least one table is required")
)

// QuotaError reports that creating the order would push the user past
// the per-date active-booking cap.
type QuotaError struct {
	Max       int
	Existing  int
	Requested int
}

func (e *QuotaError) Error() string {
	return fmt.Sprintf("booking quota exceeded: %d active + %d requested > max %d",
		e.Existing, e.Requested, e.Max)
}

// TableConflictError names the tables that already carry an active
// booking for the requested date.  The whole order fails; there is no
// partial reservation.
type TableConflictError struct {
	TableNumbers []string
}

func (e *TableConflictError) Error() string {
	return "tables already booked: " + strings.Join(e.TableNumbers, ", ")
}

// UnknownTablesError names requested table ids that do not exist.
type UnknownTablesError struct {
	TableIDs []uint64
}

func (e *UnknownTablesError) Error() string {
	return fmt.Sprintf("unknown tables: %v", e.TableIDs)
}

// AmountMismatchError reports a paid amount that differs from the
// order's total fee by more than the accepted tolerance.
type AmountMismatchError struct {
	Expected decimal.Decimal
	Got      decimal.Decimal
}

func (e *AmountMismatchError) Error() string {
	return fmt.Sprintf("amount %s does not match the expected fee %s",
		e.Got.StringFixed(2), e.Expected.StringFixed(2))
}

// amountTolerance is the accepted difference between the transferred
// amount and the fee, covering rounding on the provider side.
var amountTolerance = decimal.RequireFromString("0.01")
