package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/norrapat/table-reserve/internal/model"
	"github.com/norrapat/table-reserve/internal/slipverify"
)

// CancelBooking sets one booking to cancelled, releasing its
// (table, date) slot for reuse by a future order.  Customers may cancel
// their own bookings; staff and admins may cancel anyone's.  When the
// cancelled booking was the order's last active one and the order is
// still pending, the order is closed too so the sweep never has to.
func (s *BookingService) CancelBooking(ctx context.Context, callerID uint64, callerRole string, bookingID uint64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	b, err := s.bookings.LockByIDTx(ctx, tx, bookingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrBookingNotFound
		}
		return err
	}
	staff := callerRole == model.RoleStaff || callerRole == model.RoleAdmin
	if !staff && b.UserID != callerID {
		return ErrNotOwner
	}
	if b.Status == model.BookingStatusCancelled {
		return ErrBookingNotActive
	}
	if err := s.bookings.CancelTx(ctx, tx, bookingID); err != nil {
		return err
	}
	if b.OrderID != nil {
		active, err := s.bookings.CountActiveSiblingsTx(ctx, tx, *b.OrderID, bookingID)
		if err != nil {
			return err
		}
		if active == 0 {
			if err := s.orders.CancelTx(ctx, tx, *b.OrderID); err != nil {
				return err
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	logger.Info().Uint64("booking_id", bookingID).Uint64("caller", callerID).Msg("booking cancelled")
	return nil
}

// TransferBooking re-points a booking to the recipient.  When the
// transfer fee setting is positive the caller must present a payment
// slip reference for the fee; the reference is verified against the
// provider and consumed through the same single-use lock table as
// order payments, so one slip can never fund two transfers (or a
// transfer plus an order).
func (s *BookingService) TransferBooking(ctx context.Context, callerID, bookingID, recipientID uint64, refRaw string, amount decimal.Decimal) error {
	if recipientID == callerID {
		return ErrSelfTransfer
	}
	cfg, err := s.settings.ReadBookingSettings(ctx)
	if err != nil {
		return err
	}
	ok, err := s.users.Exists(ctx, recipientID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrRecipientNotFound
	}

	feeDue := cfg.TransferFee.IsPositive()
	refNbr := slipverify.NormalizeRef(refRaw)
	if feeDue {
		if refNbr == "" {
			return ErrTransferFeeUnpaid
		}
		if cfg.TransferFee.Sub(amount).Abs().GreaterThan(amountTolerance) {
			return &AmountMismatchError{Expected: cfg.TransferFee, Got: amount}
		}
		if err := s.verifier.Verify(ctx, refNbr, amount); err != nil {
			return err
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	b, err := s.bookings.LockByIDTx(ctx, tx, bookingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrBookingNotFound
		}
		return err
	}
	if b.UserID != callerID {
		return ErrNotOwner
	}
	if b.Status != model.BookingStatusConfirmed && b.Status != model.BookingStatusAwaitingReview {
		return ErrBookingNotActive
	}

	if feeDue {
		// Transfer fees are not bound to an order; the nil order id
		// still occupies the reference permanently.
		if _, err := s.refs.ClaimTx(ctx, tx, refNbr, nil); err != nil {
			return err
		}
		if err := s.refs.MarkUsedTx(ctx, tx, refNbr); err != nil {
			return err
		}
	}
	if err := s.bookings.TransferTx(ctx, tx, bookingID, recipientID); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	logger.Info().
		Uint64("booking_id", bookingID).
		Uint64("from", callerID).
		Uint64("to", recipientID).
		Msg("booking transferred")
	return nil
}
