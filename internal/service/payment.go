package service

import (
	"context"
	"database/sql"
	"errors"
	"mime/multipart"
	"time"

	"github.com/shopspring/decimal"

	"github.com/norrapat/table-reserve/internal/model"
	"github.com/norrapat/table-reserve/internal/slipverify"
)

// VerifyPaymentResult is the outcome of a VerifyPayment call.  When
// AlreadyProcessed is set the order had left pending before this call
// and nothing was mutated; the redundant upload has been removed.
type VerifyPaymentResult struct {
	Status           string `json:"status"`
	AlreadyProcessed bool   `json:"alreadyProcessed"`
	SlipImageURL     string `json:"slip_image_url,omitempty"`
}

// VerifyPayment settles a pending order against an uploaded payment
// slip.  Order of operations matters:
//
//  1. the external provider verifies the normalized reference and
//     amount — a rejection writes nothing anywhere;
//  2. the slip image is stored — from here on every failure path must
//     remove the stored object again;
//  3. one transaction runs the stale-order sweep, claims the slip
//     reference (at most one order may ever consume a reference),
//     locks the order, checks ownership and the amount, marks the
//     order paid and its bookings confirmed, and stamps the reference
//     used.
//
// Re-submitting an order that has already left pending is answered
// with success and AlreadyProcessed instead of an error, without
// touching paid_at or ref_nbr again.
func (s *BookingService) VerifyPayment(ctx context.Context, userID uint64, orderID, refRaw string, amount decimal.Decimal, file multipart.File, header *multipart.FileHeader) (*VerifyPaymentResult, error) {
	refNbr := slipverify.NormalizeRef(refRaw)

	if err := s.verifier.Verify(ctx, refNbr, amount); err != nil {
		return nil, err
	}

	slipURL, err := s.store.Save(file, header)
	if err != nil {
		return nil, err
	}
	// Anything failing below must not leave the stored image behind.
	cleanup := func() {
		if rmErr := s.store.Remove(slipURL); rmErr != nil {
			logger.Warn().Err(rmErr).Str("slip", slipURL).Msg("slip cleanup failed")
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		cleanup()
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if _, err := s.orders.ExpireStaleTx(ctx, tx); err != nil {
		cleanup()
		return nil, err
	}

	// Claim the reference before touching the order; the claim is undone
	// by rollback on every failure path below.
	if _, err := s.refs.ClaimTx(ctx, tx, refNbr, &orderID); err != nil {
		cleanup()
		return nil, err
	}

	order, err := s.orders.LockByIDTx(ctx, tx, orderID)
	if err != nil {
		cleanup()
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	if order.UserID != userID {
		cleanup()
		return nil, ErrNotOwner
	}
	if order.Status != model.OrderStatusPending {
		// Idempotent re-submission: the winning transaction already
		// settled this order.  Roll back (releasing the claim taken
		// above) and drop the redundant upload.
		cleanup()
		return &VerifyPaymentResult{Status: order.Status, AlreadyProcessed: true}, nil
	}

	if order.TotalFee.Sub(amount).Abs().GreaterThan(amountTolerance) {
		cleanup()
		return nil, &AmountMismatchError{Expected: order.TotalFee, Got: amount}
	}

	now := time.Now().UTC()
	if err := s.orders.MarkPaidTx(ctx, tx, orderID, refNbr, now); err != nil {
		cleanup()
		return nil, err
	}
	if _, err := s.bookings.ConfirmByOrderTx(ctx, tx, orderID, slipURL); err != nil {
		cleanup()
		return nil, err
	}
	if err := s.refs.MarkUsedTx(ctx, tx, refNbr); err != nil {
		cleanup()
		return nil, err
	}
	tables, err := s.bookings.TableNumbersByOrderTx(ctx, tx, orderID)
	if err != nil {
		cleanup()
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		cleanup()
		return nil, err
	}
	committed = true

	order.Status = model.OrderStatusPaid
	s.publishConfirmed(ctx, &order, tables, refNbr)

	logger.Info().Str("order_id", orderID).Str("ref", refNbr).Msg("payment verified")
	return &VerifyPaymentResult{Status: model.OrderStatusPaid, SlipImageURL: slipURL}, nil
}
