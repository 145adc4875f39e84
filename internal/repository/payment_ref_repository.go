package repository

import (
	"context"
	"database/sql"
	"errors"
)

// PaymentRefRepo manages the single-use slip reference lock table.  A
// reference enters payment_refs the moment a verification transaction
// claims it and is stamped used when that transaction's state changes
// commit.  The primary key on ref_nbr is what makes one physical slip
// unspendable twice: a concurrent claim for the same reference hits a
// duplicate-key error and surfaces as ErrRefUsed.
type PaymentRefRepo struct {
	db *sql.DB
}

// NewPaymentRefRepo returns a PaymentRefRepo bound to the database.
func NewPaymentRefRepo(db *sql.DB) *PaymentRefRepo { return &PaymentRefRepo{db: db} }

// mysqlDuplicateEntry is the server error number for a unique key
// violation.
const mysqlDuplicateEntry = 1062

// ClaimTx claims a normalized slip reference for an order inside the
// caller's transaction.  Outcomes:
//
//   - the reference is unknown: a row is inserted (still unstamped) and
//     (false, nil) is returned; rolling back the transaction releases
//     the claim.
//   - the reference already belongs to this same order: (true, nil) is
//     returned so the caller can treat the submission as an idempotent
//     replay.
//   - the reference belongs to any other order (or to a transfer):
//     ErrRefUsed.
//
// The select locks the existing row so two transactions cannot both
// read "unknown"; the duplicate-key fallback covers the insert race all
// the same.
func (r *PaymentRefRepo) ClaimTx(ctx context.Context, tx *sql.Tx, refNbr string, orderID *string) (bool, error) {
	var existingOrder sql.NullString
	err := tx.QueryRowContext(ctx,
		`SELECT order_id FROM payment_refs WHERE ref_nbr = ? FOR UPDATE`,
		refNbr).Scan(&existingOrder)
	switch {
	case err == nil:
		if orderID != nil && existingOrder.Valid && existingOrder.String == *orderID {
			return true, nil
		}
		return false, ErrRefUsed
	case errors.Is(err, sql.ErrNoRows):
		// fall through to insert
	default:
		return false, err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO payment_refs (ref_nbr, order_id) VALUES (?, ?)`,
		refNbr, orderID); err != nil {
		if isDuplicateEntry(err) {
			return false, ErrRefUsed
		}
		return false, err
	}
	return false, nil
}

// MarkUsedTx permanently stamps a claimed reference.  After the owning
// transaction commits the reference can never pay for anything again.
func (r *PaymentRefRepo) MarkUsedTx(ctx context.Context, tx *sql.Tx, refNbr string) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE payment_refs SET used_at = UTC_TIMESTAMP() WHERE ref_nbr = ?`, refNbr)
	return err
}
