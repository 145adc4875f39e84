package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/norrapat/table-reserve/internal/model"
)

// OrderRepo provides access to the booking_orders ledger: the payment
// state machine of pending/paid/expired/cancelled orders.  The only way
// out of pending is a verified slip (paid), the stale-order sweep
// (expired) or staff action (cancelled); the terminal states never
// transition again.  Mutations run inside caller-owned transactions.
type OrderRepo struct {
	db *sql.DB
}

// NewOrderRepo returns a new OrderRepo bound to the given database.
func NewOrderRepo(db *sql.DB) *OrderRepo { return &OrderRepo{db: db} }

// DB exposes the underlying handle so callers can open transactions.
func (r *OrderRepo) DB() *sql.DB { return r.db }

// CreateTx inserts a new order.  ExpiresAt must be set exactly when the
// order carries an outstanding fee; PaidAt exactly when it does not.
func (r *OrderRepo) CreateTx(ctx context.Context, tx *sql.Tx, o *model.BookingOrder) error {
	var expires, paid interface{}
	if o.ExpiresAt != nil {
		expires = o.ExpiresAt.UTC().Format("2006-01-02 15:04:05")
	}
	if o.PaidAt != nil {
		paid = o.PaidAt.UTC().Format("2006-01-02 15:04:05")
	}
	_, err := tx.ExecContext(ctx,
		`INSERT INTO booking_orders (id, user_id, booking_date, total_fee, status, expires_at, paid_at)
         VALUES (?, ?, ?, ?, ?, ?, ?)`,
		o.ID, o.UserID, o.BookingDate.Format("2006-01-02"), o.TotalFee, o.Status, expires, paid)
	return err
}

// LockByIDTx fetches and locks one order row.  The lock serializes
// VerifyPayment against the sweep and against duplicate submissions for
// the same order; whichever transaction commits first wins and the
// loser re-reads the new status.  sql.ErrNoRows when absent.
func (r *OrderRepo) LockByIDTx(ctx context.Context, tx *sql.Tx, orderID string) (model.BookingOrder, error) {
	const q = `SELECT id, user_id, booking_date, total_fee, status, ref_nbr, expires_at, paid_at, created_at, updated_at
               FROM booking_orders WHERE id = ? FOR UPDATE`
	var o model.BookingOrder
	var refNbr sql.NullString
	var expires, paid sql.NullTime
	err := tx.QueryRowContext(ctx, q, orderID).Scan(
		&o.ID, &o.UserID, &o.BookingDate, &o.TotalFee, &o.Status,
		&refNbr, &expires, &paid, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return o, err
	}
	if refNbr.Valid {
		v := refNbr.String
		o.RefNbr = &v
	}
	if expires.Valid {
		t := expires.Time
		o.ExpiresAt = &t
	}
	if paid.Valid {
		t := paid.Time
		o.PaidAt = &t
	}
	return o, nil
}

// MarkPaidTx moves a pending order to paid, binds the slip reference
// and clears the expiry.  The status guard keeps the transition
// one-way even if callers race.
func (r *OrderRepo) MarkPaidTx(ctx context.Context, tx *sql.Tx, orderID, refNbr string, paidAt time.Time) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE booking_orders SET status = 'paid', ref_nbr = ?, paid_at = ?, expires_at = NULL
         WHERE id = ? AND status = 'pending'`,
		refNbr, paidAt.UTC().Format("2006-01-02 15:04:05"), orderID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrConflict
	}
	return nil
}

// CancelTx moves a pending order to cancelled (staff action).
func (r *OrderRepo) CancelTx(ctx context.Context, tx *sql.Tx, orderID string) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE booking_orders SET status = 'cancelled' WHERE id = ? AND status = 'pending'`,
		orderID)
	return err
}

// ExpireStaleTx is the stale-order sweep.  It locks every pending order
// whose expiry has passed, marks each expired and cancels its
// pending_payment bookings, all inside the caller's transaction so the
// freed capacity is visible to the rest of that transaction and commits
// atomically with it.  Re-running on an already-expired order is a
// no-op because the select only matches pending rows.  Returns the ids
// of the orders it expired.
func (r *OrderRepo) ExpireStaleTx(ctx context.Context, tx *sql.Tx) ([]string, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT id FROM booking_orders
         WHERE status = 'pending' AND expires_at IS NOT NULL AND expires_at <= UTC_TIMESTAMP()
         FOR UPDATE`)
	if err != nil {
		return nil, err
	}
	var ids []string
	for rows.Next() {
		var id string
		if scanErr := rows.Scan(&id); scanErr != nil {
			rows.Close()
			return nil, scanErr
		}
		ids = append(ids, id)
	}
	if err = rows.Close(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []string{}, nil
	}
	placeholders := make([]string, 0, len(ids))
	args := make([]interface{}, 0, len(ids))
	for _, id := range ids {
		placeholders = append(placeholders, "?")
		args = append(args, id)
	}
	in := strings.Join(placeholders, ",")
	if _, err := tx.ExecContext(ctx,
		`UPDATE booking_orders SET status = 'expired' WHERE id IN (`+in+`)`, args...); err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE bookings SET status = 'cancelled' WHERE order_id IN (`+in+`) AND status = 'pending_payment'`,
		args...); err != nil {
		return nil, err
	}
	return ids, nil
}

// DashboardStats aggregates the read-only numbers for the staff
// dashboard.
type DashboardStats struct {
	Date             string          `json:"date"`
	TotalTables      int             `json:"total_tables"`
	BookedTables     int             `json:"booked_tables"`
	PendingPayment   int             `json:"pending_payment"`
	ConfirmedRevenue decimal.Decimal `json:"confirmed_revenue"`
}

// Stats computes booking counts and paid revenue for one date.
func (r *OrderRepo) Stats(ctx context.Context, date time.Time) (DashboardStats, error) {
	day := date.Format("2006-01-02")
	out := DashboardStats{Date: day, ConfirmedRevenue: decimal.Zero}
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tables`).Scan(&out.TotalTables); err != nil {
		return out, err
	}
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM bookings WHERE booking_date = ? AND status IN ('awaiting_confirmation','confirmed')`,
		day).Scan(&out.BookedTables); err != nil {
		return out, err
	}
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM bookings WHERE booking_date = ? AND status = 'pending_payment'`,
		day).Scan(&out.PendingPayment); err != nil {
		return out, err
	}
	var revenue decimal.NullDecimal
	if err := r.db.QueryRowContext(ctx,
		`SELECT SUM(total_fee) FROM booking_orders WHERE booking_date = ? AND status = 'paid'`,
		day).Scan(&revenue); err != nil {
		return out, err
	}
	if revenue.Valid {
		out.ConfirmedRevenue = revenue.Decimal
	}
	return out, nil
}
