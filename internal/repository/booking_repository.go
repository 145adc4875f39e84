package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// BookingRepo provides access to the bookings ledger.  One row exists
// per (table, booking_date) reservation attempt; a cancelled row is
// reused in place instead of inserting a sibling for the same slot.
// Every mutating method runs inside a caller-owned transaction so the
// orchestrator can compose them with the order ledger atomically.  All
// timestamp comparisons happen in UTC.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a new BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

// DB exposes the underlying handle so callers can open transactions.
func (r *BookingRepo) DB() *sql.DB { return r.db }

// BookingRow mirrors the bookings table for transactional reads.
type BookingRow struct {
	ID          uint64
	UserID      uint64
	TableID     uint64
	BookingDate time.Time
	Status      string
	OrderID     *string
}

// CountActiveForUpdateTx counts the user's active bookings for a date
// with the rows locked, so a concurrent order by the same user cannot
// slip past the quota check.  Active means confirmed,
// awaiting_confirmation or pending_payment.
func (r *BookingRepo) CountActiveForUpdateTx(ctx context.Context, tx *sql.Tx, userID uint64, date time.Time) (int, error) {
	const q = `SELECT COUNT(*) FROM bookings
               WHERE user_id = ? AND booking_date = ?
                 AND status IN ('pending_payment','awaiting_confirmation','confirmed')
               FOR UPDATE`
	var n int
	err := tx.QueryRowContext(ctx, q, userID, date.Format("2006-01-02")).Scan(&n)
	return n, err
}

// LockByTablesTx fetches and locks every booking row for the given
// tables on the given date, in ascending table_id order.  This lock is
// the concurrency control point for CreateOrder: two transactions
// touching overlapping tables serialize here, and the loser sees the
// winner's committed rows.  A consistent ascending lock order avoids
// deadlock cycles.  Tables without rows simply do not appear.
func (r *BookingRepo) LockByTablesTx(ctx context.Context, tx *sql.Tx, tableIDs []uint64, date time.Time) ([]BookingRow, error) {
	if len(tableIDs) == 0 {
		return []BookingRow{}, nil
	}
	placeholders := make([]string, 0, len(tableIDs))
	args := make([]interface{}, 0, len(tableIDs)+1)
	args = append(args, date.Format("2006-01-02"))
	for _, id := range tableIDs {
		placeholders = append(placeholders, "?")
		args = append(args, id)
	}
	query := `SELECT id, user_id, table_id, booking_date, status, order_id
              FROM bookings
              WHERE booking_date = ? AND table_id IN (` + strings.Join(placeholders, ",") + `)
              ORDER BY table_id
              FOR UPDATE`
	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]BookingRow, 0, len(tableIDs))
	for rows.Next() {
		var b BookingRow
		var orderID sql.NullString
		if err := rows.Scan(&b.ID, &b.UserID, &b.TableID, &b.BookingDate, &b.Status, &orderID); err != nil {
			return nil, err
		}
		if orderID.Valid {
			oid := orderID.String
			b.OrderID = &oid
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// InsertTx inserts one booking row for a table/date under an order.
func (r *BookingRepo) InsertTx(ctx context.Context, tx *sql.Tx, userID, tableID uint64, date time.Time, status, orderID string) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO bookings (user_id, table_id, booking_date, status, order_id) VALUES (?, ?, ?, ?, ?)`,
		userID, tableID, date.Format("2006-01-02"), status, orderID)
	return err
}

// ReuseCancelledTx rebinds an existing cancelled row to a new user,
// status and order.  The orchestrator calls this instead of InsertTx
// when LockByTablesTx found a cancelled row for the slot, keeping the
// ledger at one row per (table, date).  The status guard makes the
// update a no-op if the row was resurrected concurrently, which the
// caller detects via the affected-row count.
func (r *BookingRepo) ReuseCancelledTx(ctx context.Context, tx *sql.Tx, bookingID, userID uint64, status, orderID string) (bool, error) {
	res, err := tx.ExecContext(ctx,
		`UPDATE bookings SET user_id = ?, status = ?, order_id = ?, slip_image_url = NULL
         WHERE id = ? AND status = 'cancelled'`,
		userID, status, orderID, bookingID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ConfirmByOrderTx promotes every pending_payment booking of an order
// to confirmed and stamps the slip image, returning how many rows
// moved.  Bookings already cancelled by the sweep are left alone.
func (r *BookingRepo) ConfirmByOrderTx(ctx context.Context, tx *sql.Tx, orderID, slipImageURL string) (int64, error) {
	res, err := tx.ExecContext(ctx,
		`UPDATE bookings SET status = 'confirmed', slip_image_url = ?
         WHERE order_id = ? AND status = 'pending_payment'`,
		slipImageURL, orderID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// TableNumbersByOrderTx returns the table numbers booked under an
// order, for notification payloads.
func (r *BookingRepo) TableNumbersByOrderTx(ctx context.Context, tx *sql.Tx, orderID string) ([]string, error) {
	const q = `SELECT t.table_number FROM bookings b
               JOIN tables t ON t.id = b.table_id
               WHERE b.order_id = ? AND b.status <> 'cancelled'
               ORDER BY t.table_number`
	rows, err := tx.QueryContext(ctx, q, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	numbers := make([]string, 0)
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		numbers = append(numbers, n)
	}
	return numbers, rows.Err()
}

// LockByIDTx fetches and locks one booking row by id.  sql.ErrNoRows is
// returned when the booking does not exist.
func (r *BookingRepo) LockByIDTx(ctx context.Context, tx *sql.Tx, bookingID uint64) (BookingRow, error) {
	const q = `SELECT id, user_id, table_id, booking_date, status, order_id
               FROM bookings WHERE id = ? FOR UPDATE`
	var b BookingRow
	var orderID sql.NullString
	err := tx.QueryRowContext(ctx, q, bookingID).Scan(
		&b.ID, &b.UserID, &b.TableID, &b.BookingDate, &b.Status, &orderID)
	if err != nil {
		return b, err
	}
	if orderID.Valid {
		oid := orderID.String
		b.OrderID = &oid
	}
	return b, nil
}

// CancelTx sets one booking to cancelled, releasing its slot for reuse
// by a future order.
func (r *BookingRepo) CancelTx(ctx context.Context, tx *sql.Tx, bookingID uint64) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE bookings SET status = 'cancelled' WHERE id = ?`, bookingID)
	return err
}

// CountActiveSiblingsTx counts the other non-cancelled bookings that
// share an order, locked.  Cancel uses it to decide whether the order
// itself should be closed.
func (r *BookingRepo) CountActiveSiblingsTx(ctx context.Context, tx *sql.Tx, orderID string, excludeBookingID uint64) (int, error) {
	const q = `SELECT COUNT(*) FROM bookings
               WHERE order_id = ? AND id <> ? AND status <> 'cancelled'
               FOR UPDATE`
	var n int
	err := tx.QueryRowContext(ctx, q, orderID, excludeBookingID).Scan(&n)
	return n, err
}

// TransferTx re-points a booking to the recipient.  The original user
// loses visibility of the booking and the recipient gains it.
func (r *BookingRepo) TransferTx(ctx context.Context, tx *sql.Tx, bookingID, recipientID uint64) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE bookings SET user_id = ? WHERE id = ?`, recipientID, bookingID)
	return err
}

// BookingDetail is one row of a user's booking history, joined with
// table, zone and order information for display.
type BookingDetail struct {
	ID           uint64           `json:"id"`
	TableID      uint64           `json:"table_id"`
	TableNumber  string           `json:"table_number"`
	ZoneName     string           `json:"zone_name"`
	BookingDate  string           `json:"booking_date"`
	Status       string           `json:"status"`
	OrderID      *string          `json:"order_id,omitempty"`
	OrderStatus  *string          `json:"order_status,omitempty"`
	TotalFee     *decimal.Decimal `json:"total_fee,omitempty"`
	ExpiresAt    *string          `json:"expires_at,omitempty"`
	SlipImageURL *string          `json:"slip_image_url,omitempty"`
}

// ListByUser returns the user's bookings newest first, including
// cancelled ones so customers can see their history.
func (r *BookingRepo) ListByUser(ctx context.Context, userID uint64) ([]BookingDetail, error) {
	const q = `SELECT b.id, b.table_id, t.table_number, z.name, b.booking_date, b.status,
                      b.order_id, o.status, o.total_fee, o.expires_at, b.slip_image_url
               FROM bookings b
               JOIN tables t ON t.id = b.table_id
               JOIN zones z ON z.id = t.zone_id
               LEFT JOIN booking_orders o ON o.id = b.order_id
               WHERE b.user_id = ?
               ORDER BY b.created_at DESC`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]BookingDetail, 0)
	for rows.Next() {
		var d BookingDetail
		var date time.Time
		var orderID, orderStatus, slip sql.NullString
		var fee decimal.NullDecimal
		var expires sql.NullTime
		if err := rows.Scan(&d.ID, &d.TableID, &d.TableNumber, &d.ZoneName, &date, &d.Status,
			&orderID, &orderStatus, &fee, &expires, &slip); err != nil {
			return nil, err
		}
		d.BookingDate = date.Format("2006-01-02")
		if orderID.Valid {
			v := orderID.String
			d.OrderID = &v
		}
		if orderStatus.Valid {
			v := orderStatus.String
			d.OrderStatus = &v
		}
		if fee.Valid {
			f := fee.Decimal
			d.TotalFee = &f
		}
		if expires.Valid {
			iso := expires.Time.UTC().Format(time.RFC3339)
			d.ExpiresAt = &iso
		}
		if slip.Valid {
			v := slip.String
			d.SlipImageURL = &v
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
