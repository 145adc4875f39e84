package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/norrapat/table-reserve/internal/model"
)

// TableRepo provides CRUD operations for tables and the per-date
// availability views built by joining the bookings ledger.  The
// availability status of a table is never stored; it is derived from
// the presence of an active booking for the requested date.
type TableRepo struct {
	db *sql.DB
}

// NewTableRepo returns a new TableRepo bound to the given database.
func NewTableRepo(db *sql.DB) *TableRepo { return &TableRepo{db: db} }

// DB exposes the underlying handle so callers can open transactions.
func (r *TableRepo) DB() *sql.DB { return r.db }

// TableWithFee carries the catalog data CreateOrder needs per table:
// identity for the response and the effective deposit for fee summing.
type TableWithFee struct {
	ID          uint64
	TableNumber string
	Capacity    uint32
	ZoneID      uint64
	ZoneName    string
	BookingFee  *decimal.Decimal // nil means the default fee applies
}

// GetByIDsTx loads the given tables joined with their zone inside an
// existing transaction.  The result preserves ascending table ID order.
// Tables that do not exist are simply absent from the result; the
// caller compares lengths to detect unknown IDs.
func (r *TableRepo) GetByIDsTx(ctx context.Context, tx *sql.Tx, tableIDs []uint64) ([]TableWithFee, error) {
	if len(tableIDs) == 0 {
		return []TableWithFee{}, nil
	}
	placeholders := make([]string, 0, len(tableIDs))
	args := make([]interface{}, 0, len(tableIDs))
	for _, id := range tableIDs {
		placeholders = append(placeholders, "?")
		args = append(args, id)
	}
	query := `SELECT t.id, t.table_number, t.capacity, z.id, z.name, z.booking_fee
              FROM tables t
              JOIN zones z ON z.id = t.zone_id
              WHERE t.id IN (` + strings.Join(placeholders, ",") + `)
              ORDER BY t.id`
	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]TableWithFee, 0, len(tableIDs))
	for rows.Next() {
		var t TableWithFee
		var fee decimal.NullDecimal
		if err := rows.Scan(&t.ID, &t.TableNumber, &t.Capacity, &t.ZoneID, &t.ZoneName, &fee); err != nil {
			return nil, err
		}
		if fee.Valid {
			f := fee.Decimal
			t.BookingFee = &f
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// TableStatus is one table in the per-date availability view.  Status
// is "available" when no active booking exists for the date, otherwise
// the booking's own status.  Booking identifiers are only populated on
// the staff view.
type TableStatus struct {
	ID          uint64  `json:"id"`
	TableNumber string  `json:"table_number"`
	Capacity    uint32  `json:"capacity"`
	Status      string  `json:"status"`
	BookingID   *uint64 `json:"booking_id,omitempty"`
	BookedBy    *uint64 `json:"booked_by,omitempty"`
	OrderID     *string `json:"order_id,omitempty"`
}

// ZoneStatus groups the availability view by zone.
type ZoneStatus struct {
	ID          uint64           `json:"id"`
	Name        string           `json:"name"`
	Description *string          `json:"description,omitempty"`
	BookingFee  *decimal.Decimal `json:"booking_fee,omitempty"`
	Tables      []TableStatus    `json:"tables"`
}

// ListZonesWithStatus returns every zone with its tables and each
// table's derived status for the given date.  Active bookings
// (pending_payment, awaiting_confirmation, confirmed) mark a table
// taken; cancelled rows and absent rows leave it available.  When
// includeBooking is true the booking id, holder and order id are
// exposed for the staff management screen.
func (r *TableRepo) ListZonesWithStatus(ctx context.Context, date time.Time, includeBooking bool) ([]ZoneStatus, error) {
	const q = `SELECT z.id, z.name, z.description, z.booking_fee,
                      t.id, t.table_number, t.capacity,
                      b.id, b.status, b.user_id, b.order_id
               FROM zones z
               LEFT JOIN tables t ON t.zone_id = z.id
               LEFT JOIN bookings b ON b.table_id = t.id
                    AND b.booking_date = ?
                    AND b.status IN ('pending_payment','awaiting_confirmation','confirmed')
               ORDER BY z.name, t.table_number`
	rows, err := r.db.QueryContext(ctx, q, date.Format("2006-01-02"))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	zones := make([]ZoneStatus, 0)
	index := make(map[uint64]int)
	for rows.Next() {
		var (
			z          ZoneStatus
			desc       sql.NullString
			fee        decimal.NullDecimal
			tableID    sql.NullInt64
			tableNbr   sql.NullString
			capacity   sql.NullInt64
			bookingID  sql.NullInt64
			status     sql.NullString
			bookedBy   sql.NullInt64
			orderID    sql.NullString
		)
		if err := rows.Scan(&z.ID, &z.Name, &desc, &fee,
			&tableID, &tableNbr, &capacity,
			&bookingID, &status, &bookedBy, &orderID); err != nil {
			return nil, err
		}
		idx, ok := index[z.ID]
		if !ok {
			if desc.Valid {
				d := desc.String
				z.Description = &d
			}
			if fee.Valid {
				f := fee.Decimal
				z.BookingFee = &f
			}
			z.Tables = []TableStatus{}
			idx = len(zones)
			index[z.ID] = idx
			zones = append(zones, z)
		}
		if !tableID.Valid {
			continue // zone with no tables yet
		}
		ts := TableStatus{
			ID:          uint64(tableID.Int64),
			TableNumber: tableNbr.String,
			Capacity:    uint32(capacity.Int64),
			Status:      "available",
		}
		if status.Valid {
			ts.Status = status.String
			if includeBooking {
				if bookingID.Valid {
					bid := uint64(bookingID.Int64)
					ts.BookingID = &bid
				}
				if bookedBy.Valid {
					uid := uint64(bookedBy.Int64)
					ts.BookedBy = &uid
				}
				if orderID.Valid {
					oid := orderID.String
					ts.OrderID = &oid
				}
			}
		}
		zones[idx].Tables = append(zones[idx].Tables, ts)
	}
	return zones, rows.Err()
}

// Create inserts a table and returns its generated ID.
func (r *TableRepo) Create(ctx context.Context, tableNumber string, capacity uint32, zoneID uint64) (uint64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO tables (table_number, capacity, zone_id) VALUES (?, ?, ?)`,
		tableNumber, capacity, zoneID)
	if err != nil {
		if isDuplicateEntry(err) {
			return 0, ErrConflict
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByID fetches one table; sql.ErrNoRows when absent.
func (r *TableRepo) GetByID(ctx context.Context, id uint64) (model.Table, error) {
	var t model.Table
	err := r.db.QueryRowContext(ctx,
		`SELECT id, table_number, capacity, zone_id, created_at, updated_at FROM tables WHERE id = ?`,
		id).Scan(&t.ID, &t.TableNumber, &t.Capacity, &t.ZoneID, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

// Update rewrites a table's number, capacity and zone.
func (r *TableRepo) Update(ctx context.Context, id uint64, tableNumber string, capacity uint32, zoneID uint64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE tables SET table_number = ?, capacity = ?, zone_id = ? WHERE id = ?`,
		tableNumber, capacity, zoneID, id)
	if err != nil {
		if isDuplicateEntry(err) {
			return ErrConflict
		}
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a table.  Once any booking has referenced the table,
// deletion is blocked with ErrConflict to keep the ledgers coherent.
func (r *TableRepo) Delete(ctx context.Context, id uint64) error {
	var bookings int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM bookings WHERE table_id = ?`, id).Scan(&bookings); err != nil {
		return err
	}
	if bookings > 0 {
		return ErrConflict
	}
	res, err := r.db.ExecContext(ctx, `DELETE FROM tables WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
