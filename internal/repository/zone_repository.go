package repository

import (
	"context"
	"database/sql"

	"github.com/shopspring/decimal"

	"github.com/norrapat/table-reserve/internal/model"
)

// ZoneRepo provides CRUD operations for zones.  Zones carry the
// per-table deposit charged when one of their tables is reserved and
// may not be deleted while they still own tables.
type ZoneRepo struct {
	db *sql.DB
}

// NewZoneRepo returns a new ZoneRepo bound to the given database.
func NewZoneRepo(db *sql.DB) *ZoneRepo { return &ZoneRepo{db: db} }

// DB exposes the underlying handle so callers can open transactions.
func (r *ZoneRepo) DB() *sql.DB { return r.db }

// Create inserts a zone and returns its generated ID.  BookingFee may
// be nil, in which case the default booking fee from settings applies
// to the zone's tables.
func (r *ZoneRepo) Create(ctx context.Context, name string, description *string, bookingFee *decimal.Decimal) (uint64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO zones (name, description, booking_fee) VALUES (?, ?, ?)`,
		name, description, bookingFee)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByID fetches one zone.  sql.ErrNoRows is returned when the zone
// does not exist.
func (r *ZoneRepo) GetByID(ctx context.Context, id uint64) (model.Zone, error) {
	var z model.Zone
	var desc sql.NullString
	var fee decimal.NullDecimal
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, description, booking_fee, created_at, updated_at FROM zones WHERE id = ?`,
		id).Scan(&z.ID, &z.Name, &desc, &fee, &z.CreatedAt, &z.UpdatedAt)
	if err != nil {
		return z, err
	}
	if desc.Valid {
		d := desc.String
		z.Description = &d
	}
	if fee.Valid {
		f := fee.Decimal
		z.BookingFee = &f
	}
	return z, nil
}

// List returns all zones ordered by name.
func (r *ZoneRepo) List(ctx context.Context) ([]model.Zone, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, description, booking_fee, created_at, updated_at FROM zones ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	zones := make([]model.Zone, 0)
	for rows.Next() {
		var z model.Zone
		var desc sql.NullString
		var fee decimal.NullDecimal
		if err := rows.Scan(&z.ID, &z.Name, &desc, &fee, &z.CreatedAt, &z.UpdatedAt); err != nil {
			return nil, err
		}
		if desc.Valid {
			d := desc.String
			z.Description = &d
		}
		if fee.Valid {
			f := fee.Decimal
			z.BookingFee = &f
		}
		zones = append(zones, z)
	}
	return zones, rows.Err()
}

// Update rewrites a zone's name, description and booking fee.  It
// returns sql.ErrNoRows when the zone does not exist.
func (r *ZoneRepo) Update(ctx context.Context, id uint64, name string, description *string, bookingFee *decimal.Decimal) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE zones SET name = ?, description = ?, booking_fee = ? WHERE id = ?`,
		name, description, bookingFee, id)
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

// Delete removes a zone.  Deletion is blocked with ErrConflict while
// the zone still owns tables so that bookings never dangle.
func (r *ZoneRepo) Delete(ctx context.Context, id uint64) error {
	var tables int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM tables WHERE zone_id = ?`, id).Scan(&tables); err != nil {
		return err
	}
	if tables > 0 {
		return ErrConflict
	}
	res, err := r.db.ExecContext(ctx, `DELETE FROM zones WHERE id = ?`, id)
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
