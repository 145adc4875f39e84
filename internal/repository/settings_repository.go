package repository

import (
	"context"
	"database/sql"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/norrapat/table-reserve/internal/model"
)

// SettingsRepo reads and writes the name/value settings table.  Values
// are read fresh on every call; nothing is cached in process, so an
// admin change is visible to the next request.
type SettingsRepo struct {
	db *sql.DB
}

// NewSettingsRepo returns a SettingsRepo bound to the given database.
func NewSettingsRepo(db *sql.DB) *SettingsRepo { return &SettingsRepo{db: db} }

// ReadBookingSettings loads the booking knobs from the settings table.
// Missing names default to false/0.  Malformed values are treated as
// missing rather than failing the request.
func (r *SettingsRepo) ReadBookingSettings(ctx context.Context) (model.BookingSettings, error) {
	out := model.BookingSettings{
		DefaultBookingFee: decimal.Zero,
		TransferFee:       decimal.Zero,
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT name, value FROM settings WHERE name IN (?, ?, ?, ?)`,
		model.SettingBookingEnabled,
		model.SettingMaxBookingsPerUser,
		model.SettingDefaultBookingFee,
		model.SettingTransferFee,
	)
	if err != nil {
		return out, err
	}
	defer rows.Close()
	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return out, err
		}
		value = strings.TrimSpace(value)
		switch name {
		case model.SettingBookingEnabled:
			out.BookingEnabled = value == "1" || strings.EqualFold(value, "true")
		case model.SettingMaxBookingsPerUser:
			if n, convErr := strconv.Atoi(value); convErr == nil && n >= 0 {
				out.MaxBookingsPerUser = n
			}
		case model.SettingDefaultBookingFee:
			if d, convErr := decimal.NewFromString(value); convErr == nil && !d.IsNegative() {
				out.DefaultBookingFee = d
			}
		case model.SettingTransferFee:
			if d, convErr := decimal.NewFromString(value); convErr == nil && !d.IsNegative() {
				out.TransferFee = d
			}
		}
	}
	return out, rows.Err()
}

// ListAll returns every settings row as a name→value map for the admin
// settings screen.
func (r *SettingsRepo) ListAll(ctx context.Context) (map[string]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT name, value FROM settings`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return nil, err
		}
		out[name] = value
	}
	return out, rows.Err()
}

// Upsert writes one setting, inserting or replacing its value.
func (r *SettingsRepo) Upsert(ctx context.Context, name, value string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO settings (name, value) VALUES (?, ?) ON DUPLICATE KEY UPDATE value = VALUES(value)`,
		name, value)
	return err
}
