// Package service implements the booking/order orchestrator: the
// transactional workflows that reserve tables, verify payment slips,
// expire stale orders and move bookings between users.  All
// cross-request coordination is delegated to database row locks; the
// service holds no mutable state of its own.
package service

import (
	"context"
	"database/sql"
	"os"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/norrapat/table-reserve/internal/model"
	q "github.com/norrapat/table-reserve/internal/queue"
	"github.com/norrapat/table-reserve/internal/repository"
	"github.com/norrapat/table-reserve/internal/slipverify"
	"github.com/norrapat/table-reserve/internal/storage"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Str("component", "booking-service").Logger()

// BookingService composes the settings reader, the catalog and the two
// ledgers inside database transactions.  All writes to bookings and
// booking_orders go through here.
type BookingService struct {
	db       *sql.DB
	settings *repository.SettingsRepo
	tables   *repository.TableRepo
	bookings *repository.BookingRepo
	orders   *repository.OrderRepo
	refs     *repository.PaymentRefRepo
	users    *repository.UserRepo
	verifier slipverify.Verifier
	store    storage.SlipStore
	notify   Notifier
	holdTTL  time.Duration
}

// NewBookingService wires the orchestrator.  holdTTL is the payment
// window granted to orders that carry a fee.
func NewBookingService(
	db *sql.DB,
	settings *repository.SettingsRepo,
	tables *repository.TableRepo,
	bookings *repository.BookingRepo,
	orders *repository.OrderRepo,
	refs *repository.PaymentRefRepo,
	users *repository.UserRepo,
	verifier slipverify.Verifier,
	store storage.SlipStore,
	notify Notifier,
	holdTTL time.Duration,
) *BookingService {
	if db == nil || settings == nil || tables == nil || bookings == nil || orders == nil || refs == nil || users == nil {
		panic("nil dependency passed to NewBookingService")
	}
	if holdTTL <= 0 {
		holdTTL = 15 * time.Minute
	}
	return &BookingService{
		db:       db,
		settings: settings,
		tables:   tables,
		bookings: bookings,
		orders:   orders,
		refs:     refs,
		users:    users,
		verifier: verifier,
		store:    store,
		notify:   notify,
		holdTTL:  holdTTL,
	}
}

// BookedTable is one reserved table in a create-order response.
type BookedTable struct {
	TableID     uint64          `json:"table_id"`
	TableNumber string          `json:"table_number"`
	ZoneName    string          `json:"zone_name"`
	Fee         decimal.Decimal `json:"fee"`
}

// CreateOrderResult is the outcome of a successful CreateOrder.
type CreateOrderResult struct {
	OrderID         string          `json:"orderId"`
	RequiresPayment bool            `json:"requiresPayment"`
	Status          string          `json:"status"`
	TotalFee        decimal.Decimal `json:"totalFee"`
	ExpiresAt       *time.Time      `json:"expiresAt,omitempty"`
	Tables          []BookedTable   `json:"tables"`
}

// CreateOrder reserves the given tables for the date in one
// transaction.  The stale-order sweep runs first so capacity freed by
// timed-out orders is visible to this transaction; then the user's
// quota rows and the requested slot rows are locked — quota first, then
// slots in ascending table id, so concurrent orders cannot deadlock.
// Any table with a non-cancelled booking fails the whole order; there
// is no partial reservation.  A zero total fee confirms the order
// immediately, otherwise the order gets a payment window of holdTTL.
func (s *BookingService) CreateOrder(ctx context.Context, userID uint64, tableIDs []uint64, bookingDate time.Time) (*CreateOrderResult, error) {
	ids := dedupeSorted(tableIDs)
	if len(ids) == 0 {
		return nil, ErrNoTablesRequested
	}

	cfg, err := s.settings.ReadBookingSettings(ctx)
	if err != nil {
		return nil, err
	}
	if !cfg.BookingEnabled {
		return nil, ErrBookingDisabled
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	// Release capacity held by timed-out orders before checking anything.
	if _, err := s.orders.ExpireStaleTx(ctx, tx); err != nil {
		return nil, err
	}

	if cfg.MaxBookingsPerUser > 0 {
		existing, err := s.bookings.CountActiveForUpdateTx(ctx, tx, userID, bookingDate)
		if err != nil {
			return nil, err
		}
		if existing+len(ids) > cfg.MaxBookingsPerUser {
			return nil, &QuotaError{Max: cfg.MaxBookingsPerUser, Existing: existing, Requested: len(ids)}
		}
	}

	tables, err := s.tables.GetByIDsTx(ctx, tx, ids)
	if err != nil {
		return nil, err
	}
	if len(tables) != len(ids) {
		return nil, &UnknownTablesError{TableIDs: missingIDs(ids, tables)}
	}
	byID := make(map[uint64]repository.TableWithFee, len(tables))
	for _, t := range tables {
		byID[t.ID] = t
	}

	locked, err := s.bookings.LockByTablesTx(ctx, tx, ids, bookingDate)
	if err != nil {
		return nil, err
	}
	reusable := make(map[uint64]uint64, len(locked)) // table id -> cancelled booking id
	var conflicts []string
	for _, row := range locked {
		if row.Status != model.BookingStatusCancelled {
			conflicts = append(conflicts, byID[row.TableID].TableNumber)
			continue
		}
		reusable[row.TableID] = row.ID
	}
	if len(conflicts) > 0 {
		return nil, &TableConflictError{TableNumbers: conflicts}
	}

	totalFee := decimal.Zero
	booked := make([]BookedTable, 0, len(ids))
	for _, id := range ids {
		t := byID[id]
		fee := cfg.DefaultBookingFee
		if t.BookingFee != nil {
			fee = *t.BookingFee
		}
		totalFee = totalFee.Add(fee)
		booked = append(booked, BookedTable{
			TableID:     t.ID,
			TableNumber: t.TableNumber,
			ZoneName:    t.ZoneName,
			Fee:         fee,
		})
	}

	now := time.Now().UTC()
	requiresPayment := totalFee.IsPositive()
	order := &model.BookingOrder{
		ID:          uuid.NewString(),
		UserID:      userID,
		BookingDate: bookingDate,
		TotalFee:    totalFee,
		Status:      model.OrderStatusPaid,
	}
	bookingStatus := model.BookingStatusConfirmed
	if requiresPayment {
		order.Status = model.OrderStatusPending
		expires := now.Add(s.holdTTL)
		order.ExpiresAt = &expires
		bookingStatus = model.BookingStatusPendingPayment
	} else {
		order.PaidAt = &now
	}
	if err := s.orders.CreateTx(ctx, tx, order); err != nil {
		return nil, err
	}

	for _, id := range ids {
		if cancelledID, ok := reusable[id]; ok {
			reused, err := s.bookings.ReuseCancelledTx(ctx, tx, cancelledID, userID, bookingStatus, order.ID)
			if err != nil {
				return nil, err
			}
			if !reused {
				// The cancelled row was resurrected between lock and update.
				return nil, &TableConflictError{TableNumbers: []string{byID[id].TableNumber}}
			}
			continue
		}
		if err := s.bookings.InsertTx(ctx, tx, userID, id, bookingDate, bookingStatus, order.ID); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true

	if !requiresPayment {
		s.publishConfirmed(ctx, order, tableNumbers(booked), "")
	}

	return &CreateOrderResult{
		OrderID:         order.ID,
		RequiresPayment: requiresPayment,
		Status:          order.Status,
		TotalFee:        totalFee,
		ExpiresAt:       order.ExpiresAt,
		Tables:          booked,
	}, nil
}

// ExpireStaleOrders runs the sweep in its own transaction.  The same
// sweep rides every CreateOrder and VerifyPayment transaction; this
// entry point exists for the admin endpoint and for cron-style callers.
func (s *BookingService) ExpireStaleOrders(ctx context.Context) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	ids, err := s.orders.ExpireStaleTx(ctx, tx)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	committed = true
	if len(ids) > 0 {
		logger.Info().Int("orders", len(ids)).Msg("expired stale orders")
	}
	return len(ids), nil
}

// publishConfirmed sends the best-effort confirmation event.  Failures
// are logged and swallowed: the booking is already committed and must
// not be affected by messaging problems.
func (s *BookingService) publishConfirmed(ctx context.Context, order *model.BookingOrder, tables []string, refNbr string) {
	if s.notify == nil {
		return
	}
	ev := q.BookingConfirmedEvent{
		OrderID:      order.ID,
		UserID:       order.UserID,
		BookingDate:  order.BookingDate.Format("2006-01-02"),
		TableNumbers: tables,
		TotalFee:     order.TotalFee.StringFixed(2),
		RefNbr:       refNbr,
		ConfirmedAt:  time.Now().UTC().Format(time.RFC3339),
	}
	if err := s.notify.PublishBookingConfirmed(ctx, ev); err != nil {
		logger.Warn().Err(err).Str("order_id", order.ID).Msg("confirmation event not published")
	}
}

// dedupeSorted returns the positive ids, deduplicated and ascending.
// The ascending order doubles as the row-lock acquisition order.
func dedupeSorted(ids []uint64) []uint64 {
	seen := make(map[uint64]struct{}, len(ids))
	out := make([]uint64, 0, len(ids))
	for _, id := range ids {
		if id == 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func missingIDs(requested []uint64, found []repository.TableWithFee) []uint64 {
	have := make(map[uint64]struct{}, len(found))
	for _, t := range found {
		have[t.ID] = struct{}{}
	}
	var missing []uint64
	for _, id := range requested {
		if _, ok := have[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing
}

func tableNumbers(booked []BookedTable) []string {
	out := make([]string, 0, len(booked))
	for _, b := range booked {
		out = append(out, b.TableNumber)
	}
	return out
}
