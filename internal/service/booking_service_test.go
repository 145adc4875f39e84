package service

import (
	"context"
	"mime/multipart"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	q "github.com/norrapat/table-reserve/internal/queue"
	"github.com/norrapat/table-reserve/internal/repository"
	"github.com/norrapat/table-reserve/internal/slipverify"
)

// ----- fakes -----

type fakeVerifier struct {
	err       error
	calls     int
	gotRef    string
	gotAmount decimal.Decimal
}

func (f *fakeVerifier) Verify(_ context.Context, refNbr string, amount decimal.Decimal) error {
	f.calls++
	f.gotRef = refNbr
	f.gotAmount = amount
	return f.err
}

type fakeStore struct {
	saveErr error
	saved   int
	removed []string
}

func (f *fakeStore) Save(_ multipart.File, _ *multipart.FileHeader) (string, error) {
	if f.saveErr != nil {
		return "", f.saveErr
	}
	f.saved++
	return "/uploads/slips/test-slip.jpg", nil
}

func (f *fakeStore) Remove(publicPath string) error {
	f.removed = append(f.removed, publicPath)
	return nil
}

type fakeNotifier struct {
	events []q.BookingConfirmedEvent
}

func (f *fakeNotifier) PublishBookingConfirmed(_ context.Context, ev q.BookingConfirmedEvent) error {
	f.events = append(f.events, ev)
	return nil
}

// ----- helpers -----

type testEnv struct {
	svc      *BookingService
	mock     sqlmock.Sqlmock
	verifier *fakeVerifier
	store    *fakeStore
	notify   *fakeNotifier
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	v := &fakeVerifier{}
	st := &fakeStore{}
	n := &fakeNotifier{}
	svc := NewBookingService(
		db,
		repository.NewSettingsRepo(db),
		repository.NewTableRepo(db),
		repository.NewBookingRepo(db),
		repository.NewOrderRepo(db),
		repository.NewPaymentRefRepo(db),
		repository.NewUserRepo(db),
		v, st, n,
		15*time.Minute,
	)
	return &testEnv{svc: svc, mock: mock, verifier: v, store: st, notify: n}
}

func settingsRows(enabled string, maxPerUser, defaultFee, transferFee string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"name", "value"}).
		AddRow("booking_enabled", enabled).
		AddRow("max_bookings_per_user", maxPerUser).
		AddRow("default_booking_fee", defaultFee).
		AddRow("transfer_fee", transferFee)
}

func expectSettings(m sqlmock.Sqlmock, rows *sqlmock.Rows) {
	m.ExpectQuery(`SELECT name, value FROM settings WHERE name IN`).WillReturnRows(rows)
}

func expectEmptySweep(m sqlmock.Sqlmock) {
	m.ExpectQuery(`SELECT id FROM booking_orders`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
}

var testDate = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

// ----- CreateOrder -----

func TestCreateOrderReservesTablesWithPaymentWindow(t *testing.T) {
	env := newTestEnv(t)

	expectSettings(env.mock, settingsRows("1", "4", "100.00", "0"))
	env.mock.ExpectBegin()
	expectEmptySweep(env.mock)
	env.mock.ExpectQuery(`SELECT COUNT\(\*\) FROM bookings`).
		WithArgs(uint64(7), "2025-06-01").
		WillReturnRows(sqlmock.NewRows([]string{"cnt"}).AddRow(0))
	env.mock.ExpectQuery(`SELECT t\.id, t\.table_number, t\.capacity, z\.id, z\.name, z\.booking_fee`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "table_number", "capacity", "zone_id", "zone_name", "booking_fee"}).
			AddRow(1, "A1", 4, 10, "Garden", nil).
			AddRow(2, "A2", 2, 10, "Garden", "150.00"))
	env.mock.ExpectQuery(`SELECT id, user_id, table_id, booking_date, status, order_id`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "table_id", "booking_date", "status", "order_id"}))
	env.mock.ExpectExec(`INSERT INTO booking_orders`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	env.mock.ExpectExec(`INSERT INTO bookings`).WillReturnResult(sqlmock.NewResult(1, 1))
	env.mock.ExpectExec(`INSERT INTO bookings`).WillReturnResult(sqlmock.NewResult(2, 1))
	env.mock.ExpectCommit()

	res, err := env.svc.CreateOrder(context.Background(), 7, []uint64{2, 1, 2}, testDate)
	require.NoError(t, err)
	require.True(t, res.RequiresPayment)
	require.Equal(t, "pending", res.Status)
	require.True(t, res.TotalFee.Equal(decimal.RequireFromString("250.00")))
	require.NotNil(t, res.ExpiresAt)
	require.Len(t, res.Tables, 2)
	require.Equal(t, "A1", res.Tables[0].TableNumber)
	require.Empty(t, env.notify.events, "pending orders must not publish confirmations")
	require.NoError(t, env.mock.ExpectationsWereMet())
}

func TestCreateOrderZeroFeeConfirmsImmediately(t *testing.T) {
	env := newTestEnv(t)

	expectSettings(env.mock, settingsRows("true", "0", "0", "0"))
	env.mock.ExpectBegin()
	expectEmptySweep(env.mock)
	// max_bookings_per_user=0 means no quota query
	env.mock.ExpectQuery(`SELECT t\.id, t\.table_number`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "table_number", "capacity", "zone_id", "zone_name", "booking_fee"}).
			AddRow(3, "B1", 6, 11, "Terrace", nil))
	env.mock.ExpectQuery(`SELECT id, user_id, table_id, booking_date, status, order_id`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "table_id", "booking_date", "status", "order_id"}))
	env.mock.ExpectExec(`INSERT INTO booking_orders`).WillReturnResult(sqlmock.NewResult(0, 1))
	env.mock.ExpectExec(`INSERT INTO bookings`).WillReturnResult(sqlmock.NewResult(1, 1))
	env.mock.ExpectCommit()

	res, err := env.svc.CreateOrder(context.Background(), 9, []uint64{3}, testDate)
	require.NoError(t, err)
	require.False(t, res.RequiresPayment)
	require.Equal(t, "paid", res.Status)
	require.Nil(t, res.ExpiresAt)
	require.Len(t, env.notify.events, 1)
	require.Equal(t, []string{"B1"}, env.notify.events[0].TableNumbers)
	require.NoError(t, env.mock.ExpectationsWereMet())
}

func TestCreateOrderRejectsWhenBookingDisabled(t *testing.T) {
	env := newTestEnv(t)
	expectSettings(env.mock, settingsRows("0", "4", "100.00", "0"))

	_, err := env.svc.CreateOrder(context.Background(), 7, []uint64{1}, testDate)
	require.ErrorIs(t, err, ErrBookingDisabled)
	require.NoError(t, env.mock.ExpectationsWereMet())
}

func TestCreateOrderRejectsEmptyRequest(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.svc.CreateOrder(context.Background(), 7, []uint64{0}, testDate)
	require.ErrorIs(t, err, ErrNoTablesRequested)
}

func TestCreateOrderEnforcesQuota(t *testing.T) {
	env := newTestEnv(t)

	expectSettings(env.mock, settingsRows("1", "2", "100.00", "0"))
	env.mock.ExpectBegin()
	expectEmptySweep(env.mock)
	env.mock.ExpectQuery(`SELECT COUNT\(\*\) FROM bookings`).
		WillReturnRows(sqlmock.NewRows([]string{"cnt"}).AddRow(1))
	env.mock.ExpectRollback()

	_, err := env.svc.CreateOrder(context.Background(), 7, []uint64{1, 2}, testDate)
	var qErr *QuotaError
	require.ErrorAs(t, err, &qErr)
	require.Equal(t, 2, qErr.Max)
	require.Equal(t, 1, qErr.Existing)
	require.Equal(t, 2, qErr.Requested)
	require.NoError(t, env.mock.ExpectationsWereMet())
}

func TestCreateOrderRejectsUnknownTables(t *testing.T) {
	env := newTestEnv(t)

	expectSettings(env.mock, settingsRows("1", "0", "100.00", "0"))
	env.mock.ExpectBegin()
	expectEmptySweep(env.mock)
	env.mock.ExpectQuery(`SELECT t\.id, t\.table_number`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "table_number", "capacity", "zone_id", "zone_name", "booking_fee"}).
			AddRow(1, "A1", 4, 10, "Garden", nil))
	env.mock.ExpectRollback()

	_, err := env.svc.CreateOrder(context.Background(), 7, []uint64{1, 99}, testDate)
	var uErr *UnknownTablesError
	require.ErrorAs(t, err, &uErr)
	require.Equal(t, []uint64{99}, uErr.TableIDs)
	require.NoError(t, env.mock.ExpectationsWereMet())
}

func TestCreateOrderRejectsTakenTables(t *testing.T) {
	env := newTestEnv(t)

	expectSettings(env.mock, settingsRows("1", "0", "100.00", "0"))
	env.mock.ExpectBegin()
	expectEmptySweep(env.mock)
	env.mock.ExpectQuery(`SELECT t\.id, t\.table_number`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "table_number", "capacity", "zone_id", "zone_name", "booking_fee"}).
			AddRow(1, "A1", 4, 10, "Garden", nil).
			AddRow(2, "A2", 2, 10, "Garden", nil))
	env.mock.ExpectQuery(`SELECT id, user_id, table_id, booking_date, status, order_id`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "table_id", "booking_date", "status", "order_id"}).
			AddRow(44, 8, 2, testDate, "confirmed", "other-order"))
	env.mock.ExpectRollback()

	_, err := env.svc.CreateOrder(context.Background(), 7, []uint64{1, 2}, testDate)
	var cErr *TableConflictError
	require.ErrorAs(t, err, &cErr)
	require.Equal(t, []string{"A2"}, cErr.TableNumbers)
	require.NoError(t, env.mock.ExpectationsWereMet())
}

func TestCreateOrderReusesCancelledRow(t *testing.T) {
	env := newTestEnv(t)

	expectSettings(env.mock, settingsRows("1", "0", "100.00", "0"))
	env.mock.ExpectBegin()
	expectEmptySweep(env.mock)
	env.mock.ExpectQuery(`SELECT t\.id, t\.table_number`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "table_number", "capacity", "zone_id", "zone_name", "booking_fee"}).
			AddRow(1, "A1", 4, 10, "Garden", nil))
	env.mock.ExpectQuery(`SELECT id, user_id, table_id, booking_date, status, order_id`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "table_id", "booking_date", "status", "order_id"}).
			AddRow(31, 5, 1, testDate, "cancelled", nil))
	env.mock.ExpectExec(`INSERT INTO booking_orders`).WillReturnResult(sqlmock.NewResult(0, 1))
	env.mock.ExpectExec(`UPDATE bookings SET user_id = \?, status = \?, order_id = \?`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	env.mock.ExpectCommit()

	res, err := env.svc.CreateOrder(context.Background(), 7, []uint64{1}, testDate)
	require.NoError(t, err)
	require.True(t, res.RequiresPayment)
	require.NoError(t, env.mock.ExpectationsWereMet())
}

// ----- ExpireStaleOrders -----

func TestExpireStaleOrdersSweepsPendingPastExpiry(t *testing.T) {
	env := newTestEnv(t)

	env.mock.ExpectBegin()
	env.mock.ExpectQuery(`SELECT id FROM booking_orders`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("ord-1").AddRow("ord-2"))
	env.mock.ExpectExec(`UPDATE booking_orders SET status = 'expired'`).
		WillReturnResult(sqlmock.NewResult(0, 2))
	env.mock.ExpectExec(`UPDATE bookings SET status = 'cancelled' WHERE order_id IN`).
		WillReturnResult(sqlmock.NewResult(0, 3))
	env.mock.ExpectCommit()

	n, err := env.svc.ExpireStaleOrders(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.NoError(t, env.mock.ExpectationsWereMet())
}

// ----- VerifyPayment -----

const testOrderID = "5f0c9a4e-0000-4000-8000-0123456789ab"

func orderRow(userID uint64, status, fee string) *sqlmock.Rows {
	now := time.Now().UTC()
	expires := now.Add(10 * time.Minute)
	return sqlmock.NewRows([]string{
		"id", "user_id", "booking_date", "total_fee", "status",
		"ref_nbr", "expires_at", "paid_at", "created_at", "updated_at",
	}).AddRow(testOrderID, userID, testDate, fee, status, nil, expires, nil, now, now)
}

func expectRefClaimInsert(m sqlmock.Sqlmock) {
	m.ExpectQuery(`SELECT order_id FROM payment_refs`).
		WillReturnRows(sqlmock.NewRows([]string{"order_id"})) // no existing claim
	m.ExpectExec(`INSERT INTO payment_refs`).WillReturnResult(sqlmock.NewResult(0, 1))
}

func TestVerifyPaymentSettlesPendingOrder(t *testing.T) {
	env := newTestEnv(t)

	env.mock.ExpectBegin()
	expectEmptySweep(env.mock)
	expectRefClaimInsert(env.mock)
	env.mock.ExpectQuery(`FROM booking_orders WHERE id = \? FOR UPDATE`).
		WillReturnRows(orderRow(7, "pending", "150.00"))
	env.mock.ExpectExec(`UPDATE booking_orders SET status = 'paid'`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	env.mock.ExpectExec(`UPDATE bookings SET status = 'confirmed'`).
		WillReturnResult(sqlmock.NewResult(0, 2))
	env.mock.ExpectExec(`UPDATE payment_refs SET used_at`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	env.mock.ExpectQuery(`SELECT t\.table_number FROM bookings b`).
		WillReturnRows(sqlmock.NewRows([]string{"table_number"}).AddRow("A1").AddRow("A2"))
	env.mock.ExpectCommit()

	res, err := env.svc.VerifyPayment(context.Background(), 7, testOrderID, " tr-123 456 ", decimal.RequireFromString("150.00"), nil, nil)
	require.NoError(t, err)
	require.Equal(t, "paid", res.Status)
	require.False(t, res.AlreadyProcessed)
	require.Equal(t, "/uploads/slips/test-slip.jpg", res.SlipImageURL)
	require.Equal(t, "TR-123456", env.verifier.gotRef, "reference must be normalized before verification")
	require.Len(t, env.notify.events, 1)
	require.Equal(t, []string{"A1", "A2"}, env.notify.events[0].TableNumbers)
	require.Empty(t, env.store.removed)
	require.NoError(t, env.mock.ExpectationsWereMet())
}

func TestVerifyPaymentRejectionWritesNothing(t *testing.T) {
	env := newTestEnv(t)
	env.verifier.err = &slipverify.VerifyError{Code: "invalid_ref", Message: "slip not found"}

	_, err := env.svc.VerifyPayment(context.Background(), 7, testOrderID, "TR1", decimal.RequireFromString("150.00"), nil, nil)
	var vErr *slipverify.VerifyError
	require.ErrorAs(t, err, &vErr)
	require.Zero(t, env.store.saved, "rejected slips must never be stored")
	require.NoError(t, env.mock.ExpectationsWereMet())
}

func TestVerifyPaymentIsIdempotentForSettledOrders(t *testing.T) {
	env := newTestEnv(t)

	env.mock.ExpectBegin()
	expectEmptySweep(env.mock)
	// The reference already belongs to this same order.
	env.mock.ExpectQuery(`SELECT order_id FROM payment_refs`).
		WillReturnRows(sqlmock.NewRows([]string{"order_id"}).AddRow(testOrderID))
	env.mock.ExpectQuery(`FROM booking_orders WHERE id = \? FOR UPDATE`).
		WillReturnRows(orderRow(7, "paid", "150.00"))
	env.mock.ExpectRollback()

	res, err := env.svc.VerifyPayment(context.Background(), 7, testOrderID, "TR1", decimal.RequireFromString("150.00"), nil, nil)
	require.NoError(t, err)
	require.True(t, res.AlreadyProcessed)
	require.Equal(t, "paid", res.Status)
	require.Equal(t, []string{"/uploads/slips/test-slip.jpg"}, env.store.removed,
		"the redundant upload must be deleted")
	require.Empty(t, env.notify.events)
	require.NoError(t, env.mock.ExpectationsWereMet())
}

func TestVerifyPaymentRejectsReusedReference(t *testing.T) {
	env := newTestEnv(t)

	env.mock.ExpectBegin()
	expectEmptySweep(env.mock)
	env.mock.ExpectQuery(`SELECT order_id FROM payment_refs`).
		WillReturnRows(sqlmock.NewRows([]string{"order_id"}).AddRow("some-other-order"))
	env.mock.ExpectRollback()

	_, err := env.svc.VerifyPayment(context.Background(), 7, testOrderID, "TR1", decimal.RequireFromString("150.00"), nil, nil)
	require.ErrorIs(t, err, repository.ErrRefUsed)
	require.Len(t, env.store.removed, 1)
	require.NoError(t, env.mock.ExpectationsWereMet())
}

func TestVerifyPaymentRejectsWrongOwner(t *testing.T) {
	env := newTestEnv(t)

	env.mock.ExpectBegin()
	expectEmptySweep(env.mock)
	expectRefClaimInsert(env.mock)
	env.mock.ExpectQuery(`FROM booking_orders WHERE id = \? FOR UPDATE`).
		WillReturnRows(orderRow(999, "pending", "150.00"))
	env.mock.ExpectRollback()

	_, err := env.svc.VerifyPayment(context.Background(), 7, testOrderID, "TR1", decimal.RequireFromString("150.00"), nil, nil)
	require.ErrorIs(t, err, ErrNotOwner)
	require.Len(t, env.store.removed, 1)
	require.NoError(t, env.mock.ExpectationsWereMet())
}

func TestVerifyPaymentRejectsAmountMismatch(t *testing.T) {
	env := newTestEnv(t)

	env.mock.ExpectBegin()
	expectEmptySweep(env.mock)
	expectRefClaimInsert(env.mock)
	env.mock.ExpectQuery(`FROM booking_orders WHERE id = \? FOR UPDATE`).
		WillReturnRows(orderRow(7, "pending", "150.00"))
	env.mock.ExpectRollback()

	_, err := env.svc.VerifyPayment(context.Background(), 7, testOrderID, "TR1", decimal.RequireFromString("100.00"), nil, nil)
	var aErr *AmountMismatchError
	require.ErrorAs(t, err, &aErr)
	require.True(t, aErr.Expected.Equal(decimal.RequireFromString("150.00")))
	require.Len(t, env.store.removed, 1)
	require.NoError(t, env.mock.ExpectationsWereMet())
}

func TestVerifyPaymentToleratesRoundingDrift(t *testing.T) {
	env := newTestEnv(t)

	env.mock.ExpectBegin()
	expectEmptySweep(env.mock)
	expectRefClaimInsert(env.mock)
	env.mock.ExpectQuery(`FROM booking_orders WHERE id = \? FOR UPDATE`).
		WillReturnRows(orderRow(7, "pending", "150.00"))
	env.mock.ExpectExec(`UPDATE booking_orders SET status = 'paid'`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	env.mock.ExpectExec(`UPDATE bookings SET status = 'confirmed'`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	env.mock.ExpectExec(`UPDATE payment_refs SET used_at`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	env.mock.ExpectQuery(`SELECT t\.table_number FROM bookings b`).
		WillReturnRows(sqlmock.NewRows([]string{"table_number"}).AddRow("A1"))
	env.mock.ExpectCommit()

	res, err := env.svc.VerifyPayment(context.Background(), 7, testOrderID, "TR1", decimal.RequireFromString("150.01"), nil, nil)
	require.NoError(t, err)
	require.Equal(t, "paid", res.Status)
	require.NoError(t, env.mock.ExpectationsWereMet())
}

func TestVerifyPaymentOrderNotFound(t *testing.T) {
	env := newTestEnv(t)

	env.mock.ExpectBegin()
	expectEmptySweep(env.mock)
	expectRefClaimInsert(env.mock)
	env.mock.ExpectQuery(`FROM booking_orders WHERE id = \? FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "user_id", "booking_date", "total_fee", "status",
			"ref_nbr", "expires_at", "paid_at", "created_at", "updated_at",
		}))
	env.mock.ExpectRollback()

	_, err := env.svc.VerifyPayment(context.Background(), 7, testOrderID, "TR1", decimal.RequireFromString("150.00"), nil, nil)
	require.ErrorIs(t, err, ErrOrderNotFound)
	require.Len(t, env.store.removed, 1)
	require.NoError(t, env.mock.ExpectationsWereMet())
}

// ----- CancelBooking -----

func bookingRowFor(userID uint64, status string, orderID interface{}) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "user_id", "table_id", "booking_date", "status", "order_id"}).
		AddRow(21, userID, 3, testDate, status, orderID)
}

func TestCancelBookingByOwnerClosesEmptyOrder(t *testing.T) {
	env := newTestEnv(t)

	env.mock.ExpectBegin()
	env.mock.ExpectQuery(`FROM bookings WHERE id = \? FOR UPDATE`).
		WillReturnRows(bookingRowFor(7, "pending_payment", testOrderID))
	env.mock.ExpectExec(`UPDATE bookings SET status = 'cancelled' WHERE id = \?`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	env.mock.ExpectQuery(`SELECT COUNT\(\*\) FROM bookings`).
		WillReturnRows(sqlmock.NewRows([]string{"cnt"}).AddRow(0))
	env.mock.ExpectExec(`UPDATE booking_orders SET status = 'cancelled'`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	env.mock.ExpectCommit()

	err := env.svc.CancelBooking(context.Background(), 7, "CUSTOMER", 21)
	require.NoError(t, err)
	require.NoError(t, env.mock.ExpectationsWereMet())
}

func TestCancelBookingKeepsOrderWithActiveSiblings(t *testing.T) {
	env := newTestEnv(t)

	env.mock.ExpectBegin()
	env.mock.ExpectQuery(`FROM bookings WHERE id = \? FOR UPDATE`).
		WillReturnRows(bookingRowFor(7, "confirmed", testOrderID))
	env.mock.ExpectExec(`UPDATE bookings SET status = 'cancelled' WHERE id = \?`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	env.mock.ExpectQuery(`SELECT COUNT\(\*\) FROM bookings`).
		WillReturnRows(sqlmock.NewRows([]string{"cnt"}).AddRow(1))
	env.mock.ExpectCommit()

	err := env.svc.CancelBooking(context.Background(), 7, "CUSTOMER", 21)
	require.NoError(t, err)
	require.NoError(t, env.mock.ExpectationsWereMet())
}

func TestCancelBookingRejectsStranger(t *testing.T) {
	env := newTestEnv(t)

	env.mock.ExpectBegin()
	env.mock.ExpectQuery(`FROM bookings WHERE id = \? FOR UPDATE`).
		WillReturnRows(bookingRowFor(7, "confirmed", nil))
	env.mock.ExpectRollback()

	err := env.svc.CancelBooking(context.Background(), 8, "CUSTOMER", 21)
	require.ErrorIs(t, err, ErrNotOwner)
	require.NoError(t, env.mock.ExpectationsWereMet())
}

func TestCancelBookingStaffBypassesOwnership(t *testing.T) {
	env := newTestEnv(t)

	env.mock.ExpectBegin()
	env.mock.ExpectQuery(`FROM bookings WHERE id = \? FOR UPDATE`).
		WillReturnRows(bookingRowFor(7, "confirmed", nil))
	env.mock.ExpectExec(`UPDATE bookings SET status = 'cancelled' WHERE id = \?`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	env.mock.ExpectCommit()

	err := env.svc.CancelBooking(context.Background(), 99, "STAFF", 21)
	require.NoError(t, err)
	require.NoError(t, env.mock.ExpectationsWereMet())
}

func TestCancelBookingRejectsAlreadyCancelled(t *testing.T) {
	env := newTestEnv(t)

	env.mock.ExpectBegin()
	env.mock.ExpectQuery(`FROM bookings WHERE id = \? FOR UPDATE`).
		WillReturnRows(bookingRowFor(7, "cancelled", nil))
	env.mock.ExpectRollback()

	err := env.svc.CancelBooking(context.Background(), 7, "CUSTOMER", 21)
	require.ErrorIs(t, err, ErrBookingNotActive)
	require.NoError(t, env.mock.ExpectationsWereMet())
}

// ----- TransferBooking -----

func TestTransferBookingFreeOfCharge(t *testing.T) {
	env := newTestEnv(t)

	expectSettings(env.mock, settingsRows("1", "0", "0", "0"))
	env.mock.ExpectQuery(`SELECT 1 FROM users`).
		WillReturnRows(sqlmock.NewRows([]string{"one"}).AddRow(1))
	env.mock.ExpectBegin()
	env.mock.ExpectQuery(`FROM bookings WHERE id = \? FOR UPDATE`).
		WillReturnRows(bookingRowFor(7, "confirmed", testOrderID))
	env.mock.ExpectExec(`UPDATE bookings SET user_id = \? WHERE id = \?`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	env.mock.ExpectCommit()

	err := env.svc.TransferBooking(context.Background(), 7, 21, 8, "", decimal.Zero)
	require.NoError(t, err)
	require.Zero(t, env.verifier.calls, "no fee, no slip verification")
	require.NoError(t, env.mock.ExpectationsWereMet())
}

func TestTransferBookingWithFeeConsumesReference(t *testing.T) {
	env := newTestEnv(t)

	expectSettings(env.mock, settingsRows("1", "0", "0", "20.00"))
	env.mock.ExpectQuery(`SELECT 1 FROM users`).
		WillReturnRows(sqlmock.NewRows([]string{"one"}).AddRow(1))
	env.mock.ExpectBegin()
	env.mock.ExpectQuery(`FROM bookings WHERE id = \? FOR UPDATE`).
		WillReturnRows(bookingRowFor(7, "confirmed", testOrderID))
	expectRefClaimInsert(env.mock)
	env.mock.ExpectExec(`UPDATE payment_refs SET used_at`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	env.mock.ExpectExec(`UPDATE bookings SET user_id = \? WHERE id = \?`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	env.mock.ExpectCommit()

	err := env.svc.TransferBooking(context.Background(), 7, 21, 8, "TR-FEE-1", decimal.RequireFromString("20.00"))
	require.NoError(t, err)
	require.Equal(t, 1, env.verifier.calls)
	require.Equal(t, "TR-FEE-1", env.verifier.gotRef)
	require.NoError(t, env.mock.ExpectationsWereMet())
}

func TestTransferBookingRequiresFeeSlip(t *testing.T) {
	env := newTestEnv(t)

	expectSettings(env.mock, settingsRows("1", "0", "0", "20.00"))
	env.mock.ExpectQuery(`SELECT 1 FROM users`).
		WillReturnRows(sqlmock.NewRows([]string{"one"}).AddRow(1))

	err := env.svc.TransferBooking(context.Background(), 7, 21, 8, "", decimal.Zero)
	require.ErrorIs(t, err, ErrTransferFeeUnpaid)
	require.NoError(t, env.mock.ExpectationsWereMet())
}

func TestTransferBookingRejectsSelf(t *testing.T) {
	env := newTestEnv(t)
	err := env.svc.TransferBooking(context.Background(), 7, 21, 7, "", decimal.Zero)
	require.ErrorIs(t, err, ErrSelfTransfer)
}

func TestTransferBookingRejectsUnknownRecipient(t *testing.T) {
	env := newTestEnv(t)

	expectSettings(env.mock, settingsRows("1", "0", "0", "0"))
	env.mock.ExpectQuery(`SELECT 1 FROM users`).
		WillReturnRows(sqlmock.NewRows([]string{"one"}))

	err := env.svc.TransferBooking(context.Background(), 7, 21, 8, "", decimal.Zero)
	require.ErrorIs(t, err, ErrRecipientNotFound)
	require.NoError(t, env.mock.ExpectationsWereMet())
}

func TestTransferBookingRejectsPendingBooking(t *testing.T) {
	env := newTestEnv(t)

	expectSettings(env.mock, settingsRows("1", "0", "0", "0"))
	env.mock.ExpectQuery(`SELECT 1 FROM users`).
		WillReturnRows(sqlmock.NewRows([]string{"one"}).AddRow(1))
	env.mock.ExpectBegin()
	env.mock.ExpectQuery(`FROM bookings WHERE id = \? FOR UPDATE`).
		WillReturnRows(bookingRowFor(7, "pending_payment", testOrderID))
	env.mock.ExpectRollback()

	err := env.svc.TransferBooking(context.Background(), 7, 21, 8, "", decimal.Zero)
	require.ErrorIs(t, err, ErrBookingNotActive)
	require.NoError(t, env.mock.ExpectationsWereMet())
}
