package booking

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"
)

func setupMock(t *testing.T) (Repository, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	sqlxDB := sqlx.NewDb(db, "sqlmock")
	repo := NewRepository(sqlxDB)

	closer := func() {
		sqlxDB.Close()
	}

	return repo, mock, closer
}

func bookingRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "readable_id", "teacher_id", "student_id", "bundle_id", "subject",
		"starts_at", "ends_at", "price_cents", "status", "meeting_url", "notes",
		"created_at", "updated_at",
	})
}

func TestCreateBooking(t *testing.T) {
	repo, mock, close := setupMock(t)
	defer close()

	now := time.Now().UTC()
	start := now.Add(48 * time.Hour)
	end := start.Add(time.Hour)

	mock.ExpectQuery("INSERT INTO bookings").
		WillReturnRows(bookingRows().AddRow(
			10, "BKG-A1B2C3D4", 2, 7, nil, "Mathematics",
			start, end, int64(5000), "pending_teacher_approval", nil, nil,
			now, now,
		))

	b, err := repo.Create(context.Background(), &Booking{
		TeacherID: 2, StudentID: 7, Subject: "Mathematics",
		StartsAt: start, EndsAt: end, PriceCents: 5000,
	})
	require.NoError(t, err)
	require.Equal(t, 10, b.ID)
	require.Equal(t, StatusPendingTeacherApproval, b.Status)
}

func TestCreateBookingOverlap(t *testing.T) {
	repo, mock, close := setupMock(t)
	defer close()

	// Exclusion constraint violation from a concurrent insert.
	mock.ExpectQuery("INSERT INTO bookings").
		WillReturnError(&pq.Error{Code: "23P01", Constraint: "bookings_no_overlap"})

	start := time.Now().UTC().Add(48 * time.Hour)
	_, err := repo.Create(context.Background(), &Booking{
		TeacherID: 2, StudentID: 7, StartsAt: start, EndsAt: start.Add(time.Hour),
	})
	require.ErrorIs(t, err, ErrSlotTaken)
}

func TestGetByIDNotFound(t *testing.T) {
	repo, mock, close := setupMock(t)
	defer close()

	mock.ExpectQuery("SELECT (.+) FROM bookings WHERE id").
		WithArgs(999).
		WillReturnRows(bookingRows())

	_, err := repo.GetByID(context.Background(), 999)
	require.ErrorIs(t, err, ErrBookingNotFound)
}

func TestUpdateStatus(t *testing.T) {
	repo, mock, close := setupMock(t)
	defer close()

	// success case
	mock.ExpectExec("UPDATE bookings").
		WithArgs(5, StatusPendingTeacherApproval, StatusWaitingForPayment).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateStatus(context.Background(), 5, StatusPendingTeacherApproval, StatusWaitingForPayment)
	require.NoError(t, err)

	// zero rows: someone else moved the booking first
	mock.ExpectExec("UPDATE bookings").
		WithArgs(6, StatusPendingTeacherApproval, StatusWaitingForPayment).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = repo.UpdateStatus(context.Background(), 6, StatusPendingTeacherApproval, StatusWaitingForPayment)
	require.ErrorIs(t, err, ErrStateChanged)
}

func TestTransitionWithFunds(t *testing.T) {
	now := time.Now().UTC()
	start := now.Add(48 * time.Hour)
	end := start.Add(time.Hour)

	storedRow := func(status string) *sqlmock.Rows {
		return bookingRows().AddRow(
			5, "BKG-A1B2C3D4", 2, 7, nil, "Mathematics",
			start, end, int64(5000), status, nil, nil, now, now,
		)
	}

	t.Run("commits when the callback succeeds", func(t *testing.T) {
		repo, mock, close := setupMock(t)
		defer close()

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT (.+) FROM bookings WHERE id (.+) FOR UPDATE").
			WithArgs(5).
			WillReturnRows(storedRow("payment_review"))
		mock.ExpectQuery("UPDATE bookings").
			WithArgs(5, StatusScheduled).
			WillReturnRows(storedRow("scheduled"))
		mock.ExpectCommit()

		called := false
		b, err := repo.TransitionWithFunds(context.Background(), 5, StatusPaymentReview, StatusScheduled, func(tx *sqlx.Tx, b *Booking) error {
			called = true
			require.Equal(t, StatusPaymentReview, b.Status)
			return nil
		})
		require.NoError(t, err)
		require.True(t, called)
		require.Equal(t, StatusScheduled, b.Status)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back when the stored status moved", func(t *testing.T) {
		repo, mock, close := setupMock(t)
		defer close()

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT (.+) FROM bookings WHERE id (.+) FOR UPDATE").
			WithArgs(5).
			WillReturnRows(storedRow("scheduled"))
		mock.ExpectRollback()

		_, err := repo.TransitionWithFunds(context.Background(), 5, StatusPaymentReview, StatusScheduled, nil)
		require.ErrorIs(t, err, ErrStateChanged)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back when the callback fails", func(t *testing.T) {
		repo, mock, close := setupMock(t)
		defer close()

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT (.+) FROM bookings WHERE id (.+) FOR UPDATE").
			WithArgs(5).
			WillReturnRows(storedRow("payment_review"))
		mock.ExpectRollback()

		_, err := repo.TransitionWithFunds(context.Background(), 5, StatusPaymentReview, StatusScheduled, func(tx *sqlx.Tx, b *Booking) error {
			return ErrSlotTaken
		})
		require.ErrorIs(t, err, ErrSlotTaken)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestOverlapExistsTx(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "sqlmock")
	defer sqlxDB.Close()
	repo := NewRepository(sqlxDB)

	start := time.Now().UTC().Add(48 * time.Hour)
	end := start.Add(time.Hour)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(2, start, end, 5).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectRollback()

	tx, err := sqlxDB.Beginx()
	require.NoError(t, err)
	defer tx.Rollback()

	taken, err := repo.OverlapExistsTx(tx, 2, start, end, 5)
	require.NoError(t, err)
	require.True(t, taken)
}
