package booking

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

var (
	ErrBookingNotFound = errors.New("booking not found")
	ErrSlotTaken       = errors.New("time slot is already taken")
	ErrStateChanged    = errors.New("booking state changed concurrently")
)

const bookingColumns = `id, readable_id, teacher_id, student_id, bundle_id, subject,
	starts_at, ends_at, price_cents, status, meeting_url, notes, created_at, updated_at`

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func newReadableID() string {
	return "BKG-" + strings.ToUpper(uuid.NewString()[:8])
}

// Create inserts the booking. The overlap exclusion constraint on
// (teacher_id, time range) over non-terminal statuses makes the insert the
// atomic check-and-reserve: the loser of a race gets ErrSlotTaken.
func (r *repository) Create(ctx context.Context, b *Booking) (*Booking, error) {
	query := `
		INSERT INTO bookings (readable_id, teacher_id, student_id, bundle_id, subject,
		                      starts_at, ends_at, price_cents, status, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING ` + bookingColumns

	var created Booking
	err := r.db.QueryRowxContext(ctx, query,
		newReadableID(), b.TeacherID, b.StudentID, b.BundleID, b.Subject,
		b.StartsAt.UTC(), b.EndsAt.UTC(), b.PriceCents, StatusPendingTeacherApproval, b.Notes,
	).StructScan(&created)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && (pqErr.Code == "23P01" || pqErr.Code == "23505") {
			return nil, ErrSlotTaken
		}
		return nil, err
	}

	return &created, nil
}

func (r *repository) GetByID(ctx context.Context, id int) (*Booking, error) {
	var b Booking
	err := r.db.GetContext(ctx, &b, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	return &b, nil
}

func (r *repository) ListByStudent(ctx context.Context, studentID int) ([]Booking, error) {
	var bookings []Booking
	err := r.db.SelectContext(ctx, &bookings, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE student_id = $1
		ORDER BY starts_at DESC
	`, studentID)
	return bookings, err
}

func (r *repository) ListByTeacher(ctx context.Context, teacherID int) ([]Booking, error) {
	var bookings []Booking
	err := r.db.SelectContext(ctx, &bookings, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE teacher_id = $1
		ORDER BY starts_at DESC
	`, teacherID)
	return bookings, err
}

func (r *repository) ListByStatus(ctx context.Context, status Status) ([]Booking, error) {
	var bookings []Booking
	err := r.db.SelectContext(ctx, &bookings, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE status = $1
		ORDER BY starts_at ASC
	`, status)
	return bookings, err
}

func (r *repository) UpdateStatus(ctx context.Context, id int, from, to Status) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE bookings
		SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2
	`, id, from, to)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrStateChanged
	}

	return nil
}

func (r *repository) TransitionWithFunds(ctx context.Context, id int, from, to Status, fn func(tx *sqlx.Tx, b *Booking) error) (*Booking, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var b Booking
	err = tx.QueryRowx(`SELECT `+bookingColumns+` FROM bookings WHERE id = $1 FOR UPDATE`, id).StructScan(&b)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}

	if b.Status != from {
		return nil, ErrStateChanged
	}

	if fn != nil {
		if err := fn(tx, &b); err != nil {
			return nil, err
		}
	}

	err = tx.QueryRowx(`
		UPDATE bookings
		SET status = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING `+bookingColumns, id, to).StructScan(&b)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return &b, nil
}

func (r *repository) SetMeetingURL(ctx context.Context, id int, url string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE bookings
		SET meeting_url = $2, updated_at = NOW()
		WHERE id = $1
	`, id, url)
	return err
}

func (r *repository) OverlapExistsTx(tx *sqlx.Tx, teacherID int, start, end time.Time, excludeID int) (bool, error) {
	var exists bool
	err := tx.Get(&exists, `
		SELECT EXISTS(
			SELECT 1 FROM bookings
			WHERE teacher_id = $1
			  AND id <> $4
			  AND starts_at < $3 AND ends_at > $2
			  AND status NOT IN ('rejected_by_teacher', 'cancelled_by_parent', 'cancelled_by_teacher',
			                     'cancelled_by_admin', 'refunded', 'partially_refunded', 'expired', 'completed')
		)
	`, teacherID, start.UTC(), end.UTC(), excludeID)
	return exists, err
}

func (r *repository) DueForExpiry(ctx context.Context, status Status, updatedBefore time.Time) ([]Booking, error) {
	var bookings []Booking
	err := r.db.SelectContext(ctx, &bookings, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE status = $1 AND updated_at < $2
		ORDER BY id ASC
	`, status, updatedBefore)
	return bookings, err
}

func (r *repository) DueForConfirmationStart(ctx context.Context, now time.Time) ([]Booking, error) {
	var bookings []Booking
	err := r.db.SelectContext(ctx, &bookings, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE status = 'scheduled' AND ends_at <= $1
		ORDER BY id ASC
	`, now)
	return bookings, err
}

func (r *repository) DueForAutoComplete(ctx context.Context, endedBefore time.Time) ([]Booking, error) {
	var bookings []Booking
	err := r.db.SelectContext(ctx, &bookings, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE status = 'pending_confirmation' AND ends_at <= $1
		ORDER BY id ASC
	`, endedBefore)
	return bookings, err
}
