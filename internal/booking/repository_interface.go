package booking

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
)

type Repository interface {
	Create(ctx context.Context, b *Booking) (*Booking, error)
	GetByID(ctx context.Context, id int) (*Booking, error)
	ListByStudent(ctx context.Context, studentID int) ([]Booking, error)
	ListByTeacher(ctx context.Context, teacherID int) ([]Booking, error)
	ListByStatus(ctx context.Context, status Status) ([]Booking, error)

	// UpdateStatus flips the status only if the current value still matches
	// from; a stale expectation returns ErrStateChanged.
	UpdateStatus(ctx context.Context, id int, from, to Status) error

	// TransitionWithFunds runs a guarded status flip and the supplied wallet
	// move in a single database transaction: all three of row lock, ledger
	// write and status change commit together or not at all.
	TransitionWithFunds(ctx context.Context, id int, from, to Status, fn func(tx *sqlx.Tx, b *Booking) error) (*Booking, error)

	SetMeetingURL(ctx context.Context, id int, url string) error
	OverlapExistsTx(tx *sqlx.Tx, teacherID int, start, end time.Time, excludeID int) (bool, error)

	DueForExpiry(ctx context.Context, status Status, updatedBefore time.Time) ([]Booking, error)
	DueForConfirmationStart(ctx context.Context, now time.Time) ([]Booking, error)
	DueForAutoComplete(ctx context.Context, endedBefore time.Time) ([]Booking, error)
}
