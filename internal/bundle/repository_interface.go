package bundle

import (
	"context"

	"github.com/jmoiron/sqlx"
)

type Repository interface {
	// CreateWithFunds inserts the bundle and runs fn (the package-purchase
	// wallet lock) in the same transaction.
	CreateWithFunds(ctx context.Context, b *Bundle, fn func(tx *sqlx.Tx, b *Bundle) error) (*Bundle, error)
	GetByID(ctx context.Context, id int) (*Bundle, error)
	ListByStudent(ctx context.Context, studentID int) ([]Bundle, error)

	// ReserveSession claims one schedulable session and returns its 1-based
	// ordinal; ErrBundleExhausted when none remain. ReturnSession is its
	// compensating write.
	ReserveSession(ctx context.Context, bundleID int) (int, error)
	ReturnSession(ctx context.Context, bundleID int) error

	// Booking-transaction hooks.
	SessionAbortedTx(tx *sqlx.Tx, bundleID int) error
	SessionCompletedTx(tx *sqlx.Tx, bundleID int) error
}
