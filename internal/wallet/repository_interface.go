package wallet

import (
	"context"

	"github.com/jmoiron/sqlx"
)

type Repository interface {
	GetOrCreate(ctx context.Context, userID int) (*Wallet, error)
	Balance(ctx context.Context, userID int) (*Balance, error)
	Transactions(ctx context.Context, userID int, limit, offset int) ([]Transaction, error)

	Deposit(ctx context.Context, userID int, amountCents int64) (*Transaction, error)
	RequestWithdrawal(ctx context.Context, userID int, amountCents int64) (*Transaction, error)
	PendingReview(ctx context.Context) ([]Transaction, error)
	Review(ctx context.Context, txID int, approve bool, note string) (*Transaction, error)

	// Tx-scoped escrow moves, invoked inside a booking/bundle transaction so
	// the status flip and the money move commit together.
	LockTx(tx *sqlx.Tx, payerUserID, bookingID int, amountCents int64) error
	LockBundleTx(tx *sqlx.Tx, payerUserID, bundleID int, amountCents int64) error
	ReleaseTx(tx *sqlx.Tx, payerUserID, teacherUserID, bookingID int, amountCents int64, creditType Type) error
	RefundTx(tx *sqlx.Tx, payerUserID, bookingID int, amountCents int64) error
	SplitTx(tx *sqlx.Tx, payerUserID, teacherUserID, bookingID int, refundCents, compensationCents int64) error
}
