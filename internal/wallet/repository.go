package wallet

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

var (
	ErrInsufficientFunds    = errors.New("insufficient funds")
	ErrWalletNotFound       = errors.New("wallet not found")
	ErrTransactionNotFound  = errors.New("transaction not found")
	ErrNotReviewable        = errors.New("transaction is not pending review")
	errDuplicateTransaction = errors.New("transaction already applied")
)

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func newReadableID() string {
	return "WAL-" + strings.ToUpper(uuid.NewString()[:8])
}

func (r *repository) GetOrCreate(ctx context.Context, userID int) (*Wallet, error) {
	w := &Wallet{}
	err := r.db.GetContext(ctx, w, `SELECT * FROM wallets WHERE user_id = $1`, userID)
	if err == nil {
		return w, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	err = r.db.QueryRowxContext(ctx, `
		INSERT INTO wallets (user_id, readable_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET updated_at = NOW()
		RETURNING id, user_id, readable_id, available_cents, locked_cents, created_at, updated_at
	`, userID, newReadableID()).StructScan(w)
	if err != nil {
		return nil, err
	}

	return w, nil
}

func (r *repository) Balance(ctx context.Context, userID int) (*Balance, error) {
	w, err := r.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &Balance{
		AvailableCents: w.AvailableCents,
		LockedCents:    w.LockedCents,
		TotalCents:     w.TotalCents(),
	}, nil
}

func (r *repository) Transactions(ctx context.Context, userID int, limit, offset int) ([]Transaction, error) {
	if limit <= 0 {
		limit = 50
	}

	var walletID int
	err := r.db.GetContext(ctx, &walletID, `SELECT id FROM wallets WHERE user_id = $1`, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return []Transaction{}, nil
		}
		return nil, err
	}

	var txs []Transaction
	err = r.db.SelectContext(ctx, &txs, `
		SELECT id, wallet_id, type, status, amount_cents, booking_id, bundle_id, admin_note, created_at
		FROM wallet_transactions
		WHERE wallet_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`, walletID, limit, offset)
	if err != nil {
		return nil, err
	}

	return txs, nil
}

// lockWalletTx loads a wallet row under FOR UPDATE, creating it if missing.
func lockWalletTx(tx *sqlx.Tx, userID int) (*Wallet, error) {
	var w Wallet
	err := tx.QueryRowx(`
		SELECT id, user_id, readable_id, available_cents, locked_cents, created_at, updated_at
		FROM wallets
		WHERE user_id = $1
		FOR UPDATE
	`, userID).StructScan(&w)
	if err == nil {
		return &w, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	err = tx.QueryRowx(`
		INSERT INTO wallets (user_id, readable_id)
		VALUES ($1, $2)
		RETURNING id, user_id, readable_id, available_cents, locked_cents, created_at, updated_at
	`, userID, newReadableID()).StructScan(&w)
	if err != nil {
		return nil, err
	}

	return &w, nil
}

// lockWalletPairTx locks both wallets in ascending user-id order so two
// concurrent transfers touching the same pair cannot deadlock.
func lockWalletPairTx(tx *sqlx.Tx, payerUserID, teacherUserID int) (payer, teacher *Wallet, err error) {
	first, second := payerUserID, teacherUserID
	if second < first {
		first, second = second, first
	}

	a, err := lockWalletTx(tx, first)
	if err != nil {
		return nil, nil, err
	}
	b, err := lockWalletTx(tx, second)
	if err != nil {
		return nil, nil, err
	}

	if first == payerUserID {
		return a, b, nil
	}
	return b, a, nil
}

// moveTx applies a balance delta with the non-negative guard in SQL. Zero
// rows affected means the wallet would go negative.
func moveTx(tx *sqlx.Tx, walletID int, deltaAvailable, deltaLocked int64) error {
	res, err := tx.Exec(`
		UPDATE wallets
		SET available_cents = available_cents + $2,
		    locked_cents = locked_cents + $3,
		    updated_at = NOW()
		WHERE id = $1
		  AND available_cents + $2 >= 0
		  AND locked_cents + $3 >= 0
	`, walletID, deltaAvailable, deltaLocked)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrInsufficientFunds
	}

	return nil
}

// appendTx inserts a ledger row. ON CONFLICT DO NOTHING keeps the enclosing
// transaction usable when the per-booking (or per-bundle) idempotency index
// fires: zero returned rows maps to errDuplicateTransaction so callers can
// treat replays as already applied and carry on with their status writes.
func appendTx(tx *sqlx.Tx, walletID int, typ Type, status TxStatus, amountCents int64, bookingID, bundleID *int, note *string) (*Transaction, error) {
	var t Transaction
	err := tx.QueryRowx(`
		INSERT INTO wallet_transactions (wallet_id, type, status, amount_cents, booking_id, bundle_id, admin_note)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT DO NOTHING
		RETURNING id, wallet_id, type, status, amount_cents, booking_id, bundle_id, admin_note, created_at
	`, walletID, typ, status, amountCents, bookingID, bundleID, note).StructScan(&t)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errDuplicateTransaction
		}
		return nil, err
	}
	return &t, nil
}

func (r *repository) Deposit(ctx context.Context, userID int, amountCents int64) (*Transaction, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	w, err := lockWalletTx(tx, userID)
	if err != nil {
		return nil, err
	}

	// No balance change until an admin approves the deposit.
	t, err := appendTx(tx, w.ID, TypeDeposit, StatusPending, amountCents, nil, nil, nil)
	if err != nil {
		return nil, err
	}

	return t, tx.Commit()
}

func (r *repository) RequestWithdrawal(ctx context.Context, userID int, amountCents int64) (*Transaction, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	w, err := lockWalletTx(tx, userID)
	if err != nil {
		return nil, err
	}

	// The requested amount is held in locked until the admin pays it out or
	// rejects the request.
	if err := moveTx(tx, w.ID, -amountCents, amountCents); err != nil {
		return nil, err
	}

	t, err := appendTx(tx, w.ID, TypeWithdrawal, StatusPending, amountCents, nil, nil, nil)
	if err != nil {
		return nil, err
	}

	return t, tx.Commit()
}

func (r *repository) PendingReview(ctx context.Context) ([]Transaction, error) {
	var txs []Transaction
	err := r.db.SelectContext(ctx, &txs, `
		SELECT id, wallet_id, type, status, amount_cents, booking_id, bundle_id, admin_note, created_at
		FROM wallet_transactions
		WHERE status = 'pending' AND type IN ('deposit', 'withdrawal')
		ORDER BY created_at ASC
	`)
	if err != nil {
		return nil, err
	}
	return txs, nil
}

func (r *repository) Review(ctx context.Context, txID int, approve bool, note string) (*Transaction, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var t Transaction
	err = tx.QueryRowx(`
		SELECT id, wallet_id, type, status, amount_cents, booking_id, bundle_id, admin_note, created_at
		FROM wallet_transactions
		WHERE id = $1
		FOR UPDATE
	`, txID).StructScan(&t)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}

	if t.Status != StatusPending || (t.Type != TypeDeposit && t.Type != TypeWithdrawal) {
		return nil, ErrNotReviewable
	}

	// Lock the wallet row before derived balance moves.
	if _, err := tx.Exec(`SELECT id FROM wallets WHERE id = $1 FOR UPDATE`, t.WalletID); err != nil {
		return nil, err
	}

	var notePtr *string
	if note != "" {
		notePtr = &note
	}

	var newStatus TxStatus
	switch {
	case t.Type == TypeDeposit && approve:
		newStatus = StatusApproved
		if _, err := appendTx(tx, t.WalletID, TypeDepositApproved, StatusApproved, t.AmountCents, nil, nil, notePtr); err != nil {
			return nil, err
		}
		if err := moveTx(tx, t.WalletID, t.AmountCents, 0); err != nil {
			return nil, err
		}
	case t.Type == TypeDeposit && !approve:
		newStatus = StatusRejected
	case t.Type == TypeWithdrawal && approve:
		newStatus = StatusPaid
		if _, err := appendTx(tx, t.WalletID, TypeWithdrawalCompleted, StatusPaid, t.AmountCents, nil, nil, notePtr); err != nil {
			return nil, err
		}
		if err := moveTx(tx, t.WalletID, 0, -t.AmountCents); err != nil {
			return nil, err
		}
	default: // withdrawal rejected: return the held amount
		newStatus = StatusRejected
		if _, err := appendTx(tx, t.WalletID, TypeWithdrawalRefunded, StatusApproved, t.AmountCents, nil, nil, notePtr); err != nil {
			return nil, err
		}
		if err := moveTx(tx, t.WalletID, t.AmountCents, -t.AmountCents); err != nil {
			return nil, err
		}
	}

	err = tx.QueryRowx(`
		UPDATE wallet_transactions
		SET status = $2, admin_note = COALESCE($3, admin_note)
		WHERE id = $1
		RETURNING id, wallet_id, type, status, amount_cents, booking_id, bundle_id, admin_note, created_at
	`, t.ID, newStatus, notePtr).StructScan(&t)
	if err != nil {
		return nil, err
	}

	return &t, tx.Commit()
}

func (r *repository) LockTx(tx *sqlx.Tx, payerUserID, bookingID int, amountCents int64) error {
	w, err := lockWalletTx(tx, payerUserID)
	if err != nil {
		return err
	}

	_, err = appendTx(tx, w.ID, TypePaymentLock, StatusPaid, amountCents, &bookingID, nil, nil)
	if errors.Is(err, errDuplicateTransaction) {
		return nil
	}
	if err != nil {
		return err
	}

	return moveTx(tx, w.ID, -amountCents, amountCents)
}

func (r *repository) LockBundleTx(tx *sqlx.Tx, payerUserID, bundleID int, amountCents int64) error {
	w, err := lockWalletTx(tx, payerUserID)
	if err != nil {
		return err
	}

	_, err = appendTx(tx, w.ID, TypePackagePurchase, StatusPaid, amountCents, nil, &bundleID, nil)
	if errors.Is(err, errDuplicateTransaction) {
		return nil
	}
	if err != nil {
		return err
	}

	return moveTx(tx, w.ID, -amountCents, amountCents)
}

func (r *repository) ReleaseTx(tx *sqlx.Tx, payerUserID, teacherUserID, bookingID int, amountCents int64, creditType Type) error {
	payer, teacher, err := lockWalletPairTx(tx, payerUserID, teacherUserID)
	if err != nil {
		return err
	}

	// The escrow debit row is the idempotency anchor: a replayed release
	// hits the (booking_id, type) index and becomes a no-op.
	_, err = appendTx(tx, payer.ID, TypeEscrowRelease, StatusPaid, amountCents, &bookingID, nil, nil)
	if errors.Is(err, errDuplicateTransaction) {
		return nil
	}
	if err != nil {
		return err
	}

	if _, err := appendTx(tx, teacher.ID, creditType, StatusPaid, amountCents, &bookingID, nil, nil); err != nil {
		return err
	}

	if err := moveTx(tx, payer.ID, 0, -amountCents); err != nil {
		return err
	}
	return moveTx(tx, teacher.ID, amountCents, 0)
}

func (r *repository) RefundTx(tx *sqlx.Tx, payerUserID, bookingID int, amountCents int64) error {
	w, err := lockWalletTx(tx, payerUserID)
	if err != nil {
		return err
	}

	_, err = appendTx(tx, w.ID, TypeRefund, StatusPaid, amountCents, &bookingID, nil, nil)
	if errors.Is(err, errDuplicateTransaction) {
		return nil
	}
	if err != nil {
		return err
	}

	return moveTx(tx, w.ID, amountCents, -amountCents)
}

func (r *repository) SplitTx(tx *sqlx.Tx, payerUserID, teacherUserID, bookingID int, refundCents, compensationCents int64) error {
	if compensationCents == 0 {
		return r.RefundTx(tx, payerUserID, bookingID, refundCents)
	}

	payer, teacher, err := lockWalletPairTx(tx, payerUserID, teacherUserID)
	if err != nil {
		return err
	}

	total := refundCents + compensationCents

	_, err = appendTx(tx, payer.ID, TypeEscrowRelease, StatusPaid, total, &bookingID, nil, nil)
	if errors.Is(err, errDuplicateTransaction) {
		return nil
	}
	if err != nil {
		return err
	}

	if refundCents > 0 {
		if _, err := appendTx(tx, payer.ID, TypeRefund, StatusPaid, refundCents, &bookingID, nil, nil); err != nil {
			return err
		}
	}
	if _, err := appendTx(tx, teacher.ID, TypeCancellationCompensation, StatusPaid, compensationCents, &bookingID, nil, nil); err != nil {
		return err
	}

	if err := moveTx(tx, payer.ID, refundCents, -total); err != nil {
		return err
	}
	return moveTx(tx, teacher.ID, compensationCents, 0)
}
