package dispute

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

var (
	ErrDisputeNotFound = errors.New("dispute not found")
	ErrAlreadyDisputed = errors.New("booking already has a dispute")
)

const disputeColumns = `
	id, booking_id, raised_by, reason, status, resolution, refund_percent,
	resolved_by, admin_note, created_at, resolved_at
`

type Repository interface {
	// CreateTx inserts the dispute inside the booking transition transaction.
	CreateTx(tx *sqlx.Tx, bookingID, raisedBy int, reason string) (*Dispute, error)
	// ResolveTx marks the dispute resolved inside the settlement transaction.
	ResolveTx(tx *sqlx.Tx, disputeID, resolvedBy int, resolution Resolution, refundPercent *int64, adminNote *string) error
	GetByID(ctx context.Context, id int) (*Dispute, error)
	GetByBookingID(ctx context.Context, bookingID int) (*Dispute, error)
	ListOpen(ctx context.Context) ([]Dispute, error)
}

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) CreateTx(tx *sqlx.Tx, bookingID, raisedBy int, reason string) (*Dispute, error) {
	var d Dispute
	err := tx.QueryRowx(`
		INSERT INTO disputes (booking_id, raised_by, reason)
		VALUES ($1, $2, $3)
		RETURNING `+disputeColumns,
		bookingID, raisedBy, reason,
	).StructScan(&d)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return nil, ErrAlreadyDisputed
		}
		return nil, fmt.Errorf("failed to create dispute: %w", err)
	}
	return &d, nil
}

func (r *repository) ResolveTx(tx *sqlx.Tx, disputeID, resolvedBy int, resolution Resolution, refundPercent *int64, adminNote *string) error {
	res, err := tx.Exec(`
		UPDATE disputes
		SET status = 'resolved', resolution = $2, refund_percent = $3,
		    resolved_by = $4, admin_note = $5, resolved_at = NOW()
		WHERE id = $1 AND status = 'open'
	`, disputeID, resolution, refundPercent, resolvedBy, adminNote)
	if err != nil {
		return fmt.Errorf("failed to resolve dispute: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to resolve dispute: %w", err)
	}
	if rows == 0 {
		return ErrDisputeNotFound
	}
	return nil
}

func (r *repository) GetByID(ctx context.Context, id int) (*Dispute, error) {
	var d Dispute
	err := r.db.GetContext(ctx, &d, `SELECT `+disputeColumns+` FROM disputes WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDisputeNotFound
		}
		return nil, fmt.Errorf("failed to get dispute: %w", err)
	}
	return &d, nil
}

func (r *repository) GetByBookingID(ctx context.Context, bookingID int) (*Dispute, error) {
	var d Dispute
	err := r.db.GetContext(ctx, &d, `SELECT `+disputeColumns+` FROM disputes WHERE booking_id = $1`, bookingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDisputeNotFound
		}
		return nil, fmt.Errorf("failed to get dispute: %w", err)
	}
	return &d, nil
}

func (r *repository) ListOpen(ctx context.Context) ([]Dispute, error) {
	disputes := []Dispute{}
	err := r.db.SelectContext(ctx, &disputes, `
		SELECT `+disputeColumns+` FROM disputes WHERE status = 'open' ORDER BY created_at ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list open disputes: %w", err)
	}
	return disputes, nil
}
