package bundle

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

var (
	ErrBundleNotFound  = errors.New("bundle not found")
	ErrBundleExhausted = errors.New("all sessions in this bundle are already scheduled")
)

const bundleColumns = `
	id, student_id, teacher_id, tier_id, subject, session_count,
	sessions_scheduled, sessions_completed, total_cents, session_share_cents,
	created_at, updated_at
`

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) CreateWithFunds(ctx context.Context, b *Bundle, fn func(tx *sqlx.Tx, b *Bundle) error) (*Bundle, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var created Bundle
	err = tx.QueryRowxContext(ctx, `
		INSERT INTO bundles (student_id, teacher_id, tier_id, subject, session_count, total_cents, session_share_cents)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+bundleColumns,
		b.StudentID, b.TeacherID, b.TierID, b.Subject, b.SessionCount, b.TotalCents, b.SessionShareCents,
	).StructScan(&created)
	if err != nil {
		return nil, fmt.Errorf("failed to create bundle: %w", err)
	}

	if err := fn(tx, &created); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit bundle purchase: %w", err)
	}
	return &created, nil
}

func (r *repository) GetByID(ctx context.Context, id int) (*Bundle, error) {
	var b Bundle
	err := r.db.GetContext(ctx, &b, `SELECT `+bundleColumns+` FROM bundles WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBundleNotFound
		}
		return nil, fmt.Errorf("failed to get bundle: %w", err)
	}
	return &b, nil
}

func (r *repository) ListByStudent(ctx context.Context, studentID int) ([]Bundle, error) {
	bundles := []Bundle{}
	err := r.db.SelectContext(ctx, &bundles, `
		SELECT `+bundleColumns+` FROM bundles WHERE student_id = $1 ORDER BY created_at DESC
	`, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list bundles: %w", err)
	}
	return bundles, nil
}

func (r *repository) ReserveSession(ctx context.Context, bundleID int) (int, error) {
	// RETURNING pins the session ordinal to the same round trip that claims
	// it, so concurrent schedulers each see their own counter value.
	var ordinal int
	err := r.db.QueryRowContext(ctx, `
		UPDATE bundles
		SET sessions_scheduled = sessions_scheduled + 1, updated_at = NOW()
		WHERE id = $1 AND sessions_scheduled < session_count
		RETURNING sessions_scheduled
	`, bundleID).Scan(&ordinal)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrBundleExhausted
		}
		return 0, fmt.Errorf("failed to reserve bundle session: %w", err)
	}
	return ordinal, nil
}

func (r *repository) ReturnSession(ctx context.Context, bundleID int) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE bundles
		SET sessions_scheduled = sessions_scheduled - 1, updated_at = NOW()
		WHERE id = $1 AND sessions_scheduled > 0
	`, bundleID)
	if err != nil {
		return fmt.Errorf("failed to return bundle session: %w", err)
	}
	return nil
}

func (r *repository) SessionAbortedTx(tx *sqlx.Tx, bundleID int) error {
	_, err := tx.Exec(`
		UPDATE bundles
		SET sessions_scheduled = sessions_scheduled - 1, updated_at = NOW()
		WHERE id = $1 AND sessions_scheduled > 0
	`, bundleID)
	if err != nil {
		return fmt.Errorf("failed to release bundle session: %w", err)
	}
	return nil
}

func (r *repository) SessionCompletedTx(tx *sqlx.Tx, bundleID int) error {
	_, err := tx.Exec(`
		UPDATE bundles
		SET sessions_completed = sessions_completed + 1, updated_at = NOW()
		WHERE id = $1 AND sessions_completed < session_count
	`, bundleID)
	if err != nil {
		return fmt.Errorf("failed to record completed bundle session: %w", err)
	}
	return nil
}
