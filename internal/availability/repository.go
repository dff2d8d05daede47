package availability

import (
	"context"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
)

var (
	ErrRuleNotFound      = errors.New("availability rule not found")
	ErrExceptionNotFound = errors.New("availability exception not found")
)

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) CreateRule(ctx context.Context, teacherID, weekday, startMinute, endMinute int) (*Rule, error) {
	query := `
		INSERT INTO availability_rules (teacher_id, weekday, start_minute, end_minute)
		VALUES ($1, $2, $3, $4)
		RETURNING id, teacher_id, weekday, start_minute, end_minute, created_at
	`

	var rule Rule
	err := r.db.GetContext(ctx, &rule, query, teacherID, weekday, startMinute, endMinute)
	if err != nil {
		return nil, err
	}

	return &rule, nil
}

func (r *repository) RulesForTeacher(ctx context.Context, teacherID int) ([]Rule, error) {
	query := `
		SELECT id, teacher_id, weekday, start_minute, end_minute, created_at
		FROM availability_rules
		WHERE teacher_id = $1
		ORDER BY weekday ASC, start_minute ASC
	`

	var rules []Rule
	err := r.db.SelectContext(ctx, &rules, query, teacherID)
	if err != nil {
		return nil, err
	}

	return rules, nil
}

func (r *repository) DeleteRule(ctx context.Context, teacherID, ruleID int) error {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM availability_rules
		WHERE id = $1 AND teacher_id = $2
	`, ruleID, teacherID)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrRuleNotFound
	}

	return nil
}

func (r *repository) CreateException(ctx context.Context, teacherID int, req CreateExceptionRequest) (*Exception, error) {
	query := `
		INSERT INTO availability_exceptions (teacher_id, kind, starts_at, ends_at, reason)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, teacher_id, kind, starts_at, ends_at, reason, created_at
	`

	var exc Exception
	err := r.db.GetContext(ctx, &exc, query,
		teacherID, req.Kind, req.StartsAt.UTC(), req.EndsAt.UTC(), req.Reason)
	if err != nil {
		return nil, err
	}

	return &exc, nil
}

func (r *repository) ExceptionsOverlapping(ctx context.Context, teacherID int, from, to time.Time) ([]Exception, error) {
	query := `
		SELECT id, teacher_id, kind, starts_at, ends_at, reason, created_at
		FROM availability_exceptions
		WHERE teacher_id = $1 AND starts_at < $3 AND ends_at > $2
		ORDER BY starts_at ASC
	`

	var excs []Exception
	err := r.db.SelectContext(ctx, &excs, query, teacherID, from, to)
	if err != nil {
		return nil, err
	}

	return excs, nil
}

func (r *repository) DeleteException(ctx context.Context, teacherID, exceptionID int) error {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM availability_exceptions
		WHERE id = $1 AND teacher_id = $2
	`, exceptionID, teacherID)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrExceptionNotFound
	}

	return nil
}

func (r *repository) BusyIntervals(ctx context.Context, teacherID int, from, to time.Time) ([]Interval, error) {
	query := `
		SELECT starts_at, ends_at
		FROM bookings
		WHERE teacher_id = $1
		  AND starts_at < $3 AND ends_at > $2
		  AND status NOT IN ('rejected_by_teacher', 'cancelled_by_parent', 'cancelled_by_teacher',
		                     'cancelled_by_admin', 'refunded', 'partially_refunded', 'expired', 'completed')
		ORDER BY starts_at ASC
	`

	var busy []Interval
	err := r.db.SelectContext(ctx, &busy, query, teacherID, from, to)
	if err != nil {
		return nil, err
	}

	return busy, nil
}
