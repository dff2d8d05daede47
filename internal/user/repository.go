package user

import (
	"context"
	"errors"

	"github.com/jmoiron/sqlx"
)

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrProfileNotFound = errors.New("teacher profile not found")
)

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, name, email, passwordHash, role string) (*User, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var user User
	err = tx.QueryRowxContext(ctx, `
		INSERT INTO users (name, email, password_hash, role)
		VALUES ($1, $2, $3, $4)
		RETURNING id, name, email, password_hash, role, created_at
	`, name, email, passwordHash, role).StructScan(&user)
	if err != nil {
		return nil, err
	}

	// Every user gets a wallet at creation; teachers also get a profile row
	// with platform defaults.
	_, err = tx.ExecContext(ctx, `
		INSERT INTO wallets (user_id, readable_id)
		VALUES ($1, 'WAL-' || substr(md5(random()::text), 1, 8))
	`, user.ID)
	if err != nil {
		return nil, err
	}

	if role == "teacher" {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO teacher_profiles (user_id) VALUES ($1)
		`, user.ID)
		if err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return &user, nil
}

func (r *repository) FindByEmail(ctx context.Context, email string) (*User, error) {
	query := `
		SELECT id, name, email, password_hash, role, created_at
		FROM users
		WHERE email = $1
	`

	var user User
	err := r.db.GetContext(ctx, &user, query, email)
	if err != nil {
		return nil, err
	}

	return &user, nil
}

func (r *repository) FindByID(ctx context.Context, id int) (*User, error) {
	query := `
		SELECT id, name, email, password_hash, role, created_at
		FROM users
		WHERE id = $1
	`

	var user User
	err := r.db.GetContext(ctx, &user, query, id)
	if err != nil {
		return nil, err
	}

	return &user, nil
}

func (r *repository) EmailExists(ctx context.Context, email string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)`

	var exists bool
	err := r.db.GetContext(ctx, &exists, query, email)
	if err != nil {
		return false, err
	}

	return exists, nil
}

func (r *repository) GetTeacherProfile(ctx context.Context, userID int) (*TeacherProfile, error) {
	query := `
		SELECT user_id, timezone, subject, hourly_rate_cents, vacation_mode,
		       free_cancel_hours, late_compensation_percent, updated_at
		FROM teacher_profiles
		WHERE user_id = $1
	`

	var profile TeacherProfile
	err := r.db.GetContext(ctx, &profile, query, userID)
	if err != nil {
		return nil, ErrProfileNotFound
	}

	return &profile, nil
}

func (r *repository) UpdateTeacherProfile(ctx context.Context, userID int, req UpdateTeacherProfileRequest) (*TeacherProfile, error) {
	query := `
		UPDATE teacher_profiles
		SET timezone = COALESCE($2, timezone),
		    subject = COALESCE($3, subject),
		    hourly_rate_cents = COALESCE($4, hourly_rate_cents),
		    vacation_mode = COALESCE($5, vacation_mode),
		    free_cancel_hours = COALESCE($6, free_cancel_hours),
		    late_compensation_percent = COALESCE($7, late_compensation_percent),
		    updated_at = NOW()
		WHERE user_id = $1
		RETURNING user_id, timezone, subject, hourly_rate_cents, vacation_mode,
		          free_cancel_hours, late_compensation_percent, updated_at
	`

	var profile TeacherProfile
	err := r.db.QueryRowxContext(ctx, query, userID,
		req.Timezone, req.Subject, req.HourlyRateCents, req.VacationMode,
		req.FreeCancelHours, req.LateCompensationPercent,
	).StructScan(&profile)
	if err != nil {
		return nil, ErrProfileNotFound
	}

	return &profile, nil
}
