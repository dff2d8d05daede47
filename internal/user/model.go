package user

import "time"

type User struct {
	ID           int       `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Role         string    `db:"role" json:"role"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// TeacherProfile carries scheduling and pricing settings for users with the
// teacher role. Availability rules reference the profile's user id.
type TeacherProfile struct {
	UserID                  int       `db:"user_id" json:"user_id"`
	Timezone                string    `db:"timezone" json:"timezone"`
	Subject                 string    `db:"subject" json:"subject"`
	HourlyRateCents         int64     `db:"hourly_rate_cents" json:"hourly_rate_cents"`
	VacationMode            bool      `db:"vacation_mode" json:"vacation_mode"`
	FreeCancelHours         int       `db:"free_cancel_hours" json:"free_cancel_hours"`
	LateCompensationPercent int       `db:"late_compensation_percent" json:"late_compensation_percent"`
	UpdatedAt               time.Time `db:"updated_at" json:"updated_at"`
}

type RegisterRequest struct {
	Name     string `json:"name" binding:"required,min=2,max=100"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Role     string `json:"role" binding:"required,oneof=parent teacher"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	User         *User  `json:"user"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type UpdateTeacherProfileRequest struct {
	Timezone                *string `json:"timezone,omitempty"`
	Subject                 *string `json:"subject,omitempty"`
	HourlyRateCents         *int64  `json:"hourly_rate_cents,omitempty" binding:"omitempty,gt=0"`
	VacationMode            *bool   `json:"vacation_mode,omitempty"`
	FreeCancelHours         *int    `json:"free_cancel_hours,omitempty" binding:"omitempty,gte=0"`
	LateCompensationPercent *int    `json:"late_compensation_percent,omitempty" binding:"omitempty,gte=0,lte=100"`
}
