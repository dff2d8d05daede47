package availability

import "time"

// Rule is a recurring weekly availability window. Weekday and minutes are
// stored in UTC; all conversion to viewer-local wall clock happens at this
// package's boundary and nowhere else.
type Rule struct {
	ID          int       `db:"id" json:"id"`
	TeacherID   int       `db:"teacher_id" json:"teacher_id"`
	Weekday     int       `db:"weekday" json:"weekday"` // 0 = Sunday, matching time.Weekday
	StartMinute int       `db:"start_minute" json:"start_minute"`
	EndMinute   int       `db:"end_minute" json:"end_minute"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

type ExceptionKind string

const (
	KindAllDay     ExceptionKind = "all_day"
	KindPartialDay ExceptionKind = "partial_day"
)

// Exception is a date-scoped block that always wins over recurring rules.
type Exception struct {
	ID        int           `db:"id" json:"id"`
	TeacherID int           `db:"teacher_id" json:"teacher_id"`
	Kind      ExceptionKind `db:"kind" json:"kind"`
	StartsAt  time.Time     `db:"starts_at" json:"starts_at"`
	EndsAt    time.Time     `db:"ends_at" json:"ends_at"`
	Reason    string        `db:"reason" json:"reason"`
	CreatedAt time.Time     `db:"created_at" json:"created_at"`
}

// Slot is a bookable candidate. StartsAt/EndsAt are canonical UTC instants;
// Label and LocalDate are rendered in the viewer's timezone for display.
type Slot struct {
	StartsAt  time.Time `json:"starts_at"`
	EndsAt    time.Time `json:"ends_at"`
	Label     string    `json:"label"`
	LocalDate string    `json:"local_date"`
}

type Interval struct {
	Start time.Time `db:"starts_at"`
	End   time.Time `db:"ends_at"`
}

type CreateRuleRequest struct {
	Weekday     int `json:"weekday" binding:"gte=0,lte=6"`
	StartMinute int `json:"start_minute" binding:"gte=0,lt=1440"`
	EndMinute   int `json:"end_minute" binding:"required,gt=0,lte=1440"`
}

type CreateExceptionRequest struct {
	Kind     ExceptionKind `json:"kind" binding:"required,oneof=all_day partial_day"`
	StartsAt time.Time     `json:"starts_at" binding:"required"`
	EndsAt   time.Time     `json:"ends_at" binding:"required"`
	Reason   string        `json:"reason,omitempty"`
}
