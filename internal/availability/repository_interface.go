package availability

import (
	"context"
	"time"
)

type Repository interface {
	CreateRule(ctx context.Context, teacherID, weekday, startMinute, endMinute int) (*Rule, error)
	RulesForTeacher(ctx context.Context, teacherID int) ([]Rule, error)
	DeleteRule(ctx context.Context, teacherID, ruleID int) error

	CreateException(ctx context.Context, teacherID int, req CreateExceptionRequest) (*Exception, error)
	ExceptionsOverlapping(ctx context.Context, teacherID int, from, to time.Time) ([]Exception, error)
	DeleteException(ctx context.Context, teacherID, exceptionID int) error

	// BusyIntervals reports time already held by the teacher's bookings in a
	// non-terminal state within [from, to).
	BusyIntervals(ctx context.Context, teacherID int, from, to time.Time) ([]Interval, error)
}
