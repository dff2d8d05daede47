package booking

import "time"

// Status is the closed set of booking states. New states may be appended;
// existing values are part of the wire contract and are never repurposed.
type Status string

const (
	StatusPendingTeacherApproval Status = "pending_teacher_approval"
	StatusWaitingForPayment      Status = "waiting_for_payment"
	StatusPaymentReview          Status = "payment_review"
	StatusScheduled              Status = "scheduled"
	StatusPendingConfirmation    Status = "pending_confirmation"
	StatusCompleted              Status = "completed"

	StatusRejectedByTeacher  Status = "rejected_by_teacher"
	StatusCancelledByParent  Status = "cancelled_by_parent"
	StatusCancelledByTeacher Status = "cancelled_by_teacher"
	StatusCancelledByAdmin   Status = "cancelled_by_admin"
	StatusDisputed           Status = "disputed"
	StatusRefunded           Status = "refunded"
	StatusPartiallyRefunded  Status = "partially_refunded"
	StatusExpired            Status = "expired"
)

// transitions is the full edge set of the lifecycle. The
// pending_teacher_approval -> scheduled edge exists only for bundle
// sessions, whose money is already locked by the package purchase.
var transitions = map[Status][]Status{
	StatusPendingTeacherApproval: {
		StatusWaitingForPayment, StatusScheduled,
		StatusRejectedByTeacher, StatusExpired, StatusCancelledByParent, StatusCancelledByAdmin,
	},
	StatusWaitingForPayment: {
		StatusPaymentReview, StatusExpired, StatusCancelledByParent, StatusCancelledByAdmin,
	},
	StatusPaymentReview: {
		StatusScheduled, StatusExpired, StatusCancelledByParent, StatusCancelledByAdmin,
	},
	StatusScheduled: {
		StatusPendingConfirmation,
		StatusCancelledByParent, StatusCancelledByTeacher, StatusCancelledByAdmin,
	},
	StatusPendingConfirmation: {
		StatusCompleted, StatusDisputed,
		StatusCancelledByAdmin,
	},
	StatusDisputed: {
		StatusCompleted, StatusRefunded, StatusPartiallyRefunded,
	},
}

func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusRejectedByTeacher, StatusCancelledByParent,
		StatusCancelledByTeacher, StatusCancelledByAdmin, StatusRefunded,
		StatusPartiallyRefunded, StatusExpired:
		return true
	}
	return false
}

// HoldsSlot reports whether a booking in this status still blocks the
// teacher's time.
func (s Status) HoldsSlot() bool {
	return !s.Terminal()
}

// HoldsFunds reports whether the booking currently has money locked in the
// payer's wallet.
func (s Status) HoldsFunds() bool {
	switch s {
	case StatusScheduled, StatusPendingConfirmation, StatusDisputed:
		return true
	}
	return false
}

type Booking struct {
	ID         int        `db:"id" json:"id"`
	ReadableID string     `db:"readable_id" json:"readable_id"`
	TeacherID  int        `db:"teacher_id" json:"teacher_id"`
	StudentID  int        `db:"student_id" json:"student_id"`
	BundleID   *int       `db:"bundle_id" json:"bundle_id,omitempty"`
	Subject    string     `db:"subject" json:"subject"`
	StartsAt   time.Time  `db:"starts_at" json:"starts_at"`
	EndsAt     time.Time  `db:"ends_at" json:"ends_at"`
	PriceCents int64      `db:"price_cents" json:"price_cents"`
	Status     Status     `db:"status" json:"status"`
	MeetingURL *string    `db:"meeting_url" json:"meeting_url,omitempty"`
	Notes      *string    `db:"notes" json:"notes,omitempty"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time  `db:"updated_at" json:"updated_at"`
}

func (b *Booking) FromBundle() bool {
	return b.BundleID != nil
}

type RequestBookingRequest struct {
	TeacherID int       `json:"teacher_id" binding:"required"`
	StartsAt  time.Time `json:"starts_at" binding:"required"`
	EndsAt    time.Time `json:"ends_at" binding:"required"`
	Notes     string    `json:"notes,omitempty"`
}

type CancelRequest struct {
	Reason string `json:"reason,omitempty"`
}
