package booking

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name    string
		from    Status
		to      Status
		allowed bool
	}{
		{"approve to payment", StatusPendingTeacherApproval, StatusWaitingForPayment, true},
		{"approve bundle straight to scheduled", StatusPendingTeacherApproval, StatusScheduled, true},
		{"reject", StatusPendingTeacherApproval, StatusRejectedByTeacher, true},
		{"approval window expiry", StatusPendingTeacherApproval, StatusExpired, true},
		{"submit payment", StatusWaitingForPayment, StatusPaymentReview, true},
		{"payment verified", StatusPaymentReview, StatusScheduled, true},
		{"session ends", StatusScheduled, StatusPendingConfirmation, true},
		{"confirm", StatusPendingConfirmation, StatusCompleted, true},
		{"dispute", StatusPendingConfirmation, StatusDisputed, true},
		{"dispute ruled for teacher", StatusDisputed, StatusCompleted, true},
		{"dispute ruled for student", StatusDisputed, StatusRefunded, true},
		{"dispute split", StatusDisputed, StatusPartiallyRefunded, true},
		{"teacher cancels scheduled", StatusScheduled, StatusCancelledByTeacher, true},
		{"parent cancels scheduled", StatusScheduled, StatusCancelledByParent, true},

		{"skip approval", StatusPendingTeacherApproval, StatusCompleted, false},
		{"skip payment", StatusWaitingForPayment, StatusScheduled, false},
		{"complete from scheduled", StatusScheduled, StatusCompleted, false},
		{"dispute before session end", StatusScheduled, StatusDisputed, false},
		{"reopen completed", StatusCompleted, StatusDisputed, false},
		{"teacher cancels awaiting confirmation", StatusPendingConfirmation, StatusCancelledByTeacher, false},
		{"un-expire", StatusExpired, StatusPendingTeacherApproval, false},
		{"un-cancel", StatusCancelledByParent, StatusScheduled, false},
		{"refund without dispute", StatusPendingConfirmation, StatusRefunded, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.allowed, CanTransition(tt.from, tt.to))
		})
	}
}

func TestStatusTerminal(t *testing.T) {
	terminal := []Status{
		StatusCompleted, StatusRejectedByTeacher, StatusCancelledByParent,
		StatusCancelledByTeacher, StatusCancelledByAdmin, StatusRefunded,
		StatusPartiallyRefunded, StatusExpired,
	}
	for _, s := range terminal {
		assert.True(t, s.Terminal(), "expected %s to be terminal", s)
		assert.Empty(t, transitions[s], "terminal status %s must have no outgoing transitions", s)
	}

	active := []Status{
		StatusPendingTeacherApproval, StatusWaitingForPayment, StatusPaymentReview,
		StatusScheduled, StatusPendingConfirmation, StatusDisputed,
	}
	for _, s := range active {
		assert.False(t, s.Terminal(), "expected %s to be active", s)
	}
}

func TestStatusHoldsFunds(t *testing.T) {
	holding := []Status{StatusScheduled, StatusPendingConfirmation, StatusDisputed}
	for _, s := range holding {
		assert.True(t, s.HoldsFunds(), "expected %s to hold funds", s)
	}

	notHolding := []Status{
		StatusPendingTeacherApproval, StatusWaitingForPayment, StatusPaymentReview,
		StatusCompleted, StatusRefunded, StatusExpired,
	}
	for _, s := range notHolding {
		assert.False(t, s.HoldsFunds(), "expected %s not to hold funds", s)
	}
}

func TestStatusHoldsSlot(t *testing.T) {
	// Every non-terminal status reserves the teacher's time.
	for s := range transitions {
		assert.True(t, s.HoldsSlot(), "expected %s to hold the slot", s)
	}
	assert.False(t, StatusExpired.HoldsSlot())
	assert.False(t, StatusCompleted.HoldsSlot())
}
