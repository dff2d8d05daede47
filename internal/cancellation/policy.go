// Package cancellation computes how a cancelled booking's locked funds are
// divided between the payer and the teacher. The formula is deliberately
// pluggable: tiers are configured per teacher, not hard-coded.
package cancellation

import (
	"time"

	"github.com/shopspring/decimal"
)

type Policy struct {
	// FreeCancelHours is the window before session start within which the
	// payer gets a full refund.
	FreeCancelHours int
	// LateCompensationPercent of the price goes to the teacher when the
	// payer cancels inside the free-cancel window.
	LateCompensationPercent int
}

// Split returns the refund and compensation in cents. The two always sum to
// priceCents exactly; rounding on the percentage goes half-up on the
// compensation side.
func Split(priceCents int64, startsAt, cancelledAt time.Time, p Policy) (refundCents, compensationCents int64) {
	deadline := startsAt.Add(-time.Duration(p.FreeCancelHours) * time.Hour)
	if cancelledAt.Before(deadline) {
		return priceCents, 0
	}

	pct := p.LateCompensationPercent
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}

	comp := decimal.NewFromInt(priceCents).
		Mul(decimal.NewFromInt(int64(pct))).
		Div(decimal.NewFromInt(100)).
		Round(0).
		IntPart()

	return priceCents - comp, comp
}
