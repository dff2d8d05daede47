package dispute

import (
	"context"
	"errors"
	"time"

	"tutorslot/internal/booking"
	"tutorslot/internal/metrics"
	"tutorslot/internal/wallet"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

var (
	ErrWindowClosed    = errors.New("the dispute window for this booking has closed")
	ErrNotParticipant  = errors.New("only the booking's parent or teacher can raise a dispute")
	ErrNotDisputable   = errors.New("booking is not awaiting confirmation")
	ErrAlreadyResolved = errors.New("dispute is already resolved")
	ErrMissingPercent  = errors.New("split resolution requires refund_percent")
)

const (
	EventDisputeRaised   = "DISPUTE_RAISED"
	EventDisputeResolved = "DISPUTE_RESOLVED"
)

type Service interface {
	Raise(ctx context.Context, actorID, bookingID int, req RaiseRequest) (*Dispute, error)
	Resolve(ctx context.Context, adminID, disputeID int, req ResolveRequest) (*Dispute, error)
	ListOpen(ctx context.Context) ([]Dispute, error)
}

type service struct {
	repo        Repository
	bookingRepo booking.Repository
	walletRepo  wallet.Repository
	bundles     booking.BundleHooks
	notifier    booking.Notifier
	window      time.Duration
	now         func() time.Time
}

func NewService(repo Repository, bookingRepo booking.Repository, walletRepo wallet.Repository, bundles booking.BundleHooks, notifier booking.Notifier, confirmationWindow time.Duration) Service {
	return &service{
		repo:        repo,
		bookingRepo: bookingRepo,
		walletRepo:  walletRepo,
		bundles:     bundles,
		notifier:    notifier,
		window:      confirmationWindow,
		now:         time.Now,
	}
}

// Raise freezes a booking that is awaiting confirmation. Once the
// confirmation window has passed (or funds were already released) the
// outcome stands and the dispute is rejected.
func (s *service) Raise(ctx context.Context, actorID, bookingID int, req RaiseRequest) (*Dispute, error) {
	b, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.StudentID != actorID && b.TeacherID != actorID {
		return nil, ErrNotParticipant
	}

	switch b.Status {
	case booking.StatusPendingConfirmation:
	case booking.StatusCompleted:
		return nil, ErrWindowClosed
	default:
		return nil, ErrNotDisputable
	}

	if s.now().UTC().After(b.EndsAt.Add(s.window)) {
		return nil, ErrWindowClosed
	}

	var d *Dispute
	_, err = s.bookingRepo.TransitionWithFunds(ctx, bookingID, booking.StatusPendingConfirmation, booking.StatusDisputed, func(tx *sqlx.Tx, b *booking.Booking) error {
		d, err = s.repo.CreateTx(tx, bookingID, actorID, req.Reason)
		return err
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordDispute("raised")
	s.notifier.Emit(ctx, EventDisputeRaised, bookingID, map[string]interface{}{
		"dispute_id": d.ID,
	})

	return d, nil
}

// splitAmounts divides the price by the refund percentage, rounding the
// student's part half-up. Both parts always sum back to the price.
func splitAmounts(priceCents, refundPercent int64) (refundCents, compensationCents int64) {
	refundCents = decimal.NewFromInt(priceCents).
		Mul(decimal.NewFromInt(refundPercent)).
		Div(decimal.NewFromInt(100)).
		Round(0).
		IntPart()
	return refundCents, priceCents - refundCents
}

func (s *service) Resolve(ctx context.Context, adminID, disputeID int, req ResolveRequest) (*Dispute, error) {
	d, err := s.repo.GetByID(ctx, disputeID)
	if err != nil {
		return nil, err
	}
	if d.Status != StatusOpen {
		return nil, ErrAlreadyResolved
	}
	if req.Resolution == ResolutionSplit && req.RefundPercent == nil {
		return nil, ErrMissingPercent
	}

	var target booking.Status
	switch req.Resolution {
	case ResolutionReleaseToTeacher:
		target = booking.StatusCompleted
	case ResolutionRefundStudent:
		target = booking.StatusRefunded
	case ResolutionSplit:
		target = booking.StatusPartiallyRefunded
	}

	var note *string
	if req.AdminNote != "" {
		note = &req.AdminNote
	}

	_, err = s.bookingRepo.TransitionWithFunds(ctx, d.BookingID, booking.StatusDisputed, target, func(tx *sqlx.Tx, b *booking.Booking) error {
		// A disputed bundle session is settled either way.
		if b.FromBundle() {
			if err := s.bundles.SessionCompletedTx(tx, *b.BundleID); err != nil {
				return err
			}
		}

		switch req.Resolution {
		case ResolutionReleaseToTeacher:
			creditType := wallet.TypePaymentRelease
			if b.FromBundle() {
				creditType = wallet.TypePackageRelease
			}
			if err := s.walletRepo.ReleaseTx(tx, b.StudentID, b.TeacherID, b.ID, b.PriceCents, creditType); err != nil {
				return err
			}
		case ResolutionRefundStudent:
			if err := s.walletRepo.RefundTx(tx, b.StudentID, b.ID, b.PriceCents); err != nil {
				return err
			}
		case ResolutionSplit:
			refund, comp := splitAmounts(b.PriceCents, *req.RefundPercent)
			if err := s.walletRepo.SplitTx(tx, b.StudentID, b.TeacherID, b.ID, refund, comp); err != nil {
				return err
			}
		}

		return s.repo.ResolveTx(tx, disputeID, adminID, req.Resolution, req.RefundPercent, note)
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordDispute(string(req.Resolution))
	s.notifier.Emit(ctx, EventDisputeResolved, d.BookingID, map[string]interface{}{
		"dispute_id": disputeID,
		"resolution": req.Resolution,
	})

	return s.repo.GetByID(ctx, disputeID)
}

func (s *service) ListOpen(ctx context.Context) ([]Dispute, error) {
	return s.repo.ListOpen(ctx)
}
