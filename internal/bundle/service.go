package bundle

import (
	"context"
	"errors"

	"tutorslot/internal/booking"
	"tutorslot/internal/metrics"
	"tutorslot/internal/user"
	"tutorslot/internal/wallet"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

var (
	ErrUnknownTier = errors.New("unknown bundle tier")
	ErrNotOwner    = errors.New("bundle belongs to another user")
)

type Service interface {
	Purchase(ctx context.Context, studentID int, req PurchaseRequest) (*Bundle, error)
	ScheduleNext(ctx context.Context, studentID, bundleID int, req ScheduleRequest) (*booking.Booking, error)
	Get(ctx context.Context, studentID, bundleID int) (*Bundle, error)
	ListMine(ctx context.Context, studentID int) ([]Bundle, error)
}

type service struct {
	repo           Repository
	walletRepo     wallet.Repository
	userRepo       user.Repository
	bookings       booking.Service
	sessionMinutes int
}

func NewService(repo Repository, walletRepo wallet.Repository, userRepo user.Repository, bookings booking.Service, sessionMinutes int) Service {
	return &service{
		repo:           repo,
		walletRepo:     walletRepo,
		userRepo:       userRepo,
		bookings:       bookings,
		sessionMinutes: sessionMinutes,
	}
}

// discountedTotal applies the tier discount to the full price of
// sessionCount sessions, rounding half-up to whole cents.
func discountedTotal(sessionPriceCents int64, tier Tier) int64 {
	full := decimal.NewFromInt(sessionPriceCents).Mul(decimal.NewFromInt(int64(tier.SessionCount)))
	factor := decimal.NewFromInt(100 - tier.DiscountPercent).Div(decimal.NewFromInt(100))
	return full.Mul(factor).Round(0).IntPart()
}

func (s *service) Purchase(ctx context.Context, studentID int, req PurchaseRequest) (*Bundle, error) {
	tier, ok := TierByID(req.TierID)
	if !ok {
		return nil, ErrUnknownTier
	}

	profile, err := s.userRepo.GetTeacherProfile(ctx, req.TeacherID)
	if err != nil {
		return nil, err
	}

	sessionPrice := decimal.NewFromInt(profile.HourlyRateCents).
		Mul(decimal.NewFromInt(int64(s.sessionMinutes))).
		Div(decimal.NewFromInt(60)).
		Round(0).
		IntPart()
	total := discountedTotal(sessionPrice, tier)

	b := &Bundle{
		StudentID:         studentID,
		TeacherID:         req.TeacherID,
		TierID:            tier.ID,
		Subject:           profile.Subject,
		SessionCount:      tier.SessionCount,
		TotalCents:        total,
		SessionShareCents: total / int64(tier.SessionCount),
	}

	created, err := s.repo.CreateWithFunds(ctx, b, func(tx *sqlx.Tx, b *Bundle) error {
		return s.walletRepo.LockBundleTx(tx, studentID, b.ID, b.TotalCents)
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordLedgerTransaction(string(wallet.TypePackagePurchase))
	return created, nil
}

func (s *service) ScheduleNext(ctx context.Context, studentID, bundleID int, req ScheduleRequest) (*booking.Booking, error) {
	b, err := s.repo.GetByID(ctx, bundleID)
	if err != nil {
		return nil, err
	}
	if b.StudentID != studentID {
		return nil, ErrNotOwner
	}

	// The share must come from the ordinal the reservation actually claimed,
	// not the earlier read: the last session absorbs the rounding remainder.
	ordinal, err := s.repo.ReserveSession(ctx, bundleID)
	if err != nil {
		return nil, err
	}
	share := b.ShareFor(ordinal)

	created, err := s.bookings.RequestBundleSession(ctx, studentID, b.TeacherID, bundleID, b.Subject, req.StartsAt, req.EndsAt, share)
	if err != nil {
		// Give the reserved session back so the slot stays schedulable.
		_ = s.repo.ReturnSession(context.WithoutCancel(ctx), bundleID)
		return nil, err
	}
	return created, nil
}

func (s *service) Get(ctx context.Context, studentID, bundleID int) (*Bundle, error) {
	b, err := s.repo.GetByID(ctx, bundleID)
	if err != nil {
		return nil, err
	}
	if b.StudentID != studentID {
		return nil, ErrNotOwner
	}
	return b, nil
}

func (s *service) ListMine(ctx context.Context, studentID int) ([]Bundle, error) {
	return s.repo.ListByStudent(ctx, studentID)
}
