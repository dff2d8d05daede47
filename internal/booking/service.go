package booking

import (
	"context"
	"errors"
	"time"

	"tutorslot/internal/auth"
	"tutorslot/internal/availability"
	"tutorslot/internal/cancellation"
	"tutorslot/internal/logger"
	"tutorslot/internal/metrics"
	"tutorslot/internal/user"
	"tutorslot/internal/wallet"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidTimes      = errors.New("end time must be after start time")
	ErrNotOwner          = errors.New("not allowed to act on this booking")
	ErrInvalidTransition = errors.New("invalid state transition")
	ErrSlotUnavailable   = errors.New("requested time is not available")
)

// Event types emitted to the notification outbox.
const (
	EventBookingRequested    = "BOOKING_REQUESTED"
	EventBookingApproved     = "BOOKING_APPROVED"
	EventBookingRejected     = "BOOKING_REJECTED"
	EventBookingExpired      = "BOOKING_EXPIRED"
	EventPaymentSubmitted    = "PAYMENT_SUBMITTED"
	EventBookingScheduled    = "BOOKING_SCHEDULED"
	EventAwaitingConfirm     = "SESSION_AWAITING_CONFIRMATION"
	EventPaymentReleased     = "PAYMENT_RELEASED"
	EventBookingCancelled    = "BOOKING_CANCELLED"
)

// Notifier delivers events to the external notification collaborator.
// Emission is best-effort and always happens after the transactional commit.
type Notifier interface {
	Emit(ctx context.Context, eventType string, bookingID int, payload map[string]interface{})
}

// MeetingProvisioner asks the external conferencing collaborator for a room
// link. Failures never block the booking.
type MeetingProvisioner interface {
	Provision(ctx context.Context, bookingID int) (string, error)
}

// BundleHooks lets bundle accounting ride inside booking transactions
// without the packages importing each other.
type BundleHooks interface {
	// SessionAbortedTx returns an unstarted session to the schedulable pool.
	SessionAbortedTx(tx *sqlx.Tx, bundleID int) error
	// SessionCompletedTx records a finished (or settled) session.
	SessionCompletedTx(tx *sqlx.Tx, bundleID int) error
}

type Windows struct {
	Approval     time.Duration
	Payment      time.Duration
	Confirmation time.Duration
}

// Options carries the tunables the orchestrator reads from config.
type Options struct {
	Windows       Windows
	DefaultPolicy cancellation.Policy
}

type Service interface {
	Request(ctx context.Context, studentID int, req RequestBookingRequest) (*Booking, error)
	RequestBundleSession(ctx context.Context, studentID, teacherID, bundleID int, subject string, startsAt, endsAt time.Time, priceCents int64) (*Booking, error)
	Approve(ctx context.Context, teacherID, bookingID int) (*Booking, error)
	Reject(ctx context.Context, teacherID, bookingID int) (*Booking, error)
	SubmitPayment(ctx context.Context, studentID, bookingID int) (*Booking, error)
	ApprovePayment(ctx context.Context, bookingID int) (*Booking, error)
	Confirm(ctx context.Context, studentID, bookingID int) (*Booking, error)
	Cancel(ctx context.Context, actorID int, actorRole string, bookingID int) (*Booking, error)
	Get(ctx context.Context, actorID int, actorRole string, bookingID int) (*Booking, error)
	ListForActor(ctx context.Context, actorID int, actorRole string) ([]Booking, error)
	ListByStatus(ctx context.Context, status Status) ([]Booking, error)

	ExpireApprovals(ctx context.Context) (int, error)
	ExpirePayments(ctx context.Context) (int, error)
	StartConfirmations(ctx context.Context) (int, error)
	AutoComplete(ctx context.Context) (int, error)
}

type service struct {
	repo          Repository
	availability  availability.Service
	walletRepo    wallet.Repository
	userRepo      user.Repository
	bundles       BundleHooks
	notifier      Notifier
	meetings      MeetingProvisioner
	windows       Windows
	defaultPolicy cancellation.Policy
	now           func() time.Time
}

func NewService(
	repo Repository,
	availabilitySvc availability.Service,
	walletRepo wallet.Repository,
	userRepo user.Repository,
	bundles BundleHooks,
	notifier Notifier,
	meetings MeetingProvisioner,
	opts Options,
) Service {
	return &service{
		repo:          repo,
		availability:  availabilitySvc,
		walletRepo:    walletRepo,
		userRepo:      userRepo,
		bundles:       bundles,
		notifier:      notifier,
		meetings:      meetings,
		windows:       opts.Windows,
		defaultPolicy: opts.DefaultPolicy,
		now:           time.Now,
	}
}

// priceFor snapshots the session price from the teacher's current hourly
// rate. The snapshot never changes afterwards, even if the rate does.
func priceFor(rateCents int64, startsAt, endsAt time.Time) int64 {
	minutes := int64(endsAt.Sub(startsAt) / time.Minute)
	return decimal.NewFromInt(rateCents).
		Mul(decimal.NewFromInt(minutes)).
		Div(decimal.NewFromInt(60)).
		Round(0).
		IntPart()
}

func (s *service) Request(ctx context.Context, studentID int, req RequestBookingRequest) (*Booking, error) {
	if !req.EndsAt.After(req.StartsAt) {
		return nil, ErrInvalidTimes
	}

	profile, err := s.userRepo.GetTeacherProfile(ctx, req.TeacherID)
	if err != nil {
		return nil, availability.ErrTeacherNotFound
	}

	ok, err := s.availability.IsBookable(ctx, req.TeacherID, req.StartsAt, req.EndsAt)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrSlotUnavailable
	}

	b := &Booking{
		TeacherID:  req.TeacherID,
		StudentID:  studentID,
		Subject:    profile.Subject,
		StartsAt:   req.StartsAt.UTC(),
		EndsAt:     req.EndsAt.UTC(),
		PriceCents: priceFor(profile.HourlyRateCents, req.StartsAt, req.EndsAt),
	}
	if req.Notes != "" {
		b.Notes = &req.Notes
	}

	created, err := s.repo.Create(ctx, b)
	if err != nil {
		return nil, err
	}

	metrics.RecordBooking(string(created.Status))
	s.notifier.Emit(ctx, EventBookingRequested, created.ID, map[string]interface{}{
		"teacher_id": created.TeacherID,
		"starts_at":  created.StartsAt,
	})

	return created, nil
}

func (s *service) RequestBundleSession(ctx context.Context, studentID, teacherID, bundleID int, subject string, startsAt, endsAt time.Time, priceCents int64) (*Booking, error) {
	if !endsAt.After(startsAt) {
		return nil, ErrInvalidTimes
	}

	ok, err := s.availability.IsBookable(ctx, teacherID, startsAt, endsAt)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrSlotUnavailable
	}

	b := &Booking{
		TeacherID:  teacherID,
		StudentID:  studentID,
		BundleID:   &bundleID,
		Subject:    subject,
		StartsAt:   startsAt.UTC(),
		EndsAt:     endsAt.UTC(),
		PriceCents: priceCents,
	}

	created, err := s.repo.Create(ctx, b)
	if err != nil {
		return nil, err
	}

	metrics.RecordBooking(string(created.Status))
	s.notifier.Emit(ctx, EventBookingRequested, created.ID, map[string]interface{}{
		"teacher_id": created.TeacherID,
		"bundle_id":  bundleID,
		"starts_at":  created.StartsAt,
	})

	return created, nil
}

func (s *service) Approve(ctx context.Context, teacherID, bookingID int) (*Booking, error) {
	b, err := s.repo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.TeacherID != teacherID {
		return nil, ErrNotOwner
	}

	// Bundle sessions are already paid for by the package purchase, so
	// approval schedules them directly.
	target := StatusWaitingForPayment
	if b.FromBundle() {
		target = StatusScheduled
	}
	if !CanTransition(b.Status, target) {
		return nil, ErrInvalidTransition
	}

	if err := s.repo.UpdateStatus(ctx, bookingID, b.Status, target); err != nil {
		return nil, err
	}
	b.Status = target

	if target == StatusScheduled {
		s.provisionMeeting(ctx, b)
	}

	metrics.RecordBookingTransition(string(StatusPendingTeacherApproval), string(target))
	s.notifier.Emit(ctx, EventBookingApproved, b.ID, map[string]interface{}{"status": b.Status})

	return b, nil
}

func (s *service) Reject(ctx context.Context, teacherID, bookingID int) (*Booking, error) {
	b, err := s.repo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.TeacherID != teacherID {
		return nil, ErrNotOwner
	}
	if !CanTransition(b.Status, StatusRejectedByTeacher) {
		return nil, ErrInvalidTransition
	}

	updated, err := s.repo.TransitionWithFunds(ctx, bookingID, b.Status, StatusRejectedByTeacher, func(tx *sqlx.Tx, b *Booking) error {
		if b.FromBundle() {
			return s.bundles.SessionAbortedTx(tx, *b.BundleID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordBookingTransition(string(b.Status), string(StatusRejectedByTeacher))
	s.notifier.Emit(ctx, EventBookingRejected, bookingID, nil)

	return updated, nil
}

func (s *service) SubmitPayment(ctx context.Context, studentID, bookingID int) (*Booking, error) {
	b, err := s.repo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.StudentID != studentID {
		return nil, ErrNotOwner
	}
	if !CanTransition(b.Status, StatusPaymentReview) {
		return nil, ErrInvalidTransition
	}

	if err := s.repo.UpdateStatus(ctx, bookingID, StatusWaitingForPayment, StatusPaymentReview); err != nil {
		return nil, err
	}
	b.Status = StatusPaymentReview

	metrics.RecordBookingTransition(string(StatusWaitingForPayment), string(StatusPaymentReview))
	s.notifier.Emit(ctx, EventPaymentSubmitted, b.ID, nil)

	return b, nil
}

// ApprovePayment is the admin-only edge that locks the payer's funds. The
// balance re-check, the slot re-check, the ledger write and the status flip
// all commit in one database transaction.
func (s *service) ApprovePayment(ctx context.Context, bookingID int) (*Booking, error) {
	updated, err := s.repo.TransitionWithFunds(ctx, bookingID, StatusPaymentReview, StatusScheduled, func(tx *sqlx.Tx, b *Booking) error {
		taken, err := s.repo.OverlapExistsTx(tx, b.TeacherID, b.StartsAt, b.EndsAt, b.ID)
		if err != nil {
			return err
		}
		if taken {
			return ErrSlotTaken
		}
		return s.walletRepo.LockTx(tx, b.StudentID, b.ID, b.PriceCents)
	})
	if err != nil {
		return nil, err
	}

	s.provisionMeeting(ctx, updated)

	metrics.RecordBookingTransition(string(StatusPaymentReview), string(StatusScheduled))
	metrics.RecordLedgerTransaction(string(wallet.TypePaymentLock))
	s.notifier.Emit(ctx, EventBookingScheduled, updated.ID, map[string]interface{}{
		"price_cents": updated.PriceCents,
	})

	return updated, nil
}

func (s *service) Confirm(ctx context.Context, studentID, bookingID int) (*Booking, error) {
	b, err := s.repo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.StudentID != studentID {
		return nil, ErrNotOwner
	}
	if b.Status == StatusCompleted {
		// Duplicate confirmation is success-already-happened.
		return b, nil
	}
	if !CanTransition(b.Status, StatusCompleted) {
		return nil, ErrInvalidTransition
	}

	return s.complete(ctx, bookingID)
}

// complete releases the escrowed amount to the teacher and terminates the
// booking. Used by explicit confirmation and by the sweeper's auto-complete.
func (s *service) complete(ctx context.Context, bookingID int) (*Booking, error) {
	updated, err := s.repo.TransitionWithFunds(ctx, bookingID, StatusPendingConfirmation, StatusCompleted, func(tx *sqlx.Tx, b *Booking) error {
		creditType := wallet.TypePaymentRelease
		if b.FromBundle() {
			creditType = wallet.TypePackageRelease
			if err := s.bundles.SessionCompletedTx(tx, *b.BundleID); err != nil {
				return err
			}
		}
		return s.walletRepo.ReleaseTx(tx, b.StudentID, b.TeacherID, b.ID, b.PriceCents, creditType)
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordBookingTransition(string(StatusPendingConfirmation), string(StatusCompleted))
	metrics.RecordLedgerTransaction(string(wallet.TypePaymentRelease))
	s.notifier.Emit(ctx, EventPaymentReleased, updated.ID, map[string]interface{}{
		"amount_cents": updated.PriceCents,
	})

	return updated, nil
}

func cancelStatusFor(role string) (Status, error) {
	switch role {
	case auth.RoleParent:
		return StatusCancelledByParent, nil
	case auth.RoleTeacher:
		return StatusCancelledByTeacher, nil
	case auth.RoleAdmin:
		return StatusCancelledByAdmin, nil
	}
	return "", ErrNotOwner
}

func (s *service) Cancel(ctx context.Context, actorID int, actorRole string, bookingID int) (*Booking, error) {
	b, err := s.repo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	switch actorRole {
	case auth.RoleParent:
		if b.StudentID != actorID {
			return nil, ErrNotOwner
		}
	case auth.RoleTeacher:
		if b.TeacherID != actorID {
			return nil, ErrNotOwner
		}
	case auth.RoleAdmin:
		// admins may cancel any non-terminal booking
	default:
		return nil, ErrNotOwner
	}

	target, err := cancelStatusFor(actorRole)
	if err != nil {
		return nil, err
	}
	if !CanTransition(b.Status, target) {
		return nil, ErrInvalidTransition
	}

	cancelledAt := s.now().UTC()

	updated, err := s.repo.TransitionWithFunds(ctx, bookingID, b.Status, target, func(tx *sqlx.Tx, b *Booking) error {
		if b.FromBundle() && !b.Status.HoldsFunds() {
			// Session never reached scheduled: the slot share goes back to
			// the bundle's schedulable pool, money stays locked at package
			// level.
			return s.bundles.SessionAbortedTx(tx, *b.BundleID)
		}

		if !b.Status.HoldsFunds() {
			return nil
		}

		if b.FromBundle() {
			if err := s.bundles.SessionCompletedTx(tx, *b.BundleID); err != nil {
				return err
			}
		}

		// Teacher- and admin-initiated cancellations always refund in full;
		// the payer's late cancellation pays the teacher's compensation tier.
		if actorRole != auth.RoleParent {
			return s.walletRepo.RefundTx(tx, b.StudentID, b.ID, b.PriceCents)
		}

		policy := s.defaultPolicy
		if profile, err := s.userRepo.GetTeacherProfile(ctx, b.TeacherID); err == nil {
			policy = cancellation.Policy{
				FreeCancelHours:         profile.FreeCancelHours,
				LateCompensationPercent: profile.LateCompensationPercent,
			}
		}

		refund, comp := cancellation.Split(b.PriceCents, b.StartsAt, cancelledAt, policy)
		if comp == 0 {
			return s.walletRepo.RefundTx(tx, b.StudentID, b.ID, b.PriceCents)
		}
		return s.walletRepo.SplitTx(tx, b.StudentID, b.TeacherID, b.ID, refund, comp)
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordBookingTransition(string(b.Status), string(target))
	s.notifier.Emit(ctx, EventBookingCancelled, bookingID, map[string]interface{}{
		"cancelled_by": actorRole,
	})

	return updated, nil
}

func (s *service) Get(ctx context.Context, actorID int, actorRole string, bookingID int) (*Booking, error) {
	b, err := s.repo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if actorRole != auth.RoleAdmin && b.StudentID != actorID && b.TeacherID != actorID {
		return nil, ErrNotOwner
	}
	return b, nil
}

func (s *service) ListForActor(ctx context.Context, actorID int, actorRole string) ([]Booking, error) {
	if actorRole == auth.RoleTeacher {
		return s.repo.ListByTeacher(ctx, actorID)
	}
	return s.repo.ListByStudent(ctx, actorID)
}

func (s *service) ListByStatus(ctx context.Context, status Status) ([]Booking, error) {
	return s.repo.ListByStatus(ctx, status)
}

func (s *service) provisionMeeting(ctx context.Context, b *Booking) {
	url, err := s.meetings.Provision(ctx, b.ID)
	if err != nil {
		logger.Error("meeting link provisioning failed", "booking_id", b.ID, "error", err)
		return
	}
	if err := s.repo.SetMeetingURL(ctx, b.ID, url); err != nil {
		logger.Error("failed to store meeting link", "booking_id", b.ID, "error", err)
		return
	}
	b.MeetingURL = &url
}

// --- time-driven transitions, invoked by the sweeper ---

func (s *service) ExpireApprovals(ctx context.Context) (int, error) {
	cutoff := s.now().UTC().Add(-s.windows.Approval)
	due, err := s.repo.DueForExpiry(ctx, StatusPendingTeacherApproval, cutoff)
	if err != nil {
		return 0, err
	}

	return s.expireAll(ctx, due, StatusPendingTeacherApproval), nil
}

func (s *service) ExpirePayments(ctx context.Context) (int, error) {
	cutoff := s.now().UTC().Add(-s.windows.Payment)
	due, err := s.repo.DueForExpiry(ctx, StatusWaitingForPayment, cutoff)
	if err != nil {
		return 0, err
	}

	return s.expireAll(ctx, due, StatusWaitingForPayment), nil
}

// expireAll transitions each booking independently: one failure never stops
// the rest, and a booking that moved concurrently is simply skipped.
func (s *service) expireAll(ctx context.Context, due []Booking, from Status) int {
	expired := 0
	for _, b := range due {
		_, err := s.repo.TransitionWithFunds(ctx, b.ID, from, StatusExpired, func(tx *sqlx.Tx, b *Booking) error {
			if b.FromBundle() {
				return s.bundles.SessionAbortedTx(tx, *b.BundleID)
			}
			return nil
		})
		if err != nil {
			if !errors.Is(err, ErrStateChanged) {
				logger.Error("failed to expire booking", "booking_id", b.ID, "error", err)
				metrics.RecordSweepError()
			}
			continue
		}
		expired++
		metrics.RecordBookingTransition(string(from), string(StatusExpired))
		s.notifier.Emit(ctx, EventBookingExpired, b.ID, nil)
	}
	return expired
}

func (s *service) StartConfirmations(ctx context.Context) (int, error) {
	due, err := s.repo.DueForConfirmationStart(ctx, s.now().UTC())
	if err != nil {
		return 0, err
	}

	moved := 0
	for _, b := range due {
		if err := s.repo.UpdateStatus(ctx, b.ID, StatusScheduled, StatusPendingConfirmation); err != nil {
			if !errors.Is(err, ErrStateChanged) {
				logger.Error("failed to start confirmation window", "booking_id", b.ID, "error", err)
				metrics.RecordSweepError()
			}
			continue
		}
		moved++
		metrics.RecordBookingTransition(string(StatusScheduled), string(StatusPendingConfirmation))
		s.notifier.Emit(ctx, EventAwaitingConfirm, b.ID, nil)
	}
	return moved, nil
}

func (s *service) AutoComplete(ctx context.Context) (int, error) {
	cutoff := s.now().UTC().Add(-s.windows.Confirmation)
	due, err := s.repo.DueForAutoComplete(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	completed := 0
	for _, b := range due {
		if _, err := s.complete(ctx, b.ID); err != nil {
			if !errors.Is(err, ErrStateChanged) {
				logger.Error("failed to auto-complete booking", "booking_id", b.ID, "error", err)
				metrics.RecordSweepError()
			}
			continue
		}
		completed++
	}
	return completed, nil
}
