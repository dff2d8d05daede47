package bundle

import (
	"context"
	"testing"
	"time"

	"tutorslot/internal/booking"
	"tutorslot/internal/user"
	"tutorslot/internal/wallet"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockBundleRepo struct{ mock.Mock }
type MockWalletRepo struct{ mock.Mock }
type MockUserRepo struct{ mock.Mock }
type MockBookingService struct{ mock.Mock }

func (m *MockBundleRepo) CreateWithFunds(ctx context.Context, b *Bundle, fn func(tx *sqlx.Tx, b *Bundle) error) (*Bundle, error) {
	args := m.Called(ctx, b)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	created := args.Get(0).(*Bundle)
	if err := fn(nil, created); err != nil {
		return nil, err
	}
	return created, args.Error(1)
}

func (m *MockBundleRepo) GetByID(ctx context.Context, id int) (*Bundle, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Bundle), args.Error(1)
}

func (m *MockBundleRepo) ListByStudent(ctx context.Context, studentID int) ([]Bundle, error) {
	args := m.Called(ctx, studentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Bundle), args.Error(1)
}

func (m *MockBundleRepo) ReserveSession(ctx context.Context, id int) (int, error) {
	args := m.Called(ctx, id)
	return args.Int(0), args.Error(1)
}

func (m *MockBundleRepo) ReturnSession(ctx context.Context, id int) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockBundleRepo) SessionAbortedTx(tx *sqlx.Tx, bundleID int) error {
	return m.Called(bundleID).Error(0)
}

func (m *MockBundleRepo) SessionCompletedTx(tx *sqlx.Tx, bundleID int) error {
	return m.Called(bundleID).Error(0)
}

func (m *MockWalletRepo) GetOrCreate(ctx context.Context, userID int) (*wallet.Wallet, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*wallet.Wallet), args.Error(1)
}

func (m *MockWalletRepo) Balance(ctx context.Context, userID int) (*wallet.Balance, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*wallet.Balance), args.Error(1)
}

func (m *MockWalletRepo) Transactions(ctx context.Context, userID int, limit, offset int) ([]wallet.Transaction, error) {
	args := m.Called(ctx, userID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]wallet.Transaction), args.Error(1)
}

func (m *MockWalletRepo) Deposit(ctx context.Context, userID int, amountCents int64) (*wallet.Transaction, error) {
	args := m.Called(ctx, userID, amountCents)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*wallet.Transaction), args.Error(1)
}

func (m *MockWalletRepo) RequestWithdrawal(ctx context.Context, userID int, amountCents int64) (*wallet.Transaction, error) {
	args := m.Called(ctx, userID, amountCents)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*wallet.Transaction), args.Error(1)
}

func (m *MockWalletRepo) PendingReview(ctx context.Context) ([]wallet.Transaction, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]wallet.Transaction), args.Error(1)
}

func (m *MockWalletRepo) Review(ctx context.Context, txID int, approve bool, note string) (*wallet.Transaction, error) {
	args := m.Called(ctx, txID, approve, note)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*wallet.Transaction), args.Error(1)
}

func (m *MockWalletRepo) LockTx(tx *sqlx.Tx, payerUserID, bookingID int, amountCents int64) error {
	return m.Called(payerUserID, bookingID, amountCents).Error(0)
}

func (m *MockWalletRepo) LockBundleTx(tx *sqlx.Tx, payerUserID, bundleID int, amountCents int64) error {
	return m.Called(payerUserID, bundleID, amountCents).Error(0)
}

func (m *MockWalletRepo) ReleaseTx(tx *sqlx.Tx, payerUserID, teacherUserID, bookingID int, amountCents int64, creditType wallet.Type) error {
	return m.Called(payerUserID, teacherUserID, bookingID, amountCents, creditType).Error(0)
}

func (m *MockWalletRepo) RefundTx(tx *sqlx.Tx, payerUserID, bookingID int, amountCents int64) error {
	return m.Called(payerUserID, bookingID, amountCents).Error(0)
}

func (m *MockWalletRepo) SplitTx(tx *sqlx.Tx, payerUserID, teacherUserID, bookingID int, refundCents, compensationCents int64) error {
	return m.Called(payerUserID, teacherUserID, bookingID, refundCents, compensationCents).Error(0)
}

func (m *MockUserRepo) Create(ctx context.Context, name, email, passwordHash, role string) (*user.User, error) {
	args := m.Called(ctx, name, email, passwordHash, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.User), args.Error(1)
}

func (m *MockUserRepo) FindByEmail(ctx context.Context, email string) (*user.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.User), args.Error(1)
}

func (m *MockUserRepo) FindByID(ctx context.Context, id int) (*user.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.User), args.Error(1)
}

func (m *MockUserRepo) EmailExists(ctx context.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}

func (m *MockUserRepo) GetTeacherProfile(ctx context.Context, userID int) (*user.TeacherProfile, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.TeacherProfile), args.Error(1)
}

func (m *MockUserRepo) UpdateTeacherProfile(ctx context.Context, userID int, req user.UpdateTeacherProfileRequest) (*user.TeacherProfile, error) {
	args := m.Called(ctx, userID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.TeacherProfile), args.Error(1)
}

func (m *MockBookingService) Request(ctx context.Context, studentID int, req booking.RequestBookingRequest) (*booking.Booking, error) {
	args := m.Called(ctx, studentID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*booking.Booking), args.Error(1)
}

func (m *MockBookingService) RequestBundleSession(ctx context.Context, studentID, teacherID, bundleID int, subject string, startsAt, endsAt time.Time, priceCents int64) (*booking.Booking, error) {
	args := m.Called(ctx, studentID, teacherID, bundleID, subject, startsAt, endsAt, priceCents)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*booking.Booking), args.Error(1)
}

func (m *MockBookingService) Approve(ctx context.Context, teacherID, bookingID int) (*booking.Booking, error) {
	args := m.Called(ctx, teacherID, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*booking.Booking), args.Error(1)
}

func (m *MockBookingService) Reject(ctx context.Context, teacherID, bookingID int) (*booking.Booking, error) {
	args := m.Called(ctx, teacherID, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*booking.Booking), args.Error(1)
}

func (m *MockBookingService) SubmitPayment(ctx context.Context, studentID, bookingID int) (*booking.Booking, error) {
	args := m.Called(ctx, studentID, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*booking.Booking), args.Error(1)
}

func (m *MockBookingService) ApprovePayment(ctx context.Context, bookingID int) (*booking.Booking, error) {
	args := m.Called(ctx, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*booking.Booking), args.Error(1)
}

func (m *MockBookingService) Confirm(ctx context.Context, studentID, bookingID int) (*booking.Booking, error) {
	args := m.Called(ctx, studentID, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*booking.Booking), args.Error(1)
}

func (m *MockBookingService) Cancel(ctx context.Context, actorID int, actorRole string, bookingID int) (*booking.Booking, error) {
	args := m.Called(ctx, actorID, actorRole, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*booking.Booking), args.Error(1)
}

func (m *MockBookingService) Get(ctx context.Context, actorID int, actorRole string, bookingID int) (*booking.Booking, error) {
	args := m.Called(ctx, actorID, actorRole, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*booking.Booking), args.Error(1)
}

func (m *MockBookingService) ListForActor(ctx context.Context, actorID int, actorRole string) ([]booking.Booking, error) {
	args := m.Called(ctx, actorID, actorRole)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]booking.Booking), args.Error(1)
}

func (m *MockBookingService) ListByStatus(ctx context.Context, status booking.Status) ([]booking.Booking, error) {
	args := m.Called(ctx, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]booking.Booking), args.Error(1)
}

func (m *MockBookingService) ExpireApprovals(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockBookingService) ExpirePayments(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockBookingService) StartConfirmations(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockBookingService) AutoComplete(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func TestShareFor(t *testing.T) {
	// 4 sessions at a non-divisible total: remainder cents land on the last.
	b := &Bundle{SessionCount: 4, TotalCents: 3601, SessionShareCents: 900}

	assert.Equal(t, int64(900), b.ShareFor(1))
	assert.Equal(t, int64(900), b.ShareFor(3))
	assert.Equal(t, int64(901), b.ShareFor(4))

	sum := int64(0)
	for n := 1; n <= b.SessionCount; n++ {
		sum += b.ShareFor(n)
	}
	assert.Equal(t, b.TotalCents, sum)
}

func TestDiscountedTotal(t *testing.T) {
	// 4 x 1000 at 10% off.
	assert.Equal(t, int64(3600), discountedTotal(1000, Tier{SessionCount: 4, DiscountPercent: 10}))
	// 8 x 4500 at 15% off: 36000 * 0.85.
	assert.Equal(t, int64(30600), discountedTotal(4500, Tier{SessionCount: 8, DiscountPercent: 15}))
}

func TestPurchase(t *testing.T) {
	t.Run("locks the discounted total", func(t *testing.T) {
		repo := new(MockBundleRepo)
		wallets := new(MockWalletRepo)
		users := new(MockUserRepo)

		users.On("GetTeacherProfile", mock.Anything, 2).Return(&user.TeacherProfile{
			UserID: 2, Subject: "Mathematics", HourlyRateCents: 1000,
		}, nil)
		repo.On("CreateWithFunds", mock.Anything, mock.MatchedBy(func(b *Bundle) bool {
			return b.TotalCents == 3600 && b.SessionShareCents == 900 && b.SessionCount == 4
		})).Return(&Bundle{
			ID: 3, StudentID: 7, TeacherID: 2, TierID: "starter",
			SessionCount: 4, TotalCents: 3600, SessionShareCents: 900,
		}, nil)
		wallets.On("LockBundleTx", 7, 3, int64(3600)).Return(nil)

		svc := NewService(repo, wallets, users, new(MockBookingService), 60)

		b, err := svc.Purchase(context.Background(), 7, PurchaseRequest{TeacherID: 2, TierID: "starter"})
		require.NoError(t, err)
		assert.Equal(t, int64(3600), b.TotalCents)
		wallets.AssertExpectations(t)
	})

	t.Run("insufficient funds aborts the purchase", func(t *testing.T) {
		repo := new(MockBundleRepo)
		wallets := new(MockWalletRepo)
		users := new(MockUserRepo)

		users.On("GetTeacherProfile", mock.Anything, 2).Return(&user.TeacherProfile{
			UserID: 2, HourlyRateCents: 1000,
		}, nil)
		repo.On("CreateWithFunds", mock.Anything, mock.Anything).Return(&Bundle{
			ID: 3, StudentID: 7, TotalCents: 3600,
		}, nil)
		wallets.On("LockBundleTx", 7, 3, int64(3600)).Return(wallet.ErrInsufficientFunds)

		svc := NewService(repo, wallets, users, new(MockBookingService), 60)

		_, err := svc.Purchase(context.Background(), 7, PurchaseRequest{TeacherID: 2, TierID: "starter"})
		assert.ErrorIs(t, err, wallet.ErrInsufficientFunds)
	})

	t.Run("unknown tier", func(t *testing.T) {
		svc := NewService(new(MockBundleRepo), new(MockWalletRepo), new(MockUserRepo), new(MockBookingService), 60)

		_, err := svc.Purchase(context.Background(), 7, PurchaseRequest{TeacherID: 2, TierID: "mega"})
		assert.ErrorIs(t, err, ErrUnknownTier)
	})
}

func TestScheduleNext(t *testing.T) {
	start := time.Now().UTC().Add(48 * time.Hour)
	end := start.Add(time.Hour)
	stored := &Bundle{
		ID: 3, StudentID: 7, TeacherID: 2, Subject: "Mathematics",
		SessionCount: 4, SessionsScheduled: 2, TotalCents: 3601, SessionShareCents: 900,
	}

	t.Run("reserves a session and requests the booking", func(t *testing.T) {
		repo := new(MockBundleRepo)
		bookings := new(MockBookingService)

		repo.On("GetByID", mock.Anything, 3).Return(stored, nil)
		repo.On("ReserveSession", mock.Anything, 3).Return(3, nil)
		bookings.On("RequestBundleSession", mock.Anything, 7, 2, 3, "Mathematics", start, end, int64(900)).
			Return(&booking.Booking{ID: 11, Status: booking.StatusPendingTeacherApproval}, nil)

		svc := NewService(repo, new(MockWalletRepo), new(MockUserRepo), bookings, 60)

		b, err := svc.ScheduleNext(context.Background(), 7, 3, ScheduleRequest{StartsAt: start, EndsAt: end})
		require.NoError(t, err)
		assert.Equal(t, 11, b.ID)
		repo.AssertNotCalled(t, "ReturnSession", mock.Anything, mock.Anything)
	})

	t.Run("last session carries the remainder cents", func(t *testing.T) {
		repo := new(MockBundleRepo)
		bookings := new(MockBookingService)

		last := *stored
		last.SessionsScheduled = 3
		repo.On("GetByID", mock.Anything, 3).Return(&last, nil)
		repo.On("ReserveSession", mock.Anything, 3).Return(4, nil)
		bookings.On("RequestBundleSession", mock.Anything, 7, 2, 3, "Mathematics", start, end, int64(901)).
			Return(&booking.Booking{ID: 12}, nil)

		svc := NewService(repo, new(MockWalletRepo), new(MockUserRepo), bookings, 60)

		_, err := svc.ScheduleNext(context.Background(), 7, 3, ScheduleRequest{StartsAt: start, EndsAt: end})
		require.NoError(t, err)
		bookings.AssertExpectations(t)
	})

	t.Run("share follows the reserved ordinal, not the earlier read", func(t *testing.T) {
		repo := new(MockBundleRepo)
		bookings := new(MockBookingService)

		// Another scheduler claims session 3 between our read and our
		// reservation: the ordinal we get back is 4, so the remainder cent
		// rides on this booking even though the read said two scheduled.
		repo.On("GetByID", mock.Anything, 3).Return(stored, nil)
		repo.On("ReserveSession", mock.Anything, 3).Return(4, nil)
		bookings.On("RequestBundleSession", mock.Anything, 7, 2, 3, "Mathematics", start, end, int64(901)).
			Return(&booking.Booking{ID: 13}, nil)

		svc := NewService(repo, new(MockWalletRepo), new(MockUserRepo), bookings, 60)

		_, err := svc.ScheduleNext(context.Background(), 7, 3, ScheduleRequest{StartsAt: start, EndsAt: end})
		require.NoError(t, err)
		bookings.AssertExpectations(t)
	})

	t.Run("exhausted bundle", func(t *testing.T) {
		repo := new(MockBundleRepo)

		repo.On("GetByID", mock.Anything, 3).Return(stored, nil)
		repo.On("ReserveSession", mock.Anything, 3).Return(0, ErrBundleExhausted)

		svc := NewService(repo, new(MockWalletRepo), new(MockUserRepo), new(MockBookingService), 60)

		_, err := svc.ScheduleNext(context.Background(), 7, 3, ScheduleRequest{StartsAt: start, EndsAt: end})
		assert.ErrorIs(t, err, ErrBundleExhausted)
	})

	t.Run("failed booking returns the reserved session", func(t *testing.T) {
		repo := new(MockBundleRepo)
		bookings := new(MockBookingService)

		repo.On("GetByID", mock.Anything, 3).Return(stored, nil)
		repo.On("ReserveSession", mock.Anything, 3).Return(3, nil)
		bookings.On("RequestBundleSession", mock.Anything, 7, 2, 3, "Mathematics", start, end, int64(900)).
			Return(nil, booking.ErrSlotUnavailable)
		repo.On("ReturnSession", mock.Anything, 3).Return(nil)

		svc := NewService(repo, new(MockWalletRepo), new(MockUserRepo), bookings, 60)

		_, err := svc.ScheduleNext(context.Background(), 7, 3, ScheduleRequest{StartsAt: start, EndsAt: end})
		assert.ErrorIs(t, err, booking.ErrSlotUnavailable)
		repo.AssertExpectations(t)
	})

	t.Run("not the owner", func(t *testing.T) {
		repo := new(MockBundleRepo)
		repo.On("GetByID", mock.Anything, 3).Return(stored, nil)

		svc := NewService(repo, new(MockWalletRepo), new(MockUserRepo), new(MockBookingService), 60)

		_, err := svc.ScheduleNext(context.Background(), 99, 3, ScheduleRequest{StartsAt: start, EndsAt: end})
		assert.ErrorIs(t, err, ErrNotOwner)
	})
}
