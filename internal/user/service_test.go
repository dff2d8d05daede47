package user

import (
	"context"
	"testing"

	"tutorslot/internal/auth"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockUserRepo struct{ mock.Mock }

func (m *MockUserRepo) Create(ctx context.Context, name, email, passwordHash, role string) (*User, error) {
	args := m.Called(ctx, name, email, passwordHash, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*User), args.Error(1)
}

func (m *MockUserRepo) FindByEmail(ctx context.Context, email string) (*User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*User), args.Error(1)
}

func (m *MockUserRepo) FindByID(ctx context.Context, id int) (*User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*User), args.Error(1)
}

func (m *MockUserRepo) EmailExists(ctx context.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}

func (m *MockUserRepo) GetTeacherProfile(ctx context.Context, userID int) (*TeacherProfile, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*TeacherProfile), args.Error(1)
}

func (m *MockUserRepo) UpdateTeacherProfile(ctx context.Context, userID int, req UpdateTeacherProfileRequest) (*TeacherProfile, error) {
	args := m.Called(ctx, userID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*TeacherProfile), args.Error(1)
}

const testJWTSecret = "test-jwt-secret"

func TestRegister(t *testing.T) {
	t.Run("Successful registration", func(t *testing.T) {
		repo := new(MockUserRepo)
		repo.On("EmailExists", mock.Anything, "parent@example.com").Return(false, nil)
		repo.On("Create", mock.Anything, "Anna", "parent@example.com", mock.AnythingOfType("string"), "parent").Return(&User{
			ID: 1, Name: "Anna", Email: "parent@example.com", Role: "parent",
		}, nil)

		svc := NewService(repo, testJWTSecret)

		u, access, refresh, err := svc.Register(context.Background(), RegisterRequest{
			Name: "Anna", Email: "parent@example.com", Password: "password123", Role: "parent",
		})

		require.NoError(t, err)
		assert.Equal(t, 1, u.ID)
		assert.NotEmpty(t, access)
		assert.NotEmpty(t, refresh)

		// The stored hash must verify against the original password.
		hash := repo.Calls[1].Arguments.String(3)
		assert.True(t, auth.CheckPassword(hash, "password123"))
	})

	t.Run("Duplicate email", func(t *testing.T) {
		repo := new(MockUserRepo)
		repo.On("EmailExists", mock.Anything, "taken@example.com").Return(true, nil)

		svc := NewService(repo, testJWTSecret)

		_, _, _, err := svc.Register(context.Background(), RegisterRequest{
			Name: "Anna", Email: "taken@example.com", Password: "password123", Role: "parent",
		})

		assert.ErrorIs(t, err, ErrEmailExists)
		repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestLogin(t *testing.T) {
	hash, _ := auth.HashPassword("password123")
	stored := &User{ID: 1, Email: "parent@example.com", PasswordHash: hash, Role: "parent"}

	t.Run("Successful login", func(t *testing.T) {
		repo := new(MockUserRepo)
		repo.On("FindByEmail", mock.Anything, "parent@example.com").Return(stored, nil)

		svc := NewService(repo, testJWTSecret)

		u, access, refresh, err := svc.Login(context.Background(), LoginRequest{
			Email: "parent@example.com", Password: "password123",
		})

		require.NoError(t, err)
		assert.Equal(t, 1, u.ID)
		assert.NotEmpty(t, access)
		assert.NotEmpty(t, refresh)
	})

	t.Run("Wrong password", func(t *testing.T) {
		repo := new(MockUserRepo)
		repo.On("FindByEmail", mock.Anything, "parent@example.com").Return(stored, nil)

		svc := NewService(repo, testJWTSecret)

		_, _, _, err := svc.Login(context.Background(), LoginRequest{
			Email: "parent@example.com", Password: "wrongpass",
		})

		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("Unknown email", func(t *testing.T) {
		repo := new(MockUserRepo)
		repo.On("FindByEmail", mock.Anything, "nobody@example.com").Return(nil, ErrUserNotFound)

		svc := NewService(repo, testJWTSecret)

		_, _, _, err := svc.Login(context.Background(), LoginRequest{
			Email: "nobody@example.com", Password: "password123",
		})

		// Same error for unknown email and wrong password.
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})
}

func TestRefreshToken(t *testing.T) {
	stored := &User{ID: 1, Email: "parent@example.com", Role: "parent"}

	t.Run("Successful refresh", func(t *testing.T) {
		repo := new(MockUserRepo)
		repo.On("FindByID", mock.Anything, 1).Return(stored, nil)

		refreshToken, err := auth.GenerateRefreshToken(1, "parent@example.com", "parent", testJWTSecret)
		require.NoError(t, err)

		svc := NewService(repo, testJWTSecret)

		access, u, err := svc.RefreshToken(context.Background(), refreshToken)
		require.NoError(t, err)
		assert.NotEmpty(t, access)
		assert.Equal(t, 1, u.ID)
	})

	t.Run("Access token rejected", func(t *testing.T) {
		accessToken, err := auth.GenerateAccessToken(1, "parent@example.com", "parent", testJWTSecret)
		require.NoError(t, err)

		svc := NewService(new(MockUserRepo), testJWTSecret)

		_, _, err = svc.RefreshToken(context.Background(), accessToken)
		assert.ErrorIs(t, err, auth.ErrInvalidTokenType)
	})
}

func TestGetTeacherProfile(t *testing.T) {
	t.Run("Returns the profile for a teacher", func(t *testing.T) {
		repo := new(MockUserRepo)
		repo.On("FindByID", mock.Anything, 2).Return(&User{ID: 2, Role: auth.RoleTeacher}, nil)
		repo.On("GetTeacherProfile", mock.Anything, 2).Return(&TeacherProfile{
			UserID: 2, Subject: "Mathematics", HourlyRateCents: 5000,
		}, nil)

		svc := NewService(repo, testJWTSecret)

		p, err := svc.GetTeacherProfile(context.Background(), 2)
		require.NoError(t, err)
		assert.Equal(t, "Mathematics", p.Subject)
	})

	t.Run("Rejects non-teachers", func(t *testing.T) {
		repo := new(MockUserRepo)
		repo.On("FindByID", mock.Anything, 7).Return(&User{ID: 7, Role: auth.RoleParent}, nil)

		svc := NewService(repo, testJWTSecret)

		_, err := svc.GetTeacherProfile(context.Background(), 7)
		assert.ErrorIs(t, err, ErrNotATeacher)
	})
}

func TestUpdateTeacherProfile(t *testing.T) {
	t.Run("Valid timezone", func(t *testing.T) {
		tz := "Europe/Berlin"
		repo := new(MockUserRepo)
		repo.On("UpdateTeacherProfile", mock.Anything, 2, mock.Anything).Return(&TeacherProfile{
			UserID: 2, Timezone: tz,
		}, nil)

		svc := NewService(repo, testJWTSecret)

		p, err := svc.UpdateTeacherProfile(context.Background(), 2, UpdateTeacherProfileRequest{Timezone: &tz})
		require.NoError(t, err)
		assert.Equal(t, tz, p.Timezone)
	})

	t.Run("Invalid timezone", func(t *testing.T) {
		tz := "Mars/Olympus"
		repo := new(MockUserRepo)

		svc := NewService(repo, testJWTSecret)

		_, err := svc.UpdateTeacherProfile(context.Background(), 2, UpdateTeacherProfileRequest{Timezone: &tz})
		assert.ErrorIs(t, err, ErrInvalidTimezone)
		repo.AssertNotCalled(t, "UpdateTeacherProfile", mock.Anything, mock.Anything, mock.Anything)
	})
}
