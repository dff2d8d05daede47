package integration_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tutorslot/internal/wallet"
)

func TestWalletDepositReview_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	database := setupTestDB(t)
	defer database.Close()

	cleanDatabase(t, database)

	s := newStack(t, database)
	ctx := context.Background()

	userID := createTestParent(t, database, "depositor@test.com", "Depositor")

	txn, err := s.wallets.Deposit(ctx, userID, 5000)
	require.NoError(t, err)
	assert.Equal(t, wallet.TypeDeposit, txn.Type)
	assert.Equal(t, wallet.StatusPending, txn.Status)

	// Pending deposits do not move money.
	requireBalance(t, s, userID, 0, 0)

	pending, err := s.wallets.PendingReview(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, txn.ID, pending[0].ID)

	reviewed, err := s.wallets.Review(ctx, txn.ID, true, "looks good")
	require.NoError(t, err)
	assert.Equal(t, wallet.StatusApproved, reviewed.Status)
	require.NotNil(t, reviewed.AdminNote)
	assert.Equal(t, "looks good", *reviewed.AdminNote)

	requireBalance(t, s, userID, 5000, 0)

	// The approval leaves two ledger rows: the flipped request and the
	// balance-moving entry.
	txs, err := s.wallets.Transactions(ctx, userID, 10, 0)
	require.NoError(t, err)
	require.Len(t, txs, 2)

	// An already-reviewed transaction cannot be reviewed again.
	_, err = s.wallets.Review(ctx, txn.ID, true, "")
	assert.ErrorIs(t, err, wallet.ErrNotReviewable)
}

func TestWalletDepositRejected_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	database := setupTestDB(t)
	defer database.Close()

	cleanDatabase(t, database)

	s := newStack(t, database)
	ctx := context.Background()

	userID := createTestParent(t, database, "rejected@test.com", "Rejected")

	txn, err := s.wallets.Deposit(ctx, userID, 5000)
	require.NoError(t, err)

	reviewed, err := s.wallets.Review(ctx, txn.ID, false, "payment never arrived")
	require.NoError(t, err)
	assert.Equal(t, wallet.StatusRejected, reviewed.Status)

	requireBalance(t, s, userID, 0, 0)
}

func TestWalletWithdrawal_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	database := setupTestDB(t)
	defer database.Close()

	s := newStack(t, database)
	ctx := context.Background()

	t.Run("Requested amount is held until payout", func(t *testing.T) {
		cleanDatabase(t, database)

		userID := createTestParent(t, database, "withdrawer@test.com", "Withdrawer")
		fundWallet(t, s, userID, 5000)

		txn, err := s.wallets.RequestWithdrawal(ctx, userID, 2000)
		require.NoError(t, err)
		assert.Equal(t, wallet.TypeWithdrawal, txn.Type)
		assert.Equal(t, wallet.StatusPending, txn.Status)

		requireBalance(t, s, userID, 3000, 2000)

		reviewed, err := s.wallets.Review(ctx, txn.ID, true, "paid out")
		require.NoError(t, err)
		assert.Equal(t, wallet.StatusPaid, reviewed.Status)

		requireBalance(t, s, userID, 3000, 0)
	})

	t.Run("Rejected withdrawal returns the held amount", func(t *testing.T) {
		cleanDatabase(t, database)

		userID := createTestParent(t, database, "withdrawer@test.com", "Withdrawer")
		fundWallet(t, s, userID, 5000)

		txn, err := s.wallets.RequestWithdrawal(ctx, userID, 2000)
		require.NoError(t, err)
		requireBalance(t, s, userID, 3000, 2000)

		reviewed, err := s.wallets.Review(ctx, txn.ID, false, "bank details invalid")
		require.NoError(t, err)
		assert.Equal(t, wallet.StatusRejected, reviewed.Status)

		requireBalance(t, s, userID, 5000, 0)
	})

	t.Run("Fail withdrawal beyond available balance", func(t *testing.T) {
		cleanDatabase(t, database)

		userID := createTestParent(t, database, "withdrawer@test.com", "Withdrawer")
		fundWallet(t, s, userID, 1000)

		_, err := s.wallets.RequestWithdrawal(ctx, userID, 5000)
		require.ErrorIs(t, err, wallet.ErrInsufficientFunds)

		requireBalance(t, s, userID, 1000, 0)
	})
}
