package wallet

import "time"

// Type classifies ledger entries. The set is append-only: new types may be
// added, existing ones are never repurposed.
type Type string

const (
	TypeDeposit                  Type = "deposit"
	TypeDepositApproved          Type = "deposit_approved"
	TypeWithdrawal               Type = "withdrawal"
	TypeWithdrawalCompleted      Type = "withdrawal_completed"
	TypeWithdrawalRefunded       Type = "withdrawal_refunded"
	TypePaymentLock              Type = "payment_lock"
	TypePaymentRelease           Type = "payment_release"
	TypeRefund                   Type = "refund"
	TypeCancellationCompensation Type = "cancellation_compensation"
	TypePackagePurchase          Type = "package_purchase"
	TypePackageRelease           Type = "package_release"
	TypeEscrowRelease            Type = "escrow_release"
)

type TxStatus string

const (
	StatusPending  TxStatus = "pending"
	StatusApproved TxStatus = "approved"
	StatusRejected TxStatus = "rejected"
	StatusPaid     TxStatus = "paid"
)

type Wallet struct {
	ID             int       `db:"id" json:"id"`
	UserID         int       `db:"user_id" json:"user_id"`
	ReadableID     string    `db:"readable_id" json:"readable_id"`
	AvailableCents int64     `db:"available_cents" json:"available_cents"`
	LockedCents    int64     `db:"locked_cents" json:"locked_cents"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

func (w *Wallet) TotalCents() int64 {
	return w.AvailableCents + w.LockedCents
}

// Transaction is an immutable ledger entry. Amounts are always positive;
// the type determines direction. Only the review status of pending
// deposit/withdrawal requests ever changes after insert.
type Transaction struct {
	ID          int       `db:"id" json:"id"`
	WalletID    int       `db:"wallet_id" json:"wallet_id"`
	Type        Type      `db:"type" json:"type"`
	Status      TxStatus  `db:"status" json:"status"`
	AmountCents int64     `db:"amount_cents" json:"amount_cents"`
	BookingID   *int      `db:"booking_id" json:"booking_id,omitempty"`
	BundleID    *int      `db:"bundle_id" json:"bundle_id,omitempty"`
	AdminNote   *string   `db:"admin_note" json:"admin_note,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

type Balance struct {
	AvailableCents int64 `json:"available_cents"`
	LockedCents    int64 `json:"locked_cents"`
	TotalCents     int64 `json:"total_cents"`
}

type DepositRequest struct {
	AmountCents int64 `json:"amount_cents" binding:"required,gt=0"`
}

type WithdrawalRequest struct {
	AmountCents int64 `json:"amount_cents" binding:"required,gt=0"`
}

type ReviewRequest struct {
	Decision string `json:"decision" binding:"required,oneof=approve reject"`
	Note     string `json:"note,omitempty"`
}
