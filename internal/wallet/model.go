package wallet

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrWalletNotFound indicates the user has no wallet.
	ErrWalletNotFound = errors.New("wallet not found")
	// ErrWalletExists is returned when provisioning a second wallet for a user.
	ErrWalletExists = errors.New("wallet already exists")
	// ErrNegativeBalance rejects a write that would leave a wallet below zero.
	ErrNegativeBalance = errors.New("wallet balance cannot be negative")
	// ErrHandleReleased is returned when writing through a released handle.
	ErrHandleReleased = errors.New("wallet handle already released")
)

// Balance is a point-in-time read of a wallet.
type Balance struct {
	OwnerID int64           `json:"user_id"`
	Amount  decimal.Decimal `json:"balance"`
	AsOf    time.Time       `json:"as_of"`
}

// Handle is an exclusive hold on one wallet, obtained from Store.LockAndRead
// and valid until Store.Release. Balance reflects the last value read or written.
type Handle struct {
	Owner   int64
	Balance decimal.Decimal

	mem      *memoryWallet
	released bool
}
