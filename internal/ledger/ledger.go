// Package ledger moves money between wallets. Every operation validates its
// input, locks the affected wallets in ascending owner order, mutates the
// balances and appends one immutable transaction record inside a single
// storage unit.
package ledger

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidAmount rejects amounts that are not strictly positive.
	ErrInvalidAmount = errors.New("invalid amount")
	// ErrInsufficientFunds occurs when the debited wallet cannot cover the amount.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrSameParty rejects transfers whose sender and receiver are the same user.
	ErrSameParty = errors.New("sender and receiver cannot be the same")
	// ErrPersistenceFailure marks every storage error surfaced by the engine.
	ErrPersistenceFailure = errors.New("persistence failure")
	// ErrInvalidRecord is returned when a transaction record breaks its shape rules.
	ErrInvalidRecord = errors.New("invalid transaction record")
)

// PersistenceError wraps a storage error raised during Op. It matches both
// ErrPersistenceFailure and the underlying cause with errors.Is.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrPersistenceFailure, e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() []error {
	return []error{ErrPersistenceFailure, e.Err}
}

func persistence(op string, err error) error {
	return &PersistenceError{Op: op, Err: err}
}

// ErrorKind discriminates the failures of a ledger operation.
type ErrorKind string

const (
	KindNone               ErrorKind = ""
	KindInvalidAmount      ErrorKind = "invalid_amount"
	KindInsufficientFunds  ErrorKind = "insufficient_funds"
	KindSameParty          ErrorKind = "same_party"
	KindPersistenceFailure ErrorKind = "persistence_failure"
)

// KindOf classifies an error returned by the engine. Errors that did not
// originate from the engine are reported as persistence failures.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrInvalidAmount):
		return KindInvalidAmount
	case errors.Is(err, ErrInsufficientFunds):
		return KindInsufficientFunds
	case errors.Is(err, ErrSameParty):
		return KindSameParty
	default:
		return KindPersistenceFailure
	}
}

// Type is the closed set of transaction kinds.
type Type string

const (
	TypeDeposit    Type = "deposit"
	TypeWithdrawal Type = "withdrawal"
	TypeTransfer   Type = "transfer"
)

// Valid reports whether t is one of the known kinds.
func (t Type) Valid() bool {
	switch t {
	case TypeDeposit, TypeWithdrawal, TypeTransfer:
		return true
	default:
		return false
	}
}

// ParseType converts a stored value into a Type.
func ParseType(raw string) (Type, error) {
	t := Type(raw)
	if !t.Valid() {
		return "", fmt.Errorf("%w: unknown type %q", ErrInvalidRecord, raw)
	}
	return t, nil
}

// Transaction is an immutable record of a completed balance change.
type Transaction struct {
	ID         int64           `json:"id"`
	SenderID   *int64          `json:"sender_id"`
	ReceiverID *int64          `json:"receiver_id"`
	Amount     decimal.Decimal `json:"amount"`
	Type       Type            `json:"transaction_type"`
	CreatedAt  time.Time       `json:"created_at"`
}

// Validate checks the per-type shape of the record.
func (t *Transaction) Validate() error {
	if !t.Amount.IsPositive() {
		return fmt.Errorf("%w: amount must be positive", ErrInvalidRecord)
	}
	switch t.Type {
	case TypeDeposit:
		if t.SenderID != nil || t.ReceiverID == nil {
			return fmt.Errorf("%w: deposit needs a receiver and no sender", ErrInvalidRecord)
		}
	case TypeWithdrawal:
		if t.SenderID == nil || t.ReceiverID != nil {
			return fmt.Errorf("%w: withdrawal needs a sender and no receiver", ErrInvalidRecord)
		}
	case TypeTransfer:
		if t.SenderID == nil || t.ReceiverID == nil {
			return fmt.Errorf("%w: transfer needs a sender and a receiver", ErrInvalidRecord)
		}
		if *t.SenderID == *t.ReceiverID {
			return fmt.Errorf("%w: transfer parties must differ", ErrInvalidRecord)
		}
	default:
		return fmt.Errorf("%w: unknown type %q", ErrInvalidRecord, t.Type)
	}
	return nil
}

// Parties lists the users the record touches, sender first.
func (t *Transaction) Parties() []int64 {
	parties := make([]int64, 0, 2)
	if t.SenderID != nil {
		parties = append(parties, *t.SenderID)
	}
	if t.ReceiverID != nil {
		parties = append(parties, *t.ReceiverID)
	}
	return parties
}

// Involves reports whether user is the sender or the receiver.
func (t *Transaction) Involves(user int64) bool {
	return (t.SenderID != nil && *t.SenderID == user) || (t.ReceiverID != nil && *t.ReceiverID == user)
}

func userRef(id int64) *int64 {
	return &id
}
