package ledger

import "context"

// Log is the append-only store of transaction records.
type Log interface {
	// Append persists rec inside the unit carried by ctx and fills in its ID
	// and CreatedAt. A failed append writes nothing.
	Append(ctx context.Context, rec *Transaction) error
	// QueryByUser returns the committed records where user is sender or
	// receiver, newest first; records sharing a timestamp come latest insertion first.
	QueryByUser(ctx context.Context, user int64) ([]Transaction, error)
}
