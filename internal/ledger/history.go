package ledger

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Direction tells a viewer which side of a transfer they were on.
type Direction string

const (
	DirectionOutgoing Direction = "outgoing"
	DirectionIncoming Direction = "incoming"
)

// Party identifies the other user of a transfer.
type Party struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// ProjectedTransaction is a transaction as seen by one of its parties.
type ProjectedTransaction struct {
	ID           int64           `json:"id"`
	Type         Type            `json:"transaction_type"`
	TransferType *Direction      `json:"transfer_type"`
	Amount       decimal.Decimal `json:"amount"`
	Timestamp    time.Time       `json:"timestamp"`
	Counterparty *Party          `json:"counterparty"`
}

// Project builds the viewer's history from records, keeping their order.
// names maps user ids to display names; a missing name renders empty.
func Project(viewer int64, records []Transaction, names map[int64]string) ([]ProjectedTransaction, error) {
	out := make([]ProjectedTransaction, 0, len(records))
	for _, rec := range records {
		p := ProjectedTransaction{
			ID:        rec.ID,
			Type:      rec.Type,
			Amount:    rec.Amount,
			Timestamp: rec.CreatedAt,
		}
		switch rec.Type {
		case TypeDeposit, TypeWithdrawal:
		case TypeTransfer:
			if rec.SenderID == nil || rec.ReceiverID == nil {
				return nil, fmt.Errorf("%w: transfer %d is missing a party", ErrInvalidRecord, rec.ID)
			}
			direction, other := DirectionIncoming, *rec.SenderID
			if *rec.SenderID == viewer {
				direction, other = DirectionOutgoing, *rec.ReceiverID
			}
			p.TransferType = &direction
			p.Counterparty = &Party{ID: other, Name: names[other]}
		default:
			return nil, fmt.Errorf("%w: unknown type %q", ErrInvalidRecord, rec.Type)
		}
		out = append(out, p)
	}
	return out, nil
}

// Counterparties lists the distinct users, other than viewer, named by the
// transfers in records.
func Counterparties(viewer int64, records []Transaction) []int64 {
	seen := make(map[int64]struct{})
	ids := make([]int64, 0)
	for _, rec := range records {
		if rec.Type != TypeTransfer {
			continue
		}
		for _, id := range rec.Parties() {
			if id == viewer {
				continue
			}
			if _, ok := seen[id]; !ok {
				seen[id] = struct{}{}
				ids = append(ids, id)
			}
		}
	}
	return ids
}
