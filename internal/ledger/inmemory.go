package ledger

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/congo-pay/walletledger/internal/storage"
)

type inMemoryLog struct {
	mu      sync.RWMutex
	nextID  int64
	records []Transaction
	now     func() time.Time
}

// NewInMemoryLog creates a concurrency-safe in-memory transaction log. Records
// appended inside a memory unit become visible when the unit commits.
func NewInMemoryLog() Log {
	return &inMemoryLog{now: func() time.Time { return time.Now().UTC() }}
}

func (l *inMemoryLog) Append(ctx context.Context, rec *Transaction) error {
	if err := rec.Validate(); err != nil {
		return err
	}

	l.mu.Lock()
	l.nextID++
	rec.ID = l.nextID
	rec.CreatedAt = l.now()
	stored := *rec
	l.mu.Unlock()

	publish := func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.records = append(l.records, stored)
	}
	if u := storage.MemoryUnitFrom(ctx); u != nil {
		u.OnCommit(publish)
		return nil
	}
	publish()
	return nil
}

func (l *inMemoryLog) QueryByUser(_ context.Context, user int64) ([]Transaction, error) {
	l.mu.RLock()
	matches := make([]Transaction, 0)
	for i := len(l.records) - 1; i >= 0; i-- {
		if l.records[i].Involves(user) {
			matches = append(matches, l.records[i])
		}
	}
	l.mu.RUnlock()

	sort.SliceStable(matches, func(i, j int) bool {
		if !matches[i].CreatedAt.Equal(matches[j].CreatedAt) {
			return matches[i].CreatedAt.After(matches[j].CreatedAt)
		}
		return matches[i].ID > matches[j].ID
	})
	return matches, nil
}
