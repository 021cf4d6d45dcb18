package ledger

import (
	"context"

	"github.com/congo-pay/walletledger/internal/cache"
)

// Directory resolves user display names.
type Directory interface {
	Names(ctx context.Context, ids []int64) (map[int64]string, error)
}

// Reader serves projected transaction histories.
type Reader struct {
	log   Log
	names Directory
	cache *cache.Store
}

// NewReader builds a history reader. A nil cache disables caching.
func NewReader(log Log, names Directory, c *cache.Store) *Reader {
	if c == nil {
		c = cache.Disabled()
	}
	return &Reader{log: log, names: names, cache: c}
}

// History returns user's transactions newest first, read through the cache.
func (r *Reader) History(ctx context.Context, user int64) ([]ProjectedTransaction, error) {
	var history []ProjectedTransaction
	err := r.cache.Fetch(ctx, cache.HistoryKey(user), &history, func(ctx context.Context) (any, error) {
		return r.load(ctx, user)
	})
	if err != nil {
		return nil, err
	}
	if history == nil {
		history = []ProjectedTransaction{}
	}
	return history, nil
}

func (r *Reader) load(ctx context.Context, user int64) ([]ProjectedTransaction, error) {
	records, err := r.log.QueryByUser(ctx, user)
	if err != nil {
		return nil, persistence("query history", err)
	}
	names := map[int64]string{}
	if ids := Counterparties(user, records); len(ids) > 0 && r.names != nil {
		if names, err = r.names.Names(ctx, ids); err != nil {
			return nil, persistence("resolve names", err)
		}
	}
	return Project(user, records, names)
}
