package wallet

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/congo-pay/walletledger/internal/cache"
)

// Service exposes wallet operations outside the ledger engine.
type Service struct {
	store Store
	cache *cache.Store
	now   func() time.Time
}

// NewService builds a wallet service instance. A nil cache disables caching.
func NewService(store Store, c *cache.Store) *Service {
	if c == nil {
		c = cache.Disabled()
	}
	return &Service{store: store, cache: c, now: func() time.Time { return time.Now().UTC() }}
}

// Provision opens the zero-balance wallet of a new user.
func (s *Service) Provision(ctx context.Context, owner int64) error {
	return s.store.Create(ctx, owner)
}

// Remove deletes the wallet inside the caller's unit of work. The cached
// balance survives until ForgetBalance runs after commit.
func (s *Service) Remove(ctx context.Context, owner int64) error {
	return s.store.Delete(ctx, owner)
}

// ForgetBalance drops the cached balance of owner.
func (s *Service) ForgetBalance(ctx context.Context, owner int64) error {
	return s.cache.InvalidateBalance(ctx, owner)
}

// Balance returns the committed balance, served from cache when possible.
func (s *Service) Balance(ctx context.Context, owner int64) (Balance, error) {
	var amount decimal.Decimal
	err := s.cache.Fetch(ctx, cache.BalanceKey(owner), &amount, func(ctx context.Context) (any, error) {
		return s.store.Balance(ctx, owner)
	})
	if err != nil {
		return Balance{}, err
	}
	return Balance{OwnerID: owner, Amount: amount, AsOf: s.now()}, nil
}
