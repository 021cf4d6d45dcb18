package wallet

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/congo-pay/walletledger/internal/storage"
)

type memoryWallet struct {
	mu      sync.Mutex
	balance decimal.Decimal
	deleted bool
}

type memoryStore struct {
	mu      sync.RWMutex
	wallets map[int64]*memoryWallet
}

// NewMemoryStore constructs an in-memory wallet store with one mutex per wallet.
// Mutations join the memory unit carried by ctx, if any, so a rollback restores them.
func NewMemoryStore() Store {
	return &memoryStore{wallets: make(map[int64]*memoryWallet)}
}

func (s *memoryStore) Create(ctx context.Context, owner int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.wallets[owner]; exists {
		return ErrWalletExists
	}
	s.wallets[owner] = &memoryWallet{balance: decimal.Zero}

	if u := storage.MemoryUnitFrom(ctx); u != nil {
		u.OnRollback(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.wallets, owner)
		})
	}
	return nil
}

func (s *memoryStore) Delete(ctx context.Context, owner int64) error {
	w, err := s.get(owner)
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.wallets[owner] != w {
		return ErrWalletNotFound
	}
	delete(s.wallets, owner)
	w.deleted = true

	if u := storage.MemoryUnitFrom(ctx); u != nil {
		u.OnRollback(func() {
			w.mu.Lock()
			w.deleted = false
			w.mu.Unlock()
			s.mu.Lock()
			s.wallets[owner] = w
			s.mu.Unlock()
		})
	}
	return nil
}

// Balance waits for any holder of the wallet lock, so it never observes a
// value that could still be rolled back.
func (s *memoryStore) Balance(_ context.Context, owner int64) (decimal.Decimal, error) {
	w, err := s.get(owner)
	if err != nil {
		return decimal.Zero, err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.deleted {
		return decimal.Zero, ErrWalletNotFound
	}
	return w.balance, nil
}

func (s *memoryStore) LockAndRead(_ context.Context, owner int64) (*Handle, error) {
	w, err := s.get(owner)
	if err != nil {
		return nil, err
	}
	w.mu.Lock()
	if w.deleted {
		w.mu.Unlock()
		return nil, ErrWalletNotFound
	}
	return &Handle{Owner: owner, Balance: w.balance, mem: w}, nil
}

func (s *memoryStore) Write(ctx context.Context, h *Handle, balance decimal.Decimal) error {
	if h == nil || h.released || h.mem == nil {
		return ErrHandleReleased
	}
	if balance.IsNegative() {
		return ErrNegativeBalance
	}
	w := h.mem
	previous := w.balance
	w.balance = balance
	h.Balance = balance

	// Undo runs before Release, while the wallet lock is still held.
	if u := storage.MemoryUnitFrom(ctx); u != nil {
		u.OnRollback(func() { w.balance = previous })
	}
	return nil
}

func (s *memoryStore) Release(_ context.Context, h *Handle) {
	if h == nil || h.released || h.mem == nil {
		return
	}
	h.released = true
	h.mem.mu.Unlock()
}

func (s *memoryStore) get(owner int64) (*memoryWallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.wallets[owner]
	if !ok {
		return nil, ErrWalletNotFound
	}
	return w, nil
}
