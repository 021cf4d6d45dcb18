package wallet

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/congo-pay/walletledger/internal/storage"
)

// Store holds one balance per user and hands out per-wallet exclusive locks.
// It does not order lock acquisition; callers locking several wallets must
// do so in ascending owner order.
type Store interface {
	Create(ctx context.Context, owner int64) error
	Delete(ctx context.Context, owner int64) error
	Balance(ctx context.Context, owner int64) (decimal.Decimal, error)
	LockAndRead(ctx context.Context, owner int64) (*Handle, error)
	Write(ctx context.Context, h *Handle, balance decimal.Decimal) error
	Release(ctx context.Context, h *Handle)
}

// PostgresStore keeps wallets in PostgreSQL and locks them with SELECT ... FOR UPDATE.
// Locks live as long as the surrounding unit's transaction.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore builds a store backed by PostgreSQL.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// Create inserts a zero-balance wallet.
func (s *PostgresStore) Create(ctx context.Context, owner int64) error {
	_, err := storage.Conn(ctx, s.db).Exec(ctx, `INSERT INTO wallets (user_id, balance, created_at, updated_at)
        VALUES ($1, 0, NOW(), NOW())`, owner)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrWalletExists
	}
	return err
}

// Delete removes the wallet of owner.
func (s *PostgresStore) Delete(ctx context.Context, owner int64) error {
	cmd, err := storage.Conn(ctx, s.db).Exec(ctx, `DELETE FROM wallets WHERE user_id = $1`, owner)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrWalletNotFound
	}
	return nil
}

// Balance returns the committed balance.
func (s *PostgresStore) Balance(ctx context.Context, owner int64) (decimal.Decimal, error) {
	var raw string
	err := storage.Conn(ctx, s.db).QueryRow(ctx, `SELECT balance::text FROM wallets WHERE user_id = $1`, owner).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, ErrWalletNotFound
		}
		return decimal.Zero, err
	}
	return decimal.NewFromString(raw)
}

// LockAndRead row-locks the wallet inside the unit carried by ctx.
func (s *PostgresStore) LockAndRead(ctx context.Context, owner int64) (*Handle, error) {
	tx := storage.TxFrom(ctx)
	if tx == nil {
		return nil, storage.ErrNoUnit
	}
	var raw string
	if err := tx.QueryRow(ctx, `SELECT balance::text FROM wallets WHERE user_id = $1 FOR UPDATE`, owner).Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrWalletNotFound
		}
		return nil, fmt.Errorf("lock wallet %d: %w", owner, err)
	}
	balance, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, fmt.Errorf("decode balance of wallet %d: %w", owner, err)
	}
	return &Handle{Owner: owner, Balance: balance}, nil
}

// Write stores a new balance for a locked wallet.
func (s *PostgresStore) Write(ctx context.Context, h *Handle, balance decimal.Decimal) error {
	if h == nil || h.released {
		return ErrHandleReleased
	}
	if balance.IsNegative() {
		return ErrNegativeBalance
	}
	tx := storage.TxFrom(ctx)
	if tx == nil {
		return storage.ErrNoUnit
	}
	cmd, err := tx.Exec(ctx, `UPDATE wallets SET balance = $2::numeric, updated_at = NOW() WHERE user_id = $1`, h.Owner, balance.String())
	if err != nil {
		return fmt.Errorf("update wallet %d: %w", h.Owner, err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrWalletNotFound
	}
	h.Balance = balance
	return nil
}

// Release marks the handle unusable. The row lock itself ends with the transaction.
func (s *PostgresStore) Release(_ context.Context, h *Handle) {
	if h != nil {
		h.released = true
	}
}
