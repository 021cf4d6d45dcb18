package ledger

import (
	"context"
	"errors"
	"log/slog"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/congo-pay/walletledger/internal/events"
	"github.com/congo-pay/walletledger/internal/logging"
	"github.com/congo-pay/walletledger/internal/storage"
	"github.com/congo-pay/walletledger/internal/wallet"
)

// CacheInvalidator drops cached reads derived from a user's wallet and history.
type CacheInvalidator interface {
	InvalidateBalance(ctx context.Context, user int64) error
	InvalidateHistory(ctx context.Context, user int64) error
}

// Engine runs deposits, withdrawals and transfers.
type Engine struct {
	units       storage.Manager
	wallets     wallet.Store
	log         Log
	invalidator CacheInvalidator
	publisher   events.Publisher
	logger      *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithInvalidator sets the post-commit cache invalidation hook.
func WithInvalidator(inv CacheInvalidator) Option {
	return func(e *Engine) { e.invalidator = inv }
}

// WithPublisher sets the post-commit event publisher.
func WithPublisher(p events.Publisher) Option {
	return func(e *Engine) { e.publisher = p }
}

// WithLogger sets the engine logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logging.Component(logger, "ledger") }
}

// NewEngine builds an engine over the given unit manager, wallet store and log.
func NewEngine(units storage.Manager, wallets wallet.Store, log Log, opts ...Option) *Engine {
	e := &Engine{
		units:   units,
		wallets: wallets,
		log:     log,
		logger:  logging.Component(nil, "ledger"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Deposit credits amount to user.
func (e *Engine) Deposit(ctx context.Context, user int64, amount decimal.Decimal) (Transaction, error) {
	if !amount.IsPositive() {
		return Transaction{}, ErrInvalidAmount
	}
	rec := Transaction{ReceiverID: userRef(user), Amount: amount, Type: TypeDeposit}
	err := e.execute(ctx, &rec, func(ctx context.Context, held map[int64]*wallet.Handle) error {
		return e.credit(ctx, held[user], amount)
	})
	if err != nil {
		return Transaction{}, err
	}
	return rec, nil
}

// Withdraw debits amount from user. Sufficiency is checked under the wallet lock.
func (e *Engine) Withdraw(ctx context.Context, user int64, amount decimal.Decimal) (Transaction, error) {
	if !amount.IsPositive() {
		return Transaction{}, ErrInvalidAmount
	}
	rec := Transaction{SenderID: userRef(user), Amount: amount, Type: TypeWithdrawal}
	err := e.execute(ctx, &rec, func(ctx context.Context, held map[int64]*wallet.Handle) error {
		return e.debit(ctx, held[user], amount)
	})
	if err != nil {
		return Transaction{}, err
	}
	return rec, nil
}

// Transfer moves amount from sender to receiver.
func (e *Engine) Transfer(ctx context.Context, sender, receiver int64, amount decimal.Decimal) (Transaction, error) {
	if !amount.IsPositive() {
		return Transaction{}, ErrInvalidAmount
	}
	if sender == receiver {
		return Transaction{}, ErrSameParty
	}
	rec := Transaction{SenderID: userRef(sender), ReceiverID: userRef(receiver), Amount: amount, Type: TypeTransfer}
	err := e.execute(ctx, &rec, func(ctx context.Context, held map[int64]*wallet.Handle) error {
		if err := e.debit(ctx, held[sender], amount); err != nil {
			return err
		}
		return e.credit(ctx, held[receiver], amount)
	})
	if err != nil {
		return Transaction{}, err
	}
	return rec, nil
}

func (e *Engine) credit(ctx context.Context, h *wallet.Handle, amount decimal.Decimal) error {
	if err := e.wallets.Write(ctx, h, h.Balance.Add(amount)); err != nil {
		return persistence("credit wallet", err)
	}
	return nil
}

func (e *Engine) debit(ctx context.Context, h *wallet.Handle, amount decimal.Decimal) error {
	if h.Balance.LessThan(amount) {
		return ErrInsufficientFunds
	}
	if err := e.wallets.Write(ctx, h, h.Balance.Sub(amount)); err != nil {
		return persistence("debit wallet", err)
	}
	return nil
}

// execute runs apply and the append of rec in one unit. Wallets are locked in
// ascending owner order; on failure the unit is rolled back before any lock
// is released.
func (e *Engine) execute(ctx context.Context, rec *Transaction, apply func(context.Context, map[int64]*wallet.Handle) error) error {
	owners := rec.Parties()
	sort.Slice(owners, func(i, j int) bool { return owners[i] < owners[j] })

	unitCtx, unit, err := e.units.Begin(ctx)
	if err != nil {
		return persistence("begin unit", err)
	}

	held := make(map[int64]*wallet.Handle, len(owners))
	defer func() {
		for _, owner := range owners {
			if h, ok := held[owner]; ok {
				e.wallets.Release(unitCtx, h)
			}
		}
	}()
	committed := false
	defer func() {
		if committed {
			return
		}
		if rbErr := unit.Rollback(context.WithoutCancel(unitCtx)); rbErr != nil {
			e.logger.Error("rollback failed", slog.String("type", string(rec.Type)), slog.Any("error", rbErr))
		}
	}()

	for _, owner := range owners {
		h, err := e.wallets.LockAndRead(unitCtx, owner)
		if err != nil {
			return persistence("lock wallet", err)
		}
		held[owner] = h
	}

	if err := apply(unitCtx, held); err != nil {
		return err
	}
	if err := e.log.Append(unitCtx, rec); err != nil {
		return persistence("append transaction", err)
	}
	if err := unit.Commit(unitCtx); err != nil {
		return persistence("commit", err)
	}
	committed = true

	e.afterCommit(context.WithoutCancel(ctx), *rec, owners)
	return nil
}

// afterCommit invalidates caches and publishes the event. Neither step can
// fail the committed operation.
func (e *Engine) afterCommit(ctx context.Context, rec Transaction, owners []int64) {
	if e.invalidator != nil {
		for _, owner := range owners {
			err := errors.Join(
				e.invalidator.InvalidateBalance(ctx, owner),
				e.invalidator.InvalidateHistory(ctx, owner),
			)
			if err != nil {
				e.logger.Warn("cache invalidation failed",
					slog.Int64("user_id", owner),
					slog.Int64("transaction_id", rec.ID),
					slog.Any("error", err))
			}
		}
	}

	if e.publisher != nil {
		event := events.NewEvent(rec.ID, string(rec.Type), rec.SenderID, rec.ReceiverID, rec.Amount, rec.CreatedAt)
		if err := e.publisher.Publish(ctx, event); err != nil {
			e.logger.Warn("event publish failed",
				slog.Int64("transaction_id", rec.ID),
				slog.Any("error", err))
		}
	}
}
