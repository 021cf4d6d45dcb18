// Package storage defines the transactional unit shared by the wallet store,
// the transaction log and the user repository.
package storage

import (
	"context"
	"errors"
)

// ErrNoUnit is returned by operations that must run inside an open unit
// (for example row locks) when called without one.
var ErrNoUnit = errors.New("operation requires an open unit")

// Unit is one all-or-nothing group of storage mutations. Commit and Rollback
// are idempotent; whichever runs first decides the outcome.
type Unit interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Manager opens units. The returned context carries the unit and must be
// passed to every store call that should join it.
type Manager interface {
	Begin(ctx context.Context) (context.Context, Unit, error)
}

// Within runs fn inside a fresh unit, committing when fn returns nil and
// rolling back otherwise.
func Within(ctx context.Context, m Manager, fn func(ctx context.Context) error) error {
	unitCtx, unit, err := m.Begin(ctx)
	if err != nil {
		return err
	}
	defer unit.Rollback(context.WithoutCancel(unitCtx)) // nolint:errcheck

	if err := fn(unitCtx); err != nil {
		return err
	}
	return unit.Commit(unitCtx)
}
