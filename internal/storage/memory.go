package storage

import (
	"context"
	"errors"
	"sync"
)

// ErrUnitClosed is returned when committing a unit that was already rolled back.
var ErrUnitClosed = errors.New("unit already rolled back")

type memoryUnitKey struct{}

// MemoryUnit journals the side effects of in-memory stores. Stores apply
// their mutation immediately and register an undo with OnRollback, or defer
// publication with OnCommit.
type MemoryUnit struct {
	mu         sync.Mutex
	done       bool
	committed  bool
	onCommit   []func()
	onRollback []func()
}

// OnCommit registers fn to run when the unit commits.
func (u *MemoryUnit) OnCommit(fn func()) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.onCommit = append(u.onCommit, fn)
}

// OnRollback registers fn to run, in reverse registration order, when the unit rolls back.
func (u *MemoryUnit) OnRollback(fn func()) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.onRollback = append(u.onRollback, fn)
}

// Commit runs the commit hooks.
func (u *MemoryUnit) Commit(_ context.Context) error {
	u.mu.Lock()
	if u.done {
		committed := u.committed
		u.mu.Unlock()
		if committed {
			return nil
		}
		return ErrUnitClosed
	}
	u.done, u.committed = true, true
	hooks := u.onCommit
	u.onCommit, u.onRollback = nil, nil
	u.mu.Unlock()

	for _, fn := range hooks {
		fn()
	}
	return nil
}

// Rollback undoes every registered mutation, newest first.
func (u *MemoryUnit) Rollback(_ context.Context) error {
	u.mu.Lock()
	if u.done {
		u.mu.Unlock()
		return nil
	}
	u.done = true
	hooks := u.onRollback
	u.onCommit, u.onRollback = nil, nil
	u.mu.Unlock()

	for i := len(hooks) - 1; i >= 0; i-- {
		hooks[i]()
	}
	return nil
}

// MemoryUnitFrom returns the memory unit carried by ctx, if any.
func MemoryUnitFrom(ctx context.Context) *MemoryUnit {
	if u, ok := ctx.Value(memoryUnitKey{}).(*MemoryUnit); ok {
		return u
	}
	return nil
}

type memoryManager struct{}

// NewMemoryManager builds a Manager for the in-memory stores.
func NewMemoryManager() Manager {
	return memoryManager{}
}

func (memoryManager) Begin(ctx context.Context) (context.Context, Unit, error) {
	u := &MemoryUnit{}
	return context.WithValue(ctx, memoryUnitKey{}, u), u, nil
}
