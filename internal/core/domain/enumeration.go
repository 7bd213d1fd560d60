package domain

import (
	"context"
	"errors"
	"fmt"
	"math"
)

var (
	ErrCountOverflow      = errors.New("count overflow")
	ErrCountUnderflow     = errors.New("count underflow")
	ErrAlreadyRegistered  = errors.New("asset already registered")
	ErrNotRegistered      = errors.New("asset not registered")
	ErrPositionOutOfRange = errors.New("position out of range")
	ErrCorruptIndex       = errors.New("corrupt enumeration index")
)

// EnumerationIndex is a dense registry of asset ids with O(1) append and
// O(1) removal. Removal moves the last entry into the freed slot so that
// positions [0, count) are always occupied.
type EnumerationIndex struct {
	store    EnumerationStore
	scope    Scope
	maxCount uint64
}

// NewEnumerationIndex returns the registry for scope. A zero maxCount means
// the registry is only bounded by the uint64 range.
func NewEnumerationIndex(store EnumerationStore, scope Scope, maxCount uint64) *EnumerationIndex {
	if maxCount == 0 {
		maxCount = math.MaxUint64
	}
	return &EnumerationIndex{store, scope, maxCount}
}

func (e *EnumerationIndex) Scope() Scope {
	return e.scope
}

func (e *EnumerationIndex) Count(ctx context.Context) (uint64, error) {
	return e.store.GetCount(ctx, e.scope)
}

// NextCount returns the count the registry would have after one more append.
func (e *EnumerationIndex) NextCount(ctx context.Context) (uint64, error) {
	count, err := e.Count(ctx)
	if err != nil {
		return 0, err
	}
	next, ok := AddUint64(count, 1)
	if !ok || next > e.maxCount {
		return 0, fmt.Errorf("%w in scope %s", ErrCountOverflow, e.scope)
	}
	return next, nil
}

// PrevCount returns the count the registry would have after one removal.
func (e *EnumerationIndex) PrevCount(ctx context.Context) (uint64, error) {
	count, err := e.Count(ctx)
	if err != nil {
		return 0, err
	}
	prev, ok := SubUint64(count, 1)
	if !ok {
		return 0, fmt.Errorf("%w in scope %s", ErrCountUnderflow, e.scope)
	}
	return prev, nil
}

func (e *EnumerationIndex) At(ctx context.Context, pos uint64) (Hash, error) {
	count, err := e.Count(ctx)
	if err != nil {
		return Hash{}, err
	}
	if pos >= count {
		return Hash{}, fmt.Errorf(
			"%w: %d not in [0, %d) for scope %s", ErrPositionOutOfRange, pos, count, e.scope,
		)
	}
	id, ok, err := e.store.GetSlot(ctx, e.scope, pos)
	if err != nil {
		return Hash{}, err
	}
	if !ok {
		return Hash{}, fmt.Errorf("%w: empty slot %d in scope %s", ErrCorruptIndex, pos, e.scope)
	}
	return id, nil
}

func (e *EnumerationIndex) PositionOf(ctx context.Context, id Hash) (uint64, bool, error) {
	return e.store.GetPosition(ctx, e.scope, id)
}

func (e *EnumerationIndex) Append(ctx context.Context, id Hash) error {
	if _, ok, err := e.store.GetPosition(ctx, e.scope, id); err != nil {
		return err
	} else if ok {
		return fmt.Errorf("%w: %s in scope %s", ErrAlreadyRegistered, id, e.scope)
	}

	count, err := e.Count(ctx)
	if err != nil {
		return err
	}
	next, err := e.NextCount(ctx)
	if err != nil {
		return err
	}

	if err := e.store.SetSlot(ctx, e.scope, count, id); err != nil {
		return err
	}
	if err := e.store.SetPosition(ctx, e.scope, id, count); err != nil {
		return err
	}
	return e.store.SetCount(ctx, e.scope, next)
}

func (e *EnumerationIndex) Remove(ctx context.Context, id Hash) error {
	pos, ok, err := e.store.GetPosition(ctx, e.scope, id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s in scope %s", ErrNotRegistered, id, e.scope)
	}

	last, err := e.PrevCount(ctx)
	if err != nil {
		return err
	}
	if pos > last {
		return fmt.Errorf(
			"%w: position %d of %s beyond last slot %d in scope %s",
			ErrCorruptIndex, pos, id, last, e.scope,
		)
	}

	if pos != last {
		lastId, ok, err := e.store.GetSlot(ctx, e.scope, last)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: empty slot %d in scope %s", ErrCorruptIndex, last, e.scope)
		}
		if err := e.store.SetSlot(ctx, e.scope, pos, lastId); err != nil {
			return err
		}
		if err := e.store.SetPosition(ctx, e.scope, lastId, pos); err != nil {
			return err
		}
	}

	if err := e.store.DeleteSlot(ctx, e.scope, last); err != nil {
		return err
	}
	if err := e.store.DeletePosition(ctx, e.scope, id); err != nil {
		return err
	}
	return e.store.SetCount(ctx, e.scope, last)
}

// List returns the ids of the registry in position order.
func (e *EnumerationIndex) List(ctx context.Context) ([]Hash, error) {
	count, err := e.Count(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]Hash, 0, count)
	for pos := uint64(0); pos < count; pos++ {
		id, err := e.At(ctx, pos)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
