package domain

import (
	"context"
	"errors"
)

var ErrReadOnlyTx = errors.New("write attempted in read-only transaction")

type AssetStore interface {
	Exists(ctx context.Context, id Hash) (bool, error)
	// Get returns nil if there is no asset with the given id.
	Get(ctx context.Context, id Hash) (*Asset, error)
	Put(ctx context.Context, asset Asset) error
}

type OwnershipIndex interface {
	OwnerOf(ctx context.Context, id Hash) (string, bool, error)
	SetOwner(ctx context.Context, id Hash, owner string) error
}

// EnumerationStore holds the raw maps behind every enumeration registry, keyed
// by scope. EnumerationIndex implements the registry semantics on top of it.
type EnumerationStore interface {
	GetCount(ctx context.Context, scope Scope) (uint64, error)
	SetCount(ctx context.Context, scope Scope, count uint64) error
	GetSlot(ctx context.Context, scope Scope, pos uint64) (Hash, bool, error)
	SetSlot(ctx context.Context, scope Scope, pos uint64, id Hash) error
	DeleteSlot(ctx context.Context, scope Scope, pos uint64) error
	GetPosition(ctx context.Context, scope Scope, id Hash) (uint64, bool, error)
	SetPosition(ctx context.Context, scope Scope, id Hash, pos uint64) error
	DeletePosition(ctx context.Context, scope Scope, id Hash) error
	// Scopes returns, sorted, every scope with a non-zero count or any slot or
	// position record.
	Scopes(ctx context.Context) ([]Scope, error)
}

// LedgerState is the view of the ledger bound to a single unit of work.
type LedgerState interface {
	Assets() AssetStore
	Owners() OwnershipIndex
	Enumerations() EnumerationStore
	GetNonce(ctx context.Context) (uint64, error)
	SetNonce(ctx context.Context, nonce uint64) error
}

type LedgerRepository interface {
	// RunInTx runs fn in a write transaction. Every write made through state is
	// discarded if fn returns an error.
	RunInTx(ctx context.Context, fn func(ctx context.Context, state LedgerState) error) error
	// View runs fn against a read-only snapshot.
	View(ctx context.Context, fn func(ctx context.Context, state LedgerState) error) error
	Close()
}
