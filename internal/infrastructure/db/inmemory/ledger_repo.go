package inmemorydb

import (
	"context"
	"slices"
	"sync"

	"github.com/arkade-os/kittyd/internal/core/domain"
)

type slotKey struct {
	scope domain.Scope
	pos   uint64
}

type positionKey struct {
	scope domain.Scope
	id    domain.Hash
}

type ledgerRepository struct {
	lock      sync.RWMutex
	assets    map[domain.Hash]domain.Asset
	owners    map[domain.Hash]string
	counts    map[domain.Scope]uint64
	slots     map[slotKey]domain.Hash
	positions map[positionKey]uint64
	nonce     uint64
}

func NewLedgerRepository(_ ...interface{}) (domain.LedgerRepository, error) {
	return &ledgerRepository{
		assets:    make(map[domain.Hash]domain.Asset),
		owners:    make(map[domain.Hash]string),
		counts:    make(map[domain.Scope]uint64),
		slots:     make(map[slotKey]domain.Hash),
		positions: make(map[positionKey]uint64),
	}, nil
}

func (r *ledgerRepository) RunInTx(
	ctx context.Context, fn func(context.Context, domain.LedgerState) error,
) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	tx := &ledgerTx{repo: r}
	if err := fn(ctx, tx); err != nil {
		tx.rollback()
		return err
	}
	return nil
}

func (r *ledgerRepository) View(
	ctx context.Context, fn func(context.Context, domain.LedgerState) error,
) error {
	r.lock.RLock()
	defer r.lock.RUnlock()

	return fn(ctx, &ledgerTx{repo: r, readOnly: true})
}

func (r *ledgerRepository) Close() {}

// ledgerTx writes straight into the repository maps and keeps an undo
// journal so that a failed unit of work can be reverted.
type ledgerTx struct {
	repo     *ledgerRepository
	readOnly bool
	journal  []func()
}

func (t *ledgerTx) rollback() {
	for i := len(t.journal) - 1; i >= 0; i-- {
		t.journal[i]()
	}
	t.journal = nil
}

func (t *ledgerTx) Assets() domain.AssetStore             { return t }
func (t *ledgerTx) Owners() domain.OwnershipIndex         { return t }
func (t *ledgerTx) Enumerations() domain.EnumerationStore { return t }

func (t *ledgerTx) GetNonce(_ context.Context) (uint64, error) {
	return t.repo.nonce, nil
}

func (t *ledgerTx) SetNonce(_ context.Context, nonce uint64) error {
	if t.readOnly {
		return domain.ErrReadOnlyTx
	}
	prev := t.repo.nonce
	t.journal = append(t.journal, func() { t.repo.nonce = prev })
	t.repo.nonce = nonce
	return nil
}

func (t *ledgerTx) Exists(_ context.Context, id domain.Hash) (bool, error) {
	_, ok := t.repo.assets[id]
	return ok, nil
}

func (t *ledgerTx) Get(_ context.Context, id domain.Hash) (*domain.Asset, error) {
	asset, ok := t.repo.assets[id]
	if !ok {
		return nil, nil
	}
	return &asset, nil
}

func (t *ledgerTx) Put(_ context.Context, asset domain.Asset) error {
	if t.readOnly {
		return domain.ErrReadOnlyTx
	}
	recordUndo(t, t.repo.assets, asset.Id)
	t.repo.assets[asset.Id] = asset
	return nil
}

func (t *ledgerTx) OwnerOf(_ context.Context, id domain.Hash) (string, bool, error) {
	owner, ok := t.repo.owners[id]
	return owner, ok, nil
}

func (t *ledgerTx) SetOwner(_ context.Context, id domain.Hash, owner string) error {
	if t.readOnly {
		return domain.ErrReadOnlyTx
	}
	recordUndo(t, t.repo.owners, id)
	t.repo.owners[id] = owner
	return nil
}

func (t *ledgerTx) GetCount(_ context.Context, scope domain.Scope) (uint64, error) {
	return t.repo.counts[scope], nil
}

func (t *ledgerTx) SetCount(_ context.Context, scope domain.Scope, count uint64) error {
	if t.readOnly {
		return domain.ErrReadOnlyTx
	}
	recordUndo(t, t.repo.counts, scope)
	t.repo.counts[scope] = count
	return nil
}

func (t *ledgerTx) GetSlot(
	_ context.Context, scope domain.Scope, pos uint64,
) (domain.Hash, bool, error) {
	id, ok := t.repo.slots[slotKey{scope, pos}]
	return id, ok, nil
}

func (t *ledgerTx) SetSlot(_ context.Context, scope domain.Scope, pos uint64, id domain.Hash) error {
	if t.readOnly {
		return domain.ErrReadOnlyTx
	}
	key := slotKey{scope, pos}
	recordUndo(t, t.repo.slots, key)
	t.repo.slots[key] = id
	return nil
}

func (t *ledgerTx) DeleteSlot(_ context.Context, scope domain.Scope, pos uint64) error {
	if t.readOnly {
		return domain.ErrReadOnlyTx
	}
	key := slotKey{scope, pos}
	recordUndo(t, t.repo.slots, key)
	delete(t.repo.slots, key)
	return nil
}

func (t *ledgerTx) GetPosition(
	_ context.Context, scope domain.Scope, id domain.Hash,
) (uint64, bool, error) {
	pos, ok := t.repo.positions[positionKey{scope, id}]
	return pos, ok, nil
}

func (t *ledgerTx) SetPosition(
	_ context.Context, scope domain.Scope, id domain.Hash, pos uint64,
) error {
	if t.readOnly {
		return domain.ErrReadOnlyTx
	}
	key := positionKey{scope, id}
	recordUndo(t, t.repo.positions, key)
	t.repo.positions[key] = pos
	return nil
}

func (t *ledgerTx) DeletePosition(_ context.Context, scope domain.Scope, id domain.Hash) error {
	if t.readOnly {
		return domain.ErrReadOnlyTx
	}
	key := positionKey{scope, id}
	recordUndo(t, t.repo.positions, key)
	delete(t.repo.positions, key)
	return nil
}

func (t *ledgerTx) Scopes(_ context.Context) ([]domain.Scope, error) {
	seen := make(map[domain.Scope]struct{})
	for scope, count := range t.repo.counts {
		if count > 0 {
			seen[scope] = struct{}{}
		}
	}
	for key := range t.repo.slots {
		seen[key.scope] = struct{}{}
	}
	for key := range t.repo.positions {
		seen[key.scope] = struct{}{}
	}

	scopes := make([]domain.Scope, 0, len(seen))
	for scope := range seen {
		scopes = append(scopes, scope)
	}
	slices.Sort(scopes)
	return scopes, nil
}

// recordUndo journals the current state of m[key] so it can be restored,
// including its absence.
func recordUndo[K comparable, V any](t *ledgerTx, m map[K]V, key K) {
	prev, existed := m[key]
	t.journal = append(t.journal, func() {
		if existed {
			m[key] = prev
			return
		}
		delete(m, key)
	})
}
