package badgerdb

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/arkade-os/kittyd/internal/core/domain"
	"github.com/dgraph-io/badger/v4"
	"github.com/timshannon/badgerhold/v4"
)

const (
	ledgerDir = "ledger"
	nonceKey  = "nonce"
)

type assetDTO struct {
	Id          string `badgerhold:"key"`
	LineageSeed string
	Price       uint64
	Generation  uint64
}

type ownerDTO struct {
	AssetId string `badgerhold:"key"`
	Owner   string `badgerhold:"index"`
}

type countDTO struct {
	Scope string `badgerhold:"key"`
	Count uint64
}

type slotDTO struct {
	Key      string `badgerhold:"key"`
	Scope    string
	Position uint64
	AssetId  string
}

type positionDTO struct {
	Key      string `badgerhold:"key"`
	Scope    string
	AssetId  string
	Position uint64
}

type nonceDTO struct {
	Nonce uint64
}

type ledgerRepository struct {
	store *badgerhold.Store
	// Serializes writers of this process, badger conflicts can then only come
	// from another process sharing the same directory.
	lock sync.Mutex
}

func NewLedgerRepository(config ...interface{}) (domain.LedgerRepository, error) {
	if len(config) != 2 {
		return nil, fmt.Errorf("invalid config")
	}
	baseDir, ok := config[0].(string)
	if !ok {
		return nil, fmt.Errorf("invalid base directory")
	}
	var logger badger.Logger
	if config[1] != nil {
		logger, ok = config[1].(badger.Logger)
		if !ok {
			return nil, fmt.Errorf("invalid logger")
		}
	}

	var dir string
	if len(baseDir) > 0 {
		dir = filepath.Join(baseDir, ledgerDir)
	}
	store, err := createDB(dir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger store: %s", err)
	}

	return &ledgerRepository{store: store}, nil
}

func (r *ledgerRepository) RunInTx(
	ctx context.Context, fn func(context.Context, domain.LedgerState) error,
) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	var err error
	for range maxRetries {
		err = func() error {
			tx := r.store.Badger().NewTransaction(true)
			defer tx.Discard()

			if err := fn(ctx, &ledgerTx{r.store, tx}); err != nil {
				return err
			}
			return tx.Commit()
		}()
		if err == nil {
			return nil
		}

		if errors.Is(err, badger.ErrConflict) {
			time.Sleep(100 * time.Millisecond)
			continue
		}
		return err
	}

	return err
}

func (r *ledgerRepository) View(
	ctx context.Context, fn func(context.Context, domain.LedgerState) error,
) error {
	tx := r.store.Badger().NewTransaction(false)
	defer tx.Discard()

	return fn(ctx, &ledgerTx{r.store, tx})
}

func (r *ledgerRepository) Close() {
	// nolint:all
	r.store.Close()
}

type ledgerTx struct {
	store *badgerhold.Store
	tx    *badger.Txn
}

func (t *ledgerTx) Assets() domain.AssetStore             { return t }
func (t *ledgerTx) Owners() domain.OwnershipIndex         { return t }
func (t *ledgerTx) Enumerations() domain.EnumerationStore { return t }

func (t *ledgerTx) GetNonce(_ context.Context) (uint64, error) {
	var dto nonceDTO
	if err := t.get(nonceKey, &dto); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get nonce: %w", err)
	}
	return dto.Nonce, nil
}

func (t *ledgerTx) SetNonce(_ context.Context, nonce uint64) error {
	if err := t.upsert(nonceKey, nonceDTO{nonce}); err != nil {
		return fmt.Errorf("failed to set nonce: %w", err)
	}
	return nil
}

func (t *ledgerTx) Exists(ctx context.Context, id domain.Hash) (bool, error) {
	asset, err := t.Get(ctx, id)
	if err != nil {
		return false, err
	}
	return asset != nil, nil
}

func (t *ledgerTx) Get(_ context.Context, id domain.Hash) (*domain.Asset, error) {
	var dto assetDTO
	if err := t.get(id.String(), &dto); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get asset %s: %w", id, err)
	}

	lineageSeed, err := domain.NewHashFromString(dto.LineageSeed)
	if err != nil {
		return nil, fmt.Errorf("malformed lineage seed for asset %s: %w", id, err)
	}
	return &domain.Asset{
		Id:          id,
		LineageSeed: lineageSeed,
		Price:       dto.Price,
		Generation:  dto.Generation,
	}, nil
}

func (t *ledgerTx) Put(_ context.Context, asset domain.Asset) error {
	dto := assetDTO{
		Id:          asset.Id.String(),
		LineageSeed: asset.LineageSeed.String(),
		Price:       asset.Price,
		Generation:  asset.Generation,
	}
	if err := t.upsert(dto.Id, dto); err != nil {
		return fmt.Errorf("failed to put asset %s: %w", dto.Id, err)
	}
	return nil
}

func (t *ledgerTx) OwnerOf(_ context.Context, id domain.Hash) (string, bool, error) {
	var dto ownerDTO
	if err := t.get(id.String(), &dto); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to get owner of %s: %w", id, err)
	}
	return dto.Owner, true, nil
}

func (t *ledgerTx) SetOwner(_ context.Context, id domain.Hash, owner string) error {
	dto := ownerDTO{AssetId: id.String(), Owner: owner}
	if err := t.upsert(dto.AssetId, dto); err != nil {
		return fmt.Errorf("failed to set owner of %s: %w", dto.AssetId, err)
	}
	return nil
}

func (t *ledgerTx) GetCount(_ context.Context, scope domain.Scope) (uint64, error) {
	var dto countDTO
	if err := t.get(scope.String(), &dto); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get count of %s: %w", scope, err)
	}
	return dto.Count, nil
}

func (t *ledgerTx) SetCount(_ context.Context, scope domain.Scope, count uint64) error {
	dto := countDTO{Scope: scope.String(), Count: count}
	if err := t.upsert(dto.Scope, dto); err != nil {
		return fmt.Errorf("failed to set count of %s: %w", scope, err)
	}
	return nil
}

func (t *ledgerTx) GetSlot(
	_ context.Context, scope domain.Scope, pos uint64,
) (domain.Hash, bool, error) {
	var dto slotDTO
	if err := t.get(slotKey(scope, pos), &dto); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return domain.Hash{}, false, nil
		}
		return domain.Hash{}, false, fmt.Errorf(
			"failed to get slot %d of %s: %w", pos, scope, err,
		)
	}
	id, err := domain.NewHashFromString(dto.AssetId)
	if err != nil {
		return domain.Hash{}, false, fmt.Errorf(
			"malformed asset id in slot %d of %s: %w", pos, scope, err,
		)
	}
	return id, true, nil
}

func (t *ledgerTx) SetSlot(_ context.Context, scope domain.Scope, pos uint64, id domain.Hash) error {
	dto := slotDTO{
		Key:      slotKey(scope, pos),
		Scope:    scope.String(),
		Position: pos,
		AssetId:  id.String(),
	}
	if err := t.upsert(dto.Key, dto); err != nil {
		return fmt.Errorf("failed to set slot %d of %s: %w", pos, scope, err)
	}
	return nil
}

func (t *ledgerTx) DeleteSlot(_ context.Context, scope domain.Scope, pos uint64) error {
	if err := t.delete(slotKey(scope, pos), slotDTO{}); err != nil {
		return fmt.Errorf("failed to delete slot %d of %s: %w", pos, scope, err)
	}
	return nil
}

func (t *ledgerTx) GetPosition(
	_ context.Context, scope domain.Scope, id domain.Hash,
) (uint64, bool, error) {
	var dto positionDTO
	if err := t.get(positionKey(scope, id), &dto); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to get position of %s in %s: %w", id, scope, err)
	}
	return dto.Position, true, nil
}

func (t *ledgerTx) SetPosition(
	_ context.Context, scope domain.Scope, id domain.Hash, pos uint64,
) error {
	dto := positionDTO{
		Key:      positionKey(scope, id),
		Scope:    scope.String(),
		AssetId:  id.String(),
		Position: pos,
	}
	if err := t.upsert(dto.Key, dto); err != nil {
		return fmt.Errorf("failed to set position of %s in %s: %w", id, scope, err)
	}
	return nil
}

func (t *ledgerTx) DeletePosition(_ context.Context, scope domain.Scope, id domain.Hash) error {
	if err := t.delete(positionKey(scope, id), positionDTO{}); err != nil {
		return fmt.Errorf("failed to delete position of %s in %s: %w", id, scope, err)
	}
	return nil
}

func (t *ledgerTx) Scopes(_ context.Context) ([]domain.Scope, error) {
	seen := make(map[domain.Scope]struct{})

	var counts []countDTO
	if err := t.store.TxFind(t.tx, &counts, badgerhold.Where("Count").Gt(uint64(0))); err != nil {
		return nil, fmt.Errorf("failed to list counts: %w", err)
	}
	for _, dto := range counts {
		seen[domain.Scope(dto.Scope)] = struct{}{}
	}

	var slots []slotDTO
	if err := t.store.TxFind(t.tx, &slots, nil); err != nil {
		return nil, fmt.Errorf("failed to list slots: %w", err)
	}
	for _, dto := range slots {
		seen[domain.Scope(dto.Scope)] = struct{}{}
	}

	var positions []positionDTO
	if err := t.store.TxFind(t.tx, &positions, nil); err != nil {
		return nil, fmt.Errorf("failed to list positions: %w", err)
	}
	for _, dto := range positions {
		seen[domain.Scope(dto.Scope)] = struct{}{}
	}

	scopes := make([]domain.Scope, 0, len(seen))
	for scope := range seen {
		scopes = append(scopes, scope)
	}
	slices.Sort(scopes)
	return scopes, nil
}

func (t *ledgerTx) get(key string, result interface{}) error {
	return t.store.TxGet(t.tx, key, result)
}

func (t *ledgerTx) upsert(key string, data interface{}) error {
	if err := t.store.TxUpsert(t.tx, key, data); err != nil {
		if errors.Is(err, badger.ErrReadOnlyTxn) {
			return domain.ErrReadOnlyTx
		}
		return err
	}
	return nil
}

func (t *ledgerTx) delete(key string, dataType interface{}) error {
	if err := t.store.TxDelete(t.tx, key, dataType); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil
		}
		if errors.Is(err, badger.ErrReadOnlyTxn) {
			return domain.ErrReadOnlyTx
		}
		return err
	}
	return nil
}

func slotKey(scope domain.Scope, pos uint64) string {
	return fmt.Sprintf("%s/%d", scope, pos)
}

func positionKey(scope domain.Scope, id domain.Hash) string {
	return fmt.Sprintf("%s/%s", scope, id)
}
