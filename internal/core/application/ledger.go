package application

import (
	"context"
	goerrors "errors"
	"fmt"

	"github.com/arkade-os/kittyd/internal/core/domain"
	"github.com/arkade-os/kittyd/pkg/errors"
)

// ledger binds the mint and transfer rules to the state of one transaction.
type ledger struct {
	state    domain.LedgerState
	maxCount uint64
}

func newLedger(state domain.LedgerState, maxCount uint64) ledger {
	return ledger{state, maxCount}
}

func (l ledger) global() *domain.EnumerationIndex {
	return domain.NewEnumerationIndex(l.state.Enumerations(), domain.GlobalScope, l.maxCount)
}

func (l ledger) owned(owner string) *domain.EnumerationIndex {
	return domain.NewEnumerationIndex(
		l.state.Enumerations(), domain.OwnerScope(owner), l.maxCount,
	)
}

func (l ledger) getAsset(ctx context.Context, id domain.Hash) (*domain.Asset, errors.Error) {
	asset, err := l.state.Assets().Get(ctx, id)
	if err != nil {
		return nil, errors.INTERNAL_ERROR.Wrap(err)
	}
	if asset == nil {
		return nil, errors.ASSET_NOT_FOUND.New("asset %s not found", id).
			WithMetadata(errors.AssetMetadata{AssetId: id.String()})
	}
	return asset, nil
}

func (l ledger) ownerOf(ctx context.Context, id domain.Hash) (string, errors.Error) {
	owner, ok, err := l.state.Owners().OwnerOf(ctx, id)
	if err != nil {
		return "", errors.INTERNAL_ERROR.Wrap(err)
	}
	if !ok {
		return "", errors.ASSET_NOT_FOUND.New("asset %s has no owner", id).
			WithMetadata(errors.AssetMetadata{AssetId: id.String()})
	}
	return owner, nil
}

// mint stores asset, assigns it to owner and registers it in the global and
// owner registries. Both counts are checked before anything is written.
func (l ledger) mint(ctx context.Context, owner string, asset domain.Asset) errors.Error {
	exists, err := l.state.Assets().Exists(ctx, asset.Id)
	if err != nil {
		return errors.INTERNAL_ERROR.Wrap(err)
	}
	if exists {
		return errors.ASSET_ALREADY_EXISTS.New("asset %s already exists", asset.Id).
			WithMetadata(errors.AssetMetadata{AssetId: asset.Id.String()})
	}

	owned := l.owned(owner)
	if _, err := owned.NextCount(ctx); err != nil {
		return registryError(ctx, owned, asset.Id, err)
	}
	global := l.global()
	if _, err := global.NextCount(ctx); err != nil {
		return registryError(ctx, global, asset.Id, err)
	}

	if err := l.state.Assets().Put(ctx, asset); err != nil {
		return errors.INTERNAL_ERROR.Wrap(err)
	}
	if err := l.state.Owners().SetOwner(ctx, asset.Id, owner); err != nil {
		return errors.INTERNAL_ERROR.Wrap(err)
	}
	if err := global.Append(ctx, asset.Id); err != nil {
		return registryError(ctx, global, asset.Id, err)
	}
	if err := owned.Append(ctx, asset.Id); err != nil {
		return registryError(ctx, owned, asset.Id, err)
	}
	return nil
}

// checkTransfer verifies that transferFrom(from, to, id) would succeed
// without writing anything.
func (l ledger) checkTransfer(ctx context.Context, from, to string, id domain.Hash) errors.Error {
	owner, err := l.ownerOf(ctx, id)
	if err != nil {
		return err
	}
	if owner != from {
		return errors.NOT_OWNER.New("%s does not own asset %s", from, id).
			WithMetadata(errors.OwnerMetadata{AssetId: id.String(), Owner: owner, Caller: from})
	}

	toOwned := l.owned(to)
	if _, err := toOwned.NextCount(ctx); err != nil {
		return registryError(ctx, toOwned, id, err)
	}
	fromOwned := l.owned(from)
	if _, err := fromOwned.PrevCount(ctx); err != nil {
		return registryError(ctx, fromOwned, id, err)
	}
	return nil
}

// transferFrom moves id from the registry of from to the one of to. The
// global registry is left untouched.
func (l ledger) transferFrom(ctx context.Context, from, to string, id domain.Hash) errors.Error {
	if err := l.checkTransfer(ctx, from, to, id); err != nil {
		return err
	}

	fromOwned := l.owned(from)
	if err := fromOwned.Remove(ctx, id); err != nil {
		return registryError(ctx, fromOwned, id, err)
	}
	if err := l.state.Owners().SetOwner(ctx, id, to); err != nil {
		return errors.INTERNAL_ERROR.Wrap(err)
	}
	toOwned := l.owned(to)
	if err := toOwned.Append(ctx, id); err != nil {
		return registryError(ctx, toOwned, id, err)
	}
	return nil
}

// registryError maps the sentinel errors of an enumeration registry to
// their error codes. Anything else is a storage failure.
func registryError(
	ctx context.Context, index *domain.EnumerationIndex, id domain.Hash, err error,
) errors.Error {
	scope := index.Scope().String()

	switch {
	case goerrors.Is(err, domain.ErrCountOverflow):
		count, _ := index.Count(ctx)
		return errors.COUNT_OVERFLOW.Wrap(err).
			WithMetadata(errors.CountMetadata{Scope: scope, Count: count})
	case goerrors.Is(err, domain.ErrCountUnderflow):
		count, _ := index.Count(ctx)
		return errors.COUNT_UNDERFLOW.Wrap(err).
			WithMetadata(errors.CountMetadata{Scope: scope, Count: count})
	case goerrors.Is(err, domain.ErrAlreadyRegistered),
		goerrors.Is(err, domain.ErrNotRegistered),
		goerrors.Is(err, domain.ErrPositionOutOfRange),
		goerrors.Is(err, domain.ErrCorruptIndex):
		return errors.INVARIANT_VIOLATION.Wrap(err).
			WithMetadata(errors.InvariantMetadata{AssetId: id.String(), Scope: scope})
	default:
		return errors.INTERNAL_ERROR.Wrap(
			fmt.Errorf("registry %s: %w", scope, err),
		)
	}
}
