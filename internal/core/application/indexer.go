package application

import (
	"context"
	goerrors "errors"
	"fmt"

	"github.com/arkade-os/kittyd/internal/core/domain"
	"github.com/arkade-os/kittyd/internal/core/ports"
	"github.com/arkade-os/kittyd/pkg/errors"
)

const maxPageSizeAssets = 100

type indexerService struct {
	repoManager ports.RepoManager
}

func NewIndexerService(repoManager ports.RepoManager) IndexerService {
	return &indexerService{
		repoManager: repoManager,
	}
}

func (i *indexerService) GetAsset(ctx context.Context, id domain.Hash) (*AssetInfo, errors.Error) {
	var info *AssetInfo
	if err := i.view(ctx, func(ctx context.Context, l ledger) errors.Error {
		var err errors.Error
		info, err = l.getAssetInfo(ctx, id)
		return err
	}); err != nil {
		return nil, err
	}
	return info, nil
}

func (i *indexerService) OwnerOf(ctx context.Context, id domain.Hash) (string, errors.Error) {
	var owner string
	if err := i.view(ctx, func(ctx context.Context, l ledger) errors.Error {
		var err errors.Error
		owner, err = l.ownerOf(ctx, id)
		return err
	}); err != nil {
		return "", err
	}
	return owner, nil
}

func (i *indexerService) TotalCount(ctx context.Context) (uint64, errors.Error) {
	return i.count(ctx, "")
}

func (i *indexerService) AssetByIndex(ctx context.Context, pos uint64) (domain.Hash, errors.Error) {
	return i.at(ctx, "", pos)
}

func (i *indexerService) OwnedCount(ctx context.Context, owner string) (uint64, errors.Error) {
	if owner == "" {
		return 0, errors.INVALID_ARGUMENT.New("missing owner")
	}
	return i.count(ctx, owner)
}

func (i *indexerService) OwnedAssetByIndex(
	ctx context.Context, owner string, pos uint64,
) (domain.Hash, errors.Error) {
	if owner == "" {
		return domain.Hash{}, errors.INVALID_ARGUMENT.New("missing owner")
	}
	return i.at(ctx, owner, pos)
}

func (i *indexerService) ListAssets(
	ctx context.Context, owner string, page *Page,
) (*ListAssetsResp, errors.Error) {
	resp := &ListAssetsResp{}
	if err := i.view(ctx, func(ctx context.Context, l ledger) errors.Error {
		index := l.registry(owner)
		total, err := index.Count(ctx)
		if err != nil {
			return errors.INTERNAL_ERROR.Wrap(err)
		}

		start, end, pageResp := pageWindow(total, page, maxPageSizeAssets)
		assets := make([]AssetInfo, 0, end-start)
		for pos := start; pos < end; pos++ {
			id, err := index.At(ctx, pos)
			if err != nil {
				return registryError(ctx, index, id, err)
			}
			info, typedErr := l.getAssetInfo(ctx, id)
			if typedErr != nil {
				if errors.ASSET_NOT_FOUND.Is(typedErr) {
					return errors.INVARIANT_VIOLATION.Wrap(typedErr).WithMetadata(
						errors.InvariantMetadata{AssetId: id.String(), Scope: index.Scope().String()},
					)
				}
				return typedErr
			}
			assets = append(assets, *info)
		}

		resp.Assets = assets
		resp.Page = pageResp
		return nil
	}); err != nil {
		return nil, err
	}
	return resp, nil
}

// VerifyIntegrity walks the global registry and checks that every asset has
// a record, an owner, and exactly one slot in its owner's registry. It then
// walks every owner registry in the store, including the ones of accounts
// that own nothing, and checks that it maps positions and ids one to one and
// holds only assets of that owner.
func (i *indexerService) VerifyIntegrity(ctx context.Context) (*IntegrityReport, errors.Error) {
	report := &IntegrityReport{}
	if err := i.view(ctx, func(ctx context.Context, l ledger) errors.Error {
		global := l.global()
		total, err := global.Count(ctx)
		if err != nil {
			return errors.INTERNAL_ERROR.Wrap(err)
		}

		ownedCounts := make(map[string]uint64)
		for pos := uint64(0); pos < total; pos++ {
			id, err := global.At(ctx, pos)
			if err != nil {
				return registryError(ctx, global, id, err)
			}
			if err := checkPosition(ctx, global, id, pos); err != nil {
				return err
			}

			asset, err := l.state.Assets().Get(ctx, id)
			if err != nil {
				return errors.INTERNAL_ERROR.Wrap(err)
			}
			if asset == nil || asset.Id != id {
				return violation(global, id, "registered asset %s has no record", id)
			}

			owner, ok, err := l.state.Owners().OwnerOf(ctx, id)
			if err != nil {
				return errors.INTERNAL_ERROR.Wrap(err)
			}
			if !ok {
				return violation(global, id, "registered asset %s has no owner", id)
			}

			owned := l.owned(owner)
			ownedPos, ok, err := owned.PositionOf(ctx, id)
			if err != nil {
				return errors.INTERNAL_ERROR.Wrap(err)
			}
			if !ok {
				return violation(owned, id, "asset %s missing from registry of %s", id, owner)
			}
			ownedId, err := owned.At(ctx, ownedPos)
			if err != nil {
				return registryError(ctx, owned, id, err)
			}
			if ownedId != id {
				return violation(
					owned, id, "slot %d holds %s instead of %s", ownedPos, ownedId, id,
				)
			}
			ownedCounts[owner]++
		}

		scopes, err := l.state.Enumerations().Scopes(ctx)
		if err != nil {
			return errors.INTERNAL_ERROR.Wrap(err)
		}
		for _, scope := range scopes {
			if scope.IsGlobal() {
				continue
			}
			if err := l.verifyOwned(ctx, scope, ownedCounts); err != nil {
				return err
			}
		}

		report.TotalCount = total
		report.OwnerCount = len(ownedCounts)
		return nil
	}); err != nil {
		return nil, err
	}
	return report, nil
}

func (i *indexerService) count(ctx context.Context, owner string) (uint64, errors.Error) {
	var count uint64
	if err := i.view(ctx, func(ctx context.Context, l ledger) errors.Error {
		var err error
		count, err = l.registry(owner).Count(ctx)
		if err != nil {
			return errors.INTERNAL_ERROR.Wrap(err)
		}
		return nil
	}); err != nil {
		return 0, err
	}
	return count, nil
}

func (i *indexerService) at(
	ctx context.Context, owner string, pos uint64,
) (domain.Hash, errors.Error) {
	var id domain.Hash
	if err := i.view(ctx, func(ctx context.Context, l ledger) errors.Error {
		index := l.registry(owner)
		var err error
		id, err = index.At(ctx, pos)
		if err != nil {
			if goerrors.Is(err, domain.ErrPositionOutOfRange) {
				return errors.INVALID_ARGUMENT.Wrap(err).
					WithMetadata(map[string]any{"scope": index.Scope().String(), "index": pos})
			}
			return registryError(ctx, index, id, err)
		}
		return nil
	}); err != nil {
		return domain.Hash{}, err
	}
	return id, nil
}

func (i *indexerService) view(
	ctx context.Context, fn func(context.Context, ledger) errors.Error,
) errors.Error {
	var opErr errors.Error
	if err := i.repoManager.Ledger().View(
		ctx, func(ctx context.Context, state domain.LedgerState) error {
			opErr = fn(ctx, newLedger(state, 0))
			if opErr != nil {
				return opErr
			}
			return nil
		},
	); err != nil {
		if opErr != nil {
			return opErr
		}
		return errors.INTERNAL_ERROR.Wrap(fmt.Errorf("failed to read ledger: %w", err))
	}
	return nil
}

// registry returns the registry of owner, or the global one if owner is
// empty.
func (l ledger) registry(owner string) *domain.EnumerationIndex {
	if owner == "" {
		return l.global()
	}
	return l.owned(owner)
}

func (l ledger) getAssetInfo(ctx context.Context, id domain.Hash) (*AssetInfo, errors.Error) {
	asset, err := l.getAsset(ctx, id)
	if err != nil {
		return nil, err
	}
	owner, err := l.ownerOf(ctx, id)
	if err != nil {
		return nil, err
	}
	return &AssetInfo{Asset: *asset, Owner: owner}, nil
}

// verifyOwned checks the registry of scope against the number of assets its
// owner holds, as counted from the global registry.
func (l ledger) verifyOwned(
	ctx context.Context, scope domain.Scope, ownedCounts map[string]uint64,
) errors.Error {
	index := domain.NewEnumerationIndex(l.state.Enumerations(), scope, 0)
	owner, ok := scope.Owner()
	if !ok {
		return violation(index, domain.Hash{}, "unknown registry scope %q", scope)
	}

	count, err := index.Count(ctx)
	if err != nil {
		return errors.INTERNAL_ERROR.Wrap(err)
	}
	if count == 0 {
		return violation(index, domain.Hash{}, "empty registry of %s holds stale entries", owner)
	}
	if expected := ownedCounts[owner]; count != expected {
		return violation(
			index, domain.Hash{}, "registry of %s counts %d assets, owns %d",
			owner, count, expected,
		)
	}

	for pos := uint64(0); pos < count; pos++ {
		id, err := index.At(ctx, pos)
		if err != nil {
			return registryError(ctx, index, id, err)
		}
		if err := checkPosition(ctx, index, id, pos); err != nil {
			return err
		}
		actual, ok, err := l.state.Owners().OwnerOf(ctx, id)
		if err != nil {
			return errors.INTERNAL_ERROR.Wrap(err)
		}
		if !ok || actual != owner {
			return violation(
				index, id, "registry of %s holds asset %s owned by %q", owner, id, actual,
			)
		}
	}
	return nil
}

func checkPosition(
	ctx context.Context, index *domain.EnumerationIndex, id domain.Hash, pos uint64,
) errors.Error {
	reverse, ok, err := index.PositionOf(ctx, id)
	if err != nil {
		return errors.INTERNAL_ERROR.Wrap(err)
	}
	if !ok || reverse != pos {
		return violation(index, id, "slot %d holds %s but its position is not %d", pos, id, pos)
	}
	return nil
}

func violation(
	index *domain.EnumerationIndex, id domain.Hash, format string, args ...any,
) errors.Error {
	return errors.INVARIANT_VIOLATION.New(format, args...).WithMetadata(
		errors.InvariantMetadata{AssetId: id.String(), Scope: index.Scope().String()},
	)
}
