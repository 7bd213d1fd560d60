package application

import (
	"context"

	"github.com/arkade-os/kittyd/internal/core/domain"
	"github.com/arkade-os/kittyd/pkg/errors"
)

// Service is the write side of the ledger. Every operation runs in a single
// repository transaction: it either applies all of its changes or none.
type Service interface {
	// CreateAsset mints a fresh generation-0 asset to the caller.
	CreateAsset(ctx context.Context) (*domain.Asset, errors.Error)
	// Mint registers asset under owner. It does not resolve the caller.
	Mint(ctx context.Context, owner string, asset domain.Asset) errors.Error
	SetPrice(ctx context.Context, id domain.Hash, price uint64) errors.Error
	Transfer(ctx context.Context, to string, id domain.Hash) errors.Error
	Buy(ctx context.Context, id domain.Hash, maxPrice uint64) errors.Error
	Deposit(ctx context.Context, account string, amount uint64) errors.Error
	Balance(ctx context.Context, account string) (uint64, errors.Error)
}

type IndexerService interface {
	GetAsset(ctx context.Context, id domain.Hash) (*AssetInfo, errors.Error)
	OwnerOf(ctx context.Context, id domain.Hash) (string, errors.Error)
	TotalCount(ctx context.Context) (uint64, errors.Error)
	AssetByIndex(ctx context.Context, pos uint64) (domain.Hash, errors.Error)
	OwnedCount(ctx context.Context, owner string) (uint64, errors.Error)
	OwnedAssetByIndex(ctx context.Context, owner string, pos uint64) (domain.Hash, errors.Error)
	// ListAssets lists the assets of owner, or all of them if owner is empty,
	// in registry order.
	ListAssets(ctx context.Context, owner string, page *Page) (*ListAssetsResp, errors.Error)
	VerifyIntegrity(ctx context.Context) (*IntegrityReport, errors.Error)
}

type Config struct {
	// MaxEnumerationCount bounds every enumeration registry, 0 means no bound
	// other than the uint64 range.
	MaxEnumerationCount uint64
}

type AssetInfo struct {
	domain.Asset
	Owner string `json:"owner"`
}

type ListAssetsResp struct {
	Assets []AssetInfo `json:"assets"`
	Page   PageResp    `json:"page"`
}

type IntegrityReport struct {
	TotalCount uint64 `json:"totalCount"`
	OwnerCount int    `json:"ownerCount"`
}

type Page struct {
	PageSize int32
	PageNum  int32
}

type PageResp struct {
	Current int32 `json:"current"`
	Next    int32 `json:"next"`
	Total   int32 `json:"total"`
}
