package application_test

import (
	"context"
	"testing"

	"github.com/arkade-os/kittyd/internal/core/application"
	"github.com/arkade-os/kittyd/internal/core/domain"
	"github.com/arkade-os/kittyd/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestIndexerQueries(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		owner := alice
		if i%2 == 1 {
			owner = bob
		}
		require.Nil(t, env.svc.Mint(ctx, owner, testAsset(i)))
	}

	t.Run("by index", func(t *testing.T) {
		id, err := env.indexer.OwnedAssetByIndex(ctx, bob, 1)
		require.Nil(t, err)
		require.Equal(t, testAsset(3).Id, id)

		_, err = env.indexer.AssetByIndex(ctx, 5)
		requireCode(t, errors.INVALID_ARGUMENT, err)
		_, err = env.indexer.OwnedAssetByIndex(ctx, bob, 2)
		requireCode(t, errors.INVALID_ARGUMENT, err)
		_, err = env.indexer.OwnedAssetByIndex(ctx, "", 0)
		requireCode(t, errors.INVALID_ARGUMENT, err)
	})

	t.Run("unknown asset", func(t *testing.T) {
		_, err := env.indexer.GetAsset(ctx, testAsset(9).Id)
		requireCode(t, errors.ASSET_NOT_FOUND, err)
		_, err = env.indexer.OwnerOf(ctx, testAsset(9).Id)
		requireCode(t, errors.ASSET_NOT_FOUND, err)
	})

	t.Run("list", func(t *testing.T) {
		fixtures := []struct {
			name     string
			owner    string
			page     *application.Page
			expected []int
			pageResp application.PageResp
		}{
			{
				name:     "all",
				expected: []int{0, 1, 2, 3, 4},
			},
			{
				name:     "first page",
				page:     &application.Page{PageSize: 2, PageNum: 1},
				expected: []int{0, 1},
				pageResp: application.PageResp{Current: 1, Next: 2, Total: 3},
			},
			{
				name:     "last page",
				page:     &application.Page{PageSize: 2, PageNum: 3},
				expected: []int{4},
				pageResp: application.PageResp{Current: 3, Next: 3, Total: 3},
			},
			{
				name:     "beyond last page",
				page:     &application.Page{PageSize: 2, PageNum: 4},
				expected: []int{},
				pageResp: application.PageResp{Current: 4, Next: 3, Total: 3},
			},
			{
				name:     "owner",
				owner:    alice,
				page:     &application.Page{PageSize: 10, PageNum: 1},
				expected: []int{0, 2, 4},
				pageResp: application.PageResp{Current: 1, Next: 1, Total: 1},
			},
			{
				name:     "owner without assets",
				owner:    carol,
				expected: []int{},
			},
		}

		for _, f := range fixtures {
			t.Run(f.name, func(t *testing.T) {
				resp, err := env.indexer.ListAssets(ctx, f.owner, f.page)
				require.Nil(t, err)
				require.Equal(t, f.pageResp, resp.Page)

				ids := make([]domain.Hash, 0, len(resp.Assets))
				for _, asset := range resp.Assets {
					ids = append(ids, asset.Id)
				}
				expected := make([]domain.Hash, 0, len(f.expected))
				for _, i := range f.expected {
					expected = append(expected, testAsset(i).Id)
				}
				require.Equal(t, expected, ids)
			})
		}
	})

	t.Run("page reads only its window", func(t *testing.T) {
		env := newTestEnv(t)
		for i := 0; i < 5; i++ {
			require.Nil(t, env.svc.Mint(ctx, alice, testAsset(i)))
		}
		err := env.repoManager.Ledger().RunInTx(
			ctx, func(ctx context.Context, state domain.LedgerState) error {
				return state.Enumerations().DeleteSlot(ctx, domain.GlobalScope, 4)
			},
		)
		require.NoError(t, err)

		resp, listErr := env.indexer.ListAssets(ctx, "", &application.Page{PageSize: 2, PageNum: 1})
		require.Nil(t, listErr)
		require.Len(t, resp.Assets, 2)

		_, listErr = env.indexer.ListAssets(ctx, "", &application.Page{PageSize: 2, PageNum: 3})
		requireCode(t, errors.INVARIANT_VIOLATION, listErr)
	})

	t.Run("integrity", func(t *testing.T) {
		report, err := env.indexer.VerifyIntegrity(ctx)
		require.Nil(t, err)
		require.Equal(t, uint64(5), report.TotalCount)
		require.Equal(t, 2, report.OwnerCount)
	})
}

func TestVerifyIntegrity(t *testing.T) {
	fixtures := []struct {
		name   string
		tamper func(ctx context.Context, state domain.LedgerState) error
	}{
		{
			name: "owner changed behind the registries",
			tamper: func(ctx context.Context, state domain.LedgerState) error {
				return state.Owners().SetOwner(ctx, testAsset(0).Id, carol)
			},
		},
		{
			name: "registered asset without record",
			tamper: func(ctx context.Context, state domain.LedgerState) error {
				global := domain.NewEnumerationIndex(state.Enumerations(), domain.GlobalScope, 0)
				return global.Append(ctx, testAsset(7).Id)
			},
		},
		{
			name: "stale reverse position",
			tamper: func(ctx context.Context, state domain.LedgerState) error {
				return state.Enumerations().SetPosition(
					ctx, domain.GlobalScope, testAsset(1).Id, 0,
				)
			},
		},
		{
			name: "owned registry holds an extra entry",
			tamper: func(ctx context.Context, state domain.LedgerState) error {
				owned := domain.NewEnumerationIndex(
					state.Enumerations(), domain.OwnerScope(bob), 0,
				)
				return owned.Append(ctx, testAsset(0).Id)
			},
		},
		{
			name: "registry of an account owning nothing holds an asset",
			tamper: func(ctx context.Context, state domain.LedgerState) error {
				owned := domain.NewEnumerationIndex(
					state.Enumerations(), domain.OwnerScope(carol), 0,
				)
				return owned.Append(ctx, testAsset(0).Id)
			},
		},
		{
			name: "emptied registry keeps a stale slot",
			tamper: func(ctx context.Context, state domain.LedgerState) error {
				return state.Enumerations().SetSlot(
					ctx, domain.OwnerScope(carol), 0, testAsset(1).Id,
				)
			},
		},
		{
			name: "owned registry swaps an asset with another owner",
			tamper: func(ctx context.Context, state domain.LedgerState) error {
				store := state.Enumerations()
				bobScope := domain.OwnerScope(bob)
				if err := store.SetSlot(ctx, bobScope, 0, testAsset(0).Id); err != nil {
					return err
				}
				return store.SetPosition(ctx, bobScope, testAsset(0).Id, 0)
			},
		},
		{
			name: "global slot emptied",
			tamper: func(ctx context.Context, state domain.LedgerState) error {
				return state.Enumerations().DeleteSlot(ctx, domain.GlobalScope, 1)
			},
		},
	}

	for _, f := range fixtures {
		t.Run(f.name, func(t *testing.T) {
			env := newTestEnv(t)
			ctx := context.Background()
			require.Nil(t, env.svc.Mint(ctx, alice, testAsset(0)))
			require.Nil(t, env.svc.Mint(ctx, bob, testAsset(1)))
			env.requireIntegrity(t)

			err := env.repoManager.Ledger().RunInTx(ctx, f.tamper)
			require.NoError(t, err)

			report, verifyErr := env.indexer.VerifyIntegrity(ctx)
			requireCode(t, errors.INVARIANT_VIOLATION, verifyErr)
			require.Nil(t, report)
		})
	}
}
