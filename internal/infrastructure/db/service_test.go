package db_test

import (
	"context"
	"crypto/rand"
	"errors"
	"os"
	"slices"
	"testing"

	"github.com/arkade-os/kittyd/internal/core/domain"
	"github.com/arkade-os/kittyd/internal/core/ports"
	"github.com/arkade-os/kittyd/internal/infrastructure/db"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

const pgDsnEnvVar = "KITTYD_TEST_PG_DB_URL"

var errAbort = errors.New("abort")

func TestService(t *testing.T) {
	tests := []struct {
		name   string
		config db.ServiceConfig
	}{
		{
			name: "repo_manager_with_inmemory_store",
			config: db.ServiceConfig{
				DataStoreType: "inmemory",
			},
		},
		{
			name: "repo_manager_with_inmemory_badger_store",
			config: db.ServiceConfig{
				DataStoreType:   "badger",
				DataStoreConfig: []interface{}{"", nil},
			},
		},
		{
			name: "repo_manager_with_badger_store",
			config: db.ServiceConfig{
				DataStoreType:   "badger",
				DataStoreConfig: []interface{}{t.TempDir(), nil},
			},
		},
		{
			name: "repo_manager_with_sqlite_store",
			config: db.ServiceConfig{
				DataStoreType:   "sqlite",
				DataStoreConfig: []interface{}{t.TempDir()},
			},
		},
	}
	if dsn := os.Getenv(pgDsnEnvVar); dsn != "" {
		tests = append(tests, struct {
			name   string
			config db.ServiceConfig
		}{
			name: "repo_manager_with_postgres_store",
			config: db.ServiceConfig{
				DataStoreType:   "postgres",
				DataStoreConfig: []interface{}{dsn, true},
			},
		})
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := db.NewService(tt.config)
			require.NoError(t, err)
			require.NotNil(t, svc)

			testAssetStore(t, svc)
			testOwnershipIndex(t, svc)
			testEnumerationStore(t, svc)
			testScopes(t, svc)
			testNonce(t, svc)
			testRollback(t, svc)
			testReadOnlyView(t, svc)

			svc.Close()
		})
	}
}

func TestServiceInvalidConfig(t *testing.T) {
	fixtures := []db.ServiceConfig{
		{DataStoreType: "unknown"},
		{DataStoreType: "badger", DataStoreConfig: []interface{}{""}},
		{DataStoreType: "badger", DataStoreConfig: []interface{}{1, nil}},
		{DataStoreType: "sqlite", DataStoreConfig: []interface{}{}},
		{DataStoreType: "postgres", DataStoreConfig: []interface{}{"dsn"}},
	}

	for _, f := range fixtures {
		svc, err := db.NewService(f)
		require.Error(t, err)
		require.Nil(t, svc)
	}
}

func TestServicePersistence(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name   string
		config db.ServiceConfig
	}{
		{
			name: "badger",
			config: db.ServiceConfig{
				DataStoreType:   "badger",
				DataStoreConfig: []interface{}{t.TempDir(), nil},
			},
		},
		{
			name: "sqlite",
			config: db.ServiceConfig{
				DataStoreType:   "sqlite",
				DataStoreConfig: []interface{}{t.TempDir()},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			asset := randomAsset()

			svc, err := db.NewService(tt.config)
			require.NoError(t, err)
			err = svc.Ledger().RunInTx(ctx, func(ctx context.Context, state domain.LedgerState) error {
				if err := state.Assets().Put(ctx, asset); err != nil {
					return err
				}
				return state.SetNonce(ctx, 7)
			})
			require.NoError(t, err)
			svc.Close()

			svc, err = db.NewService(tt.config)
			require.NoError(t, err)
			defer svc.Close()

			err = svc.Ledger().View(ctx, func(ctx context.Context, state domain.LedgerState) error {
				got, err := state.Assets().Get(ctx, asset.Id)
				require.NoError(t, err)
				require.NotNil(t, got)
				require.Equal(t, asset, *got)

				nonce, err := state.GetNonce(ctx)
				require.NoError(t, err)
				require.Equal(t, uint64(7), nonce)
				return nil
			})
			require.NoError(t, err)
		})
	}
}

func testAssetStore(t *testing.T, svc ports.RepoManager) {
	t.Run("test_asset_store", func(t *testing.T) {
		ctx := context.Background()
		repo := svc.Ledger()
		asset := randomAsset()
		asset.Price = ^uint64(0)
		asset.Generation = 3

		err := repo.View(ctx, func(ctx context.Context, state domain.LedgerState) error {
			exists, err := state.Assets().Exists(ctx, asset.Id)
			require.NoError(t, err)
			require.False(t, exists)

			got, err := state.Assets().Get(ctx, asset.Id)
			require.NoError(t, err)
			require.Nil(t, got)
			return nil
		})
		require.NoError(t, err)

		err = repo.RunInTx(ctx, func(ctx context.Context, state domain.LedgerState) error {
			return state.Assets().Put(ctx, asset)
		})
		require.NoError(t, err)

		err = repo.View(ctx, func(ctx context.Context, state domain.LedgerState) error {
			exists, err := state.Assets().Exists(ctx, asset.Id)
			require.NoError(t, err)
			require.True(t, exists)

			got, err := state.Assets().Get(ctx, asset.Id)
			require.NoError(t, err)
			require.NotNil(t, got)
			require.Equal(t, asset, *got)
			return nil
		})
		require.NoError(t, err)

		asset.Price = 0
		err = repo.RunInTx(ctx, func(ctx context.Context, state domain.LedgerState) error {
			return state.Assets().Put(ctx, asset)
		})
		require.NoError(t, err)

		err = repo.View(ctx, func(ctx context.Context, state domain.LedgerState) error {
			got, err := state.Assets().Get(ctx, asset.Id)
			require.NoError(t, err)
			require.NotNil(t, got)
			require.Zero(t, got.Price)
			return nil
		})
		require.NoError(t, err)
	})
}

func testOwnershipIndex(t *testing.T, svc ports.RepoManager) {
	t.Run("test_ownership_index", func(t *testing.T) {
		ctx := context.Background()
		repo := svc.Ledger()
		id := randomHash()
		alice, bob := randomOwner(), randomOwner()

		err := repo.RunInTx(ctx, func(ctx context.Context, state domain.LedgerState) error {
			_, ok, err := state.Owners().OwnerOf(ctx, id)
			require.NoError(t, err)
			require.False(t, ok)

			if err := state.Owners().SetOwner(ctx, id, alice); err != nil {
				return err
			}
			owner, ok, err := state.Owners().OwnerOf(ctx, id)
			require.NoError(t, err)
			require.True(t, ok)
			require.Equal(t, alice, owner)

			return state.Owners().SetOwner(ctx, id, bob)
		})
		require.NoError(t, err)

		err = repo.View(ctx, func(ctx context.Context, state domain.LedgerState) error {
			owner, ok, err := state.Owners().OwnerOf(ctx, id)
			require.NoError(t, err)
			require.True(t, ok)
			require.Equal(t, bob, owner)
			return nil
		})
		require.NoError(t, err)
	})
}

func testEnumerationStore(t *testing.T, svc ports.RepoManager) {
	t.Run("test_enumeration_store", func(t *testing.T) {
		ctx := context.Background()
		repo := svc.Ledger()
		scope := domain.OwnerScope(randomOwner())
		ids := []domain.Hash{randomHash(), randomHash(), randomHash(), randomHash()}

		err := repo.RunInTx(ctx, func(ctx context.Context, state domain.LedgerState) error {
			idx := domain.NewEnumerationIndex(state.Enumerations(), scope, 0)
			for _, id := range ids {
				if err := idx.Append(ctx, id); err != nil {
					return err
				}
			}
			return nil
		})
		require.NoError(t, err)

		err = repo.RunInTx(ctx, func(ctx context.Context, state domain.LedgerState) error {
			idx := domain.NewEnumerationIndex(state.Enumerations(), scope, 0)
			return idx.Remove(ctx, ids[1])
		})
		require.NoError(t, err)

		err = repo.View(ctx, func(ctx context.Context, state domain.LedgerState) error {
			idx := domain.NewEnumerationIndex(state.Enumerations(), scope, 0)

			count, err := idx.Count(ctx)
			require.NoError(t, err)
			require.Equal(t, uint64(3), count)

			list, err := idx.List(ctx)
			require.NoError(t, err)
			require.Equal(t, []domain.Hash{ids[0], ids[3], ids[2]}, list)

			for i, id := range list {
				pos, ok, err := idx.PositionOf(ctx, id)
				require.NoError(t, err)
				require.True(t, ok)
				require.Equal(t, uint64(i), pos)
			}

			_, ok, err := idx.PositionOf(ctx, ids[1])
			require.NoError(t, err)
			require.False(t, ok)

			_, ok, err = state.Enumerations().GetSlot(ctx, scope, 3)
			require.NoError(t, err)
			require.False(t, ok)

			_, err = idx.At(ctx, 3)
			require.ErrorIs(t, err, domain.ErrPositionOutOfRange)
			return nil
		})
		require.NoError(t, err)
	})
}

func testScopes(t *testing.T, svc ports.RepoManager) {
	t.Run("test_scopes", func(t *testing.T) {
		ctx := context.Background()
		repo := svc.Ledger()
		kept := domain.OwnerScope(randomOwner())
		emptied := domain.OwnerScope(randomOwner())
		stale := domain.OwnerScope(randomOwner())
		id := randomHash()

		err := repo.RunInTx(ctx, func(ctx context.Context, state domain.LedgerState) error {
			store := state.Enumerations()
			if err := domain.NewEnumerationIndex(store, kept, 0).Append(ctx, id); err != nil {
				return err
			}
			emptiedIdx := domain.NewEnumerationIndex(store, emptied, 0)
			if err := emptiedIdx.Append(ctx, id); err != nil {
				return err
			}
			if err := emptiedIdx.Remove(ctx, id); err != nil {
				return err
			}
			// A slot left behind without a count still names its scope.
			return store.SetSlot(ctx, stale, 0, id)
		})
		require.NoError(t, err)

		err = repo.View(ctx, func(ctx context.Context, state domain.LedgerState) error {
			scopes, err := state.Enumerations().Scopes(ctx)
			require.NoError(t, err)
			require.Contains(t, scopes, kept)
			require.Contains(t, scopes, stale)
			require.NotContains(t, scopes, emptied)
			require.True(t, slices.IsSorted(scopes))
			return nil
		})
		require.NoError(t, err)
	})
}

func testNonce(t *testing.T, svc ports.RepoManager) {
	t.Run("test_nonce", func(t *testing.T) {
		ctx := context.Background()
		repo := svc.Ledger()

		var nonce uint64
		err := repo.RunInTx(ctx, func(ctx context.Context, state domain.LedgerState) error {
			var err error
			nonce, err = state.GetNonce(ctx)
			if err != nil {
				return err
			}
			return state.SetNonce(ctx, nonce+1)
		})
		require.NoError(t, err)

		err = repo.View(ctx, func(ctx context.Context, state domain.LedgerState) error {
			got, err := state.GetNonce(ctx)
			require.NoError(t, err)
			require.Equal(t, nonce+1, got)
			return nil
		})
		require.NoError(t, err)
	})
}

func testRollback(t *testing.T, svc ports.RepoManager) {
	t.Run("test_rollback", func(t *testing.T) {
		ctx := context.Background()
		repo := svc.Ledger()
		asset := randomAsset()
		owner := randomOwner()
		scope := domain.OwnerScope(owner)

		var nonce uint64
		err := repo.View(ctx, func(ctx context.Context, state domain.LedgerState) error {
			var err error
			nonce, err = state.GetNonce(ctx)
			return err
		})
		require.NoError(t, err)

		err = repo.RunInTx(ctx, func(ctx context.Context, state domain.LedgerState) error {
			if err := state.Assets().Put(ctx, asset); err != nil {
				return err
			}
			if err := state.Owners().SetOwner(ctx, asset.Id, owner); err != nil {
				return err
			}
			idx := domain.NewEnumerationIndex(state.Enumerations(), scope, 0)
			if err := idx.Append(ctx, asset.Id); err != nil {
				return err
			}
			if err := state.SetNonce(ctx, nonce+10); err != nil {
				return err
			}
			return errAbort
		})
		require.ErrorIs(t, err, errAbort)

		err = repo.View(ctx, func(ctx context.Context, state domain.LedgerState) error {
			exists, err := state.Assets().Exists(ctx, asset.Id)
			require.NoError(t, err)
			require.False(t, exists)

			_, ok, err := state.Owners().OwnerOf(ctx, asset.Id)
			require.NoError(t, err)
			require.False(t, ok)

			count, err := state.Enumerations().GetCount(ctx, scope)
			require.NoError(t, err)
			require.Zero(t, count)

			_, ok, err = state.Enumerations().GetPosition(ctx, scope, asset.Id)
			require.NoError(t, err)
			require.False(t, ok)

			got, err := state.GetNonce(ctx)
			require.NoError(t, err)
			require.Equal(t, nonce, got)
			return nil
		})
		require.NoError(t, err)
	})
}

func testReadOnlyView(t *testing.T, svc ports.RepoManager) {
	t.Run("test_read_only_view", func(t *testing.T) {
		ctx := context.Background()
		asset := randomAsset()

		err := svc.Ledger().View(ctx, func(ctx context.Context, state domain.LedgerState) error {
			return state.Assets().Put(ctx, asset)
		})
		require.Error(t, err)

		err = svc.Ledger().View(ctx, func(ctx context.Context, state domain.LedgerState) error {
			exists, err := state.Assets().Exists(ctx, asset.Id)
			require.NoError(t, err)
			require.False(t, exists)
			return nil
		})
		require.NoError(t, err)
	})
}

func randomHash() domain.Hash {
	var h domain.Hash
	// nolint
	rand.Read(h[:])
	return h
}

func randomAsset() domain.Asset {
	return domain.Asset{
		Id:          randomHash(),
		LineageSeed: randomHash(),
		Price:       1000,
	}
}

func randomOwner() string {
	return uuid.New().String()
}
