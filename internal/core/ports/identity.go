package ports

import (
	"context"
	"errors"

	"github.com/arkade-os/kittyd/internal/core/domain"
)

var ErrMissingIdentity = errors.New("missing caller identity")

// IdentitySource resolves the account on whose behalf an operation runs.
type IdentitySource interface {
	Resolve(ctx context.Context) (string, error)
}

// SeedSource provides the entropy mixed into freshly created asset ids.
type SeedSource interface {
	Seed(ctx context.Context) ([]byte, error)
}

// IdGenerator derives asset ids. Collisions are still checked by the ledger.
type IdGenerator interface {
	NewAssetId(seed []byte, owner string, nonce uint64) domain.Hash
}
