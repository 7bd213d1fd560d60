package idgen

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/arkade-os/kittyd/internal/core/domain"
	"github.com/arkade-os/kittyd/internal/core/ports"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/google/uuid"
)

var assetIdTag = []byte("kittyd/asset-id")

type idGenerator struct{}

// NewIdGenerator returns a generator deriving ids as the tagged hash of
// seed, owner and nonce. The owner is length prefixed so that distinct
// inputs never serialize to the same preimage.
func NewIdGenerator() ports.IdGenerator {
	return idGenerator{}
}

func (idGenerator) NewAssetId(seed []byte, owner string, nonce uint64) domain.Hash {
	ownerLen := binary.AppendUvarint(nil, uint64(len(owner)))
	nonceBytes := binary.BigEndian.AppendUint64(nil, nonce)

	h := chainhash.TaggedHash(assetIdTag, seed, ownerLen, []byte(owner), nonceBytes)
	return domain.Hash(*h)
}

type randomSeedSource struct{}

func NewRandomSeedSource() ports.SeedSource {
	return randomSeedSource{}
}

func (randomSeedSource) Seed(_ context.Context) ([]byte, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return nil, fmt.Errorf("failed to generate seed: %w", err)
	}
	return id[:], nil
}

type staticSeedSource struct {
	seed []byte
}

// NewStaticSeedSource always returns seed. Ids stay unique as long as the
// ledger nonce moves forward.
func NewStaticSeedSource(seed []byte) ports.SeedSource {
	return staticSeedSource{seed}
}

func (s staticSeedSource) Seed(_ context.Context) ([]byte, error) {
	return s.seed, nil
}
