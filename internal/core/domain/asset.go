package domain

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

const HashSize = chainhash.HashSize

// Hash is the 32 byte identifier used for asset ids and lineage seeds.
type Hash [HashSize]byte

func NewHashFromString(s string) (Hash, error) {
	var h Hash
	if len(s) != HashSize*2 {
		return h, fmt.Errorf("invalid hash length %d, expected %d", len(s), HashSize*2)
	}
	buf, err := hex.DecodeString(s)
	if err != nil {
		return h, fmt.Errorf("invalid hash: %w", err)
	}
	copy(h[:], buf)
	return h, nil
}

func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

func (h Hash) IsZero() bool {
	return h == Hash{}
}

func (h Hash) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

func (h *Hash) UnmarshalText(text []byte) error {
	parsed, err := NewHashFromString(string(text))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

type Asset struct {
	Id          Hash   `json:"id"`
	LineageSeed Hash   `json:"lineageSeed"`
	Price       uint64 `json:"price"`
	Generation  uint64 `json:"generation"`
}

// IsForSale returns whether the asset can be bought. A zero price means the
// owner did not list it.
func (a Asset) IsForSale() bool {
	return a.Price > 0
}

// Scope names an enumeration registry: the global one, or the one of a
// single owner.
type Scope string

const (
	GlobalScope Scope = "global"

	ownerScopePrefix = "owner:"
)

func OwnerScope(owner string) Scope {
	return Scope(ownerScopePrefix + owner)
}

func (s Scope) IsGlobal() bool {
	return s == GlobalScope
}

// Owner returns the owner of an owner scope.
func (s Scope) Owner() (string, bool) {
	owner, ok := strings.CutPrefix(string(s), ownerScopePrefix)
	if !ok || owner == "" {
		return "", false
	}
	return owner, true
}

func (s Scope) String() string {
	return string(s)
}
