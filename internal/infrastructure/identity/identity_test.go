package identity_test

import (
	"context"
	"testing"

	"github.com/arkade-os/kittyd/internal/core/ports"
	"github.com/arkade-os/kittyd/internal/infrastructure/identity"
	"github.com/stretchr/testify/require"
)

func TestIdentitySource(t *testing.T) {
	fixtures := []struct {
		name     string
		fallback string
		caller   string
		expected string
		err      error
	}{
		{name: "from context", fallback: "bob", caller: "alice", expected: "alice"},
		{name: "fallback", fallback: "bob", expected: "bob"},
		{name: "missing", err: ports.ErrMissingIdentity},
	}

	for _, f := range fixtures {
		t.Run(f.name, func(t *testing.T) {
			ctx := context.Background()
			if f.caller != "" {
				ctx = identity.WithCaller(ctx, f.caller)
			}

			caller, err := identity.NewIdentitySource(f.fallback).Resolve(ctx)
			if f.err != nil {
				require.ErrorIs(t, err, f.err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, f.expected, caller)
		})
	}
}
