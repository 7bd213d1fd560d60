package identity

import (
	"context"

	"github.com/arkade-os/kittyd/internal/core/ports"
)

type callerKey struct{}

// WithCaller returns a copy of ctx carrying the caller identity.
func WithCaller(ctx context.Context, caller string) context.Context {
	return context.WithValue(ctx, callerKey{}, caller)
}

type identitySource struct {
	fallback string
}

// NewIdentitySource resolves the caller stored in the request context, or
// fallback if there is none. Resolving to an empty caller fails.
func NewIdentitySource(fallback string) ports.IdentitySource {
	return identitySource{fallback}
}

func (s identitySource) Resolve(ctx context.Context) (string, error) {
	caller, _ := ctx.Value(callerKey{}).(string)
	if caller == "" {
		caller = s.fallback
	}
	if caller == "" {
		return "", ports.ErrMissingIdentity
	}
	return caller, nil
}
