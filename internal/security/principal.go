package security

import (
	"context"
	"errors"
)

// ErrUnauthorized is returned when a principal may not manage assets.
var ErrUnauthorized = errors.New("unauthorized")

// Principal identifies who triggered an operation.
type Principal struct {
	Name  string
	Admin bool
}

// Operator is the principal used by local command line invocations, which
// already run with the library owner's filesystem permissions.
var Operator = Principal{Name: "operator", Admin: true}

// Authorizer decides whether a principal may run asset-management actions.
type Authorizer interface {
	Authorize(ctx context.Context, p Principal) error
}

// AuthorizerFunc adapts a function to Authorizer.
type AuthorizerFunc func(ctx context.Context, p Principal) error

func (f AuthorizerFunc) Authorize(ctx context.Context, p Principal) error {
	return f(ctx, p)
}

// RequireAdmin allows only principals carrying the admin capability.
var RequireAdmin Authorizer = AuthorizerFunc(func(_ context.Context, p Principal) error {
	if !p.Admin {
		return ErrUnauthorized
	}
	return nil
})

type principalKey struct{}

// WithPrincipal returns a context carrying p.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom returns the principal stored in ctx, or an anonymous one.
func PrincipalFrom(ctx context.Context) Principal {
	p, _ := ctx.Value(principalKey{}).(Principal)
	return p
}
