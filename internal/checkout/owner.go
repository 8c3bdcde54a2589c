package checkout

import "context"

type ownerKey struct{}

// WithOwner returns a context that opens and resolves sessions on behalf of
// the buyer identified by owner, a stable hash of their credentials.
func WithOwner(ctx context.Context, owner string) context.Context {
	return context.WithValue(ctx, ownerKey{}, owner)
}

// OwnerFrom returns the buyer set by WithOwner, or "" if none.
func OwnerFrom(ctx context.Context) string {
	owner, _ := ctx.Value(ownerKey{}).(string)
	return owner
}
