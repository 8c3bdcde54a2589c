package commerce

import "context"

type bearerKey struct{}

// WithBearer attaches the buyer's access token to ctx. Every commerce call
// made with the returned context is authorized with it.
func WithBearer(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, bearerKey{}, token)
}

// BearerFrom returns the token set by WithBearer.
func BearerFrom(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(bearerKey{}).(string)
	return token, ok && token != ""
}
