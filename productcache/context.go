package productcache

import (
	"context"

	"github.com/goliatone/go-product-cache/lock"
)

type ownerTokenContextKey struct{}

// WithOwnerToken attaches the token used when the read path takes a rebuild
// lock, e.g. a request id. Without one a fresh token is generated per rebuild.
func WithOwnerToken(ctx context.Context, token string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if token == "" {
		return ctx
	}
	return context.WithValue(ctx, ownerTokenContextKey{}, token)
}

func ownerTokenFromContext(ctx context.Context) string {
	if ctx != nil {
		if token, ok := ctx.Value(ownerTokenContextKey{}).(string); ok && token != "" {
			return token
		}
	}
	return lock.NewOwnerToken()
}
