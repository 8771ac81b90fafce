package session

import "context"

type resolverContextKey struct{}

// ContextWithResolver stores the request's resolver in ctx.
func ContextWithResolver(ctx context.Context, r *Resolver) context.Context {
	return context.WithValue(ctx, resolverContextKey{}, r)
}

// ResolverFromContext extracts the resolver from ctx.
func ResolverFromContext(ctx context.Context) *Resolver {
	r, _ := ctx.Value(resolverContextKey{}).(*Resolver)
	return r
}

// ClientFromContext extracts the request's provider from ctx.
func ClientFromContext(ctx context.Context) *Client {
	c, _ := ctx.Value(clientContextKey{}).(*Client)
	return c
}

type clientContextKey struct{}

// ContextWithClient stores the request's provider in ctx.
func ContextWithClient(ctx context.Context, c *Client) context.Context {
	return context.WithValue(ctx, clientContextKey{}, c)
}
