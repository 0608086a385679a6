package service

import "context"

// RequestInfo carries request context used when recording failures.
type RequestInfo struct {
	RequestID string
	Method    string
	Path      string
	ActorID   string
	ClientIP  string
	UserAgent string
}

type requestInfoKey struct{}

// ContextWithRequest attaches request info to ctx.
func ContextWithRequest(ctx context.Context, info RequestInfo) context.Context {
	return context.WithValue(ctx, requestInfoKey{}, info)
}

// RequestFromContext returns the request info attached to ctx, if any.
func RequestFromContext(ctx context.Context) RequestInfo {
	info, _ := ctx.Value(requestInfoKey{}).(RequestInfo)
	return info
}
