package operon

import (
	"context"
	"net/http"
)

type contextKey struct {
	name string
}

var (
	requestKey   = &contextKey{"request"}
	operationKey = &contextKey{"operation"}
)

// RequestFromContext returns the HTTP request being bound, for handlers and
// middleware that need transport-level detail.
func RequestFromContext(ctx context.Context) *http.Request {
	if r, ok := ctx.Value(requestKey).(*http.Request); ok {
		return r
	}
	return nil
}

// OperationFromContext returns the matched operation's method and declared
// path pattern.
func OperationFromContext(ctx context.Context) (method, path string, ok bool) {
	if op, ok := ctx.Value(operationKey).(*Operation); ok {
		return op.methods[0], op.path, true
	}
	return "", "", false
}

func newContext(ctx context.Context, r *http.Request, op *Operation) context.Context {
	ctx = context.WithValue(ctx, requestKey, r)
	ctx = context.WithValue(ctx, operationKey, op)
	return ctx
}
