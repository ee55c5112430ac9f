package context

import (
	"context"
)

// Trace identifies the request a unit of work belongs to. SessionID is set
// once the request is bound to a staging session.
type Trace struct {
	TraceID   string
	RequestID string
	SessionID string
}

type traceKey struct{}

// WithTrace stores t on ctx, replacing any trace already there.
func WithTrace(ctx context.Context, t Trace) context.Context {
	return context.WithValue(ctx, traceKey{}, t)
}

// TraceFrom returns the trace stored on ctx.
func TraceFrom(ctx context.Context) (Trace, bool) {
	t, ok := ctx.Value(traceKey{}).(Trace)
	return t, ok
}

// WithSessionID tags the trace on ctx with a staging session. ctx is returned
// unchanged when it carries no trace.
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	t, ok := TraceFrom(ctx)
	if !ok {
		return ctx
	}
	t.SessionID = sessionID
	return WithTrace(ctx, t)
}

// RequestID is the request id on ctx, or "".
func RequestID(ctx context.Context) string {
	t, _ := TraceFrom(ctx)
	return t.RequestID
}
