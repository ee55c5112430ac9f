package context

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWithSessionID(t *testing.T) {
	bare := context.Background()
	assert.Equal(t, bare, WithSessionID(bare, "s-1"))
	assert.Empty(t, RequestID(bare))

	ctx := WithTrace(bare, Trace{TraceID: "t-1", RequestID: "r-1"})
	scoped := WithSessionID(ctx, "s-1")

	got, ok := TraceFrom(scoped)
	assert.True(t, ok)
	assert.Equal(t, Trace{TraceID: "t-1", RequestID: "r-1", SessionID: "s-1"}, got)
	assert.Equal(t, "r-1", RequestID(scoped))

	// The parent context keeps its unscoped trace.
	parent, _ := TraceFrom(ctx)
	assert.Empty(t, parent.SessionID)
}
