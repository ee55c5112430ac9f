package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pharmastock/internal/core/id"
	"pharmastock/internal/domain/commit"
)

func TestAuditLog_History(t *testing.T) {
	ctx := context.Background()
	log := NewAuditLog()
	here, there := id.New(), id.New()

	for _, rec := range []commit.AuditRecord{
		{BatchReference: "BR-1", LocationID: here},
		{BatchReference: "BR-2", LocationID: there},
		{BatchReference: "BR-3", LocationID: here},
		{BatchReference: "BR-4", LocationID: here},
	} {
		require.NoError(t, log.RecordCommit(ctx, rec))
	}

	got, err := log.History(ctx, here, 0)
	require.NoError(t, err)
	refs := make([]string, 0, len(got))
	for _, r := range got {
		refs = append(refs, r.BatchReference)
	}
	assert.Equal(t, []string{"BR-4", "BR-3", "BR-1"}, refs)

	got, err = log.History(ctx, here, 2)
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = log.History(ctx, id.New(), 10)
	require.NoError(t, err)
	assert.Empty(t, got)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = log.History(cancelled, here, 0)
	assert.ErrorIs(t, err, context.Canceled)
}
