package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appctx "pharmastock/internal/core/context"
)

func TestJWTService_RoundTrip(t *testing.T) {
	svc := NewJWTService(DefaultJWTConfig("secret", "pharmastock"))
	op := appctx.OperatorContext{
		OperatorID:  "op-1",
		Name:        "Dana",
		Roles:       []string{"clerk"},
		LocationIDs: []string{"loc-1"},
	}

	token, expiresAt, err := svc.GenerateAccessToken(op, time.Now())
	require.NoError(t, err)
	assert.True(t, expiresAt.After(time.Now()))

	got, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, op, *got)
}

func TestJWTService_Rejects(t *testing.T) {
	svc := NewJWTService(DefaultJWTConfig("secret", "pharmastock"))
	op := appctx.OperatorContext{OperatorID: "op-1"}

	t.Run("expired", func(t *testing.T) {
		token, _, err := svc.GenerateAccessToken(op, time.Now().Add(-24*time.Hour))
		require.NoError(t, err)
		_, err = svc.ValidateToken(token)
		assert.Error(t, err)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := NewJWTService(DefaultJWTConfig("other", "pharmastock"))
		token, _, err := other.GenerateAccessToken(op, time.Now())
		require.NoError(t, err)
		_, err = svc.ValidateToken(token)
		assert.Error(t, err)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		other := NewJWTService(DefaultJWTConfig("secret", "someone-else"))
		token, _, err := other.GenerateAccessToken(op, time.Now())
		require.NoError(t, err)
		_, err = svc.ValidateToken(token)
		assert.Error(t, err)
	})

	t.Run("no operator", func(t *testing.T) {
		token, _, err := svc.GenerateAccessToken(appctx.OperatorContext{}, time.Now())
		require.NoError(t, err)
		_, err = svc.ValidateToken(token)
		assert.Error(t, err)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := svc.ValidateToken("not.a.token")
		assert.Error(t, err)
	})
}
