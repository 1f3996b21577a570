package jwttoken

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "arbiter/pkg/domain-errors"
)

func TestGenerateAndValidateAdminToken(t *testing.T) {
	svc := NewJWTService("test-signing-key", "arbiter")

	token, err := svc.GenerateAdminToken("reviewer-1", time.Minute)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "reviewer-1", claims.Subject)
	assert.Equal(t, "admin", claims.Role)
}

func TestValidateToken_Expired(t *testing.T) {
	svc := NewJWTService("test-signing-key", "arbiter")

	token, err := svc.GenerateAdminToken("reviewer-1", -time.Minute)
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestValidateToken_WrongKey(t *testing.T) {
	minter := NewJWTService("key-a", "arbiter")
	verifier := NewJWTService("key-b", "arbiter")

	token, err := minter.GenerateAdminToken("reviewer-1", time.Minute)
	require.NoError(t, err)

	_, err = verifier.ValidateToken(token)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestValidateToken_Garbage(t *testing.T) {
	svc := NewJWTService("test-signing-key", "arbiter")
	_, err := svc.ValidateToken("not-a-token")
	require.Error(t, err)
}
