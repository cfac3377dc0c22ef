package security

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	svc := NewTokenService("secret", time.Hour)

	token, err := svc.CreateForUser("alice")
	require.NoError(t, err)

	claims, err := svc.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims["sub"])
}

func TestTokenRejectsWrongSecret(t *testing.T) {
	token, err := NewTokenService("secret", time.Hour).CreateForUser("alice")
	require.NoError(t, err)

	_, err = NewTokenService("other", time.Hour).Parse(token)
	assert.Error(t, err)
}

func TestTokenRejectsExpired(t *testing.T) {
	svc := NewTokenService("secret", -time.Minute)

	token, err := svc.CreateForUser("alice")
	require.NoError(t, err)

	_, err = svc.Parse(token)
	assert.Error(t, err)
}
