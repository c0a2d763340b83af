package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verifyengine/core/infrastructure/config"
)

func TestStaticKeyStore_LookupAndCaching(t *testing.T) {
	store := NewStaticKeyStoreFromConfig(config.Config{APIKeys: "key-abc:user-1, key-def:user-2"})
	authn := NewAPIKeyAuthenticator(store, time.Minute)

	userID, ok := authn.Authenticate("key-abc")
	require.True(t, ok)
	assert.Equal(t, "user-1", userID)

	userID, ok = authn.Authenticate("key-def")
	require.True(t, ok)
	assert.Equal(t, "user-2", userID)

	_, ok = authn.Authenticate("unknown-key")
	assert.False(t, ok)

	_, ok = authn.Authenticate("")
	assert.False(t, ok)
}

func TestBearerAuthenticator_IssueAndAuthenticate(t *testing.T) {
	authn := NewBearerAuthenticator("a-very-secret-signing-key")

	token, err := authn.IssueToken("user-42", time.Hour)
	require.NoError(t, err)

	userID, ok := authn.Authenticate(token)
	require.True(t, ok)
	assert.Equal(t, "user-42", userID)

	_, ok = authn.Authenticate("garbage")
	assert.False(t, ok)
}

func TestBearerAuthenticator_RejectsExpiredToken(t *testing.T) {
	authn := NewBearerAuthenticator("a-very-secret-signing-key")

	token, err := authn.IssueToken("user-42", -time.Minute)
	require.NoError(t, err)

	_, ok := authn.Authenticate(token)
	assert.False(t, ok)
}

func TestBearerAuthenticator_RejectsTokenFromDifferentSecret(t *testing.T) {
	issuer := NewBearerAuthenticator("secret-one")
	verifier := NewBearerAuthenticator("secret-two")

	token, err := issuer.IssueToken("user-42", time.Hour)
	require.NoError(t, err)

	_, ok := verifier.Authenticate(token)
	assert.False(t, ok)
}
