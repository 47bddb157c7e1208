package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ovomonie/banking-service/internal/domain"
)

func TestTokenIssueAndVerify(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", time.Hour)

	token := issuer.Issue("user-123")
	assert.True(t, strings.HasPrefix(token, "ovotoken."))
	assert.Len(t, strings.Split(token, "."), 3)

	payload, err := issuer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user-123", payload.Sub)
	assert.Equal(t, payload.Iat+3600, payload.Exp)
}

func TestTokenVerifyRejectsTamperedPayload(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", time.Hour)
	token := issuer.Issue("user-123")

	parts := strings.Split(token, ".")
	forged := NewTokenIssuer("test-secret", time.Hour).Issue("user-666")
	forgedPayload := strings.Split(forged, ".")[1]

	_, err := issuer.Verify(parts[0] + "." + forgedPayload + "." + parts[2])
	assert.ErrorIs(t, err, domain.ErrAuthInvalid)
}

func TestTokenVerifyRejectsWrongSecret(t *testing.T) {
	token := NewTokenIssuer("secret-a", time.Hour).Issue("user-123")

	_, err := NewTokenIssuer("secret-b", time.Hour).Verify(token)
	assert.ErrorIs(t, err, domain.ErrAuthInvalid)
}

func TestTokenVerifyRejectsExpired(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", time.Hour)
	issuer.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token := issuer.Issue("user-123")

	fresh := NewTokenIssuer("test-secret", time.Hour)
	_, err := fresh.Verify(token)
	assert.ErrorIs(t, err, domain.ErrAuthExpired)
}

func TestTokenVerifyRejectsMalformed(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", time.Hour)

	for _, token := range []string{
		"",
		"ovotoken.",
		"ovotoken.only-two-parts",
		"jwt.header.signature",
		"ovotoken..sig",
		"ovotoken.payload.",
		"ovotoken.!!!notbase64.sig",
	} {
		_, err := issuer.Verify(token)
		assert.Error(t, err, "token %q", token)
	}
}

func TestHashAndVerifySecret(t *testing.T) {
	hash, err := HashSecret("s3cret-pin")
	require.NoError(t, err)
	assert.Contains(t, hash, ":")

	assert.True(t, VerifySecret("s3cret-pin", hash))
	assert.False(t, VerifySecret("wrong-pin", hash))
}

func TestHashSecretSalted(t *testing.T) {
	h1, err := HashSecret("same-input")
	require.NoError(t, err)
	h2, err := HashSecret("same-input")
	require.NoError(t, err)
	assert.NotEqual(t, h1, h2)
}

func TestVerifySecretMalformedStoredHash(t *testing.T) {
	assert.False(t, VerifySecret("pin", ""))
	assert.False(t, VerifySecret("pin", "no-colon"))
	assert.False(t, VerifySecret("pin", "!!!:???"))
	assert.False(t, VerifySecret("pin", "dmFsaWQ=:"))
}
