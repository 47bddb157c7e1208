package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"strings"
	"time"

	"github.com/ovomonie/banking-service/internal/domain"
)

const (
	tokenPrefix = "ovotoken"
	// DefaultTokenTTL matches the mobile app's 30-day session length.
	DefaultTokenTTL = 30 * 24 * time.Hour
)

// TokenPayload is the signed body of a session token.
type TokenPayload struct {
	Sub string `json:"sub"`
	Iat int64  `json:"iat"`
	Exp int64  `json:"exp"`
}

// TokenIssuer mints and verifies session tokens. The format is
// "ovotoken.<base64url payload>.<base64url HMAC-SHA256 signature>" with the
// signature computed over the encoded payload.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenIssuer creates an issuer with the given signing secret.
func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenIssuer{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Issue creates a signed token for the user.
func (t *TokenIssuer) Issue(userID string) string {
	iat := t.now().Unix()
	payload := TokenPayload{
		Sub: userID,
		Iat: iat,
		Exp: iat + int64(t.ttl.Seconds()),
	}

	raw, _ := json.Marshal(payload)
	payloadB64 := base64.RawURLEncoding.EncodeToString(raw)
	return tokenPrefix + "." + payloadB64 + "." + t.sign(payloadB64)
}

// Verify validates the signature and expiry and returns the payload. The
// signature check runs in constant time.
func (t *TokenIssuer) Verify(token string) (*TokenPayload, error) {
	if !strings.HasPrefix(token, tokenPrefix+".") {
		return nil, domain.ErrAuthInvalid
	}
	parts := strings.Split(token, ".")
	if len(parts) != 3 || parts[1] == "" || parts[2] == "" {
		return nil, domain.ErrAuthInvalid
	}

	payloadB64, signature := parts[1], parts[2]
	expected := t.sign(payloadB64)
	if !hmac.Equal([]byte(signature), []byte(expected)) {
		return nil, domain.ErrAuthInvalid
	}

	raw, err := base64.RawURLEncoding.DecodeString(payloadB64)
	if err != nil {
		return nil, domain.ErrAuthInvalid
	}
	var payload TokenPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, domain.ErrAuthInvalid
	}
	if payload.Sub == "" {
		return nil, domain.ErrAuthInvalid
	}
	if payload.Exp != 0 && payload.Exp < t.now().Unix() {
		return nil, domain.ErrAuthExpired
	}
	return &payload, nil
}

func (t *TokenIssuer) sign(payloadB64 string) string {
	mac := hmac.New(sha256.New, t.secret)
	mac.Write([]byte(payloadB64))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
