package secrets

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const stateIssuer = "hearth"

// StatePayload is what a verified OAuth state token decodes to.
type StatePayload struct {
	UserID string
	// PKCEVerifier rides inside the signed state so the callback can
	// complete the code exchange without server-side session storage.
	// Signed (integrity protected) but not encrypted.
	PKCEVerifier string
}

type stateClaims struct {
	PKCEVerifier string `json:"pkce,omitempty"`
	jwt.RegisteredClaims
}

// SignState mints a tamper-evident state token binding a user identity to
// a single authorization attempt. The token expires after ttl.
func SignState(userID string, ttl time.Duration, secret []byte, pkceVerifier string) (string, error) {
	now := time.Now()
	claims := stateClaims{
		PKCEVerifier: pkceVerifier,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    stateIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// VerifyState validates a state token's signature and expiry and returns
// the embedded payload. Any tampering, re-signing with a different
// secret, or expiry makes verification fail.
func VerifyState(token string, secret []byte) (*StatePayload, error) {
	claims := &stateClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	}, jwt.WithIssuer(stateIssuer), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("invalid state: %w", err)
	}
	if !parsed.Valid || claims.Subject == "" {
		return nil, fmt.Errorf("invalid state: missing subject")
	}
	return &StatePayload{
		UserID:       claims.Subject,
		PKCEVerifier: claims.PKCEVerifier,
	}, nil
}
