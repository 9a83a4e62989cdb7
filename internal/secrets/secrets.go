// Package secrets implements the broker's credential primitives: peppered
// API-key hashing and signed OAuth state tokens.
package secrets

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

// GenerateAPIKey returns a fresh high-entropy, URL-safe API key. The raw
// key is shown to the caller exactly once and only its hash is stored.
func GenerateAPIKey() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate api key: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// HashAPIKey computes the deterministic one-way hash of a raw API key
// under the server pepper. Two different peppers over the same key produce
// different hashes, so rotating the pepper invalidates every issued key.
func HashAPIKey(rawKey, pepper string) string {
	mac := hmac.New(sha256.New, []byte(pepper))
	mac.Write([]byte(rawKey))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyAPIKey recomputes the hash of a presented key and compares it to
// the stored hash in constant time.
func VerifyAPIKey(rawKey, pepper, storedHash string) bool {
	computed := HashAPIKey(rawKey, pepper)
	return hmac.Equal([]byte(computed), []byte(storedHash))
}
