package secrets

import (
	"strings"
	"testing"
	"time"
)

func TestGenerateAPIKey(t *testing.T) {
	k1, err := GenerateAPIKey()
	if err != nil {
		t.Fatalf("GenerateAPIKey: %v", err)
	}
	k2, err := GenerateAPIKey()
	if err != nil {
		t.Fatalf("GenerateAPIKey: %v", err)
	}
	if k1 == k2 {
		t.Error("two generated keys should differ")
	}
	if len(k1) < 32 {
		t.Errorf("key too short: %d chars", len(k1))
	}
}

func TestHashVerifyRoundTrip(t *testing.T) {
	keys := []string{"abc", "a-much-longer-key-with-high-entropy-0123456789"}
	for _, key := range keys {
		hash := HashAPIKey(key, "pepper")
		if !VerifyAPIKey(key, "pepper", hash) {
			t.Errorf("verify failed for key %q", key)
		}
	}
}

func TestHashDependsOnPepper(t *testing.T) {
	h1 := HashAPIKey("same-key", "pepper-one")
	h2 := HashAPIKey("same-key", "pepper-two")
	if h1 == h2 {
		t.Error("different peppers must produce different hashes")
	}
	if VerifyAPIKey("same-key", "pepper-two", h1) {
		t.Error("verify must fail after pepper rotation")
	}
}

func TestVerifyRejectsBitMutations(t *testing.T) {
	key := "sk_live_0123456789abcdef"
	hash := HashAPIKey(key, "pepper")

	// Flip one bit at every position; every mutation must fail.
	for i := 0; i < len(key); i++ {
		b := []byte(key)
		b[i] ^= 1
		if VerifyAPIKey(string(b), "pepper", hash) {
			t.Errorf("mutation at index %d verified unexpectedly", i)
		}
	}
}

func TestSignVerifyState(t *testing.T) {
	secret := []byte("state-secret")
	tok, err := SignState("user-1", time.Minute, secret, "verifier-xyz")
	if err != nil {
		t.Fatalf("SignState: %v", err)
	}

	payload, err := VerifyState(tok, secret)
	if err != nil {
		t.Fatalf("VerifyState: %v", err)
	}
	if payload.UserID != "user-1" {
		t.Errorf("UserID = %q", payload.UserID)
	}
	if payload.PKCEVerifier != "verifier-xyz" {
		t.Errorf("PKCEVerifier = %q", payload.PKCEVerifier)
	}
}

func TestVerifyStateWrongSecret(t *testing.T) {
	tok, err := SignState("user-1", time.Minute, []byte("secret-a"), "")
	if err != nil {
		t.Fatalf("SignState: %v", err)
	}
	if _, err := VerifyState(tok, []byte("secret-b")); err == nil {
		t.Error("state signed with a different secret must fail verification")
	}
}

func TestVerifyStateExpired(t *testing.T) {
	secret := []byte("state-secret")
	tok, err := SignState("user-1", -time.Minute, secret, "")
	if err != nil {
		t.Fatalf("SignState: %v", err)
	}
	if _, err := VerifyState(tok, secret); err == nil {
		t.Error("expired state must fail verification")
	}
}

func TestVerifyStateTampered(t *testing.T) {
	secret := []byte("state-secret")
	tok, err := SignState("user-1", time.Minute, secret, "")
	if err != nil {
		t.Fatalf("SignState: %v", err)
	}

	// Corrupt the payload segment.
	parts := strings.Split(tok, ".")
	if len(parts) != 3 {
		t.Fatalf("unexpected token shape: %q", tok)
	}
	parts[1] = "x" + parts[1]
	if _, err := VerifyState(strings.Join(parts, "."), secret); err == nil {
		t.Error("tampered state must fail verification")
	}
}
