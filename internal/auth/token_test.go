package auth

import (
	"encoding/base64"
	"encoding/hex"
	"testing"
)

func TestHashConfirmationToken_consistency(t *testing.T) {
	h1 := HashConfirmationToken("abc")
	h2 := HashConfirmationToken("abc")
	if h1 != h2 {
		t.Errorf("hash should be deterministic: %q != %q", h1, h2)
	}
	decoded, err := hex.DecodeString(h1)
	if err != nil {
		t.Fatalf("hash should be valid hex: %v", err)
	}
	if len(decoded) != 32 {
		t.Errorf("SHA-256 hash should be 32 bytes, got %d", len(decoded))
	}
	if HashConfirmationToken("abd") == h1 {
		t.Error("different tokens should produce different hashes")
	}
}

func TestGenerateConfirmationToken(t *testing.T) {
	token, hash, err := GenerateConfirmationToken()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		t.Fatalf("token should be base64url: %v", err)
	}
	if len(raw) < 32 {
		t.Errorf("token should carry at least 256 bits, got %d bytes", len(raw))
	}
	if hash != HashConfirmationToken(token) {
		t.Error("returned hash should match HashConfirmationToken(token)")
	}

	other, _, err := GenerateConfirmationToken()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if other == token {
		t.Error("tokens should not repeat")
	}
}

func TestPasswordHasher(t *testing.T) {
	h := NewPasswordHasher(4)
	hash, err := h.Hash("correct horse")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if hash == "correct horse" {
		t.Error("hash must not equal the password")
	}
	if !h.Matches(hash, "correct horse") {
		t.Error("matching password should verify")
	}
	if h.Matches(hash, "wrong horse") {
		t.Error("wrong password should not verify")
	}

	again, err := h.Hash("correct horse")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if again == hash {
		t.Error("hashes should be salted")
	}

	long := make([]byte, 73)
	for i := range long {
		long[i] = 'a'
	}
	if _, err := h.Hash(string(long)); err == nil {
		t.Error("passwords over 72 bytes should be rejected")
	}

	h.Burn("anything")
}
