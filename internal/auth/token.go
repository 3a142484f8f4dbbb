package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
)

const confirmationTokenBytes = 32

// GenerateConfirmationToken returns a random Base64URL token (256 bits) and its SHA256 hash as hex
func GenerateConfirmationToken() (token string, hashHex string, err error) {
	b := make([]byte, confirmationTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", "", err
	}
	token = base64.RawURLEncoding.EncodeToString(b)
	return token, HashConfirmationToken(token), nil
}

// HashConfirmationToken returns SHA256 hex of the token
func HashConfirmationToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}
