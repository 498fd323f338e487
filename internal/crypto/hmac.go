package crypto

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
)

// SignData computes an HMAC-SHA256 signature over data and returns it
// base64 URL-encoded.
func SignData(data string, signingKey []byte) string {
	mac := hmac.New(sha256.New, signingKey)
	mac.Write([]byte(data))
	return base64.URLEncoding.EncodeToString(mac.Sum(nil))
}

// ValidateSignedData verifies a signature produced by SignData using a
// constant-time comparison.
func ValidateSignedData(data, signature string, signingKey []byte) bool {
	expected := SignData(data, signingKey)
	return hmac.Equal([]byte(expected), []byte(signature))
}
