package meta

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

const signaturePrefix = "sha256="

// VerifySignature checks the X-Hub-Signature-256 header against the raw
// webhook body using the app secret.
func (c *Client) VerifySignature(body []byte, header string) bool {
	if !strings.HasPrefix(header, signaturePrefix) {
		return false
	}
	provided, err := hex.DecodeString(strings.TrimPrefix(header, signaturePrefix))
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(c.appSecret))
	mac.Write(body)
	return hmac.Equal(provided, mac.Sum(nil))
}

// VerifyChallenge validates the hub.verify_token on webhook subscription
// handshakes.
func VerifyChallenge(expected, mode, token string) bool {
	return mode == "subscribe" && expected != "" && token == expected
}
