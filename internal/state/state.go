// Package state signs and verifies the opaque token that carries a chat
// identity through the Strava OAuth redirect round trip.
package state

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"strings"

	"github.com/smallbiznis/stravalink/internal/domain"
)

// Sign returns "{ownerID}:{signature}" where signature is
// base64url(HMAC-SHA256(secret, ownerID)) without padding. The token is
// deterministic: it embeds no nonce or timestamp, so it binds an identity,
// not a single authorization attempt, and stays replayable until the secret
// rotates.
func Sign(ownerID, secret string) string {
	return ownerID + ":" + signature(ownerID, secret)
}

// Verify extracts the owner identity from a signed token. Every failure mode
// collapses to ErrInvalidState.
func Verify(token, secret string) (string, error) {
	ownerID, provided, ok := strings.Cut(token, ":")
	if !ok || ownerID == "" {
		return "", domain.ErrInvalidState
	}
	expected := signature(ownerID, secret)
	if !hmac.Equal([]byte(provided), []byte(expected)) {
		return "", domain.ErrInvalidState
	}
	return ownerID, nil
}

func signature(ownerID, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(ownerID))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
