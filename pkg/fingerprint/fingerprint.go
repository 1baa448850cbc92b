package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
)

// Device computes the fingerprint for a user/client pair. The user ID is part
// of the hash input, so identical clients used by different users never share
// a fingerprint.
func Device(userID, clientString string) string {
	sum := sha256.Sum256([]byte(userID + "-" + clientString))
	return hex.EncodeToString(sum[:])
}

// FromRequest derives the fingerprint from the request's User-Agent header,
// the client identifying string this subsystem standardizes on.
func FromRequest(userID string, r *http.Request) string {
	return Device(userID, r.UserAgent())
}

// Match reports whether the live client data re-derives a stored fingerprint.
func Match(userID, clientString, stored string) bool {
	return Device(userID, clientString) == stored
}
