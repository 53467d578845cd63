package pkg

import (
	"crypto/rand"
	"encoding/base64"

	"github.com/google/uuid"
)

// GenerateSessionID - generates a new unique session identifier.
func GenerateSessionID() string {
	return uuid.NewString()
}

// GenerateStateToken - generates an opaque token for the OAuth state
// round-trip.
func GenerateStateToken() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return uuid.NewString()
	}

	return base64.RawURLEncoding.EncodeToString(b)
}
