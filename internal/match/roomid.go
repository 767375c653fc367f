package match

import (
	"crypto/rand"
	"encoding/hex"
)

// newRoomID returns a 12-character hex room id. 48 random bits keeps
// collisions improbable at this service's room churn.
func newRoomID() string {
	b := make([]byte, 6)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b)
}
