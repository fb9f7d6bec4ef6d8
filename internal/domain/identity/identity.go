// internal/domain/identity/identity.go
package identity

import (
	"errors"
	"strings"
)

var (
	ErrInvalidUserID = errors.New("identity: invalid user id")
	ErrInvalidKey    = errors.New("identity: invalid key")
)

const guestKey = "guest"

const userKeyPrefix = "user:"

// Identity is the scope that owns exactly one cart at a time.
// Zero value is the guest identity.
type Identity struct {
	userID string
}

// Guest returns the unauthenticated (device/session scoped) identity.
func Guest() Identity {
	return Identity{}
}

// User returns the authenticated identity for userID.
func User(userID string) (Identity, error) {
	uid := strings.TrimSpace(userID)
	if uid == "" {
		return Identity{}, ErrInvalidUserID
	}
	return Identity{userID: uid}, nil
}

// ParseKey parses a persisted identity key ("guest" or "user:<id>").
func ParseKey(key string) (Identity, error) {
	k := strings.TrimSpace(key)
	if k == guestKey {
		return Guest(), nil
	}
	if strings.HasPrefix(k, userKeyPrefix) {
		return User(strings.TrimPrefix(k, userKeyPrefix))
	}
	return Identity{}, ErrInvalidKey
}

func (i Identity) IsGuest() bool {
	return i.userID == ""
}

func (i Identity) UserID() string {
	return i.userID
}

// Key returns the storage key for this identity.
// One durable mirror / one cart document per key, never shared.
func (i Identity) Key() string {
	if i.userID == "" {
		return guestKey
	}
	return userKeyPrefix + i.userID
}

func (i Identity) String() string {
	return i.Key()
}
