// Package auth provides the Authenticator capability: API token in,
// user id out. Identity management itself is an external concern.
package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
)

// ErrInvalidToken is returned when a token resolves to no user.
var ErrInvalidToken = errors.New("invalid API token")

// Authenticator resolves an API token to a user id.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (string, error)
}

// HashKey returns a SHA-256 hash of the key.
func HashKey(key string) string {
	key = strings.TrimSpace(key)

	hash := sha256.Sum256([]byte(key))
	return hex.EncodeToString(hash[:])
}

// StaticAuthenticator resolves tokens against a fixed table of hashed
// tokens, loaded from configuration. Tokens are never stored in clear.
type StaticAuthenticator struct {
	users map[string]string // token hash -> user id
}

// NewStaticAuthenticator builds an authenticator from token -> user
// pairs. The tokens are hashed on the way in.
func NewStaticAuthenticator(tokens map[string]string) *StaticAuthenticator {
	users := make(map[string]string, len(tokens))
	for token, userID := range tokens {
		users[HashKey(token)] = userID
	}
	return &StaticAuthenticator{users: users}
}

func (a *StaticAuthenticator) Authenticate(_ context.Context, token string) (string, error) {
	userID, ok := a.users[HashKey(token)]
	if !ok {
		return "", ErrInvalidToken
	}
	return userID, nil
}
