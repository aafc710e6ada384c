// Package auth is the identity provider boundary: it turns a session token
// into a user identity. How sessions are established is of no concern to the
// lease core, which only ever sees an Identity passed in by the API layer.
package auth

import (
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// Identity is an authenticated user as seen by the lease core.
type Identity struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
}

// Sessions is an in-memory, TTL-bounded session store. Session tokens are
// random and bearer-style; losing one just means logging in again.
type Sessions struct {
	store *cache.Cache
	ttl   time.Duration
}

// NewSessions creates a session store whose entries expire after ttl.
func NewSessions(ttl time.Duration) *Sessions {
	return &Sessions{
		store: cache.New(ttl, 2*ttl),
		ttl:   ttl,
	}
}

// Login establishes a session for a user with the given display name and
// returns the session token. The user id is minted here; the same person
// logging in twice gets two identities, which is fine for seat claiming.
func (s *Sessions) Login(displayName string) (string, Identity) {
	id := Identity{
		UserID:      uuid.NewString(),
		DisplayName: displayName,
	}
	tok := uuid.NewString()
	s.store.Set(tok, id, s.ttl)
	return tok, id
}

// Get resolves a session token to its identity, refreshing the TTL so an
// active user is not logged out mid-session.
func (s *Sessions) Get(token string) (Identity, bool) {
	v, found := s.store.Get(token)
	if !found {
		return Identity{}, false
	}
	id := v.(Identity)
	s.store.Set(token, id, s.ttl)
	return id, true
}

// Logout discards a session. Unknown tokens are ignored.
func (s *Sessions) Logout(token string) {
	s.store.Delete(token)
}

// TTL returns the configured session lifetime, for cookie max-age.
func (s *Sessions) TTL() time.Duration {
	return s.ttl
}
