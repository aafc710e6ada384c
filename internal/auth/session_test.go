package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoginAndGet(t *testing.T) {
	s := NewSessions(time.Hour)

	tok, id := s.Login("Ada")
	assert.NotEmpty(t, tok)
	assert.Equal(t, "Ada", id.DisplayName)
	assert.NotEmpty(t, id.UserID)

	got, ok := s.Get(tok)
	require.True(t, ok)
	assert.Equal(t, id, got)

	_, ok = s.Get("no-such-token")
	assert.False(t, ok)
}

func TestLogout(t *testing.T) {
	s := NewSessions(time.Hour)

	tok, _ := s.Login("Ada")
	s.Logout(tok)

	_, ok := s.Get(tok)
	assert.False(t, ok)

	// Logging out twice is harmless.
	s.Logout(tok)
}

func TestSessionExpiry(t *testing.T) {
	s := NewSessions(20 * time.Millisecond)

	tok, _ := s.Login("Ada")
	time.Sleep(50 * time.Millisecond)

	_, ok := s.Get(tok)
	assert.False(t, ok)
}
