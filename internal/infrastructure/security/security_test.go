package security

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/fastygo/pets/domain"
)

func TestBcryptHasher(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost)

	hash, err := h.Hash("s3cret")
	require.NoError(t, err)
	require.NotEqual(t, "s3cret", hash)
	require.True(t, h.Matches("s3cret", hash))
	require.False(t, h.Matches("wrong", hash))
	require.False(t, h.Matches("s3cret", "not-a-hash"))
}

func TestJWTRoundTrip(t *testing.T) {
	m, err := NewJWTManager("secret", "pets")
	require.NoError(t, err)

	now := time.Now()
	session := &domain.Session{
		ID:        "sess-1",
		UserID:    "user-1",
		Role:      domain.RoleAdmin,
		CreatedAt: now,
		ExpiresAt: now.Add(time.Hour),
	}
	token, err := m.Issue(session)
	require.NoError(t, err)

	claims, err := m.Parse(token)
	require.NoError(t, err)
	require.Equal(t, "user-1", claims.UserID)
	require.Equal(t, "user-1", claims.Subject)
	require.Equal(t, "ROLE_ADMIN", claims.Role)
	require.Equal(t, "sess-1", claims.SessionID)
}

func TestJWTRejectsTamperedAndExpired(t *testing.T) {
	m, err := NewJWTManager("secret", "pets")
	require.NoError(t, err)
	other, err := NewJWTManager("other-secret", "pets")
	require.NoError(t, err)
	foreign, err := NewJWTManager("secret", "someone-else")
	require.NoError(t, err)

	now := time.Now()
	valid := &domain.Session{ID: "s", UserID: "u", CreatedAt: now, ExpiresAt: now.Add(time.Hour)}

	token, err := other.Issue(valid)
	require.NoError(t, err)
	_, err = m.Parse(token)
	require.True(t, domain.IsDomainError(err, domain.ErrCodeUnauthorized))

	token, err = foreign.Issue(valid)
	require.NoError(t, err)
	_, err = m.Parse(token)
	require.True(t, domain.IsDomainError(err, domain.ErrCodeUnauthorized))

	expired := &domain.Session{ID: "s", UserID: "u", CreatedAt: now.Add(-2 * time.Hour), ExpiresAt: now.Add(-time.Hour)}
	token, err = m.Issue(expired)
	require.NoError(t, err)
	_, err = m.Parse(token)
	require.Error(t, err)

	_, err = NewJWTManager("", "pets")
	require.Error(t, err)
}
