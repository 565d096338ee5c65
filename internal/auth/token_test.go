package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMintVerifyRoundTrip(t *testing.T) {
	tk := NewTokens("secret", time.Hour)
	token := tk.Mint(42)

	id, err := tk.Verify(token)
	require.NoError(t, err)
	require.Equal(t, int64(42), id)
}

func TestVerifyRejectsTampering(t *testing.T) {
	tk := NewTokens("secret", time.Hour)
	token := tk.Mint(42)

	_, err := tk.Verify(token + "x")
	require.ErrorIs(t, err, ErrTokenInvalid)

	// A token signed under a different secret fails.
	other := NewTokens("other", time.Hour)
	_, err = tk.Verify(other.Mint(42))
	require.ErrorIs(t, err, ErrTokenInvalid)
}

func TestVerifyRejectsExpired(t *testing.T) {
	tk := NewTokens("secret", time.Minute)
	token := tk.Mint(42)

	tk.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	_, err := tk.Verify(token)
	require.ErrorIs(t, err, ErrTokenExpired)
}

func TestPasswordHashRoundTrip(t *testing.T) {
	hash, err := HashPassword("hunter2")
	require.NoError(t, err)
	require.NotEqual(t, "hunter2", hash)

	require.True(t, CheckPassword(hash, "hunter2"))
	require.False(t, CheckPassword(hash, "hunter3"))
	require.False(t, CheckPassword("not-a-hash", "hunter2"))
}
