package auth

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPasswordHashRoundTrip(t *testing.T) {
	hash, err := HashPassword("hunter2hunter2")
	require.NoError(t, err)
	require.NotEqual(t, "hunter2hunter2", hash)

	require.True(t, CheckPasswordHash("hunter2hunter2", hash))
	require.False(t, CheckPasswordHash("wrong", hash))
	require.False(t, CheckPasswordHash("hunter2hunter2", "not-a-hash"))
}

func TestPasswordHashesAreSalted(t *testing.T) {
	h1, err := HashPassword("same-password")
	require.NoError(t, err)
	h2, err := HashPassword("same-password")
	require.NoError(t, err)
	require.NotEqual(t, h1, h2)
}
