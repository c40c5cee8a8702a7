package core

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeAddress(t *testing.T) {
	addr, err := NormalizeAddress("0xAbCdEf0123456789aBcDeF0123456789AbCdEf01")
	require.NoError(t, err)
	assert.Equal(t, "0xabcdef0123456789abcdef0123456789abcdef01", addr)

	for _, bad := range []string{
		"",
		"abcdef0123456789abcdef0123456789abcdef01",
		"0x1234",
		"0xzzcdef0123456789abcdef0123456789abcdef01",
	} {
		_, err := NormalizeAddress(bad)
		assert.ErrorIs(t, err, ErrInvalidAddress, bad)
	}
}

func TestChallengeMessage(t *testing.T) {
	msg := ChallengeMessage("Lobby", "0xabc", "n1")
	expected := "Welcome to Lobby!\n\n" +
		"Sign this message to authenticate your wallet.\n\n" +
		"Wallet: 0xabc\nNonce: n1\n\n" +
		"This request will not trigger a blockchain transaction or cost any gas."
	assert.Equal(t, expected, msg)
}

func TestRoleIsElevated(t *testing.T) {
	assert.True(t, RoleAdmin.IsElevated())
	assert.True(t, RoleSuperAdmin.IsElevated())
	assert.True(t, RoleModerator.IsElevated())
	assert.False(t, RoleUser.IsElevated())
	assert.False(t, Role("").IsElevated())
}

func TestIsTransient(t *testing.T) {
	assert.True(t, IsTransient(fmt.Errorf("get: %w", ErrStoreUnavailable)))
	assert.True(t, IsTransient(ErrDirectoryUnavailable))
	assert.False(t, IsTransient(ErrReuseDetected))
	assert.False(t, IsTransient(errors.New("boom")))
}
