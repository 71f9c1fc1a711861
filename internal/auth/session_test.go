// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GridQuest Contributors

package auth_test

import (
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridquest/gridquest/internal/auth"
	"github.com/gridquest/gridquest/pkg/errutil"
)

func TestGenerateSessionToken(t *testing.T) {
	t.Run("generates a hex token and its hash", func(t *testing.T) {
		token, hash, err := auth.GenerateSessionToken()
		require.NoError(t, err)
		assert.Len(t, token, 64)
		assert.Len(t, hash, 64)
		assert.NotEqual(t, token, hash)
		assert.Equal(t, auth.HashSessionToken(token), hash)
	})

	t.Run("generates unique tokens", func(t *testing.T) {
		token1, _, err := auth.GenerateSessionToken()
		require.NoError(t, err)
		token2, _, err := auth.GenerateSessionToken()
		require.NoError(t, err)
		assert.NotEqual(t, token1, token2)
	})
}

func TestVerifySessionToken(t *testing.T) {
	token, hash, err := auth.GenerateSessionToken()
	require.NoError(t, err)

	assert.True(t, auth.VerifySessionToken(token, hash))
	assert.False(t, auth.VerifySessionToken("other", hash))
	assert.False(t, auth.VerifySessionToken("", hash))
	assert.False(t, auth.VerifySessionToken(token, ""))
}

func TestNewSession(t *testing.T) {
	expires := time.Now().Add(time.Hour)

	t.Run("valid session", func(t *testing.T) {
		accountID := ulid.Make()
		s, err := auth.NewSession(accountID, "abc", expires)
		require.NoError(t, err)
		assert.False(t, s.ID.IsZero())
		assert.Equal(t, accountID, s.AccountID)
		assert.False(t, s.IsExpiredAt(time.Now()))
		assert.True(t, s.IsExpiredAt(expires.Add(time.Second)))
	})

	tests := []struct {
		name      string
		accountID ulid.ULID
		hash      string
		expires   time.Time
		code      string
	}{
		{"zero account", ulid.ULID{}, "abc", expires, "SESSION_INVALID_ACCOUNT"},
		{"empty hash", ulid.Make(), "", expires, "SESSION_INVALID_HASH"},
		{"zero expiry", ulid.Make(), "abc", time.Time{}, "SESSION_INVALID_EXPIRY"},
	}
	for _, tt := range tests {
		t.Run(tt.name+" is rejected", func(t *testing.T) {
			_, err := auth.NewSession(tt.accountID, tt.hash, tt.expires)
			require.Error(t, err)
			errutil.AssertErrorCode(t, err, tt.code)
		})
	}
}

func TestValidateUsername(t *testing.T) {
	for _, ok := range []string{"abc", "player_1", "Zed"} {
		assert.NoError(t, auth.ValidateUsername(ok), ok)
	}
	for _, bad := range []string{"", "ab", "1abc", "has space", "a234567890123456789012345678901"} {
		err := auth.ValidateUsername(bad)
		require.Error(t, err, bad)
		errutil.AssertErrorCode(t, err, "AUTH_INVALID_USERNAME")
	}
}
