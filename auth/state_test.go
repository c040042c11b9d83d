package auth_test

import (
	"strings"
	"testing"
	"time"

	"github.com/dnovikov/ironio-oauth/auth"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func fixedNow(t *testing.T, now time.Time) {
	t.Helper()
	prev := auth.NowTimeFunc
	auth.NowTimeFunc = func() time.Time { return now }
	t.Cleanup(func() { auth.NowTimeFunc = prev })
}

func TestStateSigner(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("round trip", func(t *testing.T) {
		fixedNow(t, now)
		s, err := auth.NewStateSigner("iron-token", "project-1", time.Minute)
		require.NoError(t, err)

		state, err := s.Sign("prod")
		require.NoError(t, err)
		require.NoError(t, s.Verify(state, "prod"))
	})

	t.Run("same inputs derive the same key", func(t *testing.T) {
		a, err := auth.NewStateSigner("iron-token", "project-1", time.Minute)
		require.NoError(t, err)
		b, err := auth.NewStateSigner("iron-token", "project-1", time.Minute)
		require.NoError(t, err)

		state, err := a.Sign("prod")
		require.NoError(t, err)
		require.NoError(t, b.Verify(state, "prod"))
	})

	t.Run("different salt rejects", func(t *testing.T) {
		a, err := auth.NewStateSigner("iron-token", "project-1", time.Minute)
		require.NoError(t, err)
		b, err := auth.NewStateSigner("iron-token", "project-2", time.Minute)
		require.NoError(t, err)

		state, err := a.Sign("prod")
		require.NoError(t, err)
		require.ErrorIs(t, b.Verify(state, "prod"), auth.ErrInvalidState)
	})

	t.Run("expired", func(t *testing.T) {
		fixedNow(t, now)
		s, err := auth.NewStateSigner("iron-token", "project-1", time.Minute)
		require.NoError(t, err)
		state, err := s.Sign("prod")
		require.NoError(t, err)

		auth.NowTimeFunc = func() time.Time { return now.Add(2 * time.Minute) }
		require.ErrorIs(t, s.Verify(state, "prod"), auth.ErrInvalidState)
	})

	t.Run("wrong environment", func(t *testing.T) {
		s, err := auth.NewStateSigner("iron-token", "project-1", time.Minute)
		require.NoError(t, err)
		state, err := s.Sign("prod")
		require.NoError(t, err)

		err = s.Verify(state, "staging")
		require.ErrorIs(t, err, auth.ErrInvalidState)
		require.Contains(t, err.Error(), `"prod"`)
	})

	t.Run("tampered", func(t *testing.T) {
		s, err := auth.NewStateSigner("iron-token", "project-1", time.Minute)
		require.NoError(t, err)
		state, err := s.Sign("prod")
		require.NoError(t, err)

		parts := strings.Split(state, ".")
		require.Len(t, parts, 3)
		sig := []byte(parts[2])
		if sig[0] == 'A' {
			sig[0] = 'B'
		} else {
			sig[0] = 'A'
		}
		parts[2] = string(sig)
		require.ErrorIs(t, s.Verify(strings.Join(parts, "."), "prod"), auth.ErrInvalidState)
	})

	t.Run("unsigned", func(t *testing.T) {
		s, err := auth.NewStateSigner("iron-token", "project-1", time.Minute)
		require.NoError(t, err)

		none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
			"env": "prod",
			"exp": time.Now().Add(time.Hour).Unix(),
		})
		state, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		require.ErrorIs(t, s.Verify(state, "prod"), auth.ErrInvalidState)
	})

	t.Run("empty and garbage", func(t *testing.T) {
		s, err := auth.NewStateSigner("iron-token", "project-1", time.Minute)
		require.NoError(t, err)
		require.ErrorIs(t, s.Verify("", "prod"), auth.ErrInvalidState)
		require.ErrorIs(t, s.Verify("not-a-state", "prod"), auth.ErrInvalidState)
	})

	t.Run("secret required", func(t *testing.T) {
		_, err := auth.NewStateSigner("", "project-1", time.Minute)
		require.Error(t, err)
	})
}
