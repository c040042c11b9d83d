// Package storetest holds the behaviour every token.Store backend must share.
package storetest

import (
	"testing"
	"time"

	"github.com/dnovikov/ironio-oauth/token"
	"github.com/stretchr/testify/require"
)

const serviceID = "IronIoOAuthService"

func sampleToken(access string) *token.Token {
	return &token.Token{
		AccessToken:  access,
		ExpiresIn:    3600,
		RefreshToken: "refresh-" + access,
		ExtraParams:  map[string]any{"scope": "read write", "uid": int64(42)},
		IssuedAt:     time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

// Run exercises a fresh store returned by newStore.
func Run(t *testing.T, newStore func(t *testing.T) token.Store) {
	t.Helper()

	t.Run("empty store", func(t *testing.T) {
		s := newStore(t)
		has, err := s.Has(serviceID)
		require.NoError(t, err)
		require.False(t, has)

		_, err = s.Get(serviceID)
		require.ErrorIs(t, err, token.ErrNotFound)

		require.NoError(t, s.Delete(serviceID))
	})

	t.Run("put and get", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Put(serviceID, sampleToken("abc")))

		has, err := s.Has(serviceID)
		require.NoError(t, err)
		require.True(t, has)

		got, err := s.Get(serviceID)
		require.NoError(t, err)
		require.Equal(t, "abc", got.AccessToken)
		require.Equal(t, 3600, got.ExpiresIn)
		require.Equal(t, "refresh-abc", got.RefreshToken)
		require.Equal(t, "read write", got.ExtraParams["scope"])
		require.Equal(t, int64(42), got.ExtraParams["uid"])
		require.True(t, got.IssuedAt.Equal(sampleToken("abc").IssuedAt))
	})

	t.Run("put overwrites", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Put(serviceID, sampleToken("first")))
		require.NoError(t, s.Put(serviceID, sampleToken("second")))

		got, err := s.Get(serviceID)
		require.NoError(t, err)
		require.Equal(t, "second", got.AccessToken)
	})

	t.Run("put if absent keeps first", func(t *testing.T) {
		s := newStore(t)
		stored, err := s.PutIfAbsent(serviceID, sampleToken("first"))
		require.NoError(t, err)
		require.True(t, stored)

		stored, err = s.PutIfAbsent(serviceID, sampleToken("second"))
		require.NoError(t, err)
		require.False(t, stored)

		got, err := s.Get(serviceID)
		require.NoError(t, err)
		require.Equal(t, "first", got.AccessToken)
	})

	t.Run("services are isolated", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Put("svc/a", sampleToken("a")))
		require.NoError(t, s.Put("svc/b", sampleToken("b")))

		got, err := s.Get("svc/a")
		require.NoError(t, err)
		require.Equal(t, "a", got.AccessToken)

		require.NoError(t, s.Delete("svc/a"))
		has, err := s.Has("svc/a")
		require.NoError(t, err)
		require.False(t, has)
		has, err = s.Has("svc/b")
		require.NoError(t, err)
		require.True(t, has)
	})

	t.Run("save honours policy", func(t *testing.T) {
		s := newStore(t)
		stored, err := token.Save(s, token.FirstWriteWins, serviceID, sampleToken("first"))
		require.NoError(t, err)
		require.True(t, stored)

		stored, err = token.Save(s, token.FirstWriteWins, serviceID, sampleToken("second"))
		require.NoError(t, err)
		require.False(t, stored)

		stored, err = token.Save(s, token.LastWriteWins, serviceID, sampleToken("third"))
		require.NoError(t, err)
		require.True(t, stored)

		got, err := s.Get(serviceID)
		require.NoError(t, err)
		require.Equal(t, "third", got.AccessToken)
	})

	t.Run("nil token", func(t *testing.T) {
		s := newStore(t)
		require.Error(t, s.Put(serviceID, nil))
	})
}
