package token_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/dnovikov/ironio-oauth/token"
	"github.com/stretchr/testify/require"
)

func TestUnmarshal_KeepsNumberTypes(t *testing.T) {
	tok := token.New("abc", 3600)
	tok.ExtraParams = map[string]any{
		"uid":   int64(42),
		"ratio": 0.5,
		"user":  map[string]any{"id": int64(7), "tags": []any{int64(1), "a"}},
	}

	data, err := tok.Marshal()
	require.NoError(t, err)
	got, err := token.Unmarshal(data)
	require.NoError(t, err)

	require.Equal(t, int64(42), got.ExtraParams["uid"])
	require.Equal(t, 0.5, got.ExtraParams["ratio"])
	require.Equal(t, map[string]any{"id": int64(7), "tags": []any{int64(1), "a"}}, got.ExtraParams["user"])
	require.Equal(t, 3600, got.ExpiresIn)
	require.True(t, got.IssuedAt.Equal(tok.IssuedAt))
}

func TestUnmarshal(t *testing.T) {
	t.Run("no extra params", func(t *testing.T) {
		got, err := token.Unmarshal([]byte(`{"access_token":"abc","expires_in":60,"issued_at":"2026-01-02T03:04:05Z"}`))
		require.NoError(t, err)
		require.NotNil(t, got.ExtraParams)
		require.Empty(t, got.ExtraParams)
		require.Equal(t, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), got.IssuedAt.UTC())
	})

	t.Run("invalid json", func(t *testing.T) {
		_, err := token.Unmarshal([]byte(`{`))
		require.Error(t, err)
	})
}

func TestNormalizeJSON(t *testing.T) {
	require.Equal(t, "x", token.NormalizeJSON("x"))
	require.Equal(t, []any{int64(3), 1.5}, token.NormalizeJSON([]any{json.Number("3"), json.Number("1.5")}))
}
