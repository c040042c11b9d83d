package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dnovikov/ironio-oauth/environment"
	"github.com/dnovikov/ironio-oauth/internal/config"
	"github.com/dnovikov/ironio-oauth/token"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	c, err := config.Load()
	require.NoError(t, err)
	require.Equal(t, "IronIoOAuthService", c.GetServiceID())
	require.Equal(t, 15*time.Minute, c.GetStateTTL())
	require.Equal(t, 30*time.Second, c.GetHTTPTimeout())
	require.True(t, c.GetRequireState())
	require.Equal(t, config.StoreFile, c.GetStoreKind())
	require.Equal(t, token.LastWriteWins, c.GetWritePolicy())
	require.Equal(t, filepath.Join("data", "tokens"), c.GetStorePath())
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("IRONIO_OAUTH_STORE", "sqlite")
	t.Setenv("IRONIO_OAUTH_DATA_FOLDER", "/var/lib/worker")
	t.Setenv("IRONIO_OAUTH_WRITE_POLICY", "first-write-wins")
	t.Setenv("IRONIO_OAUTH_REQUIRE_STATE", "false")
	t.Setenv("IRONIO_OAUTH_STATE_TTL", "5m")

	c, err := config.Load()
	require.NoError(t, err)
	require.Equal(t, config.StoreSQLite, c.GetStoreKind())
	require.Equal(t, "/var/lib/worker/tokens.db", c.GetStorePath())
	require.Equal(t, token.FirstWriteWins, c.GetWritePolicy())
	require.False(t, c.GetRequireState())
	require.Equal(t, 5*time.Minute, c.GetStateTTL())
}

func TestLoad_Invalid(t *testing.T) {
	t.Run("store kind", func(t *testing.T) {
		t.Setenv("IRONIO_OAUTH_STORE", "redis")
		_, err := config.Load()
		require.Error(t, err)
		require.Contains(t, err.Error(), "redis")
	})

	t.Run("write policy", func(t *testing.T) {
		t.Setenv("IRONIO_OAUTH_WRITE_POLICY", "whatever")
		_, err := config.Load()
		require.Error(t, err)
	})
}

const yamlConfig = `
project_id: "5f1d"
worker_name: oauth-worker
token: iron-token
username: global-client
password: global-secret
api_uri: https://api.example.com
oauth_auth_endpoint: /oauth/authorize
oauth_token_endpoint: /oauth/token
state_secret: not-in-any-url
production:
  username: prod-client
  api_uri: https://api.prod.example.com
staging:
  project_id: 42
`

const tomlConfig = `
project_id = "5f1d"
worker_name = "oauth-worker"
username = "global-client"

[production]
username = "prod-client"
retries = 3
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadEnvironmentFile(t *testing.T) {
	t.Run("yaml", func(t *testing.T) {
		cfg, err := config.LoadEnvironmentFile(writeFile(t, "config.yaml", yamlConfig))
		require.NoError(t, err)
		require.Equal(t, []string{"production", "staging"}, cfg.EnvironmentNames())

		prod, err := cfg.For("production")
		require.NoError(t, err)
		require.NoError(t, prod.Validate())
		v, err := prod.Resolve(environment.KeyUsername)
		require.NoError(t, err)
		require.Equal(t, "prod-client", v)
		v, err = prod.Resolve(environment.KeyPassword)
		require.NoError(t, err)
		require.Equal(t, "global-secret", v)

		staging, err := cfg.For("staging")
		require.NoError(t, err)
		v, err = staging.Resolve(environment.KeyProjectID)
		require.NoError(t, err)
		require.Equal(t, "42", v)
	})

	t.Run("toml", func(t *testing.T) {
		cfg, err := config.LoadEnvironmentFile(writeFile(t, "config.toml", tomlConfig))
		require.NoError(t, err)
		prod, err := cfg.For("production")
		require.NoError(t, err)
		v, ok := prod.Lookup("retries")
		require.True(t, ok)
		require.Equal(t, "3", v)
		v, err = prod.Resolve(environment.KeyWorkerName)
		require.NoError(t, err)
		require.Equal(t, "oauth-worker", v)
	})

	t.Run("unsupported extension", func(t *testing.T) {
		_, err := config.LoadEnvironmentFile(writeFile(t, "config.ini", "a=b"))
		require.Error(t, err)
	})

	t.Run("nested too deep", func(t *testing.T) {
		_, err := config.LoadEnvironmentFile(writeFile(t, "deep.yaml", "prod:\n  nested:\n    a: b\n"))
		require.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := config.LoadEnvironmentFile(filepath.Join(t.TempDir(), "nope.yaml"))
		require.Error(t, err)
	})
}
