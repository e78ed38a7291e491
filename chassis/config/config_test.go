package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

// clearEnv unsets every variable Read looks at for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"CFG_PATH", "GATEWAY_ADDR", "GATEWAY_LOGLEVEL", "AWS_REGION", "KEYSERVER_URL", "STORAGE_DSN", "CHAOS_ERROR_CHANCE", "LOADGEN_TARGET"} {
		key := key
		if old, ok := os.LookupEnv(key); ok {
			t.Cleanup(func() { os.Setenv(key, old) })
		}
		os.Unsetenv(key)
	}
}

func TestReadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Read()
	require.NoError(t, err)

	assert.Equal(t, ":5000", cfg.Gateway.Addr)
	assert.Equal(t, "eu-west-1", cfg.AWS.Region)
	assert.Equal(t, CredentialsKeyServer, cfg.AWS.CredentialsSource)
	assert.Equal(t, 120, cfg.Queue.VisibilityTimeout)
	assert.Empty(t, cfg.Storage.DSN)
}

func TestReadFileOverDefaults(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
gateway:
  addr: ":8080"
  loglevel: debug
aws:
  region: us-east-1
  endpoint: http://localhost:9324
queue:
  visibilityTimeout: 30
`)
	t.Setenv("CFG_PATH", path)

	cfg, err := Read()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Gateway.Addr)
	assert.Equal(t, "debug", cfg.Gateway.LogLevel)
	assert.Equal(t, "us-east-1", cfg.AWS.Region)
	assert.Equal(t, "http://localhost:9324", cfg.AWS.Endpoint)
	assert.Equal(t, 30, cfg.Queue.VisibilityTimeout)
	// untouched sections keep their defaults
	assert.Equal(t, 5, cfg.Keyserver.Timeout)
	assert.Equal(t, CredentialsKeyServer, cfg.AWS.CredentialsSource)
}

func TestReadEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("AWS_REGION", "ap-south-1")
	t.Setenv("KEYSERVER_URL", "http://keys.local/key")
	t.Setenv("CHAOS_ERROR_CHANCE", "0.25")
	t.Setenv("LOADGEN_TARGET", "http://gateway:5000")

	cfg, err := Read()
	require.NoError(t, err)

	assert.Equal(t, "ap-south-1", cfg.AWS.Region)
	assert.Equal(t, "http://keys.local/key", cfg.Keyserver.URL)
	assert.Equal(t, 0.25, cfg.Chaos.ErrorChance)
	assert.Equal(t, "http://gateway:5000", cfg.Loadgen.Target)
}

func TestReadErrors(t *testing.T) {
	clearEnv(t)
	t.Run("missing file", func(t *testing.T) {
		t.Setenv("CFG_PATH", filepath.Join(t.TempDir(), "absent.yml"))
		_, err := Read()
		assert.Error(t, err)
	})
	t.Run("broken yaml", func(t *testing.T) {
		t.Setenv("CFG_PATH", writeConfig(t, "gateway: [unterminated"))
		_, err := Read()
		assert.Error(t, err)
	})
	t.Run("broken chaos env", func(t *testing.T) {
		t.Setenv("CFG_PATH", "")
		t.Setenv("CHAOS_ERROR_CHANCE", "often")
		_, err := Read()
		assert.Error(t, err)
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(cfg *AppConfig)
		wantErr bool
	}{
		{name: "defaults", mutate: func(cfg *AppConfig) {}},
		{name: "shared credentials without key server", mutate: func(cfg *AppConfig) {
			cfg.AWS.CredentialsSource = CredentialsShared
			cfg.Keyserver.URL = ""
		}},
		{name: "empty region", mutate: func(cfg *AppConfig) { cfg.AWS.Region = "" }, wantErr: true},
		{name: "unknown credentials source", mutate: func(cfg *AppConfig) { cfg.AWS.CredentialsSource = "vault" }, wantErr: true},
		{name: "key server without url", mutate: func(cfg *AppConfig) { cfg.Keyserver.URL = "" }, wantErr: true},
		{name: "negative retries", mutate: func(cfg *AppConfig) { cfg.AWS.Retries = -1 }, wantErr: true},
		{name: "negative timeout", mutate: func(cfg *AppConfig) { cfg.Keyserver.Timeout = -1 }, wantErr: true},
		{name: "visibility timeout too large", mutate: func(cfg *AppConfig) { cfg.Queue.VisibilityTimeout = 43201 }, wantErr: true},
		{name: "read wait too long", mutate: func(cfg *AppConfig) { cfg.Queue.ReadWaitSeconds = 21 }, wantErr: true},
		{name: "chaos above one", mutate: func(cfg *AppConfig) { cfg.Chaos.ErrorChance = 1.5 }, wantErr: true},
		{name: "zero supervisor interval", mutate: func(cfg *AppConfig) { cfg.Supervisor.Interval = 0 }, wantErr: true},
		{name: "negative loadgen workers", mutate: func(cfg *AppConfig) { cfg.Loadgen.Workers = -2 }, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
