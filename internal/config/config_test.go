package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, k := range []string{"CONFIG", "CTF_API_URL", "CTF_STATE_DIR", "CTF_STATE_DSN", "CTF_CA_FILE", "LOG_LEVEL", "SERVER_ADDRESS", "JWT_SECRET", "CTF_TLS_DIR"} {
		t.Setenv(k, "")
	}
}

func TestParseArgs_Defaults(t *testing.T) {
	clearEnv(t)

	opts, err := ParseArgs(nil)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8888/api/v1", opts.APIURL)
	assert.Equal(t, "/sse/notifications", opts.StreamPath)
	assert.Equal(t, 10*time.Second, opts.Timeout)
	assert.Equal(t, ".ctfclient/client.log", opts.LogFile)
}

func TestParseArgs_FileThenEnv(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	cfg := filepath.Join(dir, "client.json")
	require.NoError(t, os.WriteFile(cfg, []byte(`{"api_url":"https://file.example/api/v1","state_dir":"/var/ctf"}`), 0o600))

	opts, err := ParseArgs([]string{"-c", cfg, "-url", "https://flag.example/api/v1"})
	require.NoError(t, err)
	assert.Equal(t, "https://file.example/api/v1", opts.APIURL)
	assert.Equal(t, "/var/ctf", opts.StateDir)

	t.Setenv("CTF_API_URL", "https://env.example/api/v1")
	opts, err = ParseArgs([]string{"-c", cfg})
	require.NoError(t, err)
	assert.Equal(t, "https://env.example/api/v1", opts.APIURL)
}

func TestParseArgs_BadFile(t *testing.T) {
	clearEnv(t)
	cfg := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(cfg, []byte(`{not json`), 0o600))

	_, err := ParseArgs([]string{"-config", cfg})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error while parsing config file")
}

func TestParseServer(t *testing.T) {
	clearEnv(t)

	_, err := ParseServer(nil)
	require.Error(t, err)

	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("SERVER_ADDRESS", "127.0.0.1:9999")
	opts, err := ParseServer(nil)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9999", opts.Addr)
	assert.Equal(t, "s3cret", opts.JWTSecret)
	assert.Equal(t, "admin@ctf.local", opts.AdminEmail)
	assert.Empty(t, opts.TLSDir)

	t.Setenv("CTF_TLS_DIR", "/tmp/ctf-tls")
	opts, err = ParseServer([]string{"-tls-dir", "certs"})
	require.NoError(t, err)
	assert.Equal(t, "/tmp/ctf-tls", opts.TLSDir)
}
