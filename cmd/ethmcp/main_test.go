package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattt/ethmcp/internal/config"
)

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer

	logger, err := newLogger(&buf, false, "")
	require.NoError(t, err)
	logger.Error("hidden")
	assert.Empty(t, buf.String())

	logger, err = newLogger(&buf, true, "")
	require.NoError(t, err)
	logger.Debug("shown", "key", "value")
	assert.Contains(t, buf.String(), "level=DEBUG")
	assert.Contains(t, buf.String(), "key=value")

	buf.Reset()
	logger, err = newLogger(&buf, false, "warn")
	require.NoError(t, err)
	logger.Info("hidden")
	logger.Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")

	_, err = newLogger(&buf, false, "loud")
	assert.Error(t, err)
}

func TestParseHeaders(t *testing.T) {
	parsed, err := parseHeaders([]string{"X-Api-Key: abc", "Authorization:Bearer a:b"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"X-Api-Key": "abc", "Authorization": "Bearer a:b"}, parsed)

	_, err = parseHeaders([]string{"no-colon"})
	assert.Error(t, err)

	_, err = parseHeaders([]string{": value"})
	assert.Error(t, err)
}

func TestNewHTTPClientSendsHeaders(t *testing.T) {
	var got string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("X-Api-Key")
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	logger, err := newLogger(&bytes.Buffer{}, false, "")
	require.NoError(t, err)

	client := newHTTPClient(config.HTTP{Timeout: 5 * time.Second, Headers: map[string]string{"X-Api-Key": "abc"}}, logger)
	resp, err := client.Post(ts.URL, "application/json", bytes.NewBufferString(`{}`))
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, "abc", got)
}

func TestLoadConfig(t *testing.T) {
	t.Setenv(config.EnvRPCURL, "https://env.example.com")
	t.Setenv(config.EnvPrivateKey, "")
	t.Setenv(config.EnvSignerAddress, "0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045")

	path := filepath.Join(t.TempDir(), "ethmcp.yaml")
	require.NoError(t, os.WriteFile(path, []byte("rpc_url: https://file.example.com\nhttp:\n  retries: 1\n"), 0o600))

	configPath = path
	t.Cleanup(func() {
		configPath = ""
		headers = nil
		_ = rootCmd.Flags().Set("rpc-url", "")
	})

	headers = []string{"X-Api-Key: abc"}
	cfg, err := loadConfig(t.Context(), rootCmd)
	require.NoError(t, err)
	assert.Equal(t, "https://env.example.com", cfg.RPCURL)
	assert.Equal(t, 1, cfg.HTTP.Retries)
	assert.Equal(t, "abc", cfg.HTTP.Headers["X-Api-Key"])

	require.NoError(t, rootCmd.Flags().Set("rpc-url", "https://flag.example.com"))
	cfg, err = loadConfig(t.Context(), rootCmd)
	require.NoError(t, err)
	assert.Equal(t, "https://flag.example.com", cfg.RPCURL)
}
