package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyDefaults(t *testing.T) {
	values := Config{}

	applyDefaults(&values, defaultConfig)

	assert.Equal(t, ":8080", values.RunAddr)
	assert.Equal(t, "info", values.LogLevel)
	assert.Equal(t, "diet_session", values.AuthCookieName)
	assert.Equal(t, defaultConfig.DBConnectionTimeout, values.DBConnectionTimeout)
	assert.Equal(t, defaultConfig.ChannelCapacity, values.ChannelCapacity)
}

func TestApplyDefaultsKeepsPresetValues(t *testing.T) {
	values := Config{
		RunAddr:  ":9090",
		LogLevel: "debug",
	}

	applyDefaults(&values, defaultConfig)

	assert.Equal(t, ":9090", values.RunAddr)
	assert.Equal(t, "debug", values.LogLevel)
	assert.Equal(t, "diet_session", values.AuthCookieName)
}

const testJSON = `{
	"server_address": ":3000",
	"file_storage_path": "json_storage.json",
	"database_dsn": "json-dsn",
	"auth_cookie_name": "json_cookie",
	"trusted_subnet": "10.0.0.0/8"
}`

func writeTempJSON(t *testing.T, content string) string {
	t.Helper()
	file, err := os.CreateTemp("", "config*.json")
	require.NoError(t, err)
	_, err = file.WriteString(content)
	require.NoError(t, err)
	require.NoError(t, file.Close())
	t.Cleanup(func() {
		err := os.Remove(file.Name())
		require.NoError(t, err)
	})
	return file.Name()
}

func TestConfigPriorityJSONOnly(t *testing.T) {
	jsonPath := writeTempJSON(t, testJSON)
	t.Setenv("CONFIG", jsonPath)

	cfg, err := New(WithDisableFlagsParsing(true))
	require.NoError(t, err)

	assert.Equal(t, ":3000", cfg.RunAddr)
	assert.Equal(t, "json_storage.json", cfg.DBFileName)
	assert.Equal(t, "json-dsn", cfg.DatabaseDSN)
	assert.Equal(t, "json_cookie", cfg.AuthCookieName)
	assert.Equal(t, "10.0.0.0/8", cfg.TrustedSubnet)
}

func TestConfigPriorityJSONPlusEnv(t *testing.T) {
	jsonPath := writeTempJSON(t, testJSON)
	t.Setenv("CONFIG", jsonPath)
	t.Setenv("SERVER_ADDRESS", ":4000")
	t.Setenv("AUTH_COOKIE_NAME", "env_cookie")

	cfg, err := New(WithDisableFlagsParsing(true))
	require.NoError(t, err)

	assert.Equal(t, ":4000", cfg.RunAddr) // env overrides json
	assert.Equal(t, "env_cookie", cfg.AuthCookieName)
	assert.Equal(t, "json-dsn", cfg.DatabaseDSN) // from JSON
}

func TestConfigPriorityAllSources(t *testing.T) {
	jsonPath := writeTempJSON(t, testJSON)
	t.Setenv("CONFIG", jsonPath)
	t.Setenv("SERVER_ADDRESS", ":4000")
	t.Setenv("LOG_LEVEL", "error")

	os.Args = []string{
		"testbin",
		"-a", ":6000",
		"-l", "debug",
	}

	cfg, err := New()
	require.NoError(t, err)

	assert.Equal(t, ":6000", cfg.RunAddr) // CLI > ENV > JSON
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "json-dsn", cfg.DatabaseDSN) // from JSON
}

func TestConfigEnvOnly(t *testing.T) {
	t.Setenv("SERVER_ADDRESS", ":7000")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("DB_CONNECTION_TIMEOUT", "3s")

	cfg, err := New(WithDisableFlagsParsing(true))
	require.NoError(t, err)

	assert.Equal(t, ":7000", cfg.RunAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "3s", cfg.DBConnectionTimeout.String())
}

func TestConfigRejectsInvalidLogLevel(t *testing.T) {
	t.Setenv("LOG_LEVEL", "verbose")

	_, err := New(WithDisableFlagsParsing(true))
	require.Error(t, err)
}

func TestConfigRejectsInvalidTrustedSubnet(t *testing.T) {
	t.Setenv("TRUSTED_SUBNET", "not-a-subnet")

	_, err := New(WithDisableFlagsParsing(true))
	require.Error(t, err)
}
