package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyDefaults(t *testing.T) {
	var c AppConfig
	applyDefaults(&c)
	applyDerivedDefaults(&c)

	assert.Equal(t, "8080", c.AppPort)
	assert.Equal(t, "production", c.AppEnv)
	assert.Equal(t, 7*24*time.Hour, c.TokenTTL())
	assert.Equal(t, "mysql", c.DBDriver)
	assert.Equal(t, "3306", c.DBPort)
	assert.Equal(t, "minio", c.StorageDriver)
	assert.Equal(t, 60*time.Minute, c.SignedURLTTL())
	assert.Equal(t, []string{"*"}, c.AllowedOrigins)
	assert.Empty(t, c.JWTSecret, "secrets must never get a default")
	assert.Empty(t, c.AdminKeyHash, "secrets must never get a default")
}

func TestDerivedDefaultsFollowDriverAndPublicURL(t *testing.T) {
	c := AppConfig{DBDriver: "postgres", StoragePublicBaseURL: "https://cdn.example.com/materials"}
	applyDerivedDefaults(&c)

	assert.Equal(t, "5432", c.DBPort)
	assert.Zero(t, c.SignedURLTTL())
}

func TestLoginMaxFailuresZeroMeansDefaultNegativeDisables(t *testing.T) {
	var unset AppConfig
	applyDefaults(&unset)
	assert.Equal(t, 10, unset.LoginMaxFailures)

	t.Setenv("LOGIN_MAX_FAILURES", "-1")
	var off AppConfig
	require.NoError(t, applyEnvOverrides(&off))
	applyDefaults(&off)
	assert.Equal(t, -1, off.LoginMaxFailures)
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("APP_PORT", "9090")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("TOKEN_TTL_HOURS", "24")
	t.Setenv("STORAGE_USE_SSL", "true")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example ,")

	var c AppConfig
	applyDefaults(&c)
	require.NoError(t, applyEnvOverrides(&c))

	assert.Equal(t, "9090", c.AppPort)
	assert.Equal(t, "s3cret", c.JWTSecret)
	assert.Equal(t, 24, c.TokenTTLHours)
	assert.True(t, c.StorageUseSSL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, c.AllowedOrigins)
}

func TestApplyEnvOverridesRejectsBadInteger(t *testing.T) {
	t.Setenv("REDIS_PORT", "six-three-seven-nine")

	var c AppConfig
	assert.Error(t, applyEnvOverrides(&c))
}

func TestLoadJSONConfigGroupedSections(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	body := `{
		"app": {"AppPort": "7070", "JWTSecret": "from-file", "AllowedOrigins": ["https://tutor.example"]},
		"admin": {"KeyHash": "$2a$10$abc", "Name": "Ms. Rivera"},
		"storage": {"Driver": "s3", "Bucket": "notes", "UseSSL": true, "SignedURLTTLMinutes": 15},
		"login": {"MaxFailures": 3}
	}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	var c AppConfig
	require.NoError(t, loadJSONConfig(path, &c))

	assert.Equal(t, "7070", c.AppPort)
	assert.Equal(t, "from-file", c.JWTSecret)
	assert.Equal(t, []string{"https://tutor.example"}, c.AllowedOrigins)
	assert.Equal(t, "$2a$10$abc", c.AdminKeyHash)
	assert.Equal(t, "Ms. Rivera", c.AdminName)
	assert.Equal(t, "s3", c.StorageDriver)
	assert.Equal(t, "notes", c.StorageBucket)
	assert.True(t, c.StorageUseSSL)
	assert.Equal(t, 15, c.StorageSignedURLTTLMinutes)
	assert.Equal(t, 3, c.LoginMaxFailures)
}

func TestLoadJSONConfigMissingFileIsIgnored(t *testing.T) {
	var c AppConfig
	assert.NoError(t, loadJSONConfig(filepath.Join(t.TempDir(), "nope.json"), &c))
}

func TestLoadJSONConfigInvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	var c AppConfig
	assert.Error(t, loadJSONConfig(path, &c))
}

func TestValidate(t *testing.T) {
	valid := AppConfig{JWTSecret: "x", AdminKeyHash: "h", TokenTTLHours: 1, DBDriver: "mysql", StorageDriver: "minio"}
	require.NoError(t, valid.Validate())

	noSecret := valid
	noSecret.JWTSecret = ""
	assert.Error(t, noSecret.Validate())

	noHash := valid
	noHash.AdminKeyHash = ""
	assert.Error(t, noHash.Validate())

	badDriver := valid
	badDriver.DBDriver = "sqlite"
	assert.Error(t, badDriver.Validate())

	badStorage := valid
	badStorage.StorageDriver = "gcs"
	assert.Error(t, badStorage.Validate())
}
