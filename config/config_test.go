package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validSharingConfig() *Config {
	return &Config{
		Server:   ServerConfig{Host: "127.0.0.1", Port: 8080},
		Storage:  StorageConfig{Backend: StorageFile, Path: "/tmp/creds.json"},
		Security: SecurityConfig{APIKey: "secret"},
		Tuya: TuyaConfig{
			Protocol: ProtocolSharing,
			AppKey:   "appkey",
			UserCode: "ABC123",
		},
	}
}

func TestValidate_SharingDefaults(t *testing.T) {
	cfg := validSharingConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "https://apigw.tuyaeu.com", cfg.Tuya.BaseURL)
	assert.Equal(t, 30, cfg.Tuya.PollIntervalSeconds)
}

func TestValidate_SignedDefaults(t *testing.T) {
	cfg := validSharingConfig()
	cfg.Tuya = TuyaConfig{Protocol: ProtocolSigned, ClientID: "client123"}
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "https://openapi.tuyaeu.com", cfg.Tuya.BaseURL)
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"bad port", func(c *Config) { c.Server.Port = 0 }},
		{"unknown storage backend", func(c *Config) { c.Storage.Backend = "redis" }},
		{"missing storage path", func(c *Config) { c.Storage.Path = "" }},
		{"missing api key", func(c *Config) { c.Security.APIKey = "" }},
		{"unknown protocol", func(c *Config) { c.Tuya.Protocol = "soap" }},
		{"sharing without app key", func(c *Config) { c.Tuya.AppKey = "" }},
		{"sharing without user code", func(c *Config) { c.Tuya.UserCode = "" }},
		{"signed without client id", func(c *Config) {
			c.Tuya = TuyaConfig{Protocol: ProtocolSigned}
		}},
		{"inverted kelvin window", func(c *Config) {
			c.Tuya.MinKelvin = 6500
			c.Tuya.MaxKelvin = 2700
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validSharingConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	content := `{
		"server": {"host": "0.0.0.0", "port": 9090},
		"storage": {"backend": "file", "path": "/tmp/creds.json"},
		"security": {"api_key": "secret"},
		"tuya": {"protocol": "sharing", "app_key": "appkey", "user_code": "ABC123"}
	}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, ProtocolSharing, cfg.Tuya.Protocol)
}

func TestLoad_NotFound(t *testing.T) {
	_, err := Load("/nonexistent/config.json")
	assert.ErrorIs(t, err, ErrConfigFileNotFound)
}

func TestLoad_InvalidJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("TUYA_BRIDGE_API_KEY", "env-secret")
	t.Setenv("TUYA_BRIDGE_PROTOCOL", "sharing")
	t.Setenv("TUYA_BRIDGE_APP_KEY", "env-appkey")
	t.Setenv("TUYA_BRIDGE_USER_CODE", "ENV123")
	t.Setenv("TUYA_BRIDGE_PORT", "7070")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "env-secret", cfg.Security.APIKey)
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "ENV123", cfg.Tuya.UserCode)
}
