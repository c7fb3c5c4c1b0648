package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

var (
	ErrConfigFileNotFound = errors.New("config file not found")
	ErrInvalidConfig      = errors.New("invalid configuration")
)

// Protocol selects which cloud API surface the linked account uses
const (
	ProtocolSigned  = "signed"
	ProtocolSharing = "sharing"
)

// Storage backends
const (
	StorageFile   = "file"
	StorageSQLite = "sqlite"
)

// Config represents the application configuration
type Config struct {
	Server   ServerConfig   `json:"server"`
	Storage  StorageConfig  `json:"storage"`
	Security SecurityConfig `json:"security"`
	Tuya     TuyaConfig     `json:"tuya"`
}

// ServerConfig contains local HTTP API settings
type ServerConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// StorageConfig selects where credentials and device mappings persist
type StorageConfig struct {
	Backend string `json:"backend"` // "file" or "sqlite"
	Path    string `json:"path"`
}

// SecurityConfig contains local API security settings. APIKey may be either a
// plain key or a bcrypt hash of one.
type SecurityConfig struct {
	APIKey string `json:"api_key"`
}

// TuyaConfig contains cloud API settings
type TuyaConfig struct {
	Protocol string `json:"protocol"` // "signed" or "sharing"
	BaseURL  string `json:"base_url"`

	// Plain-signed protocol
	ClientID string `json:"client_id"`

	// Encrypted sharing protocol
	AppKey   string `json:"app_key"`
	UserCode string `json:"user_code"`

	// Device limits
	MinKelvin float64 `json:"min_kelvin"`
	MaxKelvin float64 `json:"max_kelvin"`

	PollIntervalSeconds int `json:"poll_interval_seconds"`
}

// Validate validates the configuration and applies defaults
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: invalid server port", ErrInvalidConfig)
	}

	if c.Storage.Backend == "" {
		c.Storage.Backend = StorageFile
	}
	if c.Storage.Backend != StorageFile && c.Storage.Backend != StorageSQLite {
		return fmt.Errorf("%w: unknown storage backend %q", ErrInvalidConfig, c.Storage.Backend)
	}
	if c.Storage.Path == "" {
		return fmt.Errorf("%w: storage path is required", ErrInvalidConfig)
	}

	if c.Security.APIKey == "" {
		return fmt.Errorf("%w: API key is required", ErrInvalidConfig)
	}

	switch c.Tuya.Protocol {
	case ProtocolSigned:
		if c.Tuya.ClientID == "" {
			return fmt.Errorf("%w: client_id is required for the signed protocol", ErrInvalidConfig)
		}
		if c.Tuya.BaseURL == "" {
			c.Tuya.BaseURL = "https://openapi.tuyaeu.com"
		}
	case ProtocolSharing:
		if c.Tuya.AppKey == "" {
			return fmt.Errorf("%w: app_key is required for the sharing protocol", ErrInvalidConfig)
		}
		if c.Tuya.UserCode == "" {
			return fmt.Errorf("%w: user_code is required for the sharing protocol", ErrInvalidConfig)
		}
		if c.Tuya.BaseURL == "" {
			c.Tuya.BaseURL = "https://apigw.tuyaeu.com"
		}
	default:
		return fmt.Errorf("%w: protocol must be %q or %q", ErrInvalidConfig, ProtocolSigned, ProtocolSharing)
	}

	if c.Tuya.MinKelvin != 0 && c.Tuya.MaxKelvin != 0 && c.Tuya.MinKelvin >= c.Tuya.MaxKelvin {
		return fmt.Errorf("%w: min_kelvin must be below max_kelvin", ErrInvalidConfig)
	}

	if c.Tuya.PollIntervalSeconds <= 0 {
		c.Tuya.PollIntervalSeconds = 30
	}

	return nil
}

// Load loads configuration from a JSON file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigFileNotFound
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// LoadFromEnv loads configuration from environment variables
// This is useful for containerized deployments
func LoadFromEnv() (*Config, error) {
	config := &Config{
		Server: ServerConfig{
			Host: getEnv("TUYA_BRIDGE_HOST", "0.0.0.0"),
			Port: getEnvInt("TUYA_BRIDGE_PORT", 8080),
		},
		Storage: StorageConfig{
			Backend: getEnv("TUYA_BRIDGE_STORAGE_BACKEND", StorageFile),
			Path:    getEnv("TUYA_BRIDGE_STORAGE_PATH", "./tuya-credentials.json"),
		},
		Security: SecurityConfig{
			APIKey: getEnv("TUYA_BRIDGE_API_KEY", ""),
		},
		Tuya: TuyaConfig{
			Protocol:            getEnv("TUYA_BRIDGE_PROTOCOL", ProtocolSharing),
			BaseURL:             getEnv("TUYA_BRIDGE_BASE_URL", ""),
			ClientID:            getEnv("TUYA_BRIDGE_CLIENT_ID", ""),
			AppKey:              getEnv("TUYA_BRIDGE_APP_KEY", ""),
			UserCode:            getEnv("TUYA_BRIDGE_USER_CODE", ""),
			MinKelvin:           getEnvFloat("TUYA_BRIDGE_MIN_KELVIN", 0),
			MaxKelvin:           getEnvFloat("TUYA_BRIDGE_MAX_KELVIN", 0),
			PollIntervalSeconds: getEnvInt("TUYA_BRIDGE_POLL_INTERVAL", 30),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var intVal int
		fmt.Sscanf(value, "%d", &intVal)
		return intVal
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		var floatVal float64
		fmt.Sscanf(value, "%g", &floatVal)
		return floatVal
	}
	return defaultValue
}
