package storage

import (
	"context"

	"tuyabridge/internal/devices"
	"tuyabridge/internal/tuya"
)

// StoredCredentials is the persisted credential document. It is written after
// every successful refresh and read once at startup.
type StoredCredentials struct {
	UserCode   string         `json:"user_code"`
	TokenInfo  *tuya.TokenSet `json:"token_info"`
	TerminalID string         `json:"terminal_id,omitempty"`
	Endpoint   string         `json:"endpoint,omitempty"`
}

// CredentialStore persists the credential document. A corrupt or missing
// document reads back as (nil, nil) - "no stored credentials", never an error.
type CredentialStore interface {
	Load(ctx context.Context) (*StoredCredentials, error)
	Save(ctx context.Context, creds *StoredCredentials) error
	Clear(ctx context.Context) error
}

// MappingStore persists resolved device code mappings so a restart does not
// force a full rediscovery before the first command
type MappingStore interface {
	LoadMappings(ctx context.Context) (map[string]*devices.CodeMapping, error)
	SaveMapping(ctx context.Context, deviceID string, mapping *devices.CodeMapping) error
}
