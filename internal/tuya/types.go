package tuya

import (
	"context"
	"encoding/json"
	"time"
)

// TokenSet holds the credentials for one authorized account. Exactly one
// TokenSet is authoritative at a time; it is owned by the token manager and
// shared by reference with both protocol clients.
type TokenSet struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresAt    int64  `json:"expires_at"` // epoch milliseconds
	UID          string `json:"uid"`
	TerminalID   string `json:"terminal_id,omitempty"`
	Endpoint     string `json:"endpoint,omitempty"`
}

// ExpiresIn returns the remaining validity of the access token
func (t *TokenSet) ExpiresIn() time.Duration {
	return time.UnixMilli(t.ExpiresAt).Sub(time.Now())
}

// CanRefresh reports whether the token set is able to self-heal. A TokenSet
// without a refresh token is terminal and its expiry must not be trusted.
func (t *TokenSet) CanRefresh() bool {
	return t.RefreshToken != ""
}

// Status is one raw provider telemetry entry. Value is a bool, a number or a
// string depending on the code; colour codes carry a JSON-encoded string.
type Status struct {
	Code  string      `json:"code"`
	Value interface{} `json:"value"`
}

// Command is one outbound provider instruction. Commands are produced only by
// the state translator from a canonical intent plus a device code mapping.
type Command struct {
	Code  string      `json:"code"`
	Value interface{} `json:"value"`
}

// Device is a provider device as returned by discovery
type Device struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Category  string   `json:"category"`
	ProductID string   `json:"product_id"`
	Online    bool     `json:"online"`
	Status    []Status `json:"status"`
}

// Home is a provider home/family grouping (encrypted protocol discovery unit)
type Home struct {
	ID   string `json:"home_id"`
	Name string `json:"name"`
}

// Response is the provider response envelope shared by both protocols. For the
// encrypted protocol Result is itself a base64 envelope that must be decrypted
// before use.
type Response struct {
	Success bool            `json:"success"`
	Result  json.RawMessage `json:"result,omitempty"`
	Code    int             `json:"code,omitempty"`
	Msg     string          `json:"msg,omitempty"`
	T       int64           `json:"t"`
	TID     string          `json:"tid,omitempty"`
}

// Client is the logical device API implemented by both protocol clients. The
// implementation is selected once at link time based on which credential flow
// was used.
type Client interface {
	ListDevices(ctx context.Context) ([]Device, error)
	DeviceStatus(ctx context.Context, deviceID string) ([]Status, error)
	SendCommands(ctx context.Context, deviceID string, commands []Command) error
}
