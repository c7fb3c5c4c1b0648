package auth

import (
	"context"
	"fmt"
	"time"

	"tuyabridge/internal/tuya"
)

// DefaultExtension is how far a local extension pushes the validity window
const DefaultExtension = time.Hour

// NetworkRefresher adapts a protocol client's refresh call to the Refresher
// interface. Used for plain-protocol accounts, which depend on a live access
// token.
type NetworkRefresher struct {
	Client interface {
		RefreshToken(ctx context.Context, refreshToken string) (*tuya.TokenSet, error)
	}
}

func (r *NetworkRefresher) RefreshToken(ctx context.Context, current *tuya.TokenSet) (*tuya.TokenSet, error) {
	if current == nil || !current.CanRefresh() {
		return nil, fmt.Errorf("%w: no refresh token", tuya.ErrAuthentication)
	}
	tokens, err := r.Client.RefreshToken(ctx, current.RefreshToken)
	if err != nil {
		return nil, err
	}
	// Link-time identity survives the refresh
	if tokens.TerminalID == "" {
		tokens.TerminalID = current.TerminalID
	}
	if tokens.Endpoint == "" {
		tokens.Endpoint = current.Endpoint
	}
	if tokens.UID == "" {
		tokens.UID = current.UID
	}
	return tokens, nil
}

// LocalExtender implements refresh for account-linking schemes with no
// server-side refresh call. The encrypted protocol signs with the refresh
// token rather than the access token, so requests keep working; the validity
// window is simply pushed out. This is a vendor-observed policy for QR-linked
// accounts only, never for the plain protocol.
type LocalExtender struct {
	Extension time.Duration
	Now       func() time.Time
}

func (r *LocalExtender) RefreshToken(ctx context.Context, current *tuya.TokenSet) (*tuya.TokenSet, error) {
	if current == nil || !current.CanRefresh() {
		return nil, fmt.Errorf("%w: no refresh token", tuya.ErrAuthentication)
	}

	extension := r.Extension
	if extension <= 0 {
		extension = DefaultExtension
	}
	now := time.Now
	if r.Now != nil {
		now = r.Now
	}

	extended := *current
	extended.ExpiresAt = now().Add(extension).UnixMilli()
	return &extended, nil
}
