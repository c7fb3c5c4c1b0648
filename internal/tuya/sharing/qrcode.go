package sharing

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"tuyabridge/internal/idgen"
	"tuyabridge/internal/tuya"
)

const (
	// QRPayloadPrefix is the fixed prefix of the QR payload; the app expects
	// the issued token appended directly after it
	QRPayloadPrefix = "tuyaSmart--qrLogin?token="

	// DefaultPollInterval is how often the link token is polled for a scan
	DefaultPollInterval = 2 * time.Second
	// DefaultLinkTimeout bounds the whole linking attempt
	DefaultLinkTimeout = 5 * time.Minute
)

// QRCode is an issued linking code awaiting a scan
type QRCode struct {
	Code       string `json:"qrcode"`
	ExpireTime int64  `json:"expire_time"`
}

// Payload returns the string to encode into the QR image
func (q *QRCode) Payload() string {
	return QRPayloadPrefix + q.Code
}

// IssueQRCode requests a new linking code for the given user code
func (c *Client) IssueQRCode(ctx context.Context, userCode string) (*QRCode, error) {
	body := map[string]string{"userCode": userCode}

	var qr QRCode
	if err := c.call(ctx, http.MethodPost, "/v1.0/m/life/home-assistant/qrcode/tokens", nil, body, &qr); err != nil {
		return nil, fmt.Errorf("failed to issue QR code: %w", err)
	}
	if qr.Code == "" {
		return nil, fmt.Errorf("%w: provider returned empty QR code", tuya.ErrAuthentication)
	}
	return &qr, nil
}

// pollOnce checks whether the QR code has been scanned. A nil TokenSet with a
// nil error means the code is still pending.
func (c *Client) pollOnce(ctx context.Context, qr *QRCode) (*tuya.TokenSet, error) {
	var result struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		ExpireTime   int64  `json:"expire_time"` // seconds
		UID          string `json:"uid"`
		TerminalID   string `json:"terminal_id"`
		Endpoint     string `json:"endpoint"`
	}

	path := "/v1.0/m/life/home-assistant/qrcode/tokens/" + url.PathEscape(qr.Code)
	if err := c.call(ctx, http.MethodGet, path, nil, nil, &result); err != nil {
		return nil, err
	}

	if result.AccessToken == "" || result.RefreshToken == "" {
		// Not scanned yet
		return nil, nil
	}

	terminalID := result.TerminalID
	if terminalID == "" {
		terminalID = idgen.NewTerminalID()
	}

	return &tuya.TokenSet{
		AccessToken:  result.AccessToken,
		RefreshToken: result.RefreshToken,
		ExpiresAt:    c.now().Add(time.Duration(result.ExpireTime) * time.Second).UnixMilli(),
		UID:          result.UID,
		TerminalID:   terminalID,
		Endpoint:     result.Endpoint,
	}, nil
}

// WaitForLink polls the issued QR code until it is scanned, the provider
// reports expiry, or the timeout elapses
func (c *Client) WaitForLink(ctx context.Context, qr *QRCode, interval, timeout time.Duration) (*tuya.TokenSet, error) {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if timeout <= 0 {
		timeout = DefaultLinkTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: QR code was not scanned in time", tuya.ErrAuthentication)
		case <-ticker.C:
			tokens, err := c.pollOnce(ctx, qr)
			if err != nil {
				// Expiry or hard rejection ends the wait; everything else
				// is worth another poll
				return nil, err
			}
			if tokens != nil {
				c.logger.Info("QR code scanned, account linked",
					"component", "sharing",
					"uid", tokens.UID,
				)
				return tokens, nil
			}
		}
	}
}
