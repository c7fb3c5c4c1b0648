package signed

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"tuyabridge/internal/idgen"
	"tuyabridge/internal/tuya"
)

// TokenSource supplies valid credentials to the client. Implemented by the
// token manager; the client never owns or mutates token state.
type TokenSource interface {
	EnsureValid(ctx context.Context) (*tuya.TokenSet, error)
	Refresh(ctx context.Context) (*tuya.TokenSet, error)
}

// Config contains plain-protocol client configuration
type Config struct {
	BaseURL  string
	ClientID string
}

// Client talks to the plain-signed API surface
type Client struct {
	config     Config
	signer     *Signer
	tokens     TokenSource
	httpClient *http.Client
	logger     *slog.Logger
	now        func() time.Time
}

// NewClient creates a new plain-protocol client
func NewClient(config Config, tokens TokenSource, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		config: config,
		signer: &Signer{ClientID: config.ClientID},
		tokens: tokens,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
		now:    time.Now,
	}
}

// ListDevices returns all devices linked to the authorized user
func (c *Client) ListDevices(ctx context.Context) ([]tuya.Device, error) {
	tokens, err := c.tokens.EnsureValid(ctx)
	if err != nil {
		return nil, err
	}

	var devices []tuya.Device
	path := fmt.Sprintf("/v1.0/users/%s/devices", url.PathEscape(tokens.UID))
	if err := c.call(ctx, http.MethodGet, path, nil, true, &devices); err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}
	return devices, nil
}

// DeviceStatus returns the raw status array for one device. Each call
// produces a fresh array; entries are never merged across polls.
func (c *Client) DeviceStatus(ctx context.Context, deviceID string) ([]tuya.Status, error) {
	var status []tuya.Status
	path := fmt.Sprintf("/v1.0/devices/%s/status", url.PathEscape(deviceID))
	if err := c.call(ctx, http.MethodGet, path, nil, true, &status); err != nil {
		return nil, fmt.Errorf("failed to get device status: %w", err)
	}
	return status, nil
}

// SendCommands issues provider commands against one device
func (c *Client) SendCommands(ctx context.Context, deviceID string, commands []tuya.Command) error {
	body := map[string]interface{}{
		"commands": commands,
	}
	path := fmt.Sprintf("/v1.0/devices/%s/commands", url.PathEscape(deviceID))
	if err := c.call(ctx, http.MethodPost, path, body, true, nil); err != nil {
		return fmt.Errorf("failed to send commands: %w", err)
	}
	return nil
}

// RefreshToken performs the provider token refresh for the plain protocol.
// Called by the token manager, never directly.
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (*tuya.TokenSet, error) {
	if refreshToken == "" {
		return nil, fmt.Errorf("%w: no refresh token", tuya.ErrAuthentication)
	}

	var result struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		ExpireTime   int64  `json:"expire_time"` // seconds
		UID          string `json:"uid"`
	}
	path := "/v1.0/token/" + url.PathEscape(refreshToken)
	if err := c.call(ctx, http.MethodGet, path, nil, false, &result); err != nil {
		return nil, fmt.Errorf("failed to refresh token: %w", err)
	}

	return &tuya.TokenSet{
		AccessToken:  result.AccessToken,
		RefreshToken: result.RefreshToken,
		ExpiresAt:    c.now().Add(time.Duration(result.ExpireTime) * time.Second).UnixMilli(),
		UID:          result.UID,
	}, nil
}

// call performs one signed request and decodes the response envelope. A
// provider authentication error triggers exactly one forced refresh + retry;
// all other failures surface immediately.
func (c *Client) call(ctx context.Context, method, path string, body interface{}, authenticated bool, result interface{}) error {
	err := c.doOnce(ctx, method, path, body, authenticated, result)
	if err == nil || !authenticated || !errors.Is(err, tuya.ErrAuthentication) {
		return err
	}

	c.logger.Warn("Request rejected with auth error, refreshing token and retrying",
		"component", "signed",
		"method", method,
		"path", path,
	)
	if _, refreshErr := c.tokens.Refresh(ctx); refreshErr != nil {
		return refreshErr
	}
	return c.doOnce(ctx, method, path, body, authenticated, result)
}

func (c *Client) doOnce(ctx context.Context, method, path string, body interface{}, authenticated bool, result interface{}) error {
	var bodyBytes []byte
	if body != nil {
		var err error
		bodyBytes, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal body: %w", err)
		}
	}

	accessToken := ""
	if authenticated {
		tokens, err := c.tokens.EnsureValid(ctx)
		if err != nil {
			return err
		}
		accessToken = tokens.AccessToken
	}

	timestamp := c.now().UnixMilli()
	nonce := idgen.New()

	headers, err := c.signer.Headers(method, path, bodyBytes, accessToken, timestamp, nonce, authenticated)
	if err != nil {
		return err
	}

	var bodyReader io.Reader
	if bodyBytes != nil {
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("request failed with status %d: %s", resp.StatusCode, string(respBody))
	}

	var envelope tuya.Response
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return fmt.Errorf("failed to parse response envelope: %w", err)
	}

	if !envelope.Success {
		return tuya.MapProviderCode(envelope.Code, envelope.Msg)
	}

	if result != nil && len(envelope.Result) > 0 {
		if err := json.Unmarshal(envelope.Result, result); err != nil {
			return fmt.Errorf("failed to parse result: %w", err)
		}
	}
	return nil
}
