package sharing

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"tuyabridge/internal/idgen"
	"tuyabridge/internal/tuya"
)

// TokenSource supplies credentials to the encrypted client. The encrypted
// protocol authenticates with the refresh token (via the per-request secret),
// not the access token, so the source is consulted but never triggers a
// network refresh from inside this client.
type TokenSource interface {
	Current() *tuya.TokenSet
}

// Config contains encrypted-protocol client configuration
type Config struct {
	BaseURL string
	AppKey  string
}

// Client talks to the encrypted "sharing" API surface used by QR-linked accounts
type Client struct {
	config     Config
	tokens     TokenSource
	httpClient *http.Client
	logger     *slog.Logger
	now        func() time.Time
	newID      func() string
	newNonce   func() string
}

// NewClient creates a new encrypted-protocol client
func NewClient(config Config, tokens TokenSource, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		config: config,
		tokens: tokens,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger:   logger,
		now:      time.Now,
		newID:    idgen.NewRequestID,
		newNonce: idgen.NewProtocolNonce,
	}
}

// ListHomes returns the homes visible to the linked account
func (c *Client) ListHomes(ctx context.Context) ([]tuya.Home, error) {
	var homes []tuya.Home
	if err := c.call(ctx, http.MethodGet, "/v1.0/m/life/users/homes", nil, nil, &homes); err != nil {
		return nil, fmt.Errorf("failed to list homes: %w", err)
	}
	return homes, nil
}

// ListDevices returns all devices across every home of the linked account
func (c *Client) ListDevices(ctx context.Context) ([]tuya.Device, error) {
	homes, err := c.ListHomes(ctx)
	if err != nil {
		return nil, err
	}

	var all []tuya.Device
	for _, home := range homes {
		var devices []tuya.Device
		params := map[string]string{"homeId": home.ID}
		if err := c.call(ctx, http.MethodGet, "/v1.0/m/life/ha/home/devices", params, nil, &devices); err != nil {
			return nil, fmt.Errorf("failed to list devices for home %s: %w", home.ID, err)
		}
		all = append(all, devices...)
	}
	return all, nil
}

// DeviceStatus returns the raw status array for one device
func (c *Client) DeviceStatus(ctx context.Context, deviceID string) ([]tuya.Status, error) {
	var status []tuya.Status
	params := map[string]string{"devId": deviceID}
	if err := c.call(ctx, http.MethodGet, "/v1.0/m/life/ha/device/status", params, nil, &status); err != nil {
		return nil, fmt.Errorf("failed to get device status: %w", err)
	}
	return status, nil
}

// SendCommands issues provider commands against one device
func (c *Client) SendCommands(ctx context.Context, deviceID string, commands []tuya.Command) error {
	body := map[string]interface{}{
		"devId":    deviceID,
		"commands": commands,
	}
	if err := c.call(ctx, http.MethodPost, "/v1.0/m/life/ha/device/control", nil, body, nil); err != nil {
		return fmt.Errorf("failed to send commands: %w", err)
	}
	return nil
}

// call performs one encrypted request/response cycle. Each request derives a
// fresh secret from its own request id; the same secret decrypts the
// response and is then discarded.
func (c *Client) call(ctx context.Context, method, path string, params map[string]string, body interface{}, result interface{}) error {
	tokens := c.tokens.Current()
	refreshToken := ""
	accessToken := ""
	sessionID := ""
	if tokens != nil {
		refreshToken = tokens.RefreshToken
		accessToken = tokens.AccessToken
		sessionID = tokens.TerminalID
	}

	requestID := c.newID()
	secret := DeriveSecret(requestID, refreshToken, sessionID)
	nonce := c.newNonce()

	queryEnvelope := ""
	if len(params) > 0 {
		payload, err := json.Marshal(params)
		if err != nil {
			return fmt.Errorf("failed to marshal params: %w", err)
		}
		queryEnvelope, err = Encrypt(payload, secret, nonce)
		if err != nil {
			return err
		}
	}

	bodyEnvelope := ""
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal body: %w", err)
		}
		bodyEnvelope, err = Encrypt(payload, secret, nonce)
		if err != nil {
			return err
		}
	}

	headers := map[string]string{
		"X-appKey":    c.config.AppKey,
		"X-requestId": requestID,
		"X-sid":       sessionID,
		"X-time":      strconv.FormatInt(c.now().UnixMilli(), 10),
		"X-token":     accessToken,
	}
	headers["X-sign"] = SignRequest(headers, queryEnvelope, bodyEnvelope, secret)

	requestURL := c.config.BaseURL + path
	if queryEnvelope != "" {
		requestURL += "?encdata=" + url.QueryEscape(queryEnvelope)
	}

	var bodyReader io.Reader
	if bodyEnvelope != "" {
		bodyReader = strings.NewReader(bodyEnvelope)
	}

	req, err := http.NewRequestWithContext(ctx, method, requestURL, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	for k, v := range headers {
		if v != "" {
			req.Header.Set(k, v)
		}
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

	if result == nil || len(envelope.Result) == 0 {
		return nil
	}

	// The result field is itself a base64 envelope encrypted with this
	// request's secret
	var resultEnvelope string
	if err := json.Unmarshal(envelope.Result, &resultEnvelope); err != nil {
		return fmt.Errorf("%w: result is not an envelope string", tuya.ErrDecryption)
	}

	plaintext, err := Decrypt(resultEnvelope, secret)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(plaintext, result); err != nil {
		return fmt.Errorf("failed to parse decrypted result: %w", err)
	}
	return nil
}
