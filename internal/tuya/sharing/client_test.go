package sharing

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"tuyabridge/internal/tuya"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubTokens struct {
	tokens *tuya.TokenSet
}

func (s *stubTokens) Current() *tuya.TokenSet { return s.tokens }

func linkedTokens() *tuya.TokenSet {
	return &tuya.TokenSet{
		AccessToken:  "acc-token",
		RefreshToken: "refresh-token-1",
		ExpiresAt:    time.Now().Add(time.Hour).UnixMilli(),
		UID:          "uid-1",
		TerminalID:   "abcdef0123456789",
	}
}

// decryptRequest recovers the request secret from the wire headers and opens
// an envelope, mimicking the server side of the protocol
func decryptRequest(t *testing.T, r *http.Request, refreshToken, sid, envelope string) ([]byte, Secret) {
	t.Helper()
	secret := DeriveSecret(r.Header.Get("X-requestId"), refreshToken, sid)

	// Request envelopes are two independent base64 segments; the first decodes
	// to exactly 12 nonce bytes (16 base64 characters)
	nonceB64 := envelope[:16]
	nonce, err := base64.StdEncoding.DecodeString(nonceB64)
	require.NoError(t, err)
	require.Len(t, nonce, 12)

	sealed, err := base64.StdEncoding.DecodeString(envelope[16:])
	require.NoError(t, err)

	gcm, err := newGCM(secret)
	require.NoError(t, err)
	plaintext, err := gcm.Open(nil, nonce, sealed, nil)
	require.NoError(t, err)
	return plaintext, secret
}

// respond writes a success envelope whose result is itself encrypted with the
// request's secret
func respond(t *testing.T, w http.ResponseWriter, result interface{}, secret Secret) {
	t.Helper()
	payload, err := json.Marshal(result)
	require.NoError(t, err)
	envelope := responseEnvelope(t, payload, secret, "zyxwvutsrqpo")

	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": true,
		"result":  envelope,
		"t":       time.Now().UnixMilli(),
	})
}

func TestClient_ListDevices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "appkey-1", r.Header.Get("X-appKey"))
		require.NotEmpty(t, r.Header.Get("X-requestId"))
		require.NotEmpty(t, r.Header.Get("X-sign"))

		secret := DeriveSecret(r.Header.Get("X-requestId"), "refresh-token-1", "abcdef0123456789")

		switch r.URL.Path {
		case "/v1.0/m/life/users/homes":
			respond(t, w, []map[string]interface{}{{"home_id": "home-1", "name": "Home"}}, secret)
		case "/v1.0/m/life/ha/home/devices":
			encdata := r.URL.Query().Get("encdata")
			require.NotEmpty(t, encdata)
			plaintext, _ := decryptRequest(t, r, "refresh-token-1", "abcdef0123456789", encdata)

			var params map[string]string
			require.NoError(t, json.Unmarshal(plaintext, &params))
			assert.Equal(t, "home-1", params["homeId"])

			respond(t, w, []map[string]interface{}{
				{"id": "dev1", "name": "Strip", "category": "dj", "online": true},
			}, secret)
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL, AppKey: "appkey-1"}, &stubTokens{tokens: linkedTokens()}, nil)

	devices, err := client.ListDevices(context.Background())
	require.NoError(t, err)
	require.Len(t, devices, 1)
	assert.Equal(t, "dev1", devices[0].ID)
}

func TestClient_SendCommands(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "POST", r.Method)
		require.Equal(t, "/v1.0/m/life/ha/device/control", r.URL.Path)

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		plaintext, secret := decryptRequest(t, r, "refresh-token-1", "abcdef0123456789", string(body))

		var req struct {
			DevID    string         `json:"devId"`
			Commands []tuya.Command `json:"commands"`
		}
		require.NoError(t, json.Unmarshal(plaintext, &req))
		assert.Equal(t, "dev1", req.DevID)
		require.Len(t, req.Commands, 1)
		assert.Equal(t, "switch_led", req.Commands[0].Code)

		// A body-only request carries no encdata query
		assert.Empty(t, r.URL.Query().Get("encdata"))

		respond(t, w, true, secret)
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL, AppKey: "appkey-1"}, &stubTokens{tokens: linkedTokens()}, nil)

	err := client.SendCommands(context.Background(), "dev1", []tuya.Command{{Code: "switch_led", Value: true}})
	assert.NoError(t, err)
}

func TestClient_SignatureCoversEnvelopes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		encdata := r.URL.Query().Get("encdata")
		_, secret := decryptRequest(t, r, "refresh-token-1", "abcdef0123456789", encdata)

		headers := map[string]string{
			"X-appKey":    r.Header.Get("X-appKey"),
			"X-requestId": r.Header.Get("X-requestId"),
			"X-sid":       r.Header.Get("X-sid"),
			"X-time":      r.Header.Get("X-time"),
			"X-token":     r.Header.Get("X-token"),
		}
		want := SignRequest(headers, encdata, "", secret)
		assert.Equal(t, want, r.Header.Get("X-sign"))

		respond(t, w, []map[string]interface{}{}, secret)
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL, AppKey: "appkey-1"}, &stubTokens{tokens: linkedTokens()}, nil)

	_, err := client.DeviceStatus(context.Background(), "dev1")
	require.NoError(t, err)
}

func TestClient_ProviderError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": false,
			"code":    1102,
			"msg":     "too many requests",
		})
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL, AppKey: "appkey-1"}, &stubTokens{tokens: linkedTokens()}, nil)

	_, err := client.ListHomes(context.Background())
	assert.ErrorIs(t, err, tuya.ErrRateLimited)
}

func TestClient_IssueQRCode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "POST", r.Method)
		require.Equal(t, "/v1.0/m/life/home-assistant/qrcode/tokens", r.URL.Path)

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		// Pre-link: no tokens yet, so the secret derives from the request id alone
		plaintext, secret := decryptRequest(t, r, "", "", string(body))

		var req map[string]string
		require.NoError(t, json.Unmarshal(plaintext, &req))
		assert.Equal(t, "ABC123", req["userCode"])

		respond(t, w, map[string]interface{}{
			"qrcode":      "qr-code-1",
			"expire_time": 300,
		}, secret)
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL, AppKey: "appkey-1"}, &stubTokens{}, nil)

	qr, err := client.IssueQRCode(context.Background(), "ABC123")
	require.NoError(t, err)
	assert.Equal(t, "qr-code-1", qr.Code)
	assert.Equal(t, "tuyaSmart--qrLogin?token=qr-code-1", qr.Payload())
}

func TestClient_WaitForLink(t *testing.T) {
	polls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1.0/m/life/home-assistant/qrcode/tokens/qr-code-1", r.URL.Path)
		secret := DeriveSecret(r.Header.Get("X-requestId"), "", "")

		polls++
		if polls == 1 {
			// Not scanned yet: empty token fields
			respond(t, w, map[string]interface{}{}, secret)
			return
		}
		respond(t, w, map[string]interface{}{
			"access_token":  "acc-new",
			"refresh_token": "rt-new",
			"expire_time":   7200,
			"uid":           "uid-9",
			"terminal_id":   "term-9",
		}, secret)
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL, AppKey: "appkey-1"}, &stubTokens{}, nil)

	tokens, err := client.WaitForLink(context.Background(), &QRCode{Code: "qr-code-1"}, 10*time.Millisecond, time.Second)
	require.NoError(t, err)
	assert.Equal(t, 2, polls)
	assert.Equal(t, "acc-new", tokens.AccessToken)
	assert.Equal(t, "rt-new", tokens.RefreshToken)
	assert.Equal(t, "uid-9", tokens.UID)
	assert.Equal(t, "term-9", tokens.TerminalID)
}

func TestClient_WaitForLink_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		secret := DeriveSecret(r.Header.Get("X-requestId"), "", "")
		respond(t, w, map[string]interface{}{}, secret)
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL, AppKey: "appkey-1"}, &stubTokens{}, nil)

	_, err := client.WaitForLink(context.Background(), &QRCode{Code: "qr-code-1"}, 10*time.Millisecond, 50*time.Millisecond)
	assert.ErrorIs(t, err, tuya.ErrAuthentication)
}
