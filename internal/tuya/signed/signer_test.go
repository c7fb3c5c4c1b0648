package signed

import (
	"errors"
	"testing"

	"tuyabridge/internal/tuya"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSigner_StringToSign(t *testing.T) {
	signer := &Signer{ClientID: "client123"}

	// Empty body hashes to the SHA-256 of zero bytes; the optional headers
	// segment stays empty but its newline is kept
	got := signer.StringToSign("GET", "/v1.0/test", nil)
	want := "GET\ne3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855\n\n/v1.0/test"
	assert.Equal(t, want, got)
}

func TestSigner_StringToSign_Body(t *testing.T) {
	signer := &Signer{ClientID: "client123"}

	body := []byte(`{"commands":[{"code":"switch_led","value":true}]}`)
	got := signer.StringToSign("POST", "/v1.0/devices/dev1/commands", body)
	want := "POST\n8479c9c60cd5d531054c49333c7b361a9ce41b9b313ab8eb6bc9df4141f658ef\n\n/v1.0/devices/dev1/commands"
	assert.Equal(t, want, got)
}

func TestSigner_Sign(t *testing.T) {
	signer := &Signer{ClientID: "client123"}

	tests := []struct {
		name        string
		method      string
		path        string
		body        []byte
		accessToken string
		want        string
	}{
		{
			name:   "unauthenticated GET",
			method: "GET",
			path:   "/v1.0/test",
			want:   "442B61DE5301489C7204C2C7AB0652008FFE7A55A3993E7D811C29F1E7787B74",
		},
		{
			name:        "authenticated GET",
			method:      "GET",
			path:        "/v1.0/test",
			accessToken: "tok-abc",
			want:        "EE66A67D5354EA5839EA29BDD17C09BB2D254792511A363B2AA392F65F1AE58B",
		},
		{
			name:        "authenticated POST with body",
			method:      "POST",
			path:        "/v1.0/devices/dev1/commands",
			body:        []byte(`{"commands":[{"code":"switch_led","value":true}]}`),
			accessToken: "tok-abc",
			want:        "2E7844FFB850658B5D718089E15947346D5D5C3C30926A2A43824BD1EE5355B0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := signer.Sign(tt.method, tt.path, tt.body, tt.accessToken, 1700000000000, "nonce1")
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSigner_Headers(t *testing.T) {
	signer := &Signer{ClientID: "client123"}

	headers, err := signer.Headers("GET", "/v1.0/test", nil, "tok-abc", 1700000000000, "nonce1", true)
	require.NoError(t, err)

	assert.Equal(t, "client123", headers["client_id"])
	assert.Equal(t, "1700000000000", headers["t"])
	assert.Equal(t, "nonce1", headers["nonce"])
	assert.Equal(t, "HMAC-SHA256", headers["sign_method"])
	assert.Equal(t, "tok-abc", headers["access_token"])
	assert.Equal(t, "EE66A67D5354EA5839EA29BDD17C09BB2D254792511A363B2AA392F65F1AE58B", headers["sign"])
}

func TestSigner_Headers_Unauthenticated(t *testing.T) {
	signer := &Signer{ClientID: "client123"}

	headers, err := signer.Headers("GET", "/v1.0/token/rt", nil, "", 1700000000000, "nonce1", false)
	require.NoError(t, err)
	assert.NotContains(t, headers, "access_token")
}

func TestSigner_Headers_MissingToken(t *testing.T) {
	signer := &Signer{ClientID: "client123"}

	// An authenticated call without a token never reaches the network
	_, err := signer.Headers("GET", "/v1.0/test", nil, "", 1700000000000, "nonce1", true)
	require.Error(t, err)
	assert.True(t, errors.Is(err, tuya.ErrAuthentication))
}
