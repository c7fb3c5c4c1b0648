package signed

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"tuyabridge/internal/tuya"
)

// Signer builds the HMAC string-to-sign and header set for the plain-signed
// protocol. The exact byte layout is the only admission ticket to the plain
// API; any whitespace or ordering deviation invalidates every signed call.
type Signer struct {
	ClientID string
}

// SignMethod is the value of the sign_method header
const SignMethod = "HMAC-SHA256"

// StringToSign builds the canonical request digest:
// METHOD + "\n" + SHA256(body) + "\n" + "" + "\n" + path
func (s *Signer) StringToSign(method, path string, body []byte) string {
	sum := sha256.Sum256(body)
	contentHash := hex.EncodeToString(sum[:])
	return method + "\n" + contentHash + "\n" + "" + "\n" + path
}

// Sign computes the request signature. The access token participates only for
// authenticated calls; the HMAC key is the empty string (vendor protocol, not
// a general-purpose primitive). Output is uppercase hex.
func (s *Signer) Sign(method, path string, body []byte, accessToken string, timestamp int64, nonce string) string {
	signStr := s.ClientID + strconv.FormatInt(timestamp, 10) + accessToken + nonce + s.StringToSign(method, path, body)
	mac := hmac.New(sha256.New, []byte(""))
	mac.Write([]byte(signStr))
	return strings.ToUpper(hex.EncodeToString(mac.Sum(nil)))
}

// Headers returns the full header set for one request. authenticated requests
// require a non-empty access token; that precondition is checked locally and
// never sent to the network.
func (s *Signer) Headers(method, path string, body []byte, accessToken string, timestamp int64, nonce string, authenticated bool) (map[string]string, error) {
	if authenticated && accessToken == "" {
		return nil, fmt.Errorf("%w: access token required for %s %s", tuya.ErrAuthentication, method, path)
	}

	token := ""
	if authenticated {
		token = accessToken
	}

	headers := map[string]string{
		"client_id":   s.ClientID,
		"t":           strconv.FormatInt(timestamp, 10),
		"sign":        s.Sign(method, path, body, token, timestamp, nonce),
		"sign_method": SignMethod,
		"nonce":       nonce,
	}
	if authenticated {
		headers["access_token"] = token
	}
	return headers, nil
}
