package sharing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// signedHeaders is the fixed ordered subset of headers that participates in
// the encrypted protocol's signature
var signedHeaders = []string{"X-appKey", "X-requestId", "X-sid", "X-time", "X-token"}

// SignRequest builds the encrypted protocol's signature: a pipe-delimited
// string of the non-empty signed headers, concatenated with the query
// envelope and then the body envelope, HMAC-SHA256 keyed with the hash key.
func SignRequest(headers map[string]string, queryEnvelope, bodyEnvelope string, secret Secret) string {
	parts := make([]string, 0, len(signedHeaders))
	for _, name := range signedHeaders {
		if v := headers[name]; v != "" {
			parts = append(parts, v)
		}
	}

	message := strings.Join(parts, "||") + queryEnvelope + bodyEnvelope

	mac := hmac.New(sha256.New, []byte(secret.HashKey))
	mac.Write([]byte(message))
	return hex.EncodeToString(mac.Sum(nil))
}
