package sharing

import (
	"crypto/hmac"
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
)

// secretLength is the number of hex characters kept from the derived HMAC.
// The 16 ASCII characters are used directly as a 128-bit AES key.
const secretLength = 16

// Secret is the per-request symmetric key material for the encrypted
// protocol. It is derived per request, never persisted, and never reused:
// its lifetime is one request/response pair.
type Secret struct {
	// Key is the 16-character AES-128 key (hex characters used as raw ASCII bytes)
	Key string
	// HashKey is the MD5 digest of the hash-key message; it doubles as the
	// HMAC key for the request signature
	HashKey string
}

// remapSession derives the index-substitution code from a session id: each
// byte of the session id selects a character of the session id by its value
// mod 16 (mod the full length for unusually short ids).
func remapSession(sessionID string) string {
	mod := 16
	if len(sessionID) < mod {
		mod = len(sessionID)
	}
	out := make([]byte, len(sessionID))
	for i := 0; i < len(sessionID); i++ {
		out[i] = sessionID[int(sessionID[i])%mod]
	}
	return string(out)
}

// DeriveSecret builds the per-request secret from the request id, the refresh
// token and the optional session id
func DeriveSecret(requestID, refreshToken, sessionID string) Secret {
	message := requestID + refreshToken
	if sessionID != "" {
		message += remapSession(sessionID)
	}

	sum := md5.Sum([]byte(message))
	hashKey := hex.EncodeToString(sum[:])

	mac := hmac.New(sha256.New, []byte(requestID))
	mac.Write([]byte(message))
	key := hex.EncodeToString(mac.Sum(nil))[:secretLength]

	return Secret{Key: key, HashKey: hashKey}
}
