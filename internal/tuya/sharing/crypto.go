package sharing

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"tuyabridge/internal/idgen"
	"tuyabridge/internal/tuya"
)

// gcmTagSize is the AES-GCM authentication tag length in bytes
const gcmTagSize = 16

// Encrypt seals a plaintext payload into a request envelope. The nonce's
// characters are interpreted as raw ASCII IV bytes, and the envelope is the
// concatenation of two independently base64-encoded segments (nonce, then
// ciphertext with appended auth tag). The request-side encoding deliberately
// differs from the response-side decoding; both are vendor wire format and
// must not be unified.
func Encrypt(plaintext []byte, secret Secret, nonce string) (string, error) {
	if len(nonce) != idgen.NonceLength {
		return "", fmt.Errorf("%w: nonce must be %d characters", tuya.ErrConfiguration, idgen.NonceLength)
	}

	gcm, err := newGCM(secret)
	if err != nil {
		return "", err
	}

	sealed := gcm.Seal(nil, []byte(nonce), plaintext, nil)
	return base64.StdEncoding.EncodeToString([]byte(nonce)) + base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a response envelope. The whole string is one base64 blob:
// first 12 bytes are the nonce, the remainder is ciphertext with the auth tag
// in its last 16 bytes. Tag mismatch or a malformed envelope is a recoverable
// per-call failure, never silent corruption.
func Decrypt(envelope string, secret Secret) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(envelope)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed base64: %v", tuya.ErrDecryption, err)
	}
	if len(raw) < idgen.NonceLength+gcmTagSize {
		return nil, fmt.Errorf("%w: envelope too short (%d bytes)", tuya.ErrDecryption, len(raw))
	}

	gcm, err := newGCM(secret)
	if err != nil {
		return nil, err
	}

	nonce := raw[:idgen.NonceLength]
	plaintext, err := gcm.Open(nil, nonce, raw[idgen.NonceLength:], nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", tuya.ErrDecryption, err)
	}
	return plaintext, nil
}

// DecryptResult opens a response envelope and JSON-parses the plaintext when
// possible; non-JSON payloads come back as the raw string.
func DecryptResult(envelope string, secret Secret) (interface{}, error) {
	plaintext, err := Decrypt(envelope, secret)
	if err != nil {
		return nil, err
	}
	var parsed interface{}
	if json.Unmarshal(plaintext, &parsed) == nil {
		return parsed, nil
	}
	return string(plaintext), nil
}

func newGCM(secret Secret) (cipher.AEAD, error) {
	block, err := aes.NewCipher([]byte(secret.Key))
	if err != nil {
		return nil, fmt.Errorf("%w: bad AES key: %v", tuya.ErrConfiguration, err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", tuya.ErrConfiguration, err)
	}
	return gcm, nil
}
