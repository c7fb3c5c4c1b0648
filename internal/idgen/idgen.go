package idgen

import (
	"crypto/rand"

	"github.com/google/uuid"
)

// nonceAlphabet is the restricted character set the encrypted protocol expects
// for its 12-character nonce. The vendor treats the nonce characters as raw
// ASCII IV bytes, so the alphabet is an interoperability requirement, not an
// entropy choice.
const nonceAlphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

// NonceLength is the IV length of the encrypted protocol (AES-GCM standard nonce size)
const NonceLength = 12

// NewRequestID generates a request id for the encrypted protocol (uuid without dashes)
func NewRequestID() string {
	id := uuid.New().String()
	out := make([]byte, 0, 32)
	for i := 0; i < len(id); i++ {
		if id[i] != '-' {
			out = append(out, id[i])
		}
	}
	return string(out)
}

// NewTerminalID generates a terminal id used when registering a QR-linked session
func NewTerminalID() string {
	return uuid.New().String()
}

// New generates a generic UUID (plain-protocol nonce, internal ids)
func New() string {
	return uuid.New().String()
}

// NewProtocolNonce generates the encrypted protocol's 12-character nonce from
// the restricted alphabet
func NewProtocolNonce() string {
	buf := make([]byte, NonceLength)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand does not fail on supported platforms; fall back to a
		// uuid-derived nonce rather than panicking mid-request
		return NewRequestID()[:NonceLength]
	}
	for i, b := range buf {
		buf[i] = nonceAlphabet[int(b)%len(nonceAlphabet)]
	}
	return string(buf)
}
