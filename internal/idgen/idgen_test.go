package idgen

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewRequestID(t *testing.T) {
	id := NewRequestID()
	assert.Len(t, id, 32)
	assert.NotContains(t, id, "-")
	assert.NotEqual(t, id, NewRequestID())
}

func TestNewProtocolNonce(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		nonce := NewProtocolNonce()
		assert.Len(t, nonce, NonceLength)
		for _, c := range nonce {
			assert.True(t, strings.ContainsRune(nonceAlphabet, c), "nonce char %q outside alphabet", c)
		}
		seen[nonce] = true
	}
	assert.Greater(t, len(seen), 90, "nonces should be effectively unique")
}
