package sharing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSignRequest(t *testing.T) {
	secret := testSecret()
	headers := map[string]string{
		"X-appKey":    "appkey",
		"X-requestId": "0123456789abcdef0123456789abcdef",
		"X-sid":       "abcdef0123456789",
		"X-time":      "1700000000000",
		"X-token":     "acc-token",
	}

	got := SignRequest(headers, "QENV", "BENV", secret)
	assert.Equal(t, "043ebbd39cbd929244a257daecea7f3f48ee54962f72a49f5abe4c19d16408ec", got)
}

func TestSignRequest_SkipsEmptyHeaders(t *testing.T) {
	// Pre-link requests carry no sid and no token; empty headers drop out of
	// the pipe-joined message entirely rather than leaving empty slots
	secret := DeriveSecret("0123456789abcdef0123456789abcdef", "refresh-token-1", "")
	headers := map[string]string{
		"X-appKey":    "appkey",
		"X-requestId": "0123456789abcdef0123456789abcdef",
		"X-sid":       "",
		"X-time":      "1700000000000",
		"X-token":     "",
	}

	got := SignRequest(headers, "", "BENV", secret)
	assert.Equal(t, "0b4de0364fda217242c617ec799c25bd12c8e66339a5857585d0248fe97b2e78", got)
}

func TestSignRequest_EnvelopeOrder(t *testing.T) {
	// Query envelope concatenates before body envelope; swapping them must
	// change the signature
	secret := testSecret()
	headers := map[string]string{"X-appKey": "k", "X-requestId": "r"}

	a := SignRequest(headers, "AAA", "BBB", secret)
	b := SignRequest(headers, "BBB", "AAA", secret)
	assert.NotEqual(t, a, b)
}
