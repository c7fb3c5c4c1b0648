package handlers

import (
	"errors"
	"net/http"

	"tuyabridge/internal/tuya"
)

// statusForError maps the core error taxonomy onto HTTP responses. Raw
// provider codes never reach this layer; only taxonomy sentinels do.
func statusForError(err error) (int, string) {
	switch {
	case errors.Is(err, tuya.ErrAuthentication):
		return http.StatusUnauthorized, "AUTHENTICATION_REQUIRED"
	case errors.Is(err, tuya.ErrRateLimited):
		return http.StatusTooManyRequests, "RATE_LIMITED"
	case errors.Is(err, tuya.ErrDeviceOffline):
		return http.StatusServiceUnavailable, "DEVICE_OFFLINE"
	case errors.Is(err, tuya.ErrUnsupportedOperation):
		return http.StatusUnprocessableEntity, "UNSUPPORTED_OPERATION"
	case errors.Is(err, tuya.ErrDecryption), errors.Is(err, tuya.ErrSignature):
		return http.StatusBadGateway, "PROTOCOL_ERROR"
	default:
		return http.StatusBadGateway, "PROVIDER_ERROR"
	}
}
