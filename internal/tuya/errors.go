package tuya

import (
	"errors"
	"fmt"
)

// Error taxonomy. Provider numeric codes are mapped onto these sentinels at
// the client boundary; nothing above the protocol clients inspects raw codes.
var (
	// ErrAuthentication means no usable credentials exist - the user must re-link
	ErrAuthentication = errors.New("authentication failed")
	// ErrRateLimited means the provider signalled throttling - callers should back off
	ErrRateLimited = errors.New("provider rate limit exceeded")
	// ErrDeviceOffline means the target device is unreachable
	ErrDeviceOffline = errors.New("device is offline")
	// ErrUnsupportedOperation means the command is not valid for this device or firmware
	ErrUnsupportedOperation = errors.New("operation not supported by device")
	// ErrDecryption means a response envelope failed integrity checks
	ErrDecryption = errors.New("failed to decrypt response envelope")
	// ErrSignature means a request signature was rejected or could not be built
	ErrSignature = errors.New("request signature invalid")
	// ErrConfiguration means a numeric range or client option is invalid
	ErrConfiguration = errors.New("invalid configuration")
)

// Provider error codes observed on both API surfaces
const (
	codeTokenInvalid    = 1010
	codeTokenExpired    = 1011
	codeGrantExpired    = 1012
	codeRefreshInvalid  = 1013
	codePermissionDeny  = 1106
	codeRateLimit       = 1102
	codeFrequentRequest = 4107
	codeDeviceOffline   = 2001
	codeParamIllegal    = 1100
	codeCommandInvalid  = 2008
)

// MapProviderCode converts a provider error code into the local taxonomy.
// Unknown non-zero codes surface as a generic provider error that still
// carries the raw code for logging.
func MapProviderCode(code int, msg string) error {
	switch code {
	case 0:
		return nil
	case codeTokenInvalid, codeTokenExpired, codeGrantExpired, codeRefreshInvalid, codePermissionDeny:
		return fmt.Errorf("%w: provider code %d: %s", ErrAuthentication, code, msg)
	case codeRateLimit, codeFrequentRequest:
		return fmt.Errorf("%w: provider code %d: %s", ErrRateLimited, code, msg)
	case codeDeviceOffline:
		return fmt.Errorf("%w: provider code %d: %s", ErrDeviceOffline, code, msg)
	case codeParamIllegal, codeCommandInvalid:
		return fmt.Errorf("%w: provider code %d: %s", ErrUnsupportedOperation, code, msg)
	default:
		return fmt.Errorf("provider error code %d: %s", code, msg)
	}
}
