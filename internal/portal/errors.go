package portal

import (
	"errors"
	"fmt"
)

// AuthKind classifies handshake failures.
type AuthKind string

const (
	// KindTokenMissing means no anti-forgery token could be extracted from
	// the login page. The page structure is presumed broken, so there is
	// no point retrying.
	KindTokenMissing AuthKind = "token_missing"
	// KindInvalidCredentials means the portal rejected the username or
	// password.
	KindInvalidCredentials AuthKind = "invalid_credentials"
	// KindStepUpNotSupported means the portal demanded an out-of-band
	// challenge (SMS/app code), which this client does not implement.
	KindStepUpNotSupported AuthKind = "step_up_not_supported"
	// KindHTTPFailure covers transport errors and non-2xx responses
	// during the handshake.
	KindHTTPFailure AuthKind = "http_failure"
)

// AuthError is a fatal handshake failure. No session exists when one is
// returned.
type AuthError struct {
	Kind   AuthKind
	Detail string
	Err    error
}

func (e *AuthError) Error() string {
	msg := fmt.Sprintf("portal authentication failed (%s)", e.Kind)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *AuthError) Unwrap() error { return e.Err }

// ErrSessionExpired is returned when the portal rejects a previously valid
// session. Re-authentication is the caller's decision, never automatic.
var ErrSessionExpired = errors.New("portal session expired")
