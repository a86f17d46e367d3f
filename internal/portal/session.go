package portal

import "net/http"

// Session is a fully authenticated portal session. It is produced only by a
// successful Handshake and is immutable afterwards: the cookie jar inside
// the HTTP client carries the portal's session state, the token is the
// anti-forgery token in effect after login. A Session is never persisted
// across runs and must not be shared across concurrent portal requests.
type Session struct {
	baseURL string
	token   string
	client  *http.Client
}

// BaseURL returns the regional portal base URL the session is bound to.
func (s *Session) BaseURL() string { return s.baseURL }

// Token returns the anti-forgery token in effect after login.
func (s *Session) Token() string { return s.token }
