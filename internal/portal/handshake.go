package portal

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"
)

// Relative paths of the portal's login sequence. They are fixed across
// regions; only the host varies.
const (
	loginPath    = "/acces-aux-comptes/connexion.html"
	usernamePath = "/securite/identification"
	passwordPath = "/securite/authentification"
)

const defaultTimeout = 30 * time.Second

// Marker strings the portal embeds in its responses. Matching is
// case-insensitive.
var (
	failureMarkers = []string{
		"authentication failed",
		"votre identification est incorrecte",
	}
	stepUpMarkers = []string{
		"strongauthenticationrequired",
		"securite-renforcee",
	}
	successMarkers = []string{
		"deconnexion",
		"synthese-comptes",
	}
)

// Handshake drives the portal's multi-step login protocol. The zero value
// is usable: it authenticates with the digit keypad encoder, a default
// 30-second HTTP timeout and the default logger.
type Handshake struct {
	// Encoder encodes the password for the portal's virtual keypad.
	// Nil means DigitEncoder.
	Encoder KeypadEncoder
	// HTTPClient is used for all handshake requests. It must carry a
	// cookie jar; when nil, a fresh client with its own jar is built per
	// Authenticate call.
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Authenticate converts credentials plus a regional base URL into a valid
// Session, or fails with an *AuthError. No partial session is ever
// returned.
func (h *Handshake) Authenticate(ctx context.Context, creds Credentials, baseURL string) (*Session, error) {
	client, err := h.client()
	if err != nil {
		return nil, &AuthError{Kind: KindHTTPFailure, Detail: "building http client", Err: err}
	}
	logger := h.logger()

	// Step 1: fetch the login page.
	body, err := h.get(ctx, client, baseURL+loginPath)
	if err != nil {
		return nil, &AuthError{Kind: KindHTTPFailure, Detail: "fetching login page", Err: err}
	}

	// Step 2: extract the anti-forgery token.
	token, pattern, ok := ExtractToken(body)
	if !ok {
		return nil, &AuthError{Kind: KindTokenMissing, Detail: "no token pattern matched the login page"}
	}
	logger.Debug("anti-forgery token extracted", "pattern", pattern)

	// Step 3: submit the username. The portal may rotate the token in its
	// response; if it does, adopt the fresh one.
	form := url.Values{
		"identifiant": {creds.Username},
		"csrf_token":  {token},
	}
	body, err = h.postForm(ctx, client, baseURL+usernamePath, form)
	if err != nil {
		return nil, &AuthError{Kind: KindHTTPFailure, Detail: "submitting username", Err: err}
	}
	if fresh, pattern, ok := ExtractToken(body); ok && fresh != token {
		logger.Debug("anti-forgery token rotated after username step", "pattern", pattern)
		token = fresh
	}

	// Step 4: submit the keypad-encoded password with the current token.
	form = url.Values{
		"code":       {h.encoder().Encode(creds.Digits())},
		"csrf_token": {token},
	}
	body, err = h.postForm(ctx, client, baseURL+passwordPath, form)
	if err != nil {
		return nil, &AuthError{Kind: KindHTTPFailure, Detail: "submitting password", Err: err}
	}

	// Step 5: verify the outcome.
	lower := strings.ToLower(body)
	if containsAny(lower, stepUpMarkers) {
		return nil, &AuthError{
			Kind:   KindStepUpNotSupported,
			Detail: "portal requires an out-of-band challenge (SMS/app code)",
		}
	}
	if containsAny(lower, failureMarkers) {
		return nil, &AuthError{Kind: KindInvalidCredentials, Detail: "portal reported failed authentication"}
	}
	if !containsAny(lower, successMarkers) {
		return nil, &AuthError{Kind: KindInvalidCredentials, Detail: "response carries no post-login marker"}
	}

	logger.Info("portal session established", "user", creds.Username)
	return &Session{baseURL: baseURL, token: token, client: client}, nil
}

func (h *Handshake) client() (*http.Client, error) {
	if h.HTTPClient != nil {
		return h.HTTPClient, nil
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	return &http.Client{Jar: jar, Timeout: defaultTimeout}, nil
}

func (h *Handshake) encoder() KeypadEncoder {
	if h.Encoder != nil {
		return h.Encoder
	}
	return DigitEncoder{}
}

func (h *Handshake) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

func (h *Handshake) get(ctx context.Context, client *http.Client, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	return doText(client, req)
}

func (h *Handshake) postForm(ctx context.Context, client *http.Client, rawURL string, form url.Values) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return doText(client, req)
}

func doText(client *http.Client, req *http.Request) (string, error) {
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response body: %w", err)
	}
	if resp.StatusCode/100 != 2 {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return string(body), nil
}

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}
