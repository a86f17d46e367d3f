package portal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/ledgersync-dev/ledgersync/internal/mask"
	"github.com/ledgersync-dev/ledgersync/internal/model"
)

const accountsPath = "/portail/api/comptes"

// Client fetches accounts and transactions from the portal. All calls use
// the one authenticated Session and must stay sequential: the portal's
// session state is request-ordered.
type Client struct {
	session *Session
	logger  *slog.Logger
}

// NewClient creates a fetcher over an authenticated session.
func NewClient(session *Session, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{session: session, logger: logger}
}

type accountJSON struct {
	Numero  string          `json:"numeroCompte"`
	Libelle string          `json:"libelleProduit"`
	Solde   json.RawMessage `json:"solde"`
	Devise  string          `json:"devise"`
	Type    string          `json:"typeCompte"`
}

type accountsJSON struct {
	Comptes []accountJSON `json:"comptes"`
}

// ListAccounts fetches the session's accounts in one call. It returns
// ErrSessionExpired when the portal rejects the session; re-authentication
// is the caller's decision.
func (c *Client) ListAccounts(ctx context.Context) ([]model.BankAccount, error) {
	body, err := c.getJSON(ctx, c.session.baseURL+accountsPath, nil)
	if err != nil {
		return nil, fmt.Errorf("listing accounts: %w", err)
	}

	var payload accountsJSON
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decoding accounts: %w", err)
	}

	accounts := make([]model.BankAccount, 0, len(payload.Comptes))
	for _, a := range payload.Comptes {
		acct := model.BankAccount{
			Number:   a.Numero,
			Label:    a.Libelle,
			Balance:  parseBalance(a.Solde),
			Currency: a.Devise,
			Type:     a.Type,
		}
		accounts = append(accounts, acct)
		c.logger.Debug("account fetched",
			"account", mask.AccountNumber(acct.Number),
			"label", acct.Label,
			"balance", mask.Amount(),
		)
	}
	return accounts, nil
}

// parseBalance accepts the balance as a JSON number, a numeric string, or
// null/absent. Anything unparseable counts as "no usable balance".
func parseBalance(raw json.RawMessage) decimal.NullDecimal {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return decimal.NullDecimal{}
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return decimal.NullDecimal{}
		}
		raw = []byte(s)
	}
	d, err := decimal.NewFromString(string(raw))
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: d, Valid: true}
}

// getJSON performs one portal API GET with the session's anti-forgery
// token. 401/403 responses map to ErrSessionExpired.
func (c *Client) getJSON(ctx context.Context, rawURL string, query map[string]string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if len(query) > 0 {
		q := req.URL.Query()
		for k, v := range query {
			q.Set(k, v)
		}
		req.URL.RawQuery = q.Encode()
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-CSRF-Token", c.session.token)

	resp, err := c.session.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, ErrSessionExpired
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return body, nil
}
