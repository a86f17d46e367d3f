package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	apiPrefix      = "/api/v1"
	defaultTimeout = 30 * time.Second
	maxErrorBody   = 2048
)

// Client talks to the ledger's REST API with a bearer token. It is safe
// for concurrent use; the underlying http.Client pools connections per
// worker.
type Client struct {
	baseURL    *url.URL
	token      string
	httpClient *http.Client
}

// NewClient creates a ledger API client. A nil httpClient gets a default
// one with a request timeout.
func NewClient(rawURL, token string, httpClient *http.Client) (*Client, error) {
	base, err := url.Parse(strings.TrimSuffix(rawURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parsing ledger url: %w", err)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{baseURL: base, token: token, httpClient: httpClient}, nil
}

// ListAccounts fetches all ledger accounts, paginating until the ledger
// reports no further pages.
func (c *Client) ListAccounts(ctx context.Context) ([]AccountRead, error) {
	var accounts []AccountRead
	for page := 1; ; page++ {
		var out accountsPage
		query := url.Values{"page": {strconv.Itoa(page)}}
		if err := c.do(ctx, http.MethodGet, "/accounts", query, nil, &out); err != nil {
			return nil, fmt.Errorf("listing accounts page %d: %w", page, err)
		}
		accounts = append(accounts, out.Data...)
		if out.Meta.Pagination.CurrentPage >= out.Meta.Pagination.TotalPages {
			return accounts, nil
		}
	}
}

// CreateAccount stores a new asset account and returns the created record.
func (c *Client) CreateAccount(ctx context.Context, store AccountStore) (AccountRead, error) {
	var out accountEnvelope
	if err := c.do(ctx, http.MethodPost, "/accounts", nil, store, &out); err != nil {
		return AccountRead{}, fmt.Errorf("creating account: %w", err)
	}
	return out.Data, nil
}

// ListTransactions fetches every stored transaction split of one ledger
// account, paginating until exhausted.
func (c *Client) ListTransactions(ctx context.Context, accountID string) ([]TransactionSplit, error) {
	var splits []TransactionSplit
	path := "/accounts/" + url.PathEscape(accountID) + "/transactions"
	for page := 1; ; page++ {
		var out transactionsPage
		query := url.Values{"page": {strconv.Itoa(page)}}
		if err := c.do(ctx, http.MethodGet, path, query, nil, &out); err != nil {
			return nil, fmt.Errorf("listing transactions page %d: %w", page, err)
		}
		for _, txn := range out.Data {
			splits = append(splits, txn.Attributes.Transactions...)
		}
		if out.Meta.Pagination.CurrentPage >= out.Meta.Pagination.TotalPages {
			return splits, nil
		}
	}
}

// CreateTransaction stores one transaction as a single-split entry.
func (c *Client) CreateTransaction(ctx context.Context, split TransactionSplit) error {
	store := TransactionStore{Transactions: []TransactionSplit{split}}
	if err := c.do(ctx, http.MethodPost, "/transactions", nil, store, nil); err != nil {
		return fmt.Errorf("creating transaction: %w", err)
	}
	return nil
}

// do performs one API call. Non-2xx responses become an *APIError with the
// body detail preserved.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	ref := &url.URL{Path: c.baseURL.Path + apiPrefix + path}
	u := c.baseURL.ResolveReference(ref)
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode/100 != 2 {
		detail := strings.TrimSpace(string(data))
		if len(detail) > maxErrorBody {
			detail = detail[:maxErrorBody]
		}
		return &APIError{StatusCode: resp.StatusCode, Body: detail}
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("unmarshaling response body: %w", err)
		}
	}
	return nil
}
