// Package ledger is a thin HTTP client for the personal-finance ledger's
// REST API. Only the endpoints the reconciler consumes are implemented.
package ledger

import "fmt"

// AccountAttributes is the attribute block of a ledger account.
type AccountAttributes struct {
	Name          string `json:"name"`
	Type          string `json:"type"`
	AccountNumber string `json:"account_number"`
	CurrencyCode  string `json:"currency_code"`
}

// AccountRead is one ledger account as returned by the API.
type AccountRead struct {
	ID         string            `json:"id"`
	Attributes AccountAttributes `json:"attributes"`
}

// AccountStore is the payload for creating a ledger account.
type AccountStore struct {
	Name               string `json:"name"`
	Type               string `json:"type"`
	AccountNumber      string `json:"account_number"`
	OpeningBalance     string `json:"opening_balance"`
	OpeningBalanceDate string `json:"opening_balance_date"`
	AccountRole        string `json:"account_role"`
	CurrencyCode       string `json:"currency_code"`
}

// TransactionSplit is one leg of a ledger transaction, used both when
// reading existing transactions and when storing new ones. Exactly one of
// SourceID/SourceName (and DestinationID/DestinationName) is set on store.
type TransactionSplit struct {
	Type            string `json:"type"`
	Date            string `json:"date"`
	Amount          string `json:"amount"`
	Description     string `json:"description"`
	SourceID        string `json:"source_id,omitempty"`
	SourceName      string `json:"source_name,omitempty"`
	DestinationID   string `json:"destination_id,omitempty"`
	DestinationName string `json:"destination_name,omitempty"`
}

// TransactionStore is the payload for creating a transaction.
type TransactionStore struct {
	Transactions []TransactionSplit `json:"transactions"`
}

// TransactionRead is one stored transaction; the ledger groups splits under
// a single journal entry.
type TransactionRead struct {
	ID         string `json:"id"`
	Attributes struct {
		Transactions []TransactionSplit `json:"transactions"`
	} `json:"attributes"`
}

type pagination struct {
	CurrentPage int `json:"current_page"`
	TotalPages  int `json:"total_pages"`
}

type meta struct {
	Pagination pagination `json:"pagination"`
}

type accountsPage struct {
	Data []AccountRead `json:"data"`
	Meta meta          `json:"meta"`
}

type accountEnvelope struct {
	Data AccountRead `json:"data"`
}

type transactionsPage struct {
	Data []TransactionRead `json:"data"`
	Meta meta              `json:"meta"`
}

// APIError is a non-2xx response from the ledger, with the body preserved
// for diagnosis.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("ledger api: unexpected status %d: %s", e.StatusCode, e.Body)
}
