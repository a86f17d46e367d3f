package portal

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgersync-dev/ledgersync/internal/model"
)

func testSession(ts *httptest.Server) *Session {
	return &Session{baseURL: ts.URL, token: "tok", client: ts.Client()}
}

func accountFixture(number string) model.BankAccount {
	return model.BankAccount{
		Number:   number,
		Label:    "Compte de Depot",
		Balance:  decimal.NullDecimal{Decimal: decimal.NewFromInt(100), Valid: true},
		Currency: "EUR",
		Type:     "CCHQ",
	}
}

func TestListAccounts(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET "+accountsPath, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "tok", r.Header.Get("X-CSRF-Token"))
		fmt.Fprint(w, `{"comptes": [
			{"numeroCompte": "FR7612345", "libelleProduit": "Compte de Depot", "solde": 1234.56, "devise": "EUR", "typeCompte": "CCHQ"},
			{"numeroCompte": "FR7667890", "libelleProduit": "Livret", "solde": "78.90", "devise": "EUR", "typeCompte": "LIV"},
			{"numeroCompte": "FR7600000", "libelleProduit": "Titres", "solde": null, "devise": "EUR", "typeCompte": "TIT"}
		]}`)
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	c := NewClient(testSession(ts), nil)
	accounts, err := c.ListAccounts(context.Background())
	require.NoError(t, err)
	require.Len(t, accounts, 3)

	assert.Equal(t, "FR7612345", accounts[0].Number)
	assert.Equal(t, "Compte de Depot", accounts[0].Label)
	require.True(t, accounts[0].Balance.Valid)
	assert.Equal(t, "1234.56", accounts[0].Balance.Decimal.StringFixed(2))

	// A string balance parses too.
	require.True(t, accounts[1].Balance.Valid)
	assert.Equal(t, "78.90", accounts[1].Balance.Decimal.StringFixed(2))

	// A null balance is carried as "no usable balance".
	assert.False(t, accounts[2].Balance.Valid)
}

func TestListAccountsSessionExpired(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET "+accountsPath, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "session expired", http.StatusUnauthorized)
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	c := NewClient(testSession(ts), nil)
	_, err := c.ListAccounts(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSessionExpired)
}

func TestTransactionsPagination(t *testing.T) {
	account := accountFixture("FR7612345")
	var requests []string
	mux := http.NewServeMux()
	mux.HandleFunc(fmt.Sprintf("GET "+operationsPathFmt, account.Number), func(w http.ResponseWriter, r *http.Request) {
		requests = append(requests, r.URL.RawQuery)
		start, _ := strconv.Atoi(r.URL.Query().Get("startIndex"))
		if start == 0 {
			fmt.Fprint(w, `{"operations": [
				{"dateOperation": "2026-08-10", "montant": -12.34, "libelleOperation": "CARD PAYMENT"},
				{"dateOperation": "2026-08-11", "montant": 1500.00, "libelleOperation": "SALARY"}
			], "nextSetStartIndex": 2, "hasNext": true}`)
			return
		}
		fmt.Fprint(w, `{"operations": [
			{"dateOperation": "2026-08-12T00:00:00", "montant": -3.00, "libelleOperation": "COFFEE"}
		], "nextSetStartIndex": 0, "hasNext": false}`)
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	c := NewClient(testSession(ts), nil)
	it := c.Transactions(account, 30, 300)

	var got []string
	ctx := context.Background()
	for it.Next(ctx) {
		txn := it.Transaction()
		got = append(got, txn.Description)
		assert.Equal(t, account.Number, txn.AccountNumber)
	}
	require.NoError(t, it.Err())
	assert.Equal(t, []string{"CARD PAYMENT", "SALARY", "COFFEE"}, got)
	assert.Len(t, requests, 2)

	// The window bounds ride along on every page request.
	q := requests[0]
	assert.Contains(t, q, "dateStart="+time.Now().AddDate(0, 0, -30).Format(dateLayout))
	assert.Contains(t, q, "dateStop="+time.Now().Format(dateLayout))

	// Non-restartable: once consumed the iterator stays exhausted.
	assert.False(t, it.Next(ctx))
}

func TestTransactionsMaxCount(t *testing.T) {
	account := accountFixture("FR7612345")
	mux := http.NewServeMux()
	mux.HandleFunc(fmt.Sprintf("GET "+operationsPathFmt, account.Number), func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "2", r.URL.Query().Get("count"))
		fmt.Fprint(w, `{"operations": [
			{"dateOperation": "2026-08-10", "montant": -1.00, "libelleOperation": "A"},
			{"dateOperation": "2026-08-11", "montant": -2.00, "libelleOperation": "B"}
		], "nextSetStartIndex": 2, "hasNext": true}`)
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	c := NewClient(testSession(ts), nil)
	it := c.Transactions(account, 30, 2)

	count := 0
	for it.Next(context.Background()) {
		count++
	}
	require.NoError(t, it.Err())
	assert.Equal(t, 2, count)
}

func TestTransactionsSessionExpiredMidPaging(t *testing.T) {
	account := accountFixture("FR7612345")
	calls := 0
	mux := http.NewServeMux()
	mux.HandleFunc(fmt.Sprintf("GET "+operationsPathFmt, account.Number), func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			fmt.Fprint(w, `{"operations": [
				{"dateOperation": "2026-08-10", "montant": -1.00, "libelleOperation": "A"}
			], "nextSetStartIndex": 1, "hasNext": true}`)
			return
		}
		http.Error(w, "expired", http.StatusForbidden)
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	c := NewClient(testSession(ts), nil)
	it := c.Transactions(account, 30, 300)

	ctx := context.Background()
	require.True(t, it.Next(ctx))
	assert.False(t, it.Next(ctx))
	assert.ErrorIs(t, it.Err(), ErrSessionExpired)
}

func TestParseOperationDateLayouts(t *testing.T) {
	for _, value := range []string{
		"2026-08-10",
		"2026-08-10T12:30:00",
		"2026-08-10T12:30:00Z",
		"10/08/2026",
	} {
		parsed, err := parseOperationDate(value)
		require.NoError(t, err, "layout %q", value)
		assert.Equal(t, 2026, parsed.Year())
		assert.Equal(t, time.August, parsed.Month())
		assert.Equal(t, 10, parsed.Day())
	}

	_, err := parseOperationDate("August 10th")
	assert.Error(t, err)
}
