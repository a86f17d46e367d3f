package reconcile

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgersync-dev/ledgersync/internal/ledger"
	"github.com/ledgersync-dev/ledgersync/internal/model"
)

// fakeLedger is an in-memory ledger API good enough for the client to talk
// to. Stored transactions are served back on subsequent listings, which is
// what the idempotence tests rely on.
type fakeLedger struct {
	mu       sync.Mutex
	accounts []ledger.AccountRead
	txns     map[string][]ledger.TransactionSplit
	nextID   int

	failListTxns bool
	rejectDesc   string // description that gets a 422

	accountPosts int
	txnPosts     int
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{txns: make(map[string][]ledger.TransactionSplit), nextID: 1}
}

func (f *fakeLedger) addAccount(number, name string) ledger.AccountRead {
	f.mu.Lock()
	defer f.mu.Unlock()
	a := ledger.AccountRead{
		ID: strconv.Itoa(f.nextID),
		Attributes: ledger.AccountAttributes{
			Name: name, Type: "asset", AccountNumber: number, CurrencyCode: "EUR",
		},
	}
	f.nextID++
	f.accounts = append(f.accounts, a)
	return a
}

func (f *fakeLedger) server(t *testing.T) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/accounts", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		writePage(w, f.accounts)
	})
	mux.HandleFunc("POST /api/v1/accounts", func(w http.ResponseWriter, r *http.Request) {
		var store ledger.AccountStore
		require.NoError(t, json.NewDecoder(r.Body).Decode(&store))
		a := f.addAccount(store.AccountNumber, store.Name)
		f.mu.Lock()
		f.accountPosts++
		f.mu.Unlock()
		json.NewEncoder(w).Encode(map[string]any{"data": a})
	})
	mux.HandleFunc("GET /api/v1/accounts/{id}/transactions", func(w http.ResponseWriter, r *http.Request) {
		if f.failListTxns {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		var entries []ledger.TransactionRead
		for i, split := range f.txns[r.PathValue("id")] {
			entry := ledger.TransactionRead{ID: strconv.Itoa(i + 100)}
			entry.Attributes.Transactions = []ledger.TransactionSplit{split}
			entries = append(entries, entry)
		}
		writePage(w, entries)
	})
	mux.HandleFunc("POST /api/v1/transactions", func(w http.ResponseWriter, r *http.Request) {
		var store ledger.TransactionStore
		require.NoError(t, json.NewDecoder(r.Body).Decode(&store))
		require.Len(t, store.Transactions, 1)
		split := store.Transactions[0]

		if split.Description == f.rejectDesc {
			http.Error(w, `{"message": "rejected"}`, http.StatusUnprocessableEntity)
			return
		}

		accountID := split.SourceID
		if split.Type == "deposit" {
			accountID = split.DestinationID
		}
		f.mu.Lock()
		f.txns[accountID] = append(f.txns[accountID], split)
		f.txnPosts++
		f.mu.Unlock()
		w.WriteHeader(http.StatusOK)
	})
	return httptest.NewServer(mux)
}

func writePage[T any](w http.ResponseWriter, data []T) {
	if data == nil {
		data = []T{}
	}
	json.NewEncoder(w).Encode(map[string]any{
		"data": data,
		"meta": map[string]any{"pagination": map[string]int{"current_page": 1, "total_pages": 1}},
	})
}

func testReconciler(t *testing.T, ts *httptest.Server) *Reconciler {
	t.Helper()
	client, err := ledger.NewClient(ts.URL, "tok", nil)
	require.NoError(t, err)
	return &Reconciler{
		Ledger: client,
		Now:    func() time.Time { return time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC) },
	}
}

func bankAccount(number string) model.BankAccount {
	return model.BankAccount{
		Number:   number,
		Label:    "Compte de Depot",
		Balance:  decimal.NullDecimal{Decimal: decimal.NewFromInt(100), Valid: true},
		Currency: "EUR",
	}
}

func bankTxn(day int, amount, desc string) model.BankTransaction {
	return model.BankTransaction{
		Date:        time.Date(2026, 8, day, 0, 0, 0, 0, time.UTC),
		Amount:      decimal.RequireFromString(amount),
		Description: desc,
	}
}

func TestMatchOrCreateAccountReusesExisting(t *testing.T) {
	fake := newFakeLedger()
	existing := fake.addAccount("12345678901", "Checking")
	ts := fake.server(t)
	defer ts.Close()

	r := testReconciler(t, ts)
	idx := NewAccountIndex(fake.accounts)

	got, created, err := r.MatchOrCreateAccount(context.Background(), idx, bankAccount("12345678901"))
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, existing.ID, got.ID)
	assert.Zero(t, fake.accountPosts, "matching must never create a duplicate account")
}

func TestMatchOrCreateAccountCreates(t *testing.T) {
	fake := newFakeLedger()
	ts := fake.server(t)
	defer ts.Close()

	r := testReconciler(t, ts)
	idx := NewAccountIndex(nil)

	got, created, err := r.MatchOrCreateAccount(context.Background(), idx, bankAccount("FR7612345"))
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEmpty(t, got.ID)
	assert.Equal(t, 1, fake.accountPosts)

	// The created account is indexed for the rest of the run.
	again, ok := idx.ByNumber("FR7612345")
	require.True(t, ok)
	assert.Equal(t, got.ID, again.ID)
}

func TestMatchOrCreateAccountSkipsWithoutBalance(t *testing.T) {
	fake := newFakeLedger()
	ts := fake.server(t)
	defer ts.Close()

	r := testReconciler(t, ts)
	acct := bankAccount("FR7600000")
	acct.Balance = decimal.NullDecimal{}

	_, _, err := r.MatchOrCreateAccount(context.Background(), NewAccountIndex(nil), acct)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoBalance)
	assert.Zero(t, fake.accountPosts)
}

func TestImportAccountEmptyLedger(t *testing.T) {
	fake := newFakeLedger()
	la := fake.addAccount("FR7612345", "Compte de Depot")
	ts := fake.server(t)
	defer ts.Close()

	r := testReconciler(t, ts)
	src := model.NewSliceSource([]model.BankTransaction{
		bankTxn(10, "-12.34", "CARD PAYMENT"),
		bankTxn(11, "1500.00", "SALARY"),
		bankTxn(12, "-3.00", "COFFEE"),
	})

	res := r.ImportAccount(context.Background(), la, bankAccount("FR7612345"), src)
	require.NoError(t, res.Err)
	assert.Equal(t, 3, res.Fetched)
	assert.Equal(t, 3, res.Imported)
	assert.Equal(t, 0, res.Duplicates)
	assert.Equal(t, 0, res.Failed)

	// Sign convention drives the transaction type.
	stored := fake.txns[la.ID]
	require.Len(t, stored, 3)
	assert.Equal(t, "withdrawal", stored[0].Type)
	assert.Equal(t, la.ID, stored[0].SourceID)
	assert.Equal(t, "External Account", stored[0].DestinationName)
	assert.Equal(t, "deposit", stored[1].Type)
	assert.Equal(t, la.ID, stored[1].DestinationID)
	assert.Equal(t, "External Account", stored[1].SourceName)
}

func TestImportAccountIdempotent(t *testing.T) {
	fake := newFakeLedger()
	la := fake.addAccount("FR7612345", "Compte de Depot")
	ts := fake.server(t)
	defer ts.Close()

	r := testReconciler(t, ts)
	txns := []model.BankTransaction{
		bankTxn(10, "-12.34", "CARD PAYMENT"),
		bankTxn(11, "1500.00", "SALARY"),
		bankTxn(12, "-3.00", "COFFEE"),
	}
	acct := bankAccount("FR7612345")

	first := r.ImportAccount(context.Background(), la, acct, model.NewSliceSource(txns))
	require.NoError(t, first.Err)
	assert.Equal(t, 3, first.Imported)

	second := r.ImportAccount(context.Background(), la, acct, model.NewSliceSource(txns))
	require.NoError(t, second.Err)
	assert.Equal(t, 0, second.Imported)
	assert.Equal(t, 3, second.Duplicates)
	assert.Equal(t, 3, fake.txnPosts, "second run must post nothing")
}

func TestImportAccountWithinRunDuplicate(t *testing.T) {
	fake := newFakeLedger()
	la := fake.addAccount("FR7612345", "Compte de Depot")
	ts := fake.server(t)
	defer ts.Close()

	r := testReconciler(t, ts)
	// The same operation appearing on two overlapping fetch pages.
	src := model.NewSliceSource([]model.BankTransaction{
		bankTxn(10, "-12.34", "CARD PAYMENT"),
		bankTxn(10, "-12.34", "CARD PAYMENT"),
	})

	res := r.ImportAccount(context.Background(), la, bankAccount("FR7612345"), src)
	require.NoError(t, res.Err)
	assert.Equal(t, 1, res.Imported)
	assert.Equal(t, 1, res.Duplicates)
}

func TestImportAccountZeroAmountIsDeposit(t *testing.T) {
	fake := newFakeLedger()
	la := fake.addAccount("FR7612345", "Compte de Depot")
	ts := fake.server(t)
	defer ts.Close()

	r := testReconciler(t, ts)
	src := model.NewSliceSource([]model.BankTransaction{bankTxn(10, "0.00", "ZERO ADJUSTMENT")})

	res := r.ImportAccount(context.Background(), la, bankAccount("FR7612345"), src)
	require.NoError(t, res.Err)
	assert.Equal(t, 1, res.Imported)

	stored := fake.txns[la.ID]
	require.Len(t, stored, 1)
	assert.Equal(t, "deposit", stored[0].Type)
	assert.Equal(t, "0.00", stored[0].Amount)
}

func TestImportAccountSubmissionFailureContinues(t *testing.T) {
	fake := newFakeLedger()
	la := fake.addAccount("FR7612345", "Compte de Depot")
	fake.rejectDesc = "SALARY"
	ts := fake.server(t)
	defer ts.Close()

	r := testReconciler(t, ts)
	src := model.NewSliceSource([]model.BankTransaction{
		bankTxn(10, "-12.34", "CARD PAYMENT"),
		bankTxn(11, "1500.00", "SALARY"),
		bankTxn(12, "-3.00", "COFFEE"),
	})

	res := r.ImportAccount(context.Background(), la, bankAccount("FR7612345"), src)
	require.NoError(t, res.Err)
	assert.Equal(t, 2, res.Imported)
	assert.Equal(t, 1, res.Failed)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, "SALARY", res.Failures[0].Description)

	var apiErr *ledger.APIError
	assert.ErrorAs(t, res.Failures[0].Err, &apiErr)
}

func TestImportAccountListFailureAborts(t *testing.T) {
	fake := newFakeLedger()
	la := fake.addAccount("FR7612345", "Compte de Depot")
	fake.failListTxns = true
	ts := fake.server(t)
	defer ts.Close()

	r := testReconciler(t, ts)
	src := model.NewSliceSource([]model.BankTransaction{bankTxn(10, "-12.34", "CARD PAYMENT")})

	res := r.ImportAccount(context.Background(), la, bankAccount("FR7612345"), src)
	require.Error(t, res.Err)
	assert.Equal(t, 0, res.Fetched, "no transactions consumed after an index failure")
	assert.Zero(t, fake.txnPosts)
}

func TestDryRunPostsNothing(t *testing.T) {
	fake := newFakeLedger()
	ts := fake.server(t)
	defer ts.Close()

	r := testReconciler(t, ts)
	r.DryRun = true
	idx := NewAccountIndex(nil)

	la, created, err := r.MatchOrCreateAccount(context.Background(), idx, bankAccount("FR7612345"))
	require.NoError(t, err)
	assert.True(t, created)
	assert.Zero(t, fake.accountPosts)

	src := model.NewSliceSource([]model.BankTransaction{
		bankTxn(10, "-12.34", "CARD PAYMENT"),
		bankTxn(10, "-12.34", "CARD PAYMENT"),
	})
	res := r.ImportAccount(context.Background(), la, bankAccount("FR7612345"), src)
	require.NoError(t, res.Err)
	assert.Equal(t, 1, res.Imported)
	assert.Equal(t, 1, res.Duplicates)
	assert.Zero(t, fake.txnPosts)
}
