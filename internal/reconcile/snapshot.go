package reconcile

import "github.com/ledgersync-dev/ledgersync/internal/ledger"

// AccountIndex is an in-memory lookup over the ledger's accounts, keyed by
// external account number. It is read once at run start and treated as an
// immutable snapshot, except for accounts the run itself creates.
type AccountIndex struct {
	byNumber map[string]ledger.AccountRead
}

// NewAccountIndex builds an index from a ledger account listing. Accounts
// without an account number are not indexed.
func NewAccountIndex(accounts []ledger.AccountRead) *AccountIndex {
	byNumber := make(map[string]ledger.AccountRead, len(accounts))
	for _, a := range accounts {
		if a.Attributes.AccountNumber == "" {
			continue
		}
		byNumber[a.Attributes.AccountNumber] = a
	}
	return &AccountIndex{byNumber: byNumber}
}

// ByNumber returns the ledger account with the given external account
// number.
func (idx *AccountIndex) ByNumber(number string) (ledger.AccountRead, bool) {
	a, ok := idx.byNumber[number]
	return a, ok
}

// Add records an account created during the run so later lookups reuse it.
func (idx *AccountIndex) Add(a ledger.AccountRead) {
	if a.Attributes.AccountNumber == "" {
		return
	}
	idx.byNumber[a.Attributes.AccountNumber] = a
}

// Len returns the number of indexed accounts.
func (idx *AccountIndex) Len() int {
	return len(idx.byNumber)
}
