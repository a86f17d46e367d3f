package portal

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ledgersync-dev/ledgersync/internal/model"
)

const (
	operationsPathFmt = "/portail/api/comptes/%s/operations"
	operationsPerPage = 100
	dateLayout        = "2006-01-02"
)

// Layouts the portal has been observed to use for operation dates.
var operationDateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
	"02/01/2006",
}

type operationJSON struct {
	Date    string      `json:"dateOperation"`
	Montant json.Number `json:"montant"`
	Libelle string      `json:"libelleOperation"`
}

type operationsPageJSON struct {
	Operations     []operationJSON `json:"operations"`
	NextStartIndex int             `json:"nextSetStartIndex"`
	HasNext        bool            `json:"hasNext"`
}

// TransactionIter is a lazy, finite, non-restartable sequence of one
// account's transactions. It fetches one page per portal request and stops
// at maxCount or when the portal reports no further pages. Once consumed
// it cannot be replayed; call Client.Transactions again for a new pass.
type TransactionIter struct {
	client   *Client
	account  model.BankAccount
	start    string // window lower bound, inclusive
	stop     string // window upper bound, inclusive
	maxCount int

	page       []model.BankTransaction
	pos        int
	startIndex int
	hasNext    bool
	started    bool
	fetched    int
	cur        model.BankTransaction
	err        error
}

// Transactions returns a lazy sequence of the account's transactions within
// [today-windowDays, today], both bounds computed now, capped at maxCount.
func (c *Client) Transactions(account model.BankAccount, windowDays, maxCount int) *TransactionIter {
	today := time.Now()
	return &TransactionIter{
		client:   c,
		account:  account,
		start:    today.AddDate(0, 0, -windowDays).Format(dateLayout),
		stop:     today.Format(dateLayout),
		maxCount: maxCount,
	}
}

// Next advances the iterator, fetching the next page from the portal when
// the current one is exhausted.
func (it *TransactionIter) Next(ctx context.Context) bool {
	if it.err != nil {
		return false
	}
	for {
		if it.fetched >= it.maxCount {
			return false
		}
		if it.pos < len(it.page) {
			it.cur = it.page[it.pos]
			it.pos++
			it.fetched++
			return true
		}
		if it.started && !it.hasNext {
			return false
		}
		if err := it.fetchPage(ctx); err != nil {
			it.err = err
			return false
		}
		if len(it.page) == 0 {
			return false
		}
	}
}

// Transaction returns the current transaction. Only valid after a Next
// call that returned true.
func (it *TransactionIter) Transaction() model.BankTransaction {
	return it.cur
}

// Err returns the first error encountered while paging, if any.
func (it *TransactionIter) Err() error {
	return it.err
}

func (it *TransactionIter) fetchPage(ctx context.Context) error {
	count := operationsPerPage
	if remaining := it.maxCount - it.fetched; remaining < count {
		count = remaining
	}
	query := map[string]string{
		"dateStart":  it.start,
		"dateStop":   it.stop,
		"count":      strconv.Itoa(count),
		"startIndex": strconv.Itoa(it.startIndex),
	}
	path := fmt.Sprintf(operationsPathFmt, it.account.Number)
	body, err := it.client.getJSON(ctx, it.client.session.baseURL+path, query)
	if err != nil {
		return fmt.Errorf("fetching operations page: %w", err)
	}

	var page operationsPageJSON
	if err := json.Unmarshal(body, &page); err != nil {
		return fmt.Errorf("decoding operations page: %w", err)
	}

	txns := make([]model.BankTransaction, 0, len(page.Operations))
	for _, op := range page.Operations {
		txn, err := it.parseOperation(op)
		if err != nil {
			return err
		}
		txns = append(txns, txn)
	}

	it.page = txns
	it.pos = 0
	it.startIndex = page.NextStartIndex
	it.hasNext = page.HasNext
	it.started = true
	return nil
}

func (it *TransactionIter) parseOperation(op operationJSON) (model.BankTransaction, error) {
	date, err := parseOperationDate(op.Date)
	if err != nil {
		return model.BankTransaction{}, fmt.Errorf("parsing operation date %q: %w", op.Date, err)
	}
	amount, err := decimal.NewFromString(op.Montant.String())
	if err != nil {
		return model.BankTransaction{}, fmt.Errorf("parsing operation amount: %w", err)
	}
	return model.BankTransaction{
		Date:          date,
		Amount:        amount,
		Description:   op.Libelle,
		AccountNumber: it.account.Number,
	}, nil
}

func parseOperationDate(value string) (time.Time, error) {
	for _, layout := range operationDateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date layout")
}
