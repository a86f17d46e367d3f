package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ledgersync-dev/ledgersync/internal/ledger"
	"github.com/ledgersync-dev/ledgersync/internal/mask"
	"github.com/ledgersync-dev/ledgersync/internal/model"
)

// Counterpart name used for the external side of every imported
// transaction.
const externalParty = "External Account"

// ErrNoBalance marks a bank account that exposes no usable balance. Such
// accounts are not worth tracking and are skipped, not created.
var ErrNoBalance = errors.New("bank account has no usable balance")

// Reconciler makes a run's effect on the ledger idempotent: it reuses or
// creates the matching ledger account and imports only transactions whose
// dedup key is not already present.
type Reconciler struct {
	Ledger *ledger.Client
	Logger *slog.Logger
	// DryRun counts what would be imported without posting anything.
	DryRun bool
	// Now is the clock for opening balance dates. Nil means time.Now.
	Now func() time.Time
}

func (r *Reconciler) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}

func (r *Reconciler) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

// MatchOrCreateAccount returns the ledger account for a bank account,
// creating it when absent. A bank account without a usable balance is
// skipped with ErrNoBalance. Creation is attempted once; a failure aborts
// only this account.
func (r *Reconciler) MatchOrCreateAccount(ctx context.Context, idx *AccountIndex, acct model.BankAccount) (ledger.AccountRead, bool, error) {
	if existing, ok := idx.ByNumber(acct.Number); ok {
		return existing, false, nil
	}

	if !acct.Balance.Valid {
		return ledger.AccountRead{}, false, fmt.Errorf("account %s: %w", mask.AccountNumber(acct.Number), ErrNoBalance)
	}

	currency := acct.Currency
	if currency == "" {
		currency = "EUR"
	}
	store := ledger.AccountStore{
		Name:               acct.Label,
		Type:               "asset",
		AccountNumber:      acct.Number,
		OpeningBalance:     acct.Balance.Decimal.StringFixed(2),
		OpeningBalanceDate: r.now().Format(keyDateLayout),
		AccountRole:        "defaultAsset",
		CurrencyCode:       currency,
	}

	if r.DryRun {
		created := ledger.AccountRead{Attributes: ledger.AccountAttributes{
			Name:          store.Name,
			Type:          store.Type,
			AccountNumber: store.AccountNumber,
			CurrencyCode:  store.CurrencyCode,
		}}
		idx.Add(created)
		r.logger().Info("would create ledger account",
			"account", mask.AccountNumber(acct.Number), "name", acct.Label)
		return created, true, nil
	}

	created, err := r.Ledger.CreateAccount(ctx, store)
	if err != nil {
		return ledger.AccountRead{}, false, fmt.Errorf("creating ledger account for %s: %w", mask.AccountNumber(acct.Number), err)
	}
	idx.Add(created)
	r.logger().Info("ledger account created",
		"account", mask.AccountNumber(acct.Number), "ledger_id", created.ID, "name", acct.Label)
	return created, true, nil
}

// ImportAccount imports one account's transactions. It first fetches all
// of the account's existing ledger transactions and builds the dedup
// index, then streams the bank transactions through it. A single
// submission failure is counted and the loop continues; a failure building
// the index aborts the whole account (Err is set on the result).
func (r *Reconciler) ImportAccount(ctx context.Context, ledgerAccount ledger.AccountRead, acct model.BankAccount, src model.TransactionSource) model.ImportResult {
	result := model.ImportResult{
		AccountNumber: acct.Number,
		AccountLabel:  acct.Label,
	}
	logger := r.logger().With("account", mask.AccountNumber(acct.Number))

	seen, err := r.buildDedupIndex(ctx, ledgerAccount)
	if err != nil {
		result.Err = err
		return result
	}
	logger.Debug("dedup index built", "existing_keys", len(seen))

	for src.Next(ctx) {
		txn := src.Transaction()
		result.Fetched++

		key := MakeKey(txn.Date, txn.Amount, txn.Description)
		if _, dup := seen[key]; dup {
			result.Duplicates++
			continue
		}

		if err := r.submit(ctx, ledgerAccount, txn); err != nil {
			result.Failed++
			result.Failures = append(result.Failures, model.Failure{
				Description: strings.TrimSpace(txn.Description),
				Err:         err,
			})
			logger.Error("transaction import failed", "error", err)
			continue
		}

		// Adding the key immediately also catches duplicates within the
		// run, e.g. the same operation on two overlapping fetch pages.
		seen[key] = struct{}{}
		result.Imported++
	}

	if err := src.Err(); err != nil {
		result.Err = fmt.Errorf("fetching transactions: %w", err)
		return result
	}
	if err := ctx.Err(); err != nil {
		result.Err = err
		return result
	}

	logger.Info("account reconciled",
		"fetched", result.Fetched,
		"imported", result.Imported,
		"duplicates", result.Duplicates,
		"failed", result.Failed,
	)
	return result
}

// buildDedupIndex pages through the account's existing ledger transactions
// and fingerprints each split. Splits that cannot be normalized are logged
// and left out rather than failing the account.
func (r *Reconciler) buildDedupIndex(ctx context.Context, ledgerAccount ledger.AccountRead) (map[Key]struct{}, error) {
	seen := make(map[Key]struct{})
	if ledgerAccount.ID == "" {
		// Account does not exist ledger-side yet (dry-run creation):
		// nothing to fetch.
		return seen, nil
	}

	splits, err := r.Ledger.ListTransactions(ctx, ledgerAccount.ID)
	if err != nil {
		return nil, fmt.Errorf("listing existing ledger transactions: %w", err)
	}
	for _, split := range splits {
		key, err := ParseKey(split.Date, split.Amount, split.Description)
		if err != nil {
			r.logger().Warn("skipping unparseable ledger transaction", "error", err)
			continue
		}
		seen[key] = struct{}{}
	}
	return seen, nil
}

// submit stores one bank transaction. A negative amount is a withdrawal
// from the matched account; zero or positive is a deposit into it.
func (r *Reconciler) submit(ctx context.Context, ledgerAccount ledger.AccountRead, txn model.BankTransaction) error {
	split := ledger.TransactionSplit{
		Date:        txn.Date.Format(keyDateLayout),
		Amount:      txn.Amount.Abs().StringFixed(2),
		Description: strings.TrimSpace(txn.Description),
	}
	if txn.Amount.IsNegative() {
		split.Type = "withdrawal"
		split.SourceID = ledgerAccount.ID
		split.DestinationName = externalParty
	} else {
		split.Type = "deposit"
		split.SourceName = externalParty
		split.DestinationID = ledgerAccount.ID
	}

	if r.DryRun {
		return nil
	}
	return r.Ledger.CreateTransaction(ctx, split)
}
