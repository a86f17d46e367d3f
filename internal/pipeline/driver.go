// Package pipeline sequences a full import run: portal handshake, account
// fetch, then per-account reconciliation against the ledger.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/ledgersync-dev/ledgersync/internal/mask"
	"github.com/ledgersync-dev/ledgersync/internal/model"
	"github.com/ledgersync-dev/ledgersync/internal/reconcile"
)

// Bank is the portal surface the driver needs: one account listing and a
// lazy transaction sequence per account. All calls against a Bank must be
// treated as sequential; the portal session is stateful and
// request-ordered.
type Bank interface {
	ListAccounts(ctx context.Context) ([]model.BankAccount, error)
	Transactions(account model.BankAccount, windowDays, maxCount int) model.TransactionSource
}

// Driver runs the import pipeline and aggregates the run summary.
type Driver struct {
	// Connect performs the portal handshake and returns an authenticated
	// Bank. Any failure here is fatal to the whole run.
	Connect    func(ctx context.Context) (Bank, error)
	Reconciler *reconcile.Reconciler
	Logger     *slog.Logger

	LookbackDays    int
	MaxTransactions int
	// ImportAccounts restricts the run to these account numbers; empty
	// means all.
	ImportAccounts []string
	// Workers bounds per-account reconciliation parallelism. Values
	// below 2 keep everything sequential. With more than one worker the
	// portal is still consumed sequentially: each account's transactions
	// are drained before the account is handed to the pool.
	Workers int
}

func (d *Driver) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}

// Run executes the pipeline. A handshake or account-listing failure aborts
// the run; a failure reconciling one account never prevents processing of
// the next. Cancellation is cooperative: it is checked between accounts
// and between pages, not mid-request.
func (d *Driver) Run(ctx context.Context) (*model.RunSummary, error) {
	logger := d.logger()

	bank, err := d.Connect(ctx)
	if err != nil {
		return nil, fmt.Errorf("portal handshake: %w", err)
	}

	accounts, err := bank.ListAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing bank accounts: %w", err)
	}
	accounts = d.filterAccounts(accounts)
	logger.Info("bank accounts fetched", "count", len(accounts))

	ledgerAccounts, err := d.Reconciler.Ledger.ListAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing ledger accounts: %w", err)
	}
	idx := reconcile.NewAccountIndex(ledgerAccounts)

	summary := &model.RunSummary{}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	workers := d.Workers
	if workers < 1 {
		workers = 1
	}
	g.SetLimit(workers)

	for _, acct := range accounts {
		if err := ctx.Err(); err != nil {
			logger.Warn("run cancelled, stopping before next account")
			break
		}

		// Account creation stays serialized even when import is
		// parallelized, so concurrent runs over the index cannot race a
		// duplicate account into the ledger.
		ledgerAccount, created, err := d.Reconciler.MatchOrCreateAccount(ctx, idx, acct)
		if err != nil {
			if errors.Is(err, reconcile.ErrNoBalance) {
				logger.Warn("account skipped",
					"account", mask.AccountNumber(acct.Number), "reason", "no usable balance")
				mu.Lock()
				summary.AccountsSkipped++
				mu.Unlock()
				continue
			}
			logger.Error("account setup failed",
				"account", mask.AccountNumber(acct.Number), "error", err)
			mu.Lock()
			summary.Add(model.ImportResult{
				AccountNumber: acct.Number,
				AccountLabel:  acct.Label,
				Err:           err,
			})
			mu.Unlock()
			continue
		}
		if created {
			logger.Info("new ledger account", "account", mask.AccountNumber(acct.Number))
		}

		src := bank.Transactions(acct, d.LookbackDays, d.MaxTransactions)

		if workers == 1 {
			res := d.Reconciler.ImportAccount(ctx, ledgerAccount, acct, src)
			summary.Add(res)
			continue
		}

		// Drain the portal sequentially; only the ledger side runs in
		// the pool.
		txns, err := model.Drain(ctx, src)
		if err != nil {
			mu.Lock()
			summary.Add(model.ImportResult{
				AccountNumber: acct.Number,
				AccountLabel:  acct.Label,
				Err:           fmt.Errorf("fetching transactions: %w", err),
			})
			mu.Unlock()
			continue
		}

		g.Go(func() error {
			res := d.Reconciler.ImportAccount(gctx, ledgerAccount, acct, model.NewSliceSource(txns))
			mu.Lock()
			summary.Add(res)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return summary, err
	}
	if err := ctx.Err(); err != nil {
		return summary, err
	}
	return summary, nil
}

func (d *Driver) filterAccounts(accounts []model.BankAccount) []model.BankAccount {
	if len(d.ImportAccounts) == 0 {
		return accounts
	}
	enabled := make(map[string]bool, len(d.ImportAccounts))
	for _, n := range d.ImportAccounts {
		enabled[strings.TrimSpace(n)] = true
	}
	var kept []model.BankAccount
	for _, a := range accounts {
		if enabled[a.Number] {
			kept = append(kept, a)
		}
	}
	return kept
}
