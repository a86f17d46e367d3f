package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ledgersync-dev/ledgersync/internal/config"
	"github.com/ledgersync-dev/ledgersync/internal/ledger"
	"github.com/ledgersync-dev/ledgersync/internal/mask"
	"github.com/ledgersync-dev/ledgersync/internal/model"
	"github.com/ledgersync-dev/ledgersync/internal/pipeline"
	"github.com/ledgersync-dev/ledgersync/internal/portal"
	"github.com/ledgersync-dev/ledgersync/internal/reconcile"
	"github.com/ledgersync-dev/ledgersync/internal/region"
	"github.com/ledgersync-dev/ledgersync/internal/runlog"
)

func newSyncCommand() *cobra.Command {
	var configPath string
	var dryRun bool
	var workers int
	var verbose bool

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Fetch bank transactions and import the new ones into the ledger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runSync(ctx, configPath, dryRun, workers, verbose)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", configFileName, "configuration file")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report what would be imported without writing to the ledger")
	cmd.Flags().IntVar(&workers, "workers", 1, "parallel account reconciliations (ledger side only)")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	return cmd
}

func runSync(ctx context.Context, configPath string, dryRun bool, workers int, verbose bool) error {
	logger := newLogger(verbose)

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ledgerClient, err := ledger.NewClient(cfg.Ledger.URL, cfg.Ledger.Token, nil)
	if err != nil {
		return err
	}

	driver := &pipeline.Driver{
		Connect: func(ctx context.Context) (pipeline.Bank, error) {
			client, err := connectPortal(ctx, cfg, logger)
			if err != nil {
				return nil, err
			}
			return portalBank{client: client}, nil
		},
		Reconciler: &reconcile.Reconciler{
			Ledger: ledgerClient,
			Logger: logger,
			DryRun: dryRun,
		},
		Logger:          logger,
		LookbackDays:    cfg.Bank.LookbackDays,
		MaxTransactions: cfg.Bank.MaxTransactions,
		ImportAccounts:  cfg.Bank.ImportAccounts,
		Workers:         workers,
	}

	summary, runErr := driver.Run(ctx)
	if summary != nil {
		printSummary(summary, dryRun)
		writeRunLog(logger, summary)
	}
	if runErr != nil {
		return fmt.Errorf("sync failed: %w", runErr)
	}
	return nil
}

// connectPortal resolves the region, parses the credentials and drives the
// portal handshake.
func connectPortal(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*portal.Client, error) {
	regions, err := region.Resolve(cfg.Bank.Department)
	if err != nil {
		return nil, err
	}
	if len(regions) > 1 {
		logger.Warn("department is served by several regional portals, taking the first",
			"department", cfg.Bank.Department, "candidates", len(regions))
	}
	reg := regions[0]
	logger.Info("using regional portal", "region", reg.Name())

	creds, err := portal.ParseCredentials(cfg.Bank.Username, cfg.Bank.Password)
	if err != nil {
		return nil, fmt.Errorf("invalid bank credentials: %w", err)
	}

	encoder := portal.DefaultEncoders().Get(cfg.Bank.KeypadEncoding)
	if encoder == nil {
		return nil, fmt.Errorf("unknown keypad encoding %q", cfg.Bank.KeypadEncoding)
	}

	handshake := &portal.Handshake{Encoder: encoder, Logger: logger}
	session, err := handshake.Authenticate(ctx, creds, reg.BaseURL())
	if err != nil {
		return nil, err
	}
	return portal.NewClient(session, logger), nil
}

// portalBank adapts the portal client to the pipeline's Bank interface.
type portalBank struct {
	client *portal.Client
}

func (b portalBank) ListAccounts(ctx context.Context) ([]model.BankAccount, error) {
	return b.client.ListAccounts(ctx)
}

func (b portalBank) Transactions(account model.BankAccount, windowDays, maxCount int) model.TransactionSource {
	return b.client.Transactions(account, windowDays, maxCount)
}

func printSummary(summary *model.RunSummary, dryRun bool) {
	if dryRun {
		fmt.Println("Dry run: nothing was written to the ledger.")
	}
	for _, r := range summary.Accounts {
		fmt.Printf("%s (%s): fetched %d, imported %d, duplicates %d, failed %d\n",
			mask.AccountNumber(r.AccountNumber), r.AccountLabel,
			r.Fetched, r.Imported, r.Duplicates, r.Failed)
		if r.Err != nil {
			fmt.Printf("  aborted: %v\n", r.Err)
		}
		for _, f := range r.Failures {
			fmt.Printf("  failed %q: %v\n", f.Description, f.Err)
		}
	}
	fmt.Printf("Total: %d accounts (%d skipped, %d aborted), %d fetched, %d imported, %d duplicates, %d failed\n",
		len(summary.Accounts), summary.AccountsSkipped, summary.AccountsFailed,
		summary.TotalFetched(), summary.TotalImported(), summary.TotalDuplicates(), summary.TotalFailed())
}

// writeRunLog appends the run to logs/import-log.csv, best effort.
func writeRunLog(logger *slog.Logger, summary *model.RunSummary) {
	now := time.Now()
	entries := make([]runlog.Entry, 0, len(summary.Accounts))
	for _, r := range summary.Accounts {
		status := "ok"
		if r.Err != nil {
			status = r.Err.Error()
		}
		entries = append(entries, runlog.Entry{
			Timestamp:  now,
			Account:    mask.AccountNumber(r.AccountNumber),
			Fetched:    r.Fetched,
			Imported:   r.Imported,
			Duplicates: r.Duplicates,
			Failed:     r.Failed,
			Status:     status,
		})
	}
	if len(entries) == 0 {
		return
	}
	if err := runlog.Append("logs", entries); err != nil {
		logger.Warn("could not write import log", "error", err)
	}
}
