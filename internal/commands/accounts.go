package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ledgersync-dev/ledgersync/internal/config"
	"github.com/ledgersync-dev/ledgersync/internal/mask"
)

func newAccountsCommand() *cobra.Command {
	var configPath string
	var verbose bool

	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "List the portal's accounts without importing anything",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runAccounts(ctx, configPath, verbose)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", configFileName, "configuration file")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	return cmd
}

func runAccounts(ctx context.Context, configPath string, verbose bool) error {
	logger := newLogger(verbose)

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	client, err := connectPortal(ctx, cfg, logger)
	if err != nil {
		return err
	}

	accounts, err := client.ListAccounts(ctx)
	if err != nil {
		return fmt.Errorf("listing accounts: %w", err)
	}

	for _, a := range accounts {
		balance := "n/a"
		if a.Balance.Valid {
			balance = a.Balance.Decimal.StringFixed(2) + " " + a.Currency
		}
		fmt.Printf("%s  %-30s %s\n", mask.AccountNumber(a.Number), a.Label, balance)
	}
	fmt.Printf("%d accounts\n", len(accounts))
	return nil
}
