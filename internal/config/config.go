package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ledgersync-dev/ledgersync/internal/region"
)

// Default values applied by Load when the file leaves them unset.
const (
	DefaultLookbackDays    = 30
	DefaultMaxTransactions = 300
)

// Config represents the top-level ledgersync.yaml configuration.
type Config struct {
	Bank   BankConfig   `yaml:"bank"`
	Ledger LedgerConfig `yaml:"ledger"`
}

// BankConfig holds the banking portal credentials and fetch window.
type BankConfig struct {
	Department string `yaml:"department"`
	Username   string `yaml:"username"`
	Password   string `yaml:"password"`
	// ImportAccounts restricts the run to these account numbers.
	// Empty means all accounts.
	ImportAccounts  []string `yaml:"import_accounts,omitempty"`
	LookbackDays    int      `yaml:"lookback_days"`
	MaxTransactions int      `yaml:"max_transactions"`
	// KeypadEncoding selects the virtual keypad encoder ("digit" or
	// "ordinal"). Empty means the default encoder.
	KeypadEncoding string `yaml:"keypad_encoding,omitempty"`
}

// LedgerConfig points at the personal-finance ledger's REST API.
type LedgerConfig struct {
	URL   string `yaml:"url"`
	Token string `yaml:"token"`
}

// Load reads a ledgersync.yaml file from disk and applies defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.Bank.LookbackDays == 0 {
		cfg.Bank.LookbackDays = DefaultLookbackDays
	}
	if cfg.Bank.MaxTransactions == 0 {
		cfg.Bank.MaxTransactions = DefaultMaxTransactions
	}
	return &cfg, nil
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Default returns a Config skeleton for a new installation.
func Default() *Config {
	return &Config{
		Bank: BankConfig{
			LookbackDays:    DefaultLookbackDays,
			MaxTransactions: DefaultMaxTransactions,
		},
		Ledger: LedgerConfig{
			URL: "http://localhost:8080",
		},
	}
}

// Validate checks the configuration before a run. Credential shape beyond
// "all digits" (the exact PIN length) is enforced by the portal package.
func (c *Config) Validate() error {
	var errs []error

	if c.Bank.Department == "" {
		errs = append(errs, errors.New("bank.department is required"))
	} else if _, err := region.Resolve(c.Bank.Department); err != nil {
		errs = append(errs, fmt.Errorf("bank.department: %w", err))
	}

	if c.Bank.Username == "" {
		errs = append(errs, errors.New("bank.username is required"))
	}

	switch {
	case c.Bank.Password == "":
		errs = append(errs, errors.New("bank.password is required"))
	case strings.ContainsFunc(c.Bank.Password, func(r rune) bool { return r < '0' || r > '9' }):
		errs = append(errs, errors.New("bank.password must contain only digits"))
	}

	if c.Bank.LookbackDays < 0 {
		errs = append(errs, errors.New("bank.lookback_days must not be negative"))
	}
	if c.Bank.MaxTransactions <= 0 {
		errs = append(errs, errors.New("bank.max_transactions must be positive"))
	}

	if c.Ledger.URL == "" {
		errs = append(errs, errors.New("ledger.url is required"))
	}
	if c.Ledger.Token == "" {
		errs = append(errs, errors.New("ledger.token is required"))
	}

	return errors.Join(errs...)
}
