// Package reconcile maps fetched bank accounts and transactions onto
// ledger entities so that repeated runs are idempotent: accounts are
// created at most once and previously imported transactions are skipped.
package reconcile

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const keyDateLayout = "2006-01-02"

// Layouts accepted when normalizing a ledger-side transaction date.
var keyDateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	keyDateLayout,
	"02/01/2006",
}

// Key is the structural fingerprint of one economic event: normalized
// date, absolute amount fixed to two decimals, and trimmed description.
// The ledger API exposes no reliable "already imported" marker, so the
// same key computed on both sides is the deduplication contract.
type Key string

// MakeKey builds the dedup key for a transaction.
func MakeKey(date time.Time, amount decimal.Decimal, description string) Key {
	return Key(date.Format(keyDateLayout) + "|" + amount.Abs().StringFixed(2) + "|" + strings.TrimSpace(description))
}

// ParseKey builds the dedup key from the ledger's string representation of
// a transaction. The date may carry a time and offset; the amount may
// carry extra decimal places.
func ParseKey(dateStr, amountStr, description string) (Key, error) {
	date, err := parseKeyDate(dateStr)
	if err != nil {
		return "", fmt.Errorf("parsing date %q: %w", dateStr, err)
	}
	amount, err := decimal.NewFromString(strings.TrimSpace(amountStr))
	if err != nil {
		return "", fmt.Errorf("parsing amount: %w", err)
	}
	return MakeKey(date, amount, description), nil
}

func parseKeyDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range keyDateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date layout")
}
