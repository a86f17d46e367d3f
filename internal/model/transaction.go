package model

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// BankTransaction is one operation fetched from the banking portal.
type BankTransaction struct {
	Date          time.Time
	Amount        decimal.Decimal // negative = debit/withdrawal, non-negative = deposit
	Description   string
	AccountNumber string
}

// TransactionSource is a lazy, finite, non-restartable sequence of bank
// transactions, consumed in the bufio.Scanner style:
//
//	for src.Next(ctx) {
//	    txn := src.Transaction()
//	    ...
//	}
//	if err := src.Err(); err != nil { ... }
type TransactionSource interface {
	// Next advances to the next transaction. It returns false when the
	// sequence is exhausted or an error occurred; check Err afterwards.
	Next(ctx context.Context) bool
	// Transaction returns the current transaction. Only valid after a
	// Next call that returned true.
	Transaction() BankTransaction
	// Err returns the first error encountered, if any.
	Err() error
}

// SliceSource is a TransactionSource over an in-memory slice. It is used
// when transactions have been drained from the portal ahead of time, e.g.
// before handing an account to a reconciliation worker.
type SliceSource struct {
	txns []BankTransaction
	pos  int
}

// NewSliceSource creates a SliceSource over txns.
func NewSliceSource(txns []BankTransaction) *SliceSource {
	return &SliceSource{txns: txns}
}

// Next advances the source.
func (s *SliceSource) Next(ctx context.Context) bool {
	if ctx.Err() != nil {
		return false
	}
	if s.pos >= len(s.txns) {
		return false
	}
	s.pos++
	return true
}

// Transaction returns the current transaction.
func (s *SliceSource) Transaction() BankTransaction {
	return s.txns[s.pos-1]
}

// Err returns nil: a slice never fails.
func (s *SliceSource) Err() error { return nil }

// Drain consumes src to completion and returns all transactions.
func Drain(ctx context.Context, src TransactionSource) ([]BankTransaction, error) {
	var txns []BankTransaction
	for src.Next(ctx) {
		txns = append(txns, src.Transaction())
	}
	if err := src.Err(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return txns, nil
}
