package model

import "github.com/shopspring/decimal"

// BankAccount is one account as reported by the banking portal.
// The account number is sensitive: mask it before it reaches any log sink.
type BankAccount struct {
	Number   string
	Label    string              // portal product label, e.g. "Compte de Depot"
	Balance  decimal.NullDecimal // invalid when the portal exposes no usable balance
	Currency string
	Type     string
}
