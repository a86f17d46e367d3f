// Package mask redacts sensitive values before they reach a log sink.
package mask

import "strings"

const visibleDigits = 4

// AccountNumber masks an account number, keeping only the last four
// characters visible: "FR7612345678901" -> "***********8901".
func AccountNumber(number string) string {
	if len(number) <= visibleDigits {
		return strings.Repeat("*", len(number))
	}
	return strings.Repeat("*", len(number)-visibleDigits) + number[len(number)-visibleDigits:]
}

// Amount fully redacts a monetary amount.
func Amount() string {
	return "[redacted]"
}
